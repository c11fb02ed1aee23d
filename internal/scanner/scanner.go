package scanner

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nimbusedit/extensiond/internal/extension"
	"github.com/nimbusedit/extensiond/internal/whenclause"
)

// Options configures a single scan invocation.
type Options struct {
	// Language is the host UI language. Localized manifest resolution is
	// performed by an external collaborator; the value is recorded for it.
	Language string

	// DevelopmentPaths are explicit extension roots supplied by extension
	// authors. An empty list contributes nothing.
	DevelopmentPaths []string
}

// Scanner orchestrates the three sources concurrently and merges their
// results. The optional rewriter post-processes contribution
// when-expressions for the remote execution context.
type Scanner struct {
	builtin   *BuiltinSource
	installed *InstalledSource
	developed *DevelopedSource
	rewriter  *whenclause.Rewriter
	log       *slog.Logger
}

// Deps are the collaborators a Scanner is constructed from.
type Deps struct {
	BuiltinRoot   string
	InstalledRoot string
	Overrides     *OverrideResolver // nil outside development mode
	Reader        extension.ManifestReader
	Rewriter      *whenclause.Rewriter // nil to skip when-clause rewriting
	Log           *slog.Logger
}

// New constructs a Scanner over the three sources.
func New(deps Deps) *Scanner {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Scanner{
		builtin: &BuiltinSource{
			Root:      deps.BuiltinRoot,
			Overrides: deps.Overrides,
			Reader:    deps.Reader,
			Log:       deps.Log,
		},
		installed: &InstalledSource{
			Root:   deps.InstalledRoot,
			Reader: deps.Reader,
			Log:    deps.Log,
		},
		developed: &DevelopedSource{
			Reader: deps.Reader,
			Log:    deps.Log,
		},
		rewriter: deps.Rewriter,
		log:      deps.Log,
	}
}

// Scan runs the three sources in parallel, joins their results, merges them
// under fixed precedence, and rewrites when-expressions. A source whose root
// is unreadable contributes an empty set; the scan as a whole only fails on
// cancellation.
func (s *Scanner) Scan(ctx context.Context, opts Options) ([]*extension.Descriptor, error) {
	s.log.Debug("scanning extensions",
		"language", opts.Language, "developmentPaths", len(opts.DevelopmentPaths))

	var builtin, installed, developed []*extension.Descriptor

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.builtin.Scan(gctx)
		builtin = res
		return s.recoverScanError(err)
	})
	g.Go(func() error {
		res, err := s.installed.Scan(gctx)
		installed = res
		return s.recoverScanError(err)
	})
	g.Go(func() error {
		res, err := s.developed.Scan(gctx, opts.DevelopmentPaths)
		developed = res
		return s.recoverScanError(err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(s.log, builtin, installed, developed)
	if s.rewriter != nil {
		s.rewriter.RewriteDescriptors(merged)
	}
	return merged, nil
}

// recoverScanError downgrades a per-source ScanError to a warning so the
// other sources still contribute. Anything else (cancellation) propagates.
func (s *Scanner) recoverScanError(err error) error {
	if err == nil {
		return nil
	}
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		s.log.Warn("extension source unavailable", "origin", scanErr.Origin,
			"root", scanErr.Root, "err", scanErr.Err)
		return nil
	}
	return err
}
