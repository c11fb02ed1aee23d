package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nimbusedit/extensiond/internal/extension"
)

// ScanError reports an unreadable source root. It fails the scan for that
// source only; the other sources still contribute results.
type ScanError struct {
	Origin extension.Origin
	Root   string
	Err    error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning %s extensions at %s: %v", e.Origin, e.Root, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// BuiltinSource reads factory extensions from a fixed installation root. In
// development mode it is composed with an override resolver whose entries
// substitute locally-built extensions for their packaged equivalents.
type BuiltinSource struct {
	Root      string
	Overrides *OverrideResolver // nil outside development mode
	Reader    extension.ManifestReader
	Log       *slog.Logger
}

// Scan returns descriptors for every valid extension under the builtin root,
// with override entries taking precedence over same-identity root entries.
func (s *BuiltinSource) Scan(ctx context.Context) ([]*extension.Descriptor, error) {
	base, err := scanRoot(ctx, s.Reader, s.Root, extension.OriginBuiltin, false, s.Log)
	if err != nil {
		return nil, err
	}
	if s.Overrides == nil {
		return base, nil
	}

	overrides, err := s.Overrides.Resolve(ctx, s.Reader)
	if err != nil {
		s.Log.Warn("builtin override resolution failed", "err", err)
		return base, nil
	}
	return applyOverrides(base, overrides), nil
}

// applyOverrides replaces same-identity base entries with override entries,
// keeping first-seen order, and appends overrides for identities not present
// in the base set.
func applyOverrides(base, overrides []*extension.Descriptor) []*extension.Descriptor {
	byKey := make(map[string]*extension.Descriptor, len(overrides))
	for _, o := range overrides {
		byKey[o.Identifier().Key()] = o
	}

	result := make([]*extension.Descriptor, 0, len(base)+len(overrides))
	seen := make(map[string]bool, len(base))
	for _, d := range base {
		key := d.Identifier().Key()
		seen[key] = true
		if o, ok := byKey[key]; ok {
			result = append(result, o)
			continue
		}
		result = append(result, d)
	}
	for _, o := range overrides {
		if !seen[o.Identifier().Key()] {
			result = append(result, o)
		}
	}
	return result
}

// InstalledSource reads user extensions from a per-profile root.
type InstalledSource struct {
	Root   string
	Reader extension.ManifestReader
	Log    *slog.Logger
}

// Scan returns descriptors for every valid extension under the profile root.
// Installed entries are never under development.
func (s *InstalledSource) Scan(ctx context.Context) ([]*extension.Descriptor, error) {
	return scanRoot(ctx, s.Reader, s.Root, extension.OriginUser, false, s.Log)
}

// DevelopedSource reads extensions from explicit developer-supplied paths.
type DevelopedSource struct {
	Reader extension.ManifestReader
	Log    *slog.Logger
}

// Scan reads one descriptor per supplied path. An empty path list yields an
// empty result. Unreadable or malformed entries are skipped with a warning;
// this source never fails the scan.
func (s *DevelopedSource) Scan(ctx context.Context, paths []string) ([]*extension.Descriptor, error) {
	var result []*extension.Descriptor
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := s.Reader.ReadManifest(ctx, path)
		if err != nil {
			s.Log.Warn("skipping development extension", "path", path, "err", err)
			continue
		}
		result = append(result, &extension.Descriptor{
			Manifest:         m,
			Location:         path,
			Origin:           extension.OriginDevelopment,
			UnderDevelopment: true,
		})
	}
	return result, nil
}

// scanRoot reads one descriptor per direct child directory of root.
// Directories without a manifest and directories whose manifest is malformed
// are skipped with a warning; an unreadable root fails with a *ScanError.
func scanRoot(ctx context.Context, reader extension.ManifestReader, root string, origin extension.Origin, underDevelopment bool, log *slog.Logger) ([]*extension.Descriptor, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &ScanError{Origin: origin, Root: root, Err: err}
	}

	var result []*extension.Descriptor
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		location := filepath.Join(root, entry.Name())

		m, err := reader.ReadManifest(ctx, location)
		if err != nil {
			if errors.Is(err, extension.ErrManifestNotFound) {
				continue
			}
			log.Warn("skipping extension with invalid manifest",
				"origin", origin, "location", location, "err", err)
			continue
		}
		result = append(result, &extension.Descriptor{
			Manifest:         m,
			Location:         location,
			Origin:           origin,
			UnderDevelopment: underDevelopment,
		})
	}
	return result, nil
}
