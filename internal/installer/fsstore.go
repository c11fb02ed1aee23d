package installer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nimbusedit/extensiond/internal/extension"
)

// metadataFileName is the metadata sidecar persisted inside each installed
// extension directory.
const metadataFileName = ".extmeta.json"

// tmpSuffix marks in-flight staging directories. List skips them so a
// concurrent Add never surfaces a half-staged extension.
const tmpSuffix = ".tmp"

// excludedNames are entries never copied into an installed extension.
var excludedNames = map[string]bool{
	"node_modules": true,
	".git":         true,
	".DS_Store":    true,
}

// EntryMaterializer fetches and unpacks a catalog entry's package into a
// directory. dst exists and is empty when called. Package/archive handling
// lives behind this interface.
type EntryMaterializer interface {
	Materialize(ctx context.Context, entry *CatalogEntry, dst string) error
}

// FSStore is the filesystem-backed installed-extension store. Each
// extension lives under Root in a "publisher.name-version" directory with
// its metadata sidecar.
type FSStore struct {
	Root         string
	Reader       extension.ManifestReader
	Materializer EntryMaterializer // required for catalog-entry installs
	Log          *slog.Logger
}

// NewFSStore creates a store rooted at dir.
func NewFSStore(dir string, reader extension.ManifestReader, materializer EntryMaterializer, log *slog.Logger) *FSStore {
	if log == nil {
		log = slog.Default()
	}
	return &FSStore{Root: dir, Reader: reader, Materializer: materializer, Log: log}
}

// List implements InstalledStore. Malformed entries are skipped with a
// warning; a missing root yields an empty list.
func (s *FSStore) List(ctx context.Context) ([]*extension.Descriptor, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading installed root %s: %w", s.Root, err)
	}

	var result []*extension.Descriptor
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() || strings.HasSuffix(entry.Name(), tmpSuffix) {
			continue
		}
		location := filepath.Join(s.Root, entry.Name())
		m, err := s.Reader.ReadManifest(ctx, location)
		if err != nil {
			if !errors.Is(err, extension.ErrManifestNotFound) {
				s.Log.Warn("skipping installed extension with invalid manifest",
					"location", location, "err", err)
			}
			continue
		}
		result = append(result, &extension.Descriptor{
			Manifest: m,
			Location: location,
			Origin:   extension.OriginUser,
		})
	}
	return result, nil
}

// Add implements InstalledStore. The extension is staged in a per-call temp
// directory next to its final location and renamed into place, so a failed
// or cancelled install never leaves a partial installation behind. Every
// prior installation of the same identity is removed before the rename, so
// an update across versions leaves exactly one directory per identity.
func (s *FSStore) Add(ctx context.Context, src InstallSource, md *extension.Metadata) (*extension.Descriptor, error) {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return nil, fmt.Errorf("creating installed root %s: %w", s.Root, err)
	}

	var m *extension.Manifest
	var stage func(dst string) error
	switch {
	case src.FromCatalog():
		if s.Materializer == nil {
			return nil, fmt.Errorf("no materializer configured for catalog entry %s", src.Entry.Identifier)
		}
		stage = func(dst string) error {
			return s.Materializer.Materialize(ctx, src.Entry, dst)
		}
	default:
		var err error
		m, err = s.Reader.ReadManifest(ctx, src.Location)
		if err != nil {
			return nil, err
		}
		stage = func(dst string) error {
			return copyDir(src.Location, dst)
		}
	}

	tmp, err := os.MkdirTemp(s.Root, "staging-*"+tmpSuffix)
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)

	if err := stage(tmp); err != nil {
		return nil, fmt.Errorf("staging extension: %w", err)
	}

	if m == nil {
		var err error
		m, err = s.Reader.ReadManifest(ctx, tmp)
		if err != nil {
			return nil, fmt.Errorf("reading staged manifest: %w", err)
		}
	}

	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(tmp, metadataFileName), data, 0o644); err != nil {
		return nil, fmt.Errorf("writing metadata: %w", err)
	}

	// Sweep prior installs of this identity (any version), then the exact
	// destination in case a malformed leftover escaped the identity walk.
	if _, err := s.removeMatching(ctx, m.Identifier()); err != nil {
		return nil, err
	}
	dst := filepath.Join(s.Root, dirName(m))
	if err := os.RemoveAll(dst); err != nil {
		return nil, fmt.Errorf("removing existing installation at %s: %w", dst, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return nil, fmt.Errorf("placing extension at %s: %w", dst, err)
	}

	return &extension.Descriptor{
		Manifest: m,
		Location: dst,
		Origin:   extension.OriginUser,
	}, nil
}

// Remove implements InstalledStore. Every installed directory whose
// manifest matches the identity is deleted.
func (s *FSStore) Remove(ctx context.Context, id extension.Identifier) error {
	removed, err := s.removeMatching(ctx, id)
	if err != nil {
		return err
	}
	if removed == 0 {
		return fmt.Errorf("extension %s is not installed", id)
	}
	return nil
}

// removeMatching deletes every installed directory whose manifest matches
// the identity and reports how many were removed.
func (s *FSStore) removeMatching(ctx context.Context, id extension.Identifier) (int, error) {
	installed, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, d := range installed {
		if !d.Identifier().Equal(id) {
			continue
		}
		if err := os.RemoveAll(d.Location); err != nil {
			return removed, fmt.Errorf("removing %s: %w", d.Location, err)
		}
		removed++
	}
	return removed, nil
}

// ReadMetadata implements InstalledStore. Absent metadata is not an error.
func (s *FSStore) ReadMetadata(_ context.Context, location string) (*extension.Metadata, error) {
	data, err := os.ReadFile(filepath.Join(location, metadataFileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading metadata at %s: %w", location, err)
	}
	var md extension.Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parsing metadata at %s: %w", location, err)
	}
	return &md, nil
}

// dirName builds the installation directory name for a manifest.
func dirName(m *extension.Manifest) string {
	return fmt.Sprintf("%s.%s-%s", m.Publisher, m.Name, m.Version)
}

// copyDir recursively copies src to dst, excluding entries in excludedNames.
// Symlinks and other special files are skipped.
func copyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if excludedNames[entry.Name()] {
			continue
		}

		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
		} else if entry.Type().IsRegular() {
			if err := copyFile(srcPath, dstPath); err != nil {
				return err
			}
		}
	}

	return nil
}

// copyFile copies a single file from src to dst, preserving permissions.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, data, srcInfo.Mode())
}
