package extension

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrManifestNotFound is returned when an extension root has no manifest.
var ErrManifestNotFound = errors.New("extension manifest not found")

// ParseError reports a manifest that exists but cannot be parsed or does not
// validate. Scanners recover from it by skipping the entry.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ManifestReader reads an extension manifest from a location.
type ManifestReader interface {
	// ReadManifest reads the manifest at the given extension root.
	// It returns ErrManifestNotFound when no manifest exists there and a
	// *ParseError when the manifest is malformed or invalid.
	ReadManifest(ctx context.Context, location string) (*Manifest, error)
}

// FSReader reads manifests from the local filesystem and validates them
// against the extension schema.
type FSReader struct{}

// NewFSReader returns a filesystem-backed manifest reader.
func NewFSReader() *FSReader {
	return &FSReader{}
}

// ReadManifest implements ManifestReader.
func (r *FSReader) ReadManifest(ctx context.Context, location string) (*Manifest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(location, ManifestFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrManifestNotFound, location)
		}
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	result, err := ValidateManifestBytes(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if !result.Valid {
		issue := result.Issues[0]
		return nil, &ParseError{Path: path, Err: fmt.Errorf("schema violation at %s: %s", issue.Path, issue.Message)}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if err := m.Validate(); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return &m, nil
}
