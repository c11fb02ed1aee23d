package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/nimbusedit/extensiond/internal/extension"
)

// OverrideFileName is the development-mode control file listing builtin
// extensions to substitute with locally-built checkouts.
const OverrideFileName = "dev.extensions.yaml"

// Override names a builtin extension and the local path that replaces it.
type Override struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// overrideFile is the on-disk shape of the control file.
type overrideFile struct {
	Overrides []Override `yaml:"overrides"`
}

// OverrideResolver supplies the development-mode allow-list of builtin
// substitutions from a control file.
type OverrideResolver struct {
	// ControlFile is the path to the override control file. A missing file
	// resolves to no overrides.
	ControlFile string
}

// Load reads the allow-list. A missing control file yields an empty list.
func (r *OverrideResolver) Load() ([]Override, error) {
	data, err := os.ReadFile(r.ControlFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading override control file %s: %w", r.ControlFile, err)
	}

	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing override control file %s: %w", r.ControlFile, err)
	}
	return f.Overrides, nil
}

// Resolve loads the allow-list and reads a builtin descriptor per entry.
// Paths are resolved relative to the control file's directory.
func (r *OverrideResolver) Resolve(ctx context.Context, reader extension.ManifestReader) ([]*extension.Descriptor, error) {
	overrides, err := r.Load()
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(r.ControlFile)
	var result []*extension.Descriptor
	for _, o := range overrides {
		path := o.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		m, err := reader.ReadManifest(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", o.Name, err)
		}
		result = append(result, &extension.Descriptor{
			Manifest:         m,
			Location:         path,
			Origin:           extension.OriginBuiltin,
			UnderDevelopment: true,
		})
	}
	return result, nil
}
