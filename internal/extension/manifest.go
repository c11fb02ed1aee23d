package extension

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// ManifestFileName is the manifest file expected at an extension's root.
const ManifestFileName = "extension.json"

// Manifest is the static declarative data read from an extension's root.
type Manifest struct {
	// Identity
	Name        string `json:"name"`
	Publisher   string `json:"publisher"`
	Version     string `json:"version"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`

	// Engines declares host compatibility constraints.
	Engines Engines `json:"engines"`

	// Entry points. Browser is the entry point used in restricted
	// execution contexts that cannot run native code.
	Main    string `json:"main,omitempty"`
	Browser string `json:"browser,omitempty"`

	Categories       []string `json:"categories,omitempty"`
	ActivationEvents []string `json:"activationEvents,omitempty"`

	// Contribution points
	Contributes Contributions `json:"contributes,omitempty"`
}

// Engines holds version constraints against host components.
type Engines struct {
	// Nimbus is a semver constraint on the host application version,
	// e.g. "^1.4.0".
	Nimbus string `json:"nimbus"`
}

// Contributions are the declarative contribution points an extension adds to
// the host. Menu items, keybindings, and views each optionally carry a
// when-expression controlling their visibility.
type Contributions struct {
	Menus       map[string][]MenuItem `json:"menus,omitempty"`
	Keybindings []Keybinding          `json:"keybindings,omitempty"`
	Views       map[string][]View     `json:"views,omitempty"`
}

// MenuItem contributes an entry to a named menu.
type MenuItem struct {
	Command string `json:"command"`
	Group   string `json:"group,omitempty"`
	When    string `json:"when,omitempty"`
}

// Keybinding contributes a default key binding.
type Keybinding struct {
	Key     string `json:"key"`
	Command string `json:"command"`
	When    string `json:"when,omitempty"`
}

// View contributes a view to a named view container.
type View struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	When string `json:"when,omitempty"`
}

// Validation errors.
var (
	ErrMissingName      = errors.New("manifest: name is required")
	ErrInvalidName      = errors.New("manifest: name must be alphanumeric with hyphens")
	ErrMissingPublisher = errors.New("manifest: publisher is required")
	ErrMissingVersion   = errors.New("manifest: version is required")
	ErrInvalidVersion   = errors.New("manifest: version must be valid semver")
)

// namePattern validates extension and publisher names.
var namePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-]*$`)

// Identifier derives the manifest's identity. Manifests never carry a UUID;
// that lives in metadata.
func (m *Manifest) Identifier() Identifier {
	return Identifier{Publisher: m.Publisher, Name: m.Name}
}

// Validate checks the structural invariants the schema cannot express
// cheaply: required identity fields and a parseable semver version.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}
	if m.Publisher == "" {
		return ErrMissingPublisher
	}
	if !namePattern.MatchString(m.Publisher) {
		return fmt.Errorf("%w: publisher %s", ErrInvalidName, m.Publisher)
	}
	if m.Version == "" {
		return ErrMissingVersion
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}
	return nil
}

// String returns a display form of the manifest.
func (m *Manifest) String() string {
	display := m.DisplayName
	if display == "" {
		display = m.Publisher + "." + m.Name
	}
	return fmt.Sprintf("%s v%s", display, m.Version)
}
