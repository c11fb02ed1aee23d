package installer

import (
	"context"

	"github.com/nimbusedit/extensiond/internal/extension"
)

// InstallSource is the target of an install: exactly one of Location (a
// direct on-disk extension root) or Entry (a remote catalog entry) is set.
type InstallSource struct {
	Location string
	Entry    *CatalogEntry
}

// FromCatalog reports whether the source is a remote catalog entry.
func (s InstallSource) FromCatalog() bool { return s.Entry != nil }

// InstalledStore is the backing store for installed extensions. The task
// engine assumes exclusive access for an identity during a task's run.
type InstalledStore interface {
	// List returns a descriptor per installed extension.
	List(ctx context.Context) ([]*extension.Descriptor, error)

	// Add materializes the extension at its final location and persists
	// the given metadata alongside it. The write is all-or-nothing.
	Add(ctx context.Context, src InstallSource, md *extension.Metadata) (*extension.Descriptor, error)

	// Remove deletes the extension with the given identity.
	Remove(ctx context.Context, id extension.Identifier) error

	// ReadMetadata returns the metadata persisted at an extension
	// location, or nil when absent.
	ReadMetadata(ctx context.Context, location string) (*extension.Metadata, error)
}
