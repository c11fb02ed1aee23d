package installer

import (
	"context"

	"github.com/nimbusedit/extensiond/internal/extension"
)

// CatalogEntry is a versioned extension record obtained from a remote
// catalog. Its identifier carries the catalog's stable UUID.
type CatalogEntry struct {
	Identifier extension.Identifier `json:"identifier"`
	Version    string               `json:"version"`

	PublisherID          string `json:"publisherId,omitempty"`
	PublisherDisplayName string `json:"publisherDisplayName,omitempty"`

	// IsPreReleaseVersion reports whether this version is a pre-release
	// build.
	IsPreReleaseVersion bool `json:"isPreReleaseVersion,omitempty"`

	Properties EntryProperties `json:"properties,omitempty"`
}

// EntryProperties are publisher-level configuration facts about an entry,
// distinct from manifest content.
type EntryProperties struct {
	// EngineConstraint is the semver constraint on the host version.
	EngineConstraint string `json:"engineConstraint,omitempty"`

	// TargetPlatforms lists supported platforms. Empty means universal.
	TargetPlatforms []string `json:"targetPlatforms,omitempty"`

	// ExecutesInRestrictedContext marks that the publisher has opted the
	// extension into the host's restricted execution mode, allowing it to
	// run where native code cannot.
	ExecutesInRestrictedContext bool `json:"executesInRestrictedContext,omitempty"`
}

// CatalogService resolves catalog entries against the remote catalog.
type CatalogService interface {
	// ResolveCompatibleVersion returns the entry for the newest version
	// compatible with this host, or nil when none is. sameVersionOnly
	// restricts resolution to the entry's own version.
	ResolveCompatibleVersion(ctx context.Context, entry *CatalogEntry, sameVersionOnly, includePreRelease bool) (*CatalogEntry, error)
}
