package extension

import "time"

// Metadata holds mutable, non-manifest install-time facts about an
// extension. It is carried alongside an extension but is never part of its
// manifest identity.
type Metadata struct {
	// ID is the stable catalog UUID, set when the extension was obtained
	// from a remote catalog.
	ID string `json:"id,omitempty"`

	PublisherID          string `json:"publisherId,omitempty"`
	PublisherDisplayName string `json:"publisherDisplayName,omitempty"`

	// Scoping flags.
	IsMachineScoped     bool `json:"isMachineScoped,omitempty"`
	IsApplicationScoped bool `json:"isApplicationScoped,omitempty"`

	IsBuiltin bool `json:"isBuiltin,omitempty"`
	IsSystem  bool `json:"isSystem,omitempty"`

	// IsPreReleaseVersion reflects whether the fetched version itself is a
	// pre-release build. PreRelease reflects the user's opt-in and is
	// sticky across updates unless a later install explicitly opts out.
	IsPreReleaseVersion bool `json:"isPreReleaseVersion,omitempty"`
	PreRelease          bool `json:"preRelease,omitempty"`

	// Updated is true when the install that produced this metadata
	// replaced an already-installed extension.
	Updated bool `json:"updated,omitempty"`

	// InstalledTimestamp is Unix milliseconds at install time.
	InstalledTimestamp int64 `json:"installedTimestamp,omitempty"`
}

// InstalledAt returns the install timestamp as a time.Time, zero when unset.
func (m *Metadata) InstalledAt() time.Time {
	if m.InstalledTimestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(m.InstalledTimestamp)
}

// Clone returns a copy of the metadata. A nil receiver yields nil.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	clone := *m
	return &clone
}
