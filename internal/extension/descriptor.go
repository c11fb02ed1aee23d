package extension

// Origin classifies where a descriptor was discovered.
type Origin string

const (
	OriginBuiltin     Origin = "builtin"
	OriginUser        Origin = "user"
	OriginDevelopment Origin = "development"
)

// Descriptor binds a manifest to a concrete on-disk location and an origin
// classification. Descriptors are created per scan invocation and are not
// persisted.
type Descriptor struct {
	Manifest         *Manifest `json:"manifest"`
	Location         string    `json:"location"`
	Origin           Origin    `json:"origin"`
	UnderDevelopment bool      `json:"underDevelopment,omitempty"`
}

// Identifier derives the descriptor's identity from its manifest.
func (d *Descriptor) Identifier() Identifier {
	return d.Manifest.Identifier()
}

// LocalExtension is the externally visible union of a descriptor, its
// install metadata, and the host's target platform tag.
type LocalExtension struct {
	Descriptor
	Metadata       *Metadata `json:"metadata,omitempty"`
	TargetPlatform string    `json:"targetPlatform,omitempty"`
}

// UUID returns the extension's stable identifier, preferring metadata.
func (e *LocalExtension) UUID() string {
	if e.Metadata != nil && e.Metadata.ID != "" {
		return e.Metadata.ID
	}
	return e.Identifier().UUID
}
