package extension

import (
	"fmt"
	"strings"
)

// Identifier identifies an extension by its publisher and name. The UUID is
// optional and stable; it is set once an extension has been obtained from a
// remote catalog and is carried in metadata from then on.
type Identifier struct {
	Publisher string `json:"publisher"`
	Name      string `json:"name"`
	UUID      string `json:"uuid,omitempty"`
}

// Key returns the case-insensitive identity key ("publisher.name", lowered).
// Two identifiers refer to the same extension iff their keys match,
// regardless of UUID presence.
func (id Identifier) Key() string {
	return strings.ToLower(id.Publisher + "." + id.Name)
}

// Equal reports whether both identifiers refer to the same extension.
func (id Identifier) Equal(other Identifier) bool {
	return id.Key() == other.Key()
}

// String returns the display form "publisher.name".
func (id Identifier) String() string {
	return id.Publisher + "." + id.Name
}

// ParseIdentifier parses a "publisher.name" string into an Identifier.
// The publisher is everything before the first dot.
func ParseIdentifier(s string) (Identifier, error) {
	publisher, name, ok := strings.Cut(s, ".")
	if !ok || publisher == "" || name == "" {
		return Identifier{}, fmt.Errorf("invalid extension identifier %q: want publisher.name", s)
	}
	return Identifier{Publisher: publisher, Name: name}, nil
}
