package scanner

import (
	"log/slog"

	"github.com/nimbusedit/extensiond/internal/extension"
)

// Merge combines the three source results into one identity-keyed set under
// fixed precedence: developed > installed > builtin. An installed entry
// overwriting a builtin entry logs a collision warning naming both
// locations; developed entries overwrite silently. The merged order is the
// first-seen traversal order of the winning identities.
func Merge(log *slog.Logger, builtin, installed, developed []*extension.Descriptor) []*extension.Descriptor {
	byKey := make(map[string]*extension.Descriptor)
	var order []string

	insert := func(d *extension.Descriptor, warn bool) {
		key := d.Identifier().Key()
		existing, ok := byKey[key]
		if !ok {
			order = append(order, key)
		} else if warn {
			log.Warn("extension identity collision, later source wins",
				"extension", d.Identifier().String(),
				"overwritten", existing.Location,
				"overwriting", d.Location)
		}
		byKey[key] = d
	}

	for _, d := range builtin {
		insert(d, false)
	}
	for _, d := range installed {
		insert(d, true)
	}
	for _, d := range developed {
		insert(d, false)
	}

	result := make([]*extension.Descriptor, 0, len(order))
	for _, key := range order {
		result = append(result, byKey[key])
	}
	return result
}
