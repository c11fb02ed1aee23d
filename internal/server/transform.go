package server

import "strings"

// URITransform rewrites location references for the remote client. It is
// applied to every location-valued field before a result leaves the
// dispatcher.
type URITransform interface {
	TransformOutgoing(value string) string
}

// IdentityTransform leaves locations unchanged.
type IdentityTransform struct{}

func (IdentityTransform) TransformOutgoing(value string) string { return value }

// localFileScheme is the URI scheme of local-filesystem paths.
const localFileScheme = "file://"

// LocalPath extracts the local filesystem path from a value, reporting
// false for values on a non-local scheme. Scheme-less values are treated as
// local paths.
func LocalPath(value string) (string, bool) {
	if rest, ok := strings.CutPrefix(value, localFileScheme); ok {
		return rest, true
	}
	if strings.Contains(value, "://") {
		return "", false
	}
	return value, true
}
