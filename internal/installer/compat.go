package installer

import (
	"context"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/nimbusedit/extensiond/internal/extension"
)

// TargetPlatformUniversal marks an entry that runs on any platform.
const TargetPlatformUniversal = "universal"

// Host describes the installing host for compatibility checks.
type Host struct {
	// Version is the host application version checked against entry
	// engine constraints.
	Version string

	// TargetPlatform is the host's platform tag (e.g. "linux-x64").
	TargetPlatform string

	// RestrictedExecutionContext is true for hosts that cannot run native
	// extension code (e.g. browser-hosted).
	RestrictedExecutionContext bool
}

// IncompatibleExtensionError reports that a catalog entry cannot be
// installed on this host. It is surfaced before a task is created.
type IncompatibleExtensionError struct {
	ID      extension.Identifier
	Version string
	Reason  string
}

func (e *IncompatibleExtensionError) Error() string {
	return fmt.Sprintf("extension %s@%s is not installable: %s", e.ID, e.Version, e.Reason)
}

// CheckInstallable reports whether a catalog entry is installable on the
// host: either the generic cross-platform compatibility check passes, or
// the publisher has configured the entry to execute in the host's
// restricted execution context.
func CheckInstallable(entry *CatalogEntry, host Host) error {
	reason := genericIncompatibility(entry, host)
	if reason == "" {
		return nil
	}
	if host.RestrictedExecutionContext && entry.Properties.ExecutesInRestrictedContext {
		return nil
	}
	return &IncompatibleExtensionError{
		ID:      entry.Identifier,
		Version: entry.Version,
		Reason:  reason,
	}
}

// ResolveInstallableVersion resolves which version of an entry is compatible
// with the host. When the catalog reports no compatible version, the
// originally requested version is used if it carries the restricted
// execution-context override; otherwise there is no compatible version.
func ResolveInstallableVersion(ctx context.Context, svc CatalogService, entry *CatalogEntry, host Host, includePreRelease bool) (*CatalogEntry, error) {
	resolved, err := svc.ResolveCompatibleVersion(ctx, entry, false, includePreRelease)
	if err != nil {
		return nil, fmt.Errorf("resolving compatible version of %s: %w", entry.Identifier, err)
	}
	if resolved != nil {
		return resolved, nil
	}
	if host.RestrictedExecutionContext && entry.Properties.ExecutesInRestrictedContext {
		return entry, nil
	}
	return nil, &IncompatibleExtensionError{
		ID:      entry.Identifier,
		Version: entry.Version,
		Reason:  "no compatible version found",
	}
}

// genericIncompatibility runs the cross-platform compatibility check and
// returns an empty string when the entry passes.
func genericIncompatibility(entry *CatalogEntry, host Host) string {
	if host.RestrictedExecutionContext {
		return "host cannot run native extension code"
	}

	if tps := entry.Properties.TargetPlatforms; len(tps) > 0 {
		if !slices.Contains(tps, TargetPlatformUniversal) && !slices.Contains(tps, host.TargetPlatform) {
			return fmt.Sprintf("target platform %s is not supported", host.TargetPlatform)
		}
	}

	if c := entry.Properties.EngineConstraint; c != "" {
		constraint, err := semver.NewConstraint(c)
		if err != nil {
			return fmt.Sprintf("invalid engine constraint %q", c)
		}
		hostVersion, err := semver.NewVersion(host.Version)
		if err != nil {
			return fmt.Sprintf("invalid host version %q", host.Version)
		}
		if !constraint.Check(hostVersion) {
			return fmt.Sprintf("requires host version %s, have %s", c, host.Version)
		}
	}

	return ""
}
