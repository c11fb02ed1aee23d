package scanner

import (
	"log/slog"
	"testing"

	"github.com/nimbusedit/extensiond/internal/extension"
)

func desc(publisher, name, location string, origin extension.Origin) *extension.Descriptor {
	return &extension.Descriptor{
		Manifest: &extension.Manifest{
			Name:      name,
			Publisher: publisher,
			Version:   "1.0.0",
		},
		Location: location,
		Origin:   origin,
	}
}

func TestMergePrecedence(t *testing.T) {
	builtin := []*extension.Descriptor{
		desc("acme", "lint", "/sys/acme.lint", extension.OriginBuiltin),
		desc("acme", "core", "/sys/acme.core", extension.OriginBuiltin),
	}
	installed := []*extension.Descriptor{
		desc("acme", "lint", "/user/acme.lint", extension.OriginUser),
	}
	developed := []*extension.Descriptor{
		desc("acme", "core", "/dev/acme.core", extension.OriginDevelopment),
	}

	merged := Merge(slog.Default(), builtin, installed, developed)

	if len(merged) != 2 {
		t.Fatalf("got %d entries, want 2", len(merged))
	}

	byKey := make(map[string]*extension.Descriptor)
	for _, d := range merged {
		byKey[d.Identifier().Key()] = d
	}

	if got := byKey["acme.lint"].Location; got != "/user/acme.lint" {
		t.Errorf("acme.lint location = %s, want installed to win over builtin", got)
	}
	if got := byKey["acme.core"].Location; got != "/dev/acme.core" {
		t.Errorf("acme.core location = %s, want developed to win over builtin", got)
	}
}

func TestMergeCaseInsensitiveIdentity(t *testing.T) {
	builtin := []*extension.Descriptor{
		desc("Acme", "Lint", "/sys/acme.lint", extension.OriginBuiltin),
	}
	installed := []*extension.Descriptor{
		desc("acme", "lint", "/user/acme.lint", extension.OriginUser),
	}

	merged := Merge(slog.Default(), builtin, installed, nil)
	if len(merged) != 1 {
		t.Fatalf("got %d entries, want identity collision resolved to 1", len(merged))
	}
	if merged[0].Location != "/user/acme.lint" {
		t.Errorf("location = %s, want the installed entry", merged[0].Location)
	}
}

func TestMergeKeepsFirstSeenOrder(t *testing.T) {
	builtin := []*extension.Descriptor{
		desc("a", "one", "/sys/a.one", extension.OriginBuiltin),
		desc("b", "two", "/sys/b.two", extension.OriginBuiltin),
	}
	installed := []*extension.Descriptor{
		desc("a", "one", "/user/a.one", extension.OriginUser),
		desc("c", "three", "/user/c.three", extension.OriginUser),
	}

	merged := Merge(slog.Default(), builtin, installed, nil)

	wantOrder := []string{"a.one", "b.two", "c.three"}
	if len(merged) != len(wantOrder) {
		t.Fatalf("got %d entries, want %d", len(merged), len(wantOrder))
	}
	for i, want := range wantOrder {
		if got := merged[i].Identifier().Key(); got != want {
			t.Errorf("position %d = %s, want %s", i, got, want)
		}
	}
}

func TestMergeDistinctIdentitiesDoNotCollide(t *testing.T) {
	builtin := []*extension.Descriptor{
		desc("acme", "lint", "/sys/acme.lint", extension.OriginBuiltin),
	}
	installed := []*extension.Descriptor{
		desc("other", "lint", "/user/other.lint", extension.OriginUser),
	}

	merged := Merge(slog.Default(), builtin, installed, nil)
	if len(merged) != 2 {
		t.Fatalf("got %d entries, want 2: same name under different publishers", len(merged))
	}
}
