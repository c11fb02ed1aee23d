package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nimbusedit/extensiond/internal/extension"
)

// writeTestExtension creates a valid extension directory and returns it.
func writeTestExtension(t *testing.T, publisher, name, version string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), publisher+"."+name)
	manifest := fmt.Sprintf(`{
  "name": %q,
  "publisher": %q,
  "version": %q,
  "engines": {"nimbus": "^1.0.0"}
}`, name, publisher, version)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, extension.ManifestFileName), []byte(manifest), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return dir
}

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	return NewFSStore(filepath.Join(t.TempDir(), "installed"), extension.NewFSReader(), nil, nil)
}

func TestFSStoreAddFromLocation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	src := writeTestExtension(t, "acme", "lint", "1.2.0")

	md := &extension.Metadata{ID: "U1", PreRelease: true}
	desc, err := store.Add(ctx, InstallSource{Location: src}, md)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	wantDir := filepath.Join(store.Root, "acme.lint-1.2.0")
	if desc.Location != wantDir {
		t.Errorf("location = %s, want %s", desc.Location, wantDir)
	}
	if desc.Origin != extension.OriginUser {
		t.Errorf("origin = %s, want user", desc.Origin)
	}

	got, err := store.ReadMetadata(ctx, desc.Location)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if got == nil || got.ID != "U1" || !got.PreRelease {
		t.Errorf("persisted metadata = %+v, want ID=U1 preRelease=true", got)
	}

	// No staging leftovers.
	entries, err := os.ReadDir(store.Root)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == tmpSuffix {
			t.Errorf("staging directory %s should be gone after a successful add", entry.Name())
		}
	}
}

func TestFSStoreAddReplacesExistingVersion(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	src := writeTestExtension(t, "acme", "lint", "1.0.0")
	if _, err := store.Add(ctx, InstallSource{Location: src}, &extension.Metadata{}); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	src2 := writeTestExtension(t, "acme", "lint", "1.0.0")
	if _, err := store.Add(ctx, InstallSource{Location: src2}, &extension.Metadata{Updated: true}); err != nil {
		t.Fatalf("second Add: %v", err)
	}

	installed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(installed) != 1 {
		t.Fatalf("got %d installed, want 1", len(installed))
	}
}

func TestFSStoreAddReplacesAcrossVersions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	src := writeTestExtension(t, "acme", "lint", "1.0.0")
	if _, err := store.Add(ctx, InstallSource{Location: src}, &extension.Metadata{}); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	src2 := writeTestExtension(t, "acme", "lint", "2.0.0")
	if _, err := store.Add(ctx, InstallSource{Location: src2}, &extension.Metadata{Updated: true}); err != nil {
		t.Fatalf("second Add: %v", err)
	}

	installed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(installed) != 1 {
		t.Fatalf("got %d installed after version update, want 1", len(installed))
	}
	if got := installed[0].Manifest.Version; got != "2.0.0" {
		t.Errorf("installed version = %s, want 2.0.0", got)
	}
	if _, err := os.Stat(filepath.Join(store.Root, "acme.lint-1.0.0")); !os.IsNotExist(err) {
		t.Error("old version directory should be removed on update")
	}
}

func TestFSStoreAddUpdateIgnoresDirectoryOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// "10.0.0" sorts before "9.0.0" lexically; the identity sweep must not
	// depend on directory-name order.
	src := writeTestExtension(t, "acme", "lint", "9.0.0")
	if _, err := store.Add(ctx, InstallSource{Location: src}, &extension.Metadata{}); err != nil {
		t.Fatalf("first Add: %v", err)
	}
	src2 := writeTestExtension(t, "acme", "lint", "10.0.0")
	if _, err := store.Add(ctx, InstallSource{Location: src2}, &extension.Metadata{Updated: true}); err != nil {
		t.Fatalf("second Add: %v", err)
	}

	installed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(installed) != 1 {
		t.Fatalf("got %d installed after version update, want 1", len(installed))
	}
	if got := installed[0].Manifest.Version; got != "10.0.0" {
		t.Errorf("installed version = %s, want 10.0.0", got)
	}
}

func TestFSStoreListSkipsStagingDirectories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	src := writeTestExtension(t, "acme", "lint", "1.0.0")
	if _, err := store.Add(ctx, InstallSource{Location: src}, &extension.Metadata{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// A concurrent Add's in-flight staging dir holds a manifest too; it must
	// never surface as an installed extension.
	staging := filepath.Join(store.Root, "staging-xyz"+tmpSuffix)
	if err := copyDir(src, staging); err != nil {
		t.Fatalf("copyDir: %v", err)
	}

	installed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(installed) != 1 {
		t.Fatalf("got %d installed, want 1 (staging dirs must be skipped)", len(installed))
	}
}

func TestFSStoreAddExcludesJunkEntries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	src := writeTestExtension(t, "acme", "lint", "1.0.0")
	if err := os.MkdirAll(filepath.Join(src, ".git"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, ".DS_Store"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	desc, err := store.Add(ctx, InstallSource{Location: src}, &extension.Metadata{})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	for _, junk := range []string{".git", ".DS_Store"} {
		if _, err := os.Stat(filepath.Join(desc.Location, junk)); !os.IsNotExist(err) {
			t.Errorf("%s should not be copied into the installation", junk)
		}
	}
}

func TestFSStoreAddCatalogEntryWithoutMaterializer(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Add(context.Background(), InstallSource{Entry: betaFmtEntry()}, &extension.Metadata{})
	if err == nil {
		t.Fatal("Add should fail without a materializer")
	}
}

func TestFSStoreListEmptyRoot(t *testing.T) {
	store := newTestStore(t)
	installed, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List on a missing root should not fail: %v", err)
	}
	if len(installed) != 0 {
		t.Errorf("got %d installed, want 0", len(installed))
	}
}

func TestFSStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	src := writeTestExtension(t, "acme", "lint", "1.0.0")
	if _, err := store.Add(ctx, InstallSource{Location: src}, &extension.Metadata{}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	id := extension.Identifier{Publisher: "Acme", Name: "Lint"} // case-insensitive match
	if err := store.Remove(ctx, id); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	installed, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(installed) != 0 {
		t.Errorf("got %d installed after remove, want 0", len(installed))
	}

	if err := store.Remove(ctx, id); err == nil {
		t.Error("removing a missing extension should fail")
	}
}

func TestFSStoreReadMetadataAbsent(t *testing.T) {
	store := newTestStore(t)
	md, err := store.ReadMetadata(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if md != nil {
		t.Errorf("metadata = %+v, want nil for absent sidecar", md)
	}
}
