//go:build integration

package integration_test

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nimbusedit/extensiond/internal/diagnostics"
	"github.com/nimbusedit/extensiond/internal/environment"
	"github.com/nimbusedit/extensiond/internal/extension"
	"github.com/nimbusedit/extensiond/internal/installer"
	"github.com/nimbusedit/extensiond/internal/scanner"
	"github.com/nimbusedit/extensiond/internal/server"
	"github.com/nimbusedit/extensiond/internal/telemetry"
	"github.com/nimbusedit/extensiond/internal/whenclause"
)

// testEnv holds the isolated directory layout for one end-to-end run.
type testEnv struct {
	BuiltinRoot   string // factory extensions shipped with the host
	InstalledRoot string // per-user installed extensions
	SourceDir     string // staging area for extensions to install from
}

// setupTestEnv creates isolated temp directories for one test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		BuiltinRoot:   t.TempDir(),
		InstalledRoot: t.TempDir(),
		SourceDir:     t.TempDir(),
	}
}

// newDispatcher wires the full command surface over the test layout.
func (env *testEnv) newDispatcher(t *testing.T) *server.Dispatcher {
	t.Helper()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return server.New(server.Deps{
		Scanner: scanner.New(scanner.Deps{
			BuiltinRoot:   env.BuiltinRoot,
			InstalledRoot: env.InstalledRoot,
			Reader:        extension.NewFSReader(),
			Rewriter:      whenclause.NewRewriter("file", "nimbus-remote", log),
			Log:           log,
		}),
		Gatherer:        diagnostics.NewGatherer(nil, nil, log),
		Telemetry:       telemetry.NewController(nil, log),
		Paths:           environment.Paths{ExtensionsRoot: env.InstalledRoot, LogsHome: t.TempDir()},
		ConnectionToken: "integration-token",
		Log:             log,
	})
}

// newStore builds the filesystem store over the installed root.
func (env *testEnv) newStore() *installer.FSStore {
	return installer.NewFSStore(env.InstalledRoot, extension.NewFSReader(), nil, nil)
}

// writeExtension materializes an extension directory with the given manifest
// fields and returns its path.
func writeExtension(t *testing.T, root, publisher, name, version, extra string) string {
	t.Helper()

	dir := filepath.Join(root, publisher+"."+name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating dir %s: %v", dir, err)
	}
	manifest := fmt.Sprintf(`{
  "name": %q,
  "publisher": %q,
  "version": %q,
  "engines": {"nimbus": "^1.0.0"}%s
}`, name, publisher, version, extra)
	path := filepath.Join(dir, extension.ManifestFileName)
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return dir
}

// assertDirExists fails the test if the directory does not exist.
func assertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected directory to exist: %s (error: %v)", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory, but it is a file", path)
	}
}

// assertFileNotExists fails the test if the file exists.
func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected file NOT to exist: %s", path)
	}
}
