package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusedit/extensiond/internal/diagnostics"
	"github.com/nimbusedit/extensiond/internal/environment"
	"github.com/nimbusedit/extensiond/internal/extension"
	"github.com/nimbusedit/extensiond/internal/scanner"
	"github.com/nimbusedit/extensiond/internal/telemetry"
)

// prefixTransform marks outgoing locations with a remote authority.
type prefixTransform struct{}

func (prefixTransform) TransformOutgoing(value string) string {
	return "nimbus-remote://main" + value
}

// fakeSink records telemetry events.
type fakeSink struct {
	mu      sync.Mutex
	events  []string
	flushes int
}

func (s *fakeSink) Log(eventName string, data map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, eventName)
}

func (s *fakeSink) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
}

// fakeCollector records the folders it is asked to inspect.
type fakeCollector struct {
	mu    sync.Mutex
	paths []string
}

func (c *fakeCollector) Collect(ctx context.Context, path string, excludeNames []string) (*diagnostics.WorkspaceStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, path)
	return &diagnostics.WorkspaceStats{Path: path, FileCount: 1}, nil
}

func writeExtension(t *testing.T, root, publisher, name string) {
	t.Helper()
	dir := filepath.Join(root, publisher+"."+name)
	manifest := fmt.Sprintf(`{
  "name": %q,
  "publisher": %q,
  "version": "1.0.0",
  "engines": {"nimbus": "^1.0.0"}
}`, name, publisher)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, extension.ManifestFileName), []byte(manifest), 0o644))
}

type testEnv struct {
	dispatcher *Dispatcher
	sink       *fakeSink
	collector  *fakeCollector
	telemetry  *telemetry.Controller
}

func newTestDispatcher(t *testing.T) *testEnv {
	t.Helper()

	builtinRoot := t.TempDir()
	installedRoot := t.TempDir()
	writeExtension(t, builtinRoot, "acme", "core")
	writeExtension(t, installedRoot, "beta", "fmt")

	sink := &fakeSink{}
	collector := &fakeCollector{}
	controller := telemetry.NewController(sink, nil)

	d := New(Deps{
		Scanner: scanner.New(scanner.Deps{
			BuiltinRoot:   builtinRoot,
			InstalledRoot: installedRoot,
			Reader:        extension.NewFSReader(),
		}),
		Gatherer:  diagnostics.NewGatherer(nil, collector, nil),
		Telemetry: controller,
		Transform: prefixTransform{},
		Paths: environment.Paths{
			AppRoot:        "/opt/nimbus",
			LogsHome:       "/home/u/.nimbusd/logs",
			ExtensionsRoot: installedRoot,
			UserHome:       "/home/u",
		},
		ConnectionToken: "tok-1",
	})
	return &testEnv{dispatcher: d, sink: sink, collector: collector, telemetry: controller}
}

func TestDispatchUnknownCommand(t *testing.T) {
	env := newTestDispatcher(t)

	_, err := env.dispatcher.Dispatch(context.Background(), "nope", nil)
	var unknown *UnknownCommandError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "nope", unknown.Command)
}

func TestGetEnvironmentDataMintsIncreasingLogPaths(t *testing.T) {
	env := newTestDispatcher(t)
	ctx := context.Background()

	first, err := env.dispatcher.Dispatch(ctx, CmdGetEnvironmentData, nil)
	require.NoError(t, err)
	second, err := env.dispatcher.Dispatch(ctx, CmdGetEnvironmentData, nil)
	require.NoError(t, err)

	a := first.(environment.Data)
	b := second.(environment.Data)

	assert.NotEqual(t, a.ExtensionHostLogPath, b.ExtensionHostLogPath)
	assert.True(t, strings.HasSuffix(a.ExtensionHostLogPath, "exthost1"), "got %s", a.ExtensionHostLogPath)
	assert.True(t, strings.HasSuffix(b.ExtensionHostLogPath, "exthost2"), "got %s", b.ExtensionHostLogPath)

	assert.Equal(t, "tok-1", a.ConnectionToken)
	assert.True(t, strings.HasPrefix(a.AppRoot, "nimbus-remote://main"),
		"locations must pass through the URI transform, got %s", a.AppRoot)
	assert.True(t, strings.HasPrefix(a.UserHome, "nimbus-remote://main"))
}

func TestScanExtensionsCommand(t *testing.T) {
	env := newTestDispatcher(t)

	result, err := env.dispatcher.Dispatch(context.Background(), CmdScanExtensions,
		Args{"language": "en"})
	require.NoError(t, err)

	descriptors := result.([]*extension.Descriptor)
	require.Len(t, descriptors, 2)
	for _, d := range descriptors {
		assert.True(t, strings.HasPrefix(d.Location, "nimbus-remote://main"),
			"scan locations must pass through the URI transform, got %s", d.Location)
	}
}

func TestGetDiagnosticInfoFiltersNonLocalFolders(t *testing.T) {
	env := newTestDispatcher(t)

	// Folder filtering is about schemes, so use the identity transform here.
	d := New(Deps{
		Scanner:   env.dispatcher.deps.Scanner,
		Gatherer:  diagnostics.NewGatherer(nil, env.collector, nil),
		Telemetry: env.telemetry,
	})

	result, err := d.Dispatch(context.Background(), CmdGetDiagnosticInfo, Args{
		"folders": []any{"file:///work/a", "vault://secret", "/work/b"},
	})
	require.NoError(t, err)

	info := result.(*diagnostics.Info)
	assert.Len(t, info.Workspaces, 2, "non-local folders are dropped")
	assert.ElementsMatch(t, []string{"/work/a", "/work/b"}, env.collector.paths)
	assert.Equal(t, len(env.collector.paths), len(info.Workspaces))
}

func TestTelemetryCommands(t *testing.T) {
	env := newTestDispatcher(t)
	ctx := context.Background()

	_, err := env.dispatcher.Dispatch(ctx, CmdLogTelemetry,
		Args{"eventName": "activate", "data": map[string]any{"x": 1}})
	require.NoError(t, err)
	assert.Equal(t, []string{"activate"}, env.sink.events)

	_, err = env.dispatcher.Dispatch(ctx, CmdFlushTelemetry, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, env.sink.flushes)

	// disableTelemetry stops forwarding.
	_, err = env.dispatcher.Dispatch(ctx, CmdDisableTelemetry, nil)
	require.NoError(t, err)
	assert.False(t, env.telemetry.Enabled())

	_, err = env.dispatcher.Dispatch(ctx, CmdLogTelemetry, Args{"eventName": "late"})
	require.NoError(t, err)
	assert.Equal(t, []string{"activate"}, env.sink.events, "disabled telemetry must not forward")
}

func TestCommandsAreRegistered(t *testing.T) {
	env := newTestDispatcher(t)
	assert.Equal(t, []string{
		CmdDisableTelemetry,
		CmdFlushTelemetry,
		CmdGetDiagnosticInfo,
		CmdGetEnvironmentData,
		CmdLogTelemetry,
		CmdScanExtensions,
	}, env.dispatcher.Commands())
}
