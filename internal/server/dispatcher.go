// Package server exposes the extension lifecycle and host environment over
// the remote command channel: named commands in, serializable results out.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/nimbusedit/extensiond/internal/diagnostics"
	"github.com/nimbusedit/extensiond/internal/environment"
	"github.com/nimbusedit/extensiond/internal/extension"
	"github.com/nimbusedit/extensiond/internal/scanner"
	"github.com/nimbusedit/extensiond/internal/telemetry"
)

// Recognized command names.
const (
	CmdDisableTelemetry   = "disableTelemetry"
	CmdGetEnvironmentData = "getEnvironmentData"
	CmdScanExtensions     = "scanExtensions"
	CmdGetDiagnosticInfo  = "getDiagnosticInfo"
	CmdLogTelemetry       = "logTelemetry"
	CmdFlushTelemetry     = "flushTelemetry"
)

// UnknownCommandError reports an unrecognized command name. It is fatal to
// that single request only.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Command)
}

// Args is the argument bag of a remote command.
type Args map[string]any

// String returns a string argument, empty when absent or mistyped.
func (a Args) String(key string) string {
	v, _ := a[key].(string)
	return v
}

// Bool returns a boolean argument, false when absent or mistyped.
func (a Args) Bool(key string) bool {
	v, _ := a[key].(bool)
	return v
}

// StringSlice returns a string-list argument. JSON decoding yields []any,
// so both forms are accepted.
func (a Args) StringSlice(key string) []string {
	switch v := a[key].(type) {
	case []string:
		return v
	case []any:
		result := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				result = append(result, s)
			}
		}
		return result
	default:
		return nil
	}
}

// Map returns a nested argument bag, nil when absent or mistyped.
func (a Args) Map(key string) map[string]any {
	v, _ := a[key].(map[string]any)
	return v
}

// Handler executes one named command.
type Handler func(ctx context.Context, args Args) (any, error)

// Deps are the engines and collaborators the dispatcher routes to.
type Deps struct {
	Scanner   *scanner.Scanner
	Gatherer  *diagnostics.Gatherer
	Telemetry *telemetry.Controller
	Transform URITransform
	Paths     environment.Paths

	// ConnectionToken is the session's token; a fresh one is minted when
	// empty.
	ConnectionToken string

	Log *slog.Logger
}

// Dispatcher routes named remote commands to the engines. It owns the
// process-wide extension-host log counter; the counter increment is atomic
// so concurrent dispatches mint distinct, strictly increasing log paths.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	deps   Deps
	token  string
	logSeq atomic.Int64
	log    *slog.Logger
}

// New creates a dispatcher with the built-in commands registered.
func New(deps Deps) *Dispatcher {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	if deps.Transform == nil {
		deps.Transform = IdentityTransform{}
	}
	token := deps.ConnectionToken
	if token == "" {
		token = uuid.NewString()
	}

	d := &Dispatcher{
		handlers: make(map[string]Handler),
		deps:     deps,
		token:    token,
		log:      deps.Log,
	}
	d.Register(CmdDisableTelemetry, d.disableTelemetry)
	d.Register(CmdGetEnvironmentData, d.getEnvironmentData)
	d.Register(CmdScanExtensions, d.scanExtensions)
	d.Register(CmdGetDiagnosticInfo, d.getDiagnosticInfo)
	d.Register(CmdLogTelemetry, d.logTelemetry)
	d.Register(CmdFlushTelemetry, d.flushTelemetry)
	return d
}

// Register adds a handler for a command name, replacing any existing one.
func (d *Dispatcher) Register(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// Commands returns the registered command names, sorted.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch routes one command. An unrecognized name fails that request with
// an UnknownCommandError and affects no other in-flight request.
func (d *Dispatcher) Dispatch(ctx context.Context, command string, args Args) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[command]
	d.mu.RUnlock()
	if !ok {
		return nil, &UnknownCommandError{Command: command}
	}

	d.log.Debug("dispatching command", "command", command)
	return h(ctx, args)
}

func (d *Dispatcher) disableTelemetry(_ context.Context, _ Args) (any, error) {
	d.deps.Telemetry.SetEnabled(false)
	return nil, nil
}

func (d *Dispatcher) getEnvironmentData(_ context.Context, _ Args) (any, error) {
	data := environment.Snapshot(d.deps.Paths, d.logSeq.Add(1), d.token)

	t := d.deps.Transform
	data.AppRoot = t.TransformOutgoing(data.AppRoot)
	data.LogsHome = t.TransformOutgoing(data.LogsHome)
	data.ExtensionsRoot = t.TransformOutgoing(data.ExtensionsRoot)
	data.ExtensionHostLogPath = t.TransformOutgoing(data.ExtensionHostLogPath)
	data.GlobalStorageHome = t.TransformOutgoing(data.GlobalStorageHome)
	data.WorkspaceStorageHome = t.TransformOutgoing(data.WorkspaceStorageHome)
	data.UserHome = t.TransformOutgoing(data.UserHome)
	return data, nil
}

func (d *Dispatcher) scanExtensions(ctx context.Context, args Args) (any, error) {
	descriptors, err := d.deps.Scanner.Scan(ctx, scanner.Options{
		Language:         args.String("language"),
		DevelopmentPaths: args.StringSlice("developmentPaths"),
	})
	if err != nil {
		return nil, err
	}

	for _, desc := range descriptors {
		desc.Location = d.deps.Transform.TransformOutgoing(desc.Location)
	}
	if descriptors == nil {
		descriptors = []*extension.Descriptor{}
	}
	return descriptors, nil
}

func (d *Dispatcher) getDiagnosticInfo(ctx context.Context, args Args) (any, error) {
	opts := diagnostics.Options{
		IncludeProcesses: args.Bool("includeProcesses"),
		ExcludeNames:     args.StringSlice("excludeNames"),
	}
	for _, folder := range args.StringSlice("folders") {
		path, local := LocalPath(d.deps.Transform.TransformOutgoing(folder))
		if !local {
			continue
		}
		opts.Folders = append(opts.Folders, path)
	}
	return d.deps.Gatherer.Gather(ctx, opts)
}

func (d *Dispatcher) logTelemetry(_ context.Context, args Args) (any, error) {
	d.deps.Telemetry.Log(args.String("eventName"), args.Map("data"))
	return nil, nil
}

func (d *Dispatcher) flushTelemetry(_ context.Context, _ Args) (any, error) {
	d.deps.Telemetry.Flush()
	return nil, nil
}
