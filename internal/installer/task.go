package installer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nimbusedit/extensiond/internal/extension"
)

// OperationKind distinguishes a fresh install from an update of an
// already-installed identity.
type OperationKind int

const (
	OperationUnspecified OperationKind = iota
	OperationInstall
	OperationUpdate
)

func (k OperationKind) String() string {
	switch k {
	case OperationInstall:
		return "install"
	case OperationUpdate:
		return "update"
	default:
		return "unspecified"
	}
}

// State is the lifecycle state of a task. A task runs at most once.
type State int

const (
	StateCreated State = iota
	StateRunning
	StateCompleted
	StateFailed
	StateCancelled
)

// ErrTaskAlreadyRan is returned when Run is called more than once.
var ErrTaskAlreadyRan = errors.New("task has already run")

// InstallError is the failure result of an install task.
type InstallError struct {
	ID  extension.Identifier
	Err error
}

func (e *InstallError) Error() string {
	if e.ID == (extension.Identifier{}) {
		return fmt.Sprintf("install failed: %v", e.Err)
	}
	return fmt.Sprintf("installing %s: %v", e.ID, e.Err)
}

func (e *InstallError) Unwrap() error { return e.Err }

// UninstallError is the failure result of an uninstall task.
type UninstallError struct {
	ID  extension.Identifier
	Err error
}

func (e *UninstallError) Error() string {
	return fmt.Sprintf("uninstalling %s: %v", e.ID, e.Err)
}

func (e *UninstallError) Unwrap() error { return e.Err }

// InstallOptions are the caller-requested install parameters.
type InstallOptions struct {
	// Operation overrides the inferred operation kind when set. The engine
	// does not validate the override against the installed set; requesting
	// an install for an already-installed identity is the caller's
	// responsibility.
	Operation OperationKind

	IsMachineScoped     bool
	IsApplicationScoped bool
	IsBuiltin           bool

	// InstallPreReleaseVersion is the explicit pre-release opt-in. When
	// nil the existing metadata value is carried forward, which keeps the
	// opt-in sticky across updates.
	InstallPreReleaseVersion *bool
}

// Result is the completion value of an install task.
type Result struct {
	Local     *extension.LocalExtension
	Operation OperationKind
}

// TaskDeps are the collaborators a task is constructed from.
type TaskDeps struct {
	Store          InstalledStore
	Reader         extension.ManifestReader
	TargetPlatform string
	Now            func() time.Time
	Log            *slog.Logger
}

func (d *TaskDeps) fill() {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
}

// InstallTask installs a single extension as an atomic, cancellable,
// one-shot operation.
type InstallTask struct {
	deps   TaskDeps
	source InstallSource
	opts   InstallOptions

	mu        sync.Mutex
	state     State
	operation OperationKind
	result    *Result
}

// NewInstallTask creates an install task for the given source.
func NewInstallTask(deps TaskDeps, source InstallSource, opts InstallOptions) *InstallTask {
	deps.fill()
	return &InstallTask{deps: deps, source: source, opts: opts}
}

// State returns the task's lifecycle state.
func (t *InstallTask) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Operation returns the computed operation kind, valid once Run has started
// its store read.
func (t *InstallTask) Operation() OperationKind {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.operation
}

// Run executes the install. Cancellation is honored at store boundaries;
// once the store write has begun it completes, so the store is always left
// in either the pre-task or the fully-post-task state.
func (t *InstallTask) Run(ctx context.Context) (*Result, error) {
	if err := t.begin(); err != nil {
		return nil, err
	}

	result, err := t.run(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case err == nil:
		t.state = StateCompleted
		t.result = result
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		t.state = StateCancelled
	default:
		t.state = StateFailed
	}
	return result, err
}

func (t *InstallTask) begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateCreated {
		return ErrTaskAlreadyRan
	}
	t.state = StateRunning
	return nil
}

func (t *InstallTask) run(ctx context.Context) (*Result, error) {
	id, err := t.targetIdentifier(ctx)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The existing-extension lookup and the store write below form one
	// logical step; the orchestrator guarantees no other task runs for
	// this identity in between.
	existing, existingMeta, err := t.findExisting(ctx, id)
	if err != nil {
		return nil, &InstallError{ID: id, Err: err}
	}

	operation := OperationInstall
	if existing != nil {
		operation = OperationUpdate
	}
	if t.opts.Operation != OperationUnspecified {
		operation = t.opts.Operation
	}
	t.mu.Lock()
	t.operation = operation
	t.mu.Unlock()

	md := t.computeMetadata(existing, existingMeta)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	desc, err := t.deps.Store.Add(ctx, t.source, md)
	if err != nil {
		return nil, &InstallError{ID: id, Err: err}
	}

	t.deps.Log.Info("extension installed", "extension", id.String(),
		"operation", operation.String(), "location", desc.Location)

	return &Result{
		Local: &extension.LocalExtension{
			Descriptor:     *desc,
			Metadata:       md,
			TargetPlatform: t.deps.TargetPlatform,
		},
		Operation: operation,
	}, nil
}

// targetIdentifier derives the identity of the install target. A direct
// location whose manifest cannot be located fails the task.
func (t *InstallTask) targetIdentifier(ctx context.Context) (extension.Identifier, error) {
	if t.source.FromCatalog() {
		return t.source.Entry.Identifier, nil
	}
	m, err := t.deps.Reader.ReadManifest(ctx, t.source.Location)
	if err != nil {
		return extension.Identifier{}, &InstallError{
			Err: fmt.Errorf("locating manifest at %s: %w", t.source.Location, err),
		}
	}
	return m.Identifier(), nil
}

// findExisting locates an installed extension with the target identity and
// its persisted metadata.
func (t *InstallTask) findExisting(ctx context.Context, id extension.Identifier) (*extension.Descriptor, *extension.Metadata, error) {
	installed, err := t.deps.Store.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, d := range installed {
		if d.Identifier().Equal(id) {
			md, err := t.deps.Store.ReadMetadata(ctx, d.Location)
			if err != nil {
				return nil, nil, err
			}
			return d, md, nil
		}
	}
	return nil, nil, nil
}

// computeMetadata builds the resulting metadata: existing metadata carried
// forward, scope flags overlaid from options, and catalog-only facts set
// when the source is a remote catalog entry.
func (t *InstallTask) computeMetadata(existing *extension.Descriptor, existingMeta *extension.Metadata) *extension.Metadata {
	md := existingMeta.Clone()
	if md == nil {
		md = &extension.Metadata{}
	}
	md.IsMachineScoped = md.IsMachineScoped || t.opts.IsMachineScoped
	md.IsApplicationScoped = md.IsApplicationScoped || t.opts.IsApplicationScoped

	if !t.source.FromCatalog() {
		return md
	}

	entry := t.source.Entry
	md.ID = entry.Identifier.UUID
	md.PublisherID = entry.PublisherID
	md.PublisherDisplayName = entry.PublisherDisplayName
	md.InstalledTimestamp = t.deps.Now().UnixMilli()
	md.IsPreReleaseVersion = entry.IsPreReleaseVersion

	// Pre-release opt-in: explicit option wins, then the sticky existing
	// value, then the fetched version's own flag.
	switch {
	case t.opts.InstallPreReleaseVersion != nil:
		md.PreRelease = *t.opts.InstallPreReleaseVersion
	case existingMeta != nil:
		// carried forward by the clone
	default:
		md.PreRelease = entry.IsPreReleaseVersion
	}

	md.IsBuiltin = t.opts.IsBuiltin || md.IsBuiltin
	// IsSystem marks an update over a builtin-origin installation. FSStore
	// reports every install as user-origin; only stores that overlay the
	// factory set surface builtin origin here.
	md.IsSystem = existing != nil && existing.Origin == extension.OriginBuiltin
	md.Updated = existing != nil

	return md
}

// UninstallTask removes a single extension by identity. It never mutates
// metadata.
type UninstallTask struct {
	store InstalledStore
	id    extension.Identifier
	log   *slog.Logger

	mu    sync.Mutex
	state State
}

// NewUninstallTask creates an uninstall task for the given identity.
func NewUninstallTask(store InstalledStore, id extension.Identifier, log *slog.Logger) *UninstallTask {
	if log == nil {
		log = slog.Default()
	}
	return &UninstallTask{store: store, id: id, log: log}
}

// State returns the task's lifecycle state.
func (t *UninstallTask) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Run executes the removal.
func (t *UninstallTask) Run(ctx context.Context) error {
	t.mu.Lock()
	if t.state != StateCreated {
		t.mu.Unlock()
		return ErrTaskAlreadyRan
	}
	t.state = StateRunning
	t.mu.Unlock()

	err := t.run(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case err == nil:
		t.state = StateCompleted
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		t.state = StateCancelled
	default:
		t.state = StateFailed
	}
	return err
}

func (t *UninstallTask) run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.store.Remove(ctx, t.id); err != nil {
		return &UninstallError{ID: t.id, Err: err}
	}
	t.log.Info("extension uninstalled", "extension", t.id.String())
	return nil
}
