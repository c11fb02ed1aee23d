// Package telemetry forwards telemetry events to a configured sink and
// owns the process-wide enablement flag.
package telemetry

import (
	"log/slog"
	"sync/atomic"
)

// Sink receives telemetry events. Transport is external; implementations
// are injected.
type Sink interface {
	Log(eventName string, data map[string]any)
	Flush()
}

// Controller gates a sink behind the process-wide enablement flag. Both the
// flag write and reads are safe under concurrent dispatch; a flag write is
// immediately visible to subsequent reads.
type Controller struct {
	sink    Sink // nil when no sink is configured
	enabled atomic.Bool
	log     *slog.Logger
}

// NewController creates a controller. A nil sink makes Log and Flush
// no-ops. Telemetry starts enabled.
func NewController(sink Sink, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{sink: sink, log: log}
	c.enabled.Store(true)
	return c
}

// Enabled reports the current enablement state.
func (c *Controller) Enabled() bool {
	return c.enabled.Load()
}

// SetEnabled sets the process-wide enablement flag (last writer wins).
func (c *Controller) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
	c.log.Debug("telemetry enablement changed", "enabled", enabled)
}

// Log forwards an event to the sink when one is configured and telemetry is
// enabled.
func (c *Controller) Log(eventName string, data map[string]any) {
	if c.sink == nil || !c.enabled.Load() {
		return
	}
	c.sink.Log(eventName, data)
}

// Flush flushes the sink when one is configured.
func (c *Controller) Flush() {
	if c.sink == nil {
		return
	}
	c.sink.Flush()
}
