//go:build windows

// Package engine implements the Windows desktop automation server: a
// process-wide UI automation engine exposed over a line-delimited
// protocol (cmd/automationd) backed by native window, input, and UIA
// bindings.
package engine

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/windowspilot/engine/internal/config"
	"github.com/windowspilot/engine/internal/registry"
	"github.com/windowspilot/engine/internal/safety"
	"github.com/windowspilot/engine/internal/worker"
	"github.com/windowspilot/engine/pkg/logging"
)

// Engine is the top-level façade wiring every component service
// together, plus the rate limiter and audit log every mutating
// operation runs through.
type Engine struct {
	cfg config.Config
	log *logging.Logger

	Windows    *WindowService
	Input      *InputService
	Capture    *CaptureService
	Automation *AutomationService

	worker   *worker.Worker
	registry *registry.Registry
	audit    *safety.AuditLogger
	limiter  *safety.RateLimiter
}

// New loads configuration, starts the automation worker's COM
// apartment, and wires every service. Callers must call Close when
// done to tear down the worker thread cleanly.
func New() (*Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(logging.ParseLevel(cfg.LogLevel))

	w, err := worker.New(cfg.Worker.InboxCapacity, log.WithPrefix("worker"))
	if err != nil {
		return nil, fmt.Errorf("starting automation worker: %w", err)
	}

	audit, err := newAuditLogger(cfg.Safety)
	if err != nil {
		log.Warn("audit log unavailable, continuing with in-memory only", "error", err)
		audit = safety.NewAuditLogger(nil, cfg.Safety.AuditLogMaxEntries)
	}

	reg := registry.New()
	input := NewInputService(cfg.Mouse, cfg.Keyboard, log)
	windows := NewWindowService(cfg.Window, log)
	capture := NewCaptureService(cfg.Capture, log)
	automation := NewAutomationService(cfg.Worker, w, reg, input, log)

	return &Engine{
		cfg:        cfg,
		log:        log,
		Windows:    windows,
		Input:      input,
		Capture:    capture,
		Automation: automation,
		worker:     w,
		registry:   reg,
		audit:      audit,
		limiter:    safety.NewRateLimiter(cfg.Safety.MaxActionsPerMinute),
	}, nil
}

func newAuditLogger(cfg config.SafetyConfig) (*safety.AuditLogger, error) {
	if cfg.AuditLogPath == "" {
		return safety.NewAuditLogger(nil, cfg.AuditLogMaxEntries), nil
	}
	return safety.NewFileAuditLogger(cfg.AuditLogPath)
}

// Close tears down the automation worker's COM apartment and flushes
// the logger.
func (e *Engine) Close() {
	e.worker.Close()
	e.log.Sync()
}

// Guard is called by the protocol dispatcher (Engine.Dispatch) before
// every mutating action: it enforces the rate limit and opens an audit
// entry the dispatcher closes with Record once the action completes.
// The returned correlation id ties the two entries together in the
// audit trail.
func (e *Engine) Guard(action, target string) (correlationID string, allowed bool) {
	correlationID = uuid.NewString()
	if !e.limiter.Allow() {
		e.audit.LogWarning(fmt.Sprintf("rate limited: %s", action), map[string]interface{}{
			"correlation_id": correlationID,
			"target":         target,
		})
		return correlationID, false
	}
	e.audit.Log(safety.AuditEntry{
		Level:    safety.AuditLevelAction,
		Action:   action,
		Target:   target,
		Metadata: map[string]interface{}{"correlation_id": correlationID},
	})
	return correlationID, true
}

// Record closes out the audit entry Guard opened, attaching the
// action's outcome.
func (e *Engine) Record(action, correlationID, target, result string, err error) {
	entry := safety.AuditEntry{
		Level:    safety.AuditLevelAction,
		Action:   action,
		Target:   target,
		Result:   result,
		Metadata: map[string]interface{}{"correlation_id": correlationID},
	}
	if err != nil {
		entry.Error = err.Error()
		entry.Level = safety.AuditLevelError
	}
	e.audit.Log(entry)
}

// AuditEntries returns a snapshot of the in-memory audit trail, used
// by the diagnostics surface to answer "what did the agent just do".
func (e *Engine) AuditEntries() []safety.AuditEntry {
	return e.audit.GetEntries()
}

// RateLimitAvailable reports how many actions remain in the current
// one-minute window.
func (e *Engine) RateLimitAvailable() int {
	return e.limiter.Available()
}

// Hostname returns the machine's host name, or "unknown" when it
// cannot be read.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
