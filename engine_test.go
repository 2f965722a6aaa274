//go:build windows

package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windowspilot/engine/internal/safety"
)

func newTestEngine(maxPerMinute int) *Engine {
	return &Engine{
		audit:   safety.NewAuditLogger(nil, 100),
		limiter: safety.NewRateLimiter(maxPerMinute),
	}
}

func TestEngine_GuardAllowsAndLogsAction(t *testing.T) {
	e := newTestEngine(10)

	id, allowed := e.Guard("window_management.close", "hwnd:123")
	require.True(t, allowed)
	assert.NotEmpty(t, id)

	entries := e.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "window_management.close", entries[0].Action)
	assert.Equal(t, id, entries[0].Metadata["correlation_id"])
}

func TestEngine_GuardRateLimited(t *testing.T) {
	e := newTestEngine(1)

	_, allowed := e.Guard("mouse_control.click", "hwnd:1")
	require.True(t, allowed)

	id, allowed := e.Guard("mouse_control.click", "hwnd:1")
	assert.False(t, allowed)
	assert.NotEmpty(t, id, "a correlation id is still returned for the rejected attempt")

	entries := e.AuditEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, safety.AuditLevelWarning, entries[1].Level)
}

func TestEngine_RecordClosesOutSuccess(t *testing.T) {
	e := newTestEngine(10)
	id, _ := e.Guard("ui_automation.click", "element:abc")

	e.Record("ui_automation.click", id, "element:abc", "ok", nil)

	entries := e.AuditEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "ok", entries[1].Result)
	assert.Empty(t, entries[1].Error)
	assert.Equal(t, safety.AuditLevelAction, entries[1].Level)
}

func TestEngine_RecordClosesOutFailure(t *testing.T) {
	e := newTestEngine(10)
	id, _ := e.Guard("ui_automation.click", "element:abc")

	e.Record("ui_automation.click", id, "element:abc", "error", errors.New("element_not_found: gone"))

	entries := e.AuditEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, safety.AuditLevelError, entries[1].Level)
	assert.Contains(t, entries[1].Error, "element_not_found")
}

func TestEngine_RateLimitAvailable(t *testing.T) {
	e := newTestEngine(3)
	assert.Equal(t, 3, e.RateLimitAvailable())

	e.Guard("mouse_control.click", "hwnd:1")
	assert.Equal(t, 2, e.RateLimitAvailable())
}
