package safety

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditLogger_LogStampsTimestamp(t *testing.T) {
	logger := NewAuditLogger(nil, 10)
	logger.Log(AuditEntry{Action: "window_management.activate"})

	entries := logger.GetEntries()
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Timestamp.IsZero())
}

func TestAuditLogger_LogActionResultSetsErrorLevel(t *testing.T) {
	logger := NewAuditLogger(nil, 10)
	logger.LogActionResult("mouse_control.click", "click button", "hwnd:123", "error", errors.New("boom"))

	entries := logger.GetEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, AuditLevelError, entries[0].Level)
	assert.Equal(t, "boom", entries[0].Error)
}

func TestAuditLogger_LogActionResultSuccessKeepsActionLevel(t *testing.T) {
	logger := NewAuditLogger(nil, 10)
	logger.LogActionResult("mouse_control.click", "click button", "hwnd:123", "ok", nil)

	entries := logger.GetEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, AuditLevelAction, entries[0].Level)
	assert.Empty(t, entries[0].Error)
}

func TestAuditLogger_EvictsOldestWhenFull(t *testing.T) {
	logger := NewAuditLogger(nil, 4)
	for i := 0; i < 8; i++ {
		logger.LogAction("tool.action", "desc", "target")
	}

	assert.LessOrEqual(t, logger.Count(), 4)
}

func TestAuditLogger_WritesToConfiguredWriter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewAuditLogger(&buf, 10)
	logger.LogAction("window_management.close", "close window", "hwnd:42")

	var entry AuditEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "window_management.close", entry.Action)
}

func TestAuditLogger_ClearEmptiesEntries(t *testing.T) {
	logger := NewAuditLogger(nil, 10)
	logger.LogAction("a", "b", "c")
	require.Equal(t, 1, logger.Count())

	logger.Clear()
	assert.Equal(t, 0, logger.Count())
}
