package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault_MatchesDocumentedDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 64, cfg.Worker.InboxCapacity)
	assert.Equal(t, 33177600, cfg.Capture.MaxPixels)
	assert.Equal(t, 600, cfg.Safety.MaxActionsPerMinute)
}

func TestClampInt_NoUpperBound(t *testing.T) {
	assert.Equal(t, 5000, clampInt(5000, 1, 0))
	assert.Equal(t, 1, clampInt(-10, 1, 0))
}

func TestClampInt_WithUpperBound(t *testing.T) {
	assert.Equal(t, 200, clampInt(9999, 1, 200))
	assert.Equal(t, 1, clampInt(0, 1, 200))
	assert.Equal(t, 50, clampInt(50, 1, 200))
}

func TestConfig_ClampRejectsOutOfRangeValues(t *testing.T) {
	cfg := Default()
	cfg.Worker.InboxCapacity = 0
	cfg.Mouse.DragSteps = 9999
	cfg.Keyboard.ChunkSize = -5
	cfg.Capture.DefaultQuality = 500
	cfg.Capture.MaxPixels = -1

	cfg.clamp()

	assert.Equal(t, 1, cfg.Worker.InboxCapacity)
	assert.Equal(t, 200, cfg.Mouse.DragSteps)
	assert.Equal(t, 1, cfg.Keyboard.ChunkSize)
	assert.Equal(t, 100, cfg.Capture.DefaultQuality)
	assert.Equal(t, 33177600, cfg.Capture.MaxPixels)
}

func TestConfig_ClampLeavesInRangeValuesAlone(t *testing.T) {
	cfg := Default()
	cfg.clamp()

	assert.Equal(t, Default().Worker.InboxCapacity, cfg.Worker.InboxCapacity)
	assert.Equal(t, Default().Capture.DefaultQuality, cfg.Capture.DefaultQuality)
}

func TestPollInterval(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, PollInterval(250))
	assert.Equal(t, time.Duration(0), PollInterval(0))
}
