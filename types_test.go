package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRect_Contains(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 100, Height: 50}

	assert.True(t, r.Contains(Point{X: 10, Y: 10}))
	assert.True(t, r.Contains(Point{X: 109, Y: 59}))
	assert.False(t, r.Contains(Point{X: 110, Y: 30}), "right edge is exclusive")
	assert.False(t, r.Contains(Point{X: 30, Y: 60}), "bottom edge is exclusive")
	assert.False(t, r.Contains(Point{X: 9, Y: 30}))
}

func TestRect_Center(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 50}
	assert.Equal(t, Point{X: 50, Y: 25}, r.Center())

	r = Rect{X: 10, Y: 20, Width: 100, Height: 50}
	assert.Equal(t, Point{X: 60, Y: 45}, r.Center())
}

func TestRect_AreaAndIsEmpty(t *testing.T) {
	assert.Equal(t, 5000, Rect{Width: 100, Height: 50}.Area())
	assert.True(t, Rect{Width: 0, Height: 50}.IsEmpty())
	assert.True(t, Rect{Width: 100, Height: -1}.IsEmpty())
	assert.False(t, Rect{Width: 100, Height: 50}.IsEmpty())
}

func TestOk_WrapsPayload(t *testing.T) {
	result := Ok(WindowInfo{Title: "Notepad"})
	assert.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, WindowInfo{Title: "Notepad"}, result.Payload)
}

func TestErr_WrapsFault(t *testing.T) {
	fault := NewFault(ErrWindowNotFound, "window %d not found", 42)
	result := Err(fault)

	assert.False(t, result.Success)
	assert.Equal(t, ErrWindowNotFound, result.Kind)
	assert.Equal(t, "window 42 not found", result.Error)
}

func TestErr_NilFaultReportsSystemError(t *testing.T) {
	result := Err(nil)
	assert.False(t, result.Success)
	assert.Equal(t, ErrSystem, result.Kind)
}
