//go:build windows

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoMonitorScreen() VirtualScreen {
	return VirtualScreen{
		Bounds: Rect{X: -1920, Y: 0, Width: 3840, Height: 1080},
		Monitors: []MonitorInfo{
			{
				Index:        0,
				Primary:      true,
				PhysicalRect: Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
				LogicalRect:  Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
				ScaleFactor:  1.0,
			},
			{
				Index:        1,
				Primary:      false,
				PhysicalRect: Rect{X: -2880, Y: 0, Width: 2880, Height: 1620},
				LogicalRect:  Rect{X: -1920, Y: 0, Width: 1920, Height: 1080},
				ScaleFactor:  1.5,
			},
		},
	}
}

func TestMonitorForPoint(t *testing.T) {
	vs := twoMonitorScreen()

	assert.Equal(t, 0, MonitorForPoint(vs, Point{X: 960, Y: 540}))
	assert.Equal(t, 1, MonitorForPoint(vs, Point{X: -960, Y: 540}))
	assert.Equal(t, -1, MonitorForPoint(vs, Point{X: 5000, Y: 5000}))
}

func TestResolveMonitorTarget_NumericIndex(t *testing.T) {
	vs := twoMonitorScreen()

	idx, fault := ResolveMonitorTarget(vs, "", 1)
	require.Nil(t, fault)
	assert.Equal(t, 1, idx)

	_, fault = ResolveMonitorTarget(vs, "", 5)
	require.NotNil(t, fault)
	assert.Equal(t, ErrInvalidCoordinates, fault.Kind)
}

func TestResolveMonitorTarget_PrimaryScreen(t *testing.T) {
	vs := twoMonitorScreen()

	idx, fault := ResolveMonitorTarget(vs, "primary_screen", 0)
	require.Nil(t, fault)
	assert.Equal(t, 0, idx)
}

func TestResolveMonitorTarget_SecondaryScreen(t *testing.T) {
	vs := twoMonitorScreen()

	idx, fault := ResolveMonitorTarget(vs, "secondary_screen", 0)
	require.Nil(t, fault)
	assert.Equal(t, 1, idx)
}

func TestResolveMonitorTarget_SecondaryScreenRequiresExactlyTwo(t *testing.T) {
	vs := twoMonitorScreen()
	vs.Monitors = append(vs.Monitors, MonitorInfo{Index: 2})

	_, fault := ResolveMonitorTarget(vs, "secondary_screen", 0)
	require.NotNil(t, fault)
	assert.Equal(t, ErrInvalidCoordinates, fault.Kind)
}

func TestResolveMonitorTarget_UnknownTarget(t *testing.T) {
	vs := twoMonitorScreen()

	_, fault := ResolveMonitorTarget(vs, "tertiary_screen", 0)
	require.NotNil(t, fault)
	assert.Equal(t, ErrInvalidAction, fault.Kind)
}

func TestLogicalToPhysical_ScaledMonitor(t *testing.T) {
	vs := twoMonitorScreen()
	m := vs.Monitors[1]

	phys := LogicalToPhysical(m, Point{X: -1920, Y: 0})
	assert.Equal(t, Point{X: -2880, Y: 0}, phys)

	center := LogicalToPhysical(m, m.LogicalRect.Center())
	assert.Equal(t, Point{X: -2880 + 1440, Y: 810}, center)
}

func TestPhysicalToLogical_RoundTrips(t *testing.T) {
	vs := twoMonitorScreen()
	m := vs.Monitors[1]

	original := Point{X: -1500, Y: 400}
	phys := LogicalToPhysical(m, original)
	back := PhysicalToLogical(m, phys)

	// Integer truncation means the round trip only holds within one
	// pixel at non-integer scale factors.
	assert.InDelta(t, original.X, back.X, 1)
	assert.InDelta(t, original.Y, back.Y, 1)
}

func TestLogicalToPhysical_UnscaledMonitorIsIdentityOffset(t *testing.T) {
	vs := twoMonitorScreen()
	m := vs.Monitors[0]

	phys := LogicalToPhysical(m, Point{X: 100, Y: 200})
	assert.Equal(t, Point{X: 100, Y: 200}, phys)
}
