//go:build windows

package engine

import (
	"github.com/windowspilot/engine/internal/winapi"
)

// baselineDPI is the unscaled reference DPI Windows reports at 100%
// display scaling.
const baselineDPI = 96.0

// EnumerateMonitors builds the virtual-screen model (C8): one
// MonitorInfo per attached display, indices stable within this one
// enumeration call (Windows gives no identity guarantee across calls
// other than device name, which this engine does not persist).
func EnumerateMonitors() VirtualScreen {
	handles := winapi.EnumMonitors()
	monitors := make([]MonitorInfo, 0, len(handles))

	minX, minY, maxX, maxY := 0, 0, 0, 0
	for i, h := range handles {
		info, ok := winapi.GetMonitorInfo(h)
		if !ok {
			continue
		}
		px, py, pw, ph := info.Bounds()
		wx, wy, ww, wh := info.WorkAreaBounds()
		dpiX, _, _ := winapi.DPIForMonitor(h)
		scale := float64(dpiX) / baselineDPI
		if scale <= 0 {
			scale = 1.0
		}

		logical := Rect{
			X:      int(float64(px) / scale),
			Y:      int(float64(py) / scale),
			Width:  int(float64(pw) / scale),
			Height: int(float64(ph) / scale),
		}
		workLogical := Rect{
			X:      int(float64(wx) / scale),
			Y:      int(float64(wy) / scale),
			Width:  int(float64(ww) / scale),
			Height: int(float64(wh) / scale),
		}

		m := MonitorInfo{
			Index:        i,
			DeviceName:   info.DeviceName,
			Primary:      info.Primary,
			PhysicalRect: Rect{X: px, Y: py, Width: pw, Height: ph},
			LogicalRect:  logical,
			ScaleFactor:  scale,
			WorkArea:     workLogical,
		}
		monitors = append(monitors, m)

		if i == 0 || logical.X < minX {
			minX = logical.X
		}
		if i == 0 || logical.Y < minY {
			minY = logical.Y
		}
		right := logical.X + logical.Width
		bottom := logical.Y + logical.Height
		if i == 0 || right > maxX {
			maxX = right
		}
		if i == 0 || bottom > maxY {
			maxY = bottom
		}
	}

	return VirtualScreen{
		Bounds:   Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY},
		Monitors: monitors,
	}
}

// MonitorForWindow returns the index of the monitor hosting the
// largest portion of handle's bounds, or -1 if no monitor matched
// (should only happen with a closed or invalid window).
func MonitorForWindow(vs VirtualScreen, handle WindowHandle) int {
	h := winapi.MonitorFromWindow(winapi.WindowFromHandle(uintptr(handle)))
	return indexForMonitorHandle(vs, h)
}

// MonitorForPoint returns the index of the monitor containing the
// logical point p, or -1 if p lies outside every monitor's logical
// rectangle; p is not snapped to the nearest monitor.
func MonitorForPoint(vs VirtualScreen, p Point) int {
	for i, m := range vs.Monitors {
		if m.LogicalRect.Contains(p) {
			return i
		}
	}
	return -1
}

func indexForMonitorHandle(vs VirtualScreen, h winapi.MonitorHandle) int {
	info, ok := winapi.GetMonitorInfo(h)
	if !ok {
		return -1
	}
	px, py, _, _ := info.Bounds()
	for i, m := range vs.Monitors {
		if m.PhysicalRect.X == px && m.PhysicalRect.Y == py {
			return i
		}
	}
	return -1
}

// ResolveMonitorTarget translates the move_to_monitor named targets
// ("primary_screen", "secondary_screen") and numeric indices into a
// monitor index. secondary_screen is only well-defined with exactly
// two monitors attached.
func ResolveMonitorTarget(vs VirtualScreen, target string, index int) (int, *Fault) {
	switch target {
	case "":
		if index < 0 || index >= len(vs.Monitors) {
			return 0, NewFault(ErrInvalidCoordinates, "monitor index %d out of range (%d monitors)", index, len(vs.Monitors))
		}
		return index, nil
	case "primary_screen":
		for i, m := range vs.Monitors {
			if m.Primary {
				return i, nil
			}
		}
		return 0, NewFault(ErrSystem, "no primary monitor reported")
	case "secondary_screen":
		if len(vs.Monitors) != 2 {
			return 0, NewFault(ErrInvalidCoordinates, "secondary_screen requires exactly two monitors, found %d", len(vs.Monitors))
		}
		for i, m := range vs.Monitors {
			if !m.Primary {
				return i, nil
			}
		}
		return 0, NewFault(ErrSystem, "no secondary monitor found among two monitors")
	default:
		return 0, NewFault(ErrInvalidAction, "unknown monitor target %q", target)
	}
}

// LogicalToPhysical converts a logical point on monitor m to physical
// pixels using its scale factor.
func LogicalToPhysical(m MonitorInfo, p Point) Point {
	dx := p.X - m.LogicalRect.X
	dy := p.Y - m.LogicalRect.Y
	return Point{
		X: m.PhysicalRect.X + int(float64(dx)*m.ScaleFactor),
		Y: m.PhysicalRect.Y + int(float64(dy)*m.ScaleFactor),
	}
}

// PhysicalToLogical converts a physical pixel on monitor m to logical
// coordinates using its scale factor.
func PhysicalToLogical(m MonitorInfo, p Point) Point {
	dx := p.X - m.PhysicalRect.X
	dy := p.Y - m.PhysicalRect.Y
	return Point{
		X: m.LogicalRect.X + int(float64(dx)/m.ScaleFactor),
		Y: m.LogicalRect.Y + int(float64(dy)/m.ScaleFactor),
	}
}
