//go:build windows

package winapi

import (
	"syscall"
	"unsafe"
)

// MonitorHandle wraps a native HMONITOR.
type MonitorHandle uintptr

type winRect struct{ Left, Top, Right, Bottom int32 }

type monitorInfoExW struct {
	cbSize    uint32
	rcMonitor winRect
	rcWork    winRect
	dwFlags   uint32
	szDevice  [32]uint16
}

const monitorInfoFPrimary = 0x1

// EnumMonitors returns every display monitor currently attached.
func EnumMonitors() []MonitorHandle {
	var out []MonitorHandle
	cb := syscall.NewCallback(func(hMonitor MonitorHandle, hdc uintptr, rect uintptr, lparam uintptr) uintptr {
		out = append(out, hMonitor)
		return 1
	})
	procEnumDisplayMonitors.Call(0, 0, cb, 0)
	return out
}

// MonitorInfo describes one monitor's physical and work-area rects.
type MonitorInfo struct {
	Rect       winRect
	WorkArea   winRect
	Primary    bool
	DeviceName string
}

// GetMonitorInfo queries placement and device-name data for h.
func GetMonitorInfo(h MonitorHandle) (MonitorInfo, bool) {
	var mi monitorInfoExW
	mi.cbSize = uint32(unsafe.Sizeof(mi))
	ret, _, _ := procGetMonitorInfoW.Call(uintptr(h), uintptr(unsafe.Pointer(&mi)))
	if ret == 0 {
		return MonitorInfo{}, false
	}
	return MonitorInfo{
		Rect:       mi.rcMonitor,
		WorkArea:   mi.rcWork,
		Primary:    mi.dwFlags&monitorInfoFPrimary != 0,
		DeviceName: syscall.UTF16ToString(mi.szDevice[:]),
	}, true
}

// Bounds returns (x, y, width, height) for the monitor's physical rect.
func (m MonitorInfo) Bounds() (x, y, w, h int) {
	return int(m.Rect.Left), int(m.Rect.Top), int(m.Rect.Right - m.Rect.Left), int(m.Rect.Bottom - m.Rect.Top)
}

// WorkAreaBounds returns (x, y, width, height) for the monitor's work
// area (physical rect minus taskbar and docked toolbars).
func (m MonitorInfo) WorkAreaBounds() (x, y, w, h int) {
	return int(m.WorkArea.Left), int(m.WorkArea.Top), int(m.WorkArea.Right - m.WorkArea.Left), int(m.WorkArea.Bottom - m.WorkArea.Top)
}

const mdtEffectiveDPI = 0

// DPIForMonitor returns the effective horizontal/vertical DPI for h,
// 96 being the unscaled baseline.
func DPIForMonitor(h MonitorHandle) (dpiX, dpiY uint32, err error) {
	ret, _, callErr := procGetDpiForMonitor.Call(
		uintptr(h), mdtEffectiveDPI,
		uintptr(unsafe.Pointer(&dpiX)), uintptr(unsafe.Pointer(&dpiY)),
	)
	if ret != 0 {
		return 96, 96, callErr
	}
	return dpiX, dpiY, nil
}

const (
	monitorDefaultToNearest = 2
)

// MonitorFromWindow returns the monitor hosting the largest portion of
// w, defaulting to the nearest monitor when w straddles a boundary.
func MonitorFromWindow(w Window) MonitorHandle {
	h, _, _ := procMonitorFromWindow.Call(w.Uintptr(), monitorDefaultToNearest)
	return MonitorHandle(h)
}

// MonitorFromPoint returns the monitor containing the physical point
// (x, y), or the nearest one if the point lies outside every monitor.
func MonitorFromPoint(x, y int) MonitorHandle {
	pt := struct{ X, Y int32 }{int32(x), int32(y)}
	// POINT is passed by value on the stack as two 32-bit fields packed
	// into one 64-bit argument slot on amd64.
	packed := uintptr(uint32(pt.X)) | uintptr(uint32(pt.Y))<<32
	h, _, _ := procMonitorFromPoint.Call(packed, monitorDefaultToNearest)
	return MonitorHandle(h)
}
