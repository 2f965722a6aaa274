//go:build windows

// Package winapi is the native-binding layer (C1): thin, safe wrappers
// over window enumeration, placement, input injection, DWM metrics,
// DPI queries, monitor enumeration, and COM apartment lifecycle. Every
// call that can fail returns its own error; no buffer outlives the
// call that allocated it.
//
// Non-COM Win32 access goes through github.com/gonutz/w32/v2, the same
// library the reference gonutz/auto SendInput wrapper uses for mouse
// and keyboard event construction. Calls w32 does not wrap (DWM window
// attributes, monitor enumeration, the per-monitor DPI query in
// Shcore.dll, AttachThreadInput, and the security/token calls needed
// for elevation and secure-desktop detection) are reached directly
// through syscall.
package winapi

import (
	"fmt"
	"strconv"
	"syscall"
	"unsafe"

	"github.com/gonutz/w32/v2"
)

// Window is a thin value wrapper around a native HWND.
type Window struct {
	HWND w32.HWND
}

func WindowFromHandle(h uintptr) Window { return Window{HWND: w32.HWND(h)} }
func (w Window) Uintptr() uintptr       { return uintptr(w.HWND) }
func (w Window) Valid() bool            { return w.HWND != 0 }

// EnumTopLevelWindows returns every top-level window currently known
// to the shell, visible or not; callers apply their own visibility and
// denylist filtering.
func EnumTopLevelWindows() []Window {
	var out []Window
	w32.EnumWindows(func(hwnd w32.HWND) bool {
		out = append(out, Window{HWND: hwnd})
		return true
	})
	return out
}

func (w Window) Title() string     { return w32.GetWindowText(w.HWND) }
func (w Window) ClassName() string { return w32.GetClassName(w.HWND) }

// ProcessID returns the owning process id.
func (w Window) ProcessID() uint32 {
	_, pid := w32.GetWindowThreadProcessId(w.HWND)
	return pid
}

// ThreadID returns the owning thread id, needed for AttachThreadInput.
func (w Window) ThreadID() uint32 {
	tid, _ := w32.GetWindowThreadProcessId(w.HWND)
	return tid
}

func (w Window) IsVisible() bool { return w32.IsWindowVisible(w.HWND) }
func (w Window) IsIconic() bool  { return w32.IsIconic(w.HWND) }
func (w Window) IsZoomed() bool  { return w32.IsZoomed(w.HWND) }

// Cloaked reports whether DWM has cloaked the window (present on
// another virtual desktop). w32 does not expose the cloaked attribute
// so DwmGetWindowAttribute is called directly.
func (w Window) Cloaked() bool {
	const dwmwaCloaked = 14
	var cloaked int32
	hr, _, _ := procDwmGetWindowAttribute.Call(
		w.Uintptr(), uintptr(dwmwaCloaked),
		uintptr(unsafe.Pointer(&cloaked)), unsafe.Sizeof(cloaked),
	)
	return hr == 0 && cloaked != 0
}

// IsResponding probes the window's message queue with a WM_NULL sent
// through SendMessageTimeout; a window whose owning thread is blocked
// processing another message (the classic "Not Responding" hang state
// Task Manager reports) fails to reply inside timeoutMs and the call
// returns false. A zero result code with ERROR_TIMEOUT also counts as
// not responding; any other failure (window gone, access denied) is
// reported as responding since it isn't evidence of a hang.
func (w Window) IsResponding(timeoutMs int) bool {
	const (
		wmNull          = 0x0000
		smtoAbortIfHung = 0x0002
		smtoBlock       = 0x0001
		errorTimeout    = 1460
	)
	if timeoutMs <= 0 {
		timeoutMs = 5000
	}
	var result uintptr
	ret, _, callErr := procSendMessageTimeoutW.Call(
		w.Uintptr(), uintptr(wmNull), 0, 0,
		uintptr(smtoAbortIfHung|smtoBlock), uintptr(timeoutMs),
		uintptr(unsafe.Pointer(&result)),
	)
	if ret != 0 {
		return true
	}
	return callErr != syscall.Errno(errorTimeout)
}

// ExtendedFrameBounds returns the DWM extended-frame rectangle, which
// excludes the invisible resize border GetWindowRect includes on
// Windows 10/11.
func (w Window) ExtendedFrameBounds() (x, y, width, height int, ok bool) {
	const dwmwaExtendedFrameBounds = 9
	var r w32.RECT
	hr, _, _ := procDwmGetWindowAttribute.Call(
		w.Uintptr(), uintptr(dwmwaExtendedFrameBounds),
		uintptr(unsafe.Pointer(&r)), unsafe.Sizeof(r),
	)
	if hr != 0 {
		return 0, 0, 0, 0, false
	}
	return int(r.Left), int(r.Top), int(r.Right - r.Left), int(r.Bottom - r.Top), true
}

// RawBounds is GetWindowRect without DWM adjustment.
func (w Window) RawBounds() (x, y, width, height int) {
	r := w32.GetWindowRect(w.HWND)
	if r == nil {
		return 0, 0, 0, 0
	}
	return int(r.Left), int(r.Top), int(r.Right - r.Left), int(r.Bottom - r.Top)
}

// Bounds prefers the DWM extended frame and falls back to the raw
// window rect, matching the data model's documented invariant.
func (w Window) Bounds() (x, y, width, height int) {
	if x, y, width, height, ok := w.ExtendedFrameBounds(); ok {
		return x, y, width, height
	}
	return w.RawBounds()
}

const (
	SWHide           = w32.SW_HIDE
	SWMinimize       = w32.SW_MINIMIZE
	SWMaximize       = w32.SW_MAXIMIZE
	SWRestore        = w32.SW_RESTORE
	SWShowNoActivate = w32.SW_SHOWNOACTIVATE
)

func (w Window) ShowWindow(cmd int) bool { return w32.ShowWindow(w.HWND, cmd) }

// SetWindowPosAbsolute moves/resizes a window atomically without
// changing z-order or activation.
func (w Window) SetWindowPosAbsolute(x, y, width, height int) bool {
	const swpNoZOrder = 0x0004
	const swpNoActivate = 0x0010
	return w32.SetWindowPos(w.HWND, 0, x, y, width, height, swpNoZOrder|swpNoActivate)
}

// PostClose posts WM_CLOSE without waiting for the target to process
// it; the caller polls for disappearance separately.
func (w Window) PostClose() bool {
	return w32.PostMessage(w.HWND, w32.WM_CLOSE, 0, 0)
}

// SetForeground is the plain SetForegroundWindow attempt, strategy 1
// of window activation.
func (w Window) SetForeground() bool { return w32.SetForegroundWindow(w.HWND) }

// Foreground returns the window currently holding focus, or an
// invalid Window if none (secure desktop, no desktop session).
func Foreground() Window { return Window{HWND: w32.GetForegroundWindow()} }

// AllowSetForegroundWindow permits the process owning pid to call
// SetForegroundWindow successfully even when the calling process does
// not currently hold the foreground-lock token; strategy 2.
func AllowSetForegroundWindow(pid uint32) bool {
	ret, _, _ := procAllowSetForegroundWindow.Call(uintptr(pid))
	return ret != 0
}

// AttachThreadInput joins or splits the input processing of two
// threads; strategy 4 of window activation briefly attaches the input
// queue of the thread owning the current foreground window to the
// target window's thread so SetForegroundWindow is permitted by the
// foreground-lock heuristic. The calling thread itself is not attached.
func AttachThreadInput(attachTo, attachFrom uint32, attach bool) bool {
	var flag uintptr
	if attach {
		flag = 1
	}
	ret, _, _ := procAttachThreadInput.Call(uintptr(attachTo), uintptr(attachFrom), flag)
	return ret != 0
}

// SendAltKeyTap synthesizes a benign Alt down/up pair used to defeat
// the foreground-lock timeout heuristic; strategy 3 of activation.
func SendAltKeyTap() {
	const vkMenu = 0x12
	w32.SendInput(
		w32.KeyboardInput(w32.KEYBDINPUT{Vk: vkMenu}),
		w32.KeyboardInput(w32.KEYBDINPUT{Vk: vkMenu, Flags: w32.KEYEVENTF_KEYUP}),
	)
}

// IsSecureDesktopActive reports whether the currently active desktop
// differs from the interactive input desktop, which happens while a
// UAC prompt or the lock screen owns the secure desktop. UIA and
// SendInput cannot cross that boundary.
func IsSecureDesktopActive() bool {
	const genericRead = 0x80000000
	inputDesktop, _, _ := procOpenInputDesktop.Call(0, 0, uintptr(genericRead))
	if inputDesktop == 0 {
		// Denial of access to the input desktop is itself a strong
		// signal that a secure desktop currently owns the session.
		return true
	}
	defer procCloseDesktop.Call(inputDesktop)

	const uoiName = 2
	var nameBuf [256]uint16
	nameLen, _, _ := procGetUserObjectInformationW.Call(
		inputDesktop, uoiName,
		uintptr(unsafe.Pointer(&nameBuf[0])), uintptr(len(nameBuf)*2), 0,
	)
	if nameLen == 0 {
		return false
	}
	return syscall.UTF16ToString(nameBuf[:]) != "Default"
}

// IsProcessElevated reports whether pid's token carries the elevated
// integrity level.
func IsProcessElevated(pid uint32) (bool, error) {
	const processQueryLimitedInformation = 0x1000
	h, _, err := procOpenProcess.Call(processQueryLimitedInformation, 0, uintptr(pid))
	if h == 0 {
		return false, fmt.Errorf("OpenProcess(%d): %w", pid, err)
	}
	defer procCloseHandle.Call(h)

	const tokenQuery = 0x0008
	var token uintptr
	ret, _, err := procOpenProcessToken.Call(h, tokenQuery, uintptr(unsafe.Pointer(&token)))
	if ret == 0 {
		return false, fmt.Errorf("OpenProcessToken: %w", err)
	}
	defer procCloseHandle.Call(token)

	const tokenElevation = 20
	var elevation struct{ TokenIsElevated uint32 }
	var retLen uint32
	ret, _, err = procGetTokenInformation.Call(
		token, tokenElevation,
		uintptr(unsafe.Pointer(&elevation)), unsafe.Sizeof(elevation),
		uintptr(unsafe.Pointer(&retLen)),
	)
	if ret == 0 {
		return false, fmt.Errorf("GetTokenInformation: %w", err)
	}
	return elevation.TokenIsElevated != 0, nil
}

// CurrentProcessIsElevated reports the calling process's own token
// elevation, used to evaluate cross-elevation preflight checks.
func CurrentProcessIsElevated() bool {
	elevated, err := IsProcessElevated(uint32(syscall.Getpid()))
	return err == nil && elevated
}

// CursorPos returns the current physical cursor position.
func CursorPos() (x, y int, ok bool) {
	return w32.GetCursorPos()
}

// SetCursorPos moves the physical cursor directly, used internally by
// capture overlay positioning; input synthesis goes through SendInput.
func SetCursorPos(x, y int) bool { return w32.SetCursorPos(x, y) }

// CursorInfo describes the current cursor for overlay rendering.
type CursorInfo struct {
	Visible bool
	X, Y    int
	HCursor w32.HCURSOR
}

// GetCursorInfo wraps the GetCursorInfo Win32 call; w32 does not
// expose it directly, so it is reached through syscall here.
func GetCursorInfo() (CursorInfo, bool) {
	type cursorInfoStruct struct {
		CbSize  uint32
		Flags   uint32
		HCursor uintptr
		PtX     int32
		PtY     int32
	}
	var ci cursorInfoStruct
	ci.CbSize = uint32(unsafe.Sizeof(ci))
	ret, _, _ := procGetCursorInfo.Call(uintptr(unsafe.Pointer(&ci)))
	if ret == 0 {
		return CursorInfo{}, false
	}
	const cursorShowing = 0x00000001
	return CursorInfo{
		Visible: ci.Flags&cursorShowing != 0,
		X:       int(ci.PtX),
		Y:       int(ci.PtY),
		HCursor: w32.HCURSOR(ci.HCursor),
	}, true
}

// KeyboardLayoutID returns the current thread's keyboard layout
// identifier (KLID), an 8 hex-digit string such as "00000409" for
// US English.
func KeyboardLayoutID() string {
	var buf [9]uint16
	ret, _, _ := procGetKeyboardLayoutNameW.Call(uintptr(unsafe.Pointer(&buf[0])))
	if ret == 0 {
		return ""
	}
	return syscall.UTF16ToString(buf[:])
}

// LocaleNameFromKLID converts an 8 hex-digit keyboard layout
// identifier (as returned by KeyboardLayoutID) to its BCP-47 locale
// name ("en-US") via LCIDToLocaleName. The low word of a KLID is
// always the LANGID the layout was registered under.
func LocaleNameFromKLID(klid string) (string, bool) {
	if len(klid) < 4 {
		return "", false
	}
	langID, err := strconv.ParseUint(klid[len(klid)-4:], 16, 16)
	if err != nil {
		return "", false
	}
	var buf [85]uint16 // LOCALE_NAME_MAX_LENGTH
	ret, _, _ := procLCIDToLocaleName.Call(uintptr(langID), uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)), 0)
	if ret == 0 {
		return "", false
	}
	return syscall.UTF16ToString(buf[:]), true
}

// LocalizedDisplayName resolves localeName's localized display name
// ("English (United States)") through GetLocaleInfoEx.
func LocalizedDisplayName(localeName string) (string, bool) {
	const localeSLocalizedDisplayName = 0x00000002
	return localeInfoEx(localeName, localeSLocalizedDisplayName)
}

func localeInfoEx(localeName string, lcType uint32) (string, bool) {
	namePtr, err := syscall.UTF16PtrFromString(localeName)
	if err != nil {
		return "", false
	}
	var buf [256]uint16
	ret, _, _ := procGetLocaleInfoEx.Call(
		uintptr(unsafe.Pointer(namePtr)), uintptr(lcType),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)),
	)
	if ret == 0 {
		return "", false
	}
	return syscall.UTF16ToString(buf[:]), true
}

// PhysicalLayoutName reads the human-readable layout name ("US",
// "United Kingdom Extended") Windows stores in the registry under the
// keyboard layout's KLID, the same source Control Panel's input
// settings reads from.
func PhysicalLayoutName(klid string) (string, bool) {
	const (
		hkeyLocalMachine = 0x80000002
		keyQueryValue    = 0x0001
		regSz            = 1
	)
	keyPath, err := syscall.UTF16PtrFromString(`SYSTEM\CurrentControlSet\Control\Keyboard Layouts\` + klid)
	if err != nil {
		return "", false
	}
	var hkey uintptr
	ret, _, _ := procRegOpenKeyExW.Call(hkeyLocalMachine, uintptr(unsafe.Pointer(keyPath)), 0, keyQueryValue, uintptr(unsafe.Pointer(&hkey)))
	if ret != 0 {
		return "", false
	}
	defer procRegCloseKey.Call(hkey)

	valueName, err := syscall.UTF16PtrFromString("Layout Text")
	if err != nil {
		return "", false
	}
	var buf [256]uint16
	size := uint32(len(buf) * 2)
	var valueType uint32
	ret, _, _ = procRegQueryValueExW.Call(
		hkey, uintptr(unsafe.Pointer(valueName)), 0,
		uintptr(unsafe.Pointer(&valueType)),
		uintptr(unsafe.Pointer(&buf[0])), uintptr(unsafe.Pointer(&size)),
	)
	if ret != 0 || valueType != regSz {
		return "", false
	}
	return syscall.UTF16ToString(buf[:]), true
}
