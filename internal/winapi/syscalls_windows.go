//go:build windows

package winapi

import "syscall"

// Lazy DLL handles for the calls gonutz/w32 does not wrap: DWM window
// attributes, foreground-lock bypass, thread input attachment, secure
// desktop detection, process token queries, monitor enumeration, and
// per-monitor DPI.
var (
	modUser32   = syscall.NewLazyDLL("user32.dll")
	modDwmapi   = syscall.NewLazyDLL("dwmapi.dll")
	modKernel32 = syscall.NewLazyDLL("kernel32.dll")
	modAdvapi32 = syscall.NewLazyDLL("advapi32.dll")
	modShcore   = syscall.NewLazyDLL("shcore.dll")
	modGdi32    = syscall.NewLazyDLL("gdi32.dll")

	procDwmGetWindowAttribute      = modDwmapi.NewProc("DwmGetWindowAttribute")
	procAllowSetForegroundWindow   = modUser32.NewProc("AllowSetForegroundWindow")
	procAttachThreadInput          = modUser32.NewProc("AttachThreadInput")
	procOpenInputDesktop           = modUser32.NewProc("OpenInputDesktop")
	procCloseDesktop               = modUser32.NewProc("CloseDesktop")
	procGetUserObjectInformationW  = modUser32.NewProc("GetUserObjectInformationW")
	procGetCursorInfo              = modUser32.NewProc("GetCursorInfo")
	procOpenProcess                = modKernel32.NewProc("OpenProcess")
	procCloseHandle                = modKernel32.NewProc("CloseHandle")
	procOpenProcessToken            = modAdvapi32.NewProc("OpenProcessToken")
	procGetTokenInformation        = modAdvapi32.NewProc("GetTokenInformation")

	procEnumDisplayMonitors = modUser32.NewProc("EnumDisplayMonitors")
	procGetMonitorInfoW     = modUser32.NewProc("GetMonitorInfoW")
	procMonitorFromWindow   = modUser32.NewProc("MonitorFromWindow")
	procMonitorFromPoint    = modUser32.NewProc("MonitorFromPoint")
	procGetDpiForMonitor    = modShcore.NewProc("GetDpiForMonitor")
	procBitBlt              = modGdi32.NewProc("BitBlt")
	procPrintWindow         = modUser32.NewProc("PrintWindow")

	procGetDC                = modUser32.NewProc("GetDC")
	procReleaseDC            = modUser32.NewProc("ReleaseDC")
	procCreateCompatibleDC   = modGdi32.NewProc("CreateCompatibleDC")
	procDeleteDC             = modGdi32.NewProc("DeleteDC")
	procCreateCompatibleBmp  = modGdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject         = modGdi32.NewProc("SelectObject")
	procDeleteObject         = modGdi32.NewProc("DeleteObject")
	procGetDIBits            = modGdi32.NewProc("GetDIBits")

	procGetKeyboardLayoutNameW = modUser32.NewProc("GetKeyboardLayoutNameW")
	procSendMessageTimeoutW    = modUser32.NewProc("SendMessageTimeoutW")

	procLCIDToLocaleName = modKernel32.NewProc("LCIDToLocaleName")
	procGetLocaleInfoEx  = modKernel32.NewProc("GetLocaleInfoEx")

	procRegOpenKeyExW    = modAdvapi32.NewProc("RegOpenKeyExW")
	procRegQueryValueExW = modAdvapi32.NewProc("RegQueryValueExW")
	procRegCloseKey      = modAdvapi32.NewProc("RegCloseKey")
)
