//go:build windows

package engine

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/windowspilot/engine/internal/config"
	"github.com/windowspilot/engine/internal/winapi"
	"github.com/windowspilot/engine/pkg/logging"
)

// processName resolves pid to its executable name through gopsutil
// rather than a raw Win32 snapshot call; gopsutil already pages over
// PROCESS_QUERY_LIMITED_INFORMATION correctly for the elevated and
// protected processes a window enumeration will inevitably hit.
func processName(pid uint32) string {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return name
}

// denylisted window titles/classes are system shell surfaces that
// list/find must never surface: taskbar, the desktop's Program
// Manager shell, the Alt-Tab/tab-switcher proxy window, the core UWP
// host frame, and the notification-area overflow popup.
var denylistedClasses = map[string]bool{
	"Shell_TrayWnd":          true,
	"Progman":                true,
	"MultitaskingViewFrame":  true,
	"ApplicationFrameWindow": true,
	"NotifyIconOverflowWindow": true,
}

// WindowService implements C4: window enumeration, activation,
// placement, and lifecycle operations.
type WindowService struct {
	cfg config.WindowConfig
	log *logging.Logger
}

func NewWindowService(cfg config.WindowConfig, log *logging.Logger) *WindowService {
	return &WindowService{cfg: cfg, log: log.WithPrefix("window")}
}

func windowMatches(w winapi.Window, includeAllDesktops bool) bool {
	if !w.IsVisible() {
		return false
	}
	if w.Cloaked() && !includeAllDesktops {
		return false
	}
	class := w.ClassName()
	if denylistedClasses[class] {
		return false
	}
	title := w.Title()
	if title == "" && class == "" {
		return false
	}
	return true
}

func (s *WindowService) snapshot(w winapi.Window, vs VirtualScreen) WindowInfo {
	x, y, width, height := w.Bounds()
	bounds := Rect{X: x, Y: y, Width: width, Height: height}
	monitorIdx := MonitorForWindow(vs, WindowHandle(w.Uintptr()))
	var monitorBounds Rect
	if monitorIdx >= 0 && monitorIdx < len(vs.Monitors) {
		monitorBounds = vs.Monitors[monitorIdx].LogicalRect
	}

	state := WindowNormal
	switch {
	case !w.IsVisible():
		state = WindowHidden
	case w.IsIconic():
		state = WindowMinimized
	case w.IsZoomed():
		state = WindowMaximized
	}

	elevated, _ := winapi.IsProcessElevated(w.ProcessID())
	foreground := winapi.Foreground().HWND == w.HWND

	return WindowInfo{
		Handle:        WindowHandle(w.Uintptr()),
		Title:         w.Title(),
		ClassName:     w.ClassName(),
		ProcessName:   processName(w.ProcessID()),
		ProcessID:     int(w.ProcessID()),
		Bounds:        bounds,
		State:         state,
		MonitorIndex:  monitorIdx,
		MonitorBounds: monitorBounds,
		Flags: WindowFlags{
			IsElevated:       elevated,
			IsResponding:     w.IsResponding(s.cfg.ResponsivenessProbeTimeoutMs),
			IsForeground:     foreground,
			OnCurrentDesktop: true,
		},
	}
}

// List returns every non-denylisted visible top-level window whose
// title or process name matches filter (a case-insensitive substring)
// or regex (matched as compiled). An empty filter and nil regex
// matches everything. Windows
// cloaked by DWM (present on another virtual desktop) are excluded
// unless includeAllDesktops is set.
func (s *WindowService) List(filter string, pattern *regexp.Regexp, includeAllDesktops bool) ([]WindowInfo, *Fault) {
	vs := EnumerateMonitors()
	var out []WindowInfo
	for _, w := range winapi.EnumTopLevelWindows() {
		if !windowMatches(w, includeAllDesktops) {
			continue
		}
		info := s.snapshot(w, vs)
		if !matchesFilter(info, filter, pattern) {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

func matchesFilter(info WindowInfo, filter string, pattern *regexp.Regexp) bool {
	if pattern != nil {
		return pattern.MatchString(info.Title) || pattern.MatchString(info.ProcessName)
	}
	if filter == "" {
		return true
	}
	f := strings.ToLower(filter)
	return strings.Contains(strings.ToLower(info.Title), f) ||
		strings.Contains(strings.ToLower(info.ProcessName), f)
}

// Find requires a non-empty matcher and returns every match; unlike
// List it never surfaces cloaked windows from other virtual desktops.
func (s *WindowService) Find(title string, pattern *regexp.Regexp) ([]WindowInfo, *Fault) {
	if title == "" && pattern == nil {
		return nil, NewFault(ErrMissingRequiredParam, "find requires a title or regex")
	}
	return s.List(title, pattern, false)
}

func findHWND(handle WindowHandle) (winapi.Window, bool) {
	w := winapi.WindowFromHandle(uintptr(handle))
	if !w.Valid() || !windowExists(w) {
		return winapi.Window{}, false
	}
	return w, true
}

func windowExists(w winapi.Window) bool {
	for _, cand := range winapi.EnumTopLevelWindows() {
		if cand.HWND == w.HWND {
			return true
		}
	}
	return false
}

// Activate runs the eight-step multi-strategy activation algorithm,
// stopping at the first strategy that makes handle the foreground
// window.
func (s *WindowService) Activate(handle WindowHandle) (WindowInfo, *Fault) {
	if winapi.IsSecureDesktopActive() {
		return WindowInfo{}, NewFault(ErrSecureDesktopActive, "cannot activate window while a secure desktop is active")
	}
	w, ok := findHWND(handle)
	if !ok {
		return WindowInfo{}, NewFault(ErrWindowNotFound, "window %d not found", handle)
	}

	targetElevated, _ := winapi.IsProcessElevated(w.ProcessID())
	if targetElevated && !winapi.CurrentProcessIsElevated() {
		return WindowInfo{}, NewFault(ErrCrossElevation, "target window %d is elevated; this process is not", handle)
	}

	x, y, width, height := w.Bounds()

	reapply := func() { w.SetWindowPosAbsolute(x, y, width, height) }

	if w.IsIconic() {
		w.ShowWindow(winapi.SWRestore)
		reapply()
	}

	succeeded := func() bool { return winapi.Foreground().HWND == w.HWND }

	if w.SetForeground(); succeeded() {
		return s.snapshotHandle(w), nil
	}

	winapi.AllowSetForegroundWindow(w.ProcessID())
	if w.SetForeground(); succeeded() {
		return s.snapshotHandle(w), nil
	}

	winapi.SendAltKeyTap()
	if w.SetForeground(); succeeded() {
		return s.snapshotHandle(w), nil
	}

	fg := winapi.Foreground()
	if fg.Valid() {
		callingThread := fg.ThreadID()
		targetThread := w.ThreadID()
		winapi.AttachThreadInput(callingThread, targetThread, true)
		w.SetForeground()
		attached := succeeded()
		winapi.AttachThreadInput(callingThread, targetThread, false)
		if attached {
			return s.snapshotHandle(w), nil
		}
	}

	w.ShowWindow(winapi.SWMinimize)
	w.ShowWindow(winapi.SWRestore)
	if succeeded() {
		reapply()
		return s.snapshotHandle(w), nil
	}

	reapply()
	return WindowInfo{}, NewFault(ErrActivationFailed, "no activation strategy succeeded for window %d", handle)
}

func (s *WindowService) snapshotHandle(w winapi.Window) WindowInfo {
	return s.snapshot(w, EnumerateMonitors())
}

// GetForeground returns the currently focused window's snapshot.
func (s *WindowService) GetForeground() (WindowInfo, *Fault) {
	if winapi.IsSecureDesktopActive() {
		return WindowInfo{}, NewFault(ErrSecureDesktopActive, "cannot read foreground window while a secure desktop is active")
	}
	fg := winapi.Foreground()
	if !fg.Valid() {
		return WindowInfo{}, NewFault(ErrWindowNotFound, "no foreground window")
	}
	return s.snapshotHandle(fg), nil
}

// GetState returns handle's current WindowState.
func (s *WindowService) GetState(handle WindowHandle) (WindowState, *Fault) {
	w, ok := findHWND(handle)
	if !ok {
		return "", NewFault(ErrWindowNotFound, "window %d not found", handle)
	}
	return s.snapshot(w, VirtualScreen{}).State, nil
}

// WaitForState polls handle's state at the configured interval until
// it equals want or the timeout elapses, reporting the last observed
// state on timeout.
func (s *WindowService) WaitForState(ctx context.Context, handle WindowHandle, want WindowState, timeoutMs int) (WindowState, *Fault) {
	if timeoutMs <= 0 {
		timeoutMs = s.cfg.DefaultWaitTimeoutMs
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	interval := config.PollInterval(s.cfg.StatePollIntervalMs)

	var last WindowState
	for {
		state, fault := s.GetState(handle)
		if fault != nil {
			return "", fault
		}
		last = state
		if state == want {
			return state, nil
		}
		if time.Now().After(deadline) {
			return last, NewFault(ErrTimeout, "timed out waiting for window %d to reach state %q", handle, want).WithState(string(last))
		}
		select {
		case <-ctx.Done():
			return last, NewFault(ErrCancelled, "wait_for_state cancelled")
		case <-time.After(interval):
		}
	}
}

func (s *WindowService) showAndSettle(handle WindowHandle, cmd int) (WindowInfo, *Fault) {
	w, ok := findHWND(handle)
	if !ok {
		return WindowInfo{}, NewFault(ErrWindowNotFound, "window %d not found", handle)
	}
	w.ShowWindow(cmd)
	time.Sleep(config.PollInterval(s.cfg.SettleDelayMs))
	return s.snapshotHandle(w), nil
}

func (s *WindowService) Minimize(handle WindowHandle) (WindowInfo, *Fault) {
	return s.showAndSettle(handle, winapi.SWMinimize)
}

func (s *WindowService) Maximize(handle WindowHandle) (WindowInfo, *Fault) {
	return s.showAndSettle(handle, winapi.SWMaximize)
}

func (s *WindowService) Restore(handle WindowHandle) (WindowInfo, *Fault) {
	return s.showAndSettle(handle, winapi.SWRestore)
}

// SetBounds atomically repositions and resizes handle without
// changing z-order or activation. Rejects non-positive sizes.
func (s *WindowService) SetBounds(handle WindowHandle, x, y, width, height int) (WindowInfo, *Fault) {
	if width <= 0 || height <= 0 {
		return WindowInfo{}, NewFault(ErrInvalidCoordinates, "width and height must be positive, got %dx%d", width, height)
	}
	w, ok := findHWND(handle)
	if !ok {
		return WindowInfo{}, NewFault(ErrWindowNotFound, "window %d not found", handle)
	}
	if !w.SetWindowPosAbsolute(x, y, width, height) {
		return WindowInfo{}, NewFault(ErrResizeFailed, "SetWindowPos failed for window %d", handle)
	}
	return s.snapshotHandle(w), nil
}

func (s *WindowService) Move(handle WindowHandle, x, y int) (WindowInfo, *Fault) {
	w, ok := findHWND(handle)
	if !ok {
		return WindowInfo{}, NewFault(ErrWindowNotFound, "window %d not found", handle)
	}
	_, _, width, height := w.Bounds()
	return s.SetBounds(handle, x, y, width, height)
}

func (s *WindowService) Resize(handle WindowHandle, width, height int) (WindowInfo, *Fault) {
	w, ok := findHWND(handle)
	if !ok {
		return WindowInfo{}, NewFault(ErrWindowNotFound, "window %d not found", handle)
	}
	x, y, _, _ := w.Bounds()
	return s.SetBounds(handle, x, y, width, height)
}

// dismissAutomationIDs, dismissNameSubstrings and dismissExactNames
// name the button identifiers Close tries when asked to discard unsaved
// changes.
var dismissAutomationIDs = []string{"SecondaryButton", "CommandButton_7"}
var dismissNameSubstrings = []string{"t save"}
var dismissExactNames = []string{"&No", "No"}

// Close posts WM_CLOSE and, if discardChanges is set, runs a bounded
// best-effort loop looking for a save-confirmation dialog in the
// foreground and clicking "Don't Save". The dismissal never fails the
// close: it is reported on the pre-close snapshot regardless of
// outcome.
func (s *WindowService) Close(handle WindowHandle, discardChanges bool, am *AutomationService) (WindowInfo, *Fault) {
	w, ok := findHWND(handle)
	if !ok {
		return WindowInfo{}, NewFault(ErrWindowNotFound, "window %d not found", handle)
	}
	before := s.snapshotHandle(w)
	if !w.PostClose() {
		return before, NewFault(ErrCloseFailed, "PostMessage(WM_CLOSE) failed for window %d", handle)
	}

	if discardChanges && am != nil {
		s.dismissSaveDialog(handle, am)
	}
	return before, nil
}

func (s *WindowService) dismissSaveDialog(parent WindowHandle, am *AutomationService) {
	deadline := time.Now().Add(config.PollInterval(s.cfg.DismissDialogBudgetMs))
	interval := config.PollInterval(s.cfg.DismissDialogPollMs)

	for time.Now().Before(deadline) {
		if _, ok := findHWND(parent); !ok {
			return
		}
		if s.tryDismissOnce(am) {
			return
		}
		time.Sleep(interval)
	}
}

func (s *WindowService) tryDismissOnce(am *AutomationService) bool {
	fg := winapi.Foreground()
	if !fg.Valid() {
		return false
	}
	fgHandle := WindowHandle(fg.Uintptr())

	for _, id := range dismissAutomationIDs {
		if clickDialogButton(am, fgHandle, ElementQuery{AutomationID: id}) {
			return true
		}
	}
	for _, sub := range dismissNameSubstrings {
		if clickDialogButton(am, fgHandle, ElementQuery{NameContains: sub, ControlType: "Button"}) {
			return true
		}
	}
	for _, name := range dismissExactNames {
		if clickDialogButton(am, fgHandle, ElementQuery{Name: name, ControlType: "Button"}) {
			return true
		}
	}
	return false
}

func clickDialogButton(am *AutomationService, handle WindowHandle, q ElementQuery) bool {
	q.WindowHandle = handle
	q.Cap = 1
	matches, fault := am.Find(context.Background(), q)
	if fault != nil || len(matches) == 0 {
		return false
	}
	_, fault = am.Click(context.Background(), matches[0].ID)
	return fault == nil
}

// WaitFor polls List until a match for title/regex appears or the
// timeout elapses.
func (s *WindowService) WaitFor(ctx context.Context, title string, pattern *regexp.Regexp, timeoutMs int) (WindowInfo, *Fault) {
	if timeoutMs <= 0 {
		timeoutMs = s.cfg.DefaultWaitTimeoutMs
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	interval := config.PollInterval(s.cfg.WaitForPollIntervalMs)

	for {
		matches, fault := s.Find(title, pattern)
		if fault != nil {
			return WindowInfo{}, fault
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
		if time.Now().After(deadline) {
			return WindowInfo{}, NewFault(ErrTimeout, "timed out waiting for window matching %q", title)
		}
		select {
		case <-ctx.Done():
			return WindowInfo{}, NewFault(ErrCancelled, "wait_for cancelled")
		case <-time.After(interval):
		}
	}
}

// MoveToMonitor resolves target (a named target or explicit index)
// and centers handle within that monitor's work area, preserving size,
// clamping origin if the window is larger than the monitor.
func (s *WindowService) MoveToMonitor(handle WindowHandle, target string, monitorIndex int) (WindowInfo, *Fault) {
	w, ok := findHWND(handle)
	if !ok {
		return WindowInfo{}, NewFault(ErrWindowNotFound, "window %d not found", handle)
	}
	vs := EnumerateMonitors()
	idx, fault := ResolveMonitorTarget(vs, target, monitorIndex)
	if fault != nil {
		return WindowInfo{}, fault
	}
	mon := vs.Monitors[idx]
	_, _, width, height := w.Bounds()

	x := mon.WorkArea.X + (mon.WorkArea.Width-width)/2
	y := mon.WorkArea.Y + (mon.WorkArea.Height-height)/2
	if width > mon.WorkArea.Width {
		x = mon.WorkArea.X
	}
	if height > mon.WorkArea.Height {
		y = mon.WorkArea.Y
	}
	if x < mon.WorkArea.X {
		x = mon.WorkArea.X
	}
	if y < mon.WorkArea.Y {
		y = mon.WorkArea.Y
	}

	return s.SetBounds(handle, x, y, width, height)
}
