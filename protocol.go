//go:build windows

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
)

// Request is one line of the stdin JSON-RPC stream: a tool name, an
// action within that tool, and the action's parameters.
type Request struct {
	ID     interface{}     `json:"id"`
	Tool   string          `json:"tool"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is the uniform reply envelope written back to stdout.
type Response struct {
	ID     interface{} `json:"id"`
	Result ActionResult `json:"result"`
}

// mutatingActions lists the tool.action pairs that change window,
// input, or element state rather than merely observing it. Every
// request in this set is bracketed with Engine.Guard/Record: rate
// limited and appended to the audit log with a correlation id tying
// the attempt to its outcome.
var mutatingActions = map[string]bool{
	"window_management.activate":        true,
	"window_management.minimize":        true,
	"window_management.maximize":        true,
	"window_management.restore":         true,
	"window_management.close":           true,
	"window_management.move":            true,
	"window_management.resize":          true,
	"window_management.set_bounds":      true,
	"window_management.move_to_monitor": true,
	"mouse_control.move":                true,
	"mouse_control.click":               true,
	"mouse_control.double_click":        true,
	"mouse_control.right_click":         true,
	"mouse_control.middle_click":        true,
	"mouse_control.drag":                true,
	"mouse_control.scroll":              true,
	"keyboard_control.type":             true,
	"keyboard_control.press":            true,
	"keyboard_control.key_down":         true,
	"keyboard_control.key_up":           true,
	"keyboard_control.combo":            true,
	"keyboard_control.sequence":         true,
	"keyboard_control.release_all":      true,
	"ui_automation.click":               true,
	"ui_automation.invoke":              true,
	"ui_automation.double_click":        true,
	"ui_automation.type":                true,
	"ui_automation.focus":               true,
	"ui_automation.toggle":              true,
	"ui_automation.ensure_state":        true,
	"ui_automation.scroll_into_view":    true,
}

// Dispatch routes req to the matching service method and returns the
// result envelope cmd/automationd writes back verbatim. It never
// panics: a panic inside a handler is recovered and reported as
// system_error, matching spec.md §4.2's no-exceptions-cross-the-core
// policy for the process boundary too. Mutating actions are wrapped
// with a rate-limit check and an audit log entry; a rate-limited
// action returns a fault without ever reaching the service method.
func (e *Engine) Dispatch(ctx context.Context, req Request) (result ActionResult) {
	defer func() {
		if r := recover(); r != nil {
			result = Err(NewFault(ErrSystem, "panic handling %s.%s: %v", req.Tool, req.Action, r))
		}
	}()

	key := req.Tool + "." + req.Action
	if !mutatingActions[key] {
		return e.route(ctx, req)
	}

	correlationID, allowed := e.Guard(key, string(req.Params))
	if !allowed {
		return Err(NewFault(ErrRateLimited, "action %q rate limited", key))
	}
	result = e.route(ctx, req)
	if !result.Success {
		e.Record(key, correlationID, string(req.Params), "error", fmt.Errorf("%s: %s", result.Kind, result.Error))
	} else {
		e.Record(key, correlationID, string(req.Params), "ok", nil)
	}
	return result
}

func (e *Engine) route(ctx context.Context, req Request) ActionResult {
	switch req.Tool {
	case "window_management":
		return e.dispatchWindow(ctx, req.Action, req.Params)
	case "mouse_control":
		return e.dispatchMouse(req.Action, req.Params)
	case "keyboard_control":
		return e.dispatchKeyboard(req.Action, req.Params)
	case "ui_automation":
		return e.dispatchAutomation(ctx, req.Action, req.Params)
	case "screenshot_control":
		return e.dispatchScreenshot(req.Action, req.Params)
	default:
		return Err(NewFault(ErrInvalidAction, "unknown tool %q", req.Tool))
	}
}

func decode(raw json.RawMessage, v interface{}) *Fault {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return NewFault(ErrInvalidAction, "decoding parameters: %v", err)
	}
	return nil
}

func compileFilter(pattern string) (*regexp.Regexp, *Fault) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, NewFault(ErrInvalidRegex, "invalid regex %q: %v", pattern, err)
	}
	return re, nil
}

func guardFromRequest(title, process string) TargetGuard {
	return TargetGuard{ExpectedWindowTitle: title, ExpectedProcessName: process}
}

// --- window_management ---

type windowListParams struct {
	Filter             string `json:"filter"`
	Regex              string `json:"regex"`
	IncludeAllDesktops bool   `json:"include_all_desktops"`
}

type windowHandleParams struct {
	Handle WindowHandle `json:"handle"`
}

type windowWaitForStateParams struct {
	Handle    WindowHandle `json:"handle"`
	State     WindowState  `json:"state"`
	TimeoutMs int          `json:"timeout_ms"`
}

type windowCloseParams struct {
	Handle         WindowHandle `json:"handle"`
	DiscardChanges bool         `json:"discard_changes"`
}

type windowBoundsParams struct {
	Handle WindowHandle `json:"handle"`
	X      int          `json:"x"`
	Y      int          `json:"y"`
	Width  int          `json:"width"`
	Height int          `json:"height"`
}

type windowWaitForParams struct {
	Title     string `json:"title"`
	Regex     string `json:"regex"`
	TimeoutMs int    `json:"timeout_ms"`
}

type windowMoveToMonitorParams struct {
	Handle       WindowHandle `json:"handle"`
	Target       string       `json:"target"`
	MonitorIndex int          `json:"monitor_index"`
}

func (e *Engine) dispatchWindow(ctx context.Context, action string, raw json.RawMessage) ActionResult {
	switch action {
	case "list":
		var p windowListParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		re, f := compileFilter(p.Regex)
		if f != nil {
			return Err(f)
		}
		windows, fault := e.Windows.List(p.Filter, re, p.IncludeAllDesktops)
		if fault != nil {
			return Err(fault)
		}
		return Ok(windows)

	case "find":
		var p windowListParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		re, f := compileFilter(p.Regex)
		if f != nil {
			return Err(f)
		}
		windows, fault := e.Windows.Find(p.Filter, re)
		if fault != nil {
			return Err(fault)
		}
		return Ok(windows)

	case "activate":
		var p windowHandleParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Windows.Activate(p.Handle)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "get_foreground":
		info, fault := e.Windows.GetForeground()
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "get_state":
		var p windowHandleParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		state, fault := e.Windows.GetState(p.Handle)
		if fault != nil {
			return Err(fault)
		}
		return Ok(state)

	case "wait_for_state":
		var p windowWaitForStateParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		state, fault := e.Windows.WaitForState(ctx, p.Handle, p.State, p.TimeoutMs)
		if fault != nil {
			return Err(fault)
		}
		return Ok(state)

	case "minimize":
		var p windowHandleParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Windows.Minimize(p.Handle)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "maximize":
		var p windowHandleParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Windows.Maximize(p.Handle)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "restore":
		var p windowHandleParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Windows.Restore(p.Handle)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "close":
		var p windowCloseParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Windows.Close(p.Handle, p.DiscardChanges, e.Automation)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "move":
		var p windowBoundsParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Windows.Move(p.Handle, p.X, p.Y)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "resize":
		var p windowBoundsParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Windows.Resize(p.Handle, p.Width, p.Height)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "set_bounds":
		var p windowBoundsParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Windows.SetBounds(p.Handle, p.X, p.Y, p.Width, p.Height)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "wait_for":
		var p windowWaitForParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		re, f := compileFilter(p.Regex)
		if f != nil {
			return Err(f)
		}
		info, fault := e.Windows.WaitFor(ctx, p.Title, re, p.TimeoutMs)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "move_to_monitor":
		var p windowMoveToMonitorParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Windows.MoveToMonitor(p.Handle, p.Target, p.MonitorIndex)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	default:
		return Err(NewFault(ErrInvalidAction, "unknown window_management action %q", action))
	}
}

// --- mouse_control ---

type mouseMoveParams struct {
	X                   int    `json:"x"`
	Y                   int    `json:"y"`
	ExpectedWindowTitle string `json:"expected_window_title"`
	ExpectedProcessName string `json:"expected_process_name"`
}

type mouseClickParams struct {
	X                   int         `json:"x"`
	Y                   int         `json:"y"`
	Button              MouseButton `json:"button"`
	Double              bool        `json:"double"`
	ExpectedWindowTitle string      `json:"expected_window_title"`
	ExpectedProcessName string      `json:"expected_process_name"`
}

type mouseDragParams struct {
	StartX              int    `json:"start_x"`
	StartY              int    `json:"start_y"`
	EndX                int    `json:"end_x"`
	EndY                int    `json:"end_y"`
	ExpectedWindowTitle string `json:"expected_window_title"`
	ExpectedProcessName string `json:"expected_process_name"`
}

type mouseScrollParams struct {
	DeltaX              int    `json:"delta_x"`
	DeltaY              int    `json:"delta_y"`
	ExpectedWindowTitle string `json:"expected_window_title"`
	ExpectedProcessName string `json:"expected_process_name"`
}

func (e *Engine) dispatchMouse(action string, raw json.RawMessage) ActionResult {
	switch action {
	case "move":
		var p mouseMoveParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.Move(Point{X: p.X, Y: p.Y}, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "click":
		var p mouseClickParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if p.Button == "" {
			p.Button = ButtonLeft
		}
		if fault := e.Input.Click(Point{X: p.X, Y: p.Y}, p.Button, p.Double, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "double_click":
		var p mouseMoveParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.DoubleClick(Point{X: p.X, Y: p.Y}, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "right_click":
		var p mouseMoveParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.RightClick(Point{X: p.X, Y: p.Y}, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "middle_click":
		var p mouseMoveParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.MiddleClick(Point{X: p.X, Y: p.Y}, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "drag":
		var p mouseDragParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		start := Point{X: p.StartX, Y: p.StartY}
		end := Point{X: p.EndX, Y: p.EndY}
		if fault := e.Input.Drag(start, end, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "scroll":
		var p mouseScrollParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.Scroll(p.DeltaX, p.DeltaY, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "get_position":
		return Ok(e.Input.Position())

	default:
		return Err(NewFault(ErrInvalidAction, "unknown mouse_control action %q", action))
	}
}

// --- keyboard_control ---

type keyboardTypeParams struct {
	Text                string `json:"text"`
	ExpectedWindowTitle string `json:"expected_window_title"`
	ExpectedProcessName string `json:"expected_process_name"`
}

type keyboardKeyParams struct {
	Key                 string `json:"key"`
	ExpectedWindowTitle string `json:"expected_window_title"`
	ExpectedProcessName string `json:"expected_process_name"`
}

type keyboardComboParams struct {
	Keys                []string `json:"keys"`
	ExpectedWindowTitle string   `json:"expected_window_title"`
	ExpectedProcessName string   `json:"expected_process_name"`
}

type keyboardSequenceParams struct {
	Steps               []SequenceStep `json:"steps"`
	ExpectedWindowTitle string         `json:"expected_window_title"`
	ExpectedProcessName string         `json:"expected_process_name"`
}

func (e *Engine) dispatchKeyboard(action string, raw json.RawMessage) ActionResult {
	switch action {
	case "type":
		var p keyboardTypeParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.Type(p.Text, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "press":
		var p keyboardKeyParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.Press(p.Key, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "key_down":
		var p keyboardKeyParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.KeyDown(p.Key, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "key_up":
		var p keyboardKeyParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.KeyUp(p.Key, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "combo":
		var p keyboardComboParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.Combo(p.Keys, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "sequence":
		var p keyboardSequenceParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Input.Sequence(p.Steps, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName)); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "release_all":
		e.Input.ReleaseAll()
		return Ok(nil)

	case "get_keyboard_layout":
		return Ok(e.Input.GetKeyboardLayout())

	default:
		return Err(NewFault(ErrInvalidAction, "unknown keyboard_control action %q", action))
	}
}

// --- ui_automation ---

type elementIDParams struct {
	ID ElementID `json:"id"`
}

type automationTypeParams struct {
	ID                  ElementID `json:"id"`
	Text                string    `json:"text"`
	ClearFirst          bool      `json:"clear_first"`
	ExpectedWindowTitle string    `json:"expected_window_title"`
	ExpectedProcessName string    `json:"expected_process_name"`
}

type automationDoubleClickParams struct {
	ID                  ElementID `json:"id"`
	ExpectedWindowTitle string    `json:"expected_window_title"`
	ExpectedProcessName string    `json:"expected_process_name"`
}

type automationEnsureStateParams struct {
	ID      ElementID   `json:"id"`
	Desired ToggleState `json:"desired"`
}

type automationWaitForStateParams struct {
	ID        ElementID   `json:"id"`
	Desired   ToggleState `json:"desired"`
	TimeoutMs int         `json:"timeout_ms"`
}

type automationWaitForDisappearParams struct {
	ID        ElementID `json:"id"`
	TimeoutMs int       `json:"timeout_ms"`
}

type automationGetTreeParams struct {
	WindowHandle      WindowHandle `json:"window_handle"`
	ParentElementID   ElementID    `json:"parent_element_id"`
	MaxDepth          int          `json:"max_depth"`
	ControlTypeFilter string       `json:"control_type_filter"`
}

type automationCaptureAnnotatedParams struct {
	WindowHandle    WindowHandle `json:"window_handle"`
	InteractiveOnly bool         `json:"interactive_only"`
	OutputPath      string       `json:"output_path"`
	ReturnImageData bool         `json:"return_image_data"`
}

func (e *Engine) dispatchAutomation(ctx context.Context, action string, raw json.RawMessage) ActionResult {
	switch action {
	case "find":
		var q ElementQuery
		if f := decode(raw, &q); f != nil {
			return Err(f)
		}
		matches, fault := e.Automation.Find(ctx, q)
		if fault != nil {
			return Err(fault)
		}
		return Ok(matches)

	case "click", "invoke":
		var p elementIDParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Automation.Invoke(ctx, p.ID)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "double_click":
		var p automationDoubleClickParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Automation.DoubleClick(ctx, p.ID, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName))
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "type":
		var p automationTypeParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Automation.Type(ctx, p.ID, p.Text, p.ClearFirst, guardFromRequest(p.ExpectedWindowTitle, p.ExpectedProcessName))
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "focus":
		var p elementIDParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		info, fault := e.Automation.Focus(ctx, p.ID)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "get_text":
		var p elementIDParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		text, fault := e.Automation.GetText(ctx, p.ID)
		if fault != nil {
			return Err(fault)
		}
		return Ok(text)

	case "toggle":
		var p elementIDParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		prev, current, fault := e.Automation.Toggle(ctx, p.ID)
		if fault != nil {
			return Err(fault)
		}
		return Ok(map[string]ToggleState{"previous": prev, "current": current})

	case "ensure_state":
		var p automationEnsureStateParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		prev, current, already, fault := e.Automation.EnsureState(ctx, p.ID, p.Desired)
		if fault != nil {
			return Err(fault)
		}
		return Ok(map[string]interface{}{"previous": prev, "current": current, "already_in_state": already})

	case "scroll_into_view":
		var p elementIDParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Automation.ScrollIntoView(ctx, p.ID); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "wait_for":
		var q ElementQuery
		if f := decode(raw, &q); f != nil {
			return Err(f)
		}
		info, fault := e.Automation.WaitFor(ctx, q, q.TimeoutMs)
		if fault != nil {
			return Err(fault)
		}
		return Ok(info)

	case "wait_for_state":
		var p automationWaitForStateParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		state, fault := e.Automation.WaitForState(ctx, p.ID, p.Desired, p.TimeoutMs)
		if fault != nil {
			return Err(fault)
		}
		return Ok(state)

	case "wait_for_disappear":
		var p automationWaitForDisappearParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		if fault := e.Automation.WaitForDisappear(ctx, p.ID, p.TimeoutMs); fault != nil {
			return Err(fault)
		}
		return Ok(nil)

	case "get_tree":
		var p automationGetTreeParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		tree, fault := e.Automation.GetTree(ctx, p.WindowHandle, p.ParentElementID, p.MaxDepth, p.ControlTypeFilter)
		if fault != nil {
			return Err(fault)
		}
		return Ok(tree)

	case "capture_annotated":
		var p automationCaptureAnnotatedParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		result, fault := e.Automation.CaptureAnnotated(ctx, e.Capture, p.WindowHandle, p.InteractiveOnly, p.OutputPath, p.ReturnImageData)
		if fault != nil {
			return Err(fault)
		}
		return Ok(result)

	case "ocr_element":
		var p elementIDParams
		if f := decode(raw, &p); f != nil {
			return Err(f)
		}
		text, fault := e.Automation.OCRElement(ctx, e.Capture, p.ID)
		if fault != nil {
			return Err(fault)
		}
		return Ok(text)

	default:
		return Err(NewFault(ErrInvalidAction, "unknown ui_automation action %q", action))
	}
}

// --- screenshot_control ---

func (e *Engine) dispatchScreenshot(action string, raw json.RawMessage) ActionResult {
	switch action {
	case "capture":
		var req CaptureRequest
		if f := decode(raw, &req); f != nil {
			return Err(f)
		}
		shot, fault := e.Capture.Capture(req)
		if fault != nil {
			return Err(fault)
		}
		return Ok(shot)

	case "list_monitors":
		return Ok(e.Capture.ListMonitors())

	default:
		return Err(NewFault(ErrInvalidAction, "unknown screenshot_control action %q", action))
	}
}
