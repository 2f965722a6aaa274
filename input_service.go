//go:build windows

package engine

import (
	"strings"
	"sync"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/gonutz/w32/v2"

	"github.com/windowspilot/engine/internal/config"
	"github.com/windowspilot/engine/internal/winapi"
	"github.com/windowspilot/engine/pkg/logging"
)

// TargetGuard optionally restricts an input action to a specific
// foreground window, guarding against misrouted input when activation
// or focus changed unexpectedly between planning and acting.
type TargetGuard struct {
	ExpectedWindowTitle   string
	ExpectedProcessName   string
}

func (g TargetGuard) check() *Fault {
	if g.ExpectedWindowTitle == "" && g.ExpectedProcessName == "" {
		return nil
	}
	fg := winapi.Foreground()
	if !fg.Valid() {
		return NewFault(ErrFocusMismatch, "no foreground window to match against target guard")
	}
	if g.ExpectedWindowTitle != "" && !containsFold(fg.Title(), g.ExpectedWindowTitle) {
		return NewFault(ErrFocusMismatch, "foreground window %q does not match expected title %q", fg.Title(), g.ExpectedWindowTitle)
	}
	if g.ExpectedProcessName != "" {
		name := processName(fg.ProcessID())
		if !containsFold(name, g.ExpectedProcessName) {
			return NewFault(ErrFocusMismatch, "foreground process %q does not match expected process %q", name, g.ExpectedProcessName)
		}
	}
	return nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// InputService implements C5: mouse and keyboard input synthesis,
// target guards, and the process-wide held-key set.
type InputService struct {
	mouseCfg config.MouseConfig
	kbCfg    config.KeyboardConfig
	log      *logging.Logger

	heldMu sync.Mutex
	held   map[string]bool
}

func NewInputService(mouseCfg config.MouseConfig, kbCfg config.KeyboardConfig, log *logging.Logger) *InputService {
	return &InputService{
		mouseCfg: mouseCfg,
		kbCfg:    kbCfg,
		log:      log.WithPrefix("input"),
		held:     make(map[string]bool),
	}
}

// --- Mouse ---

func (s *InputService) Move(p Point, guard TargetGuard) *Fault {
	if f := guard.check(); f != nil {
		return f
	}
	robotgo.Move(p.X, p.Y)
	return nil
}

type MouseButton string

const (
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "center"
)

func (s *InputService) Click(p Point, button MouseButton, double bool, guard TargetGuard) *Fault {
	if f := guard.check(); f != nil {
		return f
	}
	robotgo.Move(p.X, p.Y)
	time.Sleep(10 * time.Millisecond)
	robotgo.Click(string(button), double)
	return nil
}

func (s *InputService) DoubleClick(p Point, guard TargetGuard) *Fault {
	return s.Click(p, ButtonLeft, true, guard)
}

func (s *InputService) RightClick(p Point, guard TargetGuard) *Fault {
	return s.Click(p, ButtonRight, false, guard)
}

func (s *InputService) MiddleClick(p Point, guard TargetGuard) *Fault {
	return s.Click(p, ButtonMiddle, false, guard)
}

// Drag moves to start and drags smoothly to end, holding the left
// button for the duration; DragStepMs paces the intermediate settle
// before the button is released.
func (s *InputService) Drag(start, end Point, guard TargetGuard) *Fault {
	if f := guard.check(); f != nil {
		return f
	}
	robotgo.Move(start.X, start.Y)
	time.Sleep(10 * time.Millisecond)
	robotgo.Toggle("left")
	robotgo.MoveSmooth(end.X, end.Y)
	time.Sleep(time.Duration(s.mouseCfg.DragStepMs) * time.Millisecond)
	robotgo.Toggle("left", "up")
	return nil
}

// Scroll scrolls at the current cursor position; positive deltaY
// scrolls down, positive deltaX scrolls right.
func (s *InputService) Scroll(deltaX, deltaY int, guard TargetGuard) *Fault {
	if f := guard.check(); f != nil {
		return f
	}
	robotgo.Scroll(deltaX, deltaY)
	return nil
}

// Position returns the current physical cursor position.
func (s *InputService) Position() Point {
	x, y, _ := winapi.CursorPos()
	return Point{X: x, Y: y}
}

// --- Keyboard ---

// Type splits text into chunks bounded by ChunkSize, inserting
// ChunkDelayMs between chunks; each rune is emitted via Unicode-event
// SendInput synthesis rather than a keyboard-layout-dependent VK
// lookup, so it has no IME dependency.
func (s *InputService) Type(text string, guard TargetGuard) *Fault {
	if f := guard.check(); f != nil {
		return f
	}
	if text == "" {
		return nil
	}
	runes := []rune(text)
	chunkSize := s.kbCfg.ChunkSize
	if chunkSize < 1 {
		chunkSize = 1000
	}
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		for _, r := range runes[start:end] {
			sendUnicodeRune(r)
			time.Sleep(time.Duration(s.kbCfg.InterKeyDelayMs) * time.Millisecond)
		}
		if end < len(runes) {
			time.Sleep(time.Duration(s.kbCfg.ChunkDelayMs) * time.Millisecond)
		}
	}
	return nil
}

func sendUnicodeRune(r rune) {
	w32.SendInput(
		w32.KeyboardInput(w32.KEYBDINPUT{Scan: uint16(r), Flags: w32.KEYEVENTF_UNICODE}),
		w32.KeyboardInput(w32.KEYBDINPUT{Scan: uint16(r), Flags: w32.KEYEVENTF_UNICODE | w32.KEYEVENTF_KEYUP}),
	)
}

// Press is a single down+up of a named key.
func (s *InputService) Press(key string, guard TargetGuard) *Fault {
	if f := guard.check(); f != nil {
		return f
	}
	robotgo.KeyTap(normalizeKeyName(key))
	return nil
}

// KeyDown marks key held and sends the down event; held keys are
// tracked so release_all can clean up after a crashed sequence.
func (s *InputService) KeyDown(key string, guard TargetGuard) *Fault {
	if f := guard.check(); f != nil {
		return f
	}
	key = normalizeKeyName(key)
	robotgo.KeyToggle(key, "down")
	s.heldMu.Lock()
	s.held[key] = true
	s.heldMu.Unlock()
	return nil
}

func (s *InputService) KeyUp(key string, guard TargetGuard) *Fault {
	if f := guard.check(); f != nil {
		return f
	}
	key = normalizeKeyName(key)
	robotgo.KeyToggle(key, "up")
	s.heldMu.Lock()
	delete(s.held, key)
	s.heldMu.Unlock()
	return nil
}

// Combo presses each key down in order, then releases in reverse.
func (s *InputService) Combo(keys []string, guard TargetGuard) *Fault {
	if f := guard.check(); f != nil {
		return f
	}
	pressed := make([]string, 0, len(keys))
	for _, k := range keys {
		k = normalizeKeyName(k)
		robotgo.KeyToggle(k, "down")
		pressed = append(pressed, k)
		time.Sleep(time.Duration(s.kbCfg.InterKeyDelayMs) * time.Millisecond)
	}
	for i := len(pressed) - 1; i >= 0; i-- {
		robotgo.KeyToggle(pressed[i], "up")
	}
	return nil
}

// SequenceStep is one entry of a keyboard.sequence call.
type SequenceStep struct {
	Kind    string // "press", "type", or "combo"
	Key     string
	Text    string
	Keys    []string
	PauseMs int
}

func (s *InputService) Sequence(steps []SequenceStep, guard TargetGuard) *Fault {
	for _, step := range steps {
		var fault *Fault
		switch step.Kind {
		case "press":
			fault = s.Press(step.Key, guard)
		case "type":
			fault = s.Type(step.Text, guard)
		case "combo":
			fault = s.Combo(step.Keys, guard)
		default:
			fault = NewFault(ErrInvalidAction, "unknown sequence step kind %q", step.Kind)
		}
		if fault != nil {
			return fault
		}
		if step.PauseMs > 0 {
			time.Sleep(time.Duration(step.PauseMs) * time.Millisecond)
		}
	}
	return nil
}

// ReleaseAll releases every key in the held-key set.
func (s *InputService) ReleaseAll() {
	s.heldMu.Lock()
	keys := make([]string, 0, len(s.held))
	for k := range s.held {
		keys = append(keys, k)
	}
	s.held = make(map[string]bool)
	s.heldMu.Unlock()

	for _, k := range keys {
		robotgo.KeyToggle(k, "up")
	}
}

// KeyboardLayout describes the active input locale.
type KeyboardLayout struct {
	LocaleID    string
	BCP47Tag    string
	DisplayName string
	PhysicalLayoutName string
}

// GetKeyboardLayout resolves the active input locale: the raw KLID,
// its BCP-47 tag and localized display name via LCIDToLocaleName/
// GetLocaleInfoEx, and the physical layout name Control Panel shows,
// read from the layout's registry entry. Any field Windows can't
// resolve (no mapped LCID, layout not installed locally) is left
// blank rather than failing the whole call.
func (s *InputService) GetKeyboardLayout() KeyboardLayout {
	klid := winapi.KeyboardLayoutID()
	layout := KeyboardLayout{LocaleID: klid}
	if klid == "" {
		return layout
	}

	if localeName, ok := winapi.LocaleNameFromKLID(klid); ok {
		layout.BCP47Tag = localeName
		if displayName, ok := winapi.LocalizedDisplayName(localeName); ok {
			layout.DisplayName = displayName
		}
	}
	if physical, ok := winapi.PhysicalLayoutName(klid); ok {
		layout.PhysicalLayoutName = physical
	}
	return layout
}

func normalizeKeyName(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	switch key {
	case "return":
		return "enter"
	case "esc":
		return "escape"
	case "win", "windows", "super":
		return "cmd"
	default:
		return key
	}
}
