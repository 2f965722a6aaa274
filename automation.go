//go:build windows

package engine

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/windowspilot/engine/internal/config"
	"github.com/windowspilot/engine/internal/registry"
	"github.com/windowspilot/engine/internal/uia"
	"github.com/windowspilot/engine/internal/winapi"
	"github.com/windowspilot/engine/internal/worker"
	"github.com/windowspilot/engine/pkg/logging"
)

// AutomationService implements C6: UIA element discovery and
// interaction. Every COM touch runs inside a worker.Submit closure on
// the automation worker's locked thread; everything else (timeouts,
// polling, mouse fallback) runs on the caller's goroutine.
type AutomationService struct {
	cfg      config.WorkerConfig
	worker   *worker.Worker
	registry *registry.Registry
	input    *InputService
	log      *logging.Logger
}

func NewAutomationService(cfg config.WorkerConfig, w *worker.Worker, reg *registry.Registry, input *InputService, log *logging.Logger) *AutomationService {
	return &AutomationService{cfg: cfg, worker: w, registry: reg, input: input, log: log.WithPrefix("automation")}
}

func (s *AutomationService) timeoutCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.OperationTimeoutMs <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, time.Duration(s.cfg.OperationTimeoutMs)*time.Millisecond)
}

// asFault normalizes the error worker.Submit returns (a *Fault from
// the job itself, or a context error) into the engine's one failure
// type.
func asFault(err error) *Fault {
	if err == nil {
		return nil
	}
	if f, ok := err.(*Fault); ok {
		return f
	}
	switch err {
	case context.DeadlineExceeded:
		return NewFault(ErrTimeout, "operation timed out")
	case context.Canceled:
		return NewFault(ErrCancelled, "operation cancelled")
	default:
		return NewFault(ErrSystem, "%v", err)
	}
}

func toggleStateFromInt(v int32) ToggleState {
	switch v {
	case 0:
		return ToggleOff
	case 1:
		return ToggleOn
	default:
		return ToggleIndeterminate
	}
}

// detectFrameworkDepth inspects the root's native class name and picks
// a default tree-walk depth: Chromium/Electron and WPF/WinUI trees run
// many layers deeper than a plain Win32 dialog before anything
// interactable shows up.
func detectFrameworkDepth(root *uia.Element) (string, int) {
	class := root.ClassName()
	switch {
	case strings.Contains(class, "Chrome"), strings.Contains(class, "MozillaWindowClass"), strings.Contains(class, "Electron"):
		return "chromium_or_electron", 40
	case strings.Contains(class, "ApplicationFrameWindow"), strings.Contains(class, "Windows.UI"):
		return "winui_uwp", 30
	case strings.Contains(class, "HwndWrapper"):
		return "wpf", 25
	case strings.Contains(class, "WindowsForms"):
		return "winforms", 15
	default:
		return "win32", 20
	}
}

// resolveRoot implements step 1 of the resolution algorithm: parent
// element if given, else the named window, else the foreground
// window. It also returns the native window handle the root (or the
// registered parent) belongs to, for registry bookkeeping.
func (s *AutomationService) resolveRoot(client *uia.Client, q ElementQuery) (*uia.Element, uintptr, *Fault) {
	if q.ParentElementID != "" {
		el, ok := s.registry.Lookup(string(q.ParentElementID))
		if !ok {
			return nil, 0, NewFault(ErrElementStale, "parent element %q is not registered or has been dropped", q.ParentElementID)
		}
		if !el.Alive() {
			s.registry.Drop(string(q.ParentElementID))
			return nil, 0, NewFault(ErrElementStale, "parent element %q is no longer alive", q.ParentElementID)
		}
		wh, _ := s.registry.LookupWindow(string(q.ParentElementID))
		return el, wh, nil
	}

	var hwnd uintptr
	if q.WindowHandle != 0 {
		w, ok := findHWND(q.WindowHandle)
		if !ok {
			return nil, 0, NewFault(ErrWindowNotFound, "window %d not found", q.WindowHandle)
		}
		hwnd = w.Uintptr()
	} else {
		fg := winapi.Foreground()
		if !fg.Valid() {
			return nil, 0, NewFault(ErrWindowNotFound, "no foreground window to search")
		}
		hwnd = fg.Uintptr()
	}

	root, err := client.ElementFromWindow(hwnd)
	if err != nil || root == nil {
		return nil, 0, NewFault(ErrWindowNotFound, "resolving root UIA element for window %d: %v", hwnd, err)
	}
	return root, hwnd, nil
}

// walk is the breadth-first tree walker used whenever a query can't be
// answered by one of UIA's own property-condition finders (a
// name_contains/name_pattern filter, or no filter at all). It returns
// every node up to maxDepth, caller-owned; unused nodes must be
// Released by the caller.
func (s *AutomationService) walk(client *uia.Client, root *uia.Element, maxDepth int) []*uia.Element {
	type walkNode struct {
		el    *uia.Element
		depth int
	}
	out := []*uia.Element{root}
	queue := []walkNode{{root, 0}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.depth >= maxDepth {
			continue
		}
		children, err := client.Children(n.el)
		if err != nil {
			continue
		}
		for _, c := range children {
			out = append(out, c)
			queue = append(queue, walkNode{c, n.depth + 1})
		}
	}
	return out
}

// queryElements resolves an ElementQuery against root, preferring the
// UIA condition-based finders (cheaper, server-side) when the query
// shape allows it and falling back to a client-side BFS walk for
// name_contains/name_pattern/no-filter queries.
func (s *AutomationService) queryElements(client *uia.Client, root *uia.Element, maxDepth int, q ElementQuery, namePattern *regexp.Regexp) ([]*uia.Element, error) {
	matchesControlType := func(el *uia.Element) bool {
		return q.ControlType == "" || uia.ControlTypeName(el.ControlType()) == q.ControlType
	}

	switch {
	case q.AutomationID != "" && q.Name == "":
		el, err := client.FindByAutomationID(root, q.AutomationID)
		if err != nil || el == nil {
			return nil, err
		}
		if !matchesControlType(el) {
			el.Release()
			return nil, nil
		}
		return []*uia.Element{el}, nil

	case q.Name != "":
		el, err := client.FindByName(root, q.Name)
		if err != nil || el == nil {
			return nil, err
		}
		if !matchesControlType(el) {
			el.Release()
			return nil, nil
		}
		return []*uia.Element{el}, nil

	case q.ControlType != "" && q.NameContains == "" && q.NamePattern == "":
		ct := uia.ControlTypeID(q.ControlType)
		if ct == 0 {
			return nil, nil
		}
		return client.FindAllByControlType(root, ct)

	default:
		candidates := s.walk(client, root, maxDepth)
		var out []*uia.Element
		for _, el := range candidates {
			if el == root {
				el.Release()
				continue
			}
			if !matchesControlType(el) {
				el.Release()
				continue
			}
			if q.NameContains != "" && !strings.Contains(strings.ToLower(el.Name()), strings.ToLower(q.NameContains)) {
				el.Release()
				continue
			}
			if namePattern != nil && !namePattern.MatchString(el.Name()) {
				el.Release()
				continue
			}
			out = append(out, el)
		}
		return out, nil
	}
}

// describeElement builds the wire ElementInfo for el, which must
// already be registered under id.
func (s *AutomationService) describeElement(el *uia.Element, id ElementID, vs VirtualScreen) ElementInfo {
	x, y, w, h := el.BoundingRect()
	bounds := Rect{X: x, Y: y, Width: w, Height: h}
	center := bounds.Center()
	monIdx := MonitorForPoint(vs, center)
	var monRect Rect
	if monIdx >= 0 {
		monRect = vs.Monitors[monIdx].LogicalRect
	}

	info := ElementInfo{
		ID:                id,
		AutomationID:      el.AutomationID(),
		Name:              el.Name(),
		ControlType:       uia.ControlTypeName(el.ControlType()),
		Bounds:            bounds,
		MonitorRect:       monRect,
		MonitorIndex:      monIdx,
		ClickablePoint:    [3]int{center.X, center.Y, monIdx},
		SupportedPatterns: el.SupportedPatternNames(),
		Enabled:           el.IsEnabled(),
		Offscreen:         el.IsOffscreen(),
	}
	if v, err := el.Value(); err == nil {
		info.Value = v
	}
	if ts, err := el.ToggleState(); err == nil {
		state := toggleStateFromInt(ts)
		info.ToggleState = &state
	}
	return info
}

// Find implements the find operation and the whole resolution
// algorithm: root selection, framework-based depth, name-matching
// priority, prominence sort, found_index/cap.
func (s *AutomationService) Find(ctx context.Context, q ElementQuery) ([]ElementInfo, *Fault) {
	var namePattern *regexp.Regexp
	if q.NamePattern != "" {
		re, err := regexp.Compile(q.NamePattern)
		if err != nil {
			return nil, NewFault(ErrInvalidRegex, "invalid name_pattern %q: %v", q.NamePattern, err)
		}
		namePattern = re
	}

	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()

	value, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		root, hwnd, fault := s.resolveRoot(client, q)
		if fault != nil {
			return nil, fault
		}
		_, maxDepth := detectFrameworkDepth(root)

		matched, qerr := s.queryElements(client, root, maxDepth, q, namePattern)
		root.Release()
		if qerr != nil {
			return nil, NewFault(ErrSystem, "find: %v", qerr)
		}

		if q.SortByProminence {
			sort.SliceStable(matched, func(i, j int) bool {
				_, _, wi, hi := matched[i].BoundingRect()
				_, _, wj, hj := matched[j].BoundingRect()
				return wi*hi > wj*hj
			})
		}

		if q.FoundIndex > 0 {
			if q.FoundIndex > len(matched) {
				for _, el := range matched {
					el.Release()
				}
				return nil, NewFault(ErrElementNotFound, "found_index %d exceeds %d matches", q.FoundIndex, len(matched))
			}
			chosen := matched[q.FoundIndex-1]
			for i, el := range matched {
				if i != q.FoundIndex-1 {
					el.Release()
				}
			}
			matched = []*uia.Element{chosen}
		} else if q.Cap > 0 && len(matched) > q.Cap {
			for _, el := range matched[q.Cap:] {
				el.Release()
			}
			matched = matched[:q.Cap]
		}

		vs := EnumerateMonitors()
		infos := make([]ElementInfo, 0, len(matched))
		for _, el := range matched {
			id := ElementID(s.registry.Insert(el, hwnd))
			infos = append(infos, s.describeElement(el, id, vs))
		}
		return infos, nil
	})
	if err != nil {
		return nil, asFault(err)
	}
	if value == nil {
		return nil, nil
	}
	return value.([]ElementInfo), nil
}

func (s *AutomationService) lookupElement(id ElementID) (*uia.Element, *Fault) {
	el, ok := s.registry.Lookup(string(id))
	if !ok {
		return nil, NewFault(ErrElementStale, "element %q is not registered or has been dropped", id)
	}
	if !el.Alive() {
		s.registry.Drop(string(id))
		return nil, NewFault(ErrElementStale, "element %q is no longer alive", id)
	}
	return el, nil
}

// Describe re-snapshots a registered element, used after every
// mutating operation to report fresh state without a second find.
func (s *AutomationService) Describe(ctx context.Context, id ElementID) (ElementInfo, *Fault) {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()
	value, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		el, fault := s.lookupElement(id)
		if fault != nil {
			return nil, fault
		}
		return s.describeElement(el, id, EnumerateMonitors()), nil
	})
	if err != nil {
		return ElementInfo{}, asFault(err)
	}
	return value.(ElementInfo), nil
}

// Invoke implements click/invoke: prefer the Invoke pattern, then fall
// back to the pattern-appropriate primary action for elements that
// don't expose Invoke (list items select, menu parents expand).
func (s *AutomationService) Invoke(ctx context.Context, id ElementID) (ElementInfo, *Fault) {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()
	_, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		el, fault := s.lookupElement(id)
		if fault != nil {
			return nil, fault
		}
		if err := el.Invoke(); err == nil {
			return nil, nil
		}
		if err := el.Select(); err == nil {
			return nil, nil
		}
		if err := el.Expand(); err == nil {
			return nil, nil
		}
		return nil, NewFault(ErrPatternNotSupported, "element %q supports no invoke-equivalent pattern", id)
	})
	if err != nil {
		return ElementInfo{}, asFault(err)
	}
	return s.Describe(ctx, id)
}

// Click is an alias of Invoke; the wire protocol exposes both names
// for the same operation.
func (s *AutomationService) Click(ctx context.Context, id ElementID) (ElementInfo, *Fault) {
	return s.Invoke(ctx, id)
}

// DoubleClick uses the Invoke pattern if present, else synthesizes a
// real mouse double-click at the element's clickable point through C5.
func (s *AutomationService) DoubleClick(ctx context.Context, id ElementID, guard TargetGuard) (ElementInfo, *Fault) {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()

	type probe struct {
		invoked bool
		point   Point
	}
	raw, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		el, fault := s.lookupElement(id)
		if fault != nil {
			return nil, fault
		}
		if err := el.Invoke(); err == nil {
			return probe{invoked: true}, nil
		}
		x, y, w, h := el.BoundingRect()
		return probe{point: Rect{X: x, Y: y, Width: w, Height: h}.Center()}, nil
	})
	if err != nil {
		return ElementInfo{}, asFault(err)
	}
	p := raw.(probe)
	if !p.invoked {
		if f := s.input.DoubleClick(p.point, guard); f != nil {
			return ElementInfo{}, f
		}
	}
	return s.Describe(ctx, id)
}

// Type focuses the element, optionally clears its Value first, then
// emits the text through C5's Unicode-event synthesis.
func (s *AutomationService) Type(ctx context.Context, id ElementID, text string, clearFirst bool, guard TargetGuard) (ElementInfo, *Fault) {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()
	_, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		el, fault := s.lookupElement(id)
		if fault != nil {
			return nil, fault
		}
		if clearFirst {
			if _, verr := el.Value(); verr == nil {
				el.SetValue("")
			}
		}
		if ferr := el.SetFocus(); ferr != nil {
			return nil, NewFault(ErrFocusFailed, "SetFocus on element %q: %v", id, ferr)
		}
		return nil, nil
	})
	if err != nil {
		return ElementInfo{}, asFault(err)
	}
	if f := s.input.Type(text, guard); f != nil {
		return ElementInfo{}, f
	}
	return s.Describe(ctx, id)
}

// Focus calls SetFocus, refusing to cross from an unelevated caller
// into an elevated target window.
func (s *AutomationService) Focus(ctx context.Context, id ElementID) (ElementInfo, *Fault) {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()
	_, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		el, fault := s.lookupElement(id)
		if fault != nil {
			return nil, fault
		}
		wh, _ := s.registry.LookupWindow(string(id))
		w := winapi.WindowFromHandle(wh)
		if elevated, _ := winapi.IsProcessElevated(w.ProcessID()); elevated && !winapi.CurrentProcessIsElevated() {
			return nil, NewFault(ErrCrossElevation, "element %q belongs to an elevated window", id)
		}
		if ferr := el.SetFocus(); ferr != nil {
			return nil, NewFault(ErrFocusFailed, "SetFocus failed for element %q: %v", id, ferr)
		}
		return nil, nil
	})
	if err != nil {
		return ElementInfo{}, asFault(err)
	}
	return s.Describe(ctx, id)
}

// GetText returns the Value pattern's value, else the accessible name.
// A dedicated Text-pattern range read is not wired: no example in the
// retrieved pack exercises TextPattern, and Value-then-Name already
// covers the overwhelming majority of editable and static controls.
func (s *AutomationService) GetText(ctx context.Context, id ElementID) (string, *Fault) {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()
	value, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		el, fault := s.lookupElement(id)
		if fault != nil {
			return nil, fault
		}
		if v, verr := el.Value(); verr == nil {
			return v, nil
		}
		return el.Name(), nil
	})
	if err != nil {
		return "", asFault(err)
	}
	return value.(string), nil
}

// Toggle invokes TogglePattern.Toggle once and reports previous and
// current state.
func (s *AutomationService) Toggle(ctx context.Context, id ElementID) (prev, current ToggleState, fault *Fault) {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()
	type toggleResult struct{ prev, current ToggleState }
	value, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		el, f := s.lookupElement(id)
		if f != nil {
			return nil, f
		}
		before, terr := el.ToggleState()
		if terr != nil {
			return nil, NewFault(ErrPatternNotSupported, "element %q does not support Toggle", id)
		}
		if terr := el.Toggle(); terr != nil {
			return nil, NewFault(ErrPatternNotSupported, "Toggle failed for element %q: %v", id, terr)
		}
		after, _ := el.ToggleState()
		return toggleResult{prev: toggleStateFromInt(before), current: toggleStateFromInt(after)}, nil
	})
	if err != nil {
		return "", "", asFault(err)
	}
	r := value.(toggleResult)
	return r.prev, r.current, nil
}

// EnsureState is the atomic find-then-check-then-click replacement:
// it reads current state first and only toggles when it differs from
// desired.
func (s *AutomationService) EnsureState(ctx context.Context, id ElementID, desired ToggleState) (prev, current ToggleState, alreadyInState bool, fault *Fault) {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()
	type ensureResult struct {
		prev, current ToggleState
		already       bool
	}
	value, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		el, f := s.lookupElement(id)
		if f != nil {
			return nil, f
		}
		before, terr := el.ToggleState()
		if terr != nil {
			return nil, NewFault(ErrPatternNotSupported, "element %q does not support Toggle", id)
		}
		beforeState := toggleStateFromInt(before)
		if beforeState == desired {
			return ensureResult{prev: beforeState, current: beforeState, already: true}, nil
		}
		if terr := el.Toggle(); terr != nil {
			return nil, NewFault(ErrPatternNotSupported, "Toggle failed for element %q: %v", id, terr)
		}
		after, _ := el.ToggleState()
		return ensureResult{prev: beforeState, current: toggleStateFromInt(after), already: false}, nil
	})
	if err != nil {
		return "", "", false, asFault(err)
	}
	r := value.(ensureResult)
	return r.prev, r.current, r.already, nil
}

// ScrollIntoView calls ScrollItemPattern.ScrollIntoView, which UIA
// providers implement by walking their own ancestor chain to the
// nearest scrollable container; no client-side ancestor walk is
// needed.
func (s *AutomationService) ScrollIntoView(ctx context.Context, id ElementID) *Fault {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()
	_, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		el, fault := s.lookupElement(id)
		if fault != nil {
			return nil, fault
		}
		if serr := el.ScrollIntoView(); serr != nil {
			return nil, NewFault(ErrPatternNotSupported, "element %q does not support ScrollItem: %v", id, serr)
		}
		return nil, nil
	})
	return asFault(err)
}

// WaitFor polls Find at 100ms until it gets a first match or times out.
func (s *AutomationService) WaitFor(ctx context.Context, q ElementQuery, timeoutMs int) (ElementInfo, *Fault) {
	if timeoutMs <= 0 {
		timeoutMs = s.cfg.WaitForTimeoutMs
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	q.Cap = 1

	for {
		matches, fault := s.Find(ctx, q)
		if fault != nil && fault.Kind != ErrElementNotFound && fault.Kind != ErrWindowNotFound {
			return ElementInfo{}, fault
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
		if time.Now().After(deadline) {
			return ElementInfo{}, NewFault(ErrTimeout, "timed out waiting for element matching query")
		}
		select {
		case <-ctx.Done():
			return ElementInfo{}, NewFault(ErrCancelled, "wait_for cancelled")
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// WaitForState polls an element's toggle state until it matches
// desired or times out, reporting the last observed state.
func (s *AutomationService) WaitForState(ctx context.Context, id ElementID, desired ToggleState, timeoutMs int) (ToggleState, *Fault) {
	if timeoutMs <= 0 {
		timeoutMs = s.cfg.WaitForTimeoutMs
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	var last ToggleState

	for {
		inner, cancel := s.timeoutCtx(ctx)
		value, err := s.worker.Submit(inner, func(client *uia.Client) (interface{}, error) {
			el, f := s.lookupElement(id)
			if f != nil {
				return nil, f
			}
			state, terr := el.ToggleState()
			if terr != nil {
				return nil, NewFault(ErrPatternNotSupported, "element %q does not support Toggle", id)
			}
			return toggleStateFromInt(state), nil
		})
		cancel()
		if err != nil {
			return last, asFault(err)
		}
		last = value.(ToggleState)
		if last == desired {
			return last, nil
		}
		if time.Now().After(deadline) {
			return last, NewFault(ErrTimeout, "timed out waiting for element %q to reach state %q", id, desired).WithState(string(last))
		}
		select {
		case <-ctx.Done():
			return last, NewFault(ErrCancelled, "wait_for_state cancelled")
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// WaitForDisappear succeeds once the element is no longer live or its
// owning window no longer exists.
func (s *AutomationService) WaitForDisappear(ctx context.Context, id ElementID, timeoutMs int) *Fault {
	if timeoutMs <= 0 {
		timeoutMs = s.cfg.WaitForTimeoutMs
	}
	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)

	for {
		if wh, ok := s.registry.LookupWindow(string(id)); ok {
			if !windowExists(winapi.WindowFromHandle(wh)) {
				s.worker.Submit(ctx, func(*uia.Client) (interface{}, error) {
					s.registry.Drop(string(id))
					return nil, nil
				})
				return nil
			}
		}

		inner, cancel := s.timeoutCtx(ctx)
		alive, err := s.worker.Submit(inner, func(client *uia.Client) (interface{}, error) {
			el, found := s.registry.Lookup(string(id))
			if !found {
				return false, nil
			}
			if !el.Alive() {
				s.registry.Drop(string(id))
				return false, nil
			}
			return true, nil
		})
		cancel()
		if err != nil {
			return asFault(err)
		}
		if !alive.(bool) {
			return nil
		}
		if time.Now().After(deadline) {
			return NewFault(ErrTimeout, "timed out waiting for element %q to disappear", id)
		}
		select {
		case <-ctx.Done():
			return NewFault(ErrCancelled, "wait_for_disappear cancelled")
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// buildTree recursively registers and describes el and its children up
// to maxDepth, optionally dropping whole subtrees whose root fails
// controlTypeFilter.
func (s *AutomationService) buildTree(client *uia.Client, el *uia.Element, windowHandle uintptr, depth, maxDepth int, controlTypeFilter string, vs VirtualScreen, actualDepth *int) ElementTree {
	if depth > *actualDepth {
		*actualDepth = depth
	}
	id := ElementID(s.registry.Insert(el, windowHandle))
	node := ElementTree{Element: s.describeElement(el, id, vs)}
	if depth >= maxDepth {
		return node
	}
	children, err := client.Children(el)
	if err != nil {
		return node
	}
	for _, c := range children {
		if controlTypeFilter != "" && uia.ControlTypeName(c.ControlType()) != controlTypeFilter {
			c.Release()
			continue
		}
		node.Children = append(node.Children, s.buildTree(client, c, windowHandle, depth+1, maxDepth, controlTypeFilter, vs, actualDepth))
	}
	return node
}

// GetTree returns a compact, fully-registered tree for exploratory
// inspection, along with the framework/depth diagnostics the operation
// promises.
func (s *AutomationService) GetTree(ctx context.Context, windowHandle WindowHandle, parentElementID ElementID, maxDepth int, controlTypeFilter string) (TreeResult, *Fault) {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()
	value, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		root, hwnd, fault := s.resolveRoot(client, ElementQuery{WindowHandle: windowHandle, ParentElementID: parentElementID})
		if fault != nil {
			return nil, fault
		}
		framework, defaultDepth := detectFrameworkDepth(root)
		effectiveDepth := defaultDepth
		if maxDepth > 0 {
			effectiveDepth = maxDepth
		}
		vs := EnumerateMonitors()
		actual := 0
		tree := s.buildTree(client, root, hwnd, 0, effectiveDepth, controlTypeFilter, vs, &actual)
		return TreeResult{Tree: tree, DetectedFramework: framework, MaxDepthUsed: effectiveDepth, ActualDepthReached: actual}, nil
	})
	if err != nil {
		return TreeResult{}, asFault(err)
	}
	return value.(TreeResult), nil
}

// interactiveControlTypes names the canonical set capture_annotated
// numbers by control type even when the element carries none of the
// interactive patterns (plain static labels inside a button chrome,
// for instance, still read as Button).
var interactiveControlTypes = map[string]bool{
	"Button": true, "Edit": true, "ListItem": true, "CheckBox": true,
	"Hyperlink": true, "MenuItem": true, "Tab": true, "TabItem": true,
	"RadioButton": true, "ComboBox": true,
}

func isInteractive(el *uia.Element) bool {
	if interactiveControlTypes[uia.ControlTypeName(el.ControlType())] {
		return true
	}
	for _, p := range el.SupportedPatternNames() {
		switch p {
		case "Invoke", "Toggle", "Value", "SelectionItem":
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// collectAnnotatable walks windowHandle's tree and returns every
// element capture_annotated should badge, in tree-walk order;
// CaptureAnnotated sorts them into reading order.
func (s *AutomationService) collectAnnotatable(ctx context.Context, windowHandle WindowHandle, interactiveOnly bool) ([]ElementInfo, *Fault) {
	ctx, cancel := s.timeoutCtx(ctx)
	defer cancel()
	value, err := s.worker.Submit(ctx, func(client *uia.Client) (interface{}, error) {
		root, hwnd, fault := s.resolveRoot(client, ElementQuery{WindowHandle: windowHandle})
		if fault != nil {
			return nil, fault
		}
		_, maxDepth := detectFrameworkDepth(root)
		nodes := s.walk(client, root, maxDepth)
		vs := EnumerateMonitors()

		var infos []ElementInfo
		for _, el := range nodes {
			if el == root {
				el.Release()
				continue
			}
			if interactiveOnly && !isInteractive(el) {
				el.Release()
				continue
			}
			id := ElementID(s.registry.Insert(el, hwnd))
			infos = append(infos, s.describeElement(el, id, vs))
		}
		return infos, nil
	})
	if err != nil {
		return nil, asFault(err)
	}
	return value.([]ElementInfo), nil
}

// CaptureAnnotated implements capture_annotated: capture the window
// through C7, number its interactable elements in reading order, and
// overlay the badges on the screenshot.
func (s *AutomationService) CaptureAnnotated(ctx context.Context, capture *CaptureService, windowHandle WindowHandle, interactiveOnly bool, outputPath string, returnImageData bool) (AnnotatedCapture, *Fault) {
	infos, fault := s.collectAnnotatable(ctx, windowHandle, interactiveOnly)
	if fault != nil {
		return AnnotatedCapture{}, fault
	}

	const rowTolerance = 10
	sort.SliceStable(infos, func(i, j int) bool {
		bi, bj := infos[i].Bounds, infos[j].Bounds
		if abs(bi.Y-bj.Y) > rowTolerance {
			return bi.Y < bj.Y
		}
		return bi.X < bj.X
	})

	compact := make([]CompactElement, 0, len(infos))
	for i, info := range infos {
		compact = append(compact, CompactElement{
			Index:        i + 1,
			Name:         info.Name,
			Type:         info.ControlType,
			ID:           info.ID,
			Click:        info.ClickablePoint,
			AutomationID: info.AutomationID,
			Value:        info.Value,
			ToggleState:  info.ToggleState,
		})
	}

	req := CaptureRequest{Target: CaptureTargetWindow, WindowHandle: windowHandle}
	switch {
	case outputPath != "":
		req.OutputMode, req.OutputPath = OutputFile, outputPath
	case returnImageData:
		req.OutputMode = OutputInlineBase64
	default:
		req.OutputMode = OutputFile
	}

	// The window capture's pixel origin is the window's own top-left
	// corner, so badge positions are shifted from screen coordinates.
	badges := compact
	if w, ok := findHWND(windowHandle); ok {
		wx, wy, _, _ := w.RawBounds()
		badges = make([]CompactElement, len(compact))
		for i, c := range compact {
			c.Click[0], c.Click[1] = c.Click[0]-wx, c.Click[1]-wy
			badges[i] = c
		}
	}
	shot, capFault := capture.CaptureWithAnnotations(req, badges)
	if capFault != nil {
		return AnnotatedCapture{}, capFault
	}
	return AnnotatedCapture{Screenshot: shot, Elements: compact}, nil
}

// OCRElement renders the element's own rectangle through C7 and runs
// it through the OS text-recognition path (wired via Tesseract
// bindings; a neural OCR engine is a drop-in performance variant with
// the same contract and is not wired here since nothing in the
// retrieved pack depends on one).
func (s *AutomationService) OCRElement(ctx context.Context, capture *CaptureService, id ElementID) (string, *Fault) {
	info, fault := s.Describe(ctx, id)
	if fault != nil {
		return "", fault
	}
	if info.Bounds.IsEmpty() {
		return "", NewFault(ErrInvalidCoordinates, "element %q has an empty bounding rectangle", id)
	}
	img, capFault := capture.Capture(CaptureRequest{
		Target:     CaptureTargetRegion,
		Region:     info.Bounds,
		Format:     FormatPNG,
		OutputMode: OutputInlineBase64,
	})
	if capFault != nil {
		return "", capFault
	}
	text, err := recognizeText(img.ImageBase64)
	if err != nil {
		return "", NewFault(ErrSystem, "OCR on element %q: %v", id, err)
	}
	return text, nil
}
