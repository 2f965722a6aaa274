//go:build windows

// Package uia wraps the Windows UI Automation COM interfaces used by
// the automation worker (C2) and the element registry (C3). UIA is a
// pure vtable COM interface, not IDispatch, so every call here goes
// through a raw vtable-offset syscall; class and interface GUIDs are
// plain literal structs rather than a parsed-string helper, since the
// handful this package needs are all known at compile time.
//
// Every exported method here must run on the automation worker's
// locked OS thread: IUIAutomation instances are apartment-threaded and
// calling across threads silently corrupts the COM proxy.
package uia

import (
	"fmt"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/windowspilot/engine/internal/winapi"
)

var (
	cID_CUIAutomation = &guid{0xff48dba4, 0x60ef, 0x4201, [8]byte{0xaa, 0x87, 0x54, 0x10, 0x3e, 0xef, 0x59, 0x4e}}
	iID_IUIAutomation = &guid{0x30cbe57d, 0xd9d0, 0x452a, [8]byte{0xab, 0x13, 0x7a, 0xc5, 0xac, 0x48, 0x25, 0xee}}
)

type guid struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// IUnknown and IUIAutomation vtable offsets.
const (
	ofQueryInterface = 0
	ofAddRef         = 1
	ofRelease        = 2

	ofGetRootElement             = 5
	ofElementFromHandle          = 6
	ofElementFromPoint           = 7
	ofGetFocusedElement          = 8
	ofCreatePropertyCondition    = 23
	ofCreateAndCondition         = 25
)

// IUIAutomationElement vtable offsets.
const (
	ofSetFocus                    = 3
	ofFindFirst                   = 5
	ofFindAll                     = 6
	ofGetCurrentPropertyValue     = 10
	ofGetCurrentPattern           = 16
	ofGetCurrentControlType       = 21
	ofGetCurrentName              = 23
	ofGetCurrentIsEnabled         = 28
	ofGetCurrentAutomationId      = 29
	ofGetCurrentClassName         = 30
	ofGetCurrentIsOffscreen       = 38
	ofGetCurrentBoundingRectangle = 43
)

// Control type IDs, matching the UIA_*ControlTypeId values Microsoft
// documents; only the ones the engine maps to a wire control_type name
// are listed.
const (
	ControlButton       = 50000
	ControlCalendar     = 50001
	ControlCheckBox     = 50002
	ControlComboBox     = 50003
	ControlEdit         = 50004
	ControlHyperlink    = 50005
	ControlImage        = 50006
	ControlListItem     = 50007
	ControlList         = 50008
	ControlMenu         = 50009
	ControlMenuBar      = 50010
	ControlMenuItem     = 50011
	ControlProgressBar  = 50012
	ControlRadioButton  = 50013
	ControlScrollBar    = 50014
	ControlSlider       = 50015
	ControlSpinner      = 50016
	ControlStatusBar    = 50017
	ControlTab          = 50018
	ControlTabItem      = 50019
	ControlText         = 50020
	ControlToolBar      = 50021
	ControlToolTip      = 50022
	ControlTree         = 50023
	ControlTreeItem     = 50024
	ControlCustom       = 50025
	ControlGroup        = 50026
	ControlDocument     = 50030
	ControlWindow       = 50032
	ControlPane         = 50033
	ControlTable        = 50036
	ControlTitleBar     = 50037
	ControlSeparator    = 50038
	ControlDataItem     = 50029
	ControlHeaderItem   = 50035
)

var controlTypeNames = map[int32]string{
	ControlButton: "Button", ControlCalendar: "Calendar", ControlCheckBox: "CheckBox",
	ControlComboBox: "ComboBox", ControlEdit: "Edit", ControlHyperlink: "Hyperlink",
	ControlImage: "Image", ControlListItem: "ListItem", ControlList: "List",
	ControlMenu: "Menu", ControlMenuBar: "MenuBar", ControlMenuItem: "MenuItem",
	ControlProgressBar: "ProgressBar", ControlRadioButton: "RadioButton",
	ControlScrollBar: "ScrollBar", ControlSlider: "Slider", ControlSpinner: "Spinner",
	ControlStatusBar: "StatusBar", ControlTab: "Tab", ControlTabItem: "TabItem",
	ControlText: "Text", ControlToolBar: "ToolBar", ControlToolTip: "ToolTip",
	ControlTree: "Tree", ControlTreeItem: "TreeItem", ControlCustom: "Custom",
	ControlGroup: "Group", ControlDocument: "Document", ControlWindow: "Window",
	ControlPane: "Pane", ControlTable: "Table", ControlTitleBar: "TitleBar",
	ControlSeparator: "Separator", ControlDataItem: "DataItem", ControlHeaderItem: "HeaderItem",
}

// ControlTypeName maps a raw UIA control type id to the wire name the
// engine reports; unknown ids fall back to "Custom".
func ControlTypeName(id int32) string {
	if name, ok := controlTypeNames[id]; ok {
		return name
	}
	return "Custom"
}

var nameToControlType map[string]int32

func init() {
	nameToControlType = make(map[string]int32, len(controlTypeNames))
	for id, name := range controlTypeNames {
		nameToControlType[name] = id
	}
}

// ControlTypeID is the reverse of ControlTypeName, used to turn a
// query's control_type string into the property-condition value
// FindAllByControlType needs. Returns 0 (no match) for an unknown name.
func ControlTypeID(name string) int32 {
	return nameToControlType[name]
}

// Property IDs used by FindFirst conditions.
const (
	PropertyAutomationID = 30011
	PropertyName         = 30005
	PropertyControlType  = 30003
)

// TreeScope flags.
const (
	ScopeElement     = 1
	ScopeChildren    = 2
	ScopeDescendants = 4
	ScopeSubtree     = ScopeElement | ScopeDescendants
)

// Pattern IDs.
const (
	PatternInvoke         = 10000
	PatternSelectionItem  = 10010
	PatternValue          = 10002
	PatternExpandCollapse = 10005
	PatternToggle         = 10015
	PatternScrollItem     = 10017
)

const (
	coinitApartmentThreaded = 0x2
	clsctxInprocServer      = 0x1
)

var (
	ole32    = syscall.NewLazyDLL("ole32.dll")
	oleaut32 = syscall.NewLazyDLL("oleaut32.dll")

	procCoInitializeEx   = ole32.NewProc("CoInitializeEx")
	procCoUninitialize   = ole32.NewProc("CoUninitialize")
	procCoCreateInstance = ole32.NewProc("CoCreateInstance")
	procSysFreeString    = oleaut32.NewProc("SysFreeString")
)

func callN(obj uintptr, offset uintptr, args ...uintptr) (uintptr, error) {
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Pointer(vtbl + offset*unsafe.Sizeof(uintptr(0))))
	full := append([]uintptr{obj}, args...)
	hr, _, _ := syscall.SyscallN(fn, full...)
	if hr != 0 {
		return 0, fmt.Errorf("hresult 0x%x", uint32(hr))
	}
	return hr, nil
}

func release(obj uintptr) {
	if obj == 0 {
		return
	}
	vtbl := *(*uintptr)(unsafe.Pointer(obj))
	syscall.SyscallN(*(*uintptr)(unsafe.Pointer(vtbl + ofRelease*unsafe.Sizeof(uintptr(0)))), obj)
}

func bstrToString(bstr uintptr) string {
	if bstr == 0 {
		return ""
	}
	length := *(*uint32)(unsafe.Pointer(bstr - 4))
	if length == 0 {
		return ""
	}
	chars := length / 2
	buf := make([]uint16, chars)
	for i := uint32(0); i < chars; i++ {
		buf[i] = *(*uint16)(unsafe.Pointer(bstr + uintptr(i*2)))
	}
	return syscall.UTF16ToString(buf)
}

// Client owns one IUIAutomation COM instance and the OS thread it was
// created on. The automation worker creates exactly one Client for its
// lifetime and never shares it across goroutines.
type Client struct {
	mu         sync.Mutex
	automation uintptr
	threadLocked bool
}

// NewClient locks the calling goroutine to its OS thread, initializes
// COM in STA mode, and instantiates the root IUIAutomation object. It
// must be called from the goroutine that will make every subsequent
// UIA call for the lifetime of the returned Client.
func NewClient() (*Client, error) {
	runtime.LockOSThread()
	c := &Client{threadLocked: true}

	hr, _, _ := procCoInitializeEx.Call(0, coinitApartmentThreaded)
	if hr != 0 && hr != 1 {
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("CoInitializeEx: 0x%x", uint32(hr))
	}

	var automation uintptr
	hr, _, _ = procCoCreateInstance.Call(
		uintptr(unsafe.Pointer(cID_CUIAutomation)), 0, clsctxInprocServer,
		uintptr(unsafe.Pointer(iID_IUIAutomation)), uintptr(unsafe.Pointer(&automation)),
	)
	if hr != 0 || automation == 0 {
		procCoUninitialize.Call()
		runtime.UnlockOSThread()
		return nil, fmt.Errorf("CoCreateInstance(CUIAutomation): 0x%x", uint32(hr))
	}
	c.automation = automation
	return c, nil
}

// Close releases the automation root and tears down COM on this
// thread. It must run on the same goroutine NewClient ran on.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.automation != 0 {
		release(c.automation)
		c.automation = 0
	}
	procCoUninitialize.Call()
	if c.threadLocked {
		runtime.UnlockOSThread()
		c.threadLocked = false
	}
}

// Element wraps one live IUIAutomationElement reference. Call Release
// exactly once when the owning registry entry is dropped.
type Element struct {
	ptr uintptr
}

func wrapElement(ptr uintptr) *Element {
	if ptr == 0 {
		return nil
	}
	return &Element{ptr: ptr}
}

// Release calls IUnknown::Release. Safe to call on a nil Element.
func (e *Element) Release() {
	if e == nil || e.ptr == 0 {
		return
	}
	release(e.ptr)
	e.ptr = 0
}

func (e *Element) valid() bool { return e != nil && e.ptr != 0 }

// ElementFromWindow wraps the top-level window hwnd as a root
// IUIAutomationElement, the entry point for every find operation
// scoped to a single window.
func (c *Client) ElementFromWindow(hwnd uintptr) (*Element, error) {
	var out uintptr
	if _, err := callN(c.automation, ofElementFromHandle, hwnd, uintptr(unsafe.Pointer(&out))); err != nil {
		return nil, err
	}
	if out == 0 {
		return nil, fmt.Errorf("ElementFromHandle returned null")
	}
	return wrapElement(out), nil
}

// FocusedElement returns the element currently holding UIA focus,
// regardless of which window owns it.
func (c *Client) FocusedElement() (*Element, error) {
	var out uintptr
	if _, err := callN(c.automation, ofGetFocusedElement, uintptr(unsafe.Pointer(&out))); err != nil {
		return nil, err
	}
	return wrapElement(out), nil
}

// vtVariant is a minimal VARIANT carrying a BSTR or I4, enough for the
// two property types FindFirst conditions are built from here.
type vtVariant struct {
	vt       uint16
	reserved [3]uint16
	val      uintptr
	pad      uintptr
}

const (
	vtI4   = 3
	vtBSTR = 8
)

func i4Variant(v int32) vtVariant { return vtVariant{vt: vtI4, val: uintptr(v)} }

func bstrVariant(s string) (vtVariant, func(), error) {
	u16, err := syscall.UTF16PtrFromString(s)
	if err != nil {
		return vtVariant{}, func() {}, err
	}
	bstrAlloc := oleaut32.NewProc("SysAllocString")
	bstr, _, _ := bstrAlloc.Call(uintptr(unsafe.Pointer(u16)))
	if bstr == 0 {
		return vtVariant{}, func() {}, fmt.Errorf("SysAllocString failed")
	}
	return vtVariant{vt: vtBSTR, val: bstr}, func() { procSysFreeString.Call(bstr) }, nil
}

func (c *Client) createPropertyCondition(propertyID int32, v vtVariant) (uintptr, error) {
	var cond uintptr
	if _, err := callN(c.automation, ofCreatePropertyCondition,
		uintptr(propertyID), uintptr(unsafe.Pointer(&v)), uintptr(unsafe.Pointer(&cond))); err != nil {
		return 0, err
	}
	return cond, nil
}

func (c *Client) andConditions(a, b uintptr) (uintptr, error) {
	var cond uintptr
	if _, err := callN(c.automation, ofCreateAndCondition, a, b, uintptr(unsafe.Pointer(&cond))); err != nil {
		return 0, err
	}
	return cond, nil
}

// FindByAutomationID searches descendants of root for the first
// element whose AutomationId property equals id.
func (c *Client) FindByAutomationID(root *Element, id string) (*Element, error) {
	v, freeVar, err := bstrVariant(id)
	if err != nil {
		return nil, err
	}
	defer freeVar()
	cond, err := c.createPropertyCondition(PropertyAutomationID, v)
	if err != nil {
		return nil, err
	}
	defer release(cond)
	return c.findFirst(root, cond, ScopeDescendants)
}

// FindByName searches descendants of root for the first element whose
// Name property equals name exactly.
func (c *Client) FindByName(root *Element, name string) (*Element, error) {
	v, freeVar, err := bstrVariant(name)
	if err != nil {
		return nil, err
	}
	defer freeVar()
	cond, err := c.createPropertyCondition(PropertyName, v)
	if err != nil {
		return nil, err
	}
	defer release(cond)
	return c.findFirst(root, cond, ScopeDescendants)
}

// FindAllByControlType returns every descendant of root with the
// given UIA control type id.
func (c *Client) FindAllByControlType(root *Element, controlType int32) ([]*Element, error) {
	v := i4Variant(controlType)
	cond, err := c.createPropertyCondition(PropertyControlType, v)
	if err != nil {
		return nil, err
	}
	defer release(cond)
	return c.findAll(root, cond, ScopeDescendants)
}

func (c *Client) findFirst(root *Element, condition uintptr, scope int) (*Element, error) {
	if !root.valid() {
		return nil, fmt.Errorf("invalid root element")
	}
	var found uintptr
	if _, err := callN(root.ptr, ofFindFirst, uintptr(scope), condition, uintptr(unsafe.Pointer(&found))); err != nil {
		return nil, err
	}
	if found == 0 {
		return nil, nil
	}
	return wrapElement(found), nil
}

// elementArray mirrors the layout IUIAutomationElementArray exposes
// enough of to read Length/GetElement without a full interface shim.
const (
	ofArrayLength     = 3
	ofArrayGetElement = 4
)

func (c *Client) findAll(root *Element, condition uintptr, scope int) ([]*Element, error) {
	if !root.valid() {
		return nil, fmt.Errorf("invalid root element")
	}
	var arr uintptr
	if _, err := callN(root.ptr, ofFindAll, uintptr(scope), condition, uintptr(unsafe.Pointer(&arr))); err != nil {
		return nil, err
	}
	if arr == 0 {
		return nil, nil
	}
	defer release(arr)

	var length int32
	callN(arr, ofArrayLength, uintptr(unsafe.Pointer(&length)))

	out := make([]*Element, 0, length)
	for i := int32(0); i < length; i++ {
		var item uintptr
		if _, err := callN(arr, ofArrayGetElement, uintptr(i), uintptr(unsafe.Pointer(&item))); err != nil {
			continue
		}
		out = append(out, wrapElement(item))
	}
	return out, nil
}

// rawChildren returns the immediate children of e using FindAll scoped
// to ScopeChildren with UIA's CreateTrueCondition, so children with no
// name or automation id are included.
func (c *Client) rawChildren(e *Element) ([]*Element, error) {
	// IUIAutomation::CreateTrueCondition vtable slot.
	const ofCreateTrueCondition = 21
	var trueCond uintptr
	if _, err := callN(c.automation, ofCreateTrueCondition, uintptr(unsafe.Pointer(&trueCond))); err != nil {
		return nil, err
	}
	defer release(trueCond)
	return c.findAll(e, trueCond, ScopeChildren)
}

// Children is the public alias used by the tree builder.
func (c *Client) Children(e *Element) ([]*Element, error) { return c.rawChildren(e) }

// Name returns the element's accessible name.
func (e *Element) Name() string {
	if !e.valid() {
		return ""
	}
	var bstr uintptr
	if _, err := callN(e.ptr, ofGetCurrentName, uintptr(unsafe.Pointer(&bstr))); err != nil || bstr == 0 {
		return ""
	}
	defer procSysFreeString.Call(bstr)
	return bstrToString(bstr)
}

// AutomationID returns the element's AutomationId property, empty if
// the provider never set one.
func (e *Element) AutomationID() string {
	if !e.valid() {
		return ""
	}
	var bstr uintptr
	if _, err := callN(e.ptr, ofGetCurrentAutomationId, uintptr(unsafe.Pointer(&bstr))); err != nil || bstr == 0 {
		return ""
	}
	defer procSysFreeString.Call(bstr)
	return bstrToString(bstr)
}

// ClassName returns the element's native class name.
func (e *Element) ClassName() string {
	if !e.valid() {
		return ""
	}
	var bstr uintptr
	if _, err := callN(e.ptr, ofGetCurrentClassName, uintptr(unsafe.Pointer(&bstr))); err != nil || bstr == 0 {
		return ""
	}
	defer procSysFreeString.Call(bstr)
	return bstrToString(bstr)
}

// ControlType returns the raw UIA control type id.
func (e *Element) ControlType() int32 {
	if !e.valid() {
		return 0
	}
	var ct int32
	callN(e.ptr, ofGetCurrentControlType, uintptr(unsafe.Pointer(&ct)))
	return ct
}

type rect struct{ Left, Top, Right, Bottom int32 }

// BoundingRect returns the element's screen-space bounding box.
func (e *Element) BoundingRect() (x, y, w, h int) {
	if !e.valid() {
		return 0, 0, 0, 0
	}
	var r rect
	if _, err := callN(e.ptr, ofGetCurrentBoundingRectangle, uintptr(unsafe.Pointer(&r))); err != nil {
		return 0, 0, 0, 0
	}
	return int(r.Left), int(r.Top), int(r.Right - r.Left), int(r.Bottom - r.Top)
}

// IsEnabled reports the element's enabled state.
func (e *Element) IsEnabled() bool {
	if !e.valid() {
		return false
	}
	var v int32
	callN(e.ptr, ofGetCurrentIsEnabled, uintptr(unsafe.Pointer(&v)))
	return v != 0
}

// IsOffscreen reports whether the element is currently off-screen.
func (e *Element) IsOffscreen() bool {
	if !e.valid() {
		return false
	}
	var v int32
	callN(e.ptr, ofGetCurrentIsOffscreen, uintptr(unsafe.Pointer(&v)))
	return v != 0
}

// SetFocus moves keyboard focus to the element.
func (e *Element) SetFocus() error {
	if !e.valid() {
		return fmt.Errorf("invalid element")
	}
	_, err := callN(e.ptr, ofSetFocus)
	return err
}

func (e *Element) getPattern(patternID int) (uintptr, error) {
	if !e.valid() {
		return 0, fmt.Errorf("invalid element")
	}
	var pattern uintptr
	if _, err := callN(e.ptr, ofGetCurrentPattern, uintptr(patternID), uintptr(unsafe.Pointer(&pattern))); err != nil {
		return 0, err
	}
	if pattern == 0 {
		return 0, fmt.Errorf("pattern %d not supported", patternID)
	}
	return pattern, nil
}

// Invoke calls InvokePattern.Invoke, the default action for buttons,
// menu items, and hyperlinks.
func (e *Element) Invoke() error {
	pattern, err := e.getPattern(PatternInvoke)
	if err != nil {
		return err
	}
	defer release(pattern)
	_, err = callN(pattern, 3)
	return err
}

// SetValue calls ValuePattern.SetValue, the text-box equivalent of
// typing a full replacement value in one shot.
func (e *Element) SetValue(value string) error {
	pattern, err := e.getPattern(PatternValue)
	if err != nil {
		return err
	}
	defer release(pattern)
	u16, err := syscall.UTF16PtrFromString(value)
	if err != nil {
		return err
	}
	_, err = callN(pattern, 3, uintptr(unsafe.Pointer(u16)))
	return err
}

// Value reads ValuePattern.CurrentValue.
func (e *Element) Value() (string, error) {
	pattern, err := e.getPattern(PatternValue)
	if err != nil {
		return "", err
	}
	defer release(pattern)
	const ofValuePatternGetValue = 4
	var bstr uintptr
	if _, err := callN(pattern, ofValuePatternGetValue, uintptr(unsafe.Pointer(&bstr))); err != nil {
		return "", err
	}
	defer procSysFreeString.Call(bstr)
	return bstrToString(bstr), nil
}

// Toggle calls TogglePattern.Toggle, cycling Off -> On -> Indeterminate
// -> Off.
func (e *Element) Toggle() error {
	pattern, err := e.getPattern(PatternToggle)
	if err != nil {
		return err
	}
	defer release(pattern)
	_, err = callN(pattern, 3)
	return err
}

// ToggleState reads TogglePattern.CurrentToggleState: 0=off, 1=on,
// 2=indeterminate.
func (e *Element) ToggleState() (int32, error) {
	pattern, err := e.getPattern(PatternToggle)
	if err != nil {
		return 0, err
	}
	defer release(pattern)
	const ofToggleGetState = 4
	var state int32
	if _, err := callN(pattern, ofToggleGetState, uintptr(unsafe.Pointer(&state))); err != nil {
		return 0, err
	}
	return state, nil
}

// ScrollIntoView calls ScrollItemPattern.ScrollIntoView.
func (e *Element) ScrollIntoView() error {
	pattern, err := e.getPattern(PatternScrollItem)
	if err != nil {
		return err
	}
	defer release(pattern)
	_, err = callN(pattern, 3)
	return err
}

// Select calls SelectionItemPattern.Select, the click fallback for
// list items and other selectable-but-not-invokable controls.
func (e *Element) Select() error {
	pattern, err := e.getPattern(PatternSelectionItem)
	if err != nil {
		return err
	}
	defer release(pattern)
	_, err = callN(pattern, 3)
	return err
}

// Expand calls ExpandCollapsePattern.Expand, the click fallback for
// menu items and tree nodes that open rather than invoke.
func (e *Element) Expand() error {
	pattern, err := e.getPattern(PatternExpandCollapse)
	if err != nil {
		return err
	}
	defer release(pattern)
	_, err = callN(pattern, 3)
	return err
}

// Alive reports whether the element still answers a cheap property
// call. A closed window or a torn-down provider returns a non-zero
// HRESULT here (UIA_E_ELEMENTNOTAVAILABLE), which callN surfaces as an
// error; that is the only reliable staleness signal COM gives back.
func (e *Element) Alive() bool {
	if !e.valid() {
		return false
	}
	var v int32
	_, err := callN(e.ptr, ofGetCurrentIsEnabled, uintptr(unsafe.Pointer(&v)))
	return err == nil
}

// SupportedPatternNames probes the commonly exercised pattern ids and
// returns the names of those the element supports, for ElementInfo's
// SupportedPatterns field.
func (e *Element) SupportedPatternNames() []string {
	named := []struct {
		id   int
		name string
	}{
		{PatternInvoke, "Invoke"},
		{PatternValue, "Value"},
		{PatternToggle, "Toggle"},
		{PatternScrollItem, "ScrollItem"},
		{PatternSelectionItem, "SelectionItem"},
		{PatternExpandCollapse, "ExpandCollapse"},
	}
	var out []string
	for _, p := range named {
		if pattern, err := e.getPattern(p.id); err == nil {
			release(pattern)
			out = append(out, p.name)
		}
	}
	return out
}

// WindowHandleOf re-exports winapi's Window wrapper so callers in the
// worker package can resolve an hwnd without importing winapi twice.
func WindowHandleOf(hwnd uintptr) winapi.Window { return winapi.WindowFromHandle(hwnd) }
