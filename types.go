package engine

// WindowHandle is the opaque native window identifier. On Windows this
// wraps an HWND. It is rendered as a decimal digit string on the wire
// and compared by numeric value.
type WindowHandle uint64

// WindowState is the observable lifecycle state of a top-level window.
type WindowState string

const (
	WindowNormal    WindowState = "normal"
	WindowMinimized WindowState = "minimized"
	WindowMaximized WindowState = "maximized"
	WindowHidden    WindowState = "hidden"
)

// Rect is a rectangle in whatever coordinate space its owning field
// documents (virtual-screen logical pixels unless stated otherwise).
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether p lies within r (inclusive of the top-left
// edge, exclusive of the bottom-right edge).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Center returns the rectangle's visible center point.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Area is width*height, used to sort elements by prominence.
func (r Rect) Area() int { return r.Width * r.Height }

// IsEmpty reports a zero-or-negative-area rectangle.
func (r Rect) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Point is a single coordinate, logical unless documented otherwise.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// WindowFlags are boolean facts about a window's current runtime state.
type WindowFlags struct {
	IsElevated       bool `json:"is_elevated"`
	IsResponding     bool `json:"is_responding"`
	IsUWP            bool `json:"is_uwp"`
	IsForeground     bool `json:"is_foreground"`
	OnCurrentDesktop bool `json:"on_current_desktop"`
}

// WindowInfo is a point-in-time snapshot of a top-level window.
type WindowInfo struct {
	Handle        WindowHandle `json:"handle"`
	Title         string       `json:"title"`
	ClassName     string       `json:"class_name"`
	ProcessName   string       `json:"process_name"`
	ProcessID     int          `json:"process_id"`
	Bounds        Rect         `json:"bounds"`
	State         WindowState  `json:"state"`
	MonitorIndex  int          `json:"monitor_index"`
	MonitorBounds Rect         `json:"monitor_bounds"`
	Flags         WindowFlags  `json:"flags"`
}

// MonitorInfo describes one physical display within the virtual screen.
type MonitorInfo struct {
	Index        int     `json:"index"`
	DeviceName   string  `json:"device_name"`
	Primary      bool    `json:"primary"`
	PhysicalRect Rect    `json:"physical_rect"`
	LogicalRect  Rect    `json:"logical_rect"`
	ScaleFactor  float64 `json:"scale_factor"`
	WorkArea     Rect    `json:"work_area"`
}

// VirtualScreen is the union rectangle of every monitor's logical
// bounds; origin may be negative when a monitor sits left of or above
// the primary monitor.
type VirtualScreen struct {
	Bounds   Rect          `json:"bounds"`
	Monitors []MonitorInfo `json:"monitors"`
}

// ElementID is the short opaque string C3 hands out for a live UIA
// element reference. It carries no information of its own.
type ElementID string

// ToggleState mirrors UIA's ToggleState enumeration.
type ToggleState string

const (
	ToggleOff        ToggleState = "off"
	ToggleOn         ToggleState = "on"
	ToggleIndeterminate ToggleState = "indeterminate"
)

// ElementInfo is the full record returned by find/get_tree and friends.
type ElementInfo struct {
	ID                ElementID    `json:"id"`
	AutomationID      string       `json:"automation_id,omitempty"`
	Name              string       `json:"name"`
	ControlType        string       `json:"control_type"`
	Bounds            Rect         `json:"bounds"`
	MonitorRect       Rect         `json:"monitor_rect"`
	MonitorIndex      int          `json:"monitor_index"`
	ClickablePoint    [3]int       `json:"clickable_point"` // x, y, monitor_index
	SupportedPatterns []string     `json:"supported_patterns"`
	Value             string       `json:"value,omitempty"`
	ToggleState       *ToggleState `json:"toggle_state,omitempty"`
	Enabled           bool         `json:"is_enabled"`
	Offscreen         bool         `json:"is_offscreen"`
}

// CompactElement is the wire-slim form of ElementInfo used by
// capture_annotated: short keys, nulls dropped.
type CompactElement struct {
	Index        int          `json:"index"`
	Name         string       `json:"name"`
	Type         string       `json:"type"`
	ID           ElementID    `json:"id"`
	Click        [3]int       `json:"click"`
	AutomationID string       `json:"automation_id,omitempty"`
	Value        string       `json:"value,omitempty"`
	ToggleState  *ToggleState `json:"toggle_state,omitempty"`
}

// ActionResult is the uniform result envelope for every public
// operation. Payload holds the action-specific data (a WindowInfo, an
// element list, a screenshot descriptor, ...); callers type-assert it.
type ActionResult struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Kind    ErrorKind   `json:"error_kind,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// Ok builds a successful ActionResult wrapping payload.
func Ok(payload interface{}) ActionResult {
	return ActionResult{Success: true, Payload: payload}
}

// Err builds a failing ActionResult from a Fault.
func Err(f *Fault) ActionResult {
	if f == nil {
		return ActionResult{Success: false, Kind: ErrSystem, Error: "nil fault"}
	}
	return ActionResult{Success: false, Kind: f.Kind, Error: f.Message}
}

// CaptureTargetKind selects what a CaptureRequest captures.
type CaptureTargetKind string

const (
	CaptureTargetPrimary     CaptureTargetKind = "primary"
	CaptureTargetMonitor     CaptureTargetKind = "monitor"
	CaptureTargetWindow      CaptureTargetKind = "window"
	CaptureTargetRegion      CaptureTargetKind = "region"
	CaptureTargetAllMonitors CaptureTargetKind = "all_monitors"
)

// ImageFormat is the capture service's output encoding.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
)

// OutputMode selects how ScreenshotResult delivers bytes.
type OutputMode string

const (
	OutputInlineBase64 OutputMode = "inline_base64"
	OutputFile         OutputMode = "file"
)

// CaptureRequest parametrizes every screenshot_control.capture call.
type CaptureRequest struct {
	Target       CaptureTargetKind `json:"target"`
	MonitorIndex int               `json:"monitor_index,omitempty"`
	WindowHandle WindowHandle      `json:"window_handle,omitempty"`
	Region       Rect              `json:"region,omitempty"`
	IncludeCursor bool             `json:"include_cursor,omitempty"`
	Format       ImageFormat       `json:"format,omitempty"`
	Quality      int               `json:"quality,omitempty"`
	MaxWidth     int               `json:"max_width,omitempty"`
	MaxHeight    int               `json:"max_height,omitempty"`
	OutputMode   OutputMode        `json:"output_mode,omitempty"`
	OutputPath   string            `json:"output_path,omitempty"`
}

// ScreenshotResult is the outcome of a capture operation.
type ScreenshotResult struct {
	ImageBase64    string      `json:"image_base64,omitempty"`
	FilePath       string      `json:"file_path,omitempty"`
	OutputWidth    int         `json:"output_width"`
	OutputHeight   int         `json:"output_height"`
	OriginalWidth  int         `json:"original_width"`
	OriginalHeight int         `json:"original_height"`
	Format         ImageFormat `json:"format"`
	ByteSize       int         `json:"byte_size"`
}

// ElementTree is the compact nested result of get_tree: each node
// carries its own ElementInfo (and therefore its own registry id, so a
// caller can act on any node it sees without a second find).
type ElementTree struct {
	Element  ElementInfo   `json:"element"`
	Children []ElementTree `json:"children,omitempty"`
}

// TreeResult wraps get_tree's root node with the exploratory
// diagnostics the operation promises: which framework heuristic
// picked the walk depth, and how deep the walk actually reached.
type TreeResult struct {
	Tree               ElementTree `json:"tree"`
	DetectedFramework  string      `json:"detected_framework"`
	MaxDepthUsed        int        `json:"max_depth_used"`
	ActualDepthReached  int        `json:"actual_depth_reached"`
}

// AnnotatedCapture is capture_annotated's result: the screenshot plus
// the compact element list the numeric badges refer to.
type AnnotatedCapture struct {
	Screenshot ScreenshotResult `json:"screenshot"`
	Elements   []CompactElement `json:"elements"`
}

// ElementQuery selects elements for every element-bearing automation
// operation. Name matching is applied in this order: exact name, then
// automation id, then name_contains, then name_pattern.
type ElementQuery struct {
	WindowHandle      WindowHandle `json:"window_handle,omitempty"`
	ParentElementID   ElementID    `json:"parent_element_id,omitempty"`
	AutomationID      string       `json:"automation_id,omitempty"`
	Name              string       `json:"name,omitempty"`
	NameContains      string       `json:"name_contains,omitempty"`
	NamePattern       string       `json:"name_pattern,omitempty"`
	ControlType       string       `json:"control_type,omitempty"`
	FoundIndex        int          `json:"found_index,omitempty"`
	Cap               int          `json:"cap,omitempty"`
	SortByProminence  bool         `json:"sort_by_prominence,omitempty"`
	TimeoutMs         int          `json:"timeout_ms,omitempty"`
}
