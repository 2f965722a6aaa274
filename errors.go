package engine

import "fmt"

// ErrorKind tags every failing ActionResult with a stable, wire-safe
// category. Callers branch on the tag, never on the human message.
type ErrorKind string

const (
	ErrInvalidAction          ErrorKind = "invalid_action"
	ErrMissingRequiredParam   ErrorKind = "missing_required_parameter"
	ErrInvalidCoordinates     ErrorKind = "invalid_coordinates"
	ErrInvalidHandle          ErrorKind = "invalid_handle"
	ErrInvalidRegex           ErrorKind = "invalid_regex"
	ErrInvalidImageFormat     ErrorKind = "invalid_image_format"
	ErrInvalidQuality         ErrorKind = "invalid_quality"
	ErrWindowNotFound         ErrorKind = "window_not_found"
	ErrElementNotFound        ErrorKind = "element_not_found"
	ErrElementStale           ErrorKind = "element_stale"
	ErrSecureDesktopActive    ErrorKind = "secure_desktop_active"
	ErrElevatedWindowActive   ErrorKind = "elevated_window_active"
	ErrCrossElevation         ErrorKind = "cross_elevation"
	ErrActivationFailed       ErrorKind = "activation_failed"
	ErrMoveFailed             ErrorKind = "move_failed"
	ErrResizeFailed           ErrorKind = "resize_failed"
	ErrCloseFailed            ErrorKind = "close_failed"
	ErrEnumerationFailed      ErrorKind = "enumeration_failed"
	ErrPatternNotSupported    ErrorKind = "pattern_not_supported"
	ErrFocusFailed            ErrorKind = "focus_failed"
	ErrFocusMismatch          ErrorKind = "focus_mismatch"
	ErrTimeout                ErrorKind = "timeout"
	ErrCancelled              ErrorKind = "cancelled"
	ErrCaptureFailed          ErrorKind = "capture_failed"
	ErrEncodingFailed         ErrorKind = "encoding_failed"
	ErrPixelLimitExceeded     ErrorKind = "pixel_limit_exceeded"
	ErrOutputPathInvalid      ErrorKind = "output_path_invalid"
	ErrRateLimited            ErrorKind = "rate_limited"
	ErrSystem                 ErrorKind = "system_error"
)

// Fault is the typed failure carried by every ActionResult. It never
// crosses the public API as a Go error value with a different shape;
// Fault itself implements error so it composes with errors.Is/As when
// a caller wants to wrap it further.
type Fault struct {
	Kind ErrorKind
	// Message is a single human-readable sentence.
	Message string
	// LastState optionally carries the last-observed state relevant to
	// the failure (e.g. a window state string, a toggle state), for
	// messages like "timeout after 5000ms; current state: maximized".
	LastState string
}

func (f *Fault) Error() string {
	if f == nil {
		return ""
	}
	if f.LastState != "" {
		return fmt.Sprintf("%s: %s (last observed: %s)", f.Kind, f.Message, f.LastState)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// NewFault builds a Fault with the given kind and formatted message.
func NewFault(kind ErrorKind, format string, args ...interface{}) *Fault {
	return &Fault{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithState attaches a last-observed-state annotation to a Fault.
func (f *Fault) WithState(state string) *Fault {
	if f == nil {
		return nil
	}
	f.LastState = state
	return f
}

// IsTransient reports whether a fault kind is one the designed
// wait/retry loops are expected to recover from locally, as opposed to
// a structural failure the caller must fix before retrying.
func (k ErrorKind) IsTransient() bool {
	switch k {
	case ErrTimeout, ErrWindowNotFound, ErrElementNotFound, ErrElementStale:
		return true
	default:
		return false
	}
}
