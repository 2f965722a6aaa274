// Package screen wraps github.com/go-vgo/robotgo's cross-platform pixel
// grabber behind a Rect-based capture API. Display enumeration and
// DPI/scale-factor math live in the engine's monitor model instead;
// this package only knows how to turn a rectangle of screen space into
// pixels.
package screen

import (
	"errors"
	"image"

	"github.com/go-vgo/robotgo"
)

// Rect represents a rectangle on screen in pixel coordinates.
type Rect struct {
	X      int // Left edge
	Y      int // Top edge
	Width  int
	Height int
}

// Common errors
var (
	// ErrNoDisplays indicates no displays were found.
	ErrNoDisplays = errors.New("screen: no displays found")

	// ErrCaptureFailed indicates screenshot capture failed.
	ErrCaptureFailed = errors.New("screen: capture failed")

	// ErrInvalidRect indicates the capture rectangle is invalid.
	ErrInvalidRect = errors.New("screen: invalid capture rectangle")
)

// CapturePrimary captures the entire primary display.
func CapturePrimary() (*image.RGBA, error) {
	n := robotgo.DisplaysNum()
	if n == 0 {
		return nil, ErrNoDisplays
	}
	x, y, w, h := robotgo.GetDisplayBounds(0)
	return CaptureRect(Rect{X: x, Y: y, Width: w, Height: h})
}

// CaptureRect captures a rectangular region of the screen.
// Coordinates are in global screen space (can span multiple displays).
func CaptureRect(rect Rect) (*image.RGBA, error) {
	if rect.Width <= 0 || rect.Height <= 0 {
		return nil, ErrInvalidRect
	}

	img, err := robotgo.CaptureImg(rect.X, rect.Y, rect.Width, rect.Height)
	if err != nil {
		return nil, wrapError(err)
	}

	return toRGBA(img), nil
}

// CaptureAll captures all displays and returns them as a single combined
// image, arranged according to their actual screen positions.
func CaptureAll() (*image.RGBA, error) {
	n := robotgo.DisplaysNum()
	if n == 0 {
		return nil, ErrNoDisplays
	}

	if n == 1 {
		return CapturePrimary()
	}

	minX, minY := 0, 0
	maxX, maxY := 0, 0

	for i := 0; i < n; i++ {
		x, y, w, h := robotgo.GetDisplayBounds(i)
		if i == 0 || x < minX {
			minX = x
		}
		if i == 0 || y < minY {
			minY = y
		}
		if i == 0 || x+w > maxX {
			maxX = x + w
		}
		if i == 0 || y+h > maxY {
			maxY = y + h
		}
	}

	return CaptureRect(Rect{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	})
}

// toRGBA converts any image.Image to *image.RGBA.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba
}

// wrapError wraps screenshot errors with our error types.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrCaptureFailed, err)
}
