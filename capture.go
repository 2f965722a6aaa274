//go:build windows

package engine

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/windowspilot/engine/internal/config"
	"github.com/windowspilot/engine/internal/winapi"
	"github.com/windowspilot/engine/pkg/logging"
	"github.com/windowspilot/engine/pkg/screen"
)

// CaptureService implements C7: screen, monitor, window, and region
// capture with cursor overlay, aspect-preserving downscale, and
// inline-vs-file output.
type CaptureService struct {
	cfg config.CaptureConfig
	log *logging.Logger
}

func NewCaptureService(cfg config.CaptureConfig, log *logging.Logger) *CaptureService {
	return &CaptureService{cfg: cfg, log: log.WithPrefix("capture")}
}

// Capture executes req and returns the encoded result.
func (s *CaptureService) Capture(req CaptureRequest) (ScreenshotResult, *Fault) {
	return s.capture(req, nil)
}

// CaptureWithAnnotations is Capture plus a badge overlay; used by
// capture_annotated (C6) so capture_annotated shares every path (cursor
// overlay, pixel ceiling, downscale, encode) with a plain capture.
func (s *CaptureService) CaptureWithAnnotations(req CaptureRequest, elements []CompactElement) (ScreenshotResult, *Fault) {
	return s.capture(req, elements)
}

func (s *CaptureService) capture(req CaptureRequest, annotate []CompactElement) (ScreenshotResult, *Fault) {
	if winapi.IsSecureDesktopActive() {
		return ScreenshotResult{}, NewFault(ErrSecureDesktopActive, "cannot capture while a secure desktop is active")
	}

	img, fault := s.acquire(req)
	if fault != nil {
		return ScreenshotResult{}, fault
	}

	origW, origH := img.Bounds().Dx(), img.Bounds().Dy()
	if origW <= 0 || origH <= 0 {
		return ScreenshotResult{}, NewFault(ErrInvalidCoordinates, "capture region collapsed to zero pixels")
	}
	if origW*origH > s.maxPixels() {
		return ScreenshotResult{}, NewFault(ErrPixelLimitExceeded, "capture is %dx%d, exceeds pixel ceiling %d", origW, origH, s.maxPixels())
	}

	if req.IncludeCursor {
		overlayCursor(img)
	}
	if len(annotate) > 0 {
		annotateElements(img, annotate)
	}

	maxW, maxH := req.MaxWidth, req.MaxHeight
	if maxW == 0 && maxH == 0 {
		maxW, maxH = s.cfg.DefaultMaxWidth, s.cfg.DefaultMaxHeight
	}
	scale := scaleFor(origW, origH, maxW, maxH)

	var final image.Image = img
	outW, outH := origW, origH
	if scale < 1.0 {
		outW = max1(int(float64(origW) * scale))
		outH = max1(int(float64(origH) * scale))
		final, outW, outH = screen.Resize(img, outW, outH)
	}

	format := req.Format
	if format == "" {
		format = ImageFormat(s.cfg.DefaultFormat)
	}
	quality := req.Quality
	if quality == 0 {
		quality = s.cfg.DefaultQuality
	}

	encoded, fault := encodeImage(final, format, quality)
	if fault != nil {
		return ScreenshotResult{}, fault
	}

	result := ScreenshotResult{
		OutputWidth:    outW,
		OutputHeight:   outH,
		OriginalWidth:  origW,
		OriginalHeight: origH,
		Format:         format,
		ByteSize:       len(encoded),
	}

	outputMode := req.OutputMode
	if outputMode == "" {
		outputMode = OutputInlineBase64
	}

	switch outputMode {
	case OutputInlineBase64:
		result.ImageBase64 = base64.StdEncoding.EncodeToString(encoded)
	case OutputFile:
		path, fault := s.writeFile(req.OutputPath, encoded, format)
		if fault != nil {
			return ScreenshotResult{}, fault
		}
		result.FilePath = path
	default:
		return ScreenshotResult{}, NewFault(ErrInvalidAction, "unknown output_mode %q", outputMode)
	}

	return result, nil
}

// ListMonitors implements screenshot_control.list_monitors: the
// virtual-screen model capture and click-point resolution already
// share, surfaced directly for diagnostics and pre-flight scripting.
func (s *CaptureService) ListMonitors() VirtualScreen {
	return EnumerateMonitors()
}

func (s *CaptureService) maxPixels() int {
	if s.cfg.MaxPixels <= 0 {
		return 33177600
	}
	return s.cfg.MaxPixels
}

func (s *CaptureService) acquire(req CaptureRequest) (*image.RGBA, *Fault) {
	switch req.Target {
	case CaptureTargetPrimary:
		img, err := screen.CapturePrimary()
		if err != nil {
			return nil, NewFault(ErrCaptureFailed, "capturing primary monitor: %v", err)
		}
		return img, nil

	case CaptureTargetMonitor:
		vs := EnumerateMonitors()
		if req.MonitorIndex < 0 || req.MonitorIndex >= len(vs.Monitors) {
			return nil, NewFault(ErrInvalidCoordinates, "monitor index %d out of range", req.MonitorIndex)
		}
		m := vs.Monitors[req.MonitorIndex].PhysicalRect
		img, err := screen.CaptureRect(screen.Rect{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height})
		if err != nil {
			return nil, NewFault(ErrCaptureFailed, "capturing monitor %d: %v", req.MonitorIndex, err)
		}
		return img, nil

	case CaptureTargetAllMonitors:
		img, err := screen.CaptureAll()
		if err != nil {
			return nil, NewFault(ErrCaptureFailed, "capturing all monitors: %v", err)
		}
		return img, nil

	case CaptureTargetWindow:
		return s.captureWindow(req.WindowHandle)

	case CaptureTargetRegion:
		r := req.Region
		if r.Width <= 0 || r.Height <= 0 {
			return nil, NewFault(ErrInvalidCoordinates, "region must have positive width and height")
		}
		clipped := clipToVirtualScreen(r)
		img, err := screen.CaptureRect(screen.Rect{X: clipped.X, Y: clipped.Y, Width: clipped.Width, Height: clipped.Height})
		if err != nil {
			return nil, NewFault(ErrCaptureFailed, "capturing region: %v", err)
		}
		return img, nil

	default:
		return nil, NewFault(ErrInvalidAction, "unknown capture target %q", req.Target)
	}
}

func clipToVirtualScreen(r Rect) Rect {
	vs := EnumerateMonitors()
	b := vs.Bounds
	x1, y1 := max(r.X, b.X), max(r.Y, b.Y)
	x2, y2 := min(r.X+r.Width, b.X+b.Width), min(r.Y+r.Height, b.Y+b.Height)
	if x2 < x1 {
		x2 = x1
	}
	if y2 < y1 {
		y2 = y1
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// captureWindow uses PrintWindow with PW_RENDERFULLCONTENT so occluded
// windows still capture.
func (s *CaptureService) captureWindow(handle WindowHandle) (*image.RGBA, *Fault) {
	w, ok := findHWND(handle)
	if !ok {
		return nil, NewFault(ErrWindowNotFound, "window %d not found", handle)
	}
	_, _, width, height := w.Bounds()
	if width <= 0 || height <= 0 {
		return nil, NewFault(ErrCaptureFailed, "window %d has empty bounds", handle)
	}
	img, err := winapi.PrintWindowToImage(w, width, height)
	if err != nil {
		return nil, NewFault(ErrCaptureFailed, "PrintWindow on window %d: %v", handle, err)
	}
	return img, nil
}

func scaleFor(origW, origH, maxW, maxH int) float64 {
	sw, sh := 1.0, 1.0
	if maxW > 0 {
		sw = float64(maxW) / float64(origW)
	}
	if maxH > 0 {
		sh = float64(maxH) / float64(origH)
	}
	scale := sw
	if sh < scale {
		scale = sh
	}
	if scale > 1.0 {
		scale = 1.0
	}
	return scale
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// overlayCursor draws a simple crosshair marker at the current cursor
// position, approximating the system cursor hotspot without decoding
// the live HCURSOR bitmap (an acceptable simplification the engine's
// annotated-capture overlays already rely on for numeric badges).
func overlayCursor(img *image.RGBA) {
	ci, ok := winapi.GetCursorInfo()
	if !ok || !ci.Visible {
		return
	}
	drawCrosshair(img, ci.X-img.Bounds().Min.X, ci.Y-img.Bounds().Min.Y, color.RGBA{255, 0, 0, 255})
}

func drawCrosshair(img *image.RGBA, cx, cy int, c color.RGBA) {
	const radius = 8
	b := img.Bounds()
	for dx := -radius; dx <= radius; dx++ {
		x, y := cx+dx, cy
		if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
			img.Set(x, y, c)
		}
	}
	for dy := -radius; dy <= radius; dy++ {
		x, y := cx, cy+dy
		if x >= b.Min.X && x < b.Max.X && y >= b.Min.Y && y < b.Max.Y {
			img.Set(x, y, c)
		}
	}
}

func encodeImage(img image.Image, format ImageFormat, quality int) ([]byte, *Fault) {
	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		if err := png.Encode(&buf, img); err != nil {
			return nil, NewFault(ErrEncodingFailed, "png encode: %v", err)
		}
	case FormatJPEG, "":
		if quality < 1 || quality > 100 {
			return nil, NewFault(ErrInvalidQuality, "jpeg quality must be 1-100, got %d", quality)
		}
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, NewFault(ErrEncodingFailed, "jpeg encode: %v", err)
		}
	default:
		return nil, NewFault(ErrInvalidImageFormat, "unsupported image format %q", format)
	}
	return buf.Bytes(), nil
}

func (s *CaptureService) writeFile(customPath string, data []byte, format ImageFormat) (string, *Fault) {
	path := customPath
	if path == "" {
		ext := "jpg"
		if format == FormatPNG {
			ext = "png"
		}
		name := fmt.Sprintf("screenshot_%s.%s", time.Now().Format("20060102_150405.000"), ext)
		path = filepath.Join(os.TempDir(), trimMillisDot(name))
	} else {
		dir := filepath.Dir(path)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return "", NewFault(ErrOutputPathInvalid, "output directory %q does not exist", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", NewFault(ErrOutputPathInvalid, "writing %q: %v", path, err)
	}
	return path, nil
}

// trimMillisDot converts Go's "150405.000" fractional-second dot into
// the underscore the filename format documents.
func trimMillisDot(name string) string {
	out := []byte(name)
	for i, c := range out {
		if c == '.' {
			out[i] = '_'
			break
		}
	}
	return string(out)
}

// annotateElements overlays 1-based numeric badges at each element's
// clickable point, used by capture_annotated.
func annotateElements(img *image.RGBA, elements []CompactElement) {
	for _, el := range elements {
		drawBadge(img, el.Click[0]-img.Bounds().Min.X, el.Click[1]-img.Bounds().Min.Y, el.Index)
	}
}

func drawBadge(img *image.RGBA, x, y, index int) {
	const size = 9
	badge := image.Rect(x-size, y-size, x+size, y+size)
	draw.Draw(img, badge, &image.Uniform{C: color.RGBA{255, 215, 0, 230}}, image.Point{}, draw.Over)
	label := strconv.Itoa(index)
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x-len(label)*7/2, y+5),
	}
	d.DrawString(label)
}
