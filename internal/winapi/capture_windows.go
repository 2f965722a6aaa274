//go:build windows

package winapi

import (
	"fmt"
	"image"
	"unsafe"
)

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

const (
	biRGB        = 0
	dibRGBColors = 0
	pwRenderFullContent = 2
)

// PrintWindowToImage renders hwnd's client+non-client content into an
// RGBA image using PW_RENDERFULLCONTENT, which captures occluded and
// GPU-composited windows that a plain BitBlt of the screen would miss.
func PrintWindowToImage(w Window, width, height int) (*image.RGBA, error) {
	hwndDC, _, _ := procGetDC.Call(w.Uintptr())
	if hwndDC == 0 {
		return nil, fmt.Errorf("GetDC failed")
	}
	defer procReleaseDC.Call(w.Uintptr(), hwndDC)

	memDC, _, _ := procCreateCompatibleDC.Call(hwndDC)
	if memDC == 0 {
		return nil, fmt.Errorf("CreateCompatibleDC failed")
	}
	defer procDeleteDC.Call(memDC)

	bitmap, _, _ := procCreateCompatibleBmp.Call(hwndDC, uintptr(width), uintptr(height))
	if bitmap == 0 {
		return nil, fmt.Errorf("CreateCompatibleBitmap failed")
	}
	defer procDeleteObject.Call(bitmap)

	oldObj, _, _ := procSelectObject.Call(memDC, bitmap)
	defer procSelectObject.Call(memDC, oldObj)

	ret, _, _ := procPrintWindow.Call(w.Uintptr(), memDC, pwRenderFullContent)
	if ret == 0 {
		return nil, fmt.Errorf("PrintWindow failed")
	}

	header := bitmapInfoHeader{
		Size:        uint32(unsafe.Sizeof(bitmapInfoHeader{})),
		Width:       int32(width),
		Height:      -int32(height), // negative: top-down DIB, avoids a manual flip
		Planes:      1,
		BitCount:    32,
		Compression: biRGB,
	}

	buf := make([]byte, width*height*4)
	lines, _, _ := procGetDIBits.Call(
		memDC, bitmap, 0, uintptr(height),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&header)), dibRGBColors,
	)
	if lines == 0 {
		return nil, fmt.Errorf("GetDIBits failed")
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		b, g, r, a := buf[i*4], buf[i*4+1], buf[i*4+2], buf[i*4+3]
		img.Pix[i*4], img.Pix[i*4+1], img.Pix[i*4+2], img.Pix[i*4+3] = r, g, b, a
	}
	return img, nil
}
