package screen

import (
	"image"

	"golang.org/x/image/draw"
)

// Resize scales an image to fit within maxWidth x maxHeight while preserving aspect ratio.
// Uses high-quality CatmullRom interpolation for best results.
// Returns the resized image and the new dimensions.
func Resize(img image.Image, maxWidth, maxHeight int) (image.Image, int, int) {
	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	// Calculate scaled dimensions
	newW, newH := CalculateScaledDimensions(origW, origH, maxWidth, maxHeight)

	// If no resize needed, return original
	if newW == origW && newH == origH {
		return img, origW, origH
	}

	// Create destination image
	resized := image.NewRGBA(image.Rect(0, 0, newW, newH))

	// Use high-quality CatmullRom interpolation
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)

	return resized, newW, newH
}

// CalculateScaledDimensions computes new dimensions that fit within maxWidth x maxHeight
// while preserving the original aspect ratio.
func CalculateScaledDimensions(origW, origH, maxWidth, maxHeight int) (newW, newH int) {
	// If image already fits, return original dimensions
	if origW <= maxWidth && origH <= maxHeight {
		return origW, origH
	}

	// Calculate aspect ratios
	aspectRatio := float64(origW) / float64(origH)
	targetAspect := float64(maxWidth) / float64(maxHeight)

	if aspectRatio > targetAspect {
		// Width is the limiting factor
		newW = maxWidth
		newH = int(float64(maxWidth) / aspectRatio)
	} else {
		// Height is the limiting factor
		newH = maxHeight
		newW = int(float64(maxHeight) * aspectRatio)
	}

	// Ensure minimum dimensions
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	return newW, newH
}
