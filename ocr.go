//go:build windows

package engine

import (
	"encoding/base64"

	"github.com/otiai10/gosseract"
)

// recognizeText runs Tesseract OCR over a base64-encoded PNG/JPEG
// image, used by OCRElement to read text out of elements that expose
// neither a Value nor a usable Name (icon-only buttons, canvas-drawn
// labels).
func recognizeText(imageBase64 string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetImageFromBytes(data); err != nil {
		return "", err
	}
	return client.Text()
}
