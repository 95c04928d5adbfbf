package qrcode

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// DecodeImage returns the text of the QR code in img.
func DecodeImage(img image.Image) (string, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return "", fmt.Errorf("failed to process image: invalid dimensions %dx%d", b.Dx(), b.Dy())
	}

	// gozxing expects the image to start at the origin, sub-images don't
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)

	bmp, err := gozxing.NewBinaryBitmapFromImage(gray)
	if err != nil {
		return "", fmt.Errorf("failed to process image for QR reading: %w", err)
	}

	hints := map[gozxing.DecodeHintType]interface{}{
		gozxing.DecodeHintType_TRY_HARDER:   true,
		gozxing.DecodeHintType_CHARACTER_SET: "UTF-8",
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, hints)
	if err != nil {
		return "", fmt.Errorf("failed to decode QR code: %w", err)
	}

	return result.GetText(), nil
}
