// Package qrcode converts provisioning URIs to QR module matrices and reads
// them back out of rendered images.
package qrcode

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	goqrcode "github.com/skip2/go-qrcode"
)

const (
	// ModuleSize is the width and height in pixels of one QR module.
	ModuleSize = 10

	// QuietZone is the white border, in modules, around the symbol.
	QuietZone = 4
)

// Matrix is an encoded QR symbol. The module grid includes the quiet zone.
type Matrix struct {
	modules [][]bool
	version int
}

// Encode builds the QR symbol for payload at the Low error correction level,
// using the smallest version the payload fits in. Payloads larger than a
// version 40 symbol can hold return an error.
func Encode(payload string) (*Matrix, error) {
	qr, err := goqrcode.New(payload, goqrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %d byte payload: %w", len(payload), err)
	}

	// skip2's default border is the QuietZone-module quiet zone
	return &Matrix{
		modules: qr.Bitmap(),
		version: qr.VersionNumber,
	}, nil
}

// Size returns the number of modules per side, quiet zone included.
func (m *Matrix) Size() int {
	return len(m.modules)
}

// Version returns the QR version (1-40) chosen for the payload.
func (m *Matrix) Version() int {
	return m.version
}

// dark reports whether the module at column x, row y is dark.
func (m *Matrix) dark(x, y int) bool {
	if y < 0 || y >= len(m.modules) || x < 0 || x >= len(m.modules[y]) {
		return false
	}
	return m.modules[y][x]
}

// Image rasterizes the symbol black on white at ModuleSize pixels per module.
func (m *Matrix) Image() *image.Gray {
	px := m.Size() * ModuleSize
	img := image.NewGray(image.Rect(0, 0, px, px))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	black := image.NewUniform(color.Black)
	for y := 0; y < m.Size(); y++ {
		for x := 0; x < m.Size(); x++ {
			if !m.dark(x, y) {
				continue
			}
			r := image.Rect(x*ModuleSize, y*ModuleSize, (x+1)*ModuleSize, (y+1)*ModuleSize)
			draw.Draw(img, r, black, image.Point{}, draw.Src)
		}
	}

	return img
}
