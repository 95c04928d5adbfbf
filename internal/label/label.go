// Package label draws the site and user caption band above a QR code.
package label

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const (
	// BandHeight is the height in pixels of the caption band above the QR code.
	BandHeight = 60

	// TextLeft is the left edge of both caption lines.
	TextLeft = 10

	// SiteTop and UserTop are the top edges of the two caption lines.
	SiteTop = 10
	UserTop = 35
)

// SiteText returns the first caption line for an account.
func SiteText(name string) string {
	return "Site: " + name
}

// UserText returns the second caption line for an account.
func UserText(username string) string {
	return "User: " + username
}

// Compose returns a white canvas as wide as qr and BandHeight pixels taller,
// with qr pasted below the band and the two captions drawn in black inside it.
// Captions that are wider than the canvas are clipped.
func Compose(qr image.Image, site, user string, face font.Face) *image.RGBA {
	qb := qr.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, qb.Dx(), qb.Dy()+BandHeight))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	dst := image.Rect(0, BandHeight, qb.Dx(), qb.Dy()+BandHeight)
	draw.Draw(canvas, dst, qr, qb.Min, draw.Src)

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	drawText(d, site, TextLeft, SiteTop)
	drawText(d, user, TextLeft, UserTop)

	return canvas
}

// drawText places s with its top-left corner at (x, y). font.Drawer works
// from the baseline, which sits one ascent below the top.
func drawText(d *font.Drawer, s string, x, y int) {
	ascent := d.Face.Metrics().Ascent
	d.Dot = fixed.Point26_6{
		X: fixed.I(x),
		Y: fixed.I(y) + ascent,
	}
	d.DrawString(s)
}

// QRRegion returns the part of a composed image that holds the QR code.
func QRRegion(img image.Image) image.Image {
	b := img.Bounds()
	r := image.Rect(b.Min.X, b.Min.Y+BandHeight, b.Max.X, b.Max.Y)

	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(r)
	}

	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}
