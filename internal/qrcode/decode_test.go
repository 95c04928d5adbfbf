package qrcode

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	tests := map[string]string{
		"github account":   "otpauth://totp/alice?secret=JBSWY3DPEHPK3PXP&issuer=GitHub",
		"unescaped spaces": "otpauth://totp/john doe?secret=JBSWY3DPEHPK3PXP&issuer=My Bank",
		"reserved chars":   "otpauth://totp/a&b?secret=ABC&issuer=Q&A?",
		"unicode":          "otpauth://totp/jürgen?secret=JBSWY3DP&issuer=Bücher",
		"long secret":      "otpauth://totp/alice?secret=" + strings.Repeat("JBSWY3DPEHPK3PXP", 20) + "&issuer=GitHub",
	}

	for name, payload := range tests {
		t.Run(name, func(t *testing.T) {
			m, err := Encode(payload)
			require.NoError(t, err)

			got, err := DecodeImage(m.Image())
			require.NoError(t, err)
			assert.Equal(t, payload, got)
		})
	}
}

func TestDecodeImage_SubImage(t *testing.T) {
	payload := "otpauth://totp/alice?secret=JBSWY3DPEHPK3PXP&issuer=GitHub"
	m, err := Encode(payload)
	require.NoError(t, err)

	qr := m.Image()
	n := qr.Bounds().Dx()

	// place the symbol below a white band and decode only that region
	canvas := image.NewGray(image.Rect(0, 0, n, n+60))
	for i := range canvas.Pix {
		canvas.Pix[i] = 0xff
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			canvas.SetGray(x, y+60, qr.GrayAt(x, y))
		}
	}

	got, err := DecodeImage(canvas.SubImage(image.Rect(0, 60, n, n+60)))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

// checkerboard looks nothing like a QR code
func checkerboard() image.Image {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	for x := 0; x < 100; x++ {
		for y := 0; y < 100; y++ {
			if (x/10+y/10)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestDecodeImage_Errors(t *testing.T) {
	tests := map[string]struct {
		image  image.Image
		errMsg string
	}{
		"invalid qr pattern": {
			image:  checkerboard(),
			errMsg: "failed to decode QR code",
		},
		"empty image": {
			image:  image.NewGray(image.Rect(0, 0, 0, 0)),
			errMsg: "dimensions",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeImage(tt.image)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
