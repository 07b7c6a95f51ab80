package ocr

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	contrastFactor = 2.0
	// images narrower than this are upscaled before recognition
	minWidth = 1000
)

// Preprocess converts an encoded image to a high-contrast grayscale PNG,
// upscaling small scans.
func Preprocess(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	b := src.Bounds()
	scale := 1
	if b.Dx() > 0 && b.Dx() < minWidth {
		scale = 2
	}
	gray := image.NewGray(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	xdraw.CatmullRom.Scale(gray, gray.Bounds(), src, b, xdraw.Src, nil)

	enhanceContrast(gray, contrastFactor)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// enhanceContrast pushes every pixel away from the mean luminance by factor.
func enhanceContrast(img *image.Gray, factor float64) {
	if len(img.Pix) == 0 {
		return
	}
	var sum int
	for _, p := range img.Pix {
		sum += int(p)
	}
	mean := float64(sum) / float64(len(img.Pix))
	for i, p := range img.Pix {
		img.Pix[i] = clamp(mean + (float64(p)-mean)*factor)
	}
}

func clamp(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v + 0.5)
}
