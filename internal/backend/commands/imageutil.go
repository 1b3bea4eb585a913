package commands

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"

	"golang.org/x/image/draw"
)

// hasCorrectPngSignature checks whether the provided data begins with a valid PNG signature
func hasCorrectPngSignature(data []byte) bool {
	if len(data) < 8 {
		return false
	}
	expected := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	return bytes.Equal(data[:8], expected)
}

// DefaultMaxPixels is the largest image, in pixels, any command will decode
const DefaultMaxPixels = 40_000_000

var ErrImageTooLarge = errors.New("image dimensions exceed the pixel limit")

func checkPixels(w, h int, maxPixels int64) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid image dimensions %dx%d", w, h)
	}
	if int64(w)*int64(h) > maxPixels {
		return fmt.Errorf("%w: %dx%d is more than %d pixels", ErrImageTooLarge, w, h, maxPixels)
	}
	return nil
}

// checkImageHeader reads only the image header and rejects dimensions above maxPixels
func checkImageHeader(data []byte, maxPixels int64) (string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if err := checkPixels(cfg.Width, cfg.Height, maxPixels); err != nil {
		return "", err
	}
	return format, nil
}

// decodeImage decodes data after its header passed the pixel limit, so the
// pixel buffer is never sized from an unchecked header
func decodeImage(data []byte, maxPixels int64) (image.Image, string, error) {
	if _, err := checkImageHeader(data, maxPixels); err != nil {
		return nil, "", err
	}
	return image.Decode(bytes.NewReader(data))
}

// clampToPixels shrinks (w, h) keeping the aspect ratio until w*h fits maxPixels
func clampToPixels(w, h int, maxPixels int64) (int, int) {
	area := int64(w) * int64(h)
	if area <= maxPixels {
		return w, h
	}
	scale := math.Sqrt(float64(maxPixels) / float64(area))
	nw := max(1, int(float64(w)*scale))
	nh := max(1, int(float64(h)*scale))
	if int64(nw)*int64(nh) > maxPixels {
		if nw >= nh {
			nw = int(maxPixels / int64(nh))
		} else {
			nh = int(maxPixels / int64(nw))
		}
	}
	return nw, nh
}

// fitWithin scales (w, h) down to fit inside (maxW, maxH) keeping the aspect ratio.
// Images already inside the box keep their size.
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := float64(maxW) / float64(w)
	if r := float64(maxH) / float64(h); r < ratio {
		ratio = r
	}
	nw := max(1, int(float64(w)*ratio+0.5))
	nh := max(1, int(float64(h)*ratio+0.5))
	return min(nw, maxW), min(nh, maxH)
}

func createTargetCanvas(w, h int, bg color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	return dst
}

// flatten composites img over a white canvas; JPEG has no alpha channel
func flatten(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := createTargetCanvas(b.Dx(), b.Dy(), color.White)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	return dst
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	bb := img.Bounds()
	buf.Grow(bb.Dx() * bb.Dy())
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
