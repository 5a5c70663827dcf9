// Package cvtest builds deterministic synthetic images for matcher tests.
package cvtest

import (
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// Noise fills a w x h image with seeded per-pixel random colors
func Noise(seed int64, w, h int) *image.RGBA {
	return BlockNoise(seed, w, h, 1)
}

// BlockNoise fills a w x h image with seeded random colors in block x block cells
func BlockNoise(seed int64, w, h, block int) *image.RGBA {
	if block < 1 {
		block = 1
	}
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	cols := (w + block - 1) / block
	rows := (h + block - 1) / block
	cells := make([]color.RGBA, cols*rows)
	for i := range cells {
		cells[i] = color.RGBA{R: uint8(r.Intn(256)), G: uint8(r.Intn(256)), B: uint8(r.Intn(256)), A: 255}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, cells[(y/block)*cols+x/block])
		}
	}
	return img
}

// Solid returns a w x h image of one color
func Solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// Paste copies src into dst with its top-left corner at at
func Paste(dst, src *image.RGBA, at image.Point) {
	b := src.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			dst.SetRGBA(at.X+x, at.Y+y, src.RGBAAt(b.Min.X+x, b.Min.Y+y))
		}
	}
}

// Crop copies rect out of img into a new origin-anchored image
func Crop(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		for x := 0; x < rect.Dx(); x++ {
			out.SetRGBA(x, y, img.RGBAAt(rect.Min.X+x, rect.Min.Y+y))
		}
	}
	return out
}

// RectOutline draws a one-pixel rectangle border
func RectOutline(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.SetRGBA(x, r.Min.Y, c)
		img.SetRGBA(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.SetRGBA(r.Min.X, y, c)
		img.SetRGBA(r.Max.X-1, y, c)
	}
}

// FillRect paints a filled rectangle
func FillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

// Stripes draws diagonal stripes of the given period over the whole image
func Stripes(img *image.RGBA, period int, c color.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if (x+y)%period < period/2 {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

// WritePNG encodes img to dir/name, creating dir, and returns the path
func WritePNG(t testing.TB, dir, name string, img image.Image) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
	return path
}

var (
	Black = color.RGBA{A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)
