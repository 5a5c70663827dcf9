package cv

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
)

// resizeRGBA scales src to w x h. Shrinking uses a bilinear kernel stretched
// over the source footprint, which averages like an area filter; enlarging
// uses Catmull-Rom.
func resizeRGBA(src *image.RGBA, w, h int) *image.RGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	b := src.Bounds()
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	kernelFor(b.Dx()*b.Dy(), w*h).Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// resizeGrayArea scales an 8-bit map with area-like averaging
func resizeGrayArea(src *image.Gray, w, h int) *image.Gray {
	b := src.Bounds()
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// resizeGrayNearest scales a binary mask without introducing new values
func resizeGrayNearest(src *image.Gray, w, h int) *image.Gray {
	b := src.Bounds()
	if w == b.Dx() && h == b.Dy() {
		return src
	}
	dst := image.NewGray(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

func kernelFor(srcArea, dstArea int) xdraw.Interpolator {
	if dstArea < srcArea {
		return xdraw.BiLinear
	}
	return xdraw.CatmullRom
}

// scaledSizeTrunc multiplies by s truncating toward zero, never below 1
func scaledSizeTrunc(w, h int, s float64) (int, int) {
	sw, sh := int(float64(w)*s), int(float64(h)*s)
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}

// scaledSizeRound multiplies by s rounding half away from zero, never below 1
func scaledSizeRound(w, h int, s float64) (int, int) {
	sw, sh := int(math.Round(float64(w)*s)), int(math.Round(float64(h)*s))
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	return sw, sh
}

// toOpaqueRGBA converts any decoded image to RGBA with alpha forced to 255.
// Non-premultiplied sources keep their raw color under transparent pixels.
func toOpaqueRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	switch src := img.(type) {
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()*4], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	default:
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	}

	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 255
	}
	return dst
}

// alphaMask returns alpha > 0 as a 0/255 map, or nil when img carries no
// alpha channel. PNG decodes alpha-bearing files to NRGBA or NRGBA64.
func alphaMask(img image.Image) *image.Gray {
	switch src := img.(type) {
	case *image.NRGBA, *image.NRGBA64:
	case *image.Paletted:
		if src.Opaque() {
			return nil
		}
	default:
		return nil
	}

	b := img.Bounds()
	mask := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if _, _, _, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA(); a > 0 {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	return mask
}
