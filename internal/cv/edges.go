package cv

import (
	"image"
)

// Canny thresholds and dilation used for scenario edge maps
const (
	CannyLow  = 50
	CannyHigh = 150
)

// Grayscale converts to 8-bit luminance with rounded Rec.601 weights
func Grayscale(img *image.RGBA) *image.Gray {
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			r, g, bl := int(src[x*4]), int(src[x*4+1]), int(src[x*4+2])
			dst[x] = uint8((r*299 + g*587 + bl*114 + 500) / 1000)
		}
	}
	return gray
}

// Canny runs Sobel gradients (L1 magnitude), non-maximum suppression and
// hysteresis thresholding. Edge pixels are 255, everything else 0.
func Canny(gray *image.Gray, low, high int) *image.Gray {
	w, h := gray.Bounds().Dx(), gray.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	at := func(x, y int) int {
		x = clampInt(x, 0, w-1)
		y = clampInt(y, 0, h-1)
		return int(gray.Pix[y*gray.Stride+x])
	}

	dx := make([]int, w*h)
	dy := make([]int, w*h)
	mag := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			gy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) - at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			i := y*w + x
			dx[i], dy[i] = gx, gy
			mag[i] = absInt(gx) + absInt(gy)
		}
	}

	magAt := func(x, y int) int {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	// tan(22.5deg) and tan(67.5deg) in 15-bit fixed point
	const (
		tg22 = 13573
		tg67 = 79109
	)

	const (
		notEdge = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	var stack []int

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}
			ax, ay := absInt(dx[i]), absInt(dy[i])
			tg22x := ax * tg22
			ay15 := ay << 15

			var isMax bool
			switch {
			case ay15 < tg22x:
				isMax = m > magAt(x-1, y) && m >= magAt(x+1, y)
			case ay15 > ax*tg67:
				isMax = m > magAt(x, y-1) && m >= magAt(x, y+1)
			default:
				s := 1
				if (dx[i] < 0) != (dy[i] < 0) {
					s = -1
				}
				isMax = m > magAt(x-s, y-1) && m > magAt(x+s, y+1)
			}
			if !isMax {
				continue
			}
			if m > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out.Pix[(i/w)*out.Stride+i%w] = 255
		x, y := i%w, i/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}
	return out
}

// Dilate3x3 grows nonzero pixels by one in every direction
func Dilate3x3(src *image.Gray) *image.Gray {
	w, h := src.Bounds().Dx(), src.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint8
			for ny := y - 1; ny <= y+1 && v < 255; ny++ {
				if ny < 0 || ny >= h {
					continue
				}
				row := src.Pix[ny*src.Stride:]
				for nx := x - 1; nx <= x+1; nx++ {
					if nx >= 0 && nx < w && row[nx] > v {
						v = row[nx]
					}
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}

// EdgeMap is grayscale, Canny(50,150), then one 3x3 dilation
func EdgeMap(img *image.RGBA) *image.Gray {
	return Dilate3x3(Canny(Grayscale(img), CannyLow, CannyHigh))
}

// countNonZero returns the number of nonzero pixels
func countNonZero(g *image.Gray) int {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	n := 0
	for y := 0; y < h; y++ {
		for _, v := range g.Pix[y*g.Stride : y*g.Stride+w] {
			if v != 0 {
				n++
			}
		}
	}
	return n
}

// minMaskPixels is the intersection size below which the alpha mask is used alone
const minMaskPixels = 50

// TemplateEdges derives the edge map and validity mask of a scenario template.
// The mask is the edge set, intersected with the dilated alpha>0 region when
// the image has alpha; a near-empty intersection falls back to the alpha region.
func TemplateEdges(img image.Image) (edges, mask *image.Gray) {
	edges = EdgeMap(toOpaqueRGBA(img))

	alpha := alphaMask(img)
	if alpha == nil {
		return edges, binarize(edges)
	}
	alpha = Dilate3x3(alpha)

	w, h := edges.Bounds().Dx(), edges.Bounds().Dy()
	mask = image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if edges.Pix[y*edges.Stride+x] != 0 && alpha.Pix[y*alpha.Stride+x] != 0 {
				mask.Pix[y*mask.Stride+x] = 255
			}
		}
	}
	if countNonZero(mask) < minMaskPixels {
		mask = alpha
	}
	return edges, mask
}

func binarize(g *image.Gray) *image.Gray {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if g.Pix[y*g.Stride+x] != 0 {
				out.Pix[y*out.Stride+x] = 255
			}
		}
	}
	return out
}
