package cv

import (
	"image"
	"math"
	"sort"
)

// MatchResult is the outcome of one template search. Rect and Center are
// frame-relative. When Found is false, Score still carries the best score seen.
type MatchResult struct {
	Found  bool
	Score  float64
	Rect   image.Rectangle
	Center image.Point
	Scale  float64
}

// DefaultSearchBudget bounds the multiply-adds of an exhaustive scan before
// the coarse-to-fine search takes over
const DefaultSearchBudget = 4e7

const (
	minCoarseSide    = 8
	coarseCandidates = 8
)

// planes holds an image as three float32 channel planes
type planes struct {
	w, h int
	c    [3][]float32
}

func toPlanes(img *image.RGBA) *planes {
	b := img.Bounds()
	p := &planes{w: b.Dx(), h: b.Dy()}
	n := p.w * p.h
	for c := 0; c < 3; c++ {
		p.c[c] = make([]float32, n)
	}
	for y := 0; y < p.h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < p.w; x++ {
			i := y*p.w + x
			p.c[0][i] = float32(row[x*4])
			p.c[1][i] = float32(row[x*4+1])
			p.c[2][i] = float32(row[x*4+2])
		}
	}
	return p
}

// integral holds per-channel summed-area tables of values and squares
type integral struct {
	w   int // table stride, image width + 1
	sum [3][]float64
	sq  [3][]float64
}

func newIntegral(p *planes) *integral {
	w := p.w + 1
	in := &integral{w: w}
	for c := 0; c < 3; c++ {
		sum := make([]float64, w*(p.h+1))
		sq := make([]float64, w*(p.h+1))
		src := p.c[c]
		for y := 0; y < p.h; y++ {
			var rs, rq float64
			for x := 0; x < p.w; x++ {
				v := float64(src[y*p.w+x])
				rs += v
				rq += v * v
				sum[(y+1)*w+x+1] = sum[y*w+x+1] + rs
				sq[(y+1)*w+x+1] = sq[y*w+x+1] + rq
			}
		}
		in.sum[c] = sum
		in.sq[c] = sq
	}
	return in
}

func (in *integral) box(table []float64, x, y, bw, bh int) float64 {
	w := in.w
	return table[(y+bh)*w+x+bw] - table[y*w+x+bw] - table[(y+bh)*w+x] + table[y*w+x]
}

// variance returns the summed squared deviation over all channels of a window
func (in *integral) variance(x, y, bw, bh int) float64 {
	n := float64(bw * bh)
	var v float64
	for c := 0; c < 3; c++ {
		s := in.box(in.sum[c], x, y, bw, bh)
		v += in.box(in.sq[c], x, y, bw, bh) - s*s/n
	}
	return v
}

// kernel is a zero-mean template ready for correlation
type kernel struct {
	w, h  int
	c     [3][]float32
	power float64
}

func newKernel(p *planes) *kernel {
	k := &kernel{w: p.w, h: p.h}
	n := p.w * p.h
	for c := 0; c < 3; c++ {
		var mean float64
		for _, v := range p.c[c] {
			mean += float64(v)
		}
		mean /= float64(n)
		k.c[c] = make([]float32, n)
		for i, v := range p.c[c] {
			d := float64(v) - mean
			k.c[c][i] = float32(d)
			k.power += d * d
		}
	}
	return k
}

// scoreAt computes the normalized correlation coefficient at one offset.
// Because the kernel is zero-mean, the window mean drops out of the numerator.
func scoreAt(f *planes, in *integral, k *kernel, x, y int) float64 {
	if k.power <= 1e-9 {
		return 0
	}
	varI := in.variance(x, y, k.w, k.h)
	if varI <= 1e-9 {
		return 0
	}

	var num float64
	for c := 0; c < 3; c++ {
		fc, kc := f.c[c], k.c[c]
		for ty := 0; ty < k.h; ty++ {
			frow := fc[(y+ty)*f.w+x : (y+ty)*f.w+x+k.w]
			krow := kc[ty*k.w : (ty+1)*k.w]
			var acc float32
			for i, kv := range krow {
				acc += kv * frow[i]
			}
			num += float64(acc)
		}
	}

	s := num / math.Sqrt(k.power*varI)
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return s
}

// scan evaluates every offset in [x0,x1]x[y0,y1] and returns the best.
// Ties keep the first offset in row-major order.
func scan(f *planes, in *integral, k *kernel, x0, y0, x1, y1 int) (float64, image.Point) {
	best := math.Inf(-1)
	var loc image.Point
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			if s := scoreAt(f, in, k, x, y); s > best {
				best = s
				loc = image.Point{X: x, Y: y}
			}
		}
	}
	return best, loc
}

// FindTemplate locates tmpl inside frame (optionally within region) using the
// normalized correlation coefficient. ok is false when tmpl does not fit.
func FindTemplate(frame, tmpl *image.RGBA, region *image.Rectangle, budget float64) (score float64, loc image.Point, ok bool) {
	search := frame.Bounds()
	if region != nil {
		search = region.Intersect(search)
	}
	tw, th := tmpl.Bounds().Dx(), tmpl.Bounds().Dy()
	if tw <= 0 || th <= 0 || tw > search.Dx() || th > search.Dy() {
		return 0, image.Point{}, false
	}
	if budget <= 0 {
		budget = DefaultSearchBudget
	}

	sub := frame.SubImage(search).(*image.RGBA)
	positions := float64((search.Dx() - tw + 1) * (search.Dy() - th + 1))
	cost := positions * float64(tw*th*3)

	factor := pyramidFactor(cost, tw, th, budget)
	if factor == 1 {
		fp := toPlanes(sub)
		s, l := scan(fp, newIntegral(fp), newKernel(toPlanes(tmpl)), 0, 0, search.Dx()-tw, search.Dy()-th)
		return s, l.Add(search.Min), true
	}

	s, l := coarseToFine(sub, tmpl, factor)
	return s, l.Add(search.Min), true
}

// pyramidFactor picks the smallest power-of-two reduction that brings cost
// within budget while keeping the reduced template at least minCoarseSide.
func pyramidFactor(cost float64, tw, th int, budget float64) int {
	if cost <= budget {
		return 1
	}
	minSide := tw
	if th < minSide {
		minSide = th
	}
	factor := 1
	for f := 2; f <= 16; f *= 2 {
		if minSide/f < minCoarseSide {
			break
		}
		factor = f
		if cost/float64(f*f*f*f) <= budget {
			break
		}
	}
	return factor
}

type candidate struct {
	score float64
	x, y  int
}

// coarseToFine scans a downscaled copy, then rescans the neighborhoods of the
// strongest coarse peaks at full resolution.
func coarseToFine(frame, tmpl *image.RGBA, factor int) (float64, image.Point) {
	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()
	tw, th := tmpl.Bounds().Dx(), tmpl.Bounds().Dy()

	cf := toPlanes(resizeRGBA(frame, fw/factor, fh/factor))
	ck := newKernel(toPlanes(resizeRGBA(tmpl, tw/factor, th/factor)))
	cin := newIntegral(cf)

	cw, ch := cf.w-ck.w+1, cf.h-ck.h+1
	cands := make([]candidate, 0, cw*ch)
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			s := scoreAt(cf, cin, ck, x, y)
			cands = append(cands, candidate{score: s, x: x, y: y})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	radius := ck.w / 2
	if ck.h/2 < radius {
		radius = ck.h / 2
	}
	if radius < 2 {
		radius = 2
	}
	var peaks []candidate
	for _, c := range cands {
		if len(peaks) == coarseCandidates {
			break
		}
		near := false
		for _, p := range peaks {
			if absInt(p.x-c.x) <= radius && absInt(p.y-c.y) <= radius {
				near = true
				break
			}
		}
		if !near {
			peaks = append(peaks, c)
		}
	}

	fp := toPlanes(frame)
	fin := newIntegral(fp)
	k := newKernel(toPlanes(tmpl))
	maxX, maxY := fw-tw, fh-th

	best := math.Inf(-1)
	var loc image.Point
	for _, p := range peaks {
		cx, cy := p.x*factor, p.y*factor
		x0, x1 := clampInt(cx-factor-1, 0, maxX), clampInt(cx+factor+1, 0, maxX)
		y0, y1 := clampInt(cy-factor-1, 0, maxY), clampInt(cy+factor+1, 0, maxY)
		if s, l := scan(fp, fin, k, x0, y0, x1, y1); s > best {
			best = s
			loc = l
		}
	}
	return best, loc
}

// ScoreAt returns the correlation coefficient of tmpl placed at loc in frame
func ScoreAt(frame, tmpl *image.RGBA, loc image.Point) float64 {
	tw, th := tmpl.Bounds().Dx(), tmpl.Bounds().Dy()
	b := frame.Bounds()
	if loc.X < b.Min.X || loc.Y < b.Min.Y || loc.X+tw > b.Max.X || loc.Y+th > b.Max.Y {
		return 0
	}
	window := image.Rect(loc.X, loc.Y, loc.X+tw, loc.Y+th)
	fp := toPlanes(frame.SubImage(window).(*image.RGBA))
	return scoreAt(fp, newIntegral(fp), newKernel(toPlanes(tmpl)), 0, 0)
}

// CropRegion copies a rectangle of img into a new image anchored at the origin
func CropRegion(img *image.RGBA, rect image.Rectangle) *image.RGBA {
	rect = rect.Intersect(img.Bounds())
	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		src := img.Pix[img.PixOffset(rect.Min.X, rect.Min.Y+y):]
		copy(cropped.Pix[y*cropped.Stride:(y+1)*cropped.Stride], src[:rect.Dx()*4])
	}
	return cropped
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
