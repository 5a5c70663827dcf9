package cv

import (
	"image"
	"math"
	"math/bits"
	"sort"
)

// bitmap stores a binary image as rows of 64-bit words. Each row carries one
// spare word so unaligned reads near the right edge stay in bounds.
type bitmap struct {
	w, h  int
	words int
	rows  []uint64
}

func newBitmap(w, h int) *bitmap {
	words := (w+63)/64 + 1
	return &bitmap{w: w, h: h, words: words, rows: make([]uint64, words*h)}
}

// toBitmap sets a bit for every pixel at or above cutoff
func toBitmap(g *image.Gray, cutoff uint8) *bitmap {
	w, h := g.Bounds().Dx(), g.Bounds().Dy()
	bm := newBitmap(w, h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride:]
		for x := 0; x < w; x++ {
			if row[x] >= cutoff && row[x] != 0 {
				bm.rows[y*bm.words+(x>>6)] |= 1 << uint(x&63)
			}
		}
	}
	return bm
}

// wordAt returns 64 bits of row y starting at bit x
func (bm *bitmap) wordAt(y, x int) uint64 {
	q, s := x>>6, uint(x&63)
	base := y * bm.words
	if s == 0 {
		return bm.rows[base+q]
	}
	return bm.rows[base+q]>>s | bm.rows[base+q+1]<<(64-s)
}

func (bm *bitmap) count() int {
	n := 0
	for _, v := range bm.rows {
		n += bits.OnesCount64(v)
	}
	return n
}

func and(a, b *bitmap) *bitmap {
	out := newBitmap(a.w, a.h)
	for i := range out.rows {
		out.rows[i] = a.rows[i] & b.rows[i]
	}
	return out
}

// Masked scans above maskedSearchBudget word operations run coarse-to-fine
const (
	maskedSearchBudget = 8e6
	maskedPeaks        = 16
)

// maskedCorrelation is the best masked normalized cross-correlation of a
// binary template over a binary frame:
//
//	score(x,y) = |T∧M∧I| / sqrt(|T∧M| * |I∧M|)
//
// with I shifted to (x,y). An undefined score (empty overlap) counts as 0.
func maskedCorrelation(frame, tmpl, mask *bitmap) float64 {
	if tmpl.w > frame.w || tmpl.h > frame.h {
		return 0
	}
	tm := and(tmpl, mask)
	if tm.count() == 0 {
		return 0
	}

	var best float64
	if factor := maskedFactor(frame, tmpl); factor > 1 {
		best = maskedCoarseToFine(frame, tm, mask, factor)
	} else {
		best, _ = scanMasked(frame, tm, mask, 0, 0, frame.w-tmpl.w, frame.h-tmpl.h)
	}
	if math.IsNaN(best) || math.IsInf(best, 0) {
		return 0
	}
	return best
}

// maskedFactor is the pooling factor for a scan of tmpl over frame, 1 when
// an exhaustive scan fits the budget
func maskedFactor(frame, tmpl *bitmap) int {
	positions := float64((frame.w - tmpl.w + 1) * (frame.h - tmpl.h + 1))
	cost := positions * float64(tmpl.h*((tmpl.w+63)/64))
	return pyramidFactor(cost, tmpl.w, tmpl.h, maskedSearchBudget)
}

// scanMasked scores every offset in [x0,x1]×[y0,y1]. tm is T∧M.
func scanMasked(frame, tm, mask *bitmap, x0, y0, x1, y1 int) (float64, image.Point) {
	tmCount := float64(tm.count())
	tw := (tm.w + 63) / 64
	best := 0.0
	var loc image.Point
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			var hit, cover int
			for ty := 0; ty < tm.h; ty++ {
				tmRow := tm.rows[ty*tm.words:]
				mRow := mask.rows[ty*mask.words:]
				for k := 0; k < tw; k++ {
					iw := frame.wordAt(y+ty, x+k*64)
					hit += bits.OnesCount64(iw & tmRow[k])
					cover += bits.OnesCount64(iw & mRow[k])
				}
			}
			if cover == 0 {
				continue
			}
			if s := float64(hit) / math.Sqrt(tmCount*float64(cover)); s > best {
				best = s
				loc = image.Point{X: x, Y: y}
			}
		}
	}
	return best, loc
}

// pool ORs factor×factor cells into one bit
func pool(bm *bitmap, factor int) *bitmap {
	out := newBitmap((bm.w+factor-1)/factor, (bm.h+factor-1)/factor)
	for y := 0; y < bm.h; y++ {
		row := bm.rows[y*bm.words:]
		oy := (y / factor) * out.words
		for x := 0; x < bm.w; x++ {
			if row[x>>6]&(1<<uint(x&63)) != 0 {
				ox := x / factor
				out.rows[oy+(ox>>6)] |= 1 << uint(ox&63)
			}
		}
	}
	return out
}

// maskedCoarseToFine scans pooled copies, then rescans the neighborhoods of
// the strongest coarse peaks at full resolution
func maskedCoarseToFine(frame, tm, mask *bitmap, factor int) float64 {
	cf, ctm, cm := pool(frame, factor), pool(tm, factor), pool(mask, factor)
	if ctm.w > cf.w || ctm.h > cf.h || ctm.count() == 0 {
		best, _ := scanMasked(frame, tm, mask, 0, 0, frame.w-tm.w, frame.h-tm.h)
		return best
	}
	ctmCount := float64(ctm.count())
	tw := (ctm.w + 63) / 64

	cw, ch := cf.w-ctm.w+1, cf.h-ctm.h+1
	cands := make([]candidate, 0, cw*ch)
	for y := 0; y < ch; y++ {
		for x := 0; x < cw; x++ {
			var hit, cover int
			for ty := 0; ty < ctm.h; ty++ {
				tmRow := ctm.rows[ty*ctm.words:]
				mRow := cm.rows[ty*cm.words:]
				for k := 0; k < tw; k++ {
					iw := cf.wordAt(y+ty, x+k*64)
					hit += bits.OnesCount64(iw & tmRow[k])
					cover += bits.OnesCount64(iw & mRow[k])
				}
			}
			if cover == 0 {
				continue
			}
			cands = append(cands, candidate{score: float64(hit) / math.Sqrt(ctmCount*float64(cover)), x: x, y: y})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].score > cands[j].score })

	radius := ctm.w / 2
	if ctm.h/2 < radius {
		radius = ctm.h / 2
	}
	if radius < 2 {
		radius = 2
	}
	var peaks []candidate
	for _, c := range cands {
		if len(peaks) == maskedPeaks {
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

	maxX, maxY := frame.w-tm.w, frame.h-tm.h
	best := 0.0
	for _, p := range peaks {
		cx, cy := p.x*factor, p.y*factor
		x0, x1 := clampInt(cx-factor-1, 0, maxX), clampInt(cx+factor+1, 0, maxX)
		y0, y1 := clampInt(cy-factor-1, 0, maxY), clampInt(cy+factor+1, 0, maxY)
		if s, _ := scanMasked(frame, tm, mask, x0, y0, x1, y1); s > best {
			best = s
		}
	}
	return best
}

// ScenarioScales are the template scales tried by edge-masked scoring
var ScenarioScales = []float64{1.0, 0.95, 0.9}

// edgeVariant is one prepared scale of a template edge map
type edgeVariant struct {
	scale float64
	tmpl  *bitmap
	mask  *bitmap
}

// prepareEdgeVariants resamples a template edge map and mask to every
// scenario scale. Edges are area resampled and re-binarized at half
// intensity; masks use nearest neighbor. Scales whose mask empties are dropped.
func prepareEdgeVariants(tmplEdges, mask *image.Gray) []edgeVariant {
	bw, bh := tmplEdges.Bounds().Dx(), tmplEdges.Bounds().Dy()
	if bw == 0 || bh == 0 || countNonZero(mask) == 0 {
		return nil
	}

	variants := make([]edgeVariant, 0, len(ScenarioScales))
	for _, s := range ScenarioScales {
		e, m := tmplEdges, mask
		cutoff := uint8(1)
		if s != 1.0 {
			tw, th := scaledSizeRound(bw, bh, s)
			e = resizeGrayArea(tmplEdges, tw, th)
			m = resizeGrayNearest(mask, tw, th)
			cutoff = 128
		}
		mb := toBitmap(m, 1)
		if mb.count() == 0 {
			continue
		}
		variants = append(variants, edgeVariant{scale: s, tmpl: toBitmap(e, cutoff), mask: mb})
	}
	return variants
}

// bestEdgeScore returns the best score over variants that fit inside the frame
func bestEdgeScore(frame *bitmap, variants []edgeVariant) float64 {
	best := 0.0
	for _, v := range variants {
		if v.tmpl.w > frame.w || v.tmpl.h > frame.h {
			continue
		}
		if score := maskedCorrelation(frame, v.tmpl, v.mask); score > best {
			best = score
		}
	}
	return best
}

// EdgeMaskedScore returns the best masked edge correlation of a template edge
// map against a frame edge map across ScenarioScales
func EdgeMaskedScore(frameEdges, tmplEdges, mask *image.Gray) float64 {
	return bestEdgeScore(toBitmap(frameEdges, 1), prepareEdgeVariants(tmplEdges, mask))
}
