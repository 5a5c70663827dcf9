package cv

import (
	"image"
	"math/rand"
	"testing"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv/cvtest"
)

// sparseEdges returns a binary map where roughly density of the pixels are set
func sparseEdges(seed int64, w, h int, density float64) *image.Gray {
	r := rand.New(rand.NewSource(seed))
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		if r.Float64() < density {
			g.Pix[i] = 255
		}
	}
	return g
}

func cropGray(g *image.Gray, rect image.Rectangle) *image.Gray {
	out := image.NewGray(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+rect.Dx()], g.Pix[(rect.Min.Y+y)*g.Stride+rect.Min.X:])
	}
	return out
}

func TestMaskedCorrelationIdentity(t *testing.T) {
	frame := sparseEdges(1, 200, 80, 0.1)
	fb := toBitmap(frame, 1)

	// x offsets straddle a 64-bit word boundary
	for _, x := range []int{0, 63, 64, 70} {
		crop := cropGray(frame, image.Rect(x, 10, x+100, 50))
		mask := binarize(crop)
		score := maskedCorrelation(fb, toBitmap(crop, 1), toBitmap(mask, 1))
		if score < 0.999 {
			t.Errorf("x=%d: score = %.4f, want ~1.0", x, score)
		}
	}
}

func TestMaskedCorrelationFullResolutionFrame(t *testing.T) {
	frame := sparseEdges(11, 1280, 720, 0.05)
	fb := toBitmap(frame, 1)

	// odd offsets so the template does not line up with the pooling grid
	crop := cropGray(frame, image.Rect(613, 337, 613+96, 337+64))
	tmpl := toBitmap(crop, 1)
	full := image.NewGray(crop.Bounds())
	for i := range full.Pix {
		full.Pix[i] = 255
	}
	mask := toBitmap(full, 1)

	if f := maskedFactor(fb, tmpl); f < 2 {
		t.Fatalf("factor = %d, a 1280x720 scan should run coarse-to-fine", f)
	}
	if score := maskedCorrelation(fb, tmpl, mask); score < 0.999 {
		t.Errorf("score = %.4f, want ~1.0", score)
	}

	unrelated := toBitmap(sparseEdges(12, 96, 64, 0.05), 1)
	if score := maskedCorrelation(fb, unrelated, mask); score >= 0.5 {
		t.Errorf("unrelated edges scored %.4f", score)
	}
}

func TestPoolKeepsEveryBit(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 130, 9))
	g.Pix[0] = 255
	g.Pix[8*g.Stride+129] = 255
	p := pool(toBitmap(g, 1), 4)
	if p.w != 33 || p.h != 3 || p.count() != 2 {
		t.Fatalf("pooled %dx%d with %d bits", p.w, p.h, p.count())
	}
	if p.wordAt(0, 0)&1 == 0 || p.wordAt(2, 32)&1 == 0 {
		t.Error("pooled bits landed in the wrong cells")
	}
}

func TestMaskedCorrelationUnrelated(t *testing.T) {
	frame := toBitmap(sparseEdges(2, 200, 80, 0.1), 1)
	tmpl := sparseEdges(3, 40, 20, 0.1)

	score := maskedCorrelation(frame, toBitmap(tmpl, 1), toBitmap(binarize(tmpl), 1))
	if score >= 0.7 {
		t.Errorf("unrelated edges scored %.4f", score)
	}
}

func TestMaskedCorrelationOversizedTemplate(t *testing.T) {
	frame := toBitmap(sparseEdges(4, 30, 30, 0.2), 1)
	tmpl := sparseEdges(5, 40, 20, 0.2)
	if score := maskedCorrelation(frame, toBitmap(tmpl, 1), toBitmap(binarize(tmpl), 1)); score != 0 {
		t.Errorf("oversized template scored %.4f, want 0", score)
	}
}

func TestMaskedCorrelationEmptyMask(t *testing.T) {
	frame := toBitmap(sparseEdges(6, 50, 50, 0.2), 1)
	tmpl := sparseEdges(7, 20, 20, 0.2)
	empty := image.NewGray(image.Rect(0, 0, 20, 20))
	if score := maskedCorrelation(frame, toBitmap(tmpl, 1), toBitmap(empty, 1)); score != 0 {
		t.Errorf("empty mask scored %.4f, want 0", score)
	}
}

func TestPrepareEdgeVariants(t *testing.T) {
	img := cvtest.Solid(60, 40, cvtest.Black)
	cvtest.FillRect(img, image.Rect(10, 10, 50, 30), cvtest.White)
	edges, mask := TemplateEdges(img)

	variants := prepareEdgeVariants(edges, mask)
	if len(variants) != len(ScenarioScales) {
		t.Fatalf("variants = %d, want %d", len(variants), len(ScenarioScales))
	}
	want := [][2]int{{60, 40}, {57, 38}, {54, 36}}
	for i, v := range variants {
		if v.tmpl.w != want[i][0] || v.tmpl.h != want[i][1] {
			t.Errorf("scale %.2f: size %dx%d, want %dx%d", v.scale, v.tmpl.w, v.tmpl.h, want[i][0], want[i][1])
		}
	}

	if got := prepareEdgeVariants(edges, image.NewGray(edges.Bounds())); got != nil {
		t.Errorf("empty mask should give no variants, got %d", len(got))
	}
}

func TestMatchEdgeMaskedFindsDrawnScene(t *testing.T) {
	dir := t.TempDir()
	img := cvtest.Solid(200, 150, cvtest.Black)
	cvtest.RectOutline(img, image.Rect(40, 30, 100, 80), cvtest.White)
	cvtest.FillRect(img, image.Rect(55, 45, 70, 60), cvtest.White)
	cvtest.FillRect(img, image.Rect(130, 90, 180, 130), cvtest.White)

	inScene := cvtest.WritePNG(t, dir, "mapA.png", CropRegion(img, image.Rect(30, 20, 110, 90)))

	other := cvtest.Solid(80, 70, cvtest.Black)
	cvtest.Stripes(other, 10, cvtest.White)
	notInScene := cvtest.WritePNG(t, dir, "mapB.png", other)

	m := NewMatcher()
	frame := NewFrame(1, img)

	hit, err := m.MatchEdgeMasked(frame, inScene)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if hit < 0.99 {
		t.Errorf("matching scene scored %.4f, want ~1.0", hit)
	}

	miss, err := m.MatchEdgeMasked(frame, notInScene)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if miss >= hit {
		t.Errorf("unrelated scene scored %.4f >= %.4f", miss, hit)
	}
}
