package scenario

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv/cvtest"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
)

func TestGroup(t *testing.T) {
	got := Group([]string{"mapA.png", "mapA-2.png", "mapA-3.png", "mapB.png", "notes.txt", "mapC-3.PNG"})
	if len(got) != 3 {
		t.Fatalf("got %d candidates: %+v", len(got), got)
	}

	tests := []struct {
		name     string
		variants [numVariants]string
	}{
		{"mapA", [numVariants]string{"mapA.png", "mapA-2.png", "mapA-3.png"}},
		{"mapB", [numVariants]string{"mapB.png", "", ""}},
		{"mapC", [numVariants]string{"", "", "mapC-3.PNG"}},
	}
	for i, tt := range tests {
		if got[i].Name != tt.name {
			t.Errorf("candidate %d = %s, want %s", i, got[i].Name, tt.name)
			continue
		}
		if got[i].Variants != tt.variants {
			t.Errorf("%s variants = %v, want %v", tt.name, got[i].Variants, tt.variants)
		}
	}
	if got[0].Count() != 3 || got[1].Count() != 1 {
		t.Errorf("counts = %d, %d", got[0].Count(), got[1].Count())
	}
}

func TestGroupSkipsNamelessStems(t *testing.T) {
	got := Group([]string{"maps/-2.png", "maps/-3.png", "maps/.png", "maps/ -2.png", "maps/mapA-2.png"})
	if len(got) != 1 || got[0].Name != "mapA" {
		t.Fatalf("got %+v, want only mapA", got)
	}
}

func TestGroupKeepsInnerHyphens(t *testing.T) {
	// only the last suffix is stripped
	got := Group([]string{"dir/city-2-2.png", "dir/city-2.png"})
	if len(got) != 2 || got[0].Name != "city" || got[1].Name != "city-2" {
		t.Fatalf("got %+v", got)
	}
	if got[0].Variants[Feature2] != "dir/city-2.png" || got[1].Variants[Feature2] != "dir/city-2-2.png" {
		t.Errorf("feature2 variants = %q, %q", got[0].Variants[Feature2], got[1].Variants[Feature2])
	}

	got = Group([]string{"city-22.png"})
	if len(got) != 1 || got[0].Name != "city-22" || got[0].Variants[Base] == "" {
		t.Errorf("-22 is not a variant suffix: %+v", got)
	}
}

func TestScanMissingDir(t *testing.T) {
	got, err := Scan(filepath.Join(t.TempDir(), "none"))
	if err != nil || len(got) != 0 {
		t.Errorf("Scan = %v, %v", got, err)
	}
}

func TestScoreString(t *testing.T) {
	s := Score{
		Name:     "mapA",
		Variants: [numVariants]float64{0.812, 0.705, 0},
		Present:  [numVariants]bool{true, true, false},
		Total:    1.517,
	}
	want := "mapA: sum=1.52 (base=0.81,feat2=0.70,feat3=-)"
	if got := s.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func score(name string, vals ...float64) Score {
	s := Score{Name: name}
	for i, v := range vals {
		s.Present[i] = true
		s.Variants[i] = v
		s.Total += v
		if v > s.Max {
			s.Max = v
		}
	}
	return s
}

func TestSumPolicy(t *testing.T) {
	scores := []Score{score("a", 0.4, 0.4), score("b", 0.9), score("c", 0.35, 0.35, 0.35)}
	p := SumPolicy{}
	p.Rank(scores)
	if scores[0].Name != "c" || scores[1].Name != "b" {
		t.Errorf("ranking = %s, %s, %s", scores[0].Name, scores[1].Name, scores[2].Name)
	}
	if !p.Accept(scores[0]) {
		t.Error("positive sum should be accepted")
	}
	if p.Accept(score("z", 0, 0)) {
		t.Error("zero sum must not be accepted")
	}
}

func TestHitsPolicy(t *testing.T) {
	p := DefaultHitsPolicy()

	tests := []struct {
		name   string
		scores []Score
		best   string
		accept bool
	}{
		{"hits beat sum", []Score{score("a", 0.77, 0.77, 0.77), score("b", 0.8, 0.79)}, "b", true},
		{"quick accept", []Score{score("a", 0.91), score("b", 0.5, 0.5)}, "a", true},
		{"single weak hit", []Score{score("a", 0.85), score("b", 0.6)}, "a", false},
		{"tie on hits uses sum", []Score{score("a", 0.8, 0.1), score("b", 0.8, 0.3)}, "b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.Rank(tt.scores)
			if tt.scores[0].Name != tt.best {
				t.Errorf("best = %s, want %s", tt.scores[0].Name, tt.best)
			}
			if got := p.Accept(tt.scores[0]); got != tt.accept {
				t.Errorf("accept = %v, want %v", got, tt.accept)
			}
		})
	}
}

func TestParsePolicy(t *testing.T) {
	for name, want := range map[string]string{"": "sum", "SUM": "sum", " hits ": "hits"} {
		p, err := ParsePolicy(name)
		if err != nil || p.Name() != want {
			t.Errorf("ParsePolicy(%q) = %v, %v", name, p, err)
		}
	}
	if _, err := ParsePolicy("vote"); err == nil {
		t.Error("unknown policy should fail")
	}
}

// scene draws two features on black so template crops have flat borders
func scene() *image.RGBA {
	img := cvtest.Solid(240, 180, cvtest.Black)
	cvtest.RectOutline(img, image.Rect(40, 30, 100, 80), cvtest.White)
	cvtest.FillRect(img, image.Rect(55, 45, 70, 60), cvtest.White)
	cvtest.FillRect(img, image.Rect(150, 100, 200, 140), cvtest.White)
	return img
}

func TestRecognizeEndToEnd(t *testing.T) {
	dir := t.TempDir()
	img := scene()
	cvtest.WritePNG(t, dir, "mapA.png", cv.CropRegion(img, image.Rect(30, 20, 110, 90)))
	cvtest.WritePNG(t, dir, "mapA-2.png", cv.CropRegion(img, image.Rect(140, 90, 210, 150)))

	stripes := cvtest.Solid(80, 70, cvtest.Black)
	cvtest.Stripes(stripes, 10, cvtest.White)
	cvtest.WritePNG(t, dir, "mapB.png", stripes)

	candidates, err := Scan(dir)
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidates = %+v", candidates)
	}

	for _, policy := range []Policy{SumPolicy{}, DefaultHitsPolicy()} {
		t.Run(policy.Name(), func(t *testing.T) {
			logs := &logging.Buffer{}
			r := NewRecognizer(cv.NewMatcher(), policy, logging.NewSessionLogger("scenario", logs))

			rep, err := r.Recognize(cv.NewFrame(1, img), candidates)
			if err != nil {
				t.Fatalf("recognize failed: %v", err)
			}
			if rep.Name() != "mapA" {
				t.Fatalf("recognized %q, ranking %s", rep.Name(), rep.Top(3))
			}
			best, _ := rep.Best()
			if best.Variants[Base] < 0.99 {
				t.Errorf("base variant scored %.3f", best.Variants[Base])
			}
			if !logs.Contains("map match top3: mapA: sum=") || !logs.Contains("map recognized as mapA") {
				t.Errorf("missing logs: %v", logs.Lines())
			}
		})
	}
}

func TestRecognizeErrors(t *testing.T) {
	r := NewRecognizer(cv.NewMatcher(), nil, nil)
	if _, err := r.Recognize(nil, []Candidate{{Name: "a"}}); !errors.Is(err, cv.ErrCaptureUnavailable) {
		t.Errorf("nil frame err = %v", err)
	}

	rep, err := r.Recognize(cv.NewFrame(1, scene()), nil)
	if err != nil || rep.Name() != "" {
		t.Errorf("empty candidates: %+v %v", rep, err)
	}

	// a missing template scores zero instead of failing the round
	c := Candidate{Name: "ghost", Variants: [numVariants]string{filepath.Join(t.TempDir(), "ghost.png")}}
	rep, err = r.Recognize(cv.NewFrame(1, scene()), []Candidate{c})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Accepted || rep.Name() != "" {
		t.Errorf("zero score must not be accepted: %+v", rep)
	}
}
