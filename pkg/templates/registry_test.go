package templates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv/cvtest"
)

func TestBuiltins(t *testing.T) {
	r := NewRegistry("control")

	confirm := r.MustGet(Confirm)
	if confirm.Path != filepath.Join("control", "querenxuanze.png") {
		t.Errorf("confirm path = %s", confirm.Path)
	}
	if confirm.Threshold != 0 || len(confirm.Scales) != 0 {
		t.Errorf("UI markers inherit the session threshold at native scale: %+v", confirm)
	}

	doc := r.MustGet(ChooseDocument)
	if doc.Threshold != DocumentThreshold || len(doc.Scales) != len(DocumentScales) {
		t.Errorf("document marker = %+v", doc)
	}

	first := r.MustGet(RewardFirst)
	if first.Path != filepath.Join("control", RewardDir, "first.png") {
		t.Errorf("reward path = %s", first.Path)
	}
	for _, name := range Core {
		if !r.Has(name) {
			t.Errorf("core marker %s missing", name)
		}
	}
}

func TestGetOrDefault(t *testing.T) {
	r := NewRegistry("control")
	got := r.GetOrDefault("custom")
	if got.Path != filepath.Join("control", "custom.png") {
		t.Errorf("default path = %s", got.Path)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)

	if ok, err := r.LoadOverrides(); ok || err != nil {
		t.Fatalf("missing overrides: ok=%v err=%v", ok, err)
	}

	doc := `markers:
  - name: likai
    path: alt/likai.png
    threshold: 0.9
    region: {x1: 0, y1: 0, x2: 199, y2: 99}
  - name: boss
    path: boss.png
    scales: [1.0, 0.9]
`
	if err := os.WriteFile(filepath.Join(dir, OverridesFile), []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	ok, err := r.LoadOverrides()
	if !ok || err != nil {
		t.Fatalf("load overrides: ok=%v err=%v", ok, err)
	}

	likai := r.MustGet(InScenario)
	if likai.Path != filepath.Join(dir, "alt", "likai.png") || likai.Threshold != 0.9 {
		t.Errorf("override not applied: %+v", likai)
	}
	if likai.Region == nil || likai.Region.Width() != 200 || likai.Region.Height() != 100 {
		t.Errorf("region = %+v", likai.Region)
	}
	if boss, ok := r.Get("boss"); !ok || len(boss.Scales) != 2 {
		t.Errorf("boss = %+v ok=%v", boss, ok)
	}
}

func TestLoadFromFileRejectsBadDefinitions(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		doc  string
	}{
		{"no name", "markers:\n  - path: a.png\n"},
		{"no path", "markers:\n  - name: a\n"},
		{"threshold", "markers:\n  - name: a\n    path: a.png\n    threshold: 1.5\n"},
		{"yaml", "markers: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			if err := os.WriteFile(path, []byte(tt.doc), 0644); err != nil {
				t.Fatal(err)
			}
			r := NewRegistry(dir)
			before := r.Count()
			if err := r.LoadFromFile(path); err == nil {
				t.Fatal("expected an error")
			}
			if r.Count() != before {
				t.Error("a rejected file must not change the registry")
			}
		})
	}
}

func TestPreload(t *testing.T) {
	dir := t.TempDir()
	cvtest.WritePNG(t, dir, "querenxuanze.png", cvtest.Noise(1, 20, 10))
	cvtest.WritePNG(t, dir, "likai.png", cvtest.Noise(2, 20, 10))

	r := NewRegistry(dir)
	cache := cv.NewTemplateCache()
	loaded, err := r.Preload(cache)
	if loaded != 2 {
		t.Errorf("loaded = %d, want 2", loaded)
	}
	if err == nil {
		t.Error("missing preload markers should be reported")
	}
	if cache.Len() != 2 {
		t.Errorf("cache holds %d templates", cache.Len())
	}
}

func TestRemoveAndList(t *testing.T) {
	r := NewRegistry("c")
	n := r.Count()
	if !r.Remove(Evacuate) || r.Remove(Evacuate) {
		t.Error("remove should succeed once")
	}
	if r.Count() != n-1 || len(r.List()) != n-1 {
		t.Errorf("count = %d, list = %d", r.Count(), len(r.List()))
	}
	if err := r.Register(cv.Template{}); err == nil {
		t.Error("nameless marker should be rejected")
	}
}
