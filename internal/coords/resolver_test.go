package coords

import (
	"errors"
	"image"
	"testing"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win/wintest"
)

type fixture struct {
	desk   *wintest.Desktop
	root   win.HWND
	canvas win.HWND
	button win.HWND
}

// newFixture builds a game window at (100,50) with an 8px border and a 31px
// caption. The canvas fills the client area; the button sits at (300,300)
// on screen under a hidden overlay.
func newFixture() fixture {
	d := wintest.New()
	root := d.Add(wintest.Window{
		Title:  "二重螺旋",
		Class:  "UnrealWindow",
		Rect:   win.Rect{Left: 100, Top: 50, Right: 900, Bottom: 650},
		Client: win.Rect{Left: 108, Top: 81, Right: 892, Bottom: 642},
	})
	canvas := d.Add(wintest.Window{
		Parent: root,
		Class:  "Canvas",
		Rect:   win.Rect{Left: 108, Top: 81, Right: 892, Bottom: 642},
	})
	d.Add(wintest.Window{
		Parent: canvas,
		Class:  "Overlay",
		Rect:   win.Rect{Left: 108, Top: 81, Right: 892, Bottom: 642},
		Hidden: true,
	})
	button := d.Add(wintest.Window{
		Parent: canvas,
		Class:  "Button",
		Rect:   win.Rect{Left: 300, Top: 300, Right: 400, Bottom: 340},
	})
	return fixture{desk: d, root: root, canvas: canvas, button: button}
}

func TestResolveDeepestChild(t *testing.T) {
	f := newFixture()
	r := NewResolver(f.desk)

	tests := []struct {
		name      string
		frame     image.Point
		want      win.HWND
		wantPoint win.Point
		hops      int
	}{
		{"button", image.Pt(250, 270), f.button, win.Point{X: 50, Y: 20}, 3},
		{"canvas only", image.Pt(20, 40), f.canvas, win.Point{X: 12, Y: 9}, 2},
		{"caption", image.Pt(20, 10), f.root, win.Point{X: 12, Y: -21}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := r.Resolve(f.root, tt.frame)
			if err != nil {
				t.Fatalf("resolve failed: %v", err)
			}
			if target.Handle != tt.want {
				t.Errorf("handle = %s, want %s (chain %s)", target.Handle, tt.want, target.Chain())
			}
			if target.Point != tt.wantPoint {
				t.Errorf("point = %+v, want %+v", target.Point, tt.wantPoint)
			}
			if len(target.Hops) != tt.hops {
				t.Errorf("hops = %d, want %d", len(target.Hops), tt.hops)
			}
			if target.Degraded {
				t.Error("walk should not be degraded")
			}
		})
	}
}

func TestCoordinateRoundTrip(t *testing.T) {
	f := newFixture()
	r := NewResolver(f.desk)

	for _, p := range []image.Point{{0, 0}, {250, 270}, {799, 599}, {8, 31}} {
		s, err := r.FrameToScreen(f.root, p)
		if err != nil {
			t.Fatal(err)
		}
		back, err := r.ScreenToFrame(f.root, s)
		if err != nil {
			t.Fatal(err)
		}
		if back != p {
			t.Errorf("frame %v -> screen %+v -> frame %v", p, s, back)
		}

		c, err := r.FrameToClient(f.root, p)
		if err != nil {
			t.Fatal(err)
		}
		s2, err := f.desk.ClientToScreen(f.root, c)
		if err != nil {
			t.Fatal(err)
		}
		if s2 != s {
			t.Errorf("client round trip: %+v != %+v", s2, s)
		}
	}
}

// vanishing destroys a window the moment the hit test returns it
type vanishing struct {
	*wintest.Desktop
	victim win.HWND
}

func (v *vanishing) ChildWindowFromPointEx(parent win.HWND, p win.Point, flags uint32) win.HWND {
	h := v.Desktop.ChildWindowFromPointEx(parent, p, flags)
	if h == v.victim {
		v.Destroy(h)
	}
	return h
}

func TestResolveDegradesWhenChildVanishes(t *testing.T) {
	f := newFixture()
	r := NewResolver(&vanishing{Desktop: f.desk, victim: f.button})

	target, err := r.Resolve(f.root, image.Pt(250, 270))
	if err != nil {
		t.Fatalf("degraded walk must not fail: %v", err)
	}
	if !target.Degraded {
		t.Error("expected degraded flag")
	}
	if target.Handle != f.canvas {
		t.Errorf("handle = %s, want last good window %s", target.Handle, f.canvas)
	}
	if target.Point != (win.Point{X: 242, Y: 239}) {
		t.Errorf("point = %+v, want canvas client (242,239)", target.Point)
	}
}

func TestResolveClientMatchesResolve(t *testing.T) {
	f := newFixture()
	r := NewResolver(f.desk)

	byFrame, err := r.Resolve(f.root, image.Pt(250, 270))
	if err != nil {
		t.Fatal(err)
	}
	byClient, err := r.ResolveClient(f.root, byFrame.RootPoint)
	if err != nil {
		t.Fatal(err)
	}
	if byClient.Handle != byFrame.Handle || byClient.Point != byFrame.Point {
		t.Errorf("client resolve %s, frame resolve %s", byClient, byFrame)
	}
}

func TestResolveInvalidRoot(t *testing.T) {
	r := NewResolver(wintest.New())
	if _, err := r.Resolve(0xDEAD, image.Pt(1, 1)); !errors.Is(err, win.ErrInvalidWindow) {
		t.Errorf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestClientCenter(t *testing.T) {
	f := newFixture()
	c, err := NewResolver(f.desk).ClientCenter(f.root)
	if err != nil {
		t.Fatal(err)
	}
	if c != (win.Point{X: 392, Y: 280}) {
		t.Errorf("center = %+v, want (392,280)", c)
	}
}
