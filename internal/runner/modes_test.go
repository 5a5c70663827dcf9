package runner

import (
	"context"
	"errors"
	"image"
	"path/filepath"
	"testing"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv/cvtest"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/database"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/events"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/input"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/session"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/pkg/templates"
)

// slots are marker positions along the top of the scene, clear of the
// scenario shapes below
var slots = []image.Point{
	{12, 40}, {60, 40}, {108, 40}, {156, 40}, {204, 40}, {252, 40}, {260, 80},
}

// paintScenario draws sparse shapes in the lower half of the scene and
// stores mapA (two variants) and a striped mapB for mode
func (f *fixture) paintScenario(t *testing.T, mode Mode) {
	t.Helper()
	cvtest.RectOutline(f.scene, image.Rect(40, 120, 100, 170), cvtest.White)
	cvtest.FillRect(f.scene, image.Rect(55, 135, 70, 150), cvtest.White)
	cvtest.FillRect(f.scene, image.Rect(200, 180, 250, 220), cvtest.White)

	dir := f.paths.Maps(mode)
	cvtest.WritePNG(t, dir, "mapA.png", cvtest.Crop(f.scene, image.Rect(30, 110, 110, 180)))
	cvtest.WritePNG(t, dir, "mapA-2.png", cvtest.Crop(f.scene, image.Rect(190, 170, 260, 230)))
	stripes := cvtest.Solid(60, 60, cvtest.Black)
	cvtest.Stripes(stripes, 8, cvtest.White)
	cvtest.WritePNG(t, dir, "mapB.png", stripes)
}

func TestSimpleModeRound(t *testing.T) {
	f := newFixture(t)
	for i, name := range []string{templates.Confirm, templates.Start, templates.InScenario, templates.Again} {
		f.patch(t, name, slots[i], true)
	}
	f.paintScenario(t, ModeSimple)
	f.writeScript(t, ModeSimple, "mapA")
	f.writeScript(t, ModeSimple, "mapB")

	bus := events.NewBus(8, nil)
	var seen []events.Type
	for _, typ := range []events.Type{events.SessionStarted, events.RoundFinished, events.SessionEnded} {
		bus.Subscribe(typ, func(e events.Event) { seen = append(seen, e.Type) })
	}

	r := f.runner(t, fastSettings(), WithEvents(bus))
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v\n%v", err, f.logs.Lines())
	}
	bus.Stop()

	wantSeen := []events.Type{events.SessionStarted, events.RoundFinished, events.SessionEnded}
	if len(seen) != len(wantSeen) {
		t.Fatalf("events = %v, want %v", seen, wantSeen)
	}
	for i := range wantSeen {
		if seen[i] != wantSeen[i] {
			t.Errorf("event %d = %s, want %s", i, seen[i], wantSeen[i])
		}
	}

	sess := r.Session()
	if sess.State() != session.StateCompleted || sess.LoopsDone() != 1 {
		t.Errorf("state=%s loops=%d, want completed after 1", sess.State(), sess.LoopsDone())
	}
	if len(f.history.rounds) != 1 {
		t.Fatalf("rounds = %+v", f.history.rounds)
	}
	round := f.history.rounds[0]
	if round.Scenario != "mapA" || !round.Recognized || round.Outcome != database.OutcomeCompleted {
		t.Errorf("round = %+v", round)
	}
	if len(f.history.ended) != 1 || f.history.ended[0] != database.StatusCompleted {
		t.Errorf("ended = %v", f.history.ended)
	}

	// confirm, start, the arming click, again, start
	if n := f.count(f.canvas, win.WM_LBUTTONDOWN); n != 5 {
		t.Errorf("canvas clicks = %d, want 5", n)
	}
	if n := f.count(f.canvas, win.WM_KEYDOWN); n != 1 {
		t.Errorf("canvas key downs = %d, want 1", n)
	}
	if n := f.count(f.root, win.WM_KEYDOWN); n != 1 {
		t.Errorf("root key downs = %d, want 1", n)
	}
	if !f.logs.Contains("map recognized as mapA") {
		t.Errorf("missing recognition log: %v", f.logs.Lines())
	}
}

func TestUnrecognizedScenario(t *testing.T) {
	tests := []struct {
		name     string
		fallback bool
		scripts  []string
		wantErr  error
		scenario string
	}{
		{"no fallback", false, []string{"mapZ"}, ErrScenarioUnrecognized, ""},
		{"fallback without scripts", true, nil, ErrNoScripts, ""},
		{"fallback plays a script", true, []string{"mapZ"}, nil, "mapZ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			for i, name := range []string{templates.Confirm, templates.Start, templates.InScenario, templates.Again} {
				f.patch(t, name, slots[i], true)
			}
			for _, s := range tt.scripts {
				f.writeScript(t, ModeSimple, s)
			}

			s := fastSettings()
			s.FallbackRandom = tt.fallback
			r := f.runner(t, s)
			err := r.Run(context.Background())

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if f.history.ended[0] != database.StatusFailed {
					t.Errorf("status = %s, want failed", f.history.ended[0])
				}
				if len(f.history.rounds) != 0 {
					t.Errorf("no round should be recorded: %+v", f.history.rounds)
				}
				return
			}
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if len(f.history.rounds) != 1 {
				t.Fatalf("rounds = %+v", f.history.rounds)
			}
			if got := f.history.rounds[0]; got.Scenario != tt.scenario || got.Recognized {
				t.Errorf("round = %+v, want fallback %s", got, tt.scenario)
			}
		})
	}
}

func TestScriptMissingForRecognizedScenario(t *testing.T) {
	f := newFixture(t)
	for i, name := range []string{templates.Confirm, templates.Start, templates.InScenario, templates.Again} {
		f.patch(t, name, slots[i], true)
	}
	f.paintScenario(t, ModeSimple)
	f.writeScript(t, ModeSimple, "other")

	err := f.runner(t, fastSettings()).Run(context.Background())
	if !errors.Is(err, ErrScriptLoad) {
		t.Fatalf("err = %v, want ErrScriptLoad", err)
	}
	if !f.logs.Contains("available: other") {
		t.Errorf("expected the available scripts to be listed: %v", f.logs.Lines())
	}
}

func TestSelectReward(t *testing.T) {
	names := []string{
		templates.RewardFirst,
		templates.RewardSecond,
		templates.RewardSecondInferior,
		templates.RewardThird,
		templates.RewardThirdShards,
		templates.RewardThirdWeapon,
	}
	tests := []struct {
		name    string
		visible []string
		want    string
		log     string
	}{
		{"first wins", []string{templates.RewardFirst, templates.RewardSecond}, templates.RewardFirst, "reward: first option"},
		{"inferior second", []string{templates.RewardSecond, templates.RewardSecondInferior}, templates.RewardSecond, "second option (inferior variant)"},
		{"third shards", []string{templates.RewardThird, templates.RewardThirdShards}, templates.RewardThird, "third option (shards)"},
		{"third weapon", []string{templates.RewardThird, templates.RewardThirdWeapon}, templates.RewardThird, "third option (weapon)"},
		{"nothing", nil, "", "no option recognized"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			var target image.Rectangle
			for i, name := range names {
				visible := false
				for _, v := range tt.visible {
					visible = visible || v == name
				}
				rect := f.patch(t, name, slots[i], visible)
				if name == tt.want {
					target = rect
				}
			}

			r := f.runner(t, fastSettings())
			sess := r.begin(context.Background(), ModeWeaponDocument)
			defer sess.Close()

			if got := r.SelectReward(); got != tt.want {
				t.Errorf("selected %q, want %q", got, tt.want)
			}
			if !f.logs.Contains(tt.log) {
				t.Errorf("missing log %q: %v", tt.log, f.logs.Lines())
			}

			clicks := 0
			for _, m := range f.desk.MessagesTo(f.canvas) {
				if m.Msg != win.WM_LBUTTONDOWN {
					continue
				}
				clicks++
				c := target.Min.Add(image.Pt(20, 16)).Sub(image.Pt(8, 31))
				if m.LParam != input.PackPoint(c.X, c.Y) {
					t.Errorf("clicked lParam %#x, want center of %v", m.LParam, target)
				}
			}
			want := 1
			if tt.want == "" {
				want = 0
			}
			if clicks != want {
				t.Errorf("clicks = %d, want %d", clicks, want)
			}
		})
	}
}

func TestSelectDocumentScrollsDownThenUp(t *testing.T) {
	tests := []struct {
		name      string
		appear    int // wheel ticks before the tile shows up
		wantFound bool
		wantTicks int
	}{
		{"found scrolling down", 3, true, 3},
		{"found scrolling up", 12, true, 12},
		{"never shows", 100, false, 2 * WheelTicks},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tile := cvtest.BlockNoise(7, 40, 32, 4)
			dir := filepath.Join(f.paths.Control(), templates.WeaponDocumentDir)
			cvtest.WritePNG(t, dir, "doc1.png", tile)

			hidden := cv.NewFrame(f.root, cvtest.Solid(320, 240, cvtest.Black))
			withTile := cvtest.Solid(320, 240, cvtest.Black)
			cvtest.Paste(withTile, tile, image.Pt(200, 120))
			shown := cv.NewFrame(f.root, withTile)
			f.frame = func() *cv.Frame {
				if f.count(f.canvas, win.WM_MOUSEWHEEL) >= tt.appear {
					return shown
				}
				return hidden
			}

			r := f.runner(t, fastSettings())
			sess := r.begin(context.Background(), ModeWeaponDocument)
			defer sess.Close()

			doc, ok := r.document(templates.WeaponDocumentDir, "doc1")
			if !ok {
				t.Fatal("document template should resolve")
			}
			if got := r.SelectDocument(doc); got != tt.wantFound {
				t.Errorf("found = %t, want %t", got, tt.wantFound)
			}

			client, _ := f.desk.ClientRect(f.root)
			screen, _ := f.desk.ClientToScreen(f.root, client.Center())
			var wheels []uintptr
			for _, m := range f.desk.MessagesTo(f.canvas) {
				if m.Msg != win.WM_MOUSEWHEEL {
					continue
				}
				if m.LParam != input.PackPoint(screen.X, screen.Y) {
					t.Errorf("wheel lParam %#x, want screen %+v", m.LParam, screen)
				}
				wheels = append(wheels, m.WParam)
			}
			if len(wheels) != tt.wantTicks {
				t.Fatalf("wheel ticks = %d, want %d", len(wheels), tt.wantTicks)
			}
			for i, wp := range wheels {
				want := input.WheelWParam(-input.WheelDelta)
				if i >= WheelTicks {
					want = input.WheelWParam(input.WheelDelta)
				}
				if wp != want {
					t.Errorf("tick %d wParam %#x, want %#x", i, wp, want)
				}
			}

			clicks := f.count(f.canvas, win.WM_LBUTTONDOWN)
			if tt.wantFound && clicks != 1 {
				t.Errorf("tile clicks = %d, want 1", clicks)
			}
			if !tt.wantFound && clicks != 0 {
				t.Errorf("clicks = %d, want none", clicks)
			}
		})
	}
}

func TestDocumentModeRound(t *testing.T) {
	f := newFixture(t)
	order := []string{
		templates.ChooseDocument,
		templates.DoNotUse,
		templates.Confirm,
		templates.InScenario,
		templates.Again,
		templates.RewardFirst,
	}
	for i, name := range order {
		f.patch(t, name, slots[i], true)
	}
	tile := cvtest.BlockNoise(9, 40, 32, 4)
	cvtest.WritePNG(t, filepath.Join(f.paths.Control(), templates.WeaponDocumentDir), "doc1.png", tile)
	cvtest.Paste(f.scene, tile, slots[6])
	f.paintScenario(t, ModeWeaponDocument)
	f.writeScript(t, ModeWeaponDocument, "mapA")

	s := fastSettings()
	s.Mode = string(ModeWeaponDocument)
	s.WeaponDocument = "doc1"
	r := f.runner(t, s)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v\n%v", err, f.logs.Lines())
	}

	if got := r.Session().State(); got != session.StateCompleted {
		t.Errorf("state = %s, want completed", got)
	}
	if len(f.history.rounds) != 1 || f.history.rounds[0].Scenario != "mapA" {
		t.Errorf("rounds = %+v", f.history.rounds)
	}
	for _, want := range []string{"document doc1 visible", "reward: first option", "map recognized as mapA"} {
		if !f.logs.Contains(want) {
			t.Errorf("missing log %q", want)
		}
	}
	if n := f.count(f.canvas, win.WM_MOUSEWHEEL); n != 1 {
		t.Errorf("wheel ticks = %d, want 1", n)
	}
}

func TestDocumentModeNeedsChooseButton(t *testing.T) {
	f := newFixture(t)
	f.patch(t, templates.ChooseDocument, slots[0], false)

	s := fastSettings()
	s.Mode = string(ModeCharacterDocument)
	err := f.runner(t, s).Run(context.Background())
	if !errors.Is(err, ErrMarkerNotFound) {
		t.Fatalf("err = %v, want ErrMarkerNotFound", err)
	}
}

func TestStopEndsRunWithoutError(t *testing.T) {
	f := newFixture(t)
	f.patch(t, templates.Confirm, slots[0], true)
	f.patch(t, templates.Start, slots[1], true)

	var r *Runner
	stopOnFirstClick := func(ctx context.Context, _, _ time.Duration) bool {
		if f.count(f.canvas, win.WM_LBUTTONUP) > 0 {
			r.Stop("user stop")
		}
		return ctx.Err() == nil
	}
	r = f.runner(t, fastSettings(), WithSleeper(stopOnFirstClick))

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("a user stop is not an error: %v", err)
	}
	if got := f.history.ended[0]; got != database.StatusStopped {
		t.Errorf("status = %s, want stopped", got)
	}
	if r.Status() != "stopped" {
		t.Errorf("status line = %q", r.Status())
	}
}

func TestCancelledContextEndsRunAsStopped(t *testing.T) {
	f := newFixture(t)
	f.patch(t, templates.Confirm, slots[0], true)
	f.patch(t, templates.Start, slots[1], true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cancelOnFirstClick := func(sctx context.Context, _, _ time.Duration) bool {
		if f.count(f.canvas, win.WM_LBUTTONUP) > 0 {
			cancel()
		}
		return sctx.Err() == nil
	}
	r := f.runner(t, fastSettings(), WithSleeper(cancelOnFirstClick))

	if err := r.Run(ctx); err != nil {
		t.Fatalf("an interrupt is not an error: %v", err)
	}
	if len(f.history.ended) != 1 || f.history.ended[0] != database.StatusStopped {
		t.Errorf("ended = %v, want [stopped]", f.history.ended)
	}
	if got := r.Session().Reason(); got != session.Interrupted {
		t.Errorf("reason = %q, want %q", got, session.Interrupted)
	}
	if r.Status() != "stopped" {
		t.Errorf("status line = %q", r.Status())
	}
}
