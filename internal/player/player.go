// Package player replays recorded action scripts into a background window.
package player

import (
	"context"
	"fmt"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/coords"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/input"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/script"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/session"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

// Playback timing
const (
	RestoreSettle = 200 * time.Millisecond
	ArmSettle     = 50 * time.Millisecond
)

// Result summarizes one playback
type Result struct {
	Executed    int
	Skipped     int
	Failed      int
	Interrupted bool
	Target      coords.Target
}

// Player executes steps against the deepest child at the client center
type Player struct {
	api      win.API
	resolver *coords.Resolver
	injector *input.Injector
	sleep    session.SleepFunc
	logger   *logging.Logger
}

// Option configures a Player
type Option func(*Player)

// WithSleeper replaces the interruptible sleep used for delays
func WithSleeper(fn session.SleepFunc) Option {
	return func(p *Player) {
		p.sleep = fn
	}
}

// WithLogger sets the step log
func WithLogger(l *logging.Logger) Option {
	return func(p *Player) {
		p.logger = l
	}
}

// New creates a player that sends input through injector
func New(api win.API, injector *input.Injector, opts ...Option) *Player {
	p := &Player{
		api:      api,
		resolver: coords.NewResolver(api),
		injector: injector,
		sleep:    session.SleepEvery,
		logger:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PlayScript logs the script's problems, then plays it
func (p *Player) PlayScript(ctx context.Context, root win.HWND, s *script.Script) (Result, error) {
	for _, problem := range s.Problems() {
		p.logger.Warnf("%s: %s", s.Name, problem)
	}
	p.logger.Infof("playing %s: %d steps, about %s", s.Name, len(s.Steps), s.Duration().Round(100*time.Millisecond))
	return p.Play(ctx, root, s.Steps)
}

// Play runs steps in order. A failing or unknown step is logged and skipped.
// Cancellation is checked before every step and during every hold and delay;
// a key or button that is down when it fires is still released.
func (p *Player) Play(ctx context.Context, root win.HWND, steps []script.Step) (Result, error) {
	var res Result
	if !p.api.IsWindow(root) {
		return res, fmt.Errorf("play: %w: %s", win.ErrInvalidWindow, root)
	}
	if !p.restore(ctx, root) {
		res.Interrupted = true
		return res, nil
	}

	center, err := p.resolver.ClientCenter(root)
	if err != nil {
		return res, fmt.Errorf("play: %w", err)
	}
	target, err := p.resolver.ResolveClient(root, center)
	if err != nil {
		return res, fmt.Errorf("play: %w", err)
	}
	res.Target = target
	if target.Degraded {
		p.logger.Warnf("focal target degraded: %s", target)
	}

	if first, ok := firstAction(steps); ok && first.Kind() == script.TypeKey {
		p.injector.LeftClick(target.Handle, target.Point)
		if !p.sleep(ctx, ArmSettle, session.SleepStep) {
			res.Interrupted = true
			return res, nil
		}
	}

	for i, step := range steps {
		select {
		case <-ctx.Done():
			p.logger.Infof("playback stopped before step %d", i+1)
			res.Interrupted = true
			return res, nil
		default:
		}

		if !step.Actionable() {
			p.logger.Warnf("step %d: %s, skipped", i+1, step)
			res.Skipped++
			continue
		}

		p.logger.Infof("step %d: %s", i+1, step)
		if err := p.execute(ctx, root, target, step); err != nil {
			p.logger.Error(fmt.Sprintf("step %d failed", i+1), err)
			res.Failed++
		} else {
			res.Executed++
		}

		if d := step.Delay.Duration(); d > 0 && !p.sleep(ctx, d, session.SleepStep) {
			res.Interrupted = true
			return res, nil
		}
	}
	if ctx.Err() != nil {
		res.Interrupted = true
	}
	return res, nil
}

func (p *Player) execute(ctx context.Context, root win.HWND, target coords.Target, step script.Step) error {
	hold := step.Hold.Duration()
	switch step.Kind() {
	case script.TypeKey:
		if err := p.injector.KeyPress(ctx, target.Handle, step.Key, hold); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		// Some clients only read keys from the top-level window
		return p.injector.KeyPress(ctx, root, step.Key, 0)
	default:
		switch step.MouseButton() {
		case script.ButtonLeft:
			p.injector.LeftClick(target.Handle, target.Point)
			if hold > 0 {
				p.injector.Hold(ctx, hold)
			}
		case script.ButtonRight:
			p.injector.RightClick(ctx, target.Handle, target.Point, hold)
		default:
			return fmt.Errorf("unsupported mouse button %q", step.Button)
		}
	}
	return nil
}

// restore un-minimizes root; some clients drop background input while iconic
func (p *Player) restore(ctx context.Context, root win.HWND) bool {
	if !p.api.IsMinimized(root) {
		return true
	}
	p.api.ShowWindow(root, win.SW_RESTORE)
	p.logger.Info("window restored from minimized")
	return p.sleep(ctx, RestoreSettle, session.SleepStep)
}

func firstAction(steps []script.Step) (script.Step, bool) {
	for _, s := range steps {
		if s.Actionable() {
			return s, true
		}
	}
	return script.Step{}, false
}
