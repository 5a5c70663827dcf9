// Package runner drives one automation session: it watches the game window
// for markers, recognizes the scenario, plays its script and repeats.
package runner

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/config"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/coords"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/database"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/events"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/input"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/player"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/scenario"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/session"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/pkg/templates"
)

// ClickHold is how long strict clicks keep the button down
const ClickHold = 80 * time.Millisecond

// Option configures a Runner
type Option func(*Runner)

// WithCapturer replaces the background window capture
func WithCapturer(c cv.Capturer) Option {
	return func(r *Runner) { r.capturer = c }
}

// WithMatcher shares a matcher, and its template cache, with the runner
func WithMatcher(m *cv.Matcher) Option {
	return func(r *Runner) { r.matcher = m }
}

// WithMarkers replaces the marker registry
func WithMarkers(reg *templates.Registry) Option {
	return func(r *Runner) { r.markers = reg }
}

// WithHistory records sessions and rounds
func WithHistory(h History) Option {
	return func(r *Runner) { r.history = h }
}

// WithEvents publishes session and round notifications to bus
func WithEvents(bus events.Bus) Option {
	return func(r *Runner) { r.events = bus }
}

// WithLogger sets the session logger
func WithLogger(l *logging.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithSleeper replaces every interruptible wait, including the injector's
// and the player's
func WithSleeper(fn session.SleepFunc) Option {
	return func(r *Runner) { r.sleep = fn }
}

// WithRand sets the source used by the random script fallback
func WithRand(rng *rand.Rand) Option {
	return func(r *Runner) { r.rng = rng }
}

// Runner owns everything one session needs. It is not reusable across
// concurrent Run calls.
type Runner struct {
	api   win.API
	root  win.HWND
	paths Paths

	capturer   cv.Capturer
	matcher    *cv.Matcher
	resolver   *coords.Resolver
	injector   *input.Injector
	player     *player.Player
	markers    *templates.Registry
	history    History
	events     events.Bus
	logger     *logging.Logger
	sleep      session.SleepFunc
	rng        *rand.Rand
	recognizer *scenario.Recognizer

	mu       sync.RWMutex
	settings config.Settings
	sess     *session.Session
	err      error
}

// New wires a runner for the root window
func New(api win.API, root win.HWND, paths Paths, settings *config.Settings, opts ...Option) (*Runner, error) {
	if settings == nil {
		settings = config.Default()
	}
	s := *settings
	s.Clamp()

	r := &Runner{
		api:      api,
		root:     root,
		paths:    paths,
		settings: s,
		history:  nopHistory{},
		logger:   logging.Nop(),
		sleep:    session.SleepEvery,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.capturer == nil {
		r.capturer = cv.NewWindowCapture(api)
	}
	if r.markers == nil {
		r.markers = templates.NewRegistry(paths.Control())
	}
	if r.matcher == nil {
		r.matcher = cv.NewMatcher(cv.WithLogger(r.logger.Named("cv")))
	}
	if r.rng == nil {
		r.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	policy, err := scenario.ParsePolicy(s.AcceptancePolicy)
	if err != nil {
		return nil, err
	}
	r.resolver = coords.NewResolver(api)
	r.injector = input.NewInjector(api, input.WithSleeper(r.sleep), input.WithLogger(r.logger))
	r.player = player.New(api, r.injector, player.WithSleeper(r.sleep), player.WithLogger(r.logger))
	r.recognizer = scenario.NewRecognizer(r.matcher, policy, r.logger)
	return r, nil
}

// Settings returns a copy of the active settings
func (r *Runner) Settings() config.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings
}

// ApplySettings swaps in reloaded settings. Timing and matching values apply
// from the next wait; the loop cap applies to the running session at once.
// Mode and window changes need a new session.
func (r *Runner) ApplySettings(s *config.Settings) {
	next := *s
	next.Clamp()

	r.mu.Lock()
	r.settings = next
	sess := r.sess
	r.mu.Unlock()

	if sess != nil {
		sess.SetMaxLoops(next.MaxLoops)
	}
}

// Session returns the current session, nil before Run
func (r *Runner) Session() *session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sess
}

// Stop asks the running session to stop after the current step
func (r *Runner) Stop(reason string) bool {
	if s := r.Session(); s != nil {
		return s.Stop(reason)
	}
	return false
}

// Status renders the session status line
func (r *Runner) Status() string {
	if s := r.Session(); s != nil {
		return s.Status()
	}
	return "idle"
}

// Err returns the error that ended the session, if any
func (r *Runner) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Run executes the configured mode until it completes, fails or is stopped.
// A user stop, the auto-stop timer and the loop cap all return nil.
func (r *Runner) Run(ctx context.Context) error {
	s := r.Settings()
	mode, err := ParseMode(s.Mode)
	if err != nil {
		return err
	}
	if !r.api.IsWindow(r.root) {
		return fmt.Errorf("%w: %s", win.ErrInvalidWindow, r.root)
	}

	sess := r.begin(ctx, mode)
	defer sess.Close()

	title := r.api.WindowText(r.root)
	r.logger.Infof("session %s started: mode=%s window=%q %s", sess.ID, mode, title, sess.Status())
	if err := r.history.BeginSession(context.Background(), database.SessionRecord{
		ID:          sess.ID,
		Mode:        string(mode),
		WindowTitle: title,
		StartedAt:   sess.StartedAt,
		Status:      database.StatusRunning,
	}); err != nil {
		r.logger.Error("failed to record session start", err)
	}
	r.publish(events.NewSessionStarted(sess.ID, string(mode), title))

	r.SelfCheck(mode)
	r.restore()

	if err := modes[mode].run(r); err != nil && !errors.Is(err, session.ErrStopped) {
		r.fail(err)
	}
	if ctx.Err() != nil {
		sess.Stop(session.Interrupted)
	}
	sess.Complete("mode finished")

	status := database.StatusCompleted
	switch {
	case r.Err() != nil:
		status = database.StatusFailed
	case sess.State() == session.StateStopped:
		status = database.StatusStopped
	}
	r.logger.Infof("session %s %s after %d rounds: %s", sess.ID, status, sess.LoopsDone(), sess.Reason())
	if err := r.history.EndSession(context.Background(), sess.ID, status, sess.LoopsDone(), sess.Reason()); err != nil {
		r.logger.Error("failed to record session end", err)
	}
	r.publish(events.NewSessionEnded(sess.ID, status, sess.LoopsDone(), sess.Reason()))
	return r.Err()
}

func (r *Runner) begin(ctx context.Context, mode Mode) *session.Session {
	s := r.Settings()
	sess := session.Start(ctx, session.Options{
		Mode:     string(mode),
		MaxLoops: s.MaxLoops,
		AutoStop: s.AutoStop(),
		Logger:   r.logger,
	})
	r.mu.Lock()
	r.sess = sess
	r.err = nil
	r.mu.Unlock()
	return sess
}

func (r *Runner) publish(e events.Event) {
	if r.events != nil {
		r.events.Publish(e)
	}
}

// fail records the first terminal error and stops the session
func (r *Runner) fail(err error) {
	r.mu.Lock()
	first := r.err == nil
	if first {
		r.err = err
	}
	sess := r.sess
	r.mu.Unlock()

	if first {
		r.logger.Error("session failed", err)
	}
	if sess != nil {
		sess.Stop(err.Error())
	}
}

// halt is what a mode returns after a primitive gave up
func (r *Runner) halt() error {
	if err := r.Err(); err != nil {
		return err
	}
	return session.ErrStopped
}

func (r *Runner) ctx() context.Context {
	if s := r.Session(); s != nil {
		return s.Context()
	}
	return context.Background()
}

func (r *Runner) running() bool {
	s := r.Session()
	return s != nil && s.Running()
}

// pause waits interruptibly and reports whether the session is still running
func (r *Runner) pause(d time.Duration) bool {
	return r.sleep(r.ctx(), d, session.SleepStep) && r.running()
}

func (r *Runner) restore() {
	if !r.api.IsMinimized(r.root) {
		return
	}
	r.api.ShowWindow(r.root, win.SW_RESTORE)
	r.logger.Info("window was minimized, restored")
	r.pause(player.RestoreSettle)
}

// finishLoop counts a round and completes the session at the loop cap
func (r *Runner) finishLoop() bool {
	sess := r.Session()
	done, capReached := sess.LoopDone()
	r.logger.Infof("round %d finished, %s", done, sess.Status())
	if capReached {
		r.logger.Infof("completed %d rounds, stopping", done)
		sess.Complete(fmt.Sprintf("loop cap %d reached", sess.MaxLoops()))
		return true
	}
	return !sess.Running()
}
