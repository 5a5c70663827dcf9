// Package session holds the run state shared between the automation worker
// and whoever controls it.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
)

// ErrStopped is returned by blocking helpers once the session has stopped
var ErrStopped = errors.New("session stopped")

// State is the lifecycle state of a session
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped   // stop requested or a terminal failure
	StateCompleted // loop cap reached
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateCompleted:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Options configures a new session
type Options struct {
	Mode     string
	MaxLoops int           // 0 means unlimited
	AutoStop time.Duration // 0 disables the timer
	Logger   *logging.Logger
}

// Session is one run of a mode against one window. Only the state flag, the
// loop counters and the stop reason are shared between goroutines.
type Session struct {
	ID        string
	Mode      string
	StartedAt time.Time

	state     atomic.Int32
	loopsDone atomic.Int64
	maxLoops  atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc

	autoStop time.Duration
	timer    *time.Timer
	unwatch  func() bool
	logger   *logging.Logger

	mu     sync.Mutex
	reason string
}

// Interrupted is the stop reason when the parent context is cancelled
const Interrupted = "interrupted"

// Start creates a running session. Cancelling parent stops it.
func Start(parent context.Context, opts Options) *Session {
	ctx, cancel := context.WithCancel(parent)
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Session{
		ID:        uuid.NewString(),
		Mode:      opts.Mode,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		autoStop:  opts.AutoStop,
		logger:    logger,
	}
	s.maxLoops.Store(int64(clampLoops(opts.MaxLoops)))
	s.state.Store(int32(StateRunning))
	s.unwatch = context.AfterFunc(parent, func() {
		s.Stop(Interrupted)
	})

	if s.autoStop > 0 {
		s.timer = time.AfterFunc(s.autoStop, func() {
			s.Stop(fmt.Sprintf("auto-stop after %s", s.autoStop))
		})
	}
	return s
}

func clampLoops(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// Context is cancelled when the session stops
func (s *Session) Context() context.Context {
	return s.ctx
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

// Running reports whether work should continue
func (s *Session) Running() bool {
	return s.State() == StateRunning && s.ctx.Err() == nil
}

// Stop requests a stop. It returns false when the session was already stopped.
func (s *Session) Stop(reason string) bool {
	return s.finish(StateStopped, reason)
}

// Complete ends the session cleanly, for example when the loop cap is hit
func (s *Session) Complete(reason string) bool {
	return s.finish(StateCompleted, reason)
}

func (s *Session) finish(to State, reason string) bool {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(to)) {
		return false
	}
	s.mu.Lock()
	s.reason = reason
	s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.cancel()
	if to == StateStopped {
		s.logger.Info("stop requested, waiting for the current step: " + reason)
	}
	return true
}

// Reason returns why the session ended, or an empty string while running
func (s *Session) Reason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Err returns ErrStopped once the session is no longer running
func (s *Session) Err() error {
	if s.Running() {
		return nil
	}
	return ErrStopped
}

// Sleep waits interruptibly and reports whether the full duration elapsed
func (s *Session) Sleep(d time.Duration) bool {
	return Sleep(s.ctx, d)
}

// LoopsDone returns the number of completed rounds
func (s *Session) LoopsDone() int {
	return int(s.loopsDone.Load())
}

// MaxLoops returns the loop cap, 0 meaning unlimited
func (s *Session) MaxLoops() int {
	return int(s.maxLoops.Load())
}

// SetMaxLoops changes the loop cap of a running session
func (s *Session) SetMaxLoops(n int) {
	s.maxLoops.Store(int64(clampLoops(n)))
}

// ResetLoops zeroes the round counter
func (s *Session) ResetLoops() {
	s.loopsDone.Store(0)
}

// LoopDone records a finished round and reports whether the cap is now reached
func (s *Session) LoopDone() (done int, capReached bool) {
	n := int(s.loopsDone.Add(1))
	limit := s.MaxLoops()
	return n, limit > 0 && n >= limit
}

// Close releases the session's timer and context
func (s *Session) Close() {
	s.finish(StateStopped, "closed")
	s.unwatch()
}

// Status renders the status line shown while a session runs
func (s *Session) Status() string {
	return s.statusAt(time.Now())
}

func (s *Session) statusAt(now time.Time) string {
	if !s.Running() {
		return "stopped"
	}

	loops := "loops: unlimited"
	if limit := s.MaxLoops(); limit > 0 {
		loops = fmt.Sprintf("loops left: %d", limit-s.LoopsDone())
	}
	remaining := "auto-stop: disabled"
	if s.autoStop > 0 {
		remaining = "time left: " + FormatDuration(s.autoStop-now.Sub(s.StartedAt))
	}
	return fmt.Sprintf("running | %s | %s", loops, remaining)
}

// FormatDuration renders whole seconds as 1h02m03s, 4m05s or 6s. Negative
// durations render as 0s.
func FormatDuration(d time.Duration) string {
	sec := int(d / time.Second)
	if sec < 0 {
		sec = 0
	}
	h, m, s := sec/3600, (sec%3600)/60, sec%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
