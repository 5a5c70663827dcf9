package runner

import (
	"fmt"
	"image"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
)

// OptionalTimeout bounds TryWaitAndClick
const OptionalTimeout = 3 * time.Second

// marker returns the registered template with the session threshold filled
// in when the marker does not carry its own
func (r *Runner) marker(name string) cv.Template {
	t := r.markers.GetOrDefault(name)
	if t.Threshold <= 0 {
		t.Threshold = r.Settings().Threshold
	}
	return t
}

func (r *Runner) capture() (*cv.Frame, error) {
	frame, err := r.capturer.Capture(r.root)
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, fmt.Errorf("%w: empty capture of %s", cv.ErrCaptureUnavailable, r.root)
	}
	return frame, nil
}

// match looks for t in frame; template problems count as a miss
func (r *Runner) match(frame *cv.Frame, t cv.Template) (cv.MatchResult, bool) {
	res, err := r.matcher.Find(frame, t.Path, t.Search())
	if err != nil {
		return cv.MatchResult{}, false
	}
	return res, res.Found
}

// Detect captures once and looks for a marker
func (r *Runner) Detect(t cv.Template) (cv.MatchResult, bool) {
	frame, err := r.capture()
	if err != nil {
		r.logger.Warnf("capture failed: %v", err)
		return cv.MatchResult{}, false
	}
	return r.match(frame, t)
}

// clickAt strict-clicks the deepest child under a frame pixel
func (r *Runner) clickAt(p image.Point) error {
	target, err := r.resolver.Resolve(r.root, p)
	if err != nil {
		return err
	}
	r.logger.Infof("strict click: %s", target)
	return r.injector.StrictClick(r.ctx(), r.root, target.Handle, target.Point, ClickHold)
}

// clickMatch clicks a match center and waits the post-click delay
func (r *Runner) clickMatch(t cv.Template, m cv.MatchResult) bool {
	r.logger.Infof("found %s (score=%.2f), clicking (%d,%d)", t.Name, m.Score, m.Center.X, m.Center.Y)
	if err := r.clickAt(m.Center); err != nil {
		r.logger.Error("click failed", err)
		return false
	}
	r.pause(r.Settings().AfterClick())
	return true
}

// ClickMarker detects once and clicks on a hit
func (r *Runner) ClickMarker(t cv.Template) bool {
	m, ok := r.Detect(t)
	if !ok {
		return false
	}
	return r.clickMatch(t, m)
}

// poll captures every retry interval until fn reports a hit or timeout
// passes. It reports false when the session stopped or time ran out.
func (r *Runner) poll(timeout, every time.Duration, fn func(*cv.Frame) bool) bool {
	deadline := time.Now().Add(timeout)
	for r.running() {
		frame, err := r.capture()
		if err != nil {
			r.logger.Warnf("capture failed: %v", err)
		} else if fn(frame) {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		if !r.pause(every) {
			return false
		}
	}
	return false
}

// timedOut stops the session when a required marker never showed up
func (r *Runner) timedOut(name string, timeout time.Duration) {
	if !r.running() {
		return
	}
	r.fail(&MarkerTimeoutError{Marker: name, Timeout: timeout})
}

// WaitAndClick waits for a required marker and clicks it. A timeout stops
// the session.
func (r *Runner) WaitAndClick(name string) bool {
	s := r.Settings()
	t := r.marker(name)
	r.logger.Infof("waiting for %s, timeout %s", name, s.Timeout())

	var hit cv.MatchResult
	if r.poll(s.Timeout(), s.Retry(), func(f *cv.Frame) bool {
		m, ok := r.match(f, t)
		hit = m
		return ok
	}) {
		return r.clickMatch(t, hit)
	}
	r.timedOut(name, s.Timeout())
	return false
}

// TryWaitAndClick is WaitAndClick for optional markers: a timeout is not an
// error
func (r *Runner) TryWaitAndClick(name string, timeout time.Duration) bool {
	return r.tryWaitAndClick(r.marker(name), timeout, r.Settings().Retry())
}

func (r *Runner) tryWaitAndClick(t cv.Template, timeout, every time.Duration) bool {
	var hit cv.MatchResult
	if r.poll(timeout, every, func(f *cv.Frame) bool {
		m, ok := r.match(f, t)
		hit = m
		return ok
	}) {
		return r.clickMatch(t, hit)
	}
	r.logger.Infof("%s not seen within %s, continuing", t.Name, timeout)
	return false
}

// WaitDetect waits for a required marker without clicking it
func (r *Runner) WaitDetect(name string) bool {
	s := r.Settings()
	t := r.marker(name)
	r.logger.Infof("waiting for %s, timeout %s", name, s.Timeout())

	if r.poll(s.Timeout(), s.Retry(), func(f *cv.Frame) bool {
		m, ok := r.match(f, t)
		if ok {
			r.logger.Infof("detected %s (score=%.2f)", name, m.Score)
		}
		return ok
	}) {
		return true
	}
	r.timedOut(name, s.Timeout())
	return false
}

// WaitAndClickEither waits for whichever marker appears first and clicks the
// best scoring one of a frame. It returns the clicked name.
func (r *Runner) WaitAndClickEither(names ...string) (string, bool) {
	s := r.Settings()
	marks := make([]cv.Template, len(names))
	for i, n := range names {
		marks[i] = r.marker(n)
	}
	r.logger.Infof("waiting for any of %v, timeout %s", names, s.Timeout())

	var (
		best  cv.MatchResult
		which = -1
	)
	if r.poll(s.Timeout(), s.Retry(), func(f *cv.Frame) bool {
		which = -1
		for i, t := range marks {
			m, ok := r.match(f, t)
			if ok && (which < 0 || m.Score > best.Score) {
				best, which = m, i
			}
		}
		return which >= 0
	}) {
		return names[which], r.clickMatch(marks[which], best)
	}
	r.timedOut(fmt.Sprintf("%v", names), s.Timeout())
	return "", false
}
