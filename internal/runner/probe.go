package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/coords"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
)

// ProbeResult is the outcome of a one-shot detect-and-click
type ProbeResult struct {
	Match   cv.MatchResult
	Target  coords.Target
	Clicked bool
}

// Probe captures once, searches for t and strict-clicks it on a hit, holding
// the button for hold. It needs no session.
func (r *Runner) Probe(ctx context.Context, t cv.Template, hold time.Duration) (ProbeResult, error) {
	var res ProbeResult
	frame, err := r.capture()
	if err != nil {
		return res, err
	}
	m, err := r.matcher.Find(frame, t.Path, t.Search())
	if err != nil {
		return res, err
	}
	res.Match = m
	r.logger.Infof("probe %s: found=%t score=%.3f scale=%.2f rect=%v", t.Name, m.Found, m.Score, m.Scale, m.Rect)
	if !m.Found {
		return res, nil
	}

	res.Target, err = r.resolver.Resolve(r.root, m.Center)
	if err != nil {
		return res, err
	}
	r.logger.Infof("probe target: %s chain=%s", res.Target, res.Target.Chain())
	if err := r.injector.StrictClick(ctx, r.root, res.Target.Handle, res.Target.Point, hold); err != nil {
		return res, fmt.Errorf("probe click failed: %w", err)
	}
	res.Clicked = true
	return res, nil
}

// Marker exposes the effective template of a registered marker
func (r *Runner) Marker(name string) cv.Template {
	return r.marker(name)
}
