package runner

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/coords"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/input"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/pkg/templates"
)

// Wheel search for a document tile
const (
	WheelTicks     = 10
	WheelSettle    = 100 * time.Millisecond
	DoNotUseClick  = 300 * time.Millisecond
	DoNotUseSettle = 100 * time.Millisecond
	DocumentSettle = 200 * time.Millisecond
)

// document returns the template for a document tile, if its file exists
func (r *Runner) document(dir, name string) (cv.Template, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return cv.Template{}, false
	}
	path := filepath.Join(r.paths.Control(), dir, name+".png")
	if _, err := os.Stat(path); err != nil {
		return cv.Template{}, false
	}
	return cv.Template{
		Name:      name,
		Path:      path,
		Threshold: templates.DocumentThreshold,
		Scales:    templates.DocumentScales,
	}, true
}

// waitFor polls for t without clicking
func (r *Runner) waitFor(t cv.Template, timeout, every time.Duration) (cv.MatchResult, bool) {
	var hit cv.MatchResult
	ok := r.poll(timeout, every, func(f *cv.Frame) bool {
		m, found := r.match(f, t)
		hit = m
		return found
	})
	return hit, ok
}

// wheelTarget is where the document list is scrolled: the do-not-use tile
// when visible, otherwise the client center
func (r *Runner) wheelTarget() (coords.Target, error) {
	dnu := r.marker(templates.DoNotUse)
	if m, ok := r.Detect(dnu); ok {
		target, err := r.resolver.Resolve(r.root, m.Center)
		if err == nil {
			r.logger.Infof("wheel anchored on %s: %s", templates.DoNotUse, target)
			r.tryWaitAndClick(dnu, DoNotUseClick, DoNotUseClick)
			r.pause(DoNotUseSettle)
			return target, nil
		}
	}
	center, err := r.resolver.ClientCenter(r.root)
	if err != nil {
		return coords.Target{}, err
	}
	return r.resolver.ResolveClient(r.root, center)
}

// SelectDocument scrolls the document list down then up, one tick at a
// time, until the tile shows up. On a hit the tile and the confirm button
// are clicked.
func (r *Runner) SelectDocument(doc cv.Template) bool {
	target, err := r.wheelTarget()
	if err != nil {
		r.logger.Error("no wheel target", err)
		return false
	}

	for _, delta := range []int{-input.WheelDelta, input.WheelDelta} {
		for i := 0; i < WheelTicks; i++ {
			if !r.running() {
				return false
			}
			if err := r.injector.Wheel(r.ctx(), target.Handle, delta, 1, target.Screen); err != nil {
				return false
			}
			if !r.pause(WheelSettle) {
				return false
			}
			m, ok := r.Detect(doc)
			if !ok {
				continue
			}
			r.logger.Infof("document %s visible after %d ticks of %d (score=%.2f)", doc.Name, i+1, delta, m.Score)
			if err := r.clickAt(m.Center); err != nil {
				r.logger.Error("click failed", err)
				return false
			}
			r.pause(DocumentSettle)

			confirm := r.marker(templates.Confirm)
			confirm.Threshold = templates.DocumentThreshold
			confirm.Scales = templates.DocumentScales
			r.ClickMarker(confirm)
			return true
		}
	}
	r.logger.Warnf("document %s not found after scrolling", doc.Name)
	return false
}
