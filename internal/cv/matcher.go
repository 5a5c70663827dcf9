package cv

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
)

const (
	// DefaultThreshold is used for UI markers unless overridden
	DefaultThreshold = 0.85
	// DocumentThreshold is used by the document selection flow
	DocumentThreshold = 0.80
)

// DefaultScales brackets 1.0 to tolerate small DPI or zoom drift
var DefaultScales = []float64{1.1, 1.05, 1.0, 0.95, 0.9}

// Search describes one template lookup
type Search struct {
	Threshold float64
	Scales    []float64 // empty means the native size only
	Region    *image.Rectangle
}

// Matcher scores templates against frames. Templates are cached by path.
type Matcher struct {
	cache  *TemplateCache
	logger *logging.Logger
	budget float64
}

// NewMatcher creates a matcher with its own cache unless one is supplied
func NewMatcher(opts ...Option) *Matcher {
	m := &Matcher{
		logger: logging.Nop(),
		budget: DefaultSearchBudget,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cache == nil {
		m.cache = NewTemplateCache()
	}
	return m
}

// Cache returns the template cache
func (m *Matcher) Cache() *TemplateCache {
	return m.cache
}

// MatchSingleScale searches for the template at its native size
func (m *Matcher) MatchSingleScale(frame *Frame, path string, threshold float64) (MatchResult, error) {
	return m.Find(frame, path, Search{Threshold: threshold})
}

// MatchMultiScale searches at every scale and keeps the best-scoring one.
// Ties keep the earlier scale.
func (m *Matcher) MatchMultiScale(frame *Frame, path string, threshold float64, scales []float64) (MatchResult, error) {
	if len(scales) == 0 {
		scales = DefaultScales
	}
	return m.Find(frame, path, Search{Threshold: threshold, Scales: scales})
}

// Find runs a search. A result with Found=false and a nil error is an
// ordinary miss; Score then holds the best score observed.
func (m *Matcher) Find(frame *Frame, path string, s Search) (MatchResult, error) {
	if frame == nil || frame.Image == nil {
		return MatchResult{}, fmt.Errorf("%w: no frame", ErrCaptureUnavailable)
	}
	ct, err := m.load(path)
	if err != nil {
		return MatchResult{}, err
	}

	multi := len(s.Scales) > 0
	scales := s.Scales
	if !multi {
		scales = []float64{1.0}
	}

	fw, fh := frame.Width(), frame.Height()
	bw, bh := ct.Color.Bounds().Dx(), ct.Color.Bounds().Dy()

	best := MatchResult{Score: math.Inf(-1)}
	seen := false
	for _, scale := range scales {
		tmpl := ct.Color
		if multi {
			tw, th := scaledSizeTrunc(bw, bh, scale)
			if tw >= fw || th >= fh {
				continue
			}
			tmpl = resizeRGBA(ct.Color, tw, th)
		}

		score, loc, ok := FindTemplate(frame.Image, tmpl, s.Region, m.budget)
		if !ok {
			continue
		}
		if !seen || score > best.Score {
			tw, th := tmpl.Bounds().Dx(), tmpl.Bounds().Dy()
			best = MatchResult{
				Score:  score,
				Rect:   image.Rect(loc.X, loc.Y, loc.X+tw, loc.Y+th),
				Center: image.Point{X: loc.X + tw/2, Y: loc.Y + th/2},
				Scale:  scale,
			}
			seen = true
		}
	}

	name := filepath.Base(path)
	if !seen {
		m.logger.Infof("template does not fit frame: %s (%dx%d in %dx%d)", name, bw, bh, fw, fh)
		return MatchResult{}, nil
	}

	best.Found = best.Score >= s.Threshold
	if !best.Found {
		kind := "match"
		if multi {
			kind = "multi-scale match"
		}
		m.logger.Infof("%s below threshold: path=%s max=%.2f thr=%.2f", kind, name, best.Score, s.Threshold)
	}
	return best, nil
}

// MatchEdgeMasked scores a scenario template against the frame's edge map.
// The score is the best masked edge correlation across ScenarioScales.
func (m *Matcher) MatchEdgeMasked(frame *Frame, path string) (float64, error) {
	if frame == nil || frame.Image == nil {
		return 0, fmt.Errorf("%w: no frame", ErrCaptureUnavailable)
	}
	ct, err := m.load(path)
	if err != nil {
		return 0, err
	}
	ct.prepareEdges()
	return bestEdgeScore(frame.edgeBitmap(), ct.variants), nil
}

func (m *Matcher) load(path string) (*CachedTemplate, error) {
	ct, err := m.cache.Get(path)
	if err == nil {
		return ct, nil
	}
	switch {
	case errors.Is(err, ErrTemplateMissing):
		_, statErr := os.Stat(path)
		m.logger.WarnWithContext("template missing", map[string]interface{}{
			"path":   path,
			"exists": statErr == nil,
		})
	default:
		m.logger.Error("template unreadable", err)
	}
	return nil, err
}
