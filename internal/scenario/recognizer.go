package scenario

import (
	"fmt"
	"strings"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
)

// Score is one candidate's result against a frame
type Score struct {
	Name     string
	Variants [numVariants]float64
	Present  [numVariants]bool
	Total    float64
	Max      float64
	Hits     int
}

// String renders "mapA: sum=1.52 (base=0.81,feat2=0.71,feat3=-)"
func (s Score) String() string {
	parts := make([]string, numVariants)
	for i := range parts {
		if s.Present[i] {
			parts[i] = fmt.Sprintf("%s=%.2f", variantLabels[i], s.Variants[i])
		} else {
			parts[i] = variantLabels[i] + "=-"
		}
	}
	return fmt.Sprintf("%s: sum=%.2f (%s)", s.Name, s.Total, strings.Join(parts, ","))
}

// Report is the outcome of one recognition
type Report struct {
	Ranked   []Score
	Accepted bool
	Policy   string
}

// Best returns the top-ranked score
func (r Report) Best() (Score, bool) {
	if len(r.Ranked) == 0 {
		return Score{}, false
	}
	return r.Ranked[0], true
}

// Name returns the recognized map, or "" when nothing was accepted
func (r Report) Name() string {
	if !r.Accepted || len(r.Ranked) == 0 {
		return ""
	}
	return r.Ranked[0].Name
}

// Top joins the first n ranked scores for logging
func (r Report) Top(n int) string {
	if n > len(r.Ranked) {
		n = len(r.Ranked)
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = r.Ranked[i].String()
	}
	return strings.Join(parts, ", ")
}

// Recognizer scores candidates with masked edge correlation
type Recognizer struct {
	matcher *cv.Matcher
	policy  Policy
	logger  *logging.Logger
}

// NewRecognizer creates a recognizer. A nil policy means SumPolicy.
func NewRecognizer(matcher *cv.Matcher, policy Policy, logger *logging.Logger) *Recognizer {
	if policy == nil {
		policy = SumPolicy{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Recognizer{matcher: matcher, policy: policy, logger: logger}
}

// Policy returns the acceptance policy in use
func (r *Recognizer) Policy() Policy {
	return r.policy
}

// Score evaluates one candidate. Variants that fail to load score zero.
func (r *Recognizer) Score(frame *cv.Frame, c Candidate) Score {
	s := Score{Name: c.Name}
	for i, path := range c.Variants {
		if path == "" {
			continue
		}
		s.Present[i] = true
		v, err := r.matcher.MatchEdgeMasked(frame, path)
		if err != nil {
			continue
		}
		s.Variants[i] = v
		s.Total += v
		if v > s.Max {
			s.Max = v
		}
	}
	return s
}

// Recognize scores every candidate against frame, ranks them and applies the
// acceptance policy. Top3 and the decision are logged.
func (r *Recognizer) Recognize(frame *cv.Frame, candidates []Candidate) (Report, error) {
	rep := Report{Policy: r.policy.Name()}
	if frame == nil || frame.Image == nil {
		return rep, fmt.Errorf("%w: no frame", cv.ErrCaptureUnavailable)
	}
	if len(candidates) == 0 {
		r.logger.Warn("no map templates to compare")
		return rep, nil
	}

	rep.Ranked = make([]Score, 0, len(candidates))
	for _, c := range candidates {
		rep.Ranked = append(rep.Ranked, r.Score(frame, c))
	}
	r.policy.Rank(rep.Ranked)

	best := rep.Ranked[0]
	rep.Accepted = r.policy.Accept(best)
	r.logger.Infof("map match top3: %s", rep.Top(3))
	if rep.Accepted {
		r.logger.Infof("map recognized as %s (sum=%.2f)", best.Name, best.Total)
	} else {
		r.logger.Warnf("map uncertain, best %s (policy %s)", best, rep.Policy)
	}
	return rep, nil
}
