package scenario

import (
	"fmt"
	"sort"
	"strings"
)

// Thresholds of the hit-count policy
const (
	DefaultPresence    = 0.78
	DefaultQuickAccept = 0.90
	DefaultMinHits     = 2
)

// Policy ranks scored candidates and decides whether the best one is trusted
type Policy interface {
	Name() string
	Rank(scores []Score)
	Accept(best Score) bool
}

// SumPolicy ranks by the sum of variant scores and accepts any positive top
// candidate
type SumPolicy struct{}

func (SumPolicy) Name() string { return "sum" }

func (SumPolicy) Rank(scores []Score) {
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Total > scores[j].Total })
}

func (SumPolicy) Accept(best Score) bool { return best.Total > 0 }

// HitsPolicy counts variants at or above Presence. It ranks by hits, then
// sum, then best single variant, and accepts the top candidate when one
// variant reaches QuickAccept or enough variants hit.
type HitsPolicy struct {
	Presence    float64
	QuickAccept float64
	MinHits     int
}

// DefaultHitsPolicy returns the policy with the stock thresholds
func DefaultHitsPolicy() HitsPolicy {
	return HitsPolicy{Presence: DefaultPresence, QuickAccept: DefaultQuickAccept, MinHits: DefaultMinHits}
}

func (HitsPolicy) Name() string { return "hits" }

func (p HitsPolicy) hits(s Score) int {
	n := 0
	for i, present := range s.Present {
		if present && s.Variants[i] >= p.Presence {
			n++
		}
	}
	return n
}

func (p HitsPolicy) Rank(scores []Score) {
	for i := range scores {
		scores[i].Hits = p.hits(scores[i])
	}
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.Hits != b.Hits {
			return a.Hits > b.Hits
		}
		if a.Total != b.Total {
			return a.Total > b.Total
		}
		return a.Max > b.Max
	})
}

func (p HitsPolicy) Accept(best Score) bool {
	return best.Max >= p.QuickAccept || best.Hits >= p.MinHits
}

// ParsePolicy maps a settings value to a policy. An empty name is "sum".
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sum":
		return SumPolicy{}, nil
	case "hits":
		return DefaultHitsPolicy(), nil
	default:
		return nil, fmt.Errorf("unknown acceptance policy %q", name)
	}
}
