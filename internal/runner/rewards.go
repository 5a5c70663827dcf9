package runner

import (
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/pkg/templates"
)

// SelectReward picks the end-of-round reward from one frame: first, else
// second, else third. It returns the clicked marker, or "" when none showed.
func (r *Runner) SelectReward() string {
	frame, err := r.capture()
	if err != nil {
		r.logger.Warnf("capture failed: %v", err)
		return ""
	}
	seen := func(name string) (cv.Template, cv.MatchResult, bool) {
		t := r.marker(name)
		m, ok := r.match(frame, t)
		return t, m, ok
	}

	if t, m, ok := seen(templates.RewardFirst); ok {
		r.logger.Info("reward: first option")
		r.clickMatch(t, m)
		return templates.RewardFirst
	}
	if t, m, ok := seen(templates.RewardSecond); ok {
		if _, _, inferior := seen(templates.RewardSecondInferior); inferior {
			r.logger.Info("reward: second option (inferior variant)")
		} else {
			r.logger.Info("reward: second option")
		}
		r.clickMatch(t, m)
		return templates.RewardSecond
	}
	if t, m, ok := seen(templates.RewardThird); ok {
		switch {
		case r.has(frame, templates.RewardThirdShards):
			r.logger.Info("reward: third option (shards)")
		case r.has(frame, templates.RewardThirdWeapon):
			r.logger.Info("reward: third option (weapon)")
		default:
			r.logger.Info("reward: third option")
		}
		r.clickMatch(t, m)
		return templates.RewardThird
	}
	r.logger.Info("reward: no option recognized")
	return ""
}

func (r *Runner) has(frame *cv.Frame, name string) bool {
	_, ok := r.match(frame, r.marker(name))
	return ok
}
