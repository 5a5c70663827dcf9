package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/database"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/events"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/scenario"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/script"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/pkg/templates"
)

// RecognizeRetryDelay separates the two recognition attempts of a round
const RecognizeRetryDelay = 300 * time.Millisecond

// fallbackPick chooses a script name when recognition fails
type fallbackPick func(r *Runner, names []string) string

func pickRandom(r *Runner, names []string) string {
	return names[r.rng.Intn(len(names))]
}

// pickFirst takes the first name in sorted order
func pickFirst(_ *Runner, names []string) string {
	return names[0]
}

// Recognize captures a frame and identifies the scenario of mode
func (r *Runner) Recognize(mode Mode) (scenario.Report, error) {
	candidates, err := scenario.Scan(r.paths.Maps(mode))
	if err != nil {
		return scenario.Report{}, fmt.Errorf("failed to scan map templates: %w", err)
	}
	frame, err := r.capture()
	if err != nil {
		return scenario.Report{}, err
	}
	return r.recognizer.Recognize(frame, candidates)
}

// recognizeWithRetry tries twice; errors count as an unaccepted report
func (r *Runner) recognizeWithRetry(mode Mode) scenario.Report {
	var rep scenario.Report
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			r.logger.Info("map recognition failed, retrying once")
			if !r.pause(RecognizeRetryDelay) {
				return rep
			}
		}
		var err error
		rep, err = r.Recognize(mode)
		if err != nil {
			r.logger.Error("map recognition failed", err)
			continue
		}
		if rep.Name() != "" {
			return rep
		}
	}
	return rep
}

// playRound waits for the in-scenario marker, recognizes the scenario and
// plays its script
func (r *Runner) playRound(mode Mode, fallback fallbackPick) error {
	if !r.WaitDetect(templates.InScenario) {
		return r.halt()
	}
	if !r.pause(r.Settings().PostMarker()) {
		return r.halt()
	}

	rep := r.recognizeWithRetry(mode)
	if !r.running() {
		return r.halt()
	}
	round := database.RoundRecord{
		SessionID:  r.Session().ID,
		Round:      r.Session().LoopsDone() + 1,
		Recognized: rep.Name() != "",
	}
	if best, ok := rep.Best(); ok {
		round.TopScore = best.Total
	}

	dir := script.Dir{Path: r.paths.Scripts(mode)}
	name := rep.Name()
	if name == "" {
		if !r.Settings().FallbackRandom {
			return fmt.Errorf("%w: mode %s", ErrScenarioUnrecognized, mode)
		}
		names, err := dir.Names()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNoScripts, err)
		}
		if len(names) == 0 {
			return fmt.Errorf("%w: %s", ErrNoScripts, dir.Path)
		}
		name = fallback(r, names)
		r.logger.Warnf("map unknown, falling back to script %s", name)
	}
	round.Scenario = name

	s, err := r.loadScript(dir, name)
	if err != nil {
		return err
	}
	round.Script = s.Path

	r.logger.Infof("playing %s: %d steps, about %s", name, len(s.Steps), s.Duration().Round(100*time.Millisecond))
	res, err := r.player.PlayScript(r.ctx(), r.root, s)
	switch {
	case err != nil:
		round.Outcome = database.OutcomeFailed
	case res.Interrupted:
		round.Outcome = database.OutcomeInterrupted
	default:
		round.Outcome = database.OutcomeCompleted
	}
	if herr := r.history.RecordRound(context.Background(), round); herr != nil {
		r.logger.Error("failed to record round", herr)
	}
	r.publish(events.NewRoundFinished(round.SessionID, round.Round, round.Scenario, round.Recognized, round.Outcome))
	if err != nil {
		return fmt.Errorf("playback of %s failed: %w", name, err)
	}
	if res.Interrupted {
		return r.halt()
	}
	r.logger.Infof("script %s done: executed=%d skipped=%d failed=%d", name, res.Executed, res.Skipped, res.Failed)
	return nil
}

func (r *Runner) loadScript(dir script.Dir, name string) (*script.Script, error) {
	s, err := dir.Load(name)
	if err != nil {
		if errors.Is(err, script.ErrNotFound) {
			available, _ := dir.Names()
			r.logger.Warnf("no script for %s, available: %s", name, strings.Join(available, ", "))
		}
		return nil, fmt.Errorf("%w: %v", ErrScriptLoad, err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("%w: %s has no steps", ErrScriptLoad, s.Path)
	}
	return s, nil
}
