package runner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/config"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/pkg/templates"
)

// Mode names a recognition loop
type Mode string

const (
	ModeSimple            Mode = "55mod"
	ModeWeaponDocument    Mode = "wuqimihan"
	ModeCharacterDocument Mode = "juesemihan"
)

type handler interface {
	run(r *Runner) error
}

var modes = map[Mode]handler{
	ModeSimple: simpleLoop{mode: ModeSimple},
	ModeWeaponDocument: documentLoop{
		mode: ModeWeaponDocument,
		dir:  templates.WeaponDocumentDir,
		pick: func(s config.Settings) string { return s.WeaponDocument },
	},
	ModeCharacterDocument: documentLoop{
		mode: ModeCharacterDocument,
		dir:  templates.CharacterDocumentDir,
		pick: func(s config.Settings) string { return s.CharacterDocument },
	},
}

// Modes lists the registered modes in name order
func Modes() []Mode {
	out := make([]Mode, 0, len(modes))
	for m := range modes {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseMode validates a mode name
func ParseMode(name string) (Mode, error) {
	m := Mode(strings.TrimSpace(name))
	if _, ok := modes[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, name)
	}
	return m, nil
}

// simpleLoop: start the challenge, play the recognized scenario, go again
type simpleLoop struct {
	mode Mode
}

func (l simpleLoop) run(r *Runner) error {
	r.TryWaitAndClick(templates.Confirm, OptionalTimeout)
	if !r.WaitAndClick(templates.Start) {
		return r.halt()
	}
	r.Session().ResetLoops()

	for r.running() {
		if err := r.playRound(l.mode, pickRandom); err != nil {
			return err
		}
		if !r.WaitAndClick(templates.Again) {
			return r.halt()
		}
		if !r.WaitAndClick(templates.Start) {
			return r.halt()
		}
		if r.finishLoop() {
			return nil
		}
	}
	return r.halt()
}

// Document flow timing
const (
	DocumentOpenSettle = 500 * time.Millisecond
	DoNotUseTimeout    = 5 * time.Second
	DoNotUsePoll       = 200 * time.Millisecond
	RewardSettle       = 200 * time.Millisecond
)

// documentLoop picks a document before each challenge and a reward after it
type documentLoop struct {
	mode Mode
	dir  string
	pick func(config.Settings) string
}

func (l documentLoop) run(r *Runner) error {
	if !r.ClickMarker(r.marker(templates.ChooseDocument)) {
		r.logger.Warn("choose-document button not found")
		return fmt.Errorf("%w: %s", ErrMarkerNotFound, templates.ChooseDocument)
	}
	if !r.pause(DocumentOpenSettle) {
		return r.halt()
	}
	r.Session().ResetLoops()

	for r.running() {
		if _, ok := r.waitFor(r.marker(templates.DoNotUse), DoNotUseTimeout, DoNotUsePoll); !ok {
			r.logger.Infof("%s not seen within %s, continuing", templates.DoNotUse, DoNotUseTimeout)
		}

		name := l.pick(r.Settings())
		if doc, ok := r.document(l.dir, name); ok {
			r.SelectDocument(doc)
			r.ClickMarker(doc)
		} else if name != "" {
			r.logger.Warnf("document template %s missing, keeping the current selection", name)
		}

		if !r.WaitAndClick(templates.Confirm) {
			return r.halt()
		}
		if err := r.playRound(l.mode, pickFirst); err != nil {
			return err
		}
		if !r.WaitAndClick(templates.Confirm) {
			return r.halt()
		}
		if !r.pause(RewardSettle) {
			return r.halt()
		}
		r.SelectReward()
		if !r.WaitAndClick(templates.Again) {
			return r.halt()
		}
		if r.finishLoop() {
			return nil
		}

		r.logger.Info("selecting document again")
		if r.ClickMarker(r.marker(templates.ChooseDocument)) {
			r.pause(DocumentOpenSettle)
		}
	}
	return r.halt()
}
