package runner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/script"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/pkg/templates"
)

// CheckReport is the result of the startup self-check
type CheckReport struct {
	ControlDir bool
	Missing    []string // core markers without a template file
	Maps       int      // png files in the mode's map directory
	Scripts    int      // json files in the mode's script directory
}

// OK reports whether the mode can plausibly run
func (c CheckReport) OK() bool {
	return c.ControlDir && len(c.Missing) == 0 && c.Maps > 0 && c.Scripts > 0
}

// SelfCheck logs the directory layout and creates missing mode directories
func (r *Runner) SelfCheck(mode Mode) CheckReport {
	var rep CheckReport
	r.logger.Infof("[self-check] base_dir=%s", r.paths.Base)

	control := r.paths.Control()
	if info, err := os.Stat(control); err == nil && info.IsDir() {
		rep.ControlDir = true
	}
	r.logger.Infof("[self-check] control=%s exists=%t", control, rep.ControlDir)
	for _, name := range templates.Core {
		t := r.markers.GetOrDefault(name)
		_, err := os.Stat(t.Path)
		r.logger.Infof("[self-check] %s: %t", filepath.Base(t.Path), err == nil)
		if err != nil {
			rep.Missing = append(rep.Missing, name)
		}
	}

	maps := r.paths.Maps(mode)
	rep.Maps = r.countFiles(maps, ".png")
	r.logger.Infof("[self-check] map dir %s: %d png", maps, rep.Maps)

	scripts := r.paths.Scripts(mode)
	if err := os.MkdirAll(scripts, 0755); err != nil {
		r.logger.Error("failed to create script dir", err)
	}
	if names, err := (script.Dir{Path: scripts}).List(); err == nil {
		rep.Scripts = len(names)
	}
	r.logger.Infof("[self-check] json dir %s: %d json", scripts, rep.Scripts)

	if !rep.ControlDir {
		r.logger.Warn("[self-check] control directory missing, marker detection will fail")
	}
	if len(rep.Missing) > 0 {
		r.logger.Warnf("[self-check] missing markers: %s", strings.Join(rep.Missing, ", "))
	}
	if rep.Maps == 0 {
		r.logger.Warn("[self-check] no map templates, recognition will fail")
	}
	if rep.Scripts == 0 {
		r.logger.Warn("[self-check] no scripts, nothing can be played")
	}
	return rep
}

// countFiles creates dir when missing and counts files with ext
func (r *Runner) countFiles(dir, ext string) int {
	if err := os.MkdirAll(dir, 0755); err != nil {
		r.logger.Error("failed to create "+dir, err)
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			n++
		}
	}
	return n
}
