package runner

import (
	"os"
	"path/filepath"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/config"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/database"
)

// Paths resolves the on-disk layout under a base directory
type Paths struct {
	Base string
}

// DefaultPaths uses the executable's directory, or the working directory
// when that cannot be determined
func DefaultPaths() Paths {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return Paths{Base: filepath.Dir(exe)}
	}
	wd, _ := os.Getwd()
	return Paths{Base: wd}
}

// Control holds UI marker templates
func (p Paths) Control() string { return filepath.Join(p.Base, "control") }

// Maps holds the scenario templates of a mode
func (p Paths) Maps(mode Mode) string { return filepath.Join(p.Base, "map", string(mode)) }

// Scripts holds the action scripts of a mode
func (p Paths) Scripts(mode Mode) string { return filepath.Join(p.Base, "json", string(mode)) }

// Log is the appended session log
func (p Paths) Log() string { return filepath.Join(p.Base, "app.log") }

// Settings is the settings file
func (p Paths) Settings() string { return filepath.Join(p.Base, config.FileName) }

// History is the run history database
func (p Paths) History() string { return filepath.Join(p.Base, database.FileName) }
