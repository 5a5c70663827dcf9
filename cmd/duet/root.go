package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/config"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/runner"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
)

var rootCmd = &cobra.Command{
	Use:           "duet",
	Short:         "Background automation for the Duet Night Abyss client",
	Long:          "Watches the game window without focusing it, recognizes the current map and replays the matching recorded script.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().String("base", "", "Base directory holding control/, map/, json/ and settings.ini (default: executable directory)")
	rootCmd.PersistentFlags().String("window", "", "Window title keyword or 0x handle (default: window_keyword setting)")
}

// exitError carries a process exit status through cobra
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func basePaths(cmd *cobra.Command) runner.Paths {
	base, _ := cmd.Flags().GetString("base")
	if base == "" {
		return runner.DefaultPaths()
	}
	return runner.Paths{Base: base}
}

// settingsFor loads settings.ini and applies the --window override
func settingsFor(cmd *cobra.Command, paths runner.Paths) (*config.Settings, error) {
	s, err := config.Load(paths.Settings())
	if err != nil {
		return nil, err
	}
	if w, _ := cmd.Flags().GetString("window"); w != "" {
		s.WindowKeyword = w
	}
	return s, nil
}

// resolveWindow accepts a 0x-prefixed handle or a title keyword
func resolveWindow(api win.API, spec string) (win.WindowInfo, error) {
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(strings.ToLower(spec), "0x") {
		v, err := strconv.ParseUint(spec[2:], 16, 64)
		if err != nil {
			return win.WindowInfo{}, fmt.Errorf("bad window handle %q: %w", spec, err)
		}
		h := win.HWND(v)
		if !api.IsWindow(h) {
			return win.WindowInfo{}, fmt.Errorf("%w: %s", win.ErrInvalidWindow, h)
		}
		return win.WindowInfo{Handle: h, Class: api.ClassName(h), Title: api.WindowText(h)}, nil
	}

	windows, err := win.Enumerate(api)
	if err != nil {
		return win.WindowInfo{}, err
	}
	w, ok := win.FindByKeyword(windows, spec)
	if !ok {
		return win.WindowInfo{}, fmt.Errorf("%w: no visible window titled like %q", win.ErrInvalidWindow, spec)
	}
	return w, nil
}
