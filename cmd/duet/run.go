package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/config"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/database"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/events"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/runner"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/pkg/templates"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a mode against the game window until it stops",
	Long:  "Runs the configured mode. Ctrl+C stops the session after the current step; settings.ini edits apply while running.",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("mode", "", "Mode to run: 55mod, wuqimihan or juesemihan (default: mode setting)")
	runCmd.Flags().Int("loops", -1, "Loop cap, 0 for unlimited (default: max_loops setting)")
}

func runRun(cmd *cobra.Command, args []string) error {
	paths := basePaths(cmd)
	settings, err := settingsFor(cmd, paths)
	if err != nil {
		return err
	}
	if mode, _ := cmd.Flags().GetString("mode"); mode != "" {
		settings.Mode = mode
	}
	loops, _ := cmd.Flags().GetInt("loops")
	if loops >= 0 {
		settings.MaxLoops = loops
	}
	if _, err := runner.ParseMode(settings.Mode); err != nil {
		return err
	}

	logFile, err := logging.OpenFileOutput(paths.Log())
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := logging.NewSessionLogger("runner", os.Stdout, logFile)

	api := win.Default()
	target, err := resolveWindow(api, settings.WindowKeyword)
	if err != nil {
		return &exitError{code: 1, err: err}
	}
	logger.Infof("target window: %s", target)

	markers := templates.NewRegistry(paths.Control())
	if ok, err := markers.LoadOverrides(); err != nil {
		logger.Error("marker overrides rejected", err)
	} else if ok {
		logger.Infof("marker overrides loaded from %s", templates.OverridesFile)
	}
	matcher := cv.NewMatcher(cv.WithLogger(logger.Named("cv")))
	if n, err := markers.Preload(matcher.Cache()); err != nil {
		logger.Warnf("preloaded %d markers, some failed: %v", n, err)
	}

	bus := events.NewBus(16, logger.Named("events"))
	tally := newTally()
	bus.Subscribe(events.RoundFinished, tally.add)
	defer func() {
		bus.Stop()
		if line := tally.String(); line != "" {
			logger.Infof("rounds played: %s", line)
		}
	}()

	opts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithMarkers(markers),
		runner.WithMatcher(matcher),
		runner.WithEvents(bus),
	}
	if settings.History {
		db, err := database.OpenAndMigrate(paths.History(), logger.Named("database"))
		if err != nil {
			logger.Error("run history disabled", err)
		} else {
			defer db.Close()
			opts = append(opts, runner.WithHistory(db))
		}
	}

	r, err := runner.New(api, target.Handle, paths, settings, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	go func() {
		err := config.Watch(watchCtx, paths.Settings(), logger.Named("config"), keepLoops(loops, r.ApplySettings))
		if err != nil && watchCtx.Err() == nil {
			logger.Error("settings watch stopped", err)
		}
	}()

	if err := r.Run(ctx); err != nil {
		return &exitError{code: 2, err: err}
	}
	return nil
}

// keepLoops re-applies a --loops value to every reloaded settings file
func keepLoops(loops int, apply func(*config.Settings)) func(*config.Settings) {
	if loops < 0 {
		return apply
	}
	return func(s *config.Settings) {
		s.MaxLoops = loops
		apply(s)
	}
}

// tally counts rounds per scenario from round events
type tally struct {
	order  []string
	counts map[string]int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(e events.Event) {
	name := e.String("scenario")
	if !e.Bool("recognized") {
		name += " (fallback)"
	}
	if _, ok := t.counts[name]; !ok {
		t.order = append(t.order, name)
	}
	t.counts[name]++
}

func (t *tally) String() string {
	parts := make([]string, len(t.order))
	for i, name := range t.order {
		parts[i] = fmt.Sprintf("%s x%d", name, t.counts[name])
	}
	return strings.Join(parts, ", ")
}
