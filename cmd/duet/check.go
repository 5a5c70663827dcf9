package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/cv"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/runner"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/win"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/pkg/templates"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Find one marker and strict-click it",
	Long: `Captures the window once, searches for the target marker across scales and
sends a strict click to the deepest child under its center.

Exit status: 0 clicked, 1 invalid window, 2 marker not found or click failed.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("target", templates.Evacuate, "Marker to click: cheli or jixutiaozhan")
	checkCmd.Flags().Float64("thr", templates.DocumentThreshold, "Match threshold")
	checkCmd.Flags().String("scales", "1.1,1.05,1.0,0.95,0.9", "Comma separated scales")
	checkCmd.Flags().Int("seq-delay-ms", 60, "Button hold in milliseconds")
}

func parseScales(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("bad scale %q", part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, errors.New("no scales given")
	}
	return out, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).With().Timestamp().Logger()

	target, _ := cmd.Flags().GetString("target")
	if target != templates.Evacuate && target != templates.Continue {
		return &exitError{code: 2, err: fmt.Errorf("unknown target %q, want %s or %s", target, templates.Evacuate, templates.Continue)}
	}
	thr, _ := cmd.Flags().GetFloat64("thr")
	rawScales, _ := cmd.Flags().GetString("scales")
	scales, err := parseScales(rawScales)
	if err != nil {
		return &exitError{code: 2, err: err}
	}
	holdMs, _ := cmd.Flags().GetInt("seq-delay-ms")

	paths := basePaths(cmd)
	settings, err := settingsFor(cmd, paths)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	api := win.Default()
	w, err := resolveWindow(api, settings.WindowKeyword)
	if err != nil {
		log.Error().Err(err).Str("window", settings.WindowKeyword).Msg("Invalid window")
		return &exitError{code: 1, err: err}
	}
	log.Info().Str("hwnd", w.Handle.String()).Str("title", w.Title).Str("class", w.Class).Msg("Target window")

	markers := templates.NewRegistry(paths.Control())
	if _, err := markers.LoadOverrides(); err != nil {
		log.Warn().Err(err).Msg("Marker overrides rejected")
	}
	r, err := runner.New(api, w.Handle, paths, settings,
		runner.WithMarkers(markers),
		runner.WithLogger(logging.Nop()),
	)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	tmpl := r.Marker(target).WithThreshold(thr).WithScales(scales...)
	if _, err := os.Stat(tmpl.Path); err != nil {
		log.Error().Str("path", tmpl.Path).Msg("Template missing")
		return &exitError{code: 2, err: fmt.Errorf("%w: %s", cv.ErrTemplateMissing, tmpl.Path)}
	}

	res, err := r.Probe(context.Background(), tmpl, time.Duration(holdMs)*time.Millisecond)
	if err != nil {
		log.Error().Err(err).Msg("Probe failed")
		return &exitError{code: 2, err: err}
	}
	log.Info().
		Str("target", target).
		Bool("found", res.Match.Found).
		Float64("score", res.Match.Score).
		Float64("scale", res.Match.Scale).
		Ints("rect", []int{res.Match.Rect.Min.X, res.Match.Rect.Min.Y, res.Match.Rect.Max.X, res.Match.Rect.Max.Y}).
		Msg("Match result")
	if !res.Match.Found {
		return &exitError{code: 2, err: fmt.Errorf("%s not found (best %.3f < %.2f)", target, res.Match.Score, thr)}
	}

	t := res.Target
	log.Info().
		Str("parent", t.Root.String()).
		Str("child", t.Handle.String()).
		Ints("parent_client", []int{t.RootPoint.X, t.RootPoint.Y}).
		Ints("child_client", []int{t.Point.X, t.Point.Y}).
		Ints("screen", []int{t.Screen.X, t.Screen.Y}).
		Bool("degraded", t.Degraded).
		Str("chain", t.Chain()).
		Msg("Strict click sent")
	return nil
}
