package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/database"
	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/logging"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sessions and per-map round counts",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Int("limit", 10, "Number of sessions to show")
	historyCmd.Flags().Bool("rounds", false, "Include the rounds of each session")
}

type historyReport struct {
	Totals    historyTotals            `yaml:"totals"`
	Sessions  []sessionEntry           `yaml:"sessions"`
	Scenarios []database.ScenarioCount `yaml:"scenarios,omitempty"`
}

type historyTotals struct {
	Sessions int64 `yaml:"sessions"`
	Rounds   int64 `yaml:"rounds"`
}

type sessionEntry struct {
	Summary string   `yaml:"summary"`
	Rounds  []string `yaml:"rounds,omitempty"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	paths := basePaths(cmd)
	if _, err := os.Stat(paths.History()); err != nil {
		return fmt.Errorf("no history at %s", paths.History())
	}
	db, err := database.OpenAndMigrate(paths.History(), logging.Nop())
	if err != nil {
		return err
	}
	defer db.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	withRounds, _ := cmd.Flags().GetBool("rounds")
	ctx := context.Background()

	sessions, err := db.RecentSessions(ctx, limit)
	if err != nil {
		return err
	}
	report := historyReport{Sessions: []sessionEntry{}}
	if report.Totals.Sessions, report.Totals.Rounds, err = db.Totals(ctx); err != nil {
		return err
	}
	for _, s := range sessions {
		entry := sessionEntry{Summary: s.String()}
		if withRounds {
			rounds, err := db.Rounds(ctx, s.ID)
			if err != nil {
				return err
			}
			for _, r := range rounds {
				kind := "recognized"
				if !r.Recognized {
					kind = "fallback"
				}
				entry.Rounds = append(entry.Rounds, fmt.Sprintf("#%d %s %s %s score=%.2f %s",
					r.Round, r.RecordedAt.Format(time.TimeOnly), r.Scenario, kind, r.TopScore, r.Outcome))
			}
		}
		report.Sessions = append(report.Sessions, entry)
	}
	if report.Scenarios, err = db.ScenarioCounts(ctx); err != nil {
		return err
	}
	return printYAML(report)
}
