package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenAndMigrate(filepath.Join(t.TempDir(), FileName), nil)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseInitialization(t *testing.T) {
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "nested", "test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	// a second run is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Re-running migrations failed: %v", err)
	}

	version, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get version: %v", err)
	}
	if version != LatestVersion() {
		t.Errorf("Expected version %d, got %d", LatestVersion(), version)
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	start := time.Now().Add(-time.Minute)
	if err := db.BeginSession(ctx, SessionRecord{ID: "s1", Mode: "55mod", WindowTitle: "二重螺旋", StartedAt: start}); err != nil {
		t.Fatalf("Failed to begin session: %v", err)
	}

	got, err := db.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}
	if got.Status != StatusRunning || got.EndedAt != nil || got.WindowTitle != "二重螺旋" {
		t.Errorf("unexpected open session: %+v", got)
	}

	for i, name := range []string{"mapA", "mapB"} {
		err := db.RecordRound(ctx, RoundRecord{
			SessionID:  "s1",
			Round:      i + 1,
			Scenario:   name,
			Recognized: i == 0,
			TopScore:   1.5,
			Script:     name,
			Outcome:    OutcomeCompleted,
		})
		if err != nil {
			t.Fatalf("Failed to record round: %v", err)
		}
	}

	got, err = db.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.LoopsDone != 2 {
		t.Errorf("loops_done = %d, want 2", got.LoopsDone)
	}

	if err := db.EndSession(ctx, "s1", StatusCompleted, 2, "loop cap reached"); err != nil {
		t.Fatalf("Failed to end session: %v", err)
	}
	got, err = db.GetSession(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusCompleted || got.EndedAt == nil || got.StopReason != "loop cap reached" {
		t.Errorf("unexpected closed session: %+v", got)
	}
	if got.Duration() < time.Minute {
		t.Errorf("duration = %v", got.Duration())
	}

	rounds, err := db.Rounds(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rounds) != 2 || !rounds[0].Recognized || rounds[1].Recognized || rounds[1].Scenario != "mapB" {
		t.Errorf("rounds = %+v", rounds)
	}
}

func TestRecentSessionsOrder(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, id := range []string{"old", "mid", "new"} {
		rec := SessionRecord{ID: id, Mode: "wuqimihan", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.BeginSession(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.RecentSessions(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to list sessions: %v", err)
	}
	if len(got) != 2 || got[0].ID != "new" || got[1].ID != "mid" {
		t.Errorf("recent = %+v", got)
	}
}

func TestScenarioCounts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.BeginSession(ctx, SessionRecord{ID: "s", Mode: "55mod"}); err != nil {
		t.Fatal(err)
	}
	for i, script := range []string{"mapA", "mapB", "mapA"} {
		r := RoundRecord{SessionID: "s", Round: i + 1, Script: script, Recognized: i != 2, Outcome: OutcomeCompleted}
		if err := db.RecordRound(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := db.ScenarioCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 2 || counts[0] != (ScenarioCount{Scenario: "mapA", Rounds: 2, Recognized: 1}) {
		t.Errorf("counts = %+v", counts)
	}

	sessions, rounds, err := db.Totals(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sessions != 1 || rounds != 3 {
		t.Errorf("totals = %d sessions, %d rounds", sessions, rounds)
	}
}

func TestUnknownSession(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.GetSession(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("get err = %v", err)
	}
	if err := db.EndSession(ctx, "nope", StatusStopped, 0, ""); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("end err = %v", err)
	}
	// rounds reference sessions
	if err := db.RecordRound(ctx, RoundRecord{SessionID: "nope", Round: 1, Outcome: OutcomeFailed}); err == nil {
		t.Error("round for an unknown session should violate the foreign key")
	}
}

func TestTransactions(t *testing.T) {
	db := openTestDB(t)

	err := db.ExecTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO sessions (id, mode, started_at) VALUES (?, ?, ?)", "tx", "55mod", time.Now())
		if err != nil {
			return err
		}

		// Force an error to trigger rollback
		_, err = tx.Exec("INVALID SQL QUERY")
		return err
	})
	if err == nil {
		t.Fatal("expected the transaction to fail")
	}

	if _, err := db.GetSession(context.Background(), "tx"); !errors.Is(err, ErrSessionNotFound) {
		t.Error("Transaction did not rollback correctly")
	}
}
