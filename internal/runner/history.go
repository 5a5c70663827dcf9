package runner

import (
	"context"

	"github.com/WEP-56/Duet-Night-Abyss--Jiao-Jiao-Assistant/internal/database"
)

// History receives session and round records. *database.DB implements it.
type History interface {
	BeginSession(ctx context.Context, s database.SessionRecord) error
	RecordRound(ctx context.Context, r database.RoundRecord) error
	EndSession(ctx context.Context, id, status string, loopsDone int, reason string) error
}

type nopHistory struct{}

func (nopHistory) BeginSession(context.Context, database.SessionRecord) error { return nil }
func (nopHistory) RecordRound(context.Context, database.RoundRecord) error    { return nil }
func (nopHistory) EndSession(context.Context, string, string, int, string) error {
	return nil
}

var _ History = (*database.DB)(nil)
