package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// CommitStore defines the driven port for commit persistence.
type CommitStore interface {
	// Upsert inserts or refreshes a commit keyed by SHA.
	Upsert(ctx context.Context, c model.Commit) error
	// ListRecent returns up to limit commits for the repository ordered by
	// author date descending.
	ListRecent(ctx context.Context, repoID int64, limit int) ([]model.Commit, error)
	CountByRepository(ctx context.Context, repoID int64) (int, error)
}
