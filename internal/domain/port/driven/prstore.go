package driven

import (
	"context"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// PRStore defines the driven port for pull request persistence.
type PRStore interface {
	// Upsert inserts or refreshes a pull request keyed by GitHubID.
	Upsert(ctx context.Context, pr model.PullRequest) error
	// GetByRepository returns every pull request for the repository, newest
	// created first.
	GetByRepository(ctx context.Context, repoID int64) ([]model.PullRequest, error)
	GetByNumber(ctx context.Context, repoID int64, number int) (*model.PullRequest, error)
}
