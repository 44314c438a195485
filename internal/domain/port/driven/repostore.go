package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// ErrRepoNotFound indicates the requested repository does not exist in the replica.
var ErrRepoNotFound = errors.New("repository not found")

// RepoStore defines the driven port for repository persistence.
// Upsert is keyed on GitHubID and returns the stored row with its local ID.
// GetByID returns ErrRepoNotFound if the repository does not exist.
type RepoStore interface {
	Upsert(ctx context.Context, repo model.Repository) (*model.Repository, error)
	GetByID(ctx context.Context, id int64) (*model.Repository, error)
	GetByFullName(ctx context.Context, fullName string) (*model.Repository, error)
	ListAll(ctx context.Context) ([]model.Repository, error)
}
