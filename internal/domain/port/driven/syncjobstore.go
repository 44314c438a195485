package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// Sentinel errors returned by SyncJobStore implementations.
var (
	// ErrJobNotFound indicates the requested sync job does not exist.
	ErrJobNotFound = errors.New("sync job not found")

	// ErrJobNotRunning indicates a write was attempted on a job that already
	// reached a terminal status.
	ErrJobNotRunning = errors.New("sync job is not running")
)

// SyncJobStore defines the driven port for the sync job ledger.
// Terminal transitions only apply to running jobs; UpdateProgress never
// lowers ItemsProcessed.
type SyncJobStore interface {
	Create(ctx context.Context, job model.SyncJob) error
	Get(ctx context.Context, id string) (*model.SyncJob, error)
	ListByRepository(ctx context.Context, repoID int64) ([]model.SyncJob, error)
	UpdateProgress(ctx context.Context, id string, itemsProcessed int) error
	Complete(ctx context.Context, id string, itemsProcessed int, at time.Time) error
	Fail(ctx context.Context, id string, message string, at time.Time) error
}
