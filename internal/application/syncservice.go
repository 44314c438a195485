// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// ErrInvalidSyncRequest is returned when a sync trigger is missing its
// credential, owner or repository name.
var ErrInvalidSyncRequest = errors.New("invalid sync request")

// SyncRequest identifies the repository to replicate and the credential to
// read it with. The credential is used for this invocation only.
type SyncRequest struct {
	Credential string
	Owner      string
	Name       string
}

// SyncResult is returned as soon as the workers have been launched.
type SyncResult struct {
	RepositoryID int64
	JobID        string
}

// SyncService resolves a repository, records a ledger entry and launches the
// commit and pull request workers in the background.
type SyncService struct {
	clients   driven.GitHubClientFactory
	repoStore driven.RepoStore
	jobStore  driven.SyncJobStore
	commits   *CommitWorker
	prs       *PRWorker
	logger    *slog.Logger

	now   func() time.Time
	newID func() string

	inflight sync.WaitGroup
}

// NewSyncService creates a new SyncService with all required dependencies.
func NewSyncService(
	clients driven.GitHubClientFactory,
	repoStore driven.RepoStore,
	jobStore driven.SyncJobStore,
	commits *CommitWorker,
	prs *PRWorker,
	logger *slog.Logger,
) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{
		clients:   clients,
		repoStore: repoStore,
		jobStore:  jobStore,
		commits:   commits,
		prs:       prs,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// StartSync resolves the repository upstream, upserts it, creates a running
// ledger entry and starts both workers. It returns without waiting for them.
// Resolution failures are returned synchronously and leave no ledger entry.
func (s *SyncService) StartSync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	req.Credential = strings.TrimSpace(req.Credential)
	req.Owner = strings.TrimSpace(req.Owner)
	req.Name = strings.TrimSpace(req.Name)
	if req.Credential == "" || req.Owner == "" || req.Name == "" {
		return nil, ErrInvalidSyncRequest
	}

	client := s.clients.NewClient(req.Credential)

	upstream, err := client.FetchRepository(ctx, req.Owner, req.Name)
	if err != nil {
		return nil, fmt.Errorf("resolve repository %s/%s: %w", req.Owner, req.Name, err)
	}

	upstream.SyncedAt = s.now()
	repo, err := s.repoStore.Upsert(ctx, *upstream)
	if err != nil {
		return nil, fmt.Errorf("store repository %s/%s: %w", req.Owner, req.Name, err)
	}

	job := model.SyncJob{
		ID:           s.newID(),
		Kind:         model.JobKindFull,
		RepositoryID: repo.ID,
		Status:       model.JobStatusRunning,
		StartedAt:    s.now(),
	}
	if err := s.jobStore.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create sync job for %s: %w", repo.FullName, err)
	}

	// The workers outlive the triggering request.
	workerCtx := context.WithoutCancel(ctx)
	target := *repo

	s.inflight.Go(func() { s.commits.Run(workerCtx, client, target, job.ID) })
	s.inflight.Go(func() { s.prs.Run(workerCtx, client, target) })

	s.logger.Info("sync started", "repo", repo.FullName, "repository_id", repo.ID, "job_id", job.ID)

	return &SyncResult{RepositoryID: repo.ID, JobID: job.ID}, nil
}

// Wait blocks until every worker started so far has returned.
func (s *SyncService) Wait() {
	s.inflight.Wait()
}

// GetJob returns a ledger entry. Returns driven.ErrJobNotFound if it does not exist.
func (s *SyncService) GetJob(ctx context.Context, id string) (*model.SyncJob, error) {
	return s.jobStore.Get(ctx, id)
}

// ListJobs returns the ledger history of a repository, newest first.
// Returns driven.ErrRepoNotFound for an unknown repository.
func (s *SyncService) ListJobs(ctx context.Context, repoID int64) ([]model.SyncJob, error) {
	if _, err := s.repoStore.GetByID(ctx, repoID); err != nil {
		return nil, err
	}
	return s.jobStore.ListByRepository(ctx, repoID)
}
