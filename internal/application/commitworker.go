package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Default paging limits for a single sync.
const (
	DefaultPageSize      = 100
	DefaultCommitPageCap = 5
	DefaultPRPageCap     = 3
)

// CommitWorker replicates the most recent commits of a repository and is the
// only writer of the sync job ledger.
type CommitWorker struct {
	commitStore driven.CommitStore
	jobStore    driven.SyncJobStore
	pageSize    int
	pageCap     int
	logger      *slog.Logger
	now         func() time.Time
}

// NewCommitWorker creates a CommitWorker. Non-positive limits fall back to the defaults.
func NewCommitWorker(commitStore driven.CommitStore, jobStore driven.SyncJobStore, pageSize, pageCap int, logger *slog.Logger) *CommitWorker {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageCap <= 0 {
		pageCap = DefaultCommitPageCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommitWorker{
		commitStore: commitStore,
		jobStore:    jobStore,
		pageSize:    pageSize,
		pageCap:     pageCap,
		logger:      logger,
		now:         time.Now,
	}
}

// Run pages through commits until an empty page or the page cap, enriching
// each summary with its detail stats before storing it. Per-commit failures
// are logged and skipped. A page fetch failure fails the job.
func (w *CommitWorker) Run(ctx context.Context, client driven.GitHubClient, repo model.Repository, jobID string) {
	log := w.logger.With("worker", "commits", "repo", repo.FullName, "job_id", jobID)
	start := time.Now()

	processed := 0
	for page := 1; page <= w.pageCap; page++ {
		commits, err := client.FetchCommitPage(ctx, repo.Owner, repo.Name, page, w.pageSize)
		if err != nil {
			logUpstreamError(log, "commit page fetch failed", err, "page", page)
			w.fail(ctx, log, jobID, err)
			return
		}
		if len(commits) == 0 {
			break
		}

		for _, c := range commits {
			if w.storeCommit(ctx, log, client, repo, c) {
				processed++
			}
		}

		if err := w.jobStore.UpdateProgress(ctx, jobID, processed); err != nil {
			log.Error("progress update failed", "page", page, "processed", processed, "error", err)
			w.fail(ctx, log, jobID, err)
			return
		}

		log.Debug("commit page stored", "page", page, "fetched", len(commits), "processed", processed)
	}

	if err := w.jobStore.Complete(ctx, jobID, processed, w.now()); err != nil {
		log.Error("complete sync job failed", "error", err)
		return
	}

	log.Info("commit sync complete",
		"processed", processed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

// storeCommit fetches detail stats and upserts one commit. It reports whether
// the commit was stored.
func (w *CommitWorker) storeCommit(ctx context.Context, log *slog.Logger, client driven.GitHubClient, repo model.Repository, c model.Commit) bool {
	detail, err := client.FetchCommitDetail(ctx, repo.Owner, repo.Name, c.SHA)
	if err != nil {
		logUpstreamError(log, "commit detail fetch failed", err, "sha", c.SHA)
		return false
	}

	c.RepositoryID = repo.ID
	c.ApplyDetail(*detail)

	if err := w.commitStore.Upsert(ctx, c); err != nil {
		log.Error("commit upsert failed", "sha", c.SHA, "error", err)
		return false
	}

	return true
}

func (w *CommitWorker) fail(ctx context.Context, log *slog.Logger, jobID string, cause error) {
	if err := w.jobStore.Fail(ctx, jobID, cause.Error(), w.now()); err != nil {
		log.Error("mark sync job failed", "error", err)
	}
}

// logUpstreamError logs rate-limit signals at warn level with the reset hint
// and everything else at error level.
func logUpstreamError(log *slog.Logger, msg string, err error, args ...any) {
	var rlErr *driven.RateLimitError
	if errors.As(err, &rlErr) {
		args = append(args, "error", err)
		if !rlErr.ResetAt.IsZero() {
			args = append(args, "reset_at", rlErr.ResetAt, "reset_in", time.Until(rlErr.ResetAt).Round(time.Second))
		}
		log.Warn(msg+": rate limited", args...)
		return
	}

	log.Error(msg, append(args, "error", err)...)
}
