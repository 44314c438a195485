package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// PRWorker replicates the most recently updated pull requests of a
// repository. It does not report to the ledger; failures are only logged.
type PRWorker struct {
	prStore  driven.PRStore
	pageSize int
	pageCap  int
	logger   *slog.Logger
	now      func() time.Time
}

// NewPRWorker creates a PRWorker. Non-positive limits fall back to the defaults.
func NewPRWorker(prStore driven.PRStore, pageSize, pageCap int, logger *slog.Logger) *PRWorker {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageCap <= 0 {
		pageCap = DefaultPRPageCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PRWorker{
		prStore:  prStore,
		pageSize: pageSize,
		pageCap:  pageCap,
		logger:   logger,
		now:      time.Now,
	}
}

// Run pages through pull requests in every state until an empty page or the
// page cap, upserting each one.
func (w *PRWorker) Run(ctx context.Context, client driven.GitHubClient, repo model.Repository) {
	log := w.logger.With("worker", "pull_requests", "repo", repo.FullName)
	start := time.Now()

	var stored, failed int
	for page := 1; page <= w.pageCap; page++ {
		prs, err := client.FetchPullRequestPage(ctx, repo.Owner, repo.Name, page, w.pageSize)
		if err != nil {
			logUpstreamError(log, "pull request page fetch failed", err, "page", page)
			return
		}
		if len(prs) == 0 {
			break
		}

		syncedAt := w.now()
		for _, pr := range prs {
			pr.RepositoryID = repo.ID
			pr.SyncedAt = syncedAt

			if err := w.prStore.Upsert(ctx, pr); err != nil {
				log.Error("pull request upsert failed", "pr", pr.Number, "error", err)
				failed++
				continue
			}
			stored++
		}
	}

	log.Info("pull request sync complete",
		"stored", stored,
		"failed", failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}
