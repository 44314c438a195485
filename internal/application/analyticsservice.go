package application

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

const (
	// analyticsCommitWindow bounds how many recent commits feed the commit
	// and contributor statistics.
	analyticsCommitWindow = 500
	recentItemsLimit      = 10
)

// AnalyticsService computes repository statistics from the replica on demand.
// Nothing it produces is persisted.
type AnalyticsService struct {
	repoStore   driven.RepoStore
	commitStore driven.CommitStore
	prStore     driven.PRStore
	loc         *time.Location
	now         func() time.Time
}

// NewAnalyticsService creates an AnalyticsService. Trend days are calendar
// days in loc; a nil loc means time.Local.
func NewAnalyticsService(repoStore driven.RepoStore, commitStore driven.CommitStore, prStore driven.PRStore, loc *time.Location) *AnalyticsService {
	if loc == nil {
		loc = time.Local
	}
	return &AnalyticsService{
		repoStore:   repoStore,
		commitStore: commitStore,
		prStore:     prStore,
		loc:         loc,
		now:         time.Now,
	}
}

// GetAnalytics returns the statistics for one repository. Returns
// driven.ErrRepoNotFound for an unknown id.
func (s *AnalyticsService) GetAnalytics(ctx context.Context, repoID int64) (*model.Analytics, error) {
	repo, err := s.repoStore.GetByID(ctx, repoID)
	if err != nil {
		return nil, err
	}

	var (
		commits []model.Commit
		prs     []model.PullRequest
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		commits, err = s.commitStore.ListRecent(gctx, repoID, analyticsCommitWindow)
		if err != nil {
			return fmt.Errorf("read commits: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		prs, err = s.prStore.GetByRepository(gctx, repoID)
		if err != nil {
			return fmt.Errorf("read pull requests: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analytics for repository %d: %w", repoID, err)
	}

	return &model.Analytics{
		Repository:       *repo,
		CommitStats:      computeCommitStats(commits, s.now(), s.loc),
		PRStats:          computePRStats(prs),
		ContributorStats: computeContributorStats(commits),
		RecentCommits:    firstN(commits, recentItemsLimit),
		RecentPRs:        firstN(prs, recentItemsLimit),
	}, nil
}

func firstN[T any](items []T, n int) []T {
	if len(items) > n {
		items = items[:n]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
