package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/gitpulse/internal/application"
	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

var testRepo = model.Repository{ID: 7, GitHubID: 42, Owner: "octocat", Name: "hello-world", FullName: "octocat/hello-world"}

func seedRunningJob(t *testing.T, jobs *memJobStore, id string) {
	t.Helper()
	require.NoError(t, jobs.Create(context.Background(), model.SyncJob{
		ID:           id,
		Kind:         model.JobKindFull,
		RepositoryID: testRepo.ID,
		Status:       model.JobStatusRunning,
		StartedAt:    time.Now(),
	}))
}

func TestCommitWorker_PageCap(t *testing.T) {
	commits := newMemCommitStore()
	jobs := newMemJobStore()
	seedRunningJob(t, jobs, "job-1")

	client := &fakeGitHubClient{commitPage: fullCommitPages(100)}
	worker := application.NewCommitWorker(commits, jobs, 100, 5, nil)

	worker.Run(context.Background(), client, testRepo, "job-1")

	assert.Equal(t, []int{1, 2, 3, 4, 5}, client.requestedCommitPages(), "no page beyond the cap is requested")

	n, err := commits.CountByRepository(context.Background(), testRepo.ID)
	require.NoError(t, err)
	assert.Equal(t, 500, n)

	job, err := jobs.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 500, job.ItemsProcessed)
	assert.NotNil(t, job.CompletedAt)
	assert.Equal(t, []int{100, 200, 300, 400, 500}, jobs.progressHistory())
}

func TestCommitWorker_StopsOnEmptyPage(t *testing.T) {
	commits := newMemCommitStore()
	jobs := newMemJobStore()
	seedRunningJob(t, jobs, "job-1")

	client := &fakeGitHubClient{commitPage: fullCommitPages(2)}
	worker := application.NewCommitWorker(commits, jobs, 100, 5, nil)

	worker.Run(context.Background(), client, testRepo, "job-1")

	assert.Equal(t, []int{1, 2, 3}, client.requestedCommitPages())

	job, err := jobs.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 200, job.ItemsProcessed)
}

func TestCommitWorker_EmptyRepository(t *testing.T) {
	jobs := newMemJobStore()
	seedRunningJob(t, jobs, "job-1")

	client := &fakeGitHubClient{commitPage: fullCommitPages(0)}
	worker := application.NewCommitWorker(newMemCommitStore(), jobs, 100, 5, nil)

	worker.Run(context.Background(), client, testRepo, "job-1")

	job, err := jobs.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 0, job.ItemsProcessed)
}

func TestCommitWorker_FailureIsolation(t *testing.T) {
	commits := newMemCommitStore()
	commits.failSHA["sha-0042"] = true
	jobs := newMemJobStore()
	seedRunningJob(t, jobs, "job-1")

	client := &fakeGitHubClient{commitPage: fullCommitPages(1)}
	worker := application.NewCommitWorker(commits, jobs, 100, 5, nil)

	worker.Run(context.Background(), client, testRepo, "job-1")

	n, err := commits.CountByRepository(context.Background(), testRepo.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, n)

	job, err := jobs.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, job.Status)
	assert.Equal(t, 99, job.ItemsProcessed, "progress counts only successful upserts")
	assert.Equal(t, []int{99}, jobs.progressHistory())
}

func TestCommitWorker_DetailFailureSkipsCommit(t *testing.T) {
	commits := newMemCommitStore()
	jobs := newMemJobStore()
	seedRunningJob(t, jobs, "job-1")

	client := &fakeGitHubClient{
		commitPage: fullCommitPages(1),
		detail: func(sha string) (*model.CommitDetail, error) {
			if sha == "sha-0000" {
				return nil, &driven.RateLimitError{ResetAt: time.Now().Add(time.Minute), Err: errors.New("403")}
			}
			return &model.CommitDetail{Additions: 3, Deletions: 2, TotalChanges: 5, FilesChanged: 1}, nil
		},
	}
	worker := application.NewCommitWorker(commits, jobs, 100, 5, nil)

	worker.Run(context.Background(), client, testRepo, "job-1")

	recent, err := commits.ListRecent(context.Background(), testRepo.ID, 1000)
	require.NoError(t, err)
	require.Len(t, recent, 99)
	for _, c := range recent {
		assert.NotEqual(t, "sha-0000", c.SHA)
		assert.Equal(t, testRepo.ID, c.RepositoryID)
		assert.Equal(t, 3, c.Additions, "detail stats are applied before the upsert")
		assert.Equal(t, 5, c.TotalChanges)
	}
}

func TestCommitWorker_PageFetchErrorFailsJob(t *testing.T) {
	commits := newMemCommitStore()
	jobs := newMemJobStore()
	seedRunningJob(t, jobs, "job-1")

	first := fullCommitPages(5)
	client := &fakeGitHubClient{
		commitPage: func(ctx context.Context, page, perPage int) ([]model.Commit, error) {
			if page == 2 {
				return nil, errors.New("connection reset by peer")
			}
			return first(ctx, page, perPage)
		},
	}
	worker := application.NewCommitWorker(commits, jobs, 100, 5, nil)

	worker.Run(context.Background(), client, testRepo, "job-1")

	assert.Equal(t, []int{1, 2}, client.requestedCommitPages())

	job, err := jobs.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "connection reset by peer")
	assert.Equal(t, 100, job.ItemsProcessed, "work stored before the failure stays counted")
	assert.NotNil(t, job.CompletedAt)
}

func TestCommitWorker_RateLimitedPageFailsJob(t *testing.T) {
	jobs := newMemJobStore()
	seedRunningJob(t, jobs, "job-1")

	client := &fakeGitHubClient{
		commitPage: func(context.Context, int, int) ([]model.Commit, error) {
			return nil, &driven.RateLimitError{ResetAt: time.Now().Add(time.Hour), Err: errors.New("API rate limit exceeded")}
		},
	}
	worker := application.NewCommitWorker(newMemCommitStore(), jobs, 100, 5, nil)

	worker.Run(context.Background(), client, testRepo, "job-1")

	job, err := jobs.Get(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, job.Status)
	require.NotNil(t, job.Error)
	assert.Contains(t, *job.Error, "rate limit")
}

func TestCommitWorker_Idempotent(t *testing.T) {
	commits := newMemCommitStore()
	jobs := newMemJobStore()
	seedRunningJob(t, jobs, "job-1")
	seedRunningJob(t, jobs, "job-2")

	client := &fakeGitHubClient{commitPage: fullCommitPages(2)}
	worker := application.NewCommitWorker(commits, jobs, 100, 5, nil)

	worker.Run(context.Background(), client, testRepo, "job-1")
	first, err := commits.ListRecent(context.Background(), testRepo.ID, 1000)
	require.NoError(t, err)

	worker.Run(context.Background(), client, testRepo, "job-2")
	second, err := commits.ListRecent(context.Background(), testRepo.ID, 1000)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, second, 200)
}

func TestCommitWorker_DefaultsForNonPositiveLimits(t *testing.T) {
	jobs := newMemJobStore()
	seedRunningJob(t, jobs, "job-1")

	var gotPerPage int
	client := &fakeGitHubClient{
		commitPage: func(_ context.Context, page, perPage int) ([]model.Commit, error) {
			gotPerPage = perPage
			return fullCommitPages(100)(context.Background(), page, 1)
		},
	}
	worker := application.NewCommitWorker(newMemCommitStore(), jobs, 0, 0, nil)

	worker.Run(context.Background(), client, testRepo, "job-1")

	assert.Equal(t, application.DefaultPageSize, gotPerPage)
	assert.Len(t, client.requestedCommitPages(), application.DefaultCommitPageCap)
}

// mockJobStore is used where the exact ledger calls matter.
type mockJobStore struct {
	mock.Mock
}

func (m *mockJobStore) Create(ctx context.Context, job model.SyncJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *mockJobStore) Get(ctx context.Context, id string) (*model.SyncJob, error) {
	args := m.Called(ctx, id)
	job, _ := args.Get(0).(*model.SyncJob)
	return job, args.Error(1)
}

func (m *mockJobStore) ListByRepository(ctx context.Context, repoID int64) ([]model.SyncJob, error) {
	args := m.Called(ctx, repoID)
	jobs, _ := args.Get(0).([]model.SyncJob)
	return jobs, args.Error(1)
}

func (m *mockJobStore) UpdateProgress(ctx context.Context, id string, items int) error {
	return m.Called(ctx, id, items).Error(0)
}

func (m *mockJobStore) Complete(ctx context.Context, id string, items int, at time.Time) error {
	return m.Called(ctx, id, items, at).Error(0)
}

func (m *mockJobStore) Fail(ctx context.Context, id string, message string, at time.Time) error {
	return m.Called(ctx, id, message, at).Error(0)
}

func TestCommitWorker_ProgressWriteFailureFailsJob(t *testing.T) {
	ctx := context.Background()
	jobs := new(mockJobStore)
	jobs.On("UpdateProgress", ctx, "job-1", 100).Return(fmt.Errorf("update progress: %w", errors.New("database is locked"))).Once()
	jobs.On("Fail", ctx, "job-1", mock.MatchedBy(func(msg string) bool {
		return msg != ""
	}), mock.AnythingOfType("time.Time")).Return(nil).Once()

	client := &fakeGitHubClient{commitPage: fullCommitPages(5)}
	worker := application.NewCommitWorker(newMemCommitStore(), jobs, 100, 5, nil)

	worker.Run(ctx, client, testRepo, "job-1")

	jobs.AssertExpectations(t)
	jobs.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, []int{1}, client.requestedCommitPages())
}

func TestCommitWorker_CompleteUsesProcessedCount(t *testing.T) {
	ctx := context.Background()
	jobs := new(mockJobStore)
	jobs.On("UpdateProgress", ctx, "job-1", 100).Return(nil).Once()
	jobs.On("Complete", ctx, "job-1", 100, mock.AnythingOfType("time.Time")).Return(nil).Once()

	client := &fakeGitHubClient{commitPage: fullCommitPages(1)}
	worker := application.NewCommitWorker(newMemCommitStore(), jobs, 100, 5, nil)

	worker.Run(ctx, client, testRepo, "job-1")

	jobs.AssertExpectations(t)
	jobs.AssertNotCalled(t, "Fail", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
