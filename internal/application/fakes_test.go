package application_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// --- Upstream fakes ---

type fakeGitHubClient struct {
	mu sync.Mutex

	repo    *model.Repository
	repoErr error

	commitPage  func(ctx context.Context, page, perPage int) ([]model.Commit, error)
	detail      func(sha string) (*model.CommitDetail, error)
	prPage      func(ctx context.Context, page, perPage int) ([]model.PullRequest, error)
	commitPages []int
	prPages     []int
}

func (f *fakeGitHubClient) FetchRepository(_ context.Context, _, _ string) (*model.Repository, error) {
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	r := *f.repo
	return &r, nil
}

func (f *fakeGitHubClient) FetchCommitPage(ctx context.Context, _, _ string, page, perPage int) ([]model.Commit, error) {
	f.mu.Lock()
	f.commitPages = append(f.commitPages, page)
	f.mu.Unlock()
	if f.commitPage == nil {
		return nil, nil
	}
	return f.commitPage(ctx, page, perPage)
}

func (f *fakeGitHubClient) FetchCommitDetail(_ context.Context, _, _, sha string) (*model.CommitDetail, error) {
	if f.detail == nil {
		return &model.CommitDetail{Additions: 1, Deletions: 1, TotalChanges: 2, FilesChanged: 1}, nil
	}
	return f.detail(sha)
}

func (f *fakeGitHubClient) FetchPullRequestPage(ctx context.Context, _, _ string, page, perPage int) ([]model.PullRequest, error) {
	f.mu.Lock()
	f.prPages = append(f.prPages, page)
	f.mu.Unlock()
	if f.prPage == nil {
		return nil, nil
	}
	return f.prPage(ctx, page, perPage)
}

func (f *fakeGitHubClient) requestedCommitPages() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.commitPages)
}

func (f *fakeGitHubClient) requestedPRPages() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.prPages)
}

type fakeClientFactory struct {
	mu          sync.Mutex
	client      driven.GitHubClient
	credentials []string
}

func (f *fakeClientFactory) NewClient(credential string) driven.GitHubClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials = append(f.credentials, credential)
	return f.client
}

// fullCommitPages returns a commitPage func that serves pageSize unique
// commits for every page up to lastPage and an empty page afterwards.
func fullCommitPages(lastPage int) func(context.Context, int, int) ([]model.Commit, error) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return func(_ context.Context, page, perPage int) ([]model.Commit, error) {
		if page > lastPage {
			return nil, nil
		}
		commits := make([]model.Commit, perPage)
		for i := range commits {
			n := (page-1)*perPage + i
			commits[i] = model.Commit{
				SHA:        fmt.Sprintf("sha-%04d", n),
				Author:     "alice",
				AuthorDate: base.Add(time.Duration(n) * time.Minute),
			}
		}
		return commits, nil
	}
}

func fullPRPages(lastPage int) func(context.Context, int, int) ([]model.PullRequest, error) {
	return func(_ context.Context, page, perPage int) ([]model.PullRequest, error) {
		if page > lastPage {
			return nil, nil
		}
		prs := make([]model.PullRequest, perPage)
		for i := range prs {
			n := (page-1)*perPage + i
			prs[i] = model.PullRequest{GitHubID: int64(10000 + n), Number: n + 1, State: model.PRStateOpen}
		}
		return prs, nil
	}
}

// --- Store fakes ---

type memRepoStore struct {
	mu     sync.Mutex
	nextID int64
	repos  map[int64]model.Repository
}

func newMemRepoStore() *memRepoStore {
	return &memRepoStore{repos: make(map[int64]model.Repository)}
}

func (m *memRepoStore) Upsert(_ context.Context, repo model.Repository) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.repos {
		if existing.GitHubID == repo.GitHubID {
			repo.ID = id
			m.repos[id] = repo
			return &repo, nil
		}
	}
	m.nextID++
	repo.ID = m.nextID
	m.repos[repo.ID] = repo
	return &repo, nil
}

func (m *memRepoStore) GetByID(_ context.Context, id int64) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repos[id]
	if !ok {
		return nil, fmt.Errorf("get repository %d: %w", id, driven.ErrRepoNotFound)
	}
	return &repo, nil
}

func (m *memRepoStore) GetByFullName(_ context.Context, fullName string) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, repo := range m.repos {
		if repo.FullName == fullName {
			return &repo, nil
		}
	}
	return nil, nil
}

func (m *memRepoStore) ListAll(_ context.Context) ([]model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Repository
	for _, repo := range m.repos {
		out = append(out, repo)
	}
	return out, nil
}

type memCommitStore struct {
	mu      sync.Mutex
	commits map[string]model.Commit
	failSHA map[string]bool
	listErr error
	upserts int
}

func newMemCommitStore() *memCommitStore {
	return &memCommitStore{commits: make(map[string]model.Commit), failSHA: make(map[string]bool)}
}

func (m *memCommitStore) Upsert(_ context.Context, c model.Commit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.failSHA[c.SHA] {
		return errors.New("disk full")
	}
	m.commits[c.SHA] = c
	return nil
}

func (m *memCommitStore) ListRecent(_ context.Context, repoID int64, limit int) ([]model.Commit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.Commit
	for _, c := range m.commits {
		if c.RepositoryID == repoID {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b model.Commit) int { return b.AuthorDate.Compare(a.AuthorDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memCommitStore) CountByRepository(_ context.Context, repoID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.commits {
		if c.RepositoryID == repoID {
			n++
		}
	}
	return n, nil
}

type memPRStore struct {
	mu      sync.Mutex
	prs     map[int64]model.PullRequest
	failID  map[int64]bool
	listErr error
}

func newMemPRStore() *memPRStore {
	return &memPRStore{prs: make(map[int64]model.PullRequest), failID: make(map[int64]bool)}
}

func (m *memPRStore) Upsert(_ context.Context, pr model.PullRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failID[pr.GitHubID] {
		return errors.New("constraint failed")
	}
	m.prs[pr.GitHubID] = pr
	return nil
}

func (m *memPRStore) GetByRepository(_ context.Context, repoID int64) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []model.PullRequest
	for _, pr := range m.prs {
		if pr.RepositoryID == repoID {
			out = append(out, pr)
		}
	}
	slices.SortFunc(out, func(a, b model.PullRequest) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (m *memPRStore) GetByNumber(_ context.Context, repoID int64, number int) (*model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pr := range m.prs {
		if pr.RepositoryID == repoID && pr.Number == number {
			return &pr, nil
		}
	}
	return nil, nil
}

func (m *memPRStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prs)
}

// memJobStore mirrors the ledger rules of the SQL store and records every
// progress value it accepted.
type memJobStore struct {
	mu       sync.Mutex
	jobs     map[string]model.SyncJob
	progress []int
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: make(map[string]model.SyncJob)}
}

func (m *memJobStore) Create(_ context.Context, job model.SyncJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return fmt.Errorf("duplicate job %s", job.ID)
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *memJobStore) Get(_ context.Context, id string) (*model.SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("get sync job %s: %w", id, driven.ErrJobNotFound)
	}
	return &job, nil
}

func (m *memJobStore) ListByRepository(_ context.Context, repoID int64) ([]model.SyncJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SyncJob
	for _, job := range m.jobs {
		if job.RepositoryID == repoID {
			out = append(out, job)
		}
	}
	slices.SortFunc(out, func(a, b model.SyncJob) int { return b.StartedAt.Compare(a.StartedAt) })
	return out, nil
}

func (m *memJobStore) running(id string) (model.SyncJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return job, driven.ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return job, driven.ErrJobNotRunning
	}
	return job, nil
}

func (m *memJobStore) UpdateProgress(_ context.Context, id string, items int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, err := m.running(id)
	if err != nil {
		return err
	}
	if items >= job.ItemsProcessed {
		job.ItemsProcessed = items
		m.jobs[id] = job
		m.progress = append(m.progress, items)
	}
	return nil
}

func (m *memJobStore) Complete(_ context.Context, id string, items int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, err := m.running(id)
	if err != nil {
		return err
	}
	job.Status = model.JobStatusCompleted
	job.ItemsProcessed = max(job.ItemsProcessed, items)
	job.CompletedAt = &at
	m.jobs[id] = job
	return nil
}

func (m *memJobStore) Fail(_ context.Context, id string, message string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, err := m.running(id)
	if err != nil {
		return err
	}
	job.Status = model.JobStatusFailed
	job.Error = &message
	job.CompletedAt = &at
	m.jobs[id] = job
	return nil
}

func (m *memJobStore) progressHistory() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.progress)
}
