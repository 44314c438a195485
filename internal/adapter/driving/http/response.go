package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// SyncRequest is the body of POST /api/v1/sync.
type SyncRequest struct {
	Token string `json:"token"`
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
}

// SyncStartedResponse is returned once both workers are running.
type SyncStartedResponse struct {
	Message      string `json:"message"`
	RepositoryID int64  `json:"repository_id"`
	JobID        string `json:"job_id"`
}

// SyncJobResponse is the JSON representation of a ledger entry.
type SyncJobResponse struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	RepositoryID   int64   `json:"repository_id"`
	Status         string  `json:"status"`
	ItemsProcessed int     `json:"items_processed"`
	StartedAt      string  `json:"started_at"`
	CompletedAt    *string `json:"completed_at"`
	Error          *string `json:"error"`
}

// RepoResponse is the JSON representation of a replicated repository.
type RepoResponse struct {
	ID          int64  `json:"id"`
	GitHubID    int64  `json:"github_id"`
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	HTMLURL     string `json:"html_url"`
	CloneURL    string `json:"clone_url"`
	Language    string `json:"language"`
	Stars       int    `json:"stars"`
	Forks       int    `json:"forks"`
	OpenIssues  int    `json:"open_issues"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
	SyncedAt    string `json:"synced_at"`
}

// CommitResponse is the JSON representation of a replicated commit.
type CommitResponse struct {
	SHA            string `json:"sha"`
	Message        string `json:"message"`
	Author         string `json:"author"`
	AuthorEmail    string `json:"author_email"`
	AuthorDate     string `json:"author_date"`
	Committer      string `json:"committer"`
	CommitterEmail string `json:"committer_email"`
	CommitterDate  string `json:"committer_date"`
	Additions      int    `json:"additions"`
	Deletions      int    `json:"deletions"`
	TotalChanges   int    `json:"total_changes"`
	FilesChanged   int    `json:"files_changed"`
	HTMLURL        string `json:"html_url"`
}

// PRResponse is the JSON representation of a replicated pull request.
type PRResponse struct {
	GitHubID       int64   `json:"github_id"`
	Number         int     `json:"number"`
	Title          string  `json:"title"`
	State          string  `json:"state"`
	Author         string  `json:"author"`
	HTMLURL        string  `json:"html_url"`
	Merged         bool    `json:"merged"`
	Draft          bool    `json:"draft"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	ClosedAt       *string `json:"closed_at"`
	MergedAt       *string `json:"merged_at"`
	Additions      int     `json:"additions"`
	Deletions      int     `json:"deletions"`
	ChangedFiles   int     `json:"changed_files"`
	Comments       int     `json:"comments"`
	ReviewComments int     `json:"review_comments"`
	Commits        int     `json:"commits"`
}

// CommitStatsResponse holds the commit aggregates and the daily trend.
type CommitStatsResponse struct {
	TotalCommits          int                  `json:"total_commits"`
	TotalAdditions        int                  `json:"total_additions"`
	TotalDeletions        int                  `json:"total_deletions"`
	TotalFilesChanged     int                  `json:"total_files_changed"`
	AvgAdditionsPerCommit int                  `json:"avg_additions_per_commit"`
	AvgDeletionsPerCommit int                  `json:"avg_deletions_per_commit"`
	CommitTrend           []TrendPointResponse `json:"commit_trend"`
}

// TrendPointResponse is one day of the commit trend.
type TrendPointResponse struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// PRStatsResponse holds the pull request aggregates.
type PRStatsResponse struct {
	TotalPRs          int `json:"total_prs"`
	OpenPRs           int `json:"open_prs"`
	ClosedPRs         int `json:"closed_prs"`
	MergedPRs         int `json:"merged_prs"`
	MergeRate         int `json:"merge_rate"`
	TotalAdditions    int `json:"total_additions"`
	TotalDeletions    int `json:"total_deletions"`
	AvgMergeTimeHours int `json:"avg_merge_time_hours"`
}

// ContributorResponse is one entry of the contributor ranking.
type ContributorResponse struct {
	Name      string `json:"name"`
	Commits   int    `json:"commits"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// ContributorStatsResponse holds the contributor ranking.
type ContributorStatsResponse struct {
	TotalContributors int                   `json:"total_contributors"`
	TopContributors   []ContributorResponse `json:"top_contributors"`
}

// AnalyticsResponse is the body of GET /api/v1/analytics.
type AnalyticsResponse struct {
	Repository       RepoResponse             `json:"repository"`
	CommitStats      CommitStatsResponse      `json:"commit_stats"`
	PRStats          PRStatsResponse          `json:"pr_stats"`
	ContributorStats ContributorStatsResponse `json:"contributor_stats"`
	RecentCommits    []CommitResponse         `json:"recent_commits"`
	RecentPRs        []PRResponse             `json:"recent_prs"`
}

// HealthResponse is the JSON representation of the health check.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatNullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toSyncJobResponse(job model.SyncJob) SyncJobResponse {
	return SyncJobResponse{
		ID:             job.ID,
		Kind:           string(job.Kind),
		RepositoryID:   job.RepositoryID,
		Status:         string(job.Status),
		ItemsProcessed: job.ItemsProcessed,
		StartedAt:      formatTime(job.StartedAt),
		CompletedAt:    formatNullTime(job.CompletedAt),
		Error:          job.Error,
	}
}

func toRepoResponse(repo model.Repository) RepoResponse {
	return RepoResponse{
		ID:          repo.ID,
		GitHubID:    repo.GitHubID,
		Owner:       repo.Owner,
		Name:        repo.Name,
		FullName:    repo.FullName,
		Description: repo.Description,
		Private:     repo.Private,
		HTMLURL:     repo.HTMLURL,
		CloneURL:    repo.CloneURL,
		Language:    repo.Language,
		Stars:       repo.Stars,
		Forks:       repo.Forks,
		OpenIssues:  repo.OpenIssues,
		CreatedAt:   formatTime(repo.CreatedAt),
		UpdatedAt:   formatTime(repo.UpdatedAt),
		SyncedAt:    formatTime(repo.SyncedAt),
	}
}

func toCommitResponse(c model.Commit) CommitResponse {
	return CommitResponse{
		SHA:            c.SHA,
		Message:        c.Message,
		Author:         c.Author,
		AuthorEmail:    c.AuthorEmail,
		AuthorDate:     formatTime(c.AuthorDate),
		Committer:      c.Committer,
		CommitterEmail: c.CommitterEmail,
		CommitterDate:  formatTime(c.CommitterDate),
		Additions:      c.Additions,
		Deletions:      c.Deletions,
		TotalChanges:   c.TotalChanges,
		FilesChanged:   c.FilesChanged,
		HTMLURL:        c.HTMLURL,
	}
}

func toPRResponse(pr model.PullRequest) PRResponse {
	return PRResponse{
		GitHubID:       pr.GitHubID,
		Number:         pr.Number,
		Title:          pr.Title,
		State:          string(pr.State),
		Author:         pr.Author,
		HTMLURL:        pr.HTMLURL,
		Merged:         pr.Merged,
		Draft:          pr.Draft,
		CreatedAt:      formatTime(pr.CreatedAt),
		UpdatedAt:      formatTime(pr.UpdatedAt),
		ClosedAt:       formatNullTime(pr.ClosedAt),
		MergedAt:       formatNullTime(pr.MergedAt),
		Additions:      pr.Additions,
		Deletions:      pr.Deletions,
		ChangedFiles:   pr.ChangedFiles,
		Comments:       pr.Comments,
		ReviewComments: pr.ReviewComments,
		Commits:        pr.Commits,
	}
}

func toAnalyticsResponse(a model.Analytics) AnalyticsResponse {
	trend := make([]TrendPointResponse, 0, len(a.CommitStats.Trend))
	for _, p := range a.CommitStats.Trend {
		trend = append(trend, TrendPointResponse{Date: p.Date, Count: p.Count})
	}

	contributors := make([]ContributorResponse, 0, len(a.ContributorStats.TopContributors))
	for _, c := range a.ContributorStats.TopContributors {
		contributors = append(contributors, ContributorResponse{
			Name:      c.Name,
			Commits:   c.Commits,
			Additions: c.Additions,
			Deletions: c.Deletions,
		})
	}

	commits := make([]CommitResponse, 0, len(a.RecentCommits))
	for _, c := range a.RecentCommits {
		commits = append(commits, toCommitResponse(c))
	}

	prs := make([]PRResponse, 0, len(a.RecentPRs))
	for _, pr := range a.RecentPRs {
		prs = append(prs, toPRResponse(pr))
	}

	cs := a.CommitStats
	ps := a.PRStats

	return AnalyticsResponse{
		Repository: toRepoResponse(a.Repository),
		CommitStats: CommitStatsResponse{
			TotalCommits:          cs.TotalCommits,
			TotalAdditions:        cs.TotalAdditions,
			TotalDeletions:        cs.TotalDeletions,
			TotalFilesChanged:     cs.TotalFilesChanged,
			AvgAdditionsPerCommit: cs.AvgAdditionsPerCommit,
			AvgDeletionsPerCommit: cs.AvgDeletionsPerCommit,
			CommitTrend:           trend,
		},
		PRStats: PRStatsResponse{
			TotalPRs:          ps.TotalPRs,
			OpenPRs:           ps.OpenPRs,
			ClosedPRs:         ps.ClosedPRs,
			MergedPRs:         ps.MergedPRs,
			MergeRate:         ps.MergeRate,
			TotalAdditions:    ps.TotalAdditions,
			TotalDeletions:    ps.TotalDeletions,
			AvgMergeTimeHours: ps.AvgMergeTimeHours,
		},
		ContributorStats: ContributorStatsResponse{
			TotalContributors: a.ContributorStats.TotalContributors,
			TopContributors:   contributors,
		},
		RecentCommits: commits,
		RecentPRs:     prs,
	}
}
