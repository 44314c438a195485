package model

import "time"

// PullRequest is a replicated pull request. GitHubID is the natural key;
// Number is only unique within a repository.
type PullRequest struct {
	GitHubID       int64
	RepositoryID   int64
	Number         int
	Title          string
	Body           string
	State          PRState
	Author         string
	HTMLURL        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time
	MergedAt       *time.Time
	Merged         bool
	Draft          bool
	Additions      int
	Deletions      int
	ChangedFiles   int
	Comments       int
	ReviewComments int
	Commits        int
	SyncedAt       time.Time
}

// MergeDuration returns the time from creation to merge. ok is false when the
// PR is not merged or has no merge timestamp.
func (pr PullRequest) MergeDuration() (d time.Duration, ok bool) {
	if !pr.Merged || pr.MergedAt == nil {
		return 0, false
	}
	return pr.MergedAt.Sub(pr.CreatedAt), true
}
