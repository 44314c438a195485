package model

import "time"

// Repository is the local replica of an upstream GitHub repository.
// GitHubID is the immutable natural key; ID is the local surrogate key.
type Repository struct {
	ID          int64
	GitHubID    int64
	Owner       string
	Name        string
	FullName    string
	Description string
	Private     bool
	HTMLURL     string
	CloneURL    string
	Language    string
	Stars       int
	Forks       int
	OpenIssues  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	SyncedAt    time.Time
}
