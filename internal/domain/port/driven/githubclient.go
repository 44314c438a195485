package driven

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

// Sentinel errors surfaced by GitHubClient implementations.
var (
	// ErrNotFound indicates the upstream resource does not exist or is not visible
	// to the credential.
	ErrNotFound = errors.New("upstream resource not found")

	// ErrUnauthorized indicates the credential was rejected.
	ErrUnauthorized = errors.New("upstream credential rejected")

	// ErrRateLimited indicates the upstream rate limit is exhausted.
	ErrRateLimited = errors.New("upstream rate limit exceeded")
)

// RateLimitError carries the reset-time hint of a rate-limited response.
// It unwraps to ErrRateLimited.
type RateLimitError struct {
	ResetAt time.Time
	Err     error
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return fmt.Sprintf("%s: %v", ErrRateLimited, e.Err)
	}
	return fmt.Sprintf("%s, resets at %s: %v", ErrRateLimited, e.ResetAt.Format(time.RFC3339), e.Err)
}

// Unwrap lets errors.Is match ErrRateLimited.
func (e *RateLimitError) Unwrap() []error {
	return []error{ErrRateLimited, e.Err}
}

// GitHubClient defines the driven port for reading from the GitHub API.
// Page numbers start at 1; an empty page means there are no further pages.
type GitHubClient interface {
	FetchRepository(ctx context.Context, owner, name string) (*model.Repository, error)
	FetchCommitPage(ctx context.Context, owner, name string, page, perPage int) ([]model.Commit, error)
	// FetchCommitDetail returns the line-level stats and file count for a
	// single commit; the list endpoint does not include them.
	FetchCommitDetail(ctx context.Context, owner, name, sha string) (*model.CommitDetail, error)
	// FetchPullRequestPage lists pull requests in every state, most recently
	// updated first.
	FetchPullRequestPage(ctx context.Context, owner, name string, page, perPage int) ([]model.PullRequest, error)
}

// GitHubClientFactory builds a GitHubClient bound to a caller-supplied
// credential. Each sync invocation gets its own client.
type GitHubClientFactory interface {
	NewClient(credential string) GitHubClient
}
