// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github library.
// A Client is bound to one credential.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. pacing (optional token bucket, enabled when rps > 0)
//  2. httpcache (ETag-based conditional request caching)
//  3. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  4. go-github (GitHub REST API client with PAT auth)
//
// An empty baseURL targets api.github.com; anything else is treated as a
// GitHub Enterprise Server API root.
func NewClient(token, baseURL string, rps float64) (*Client, error) {
	var transport http.RoundTripper = http.DefaultTransport
	if rps > 0 {
		transport = newPacedTransport(transport, rps)
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	cacheTransport.Transport = transport
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configure enterprise URL %q: %w", baseURL, err)
		}
	}

	return &Client{gh: client}, nil
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// FetchRepository retrieves repository metadata.
func (c *Client) FetchRepository(ctx context.Context, owner, name string) (*model.Repository, error) {
	repo, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("fetching repository %s/%s: %w", owner, name, wrapErr(err))
	}

	logRateLimit(resp, owner+"/"+name, 0, 1)

	mapped := mapRepository(repo)
	return &mapped, nil
}

// FetchCommitPage retrieves one page of commit summaries. Summaries carry no
// line stats; callers enrich them with FetchCommitDetail.
func (c *Client) FetchCommitPage(ctx context.Context, owner, name string, page, perPage int) ([]model.Commit, error) {
	opts := &gh.CommitsListOptions{
		ListOptions: gh.ListOptions{Page: page, PerPage: perPage},
	}

	commits, resp, err := c.gh.Repositories.ListCommits(ctx, owner, name, opts)
	if err != nil {
		return nil, fmt.Errorf("listing commits for %s/%s (page %d): %w", owner, name, page, wrapErr(err))
	}

	logRateLimit(resp, owner+"/"+name+"/commits", page, len(commits))

	result := make([]model.Commit, 0, len(commits))
	for _, rc := range commits {
		result = append(result, mapCommit(rc))
	}

	return result, nil
}

// FetchCommitDetail returns stats and the changed-file count for one commit.
func (c *Client) FetchCommitDetail(ctx context.Context, owner, name, sha string) (*model.CommitDetail, error) {
	rc, resp, err := c.gh.Repositories.GetCommit(ctx, owner, name, sha, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching commit %s for %s/%s: %w", sha, owner, name, wrapErr(err))
	}

	logRateLimit(resp, owner+"/"+name+"/commit", 0, 1)

	stats := rc.GetStats()
	return &model.CommitDetail{
		Additions:    stats.GetAdditions(),
		Deletions:    stats.GetDeletions(),
		TotalChanges: stats.GetTotal(),
		FilesChanged: len(rc.Files),
	}, nil
}

// FetchPullRequestPage retrieves one page of pull requests in every state,
// most recently updated first.
func (c *Client) FetchPullRequestPage(ctx context.Context, owner, name string, page, perPage int) ([]model.PullRequest, error) {
	opts := &gh.PullRequestListOptions{
		State:     "all",
		Sort:      "updated",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			Page:    page,
			PerPage: perPage,
		},
	}

	prs, resp, err := c.gh.PullRequests.List(ctx, owner, name, opts)
	if err != nil {
		return nil, fmt.Errorf("listing pull requests for %s/%s (page %d): %w", owner, name, page, wrapErr(err))
	}

	logRateLimit(resp, owner+"/"+name+"/pulls", page, len(prs))

	result := make([]model.PullRequest, 0, len(prs))
	for _, pr := range prs {
		result = append(result, mapPullRequest(pr))
	}

	return result, nil
}

// wrapErr translates go-github errors into the port's sentinel errors.
// Unrecognized errors are returned unchanged.
func wrapErr(err error) error {
	var rateErr *gh.RateLimitError
	if errors.As(err, &rateErr) {
		return &driven.RateLimitError{ResetAt: rateErr.Rate.Reset.Time, Err: err}
	}

	var abuseErr *gh.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		var resetAt time.Time
		if abuseErr.RetryAfter != nil {
			resetAt = time.Now().Add(*abuseErr.RetryAfter)
		}
		return &driven.RateLimitError{ResetAt: resetAt, Err: err}
	}

	var respErr *gh.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", driven.ErrNotFound, err)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", driven.ErrUnauthorized, err)
		case http.StatusTooManyRequests:
			return &driven.RateLimitError{Err: err}
		}
	}

	return err
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"cached", resp.Header.Get(httpcache.XFromCache) != "",
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapRepository converts a go-github Repository to a domain model Repository.
// SyncedAt and the local ID are assigned by the caller.
func mapRepository(r *gh.Repository) model.Repository {
	return model.Repository{
		GitHubID:    r.GetID(),
		Owner:       r.GetOwner().GetLogin(),
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		Private:     r.GetPrivate(),
		HTMLURL:     r.GetHTMLURL(),
		CloneURL:    r.GetCloneURL(),
		Language:    r.GetLanguage(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		OpenIssues:  r.GetOpenIssuesCount(),
		CreatedAt:   r.GetCreatedAt().Time,
		UpdatedAt:   r.GetUpdatedAt().Time,
	}
}

// mapCommit converts a go-github RepositoryCommit summary to a domain model Commit.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapCommit(rc *gh.RepositoryCommit) model.Commit {
	inner := rc.GetCommit()
	author := inner.GetAuthor()
	committer := inner.GetCommitter()

	return model.Commit{
		SHA:            rc.GetSHA(),
		Message:        inner.GetMessage(),
		Author:         author.GetName(),
		AuthorEmail:    author.GetEmail(),
		AuthorDate:     author.GetDate().Time,
		Committer:      committer.GetName(),
		CommitterEmail: committer.GetEmail(),
		CommitterDate:  committer.GetDate().Time,
		HTMLURL:        rc.GetHTMLURL(),
	}
}

// mapPullRequest converts a go-github PullRequest to a domain model PullRequest.
// A PR counts as merged when the API says so or a merge timestamp is present;
// list responses omit the merged flag.
func mapPullRequest(pr *gh.PullRequest) model.PullRequest {
	state := model.PRStateOpen
	if pr.GetState() == "closed" {
		state = model.PRStateClosed
	}

	var closedAt, mergedAt *time.Time
	if pr.ClosedAt != nil {
		t := pr.GetClosedAt().Time
		closedAt = &t
	}
	if pr.MergedAt != nil {
		t := pr.GetMergedAt().Time
		mergedAt = &t
	}

	return model.PullRequest{
		GitHubID:       pr.GetID(),
		Number:         pr.GetNumber(),
		Title:          pr.GetTitle(),
		Body:           pr.GetBody(),
		State:          state,
		Author:         pr.GetUser().GetLogin(),
		HTMLURL:        pr.GetHTMLURL(),
		CreatedAt:      pr.GetCreatedAt().Time,
		UpdatedAt:      pr.GetUpdatedAt().Time,
		ClosedAt:       closedAt,
		MergedAt:       mergedAt,
		Merged:         pr.GetMerged() || mergedAt != nil,
		Draft:          pr.GetDraft(),
		Additions:      pr.GetAdditions(),
		Deletions:      pr.GetDeletions(),
		ChangedFiles:   pr.GetChangedFiles(),
		Comments:       pr.GetComments(),
		ReviewComments: pr.GetReviewComments(),
		Commits:        pr.GetCommits(),
	}
}
