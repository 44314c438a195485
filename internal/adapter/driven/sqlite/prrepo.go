package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PRStore = (*PRRepo)(nil)

const prColumns = `github_id, repository_id, number, title, body, state, author, html_url,
	created_at, updated_at, closed_at, merged_at, merged, draft,
	additions, deletions, changed_files, comments, review_comments, commits, synced_at`

// PRRepo is the SQLite implementation of the PRStore port interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

// Upsert inserts or refreshes a pull request keyed by its upstream id.
// Nullable timestamps are written as NULL when absent.
func (r *PRRepo) Upsert(ctx context.Context, pr model.PullRequest) error {
	const query = `
		INSERT INTO pull_requests (` + prColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(github_id) DO UPDATE SET
			number = excluded.number,
			title = excluded.title,
			body = excluded.body,
			state = excluded.state,
			author = excluded.author,
			html_url = excluded.html_url,
			updated_at = excluded.updated_at,
			closed_at = excluded.closed_at,
			merged_at = excluded.merged_at,
			merged = excluded.merged,
			draft = excluded.draft,
			additions = excluded.additions,
			deletions = excluded.deletions,
			changed_files = excluded.changed_files,
			comments = excluded.comments,
			review_comments = excluded.review_comments,
			commits = excluded.commits,
			synced_at = excluded.synced_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		pr.GitHubID, pr.RepositoryID, pr.Number, pr.Title, pr.Body, string(pr.State), pr.Author, pr.HTMLURL,
		formatTime(pr.CreatedAt), formatTime(pr.UpdatedAt), formatNullTime(pr.ClosedAt), formatNullTime(pr.MergedAt),
		boolToInt(pr.Merged), boolToInt(pr.Draft),
		pr.Additions, pr.Deletions, pr.ChangedFiles, pr.Comments, pr.ReviewComments, pr.Commits,
		formatTime(pr.SyncedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert pull request #%d (id %d): %w", pr.Number, pr.GitHubID, err)
	}

	return nil
}

// GetByRepository returns all pull requests for the repository, newest created first.
func (r *PRRepo) GetByRepository(ctx context.Context, repoID int64) ([]model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE repository_id = ? ORDER BY created_at DESC, github_id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("query pull requests for repository %d: %w", repoID, err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

// GetByNumber retrieves a single pull request by repository and number.
// Returns nil, nil if the pull request does not exist.
func (r *PRRepo) GetByNumber(ctx context.Context, repoID int64, number int) (*model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE repository_id = ? AND number = ?`

	pr, err := scanPR(r.db.Reader.QueryRowContext(ctx, query, repoID, number))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get PR %d#%d: %w", repoID, number, err)
	}

	return pr, nil
}

func scanPR(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var state string
	var merged, draft int
	var createdAt, updatedAt, syncedAt string
	var closedAt, mergedAt sql.NullString

	err := s.Scan(
		&pr.GitHubID, &pr.RepositoryID, &pr.Number, &pr.Title, &pr.Body, &state, &pr.Author, &pr.HTMLURL,
		&createdAt, &updatedAt, &closedAt, &mergedAt, &merged, &draft,
		&pr.Additions, &pr.Deletions, &pr.ChangedFiles, &pr.Comments, &pr.ReviewComments, &pr.Commits,
		&syncedAt,
	)
	if err != nil {
		return nil, err
	}

	pr.State = model.PRState(state)
	pr.Merged = merged != 0
	pr.Draft = draft != 0

	if pr.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if pr.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if pr.SyncedAt, err = parseTime(syncedAt); err != nil {
		return nil, fmt.Errorf("parse synced_at: %w", err)
	}
	if pr.ClosedAt, err = parseNullTime(closedAt); err != nil {
		return nil, fmt.Errorf("parse closed_at: %w", err)
	}
	if pr.MergedAt, err = parseNullTime(mergedAt); err != nil {
		return nil, fmt.Errorf("parse merged_at: %w", err)
	}

	return &pr, nil
}
