package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CommitStore = (*CommitRepo)(nil)

// CommitRepo is the SQLite implementation of the CommitStore port interface.
type CommitRepo struct {
	db *DB
}

// NewCommitRepo creates a new CommitRepo backed by the given DB.
func NewCommitRepo(db *DB) *CommitRepo {
	return &CommitRepo{db: db}
}

// Upsert inserts or refreshes a commit keyed by SHA. The owning repository is
// fixed on first insert.
func (r *CommitRepo) Upsert(ctx context.Context, c model.Commit) error {
	const query = `
		INSERT INTO commits (
			sha, repository_id, message, author, author_email, author_date,
			committer, committer_email, committer_date,
			additions, deletions, total_changes, files_changed, html_url
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(sha) DO UPDATE SET
			message = excluded.message,
			author = excluded.author,
			author_email = excluded.author_email,
			author_date = excluded.author_date,
			committer = excluded.committer,
			committer_email = excluded.committer_email,
			committer_date = excluded.committer_date,
			additions = excluded.additions,
			deletions = excluded.deletions,
			total_changes = excluded.total_changes,
			files_changed = excluded.files_changed,
			html_url = excluded.html_url
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		c.SHA, c.RepositoryID, c.Message, c.Author, c.AuthorEmail, formatTime(c.AuthorDate),
		c.Committer, c.CommitterEmail, formatTime(c.CommitterDate),
		c.Additions, c.Deletions, c.TotalChanges, c.FilesChanged, c.HTMLURL,
	)
	if err != nil {
		return fmt.Errorf("upsert commit %s: %w", c.SHA, err)
	}

	return nil
}

// ListRecent returns up to limit commits for the repository, newest author
// date first.
func (r *CommitRepo) ListRecent(ctx context.Context, repoID int64, limit int) ([]model.Commit, error) {
	const query = `
		SELECT sha, repository_id, message, author, author_email, author_date,
		       committer, committer_email, committer_date,
		       additions, deletions, total_changes, files_changed, html_url
		FROM commits
		WHERE repository_id = ?
		ORDER BY author_date DESC, sha
		LIMIT ?
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoID, limit)
	if err != nil {
		return nil, fmt.Errorf("query commits for repository %d: %w", repoID, err)
	}
	defer rows.Close()

	var commits []model.Commit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		commits = append(commits, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commits: %w", err)
	}

	return commits, nil
}

// CountByRepository returns the number of stored commits for the repository.
func (r *CommitRepo) CountByRepository(ctx context.Context, repoID int64) (int, error) {
	var n int
	err := r.db.Reader.QueryRowContext(ctx, `SELECT COUNT(*) FROM commits WHERE repository_id = ?`, repoID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count commits for repository %d: %w", repoID, err)
	}
	return n, nil
}

func scanCommit(s scanner) (*model.Commit, error) {
	var c model.Commit
	var authorDate, committerDate string

	err := s.Scan(
		&c.SHA, &c.RepositoryID, &c.Message, &c.Author, &c.AuthorEmail, &authorDate,
		&c.Committer, &c.CommitterEmail, &committerDate,
		&c.Additions, &c.Deletions, &c.TotalChanges, &c.FilesChanged, &c.HTMLURL,
	)
	if err != nil {
		return nil, err
	}

	if c.AuthorDate, err = parseTime(authorDate); err != nil {
		return nil, fmt.Errorf("parse author_date: %w", err)
	}
	if c.CommitterDate, err = parseTime(committerDate); err != nil {
		return nil, fmt.Errorf("parse committer_date: %w", err)
	}

	return &c, nil
}
