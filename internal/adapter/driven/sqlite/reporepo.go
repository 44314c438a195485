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
var _ driven.RepoStore = (*RepoRepo)(nil)

const repoColumns = `id, github_id, owner, name, full_name, description, private, html_url,
	clone_url, language, stars, forks, open_issues, created_at, updated_at, synced_at`

// RepoRepo is the SQLite implementation of the RepoStore port interface.
type RepoRepo struct {
	db *DB
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{db: db}
}

// Upsert inserts a repository or refreshes its descriptive fields, keyed on
// github_id. created_at is only written on insert. The stored row is read back
// from the writer connection so the caller sees its own write.
func (r *RepoRepo) Upsert(ctx context.Context, repo model.Repository) (*model.Repository, error) {
	const query = `
		INSERT INTO repositories (
			github_id, owner, name, full_name, description, private, html_url,
			clone_url, language, stars, forks, open_issues, created_at, updated_at, synced_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(github_id) DO UPDATE SET
			owner = excluded.owner,
			name = excluded.name,
			full_name = excluded.full_name,
			description = excluded.description,
			private = excluded.private,
			html_url = excluded.html_url,
			clone_url = excluded.clone_url,
			language = excluded.language,
			stars = excluded.stars,
			forks = excluded.forks,
			open_issues = excluded.open_issues,
			updated_at = excluded.updated_at,
			synced_at = excluded.synced_at
		RETURNING id
	`

	var id int64
	err := r.db.Writer.QueryRowContext(ctx, query,
		repo.GitHubID, repo.Owner, repo.Name, repo.FullName, repo.Description,
		boolToInt(repo.Private), repo.HTMLURL, repo.CloneURL, repo.Language,
		repo.Stars, repo.Forks, repo.OpenIssues,
		formatTime(repo.CreatedAt), formatTime(repo.UpdatedAt), formatTime(repo.SyncedAt),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("upsert repository %s: %w", repo.FullName, err)
	}

	stored, err := scanRepository(r.db.Writer.QueryRowContext(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("read back repository %s: %w", repo.FullName, err)
	}

	return stored, nil
}

// GetByID retrieves a repository by its local id. Returns ErrRepoNotFound if
// the repository does not exist.
func (r *RepoRepo) GetByID(ctx context.Context, id int64) (*model.Repository, error) {
	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get repository %d: %w", id, driven.ErrRepoNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %d: %w", id, err)
	}

	return repo, nil
}

// GetByFullName retrieves a repository by its owner/name. Returns nil, nil if
// the repository does not exist.
func (r *RepoRepo) GetByFullName(ctx context.Context, fullName string) (*model.Repository, error) {
	repo, err := scanRepository(r.db.Reader.QueryRowContext(ctx,
		`SELECT `+repoColumns+` FROM repositories WHERE full_name = ? ORDER BY synced_at DESC LIMIT 1`, fullName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", fullName, err)
	}

	return repo, nil
}

// ListAll returns all replicated repositories ordered by full name.
func (r *RepoRepo) ListAll(ctx context.Context) ([]model.Repository, error) {
	rows, err := r.db.Reader.QueryContext(ctx, `SELECT `+repoColumns+` FROM repositories ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

func scanRepository(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var private int
	var createdAt, updatedAt, syncedAt string

	err := s.Scan(
		&repo.ID, &repo.GitHubID, &repo.Owner, &repo.Name, &repo.FullName, &repo.Description,
		&private, &repo.HTMLURL, &repo.CloneURL, &repo.Language,
		&repo.Stars, &repo.Forks, &repo.OpenIssues, &createdAt, &updatedAt, &syncedAt,
	)
	if err != nil {
		return nil, err
	}

	repo.Private = private != 0

	if repo.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if repo.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if repo.SyncedAt, err = parseTime(syncedAt); err != nil {
		return nil, fmt.Errorf("parse synced_at: %w", err)
	}

	return &repo, nil
}
