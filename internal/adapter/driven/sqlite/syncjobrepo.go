package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
	"github.com/ericfisherdev/gitpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SyncJobStore = (*SyncJobRepo)(nil)

const jobColumns = `id, kind, repository_id, status, items_processed, started_at, completed_at, error`

// SyncJobRepo is the SQLite implementation of the SyncJobStore port interface.
// Every mutation is guarded by status = 'running' in SQL, so terminal jobs are
// never reopened or rewritten.
type SyncJobRepo struct {
	db *DB
}

// NewSyncJobRepo creates a new SyncJobRepo backed by the given DB.
func NewSyncJobRepo(db *DB) *SyncJobRepo {
	return &SyncJobRepo{db: db}
}

// Create inserts a new ledger entry.
func (r *SyncJobRepo) Create(ctx context.Context, job model.SyncJob) error {
	const query = `INSERT INTO sync_jobs (` + jobColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var errMsg any
	if job.Error != nil {
		errMsg = *job.Error
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		job.ID, string(job.Kind), job.RepositoryID, string(job.Status), job.ItemsProcessed,
		formatTime(job.StartedAt), formatNullTime(job.CompletedAt), errMsg,
	)
	if err != nil {
		return fmt.Errorf("create sync job %s: %w", job.ID, err)
	}

	return nil
}

// Get retrieves a job by id. Returns ErrJobNotFound if it does not exist.
func (r *SyncJobRepo) Get(ctx context.Context, id string) (*model.SyncJob, error) {
	return r.get(ctx, r.db.Reader, id)
}

// ListByRepository returns the ledger history for a repository, newest first.
func (r *SyncJobRepo) ListByRepository(ctx context.Context, repoID int64) ([]model.SyncJob, error) {
	const query = `SELECT ` + jobColumns + ` FROM sync_jobs WHERE repository_id = ? ORDER BY started_at DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("query sync jobs for repository %d: %w", repoID, err)
	}
	defer rows.Close()

	var jobs []model.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync job: %w", err)
		}
		jobs = append(jobs, *job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync jobs: %w", err)
	}

	return jobs, nil
}

// UpdateProgress raises items_processed on a running job. A value lower than
// the stored one is ignored so the counter never decreases.
func (r *SyncJobRepo) UpdateProgress(ctx context.Context, id string, itemsProcessed int) error {
	const query = `
		UPDATE sync_jobs SET items_processed = ?
		WHERE id = ? AND status = 'running' AND items_processed <= ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query, itemsProcessed, id, itemsProcessed)
	if err != nil {
		return fmt.Errorf("update progress for sync job %s: %w", id, err)
	}

	return r.checkApplied(ctx, result, id, true)
}

// Complete moves a running job to completed.
func (r *SyncJobRepo) Complete(ctx context.Context, id string, itemsProcessed int, at time.Time) error {
	const query = `
		UPDATE sync_jobs
		SET status = 'completed', items_processed = MAX(items_processed, ?), completed_at = ?
		WHERE id = ? AND status = 'running'
	`

	result, err := r.db.Writer.ExecContext(ctx, query, itemsProcessed, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("complete sync job %s: %w", id, err)
	}

	return r.checkApplied(ctx, result, id, false)
}

// Fail moves a running job to failed and records the error message.
func (r *SyncJobRepo) Fail(ctx context.Context, id string, message string, at time.Time) error {
	const query = `
		UPDATE sync_jobs
		SET status = 'failed', error = ?, completed_at = ?
		WHERE id = ? AND status = 'running'
	`

	result, err := r.db.Writer.ExecContext(ctx, query, message, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("fail sync job %s: %w", id, err)
	}

	return r.checkApplied(ctx, result, id, false)
}

// checkApplied explains a zero-row update: the job is missing, already
// terminal, or (for progress writes only) the new value was lower.
func (r *SyncJobRepo) checkApplied(ctx context.Context, result sql.Result, id string, progress bool) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	job, err := r.get(ctx, r.db.Writer, id)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return fmt.Errorf("sync job %s is %s: %w", id, job.Status, driven.ErrJobNotRunning)
	}
	if progress {
		return nil
	}
	return fmt.Errorf("sync job %s not updated", id)
}

func (r *SyncJobRepo) get(ctx context.Context, conn *sql.DB, id string) (*model.SyncJob, error) {
	const query = `SELECT ` + jobColumns + ` FROM sync_jobs WHERE id = ?`

	job, err := scanSyncJob(conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get sync job %s: %w", id, driven.ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get sync job %s: %w", id, err)
	}

	return job, nil
}

func scanSyncJob(s scanner) (*model.SyncJob, error) {
	var job model.SyncJob
	var kind, status, startedAt string
	var completedAt, errMsg sql.NullString

	err := s.Scan(&job.ID, &kind, &job.RepositoryID, &status, &job.ItemsProcessed, &startedAt, &completedAt, &errMsg)
	if err != nil {
		return nil, err
	}

	job.Kind = model.JobKind(kind)
	job.Status = model.JobStatus(status)

	if job.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if job.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	if errMsg.Valid {
		job.Error = &errMsg.String
	}

	return &job, nil
}
