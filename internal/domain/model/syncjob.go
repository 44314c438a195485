package model

import "time"

// SyncJob is the ledger entry for a single sync invocation. It is created in
// JobStatusRunning and finalized once by the commit worker.
type SyncJob struct {
	ID             string
	Kind           JobKind
	RepositoryID   int64
	Status         JobStatus
	ItemsProcessed int
	StartedAt      time.Time
	CompletedAt    *time.Time
	Error          *string
}
