package model

// PRState is the upstream lifecycle state of a pull request. Merged pull
// requests report PRStateClosed; merge status lives in PullRequest.Merged.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateClosed PRState = "closed"
)

// JobStatus represents the lifecycle of a sync job. Transitions are one-way:
// running -> completed or running -> failed.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// IsTerminal reports whether the status can no longer change.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobKind identifies what a sync job covers.
type JobKind string

const (
	JobKindFull JobKind = "full"
)
