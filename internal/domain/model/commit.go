package model

import "time"

// Commit is a replicated commit. SHA is the natural key and is unique across
// all repositories.
type Commit struct {
	SHA            string
	RepositoryID   int64
	Message        string
	Author         string
	AuthorEmail    string
	AuthorDate     time.Time
	Committer      string
	CommitterEmail string
	CommitterDate  time.Time
	Additions      int
	Deletions      int
	TotalChanges   int
	FilesChanged   int
	HTMLURL        string
}

// CommitDetail carries the line-level stats that only the single-commit
// endpoint returns. Used as a data transfer struct, not persisted separately.
type CommitDetail struct {
	Additions    int
	Deletions    int
	TotalChanges int
	FilesChanged int
}

// ApplyDetail copies detail stats onto the commit.
func (c *Commit) ApplyDetail(d CommitDetail) {
	c.Additions = d.Additions
	c.Deletions = d.Deletions
	c.TotalChanges = d.TotalChanges
	c.FilesChanged = d.FilesChanged
}
