package model

// Analytics is a transient model computed at query time from the replica.
// It is never persisted.
type Analytics struct {
	Repository       Repository
	CommitStats      CommitStats
	PRStats          PRStats
	ContributorStats ContributorStats
	RecentCommits    []Commit
	RecentPRs        []PullRequest
}

// CommitStats summarizes the commit window read by the aggregator.
type CommitStats struct {
	TotalCommits          int
	TotalAdditions        int
	TotalDeletions        int
	TotalFilesChanged     int
	AvgAdditionsPerCommit int
	AvgDeletionsPerCommit int
	Trend                 []TrendPoint
}

// TrendPoint is the commit count for one calendar day, formatted YYYY-MM-DD.
type TrendPoint struct {
	Date  string
	Count int
}

// PRStats summarizes every pull request stored for a repository.
type PRStats struct {
	TotalPRs          int
	OpenPRs           int
	ClosedPRs         int // closed without merge
	MergedPRs         int
	MergeRate         int // percent, 0-100
	TotalAdditions    int
	TotalDeletions    int
	AvgMergeTimeHours int
}

// ContributorStats groups the commit window by author display name.
type ContributorStats struct {
	TotalContributors int
	TopContributors   []Contributor
}

// Contributor is the per-author aggregate.
type Contributor struct {
	Name      string
	Commits   int
	Additions int
	Deletions int
}
