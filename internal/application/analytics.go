package application

import (
	"cmp"
	"slices"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/ericfisherdev/gitpulse/internal/domain/model"
)

const (
	trendDays           = 30
	topContributorLimit = 10
	trendDateLayout     = "2006-01-02"
)

// computeCommitStats sums the window and builds a trend of exactly trendDays
// points ending on now's calendar day in loc, oldest first.
func computeCommitStats(commits []model.Commit, now time.Time, loc *time.Location) model.CommitStats {
	var cs model.CommitStats
	cs.TotalCommits = len(commits)

	perDay := make(map[string]int)
	for _, c := range commits {
		cs.TotalAdditions += c.Additions
		cs.TotalDeletions += c.Deletions
		cs.TotalFilesChanged += c.FilesChanged
		perDay[c.AuthorDate.In(loc).Format(trendDateLayout)]++
	}

	if cs.TotalCommits > 0 {
		cs.AvgAdditionsPerCommit = roundRatio(cs.TotalAdditions, cs.TotalCommits)
		cs.AvgDeletionsPerCommit = roundRatio(cs.TotalDeletions, cs.TotalCommits)
	}

	local := now.In(loc)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	cs.Trend = make([]model.TrendPoint, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		// AddDate keeps calendar days intact across DST shifts.
		day := today.AddDate(0, 0, -i).Format(trendDateLayout)
		cs.Trend = append(cs.Trend, model.TrendPoint{Date: day, Count: perDay[day]})
	}

	return cs
}

// computePRStats counts pull requests by outcome. A PR is merged when its
// Merged flag is set; closed means closed without a merge.
func computePRStats(prs []model.PullRequest) model.PRStats {
	var ps model.PRStats
	ps.TotalPRs = len(prs)

	var mergeHours []float64
	for _, pr := range prs {
		switch {
		case pr.Merged:
			ps.MergedPRs++
		case pr.State == model.PRStateOpen:
			ps.OpenPRs++
		case pr.State == model.PRStateClosed:
			ps.ClosedPRs++
		}

		ps.TotalAdditions += pr.Additions
		ps.TotalDeletions += pr.Deletions

		if d, ok := pr.MergeDuration(); ok {
			mergeHours = append(mergeHours, d.Hours())
		}
	}

	if ps.TotalPRs > 0 {
		ps.MergeRate = roundRatio(ps.MergedPRs*100, ps.TotalPRs)
	}

	if mean, err := stats.Mean(mergeHours); err == nil {
		if rounded, err := stats.Round(mean, 0); err == nil {
			ps.AvgMergeTimeHours = int(rounded)
		}
	}

	return ps
}

// computeContributorStats groups commits by exact author name and ranks
// authors by commit count. Ties keep the order in which authors first appear.
func computeContributorStats(commits []model.Commit) model.ContributorStats {
	type entry struct {
		model.Contributor
		firstSeen int
	}

	byName := make(map[string]*entry)
	var order []*entry
	for _, c := range commits {
		e, ok := byName[c.Author]
		if !ok {
			e = &entry{Contributor: model.Contributor{Name: c.Author}, firstSeen: len(order)}
			byName[c.Author] = e
			order = append(order, e)
		}
		e.Commits++
		e.Additions += c.Additions
		e.Deletions += c.Deletions
	}

	slices.SortStableFunc(order, func(a, b *entry) int {
		if n := cmp.Compare(b.Commits, a.Commits); n != 0 {
			return n
		}
		return cmp.Compare(a.firstSeen, b.firstSeen)
	})

	top := make([]model.Contributor, 0, min(len(order), topContributorLimit))
	for _, e := range order[:min(len(order), topContributorLimit)] {
		top = append(top, e.Contributor)
	}

	return model.ContributorStats{
		TotalContributors: len(order),
		TopContributors:   top,
	}
}

// roundRatio returns num/den rounded half away from zero. den must be positive.
func roundRatio(num, den int) int {
	rounded, err := stats.Round(float64(num)/float64(den), 0)
	if err != nil {
		return 0
	}
	return int(rounded)
}
