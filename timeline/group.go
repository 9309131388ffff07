package timeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/f0rbit/timeline/normalize"
)

type commitKey struct {
	repo   string
	branch string
	day    string
}

// groupCommits groups same-(repo,branch,day) commit items into
// CommitGroups, leaving every non-commit item untouched, per §4.5. Order
// of emitted entries preserves the first-appearance order of each
// group's first member interleaved with passthrough items.
func groupCommits(items []normalize.TimelineItem) []any {
	out := make([]any, 0, len(items))
	groupIndex := make(map[commitKey]int) // commitKey -> index into out

	for _, item := range items {
		if item.Type != normalize.TypeCommit {
			out = append(out, item)
			continue
		}
		payload, _ := item.Payload.(normalize.CommitPayload)
		day := item.Timestamp.UTC().Format("2006-01-02")
		key := commitKey{repo: payload.Repo, branch: payload.Branch, day: day}

		if idx, ok := groupIndex[key]; ok {
			group := out[idx].(*CommitGroup)
			group.Commits = append(group.Commits, item)
			group.TotalAdditions += payload.Additions
			group.TotalDeletions += payload.Deletions
			group.TotalFilesChanged += payload.FilesChanged
			continue
		}

		group := &CommitGroup{
			Type:              "commit_group",
			Repo:              payload.Repo,
			Branch:            payload.Branch,
			Date:              day,
			Commits:           []normalize.TimelineItem{item},
			TotalAdditions:    payload.Additions,
			TotalDeletions:    payload.Deletions,
			TotalFilesChanged: payload.FilesChanged,
		}
		groupIndex[key] = len(out)
		out = append(out, group)
	}
	return out
}

// entryTimestampAndID extracts the sorting timestamp (RFC3339) and id for
// either a normalize.TimelineItem or a *CommitGroup.
func entryTimestampAndID(entry any) (string, string) {
	switch e := entry.(type) {
	case normalize.TimelineItem:
		return e.Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z07:00"), e.ID
	case *CommitGroup:
		// A CommitGroup sorts by its first commit's timestamp; its id for
		// tie-breaking is synthesized from its grouping key so distinct
		// groups never collide with a plain item's id.
		var ts string
		if len(e.Commits) > 0 {
			ts = e.Commits[0].Timestamp.UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
		}
		return ts, fmt.Sprintf("commit_group:%s:%s:%s", e.Repo, e.Branch, e.Date)
	default:
		return "", ""
	}
}

// combineTimelines stable-sorts entries by timestamp descending, breaking
// ties by id ascending (§4.5).
func combineTimelines(entries []any) []any {
	out := make([]any, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		tsI, idI := entryTimestampAndID(out[i])
		tsJ, idJ := entryTimestampAndID(out[j])
		if tsI != tsJ {
			return tsI > tsJ
		}
		return strings.Compare(idI, idJ) < 0
	})
	return out
}

// groupByDate buckets entries by the UTC date of their sort timestamp,
// preserving input order within each bucket and returning buckets in
// date-descending order (§4.5).
func groupByDate(entries []any) []DateGroup {
	order := make([]string, 0)
	buckets := make(map[string][]any)

	for _, entry := range entries {
		ts, _ := entryTimestampAndID(entry)
		date := ts
		if len(date) >= 10 {
			date = date[:10]
		}
		if _, ok := buckets[date]; !ok {
			order = append(order, date)
		}
		buckets[date] = append(buckets[date], entry)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(order)))

	out := make([]DateGroup, 0, len(order))
	for _, date := range order {
		out = append(out, DateGroup{Date: date, Items: buckets[date]})
	}
	return out
}
