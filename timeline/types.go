// Package timeline implements §4.5 (commit grouping and date bucketing),
// §4.6 (profile filter application and full timeline assembly), producing
// the snapshot payload persisted to the timeline/<user> corpus store.
package timeline

import "github.com/f0rbit/timeline/normalize"

// CommitGroup is emitted by groupCommits for same-(repo,branch,day)
// commits (§3, §4.5).
type CommitGroup struct {
	Type              string                    `json:"type"`
	Repo              string                    `json:"repo"`
	Branch            string                    `json:"branch"`
	Date              string                    `json:"date"`
	Commits           []normalize.TimelineItem  `json:"commits"`
	TotalAdditions    int                       `json:"total_additions"`
	TotalDeletions    int                       `json:"total_deletions"`
	TotalFilesChanged int                       `json:"total_files_changed"`
}

// DateGroup buckets entries (TimelineItem or CommitGroup) by UTC date.
type DateGroup struct {
	Date  string `json:"date"`
	Items []any  `json:"items"`
}

// Snapshot is the payload persisted to timeline/<user> (§3 "Timeline
// snapshot payload"). ProfileID/Slug/Name are set only for profile-scoped
// timelines.
type Snapshot struct {
	UserID      string      `json:"user_id"`
	GeneratedAt string      `json:"generated_at"`
	Groups      []DateGroup `json:"groups"`

	ProfileID   string `json:"profile_id,omitempty"`
	ProfileSlug string `json:"profile_slug,omitempty"`
	ProfileName string `json:"profile_name,omitempty"`
}

// AccountItem tags a normalized item with the account it came from, the
// unit filters operate on (§4.6 works per-account).
type AccountItem struct {
	AccountID string
	Item      normalize.TimelineItem
}
