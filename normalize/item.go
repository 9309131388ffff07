// Package normalize implements the pure per-platform normalizers of
// §4.4: each maps a platform's latest stored shape to a uniform
// []TimelineItem. Every function here is side-effect free.
package normalize

import "time"

// ItemType discriminates TimelineItem.Payload.
type ItemType string

const (
	TypeCommit     ItemType = "commit"
	TypePR         ItemType = "pull_request"
	TypePost       ItemType = "post"
	TypeComment    ItemType = "comment"
	TypeVideo      ItemType = "video"
	TypeTask       ItemType = "task"
)

// TimelineItem is the normalized unit of §3.
type TimelineItem struct {
	ID        string    `json:"id"`
	Platform  string    `json:"platform"`
	Type      ItemType  `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Payload   any       `json:"payload"`
}

// CommitPayload backs TypeCommit items.
type CommitPayload struct {
	SHA          string `json:"sha"`
	Message      string `json:"message"`
	Repo         string `json:"repo"`
	Branch       string `json:"branch"`
	Additions    int    `json:"additions"`
	Deletions    int    `json:"deletions"`
	FilesChanged int    `json:"files_changed"`
}

// PullRequestPayload backs TypePR items.
type PullRequestPayload struct {
	Repo           string   `json:"repo"`
	Number         int      `json:"number"`
	Title          string   `json:"title"`
	State          string   `json:"state"`
	HeadRef        string   `json:"head_ref"`
	BaseRef        string   `json:"base_ref"`
	Additions      int      `json:"additions"`
	Deletions      int      `json:"deletions"`
	ChangedFiles   int      `json:"changed_files"`
	CommitSHAs     []string `json:"commit_shas"`
	MergeCommitSHA string   `json:"merge_commit_sha"`
}

// PostPayload backs TypePost items for Bluesky/Twitter/Reddit.
type PostPayload struct {
	Author     string `json:"author"`
	Content    string `json:"content"`
	Replies    int    `json:"replies"`
	Reposts    int    `json:"reposts"`
	Likes      int    `json:"likes"`
	HasMedia   bool   `json:"has_media"`
	IsReply    bool   `json:"is_reply"`
	IsRepost   bool   `json:"is_repost"`
	Subreddit  string `json:"subreddit,omitempty"`
}

// CommentPayload backs TypeComment items (Reddit only, per §4.4).
type CommentPayload struct {
	Content     string `json:"content"`
	ParentTitle string `json:"parent_title"`
	ParentURL   string `json:"parent_url"`
	Subreddit   string `json:"subreddit"`
	Score       int    `json:"score"`
	IsOP        bool   `json:"is_op"`
}

// VideoPayload backs TypeVideo items.
type VideoPayload struct {
	Description string `json:"description"`
	ViewCount   int    `json:"view_count"`
	LikeCount   int    `json:"like_count"`
}

// TaskPayload backs TypeTask items.
type TaskPayload struct {
	Description string `json:"description"`
	Status      string `json:"status"`
	ProjectName string `json:"project_name"`
}
