package provider

import "time"

// GitHubResult is the platform-shaped payload GitHubProvider.Fetch returns:
// account-level meta plus per-repo commits and PRs (§4.3 "for GitHub: meta
// store, one commits store per repo, one PRs store per repo").
type GitHubResult struct {
	Meta  GitHubMeta
	Repos map[string]GitHubRepoActivity // keyed by "owner/repo"
}

type GitHubMeta struct {
	Login     string
	Name      string
	AvatarURL string
	Repos     []string // "owner/repo" list driving the timeline loader (§4.6)
}

type GitHubRepoActivity struct {
	Commits []GitHubCommit
	PRs     []GitHubPullRequest
}

type GitHubCommit struct {
	SHA          string
	Message      string
	Repo         string
	Branch       string
	AuthorDate   time.Time
	Additions    int
	Deletions    int
	FilesChanged int
}

type GitHubPullRequest struct {
	Repo           string
	Number         int
	Title          string
	State          string
	HeadRef        string
	BaseRef        string
	Additions      int
	Deletions      int
	ChangedFiles   int
	CommitSHAs     []string
	MergeCommitSHA string
	MergedAt       *time.Time
	UpdatedAt      time.Time
}

// RedditResult covers a Reddit account's meta, posts, and comments.
type RedditResult struct {
	Meta     RedditMeta
	Posts    []RedditPost
	Comments []RedditComment
}

type RedditMeta struct {
	Username string
}

type RedditPost struct {
	ID         string
	Title      string
	SelfText   string
	Subreddit  string
	URL        string
	Author     string
	CreatedAt  time.Time
	Score      int
	NumReplies int
	HasMedia   bool
}

type RedditComment struct {
	ID           string
	Body         string
	Subreddit    string
	ParentTitle  string
	ParentURL    string
	Author       string
	CreatedAt    time.Time
	Score        int
	IsOP         bool
}

// TwitterResult covers a Twitter/X account's meta and tweets.
type TwitterResult struct {
	Meta   TwitterMeta
	Tweets []Tweet
}

type TwitterMeta struct {
	Username string
}

type Tweet struct {
	ID         string
	Text       string
	Author     string
	CreatedAt  time.Time
	Replies    int
	Retweets   int
	Likes      int
	HasMedia   bool
	IsReply    bool
	IsRepost   bool
}

// BlueskyResult mirrors Twitter's shape: posts are the only activity type.
type BlueskyResult struct {
	Meta  BlueskyMeta
	Posts []BlueskyPost
}

type BlueskyMeta struct {
	Handle string
}

type BlueskyPost struct {
	ID        string
	Text      string
	Author    string
	CreatedAt time.Time
	Replies   int
	Reposts   int
	Likes     int
	HasMedia  bool
	IsReply   bool
	IsRepost  bool
}

// YouTubeResult covers uploaded videos.
type YouTubeResult struct {
	Meta   YouTubeMeta
	Videos []YouTubeVideo
}

type YouTubeMeta struct {
	ChannelTitle string
}

type YouTubeVideo struct {
	ID          string
	Title       string
	Description string
	URL         string
	PublishedAt time.Time
	ViewCount   int
	LikeCount   int
}

// DevpadResult covers task activity on the devpad platform.
type DevpadResult struct {
	Meta  DevpadMeta
	Tasks []DevpadTask
}

type DevpadMeta struct {
	Username string
}

type DevpadTask struct {
	ID          string
	Title       string
	Description string
	Status      string
	UpdatedAt   time.Time
	ProjectName string
}
