// Package storeid parses and builds the slash-delimited StoreId grammar
// described in §3: a stable, deterministic logical name for a Store.
package storeid

import (
	"fmt"
	"strings"
)

// Kind identifies which of the grammar's shapes a StoreId matches.
type Kind string

const (
	KindRawUnified   Kind = "raw"
	KindTimeline     Kind = "timeline"
	KindGitHubMeta   Kind = "github_meta"
	KindGitHubRepo   Kind = "github_repo" // commits or prs, per Sub
	KindRedditShard  Kind = "reddit_shard"
	KindTwitterShard Kind = "twitter_shard"
)

// Sub distinguishes sibling shapes within a Kind (e.g. github commits vs prs,
// reddit meta/posts/comments).
type Sub string

const (
	SubNone     Sub = ""
	SubCommits  Sub = "commits"
	SubPRs      Sub = "prs"
	SubMeta     Sub = "meta"
	SubPosts    Sub = "posts"
	SubComments Sub = "comments"
	SubTweets   Sub = "tweets"
)

// ID is a parsed StoreId. String() reproduces the canonical form.
type ID struct {
	Kind     Kind
	Platform string // raw/<platform>/<account>
	Account  string
	User     string // timeline/<user>
	Sub      Sub
	Owner    string // owner/repo, for github repo-scoped shards
	Repo     string
}

// String renders the canonical slash-delimited form.
func (id ID) String() string {
	switch id.Kind {
	case KindRawUnified:
		return fmt.Sprintf("raw/%s/%s", id.Platform, id.Account)
	case KindTimeline:
		return fmt.Sprintf("timeline/%s", id.User)
	case KindGitHubMeta:
		return fmt.Sprintf("github/%s/meta", id.Account)
	case KindGitHubRepo:
		return fmt.Sprintf("github/%s/%s/%s/%s", id.Account, id.Sub, id.Owner, id.Repo)
	case KindRedditShard:
		return fmt.Sprintf("reddit/%s/%s", id.Account, id.Sub)
	case KindTwitterShard:
		return fmt.Sprintf("twitter/%s/%s", id.Account, id.Sub)
	default:
		return ""
	}
}

// Raw builds a legacy unified raw store id.
func Raw(platform, account string) ID {
	return ID{Kind: KindRawUnified, Platform: platform, Account: account}
}

// Timeline builds a per-user timeline store id.
func Timeline(user string) ID {
	return ID{Kind: KindTimeline, User: user}
}

// GitHubMeta builds a github account meta store id.
func GitHubMeta(account string) ID {
	return ID{Kind: KindGitHubMeta, Account: account}
}

// GitHubCommits builds a github per-repo commits store id.
func GitHubCommits(account, owner, repo string) ID {
	return ID{Kind: KindGitHubRepo, Account: account, Sub: SubCommits, Owner: owner, Repo: repo}
}

// GitHubPRs builds a github per-repo pull-request store id.
func GitHubPRs(account, owner, repo string) ID {
	return ID{Kind: KindGitHubRepo, Account: account, Sub: SubPRs, Owner: owner, Repo: repo}
}

// Reddit builds a reddit account shard store id (meta/posts/comments).
func Reddit(account string, sub Sub) ID {
	return ID{Kind: KindRedditShard, Account: account, Sub: sub}
}

// Twitter builds a twitter account shard store id (meta/tweets).
func Twitter(account string, sub Sub) ID {
	return ID{Kind: KindTwitterShard, Account: account, Sub: sub}
}

// Parse is the exhaustive, deterministic parse described in §3: unknown
// shapes are rejected with an error rather than guessed at.
func Parse(s string) (ID, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return ID{}, fmt.Errorf("storeid: malformed id %q", s)
	}

	switch parts[0] {
	case "raw":
		if len(parts) != 3 {
			return ID{}, fmt.Errorf("storeid: malformed raw id %q", s)
		}
		return Raw(parts[1], parts[2]), nil
	case "timeline":
		if len(parts) != 2 {
			return ID{}, fmt.Errorf("storeid: malformed timeline id %q", s)
		}
		return Timeline(parts[1]), nil
	case "github":
		if len(parts) == 3 && parts[2] == "meta" {
			return GitHubMeta(parts[1]), nil
		}
		if len(parts) == 5 && (parts[2] == string(SubCommits) || parts[2] == string(SubPRs)) {
			id := ID{Kind: KindGitHubRepo, Account: parts[1], Sub: Sub(parts[2]), Owner: parts[3], Repo: parts[4]}
			return id, nil
		}
		return ID{}, fmt.Errorf("storeid: malformed github id %q", s)
	case "reddit":
		if len(parts) != 3 {
			return ID{}, fmt.Errorf("storeid: malformed reddit id %q", s)
		}
		sub := Sub(parts[2])
		if sub != SubMeta && sub != SubPosts && sub != SubComments {
			return ID{}, fmt.Errorf("storeid: unknown reddit shard %q", parts[2])
		}
		return Reddit(parts[1], sub), nil
	case "twitter":
		if len(parts) != 3 {
			return ID{}, fmt.Errorf("storeid: malformed twitter id %q", s)
		}
		sub := Sub(parts[2])
		if sub != SubMeta && sub != SubTweets {
			return ID{}, fmt.Errorf("storeid: unknown twitter shard %q", parts[2])
		}
		return Twitter(parts[1], sub), nil
	default:
		return ID{}, fmt.Errorf("storeid: unknown store id shape %q", s)
	}
}
