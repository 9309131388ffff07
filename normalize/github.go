package normalize

import (
	"fmt"

	"github.com/f0rbit/timeline/provider"
)

// GitHub maps a GitHubResult to TimelineItems: one commit item per commit,
// one pull_request item per PR (§4.4).
func GitHub(result provider.GitHubResult) []TimelineItem {
	items := make([]TimelineItem, 0)

	for repoName, activity := range result.Repos {
		for _, c := range activity.Commits {
			items = append(items, TimelineItem{
				ID:        fmt.Sprintf("github:commit:%s", c.SHA),
				Platform:  "github",
				Type:      TypeCommit,
				Timestamp: c.AuthorDate,
				Title:     deriveTitle(c.Message),
				URL:       fmt.Sprintf("https://github.com/%s/commit/%s", repoName, c.SHA),
				Payload: CommitPayload{
					SHA:          c.SHA,
					Message:      c.Message,
					Repo:         c.Repo,
					Branch:       c.Branch,
					Additions:    c.Additions,
					Deletions:    c.Deletions,
					FilesChanged: c.FilesChanged,
				},
			})
		}

		for _, pr := range activity.PRs {
			ts := pr.UpdatedAt
			if pr.MergedAt != nil {
				ts = *pr.MergedAt
			}
			items = append(items, TimelineItem{
				ID:        fmt.Sprintf("github:pull_request:%s#%d", repoName, pr.Number),
				Platform:  "github",
				Type:      TypePR,
				Timestamp: ts,
				Title:     deriveTitle(pr.Title),
				URL:       fmt.Sprintf("https://github.com/%s/pull/%d", repoName, pr.Number),
				Payload: PullRequestPayload{
					Repo:           pr.Repo,
					Number:         pr.Number,
					Title:          pr.Title,
					State:          pr.State,
					HeadRef:        pr.HeadRef,
					BaseRef:        pr.BaseRef,
					Additions:      pr.Additions,
					Deletions:      pr.Deletions,
					ChangedFiles:   pr.ChangedFiles,
					CommitSHAs:     pr.CommitSHAs,
					MergeCommitSHA: pr.MergeCommitSHA,
				},
			})
		}
	}

	return items
}
