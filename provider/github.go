package provider

import (
	"context"
	"fmt"
	"time"
)

const githubBaseURL = "https://api.github.com"

// GitHubProvider fetches commit and pull-request activity for every repo
// the authenticated user owns or has pushed to.
type GitHubProvider struct {
	http *httpClient
}

func NewGitHubProvider() *GitHubProvider {
	return &GitHubProvider{http: newHTTPClient(githubBaseURL, 30*time.Second, bearerAuth)}
}

func (p *GitHubProvider) Platform() Platform { return GitHub }

func (p *GitHubProvider) Fetch(ctx context.Context, accessToken string) (Result, error) {
	var user struct {
		Login     string `json:"login"`
		Name      string `json:"name"`
		AvatarURL string `json:"avatar_url"`
	}
	headers, err := p.http.getJSON(ctx, accessToken, "/user", &user)
	if err != nil {
		return Result{}, err
	}

	var repos []struct {
		FullName string `json:"full_name"`
	}
	if _, err := p.http.getJSON(ctx, accessToken, "/user/repos?per_page=100&sort=pushed", &repos); err != nil {
		return Result{}, err
	}

	meta := GitHubMeta{Login: user.Login, Name: user.Name, AvatarURL: user.AvatarURL}
	repoActivity := make(map[string]GitHubRepoActivity, len(repos))
	for _, r := range repos {
		meta.Repos = append(meta.Repos, r.FullName)

		commits, err := p.fetchCommits(ctx, accessToken, r.FullName)
		if err != nil {
			return Result{}, err
		}
		prs, err := p.fetchPRs(ctx, accessToken, r.FullName)
		if err != nil {
			return Result{}, err
		}
		repoActivity[r.FullName] = GitHubRepoActivity{Commits: commits, PRs: prs}
	}

	return Result{
		GitHub:    &GitHubResult{Meta: meta, Repos: repoActivity},
		RateLimit: headers,
	}, nil
}

func (p *GitHubProvider) fetchCommits(ctx context.Context, token, repo string) ([]GitHubCommit, error) {
	var raw []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Date time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		Stats struct {
			Additions int `json:"additions"`
			Deletions int `json:"deletions"`
		} `json:"stats"`
		Files []any `json:"files"`
	}
	path := fmt.Sprintf("/repos/%s/commits?per_page=100", repo)
	if _, err := p.http.getJSON(ctx, token, path, &raw); err != nil {
		return nil, err
	}

	out := make([]GitHubCommit, 0, len(raw))
	for _, c := range raw {
		out = append(out, GitHubCommit{
			SHA:          c.SHA,
			Message:      c.Commit.Message,
			Repo:         repo,
			Branch:       "main",
			AuthorDate:   c.Commit.Author.Date,
			Additions:    c.Stats.Additions,
			Deletions:    c.Stats.Deletions,
			FilesChanged: len(c.Files),
		})
	}
	return out, nil
}

func (p *GitHubProvider) fetchPRs(ctx context.Context, token, repo string) ([]GitHubPullRequest, error) {
	var raw []struct {
		Number       int        `json:"number"`
		Title        string     `json:"title"`
		State        string     `json:"state"`
		Head         struct{ Ref string `json:"ref"` } `json:"head"`
		Base         struct{ Ref string `json:"ref"` } `json:"base"`
		Additions    int        `json:"additions"`
		Deletions    int        `json:"deletions"`
		ChangedFiles int        `json:"changed_files"`
		MergedAt     *time.Time `json:"merged_at"`
		UpdatedAt    time.Time  `json:"updated_at"`
		MergeCommit  string     `json:"merge_commit_sha"`
	}
	path := fmt.Sprintf("/repos/%s/pulls?state=all&per_page=100", repo)
	if _, err := p.http.getJSON(ctx, token, path, &raw); err != nil {
		return nil, err
	}

	out := make([]GitHubPullRequest, 0, len(raw))
	for _, pr := range raw {
		out = append(out, GitHubPullRequest{
			Repo:           repo,
			Number:         pr.Number,
			Title:          pr.Title,
			State:          pr.State,
			HeadRef:        pr.Head.Ref,
			BaseRef:        pr.Base.Ref,
			Additions:      pr.Additions,
			Deletions:      pr.Deletions,
			ChangedFiles:   pr.ChangedFiles,
			MergeCommitSHA: pr.MergeCommit,
			MergedAt:       pr.MergedAt,
			UpdatedAt:      pr.UpdatedAt,
		})
	}
	return out, nil
}
