package timeline

import (
	"context"
	"errors"

	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/normalize"
	"github.com/f0rbit/timeline/provider"
	"github.com/f0rbit/timeline/storeid"
)

// getLatestOrZero fetches the latest snapshot for storeID, treating
// corpus.ErrNotFound as "no data ingested yet" rather than an error —
// an account with nothing fetched contributes no items, not a failure.
func getLatestOrZero[T any](ctx context.Context, backend corpus.Backend, id string, codec corpus.Codec[T]) (T, bool, error) {
	store := corpus.NewStore[T](id, backend, codec)
	value, _, err := store.GetLatest(ctx)
	if err != nil {
		if errors.Is(err, corpus.ErrNotFound) {
			var zero T
			return zero, false, nil
		}
		var zero T
		return zero, false, err
	}
	return value, true, nil
}

// loadGitHub assembles a provider.GitHubResult from the account's meta
// store plus one commits/PRs store per repo listed in meta (§4.6 step 2).
func loadGitHub(ctx context.Context, backend corpus.Backend, accountID string) ([]normalize.TimelineItem, error) {
	jsonMeta := corpus.NewJSONCodec[provider.GitHubMeta]()
	meta, ok, err := getLatestOrZero(ctx, backend, storeid.GitHubMeta(accountID).String(), jsonMeta)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	result := provider.GitHubResult{Meta: meta, Repos: make(map[string]provider.GitHubRepoActivity, len(meta.Repos))}
	jsonCommits := corpus.NewJSONCodec[[]provider.GitHubCommit]()
	jsonPRs := corpus.NewJSONCodec[[]provider.GitHubPullRequest]()

	for _, fullName := range meta.Repos {
		owner, repo, ok := splitOwnerRepo(fullName)
		if !ok {
			continue
		}
		commits, _, err := getLatestOrZero(ctx, backend, storeid.GitHubCommits(accountID, owner, repo).String(), jsonCommits)
		if err != nil {
			return nil, err
		}
		prs, _, err := getLatestOrZero(ctx, backend, storeid.GitHubPRs(accountID, owner, repo).String(), jsonPRs)
		if err != nil {
			return nil, err
		}
		result.Repos[fullName] = provider.GitHubRepoActivity{Commits: commits, PRs: prs}
	}

	return normalize.GitHub(result), nil
}

func splitOwnerRepo(fullName string) (owner, repo string, ok bool) {
	for i := 0; i < len(fullName); i++ {
		if fullName[i] == '/' {
			return fullName[:i], fullName[i+1:], true
		}
	}
	return "", "", false
}

// loadReddit assembles a provider.RedditResult from the account's
// meta/posts/comments shards and returns both post and comment items.
func loadReddit(ctx context.Context, backend corpus.Backend, accountID string) ([]normalize.TimelineItem, error) {
	jsonMeta := corpus.NewJSONCodec[provider.RedditMeta]()
	jsonPosts := corpus.NewJSONCodec[[]provider.RedditPost]()
	jsonComments := corpus.NewJSONCodec[[]provider.RedditComment]()

	meta, _, err := getLatestOrZero(ctx, backend, storeid.Reddit(accountID, storeid.SubMeta).String(), jsonMeta)
	if err != nil {
		return nil, err
	}
	posts, _, err := getLatestOrZero(ctx, backend, storeid.Reddit(accountID, storeid.SubPosts).String(), jsonPosts)
	if err != nil {
		return nil, err
	}
	comments, _, err := getLatestOrZero(ctx, backend, storeid.Reddit(accountID, storeid.SubComments).String(), jsonComments)
	if err != nil {
		return nil, err
	}

	items := normalize.RedditPosts(provider.RedditResult{Meta: meta, Posts: posts})
	items = append(items, normalize.RedditComments(provider.RedditResult{Meta: meta, Comments: comments})...)
	return items, nil
}

// loadTwitter assembles a provider.TwitterResult from the account's
// meta/tweets shards.
func loadTwitter(ctx context.Context, backend corpus.Backend, accountID string) ([]normalize.TimelineItem, error) {
	jsonMeta := corpus.NewJSONCodec[provider.TwitterMeta]()
	jsonTweets := corpus.NewJSONCodec[[]provider.Tweet]()

	meta, _, err := getLatestOrZero(ctx, backend, storeid.Twitter(accountID, storeid.SubMeta).String(), jsonMeta)
	if err != nil {
		return nil, err
	}
	tweets, ok, err := getLatestOrZero(ctx, backend, storeid.Twitter(accountID, storeid.SubTweets).String(), jsonTweets)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return normalize.Twitter(provider.TwitterResult{Meta: meta, Tweets: tweets}), nil
}

// loadBluesky, loadYouTube, and loadDevpad each read the single unified
// "raw" store for their platform (§3 "raw/<platform>/<account>").
func loadBluesky(ctx context.Context, backend corpus.Backend, accountID string) ([]normalize.TimelineItem, error) {
	codec := corpus.NewJSONCodec[provider.BlueskyResult]()
	result, ok, err := getLatestOrZero(ctx, backend, storeid.Raw("bluesky", accountID).String(), codec)
	if err != nil || !ok {
		return nil, err
	}
	return normalize.Bluesky(result), nil
}

func loadYouTube(ctx context.Context, backend corpus.Backend, accountID string) ([]normalize.TimelineItem, error) {
	codec := corpus.NewJSONCodec[provider.YouTubeResult]()
	result, ok, err := getLatestOrZero(ctx, backend, storeid.Raw("youtube", accountID).String(), codec)
	if err != nil || !ok {
		return nil, err
	}
	return normalize.YouTube(result), nil
}

func loadDevpad(ctx context.Context, backend corpus.Backend, accountID string) ([]normalize.TimelineItem, error) {
	codec := corpus.NewJSONCodec[provider.DevpadResult]()
	result, ok, err := getLatestOrZero(ctx, backend, storeid.Raw("devpad", accountID).String(), codec)
	if err != nil || !ok {
		return nil, err
	}
	return normalize.Devpad(result), nil
}

// loadAccount dispatches to the platform-specific loader for acct and
// tags every resulting item with its account id (§4.6 steps 2-3).
func loadAccount(ctx context.Context, backend corpus.Backend, acct db.Account) ([]AccountItem, error) {
	var items []normalize.TimelineItem
	var err error

	switch acct.Platform {
	case db.PlatformGitHub:
		items, err = loadGitHub(ctx, backend, acct.ID)
	case db.PlatformReddit:
		items, err = loadReddit(ctx, backend, acct.ID)
	case db.PlatformTwitter:
		items, err = loadTwitter(ctx, backend, acct.ID)
	case db.PlatformBluesky:
		items, err = loadBluesky(ctx, backend, acct.ID)
	case db.PlatformYouTube:
		items, err = loadYouTube(ctx, backend, acct.ID)
	case db.PlatformDevpad:
		items, err = loadDevpad(ctx, backend, acct.ID)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	tagged := make([]AccountItem, len(items))
	for i, item := range items {
		tagged[i] = AccountItem{AccountID: acct.ID, Item: item}
	}
	return tagged, nil
}
