package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/provider"
	"github.com/f0rbit/timeline/storeid"
)

// putShard merges incoming into the latest snapshot of storeID by
// natural key (or, when sortDesc is set, merges then resorts
// newest-first) and writes the merged payload as a new snapshot.
func putShard[T any](ctx context.Context, backend corpus.Backend, storeID string, incoming []T, keyOf func(T) string, sortDesc func([]T)) (corpus.SnapshotMeta, ShardStats, error) {
	codec := corpus.NewJSONCodec[[]T]()
	store := corpus.NewStore[[]T](storeID, backend, codec)

	existing, _, err := store.GetLatest(ctx)
	if err != nil && !errors.Is(err, corpus.ErrNotFound) {
		return corpus.SnapshotMeta{}, ShardStats{}, fmt.Errorf("ingest: read latest %s: %w", storeID, err)
	}

	merged, newCount := existing, len(incoming)
	if errors.Is(err, corpus.ErrNotFound) {
		merged = incoming
	} else {
		merged, newCount = mergeByKey(existing, incoming, keyOf)
	}
	if sortDesc != nil {
		sortDesc(merged)
	}

	meta, err := store.Put(ctx, merged, corpus.PutOptions{})
	if err != nil {
		return corpus.SnapshotMeta{}, ShardStats{}, fmt.Errorf("ingest: put %s: %w", storeID, err)
	}
	return meta, ShardStats{Total: len(merged), New: newCount}, nil
}

// putMeta writes a replace-wholesale shard (the account's meta record is
// a single object, not a keyed collection): the incoming value becomes
// the new snapshot outright, and New is the count of repo/shard names
// not present in the previous snapshot.
func putMeta[T any](ctx context.Context, backend corpus.Backend, storeID string, incoming T, namesOf func(T) []string) (corpus.SnapshotMeta, ShardStats, error) {
	codec := corpus.NewJSONCodec[T]()
	store := corpus.NewStore[T](storeID, backend, codec)

	existing, _, err := store.GetLatest(ctx)
	newCount := len(namesOf(incoming))
	if err == nil {
		seen := make(map[string]bool, len(namesOf(existing)))
		for _, name := range namesOf(existing) {
			seen[name] = true
		}
		newCount = 0
		for _, name := range namesOf(incoming) {
			if !seen[name] {
				newCount++
			}
		}
	} else if !errors.Is(err, corpus.ErrNotFound) {
		return corpus.SnapshotMeta{}, ShardStats{}, fmt.Errorf("ingest: read latest %s: %w", storeID, err)
	}

	meta, err := store.Put(ctx, incoming, corpus.PutOptions{})
	if err != nil {
		return corpus.SnapshotMeta{}, ShardStats{}, fmt.Errorf("ingest: put %s: %w", storeID, err)
	}
	return meta, ShardStats{Total: len(namesOf(incoming)), New: newCount}, nil
}

// Written is the outcome of ingesting one account: versions and stats
// keyed by the store id each shard was written to (§4.3).
type Written struct {
	Versions map[string]corpus.SnapshotMeta
	Stats    map[string]ShardStats
}

func newWritten() Written {
	return Written{Versions: make(map[string]corpus.SnapshotMeta), Stats: make(map[string]ShardStats)}
}

func (w Written) record(storeID string, meta corpus.SnapshotMeta, stats ShardStats) {
	w.Versions[storeID] = meta
	w.Stats[storeID] = stats
}

// writeGitHub performs the meta + per-repo commits/PRs merge-and-put
// sequence described in §4.3.
func writeGitHub(ctx context.Context, backend corpus.Backend, accountID string, result provider.GitHubResult) (Written, error) {
	written := newWritten()

	metaID := storeid.GitHubMeta(accountID).String()
	meta, stats, err := putMeta(ctx, backend, metaID, result.Meta, func(m provider.GitHubMeta) []string { return m.Repos })
	if err != nil {
		return written, err
	}
	written.record(metaID, meta, stats)

	for fullName, activity := range result.Repos {
		owner, repo, ok := splitOwnerRepo(fullName)
		if !ok {
			continue
		}

		commitsID := storeid.GitHubCommits(accountID, owner, repo).String()
		commitMeta, commitStats, err := putShard(ctx, backend, commitsID, activity.Commits,
			func(c provider.GitHubCommit) string { return c.SHA }, nil)
		if err != nil {
			return written, err
		}
		written.record(commitsID, commitMeta, commitStats)

		prsID := storeid.GitHubPRs(accountID, owner, repo).String()
		prMeta, prStats, err := putShard(ctx, backend, prsID, activity.PRs,
			func(pr provider.GitHubPullRequest) string { return strconv.Itoa(pr.Number) }, nil)
		if err != nil {
			return written, err
		}
		written.record(prsID, prMeta, prStats)
	}
	return written, nil
}

func splitOwnerRepo(fullName string) (owner, repo string, ok bool) {
	for i := 0; i < len(fullName); i++ {
		if fullName[i] == '/' {
			return fullName[:i], fullName[i+1:], true
		}
	}
	return "", "", false
}

func writeReddit(ctx context.Context, backend corpus.Backend, accountID string, result provider.RedditResult) (Written, error) {
	written := newWritten()

	metaID := storeid.Reddit(accountID, storeid.SubMeta).String()
	meta, stats, err := putMeta(ctx, backend, metaID, result.Meta, func(m provider.RedditMeta) []string {
		if m.Username == "" {
			return nil
		}
		return []string{m.Username}
	})
	if err != nil {
		return written, err
	}
	written.record(metaID, meta, stats)

	postsID := storeid.Reddit(accountID, storeid.SubPosts).String()
	postMeta, postStats, err := putShard(ctx, backend, postsID, result.Posts,
		func(p provider.RedditPost) string { return p.ID },
		func(items []provider.RedditPost) { sortNewestFirst(items, func(p provider.RedditPost) time.Time { return p.CreatedAt }) })
	if err != nil {
		return written, err
	}
	written.record(postsID, postMeta, postStats)

	commentsID := storeid.Reddit(accountID, storeid.SubComments).String()
	commentMeta, commentStats, err := putShard(ctx, backend, commentsID, result.Comments,
		func(c provider.RedditComment) string { return c.ID },
		func(items []provider.RedditComment) { sortNewestFirst(items, func(c provider.RedditComment) time.Time { return c.CreatedAt }) })
	if err != nil {
		return written, err
	}
	written.record(commentsID, commentMeta, commentStats)

	return written, nil
}

func writeTwitter(ctx context.Context, backend corpus.Backend, accountID string, result provider.TwitterResult) (Written, error) {
	written := newWritten()

	metaID := storeid.Twitter(accountID, storeid.SubMeta).String()
	meta, stats, err := putMeta(ctx, backend, metaID, result.Meta, func(m provider.TwitterMeta) []string {
		if m.Username == "" {
			return nil
		}
		return []string{m.Username}
	})
	if err != nil {
		return written, err
	}
	written.record(metaID, meta, stats)

	tweetsID := storeid.Twitter(accountID, storeid.SubTweets).String()
	tweetMeta, tweetStats, err := putShard(ctx, backend, tweetsID, result.Tweets,
		func(t provider.Tweet) string { return t.ID },
		func(items []provider.Tweet) { sortNewestFirst(items, func(t provider.Tweet) time.Time { return t.CreatedAt }) })
	if err != nil {
		return written, err
	}
	written.record(tweetsID, tweetMeta, tweetStats)

	return written, nil
}

// writeRaw writes a whole-result payload to the unified "raw" store:
// Bluesky, YouTube, and Devpad have no per-shard layout in §3, only the
// legacy unified raw form.
func writeRaw[T any](ctx context.Context, backend corpus.Backend, platform, accountID string, result T) (Written, error) {
	written := newWritten()
	id := storeid.Raw(platform, accountID).String()
	codec := corpus.NewJSONCodec[T]()
	store := corpus.NewStore[T](id, backend, codec)
	meta, err := store.Put(ctx, result, corpus.PutOptions{})
	if err != nil {
		return written, fmt.Errorf("ingest: put %s: %w", id, err)
	}
	written.record(id, meta, ShardStats{Total: 1, New: 1})
	return written, nil
}
