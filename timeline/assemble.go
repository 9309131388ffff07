package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/provider"
	"github.com/f0rbit/timeline/storeid"
)

// Window narrows an assembled timeline (§4.6 step 6): Before drops date
// groups newer than it; Limit truncates the flattened item count.
type Window struct {
	Before *time.Time
	Limit  int
}

// Assembler ties together account/filter lookups and the backend needed
// to assemble and persist a timeline snapshot (§4.6).
type Assembler struct {
	Accounts *db.AccountRepo
	Filters  *db.FilterRepo
	Backend  corpus.Backend
}

func NewAssembler(accounts *db.AccountRepo, filters *db.FilterRepo, backend corpus.Backend) *Assembler {
	return &Assembler{Accounts: accounts, Filters: filters, Backend: backend}
}

// AssembleForUser builds and persists the unfiltered timeline snapshot
// for every active account across all of the user's profiles.
func (a *Assembler) AssembleForUser(ctx context.Context, userID string, accounts []db.Account, window Window) (corpus.SnapshotMeta, error) {
	snapshot, parents, err := a.build(ctx, accounts, nil, window)
	if err != nil {
		return corpus.SnapshotMeta{}, err
	}
	snapshot.UserID = userID

	codec := corpus.NewJSONCodec[Snapshot]()
	store := corpus.NewStore[Snapshot](storeid.Timeline(userID).String(), a.Backend, codec)
	return store.Put(ctx, snapshot, corpus.PutOptions{Parents: parents})
}

// AssembleForProfile builds and persists a profile-scoped timeline
// snapshot: only the profile's active accounts contribute, and its
// filter set is applied (§4.6 steps 1-7).
func (a *Assembler) AssembleForProfile(ctx context.Context, userID string, profile db.Profile, window Window) (corpus.SnapshotMeta, error) {
	accounts, err := a.Accounts.ListActiveByProfile(ctx, profile.ID)
	if err != nil {
		return corpus.SnapshotMeta{}, fmt.Errorf("timeline: list accounts: %w", err)
	}
	filters, err := a.Filters.ListByProfile(ctx, profile.ID)
	if err != nil {
		return corpus.SnapshotMeta{}, fmt.Errorf("timeline: list filters: %w", err)
	}

	snapshot, parents, err := a.build(ctx, accounts, filters, window)
	if err != nil {
		return corpus.SnapshotMeta{}, err
	}
	snapshot.UserID = userID
	snapshot.ProfileID = profile.ID
	snapshot.ProfileSlug = profile.Slug
	snapshot.ProfileName = profile.Name

	codec := corpus.NewJSONCodec[Snapshot]()
	store := corpus.NewStore[Snapshot](storeid.Timeline(userID).String(), a.Backend, codec)
	return store.Put(ctx, snapshot, corpus.PutOptions{Parents: parents})
}

// build runs §4.6 steps 2-6: load, normalize, filter, group, bucket, and
// window, returning the snapshot plus the parent lineage to record.
func (a *Assembler) build(ctx context.Context, accounts []db.Account, filters []db.ProfileFilter, window Window) (Snapshot, []corpus.ParentRef, error) {
	var tagged []AccountItem
	var parents []corpus.ParentRef

	for _, acct := range accounts {
		items, err := loadAccount(ctx, a.Backend, acct)
		if err != nil {
			return Snapshot{}, nil, fmt.Errorf("timeline: load account %s: %w", acct.ID, err)
		}
		tagged = append(tagged, items...)
		parents = append(parents, sourceParents(ctx, a.Backend, acct)...)
	}

	filtered := ApplyFilters(tagged, filters)
	entries := groupByDate(combineTimelines(groupCommits(filtered)))
	entries = applyWindow(entries, window)

	return Snapshot{GeneratedAt: nowUTCRFC3339(), Groups: entries}, parents, nil
}

// sourceParents records every store this account actually contributed
// data from as a parent of the new timeline snapshot (§4.6 step 7). For
// GitHub this includes not just the meta shard but every per-repo
// commits/PRs store listed in it, mirroring loadGitHub's own walk of
// meta.Repos — those per-repo stores are what actually produced the
// commit/PR items, so the meta shard alone understates lineage.
func sourceParents(ctx context.Context, backend corpus.Backend, acct db.Account) []corpus.ParentRef {
	var ids []string
	switch acct.Platform {
	case db.PlatformGitHub:
		metaID := storeid.GitHubMeta(acct.ID).String()
		ids = append(ids, metaID)

		jsonMeta := corpus.NewJSONCodec[provider.GitHubMeta]()
		meta, ok, err := getLatestOrZero(ctx, backend, metaID, jsonMeta)
		if err == nil && ok {
			for _, fullName := range meta.Repos {
				owner, repo, ok := splitOwnerRepo(fullName)
				if !ok {
					continue
				}
				ids = append(ids,
					storeid.GitHubCommits(acct.ID, owner, repo).String(),
					storeid.GitHubPRs(acct.ID, owner, repo).String())
			}
		}
	case db.PlatformReddit:
		ids = append(ids,
			storeid.Reddit(acct.ID, storeid.SubMeta).String(),
			storeid.Reddit(acct.ID, storeid.SubPosts).String(),
			storeid.Reddit(acct.ID, storeid.SubComments).String())
	case db.PlatformTwitter:
		ids = append(ids,
			storeid.Twitter(acct.ID, storeid.SubMeta).String(),
			storeid.Twitter(acct.ID, storeid.SubTweets).String())
	case db.PlatformBluesky:
		ids = append(ids, storeid.Raw("bluesky", acct.ID).String())
	case db.PlatformYouTube:
		ids = append(ids, storeid.Raw("youtube", acct.ID).String())
	case db.PlatformDevpad:
		ids = append(ids, storeid.Raw("devpad", acct.ID).String())
	}

	var refs []corpus.ParentRef
	for _, id := range ids {
		meta, err := backend.GetLatestSnapshot(ctx, id)
		if err != nil {
			continue
		}
		refs = append(refs, corpus.ParentRef{StoreID: id, Version: meta.Version, Role: "source"})
	}
	return refs
}

// applyWindow implements §4.6 step 6: drop date groups newer than
// window.Before, then flatten/truncate to window.Limit and re-group.
func applyWindow(groups []DateGroup, window Window) []DateGroup {
	if window.Before != nil {
		cutoff := window.Before.UTC().Format("2006-01-02")
		kept := groups[:0:0]
		for _, g := range groups {
			if g.Date <= cutoff {
				kept = append(kept, g)
			}
		}
		groups = kept
	}

	if window.Limit <= 0 {
		return groups
	}

	var flattened []any
	for _, g := range groups {
		flattened = append(flattened, g.Items...)
	}
	if len(flattened) > window.Limit {
		flattened = flattened[:window.Limit]
	}
	return groupByDate(flattened)
}

func nowUTCRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// FilterByDateRange implements the §6 GET /timeline/:user_id query
// params `from`/`to`: both inclusive, comparing against group.Date.
func FilterByDateRange(groups []DateGroup, from, to string) []DateGroup {
	if from == "" && to == "" {
		return groups
	}
	out := groups[:0:0]
	for _, g := range groups {
		if from != "" && g.Date < from {
			continue
		}
		if to != "" && g.Date > to {
			continue
		}
		out = append(out, g)
	}
	return out
}

// ParseBefore validates the §6 `before` query param (ISO-8601 date).
func ParseBefore(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, apierr.InvalidFormat("before must be an ISO-8601 date")
	}
	return &t, nil
}

// ValidateLimit enforces the §6 `limit` bound (1..200 inclusive).
func ValidateLimit(limit int) error {
	if limit < 1 || limit > 200 {
		return apierr.InvalidFormat("limit must be between 1 and 200")
	}
	return nil
}
