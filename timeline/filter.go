package timeline

import (
	"strings"

	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/normalize"
)

// matchesRepo reports whether item is a GitHub commit or pull request in
// the repo a filter names.
func matchesRepo(item normalize.TimelineItem, value string) bool {
	if item.Platform != "github" {
		return false
	}
	switch p := item.Payload.(type) {
	case normalize.CommitPayload:
		return p.Repo == value
	case normalize.PullRequestPayload:
		return p.Repo == value
	}
	return false
}

func matchesSubreddit(item normalize.TimelineItem, value string) bool {
	switch p := item.Payload.(type) {
	case normalize.PostPayload:
		return p.Subreddit == value
	case normalize.CommentPayload:
		return p.Subreddit == value
	}
	return false
}

func matchesKeyword(item normalize.TimelineItem, value string) bool {
	needle := strings.ToLower(value)
	content := item.Title
	switch p := item.Payload.(type) {
	case normalize.PostPayload:
		content = p.Content
	case normalize.CommentPayload:
		content = p.Content
	}
	return strings.Contains(strings.ToLower(content), needle)
}

// accountFilterSet is the filters scoped to one account, grouped by key
// so includes can be OR'd within a key and AND'd across keys (§4.6).
type accountFilterSet struct {
	includeByKey map[db.FilterKey][]string
	excludeRepo  []string
	excludeSub   []string
	excludeWord  []string
}

func buildFilterSets(filters []db.ProfileFilter) map[string]*accountFilterSet {
	sets := make(map[string]*accountFilterSet)
	get := func(accountID string) *accountFilterSet {
		set, ok := sets[accountID]
		if !ok {
			set = &accountFilterSet{includeByKey: make(map[db.FilterKey][]string)}
			sets[accountID] = set
		}
		return set
	}
	for _, f := range filters {
		set := get(f.AccountID)
		switch f.FilterType {
		case db.FilterInclude:
			set.includeByKey[f.FilterKey] = append(set.includeByKey[f.FilterKey], f.FilterValue)
		case db.FilterExclude:
			switch f.FilterKey {
			case db.FilterKeyRepo:
				set.excludeRepo = append(set.excludeRepo, f.FilterValue)
			case db.FilterKeySubreddit:
				set.excludeSub = append(set.excludeSub, f.FilterValue)
			case db.FilterKeyKeyword:
				set.excludeWord = append(set.excludeWord, f.FilterValue)
			}
		}
	}
	return sets
}

// isGitHubContent and isRedditContent report whether item is the kind of
// item an include filter for that key can apply to. An include filter
// only constrains items it's relevant to; items outside its domain pass
// through (§4.6: "drop items with platform==\"github\" ... whose payload.repo
// != value", not every item on the account).
func isGitHubContent(item normalize.TimelineItem) bool {
	return item.Platform == "github"
}

func isRedditContent(item normalize.TimelineItem) bool {
	return item.Platform == "reddit"
}

func (set *accountFilterSet) allows(item normalize.TimelineItem) bool {
	for key, values := range set.includeByKey {
		applicable := false
		matched := false
		for _, value := range values {
			switch key {
			case db.FilterKeyRepo:
				if isGitHubContent(item) {
					applicable = true
					matched = matched || matchesRepo(item, value)
				}
			case db.FilterKeySubreddit:
				if isRedditContent(item) {
					applicable = true
					matched = matched || matchesSubreddit(item, value)
				}
			}
		}
		if applicable && !matched {
			return false
		}
	}
	for _, value := range set.excludeRepo {
		if matchesRepo(item, value) {
			return false
		}
	}
	for _, value := range set.excludeSub {
		if matchesSubreddit(item, value) {
			return false
		}
	}
	for _, value := range set.excludeWord {
		if matchesKeyword(item, value) {
			return false
		}
	}
	return true
}

// ApplyFilters drops items per the profile's filter set (§4.6 step 4).
// Accounts with no filters pass every item through unchanged; filters on
// one account never affect another account's items.
func ApplyFilters(items []AccountItem, filters []db.ProfileFilter) []normalize.TimelineItem {
	sets := buildFilterSets(filters)
	out := make([]normalize.TimelineItem, 0, len(items))
	for _, ai := range items {
		set, ok := sets[ai.AccountID]
		if !ok || set.allows(ai.Item) {
			out = append(out, ai.Item)
		}
	}
	return out
}
