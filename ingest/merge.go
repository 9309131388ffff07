// Package ingest implements the per-account ingestion pipeline of §4.3:
// decrypt the stored token, consult the gate, fetch from the platform
// provider, merge the incoming shard data into the latest snapshot of
// each account-scoped store by natural key, and record the observed
// rate-limit state back into the gate.
package ingest

import (
	"sort"
	"time"
)

// ShardStats reports how a single store's merge-and-put went (§4.3
// "a structured result listing written versions and per-shard
// {total, new_count} stats").
type ShardStats struct {
	Total int
	New   int
}

// mergeByKey merges incoming into existing by natural key: items sharing
// a key are replaced by the incoming value (so mutable fields like
// reaction counts update); items with a new key are appended in their
// incoming order (§4.3 "New items are appended; existing items are
// replaced by incoming values").
func mergeByKey[T any](existing, incoming []T, keyOf func(T) string) (merged []T, newCount int) {
	merged = make([]T, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, item := range merged {
		index[keyOf(item)] = i
	}

	for _, item := range incoming {
		key := keyOf(item)
		if idx, ok := index[key]; ok {
			merged[idx] = item
			continue
		}
		index[key] = len(merged)
		merged = append(merged, item)
		newCount++
	}
	return merged, newCount
}

// sortNewestFirst reorders items (posts, tweets) descending by the time
// timeOf returns, per §4.3 "item order for posts/tweets is newest-first
// by timestamp".
func sortNewestFirst[T any](items []T, timeOf func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return timeOf(items[i]).After(timeOf(items[j]))
	})
}
