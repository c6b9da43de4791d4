// Package explorer aggregates the public recent-swap lists of every
// routable LP into one view: fetch in parallel, drop duplicates, newest
// first.
package explorer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/AdonisPhusis/PNA-SWAP/internal/lp"
	"github.com/AdonisPhusis/PNA-SWAP/pkg/logging"
)

// Explorer merges swap history across LPs.
type Explorer struct {
	endpoints func() []string
	timeout   time.Duration
	log       *logging.Logger
}

// New creates an explorer over the endpoints function, which is
// consulted on every call.
func New(endpoints func() []string, timeout time.Duration) *Explorer {
	return &Explorer{
		endpoints: endpoints,
		timeout:   timeout,
		log:       logging.Component("explorer"),
	}
}

// Recent returns up to limit swaps merged across all LPs, newest first.
// LPs that fail to answer are skipped; a partial view beats none.
func (e *Explorer) Recent(ctx context.Context, limit int) []lp.SwapSummary {
	endpoints := e.endpoints()
	if len(endpoints) == 0 || limit <= 0 {
		return nil
	}

	results := make([][]lp.SwapSummary, len(endpoints))
	var wg sync.WaitGroup
	for i, endpoint := range endpoints {
		wg.Add(1)
		go func(i int, endpoint string) {
			defer wg.Done()
			swaps, err := lp.New(endpoint, e.timeout).RecentSwaps(ctx, limit)
			if err != nil {
				e.log.Debug("recent swaps fetch failed", "endpoint", endpoint, "error", err)
				return
			}
			results[i] = swaps
		}(i, endpoint)
	}
	wg.Wait()

	return Merge(results, limit)
}

// Merge deduplicates by swap id (first occurrence wins), sorts by
// creation time descending, and truncates to limit.
func Merge(lists [][]lp.SwapSummary, limit int) []lp.SwapSummary {
	seen := make(map[string]bool)
	var merged []lp.SwapSummary
	for _, list := range lists {
		for _, s := range list {
			if seen[s.SwapID] {
				continue
			}
			seen[s.SwapID] = true
			merged = append(merged, s)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt > merged[j].CreatedAt
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
