// Package registry discovers liquidity providers through the public LP
// registry: an HTTP snapshot at startup plus incremental updates pushed
// over the realtime channel.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrNoLPs = errors.New("no liquidity providers discovered")

// Entry is one registered LP as the registry reports it. Tier 1 LPs
// carry a verified on-chain registration; higher tiers are unvetted.
type Entry struct {
	LPID     string `json:"lp_id"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Tier     int    `json:"tier"`
	Status   string `json:"status"`

	// On-chain registration reference (tier 1 only).
	Address string `json:"address,omitempty"`
	TxID    string `json:"txid,omitempty"`
	Height  int64  `json:"height,omitempty"`
}

// Client fetches registry snapshots over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a registry client. The timeout bounds the snapshot
// request; discovery is a startup-path operation and must fail fast.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Online fetches the current set of online LPs.
func (c *Client) Online(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/registry/lps/online", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	var result struct {
		LPs []Entry `json:"lps"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode registry response: %w", err)
	}
	if len(result.LPs) == 0 {
		return nil, ErrNoLPs
	}
	return result.LPs, nil
}

// Set holds the live registry state. It applies the tier policy when
// listing routable endpoints: only tier 1 by default, with a fallback
// to all tiers when no tier 1 LP is online.
type Set struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	allTiers bool
}

// NewSet creates an empty set. With allTiers the tier filter is
// disabled and every online LP is routable.
func NewSet(allTiers bool) *Set {
	return &Set{
		entries:  make(map[string]Entry),
		allTiers: allTiers,
	}
}

// Replace swaps in a full snapshot, dropping LPs no longer listed.
func (s *Set) Replace(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]Entry, len(entries))
	for _, e := range entries {
		if e.Endpoint == "" {
			continue
		}
		s.entries[e.Endpoint] = e
	}
}

// Upsert applies an incremental update for a single LP.
func (s *Set) Upsert(e Entry) {
	if e.Endpoint == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Endpoint] = e
}

// Endpoints returns routable LP endpoints under the tier policy,
// excluding offline LPs. If the policy leaves nothing, every known
// endpoint is returned instead; an unvetted LP beats no LP.
func (s *Set) Endpoints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, e := range s.entries {
		if e.Status == "offline" {
			continue
		}
		if !s.allTiers && e.Tier != 1 {
			continue
		}
		out = append(out, e.Endpoint)
	}
	if len(out) == 0 {
		for _, e := range s.entries {
			out = append(out, e.Endpoint)
		}
	}
	sort.Strings(out)
	return out
}

// All returns every known entry, online or not.
func (s *Set) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Endpoint < out[j].Endpoint })
	return out
}

// Len returns the number of known LPs.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
