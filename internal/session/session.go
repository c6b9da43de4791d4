// Package session persists the in-flight swap so an interrupted client
// can resume coordination instead of abandoning a half-committed swap.
// Exactly one session exists at a time; it holds the user secret, so
// the file is written with owner-only permissions.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AdonisPhusis/PNA-SWAP/pkg/logging"
)

// DefaultMaxAge caps how old a session may be before it is discarded
// on load. It matches the shortest HTLC timelock in a swap plan: past
// that, the swap has either completed or refunded on chain and
// resuming is pointless.
const DefaultMaxAge = 2 * time.Hour

var ErrNoSession = errors.New("no saved session")

// Record is the persisted snapshot of one in-flight swap.
type Record struct {
	Secret   string          `json:"secret"`
	Swap     json.RawMessage `json:"swap"`
	Endpoint string          `json:"endpoint"`
	SavedAt  int64           `json:"saved_at"`
}

// Store reads and writes the session file.
type Store struct {
	mu     sync.Mutex
	path   string
	maxAge time.Duration
	log    *logging.Logger
}

// NewStore creates a store rooted at dataDir. maxAge bounds how old a
// session may be before Load discards it; zero means DefaultMaxAge.
func NewStore(dataDir string, maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		path:   filepath.Join(dataDir, "session.json"),
		maxAge: maxAge,
		log:    logging.Component("session"),
	}
}

// Save snapshots the swap. swap is any JSON-serializable value; the
// store does not interpret it.
func (s *Store) Save(secret string, swap interface{}, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(swap)
	if err != nil {
		return fmt.Errorf("encode swap: %w", err)
	}
	rec := Record{
		Secret:   secret,
		Swap:     raw,
		Endpoint: endpoint,
		SavedAt:  time.Now().Unix(),
	}
	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	// Write-then-rename so a crash never leaves a torn session file.
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load returns the saved session, decoding the swap payload into swap
// (a pointer). A session older than the store's max age is deleted and
// reported as absent.
func (s *Store) Load(swap interface{}) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		// A corrupt session is unrecoverable; drop it.
		s.log.Warn("discarding corrupt session file", "path", s.path, "error", err)
		os.Remove(s.path)
		return nil, ErrNoSession
	}

	age := time.Since(time.Unix(rec.SavedAt, 0))
	if age > s.maxAge {
		s.log.Info("discarding stale session", "age", age.Truncate(time.Second))
		os.Remove(s.path)
		return nil, ErrNoSession
	}

	if swap != nil {
		if err := json.Unmarshal(rec.Swap, swap); err != nil {
			return nil, fmt.Errorf("decode swap payload: %w", err)
		}
	}
	return &rec, nil
}

// Clear deletes the session file. Clearing an absent session is not an
// error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
