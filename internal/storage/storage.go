// Package storage provides persistent storage using SQLite: the
// client's own swap history, written on every observed state change.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Storage records every swap this client has coordinated.
type Storage struct {
	db     *sql.DB
	dbPath string
}

// SwapRecord is one row of the local swap history.
type SwapRecord struct {
	SwapID     string
	SwapIDOut  string
	RouteType  string
	Direction  string
	FromAsset  string
	ToAsset    string
	FromAmount float64
	ToAmount   float64
	State      string
	LPEndpoint string
	Error      string
	CreatedAt  int64
	UpdatedAt  int64
}

// New opens (or creates) the history database under dataDir.
func New(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "pnaswap.db")

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Storage{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// initSchema creates all database tables.
func (s *Storage) initSchema() error {
	schema := `
	-- Local swap history, one row per coordinated swap
	CREATE TABLE IF NOT EXISTS swaps (
		swap_id TEXT PRIMARY KEY,
		swap_id_out TEXT,
		route_type TEXT NOT NULL,
		direction TEXT NOT NULL,
		from_asset TEXT NOT NULL,
		to_asset TEXT NOT NULL,
		from_amount REAL NOT NULL,
		to_amount REAL NOT NULL,
		state TEXT NOT NULL,
		lp_endpoint TEXT,
		error TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_swaps_created ON swaps(created_at);
	CREATE INDEX IF NOT EXISTS idx_swaps_state ON swaps(state);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSwap inserts or replaces a swap row. Called on creation and on
// every state change, so duplicate updates are harmless.
func (s *Storage) SaveSwap(r *SwapRecord) error {
	now := time.Now().Unix()
	if r.CreatedAt == 0 {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO swaps (swap_id, swap_id_out, route_type, direction,
			from_asset, to_asset, from_amount, to_amount, state,
			lp_endpoint, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(swap_id) DO UPDATE SET
			state = excluded.state,
			error = excluded.error,
			to_amount = excluded.to_amount,
			updated_at = excluded.updated_at`,
		r.SwapID, r.SwapIDOut, r.RouteType, r.Direction,
		r.FromAsset, r.ToAsset, r.FromAmount, r.ToAmount, r.State,
		r.LPEndpoint, r.Error, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save swap: %w", err)
	}
	return nil
}

// GetSwap returns one swap by id, or sql.ErrNoRows.
func (s *Storage) GetSwap(swapID string) (*SwapRecord, error) {
	row := s.db.QueryRow(`
		SELECT swap_id, swap_id_out, route_type, direction, from_asset,
			to_asset, from_amount, to_amount, state, lp_endpoint, error,
			created_at, updated_at
		FROM swaps WHERE swap_id = ?`, swapID)

	var r SwapRecord
	err := row.Scan(&r.SwapID, &r.SwapIDOut, &r.RouteType, &r.Direction,
		&r.FromAsset, &r.ToAsset, &r.FromAmount, &r.ToAmount, &r.State,
		&r.LPEndpoint, &r.Error, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecent returns the newest swaps, most recent first.
func (s *Storage) ListRecent(limit int) ([]SwapRecord, error) {
	rows, err := s.db.Query(`
		SELECT swap_id, swap_id_out, route_type, direction, from_asset,
			to_asset, from_amount, to_amount, state, lp_endpoint, error,
			created_at, updated_at
		FROM swaps ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list swaps: %w", err)
	}
	defer rows.Close()

	var out []SwapRecord
	for rows.Next() {
		var r SwapRecord
		if err := rows.Scan(&r.SwapID, &r.SwapIDOut, &r.RouteType,
			&r.Direction, &r.FromAsset, &r.ToAsset, &r.FromAmount,
			&r.ToAmount, &r.State, &r.LPEndpoint, &r.Error,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
