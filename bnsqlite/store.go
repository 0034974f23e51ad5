// Package bnsqlite provides a SQLite-backed implementation
// of every bnstore interface, using the pure-Go modernc driver.
package bnsqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/Tobeyw/bane-labs/bn/bngov"
	"github.com/Tobeyw/bane-labs/bn/bnstore"
)

// Store implements [bnstore.PhaseStore], [bnstore.DraftStore],
// [bnstore.VoteStore], and [bnstore.GateStore] on one SQLite database.
type Store struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath
// and applies the schema.
// Use ":memory:" for a throwaway database.
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// The modernc driver serializes per connection;
	// a single connection keeps in-memory databases coherent too.
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS phases (
  start_height INTEGER PRIMARY KEY,
  pre_height   INTEGER NOT NULL,
  miners       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS drafts (
  id           INTEGER PRIMARY KEY,
  start_height INTEGER NOT NULL,
  miners       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS votes (
  voter    TEXT PRIMARY KEY,
  draft_id INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS votes_by_draft ON votes (draft_id, voter);

CREATE TABLE IF NOT EXISTS gate_votes (
  method_key TEXT NOT NULL,
  voter      TEXT NOT NULL,
  param_key  TEXT NOT NULL,
  PRIMARY KEY (method_key, voter)
);

CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value INTEGER NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func encodeMiners(miners []bngov.Identity) (string, error) {
	b, err := json.Marshal(miners)
	if err != nil {
		return "", fmt.Errorf("failed to encode miners: %w", err)
	}
	return string(b), nil
}

func decodeMiners(raw string) ([]bngov.Identity, error) {
	var miners []bngov.Identity
	if err := json.Unmarshal([]byte(raw), &miners); err != nil {
		return nil, fmt.Errorf("failed to decode miners: %w", err)
	}
	return miners, nil
}

// --- PhaseStore ---

func (s *Store) SavePhase(ctx context.Context, p bngov.Phase) error {
	miners, err := encodeMiners(p.Miners)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO phases (start_height, pre_height, miners) VALUES (?, ?, ?)`,
		p.StartHeight, p.PreHeight, miners,
	)
	if err != nil {
		return fmt.Errorf("failed to save phase: %w", err)
	}
	return nil
}

func (s *Store) LoadPhase(ctx context.Context, startHeight uint64) (bngov.Phase, error) {
	var (
		preHeight uint64
		rawMiners string
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT pre_height, miners FROM phases WHERE start_height = ?`,
		startHeight,
	).Scan(&preHeight, &rawMiners)
	if errors.Is(err, sql.ErrNoRows) {
		return bngov.Phase{}, bnstore.ErrPhaseNotFound
	}
	if err != nil {
		return bngov.Phase{}, fmt.Errorf("failed to load phase: %w", err)
	}

	miners, err := decodeMiners(rawMiners)
	if err != nil {
		return bngov.Phase{}, err
	}
	return bngov.Phase{
		StartHeight: startHeight,
		Miners:      miners,
		PreHeight:   preHeight,
	}, nil
}

func (s *Store) LatestPhaseHeight(ctx context.Context) (uint64, error) {
	return s.metaValue(ctx, "latest_phase_height", 0)
}

func (s *Store) SetLatestPhaseHeight(ctx context.Context, startHeight uint64) error {
	return s.setMetaValue(ctx, "latest_phase_height", startHeight)
}

// --- DraftStore ---

func (s *Store) SaveDraft(ctx context.Context, d bngov.Draft) error {
	miners, err := encodeMiners(d.Miners)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO drafts (id, start_height, miners) VALUES (?, ?, ?)`,
		d.ID, d.StartHeight, miners,
	)
	if err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

func (s *Store) LoadDraft(ctx context.Context, id uint64) (bngov.Draft, error) {
	var (
		startHeight uint64
		rawMiners   string
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT start_height, miners FROM drafts WHERE id = ?`,
		id,
	).Scan(&startHeight, &rawMiners)
	if errors.Is(err, sql.ErrNoRows) {
		return bngov.Draft{}, bnstore.ErrDraftNotFound
	}
	if err != nil {
		return bngov.Draft{}, fmt.Errorf("failed to load draft: %w", err)
	}

	miners, err := decodeMiners(rawMiners)
	if err != nil {
		return bngov.Draft{}, err
	}
	return bngov.Draft{
		ID:          id,
		StartHeight: startHeight,
		Miners:      miners,
	}, nil
}

func (s *Store) DraftWindow(ctx context.Context) (start, end uint64, err error) {
	start, err = s.metaValue(ctx, "window_start", 1)
	if err != nil {
		return 0, 0, err
	}
	end, err = s.metaValue(ctx, "window_end", 0)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

func (s *Store) SetDraftWindow(ctx context.Context, start, end uint64) error {
	if err := s.setMetaValue(ctx, "window_start", start); err != nil {
		return err
	}
	return s.setMetaValue(ctx, "window_end", end)
}

// --- VoteStore ---

func (s *Store) SaveVote(ctx context.Context, voter bngov.Identity, draftID uint64) error {
	// The primary key on voter makes the replace drop
	// any prior draft's entry in the same statement.
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO votes (voter, draft_id) VALUES (?, ?)`,
		string(voter), draftID,
	)
	if err != nil {
		return fmt.Errorf("failed to save vote: %w", err)
	}
	return nil
}

func (s *Store) DeleteVote(ctx context.Context, voter bngov.Identity) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM votes WHERE voter = ?`, string(voter))
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return nil
}

func (s *Store) VoteOf(ctx context.Context, voter bngov.Identity) (uint64, error) {
	var draftID uint64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT draft_id FROM votes WHERE voter = ?`,
		string(voter),
	).Scan(&draftID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, bnstore.ErrNoActiveVote
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load vote: %w", err)
	}
	return draftID, nil
}

func (s *Store) VotersOf(ctx context.Context, draftID uint64) ([]bngov.Identity, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT voter FROM votes WHERE draft_id = ? ORDER BY voter`,
		draftID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	defer rows.Close()

	voters := []bngov.Identity{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		voters = append(voters, bngov.Identity(v))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate voters: %w", err)
	}
	return voters, nil
}

// --- GateStore ---

func (s *Store) SaveGateVote(ctx context.Context, methodKey string, voter bngov.Identity, paramKey string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO gate_votes (method_key, voter, param_key) VALUES (?, ?, ?)`,
		methodKey, string(voter), paramKey,
	)
	if err != nil {
		return fmt.Errorf("failed to save gate vote: %w", err)
	}
	return nil
}

func (s *Store) GateVotes(ctx context.Context, methodKey string) (map[bngov.Identity]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT voter, param_key FROM gate_votes WHERE method_key = ?`,
		methodKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load gate votes: %w", err)
	}
	defer rows.Close()

	out := make(map[bngov.Identity]string)
	for rows.Next() {
		var voter, param string
		if err := rows.Scan(&voter, &param); err != nil {
			return nil, fmt.Errorf("failed to scan gate vote: %w", err)
		}
		out[bngov.Identity(voter)] = param
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gate votes: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteGateVotes(ctx context.Context, methodKey string, voters []bngov.Identity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, v := range voters {
		if _, err := tx.ExecContext(
			ctx,
			`DELETE FROM gate_votes WHERE method_key = ? AND voter = ?`,
			methodKey, string(v),
		); err != nil {
			return fmt.Errorf("failed to delete gate vote: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit gate vote deletion: %w", err)
	}
	return nil
}

// --- meta helpers ---

func (s *Store) metaValue(ctx context.Context, key string, def uint64) (uint64, error) {
	var v uint64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read meta %q: %w", key, err)
	}
	return v, nil
}

func (s *Store) setMetaValue(ctx context.Context, key string, value uint64) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write meta %q: %w", key, err)
	}
	return nil
}
