package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/freeeve/fleetbot/internal/model"
)

// MatchRepo handles batch-evaluation match rows.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo creates a MatchRepo.
func NewMatchRepo(db *sql.DB) *MatchRepo {
	return &MatchRepo{db: db}
}

const matchColumns = `id, label, seed, width, height, players, rank, turns, duration_ms, replay, tuning, created_at`

// Create inserts a finished match. ID and CreatedAt are filled from the
// database when empty.
func (r *MatchRepo) Create(ctx context.Context, m *model.MatchResult) error {
	var tuning any
	if len(m.Tuning) > 0 {
		tuning = []byte(m.Tuning)
	}
	var id any
	if m.ID != "" {
		id = m.ID
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO matches (id, label, seed, width, height, players, rank, turns, duration_ms, replay, tuning)
		 VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING id, created_at`,
		id, m.Label, m.Seed, m.Width, m.Height, m.Players, m.Rank, m.Turns, m.DurationMs, m.Replay, tuning,
	).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("create match: %w", err)
	}
	return nil
}

// FindByID returns a match, or nil if it does not exist.
func (r *MatchRepo) FindByID(ctx context.Context, id string) (*model.MatchResult, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id)
	m, err := scanMatch(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find match: %w", err)
	}
	return m, nil
}

// ListRecent returns the newest matches, optionally filtered by label.
func (r *MatchRepo) ListRecent(ctx context.Context, label string, limit int) ([]model.MatchResult, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+matchColumns+` FROM matches
		 WHERE $1 = '' OR label = $1
		 ORDER BY created_at DESC LIMIT $2`, label, limit)
	if err != nil {
		return nil, fmt.Errorf("list matches: %w", err)
	}
	defer rows.Close()

	var out []model.MatchResult
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// WinRate counts won and total matches under label.
func (r *MatchRepo) WinRate(ctx context.Context, label string) (wins, total int, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE rank = 1), COUNT(*) FROM matches WHERE label = $1`, label,
	).Scan(&wins, &total)
	if err != nil {
		return 0, 0, fmt.Errorf("match win rate: %w", err)
	}
	return wins, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(s scanner) (*model.MatchResult, error) {
	var m model.MatchResult
	var tuning []byte
	if err := s.Scan(&m.ID, &m.Label, &m.Seed, &m.Width, &m.Height, &m.Players, &m.Rank,
		&m.Turns, &m.DurationMs, &m.Replay, &tuning, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Tuning = tuning
	return &m, nil
}
