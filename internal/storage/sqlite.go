package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/rewired-gh/vietoracle/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS draws (
	game    TEXT NOT NULL,
	date    TEXT NOT NULL,
	numbers TEXT NOT NULL,
	prize   TEXT NOT NULL DEFAULT '',
	UNIQUE (game, date)
);
CREATE INDEX IF NOT EXISTS draws_game ON draws (game);
`

// SQLiteStore keeps raw draw histories in a SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:" gives
// a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	// every pooled connection to :memory: would see its own empty database
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ImportDraws inserts records of game, skipping dates already stored. It
// returns how many rows were added.
func (s *SQLiteStore) ImportDraws(ctx context.Context, game models.Game, records []models.RawDraw) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO draws (game, date, numbers, prize) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	added := 0
	for _, r := range records {
		res, err := stmt.ExecContext(ctx, string(game), r.Date, r.Numbers, r.Prize)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s draw %s: %w", game, r.Date, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return added, nil
}

// LoadDraws returns the stored records of game in insertion order.
func (s *SQLiteStore) LoadDraws(ctx context.Context, game models.Game) ([]models.RawDraw, error) {
	// columns map onto RawDraw by sqlx's lowercased field names
	records := []models.RawDraw{}
	err := s.db.SelectContext(ctx, &records, `
		SELECT date, numbers, prize
		FROM draws
		WHERE game = ?
		ORDER BY rowid
	`, string(game))
	if err != nil {
		return nil, fmt.Errorf("failed to load %s draws: %w", game, err)
	}
	return records, nil
}

// CountDraws returns how many records of game are stored.
func (s *SQLiteStore) CountDraws(ctx context.Context, game models.Game) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM draws WHERE game = ?`, string(game))
	return n, err
}
