// Package sqlite provides a SQLite-backed implementation of the game
// storage interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/geokala/discord-gamebot/internal/platform/storage/sqlitemigrate"
	"github.com/geokala/discord-gamebot/internal/storage"
	"github.com/geokala/discord-gamebot/internal/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists characters and game stats in SQLite.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite store at the given path and applies the embedded
// migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// GetCharacter returns the sheet for the player.
func (s *Store) GetCharacter(ctx context.Context, playerID string) (storage.CharacterRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.CharacterRecord{}, err
	}

	var record storage.CharacterRecord
	var sheet string
	row := s.sqlDB.QueryRowContext(ctx,
		"SELECT player_id, sheet, updated_at FROM characters WHERE player_id = ?",
		playerID)
	if err := row.Scan(&record.PlayerID, &sheet, &record.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.CharacterRecord{}, storage.ErrNotFound
		}
		return storage.CharacterRecord{}, fmt.Errorf("query character: %w", err)
	}
	record.Sheet = []byte(sheet)
	return record, nil
}

// PutCharacter inserts or replaces the sheet for the player.
func (s *Store) PutCharacter(ctx context.Context, record storage.CharacterRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(record.PlayerID) == "" {
		return fmt.Errorf("player id is required")
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO characters (player_id, sheet, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(player_id) DO UPDATE SET
    sheet = excluded.sheet,
    updated_at = excluded.updated_at
`, record.PlayerID, string(record.Sheet), record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert character: %w", err)
	}
	return nil
}

// DeleteCharacter removes the sheet for the player.
func (s *Store) DeleteCharacter(ctx context.Context, playerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM characters WHERE player_id = ?", playerID); err != nil {
		return fmt.Errorf("delete character: %w", err)
	}
	return nil
}

// ListCharacters returns every persisted sheet.
func (s *Store) ListCharacters(ctx context.Context) ([]storage.CharacterRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT player_id, sheet, updated_at FROM characters ORDER BY player_id")
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	var records []storage.CharacterRecord
	for rows.Next() {
		var record storage.CharacterRecord
		var sheet string
		if err := rows.Scan(&record.PlayerID, &sheet, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		record.Sheet = []byte(sheet)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate characters: %w", err)
	}
	return records, nil
}

// GetGameStats returns the persisted stat counters.
func (s *Store) GetGameStats(ctx context.Context) (storage.GameStatsRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.GameStatsRecord{}, err
	}

	var record storage.GameStatsRecord
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT started, cancelled, completed, liberal_policy_wins,
       liberal_hitler_kills, fascist_policy_wins, fascist_hitler_chancellor
FROM game_stats WHERE id = 1`)
	err := row.Scan(
		&record.Started,
		&record.Cancelled,
		&record.Completed,
		&record.LiberalPolicyWins,
		&record.LiberalHitlerKills,
		&record.FascistPolicyWins,
		&record.FascistHitlerChancellor,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.GameStatsRecord{}, storage.ErrNotFound
		}
		return storage.GameStatsRecord{}, fmt.Errorf("query game stats: %w", err)
	}
	return record, nil
}

// PutGameStats inserts or replaces the stat counters.
func (s *Store) PutGameStats(ctx context.Context, record storage.GameStatsRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO game_stats (
    id, started, cancelled, completed, liberal_policy_wins,
    liberal_hitler_kills, fascist_policy_wins, fascist_hitler_chancellor
) VALUES (1, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    started = excluded.started,
    cancelled = excluded.cancelled,
    completed = excluded.completed,
    liberal_policy_wins = excluded.liberal_policy_wins,
    liberal_hitler_kills = excluded.liberal_hitler_kills,
    fascist_policy_wins = excluded.fascist_policy_wins,
    fascist_hitler_chancellor = excluded.fascist_hitler_chancellor
`,
		record.Started,
		record.Cancelled,
		record.Completed,
		record.LiberalPolicyWins,
		record.LiberalHitlerKills,
		record.FascistPolicyWins,
		record.FascistHitlerChancellor,
	)
	if err != nil {
		return fmt.Errorf("upsert game stats: %w", err)
	}
	return nil
}
