// Package storage defines the persistence interfaces for the game engines.
// Implementations live in subpackages; engines depend only on these
// interfaces so tests can substitute in-memory fakes.
package storage

import (
	"context"

	apperrors "github.com/geokala/discord-gamebot/internal/platform/errors"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

// CharacterRecord is a persisted character sheet. Sheet holds the character
// JSON document; the engine owns its schema.
type CharacterRecord struct {
	PlayerID  string
	Sheet     []byte
	UpdatedAt int64
}

// CharacterStore persists character sheets keyed by player ID.
type CharacterStore interface {
	// GetCharacter returns the sheet for the player, or ErrNotFound.
	GetCharacter(ctx context.Context, playerID string) (CharacterRecord, error)
	// PutCharacter inserts or replaces the sheet for the player.
	PutCharacter(ctx context.Context, record CharacterRecord) error
	// DeleteCharacter removes the sheet for the player. Deleting an absent
	// record is not an error.
	DeleteCharacter(ctx context.Context, playerID string) error
	// ListCharacters returns all persisted sheets.
	ListCharacters(ctx context.Context) ([]CharacterRecord, error)
}

// GameStatsRecord holds the aggregate game outcome counters.
type GameStatsRecord struct {
	Started                 int
	Cancelled               int
	Completed               int
	LiberalPolicyWins       int
	LiberalHitlerKills      int
	FascistPolicyWins       int
	FascistHitlerChancellor int
}

// GameStatsStore persists the single aggregate stats row.
type GameStatsStore interface {
	// GetGameStats returns the persisted counters, or ErrNotFound when no
	// game has ever been recorded.
	GetGameStats(ctx context.Context) (GameStatsRecord, error)
	// PutGameStats inserts or replaces the counters.
	PutGameStats(ctx context.Context, record GameStatsRecord) error
}
