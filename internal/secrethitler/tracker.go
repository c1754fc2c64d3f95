package secrethitler

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"

	apperrors "github.com/geokala/discord-gamebot/internal/platform/errors"
	"github.com/geokala/discord-gamebot/internal/storage"
)

var (
	// ErrGameAlreadyRunning indicates a start attempt in a room with a live game.
	ErrGameAlreadyRunning = apperrors.New(apperrors.CodeGameAlreadyRunning,
		"A game is already running in this room.")
	// ErrGameNotRunning indicates an operation against a room with no live game.
	ErrGameNotRunning = apperrors.New(apperrors.CodeGameNotRunning,
		"There is no game running in this room.")
)

// Stats aggregates game outcomes across all rooms. Running is derived from
// the live registry when a snapshot is taken; it is never persisted.
type Stats struct {
	Running                 int `json:"running"`
	Started                 int `json:"started"`
	Cancelled               int `json:"cancelled"`
	Completed               int `json:"completed"`
	LiberalPolicyWins       int `json:"liberal_policy_wins"`
	LiberalHitlerKills      int `json:"liberal_hitler_kills"`
	FascistPolicyWins       int `json:"fascist_policy_wins"`
	FascistHitlerChancellor int `json:"fascist_hitler_chancellor"`
}

// Tracker manages at most one live game per room and keeps outcome stats.
// It serializes all access, so individual games never see concurrent calls.
type Tracker struct {
	mu    sync.Mutex
	games map[string]*Game
	stats Stats
	store storage.GameStatsStore
	rng   *rand.Rand
}

// NewTracker creates a tracker. The store may be nil, in which case stats
// are kept in memory only. A nil rng seeds each new game independently.
func NewTracker(store storage.GameStatsStore, rng *rand.Rand) *Tracker {
	return &Tracker{
		games: make(map[string]*Game),
		store: store,
		rng:   rng,
	}
}

// LoadStats replaces the in-memory counters with the persisted ones.
func (t *Tracker) LoadStats(ctx context.Context) error {
	if t.store == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	record, err := t.store.GetGameStats(ctx)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return nil
		}
		return fmt.Errorf("load game stats: %w", err)
	}

	t.stats = Stats{
		Started:                 record.Started,
		Cancelled:               record.Cancelled,
		Completed:               record.Completed,
		LiberalPolicyWins:       record.LiberalPolicyWins,
		LiberalHitlerKills:      record.LiberalHitlerKills,
		FascistPolicyWins:       record.FascistPolicyWins,
		FascistHitlerChancellor: record.FascistHitlerChancellor,
	}
	return nil
}

// StartGame creates a new game for the room with the starting player
// already seated.
func (t *Tracker) StartGame(ctx context.Context, roomID, playerID, playerName string) (*Game, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, running := t.games[roomID]; running {
		return nil, ErrGameAlreadyRunning
	}

	game, err := NewGame(t.rng)
	if err != nil {
		return nil, err
	}
	if err := game.AddPlayer(playerID, playerName); err != nil {
		return nil, err
	}

	t.games[roomID] = game
	t.stats.Started++
	t.persistStats(ctx)
	return game, nil
}

// Game returns the live game for the room.
func (t *Tracker) Game(roomID string) (*Game, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	game, running := t.games[roomID]
	if !running {
		return nil, ErrGameNotRunning
	}
	return game, nil
}

// CancelGame abandons the live game for the room.
func (t *Tracker) CancelGame(ctx context.Context, roomID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, running := t.games[roomID]; !running {
		return ErrGameNotRunning
	}

	delete(t.games, roomID)
	t.stats.Cancelled++
	t.persistStats(ctx)
	return nil
}

// UpdateGameOnCompletion checks whether the room's game has finished. If it
// has, it is removed and its end state recorded.
func (t *Tracker) UpdateGameOnCompletion(ctx context.Context, roomID string) (EndState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	game, running := t.games[roomID]
	if !running {
		return EndStateNone, ErrGameNotRunning
	}

	endState := game.EndState()
	if endState == EndStateNone {
		return EndStateNone, nil
	}
	if !validEndState(endState) {
		return EndStateNone, fmt.Errorf("unknown end state %q", endState)
	}

	delete(t.games, roomID)
	t.stats.Completed++
	switch endState {
	case EndStateLiberalPolicies:
		t.stats.LiberalPolicyWins++
	case EndStateLiberalHitlerKilled:
		t.stats.LiberalHitlerKills++
	case EndStateFascistPolicies:
		t.stats.FascistPolicyWins++
	case EndStateFascistChancellorHitler:
		t.stats.FascistHitlerChancellor++
	}
	t.persistStats(ctx)
	return endState, nil
}

// StatsSnapshot returns a copy of the current counters.
func (t *Tracker) StatsSnapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.stats
	stats.Running = len(t.games)
	return stats
}

// persistStats writes the counters through to the store. Persistence
// failures are logged rather than surfaced; the in-memory state stays
// authoritative for the process lifetime. Callers hold t.mu.
func (t *Tracker) persistStats(ctx context.Context) {
	if t.store == nil {
		return
	}

	record := storage.GameStatsRecord{
		Started:                 t.stats.Started,
		Cancelled:               t.stats.Cancelled,
		Completed:               t.stats.Completed,
		LiberalPolicyWins:       t.stats.LiberalPolicyWins,
		LiberalHitlerKills:      t.stats.LiberalHitlerKills,
		FascistPolicyWins:       t.stats.FascistPolicyWins,
		FascistHitlerChancellor: t.stats.FascistHitlerChancellor,
	}
	if err := t.store.PutGameStats(ctx, record); err != nil {
		log.Printf("persist game stats error=%v", err)
	}
}
