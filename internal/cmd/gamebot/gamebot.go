// Package gamebot parses bot flags and runs the console chat loop.
package gamebot

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/geokala/discord-gamebot/internal/bot"
	"github.com/geokala/discord-gamebot/internal/id"
	entrypoint "github.com/geokala/discord-gamebot/internal/platform/cmd"
	"github.com/geokala/discord-gamebot/internal/secrethitler"
	"github.com/geokala/discord-gamebot/internal/storage/sqlite"
	"github.com/geokala/discord-gamebot/internal/vampire"
)

// Config holds bot configuration.
type Config struct {
	DBPath  string `env:"GAMEBOT_DB_PATH" envDefault:"gamebot.db"`
	RoomKey string `env:"GAMEBOT_ROOM_KEY"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database")
	fs.StringVar(&cfg.RoomKey, "room", cfg.RoomKey, "Room key (generated when empty)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the bot with telemetry, reading commands from stdin.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGamebot, func(ctx context.Context) error {
		return run(ctx, cfg, os.Stdin, os.Stdout)
	})
}

// run wires the engines and pumps chat lines through the router. Each line
// is "<player> <command>"; the player token doubles as id and display name.
func run(ctx context.Context, cfg Config, in io.Reader, out io.Writer) error {
	roomKey := cfg.RoomKey
	if roomKey == "" {
		generated, err := id.NewID()
		if err != nil {
			return fmt.Errorf("generate room key: %w", err)
		}
		roomKey = generated
	}

	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close store error=%v", err)
		}
	}()

	tracker := secrethitler.NewTracker(store, nil)
	if err := tracker.LoadStats(ctx); err != nil {
		return err
	}
	session := vampire.NewSession(store, nil)
	if err := session.Load(ctx); err != nil {
		return err
	}
	router := bot.NewRouter(tracker, session)

	fmt.Fprintf(out, "gamebot ready, room %s\n", roomKey)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			log.Printf("read input error=%v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return saveSession(session)
		case line, ok := <-lines:
			if !ok {
				return saveSession(session)
			}
			player, content, found := strings.Cut(strings.TrimSpace(line), " ")
			if player == "" {
				continue
			}
			if !found {
				fmt.Fprintf(out, "[to %s] Expected a command after the player name.\n", player)
				continue
			}
			reply := router.Dispatch(ctx, bot.Message{
				RoomID:     roomKey,
				PlayerID:   player,
				PlayerName: player,
				Content:    content,
			})
			if reply.Private != "" {
				fmt.Fprintf(out, "[to %s] %s\n", player, reply.Private)
			}
			if reply.Public != "" {
				fmt.Fprintf(out, "[room] %s\n", reply.Public)
			}
			if err := session.Save(ctx); err != nil {
				log.Printf("save characters error=%v", err)
			}
		}
	}
}

// saveSession flushes characters with a fresh context so a cancelled run
// context does not lose the final state.
func saveSession(session *vampire.Session) error {
	if err := session.Save(context.Background()); err != nil {
		return fmt.Errorf("save characters: %w", err)
	}
	return nil
}
