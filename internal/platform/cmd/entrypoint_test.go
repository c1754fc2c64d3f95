package cmd

import (
	"context"
	"flag"
	"testing"
)

type testConfig struct {
	DBPath  string `env:"GAMEBOT_CMD_TEST_DB" envDefault:"gamebot.db"`
	RoomKey string `env:"GAMEBOT_CMD_TEST_ROOM"`
}

func TestParseConfigFromArgs(t *testing.T) {
	t.Setenv("GAMEBOT_CMD_TEST_DB", "env.db")
	t.Setenv("GAMEBOT_CMD_TEST_ROOM", "env-room")

	var cfg testConfig
	fs := flag.NewFlagSet("gamebot", flag.ContinueOnError)
	if err := ParseConfig(&cfg); err != nil {
		t.Fatalf("load config defaults: %v", err)
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "db path")
	fs.StringVar(&cfg.RoomKey, "room", cfg.RoomKey, "room key")

	// Flags override env, untouched fields keep their env values.
	if err := ParseArgs(fs, []string{"-db", "flag.db"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if cfg.DBPath != "flag.db" {
		t.Fatalf("db path = %q, want flag.db", cfg.DBPath)
	}
	if cfg.RoomKey != "env-room" {
		t.Fatalf("room key = %q, want env-room", cfg.RoomKey)
	}
}

func TestParseRejectsNilInputs(t *testing.T) {
	if err := ParseConfig[testConfig](nil); err == nil {
		t.Fatal("expected nil config target to be rejected")
	}
	if err := ParseArgs(nil, nil); err == nil {
		t.Fatal("expected nil flag parser to be rejected")
	}
}

func TestRunWithTelemetryValidation(t *testing.T) {
	if err := RunWithTelemetry(nil, "", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected missing service error")
	}
	if err := RunWithTelemetry(nil, ServiceGamebot, nil); err == nil {
		t.Fatal("expected missing run function error")
	}
}

func TestRunWithTelemetryExecutesRun(t *testing.T) {
	t.Setenv("GAMEBOT_OTEL_ENDPOINT", "")

	ran := false
	err := RunWithTelemetry(context.Background(), ServiceGamebot, func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("run with telemetry: %v", err)
	}
	if !ran {
		t.Fatal("run function was not executed")
	}
}
