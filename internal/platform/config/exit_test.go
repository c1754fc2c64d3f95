package config_test

import (
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/geokala/discord-gamebot/internal/platform/config"
)

// Exitf calls os.Exit, so the assertion runs against a subprocess.
func TestExitf(t *testing.T) {
	if os.Getenv("GAMEBOT_TEST_EXITF") == "1" {
		config.Exitf("parse flags: %s", "bad value")
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExitf$")
	cmd.Env = append(os.Environ(), "GAMEBOT_TEST_EXITF=1")
	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %d", exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "parse flags: bad value") {
		t.Fatalf("stderr missing message, got %q", string(out))
	}
}
