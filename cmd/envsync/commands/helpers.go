package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/systmms/envsync/internal/app"
	"github.com/systmms/envsync/internal/config"
	"github.com/systmms/envsync/internal/decision"
	"github.com/systmms/envsync/internal/lifecycle"
)

func newApp(settings *config.Settings) *app.App {
	return app.New(settings)
}

// parseValue types a raw CLI argument before it reaches the core: anything
// that parses as JSON is kept as that value, everything else is a plain
// string. The core never re-interprets strings.
func parseValue(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// startSpinner shows progress during remote calls. The returned cleanup
// stops it; it is safe to call twice.
func startSpinner(message string, settings *config.Settings) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	// Ignore color errors - continue without colored spinner if it fails.
	_ = s.Color("cyan")

	if !settings.NonInteractive {
		s.Start()
	}

	return s, func() { s.Stop() }
}

// terminalDecider resolves conflicts by prompting on the terminal. A
// running spinner is paused around each prompt.
type terminalDecider struct {
	spinner *spinner.Spinner
}

func (d *terminalDecider) pause() {
	if d.spinner != nil {
		d.spinner.Stop()
	}
}

func (d *terminalDecider) resume() {
	if d.spinner != nil {
		d.spinner.Start()
	}
}

func (d *terminalDecider) Confirm(ctx context.Context, prompt string) (bool, error) {
	d.pause()
	defer d.resume()

	fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, nil
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}

func (d *terminalDecider) ChooseDeletion(ctx context.Context) (decision.DeletionChoice, error) {
	d.pause()
	defer d.resume()

	fmt.Fprint(os.Stderr, "Delete immediately without recovery? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "y" || answer == "yes" {
		return decision.DeletionChoice{Force: true}, nil
	}

	fmt.Fprintf(os.Stderr, "Recovery window in days [%d]: ", decision.DefaultRecoveryDays)
	line, _ = reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return decision.DeletionChoice{RecoveryDays: decision.DefaultRecoveryDays}, nil
	}
	days, err := strconv.ParseInt(line, 10, 64)
	if err != nil {
		return decision.DeletionChoice{}, fmt.Errorf("invalid recovery window '%s': %w", line, err)
	}
	return decision.DeletionChoice{RecoveryDays: days}, nil
}

// decider picks the decision policy for this invocation: a terminal prompt
// normally, a fixed decline in non-interactive mode so nothing is ever
// overwritten without an explicit flag.
func decider(settings *config.Settings, s *spinner.Spinner) decision.Decider {
	if settings.NonInteractive {
		return decision.Decline()
	}
	return &terminalDecider{spinner: s}
}

// reportDeletion tells the user what kind of deletion happened.
func reportDeletion(settings *config.Settings, secretName string, result lifecycle.DeleteResult) {
	if result.Forced {
		settings.Logger.Warn("Secret %s deleted immediately; this cannot be undone", secretName)
		return
	}
	deadline := "unknown"
	if result.Deadline != nil {
		deadline = result.Deadline.Format(time.RFC3339)
	}
	settings.Logger.Info("Secret %s scheduled for deletion in %d days (recoverable via AWS until %s)",
		secretName, result.RecoveryDays, deadline)
}
