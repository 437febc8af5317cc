// Package lifecycle drives remote secret creation, update, and deletion.
//
// The state machine is small: ACTIVE secrets are updated in place with a
// new version token; deletion is either immediate and terminal (force) or
// scheduled with a recovery window of 7 to 30 days, during which the secret
// is recoverable through AWS directly. Nothing here transitions a secret
// back out of deletion.
package lifecycle

import (
	"context"
	"time"

	"github.com/systmms/envsync/internal/configstore"
	"github.com/systmms/envsync/internal/decision"
	eserrors "github.com/systmms/envsync/internal/errors"
	"github.com/systmms/envsync/internal/logging"
	"github.com/systmms/envsync/internal/secretstore"
)

// Recovery window bounds accepted by Secrets Manager.
const (
	MinRecoveryDays int64 = 7
	MaxRecoveryDays int64 = 30
)

// Lifecycle mutates remote secrets through one explicit conflict checkpoint.
type Lifecycle struct {
	store  *secretstore.Store
	logger *logging.Logger
}

// New creates a lifecycle over the remote store.
func New(store *secretstore.Store, logger *logging.Logger) *Lifecycle {
	return &Lifecycle{store: store, logger: logger}
}

// UpsertOptions controls the conflict checkpoint of Upsert.
type UpsertOptions struct {
	// Override skips the confirmation when the secret already exists.
	Override bool
	// Decide resolves the conflict when Override is false. A nil decider
	// declines, which keeps unattended runs from overwriting silently.
	Decide decision.Decider
}

// UpsertResult reports what Upsert did.
type UpsertResult struct {
	// Cancelled is set when the decider declined; nothing was written.
	Cancelled bool
	// Created is true for a fresh secret, false for an update.
	Created bool
	Version secretstore.Version
}

// Upsert creates the secret, or, when it already exists, updates it after
// the conflict checkpoint. Declining yields a Cancelled result, not an
// error, and leaves the remote payload untouched.
func (l *Lifecycle) Upsert(ctx context.Context, name string, payload configstore.Document, description string, opts UpsertOptions) (UpsertResult, error) {
	version, err := l.store.Create(ctx, name, payload, description)
	if err == nil {
		l.logger.Debug("created secret %s (version %s)", name, version.Token)
		return UpsertResult{Created: true, Version: version}, nil
	}
	if !eserrors.Is(err, eserrors.KindConflict) {
		return UpsertResult{}, err
	}

	if !opts.Override {
		ok, derr := confirm(ctx, opts.Decide, "Secret '"+name+"' already exists. Overwrite it?")
		if derr != nil {
			return UpsertResult{}, derr
		}
		if !ok {
			return UpsertResult{Cancelled: true}, nil
		}
	}

	version, err = l.store.Update(ctx, name, payload)
	if err != nil {
		return UpsertResult{}, err
	}
	l.logger.Debug("updated secret %s (version %s)", name, version.Token)
	return UpsertResult{Version: version}, nil
}

// DeleteOptions selects the deletion mode.
type DeleteOptions struct {
	// Force deletes immediately and irreversibly.
	Force bool
	// RecoveryDays schedules deletion after the given window (7–30).
	// Zero means unset. Mutually exclusive with Force.
	RecoveryDays int64
	// Decide picks a mode when neither Force nor RecoveryDays is given.
	Decide decision.Decider
}

// DeleteResult reports how the secret was deleted.
type DeleteResult struct {
	// Forced is true for immediate, irreversible deletion.
	Forced bool
	// RecoveryDays is the window applied for a scheduled deletion.
	RecoveryDays int64
	// Deadline is when a scheduled deletion becomes permanent. The secret
	// stays recoverable through AWS until then.
	Deadline *time.Time
}

// Delete removes the secret, validating the recovery window before any
// remote call is made.
func (l *Lifecycle) Delete(ctx context.Context, name string, opts DeleteOptions) (DeleteResult, error) {
	if opts.Force && opts.RecoveryDays != 0 {
		return DeleteResult{}, eserrors.E(eserrors.KindValidation, "--force and a recovery window are mutually exclusive").
			WithSuggestion("Pass either --force for immediate deletion or --days for a recovery window, not both")
	}

	force := opts.Force
	days := opts.RecoveryDays

	if days != 0 {
		if err := validateRecoveryDays(days); err != nil {
			return DeleteResult{}, err
		}
	}

	if !force && days == 0 {
		decide := opts.Decide
		if decide == nil {
			decide = decision.Decline()
		}
		choice, err := decide.ChooseDeletion(ctx)
		if err != nil {
			return DeleteResult{}, err
		}
		force = choice.Force
		if !force {
			days = choice.RecoveryDays
			if days == 0 {
				days = decision.DefaultRecoveryDays
			}
			if err := validateRecoveryDays(days); err != nil {
				return DeleteResult{}, err
			}
		}
	}

	if force {
		if _, err := l.store.Delete(ctx, name, true, 0); err != nil {
			return DeleteResult{}, err
		}
		l.logger.Debug("force deleted secret %s", name)
		return DeleteResult{Forced: true}, nil
	}

	deadline, err := l.store.Delete(ctx, name, false, days)
	if err != nil {
		return DeleteResult{}, err
	}
	l.logger.Debug("scheduled deletion of secret %s in %d days", name, days)
	return DeleteResult{RecoveryDays: days, Deadline: deadline}, nil
}

// Read fetches the secret payload. A NotFound error means the secret does
// not exist, distinct from the store being unreachable.
func (l *Lifecycle) Read(ctx context.Context, name string) (configstore.Document, error) {
	return l.store.Get(ctx, name)
}

func validateRecoveryDays(days int64) error {
	if days < MinRecoveryDays || days > MaxRecoveryDays {
		return eserrors.E(eserrors.KindValidation, "recovery window must be between %d and %d days, got %d", MinRecoveryDays, MaxRecoveryDays, days)
	}
	return nil
}

func confirm(ctx context.Context, decide decision.Decider, prompt string) (bool, error) {
	if decide == nil {
		return false, nil
	}
	return decide.Confirm(ctx, prompt)
}
