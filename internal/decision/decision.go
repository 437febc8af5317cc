// Package decision abstracts the confirmation points inside mutating
// operations. Interactive callers plug in a prompt-backed implementation;
// unattended callers use a fixed policy, so the engine never talks to a
// terminal itself.
package decision

import "context"

// DeletionChoice is the answer to "force delete or schedule with a
// recovery window?".
type DeletionChoice struct {
	Force bool
	// RecoveryDays is the window in days when Force is false.
	RecoveryDays int64
}

// Decider resolves the suspension points of mutating operations.
type Decider interface {
	// Confirm answers an overwrite-conflict question. Returning false
	// cancels the operation with nothing written.
	Confirm(ctx context.Context, prompt string) (bool, error)

	// ChooseDeletion picks a deletion mode when the caller supplied
	// neither --force nor an explicit recovery window.
	ChooseDeletion(ctx context.Context) (DeletionChoice, error)
}

// DefaultRecoveryDays is the scheduled-deletion window used when no
// explicit choice is made.
const DefaultRecoveryDays int64 = 7

type policy struct {
	confirm bool
}

func (p policy) Confirm(ctx context.Context, prompt string) (bool, error) {
	return p.confirm, nil
}

func (p policy) ChooseDeletion(ctx context.Context) (DeletionChoice, error) {
	return DeletionChoice{RecoveryDays: DefaultRecoveryDays}, nil
}

// Approve answers yes to every conflict and picks the default recovery
// window for deletions. Equivalent to passing override everywhere.
func Approve() Decider {
	return policy{confirm: true}
}

// Decline answers no to every conflict. Deletions without an explicit mode
// still fall back to the default recovery window.
func Decline() Decider {
	return policy{confirm: false}
}
