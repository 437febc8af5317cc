// Package envmanager creates, lists, and deletes logical environments,
// optionally cascading into the remote secret lifecycle.
package envmanager

import (
	"context"

	"github.com/systmms/envsync/internal/configstore"
	"github.com/systmms/envsync/internal/decision"
	eserrors "github.com/systmms/envsync/internal/errors"
	"github.com/systmms/envsync/internal/lifecycle"
	"github.com/systmms/envsync/internal/logging"
	"github.com/systmms/envsync/internal/secretstore"
)

// Manager orchestrates environment lifecycle over the local store and the
// remote secret lifecycle.
type Manager struct {
	local       *configstore.Store
	lifecycle   *lifecycle.Lifecycle
	packageName string
	logger      *logging.Logger
}

// New creates a manager.
func New(local *configstore.Store, lc *lifecycle.Lifecycle, packageName string, logger *logging.Logger) *Manager {
	return &Manager{
		local:       local,
		lifecycle:   lc,
		packageName: packageName,
		logger:      logger,
	}
}

// CreateOptions controls environment creation.
type CreateOptions struct {
	// Template names an existing environment whose document is cloned.
	Template string
}

// Create makes a new environment document. Unlike the secret lifecycle
// there is no override path: an existing environment is a hard conflict.
func (m *Manager) Create(name string, opts CreateOptions) error {
	if err := configstore.ValidateName(name); err != nil {
		return err
	}
	if name == configstore.DefaultEnvironment {
		return eserrors.E(eserrors.KindValidation, "'%s' is reserved for the shared base document", name)
	}

	exists, err := m.local.Exists(name)
	if err != nil {
		return err
	}
	if exists {
		return eserrors.E(eserrors.KindConflict, "environment '%s' already exists", name).
			WithSuggestion("Delete it first with 'envsync env delete " + name + "', or pick another name")
	}

	doc := configstore.Document{"environment": name}
	if opts.Template != "" {
		template, err := m.local.Read(opts.Template)
		if err != nil {
			return err
		}
		doc = template.Clone()
		doc["environment"] = name
	}

	if err := m.local.Write(name, doc); err != nil {
		return err
	}

	m.logger.Debug("created environment %s", name)
	return nil
}

// RemoteState is the best-effort remote annotation on a listed environment.
type RemoteState int

const (
	// RemoteUnchecked means no probe was requested.
	RemoteUnchecked RemoteState = iota
	RemotePresent
	RemoteAbsent
	// RemoteUnknown means the probe failed for a reason other than the
	// secret being absent; Err carries it.
	RemoteUnknown
)

// Environment is one row of a listing.
type Environment struct {
	Name   string
	Remote RemoteState
	// Err is the probe failure when Remote is RemoteUnknown.
	Err error
}

// ListOptions controls listing.
type ListOptions struct {
	// RemoteStatus probes each environment's secret and annotates the
	// result. Probe failures are reported per environment and never abort
	// the listing.
	RemoteStatus bool
}

// List enumerates all local environments, never including the reserved
// default document.
func (m *Manager) List(ctx context.Context, opts ListOptions) ([]Environment, error) {
	names, err := m.local.List()
	if err != nil {
		return nil, err
	}

	envs := make([]Environment, 0, len(names))
	for _, name := range names {
		env := Environment{Name: name}
		if opts.RemoteStatus {
			_, err := m.lifecycle.Read(ctx, secretstore.Name(m.packageName, name))
			switch {
			case err == nil:
				env.Remote = RemotePresent
			case eserrors.IsNotFound(err):
				env.Remote = RemoteAbsent
			default:
				env.Remote = RemoteUnknown
				env.Err = err
			}
		}
		envs = append(envs, env)
	}

	return envs, nil
}

// DeleteOptions controls environment deletion.
type DeleteOptions struct {
	// CascadeRemote also deletes the environment's remote secret.
	CascadeRemote bool
	// Force and RecoveryDays apply to the cascade, with the same policy as
	// the secret lifecycle.
	Force        bool
	RecoveryDays int64
	Decide       decision.Decider
}

// DeleteResult reports what was removed.
type DeleteResult struct {
	// Cascade is the remote deletion outcome, nil when no cascade was
	// requested or the secret did not exist.
	Cascade *lifecycle.DeleteResult
}

// Delete removes the environment's local document and optionally its remote
// secret. The local deletion is not rolled back when the cascade fails; the
// failure is surfaced as a divergence so the remote side can be retried.
func (m *Manager) Delete(ctx context.Context, name string, opts DeleteOptions) (DeleteResult, error) {
	if err := configstore.ValidateName(name); err != nil {
		return DeleteResult{}, err
	}
	if name == configstore.DefaultEnvironment {
		return DeleteResult{}, eserrors.E(eserrors.KindValidation, "the shared base document cannot be deleted")
	}

	if err := m.local.Delete(name); err != nil {
		return DeleteResult{}, err
	}
	m.logger.Debug("deleted environment %s", name)

	if !opts.CascadeRemote {
		return DeleteResult{}, nil
	}

	result, err := m.lifecycle.Delete(ctx, secretstore.Name(m.packageName, name), lifecycle.DeleteOptions{
		Force:        opts.Force,
		RecoveryDays: opts.RecoveryDays,
		Decide:       opts.Decide,
	})
	if err != nil {
		if eserrors.IsNotFound(err) {
			// Nothing to cascade into; local deletion stands.
			m.logger.Debug("no remote secret for environment %s", name)
			return DeleteResult{}, nil
		}
		return DeleteResult{}, &eserrors.DivergenceError{
			Operation: "environment delete",
			Succeeded: "local",
			Failed:    "remote",
			Err:       err,
		}
	}

	return DeleteResult{Cascade: &result}, nil
}
