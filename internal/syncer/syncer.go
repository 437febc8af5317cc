// Package syncer reconciles the local config store with the remote secret
// store.
//
// Sync is a union with preference, not a diff: keys present on only one
// side always survive, so a stale snapshot never silently drops data. The
// cost is that key deletions cannot propagate through sync; delete on both
// sides explicitly instead.
package syncer

import (
	"context"
	"fmt"

	"github.com/systmms/envsync/internal/configstore"
	"github.com/systmms/envsync/internal/decision"
	eserrors "github.com/systmms/envsync/internal/errors"
	"github.com/systmms/envsync/internal/lifecycle"
	"github.com/systmms/envsync/internal/logging"
	"github.com/systmms/envsync/internal/resolve"
	"github.com/systmms/envsync/internal/secretstore"
)

// Preference selects which side's keys win on collision during Sync.
type Preference int

const (
	PreferLocal Preference = iota
	PreferRemote
)

func (p Preference) String() string {
	if p == PreferRemote {
		return "remote"
	}
	return "local"
}

// ParsePreference converts a CLI flag value to a Preference.
func ParsePreference(s string) (Preference, error) {
	switch s {
	case "local":
		return PreferLocal, nil
	case "remote":
		return PreferRemote, nil
	default:
		return PreferLocal, eserrors.E(eserrors.KindValidation, "invalid sync preference '%s'", s).
			WithSuggestion("Use --prefer local or --prefer remote")
	}
}

// Engine reconciles one package's local and remote state.
type Engine struct {
	local       *configstore.Store
	remote      *secretstore.Store
	resolver    *resolve.Resolver
	lifecycle   *lifecycle.Lifecycle
	packageName string
	logger      *logging.Logger
}

// New creates a sync engine over the stores.
func New(local *configstore.Store, remote *secretstore.Store, lc *lifecycle.Lifecycle, packageName string, logger *logging.Logger) *Engine {
	return &Engine{
		local:       local,
		remote:      remote,
		resolver:    resolve.New(local, remote, packageName),
		lifecycle:   lc,
		packageName: packageName,
		logger:      logger,
	}
}

// Options controls the conflict checkpoint of Push and Pull.
type Options struct {
	// Override skips the confirmation when the destination already exists.
	Override bool
	// Decide resolves the conflict when Override is false; nil declines.
	Decide decision.Decider
}

// Result reports the outcome of a push, pull, or sync.
type Result struct {
	// Cancelled is set when the decider declined; nothing was written.
	Cancelled bool
	// Created is true when the remote secret was created rather than
	// updated.
	Created bool
	// Version is the remote version token after a successful remote write.
	Version secretstore.Version
	// Document is the content written (local view for push, remote payload
	// for pull, the union for sync).
	Document configstore.Document
}

// Push writes the local view (default overlaid by the environment document)
// as the remote secret's payload, creating the secret if needed.
func (e *Engine) Push(ctx context.Context, env string, opts Options) (Result, error) {
	doc, err := e.resolver.Local(env)
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug("pushing %s to %s: %s", env, e.secretName(env), logging.RedactDocument(doc))

	upserted, err := e.lifecycle.Upsert(ctx, e.secretName(env), doc, e.description(env), lifecycle.UpsertOptions{
		Override: opts.Override,
		Decide:   opts.Decide,
	})
	if err != nil {
		return Result{}, err
	}
	if upserted.Cancelled {
		return Result{Cancelled: true}, nil
	}

	return Result{Created: upserted.Created, Version: upserted.Version, Document: doc}, nil
}

// Pull fetches the remote secret payload and overwrites the environment's
// local document with it.
func (e *Engine) Pull(ctx context.Context, env string, opts Options) (Result, error) {
	doc, err := e.resolver.Remote(ctx, env)
	if err != nil {
		return Result{}, err
	}

	exists, err := e.local.Exists(env)
	if err != nil {
		return Result{}, err
	}

	if exists && !opts.Override {
		ok, derr := confirm(ctx, opts.Decide, "Local configuration for '"+env+"' already exists. Overwrite it?")
		if derr != nil {
			return Result{}, derr
		}
		if !ok {
			return Result{Cancelled: true}, nil
		}
	}

	if err := e.local.Write(env, doc); err != nil {
		return Result{}, err
	}

	return Result{Document: doc}, nil
}

// Sync unions the environment's local document and remote payload (each an
// empty document if absent), letting the preferred side win on key
// collisions, and writes the union to both sides. A remote failure after
// the local write succeeds is reported as a divergence so only the remote
// side needs retrying.
func (e *Engine) Sync(ctx context.Context, env string, prefer Preference) (Result, error) {
	local, err := e.local.Read(env)
	if err != nil {
		if !eserrors.IsNotFound(err) {
			return Result{}, err
		}
		local = configstore.Document{}
	}

	remoteExists := true
	remote, err := e.resolver.Remote(ctx, env)
	if err != nil {
		if !eserrors.IsNotFound(err) {
			return Result{}, err
		}
		remoteExists = false
		remote = configstore.Document{}
	}

	var merged configstore.Document
	if prefer == PreferLocal {
		merged = resolve.Merge(remote, local)
	} else {
		merged = resolve.Merge(local, remote)
	}

	e.logger.Debug("syncing %s (prefer %s): %s", env, prefer, logging.RedactDocument(merged))

	if err := e.local.Write(env, merged); err != nil {
		return Result{}, err
	}

	name := e.secretName(env)
	var version secretstore.Version
	if remoteExists {
		version, err = e.remote.Update(ctx, name, merged)
	} else {
		version, err = e.remote.Create(ctx, name, merged, e.description(env))
	}
	if err != nil {
		return Result{}, &eserrors.DivergenceError{
			Operation: "sync",
			Succeeded: "local",
			Failed:    "remote",
			Err:       err,
		}
	}

	return Result{Created: !remoteExists, Version: version, Document: merged}, nil
}

func (e *Engine) secretName(env string) string {
	return secretstore.Name(e.packageName, env)
}

func (e *Engine) description(env string) string {
	return fmt.Sprintf("Configuration for %s (%s environment)", e.packageName, env)
}

func confirm(ctx context.Context, decide decision.Decider, prompt string) (bool, error) {
	if decide == nil {
		return false, nil
	}
	return decide.Confirm(ctx, prompt)
}
