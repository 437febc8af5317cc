// Package app wires the stores, resolver, lifecycle, sync engine, and
// environment manager into the programmatic surface the CLI binds to.
// Components are constructed once from the runtime settings; the remote
// store is built lazily so purely local operations never touch the AWS
// credential chain.
package app

import (
	"context"

	"github.com/systmms/envsync/internal/config"
	"github.com/systmms/envsync/internal/configstore"
	"github.com/systmms/envsync/internal/envmanager"
	eserrors "github.com/systmms/envsync/internal/errors"
	"github.com/systmms/envsync/internal/lifecycle"
	"github.com/systmms/envsync/internal/resolve"
	"github.com/systmms/envsync/internal/secretstore"
	"github.com/systmms/envsync/internal/syncer"
)

// Source selects which view GetConfig reads.
type Source int

const (
	SourceLocal Source = iota
	SourceRemote
	SourceMerged
)

// ParseSource converts a CLI flag value to a Source.
func ParseSource(s string) (Source, error) {
	switch s {
	case "local":
		return SourceLocal, nil
	case "aws":
		return SourceRemote, nil
	case "merged", "":
		return SourceMerged, nil
	default:
		return SourceMerged, eserrors.E(eserrors.KindValidation, "invalid source '%s'", s).
			WithSuggestion("Use --source local, aws, or merged")
	}
}

// Format selects the output projection of GetConfig.
type Format int

const (
	FormatJSON Format = iota
	FormatEnv
)

// ParseFormat converts a CLI flag value to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json", "":
		return FormatJSON, nil
	case "env":
		return FormatEnv, nil
	default:
		return FormatJSON, eserrors.E(eserrors.KindValidation, "invalid format '%s'", s).
			WithSuggestion("Use --format json or env")
	}
}

// Target selects which stores SetConfig writes.
type Target int

const (
	TargetLocal Target = iota
	TargetRemote
	TargetBoth
)

// ParseTarget converts a CLI flag value to a Target.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "local", "":
		return TargetLocal, nil
	case "aws":
		return TargetRemote, nil
	case "both":
		return TargetBoth, nil
	default:
		return TargetLocal, eserrors.E(eserrors.KindValidation, "invalid target '%s'", s).
			WithSuggestion("Use --target local, aws, or both")
	}
}

// App is the entry point for every operation.
type App struct {
	settings *config.Settings
	local    *configstore.Store
	remote   *secretstore.Store

	// storeOpts are applied when the remote store is built; tests inject a
	// fake client here.
	storeOpts []secretstore.Option
}

// Option configures the App.
type Option func(*App)

// WithSecretStoreOptions forwards options to the remote store constructor.
func WithSecretStoreOptions(opts ...secretstore.Option) Option {
	return func(a *App) {
		a.storeOpts = opts
	}
}

// New creates the application from resolved settings.
func New(settings *config.Settings, opts ...Option) *App {
	a := &App{
		settings: settings,
		local:    configstore.New(settings.ConfigDir),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *App) ensureRemote(ctx context.Context) (*secretstore.Store, error) {
	if a.remote != nil {
		return a.remote, nil
	}
	if err := a.settings.RequirePackageName(); err != nil {
		return nil, err
	}
	store, err := secretstore.New(ctx, a.settings, a.storeOpts...)
	if err != nil {
		return nil, err
	}
	a.remote = store
	return store, nil
}

func (a *App) resolver(ctx context.Context) (*resolve.Resolver, error) {
	remote, err := a.ensureRemote(ctx)
	if err != nil {
		return nil, err
	}
	return resolve.New(a.local, remote, a.settings.PackageName), nil
}

func (a *App) lifecycle(ctx context.Context) (*lifecycle.Lifecycle, error) {
	remote, err := a.ensureRemote(ctx)
	if err != nil {
		return nil, err
	}
	return lifecycle.New(remote, a.settings.Logger), nil
}

func (a *App) engine(ctx context.Context) (*syncer.Engine, error) {
	remote, err := a.ensureRemote(ctx)
	if err != nil {
		return nil, err
	}
	lc := lifecycle.New(remote, a.settings.Logger)
	return syncer.New(a.local, remote, lc, a.settings.PackageName, a.settings.Logger), nil
}

// GetConfig renders the requested view of an environment's configuration.
func (a *App) GetConfig(ctx context.Context, env string, source Source, format Format) (string, error) {
	var (
		doc configstore.Document
		err error
	)

	switch source {
	case SourceLocal:
		doc, err = resolve.New(a.local, nil, "").Local(env)
	case SourceRemote:
		var r *resolve.Resolver
		r, err = a.resolver(ctx)
		if err == nil {
			doc, err = r.Remote(ctx, env)
		}
	default:
		var r *resolve.Resolver
		r, err = a.resolver(ctx)
		if err == nil {
			doc, err = r.Merged(ctx, env)
		}
	}
	if err != nil {
		return "", err
	}

	if format == FormatEnv {
		return resolve.ToEnvFormat(doc)
	}
	return resolve.ToJSON(doc)
}

// SetConfig assigns one key in an environment's document. The value is
// already JSON-typed; raw string interpretation happens at the CLI
// boundary. Writes are full-document read-modify-write.
func (a *App) SetConfig(ctx context.Context, key string, value interface{}, env string, target Target) error {
	if key == "" {
		return eserrors.E(eserrors.KindValidation, "key must not be empty")
	}

	if target == TargetLocal || target == TargetBoth {
		doc, err := a.local.Read(env)
		if err != nil {
			return err
		}
		doc[key] = value
		if err := a.local.Write(env, doc); err != nil {
			return err
		}
	}

	if target == TargetRemote || target == TargetBoth {
		lc, err := a.lifecycle(ctx)
		if err != nil {
			return err
		}

		name := secretstore.Name(a.settings.PackageName, env)
		doc, err := lc.Read(ctx, name)
		if err != nil {
			if !eserrors.IsNotFound(err) {
				return a.maybeDivergence(target, "set", err)
			}
			doc = configstore.Document{}
		}
		doc[key] = value

		// The payload was just read; overwrite without a checkpoint.
		if _, err := lc.Upsert(ctx, name, doc, "", lifecycle.UpsertOptions{Override: true}); err != nil {
			return a.maybeDivergence(target, "set", err)
		}
	}

	return nil
}

// maybeDivergence upgrades a remote failure to a divergence report when the
// local half of a two-store write already succeeded.
func (a *App) maybeDivergence(target Target, operation string, err error) error {
	if target != TargetBoth {
		return err
	}
	return &eserrors.DivergenceError{
		Operation: operation,
		Succeeded: "local",
		Failed:    "remote",
		Err:       err,
	}
}

// EnvCreate creates a local environment, optionally cloned from a template.
func (a *App) EnvCreate(name string, opts envmanager.CreateOptions) error {
	m := envmanager.New(a.local, nil, a.settings.PackageName, a.settings.Logger)
	return m.Create(name, opts)
}

// EnvList enumerates environments; with opts.RemoteStatus each is annotated
// with its remote secret state.
func (a *App) EnvList(ctx context.Context, opts envmanager.ListOptions) ([]envmanager.Environment, error) {
	var lc *lifecycle.Lifecycle
	if opts.RemoteStatus {
		var err error
		lc, err = a.lifecycle(ctx)
		if err != nil {
			return nil, err
		}
	}
	m := envmanager.New(a.local, lc, a.settings.PackageName, a.settings.Logger)
	return m.List(ctx, opts)
}

// EnvDelete removes a local environment, optionally cascading into the
// remote secret.
func (a *App) EnvDelete(ctx context.Context, name string, opts envmanager.DeleteOptions) (envmanager.DeleteResult, error) {
	var lc *lifecycle.Lifecycle
	if opts.CascadeRemote {
		var err error
		lc, err = a.lifecycle(ctx)
		if err != nil {
			return envmanager.DeleteResult{}, err
		}
	}
	m := envmanager.New(a.local, lc, a.settings.PackageName, a.settings.Logger)
	return m.Delete(ctx, name, opts)
}

// Push writes the local view to the remote secret.
func (a *App) Push(ctx context.Context, env string, opts syncer.Options) (syncer.Result, error) {
	e, err := a.engine(ctx)
	if err != nil {
		return syncer.Result{}, err
	}
	return e.Push(ctx, env, opts)
}

// Pull overwrites the local document from the remote secret.
func (a *App) Pull(ctx context.Context, env string, opts syncer.Options) (syncer.Result, error) {
	e, err := a.engine(ctx)
	if err != nil {
		return syncer.Result{}, err
	}
	return e.Pull(ctx, env, opts)
}

// Sync reconciles both sides with the given preference.
func (a *App) Sync(ctx context.Context, env string, prefer syncer.Preference) (syncer.Result, error) {
	e, err := a.engine(ctx)
	if err != nil {
		return syncer.Result{}, err
	}
	return e.Sync(ctx, env, prefer)
}

// SecretDelete deletes the environment's remote secret only.
func (a *App) SecretDelete(ctx context.Context, env string, opts lifecycle.DeleteOptions) (lifecycle.DeleteResult, error) {
	lc, err := a.lifecycle(ctx)
	if err != nil {
		return lifecycle.DeleteResult{}, err
	}
	return lc.Delete(ctx, secretstore.Name(a.settings.PackageName, env), opts)
}
