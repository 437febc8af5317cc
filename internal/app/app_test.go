package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/envsync/internal/app"
	"github.com/systmms/envsync/internal/config"
	"github.com/systmms/envsync/internal/configstore"
	"github.com/systmms/envsync/internal/envmanager"
	eserrors "github.com/systmms/envsync/internal/errors"
	"github.com/systmms/envsync/internal/logging"
	"github.com/systmms/envsync/internal/secretstore"
	"github.com/systmms/envsync/internal/syncer"
	"github.com/systmms/envsync/tests/fakes"
)

func newApp(t *testing.T) (*app.App, *configstore.Store, *fakes.FakeSecretsManagerClient) {
	t.Helper()
	dir := t.TempDir()
	client := fakes.NewFakeSecretsManagerClient()
	settings := &config.Settings{
		PackageName: "my-app",
		Region:      "us-east-1",
		ConfigDir:   dir,
		Logger:      logging.New(false, true),
	}
	a := app.New(settings, app.WithSecretStoreOptions(secretstore.WithClient(client)))
	return a, configstore.New(dir), client
}

func TestGetConfigSources(t *testing.T) {
	t.Parallel()

	a, local, client := newApp(t)
	require.NoError(t, local.Write("default", configstore.Document{"a": "base"}))
	require.NoError(t, local.Write("staging", configstore.Document{"b": "env"}))
	client.AddSecretString("my-app/staging", `{"a":"remote"}`)

	out, err := a.GetConfig(context.Background(), "staging", app.SourceLocal, app.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"base","b":"env"}`, out)

	out, err = a.GetConfig(context.Background(), "staging", app.SourceRemote, app.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"remote"}`, out)

	out, err = a.GetConfig(context.Background(), "staging", app.SourceMerged, app.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"remote","b":"env"}`, out)
}

func TestGetConfigEnvFormat(t *testing.T) {
	t.Parallel()

	a, local, _ := newApp(t)
	require.NoError(t, local.Write("staging", configstore.Document{"databaseUrl": "postgres://x"}))

	out, err := a.GetConfig(context.Background(), "staging", app.SourceLocal, app.FormatEnv)
	require.NoError(t, err)
	assert.Equal(t, "DATABASE_URL=postgres://x", out)
}

func TestGetConfigLocalNeedsNoPackageName(t *testing.T) {
	t.Parallel()

	a, local, _ := newApp(t)
	require.NoError(t, local.Write("staging", configstore.Document{"a": "1"}))

	// Remote sources require a package identity; local does not.
	_, err := a.GetConfig(context.Background(), "staging", app.SourceLocal, app.FormatJSON)
	assert.NoError(t, err)
}

func TestGetConfigRemoteRequiresPackageName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	settings := &config.Settings{Region: "us-east-1", ConfigDir: dir, Logger: logging.New(false, true)}
	a := app.New(settings)

	_, err := a.GetConfig(context.Background(), "staging", app.SourceRemote, app.FormatJSON)
	require.Error(t, err)
	assert.Equal(t, eserrors.KindValidation, eserrors.GetKind(err))
}

func TestSetConfigLocal(t *testing.T) {
	t.Parallel()

	a, local, _ := newApp(t)
	require.NoError(t, local.Write("staging", configstore.Document{"environment": "staging"}))

	require.NoError(t, a.SetConfig(context.Background(), "replicas", float64(3), "staging", app.TargetLocal))

	doc, err := local.Read("staging")
	require.NoError(t, err)
	assert.Equal(t, float64(3), doc["replicas"])
}

func TestSetConfigRemoteCreatesSecret(t *testing.T) {
	t.Parallel()

	a, _, client := newApp(t)

	require.NoError(t, a.SetConfig(context.Background(), "apiKey", "abc", "staging", app.TargetRemote))
	assert.JSONEq(t, `{"apiKey":"abc"}`, client.SecretValue("my-app/staging"))
}

func TestSetConfigBoth(t *testing.T) {
	t.Parallel()

	a, local, client := newApp(t)
	require.NoError(t, local.Write("staging", configstore.Document{"environment": "staging"}))
	client.AddSecretString("my-app/staging", `{"old":"kept"}`)

	require.NoError(t, a.SetConfig(context.Background(), "apiKey", "abc", "staging", app.TargetBoth))

	doc, err := local.Read("staging")
	require.NoError(t, err)
	assert.Equal(t, "abc", doc["apiKey"])
	assert.JSONEq(t, `{"old":"kept","apiKey":"abc"}`, client.SecretValue("my-app/staging"))
}

func TestSetConfigMissingLocalEnvironment(t *testing.T) {
	t.Parallel()

	a, _, _ := newApp(t)

	err := a.SetConfig(context.Background(), "k", "v", "ghost", app.TargetLocal)
	require.Error(t, err)
	assert.True(t, eserrors.IsNotFound(err))
}

func TestSetConfigNullLocalDocument(t *testing.T) {
	t.Parallel()

	a, local, _ := newApp(t)
	require.NoError(t, os.WriteFile(filepath.Join(local.Dir(), "staging.json"), []byte("null"), 0o644))

	err := a.SetConfig(context.Background(), "k", "v", "staging", app.TargetLocal)
	require.Error(t, err)
	assert.Equal(t, eserrors.KindIO, eserrors.GetKind(err))
}

func TestSetConfigNullRemotePayload(t *testing.T) {
	t.Parallel()

	a, _, client := newApp(t)
	client.AddSecretString("my-app/staging", `null`)

	err := a.SetConfig(context.Background(), "k", "v", "staging", app.TargetRemote)
	require.Error(t, err)
	assert.Equal(t, eserrors.KindIO, eserrors.GetKind(err))
}

func TestEnvRoundTrip(t *testing.T) {
	t.Parallel()

	a, _, _ := newApp(t)

	require.NoError(t, a.EnvCreate("staging", envmanager.CreateOptions{}))

	envs, err := a.EnvList(context.Background(), envmanager.ListOptions{})
	require.NoError(t, err)
	require.Len(t, envs, 1)
	assert.Equal(t, "staging", envs[0].Name)

	_, err = a.EnvDelete(context.Background(), "staging", envmanager.DeleteOptions{})
	require.NoError(t, err)

	envs, err = a.EnvList(context.Background(), envmanager.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, envs)
}

func TestPushPullSyncThroughFacade(t *testing.T) {
	t.Parallel()

	a, local, client := newApp(t)
	require.NoError(t, local.Write("staging", configstore.Document{"a": "1"}))

	result, err := a.Push(context.Background(), "staging", syncer.Options{})
	require.NoError(t, err)
	assert.True(t, result.Created)

	client.AddSecretString("my-app/qa", `{"b":"2"}`)
	result, err = a.Pull(context.Background(), "qa", syncer.Options{})
	require.NoError(t, err)
	assert.Equal(t, configstore.Document{"b": "2"}, result.Document)

	result, err = a.Sync(context.Background(), "staging", syncer.PreferLocal)
	require.NoError(t, err)
	assert.Equal(t, configstore.Document{"a": "1"}, result.Document)
}

func TestParsers(t *testing.T) {
	t.Parallel()

	src, err := app.ParseSource("aws")
	require.NoError(t, err)
	assert.Equal(t, app.SourceRemote, src)
	_, err = app.ParseSource("wat")
	assert.Equal(t, eserrors.KindValidation, eserrors.GetKind(err))

	f, err := app.ParseFormat("env")
	require.NoError(t, err)
	assert.Equal(t, app.FormatEnv, f)
	_, err = app.ParseFormat("xml")
	assert.Equal(t, eserrors.KindValidation, eserrors.GetKind(err))

	tgt, err := app.ParseTarget("both")
	require.NoError(t, err)
	assert.Equal(t, app.TargetBoth, tgt)
	_, err = app.ParseTarget("nowhere")
	assert.Equal(t, eserrors.KindValidation, eserrors.GetKind(err))
}
