package envmanager_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/envsync/internal/config"
	"github.com/systmms/envsync/internal/configstore"
	"github.com/systmms/envsync/internal/envmanager"
	eserrors "github.com/systmms/envsync/internal/errors"
	"github.com/systmms/envsync/internal/lifecycle"
	"github.com/systmms/envsync/internal/logging"
	"github.com/systmms/envsync/internal/secretstore"
	"github.com/systmms/envsync/tests/fakes"
)

func newManager(t *testing.T) (*envmanager.Manager, *configstore.Store, *fakes.FakeSecretsManagerClient) {
	t.Helper()
	local := configstore.New(t.TempDir())
	client := fakes.NewFakeSecretsManagerClient()
	remote, err := secretstore.New(context.Background(), &config.Settings{Region: "us-east-1"}, secretstore.WithClient(client))
	require.NoError(t, err)
	logger := logging.New(false, true)
	return envmanager.New(local, lifecycle.New(remote, logger), "my-app", logger), local, client
}

func TestCreateMinimalDocument(t *testing.T) {
	t.Parallel()

	m, local, _ := newManager(t)

	require.NoError(t, m.Create("staging", envmanager.CreateOptions{}))

	doc, err := local.Read("staging")
	require.NoError(t, err)
	assert.Equal(t, configstore.Document{"environment": "staging"}, doc)
}

func TestCreateExistingIsConflict(t *testing.T) {
	t.Parallel()

	m, local, _ := newManager(t)
	require.NoError(t, local.Write("staging", configstore.Document{"environment": "staging", "a": "1"}))

	err := m.Create("staging", envmanager.CreateOptions{})
	require.Error(t, err)
	assert.Equal(t, eserrors.KindConflict, eserrors.GetKind(err))

	// No mutation on conflict.
	doc, err := local.Read("staging")
	require.NoError(t, err)
	assert.Equal(t, configstore.Document{"environment": "staging", "a": "1"}, doc)
}

func TestCreateFromTemplate(t *testing.T) {
	t.Parallel()

	m, local, _ := newManager(t)
	require.NoError(t, local.Write("production", configstore.Document{
		"environment": "production",
		"replicas":    float64(5),
		"db":          map[string]interface{}{"host": "prod-db"},
	}))

	require.NoError(t, m.Create("qa", envmanager.CreateOptions{Template: "production"}))

	doc, err := local.Read("qa")
	require.NoError(t, err)
	assert.Equal(t, configstore.Document{
		"environment": "qa",
		"replicas":    float64(5),
		"db":          map[string]interface{}{"host": "prod-db"},
	}, doc)

	// Template document is unchanged.
	prod, err := local.Read("production")
	require.NoError(t, err)
	assert.Equal(t, "production", prod["environment"])
}

func TestCreateFromMissingTemplate(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)

	err := m.Create("qa", envmanager.CreateOptions{Template: "production"})
	require.Error(t, err)
	assert.True(t, eserrors.IsNotFound(err))
}

func TestCreateDefaultIsReserved(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)

	err := m.Create("default", envmanager.CreateOptions{})
	require.Error(t, err)
	assert.Equal(t, eserrors.KindValidation, eserrors.GetKind(err))
}

func TestListNeverIncludesDefault(t *testing.T) {
	t.Parallel()

	m, local, _ := newManager(t)
	for _, env := range []string{"default", "production", "staging"} {
		require.NoError(t, local.Write(env, configstore.Document{"environment": env}))
	}

	envs, err := m.List(context.Background(), envmanager.ListOptions{})
	require.NoError(t, err)
	require.Len(t, envs, 2)
	assert.Equal(t, "production", envs[0].Name)
	assert.Equal(t, "staging", envs[1].Name)
	for _, env := range envs {
		assert.Equal(t, envmanager.RemoteUnchecked, env.Remote)
	}
}

func TestListWithRemoteStatus(t *testing.T) {
	t.Parallel()

	m, local, client := newManager(t)
	for _, env := range []string{"present", "absent", "broken"} {
		require.NoError(t, local.Write(env, configstore.Document{"environment": env}))
	}
	client.AddSecretString("my-app/present", `{"a":"1"}`)
	client.Errors["my-app/broken"] = errors.New("AccessDeniedException")

	envs, err := m.List(context.Background(), envmanager.ListOptions{RemoteStatus: true})
	require.NoError(t, err)
	require.Len(t, envs, 3)

	byName := map[string]envmanager.Environment{}
	for _, env := range envs {
		byName[env.Name] = env
	}

	assert.Equal(t, envmanager.RemotePresent, byName["present"].Remote)
	assert.Equal(t, envmanager.RemoteAbsent, byName["absent"].Remote)
	assert.Equal(t, envmanager.RemoteUnknown, byName["broken"].Remote)
	assert.Error(t, byName["broken"].Err)
}

func TestDeleteLocalOnly(t *testing.T) {
	t.Parallel()

	m, local, client := newManager(t)
	require.NoError(t, local.Write("staging", configstore.Document{"environment": "staging"}))
	client.AddSecretString("my-app/staging", `{"a":"1"}`)

	result, err := m.Delete(context.Background(), "staging", envmanager.DeleteOptions{})
	require.NoError(t, err)
	assert.Nil(t, result.Cascade)

	exists, err := local.Exists("staging")
	require.NoError(t, err)
	assert.False(t, exists)

	// Remote untouched without cascade.
	assert.NotEmpty(t, client.SecretValue("my-app/staging"))
}

func TestDeleteCascade(t *testing.T) {
	t.Parallel()

	m, local, client := newManager(t)
	require.NoError(t, local.Write("staging", configstore.Document{"environment": "staging"}))
	client.AddSecretString("my-app/staging", `{"a":"1"}`)

	result, err := m.Delete(context.Background(), "staging", envmanager.DeleteOptions{
		CascadeRemote: true,
		RecoveryDays:  10,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Cascade)
	assert.Equal(t, int64(10), result.Cascade.RecoveryDays)
	require.NotNil(t, result.Cascade.Deadline)
}

func TestDeleteCascadeMissingRemoteIsFine(t *testing.T) {
	t.Parallel()

	m, local, _ := newManager(t)
	require.NoError(t, local.Write("staging", configstore.Document{"environment": "staging"}))

	result, err := m.Delete(context.Background(), "staging", envmanager.DeleteOptions{CascadeRemote: true, Force: true})
	require.NoError(t, err)
	assert.Nil(t, result.Cascade)
}

func TestDeleteCascadeFailureIsDivergence(t *testing.T) {
	t.Parallel()

	m, local, client := newManager(t)
	require.NoError(t, local.Write("staging", configstore.Document{"environment": "staging"}))
	client.AddSecretString("my-app/staging", `{"a":"1"}`)
	client.Errors["my-app/staging"] = errors.New("ThrottlingException")

	_, err := m.Delete(context.Background(), "staging", envmanager.DeleteOptions{CascadeRemote: true, Force: true})
	require.Error(t, err)

	var div *eserrors.DivergenceError
	require.True(t, errors.As(err, &div))
	assert.Equal(t, "local", div.Succeeded)

	// Local deletion stands even though the cascade failed.
	exists, err := local.Exists("staging")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestDeleteDefaultIsRejected(t *testing.T) {
	t.Parallel()

	m, local, _ := newManager(t)
	require.NoError(t, local.Write("default", configstore.Document{"shared": "yes"}))

	_, err := m.Delete(context.Background(), "default", envmanager.DeleteOptions{})
	require.Error(t, err)
	assert.Equal(t, eserrors.KindValidation, eserrors.GetKind(err))

	exists, err := local.Exists("default")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteMissingEnvironment(t *testing.T) {
	t.Parallel()

	m, _, _ := newManager(t)

	_, err := m.Delete(context.Background(), "ghost", envmanager.DeleteOptions{})
	require.Error(t, err)
	assert.True(t, eserrors.IsNotFound(err))
}
