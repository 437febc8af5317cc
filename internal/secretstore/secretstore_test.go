package secretstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/envsync/internal/config"
	"github.com/systmms/envsync/internal/configstore"
	eserrors "github.com/systmms/envsync/internal/errors"
	"github.com/systmms/envsync/internal/secretstore"
	"github.com/systmms/envsync/tests/fakes"
)

func newStore(t *testing.T, client *fakes.FakeSecretsManagerClient) *secretstore.Store {
	t.Helper()
	store, err := secretstore.New(context.Background(), &config.Settings{Region: "us-east-1"}, secretstore.WithClient(client))
	require.NoError(t, err)
	return store
}

func TestName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		packageName string
		environment string
		want        string
	}{
		{name: "simple", packageName: "my-app", environment: "production", want: "my-app/production"},
		{name: "scoped_package", packageName: "acme/billing", environment: "staging", want: "acme/billing/staging"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, secretstore.Name(tt.packageName, tt.environment))
		})
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSecretsManagerClient()
	client.AddSecretString("my-app/production", `{"apiKey":"abc","retries":3}`)
	store := newStore(t, client)

	doc, err := store.Get(context.Background(), "my-app/production")
	require.NoError(t, err)
	assert.Equal(t, configstore.Document{"apiKey": "abc", "retries": float64(3)}, doc)
}

func TestGetNotFound(t *testing.T) {
	t.Parallel()

	store := newStore(t, fakes.NewFakeSecretsManagerClient())

	_, err := store.Get(context.Background(), "my-app/missing")
	require.Error(t, err)
	assert.True(t, eserrors.IsNotFound(err))
}

func TestGetAuthFailure(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSecretsManagerClient()
	client.Errors["my-app/production"] = errors.New("operation error Secrets Manager: GetSecretValue, AccessDeniedException")
	store := newStore(t, client)

	_, err := store.Get(context.Background(), "my-app/production")
	require.Error(t, err)
	assert.Equal(t, eserrors.KindCredentials, eserrors.GetKind(err))
	assert.Contains(t, err.Error(), "aws configure")
}

func TestGetNonObjectPayload(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSecretsManagerClient()
	client.AddSecretString("my-app/production", `"just a string"`)
	store := newStore(t, client)

	_, err := store.Get(context.Background(), "my-app/production")
	require.Error(t, err)
	assert.Equal(t, eserrors.KindIO, eserrors.GetKind(err))
}

func TestGetNullPayload(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSecretsManagerClient()
	client.AddSecretString("my-app/production", `null`)
	store := newStore(t, client)

	_, err := store.Get(context.Background(), "my-app/production")
	require.Error(t, err)
	assert.Equal(t, eserrors.KindIO, eserrors.GetKind(err))
	assert.Contains(t, err.Error(), "not a JSON object")
}

func TestCreate(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSecretsManagerClient()
	store := newStore(t, client)

	version, err := store.Create(context.Background(), "my-app/staging", configstore.Document{"a": "1"}, "staging configuration")
	require.NoError(t, err)
	assert.NotEmpty(t, version.Token)
	assert.NotEmpty(t, version.ARN)

	var stored map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(client.SecretValue("my-app/staging")), &stored))
	assert.Equal(t, map[string]interface{}{"a": "1"}, stored)
}

func TestCreateConflict(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSecretsManagerClient()
	client.AddSecretString("my-app/staging", `{}`)
	store := newStore(t, client)

	_, err := store.Create(context.Background(), "my-app/staging", configstore.Document{}, "")
	require.Error(t, err)
	assert.Equal(t, eserrors.KindConflict, eserrors.GetKind(err))
}

func TestUpdateBumpsVersionToken(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSecretsManagerClient()
	client.AddSecretString("my-app/production", `{"a":"1"}`)
	before := client.VersionToken("my-app/production")
	store := newStore(t, client)

	version, err := store.Update(context.Background(), "my-app/production", configstore.Document{"a": "2"})
	require.NoError(t, err)
	assert.NotEqual(t, before, version.Token)
	assert.JSONEq(t, `{"a":"2"}`, client.SecretValue("my-app/production"))
}

func TestUpdateNotFound(t *testing.T) {
	t.Parallel()

	store := newStore(t, fakes.NewFakeSecretsManagerClient())

	_, err := store.Update(context.Background(), "my-app/missing", configstore.Document{})
	require.Error(t, err)
	assert.True(t, eserrors.IsNotFound(err))
}

func TestDeleteForceIsImmediate(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSecretsManagerClient()
	client.AddSecretString("my-app/old", `{}`)
	store := newStore(t, client)

	_, err := store.Delete(context.Background(), "my-app/old", true, 0)
	require.NoError(t, err)

	_, err = store.Get(context.Background(), "my-app/old")
	assert.True(t, eserrors.IsNotFound(err))
}

func TestDeleteScheduledReturnsDeadline(t *testing.T) {
	t.Parallel()

	client := fakes.NewFakeSecretsManagerClient()
	client.AddSecretString("my-app/old", `{}`)
	store := newStore(t, client)

	deadline, err := store.Delete(context.Background(), "my-app/old", false, 15)
	require.NoError(t, err)
	require.NotNil(t, deadline)

	expected := time.Now().AddDate(0, 0, 15)
	assert.WithinDuration(t, expected, *deadline, time.Minute)
}
