package config_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/envsync/internal/config"
	eserrors "github.com/systmms/envsync/internal/errors"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "envsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", s.Region)
	assert.Equal(t, "config", s.ConfigDir)
	assert.Empty(t, s.PackageName)
}

func TestLoadFromFile(t *testing.T) {
	path := writeSettings(t, `
packageName: billing-service
region: eu-west-1
configDir: ./deploy/config
`)

	s, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "billing-service", s.PackageName)
	assert.Equal(t, "eu-west-1", s.Region)
	assert.Equal(t, "./deploy/config", s.ConfigDir)
}

func TestLoadMissingFileIsOptional(t *testing.T) {
	s, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.Region)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeSettings(t, `
packageName: billing-service
packgeName: typo
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Equal(t, eserrors.KindValidation, eserrors.GetKind(err))
}

func TestLoadRejectsWrongTypes(t *testing.T) {
	path := writeSettings(t, `
region: 42
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.Equal(t, eserrors.KindValidation, eserrors.GetKind(err))
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeSettings(t, `
region: eu-west-1
`)
	t.Setenv("ENVSYNC_REGION", "ap-southeast-2")
	t.Setenv("ENVSYNC_PACKAGE", "from-env")

	s, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ap-southeast-2", s.Region)
	assert.Equal(t, "from-env", s.PackageName)
}

func TestSecretAccessKeyRedactedInOutput(t *testing.T) {
	path := writeSettings(t, `
accessKeyId: AKIATEST
secretAccessKey: super-secret-value
`)

	s, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "super-secret-value", string(s.SecretAccessKey))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%s", s.SecretAccessKey))
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s.SecretAccessKey))
	assert.NotContains(t, fmt.Sprintf("%+v", *s), "super-secret-value")
}

func TestRequirePackageName(t *testing.T) {
	s := &config.Settings{}
	err := s.RequirePackageName()
	require.Error(t, err)
	assert.Equal(t, eserrors.KindValidation, eserrors.GetKind(err))
	assert.Contains(t, err.Error(), "--package")

	s.PackageName = "app"
	assert.NoError(t, s.RequirePackageName())
}
