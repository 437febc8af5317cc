// Package config holds the runtime settings every envsync component is
// constructed with. Settings are resolved once in main and passed by
// reference; no component performs hidden lookups at operation time.
package config

import (
	"encoding/json"
	"os"
	"strings"

	eserrors "github.com/systmms/envsync/internal/errors"
	"github.com/systmms/envsync/internal/logging"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// Settings is the explicit runtime configuration for one invocation.
type Settings struct {
	// PackageName namespaces every secret created by this instance.
	// Required for any remote operation.
	PackageName string `yaml:"packageName" json:"packageName"`

	// Region is the AWS region for the secret store.
	Region string `yaml:"region" json:"region"`

	// ConfigDir holds the per-environment JSON documents.
	ConfigDir string `yaml:"configDir" json:"configDir"`

	// Endpoint overrides the Secrets Manager endpoint (LocalStack, tests).
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// AccessKeyID and SecretAccessKey are static credentials for
	// LocalStack-style testing only; normal use relies on the default
	// AWS credential chain. SecretAccessKey is a logging.Secret so any
	// formatted output of the settings prints [REDACTED].
	AccessKeyID     string         `yaml:"accessKeyId,omitempty" json:"accessKeyId,omitempty"`
	SecretAccessKey logging.Secret `yaml:"secretAccessKey,omitempty" json:"secretAccessKey,omitempty"`

	// NonInteractive disables every decision prompt.
	NonInteractive bool `yaml:"-" json:"-"`

	Logger *logging.Logger `yaml:"-" json:"-"`
}

// settingsSchema validates the envsync.yaml shape before any field is used.
const settingsSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "packageName": {"type": "string", "minLength": 1},
    "region": {"type": "string", "minLength": 1},
    "configDir": {"type": "string", "minLength": 1},
    "endpoint": {"type": "string"},
    "accessKeyId": {"type": "string"},
    "secretAccessKey": {"type": "string"}
  }
}`

// Load resolves settings from an optional YAML file, then ENVSYNC_*
// environment variables, then defaults. Flag values are applied by the
// caller afterwards, so precedence ends up flags > env > file > defaults.
func Load(path string) (*Settings, error) {
	s := &Settings{
		Region:    "us-east-1",
		ConfigDir: "config",
	}

	if path != "" {
		if err := s.loadFile(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("ENVSYNC_PACKAGE"); v != "" {
		s.PackageName = v
	}
	if v := os.Getenv("ENVSYNC_REGION"); v != "" {
		s.Region = v
	}
	if v := os.Getenv("ENVSYNC_CONFIG_DIR"); v != "" {
		s.ConfigDir = v
	}
	if v := os.Getenv("ENVSYNC_ENDPOINT"); v != "" {
		s.Endpoint = v
	}

	return s, nil
}

func (s *Settings) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// The settings file is optional.
			return nil
		}
		return eserrors.Wrap(eserrors.KindIO, err, "failed to read settings file %s", path).
			WithSuggestion("Check file permissions and path")
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return eserrors.Wrap(eserrors.KindValidation, err, "invalid YAML in %s", path).
			WithSuggestion("Check for indentation errors and missing quotes")
	}

	if err := validateSettings(raw); err != nil {
		return eserrors.Wrap(eserrors.KindValidation, err, "invalid settings in %s", path)
	}

	return yaml.Unmarshal(data, s)
}

// validateSettings checks the raw document against the embedded schema so
// typos surface as validation errors instead of silently ignored fields.
func validateSettings(raw map[string]interface{}) error {
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(settingsSchema),
		gojsonschema.NewBytesLoader(jsonData),
	)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var msgs []string
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return eserrors.E(eserrors.KindValidation, "schema validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
	}

	return nil
}

// RequirePackageName fails early when a remote operation is attempted
// without a package identity configured.
func (s *Settings) RequirePackageName() error {
	if s.PackageName == "" {
		return eserrors.E(eserrors.KindValidation, "package name is required for remote operations").
			WithSuggestion("Use --package <name>, set ENVSYNC_PACKAGE, or add packageName to envsync.yaml")
	}
	return nil
}
