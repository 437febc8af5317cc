// Package secretstore wraps AWS Secrets Manager as the remote document
// store. Secrets are addressed as "<packageName>/<environment>" and hold a
// JSON object payload.
//
// Version tokens returned from writes are opaque. Writes are not
// conditional on a previously read token; concurrent remote writers can
// lose updates.
package secretstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/google/uuid"

	"github.com/systmms/envsync/internal/config"
	"github.com/systmms/envsync/internal/configstore"
	eserrors "github.com/systmms/envsync/internal/errors"
	"github.com/systmms/envsync/internal/logging"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used by the
// store. It allows mock injection in tests.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error)
	UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error)
	DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error)
}

// Version identifies one write to a secret.
type Version struct {
	Token string
	ARN   string
}

// Store performs get/create/update/delete against Secrets Manager.
type Store struct {
	client SecretsManagerAPI
	region string
	logger *logging.Logger
}

// Option is a functional option for configuring the store
type Option func(*Store)

// WithClient sets a custom Secrets Manager client (for testing)
func WithClient(client SecretsManagerAPI) Option {
	return func(s *Store) {
		s.client = client
	}
}

// New creates a store from the runtime settings. Unless a client is
// injected, the default AWS credential chain is used, with optional static
// credentials and endpoint override for LocalStack-style testing.
func New(ctx context.Context, settings *config.Settings, opts ...Option) (*Store, error) {
	s := &Store{
		region: settings.Region,
		logger: settings.Logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		var configOpts []func(*awsconfig.LoadOptions) error
		configOpts = append(configOpts, awsconfig.WithRegion(settings.Region))

		if settings.AccessKeyID != "" && settings.SecretAccessKey != "" {
			if s.logger != nil {
				s.logger.Debug("using static credentials: access key %s, secret %s", settings.AccessKeyID, settings.SecretAccessKey)
			}
			configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(settings.AccessKeyID, string(settings.SecretAccessKey), ""),
			))
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
		if err != nil {
			return nil, eserrors.Wrap(eserrors.KindCredentials, err, "failed to load AWS config").
				WithSuggestion("Configure AWS credentials: 'aws configure' or set AWS_PROFILE")
		}

		var clientOpts []func(*secretsmanager.Options)
		if settings.Endpoint != "" {
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = aws.String(settings.Endpoint)
			})
		}
		s.client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}

	return s, nil
}

// Name builds the secret name for an environment. The format is fixed:
// "<packageName>/<environment>".
func Name(packageName, environment string) string {
	return packageName + "/" + environment
}

// Get fetches a secret's payload parsed as a JSON object.
func (s *Store) Get(ctx context.Context, name string) (configstore.Document, error) {
	result, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, s.handleError(err, name, "get")
	}

	if result.SecretString == nil {
		return nil, eserrors.E(eserrors.KindIO, "secret '%s' has no string payload", name)
	}

	var doc configstore.Document
	if err := json.Unmarshal([]byte(*result.SecretString), &doc); err != nil {
		return nil, eserrors.Wrap(eserrors.KindIO, err, "secret '%s' payload is not a JSON object", name)
	}
	// A JSON null unmarshals into a nil map without error.
	if doc == nil {
		return nil, eserrors.E(eserrors.KindIO, "secret '%s' payload is not a JSON object", name)
	}

	if s.logger != nil {
		s.logger.Debug("fetched secret %s: %s", name, logging.RedactDocument(doc))
	}

	return doc, nil
}

// Create creates the secret. Fails with a Conflict error if the name is
// already taken.
func (s *Store) Create(ctx context.Context, name string, payload configstore.Document, description string) (Version, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Version{}, eserrors.Wrap(eserrors.KindIO, err, "failed to encode payload for secret '%s'", name)
	}

	input := &secretsmanager.CreateSecretInput{
		Name:               aws.String(name),
		SecretString:       aws.String(string(data)),
		ClientRequestToken: aws.String(uuid.NewString()),
	}
	if description != "" {
		input.Description = aws.String(description)
	}

	result, err := s.client.CreateSecret(ctx, input)
	if err != nil {
		return Version{}, s.handleError(err, name, "create")
	}

	return Version{
		Token: aws.ToString(result.VersionId),
		ARN:   aws.ToString(result.ARN),
	}, nil
}

// Update replaces the secret's payload, producing a new version token.
// Fails with a NotFound error if the secret does not exist.
func (s *Store) Update(ctx context.Context, name string, payload configstore.Document) (Version, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Version{}, eserrors.Wrap(eserrors.KindIO, err, "failed to encode payload for secret '%s'", name)
	}

	result, err := s.client.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:           aws.String(name),
		SecretString:       aws.String(string(data)),
		ClientRequestToken: aws.String(uuid.NewString()),
	})
	if err != nil {
		return Version{}, s.handleError(err, name, "update")
	}

	return Version{
		Token: aws.ToString(result.VersionId),
		ARN:   aws.ToString(result.ARN),
	}, nil
}

// Delete removes the secret. With force the deletion is immediate and
// irreversible; otherwise it is scheduled after recoveryDays and the
// returned time is the deadline until which the secret remains recoverable
// through AWS directly.
func (s *Store) Delete(ctx context.Context, name string, force bool, recoveryDays int64) (*time.Time, error) {
	input := &secretsmanager.DeleteSecretInput{
		SecretId: aws.String(name),
	}
	if force {
		input.ForceDeleteWithoutRecovery = aws.Bool(true)
	} else {
		input.RecoveryWindowInDays = aws.Int64(recoveryDays)
	}

	result, err := s.client.DeleteSecret(ctx, input)
	if err != nil {
		return nil, s.handleError(err, name, "delete")
	}

	return result.DeletionDate, nil
}

// handleError maps SDK failures onto the error taxonomy.
func (s *Store) handleError(err error, name, operation string) error {
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &notFound) {
		return eserrors.Wrap(eserrors.KindNotFound, err, "secret '%s' not found", name).
			WithSuggestion("Verify the secret name and region. List secrets with: 'aws secretsmanager list-secrets'")
	}

	var exists *types.ResourceExistsException
	if errors.As(err, &exists) {
		return eserrors.Wrap(eserrors.KindConflict, err, "secret '%s' already exists", name)
	}

	if isAuthError(err) {
		return eserrors.Wrap(eserrors.KindCredentials, err, "AWS authentication/authorization failed during %s of '%s'", operation, name).
			WithSuggestion("Configure AWS credentials: 'aws configure', set AWS_PROFILE, or check IAM permissions for secretsmanager:" + iamAction(operation))
	}

	return fmt.Errorf("AWS Secrets Manager error during %s of '%s': %w", operation, name, err)
}

func iamAction(operation string) string {
	switch operation {
	case "get":
		return "GetSecretValue"
	case "create":
		return "CreateSecret"
	case "update":
		return "UpdateSecret"
	case "delete":
		return "DeleteSecret"
	default:
		return "*"
	}
}

func isAuthError(err error) bool {
	// The SDK surfaces these as generic API errors, not typed exceptions.
	errStr := err.Error()
	return strings.Contains(errStr, "AccessDenied") ||
		strings.Contains(errStr, "UnauthorizedOperation") ||
		strings.Contains(errStr, "InvalidUserID") ||
		strings.Contains(errStr, "ExpiredToken") ||
		strings.Contains(errStr, "Forbidden") ||
		strings.Contains(errStr, "no EC2 IMDS role found") ||
		strings.Contains(errStr, "failed to retrieve credentials")
}
