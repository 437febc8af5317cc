// Package fakes provides in-memory stand-ins for the AWS SDK clients used
// in unit tests.
package fakes

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager/types"
	"github.com/google/uuid"
)

// SecretData holds the state of one fake secret.
type SecretData struct {
	SecretString *string
	VersionId    *string
	ARN          *string
	Description  *string
	CreatedDate  *time.Time
	// DeletionDate is set when the secret is scheduled for deletion.
	// Scheduled secrets still exist but reject reads and writes, matching
	// Secrets Manager behavior.
	DeletionDate *time.Time
}

// FakeSecretsManagerClient is an in-memory implementation of the Secrets
// Manager API subset envsync uses.
type FakeSecretsManagerClient struct {
	mu sync.Mutex

	// Secrets maps secret names to their data
	Secrets map[string]*SecretData
	// Errors maps secret names to errors to return for any operation
	Errors map[string]error

	// Per-method overrides for custom behavior
	GetSecretValueFunc func(ctx context.Context, params *secretsmanager.GetSecretValueInput) (*secretsmanager.GetSecretValueOutput, error)
	CreateSecretFunc   func(ctx context.Context, params *secretsmanager.CreateSecretInput) (*secretsmanager.CreateSecretOutput, error)
	UpdateSecretFunc   func(ctx context.Context, params *secretsmanager.UpdateSecretInput) (*secretsmanager.UpdateSecretOutput, error)
	DeleteSecretFunc   func(ctx context.Context, params *secretsmanager.DeleteSecretInput) (*secretsmanager.DeleteSecretOutput, error)
}

// NewFakeSecretsManagerClient creates a new fake client
func NewFakeSecretsManagerClient() *FakeSecretsManagerClient {
	return &FakeSecretsManagerClient{
		Secrets: make(map[string]*SecretData),
		Errors:  make(map[string]error),
	}
}

// AddSecretString seeds a secret with a string payload
func (f *FakeSecretsManagerClient) AddSecretString(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	f.Secrets[name] = &SecretData{
		SecretString: aws.String(value),
		VersionId:    aws.String(uuid.NewString()),
		ARN:          aws.String(fakeARN(name)),
		CreatedDate:  &now,
	}
}

// SecretValue returns the current payload of a seeded secret, or "" if the
// secret does not exist.
func (f *FakeSecretsManagerClient) SecretValue(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Secrets[name]
	if !ok || data.SecretString == nil {
		return ""
	}
	return *data.SecretString
}

// VersionToken returns the current version id of a seeded secret.
func (f *FakeSecretsManagerClient) VersionToken(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.Secrets[name]
	if !ok || data.VersionId == nil {
		return ""
	}
	return *data.VersionId
}

func fakeARN(name string) string {
	return "arn:aws:secretsmanager:us-east-1:123456789012:secret:" + name
}

func (f *FakeSecretsManagerClient) forcedError(name string) error {
	if err, ok := f.Errors[name]; ok {
		return err
	}
	return nil
}

// GetSecretValue implements SecretsManagerAPI
func (f *FakeSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	if f.GetSecretValueFunc != nil {
		return f.GetSecretValueFunc(ctx, params)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.SecretId)
	if err := f.forcedError(name); err != nil {
		return nil, err
	}

	data, ok := f.Secrets[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Secrets Manager can't find the specified secret.")}
	}
	if data.DeletionDate != nil {
		return nil, &types.InvalidRequestException{Message: aws.String("You can't perform this operation on the secret because it was marked for deletion.")}
	}

	return &secretsmanager.GetSecretValueOutput{
		ARN:          data.ARN,
		Name:         aws.String(name),
		SecretString: data.SecretString,
		VersionId:    data.VersionId,
		CreatedDate:  data.CreatedDate,
	}, nil
}

// CreateSecret implements SecretsManagerAPI
func (f *FakeSecretsManagerClient) CreateSecret(ctx context.Context, params *secretsmanager.CreateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.CreateSecretOutput, error) {
	if f.CreateSecretFunc != nil {
		return f.CreateSecretFunc(ctx, params)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.Name)
	if err := f.forcedError(name); err != nil {
		return nil, err
	}

	if existing, ok := f.Secrets[name]; ok && existing.DeletionDate == nil {
		return nil, &types.ResourceExistsException{Message: aws.String("A resource with the ID you requested already exists.")}
	}

	now := time.Now()
	data := &SecretData{
		SecretString: params.SecretString,
		VersionId:    aws.String(uuid.NewString()),
		ARN:          aws.String(fakeARN(name)),
		Description:  params.Description,
		CreatedDate:  &now,
	}
	f.Secrets[name] = data

	return &secretsmanager.CreateSecretOutput{
		ARN:       data.ARN,
		Name:      aws.String(name),
		VersionId: data.VersionId,
	}, nil
}

// UpdateSecret implements SecretsManagerAPI
func (f *FakeSecretsManagerClient) UpdateSecret(ctx context.Context, params *secretsmanager.UpdateSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error) {
	if f.UpdateSecretFunc != nil {
		return f.UpdateSecretFunc(ctx, params)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.SecretId)
	if err := f.forcedError(name); err != nil {
		return nil, err
	}

	data, ok := f.Secrets[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Secrets Manager can't find the specified secret.")}
	}
	if data.DeletionDate != nil {
		return nil, &types.InvalidRequestException{Message: aws.String("You can't perform this operation on the secret because it was marked for deletion.")}
	}

	data.SecretString = params.SecretString
	data.VersionId = aws.String(uuid.NewString())
	if params.Description != nil {
		data.Description = params.Description
	}

	return &secretsmanager.UpdateSecretOutput{
		ARN:       data.ARN,
		Name:      aws.String(name),
		VersionId: data.VersionId,
	}, nil
}

// DeleteSecret implements SecretsManagerAPI
func (f *FakeSecretsManagerClient) DeleteSecret(ctx context.Context, params *secretsmanager.DeleteSecretInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.DeleteSecretOutput, error) {
	if f.DeleteSecretFunc != nil {
		return f.DeleteSecretFunc(ctx, params)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	name := aws.ToString(params.SecretId)
	if err := f.forcedError(name); err != nil {
		return nil, err
	}

	data, ok := f.Secrets[name]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("Secrets Manager can't find the specified secret.")}
	}

	if aws.ToBool(params.ForceDeleteWithoutRecovery) {
		delete(f.Secrets, name)
		now := time.Now()
		return &secretsmanager.DeleteSecretOutput{
			ARN:          data.ARN,
			Name:         aws.String(name),
			DeletionDate: &now,
		}, nil
	}

	days := aws.ToInt64(params.RecoveryWindowInDays)
	if days == 0 {
		days = 30
	}
	deadline := time.Now().AddDate(0, 0, int(days))
	data.DeletionDate = &deadline

	return &secretsmanager.DeleteSecretOutput{
		ARN:          data.ARN,
		Name:         aws.String(name),
		DeletionDate: &deadline,
	}, nil
}
