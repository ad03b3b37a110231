package aws

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// DefaultSecretTTL is how long a fetched secret is served from memory.
const DefaultSecretTTL = 5 * time.Minute

type secretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

type cachedSecret struct {
	value     string
	fetchedAt time.Time
}

// SecretsClient reads string secrets from Secrets Manager.
//
// A name of the form "secret-id#field" selects one field of a JSON secret,
// e.g. "payment/razorpay#key_secret".
type SecretsClient struct {
	api   secretsAPI
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	cache map[string]cachedSecret
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return newSecretsClient(secretsmanager.NewFromConfig(cfg), DefaultSecretTTL)
}

func newSecretsClient(api secretsAPI, ttl time.Duration) *SecretsClient {
	return &SecretsClient{
		api:   api,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cachedSecret),
	}
}

func (s *SecretsClient) GetSecret(ctx context.Context, name string) (string, error) {
	id, field, hasField := strings.Cut(name, "#")

	raw, err := s.secretString(ctx, id)
	if err != nil {
		return "", err
	}
	if !hasField {
		return raw, nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return "", fmt.Errorf("secret %s is not a JSON object: %w", id, err)
	}
	v, ok := fields[field]
	if !ok {
		return "", fmt.Errorf("secret %s has no field %q", id, field)
	}
	str, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("secret %s field %q is not a string", id, field)
	}
	return str, nil
}

func (s *SecretsClient) secretString(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	entry, ok := s.cache[id]
	s.mu.RUnlock()
	if ok && s.now().Sub(entry.fetchedAt) < s.ttl {
		return entry.value, nil
	}

	out, err := s.api.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: sdkaws.String(id)})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", id, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", id)
	}

	s.mu.Lock()
	s.cache[id] = cachedSecret{value: *out.SecretString, fetchedAt: s.now()}
	s.mu.Unlock()

	return *out.SecretString, nil
}
