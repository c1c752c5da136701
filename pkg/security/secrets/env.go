package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// EnvProvider loads secrets from environment variables. The variable name
// is the prefix followed by the upper-cased secret name with hyphens turned
// into underscores: with prefix "CURVE_SECRET_", "openai-api-key" is read from
// CURVE_SECRET_OPENAI_API_KEY.
type EnvProvider struct {
	Prefix string
}

// NewEnvProvider creates an environment provider.
func NewEnvProvider(prefix string) *EnvProvider {
	return &EnvProvider{Prefix: prefix}
}

// GetSecret implements SecretProvider.
func (p *EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	envVar := p.envVar(name)
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("secret not found in environment: %s (env var: %s)", name, envVar)
	}
	return value, nil
}

// Provider implements SecretProvider.
func (p *EnvProvider) Provider() string {
	return "env"
}

// Supports implements SecretProvider. Any name can come from the environment.
func (p *EnvProvider) Supports(string) bool {
	return true
}

func (p *EnvProvider) envVar(name string) string {
	return p.Prefix + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
