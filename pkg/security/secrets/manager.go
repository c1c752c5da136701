package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"curvelaboratory/promptgateway/pkg/config"
)

// Manager tries its providers in order and returns the first value found.
// It satisfies the credential source used by upstream clients.
type Manager struct {
	providers []SecretProvider
}

// NewManager creates a manager over providers, consulted in order.
func NewManager(providers ...SecretProvider) *Manager {
	return &Manager{providers: providers}
}

// NewManagerFromConfig builds the gateway's manager: the file provider
// first when a directory is configured, then the environment.
func NewManagerFromConfig(cfg config.SecretsConfig) (*Manager, error) {
	var providers []SecretProvider
	if cfg.Directory != "" {
		fp, err := NewFileProvider(cfg.Directory, cfg.Watch)
		if err != nil {
			return nil, fmt.Errorf("failed to open secrets directory: %w", err)
		}
		providers = append(providers, fp)
	}
	providers = append(providers, NewEnvProvider(cfg.EnvPrefix))
	return NewManager(providers...), nil
}

// GetSecret returns the value of name from the first provider holding it.
func (m *Manager) GetSecret(ctx context.Context, name string) (string, error) {
	var lastErr error
	for _, provider := range m.providers {
		if !provider.Supports(name) {
			continue
		}

		value, err := provider.GetSecret(ctx, name)
		if err != nil {
			lastErr = err
			slog.DebugContext(ctx, "secret provider miss",
				"provider", provider.Provider(),
				"name", redactSecretName(name),
				"error", err,
			)
			continue
		}
		return value, nil
	}

	if lastErr != nil {
		return "", fmt.Errorf("failed to get secret %q: %w", name, lastErr)
	}
	return "", fmt.Errorf("secret not found: %q (no provider supports this secret)", name)
}

// Refresh drops cached values in every refreshable provider.
func (m *Manager) Refresh(ctx context.Context) error {
	var errs []error
	for _, provider := range m.providers {
		if r, ok := provider.(RefreshableProvider); ok {
			if err := r.Refresh(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", provider.Provider(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Close releases provider resources such as file watchers.
func (m *Manager) Close() error {
	var errs []error
	for _, provider := range m.providers {
		if c, ok := provider.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

func redactSecretName(name string) string {
	if len(name) <= 4 {
		return "***"
	}
	return name[:2] + "..." + name[len(name)-2:]
}
