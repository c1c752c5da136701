package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"curvelaboratory/promptgateway/pkg/config"
)

// DefaultReloadInterval is how often certificate files are checked for changes.
const DefaultReloadInterval = 5 * time.Minute

// ServerConfig builds the listener TLS configuration, TLS 1.3 only, with a
// certificate that is reloaded from disk until ctx is done. It returns nil
// when TLS is disabled.
func ServerConfig(ctx context.Context, cfg config.TLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, fmt.Errorf("cert_file and key_file are required when TLS is enabled")
	}

	reloader := NewCertificateReloader(cfg.CertFile, cfg.KeyFile, DefaultReloadInterval)
	if err := reloader.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	return &tls.Config{
		MinVersion:     tls.VersionTLS13,
		GetCertificate: reloader.GetCertificateFunc(),
	}, nil
}
