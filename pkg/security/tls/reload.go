package tls

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"os"
	"sync"
	"time"
)

// CertificateReloader serves the listener certificate and reloads it when
// the files on disk change, so renewals apply without a restart.
type CertificateReloader struct {
	certFile string
	keyFile  string
	interval time.Duration

	mu       sync.RWMutex
	cert     *tls.Certificate
	certTime time.Time
	keyTime  time.Time
}

// NewCertificateReloader creates a reloader polling the files every interval.
func NewCertificateReloader(certFile, keyFile string, interval time.Duration) *CertificateReloader {
	return &CertificateReloader{
		certFile: certFile,
		keyFile:  keyFile,
		interval: interval,
	}
}

// Start loads the certificate and polls for changes until ctx is done.
func (r *CertificateReloader) Start(ctx context.Context) error {
	if err := r.reload(); err != nil {
		return err
	}
	r.logCertificateInfo()

	go r.reloadLoop(ctx)
	return nil
}

func (r *CertificateReloader) reloadLoop(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !r.needsReload() {
				continue
			}
			if err := r.reload(); err != nil {
				slog.Error("failed to reload certificate", "error", err, "cert_file", r.certFile)
				continue
			}
			slog.Info("certificate reloaded", "cert_file", r.certFile)
			r.logCertificateInfo()

		case <-ctx.Done():
			return
		}
	}
}

func (r *CertificateReloader) needsReload() bool {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return false
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return certInfo.ModTime().After(r.certTime) || keyInfo.ModTime().After(r.keyTime)
}

func (r *CertificateReloader) reload() error {
	certInfo, err := os.Stat(r.certFile)
	if err != nil {
		return err
	}
	keyInfo, err := os.Stat(r.keyFile)
	if err != nil {
		return err
	}

	cert, err := tls.LoadX509KeyPair(r.certFile, r.keyFile)
	if err != nil {
		return err
	}
	if err := ValidateCertificate(&cert); err != nil {
		return err
	}

	r.mu.Lock()
	r.cert = &cert
	r.certTime = certInfo.ModTime()
	r.keyTime = keyInfo.ModTime()
	r.mu.Unlock()
	return nil
}

// GetCertificate returns the current certificate.
func (r *CertificateReloader) GetCertificate() *tls.Certificate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cert
}

// GetCertificateFunc adapts the reloader to tls.Config.GetCertificate.
func (r *CertificateReloader) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
		return r.GetCertificate(), nil
	}
}

func (r *CertificateReloader) logCertificateInfo() {
	cert := r.GetCertificate()
	if cert == nil || len(cert.Certificate) == 0 {
		return
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return
	}

	days, warning := CheckCertificateExpiration(leaf, time.Now())
	if warning != "" {
		slog.Warn("certificate expiring soon",
			"subject", leaf.Subject.CommonName,
			"expires_in_days", days,
		)
		return
	}
	slog.Info("certificate loaded",
		"subject", leaf.Subject.CommonName,
		"issuer", leaf.Issuer.CommonName,
		"expires_in_days", days,
	)
}
