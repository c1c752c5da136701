package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"time"
)

// expiryWarningDays is how close to expiry a certificate is logged as a warning.
const expiryWarningDays = 30

// ValidateCertificate checks that the leaf of cert is currently valid.
func ValidateCertificate(cert *tls.Certificate) error {
	if cert == nil {
		return fmt.Errorf("certificate is nil")
	}
	if len(cert.Certificate) == 0 {
		return fmt.Errorf("certificate chain is empty")
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}
	return ValidateX509Certificate(leaf, time.Now())
}

// ValidateX509Certificate checks cert's validity window against now.
func ValidateX509Certificate(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("certificate is not yet valid (valid from %s)", cert.NotBefore.Format(time.RFC3339))
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("certificate expired on %s", cert.NotAfter.Format(time.RFC3339))
	}
	return nil
}

// CheckCertificateExpiration returns the days left on cert and a warning
// when fewer than 30 remain.
func CheckCertificateExpiration(cert *x509.Certificate, now time.Time) (daysUntilExpiry int, warning string) {
	daysUntilExpiry = int(cert.NotAfter.Sub(now).Hours() / 24)
	if daysUntilExpiry < expiryWarningDays {
		warning = fmt.Sprintf("certificate expires in %d days (on %s)",
			daysUntilExpiry, cert.NotAfter.Format("2006-01-02"))
	}
	return daysUntilExpiry, warning
}
