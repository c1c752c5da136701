// Package tls configures TLS for the gateway listener. Certificates are
// validated on load and reloaded when the files change on disk.
package tls
