// Package secrets resolves the API keys the gateway attaches to upstream
// calls.
//
// Secrets are looked up by name, first in an optional directory of files
// (one file per secret, mode 0600 or 0400) and then in environment
// variables carrying a prefix:
//
//	secrets:
//	  directory: /var/run/secrets/curve
//	  watch: true
//	  env_prefix: CURVE_SECRET_
//
// With watching enabled the file provider drops its cache when the
// directory changes, so a rotated key applies to the next call without a
// restart.
package secrets
