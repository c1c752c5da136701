// Package security groups listener TLS and upstream credential handling.
//
//   - secrets: API keys for the LLM upstream and developer endpoints
//   - tls: listener certificates with reload on renewal
package security
