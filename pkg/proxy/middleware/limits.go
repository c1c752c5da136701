package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"

	"curvelaboratory/promptgateway/pkg/proxy/types"
)

// BodyLimitMiddleware caps request bodies at maxBytes. Requests that declare
// a larger Content-Length are rejected up front; reading past the limit on a
// chunked body fails with *http.MaxBytesError, which handlers report as a 400.
// A non-positive limit disables the cap.
//
// Example usage:
//
//	handler = BodyLimitMiddleware(cfg.Listener.MaxBodyBytes)(handler)
func BodyLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if maxBytes <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeTooLarge(w, maxBytes)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func writeTooLarge(w http.ResponseWriter, limit int64) {
	errResp := types.NewInvalidRequestError(
		fmt.Sprintf("Request body exceeds the maximum size of %d bytes.", limit),
		"", types.CodeRequestTooLarge,
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusRequestEntityTooLarge)
	_ = json.NewEncoder(w).Encode(errResp)
}
