package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"curvelaboratory/promptgateway/pkg/config"
)

// CORSMiddleware adds Cross-Origin Resource Sharing headers and answers
// preflight requests. It is a no-op when cfg is disabled.
//
// Example usage:
//
//	handler = CORSMiddleware(cfg.Listener.CORS)(handler)
func CORSMiddleware(cfg config.CORSConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   []string{RequestIDHeader},
		MaxAge:           cfg.MaxAge,
		AllowCredentials: cfg.AllowCredentials,
	})
	return c.Handler
}
