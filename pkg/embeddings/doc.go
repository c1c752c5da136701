// Package embeddings holds the precomputed prompt-target vectors used for
// similarity routing.
//
// At startup a Bootstrapper embeds every target description through the model
// server and loads the results into a Store. Vectors can be cached in memory
// or in SQLite so that restarts do not recompute them. While the model server
// is unavailable the store stays not-ready, which fails the gateway's liveness
// path, and initialization is retried on a cron schedule.
package embeddings
