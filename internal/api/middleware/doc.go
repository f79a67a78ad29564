// Package middleware holds the Gin middleware shared by the relay and the
// playground host: permissive CORS and per-client rate limiting.
package middleware
