/*
Package server assembles the two processes of the module.

	NewRelay       prompt relay service (PORT, default 5000)
	NewPlayground  workspace host (PLAYGROUND_PORT, default 3000)

Both share the same middleware chain: recovery, tracing, Prometheus, CORS
and optional per-IP rate limiting. Responses are gzip-compressed and
/metrics is served from a private registry.
*/
package server
