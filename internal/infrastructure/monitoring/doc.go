/*
Package monitoring provides Prometheus metrics for the relay and the
playground host.

Tracked: HTTP requests (latency, size, status), upstream generative language
API calls, preview re-renders and uncaught script errors, captured console
entries, prompt requests by outcome, console stream connections.

Each Metrics value owns a private registry.

# Usage

	metrics := monitoring.NewMetrics("relay")
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "generateContent")
	// ... perform call ...
	timer.Stop("200")
*/
package monitoring
