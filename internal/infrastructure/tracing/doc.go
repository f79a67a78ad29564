/*
Package tracing provides lightweight request tracing.

Every inbound HTTP request gets a span; trace context travels in the
X-Trace-ID and X-Span-ID headers, both on inbound requests and on the relay's
outbound call to the generative language API, so one prompt can be followed
from the playground through the relay to the upstream in the logs.

# Usage

	tracer := tracing.New("relay", logger.Logger)
	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "upstream.generate")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()

Finished spans are buffered (1000) and logged asynchronously.
*/
package tracing
