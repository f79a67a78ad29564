/*
Package relay forwards prompts to the Generative Language API.

The relay holds the API key so callers never see it. It makes exactly one
upstream call per prompt: no retry, no caching, no timeout beyond the
caller's context.

Upstream HTTP failures come back as *UpstreamError, which carries the
upstream status and body so the HTTP layer can relay both unchanged:

	var upErr *relay.UpstreamError
	if errors.As(err, &upErr) {
		c.JSON(upErr.Status, gin.H{"error": upErr.Payload()})
	}
*/
package relay
