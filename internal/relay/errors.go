package relay

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrPromptRequired is returned for an empty prompt. No upstream call is made.
var ErrPromptRequired = errors.New("prompt is required")

// UpstreamError is a non-2xx answer from the upstream API.
type UpstreamError struct {
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	if len(e.Body) == 0 {
		return e.message()
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

func (e *UpstreamError) message() string {
	return fmt.Sprintf("Request failed with status code %d", e.Status)
}

// Payload is the value relayed as the "error" field: the upstream body as
// JSON when it parses, as a string otherwise, and a status message when
// the body is empty.
func (e *UpstreamError) Payload() interface{} {
	if len(e.Body) == 0 {
		return e.message()
	}
	if sonic.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return string(e.Body)
}
