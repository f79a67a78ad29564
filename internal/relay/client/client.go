// Package client sends prompts from the workspace host to the relay service.
package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/flashide/flashide/internal/infrastructure/tracing"
)

// Client posts prompts to a relay service
type Client struct {
	http *resty.Client
}

type relayRequest struct {
	Prompt string `json:"prompt"`
}

type relayResponse struct {
	Result string `json:"result"`
}

// New creates a client for the relay at baseURL
func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetHeader("User-Agent", "FlashIDE-Playground/1.0").
			SetJSONMarshaler(sonic.Marshal).
			SetJSONUnmarshaler(sonic.Unmarshal),
	}
}

// Prompt builds the text sent for tab.
func Prompt(tab, prompt string) string {
	return fmt.Sprintf("Generate only %s code.\nDo not explain.\n%s", strings.ToUpper(tab), prompt)
}

// Ask sends prompt for tab and returns the generated code verbatim.
func (c *Client) Ask(ctx context.Context, prompt, tab string) (string, error) {
	headers := make(map[string]string)
	tracing.InjectTraceContext(ctx, headers)

	var out relayResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetBody(relayRequest{Prompt: Prompt(tab, prompt)}).
		SetResult(&out).
		Post("/relay")
	if err != nil {
		return "", fmt.Errorf("relay request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("relay returned %d: %s", resp.StatusCode(), resp.Body())
	}
	return out.Result, nil
}
