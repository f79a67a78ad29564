package relay

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/flashide/flashide/internal/infrastructure/config"
	"github.com/flashide/flashide/internal/infrastructure/monitoring"
	"github.com/flashide/flashide/internal/infrastructure/tracing"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "models/gemini-2.5-flash"

// NormalizeModel prefixes a bare model name with "models/".
func NormalizeModel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" {
		return DefaultModel
	}
	if !strings.HasPrefix(model, "models/") {
		return "models/" + model
	}
	return model
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text interface{} `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// text returns the first part of the first candidate, or "" when there is
// none or it is not a string.
func (r *generateResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	s, _ := r.Candidates[0].Content.Parts[0].Text.(string)
	return s
}

// Upstream talks to the Generative Language API
type Upstream struct {
	http    *resty.Client
	apiKey  string
	model   string
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewUpstream creates an upstream client. metrics may be nil.
func NewUpstream(cfg config.UpstreamConfig, metrics *monitoring.Metrics, logger *zap.Logger) *Upstream {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("User-Agent", "FlashIDE-Relay/1.0").
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	return &Upstream{
		http:    client,
		apiKey:  cfg.APIKey,
		model:   NormalizeModel(cfg.Model),
		metrics: metrics,
		logger:  logger,
	}
}

// Model returns the normalized model identifier
func (u *Upstream) Model() string {
	return u.model
}

func (u *Upstream) request(ctx context.Context) *resty.Request {
	headers := make(map[string]string)
	tracing.InjectTraceContext(ctx, headers)

	return u.http.R().
		SetContext(ctx).
		SetHeaders(headers).
		SetQueryParam("key", u.apiKey)
}

// GenerateContent sends prompt as a single user turn and returns the text
// of the first candidate.
func (u *Upstream) GenerateContent(ctx context.Context, prompt string) (string, error) {
	timer := monitoring.NewTimer(u.metrics, "generateContent")

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	}

	resp, err := u.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(fmt.Sprintf("/v1/%s:generateContent", u.model))
	if err != nil {
		timer.Stop("error")
		return "", fmt.Errorf("upstream request failed: %w", err)
	}
	timer.Stop(strconv.Itoa(resp.StatusCode()))

	if resp.IsError() {
		return "", &UpstreamError{Status: resp.StatusCode(), Body: resp.Body()}
	}

	var out generateResponse
	if err := sonic.Unmarshal(resp.Body(), &out); err != nil {
		u.logger.Warn("Upstream response is not JSON", zap.Error(err))
		return "", nil
	}
	return out.text(), nil
}

// ListModels returns the upstream model list verbatim.
func (u *Upstream) ListModels(ctx context.Context) ([]byte, error) {
	timer := monitoring.NewTimer(u.metrics, "listModels")

	resp, err := u.request(ctx).Get("/v1/models")
	if err != nil {
		timer.Stop("error")
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	timer.Stop(strconv.Itoa(resp.StatusCode()))

	if resp.IsError() {
		return nil, &UpstreamError{Status: resp.StatusCode(), Body: resp.Body()}
	}
	if !sonic.Valid(resp.Body()) {
		return nil, fmt.Errorf("upstream model list is not JSON")
	}
	return resp.Body(), nil
}
