package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashide/flashide/internal/infrastructure/config"
	"github.com/flashide/flashide/internal/relay"
)

type fakeUpstream struct {
	server *httptest.Server
	calls  atomic.Int32
}

func newFakeUpstream(t *testing.T, status int, body string) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newRelayRouter(upstreamURL string) *gin.Engine {
	gin.SetMode(gin.TestMode)

	upstream := relay.NewUpstream(config.UpstreamConfig{
		APIKey:  "k",
		Model:   "models/gemini-2.5-flash",
		BaseURL: upstreamURL,
	}, nil, nil)
	h := NewRelayHandlers(relay.NewService(upstream, nil), upstream.Model(), nil)

	router := gin.New()
	router.POST("/relay", h.Relay)
	router.POST("/api/gemini", h.Relay)
	router.GET("/models", h.Models)
	router.GET("/health", h.Health)
	return router
}

func do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRelayRejectsMissingPrompt(t *testing.T) {
	f := newFakeUpstream(t, http.StatusOK, `{}`)
	router := newRelayRouter(f.server.URL)

	for _, body := range []string{`{"prompt":""}`, `{}`, ``, `not json`, `{"prompt":null}`} {
		w := do(router, http.MethodPost, "/relay", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.JSONEq(t, `{"error":"Prompt is required"}`, w.Body.String(), body)
	}
	assert.Equal(t, int32(0), f.calls.Load())
}

func TestRelaySuccess(t *testing.T) {
	f := newFakeUpstream(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"<button>Hi</button>"}]}}]}`)
	router := newRelayRouter(f.server.URL)

	for _, path := range []string{"/relay", "/api/gemini"} {
		w := do(router, http.MethodPost, path, `{"prompt":"Generate only HTML code.\nDo not explain.\na button"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"result":"<button>Hi</button>"}`, w.Body.String())
	}
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestRelayNoCandidates(t *testing.T) {
	f := newFakeUpstream(t, http.StatusOK, `{"candidates":[]}`)

	w := do(newRelayRouter(f.server.URL), http.MethodPost, "/relay", `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"result":""}`, w.Body.String())
}

func TestRelayPassesThroughUpstreamStatus(t *testing.T) {
	body := `{"error":{"code":429,"message":"Resource exhausted","status":"RESOURCE_EXHAUSTED"}}`
	f := newFakeUpstream(t, http.StatusTooManyRequests, body)

	w := do(newRelayRouter(f.server.URL), http.MethodPost, "/relay", `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":`+body+`}`, w.Body.String())
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestRelayTransportFailure(t *testing.T) {
	f := newFakeUpstream(t, http.StatusOK, `{}`)
	router := newRelayRouter(f.server.URL)
	f.server.Close()

	w := do(router, http.MethodPost, "/relay", `{"prompt":"hi"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
}

func TestModels(t *testing.T) {
	f := newFakeUpstream(t, http.StatusOK, `{"models":[{"name":"models/gemini-2.5-flash"}]}`)

	w := do(newRelayRouter(f.server.URL), http.MethodGet, "/models", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"models":[{"name":"models/gemini-2.5-flash"}]}`, w.Body.String())
}

func TestModelsFailureIsGeneric(t *testing.T) {
	f := newFakeUpstream(t, http.StatusUnauthorized, `{"error":{"code":401}}`)

	w := do(newRelayRouter(f.server.URL), http.MethodGet, "/models", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to list models"}`, w.Body.String())
}

func TestRelayHealth(t *testing.T) {
	f := newFakeUpstream(t, http.StatusOK, `{}`)

	w := do(newRelayRouter(f.server.URL), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"relay","model":"models/gemini-2.5-flash"}`, w.Body.String())
}
