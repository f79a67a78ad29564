package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	assert.Equal(t, "Generate only CSS code.\nDo not explain.\na red button", Prompt("css", "a red button"))
	assert.Equal(t, "Generate only JS code.\nDo not explain.\n", Prompt("js", ""))
}

func TestAsk(t *testing.T) {
	var received map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/relay", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"button { color: red; }"}`))
	}))
	defer server.Close()

	result, err := New(server.URL+"/").Ask(context.Background(), "a red button", "css")
	require.NoError(t, err)

	assert.Equal(t, "button { color: red; }", result)
	assert.Equal(t, map[string]string{"prompt": "Generate only CSS code.\nDo not explain.\na red button"}, received)
}

func TestAskErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429}}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Ask(context.Background(), "x", "html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAskTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := New(url).Ask(context.Background(), "x", "html")
	assert.Error(t, err)
}
