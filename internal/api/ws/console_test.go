package ws

import (
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flashide/flashide/internal/domain/console"
	"github.com/flashide/flashide/internal/infrastructure/monitoring"
)

func TestConsoleStreamReplaysThenFollows(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := console.NewStore()
	store.Append([]string{"first"})

	metrics := monitoring.NewMetrics("test")
	router := gin.New()
	router.GET("/console/stream", NewConsoleHandler(store, metrics, nil).Stream)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/console/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, Frame{Type: "log", Entry: "first"}, frame)

	store.Append([]string{"second", "entry"})
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, Frame{Type: "log", Entry: "second entry"}, frame)
}

func TestConsoleStreamDeliversBursts(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := console.NewStore()
	store.Append([]string{"start"})

	router := gin.New()
	router.GET("/console/stream", NewConsoleHandler(store, nil, nil).Stream)

	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/console/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(20*time.Second)))

	var frame Frame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, "start", frame.Entry)

	const burst = 5000
	for i := 0; i < burst; i++ {
		store.Append([]string{strconv.Itoa(i)})
	}

	for i := 0; i < burst; i++ {
		require.NoError(t, conn.ReadJSON(&frame))
		require.Equal(t, strconv.Itoa(i), frame.Entry)
	}
}
