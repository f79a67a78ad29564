// Package ws streams the console log over WebSocket.
package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/flashide/flashide/internal/domain/console"
	"github.com/flashide/flashide/internal/infrastructure/monitoring"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
	streamBuffer = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // same policy as the CORS middleware
	},
}

// Frame is one console entry on the wire
type Frame struct {
	Type  string `json:"type"`
	Entry string `json:"entry"`
}

// ConsoleHandler serves GET /console/stream
type ConsoleHandler struct {
	console *console.Store
	metrics *monitoring.Metrics
	logger  *zap.Logger
}

// NewConsoleHandler creates a console stream handler. metrics may be nil.
func NewConsoleHandler(store *console.Store, metrics *monitoring.Metrics, logger *zap.Logger) *ConsoleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsoleHandler{console: store, metrics: metrics, logger: logger}
}

// Stream replays the existing entries and then follows new ones until the
// client goes away.
func (h *ConsoleHandler) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	logger := h.logger.With(zap.String("subscriber", uuid.New().String()))
	logger.Debug("Console stream opened")
	defer logger.Debug("Console stream closed")

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	// Drain client frames so close and pong control messages are handled.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	// sent is the number of entries delivered; entries are append-only, so
	// it is also the resume offset into a fresh snapshot.
	sent := 0
	for {
		snapshot, stream, cancel := h.console.Subscribe(streamBuffer)
		lagged := h.follow(c, conn, logger, snapshot[sent:], stream, &sent, ticker.C, closed)
		cancel()
		if !lagged {
			return
		}
		logger.Debug("Console stream lagged, resubscribing", zap.Int("sent", sent))
	}
}

// follow writes the backlog and then the live stream. It reports true when
// the store closed the stream because this subscriber fell behind.
func (h *ConsoleHandler) follow(c *gin.Context, conn *websocket.Conn, logger *zap.Logger,
	backlog []string, stream <-chan string, sent *int, ping <-chan time.Time, closed <-chan struct{}) bool {
	for _, entry := range backlog {
		if err := send(conn, entry); err != nil {
			logger.Debug("Console stream write failed", zap.Error(err))
			return false
		}
		*sent++
	}

	for {
		select {
		case entry, ok := <-stream:
			if !ok {
				return true
			}
			if err := send(conn, entry); err != nil {
				logger.Debug("Console stream write failed", zap.Error(err))
				return false
			}
			*sent++
		case <-ping:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return false
			}
		case <-closed:
			return false
		case <-c.Request.Context().Done():
			return false
		}
	}
}

func send(conn *websocket.Conn, entry string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(Frame{Type: "log", Entry: entry})
}
