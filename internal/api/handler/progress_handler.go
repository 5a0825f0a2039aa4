package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
	"github.com/timmy/surrogates/internal/progress"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512
)

// Subscriber hands out per-job progress subscriptions.
type Subscriber interface {
	Subscribe(jobID string) (*progress.Subscription, error)
}

// JobStatusReader returns job snapshots.
type JobStatusReader interface {
	Status(jobID string) (domain.Job, error)
}

// ProgressHandler streams job progress over WebSocket.
type ProgressHandler struct {
	bus          Subscriber
	jobs         JobStatusReader
	upgrader     websocket.Upgrader
	pingInterval time.Duration
}

// NewProgressHandler creates a new progress handler.
// Parameters:
//   - bus: progress subscriptions.
//   - jobs: snapshot source sent on connect.
//   - pingInterval: interval of server ping frames.
//   - checkOrigin: origin policy of the upgrade; nil accepts every origin.
//
// Returns:
//   - *ProgressHandler: initialized handler.
func NewProgressHandler(bus Subscriber, jobs JobStatusReader, pingInterval time.Duration, checkOrigin func(r *http.Request) bool) *ProgressHandler {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &ProgressHandler{
		bus:  bus,
		jobs: jobs,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		pingInterval: pingInterval,
	}
}

// Stream handles GET /ws/:job_id.
//
// The current job snapshot is sent first, then every progress event. A text
// "ping" from the client is answered with {"type":"pong"}. The subscription
// ends when the client goes away.
func (h *ProgressHandler) Stream(c *gin.Context) {
	jobID := c.Param("job_id")
	ctx := logger.SetJobID(c.Request.Context(), jobID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.CtxWarn(ctx, "WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub, err := h.bus.Subscribe(jobID)
	if err != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		return
	}
	defer sub.Close()
	logger.CtxDebug(ctx, "Progress subscriber connected")

	if job, err := h.jobs.Status(jobID); err == nil {
		if err := h.writeJSON(conn, snapshotEvent(job)); err != nil {
			return
		}
	}

	pongWait := 2 * h.pingInterval
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Only this goroutine writes; the reader forwards pings.
	pings := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(pongWait))
			if strings.TrimSpace(string(msg)) == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			logger.CtxDebug(ctx, "Progress subscriber disconnected")
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := h.writeJSON(conn, event); err != nil {
				return
			}
		case <-pings:
			if err := h.writeJSON(conn, gin.H{"type": "pong"}); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (h *ProgressHandler) writeJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

func snapshotEvent(job domain.Job) domain.ProgressEvent {
	return domain.ProgressEvent{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Message:  job.Message,
		Result:   job.Result,
		Error:    job.Error,
	}
}
