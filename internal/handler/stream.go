package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/pkg/logger"
	"github.com/message-whisperer/agent-console/pkg/metrics"
)

// DefaultHeartbeat is how often an idle stream sends a keep-alive event.
const DefaultHeartbeat = 30 * time.Second

// StreamHandler streams the open thread as server-sent events.
type StreamHandler struct {
	console   Console
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(console Console, log *logger.Logger, heartbeat time.Duration) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &StreamHandler{console: console, logger: log, heartbeat: heartbeat}
}

// HeartbeatEvent keeps idle connections open through proxies.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// Thread handles GET /api/v1/thread/stream. The current thread is sent at
// once as a "thread" event, then again after every change.
func (h *StreamHandler) Thread(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	updates, unsubscribe := h.console.SubscribeThread()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	if err := sendSSEEvent(w, flusher, "thread", h.console.Thread()); err != nil {
		return
	}

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		var err error
		select {
		case <-ctx.Done():
			h.logger.Debug("SSE client disconnected")
			return
		case snap := <-updates:
			err = sendSSEEvent(w, flusher, "thread", snap)
		case t := <-heartbeat.C:
			err = sendSSEEvent(w, flusher, "heartbeat", HeartbeatEvent{Timestamp: t})
		}
		if err != nil {
			h.logger.Debug("SSE write failed", zap.Error(err))
			return
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
