package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kbukum/speechbridge/logger"
)

// DefaultKeepAlive is the interval between keep-alive comments. It stays
// below common proxy idle timeouts.
const DefaultKeepAlive = 30 * time.Second

// ConnectedEvent is sent when a client successfully connects.
type ConnectedEvent struct {
	ClientID string            `json:"client_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ServeSSE streams hub messages to one client until the request context
// ends or the hub closes the client.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, keepAlive time.Duration, opts ...ClientOption) {
	log := logger.Get("sse")

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("streaming not supported", map[string]interface{}{
			logger.FieldClientID: clientID,
		})
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Long-lived stream; the server's WriteTimeout must not apply.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("could not disable write deadline", map[string]interface{}{
			logger.FieldClientID: clientID,
			logger.FieldError:    err.Error(),
		})
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	opts = append([]ClientOption{WithTransport("sse"), WithRemoteAddr(r.RemoteAddr)}, opts...)
	client := NewClient(clientID, opts...)
	if !hub.Register(client) {
		http.Error(w, "notification hub stopped", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: clientID, Metadata: client.Metadata()})
	writeEvent(w, EventTypeConnected, connected)
	flusher.Flush()

	log.Debug("client connected", map[string]interface{}{
		logger.FieldClientID: clientID,
		"remote_addr":        r.RemoteAddr,
	})

	if keepAlive <= 0 {
		keepAlive = DefaultKeepAlive
	}
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("client disconnected", map[string]interface{}{
				logger.FieldClientID: clientID,
				"reason":             ctx.Err().Error(),
			})
			return

		case data, ok := <-client.Events():
			if !ok {
				return
			}
			writeEvent(w, EventTypeNotification, data)
			flusher.Flush()

		case <-ticker.C:
			_, _ = fmt.Fprintf(w, ": keepalive %d\n\n", time.Now().Unix())
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, data []byte) {
	_, _ = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
