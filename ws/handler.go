package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kbukum/speechbridge/bridge"
	"github.com/kbukum/speechbridge/errors"
	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/server/middleware"
	"github.com/kbukum/speechbridge/sse"
	"github.com/kbukum/speechbridge/util"
)

// Request is one inbound method call frame.
type Request struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Response answers one Request. Exactly one of Result and Error is set.
type Response struct {
	ID     json.RawMessage   `json:"id,omitempty"`
	Result any               `json:"result,omitempty"`
	Error  *errors.ErrorBody `json:"error,omitempty"`
}

// Handler upgrades HTTP requests to WebSocket bridge connections.
type Handler struct {
	hub      *sse.Hub
	methods  bridge.Handler
	cfg      Config
	upgrader websocket.Upgrader
	log      *logger.Logger
}

// NewHandler creates a Handler. Connections are registered in hub so they
// receive notifications alongside SSE clients.
func NewHandler(hub *sse.Hub, methods bridge.Handler, cfg Config) *Handler {
	cfg.ApplyDefaults()
	h := &Handler{
		hub:     hub,
		methods: methods,
		cfg:     cfg,
		log:     logger.Get("ws"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	return middleware.MatchOrigin(r.Header.Get("Origin"), h.cfg.AllowedOrigins)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", map[string]interface{}{
			logger.FieldError: err.Error(),
			"remote_addr":     r.RemoteAddr,
		})
		return
	}

	clientID := "ws:" + uuid.NewString()
	client := sse.NewClient(clientID, sse.WithTransport("ws"), sse.WithRemoteAddr(r.RemoteAddr))
	if !h.hub.Register(client) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(h.cfg.WriteWait))
		_ = conn.Close()
		return
	}

	c := &connection{
		id:        clientID,
		conn:      conn,
		client:    client,
		cfg:       h.cfg,
		log:       h.log.WithFields(map[string]interface{}{logger.FieldClientID: clientID}),
		responses: make(chan []byte, 16),
		done:      make(chan struct{}),
		writerEnd: make(chan struct{}),
	}
	c.log.Debug("websocket connected", map[string]interface{}{"remote_addr": r.RemoteAddr})

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	go c.writeLoop()
	c.readLoop(ctx, h.methods)

	cancel()
	h.hub.Unregister(client)
	close(c.done)
	<-c.writerEnd
	_ = conn.Close()
	c.log.Debug("websocket disconnected")
}

// connection owns one socket. Only writeLoop writes data frames.
type connection struct {
	id        string
	conn      *websocket.Conn
	client    *sse.Client
	cfg       Config
	log       *logger.Logger
	responses chan []byte
	done      chan struct{}
	writerEnd chan struct{}
}

func (c *connection) readLoop(ctx context.Context, methods bridge.Handler) {
	c.conn.SetReadLimit(c.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read failed", map[string]interface{}{logger.FieldError: err.Error()})
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))

		resp := c.call(ctx, methods, data)
		out, err := json.Marshal(resp)
		if err != nil {
			c.log.Error("encode response", logger.ErrorFields("ws.response", err))
			continue
		}
		select {
		case c.responses <- out:
		case <-c.writerEnd:
			return
		}
	}
}

func (c *connection) call(ctx context.Context, methods bridge.Handler, data []byte) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		body := errors.InvalidInput("message", "malformed JSON frame").Body()
		return Response{Error: &body}
	}
	req.Method = util.SanitizeString(req.Method)
	if req.Method == "" {
		body := errors.InvalidInput("method", "method is required").Body()
		return Response{ID: req.ID, Error: &body}
	}

	result, err := methods.Handle(ctx, bridge.MethodCall{
		Method:    req.Method,
		Args:      req.Args,
		RequestID: uuid.NewString(),
	})
	if err != nil {
		body := errors.From(err).Body()
		return Response{ID: req.ID, Error: &body}
	}
	return Response{ID: req.ID, Result: result}
}

func (c *connection) writeLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		close(c.writerEnd)
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.cfg.WriteWait))
			return

		case data, ok := <-c.client.Events():
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(c.cfg.WriteWait))
				return
			}
			if !c.write(data) {
				return
			}

		case data := <-c.responses:
			if !c.write(data) {
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}

func (c *connection) write(data []byte) bool {
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.log.Debug("websocket write failed", map[string]interface{}{logger.FieldError: err.Error()})
		return false
	}
	return true
}
