package server

import (
	"github.com/gin-gonic/gin"

	"github.com/kbukum/speechbridge/bridge"
	"github.com/kbukum/speechbridge/server/endpoint"
	"github.com/kbukum/speechbridge/server/middleware"
	"github.com/kbukum/speechbridge/sse"
	"github.com/kbukum/speechbridge/ws"
)

// RegisterSpeechRoutes mounts the bridge under BasePath:
//
//	POST {base}/methods/:method   one method call, JSON args in the body
//	GET  {base}/events            notifications as Server-Sent Events
//	GET  {base}/ws                method calls and notifications over WebSocket
func (s *Server) RegisterSpeechRoutes(hub *sse.Hub, methods bridge.Handler, prefix string) {
	group := s.engine.Group(s.config.BasePath)

	calls := group.Group("/methods",
		middleware.GinWrap(middleware.RateLimit(s.config.RateLimit)),
		middleware.GinWrap(middleware.BodySizeLimit(s.config.MaxBodySize)),
	)
	calls.POST("/:method", endpoint.MethodCall(methods, prefix))

	group.GET("/events", endpoint.Events(hub, s.config.KeepAlive))

	wsHandler := ws.NewHandler(hub, methods, s.config.WebSocket)
	group.GET("/ws", func(c *gin.Context) { wsHandler.ServeHTTP(c.Writer, c.Request) })
}
