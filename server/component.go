package server

import (
	"context"
	"fmt"

	"github.com/kbukum/speechbridge/component"
)

const componentName = "http-server"

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Server under the component registry.
type Component struct {
	server *Server
}

// NewComponent wraps s.
func NewComponent(s *Server) *Component {
	return &Component{server: s}
}

// Server returns the wrapped server.
func (sc *Component) Server() *Server { return sc.server }

// Name implements component.Component.
func (sc *Component) Name() string { return componentName }

// Start implements component.Component.
func (sc *Component) Start(ctx context.Context) error {
	return sc.server.Start(ctx)
}

// Stop implements component.Component.
func (sc *Component) Stop(ctx context.Context) error {
	return sc.server.Stop(ctx)
}

// Health implements component.Component.
func (sc *Component) Health(_ context.Context) component.Health {
	if !sc.server.started() {
		return component.Health{
			Name:    componentName,
			Status:  component.StatusUnhealthy,
			Message: "not listening",
		}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy}
}

// Describe implements component.Describable.
func (sc *Component) Describe() component.Description {
	cfg := sc.server.config
	scheme := "http"
	if cfg.TLS.Enabled() {
		scheme = "https"
	}
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: fmt.Sprintf("%s://%s base=%s", scheme, sc.server.Addr(), cfg.BasePath),
		Port:    cfg.Port,
	}
}
