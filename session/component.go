package session

import (
	"context"
	"fmt"

	"github.com/kbukum/speechbridge/component"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Controller under the component registry. Stopping the
// component destroys the session.
type Component struct {
	ctrl *Controller
}

// NewComponent wraps ctrl.
func NewComponent(ctrl *Controller) *Component {
	return &Component{ctrl: ctrl}
}

// Controller returns the wrapped controller.
func (sc *Component) Controller() *Controller { return sc.ctrl }

// Name implements component.Component.
func (sc *Component) Name() string { return "session" }

// Start implements component.Component. The session waits for the host's
// initialize; nothing is created here.
func (sc *Component) Start(ctx context.Context) error {
	sc.ctrl.log.Info("session ready", map[string]interface{}{"backend": sc.ctrl.backend.Name()})
	return nil
}

// Stop implements component.Component.
func (sc *Component) Stop(ctx context.Context) error {
	sc.ctrl.Destroy()
	return nil
}

// Health implements component.Component.
func (sc *Component) Health(ctx context.Context) component.Health {
	snap := sc.ctrl.Snapshot()
	h := component.Health{Name: sc.Name(), Status: component.StatusHealthy, Message: snap.State.String()}
	switch {
	case snap.State == StateDestroyed:
		h.Status = component.StatusUnhealthy
	case snap.State != StateUninitialized && !snap.Available:
		h.Status = component.StatusDegraded
		h.Message = serviceName + " unavailable"
	}
	return h
}

// Describe implements component.Describable.
func (sc *Component) Describe() component.Description {
	c := sc.ctrl
	c.mu.Lock()
	locale := c.locale.String()
	c.mu.Unlock()
	return component.Description{
		Name:    "Speech Session",
		Type:    "session",
		Details: fmt.Sprintf("backend=%s locale=%s", c.backend.Name(), locale),
	}
}
