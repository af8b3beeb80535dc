package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kbukum/speechbridge/bridge"
)

// ErrHubStopped is returned when notifying through a stopped hub.
var ErrHubStopped = errors.New("notification hub stopped")

// Broadcaster sends payloads to clients by ID pattern.
type Broadcaster interface {
	BroadcastToPattern(pattern string, data []byte) bool
}

// Notifier delivers bridge notifications to every client matching Pattern.
type Notifier struct {
	Broadcaster Broadcaster
	// Pattern selects clients; "*" when empty.
	Pattern string
}

var _ bridge.Channel = (*Notifier)(nil)

// NewNotifier returns a Notifier addressing all clients of b.
func NewNotifier(b Broadcaster) *Notifier {
	return &Notifier{Broadcaster: b, Pattern: "*"}
}

// Notify implements bridge.Channel.
func (n *Notifier) Notify(ctx context.Context, msg bridge.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification %s: %w", msg.Method, err)
	}
	pattern := n.Pattern
	if pattern == "" {
		pattern = "*"
	}
	if !n.Broadcaster.BroadcastToPattern(pattern, data) {
		return ErrHubStopped
	}
	return nil
}
