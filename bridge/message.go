package bridge

import (
	"context"
	"encoding/json"
)

// DefaultPrefix namespaces every inbound and outbound method name.
const DefaultPrefix = "SpeechRecognizer."

// Inbound method names, without prefix.
const (
	MethodInitialize   = "initialize"
	MethodListen       = "listen"
	MethodStop         = "stop"
	MethodCancel       = "cancel"
	MethodChangeLocale = "changeLocale"
)

// Outbound notification names, without prefix.
const (
	NotifyCurrentLocale = "onCurrentLocale"
	NotifyAvailability  = "onSpeechAvailability"
	NotifyResult        = "onSpeechRecognitionResult"
	NotifyError         = "onSpeechRecognitionError"
)

// MethodCall is one inbound request from the host.
type MethodCall struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
	// RequestID correlates logs and traces; set by the transport.
	RequestID string `json:"-"`
}

// Notification is one outbound, fire-and-forget message to the host.
type Notification struct {
	Method string `json:"method"`
	Args   any    `json:"args"`
}

// Handler runs inbound method calls. Adapter is the production Handler;
// transports depend on this interface.
type Handler interface {
	Handle(ctx context.Context, call MethodCall) (any, error)
}

// Channel delivers notifications to the host.
type Channel interface {
	Notify(ctx context.Context, n Notification) error
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(ctx context.Context, n Notification) error

// Notify implements Channel.
func (f ChannelFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// LocaleArgs is the {lang, country} argument of listen and changeLocale.
type LocaleArgs struct {
	Lang    string `json:"lang" validate:"required,language"`
	Country string `json:"country" validate:"omitempty,region"`
}
