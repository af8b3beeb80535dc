//go:build !azurespeech

package azure

import (
	"context"

	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/recognizer"
)

// Backend stands in for the Azure backend in builds without the Speech SDK.
type Backend struct{}

// Factory creates the stand-in backend.
func Factory(cfg map[string]any) (recognizer.Backend, error) {
	logger.Get(Name).Warn("azure speech support not compiled in, build with -tags azurespeech")
	return &Backend{}, nil
}

// Name implements recognizer.Backend.
func (b *Backend) Name() string { return Name }

// IsAvailable always reports false.
func (b *Backend) IsAvailable(ctx context.Context) bool { return false }

// Create always fails with recognizer.ErrUnavailable.
func (b *Backend) Create(ctx context.Context, locale recognizer.Locale, opts recognizer.Options) (recognizer.Handle, error) {
	return nil, recognizer.ErrUnavailable
}
