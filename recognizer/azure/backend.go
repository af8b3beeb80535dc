//go:build azurespeech

package azure

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/audio"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/recognizer"
)

// Silence tuning properties understood by the Speech service.
const (
	propInitialSilenceTimeout = "SpeechServiceConnection_InitialSilenceTimeoutMs"
	propEndSilenceTimeout     = "SpeechServiceConnection_EndSilenceTimeoutMs"
	propSegmentationSilence   = "Segmentation_SilenceTimeoutMs"
)

// Backend creates Azure speech recognizers bound to the default microphone.
type Backend struct {
	cfg Config
	log *logger.Logger
}

// Factory creates a Backend from {key, region, endpoint}.
func Factory(cfg map[string]any) (recognizer.Backend, error) {
	c := configFromMap(cfg)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &Backend{cfg: c, log: logger.Get(Name)}, nil
}

// Name implements recognizer.Backend.
func (b *Backend) Name() string { return Name }

// IsAvailable reports whether a speech config can be built from the subscription.
func (b *Backend) IsAvailable(ctx context.Context) bool {
	sc, err := b.speechConfig()
	if err != nil {
		b.log.Warn("azure speech unavailable", logger.ErrorFields("speech_config", err))
		return false
	}
	sc.Close()
	return true
}

func (b *Backend) speechConfig() (*speech.SpeechConfig, error) {
	if b.cfg.Endpoint != "" {
		return speech.NewSpeechConfigFromEndpointWithSubscription(b.cfg.Endpoint, b.cfg.Key)
	}
	return speech.NewSpeechConfigFromSubscription(b.cfg.Key, b.cfg.Region)
}

// Create builds a recognizer for locale. MaxAlternatives and PreferOffline
// have no Azure equivalent and are ignored.
func (b *Backend) Create(ctx context.Context, locale recognizer.Locale, opts recognizer.Options) (recognizer.Handle, error) {
	sc, err := b.speechConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", recognizer.ErrUnavailable, err)
	}
	if err := sc.SetSpeechRecognitionLanguage(locale.BCP47()); err != nil {
		sc.Close()
		return nil, fmt.Errorf("set recognition language: %w", err)
	}
	if err := applySilence(sc, opts); err != nil {
		sc.Close()
		return nil, err
	}

	ac, err := audio.NewAudioConfigFromDefaultMicrophoneInput()
	if err != nil {
		sc.Close()
		return nil, fmt.Errorf("%w: microphone: %v", recognizer.ErrUnavailable, err)
	}

	rec, err := speech.NewSpeechRecognizerFromConfig(sc, ac)
	if err != nil {
		ac.Close()
		sc.Close()
		return nil, fmt.Errorf("create speech recognizer: %w", err)
	}

	h := newHandle(rec, opts.PartialResults, b.log.WithFields(map[string]interface{}{logger.FieldLocale: locale.String()}))
	h.closers = []func(){rec.Close, ac.Close, sc.Close}
	h.wire()
	return h, nil
}

func applySilence(sc *speech.SpeechConfig, opts recognizer.Options) error {
	props := []struct {
		name  string
		value int
	}{
		{propInitialSilenceTimeout, opts.MinimumLengthMillis},
		{propSegmentationSilence, opts.PossiblyCompleteSilenceMillis},
		{propEndSilenceTimeout, opts.CompleteSilenceMillis},
	}
	for _, p := range props {
		if p.value <= 0 {
			continue
		}
		if err := sc.SetPropertyByString(p.name, strconv.Itoa(p.value)); err != nil {
			return fmt.Errorf("set %s: %w", p.name, err)
		}
	}
	return nil
}
