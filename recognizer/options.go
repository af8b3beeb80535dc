package recognizer

import (
	"fmt"

	"github.com/kbukum/speechbridge/validation"
)

// Language models understood by backends.
const (
	LanguageModelFreeForm  = "free_form"
	LanguageModelWebSearch = "web_search"
)

// Options are the request parameters applied when a handle is created.
// Zero silence values leave the backend's own endpointing in place.
type Options struct {
	LanguageModel                 string `yaml:"language_model" mapstructure:"language_model" validate:"oneof=free_form web_search"`
	MaxAlternatives               int    `yaml:"max_alternatives" mapstructure:"max_alternatives" validate:"gte=1,lte=10"`
	PartialResults                bool   `yaml:"partial_results" mapstructure:"partial_results"`
	PreferOffline                 bool   `yaml:"prefer_offline" mapstructure:"prefer_offline"`
	MinimumLengthMillis           int    `yaml:"minimum_length_millis" mapstructure:"minimum_length_millis" validate:"gte=0"`
	PossiblyCompleteSilenceMillis int    `yaml:"possibly_complete_silence_millis" mapstructure:"possibly_complete_silence_millis" validate:"gte=0"`
	CompleteSilenceMillis         int    `yaml:"complete_silence_millis" mapstructure:"complete_silence_millis" validate:"gte=0"`
}

// DefaultOptions returns free-form dictation with three alternatives and
// partial results enabled.
func DefaultOptions() Options {
	return Options{
		LanguageModel:   LanguageModelFreeForm,
		MaxAlternatives: 3,
		PartialResults:  true,
		PreferOffline:   true,
	}
}

// ApplyDefaults fills unset fields.
func (o *Options) ApplyDefaults() {
	if o.LanguageModel == "" {
		o.LanguageModel = LanguageModelFreeForm
	}
	if o.MaxAlternatives == 0 {
		o.MaxAlternatives = 3
	}
}

// Validate checks the options.
func (o *Options) Validate() error {
	if err := validation.Validate(o); err != nil {
		return fmt.Errorf("recognizer options: %w", err)
	}
	return nil
}
