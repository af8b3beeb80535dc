// Package azure provides a recognizer.Backend over Azure Cognitive Services
// speech recognition, listening on the default microphone.
//
// The real backend needs the native Speech SDK and is compiled only with the
// azurespeech build tag:
//
//	go build -tags azurespeech ./cmd/speechbridge
//
// Without the tag the package registers a backend that always reports the
// service as unavailable, so the bridge still starts and answers
// initialize with false.
package azure
