//go:build azurespeech

package azure

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"
	"github.com/Microsoft/cognitive-services-speech-sdk-go/speech"

	"github.com/kbukum/speechbridge/logger"
	"github.com/kbukum/speechbridge/recognizer"
)

// destroyStopWait bounds how long Destroy waits for a pending stop before
// releasing the SDK objects.
const destroyStopWait = 5 * time.Second

// handle runs one continuous recognition per Start and stops it after the
// first settled utterance. The next Start waits for that stop.
type handle struct {
	rec            *speech.SpeechRecognizer
	partialResults bool
	log            *logger.Logger
	closers        []func()

	queue *eventQueue
	gate  stopGate
	once  sync.Once

	// settled is set once a terminal event was emitted for the current utterance.
	settled atomic.Bool
	// running is set while a recognition started by Start has not been asked to stop.
	running     atomic.Bool
	lastPartial atomic.Value
}

func newHandle(rec *speech.SpeechRecognizer, partialResults bool, log *logger.Logger) *handle {
	h := &handle{
		rec:            rec,
		partialResults: partialResults,
		log:            log,
		queue:          newEventQueue(eventBuffer),
	}
	h.lastPartial.Store("")
	return h
}

func (h *handle) wire() {
	h.rec.SessionStarted(func(e speech.SessionEventArgs) {
		defer e.Close()
		h.emit(recognizer.ReadyForSpeech())
	})
	h.rec.SessionStopped(func(e speech.SessionEventArgs) {
		defer e.Close()
		// A stop nobody asked for still ends the utterance.
		if h.running.CompareAndSwap(true, false) {
			h.settle(recognizer.Final(h.lastPartial.Load().(string)))
		}
	})
	h.rec.SpeechStartDetected(func(e speech.RecognitionEventArgs) {
		defer e.Close()
		h.emit(recognizer.BeginningOfSpeech())
	})
	h.rec.SpeechEndDetected(func(e speech.RecognitionEventArgs) {
		defer e.Close()
		h.emit(recognizer.EndOfSpeech())
	})
	h.rec.Recognizing(func(e speech.SpeechRecognitionEventArgs) {
		defer e.Close()
		h.lastPartial.Store(e.Result.Text)
		if h.partialResults {
			h.emit(recognizer.Partial(e.Result.Text))
		}
	})
	h.rec.Recognized(func(e speech.SpeechRecognitionEventArgs) {
		defer e.Close()
		var ev recognizer.Event
		switch e.Result.Reason {
		case common.RecognizedSpeech:
			ev = recognizer.Final(e.Result.Text)
		case common.NoMatch:
			ev = recognizer.Failure(recognizer.ErrNoMatch)
		default:
			return
		}
		if !h.settled.CompareAndSwap(false, true) {
			return
		}
		h.running.Store(false)
		h.gate.begin(h.stopRecognition)
		h.queue.terminal(ev)
	})
	h.rec.Canceled(func(e speech.SpeechRecognitionCanceledEventArgs) {
		defer e.Close()
		if e.Reason == common.CancelledByUser {
			return
		}
		h.running.Store(false)
		code := cancellationCode(e.Reason, e.ErrorCode)
		h.log.Warn("azure recognition canceled", map[string]interface{}{
			logger.FieldErrorCode: code.String(),
			"details":             e.ErrorDetails,
		})
		h.settle(recognizer.Failure(code))
	})
}

// Start implements recognizer.Handle. It waits for the stop that followed
// the previous utterance.
func (h *handle) Start(ctx context.Context) error {
	if h.queue.isClosed() {
		return fmt.Errorf("start: %w", recognizer.ErrUnavailable)
	}
	if err := h.gate.wait(ctx); err != nil {
		return fmt.Errorf("wait for previous stop: %w", err)
	}
	h.settled.Store(false)
	h.lastPartial.Store("")
	h.running.Store(true)
	select {
	case err := <-h.rec.StartContinuousRecognitionAsync():
		if err != nil {
			h.running.Store(false)
			return fmt.Errorf("start continuous recognition: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop implements recognizer.Handle. If the service settled nothing, the
// last partial is reported as the final result.
func (h *handle) Stop(ctx context.Context) error {
	if h.queue.isClosed() {
		return nil
	}
	if err := h.gate.wait(ctx); err != nil {
		return fmt.Errorf("wait for previous stop: %w", err)
	}
	h.running.Store(false)
	select {
	case err := <-h.rec.StopContinuousRecognitionAsync():
		if err != nil {
			return fmt.Errorf("stop continuous recognition: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	h.settle(recognizer.Final(h.lastPartial.Load().(string)))
	return nil
}

// Destroy implements recognizer.Handle.
func (h *handle) Destroy() {
	h.once.Do(func() {
		h.queue.close()
		ctx, cancel := context.WithTimeout(context.Background(), destroyStopWait)
		if err := h.gate.wait(ctx); err != nil {
			h.log.Warn("pending stop did not finish before destroy", logger.ErrorFields("destroy", err))
		}
		cancel()
		for _, c := range h.closers {
			c()
		}
	})
}

// Events implements recognizer.Handle.
func (h *handle) Events() <-chan recognizer.Event { return h.queue.ch }

func (h *handle) stopRecognition() {
	if h.queue.isClosed() {
		return
	}
	if err := <-h.rec.StopContinuousRecognitionAsync(); err != nil {
		h.log.Debug("stop after utterance failed", logger.ErrorFields("stop", err))
	}
}

func (h *handle) settle(ev recognizer.Event) {
	if h.settled.CompareAndSwap(false, true) {
		h.queue.terminal(ev)
	}
}

func (h *handle) emit(ev recognizer.Event) {
	if !h.queue.progress(ev) && !h.queue.isClosed() {
		h.log.Debug("event buffer full, dropping", map[string]interface{}{"event": ev.Type.String()})
	}
}
