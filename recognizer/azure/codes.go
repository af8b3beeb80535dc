//go:build azurespeech

package azure

import (
	"github.com/Microsoft/cognitive-services-speech-sdk-go/common"

	"github.com/kbukum/speechbridge/recognizer"
)

// unmappedBase offsets Azure cancellation codes that have no platform
// equivalent so they surface as Unknown(code) with the raw value recoverable.
const unmappedBase = 1000

func cancellationCode(reason common.CancellationReason, code common.CancellationErrorCode) recognizer.ErrorCode {
	if reason == common.EndOfStream {
		return recognizer.ErrSpeechTimeout
	}
	switch code {
	case common.AuthenticationFailure, common.Forbidden:
		return recognizer.ErrInsufficientPermissions
	case common.BadRequest:
		return recognizer.ErrClient
	case common.TooManyRequests:
		return recognizer.ErrRecognizerBusy
	case common.ConnectionFailure:
		return recognizer.ErrNetwork
	case common.ServiceTimeout:
		return recognizer.ErrNetworkTimeout
	case common.ServiceError, common.ServiceUnavailable:
		return recognizer.ErrServer
	case common.RuntimeError:
		return recognizer.ErrAudio
	}
	return recognizer.ErrorFromCode(unmappedBase + int(code))
}
