package transcode

import (
	"errors"
	"fmt"
)

// ErrUnreadableAudio matches every decode failure via errors.Is
var ErrUnreadableAudio = errors.New("unreadable audio")

// Audio error codes
const (
	ErrCodeEmpty          = "EMPTY_INPUT"
	ErrCodeUnsupported    = "UNSUPPORTED_FORMAT"
	ErrCodeInvalidHeader  = "INVALID_HEADER"
	ErrCodeDecoding       = "DECODING_FAILED"
	ErrCodeDecoderMissing = "DECODER_MISSING"
	ErrCodeNoSamples      = "NO_SAMPLES"
	ErrCodeIO             = "IO_ERROR"
)

// AudioError describes why audio input could not be turned into a waveform
type AudioError struct {
	Code    string `json:"code"`
	Format  string `json:"format,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

// NewAudioError creates a new audio error
func NewAudioError(code, format, message string, cause error) *AudioError {
	return &AudioError{
		Code:    code,
		Format:  format,
		Message: message,
		Cause:   cause,
	}
}

func (e *AudioError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Format != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Format)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *AudioError) Unwrap() error {
	return e.Cause
}

// Is reports every AudioError as ErrUnreadableAudio
func (e *AudioError) Is(target error) bool {
	return target == ErrUnreadableAudio
}
