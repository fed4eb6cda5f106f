package analysis

import (
	"errors"
	"fmt"

	"github.com/RyanBlaney/vocalytics/transcode"
)

var (
	// ErrUnreadableAudio marks input that could not be decoded. It is the
	// loader's sentinel, so errors.Is works on either name.
	ErrUnreadableAudio = transcode.ErrUnreadableAudio

	// ErrAnalysisFailed marks a numeric fault after decoding succeeded
	ErrAnalysisFailed = errors.New("analysis failed")
)

// StageError reports which pipeline stage failed
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrAnalysisFailed, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Is matches ErrAnalysisFailed
func (e *StageError) Is(target error) bool {
	return target == ErrAnalysisFailed
}

func stageError(stage string, err error) error {
	return &StageError{Stage: stage, Err: err}
}
