package discuss

import (
	"errors"
	"fmt"
)

var (
	// ErrSynthesis marks a turn that failed while rendering audio. The
	// dialogue has already been persisted when it is returned.
	ErrSynthesis = errors.New("speech synthesis failed")
	// ErrInvalidStep is returned for a negative explicit step.
	ErrInvalidStep = errors.New("step must not be negative")
)

// TurnError reports the stage of a turn that failed.
type TurnError struct {
	Stage   string
	Message string
	Err     error
}

func (e *TurnError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *TurnError) Unwrap() error {
	return e.Err
}
