package video

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrExhausted is returned by a source once it has delivered its last frame.
var ErrExhausted = errors.New("video source exhausted")

// ErrFrameSize is returned when a frame does not match the size the writer was opened with.
var ErrFrameSize = errors.New("frame size does not match output size")

// DecodeError is a source failure that is not the normal end of the stream.
type DecodeError struct {
	// Frame is the index of the frame that could not be produced.
	Frame int
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame %d: %v", e.Frame, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsExhausted reports whether err marks the normal end of a source.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrExhausted)
}
