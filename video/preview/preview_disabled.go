//go:build nopreview

// Package preview shows annotated frames in a desktop window while they are written. This
// build has no window support.
package preview

import (
	"image"

	"github.com/pkg/errors"

	"go.viam.com/videodetect/logging"
)

// QuitKey stops the run when pressed in the window.
const QuitKey = 'q'

// Window is unavailable in this build.
type Window struct{}

// New always fails in builds without preview support.
func New(title string, logger logging.Logger) (*Window, error) {
	return nil, errors.New("preview support not compiled in, rebuild without the nopreview tag")
}

// Show is never reached.
func (w *Window) Show(img image.Image) (bool, error) {
	return true, nil
}

// Close is a no-op.
func (w *Window) Close() error {
	return nil
}
