//go:build !nopreview

// Package preview shows annotated frames in a desktop window while they are written.
package preview

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"go.viam.com/videodetect/logging"
)

// QuitKey stops the run when pressed in the window.
const QuitKey = 'q'

// Window is a gocv window implementing video.Display.
type Window struct {
	window *gocv.Window
	logger logging.Logger
}

// New opens a window with the given title.
func New(title string, logger logging.Logger) (*Window, error) {
	w := gocv.NewWindow(title)
	if w == nil {
		return nil, errors.New("could not open preview window")
	}
	return &Window{window: w, logger: logger}, nil
}

// Show draws img and polls the keyboard for a millisecond. Pressing QuitKey or closing the
// window asks to stop.
func (w *Window) Show(img image.Image) (bool, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return false, errors.Wrap(err, "could not convert frame for preview")
	}
	defer mat.Close()

	w.window.IMShow(mat)
	if key := w.window.WaitKey(1); key&0xff == QuitKey {
		w.logger.Info("quit key pressed")
		return true, nil
	}
	if !w.window.IsOpen() {
		w.logger.Info("preview window closed")
		return true, nil
	}
	return false, nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}
