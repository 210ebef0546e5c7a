package video

import (
	"context"
	"image"

	"go.uber.org/multierr"
)

// Display shows frames to a user as they are written.
type Display interface {
	// Show displays img and reports whether the user asked to stop.
	Show(img image.Image) (quit bool, err error)
	Close() error
}

// Sink is where annotated frames go: always a writer, optionally a display too.
type Sink struct {
	Writer  FrameWriter
	Display Display
}

// Write writes frame and then shows it.
func (s *Sink) Write(ctx context.Context, frame *image.RGBA) (bool, error) {
	if err := s.Writer.Write(ctx, frame); err != nil {
		return false, err
	}
	if s.Display == nil {
		return false, nil
	}
	return s.Display.Show(frame)
}

// Close releases the writer and then the display.
func (s *Sink) Close() error {
	var err error
	if s.Writer != nil {
		err = multierr.Append(err, s.Writer.Close())
	}
	if s.Display != nil {
		err = multierr.Append(err, s.Display.Close())
	}
	return err
}
