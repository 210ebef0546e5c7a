// Package video reads frames out of video files and writes annotated frames back into them.
package video

import (
	"context"
	"image"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/videodetect/rimage"
)

// StreamInfo describes a source's stream as far as it is known up front.
type StreamInfo struct {
	Width  int
	Height int
	// FPS is zero when the container does not say.
	FPS float64
	// Frames is zero when the container does not say.
	Frames int
}

// A Source produces frames in presentation order. It is finite and cannot be restarted.
// Next returns ErrExhausted after the last frame and a *DecodeError when the stream breaks.
type Source interface {
	Next(ctx context.Context) (*image.RGBA, error)
	Info() StreamInfo
	Close() error
}

// SliceSource serves frames from memory.
type SliceSource struct {
	mu     sync.Mutex
	frames []*image.RGBA
	next   int
	fps    float64
	closed bool
	// FailAt makes Next fail with a DecodeError at that index when > 0.
	FailAt int
}

// NewSliceSource returns a source over copies of frames.
func NewSliceSource(fps float64, frames ...image.Image) *SliceSource {
	s := &SliceSource{fps: fps}
	for _, f := range frames {
		s.frames = append(s.frames, rimage.CloneRGBA(f))
	}
	return s
}

// Next returns the next frame.
func (s *SliceSource) Next(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("source is closed")
	}
	if s.FailAt > 0 && s.next == s.FailAt {
		return nil, &DecodeError{Frame: s.next, Err: errors.New("injected failure")}
	}
	if s.next >= len(s.frames) {
		return nil, ErrExhausted
	}
	f := s.frames[s.next]
	s.next++
	return f, nil
}

// Info reports the size of the first frame.
func (s *SliceSource) Info() StreamInfo {
	info := StreamInfo{FPS: s.fps, Frames: len(s.frames)}
	if len(s.frames) > 0 {
		b := s.frames[0].Bounds()
		info.Width, info.Height = b.Dx(), b.Dy()
	}
	return info
}

// Close marks the source closed.
func (s *SliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// rgb24ToRGBA expands packed rgb24 pixels into an opaque RGBA image.
func rgb24ToRGBA(buf []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i+2 < len(buf) && j+3 < len(img.Pix); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}

// rgbaToRGB24 packs the RGB channels of img, dropping alpha.
func rgbaToRGB24(img *image.RGBA, dst []byte) []byte {
	b := img.Bounds()
	dst = dst[:0]
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Min.X, y)+4*b.Dx()]
		for x := 0; x < len(row); x += 4 {
			dst = append(dst, row[x], row[x+1], row[x+2])
		}
	}
	return dst
}
