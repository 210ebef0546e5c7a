package video

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	viamutils "go.viam.com/utils"

	"go.viam.com/videodetect/logging"
	"go.viam.com/videodetect/rimage"
)

// Output defaults.
const (
	DefaultOutputPath = "output.avi"
	DefaultFPS        = 20.0
	DefaultCodec      = "mpeg4"
	DefaultCodecTag   = "XVID"
)

// FrameWriter consumes annotated frames.
type FrameWriter interface {
	Write(ctx context.Context, frame *image.RGBA) error
	Close() error
}

// WriterConfig configures an FFmpegWriter.
type WriterConfig struct {
	Path     string
	FPS      float64
	Codec    string
	CodecTag string
}

// FFmpegWriter encodes frames into a video file with an ffmpeg subprocess. The output size is
// fixed by the first frame written. Writes must come from a single goroutine.
type FFmpegWriter struct {
	conf   WriterConfig
	logger logging.Logger

	mu                      sync.Mutex
	size                    image.Point
	pipe                    *io.PipeWriter
	stderr                  *lockedBuffer
	buf                     []byte
	frames                  int
	closed                  bool
	runErr                  error
	activeBackgroundWorkers sync.WaitGroup
}

// NewFFmpegWriter prepares a writer. Nothing is started until the first frame arrives.
func NewFFmpegWriter(conf WriterConfig, logger logging.Logger) (*FFmpegWriter, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, err
	}
	if conf.Path == "" {
		conf.Path = DefaultOutputPath
	}
	if conf.FPS <= 0 {
		conf.FPS = DefaultFPS
	}
	if conf.Codec == "" {
		conf.Codec = DefaultCodec
	}
	if conf.CodecTag == "" && conf.Codec == DefaultCodec {
		conf.CodecTag = DefaultCodecTag
	}
	return &FFmpegWriter{conf: conf, logger: logger}, nil
}

// Size returns the output size, zero before the first frame.
func (w *FFmpegWriter) Size() image.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

func (w *FFmpegWriter) start(size image.Point) {
	in, out := io.Pipe()
	w.size = size
	w.pipe = out
	w.stderr = &lockedBuffer{}

	outArgs := ffmpeg.KwArgs{
		"c:v":     w.conf.Codec,
		"pix_fmt": "yuv420p",
		"q:v":     3,
		// yuv420p needs even dimensions
		"vf": "pad=ceil(iw/2)*2:ceil(ih/2)*2",
	}
	if w.conf.CodecTag != "" {
		outArgs["vtag"] = w.conf.CodecTag
	}

	w.activeBackgroundWorkers.Add(1)
	viamutils.ManagedGo(func() {
		err := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
			"format":    "rawvideo",
			"pix_fmt":   "rgb24",
			"s":         fmt.Sprintf("%dx%d", size.X, size.Y),
			"framerate": w.conf.FPS,
		}).
			Output(w.conf.Path, outArgs).
			OverWriteOutput().
			WithInput(in).
			WithErrorOutput(w.stderr).
			Run()
		w.mu.Lock()
		switch {
		case err != nil:
			w.runErr = errors.Wrapf(err, "ffmpeg: %s", w.stderr.tail())
		case !w.closed:
			w.runErr = errors.New("ffmpeg exited before the output was closed")
		}
		runErr := w.runErr
		w.mu.Unlock()
		// unblock writers if ffmpeg stopped reading
		in.CloseWithError(runErr)
	}, w.activeBackgroundWorkers.Done)
	w.logger.Infow("writing video", "path", w.conf.Path, "width", size.X, "height", size.Y,
		"fps", w.conf.FPS, "codec", w.conf.Codec, "tag", w.conf.CodecTag)
}

// Write appends frame to the output. The first frame fixes the output size; later frames of
// another size fail with ErrFrameSize.
func (w *FFmpegWriter) Write(ctx context.Context, frame *image.RGBA) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return errors.New("writer is closed")
	}
	size := frame.Bounds().Size()
	if w.pipe == nil {
		if size.X <= 0 || size.Y <= 0 {
			w.mu.Unlock()
			return errors.Errorf("cannot write an empty %dx%d frame", size.X, size.Y)
		}
		w.start(size)
	} else if size != w.size {
		w.mu.Unlock()
		return errors.Wrapf(ErrFrameSize, "got %dx%d, output is %dx%d", size.X, size.Y, w.size.X, w.size.Y)
	}
	w.buf = rgbaToRGB24(frame, w.buf)
	pipe := w.pipe
	w.mu.Unlock()

	if _, err := pipe.Write(w.buf); err != nil {
		return errors.Wrap(err, "could not write frame to encoder")
	}
	w.mu.Lock()
	w.frames++
	w.mu.Unlock()
	return nil
}

// Close flushes the encoder and waits for the file to be finalized.
func (w *FFmpegWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	pipe := w.pipe
	w.mu.Unlock()

	if pipe == nil {
		w.logger.Warnw("no frames written, output not created", "path", w.conf.Path)
		return nil
	}
	pipe.Close()
	w.activeBackgroundWorkers.Wait()
	w.logger.Infow("finished video", "path", w.conf.Path, "frames", w.frames)
	return w.runErr
}

// MemoryWriter keeps copies of every frame written, following the same size rules as the
// file writer.
type MemoryWriter struct {
	mu     sync.Mutex
	Frames []*image.RGBA
	closed bool
}

// Write stores a copy of frame.
func (m *MemoryWriter) Write(ctx context.Context, frame *image.RGBA) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("writer is closed")
	}
	if len(m.Frames) > 0 {
		want, got := m.Frames[0].Bounds().Size(), frame.Bounds().Size()
		if want != got {
			return errors.Wrapf(ErrFrameSize, "got %dx%d, output is %dx%d", got.X, got.Y, want.X, want.Y)
		}
	}
	m.Frames = append(m.Frames, rimage.CloneRGBA(frame))
	return nil
}

// Close marks the writer closed.
func (m *MemoryWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MemoryWriter) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
