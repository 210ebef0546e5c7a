package video

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	viamutils "go.viam.com/utils"

	"go.viam.com/videodetect/logging"
)

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
	} `json:"streams"`
}

// parseProbe pulls the first video stream's description out of ffprobe's JSON.
func parseProbe(out string) (StreamInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal([]byte(out), &probe); err != nil {
		return StreamInfo{}, errors.Wrap(err, "could not parse ffprobe output")
	}
	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		if s.Width <= 0 || s.Height <= 0 {
			return StreamInfo{}, errors.Errorf("video stream has invalid size %dx%d", s.Width, s.Height)
		}
		info := StreamInfo{Width: s.Width, Height: s.Height}
		info.FPS = parseRate(s.AvgFrameRate)
		if info.FPS == 0 {
			info.FPS = parseRate(s.RFrameRate)
		}
		info.Frames, _ = strconv.Atoi(s.NbFrames)
		return info, nil
	}
	return StreamInfo{}, errors.New("no video stream found")
}

// parseRate parses ffprobe rationals like "30000/1001". Unknown rates are zero.
func parseRate(rate string) float64 {
	num, den, found := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

// FFmpegSource decodes a video file with an ffmpeg subprocess into raw rgb24 frames.
type FFmpegSource struct {
	path   string
	info   StreamInfo
	logger logging.Logger

	cancel                  func()
	activeBackgroundWorkers sync.WaitGroup
	pipe                    *io.PipeReader
	stderr                  *lockedBuffer

	mu       sync.Mutex
	frame    int
	terminal error
	buf      []byte
}

// NewFFmpegSource probes path and starts decoding it. A file that cannot be probed is a
// *DecodeError for frame 0.
func NewFFmpegSource(ctx context.Context, path string, logger logging.Logger) (*FFmpegSource, error) {
	// make sure ffmpeg is in the path before doing anything else
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, err
	}

	probe, err := ffmpeg.Probe(path)
	if err != nil {
		return nil, &DecodeError{Frame: 0, Err: errors.Wrapf(err, "could not open %s", path)}
	}
	info, err := parseProbe(probe)
	if err != nil {
		return nil, &DecodeError{Frame: 0, Err: errors.Wrapf(err, "could not open %s", path)}
	}
	logger.Infow("opened video", "path", path, "width", info.Width, "height", info.Height, "fps", info.FPS, "frames", info.Frames)

	cancelableCtx, cancel := context.WithCancel(context.Background())
	in, out := io.Pipe()
	src := &FFmpegSource{
		path:   path,
		info:   info,
		logger: logger,
		cancel: cancel,
		pipe:   in,
		stderr: &lockedBuffer{},
		buf:    make([]byte, info.Width*info.Height*3),
	}

	src.activeBackgroundWorkers.Add(1)
	viamutils.ManagedGo(func() {
		stream := ffmpeg.Input(path).
			Output("pipe:", ffmpeg.KwArgs{"format": "rawvideo", "pix_fmt": "rgb24"}).
			WithOutput(out).
			WithErrorOutput(src.stderr)
		stream.Context = cancelableCtx
		err := stream.Run()
		if err != nil {
			err = errors.Wrapf(err, "ffmpeg: %s", src.stderr.tail())
		}
		// a nil error closes the pipe with io.EOF
		out.CloseWithError(err)
	}, func() {
		cancel()
		src.activeBackgroundWorkers.Done()
	})
	return src, nil
}

// Next reads one frame off the decoder.
func (s *FFmpegSource) Next(ctx context.Context) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal != nil {
		return nil, s.terminal
	}

	n, err := io.ReadFull(s.pipe, s.buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		s.terminal = ErrExhausted
		return nil, s.terminal
	case errors.Is(err, io.ErrUnexpectedEOF):
		s.terminal = &DecodeError{Frame: s.frame, Err: errors.Errorf("truncated frame, got %d of %d bytes", n, len(s.buf))}
		return nil, s.terminal
	default:
		s.terminal = &DecodeError{Frame: s.frame, Err: err}
		return nil, s.terminal
	}
	img := rgb24ToRGBA(s.buf, s.info.Width, s.info.Height)
	s.frame++
	return img, nil
}

// Info returns what the probe found.
func (s *FFmpegSource) Info() StreamInfo {
	return s.info
}

// Close stops the decoder and waits for it to exit.
func (s *FFmpegSource) Close() error {
	s.cancel()
	s.pipe.Close()
	s.activeBackgroundWorkers.Wait()
	s.logger.Debugw("closed video", "path", s.path, "frames", s.frame)
	return nil
}

// lockedBuffer collects a subprocess's stderr.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// tail returns the last line ffmpeg printed, usually the reason it failed.
func (b *lockedBuffer) tail() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := strings.Split(strings.TrimSpace(b.buf.String()), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
