// Package pipeline drives frames from a source through the scorer and the annotator into a
// sink, one frame at a time.
package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"

	"go.viam.com/videodetect/logging"
	"go.viam.com/videodetect/video"
	"go.viam.com/videodetect/vision/objectdetection"
)

// State is the driver's state.
type State int

// States of a run.
const (
	Running State = iota
	Stopped
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// FrameSink takes annotated frames and may ask the run to stop.
type FrameSink interface {
	Write(ctx context.Context, frame *image.RGBA) (quit bool, err error)
	Close() error
}

// Pipeline wires the stages of a run together. Run owns Source and Sink and closes both.
type Pipeline struct {
	Source    video.Source
	Scorer    objectdetection.Scorer
	Annotator *objectdetection.Annotator
	Sink      FrameSink
	Logger    logging.Logger
	// OnState, if set, observes state transitions.
	OnState func(State)
}

// Run processes frames until the source is exhausted, the sink asks to quit, ctx is
// cancelled or a stage fails. The source and then the sink are released however the run
// ends. Cancellation is a normal stop; only stage and release failures are returned.
func Run(ctx context.Context, p Pipeline) (stats *Stats, err error) {
	if p.Source == nil || p.Scorer == nil || p.Sink == nil {
		return nil, errors.New("pipeline needs a source, a scorer and a sink")
	}
	if p.Annotator == nil {
		p.Annotator = objectdetection.NewAnnotator()
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.NewBlankLogger("pipeline")
	}
	setState := func(s State) {
		logger.Debugw("pipeline state", "state", s.String())
		if p.OnState != nil {
			p.OnState(s)
		}
	}

	stats = &Stats{}
	start := time.Now()
	setState(Running)
	defer func() {
		err = multierr.Combine(err,
			errors.Wrap(p.Source.Close(), "could not release source"),
			errors.Wrap(p.Sink.Close(), "could not release sink"),
		)
		stats.Elapsed = time.Since(start)
		setState(Stopped)
		logSummary(logger, stats)
	}()

	for {
		if ctx.Err() != nil {
			stats.StopReason = StopCancelled
			return stats, nil
		}

		frame, err := p.Source.Next(ctx)
		if err != nil {
			switch {
			case video.IsExhausted(err):
				stats.StopReason = StopExhausted
				return stats, nil
			case ctx.Err() != nil:
				stats.StopReason = StopCancelled
				return stats, nil
			default:
				stats.StopReason = StopError
				return stats, err
			}
		}
		idx := stats.FramesRead
		stats.FramesRead++

		scoreStart := time.Now()
		dets, err := p.Scorer(ctx, frame)
		if err != nil {
			stats.StopReason = StopError
			return stats, errors.Wrapf(err, "could not score frame %d", idx)
		}
		stats.addLatency(time.Since(scoreStart))
		stats.Detections += len(dets)

		res := p.Annotator.Annotate(frame, dets)
		stats.Drawn += res.Drawn
		stats.Dropped += len(res.Dropped)
		if len(res.Dropped) > 0 {
			best := lo.MaxBy(res.Dropped, func(a, b objectdetection.Detection) bool {
				return a.Score() > b.Score()
			})
			logger.Debugw("dropped low-confidence detections",
				"frame", idx, "count", len(res.Dropped), "best_score", best.Score(), "best_label", best.Label())
		}

		quit, err := p.Sink.Write(ctx, frame)
		if err != nil {
			stats.StopReason = StopError
			return stats, errors.Wrapf(err, "could not write frame %d", idx)
		}
		stats.FramesWritten++
		if quit {
			stats.StopReason = StopQuit
			return stats, nil
		}
	}
}

func logSummary(logger logging.Logger, stats *Stats) {
	lat := stats.Latency()
	logger.Infow("run finished",
		"reason", string(stats.StopReason),
		"frames_read", stats.FramesRead,
		"frames_written", stats.FramesWritten,
		"detections", stats.Detections,
		"drawn", stats.Drawn,
		"dropped", stats.Dropped,
		"latency_mean_ms", lat.Mean,
		"latency_p50_ms", lat.P50,
		"latency_p95_ms", lat.P95,
		"fps", stats.FPS(),
	)
}
