package pipeline

import (
	"time"

	"github.com/montanaflynn/stats"
)

// StopReason says why a run left the running state.
type StopReason string

// Stop reasons.
const (
	StopExhausted StopReason = "exhausted"
	StopQuit      StopReason = "quit"
	StopCancelled StopReason = "cancelled"
	StopError     StopReason = "error"
)

// Stats accumulates what happened during a run.
type Stats struct {
	FramesRead    int
	FramesWritten int
	Detections    int
	Drawn         int
	Dropped       int
	StopReason    StopReason
	Elapsed       time.Duration
	// latencies holds per frame scoring time in milliseconds.
	latencies stats.Float64Data
}

func (s *Stats) addLatency(d time.Duration) {
	s.latencies = append(s.latencies, float64(d.Microseconds())/1000)
}

// LatencySummary is the distribution of per frame scoring time in milliseconds.
type LatencySummary struct {
	Mean float64
	P50  float64
	P95  float64
	Max  float64
}

// Latency summarizes scoring time. It is zero when no frame was scored.
func (s *Stats) Latency() LatencySummary {
	if len(s.latencies) == 0 {
		return LatencySummary{}
	}
	var sum LatencySummary
	sum.Mean, _ = stats.Mean(s.latencies)
	sum.P50, _ = stats.Median(s.latencies)
	sum.P95, _ = stats.Percentile(s.latencies, 95)
	sum.Max, _ = stats.Max(s.latencies)
	return sum
}

// FPS is the end to end frame rate of the run.
func (s *Stats) FPS() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.FramesWritten) / s.Elapsed.Seconds()
}
