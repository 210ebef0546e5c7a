package objectdetection

import (
	"github.com/samber/lo"
)

// Postprocessor defines a function that filters/modifies on an incoming array of Detections.
type Postprocessor func([]Detection) []Detection

// NewScoreFilter returns a function that keeps detections scoring at least conf.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in []Detection) []Detection {
		return lo.Filter(in, func(d Detection, _ int) bool {
			return d.Score() >= conf
		})
	}
}

// NewLabelFilter returns a function that keeps only detections with one of the given labels.
// An empty set keeps everything.
func NewLabelFilter(labels []string) Postprocessor {
	if len(labels) == 0 {
		return func(in []Detection) []Detection { return in }
	}
	keep := lo.SliceToMap(labels, func(l string) (string, struct{}) { return l, struct{}{} })
	return func(in []Detection) []Detection {
		return lo.Filter(in, func(d Detection, _ int) bool {
			_, ok := keep[d.Label()]
			return ok
		})
	}
}
