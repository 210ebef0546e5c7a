package yolo

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// Prediction is one post-NMS box in source frame pixels.
type Prediction struct {
	X1, Y1, X2, Y2 float64
	Score          float64
	ClassID        int
}

// DecodeConfig holds the postprocessing knobs. The defaults are the ones hub models ship with.
type DecodeConfig struct {
	// ConfidenceFloor discards candidates at or below this objectness×class score.
	ConfidenceFloor float64
	IoUThreshold    float64
	MaxDetections   int
	// ClassAgnostic runs NMS across classes instead of per class.
	ClassAgnostic bool
}

// DefaultDecodeConfig returns the hub model defaults.
func DefaultDecodeConfig() DecodeConfig {
	return DecodeConfig{
		ConfidenceFloor: 0.25,
		IoUThreshold:    0.45,
		MaxDetections:   1000,
	}
}

// maxNMSCandidates bounds the boxes that enter NMS after sorting by score.
const maxNMSCandidates = 30000

// Decode turns a raw [1, N, 5+C] (or [N, 5+C]) prediction, rows of
// cx, cy, w, h, objectness, class scores..., into predictions in source frame pixels.
func Decode(raw []float32, shape []int, lb Letterbox, cfg DecodeConfig) ([]Prediction, error) {
	rows, width, err := rowLayout(shape)
	if err != nil {
		return nil, err
	}
	if len(raw) != rows*width {
		return nil, errors.Errorf("prediction has %d values, shape %v needs %d", len(raw), shape, rows*width)
	}

	candidates := make([]Prediction, 0, 64)
	for i := 0; i < rows; i++ {
		row := raw[i*width : (i+1)*width]
		obj := float64(row[4])
		if obj <= cfg.ConfidenceFloor {
			continue
		}
		classID, classScore := 0, float32(0)
		for c, s := range row[5:] {
			if s > classScore {
				classID, classScore = c, s
			}
		}
		score := obj * float64(classScore)
		if score <= cfg.ConfidenceFloor {
			continue
		}
		cx, cy := float64(row[0]), float64(row[1])
		hw, hh := float64(row[2])/2, float64(row[3])/2
		candidates = append(candidates, Prediction{
			X1: cx - hw, Y1: cy - hh, X2: cx + hw, Y2: cy + hh,
			Score:   score,
			ClassID: classID,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > maxNMSCandidates {
		candidates = candidates[:maxNMSCandidates]
	}

	kept := NMS(candidates, cfg.IoUThreshold, cfg.ClassAgnostic, cfg.MaxDetections)
	for i := range kept {
		kept[i] = lb.unscale(kept[i])
	}
	return kept, nil
}

func rowLayout(shape []int) (int, int, error) {
	switch {
	case len(shape) == 3 && shape[0] == 1:
		if shape[2] < 6 {
			return 0, 0, errors.Errorf("prediction rows need at least 6 values, shape is %v", shape)
		}
		return shape[1], shape[2], nil
	case len(shape) == 2:
		if shape[1] < 6 {
			return 0, 0, errors.Errorf("prediction rows need at least 6 values, shape is %v", shape)
		}
		return shape[0], shape[1], nil
	default:
		return 0, 0, errors.Errorf("unsupported prediction shape %v, expected [1, N, 5+classes]", shape)
	}
}

// NMS greedily keeps the highest scoring boxes, suppressing any later box whose IoU with a kept
// box of the same class (or any class when agnostic) exceeds iouThreshold. in must be sorted by
// descending score.
func NMS(in []Prediction, iouThreshold float64, agnostic bool, maxDetections int) []Prediction {
	kept := make([]Prediction, 0, len(in))
	for _, cand := range in {
		if maxDetections > 0 && len(kept) >= maxDetections {
			break
		}
		suppressed := false
		for _, k := range kept {
			if !agnostic && k.ClassID != cand.ClassID {
				continue
			}
			if IoU(k, cand) > iouThreshold {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, cand)
		}
	}
	return kept
}

// IoU is the intersection over union of two boxes.
func IoU(a, b Prediction) float64 {
	ix1, iy1 := max(a.X1, b.X1), max(a.Y1, b.Y1)
	ix2, iy2 := min(a.X2, b.X2), min(a.Y2, b.Y2)
	iw, ih := ix2-ix1, iy2-iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	union := (a.X2-a.X1)*(a.Y2-a.Y1) + (b.X2-b.X1)*(b.Y2-b.Y1) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// unscale maps a prediction from model input pixels to source pixels, clipped to the frame.
func (lb Letterbox) unscale(p Prediction) Prediction {
	x1, y1 := lb.ToSource(p.X1, p.Y1)
	x2, y2 := lb.ToSource(p.X2, p.Y2)
	w, h := float64(lb.SrcW), float64(lb.SrcH)
	p.X1, p.Y1 = lo.Clamp(x1, 0, w), lo.Clamp(y1, 0, h)
	p.X2, p.Y2 = lo.Clamp(x2, 0, w), lo.Clamp(y2, 0, h)
	return p
}
