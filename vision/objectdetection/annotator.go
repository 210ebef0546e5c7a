package objectdetection

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"

	"go.viam.com/videodetect/rimage"
)

// Drawing defaults.
const (
	DefaultThreshold = 0.2
	DefaultThickness = 2
	DefaultFontSize  = 18
)

// DefaultColor is the box and label color.
var DefaultColor = color.RGBA{R: 0, G: 255, B: 0, A: 255}

// Annotator draws detections onto frames.
type Annotator struct {
	// Threshold is the minimum score a detection needs to be drawn.
	Threshold float64
	Color     color.Color
	Thickness int
	FontSize  float64
}

// NewAnnotator returns an annotator with the default style.
func NewAnnotator() *Annotator {
	return &Annotator{
		Threshold: DefaultThreshold,
		Color:     DefaultColor,
		Thickness: DefaultThickness,
		FontSize:  DefaultFontSize,
	}
}

// AnnotateResult counts what happened to a frame's detections.
type AnnotateResult struct {
	Drawn   int
	Dropped []Detection
}

// Annotate draws a rectangle and a label for every detection scoring at least the threshold,
// directly into frame. Detections below it leave the frame untouched and are returned as
// dropped.
func (a *Annotator) Annotate(frame *image.RGBA, dets []Detection) AnnotateResult {
	var res AnnotateResult
	kept := NewScoreFilter(a.Threshold)(dets)
	res.Drawn = len(kept)
	if len(kept) < len(dets) {
		res.Dropped = make([]Detection, 0, len(dets)-len(kept))
		for _, d := range dets {
			if d.Score() < a.Threshold {
				res.Dropped = append(res.Dropped, d)
			}
		}
	}
	if len(kept) == 0 {
		return res
	}

	bounds := frame.Bounds()
	dc := gg.NewContextForRGBA(frame)
	for _, d := range kept {
		r := d.NormalizedBox().Denormalize(bounds.Dx(), bounds.Dy()).Add(bounds.Min)
		rimage.DrawRectangleEmpty(frame, r, a.Color, a.Thickness)
		rimage.DrawString(dc, d.Label(), r.Min, a.Color, a.FontSize)
	}
	return res
}
