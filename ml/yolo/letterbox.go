// Package yolo reproduces the pre- and postprocessing that YOLOv5 hub models wrap around the
// raw network: letterboxing frames into the square model input and turning the raw
// prediction tensor into non-overlapping, class-labelled boxes.
package yolo

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

// PadColor is the gray YOLOv5 fills letterbox borders with.
var PadColor = color.NRGBA{R: 114, G: 114, B: 114, A: 255}

// Letterbox describes how a source frame was fit, aspect preserved, into the square model input.
type Letterbox struct {
	Size     int
	SrcW     int
	SrcH     int
	Scale    float64
	ResizedW int
	ResizedH int
	PadX     int
	PadY     int
}

// NewLetterbox computes the letterbox for a srcW×srcH frame and a size×size model input.
func NewLetterbox(srcW, srcH, size int) Letterbox {
	scale := math.Min(float64(size)/float64(srcW), float64(size)/float64(srcH))
	resizedW := int(math.Round(float64(srcW) * scale))
	resizedH := int(math.Round(float64(srcH) * scale))
	return Letterbox{
		Size:     size,
		SrcW:     srcW,
		SrcH:     srcH,
		Scale:    scale,
		ResizedW: resizedW,
		ResizedH: resizedH,
		PadX:     (size - resizedW) / 2,
		PadY:     (size - resizedH) / 2,
	}
}

// Apply resizes img and pastes it onto a padded size×size canvas.
func (lb Letterbox) Apply(img image.Image) *image.NRGBA {
	canvas := imaging.New(lb.Size, lb.Size, PadColor)
	var scaled image.Image = img
	if lb.ResizedW != lb.SrcW || lb.ResizedH != lb.SrcH {
		scaled = resize.Resize(uint(lb.ResizedW), uint(lb.ResizedH), img, resize.Bilinear)
	}
	return imaging.Paste(canvas, scaled, image.Pt(lb.PadX, lb.PadY))
}

// ToSource maps a point in model input pixels back to source frame pixels.
func (lb Letterbox) ToSource(x, y float64) (float64, float64) {
	return (x - float64(lb.PadX)) / lb.Scale, (y - float64(lb.PadY)) / lb.Scale
}
