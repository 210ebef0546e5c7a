// Package objectdetection turns frames into scored, labelled boxes and draws the confident
// ones back onto the frame.
package objectdetection

import (
	"fmt"
	"image"
	"math"
)

// NormalizedBox is a box in frame-relative coordinates, each in [0,1].
type NormalizedBox struct {
	X1, Y1, X2, Y2 float64
}

// Denormalize maps the box onto a width×height frame. Each coordinate is floored.
func (b NormalizedBox) Denormalize(width, height int) image.Rectangle {
	w, h := float64(width), float64(height)
	return image.Rect(
		int(math.Floor(b.X1*w)),
		int(math.Floor(b.Y1*h)),
		int(math.Floor(b.X2*w)),
		int(math.Floor(b.Y2*h)),
	)
}

// Detection is a single scored, labelled box found in a frame.
type Detection interface {
	NormalizedBox() NormalizedBox
	Score() float64
	ClassID() int
	Label() string
}

// NewDetection creates a simple 2D detection.
func NewDetection(box NormalizedBox, score float64, classID int, label string) Detection {
	return &detection2D{box: box, score: score, classID: classID, label: label}
}

type detection2D struct {
	box     NormalizedBox
	score   float64
	classID int
	label   string
}

func (d *detection2D) NormalizedBox() NormalizedBox {
	return d.box
}

func (d *detection2D) Score() float64 {
	return d.score
}

func (d *detection2D) ClassID() int {
	return d.classID
}

func (d *detection2D) Label() string {
	return d.label
}

func (d *detection2D) String() string {
	return fmt.Sprintf("Label: %s, Score: %.2f, Box: (%.3f, %.3f)-(%.3f, %.3f)",
		d.label, d.score, d.box.X1, d.box.Y1, d.box.X2, d.box.Y2)
}
