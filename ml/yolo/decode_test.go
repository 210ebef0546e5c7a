package yolo

import (
	"testing"

	"go.viam.com/test"
)

// row builds one raw prediction row with three classes.
func row(cx, cy, w, h, obj float32, classes ...float32) []float32 {
	return append([]float32{cx, cy, w, h, obj}, classes...)
}

func TestDecodeIdentityLetterbox(t *testing.T) {
	lb := NewLetterbox(100, 100, 100)
	var raw []float32
	raw = append(raw, row(30, 30, 40, 40, 0.9, 0.1, 0.9, 0.0)...)
	raw = append(raw, row(32, 31, 40, 40, 0.8, 0.1, 0.8, 0.0)...) // overlaps the first, same class
	raw = append(raw, row(32, 31, 40, 40, 0.8, 0.9, 0.1, 0.0)...) // same place, other class
	raw = append(raw, row(80, 80, 10, 10, 0.2, 0.0, 0.0, 1.0)...) // below the floor

	preds, err := Decode(raw, []int{1, 4, 8}, lb, DefaultDecodeConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, preds, test.ShouldHaveLength, 2)

	test.That(t, preds[0].ClassID, test.ShouldEqual, 1)
	test.That(t, preds[0].Score, test.ShouldAlmostEqual, 0.81, 1e-6)
	test.That(t, preds[0].X1, test.ShouldAlmostEqual, 10)
	test.That(t, preds[0].Y1, test.ShouldAlmostEqual, 10)
	test.That(t, preds[0].X2, test.ShouldAlmostEqual, 50)
	test.That(t, preds[0].Y2, test.ShouldAlmostEqual, 50)

	test.That(t, preds[1].ClassID, test.ShouldEqual, 0)
	test.That(t, preds[1].Score, test.ShouldAlmostEqual, 0.72, 1e-6)
}

func TestDecodeClassAgnostic(t *testing.T) {
	lb := NewLetterbox(100, 100, 100)
	var raw []float32
	raw = append(raw, row(30, 30, 40, 40, 0.9, 0.9, 0.1)...)
	raw = append(raw, row(31, 31, 40, 40, 0.9, 0.1, 0.8)...)
	cfg := DefaultDecodeConfig()
	cfg.ClassAgnostic = true

	preds, err := Decode(raw, []int{2, 7}, lb, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, preds, test.ShouldHaveLength, 1)
	test.That(t, preds[0].ClassID, test.ShouldEqual, 0)
}

func TestDecodeUnscalesAndClips(t *testing.T) {
	// 200x100 frame letterboxed into 100x100: scale 0.5, 25 px of padding top and bottom.
	lb := NewLetterbox(200, 100, 100)
	raw := row(10, 50, 40, 20, 1, 1)
	preds, err := Decode(raw, []int{1, 1, 6}, lb, DefaultDecodeConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, preds, test.ShouldHaveLength, 1)
	test.That(t, preds[0].X1, test.ShouldEqual, 0) // -20 clipped
	test.That(t, preds[0].Y1, test.ShouldAlmostEqual, 30)
	test.That(t, preds[0].X2, test.ShouldAlmostEqual, 60)
	test.That(t, preds[0].Y2, test.ShouldAlmostEqual, 70)
}

func TestDecodeMaxDetections(t *testing.T) {
	lb := NewLetterbox(100, 100, 100)
	var raw []float32
	for i := 0; i < 5; i++ {
		raw = append(raw, row(float32(10+i*20), 10, 5, 5, 0.9, 1)...)
	}
	cfg := DefaultDecodeConfig()
	cfg.MaxDetections = 3
	preds, err := Decode(raw, []int{1, 5, 6}, lb, cfg)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, preds, test.ShouldHaveLength, 3)
}

func TestDecodeBadShape(t *testing.T) {
	lb := NewLetterbox(100, 100, 100)
	_, err := Decode(make([]float32, 10), []int{1, 2, 5}, lb, DefaultDecodeConfig())
	test.That(t, err, test.ShouldNotBeNil)

	_, err = Decode(make([]float32, 10), []int{10}, lb, DefaultDecodeConfig())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unsupported prediction shape")

	_, err = Decode(make([]float32, 11), []int{1, 2, 6}, lb, DefaultDecodeConfig())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestIoU(t *testing.T) {
	a := Prediction{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := Prediction{X1: 5, Y1: 0, X2: 15, Y2: 10}
	test.That(t, IoU(a, b), test.ShouldAlmostEqual, 50.0/150.0)
	test.That(t, IoU(a, Prediction{X1: 20, Y1: 20, X2: 30, Y2: 30}), test.ShouldEqual, 0)
	test.That(t, IoU(a, a), test.ShouldEqual, 1)
}
