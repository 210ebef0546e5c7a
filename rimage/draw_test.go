package rimage

import (
	"image"
	"image/color"
	"testing"

	"github.com/fogleman/gg"
	"go.viam.com/test"
)

var green = color.RGBA{0, 255, 0, 255}

func TestDrawRectangleEmpty(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	DrawRectangleEmpty(img, image.Rect(10, 10, 50, 50), green, 2)

	for _, pt := range []image.Point{{10, 10}, {50, 50}, {10, 50}, {50, 10}, {30, 10}, {30, 11}, {11, 30}, {49, 30}, {30, 49}} {
		test.That(t, img.RGBAAt(pt.X, pt.Y), test.ShouldResemble, green)
	}
	// inside the border and outside the rectangle stay untouched
	for _, pt := range []image.Point{{30, 30}, {12, 12}, {9, 10}, {51, 50}, {30, 52}} {
		test.That(t, img.RGBAAt(pt.X, pt.Y), test.ShouldResemble, color.RGBA{})
	}
}

func TestDrawRectangleEmptyClips(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	DrawRectangleEmpty(img, image.Rect(-5, -5, 30, 30), green, 1)
	test.That(t, EqualRGBA(img, image.NewRGBA(image.Rect(0, 0, 20, 20))), test.ShouldBeTrue)

	DrawRectangleEmpty(img, image.Rect(15, 15, 25, 25), green, 0)
	test.That(t, img.RGBAAt(15, 19), test.ShouldResemble, green)
	test.That(t, img.RGBAAt(19, 15), test.ShouldResemble, green)
	test.That(t, img.RGBAAt(16, 16), test.ShouldResemble, color.RGBA{})
}

func TestDrawString(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 120, 60))
	before := CloneRGBA(img)
	dc := gg.NewContextForRGBA(img)
	DrawString(dc, "person", image.Pt(10, 40), green, 18)
	test.That(t, EqualRGBA(img, before), test.ShouldBeFalse)

	// text hangs off its baseline, well clear of the bottom rows
	for x := 0; x < 120; x++ {
		test.That(t, img.RGBAAt(x, 56), test.ShouldResemble, color.RGBA{})
	}
}

func TestFontFaceCached(t *testing.T) {
	test.That(t, FontFace(12), test.ShouldEqual, FontFace(12))
	test.That(t, Font(), test.ShouldNotBeNil)
}
