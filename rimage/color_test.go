package rimage

import (
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestParseColor(t *testing.T) {
	c, err := ParseColor("green")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldResemble, Green)

	c, err = ParseColor(" #FF8000 ")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldResemble, color.RGBA{R: 255, G: 128, A: 255})

	c, err = ParseColor("00ff00")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldResemble, Green)

	_, err = ParseColor("not-a-color")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestHex(t *testing.T) {
	test.That(t, Hex(Green), test.ShouldEqual, "#00ff00")
	test.That(t, Hex(color.RGBA{R: 1, G: 2, B: 3, A: 255}), test.ShouldEqual, "#010203")
}
