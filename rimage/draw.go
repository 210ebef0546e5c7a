// Package rimage holds the image helpers used to draw detections onto frames and to pack
// frames into model input buffers.
package rimage

import (
	"image"
	"image/color"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

var (
	ttf   *truetype.Font
	faces sync.Map // float64 size -> font.Face
)

// init sets up the fonts we want to use.
func init() {
	var err error
	ttf, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return ttf
}

// FontFace returns a face of the drawing font at the given point size.
func FontFace(size float64) font.Face {
	if face, ok := faces.Load(size); ok {
		return face.(font.Face)
	}
	face, _ := faces.LoadOrStore(size, truetype.NewFace(Font(), &truetype.Options{Size: size}))
	return face.(font.Face)
}

// DrawString writes a string to the given context with its baseline starting at p.
func DrawString(dc *gg.Context, text string, p image.Point, c color.Color, size float64) {
	dc.SetFontFace(FontFace(size))
	dc.SetColor(c)
	dc.DrawString(text, float64(p.X), float64(p.Y))
}

// DrawRectangleEmpty draws the border of r into img. Both corners of r are inclusive and the
// border grows inward by thickness pixels. Pixels outside img are skipped.
func DrawRectangleEmpty(img *image.RGBA, r image.Rectangle, c color.Color, thickness int) {
	r = r.Canon()
	if thickness < 1 {
		thickness = 1
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	bounds := img.Bounds()
	setPixel := func(x, y int) {
		if (image.Point{x, y}).In(bounds) {
			img.SetRGBA(x, y, rgba)
		}
	}

	for t := 0; t < thickness; t++ {
		for x := r.Min.X; x <= r.Max.X; x++ {
			setPixel(x, r.Min.Y+t)
			setPixel(x, r.Max.Y-t)
		}
		for y := r.Min.Y; y <= r.Max.Y; y++ {
			setPixel(r.Min.X+t, y)
			setPixel(r.Max.X-t, y)
		}
	}
}
