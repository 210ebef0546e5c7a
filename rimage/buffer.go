package rimage

import (
	"image"
	"image/color"
)

// ImageToFloatBuffer returns the RGB values of img scaled to [0,1]. When planar is true the
// buffer is laid out channel first (CHW), otherwise pixel interleaved (HWC).
func ImageToFloatBuffer(img image.Image, planar bool) []float32 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	out := make([]float32, 3*plane)

	put := func(x, y int, r, g, b uint8) {
		i := y*width + x
		if planar {
			out[i] = float32(r) / 255
			out[plane+i] = float32(g) / 255
			out[2*plane+i] = float32(b) / 255
			return
		}
		out[3*i] = float32(r) / 255
		out[3*i+1] = float32(g) / 255
		out[3*i+2] = float32(b) / 255
	}

	switch im := img.(type) {
	case *image.NRGBA:
		for y := 0; y < height; y++ {
			row := im.Pix[y*im.Stride:]
			for x := 0; x < width; x++ {
				put(x, y, row[4*x], row[4*x+1], row[4*x+2])
			}
		}
	case *image.RGBA:
		for y := 0; y < height; y++ {
			row := im.Pix[y*im.Stride:]
			for x := 0; x < width; x++ {
				put(x, y, row[4*x], row[4*x+1], row[4*x+2])
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				c := color.RGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
				put(x, y, c.R, c.G, c.B)
			}
		}
	}
	return out
}

// CloneRGBA returns a deep copy of img as an RGBA image anchored at the origin.
func CloneRGBA(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	if src, ok := img.(*image.RGBA); ok && src.Rect.Min == (image.Point{}) && src.Stride == out.Stride {
		copy(out.Pix, src.Pix)
		return out
	}
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			out.Set(x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
		}
	}
	return out
}

// EqualRGBA reports whether two RGBA images have identical bounds and pixels.
func EqualRGBA(a, b *image.RGBA) bool {
	if a.Rect != b.Rect {
		return false
	}
	if a.Rect.Empty() {
		return true
	}
	for y := a.Rect.Min.Y; y < a.Rect.Max.Y; y++ {
		ra := a.Pix[a.PixOffset(a.Rect.Min.X, y):a.PixOffset(a.Rect.Max.X-1, y)+4]
		rb := b.Pix[b.PixOffset(b.Rect.Min.X, y):b.PixOffset(b.Rect.Max.X-1, y)+4]
		for i := range ra {
			if ra[i] != rb[i] {
				return false
			}
		}
	}
	return true
}
