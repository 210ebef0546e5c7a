package video

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestSliceSource(t *testing.T) {
	ctx := context.Background()
	src := NewSliceSource(25, solid(4, 3, color.RGBA{R: 1, A: 255}), solid(4, 3, color.RGBA{G: 2, A: 255}))
	test.That(t, src.Info(), test.ShouldResemble, StreamInfo{Width: 4, Height: 3, FPS: 25, Frames: 2})

	f, err := src.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.RGBAAt(0, 0).R, test.ShouldEqual, 1)
	f, err = src.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, f.RGBAAt(0, 0).G, test.ShouldEqual, 2)

	_, err = src.Next(ctx)
	test.That(t, IsExhausted(err), test.ShouldBeTrue)
	_, err = src.Next(ctx)
	test.That(t, IsExhausted(err), test.ShouldBeTrue)

	test.That(t, src.Close(), test.ShouldBeNil)
	test.That(t, src.Closed(), test.ShouldBeTrue)
	_, err = src.Next(ctx)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, IsExhausted(err), test.ShouldBeFalse)
}

func TestSliceSourceDecodeError(t *testing.T) {
	src := NewSliceSource(0, solid(2, 2, color.RGBA{}), solid(2, 2, color.RGBA{}))
	src.FailAt = 1
	_, err := src.Next(context.Background())
	test.That(t, err, test.ShouldBeNil)
	_, err = src.Next(context.Background())
	test.That(t, IsExhausted(err), test.ShouldBeFalse)
	var decodeErr *DecodeError
	test.That(t, errors.As(err, &decodeErr), test.ShouldBeTrue)
	test.That(t, decodeErr.Frame, test.ShouldEqual, 1)
	test.That(t, err.Error(), test.ShouldContainSubstring, "frame 1")
}

func TestSliceSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewSliceSource(0, solid(1, 1, color.RGBA{})).Next(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestEmptySliceSource(t *testing.T) {
	src := NewSliceSource(0)
	test.That(t, src.Info(), test.ShouldResemble, StreamInfo{})
	_, err := src.Next(context.Background())
	test.That(t, IsExhausted(err), test.ShouldBeTrue)
}

func TestPixelPacking(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5, 6}
	img := rgb24ToRGBA(buf, 2, 1)
	test.That(t, img.RGBAAt(0, 0), test.ShouldResemble, color.RGBA{1, 2, 3, 255})
	test.That(t, img.RGBAAt(1, 0), test.ShouldResemble, color.RGBA{4, 5, 6, 255})
	test.That(t, rgbaToRGB24(img, nil), test.ShouldResemble, buf)

	sub := solid(4, 4, color.RGBA{9, 8, 7, 255}).SubImage(image.Rect(1, 1, 3, 2)).(*image.RGBA)
	test.That(t, rgbaToRGB24(sub, nil), test.ShouldResemble, []byte{9, 8, 7, 9, 8, 7})
}

func TestParseProbe(t *testing.T) {
	info, err := parseProbe(`{"streams": [
		{"codec_type": "audio"},
		{"codec_type": "video", "width": 640, "height": 480, "r_frame_rate": "20/1", "avg_frame_rate": "0/0", "nb_frames": "120"}
	]}`)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info, test.ShouldResemble, StreamInfo{Width: 640, Height: 480, FPS: 20, Frames: 120})

	info, err = parseProbe(`{"streams": [{"codec_type": "video", "width": 2, "height": 2, "avg_frame_rate": "30000/1001"}]}`)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.FPS, test.ShouldAlmostEqual, 29.97, 0.01)
	test.That(t, info.Frames, test.ShouldEqual, 0)

	_, err = parseProbe(`{"streams": [{"codec_type": "audio"}]}`)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseProbe(`not json`)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseProbe(`{"streams": [{"codec_type": "video", "width": 0, "height": 2}]}`)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseRate(t *testing.T) {
	test.That(t, parseRate("20/1"), test.ShouldEqual, 20.0)
	test.That(t, parseRate("25"), test.ShouldEqual, 25.0)
	test.That(t, parseRate("0/0"), test.ShouldEqual, 0.0)
	test.That(t, parseRate(""), test.ShouldEqual, 0.0)
}
