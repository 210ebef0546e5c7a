package video

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

type fakeDisplay struct {
	shown  int
	quitAt int
	closed bool
}

func (d *fakeDisplay) Show(img image.Image) (bool, error) {
	d.shown++
	return d.quitAt > 0 && d.shown >= d.quitAt, nil
}

func (d *fakeDisplay) Close() error {
	d.closed = true
	return errors.New("window already gone")
}

func TestSink(t *testing.T) {
	ctx := context.Background()
	mem := &MemoryWriter{}
	disp := &fakeDisplay{quitAt: 2}
	sink := &Sink{Writer: mem, Display: disp}

	quit, err := sink.Write(ctx, solid(3, 3, color.RGBA{A: 255}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quit, test.ShouldBeFalse)
	quit, err = sink.Write(ctx, solid(3, 3, color.RGBA{A: 255}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quit, test.ShouldBeTrue)

	_, err = sink.Write(ctx, solid(4, 3, color.RGBA{}))
	test.That(t, errors.Is(err, ErrFrameSize), test.ShouldBeTrue)
	test.That(t, disp.shown, test.ShouldEqual, 2)
	test.That(t, mem.Frames, test.ShouldHaveLength, 2)

	err = sink.Close()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "window already gone")
	test.That(t, mem.Closed(), test.ShouldBeTrue)
	test.That(t, disp.closed, test.ShouldBeTrue)
}

func TestSinkWithoutDisplay(t *testing.T) {
	mem := &MemoryWriter{}
	sink := &Sink{Writer: mem}
	frame := solid(2, 2, color.RGBA{R: 7, A: 255})
	quit, err := sink.Write(context.Background(), frame)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quit, test.ShouldBeFalse)

	// the writer keeps its own copy
	frame.SetRGBA(0, 0, color.RGBA{})
	test.That(t, mem.Frames[0].RGBAAt(0, 0).R, test.ShouldEqual, 7)
	test.That(t, sink.Close(), test.ShouldBeNil)
	test.That(t, mem.Write(context.Background(), frame), test.ShouldNotBeNil)
}
