package onnxruntime

import (
	"context"
	"testing"

	ort "github.com/yalue/onnxruntime_go"
	"go.viam.com/test"

	"go.viam.com/videodetect/logging"
	"go.viam.com/videodetect/services/mlmodel"
)

func TestStaticShape(t *testing.T) {
	test.That(t, staticShape(ort.NewShape(1, 3, 640, 640), 320), test.ShouldResemble, []int64{1, 3, 640, 640})
	test.That(t, staticShape(ort.NewShape(-1, 3, -1, -1), 320), test.ShouldResemble, []int64{1, 3, 320, 320})
}

func TestOutputShape(t *testing.T) {
	shape, err := outputShape(ort.NewShape(-1, 25200, 7))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, shape, test.ShouldResemble, []int64{1, 25200, 7})

	_, err = outputShape(ort.NewShape(1, -1, 7))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "fixed image size")
}

func TestLibraryPath(t *testing.T) {
	t.Setenv(LibraryPathEnv, "/opt/ort/libonnxruntime.so")
	test.That(t, libraryPath(mlmodel.Config{RuntimeLibrary: "/custom/lib.so"}), test.ShouldEqual, "/custom/lib.so")
	test.That(t, libraryPath(mlmodel.Config{}), test.ShouldEqual, "/opt/ort/libonnxruntime.so")

	t.Setenv(LibraryPathEnv, "")
	test.That(t, libraryPath(mlmodel.Config{}), test.ShouldNotBeEmpty)
}

func TestTensorInfo(t *testing.T) {
	info := tensorInfo("images", []int64{1, 3, 640, 640})
	test.That(t, info.Name, test.ShouldEqual, "images")
	test.That(t, info.DataType, test.ShouldEqual, "float32")
	test.That(t, info.Shape, test.ShouldResemble, []int{1, 3, 640, 640})
}

func TestClosedModel(t *testing.T) {
	m := &Model{logger: logging.NewTestLogger(t)}
	test.That(t, m.Close(context.Background()), test.ShouldBeNil)
	_, err := m.Infer(context.Background(), nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "closed")
}

func TestRegistered(t *testing.T) {
	test.That(t, mlmodel.RegisteredBackends(), test.ShouldContain, ".onnx")
}
