//go:build tflite

// Package tflitecpu runs TensorFlow Lite exports of YOLO detectors on the host's CPU.
package tflitecpu

import (
	"context"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	tflite "github.com/mattn/go-tflite"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/videodetect/logging"
	"go.viam.com/videodetect/ml"
	"go.viam.com/videodetect/services/mlmodel"
)

func init() {
	mlmodel.RegisterBackend(".tflite", func(ctx context.Context, conf mlmodel.Config, logger logging.Logger) (mlmodel.Service, error) {
		return NewTFLiteCPUModel(ctx, conf, logger.Sublogger("tflite_cpu"))
	})
}

// Model is a tflite interpreter bound to the CPU.
type Model struct {
	mu          sync.Mutex
	model       *tflite.Model
	options     *tflite.InterpreterOptions
	interpreter *tflite.Interpreter
	metadata    mlmodel.MLMetadata
	logger      logging.Logger
}

// NewTFLiteCPUModel loads the model at conf.Path. A cuda device request is refused since this
// runtime only has a CPU delegate.
func NewTFLiteCPUModel(ctx context.Context, conf mlmodel.Config, logger logging.Logger) (*Model, error) {
	_, span := trace.StartSpan(ctx, "service::mlmodel::tflite_cpu::NewTFLiteCPUModel")
	defer span.End()

	if conf.Device == mlmodel.DeviceCUDA {
		return nil, errors.New("tflite models only run on the cpu")
	}
	numThreads := conf.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	model := tflite.NewModelFromFile(conf.Path)
	if model == nil {
		return nil, errors.Errorf("failed to load tflite model from %s", conf.Path)
	}
	options := tflite.NewInterpreterOptions()
	if options == nil {
		model.Delete()
		return nil, errors.New("interpreter options failed to be created")
	}
	options.SetNumThread(numThreads)
	options.SetErrorReporter(func(msg string, _ interface{}) {
		logger.Warn(msg)
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		options.Delete()
		model.Delete()
		return nil, errors.New("failed to create interpreter")
	}
	m := &Model{model: model, options: options, interpreter: interpreter, logger: logger}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		m.release()
		return nil, errors.New("failed to allocate tensors")
	}

	m.metadata = mlmodel.MLMetadata{
		ModelName: strings.TrimSuffix(filepath.Base(conf.Path), filepath.Ext(conf.Path)),
		ModelType: "yolov5_detector",
		Device:    mlmodel.DeviceCPU,
	}
	for i := 0; i < interpreter.GetInputTensorCount(); i++ {
		t := interpreter.GetInputTensor(i)
		if t.Type() != tflite.Float32 {
			m.release()
			return nil, errors.Errorf("input %q is %v, only float32 inputs are supported", t.Name(), t.Type())
		}
		m.metadata.Inputs = append(m.metadata.Inputs, tensorInfo(t))
	}
	for i := 0; i < interpreter.GetOutputTensorCount(); i++ {
		t := interpreter.GetOutputTensor(i)
		if t.Type() != tflite.Float32 {
			m.release()
			return nil, errors.Errorf("output %q is %v, only float32 outputs are supported", t.Name(), t.Type())
		}
		m.metadata.Outputs = append(m.metadata.Outputs, tensorInfo(t))
	}
	return m, nil
}

func tensorInfo(t *tflite.Tensor) mlmodel.TensorInfo {
	shape := make([]int, t.NumDims())
	for i := range shape {
		shape[i] = t.Dim(i)
	}
	return mlmodel.TensorInfo{
		Name:     t.Name(),
		DataType: strings.ToLower(t.Type().String()),
		Shape:    shape,
	}
}

// Infer runs the interpreter. Box coordinates come out of tflite exports normalized to the
// input size and are scaled back to input pixels here.
func (m *Model) Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error) {
	_, span := trace.StartSpan(ctx, "service::mlmodel::tflite_cpu::Infer")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interpreter == nil {
		return nil, errors.New("model is closed")
	}

	for i, info := range m.metadata.Inputs {
		in, ok := tensors[info.Name]
		if !ok && len(tensors) == 1 && len(m.metadata.Inputs) == 1 {
			for _, only := range tensors {
				in = only
			}
			ok = true
		}
		if !ok {
			return nil, errors.Errorf("missing input tensor %q", info.Name)
		}
		data, err := ml.Float32Data(in)
		if err != nil {
			return nil, errors.Wrapf(err, "input %q", info.Name)
		}
		dst := m.interpreter.GetInputTensor(i).Float32s()
		if len(data) != len(dst) {
			return nil, errors.Errorf("input %q has %d values, model expects %d (shape %v)",
				info.Name, len(data), len(dst), info.Shape)
		}
		copy(dst, data)
	}

	if status := m.interpreter.Invoke(); status != tflite.OK {
		return nil, errors.New("invoke failed")
	}

	inputSize := float32(1)
	if in := m.metadata.Inputs[0].Shape; len(in) == 4 {
		inputSize = float32(in[1])
	}
	out := make(ml.Tensors, len(m.metadata.Outputs))
	for i, info := range m.metadata.Outputs {
		src := m.interpreter.GetOutputTensor(i).Float32s()
		data := make([]float32, len(src))
		copy(data, src)
		if width := info.Shape[len(info.Shape)-1]; width > 4 {
			for r := 0; r+width <= len(data); r += width {
				for c := 0; c < 4; c++ {
					data[r+c] *= inputSize
				}
			}
		}
		out[info.Name] = ml.Float32Tensor(data, info.Shape...)
	}
	return out, nil
}

// Metadata describes the interpreter's tensors.
func (m *Model) Metadata(ctx context.Context) (mlmodel.MLMetadata, error) {
	return m.metadata, nil
}

// Labels is empty: tflite exports carry no class names, supply a labels file instead.
func (m *Model) Labels() mlmodel.LabelTable {
	return nil
}

// Close deletes the interpreter and the model.
func (m *Model) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.release()
	return nil
}

func (m *Model) release() {
	if m.interpreter != nil {
		m.interpreter.Delete()
		m.interpreter = nil
	}
	if m.options != nil {
		m.options.Delete()
		m.options = nil
	}
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
}
