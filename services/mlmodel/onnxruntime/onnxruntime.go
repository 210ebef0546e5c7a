// Package onnxruntime runs ONNX exports of YOLO detectors through ONNX Runtime, on CUDA when
// the runtime has it and on the CPU otherwise.
package onnxruntime

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"go.opencensus.io/trace"
	"go.uber.org/multierr"

	"go.viam.com/videodetect/logging"
	"go.viam.com/videodetect/ml"
	"go.viam.com/videodetect/services/mlmodel"
)

// LibraryPathEnv names the environment variable consulted for the runtime's shared library
// when the config does not set one.
const LibraryPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// DefaultInputSize is used for input dimensions the export left dynamic.
const DefaultInputSize = 640

func init() {
	mlmodel.RegisterBackend(".onnx", func(ctx context.Context, conf mlmodel.Config, logger logging.Logger) (mlmodel.Service, error) {
		return NewModel(ctx, conf, logger.Sublogger("onnxruntime"))
	})
}

var envMu sync.Mutex

// initEnvironment starts the process-wide runtime environment once.
func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	return errors.Wrap(ort.InitializeEnvironment(), "could not initialize onnxruntime")
}

// libraryPath picks the shared library: config first, then the environment, then the name
// the platform's loader searches for.
func libraryPath(conf mlmodel.Config) string {
	if conf.RuntimeLibrary != "" {
		return conf.RuntimeLibrary
	}
	if p := os.Getenv(LibraryPathEnv); p != "" {
		return p
	}
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "libonnxruntime.so"
	}
}

// Model is a loaded ONNX session with its fixed input and output tensors.
type Model struct {
	mu       sync.Mutex
	session  *ort.AdvancedSession
	inputs   []*ort.Tensor[float32]
	outputs  []*ort.Tensor[float32]
	metadata mlmodel.MLMetadata
	labels   mlmodel.LabelTable
	logger   logging.Logger
}

// NewModel opens the model at conf.Path and binds it to the configured device.
func NewModel(ctx context.Context, conf mlmodel.Config, logger logging.Logger) (*Model, error) {
	_, span := trace.StartSpan(ctx, "service::mlmodel::onnxruntime::NewModel")
	defer span.End()

	if err := initEnvironment(libraryPath(conf)); err != nil {
		return nil, err
	}

	inInfo, outInfo, err := ort.GetInputOutputInfo(conf.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read tensors of %s", conf.Path)
	}
	if len(inInfo) == 0 || len(outInfo) == 0 {
		return nil, errors.Errorf("model %s has no inputs or no outputs", conf.Path)
	}

	m := &Model{logger: logger}
	m.metadata, m.labels = readMetadata(conf.Path, logger)

	var inNames, outNames []string
	var inValues, outValues []ort.Value
	cleanup := func() {
		for _, t := range m.inputs {
			t.Destroy()
		}
		for _, t := range m.outputs {
			t.Destroy()
		}
	}
	for _, info := range inInfo {
		if info.DataType != ort.TensorElementDataTypeFloat {
			cleanup()
			return nil, errors.Errorf("input %q is %v, only float32 inputs are supported", info.Name, info.DataType)
		}
		shape := staticShape(info.Dimensions, DefaultInputSize)
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(shape...))
		if err != nil {
			cleanup()
			return nil, err
		}
		m.inputs = append(m.inputs, t)
		inNames = append(inNames, info.Name)
		inValues = append(inValues, t)
		m.metadata.Inputs = append(m.metadata.Inputs, tensorInfo(info.Name, shape))
	}
	for _, info := range outInfo {
		if info.DataType != ort.TensorElementDataTypeFloat {
			cleanup()
			return nil, errors.Errorf("output %q is %v, only float32 outputs are supported", info.Name, info.DataType)
		}
		shape, err := outputShape(info.Dimensions)
		if err != nil {
			cleanup()
			return nil, errors.Wrapf(err, "output %q", info.Name)
		}
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(shape...))
		if err != nil {
			cleanup()
			return nil, err
		}
		m.outputs = append(m.outputs, t)
		outNames = append(outNames, info.Name)
		outValues = append(outValues, t)
		m.metadata.Outputs = append(m.metadata.Outputs, tensorInfo(info.Name, shape))
	}

	session, device, err := newSession(conf, inNames, outNames, inValues, outValues, logger)
	if err != nil {
		cleanup()
		return nil, err
	}
	m.session = session
	m.metadata.Device = device
	return m, nil
}

// newSession creates the session on the requested device. auto tries CUDA first and falls
// back to the CPU.
func newSession(
	conf mlmodel.Config,
	inNames, outNames []string,
	inputs, outputs []ort.Value,
	logger logging.Logger,
) (*ort.AdvancedSession, string, error) {
	create := func(useCUDA bool) (*ort.AdvancedSession, error) {
		options, err := ort.NewSessionOptions()
		if err != nil {
			return nil, err
		}
		defer options.Destroy()
		if conf.NumThreads > 0 {
			if err := options.SetIntraOpNumThreads(conf.NumThreads); err != nil {
				return nil, err
			}
		}
		if useCUDA {
			cudaOpts, err := ort.NewCUDAProviderOptions()
			if err != nil {
				return nil, err
			}
			defer cudaOpts.Destroy()
			if err := options.AppendExecutionProviderCUDA(cudaOpts); err != nil {
				return nil, err
			}
		}
		return ort.NewAdvancedSession(conf.Path, inNames, outNames, inputs, outputs, options)
	}

	switch conf.Device {
	case mlmodel.DeviceCPU:
		s, err := create(false)
		return s, mlmodel.DeviceCPU, errors.Wrap(err, "could not create cpu session")
	case mlmodel.DeviceCUDA:
		s, err := create(true)
		return s, mlmodel.DeviceCUDA, errors.Wrap(err, "could not create cuda session")
	default:
		s, err := create(true)
		if err == nil {
			return s, mlmodel.DeviceCUDA, nil
		}
		logger.Debugw("cuda unavailable, falling back to cpu", "error", err)
		s, err = create(false)
		return s, mlmodel.DeviceCPU, errors.Wrap(err, "could not create cpu session")
	}
}

// Infer copies the named inputs into the session, runs it and returns copies of the outputs.
func (m *Model) Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error) {
	_, span := trace.StartSpan(ctx, "service::mlmodel::onnxruntime::Infer")
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil, errors.New("model is closed")
	}

	for i, info := range m.metadata.Inputs {
		in, ok := tensors[info.Name]
		if !ok && len(tensors) == 1 && len(m.inputs) == 1 {
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
		dst := m.inputs[i].GetData()
		if len(data) != len(dst) {
			return nil, errors.Errorf("input %q has %d values, model expects %d (shape %v)",
				info.Name, len(data), len(dst), info.Shape)
		}
		copy(dst, data)
	}

	if err := m.session.Run(); err != nil {
		return nil, errors.Wrap(err, "onnxruntime run failed")
	}

	out := make(ml.Tensors, len(m.outputs))
	for i, info := range m.metadata.Outputs {
		src := m.outputs[i].GetData()
		data := make([]float32, len(src))
		copy(data, src)
		out[info.Name] = ml.Float32Tensor(data, info.Shape...)
	}
	return out, nil
}

// Metadata returns the tensors and the device the session was bound to.
func (m *Model) Metadata(ctx context.Context) (mlmodel.MLMetadata, error) {
	return m.metadata, nil
}

// Labels returns the class names embedded in the export, if any.
func (m *Model) Labels() mlmodel.LabelTable {
	return m.labels
}

// Close releases the session and its tensors. The runtime environment stays up for other
// models in the process.
func (m *Model) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	for _, t := range m.inputs {
		err = multierr.Append(err, t.Destroy())
	}
	for _, t := range m.outputs {
		err = multierr.Append(err, t.Destroy())
	}
	m.session = nil
	return err
}

func readMetadata(path string, logger logging.Logger) (mlmodel.MLMetadata, mlmodel.LabelTable) {
	md := mlmodel.MLMetadata{
		ModelName: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		ModelType: "yolov5_detector",
	}
	meta, err := ort.GetModelMetadata(path)
	if err != nil {
		logger.Infow("error reading onnx metadata", "error", err)
		return md, nil
	}
	defer meta.Destroy()

	if name, err := meta.GetGraphName(); err == nil && name != "" {
		md.ModelName = name
	}
	if desc, err := meta.GetDescription(); err == nil {
		md.ModelDescription = desc
	}
	names, ok, err := meta.LookupCustomMetadataMap("names")
	if err != nil || !ok {
		return md, nil
	}
	labels, err := mlmodel.ParseLabelDict(names)
	if err != nil {
		logger.Infow("could not parse class names in onnx metadata", "error", err)
		return md, nil
	}
	return md, labels
}

func tensorInfo(name string, shape []int64) mlmodel.TensorInfo {
	dims := make([]int, len(shape))
	for i, d := range shape {
		dims[i] = int(d)
	}
	return mlmodel.TensorInfo{Name: name, DataType: "float32", Shape: dims}
}

// staticShape replaces dynamic input dimensions: batch becomes 1 and spatial dimensions
// become size.
func staticShape(dims ort.Shape, size int64) []int64 {
	out := make([]int64, len(dims))
	for i, d := range dims {
		switch {
		case d > 0:
			out[i] = d
		case i == 0:
			out[i] = 1
		default:
			out[i] = size
		}
	}
	return out
}

// outputShape allows a dynamic batch dimension only.
func outputShape(dims ort.Shape) ([]int64, error) {
	out := make([]int64, len(dims))
	for i, d := range dims {
		switch {
		case d > 0:
			out[i] = d
		case i == 0:
			out[i] = 1
		default:
			return nil, errors.Errorf("dimension %d of %v is dynamic, export the model with a fixed image size", i, dims)
		}
	}
	return out, nil
}
