// Package mlmodel defines the model handle: a loaded detection model bound to one compute
// device, its label table, and the registry of runtimes that can load model artifacts.
package mlmodel

import (
	"context"

	"go.viam.com/videodetect/ml"
)

// Compute devices a backend can bind to.
const (
	DeviceAuto = "auto"
	DeviceCUDA = "cuda"
	DeviceCPU  = "cpu"
)

// Service is a loaded model. It is created once, bound to one device, and shared read-only by
// every scoring call until Close.
type Service interface {
	// Infer runs the model on the named input tensors and returns its named outputs.
	Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error)
	// Metadata describes the model's tensors and the device it was bound to.
	Metadata(ctx context.Context) (MLMetadata, error)
	// Labels is the model's fixed class id to name table.
	Labels() LabelTable
	Close(ctx context.Context) error
}

// MLMetadata contains the metadata of the model.
type MLMetadata struct {
	ModelName        string
	ModelType        string // e.g. yolov5_detector
	ModelDescription string
	Device           string
	Inputs           []TensorInfo
	Outputs          []TensorInfo
}

// TensorInfo contains the information about one input or output tensor.
type TensorInfo struct {
	Name        string
	Description string
	DataType    string // e.g. uint8, float32
	Shape       []int
	Extra       map[string]interface{}
}

// Config is the configuration of the model loader.
type Config struct {
	// Path is a local path in any platform's notation, or a remote reference go-getter understands.
	Path       string `json:"path" jsonschema:"description=model weights file or remote reference"`
	LabelsPath string `json:"labels_path,omitempty" jsonschema:"description=one label per line; overrides labels embedded in the model"`
	Device     string `json:"device,omitempty" jsonschema:"enum=auto,enum=cuda,enum=cpu"`
	NumThreads int    `json:"num_threads,omitempty"`
	// RuntimeLibrary is the path of the inference runtime's shared library, if it needs one.
	RuntimeLibrary string `json:"runtime_library,omitempty"`
	CacheDir       string `json:"cache_dir,omitempty" jsonschema:"description=where remote model artifacts are downloaded"`
}
