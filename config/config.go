// Package config defines the videodetect run configuration and how it is read from disk.
package config

import (
	"github.com/pkg/errors"

	"go.viam.com/videodetect/logging"
	"go.viam.com/videodetect/ml/yolo"
	"go.viam.com/videodetect/rimage"
	"go.viam.com/videodetect/services/mlmodel"
	"go.viam.com/videodetect/video"
	"go.viam.com/videodetect/vision/objectdetection"
)

// Defaults for a run with no config file.
const (
	DefaultInput     = "model/cam7.avi"
	DefaultModelPath = "model/botbest.onnx"
)

// Config is a complete run description.
type Config struct {
	Input    string         `json:"input" jsonschema:"description=video file to annotate"`
	Model    mlmodel.Config `json:"model"`
	Detect   DetectConfig   `json:"detect,omitempty"`
	Annotate AnnotateConfig `json:"annotate,omitempty"`
	Output   OutputConfig   `json:"output,omitempty"`
	Preview  bool           `json:"preview,omitempty" jsonschema:"description=show frames in a window while writing"`
	Log      LogConfig      `json:"log,omitempty"`
}

// DetectConfig tunes the postprocessing applied to raw model output.
type DetectConfig struct {
	ConfidenceFloor float64 `json:"confidence_floor,omitempty" jsonschema:"minimum=0,maximum=1"`
	IoUThreshold    float64 `json:"iou_threshold,omitempty" jsonschema:"minimum=0,maximum=1"`
	MaxDetections   int     `json:"max_detections,omitempty" jsonschema:"minimum=1"`
	ClassAgnostic   bool    `json:"class_agnostic,omitempty"`
	InputSize       int     `json:"input_size,omitempty" jsonschema:"description=square model input side when the model does not fix it"`
}

// AnnotateConfig is how detections are drawn.
type AnnotateConfig struct {
	Threshold float64 `json:"threshold" jsonschema:"minimum=0,maximum=1"`
	Color     string  `json:"color,omitempty" jsonschema:"description=color name or #rrggbb"`
	Thickness int     `json:"thickness,omitempty" jsonschema:"minimum=1"`
	FontSize  float64 `json:"font_size,omitempty"`
	// Labels limits drawing to these class names when non-empty.
	Labels []string `json:"labels,omitempty"`
}

// OutputConfig is where and how the annotated video is written.
type OutputConfig struct {
	Path string `json:"path,omitempty"`
	// FPS of zero means the default rate of 20.
	FPS      float64 `json:"fps,omitempty" jsonschema:"minimum=0"`
	Codec    string  `json:"codec,omitempty"`
	CodecTag string  `json:"codec_tag,omitempty"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	// File, when set, receives a rotated copy of the log.
	File string `json:"file,omitempty"`
}

// Default returns the configuration of a run with no file and no flags.
func Default() Config {
	decode := objectdetection.DefaultScorerConfig().DecodeConfig
	return Config{
		Input: DefaultInput,
		Model: mlmodel.Config{
			Path:   DefaultModelPath,
			Device: mlmodel.DeviceAuto,
		},
		Detect: DetectConfig{
			ConfidenceFloor: decode.ConfidenceFloor,
			IoUThreshold:    decode.IoUThreshold,
			MaxDetections:   decode.MaxDetections,
		},
		Annotate: AnnotateConfig{
			Threshold: objectdetection.DefaultThreshold,
			Color:     rimage.Hex(objectdetection.DefaultColor),
			Thickness: objectdetection.DefaultThickness,
			FontSize:  objectdetection.DefaultFontSize,
		},
		Output: OutputConfig{
			Path:     video.DefaultOutputPath,
			Codec:    video.DefaultCodec,
			CodecTag: video.DefaultCodecTag,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate checks that the config describes a runnable pipeline.
func (c *Config) Validate() error {
	if c.Input == "" {
		return errors.New("input video is required")
	}
	if c.Model.Path == "" {
		return errors.New("model.path is required")
	}
	switch c.Model.Device {
	case "", mlmodel.DeviceAuto, mlmodel.DeviceCUDA, mlmodel.DeviceCPU:
	default:
		return errors.Errorf("model.device %q must be one of auto, cuda, cpu", c.Model.Device)
	}
	if c.Annotate.Threshold < 0 || c.Annotate.Threshold > 1 {
		return errors.Errorf("annotate.threshold %v must be within [0, 1]", c.Annotate.Threshold)
	}
	if c.Annotate.Thickness < 1 {
		return errors.Errorf("annotate.thickness %d must be at least 1", c.Annotate.Thickness)
	}
	if c.Annotate.FontSize <= 0 {
		return errors.Errorf("annotate.font_size %v must be positive", c.Annotate.FontSize)
	}
	if _, err := rimage.ParseColor(c.Annotate.Color); err != nil {
		return errors.Wrap(err, "annotate.color")
	}
	if c.Detect.ConfidenceFloor < 0 || c.Detect.ConfidenceFloor >= 1 {
		return errors.Errorf("detect.confidence_floor %v must be within [0, 1)", c.Detect.ConfidenceFloor)
	}
	if c.Detect.IoUThreshold <= 0 || c.Detect.IoUThreshold > 1 {
		return errors.Errorf("detect.iou_threshold %v must be within (0, 1]", c.Detect.IoUThreshold)
	}
	if c.Detect.MaxDetections < 1 {
		return errors.Errorf("detect.max_detections %d must be at least 1", c.Detect.MaxDetections)
	}
	if c.Output.FPS < 0 {
		return errors.Errorf("output.fps %v cannot be negative", c.Output.FPS)
	}
	if _, err := logging.LevelFromString(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// ScorerConfig is the scorer part of the config.
func (c *Config) ScorerConfig() objectdetection.ScorerConfig {
	return objectdetection.ScorerConfig{
		DecodeConfig: yolo.DecodeConfig{
			ConfidenceFloor: c.Detect.ConfidenceFloor,
			IoUThreshold:    c.Detect.IoUThreshold,
			MaxDetections:   c.Detect.MaxDetections,
			ClassAgnostic:   c.Detect.ClassAgnostic,
		},
		InputSize: c.Detect.InputSize,
	}
}

// Annotator builds the annotator the config describes. The config must be valid.
func (c *Config) Annotator() (*objectdetection.Annotator, error) {
	col, err := rimage.ParseColor(c.Annotate.Color)
	if err != nil {
		return nil, err
	}
	return &objectdetection.Annotator{
		Threshold: c.Annotate.Threshold,
		Color:     col,
		Thickness: c.Annotate.Thickness,
		FontSize:  c.Annotate.FontSize,
	}, nil
}

// WriterConfig is the output part of the config. The output is written at the fixed default
// rate unless output.fps is set, whatever rate the input was recorded at.
func (c *Config) WriterConfig() video.WriterConfig {
	fps := c.Output.FPS
	if fps <= 0 {
		fps = video.DefaultFPS
	}
	return video.WriterConfig{
		Path:     c.Output.Path,
		FPS:      fps,
		Codec:    c.Output.Codec,
		CodecTag: c.Output.CodecTag,
	}
}
