package objectdetection

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"go.viam.com/videodetect/ml"
	"go.viam.com/videodetect/ml/yolo"
	"go.viam.com/videodetect/rimage"
	"go.viam.com/videodetect/services/mlmodel"
)

// Scorer runs a detection model over one frame. It does not modify the frame.
type Scorer func(ctx context.Context, frame *image.RGBA) ([]Detection, error)

// ScorerConfig tunes the postprocessing a YOLO scorer applies to raw model output.
type ScorerConfig struct {
	yolo.DecodeConfig
	// InputSize overrides the square input side read from the model metadata.
	InputSize int
}

// DefaultScorerConfig returns the hub YOLOv5 NMS settings with no confidence floor, so every
// scored candidate reaches the caller and thresholding is left to the annotator.
func DefaultScorerConfig() ScorerConfig {
	decode := yolo.DefaultDecodeConfig()
	decode.ConfidenceFloor = 0
	return ScorerConfig{DecodeConfig: decode}
}

type inputLayout struct {
	name   string
	size   int
	planar bool
}

// readInputLayout reads the model's single image input: [1,3,S,S] is planar, [1,S,S,3]
// is interleaved.
func readInputLayout(md mlmodel.MLMetadata, override int) (inputLayout, error) {
	if len(md.Inputs) == 0 {
		return inputLayout{}, errors.New("model metadata lists no inputs")
	}
	in := md.Inputs[0]
	layout := inputLayout{name: in.Name, size: override}
	switch shape := in.Shape; {
	case len(shape) == 4 && shape[1] == 3:
		layout.planar = true
		if layout.size <= 0 {
			layout.size = shape[2]
		}
	case len(shape) == 4 && shape[3] == 3:
		if layout.size <= 0 {
			layout.size = shape[1]
		}
	default:
		return inputLayout{}, errors.Errorf("input %q has shape %v, expected [1,3,S,S] or [1,S,S,3]", in.Name, in.Shape)
	}
	if layout.size <= 0 {
		return inputLayout{}, errors.Errorf("input %q has no fixed size, set the input size explicitly", in.Name)
	}
	return layout, nil
}

// NewYOLOScorer builds a scorer around a loaded YOLO model. Each call letterboxes the frame
// into the model input, runs a size-1 batch and decodes the prediction into detections
// normalized by the frame's own size.
func NewYOLOScorer(ctx context.Context, svc mlmodel.Service, cfg ScorerConfig) (Scorer, error) {
	if svc == nil {
		return nil, errors.New("scorer needs a loaded model")
	}
	md, err := svc.Metadata(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not read model metadata")
	}
	layout, err := readInputLayout(md, cfg.InputSize)
	if err != nil {
		return nil, err
	}
	outName := ""
	if len(md.Outputs) > 0 {
		outName = md.Outputs[0].Name
	}
	labels := svc.Labels()

	return func(ctx context.Context, frame *image.RGBA) ([]Detection, error) {
		ctx, span := trace.StartSpan(ctx, "objectdetection::yolo::Score")
		defer span.End()

		bounds := frame.Bounds()
		if bounds.Empty() {
			return nil, errors.New("cannot score an empty frame")
		}
		lb := yolo.NewLetterbox(bounds.Dx(), bounds.Dy(), layout.size)
		buf := rimage.ImageToFloatBuffer(lb.Apply(frame), layout.planar)
		shape := []int{1, layout.size, layout.size, 3}
		if layout.planar {
			shape = []int{1, 3, layout.size, layout.size}
		}

		outMap, err := svc.Infer(ctx, ml.Tensors{layout.name: ml.Float32Tensor(buf, shape...)})
		if err != nil {
			return nil, err
		}
		out, ok := outMap[outName]
		if !ok {
			if len(outMap) != 1 {
				return nil, errors.Errorf("model output %q missing, got %v", outName, outMap.Names())
			}
			for _, only := range outMap {
				out = only
			}
		}
		raw, err := ml.Float32Data(out)
		if err != nil {
			return nil, err
		}
		preds, err := yolo.Decode(raw, out.Shape(), lb, cfg.DecodeConfig)
		if err != nil {
			return nil, err
		}

		w, h := float64(bounds.Dx()), float64(bounds.Dy())
		dets := make([]Detection, 0, len(preds))
		for _, p := range preds {
			box := NormalizedBox{X1: p.X1 / w, Y1: p.Y1 / h, X2: p.X2 / w, Y2: p.Y2 / h}
			dets = append(dets, NewDetection(box, p.Score, p.ClassID, labels.Label(p.ClassID)))
		}
		return dets, nil
	}, nil
}

// WithPostprocessors returns a scorer that applies each postprocessor, in order, to the
// detections of score.
func WithPostprocessors(score Scorer, posts ...Postprocessor) Scorer {
	if len(posts) == 0 {
		return score
	}
	return func(ctx context.Context, frame *image.RGBA) ([]Detection, error) {
		dets, err := score(ctx, frame)
		if err != nil {
			return nil, err
		}
		for _, post := range posts {
			dets = post(dets)
		}
		return dets, nil
	}
}
