package inject

import (
	"context"

	"go.viam.com/videodetect/ml"
	"go.viam.com/videodetect/services/mlmodel"
)

// MLModelService is an injected model handle.
type MLModelService struct {
	mlmodel.Service
	InferFunc    func(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error)
	MetadataFunc func(ctx context.Context) (mlmodel.MLMetadata, error)
	LabelsFunc   func() mlmodel.LabelTable
	CloseFunc    func(ctx context.Context) error
}

// Infer calls the injected Infer or the real version.
func (s *MLModelService) Infer(ctx context.Context, tensors ml.Tensors) (ml.Tensors, error) {
	if s.InferFunc == nil {
		return s.Service.Infer(ctx, tensors)
	}
	return s.InferFunc(ctx, tensors)
}

// Metadata calls the injected Metadata or the real version.
func (s *MLModelService) Metadata(ctx context.Context) (mlmodel.MLMetadata, error) {
	if s.MetadataFunc == nil {
		return s.Service.Metadata(ctx)
	}
	return s.MetadataFunc(ctx)
}

// Labels calls the injected Labels or the real version.
func (s *MLModelService) Labels() mlmodel.LabelTable {
	if s.LabelsFunc == nil {
		return s.Service.Labels()
	}
	return s.LabelsFunc()
}

// Close calls the injected Close or the real version.
func (s *MLModelService) Close(ctx context.Context) error {
	if s.CloseFunc == nil {
		return s.Service.Close(ctx)
	}
	return s.CloseFunc(ctx)
}
