// Package ml provides the tensor container shared between the model services and the
// detectors that consume their output.
package ml

import (
	"sort"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Tensors are a map of named tensors, the input and output of every model service.
type Tensors map[string]*tensor.Dense

// Names returns the sorted names of the tensors.
func (ts Tensors) Names() []string {
	names := make([]string, 0, len(ts))
	for name := range ts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Float32Tensor wraps a float32 backing slice into a dense tensor of the given shape.
func Float32Tensor(data []float32, shape ...int) *tensor.Dense {
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
}

// Float32Data returns the data of the tensor as a float32 slice, converting other numeric
// element types when needed.
func Float32Data(t *tensor.Dense) ([]float32, error) {
	if t == nil {
		return nil, errors.New("tensor is nil")
	}
	return ConvertToFloat32Slice(t.Data())
}

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// convertNumberSlice converts any number slice into another number slice.
func convertNumberSlice[T1, T2 number](t1 []T1) []T2 {
	t2 := make([]T2, len(t1))
	for i := range t1 {
		t2[i] = T2(t1[i])
	}
	return t2
}

// ConvertToFloat32Slice converts a numeric slice (or scalar) into a []float32.
func ConvertToFloat32Slice(slice interface{}) ([]float32, error) {
	switch v := slice.(type) {
	case []float32:
		return v, nil
	case float32:
		return []float32{v}, nil
	case []float64:
		return convertNumberSlice[float64, float32](v), nil
	case float64:
		return []float32{float32(v)}, nil
	case []int:
		return convertNumberSlice[int, float32](v), nil
	case []int8:
		return convertNumberSlice[int8, float32](v), nil
	case []int16:
		return convertNumberSlice[int16, float32](v), nil
	case []int32:
		return convertNumberSlice[int32, float32](v), nil
	case []int64:
		return convertNumberSlice[int64, float32](v), nil
	case []uint8:
		return convertNumberSlice[uint8, float32](v), nil
	case []uint16:
		return convertNumberSlice[uint16, float32](v), nil
	case []uint32:
		return convertNumberSlice[uint32, float32](v), nil
	case []uint64:
		return convertNumberSlice[uint64, float32](v), nil
	default:
		return nil, errors.Errorf("dont know how to convert slice of %T into a []float32", slice)
	}
}
