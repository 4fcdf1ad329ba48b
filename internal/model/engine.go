package model

// Engine runs a model: it maps named input tensors to named output tensors.
// Implementations must be safe for concurrent Run calls.
type Engine interface {
	InputName() string
	OutputName() string
	Run(inputs map[string]Tensor) (map[string]Tensor, error)
}

// ShapeReporter is implemented by engines that know their declared tensor
// shapes. Dimensions of -1 are dynamic.
type ShapeReporter interface {
	InputShape() []int64
	OutputShape() []int64
}

// OutputResolver is implemented by engines that must size their output
// buffers before the first Run. perItem is the configured element count of
// one batch item, 0 if unknown.
type OutputResolver interface {
	ResolveOutputSize(perItem int) error
}

// staticSize is the element count of shape, or 0 if any dimension is dynamic.
func staticSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	size := 1
	for _, dim := range shape {
		if dim <= 0 {
			return 0
		}
		size *= int(dim)
	}
	return size
}
