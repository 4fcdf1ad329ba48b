package model

import (
	"errors"
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEngine runs an ONNX model through onnxruntime. Tensors are allocated per
// call, so concurrent Runs share nothing but the session.
type ONNXEngine struct {
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	inputShape  ort.Shape
	outputShape ort.Shape
	// resolved is outputShape with every dynamic dimension but the batch
	// axis filled in; nil until ResolveOutputSize succeeds.
	resolved ort.Shape
}

// NewONNXEngine initializes the onnxruntime environment and loads modelPath.
// libPath selects the onnxruntime shared library; empty uses the platform
// default. Empty names select the model's first declared input and output.
func NewONNXEngine(modelPath, libPath, inputName, outputName string) (*ONNXEngine, error) {
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}

	in, err := pickInfo(inputs, inputName, "input")
	if err != nil {
		ort.DestroyEnvironment()
		return nil, configErr("load model", err)
	}
	out, err := pickInfo(outputs, outputName, "output")
	if err != nil {
		ort.DestroyEnvironment()
		return nil, configErr("load model", err)
	}

	session, err := ort.NewDynamicAdvancedSession(modelPath,
		[]string{in.Name}, []string{out.Name}, nil)
	if err != nil {
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	engine := &ONNXEngine{
		session:     session,
		inputName:   in.Name,
		outputName:  out.Name,
		inputShape:  in.Dimensions,
		outputShape: out.Dimensions,
	}
	// Fully static outputs need no configuration; others wait for
	// ResolveOutputSize.
	if shape, err := resolveOutputShape(out.Dimensions, 0); err == nil {
		engine.resolved = shape
	}
	return engine, nil
}

func pickInfo(infos []ort.InputOutputInfo, name, what string) (ort.InputOutputInfo, error) {
	if len(infos) == 0 {
		return ort.InputOutputInfo{}, fmt.Errorf("model declares no %s", what)
	}
	if name == "" {
		return infos[0], nil
	}
	for _, info := range infos {
		if info.Name == name {
			return info, nil
		}
	}
	return ort.InputOutputInfo{}, fmt.Errorf("model has no %s named %q", what, name)
}

func (e *ONNXEngine) InputName() string  { return e.inputName }
func (e *ONNXEngine) OutputName() string { return e.outputName }

func (e *ONNXEngine) InputShape() []int64  { return []int64(e.inputShape) }
func (e *ONNXEngine) OutputShape() []int64 { return []int64(e.outputShape) }

// Run feeds the tensor named InputName and returns the tensor named OutputName.
func (e *ONNXEngine) Run(inputs map[string]Tensor) (map[string]Tensor, error) {
	in, ok := inputs[e.inputName]
	if !ok {
		return nil, fmt.Errorf("missing input %q", e.inputName)
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(in.Shape...), in.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	outputShape, err := e.concreteOutputShape(in.Shape)
	if err != nil {
		return nil, err
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err := e.session.Run([]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	outputData := make([]float32, len(outputTensor.GetData()))
	copy(outputData, outputTensor.GetData())

	return map[string]Tensor{
		e.outputName: {Shape: []int64(outputShape.Clone()), Data: outputData},
	}, nil
}

// ResolveOutputSize fixes the dynamic non-batch output dimensions so one batch
// item holds perItem values.
func (e *ONNXEngine) ResolveOutputSize(perItem int) error {
	shape, err := resolveOutputShape(e.outputShape, perItem)
	if err != nil {
		return err
	}
	e.resolved = shape
	return nil
}

// resolveOutputShape fills the dynamic dimensions of a declared output shape
// after the batch axis. Axis 0 is the batch axis when the rank exceeds one and
// stays dynamic. At most one other dimension may be dynamic, and only when
// perItem is known.
func resolveOutputShape(declared ort.Shape, perItem int) (ort.Shape, error) {
	if len(declared) == 0 {
		return nil, fmt.Errorf("model declares no output dimensions")
	}
	shape := declared.Clone()
	first := 0
	if len(shape) > 1 {
		first = 1
	}

	known, dynamic := 1, -1
	for i := first; i < len(shape); i++ {
		if shape[i] > 0 {
			known *= int(shape[i])
			continue
		}
		if dynamic >= 0 {
			return nil, fmt.Errorf("output shape %v has more than one dynamic dimension", declared)
		}
		dynamic = i
	}

	switch {
	case dynamic < 0:
		if perItem > 0 && perItem != known {
			return nil, fmt.Errorf("output shape %v holds %d values per item, want %d", declared, known, perItem)
		}
	case perItem <= 0:
		return nil, fmt.Errorf("output shape %v is dynamic and no output size is configured", declared)
	case perItem%known != 0:
		return nil, fmt.Errorf("output shape %v cannot hold %d values per item", declared, perItem)
	default:
		shape[dynamic] = int64(perItem / known)
	}
	return shape, nil
}

// concreteOutputShape sets the batch axis of the resolved output shape from
// the input's batch size.
func (e *ONNXEngine) concreteOutputShape(inputShape []int64) (ort.Shape, error) {
	if e.resolved == nil {
		return nil, fmt.Errorf("output shape %v not resolved", e.outputShape)
	}
	shape := e.resolved.Clone()
	if len(shape) > 1 && shape[0] <= 0 {
		batch := int64(1)
		if len(inputShape) > 0 && inputShape[0] > 0 {
			batch = inputShape[0]
		}
		shape[0] = batch
	}
	return shape, nil
}

func (e *ONNXEngine) Close() error {
	var errs []error
	if e.session != nil {
		errs = append(errs, e.session.Destroy())
	}
	errs = append(errs, ort.DestroyEnvironment())
	return errors.Join(errs...)
}
