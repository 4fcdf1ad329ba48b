package model

import (
	"fmt"

	"github.com/Brownie44l1/captcha-api/internal/expr"
)

// Recognizer runs preprocessing, inference and decoding against one shared
// engine. It holds no per-request state and is safe for concurrent use.
type Recognizer struct {
	cfg        Config
	engine     Engine
	inputName  string
	outputName string
}

// NewRecognizer validates cfg against the engine's declared names and shapes.
// Every failure here is a ConfigurationError.
func NewRecognizer(cfg Config, engine Engine) (*Recognizer, error) {
	if engine == nil {
		return nil, configErr("new recognizer", fmt.Errorf("nil engine"))
	}

	inputName := engine.InputName()
	if cfg.InputName != "" && cfg.InputName != inputName {
		return nil, configErr("new recognizer", fmt.Errorf("engine input %q does not match configured %q", inputName, cfg.InputName))
	}
	outputName := engine.OutputName()
	if cfg.OutputName != "" && cfg.OutputName != outputName {
		return nil, configErr("new recognizer", fmt.Errorf("engine output %q does not match configured %q", outputName, cfg.OutputName))
	}
	if inputName == "" || outputName == "" {
		return nil, configErr("new recognizer", fmt.Errorf("engine declares empty tensor names"))
	}

	if sr, ok := engine.(ShapeReporter); ok {
		if err := checkInputShape(sr.InputShape(), cfg.InputShape()); err != nil {
			return nil, configErr("new recognizer", err)
		}
		if size := staticSize(trimBatch(sr.OutputShape())); size > 0 {
			if cfg.OutputSize > 0 && cfg.OutputSize != size {
				return nil, configErr("new recognizer", fmt.Errorf("engine output size %d does not match configured %d", size, cfg.OutputSize))
			}
			cfg.OutputSize = size
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if resolver, ok := engine.(OutputResolver); ok {
		if err := resolver.ResolveOutputSize(cfg.OutputSize); err != nil {
			return nil, configErr("new recognizer", err)
		}
	}

	return &Recognizer{
		cfg:        cfg,
		engine:     engine,
		inputName:  inputName,
		outputName: outputName,
	}, nil
}

func (r *Recognizer) Config() Config { return r.cfg }

// Recognize decodes a base64 image and returns the recognized text.
func (r *Recognizer) Recognize(payload string) (string, error) {
	data, err := DecodeBase64(payload)
	if err != nil {
		return "", err
	}
	return r.RecognizeBytes(data)
}

// RecognizeBytes recognizes an encoded image.
func (r *Recognizer) RecognizeBytes(data []byte) (string, error) {
	input, err := PreprocessLimit(data, r.cfg.ImageWidth, r.cfg.ImageHeight, r.cfg.MaxPixels)
	if err != nil {
		return "", err
	}

	outputs, err := r.engine.Run(map[string]Tensor{r.inputName: input})
	if err != nil {
		return "", inferenceErr("run model", err)
	}
	output, ok := outputs[r.outputName]
	if !ok {
		return "", inferenceErr("run model", fmt.Errorf("engine returned no output %q", r.outputName))
	}
	if r.cfg.OutputSize > 0 && len(output.Data) != r.cfg.OutputSize {
		return "", inferenceErr("run model", fmt.Errorf("engine returned %d values, want %d", len(output.Data), r.cfg.OutputSize))
	}

	return Decode(output.Data, r.cfg.Vocabulary)
}

// Solve recognizes the captcha and evaluates it. An uncomputable expression
// is not an error; Result.Value is nil instead.
func (r *Recognizer) Solve(payload string) (Result, error) {
	text, err := r.Recognize(payload)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(text), nil
}

// SolveBytes is Solve for raw image bytes.
func (r *Recognizer) SolveBytes(data []byte) (Result, error) {
	text, err := r.RecognizeBytes(data)
	if err != nil {
		return Result{}, err
	}
	return Evaluate(text), nil
}

// Evaluate wraps recognized text with its arithmetic value.
func Evaluate(text string) Result {
	res := Result{Text: text}
	if v, ok := expr.Evaluate(text); ok {
		res.Value = &v
	}
	return res
}

func trimBatch(shape []int64) []int64 {
	if len(shape) > 1 {
		return shape[1:]
	}
	return shape
}

func checkInputShape(declared, want []int64) error {
	if len(declared) == 0 {
		return nil
	}
	if len(declared) != len(want) {
		return fmt.Errorf("engine input rank %d does not match canvas shape %v", len(declared), want)
	}
	for i := range declared {
		if declared[i] > 0 && declared[i] != want[i] {
			return fmt.Errorf("engine input shape %v does not match canvas shape %v", declared, want)
		}
	}
	return nil
}
