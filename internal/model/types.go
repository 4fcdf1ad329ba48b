package model

// Metadata mirrors model_metadata.json. Zero fields fall back to DefaultConfig.
type Metadata struct {
	Vocabulary  Symbols `json:"vocabulary"`
	Blank       *string `json:"blank"`
	ImageWidth  int     `json:"image_width"`
	ImageHeight int     `json:"image_height"`
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	OutputSize  int     `json:"output_size"`
	MaxPixels   int     `json:"max_pixels"`
}

// Tensor is a dense float32 array exchanged with an inference engine.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Result is a recognized captcha. Value is nil when the text is not a computable expression.
type Result struct {
	Text  string
	Value *int
}

type RecognizeRequest struct {
	Img string `json:"img"`
}

type RecognizeResponse struct {
	Text  string `json:"text"`
	Value *int   `json:"value"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
