package model

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

// fakeEngine returns a fixed output and records the last input it saw.
type fakeEngine struct {
	inputName  string
	outputName string
	output     []float32
	err        error
	lastInputs map[string]Tensor
}

func (f *fakeEngine) InputName() string  { return f.inputName }
func (f *fakeEngine) OutputName() string { return f.outputName }

func (f *fakeEngine) Run(inputs map[string]Tensor) (map[string]Tensor, error) {
	f.lastInputs = inputs
	if f.err != nil {
		return nil, f.err
	}
	return map[string]Tensor{
		f.outputName: {Shape: []int64{1, int64(len(f.output))}, Data: f.output},
	}, nil
}

// shapedEngine adds declared shapes to fakeEngine.
type shapedEngine struct {
	fakeEngine
	inShape  []int64
	outShape []int64
}

func (s *shapedEngine) InputShape() []int64  { return s.inShape }
func (s *shapedEngine) OutputShape() []int64 { return s.outShape }

// oneHot builds an output buffer with all mass on the given class per row.
func oneHot(t *testing.T, vocab Vocabulary, indices ...int) []float32 {
	t.Helper()
	v := vocab.Size()
	out := make([]float32, len(indices)*v)
	for row, idx := range indices {
		if idx < 0 || idx >= v {
			t.Fatalf("index %d outside vocabulary", idx)
		}
		out[row*v+idx] = 1
	}
	return out
}

// indicesOf looks up each character of s in the vocabulary.
func indicesOf(t *testing.T, vocab Vocabulary, s string) []int {
	t.Helper()
	var out []int
	for _, r := range s {
		found := -1
		for i, sym := range vocab.Symbols {
			if sym == string(r) {
				found = i
				break
			}
		}
		if found < 0 {
			t.Fatalf("symbol %q not in vocabulary", r)
		}
		out = append(out, found)
	}
	return out
}

// solidPNG encodes a width x height image filled with c.
func solidPNG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

func solidPNGBase64(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	return base64.StdEncoding.EncodeToString(solidPNG(t, width, height, c))
}

func assertKind(t *testing.T, err, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
