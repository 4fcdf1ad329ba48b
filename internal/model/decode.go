package model

import (
	"fmt"
	"math"
	"strings"
)

// Decode turns a flat (L x V) score buffer into text. Each row is one sequence
// position; the highest-scoring class wins, with ties going to the lowest
// index. Blank symbols are removed from the result. Repeated symbols are kept
// as-is: the model emits a fixed-length sequence, not a CTC alignment.
func Decode(output []float32, vocab Vocabulary) (string, error) {
	indices, err := Argmax(output, vocab.Size())
	if err != nil {
		return "", err
	}
	return DecodeIndices(indices, vocab)
}

// Argmax returns the winning class of every row of a flat buffer with the
// given row width.
func Argmax(output []float32, classes int) ([]int, error) {
	if classes <= 0 {
		return nil, configErr("decode", fmt.Errorf("invalid class count %d", classes))
	}
	if len(output) == 0 || len(output)%classes != 0 {
		return nil, configErr("decode", fmt.Errorf("output length %d is not a positive multiple of vocabulary size %d",
			len(output), classes))
	}

	seqLen := len(output) / classes
	indices := make([]int, seqLen)
	for i := 0; i < seqLen; i++ {
		stepData := output[i*classes : (i+1)*classes]
		maxIdx := 0
		maxVal := float32(math.Inf(-1))
		for idx, val := range stepData {
			if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
				return nil, decodeErr("decode", fmt.Errorf("non-finite score %v at position %d class %d", val, i, idx))
			}
			if idx == 0 || val > maxVal {
				maxVal = val
				maxIdx = idx
			}
		}
		indices[i] = maxIdx
	}
	return indices, nil
}

// DecodeIndices maps class indices through the vocabulary and drops blanks.
func DecodeIndices(indices []int, vocab Vocabulary) (string, error) {
	var sb strings.Builder
	for pos, idx := range indices {
		if idx < 0 || idx >= vocab.Size() {
			return "", decodeErr("decode", fmt.Errorf("class %d at position %d outside vocabulary of %d", idx, pos, vocab.Size()))
		}
		sym := vocab.Symbol(idx)
		if vocab.Blank != "" && sym == vocab.Blank {
			continue
		}
		sb.WriteString(sym)
	}
	return sb.String(), nil
}
