package model

import (
	"math"
	"strings"
	"testing"
)

func referenceVocab() Vocabulary {
	return DefaultConfig().Vocabulary
}

// blankVocab reserves index 0 for the blank, as CTC-trained models do.
func blankVocab() Vocabulary {
	return Vocabulary{Symbols: SplitSymbols("#0123456789+-*/="), Blank: "#"}
}

func TestDecode_ReferenceScenario(t *testing.T) {
	vocab := referenceVocab()
	out := oneHot(t, vocab, indicesOf(t, vocab, "3+6=?")...)

	got, err := Decode(out, vocab)
	if err != nil {
		t.Fatal(err)
	}
	if got != "3+6=?" {
		t.Errorf("Decode() = %q, want %q", got, "3+6=?")
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	vocab := blankVocab()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no blanks", "12+34", "12+34"},
		{"leading blank", "#7*8=", "7*8="},
		{"scattered blanks", "9#-#1", "9-1"},
		{"all blanks", "#####", ""},
		{"repeats kept", "33+33", "33+33"},
		{"repeats around blank", "1#1#1", "111"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := oneHot(t, vocab, indicesOf(t, vocab, tt.input)...)
			got, err := Decode(out, vocab)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Decode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecode_LengthBounds(t *testing.T) {
	vocab := blankVocab()
	for seqLen := 1; seqLen <= 8; seqLen++ {
		indices := make([]int, seqLen)
		for i := range indices {
			indices[i] = 1 + (i*7)%(vocab.Size()-1) // never blank
		}
		got, err := Decode(oneHot(t, vocab, indices...), vocab)
		if err != nil {
			t.Fatal(err)
		}
		if len([]rune(got)) != seqLen {
			t.Errorf("L=%d: decoded %q has %d characters", seqLen, got, len([]rune(got)))
		}
		if strings.Contains(got, vocab.Blank) {
			t.Errorf("L=%d: decoded %q contains blank", seqLen, got)
		}
	}
}

func TestDecode_RealScores(t *testing.T) {
	// Logits rather than one-hot rows; the largest score wins even when negative.
	vocab := Vocabulary{Symbols: Symbols{"a", "b", "c"}}
	out := []float32{
		-3.2, -0.1, -5.0,
		2.5, 2.4, -1.0,
		0.0, 0.0, 0.001,
	}
	got, err := Decode(out, vocab)
	if err != nil {
		t.Fatal(err)
	}
	if got != "bac" {
		t.Errorf("Decode() = %q, want %q", got, "bac")
	}
}

func TestDecode_TiesGoToLowestIndex(t *testing.T) {
	vocab := Vocabulary{Symbols: Symbols{"x", "y", "z"}}
	out := []float32{
		0.5, 0.5, 0.5,
		0.1, 0.7, 0.7,
		-1, -1, -1,
	}
	for i := 0; i < 10; i++ {
		got, err := Decode(out, vocab)
		if err != nil {
			t.Fatal(err)
		}
		if got != "xyx" {
			t.Fatalf("Decode() = %q, want %q", got, "xyx")
		}
	}
}

func TestDecode_IndivisibleLength(t *testing.T) {
	vocab := referenceVocab()
	for _, n := range []int{0, 1, 15, 17, 79, 81} {
		_, err := Decode(make([]float32, n), vocab)
		assertKind(t, err, ErrConfiguration)
	}
}

func TestDecode_NonFinite(t *testing.T) {
	vocab := referenceVocab()
	for _, bad := range []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))} {
		out := oneHot(t, vocab, 1, 2, 3, 4, 5)
		out[20] = bad
		_, err := Decode(out, vocab)
		assertKind(t, err, ErrDecode)
	}
}

func TestDecodeIndices_OutOfRange(t *testing.T) {
	vocab := referenceVocab()
	_, err := DecodeIndices([]int{0, 16}, vocab)
	assertKind(t, err, ErrDecode)
}

func TestArgmax(t *testing.T) {
	got, err := Argmax([]float32{0, 1, 0, 9, 8, 7}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 0 {
		t.Errorf("Argmax() = %v, want [1 0]", got)
	}

	_, err = Argmax([]float32{1}, 0)
	assertKind(t, err, ErrConfiguration)
}
