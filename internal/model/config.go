package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Reference configuration of the mathcode model.
const (
	DefaultImageWidth  = 160
	DefaultImageHeight = 60
	DefaultOutputSize  = 80
	DefaultBlank       = "#"
	DefaultSymbols     = "0123456789+-*/=?"
)

// DefaultMaxPixels caps the declared size of an input image. Captchas are
// tiny; anything near this is a decompression bomb.
const DefaultMaxPixels = 4096 * 4096

// Symbols is an ordered list of vocabulary entries. In JSON it is either a
// string (one symbol per character) or an array of strings.
type Symbols []string

func (s *Symbols) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = SplitSymbols(str)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return fmt.Errorf("vocabulary must be a string or a list of strings: %w", err)
	}
	*s = list
	return nil
}

// SplitSymbols splits a string into one symbol per rune.
func SplitSymbols(s string) Symbols {
	out := make(Symbols, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// Vocabulary maps class indices to characters. Index order must match the
// order the model was trained with. Blank need not appear in Symbols; when it
// does not, stripping it is a no-op.
type Vocabulary struct {
	Symbols Symbols
	Blank   string
}

func (v Vocabulary) Size() int { return len(v.Symbols) }

func (v Vocabulary) Symbol(i int) string { return v.Symbols[i] }

func (v Vocabulary) validate() error {
	if len(v.Symbols) == 0 {
		return errors.New("vocabulary is empty")
	}
	seen := make(map[string]int, len(v.Symbols))
	for i, s := range v.Symbols {
		if s == "" {
			return fmt.Errorf("vocabulary symbol %d is empty", i)
		}
		if j, ok := seen[s]; ok {
			return fmt.Errorf("vocabulary symbol %q repeated at %d and %d", s, j, i)
		}
		seen[s] = i
	}
	return nil
}

// Config holds the load-time constants shared by every request.
type Config struct {
	Vocabulary  Vocabulary
	ImageWidth  int
	ImageHeight int
	// InputName and OutputName override the names the engine declares.
	InputName  string
	OutputName string
	// OutputSize is the flat length of one output tensor (L*V); 0 means unknown
	// until the engine reports its output shape.
	OutputSize int
	// MaxPixels rejects images whose header declares more pixels; 0 disables
	// the check.
	MaxPixels int
}

func DefaultConfig() Config {
	return Config{
		Vocabulary: Vocabulary{
			Symbols: SplitSymbols(DefaultSymbols),
			Blank:   DefaultBlank,
		},
		ImageWidth:  DefaultImageWidth,
		ImageHeight: DefaultImageHeight,
		OutputSize:  DefaultOutputSize,
		MaxPixels:   DefaultMaxPixels,
	}
}

// Validate checks the invariants that must hold before serving traffic.
func (c Config) Validate() error {
	if err := c.Vocabulary.validate(); err != nil {
		return configErr("validate config", err)
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return configErr("validate config", fmt.Errorf("invalid canvas %dx%d", c.ImageWidth, c.ImageHeight))
	}
	if c.OutputSize < 0 {
		return configErr("validate config", fmt.Errorf("negative output size %d", c.OutputSize))
	}
	if c.MaxPixels < 0 {
		return configErr("validate config", fmt.Errorf("negative pixel limit %d", c.MaxPixels))
	}
	if c.OutputSize > 0 && c.OutputSize%c.Vocabulary.Size() != 0 {
		return configErr("validate config", fmt.Errorf("output size %d is not divisible by vocabulary size %d",
			c.OutputSize, c.Vocabulary.Size()))
	}
	return nil
}

// SequenceLength is the number of characters the model emits, or 0 if unknown.
func (c Config) SequenceLength() int {
	if c.Vocabulary.Size() == 0 {
		return 0
	}
	return c.OutputSize / c.Vocabulary.Size()
}

// InputShape is the tensor shape the preprocessor produces.
func (c Config) InputShape() []int64 {
	return []int64{1, 3, int64(c.ImageHeight), int64(c.ImageWidth)}
}

// Apply overlays non-zero metadata fields onto c.
func (c Config) Apply(m Metadata) Config {
	if len(m.Vocabulary) > 0 {
		c.Vocabulary.Symbols = m.Vocabulary
		// The default output size belongs to the default vocabulary.
		c.OutputSize = 0
	}
	if m.Blank != nil {
		c.Vocabulary.Blank = *m.Blank
	}
	if m.ImageWidth > 0 {
		c.ImageWidth = m.ImageWidth
	}
	if m.ImageHeight > 0 {
		c.ImageHeight = m.ImageHeight
	}
	if m.InputName != "" {
		c.InputName = m.InputName
	}
	if m.OutputName != "" {
		c.OutputName = m.OutputName
	}
	if m.OutputSize > 0 {
		c.OutputSize = m.OutputSize
	}
	if m.MaxPixels > 0 {
		c.MaxPixels = m.MaxPixels
	}
	return c
}

// LoadConfig reads metadataPath over DefaultConfig and validates the result.
// An empty path or a missing file yields the defaults.
func LoadConfig(metadataPath string) (Config, error) {
	cfg := DefaultConfig()
	if metadataPath == "" {
		return cfg, cfg.Validate()
	}

	metaFile, err := os.ReadFile(metadataPath)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return cfg, configErr("load config", fmt.Errorf("failed to parse metadata: %w", err))
	}

	cfg = cfg.Apply(metadata)
	return cfg, cfg.Validate()
}

func (c Config) String() string {
	return fmt.Sprintf("vocabulary=%q blank=%q canvas=%dx%d output=%d",
		strings.Join(c.Vocabulary.Symbols, ""), c.Vocabulary.Blank, c.ImageWidth, c.ImageHeight, c.OutputSize)
}
