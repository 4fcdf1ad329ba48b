package model

import (
	"errors"
	"fmt"
)

// Error kinds. Use errors.Is against these to tell the failure classes apart.
var (
	ErrDecode        = errors.New("decode error")
	ErrInference     = errors.New("inference error")
	ErrConfiguration = errors.New("configuration error")
)

// Error is a pipeline failure tagged with its kind and the stage that raised it.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func decodeErr(op string, err error) error {
	return &Error{Kind: ErrDecode, Op: op, Err: err}
}

func inferenceErr(op string, err error) error {
	return &Error{Kind: ErrInference, Op: op, Err: err}
}

func configErr(op string, err error) error {
	return &Error{Kind: ErrConfiguration, Op: op, Err: err}
}

// KindOf names the kind of err for responses and logs.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrInference):
		return "inference"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "internal"
	}
}
