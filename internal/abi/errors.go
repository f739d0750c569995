package abi

import (
	"errors"
	"fmt"
)

var (
	// ErrTypeMismatch reports a value whose Go shape does not fit its token.
	ErrTypeMismatch = errors.New("abi: type mismatch")
	// ErrUnsupported reports a token the encoder cannot represent.
	ErrUnsupported = errors.New("abi: unsupported type")
)

// EncodingError locates a failed value inside the argument list.
type EncodingError struct {
	Path   string
	Err    error
	Detail string
}

func (e *EncodingError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v at %s", e.Err, e.Path)
	}
	return fmt.Sprintf("%v at %s: %s", e.Err, e.Path, e.Detail)
}

func (e *EncodingError) Unwrap() error { return e.Err }

func mismatch(path string, format string, a ...any) error {
	return &EncodingError{Path: path, Err: ErrTypeMismatch, Detail: fmt.Sprintf(format, a...)}
}

func unsupported(path string, format string, a ...any) error {
	return &EncodingError{Path: path, Err: ErrUnsupported, Detail: fmt.Sprintf(format, a...)}
}
