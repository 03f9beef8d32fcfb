// Package asrerr classifies transcription failures so callers can decide
// whether to abort, skip a file, or skip a single chunk.
package asrerr

import (
	"errors"
	"fmt"
)

// Kind identifies the failure class.
type Kind int

const (
	// KindConfiguration covers invalid chunk, overlap or sample-rate
	// parameters and label/vocabulary mismatches. Fatal at startup.
	KindConfiguration Kind = iota + 1
	// KindExtraction covers external media decode failures. Fatal for one file.
	KindExtraction
	// KindDecode covers a single chunk's inference failure. Recovered.
	KindDecode
	// KindIO covers unwritable outputs. Surfaced to the caller.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindExtraction:
		return "extraction"
	case KindDecode:
		return "decode"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with its kind and the failing operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Configuration(op string, err error) error { return wrap(KindConfiguration, op, err) }
func Extraction(op string, err error) error    { return wrap(KindExtraction, op, err) }
func Decode(op string, err error) error        { return wrap(KindDecode, op, err) }
func IO(op string, err error) error            { return wrap(KindIO, op, err) }

// Configf builds a configuration error from a message.
func Configf(op, format string, args ...any) error {
	return Configuration(op, fmt.Errorf(format, args...))
}

// Is reports whether any error in err's chain is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
