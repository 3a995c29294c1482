package pose

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three ways a landmark document can be rejected.
// Use errors.Is against a *LoadError to classify a failure.
var (
	ErrNotFound          = errors.New("landmark document not found")
	ErrMalformedEncoding = errors.New("landmark document is malformed")
	ErrMissingSchema     = errors.New("landmark document has no frames")
)

// ErrorKind classifies a LoadError.
type ErrorKind int

const (
	KindNotFound ErrorKind = iota + 1
	KindMalformedEncoding
	KindMissingSchema
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindMalformedEncoding:
		return "malformed_encoding"
	case KindMissingSchema:
		return "missing_schema"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindMalformedEncoding:
		return ErrMalformedEncoding
	case KindMissingSchema:
		return ErrMissingSchema
	}
	return nil
}

// LoadError is returned for any document that cannot be accepted.
type LoadError struct {
	Kind   ErrorKind
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("load %s: %v", e.Source, e.Kind.sentinel())
	}
	return fmt.Sprintf("load %s: %v: %v", e.Source, e.Kind.sentinel(), e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *LoadError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

func newLoadError(kind ErrorKind, source string, err error) *LoadError {
	return &LoadError{Kind: kind, Source: source, Err: err}
}

// KindOf returns the kind of a load error, or 0 when err is not one.
func KindOf(err error) ErrorKind {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	return 0
}
