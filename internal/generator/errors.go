package generator

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindMissingCredential Kind = iota + 1
	KindTransport
	KindDecode
	KindEmptyChoices
)

func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing credential"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindEmptyChoices:
		return "empty choices"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrEmptyChoices is wrapped by KindEmptyChoices failures.
var ErrEmptyChoices = errors.New("completion response has no choices")

// GenerationError is returned for every fatal pipeline failure.
type GenerationError struct {
	Kind Kind
	Err  error
	// Diagnostic is where the decode diagnostic was written, if anywhere.
	Diagnostic string
}

func (e *GenerationError) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Kind, e.Err)
	if e.Diagnostic != "" {
		msg += " (diagnostic written to " + e.Diagnostic + ")"
	}
	return msg
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a GenerationError of kind k.
func IsKind(err error, k Kind) bool {
	var ge *GenerationError
	return errors.As(err, &ge) && ge.Kind == k
}
