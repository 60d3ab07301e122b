package printjob

import (
	"errors"
)

var (
	ErrInvalidAddress = errors.New("invalid ip")
	ErrInvalidPort    = errors.New("invalid port")
	ErrEmptyPayload   = errors.New("empty payload")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrBodyTooLarge   = errors.New("body too large")
)

// Kind classifies why a job failed.
type Kind int

const (
	KindParse Kind = iota + 1
	KindValidation
	KindConnection
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindValidation:
		return "validation"
	case KindConnection:
		return "connection"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Error is the failure outcome of a job. Detail is the human-readable text
// returned to the HTTP caller; Err keeps the cause for errors.Is/As.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	return e.Detail
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var jobErr *Error
	if errors.As(err, &jobErr) {
		return jobErr.Kind
	}

	return 0
}

// Detail returns the text reported for err. Unclassified errors use their
// own message.
func Detail(err error) string {
	var jobErr *Error
	if errors.As(err, &jobErr) {
		return jobErr.Detail
	}

	return err.Error()
}
