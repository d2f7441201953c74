package document

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can react without parsing messages.
type Kind string

const (
	KindInvalidInput      Kind = "InvalidInput"
	KindUnsupportedFormat Kind = "UnsupportedFormat"
	KindInvalidPageNumber Kind = "InvalidPageNumber"
	KindInvalidPassword   Kind = "InvalidPassword"
	KindNoTextExtracted   Kind = "NoTextExtracted"
	KindConversionFailure Kind = "ConversionFailure"
	KindPartialFailure    Kind = "PartialFailure"
)

// Sentinels for errors.Is. Matching is by Kind only.
var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrInvalidPageNumber = &Error{Kind: KindInvalidPageNumber}
	ErrInvalidPassword   = &Error{Kind: KindInvalidPassword}
	ErrNoTextExtracted   = &Error{Kind: KindNoTextExtracted}
	ErrConversionFailure = &Error{Kind: KindConversionFailure}
	ErrPartialFailure    = &Error{Kind: KindPartialFailure}
)

// ItemFailure records why one page or input item failed inside an otherwise
// successful operation.
type ItemFailure struct {
	Item   int    `json:"item"`
	Reason string `json:"reason"`
}

// Error is the structured error returned by every pdfgears operation.
type Error struct {
	Kind  Kind
	Op    string
	Msg   string
	Err   error
	Items []ItemFailure
}

// Errorf builds an *Error of the given kind.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around err.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Kind))
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Items) > 0 {
		fmt.Fprintf(&sb, " (%d item(s) failed)", len(e.Items))
	}
	return sb.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindConversionFailure for foreign errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindConversionFailure
}

// Descriptor is the user-visible form of an error.
type Descriptor struct {
	Kind    Kind          `json:"kind"`
	Message string        `json:"message"`
	Items   []ItemFailure `json:"items,omitempty"`
}

// Describe converts any error into a Descriptor.
func Describe(err error) Descriptor {
	d := Descriptor{Kind: KindOf(err), Message: err.Error()}
	var e *Error
	if errors.As(err, &e) {
		d.Items = e.Items
	}
	return d
}
