package pkg

import (
	"errors"
	"log/slog"
	"strings"
)

// Error is an error with an optional wrapped cause and structured logging
// attributes. It implements both error and [slog.LogValuer].
//
// Packages declare sentinel values with [NewError] and refine them at the
// failure site:
//
//	return ErrListNotEnumerated.With(slog.String("list", "x"))
//
// Refined values still match their sentinel with [errors.Is].
type Error struct {
	msg   string
	err   error
	attrs []slog.Attr
	base  *Error
}

// NewError creates a new Error with a message.
func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// WrapError converts err into an Error. If err already is (or wraps) an
// Error, that value is returned unchanged.
func WrapError(err error) *Error {
	ee := &Error{}
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{err: err}
}

// Error implements the error interface. Attributes follow the message, so
// callers that only see the string still learn which list, rule, or
// artifact failed:
//
//	conflicting rule (artifact=a.o): different vars
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	detail := e.detail()

	if e.msg != "" {
		part = append(part, e.msg+detail)
		detail = ""
	}

	if e.err != nil {
		part = append(part, e.err.Error()+detail)
	}

	return strings.Join(part, ": ")
}

// detail formats the attributes as " (key=value, ...)".
func (e *Error) detail() string {
	if len(e.attrs) == 0 {
		return ""
	}

	kv := make([]string, len(e.attrs))
	for i, a := range e.attrs {
		kv[i] = a.Key + "=" + a.Value.String()
	}

	return " (" + strings.Join(kv, ", ") + ")"
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel this error was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return e.root() == t.root()
}

func (e *Error) root() *Error {
	if e.base != nil {
		return e.base
	}

	return e
}

// Attrs returns the structured attributes attached to the error.
func (e *Error) Attrs() []slog.Attr { return e.attrs }

// LogValue implements slog.LogValuer for rich structured logging.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error wrapping another error.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs, // Share attrs
		base:  e.root(),
	}
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
		base:  e.root(),
	}
}
