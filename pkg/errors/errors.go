// Package errors augments the standard errors
// provided by fmt (https://golang.org/src/fmt/errors.go)
// with a Wrap() method to qualify errors with a sentinel
// without resorting to fmt.Errorf("%w", err).
package errors

import (
	stderr "errors"
	"fmt"
)

var _ error = New("")

// New sentinel Error
func New(msg string) *Error {
	return &Error{msg: msg}
}

// Error is a sentinel error which may wrap a cause.
//
// Wrapping never mutates the sentinel: Wrap returns a new error which
// still matches its sentinel with errors.Is, so sentinels may be shared
// safely by concurrent callers.
type Error struct {
	msg      string
	err      error
	sentinel *Error
	kinds    []*Error
}

// Including returns a sentinel which also matches the errors of other sentinels.
func (e *Error) Including(kinds ...*Error) *Error {
	all := make([]*Error, 0, len(e.kinds)+len(kinds))
	all = append(all, e.kinds...)
	for _, k := range kinds {
		all = append(all, k.root())
	}
	return &Error{msg: e.msg, err: e.err, sentinel: e.sentinel, kinds: all}
}

// Error message
func (e *Error) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

// Unwrap nested error
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// Wrap a nested error
func (e *Error) Wrap(err error) *Error {
	return &Error{msg: e.msg, err: err, sentinel: e.root()}
}

// Wrapf wraps a formatted message as the nested error
func (e *Error) Wrapf(format string, args ...interface{}) *Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// Is of some error type?
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	root := e.root()
	if e == t || root == t {
		return true
	}
	for _, k := range t.root().kinds {
		if root == k {
			return true
		}
	}
	return false
}

func (e *Error) root() *Error {
	if e.sentinel != nil {
		return e.sentinel
	}
	return e
}

// As finds the first error in err's chain that matches target, and if so, sets target to that error value and returns true.
// (a shortcut to standard lib errors.As)
func As(err error, target interface{}) bool {
	return stderr.As(err, target)
}

// Is reports whether any error in err's chain matches target
// (a shortcut to standard lib errors.Is)
func Is(err, target error) bool {
	return stderr.Is(err, target)
}
