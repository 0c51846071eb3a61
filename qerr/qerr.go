// Package qerr provides a mechanism to create or wrap errors with a kind
// that aids in reporting them to users and classifying them at API layers,
// plus a Stage wrapper that records which pipeline stage produced an error.
package qerr

import (
	"bytes"
	"fmt"
	"runtime"

	"go.uber.org/multierr"
)

// Kind represents a class of error, matching the error-kind table of the
// engine's error-handling design. Transport layers convert these into their
// own domain-specific representation (HTTP status, RPC code, etc.); this
// package itself is transport-agnostic.
type Kind int

const (
	Other Kind = iota
	ParseError
	ValidationError
	ConnectError
	FetchError
	CoercionError
	FunctionError
	NotFound
	AccessDenied
	InternalError
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "other error"
	case ParseError:
		return "parse error"
	case ValidationError:
		return "validation error"
	case ConnectError:
		return "connect error"
	case FetchError:
		return "fetch error"
	case CoercionError:
		return "coercion error"
	case FunctionError:
		return "function error"
	case NotFound:
		return "item does not exist"
	case AccessDenied:
		return "access denied"
	case InternalError:
		return "internal error"
	}
	return "unknown error kind"
}

type Error struct {
	Kind  Kind
	Stage string
	Err   error
}

func pad(b *bytes.Buffer, s string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(s)
}

func (e *Error) Error() string {
	b := &bytes.Buffer{}
	if e.Stage != "" {
		b.WriteString("[" + e.Stage + "]")
	}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		pad(b, ": ")
		b.WriteString(e.Err.Error())
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns just the Err.Error() string, if present, or the Kind
// string description, omitting the stage tag that Error() embeds —
// callers that display errors to end users generally want this.
func (e *Error) Message() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != Other {
		return e.Kind.String()
	}
	return "no error"
}

// E generates an error from any mix of:
//   - a Kind
//   - an existing error
//   - a string and optional formatting verbs, like fmt.Errorf (including
//     support for the %w verb)
//
// The string & format verbs must be last in the arguments, if present.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("no args to qerr.E")
	}
	e := &Error{}

	for i, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case error:
			e.Err = arg
		case string:
			e.Err = fmt.Errorf(arg, args[i+1:]...)
			return e
		default:
			_, file, line, _ := runtime.Caller(1)
			return fmt.Errorf("unknown type %T value %v in qerr.E call at %v:%v", arg, arg, file, line)
		}
	}

	return e
}

// WithStage tags err, if it is (or wraps) an *Error, with the pipeline
// stage that produced it. Each pipeline stage calls this on its first
// error so the caller can tell where the pipeline short-circuited, per the
// propagation rule that every stage attaches its name to the error.
func WithStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	if qe, ok := err.(*Error); ok {
		if qe.Stage == "" {
			qe.Stage = stage
		}
		return qe
	}
	return &Error{Kind: Other, Stage: stage, Err: err}
}

// KindOf returns the Kind of err if it is a *Error, else Other.
func KindOf(err error) Kind {
	if qe, ok := err.(*Error); ok {
		return qe.Kind
	}
	return Other
}

// Combine merges zero or more errors (skipping nils) into a single error
// using go.uber.org/multierr, for stages that can detect more than one
// violation in a single pass (e.g. the GROUP BY validator).
func Combine(errs ...error) error {
	return multierr.Combine(errs...)
}
