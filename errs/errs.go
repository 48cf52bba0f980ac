// Package errs defines the typed error model shared by the columnar
// engine and Keeper: one Kind per broad exception class, plus a
// numeric Code preserving wire compatibility with the dense error
// namespace clients already expect.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind buckets errors the way the client needs to react to them:
// retry, surface to the user, tear down the pipeline, or quarantine
// data.
type Kind int

const (
	// LogicError marks an invariant violation unreachable in a correct
	// build. Never retried; logged with a stack trace.
	LogicError Kind = iota
	// UserError marks a bad query: wrong arity, wrong type, syntax.
	UserError
	// ResourceError marks a limit breach (memory, row budget, disk space).
	ResourceError
	// IOError marks corruption or a failed read; the caller should
	// consider the underlying part broken.
	IOError
	// ConsensusError marks a Raft-layer failure inside Keeper.
	ConsensusError
	// ZkError carries one of the ZooKeeper-compatible negative codes.
	ZkError
)

func (k Kind) String() string {
	switch k {
	case LogicError:
		return "LogicError"
	case UserError:
		return "UserError"
	case ResourceError:
		return "ResourceError"
	case IOError:
		return "IOError"
	case ConsensusError:
		return "ConsensusError"
	case ZkError:
		return "ZkError"
	default:
		return "UnknownKind"
	}
}

// Error is the single error type every package in the repo returns
// for anything beyond a bare sentinel. Code is the dense i32 from
// Code* constants (or a Zk* constant when Kind == ZkError).
type Error struct {
	Kind    Kind
	Code    int32
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s(%d): %s: %v", e.Kind, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s(%d): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error, capturing a stack trace via pkg/errors when the
// kind is LogicError — the only class where a stack is worth the cost,
// since it is the only class that should never happen.
func New(kind Kind, code int32, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	e := &Error{Kind: kind, Code: code, Message: msg}
	if kind == LogicError {
		e.cause = errors.New(msg)
	}
	return e
}

// Wrap attaches kind/code to an existing error without discarding it.
func Wrap(cause error, kind Kind, code int32, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// As reports whether err is (or wraps) an *Error, writing it into target.
func As(err error, target **Error) bool {
	return errors.As(err, target)
}

// Is reports whether err carries the given code, walking the wrap chain.
func Is(err error, code int32) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
