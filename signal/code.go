package signal

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/ffi-bridge/errors"
)

// Code is the i32 a host sees when a call fails.
type Code int32

const (
	Ok               Code = 0
	NullInput        Code = 1
	InvalidInput     Code = 2
	AllocationFailed Code = 3
	InternalFault    Code = 4
	DomainError      Code = 5 // division by zero and other domain violations
	BufferTooSmall   Code = 6
)

var codeNames = [...]string{
	Ok:               "ok",
	NullInput:        "null_input",
	InvalidInput:     "invalid_input",
	AllocationFailed: "allocation_failed",
	InternalFault:    "internal_fault",
	DomainError:      "domain_error",
	BufferTooSmall:   "buffer_too_small",
}

// Codes lists every defined code in numeric order.
func Codes() []Code {
	return []Code{Ok, NullInput, InvalidInput, AllocationFailed, InternalFault, DomainError, BufferTooSmall}
}

func (c Code) String() string {
	if c >= 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", int32(c))
}

// Valid reports whether c is a defined code.
func (c Code) Valid() bool {
	return c >= 0 && int(c) < len(codeNames)
}

// Error is a failed call as seen from a Go host: the code plus the
// symbol that reported it.
type Error struct {
	Symbol string
	Code   Code
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %s (%d)", e.Symbol, e.Code, int32(e.Code))
}

// Is matches another *Error with the same code, ignoring the symbol.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Err returns an *Error for a failed code, or nil for Ok.
func (c Code) Err(symbol string) error {
	if c == Ok {
		return nil
	}
	return &Error{Symbol: symbol, Code: c}
}

// CodeOf extracts the code from an error returned by Err.
func CodeOf(err error) Code {
	if err == nil {
		return Ok
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return FromError(err)
}

// FromError maps a structured error onto the code reported to hosts.
// Errors without a recognised kind are internal faults.
func FromError(err error) Code {
	if err == nil {
		return Ok
	}
	kind, ok := errors.KindOf(err)
	if !ok {
		return InternalFault
	}
	switch kind {
	case errors.KindNullInput:
		return NullInput
	case errors.KindInvalidInput, errors.KindInvalidUTF8, errors.KindOutOfBounds,
		errors.KindStaleHandle, errors.KindTypeMismatch, errors.KindUnknownPointer,
		errors.KindOverflow:
		return InvalidInput
	case errors.KindAllocation:
		return AllocationFailed
	case errors.KindDomain:
		return DomainError
	case errors.KindBufferTooSmall:
		return BufferTooSmall
	default:
		return InternalFault
	}
}
