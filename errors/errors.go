package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in a boundary crossing the error occurred
type Phase string

const (
	PhaseRegister  Phase = "register"  // surface registration
	PhaseMarshal   Phase = "marshal"   // native value to host memory
	PhaseUnmarshal Phase = "unmarshal" // host memory to native value
	PhaseCall      Phase = "call"      // native function body
	PhaseAlloc     Phase = "alloc"     // owned buffer allocation
	PhaseRelease   Phase = "release"   // owned buffer or handle release
	PhaseHandle    Phase = "handle"    // handle table lookup
	PhaseConfig    Phase = "config"    // configuration loading
	PhaseHost      Phase = "host"      // host module instantiation
)

// Kind categorizes the error
type Kind string

const (
	KindNullInput      Kind = "null_input"
	KindInvalidInput   Kind = "invalid_input"
	KindInvalidUTF8    Kind = "invalid_utf8"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindAllocation     Kind = "allocation"
	KindOverflow       Kind = "overflow"
	KindDomain         Kind = "domain"
	KindBufferTooSmall Kind = "buffer_too_small"
	KindInternalFault  Kind = "internal_fault"
	KindStaleHandle    Kind = "stale_handle"
	KindTypeMismatch   Kind = "type_mismatch"
	KindUnsupported    Kind = "unsupported"
	KindUnknownPointer Kind = "unknown_pointer"
	KindNotFound       Kind = "not_found"
	KindRegistration   Kind = "registration"
)

// Error describes a failure at the boundary: which step of the crossing
// failed, what kind of failure it was, and the parameter or field path
// it concerns.
type Error struct {
	Phase  Phase
	Kind   Kind
	Path   []string
	CType  string // C type of the value involved, if any
	Detail string
	Value  any
	Cause  error
}

// Error renders as "[phase] kind at a.b (ctype): detail (caused by: ...)".
func (e *Error) Error() string {
	parts := []string{"[" + string(e.Phase) + "] " + string(e.Kind)}
	if len(e.Path) > 0 {
		parts = append(parts, "at "+strings.Join(e.Path, "."))
	}
	if e.CType != "" {
		parts = append(parts, "("+e.CType+")")
	}
	msg := strings.Join(parts, " ")
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += " (caused by: " + e.Cause.Error() + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error with the same phase and kind, so callers can
// test with errors.Is(err, &Error{Phase: ..., Kind: ...}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Phase == e.Phase && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Builder assembles an Error field by field.
type Builder struct {
	e *Error
}

func New(phase Phase, kind Kind) *Builder {
	return &Builder{e: &Error{Phase: phase, Kind: kind}}
}

func (b *Builder) Path(path ...string) *Builder { b.e.Path = path; return b }
func (b *Builder) CType(t string) *Builder      { b.e.CType = t; return b }
func (b *Builder) Value(v any) *Builder         { b.e.Value = v; return b }
func (b *Builder) Cause(err error) *Builder     { b.e.Cause = err; return b }

// Detail sets the message; args are applied with fmt.Sprintf when given.
func (b *Builder) Detail(format string, args ...any) *Builder {
	if len(args) == 0 {
		b.e.Detail = format
		return b
	}
	b.e.Detail = fmt.Sprintf(format, args...)
	return b
}

func (b *Builder) Build() *Error { return b.e }

// NullInput creates an error for a null pointer handed across the boundary
func NullInput(phase Phase, param string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNullInput,
		Path:   []string{param},
		Detail: "null pointer",
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// OutOfBounds creates an out of bounds error for an address range
func OutOfBounds(phase Phase, path []string, offset, length uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("range [%d, +%d) out of bounds", offset, length),
		Value:  offset,
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		CType:  targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// Domain creates a domain violation error, such as division by zero
func Domain(detail string) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindDomain,
		Detail: detail,
	}
}

// BufferTooSmall creates an error for a caller buffer that cannot hold the output
func BufferTooSmall(need, have uint32) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindBufferTooSmall,
		Detail: fmt.Sprintf("need %d bytes, buffer holds %d", need, have),
		Value:  need,
	}
}

// StaleHandle creates an error for a handle that is zero, destroyed, or of another type
func StaleHandle(handle uint32, typeName string) *Error {
	return &Error{
		Phase:  PhaseHandle,
		Kind:   KindStaleHandle,
		CType:  "ffi_" + typeName,
		Detail: fmt.Sprintf("handle %#x is not a live %s", handle, typeName),
		Value:  handle,
	}
}

// UnknownPointer creates an error for releasing memory the allocator does not own
func UnknownPointer(ptr uint32) *Error {
	return &Error{
		Phase:  PhaseRelease,
		Kind:   KindUnknownPointer,
		Detail: fmt.Sprintf("pointer %#x is not a live allocation", ptr),
		Value:  ptr,
	}
}

// Unsupported creates an unsupported type or operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// InternalFault creates an error for a contained panic
func InternalFault(function string, value any) *Error {
	return &Error{
		Phase:  PhaseCall,
		Kind:   KindInternalFault,
		Path:   []string{function},
		Detail: fmt.Sprintf("panic: %v", value),
		Value:  value,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Registration creates a surface registration error
func Registration(symbol string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", symbol),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
