// Package errors provides structured error types for the FFI bridge.
//
// Errors are categorized by Phase (where in a boundary crossing the error
// occurred) and Kind (error category). Kinds map onto the error codes the
// surface reports to hosts; see the signal package.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseUnmarshal, errors.KindNullInput).
//		Path("greet", "name").
//		CType("const char*").
//		Detail("null pointer").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.NullInput(errors.PhaseUnmarshal, "name")
//	err := errors.Domain("division by zero")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
