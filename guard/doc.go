// Package guard stops Go panics from crossing the foreign boundary.
//
// Unwinding into a C or WebAssembly caller is undefined behaviour, so every
// exported entry point runs inside a Boundary:
//
//	b := guard.New()
//	code, fault := b.Call("factorial", func() signal.Code {
//	    ...
//	    return signal.Ok
//	})
//
// A recovered panic becomes signal.InternalFault and a Fault carrying a
// UUID, the panic value and the goroutine stack. The fault is logged at
// error level and counted.
//
// Runtime fatal errors such as concurrent map writes or stack exhaustion
// terminate the process and cannot be contained.
package guard
