// Package native holds the Go functions and objects exported across the
// foreign boundary. Nothing here knows about pointers, handles or error
// codes: inputs are Go values, failures are errors from the errors package,
// and Factorial panics on overflow.
package native
