// Package signal defines how exported functions report failure to hosts
// that have no exceptions: the numeric codes, the per-function
// conventions, and the tagged result struct.
//
// Codes are part of the ABI and never renumbered:
//
//	0 ok  1 null_input  2 invalid_input  3 allocation_failed
//	4 internal_fault  5 domain_error  6 buffer_too_small
//
// A function uses exactly one Convention. Sentinel functions return a
// reserved value and leave the reason in last_error_code. Tagged functions
// write {success, value, code}. Status functions return the code itself.
package signal
