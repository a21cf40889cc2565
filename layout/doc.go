// Package layout computes fixed C layouts for structs that cross the
// boundary by value and copies them in and out of an address space.
//
// Fields are laid out in declaration order, each aligned to its natural
// alignment, and the struct size is rounded up to the largest field
// alignment. Padding is explicit in the computed offsets; nothing relies
// on a host compiler agreeing implicitly.
package layout
