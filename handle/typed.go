package handle

import "github.com/wippyai/ffi-bridge/errors"

// Typed gives type-safe access to one kind of object in a shared Table.
type Typed[T any] struct {
	table *Table
	name  string
	id    TypeID
}

// NewTyped binds type T to id within table. name is used in errors.
func NewTyped[T any](table *Table, id TypeID, name string) *Typed[T] {
	return &Typed[T]{table: table, id: id, name: name}
}

// Name returns the object type name.
func (t *Typed[T]) Name() string { return t.name }

// ID returns the type tag.
func (t *Typed[T]) ID() TypeID { return t.id }

// Table returns the underlying table.
func (t *Typed[T]) Table() *Table { return t.table }

// Insert stores value and returns its handle.
func (t *Typed[T]) Insert(value T) (Handle, error) {
	h, err := t.table.Insert(t.id, value)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseHandle, errors.KindAllocation, err, t.name)
	}
	return h, nil
}

// Get resolves h. Zero, stale and foreign handles produce a stale-handle
// error.
func (t *Typed[T]) Get(h Handle) (T, error) {
	var zero T
	v, err := t.table.Lookup(h, t.id, t.name)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.New(errors.PhaseHandle, errors.KindTypeMismatch).
			CType("ffi_"+t.name).
			Value(v).
			Detail("handle holds %T", v).
			Build()
	}
	return typed, nil
}

// Destroy releases h and reports whether it was live and of this type.
func (t *Typed[T]) Destroy(h Handle) bool {
	_, ok := t.table.RemoveTyped(h, t.id)
	return ok
}

// Len returns the number of live objects of this type.
func (t *Typed[T]) Len() int {
	n := 0
	t.table.Each(func(_ Handle, id TypeID, _ any) bool {
		if id == t.id {
			n++
		}
		return true
	})
	return n
}

// Each iterates over live objects of this type.
func (t *Typed[T]) Each(fn func(Handle, T) bool) {
	t.table.Each(func(h Handle, id TypeID, v any) bool {
		if id != t.id {
			return true
		}
		typed, ok := v.(T)
		if !ok {
			return true
		}
		return fn(h, typed)
	})
}
