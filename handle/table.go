package handle

import (
	stderrors "errors"
	"sync"

	"github.com/wippyai/ffi-bridge/errors"
)

var (
	ErrClosed = stderrors.New("handle table closed")
	ErrFull   = stderrors.New("handle table full")
)

type entry struct {
	value      any
	typeID     TypeID
	generation uint32
	valid      bool
}

// Table maps handles to native objects. A slot's generation advances each
// time it is freed, so a handle kept after destroy no longer resolves even
// when the slot has been reused.
//
// The table locks its own bookkeeping only. Objects it returns are not
// synchronized.
type Table struct {
	entries   []entry
	freeList  []uint32
	observers []Observer
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	live      int
	closed    bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries:  make([]entry, 0, 64),
		freeList: make([]uint32, 0, 16),
	}
}

// Insert stores value and returns its handle.
func (t *Table) Insert(typeID TypeID, value any) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrClosed
	}

	var slot uint32
	if n := len(t.freeList); n > 0 {
		slot = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
	} else {
		if len(t.entries) >= MaxSlots {
			t.mu.Unlock()
			return 0, ErrFull
		}
		t.entries = append(t.entries, entry{})
		slot = uint32(len(t.entries) - 1)
	}

	e := &t.entries[slot]
	e.value = value
	e.typeID = typeID
	e.valid = true
	h := makeHandle(slot, e.generation)
	t.live++
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Handle: h, TypeID: typeID, Value: value})
	return h, nil
}

// lookup returns the live entry for h. Callers hold t.mu.
func (t *Table) lookup(h Handle) (*entry, bool) {
	slot, ok := h.Slot()
	if !ok || int(slot) >= len(t.entries) {
		return nil, false
	}
	e := &t.entries[slot]
	if !e.valid || e.generation&genMask != h.Generation() {
		return nil, false
	}
	return e, true
}

// Get retrieves the object behind h.
func (t *Table) Get(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.lookup(h)
	if !ok {
		return nil, false
	}
	return e.value, true
}

// GetTyped retrieves the object behind h only if it has the expected type.
func (t *Table) GetTyped(h Handle, typeID TypeID) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.lookup(h)
	if !ok || e.typeID != typeID {
		return nil, false
	}
	return e.value, true
}

// TypeOf returns the type of the object behind h.
func (t *Table) TypeOf(h Handle) (TypeID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.lookup(h)
	if !ok {
		return 0, false
	}
	return e.typeID, true
}

// Remove destroys the object behind h and reports whether h was live.
// Zero, stale and unknown handles are ignored.
func (t *Table) Remove(h Handle) (any, bool) {
	return t.remove(h, 0, false)
}

// RemoveTyped is Remove restricted to objects of one type. A live handle
// of another type is left alone.
func (t *Table) RemoveTyped(h Handle, typeID TypeID) (any, bool) {
	return t.remove(h, typeID, true)
}

func (t *Table) remove(h Handle, typeID TypeID, typed bool) (any, bool) {
	t.mu.Lock()
	e, ok := t.lookup(h)
	if !ok || (typed && e.typeID != typeID) {
		t.mu.Unlock()
		return nil, false
	}

	value, tid := e.value, e.typeID
	e.value = nil
	e.valid = false
	e.generation = (e.generation + 1) & genMask
	slot, _ := h.Slot()
	t.freeList = append(t.freeList, slot)
	t.live--
	t.mu.Unlock()

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventDropped, Handle: h, TypeID: tid, Value: value})
	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *Table) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.live
}

// Each calls fn for every live object until fn returns false.
func (t *Table) Each(fn func(Handle, TypeID, any) bool) {
	t.mu.RLock()
	type item struct {
		value  any
		h      Handle
		typeID TypeID
	}
	items := make([]item, 0, t.live)
	for i, e := range t.entries {
		if e.valid {
			items = append(items, item{h: makeHandle(uint32(i), e.generation), typeID: e.typeID, value: e.value})
		}
	}
	t.mu.RUnlock()

	for _, it := range items {
		if !fn(it.h, it.typeID, it.value) {
			return
		}
	}
}

// Clear destroys every live object.
func (t *Table) Clear() {
	var handles []Handle
	t.Each(func(h Handle, _ TypeID, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close destroys every live object and rejects further inserts.
func (t *Table) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.Clear()
	return nil
}

// Lookup resolves h to an object of the given type or returns a
// stale-handle error naming typeName.
func (t *Table) Lookup(h Handle, typeID TypeID, typeName string) (any, error) {
	v, ok := t.GetTyped(h, typeID)
	if !ok {
		return nil, errors.StaleHandle(uint32(h), typeName)
	}
	return v, nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
