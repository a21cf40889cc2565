// Package handle issues opaque handles for native objects handed to a
// foreign caller.
//
// A handle is a u32 that is never 0. Its low 20 bits select a slot in the
// Table and its high 12 bits carry the slot's generation:
//
//	table := handle.NewTable()
//	counters := handle.NewTyped[*native.Counter](table, 1, "counter")
//
//	h, _ := counters.Insert(native.NewCounter(0))
//	c, err := counters.Get(h) // stale-handle error after Destroy
//	counters.Destroy(h)       // false for 0, stale or foreign handles
//
// Destroying a slot advances its generation, so a handle that outlives its
// object fails lookup instead of resolving to whatever reuses the slot.
// Values implementing Dropper are dropped when their handle is destroyed
// or the table is closed.
package handle
