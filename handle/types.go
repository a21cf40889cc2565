package handle

// Handle is an opaque reference to a native object in a Table.
// The low 20 bits hold the slot index plus one, the high 12 bits the
// slot's generation. Handle 0 is reserved and always invalid.
type Handle uint32

const (
	indexBits = 20
	indexMask = 1<<indexBits - 1
	genMask   = 1<<(32-indexBits) - 1

	// MaxSlots is the number of objects a table can hold at once.
	MaxSlots = indexMask
)

func makeHandle(slot, generation uint32) Handle {
	return Handle((generation&genMask)<<indexBits | (slot + 1))
}

// Slot returns the table slot the handle refers to.
func (h Handle) Slot() (uint32, bool) {
	idx := uint32(h) & indexMask
	if idx == 0 {
		return 0, false
	}
	return idx - 1, true
}

// Generation returns the generation stamped into the handle.
func (h Handle) Generation() uint32 {
	return uint32(h) >> indexBits
}

// TypeID tags the kind of object a handle refers to.
type TypeID uint32

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents an object lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	TypeID TypeID
	Type   EventType
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// ObserverFunc adapts a function to Observer. Function values are not
// comparable, so an ObserverFunc cannot be unsubscribed.
type ObserverFunc func(Event)

func (f ObserverFunc) OnHandleEvent(e Event) { f(e) }

// Dropper is optionally implemented by objects that need cleanup when
// their handle is destroyed or the table is closed.
type Dropper interface {
	Drop()
}
