package registry

import "github.com/wippyai/typeinf/tinfo"

// Clearable is a handle whose owned structure can be released early.
// Clear must be idempotent.
type Clearable interface {
	Clear()
}

// Category groups handles for the clear-all order.
type Category uint8

// Categories in the order ClearAll visits them.
const (
	CategoryDescriptor Category = iota
	CategoryPointer
	CategoryArray
	CategoryFunction
	CategoryAggregate
	CategoryOther
)

func (c Category) String() string {
	switch c {
	case CategoryDescriptor:
		return "descriptor"
	case CategoryPointer:
		return "pointer"
	case CategoryArray:
		return "array"
	case CategoryFunction:
		return "function"
	case CategoryAggregate:
		return "aggregate"
	default:
		return "other"
	}
}

// Classify returns the category of h.
func Classify(h Clearable) Category {
	switch h.(type) {
	case *tinfo.Descriptor:
		return CategoryDescriptor
	case *tinfo.PtrDetail:
		return CategoryPointer
	case *tinfo.ArrayDetail:
		return CategoryArray
	case *tinfo.FuncDetail:
		return CategoryFunction
	case *tinfo.UDTDetail, *tinfo.EnumDetail:
		return CategoryAggregate
	default:
		return CategoryOther
	}
}

// Event types for registry lifecycle notifications.
type EventType uint8

const (
	EventRegistered EventType = iota
	EventDeregistered
	EventCleared
)

func (t EventType) String() string {
	switch t {
	case EventRegistered:
		return "registered"
	case EventDeregistered:
		return "deregistered"
	case EventCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event represents a registry lifecycle event.
type Event struct {
	Handle   Clearable
	Type     EventType
	Category Category
}

// Observer receives notifications about registry lifecycle events.
type Observer interface {
	OnRegistryEvent(Event)
}
