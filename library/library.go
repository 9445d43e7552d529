// Package library is an in-memory type-library context: named and
// numbered types with per-entry metadata, plus an address-keyed store of
// serialized type metadata.
package library

import (
	"slices"
	"sync"

	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/tinfo"
)

// SClass is the storage class recorded with a library entry.
type SClass uint8

const (
	SCUnknown SClass = iota
	SCTypedef
	SCExtern
	SCStatic
	SCRegister
	SCAuto
)

func (s SClass) String() string {
	switch s {
	case SCTypedef:
		return "typedef"
	case SCExtern:
		return "extern"
	case SCStatic:
		return "static"
	case SCRegister:
		return "register"
	case SCAuto:
		return "auto"
	default:
		return ""
	}
}

// Entry is one numbered library type.
type Entry struct {
	Type    *tinfo.Descriptor
	Name    string
	Comment string
	Value   uint64
	Ordinal uint32
	SClass  SClass
}

// Library holds named and numbered types. Ordinals start at 1.
//
// Mutations are expected to be serialized by the caller; lookups may run
// concurrently with each other and are guarded against concurrent
// mutation.
type Library struct {
	entries map[uint32]*Entry
	names   map[string]uint32
	ptrSize uint64
	next    uint32
	mu      sync.RWMutex
	closed  bool
}

// New creates an empty library whose targets use ptrSize-byte addresses
// (0 means tinfo.DefaultPointerSize).
func New(ptrSize uint64) *Library {
	if ptrSize == 0 {
		ptrSize = tinfo.DefaultPointerSize
	}
	return &Library{
		entries: make(map[uint32]*Entry),
		names:   make(map[string]uint32),
		ptrSize: ptrSize,
		next:    1,
	}
}

func (l *Library) PointerSize() uint64 {
	return l.ptrSize
}

// NamedType implements tinfo.Library.
func (l *Library) NamedType(name string) (*tinfo.Descriptor, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, false
	}
	ord, ok := l.names[name]
	if !ok {
		return nil, false
	}
	return l.typeLocked(ord)
}

// NumberedType implements tinfo.Library.
func (l *Library) NumberedType(ordinal uint32) (*tinfo.Descriptor, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, false
	}
	return l.typeLocked(ordinal)
}

// typeLocked hands out a fresh descriptor value so callers clearing it
// leave the stored one intact.
func (l *Library) typeLocked(ordinal uint32) (*tinfo.Descriptor, bool) {
	e, ok := l.entries[ordinal]
	if !ok || e.Type.IsNone() {
		return nil, false
	}
	return e.Type.Bind(l), true
}

// AllocOrdinal reserves the next free ordinal.
func (l *Library) AllocOrdinal() (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, errors.Closed(errors.PhaseLibrary, "library")
	}
	return l.allocLocked(), nil
}

func (l *Library) allocLocked() uint32 {
	for {
		ord := l.next
		l.next++
		if _, used := l.entries[ord]; !used {
			return ord
		}
	}
}

// Set stores e and returns its ordinal. Ordinal 0 reuses the ordinal
// already bound to e.Name, or allocates a new one.
func (l *Library) Set(e Entry) (uint32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, errors.Closed(errors.PhaseLibrary, "library")
	}

	ord := e.Ordinal
	if ord == 0 {
		if existing, ok := l.names[e.Name]; ok && e.Name != "" {
			ord = existing
		} else {
			ord = l.allocLocked()
		}
	}
	if e.Name != "" {
		if owner, ok := l.names[e.Name]; ok && owner != ord {
			return 0, errors.New(errors.PhaseLibrary, errors.KindInvalidInput).
				Type(e.Name).Detail("name already bound to ordinal %d", owner).Build()
		}
	}
	if prev, ok := l.entries[ord]; ok && prev.Name != "" && prev.Name != e.Name {
		delete(l.names, prev.Name)
	}

	stored := e
	stored.Ordinal = ord
	stored.Type = e.Type.Bind(nil)
	l.entries[ord] = &stored
	if e.Name != "" {
		l.names[e.Name] = ord
	}
	if ord >= l.next {
		l.next = ord + 1
	}
	return ord, nil
}

// Delete removes the entry at ordinal.
func (l *Library) Delete(ordinal uint32) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[ordinal]
	if !ok {
		return false
	}
	delete(l.entries, ordinal)
	if e.Name != "" {
		delete(l.names, e.Name)
	}
	return true
}

// Entry returns a copy of the entry at ordinal with its type bound to l.
func (l *Library) Entry(ordinal uint32) (Entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[ordinal]
	if !ok || l.closed {
		return Entry{}, false
	}
	out := *e
	out.Type = e.Type.Bind(l)
	return out, true
}

// Ordinal returns the ordinal bound to name.
func (l *Library) Ordinal(name string) (uint32, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ord, ok := l.names[name]
	return ord, ok
}

// Name returns the name of the entry at ordinal.
func (l *Library) Name(ordinal uint32) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[ordinal]
	if !ok {
		return "", false
	}
	return e.Name, true
}

// Ordinals returns every used ordinal in ascending order.
func (l *Library) Ordinals() []uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]uint32, 0, len(l.entries))
	for ord := range l.entries {
		out = append(out, ord)
	}
	slices.Sort(out)
	return out
}

// Len returns the number of entries.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Close drops every entry. Lookups fail afterwards. Close is idempotent.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for _, e := range l.entries {
		e.Type.Clear()
	}
	l.entries = map[uint32]*Entry{}
	l.names = map[string]uint32{}
	return nil
}
