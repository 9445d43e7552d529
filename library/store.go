package library

import (
	"slices"
	"sync"
)

type stored struct {
	typeBytes  []byte
	fieldBytes []byte
}

// Store maps addresses to serialized type metadata.
type Store struct {
	types map[uint64]stored
	mu    sync.RWMutex
}

func NewStore() *Store {
	return &Store{types: make(map[uint64]stored)}
}

// Type returns the serialized pair recorded at addr.
func (s *Store) Type(addr uint64) (typeBytes, fieldBytes []byte, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[addr]
	if !ok {
		return nil, nil, false
	}
	return slices.Clone(t.typeBytes), slices.Clone(t.fieldBytes), true
}

// SetType records a serialized pair at addr, replacing any previous one.
func (s *Store) SetType(addr uint64, typeBytes, fieldBytes []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[addr] = stored{typeBytes: slices.Clone(typeBytes), fieldBytes: slices.Clone(fieldBytes)}
	return nil
}

// DeleteType forgets the metadata at addr and reports whether there was
// any.
func (s *Store) DeleteType(addr uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.types[addr]
	delete(s.types, addr)
	return ok
}

// Addrs returns every address with metadata in ascending order.
func (s *Store) Addrs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]uint64, 0, len(s.types))
	for a := range s.types {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
