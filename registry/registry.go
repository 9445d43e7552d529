package registry

import (
	"fmt"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/typeinf/errors"
)

// Registry tracks live descriptors and detail blocks so they can be
// cleared before the type-library context they borrow from is torn down.
//
// Register, Deregister and ClearAll exclude each other; clearMu is held
// across every Clear call so a handle is cleared by exactly one of them.
// mu guards the table and is never held while Clear or an observer runs.
type Registry struct {
	table     *table
	logger    *zap.Logger
	observers []Observer
	once      sync.Once
	clearMu   sync.Mutex
	mu        sync.Mutex
	closed    bool
}

// New creates an empty registry. A nil logger uses the package logger.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = Logger()
	}
	return &Registry{table: newTable(), logger: logger}
}

// Register adds h. Registering a handle that is already present is a
// no-op.
func (r *Registry) Register(h Clearable) error {
	if h == nil {
		return errors.InvalidInput(errors.PhaseRegistry, "nil handle")
	}
	if t := reflect.TypeOf(h); !t.Comparable() {
		return errors.New(errors.PhaseRegistry, errors.KindInvalidInput).
			Type(t.String()).Detail("handle type is not comparable").Build()
	}

	c := Classify(h)
	r.clearMu.Lock()
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.clearMu.Unlock()
		return errors.Closed(errors.PhaseRegistry, "registry")
	}
	added := r.table.insert(h, c)
	obs := r.observersLocked()
	r.mu.Unlock()
	r.clearMu.Unlock()

	if added {
		notify(obs, Event{Type: EventRegistered, Handle: h, Category: c})
	}
	return nil
}

// Deregister removes h and clears it unless ClearAll already did. Handles
// that are not registered are left untouched. Concurrent calls for one
// handle clear it once.
func (r *Registry) Deregister(h Clearable) {
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return
	}
	r.clearMu.Lock()
	r.mu.Lock()
	e, removed := r.table.remove(h)
	obs := r.observersLocked()
	r.mu.Unlock()
	if removed && !e.cleared {
		r.clear(h)
	}
	r.clearMu.Unlock()

	if removed {
		notify(obs, Event{Type: EventDeregistered, Handle: h, Category: e.category})
	}
}

// Registered reports whether h is currently registered.
func (r *Registry) Registered(h Clearable) bool {
	if h == nil || !reflect.TypeOf(h).Comparable() {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.contains(h)
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.table.live
}

// ClearAll clears every registered handle that has not been cleared yet,
// descriptors first, then pointer, array, function and aggregate details,
// then anything else. Handles stay registered. A panicking Clear is logged
// and skipped.
func (r *Registry) ClearAll() {
	r.clearMu.Lock()
	r.mu.Lock()
	entries := r.table.takeUncleared()
	obs := r.observersLocked()
	r.mu.Unlock()

	for _, e := range entries {
		r.clear(e.handle)
	}
	r.clearMu.Unlock()

	for _, e := range entries {
		notify(obs, Event{Type: EventCleared, Handle: e.handle, Category: e.category})
	}
	r.logger.Debug("registry cleared", zap.Int("handles", len(entries)))
}

// Shutdown stops accepting registrations, runs ClearAll exactly once and
// then calls closeFn, which tears down the type-library context. Later
// calls do nothing and return nil.
func (r *Registry) Shutdown(closeFn func() error) error {
	var err error
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		r.ClearAll()
		r.logger.Debug("registry shut down")
		if closeFn != nil {
			if cerr := closeFn(); cerr != nil {
				err = errors.Wrap(errors.PhaseRegistry, errors.KindClosed, cerr, "library teardown failed")
			}
		}
	})
	return err
}

// Subscribe adds an observer for lifecycle events.
func (r *Registry) Subscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Unsubscribe removes an observer.
func (r *Registry) Unsubscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, obs := range r.observers {
		if obs == o {
			r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
			return
		}
	}
}

func (r *Registry) observersLocked() []Observer {
	if len(r.observers) == 0 {
		return nil
	}
	return append([]Observer(nil), r.observers...)
}

func (r *Registry) clear(h Clearable) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Warn("clear panicked",
				zap.String("handle", fmt.Sprintf("%T", h)), zap.Any("panic", p))
		}
	}()
	h.Clear()
}

func notify(obs []Observer, e Event) {
	for _, o := range obs {
		o.OnRegistryEvent(e)
	}
}
