package registry

import (
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/tinfo"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnRegistryEvent(e Event) {
	o.events = append(o.events, e)
}

type clearCounter struct {
	log   *[]string
	name  string
	count int
}

func (c *clearCounter) Clear() {
	c.count++
	if c.log != nil {
		*c.log = append(*c.log, c.name)
	}
}

type panicky struct{}

func (*panicky) Clear() { panic("boom") }

type sliceHandle []int

func (sliceHandle) Clear() {}

func TestRegisterIdempotent(t *testing.T) {
	reg := New(nil)
	obs := &testObserver{}
	reg.Subscribe(obs)

	c := &clearCounter{}
	for i := 0; i < 3; i++ {
		if err := reg.Register(c); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}
	if len(obs.events) != 1 || obs.events[0].Type != EventRegistered {
		t.Errorf("events = %v, want one registration", obs.events)
	}

	reg.ClearAll()
	if c.count != 1 {
		t.Errorf("Clear called %d times, want 1", c.count)
	}
}

func TestRegisterRejects(t *testing.T) {
	reg := New(nil)
	if err := reg.Register(nil); err == nil {
		t.Error("nil handle should be rejected")
	}
	if err := reg.Register(sliceHandle{1}); err == nil {
		t.Error("non-comparable handle should be rejected")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d", reg.Len())
	}
}

func TestDeregister(t *testing.T) {
	reg := New(nil)
	obs := &testObserver{}
	reg.Subscribe(obs)

	c := &clearCounter{}
	_ = reg.Register(c)
	reg.Deregister(c)

	if c.count != 1 {
		t.Errorf("Clear called %d times, want 1", c.count)
	}
	if reg.Registered(c) || reg.Len() != 0 {
		t.Error("handle still registered")
	}

	reg.Deregister(c)
	reg.Deregister(&clearCounter{})
	if c.count != 1 {
		t.Error("Deregister of an absent handle must not clear it")
	}
	if len(obs.events) != 2 || obs.events[1].Type != EventDeregistered {
		t.Errorf("events = %v", obs.events)
	}
}

func TestRegisterDeregisterSequence(t *testing.T) {
	reg := New(nil)
	c := &clearCounter{}

	_ = reg.Register(c)
	_ = reg.Register(c)
	reg.Deregister(c)
	reg.Deregister(c)

	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	if c.count != 1 {
		t.Errorf("Clear called %d times, want 1", c.count)
	}
}

func TestDeregisterAfterClearAll(t *testing.T) {
	reg := New(nil)
	obs := &testObserver{}
	reg.Subscribe(obs)
	c := &clearCounter{}
	_ = reg.Register(c)

	reg.ClearAll()
	reg.ClearAll()
	if !reg.Registered(c) {
		t.Fatal("ClearAll must keep handles registered")
	}
	reg.Deregister(c)

	if c.count != 1 {
		t.Errorf("Clear called %d times, want 1", c.count)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	want := []EventType{EventRegistered, EventCleared, EventDeregistered}
	if len(obs.events) != len(want) {
		t.Fatalf("events = %v, want %v", obs.events, want)
	}
	for i, ev := range obs.events {
		if ev.Type != want[i] {
			t.Errorf("event %d = %v, want %v", i, ev.Type, want[i])
		}
	}
}

// gatedHandle blocks its first Clear until release is closed.
type gatedHandle struct {
	entered chan struct{}
	release chan struct{}
	count   atomic.Int32
}

func newGatedHandle() *gatedHandle {
	return &gatedHandle{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedHandle) Clear() {
	if g.count.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
}

func TestConcurrentClearsRunOnce(t *testing.T) {
	tests := []struct {
		name   string
		second func(*Registry, Clearable)
	}{
		{"deregister", func(r *Registry, h Clearable) { r.Deregister(h) }},
		{"clear all", func(r *Registry, _ Clearable) { r.ClearAll() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := New(nil)
			h := newGatedHandle()
			if err := reg.Register(h); err != nil {
				t.Fatal(err)
			}

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				reg.Deregister(h)
			}()
			<-h.entered
			go func() {
				defer wg.Done()
				tt.second(reg, h)
			}()
			close(h.release)
			wg.Wait()

			if n := h.count.Load(); n != 1 {
				t.Errorf("Clear ran %d times, want 1", n)
			}
			if reg.Len() != 0 {
				t.Errorf("Len() = %d, want 0", reg.Len())
			}
		})
	}
}

func TestClearAllOrder(t *testing.T) {
	reg := New(nil)
	var log []string

	other := &clearCounter{log: &log, name: "other"}
	_ = reg.Register(other)

	d := tinfo.Ptr(tinfo.Struct(tinfo.Field("x", tinfo.Scalar(tinfo.KindS32))))
	pd, _ := d.PtrDetails()
	ad, _ := tinfo.Array(tinfo.Scalar(tinfo.KindU8), 2).ArrayDetails()
	fd, _ := tinfo.Func(nil, tinfo.CCCdecl).FuncDetails()
	ud, _ := pd.Pointee.UDTDetails()

	handles := []Clearable{ud, fd, ad, pd, d}
	for _, h := range handles {
		_ = reg.Register(h)
	}

	obs := &testObserver{}
	reg.Subscribe(obs)
	reg.ClearAll()

	want := []Category{CategoryDescriptor, CategoryPointer, CategoryArray, CategoryFunction, CategoryAggregate, CategoryOther}
	if len(obs.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(obs.events), len(want))
	}
	for i, e := range obs.events {
		if e.Type != EventCleared || e.Category != want[i] {
			t.Errorf("event %d = %s/%s, want cleared/%s", i, e.Type, e.Category, want[i])
		}
	}
	if d.Kind() != tinfo.KindNone {
		t.Error("descriptor was not cleared")
	}
	if reg.Len() != 6 {
		t.Errorf("ClearAll must keep handles registered, Len() = %d", reg.Len())
	}
	if len(log) != 1 {
		t.Errorf("other cleared %d times", len(log))
	}
}

func TestClearAllSurvivesPanic(t *testing.T) {
	reg := New(nil)
	c := &clearCounter{}
	_ = reg.Register(&panicky{})
	_ = reg.Register(c)

	reg.ClearAll()
	if c.count != 1 {
		t.Error("handles after a panicking one must still be cleared")
	}
}

func TestShutdownOnce(t *testing.T) {
	reg := New(nil)
	c := &clearCounter{}
	_ = reg.Register(c)

	closes := 0
	closeFn := func() error {
		closes++
		if c.count != 1 {
			t.Error("library closed before handles were cleared")
		}
		return nil
	}
	if err := reg.Shutdown(closeFn); err != nil {
		t.Fatal(err)
	}
	if err := reg.Shutdown(closeFn); err != nil {
		t.Fatal(err)
	}
	if closes != 1 || c.count != 1 {
		t.Errorf("closes = %d, clears = %d; want 1, 1", closes, c.count)
	}

	err := reg.Register(&clearCounter{})
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindClosed {
		t.Errorf("Register after Shutdown = %v, want closed", err)
	}
}

func TestShutdownReportsCloseError(t *testing.T) {
	reg := New(nil)
	cause := stderrors.New("teardown failed")
	err := reg.Shutdown(func() error { return cause })
	if !stderrors.Is(err, cause) {
		t.Errorf("Shutdown() = %v, want wrapped cause", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	reg := New(nil)
	obs := &testObserver{}
	reg.Subscribe(obs)
	reg.Unsubscribe(obs)
	_ = reg.Register(&clearCounter{})
	if len(obs.events) != 0 {
		t.Error("Should not receive events after Unsubscribe")
	}
}

func TestConcurrentRegister(t *testing.T) {
	reg := New(nil)
	handles := make([]*clearCounter, 64)
	for i := range handles {
		handles[i] = &clearCounter{}
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, h := range handles {
				_ = reg.Register(h)
			}
		}()
	}
	wg.Wait()

	if reg.Len() != len(handles) {
		t.Fatalf("Len() = %d, want %d", reg.Len(), len(handles))
	}
	for _, h := range handles[:32] {
		reg.Deregister(h)
	}
	if reg.Len() != 32 {
		t.Errorf("Len() = %d, want 32", reg.Len())
	}
}
