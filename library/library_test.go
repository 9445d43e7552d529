package library

import (
	"bytes"
	"slices"
	"testing"

	"github.com/wippyai/typeinf/tinfo"
)

func TestSetAndLookup(t *testing.T) {
	lib := New(4)
	point := tinfo.Struct(tinfo.Field("x", tinfo.Scalar(tinfo.KindS32)), tinfo.Field("p", tinfo.Ptr(nil)))

	ord, err := lib.Set(Entry{Name: "point", Type: point, Comment: "2d", SClass: SCTypedef})
	if err != nil {
		t.Fatal(err)
	}
	if ord != 1 {
		t.Errorf("first ordinal = %d, want 1", ord)
	}

	d, ok := lib.NamedType("point")
	if !ok || !tinfo.Equal(d, point) {
		t.Fatalf("NamedType(point) = %s, %v", d, ok)
	}
	if d.Size() != 8 {
		t.Errorf("Size() = %d, want 8 with 4-byte pointers", d.Size())
	}
	if _, ok := lib.NumberedType(ord); !ok {
		t.Error("NumberedType failed")
	}
	if name, _ := lib.Name(ord); name != "point" {
		t.Errorf("Name() = %q", name)
	}
	e, _ := lib.Entry(ord)
	if e.Comment != "2d" || e.SClass != SCTypedef || e.SClass.String() != "typedef" {
		t.Errorf("entry = %+v", e)
	}
}

func TestLookupsHandOutCopies(t *testing.T) {
	lib := New(0)
	_, _ = lib.Set(Entry{Name: "u", Type: tinfo.Scalar(tinfo.KindU32)})
	d, _ := lib.NamedType("u")
	d.Clear()
	again, ok := lib.NamedType("u")
	if !ok || again.Kind() != tinfo.KindU32 {
		t.Error("clearing a looked-up descriptor must not affect the library")
	}
}

func TestSetOrdinalZeroReusesName(t *testing.T) {
	lib := New(0)
	a, _ := lib.Set(Entry{Name: "t", Type: tinfo.Scalar(tinfo.KindU8)})
	b, _ := lib.Set(Entry{Name: "t", Type: tinfo.Scalar(tinfo.KindU16)})
	if a != b {
		t.Errorf("ordinals %d and %d, want reuse", a, b)
	}
	d, _ := lib.NamedType("t")
	if d.Kind() != tinfo.KindU16 {
		t.Errorf("kind = %s, want u16", d.Kind())
	}

	if _, err := lib.Set(Entry{Name: "t", Ordinal: 9, Type: tinfo.Void()}); err == nil {
		t.Error("binding a name to a second ordinal should fail")
	}
}

func TestAllocSkipsUsed(t *testing.T) {
	lib := New(0)
	_, _ = lib.Set(Entry{Name: "a", Ordinal: 1, Type: tinfo.Void()})
	_, _ = lib.Set(Entry{Name: "b", Ordinal: 3, Type: tinfo.Void()})
	ord, err := lib.AllocOrdinal()
	if err != nil || ord != 4 {
		t.Errorf("AllocOrdinal() = %d, %v; want 4", ord, err)
	}
	if got := lib.Ordinals(); !slices.Equal(got, []uint32{1, 3}) {
		t.Errorf("Ordinals() = %v", got)
	}
}

func TestDeleteAndRename(t *testing.T) {
	lib := New(0)
	ord, _ := lib.Set(Entry{Name: "old", Type: tinfo.Void()})
	_, _ = lib.Set(Entry{Name: "new", Ordinal: ord, Type: tinfo.Void()})
	if _, ok := lib.Ordinal("old"); ok {
		t.Error("renaming should drop the old name")
	}
	if !lib.Delete(ord) || lib.Delete(ord) {
		t.Error("Delete should succeed once")
	}
	if _, ok := lib.Ordinal("new"); ok || lib.Len() != 0 {
		t.Error("entry still present")
	}
}

func TestClose(t *testing.T) {
	lib := New(0)
	_, _ = lib.Set(Entry{Name: "a", Type: tinfo.Scalar(tinfo.KindU8)})
	if err := lib.Close(); err != nil {
		t.Fatal(err)
	}
	if _, ok := lib.NamedType("a"); ok {
		t.Error("lookup after Close should fail")
	}
	if _, err := lib.Set(Entry{Name: "b", Type: tinfo.Void()}); err == nil {
		t.Error("Set after Close should fail")
	}
	if _, err := lib.AllocOrdinal(); err == nil {
		t.Error("AllocOrdinal after Close should fail")
	}
	if err := lib.Close(); err != nil {
		t.Error("Close should be idempotent")
	}
}

func TestStore(t *testing.T) {
	s := NewStore()
	tb := []byte{0x09}
	if err := s.SetType(0x40, tb, nil); err != nil {
		t.Fatal(err)
	}
	tb[0] = 0xff

	got, fb, ok := s.Type(0x40)
	if !ok || !bytes.Equal(got, []byte{0x09}) || len(fb) != 0 {
		t.Errorf("Type() = %v, %v, %v", got, fb, ok)
	}
	_ = s.SetType(0x10, []byte{0x06}, nil)
	if addrs := s.Addrs(); !slices.Equal(addrs, []uint64{0x10, 0x40}) {
		t.Errorf("Addrs() = %v", addrs)
	}
	if !s.DeleteType(0x40) || s.DeleteType(0x40) {
		t.Error("DeleteType should succeed once")
	}
}
