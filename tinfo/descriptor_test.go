package tinfo

import (
	"strconv"
	"testing"
)

type mapLib struct {
	named    map[string]*Descriptor
	numbered map[uint32]*Descriptor
	ptrSize  uint64
}

func (l *mapLib) NamedType(name string) (*Descriptor, bool) {
	d, ok := l.named[name]
	return d, ok
}

func (l *mapLib) NumberedType(ordinal uint32) (*Descriptor, bool) {
	d, ok := l.numbered[ordinal]
	return d, ok
}

func (l *mapLib) PointerSize() uint64 { return l.ptrSize }

func point() *Descriptor {
	return Struct(
		Field("x", Scalar(KindS32)),
		Field("y", Scalar(KindS32)),
	).WithName("point")
}

func TestNoneAndNil(t *testing.T) {
	var nilDesc *Descriptor
	for name, d := range map[string]*Descriptor{"none": None(), "nil": nilDesc} {
		t.Run(name, func(t *testing.T) {
			if !d.IsNone() || d.Kind() != KindNone {
				t.Errorf("Kind() = %s, want none", d.Kind())
			}
			if d.Size() != BadSize {
				t.Errorf("Size() = %d, want BadSize", d.Size())
			}
			if d.String() != "none" {
				t.Errorf("String() = %q", d.String())
			}
			d.Clear()
		})
	}
}

func TestScalarPanicsOnAggregate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	Scalar(KindStruct)
}

func TestDetailsShareArena(t *testing.T) {
	d := Ptr(point())
	pd, ok := d.PtrDetails()
	if !ok {
		t.Fatal("PtrDetails failed")
	}
	if pd.Pointee.Arena() != d.Arena() {
		t.Error("pointee should share the parent arena")
	}
	if pd.Pointee.Name() != "point" || pd.Pointee.Kind() != KindStruct {
		t.Errorf("pointee = %s", pd.Pointee)
	}
	if pd.Closure != nil {
		t.Error("plain pointer should have no closure")
	}
	if _, ok := d.ArrayDetails(); ok {
		t.Error("pointer has no array details")
	}
}

func TestPtrToNilIsVoidPtr(t *testing.T) {
	pd, _ := Ptr(nil).PtrDetails()
	if pd.Pointee.Kind() != KindVoid {
		t.Errorf("pointee kind = %s, want void", pd.Pointee.Kind())
	}
}

func TestBuildersCopyInputs(t *testing.T) {
	p := point()
	s := Struct(Field("origin", p))
	p.Clear()

	u, _ := s.UDTDetails()
	if u.Members[0].Type.Kind() != KindStruct {
		t.Error("clearing an input must not affect the built descriptor")
	}
}

func TestWithNameLeavesOriginal(t *testing.T) {
	a := Scalar(KindU32)
	b := a.WithName("DWORD").WithQualifiers(Const)
	if a.Name() != "" || a.Qualifiers() != 0 {
		t.Error("original descriptor was modified")
	}
	if b.Name() != "DWORD" || !b.Qualifiers().IsConst() {
		t.Errorf("b = %q %v", b.Name(), b.Qualifiers())
	}
}

func TestFuncDetails(t *testing.T) {
	d := Func(Scalar(KindS32), CCStdcall,
		FuncParam{Name: "a", Type: Ptr(Scalar(KindChar))},
		FuncParam{Type: Scalar(KindU8)},
	)
	f, ok := d.FuncDetails()
	if !ok {
		t.Fatal("FuncDetails failed")
	}
	if f.CC != CCStdcall || len(f.Params) != 2 || f.Params[0].Name != "a" {
		t.Errorf("func = %+v", f)
	}
	if f.Ret.Kind() != KindS32 {
		t.Errorf("ret = %s", f.Ret.Kind())
	}
	if d.Size() != BadSize {
		t.Error("function size must be BadSize")
	}
	f.Clear()
	f.Clear()
	if f.Params != nil {
		t.Error("Clear should drop params")
	}
}

func TestEnumDefaultWidth(t *testing.T) {
	d := Enum(0, EnumCase{"RED", 0}, EnumCase{"BLUE", 2})
	e, _ := d.EnumDetails()
	if e.Width != 4 || len(e.Cases) != 2 {
		t.Errorf("enum = %+v", e)
	}
	if d.Size() != 4 {
		t.Errorf("Size() = %d", d.Size())
	}
}

func TestEnumWidths(t *testing.T) {
	for _, w := range []uint64{1, 2, 4, 8} {
		if got := Enum(w).Size(); got != w {
			t.Errorf("Enum(%d).Size() = %d", w, got)
		}
	}
	for _, w := range []uint64{3, 5, 16} {
		t.Run(strconv.FormatUint(w, 10), func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Errorf("Enum(%d) should panic", w)
				}
			}()
			Enum(w)
		})
	}
}

func TestResolve(t *testing.T) {
	lib := &mapLib{
		named: map[string]*Descriptor{
			"point": point(),
			"alias": Named("point"),
			"loop":  Named("loop"),
		},
		numbered: map[uint32]*Descriptor{7: Scalar(KindU16)},
	}

	tests := []struct {
		d    *Descriptor
		name string
		kind Kind
		ok   bool
	}{
		{name: "direct", d: Named("point"), kind: KindStruct, ok: true},
		{name: "chain", d: Named("alias"), kind: KindStruct, ok: true},
		{name: "ordinal", d: Numbered(7), kind: KindU16, ok: true},
		{name: "missing", d: Named("nope"), kind: KindNamed},
		{name: "cycle", d: Named("loop"), kind: KindNamed},
		{name: "concrete", d: Scalar(KindF64), kind: KindF64, ok: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, ok := tc.d.Bind(lib).Resolve()
			if ok != tc.ok || r.Kind() != tc.kind {
				t.Errorf("Resolve() = %s, %v; want %s, %v", r.Kind(), ok, tc.kind, tc.ok)
			}
		})
	}
}

func TestResolveWithoutLibrary(t *testing.T) {
	if _, ok := Named("point").Resolve(); ok {
		t.Error("unbound reference must not resolve")
	}
	if Named("point").Size() != BadSize {
		t.Error("unbound reference size must be BadSize")
	}
}

func TestIsResolved(t *testing.T) {
	lib := &mapLib{named: map[string]*Descriptor{"point": point()}}
	good := Struct(Field("p", Named("point")), Field("n", Scalar(KindS8))).Bind(lib)
	if !good.IsResolved() {
		t.Error("expected resolved")
	}
	bad := Struct(Field("p", Named("point")), Field("q", Ptr(Named("ghost")))).Bind(lib)
	if bad.IsResolved() {
		t.Error("ghost reference should be unresolved")
	}
	if Forward("point").Bind(lib).IsResolved() {
		t.Error("forward placeholder is never resolved")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		a, b *Descriptor
		name string
		want bool
	}{
		{name: "same struct", a: point(), b: point(), want: true},
		{name: "nil and none", a: nil, b: None(), want: true},
		{name: "name differs", a: point(), b: point().WithName("pt"), want: false},
		{name: "quals differ", a: Scalar(KindS8), b: Scalar(KindS8).WithQualifiers(Volatile), want: false},
		{name: "array len", a: Array(Scalar(KindU8), 4), b: Array(Scalar(KindU8), 5), want: false},
		{name: "forward vs named", a: Forward("x"), b: Named("x"), want: true},
		{name: "named vs ordinal", a: Named("x"), b: Numbered(1), want: false},
		{name: "bit width", a: Struct(BitField("f", Scalar(KindU32), 3)), b: Struct(BitField("f", Scalar(KindU32), 4)), want: false},
		{name: "member name", a: Struct(Field("a", Scalar(KindU8))), b: Struct(Field("b", Scalar(KindU8))), want: false},
		{name: "union vs struct", a: Union(Field("a", Scalar(KindU8))), b: Struct(Field("a", Scalar(KindU8))), want: false},
		{name: "enum cases", a: Enum(1, EnumCase{"A", 1}), b: Enum(1, EnumCase{"A", 2}), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.a, tc.b); got != tc.want {
				t.Errorf("Equal(%s, %s) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestClearIdempotent(t *testing.T) {
	d := Ptr(point())
	d.Clear()
	d.Clear()
	if d.Kind() != KindNone {
		t.Errorf("cleared descriptor kind = %s", d.Kind())
	}
	if _, ok := d.PtrDetails(); ok {
		t.Error("cleared descriptor has no details")
	}
}

func TestWalk(t *testing.T) {
	d := Struct(Field("a", Ptr(Scalar(KindU8))), Field("b", Array(Scalar(KindS16), 2)))
	var kinds []Kind
	d.Walk(func(n *Descriptor) bool {
		kinds = append(kinds, n.Kind())
		return true
	})
	want := []Kind{KindStruct, KindPtr, KindU8, KindArray, KindS16}
	if len(kinds) != len(want) {
		t.Fatalf("walk = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("walk[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}
}

func TestString(t *testing.T) {
	d := Struct(
		Field("x", Scalar(KindS32).WithQualifiers(Const)),
		BitField("f", Scalar(KindU8), 3),
		Field("p", Ptr(Named("node"))),
	).WithName("s")
	want := "struct s{x:const s32;f:u8:3;p:ptr(node)}"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
