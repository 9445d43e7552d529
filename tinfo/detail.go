package tinfo

// PtrDetail describes a pointer type.
type PtrDetail struct {
	Pointee *Descriptor
	Closure *Descriptor // optional, nil for plain pointers
}

// Clear releases the nested descriptors. Safe to call more than once.
func (p *PtrDetail) Clear() {
	if p == nil {
		return
	}
	p.Pointee.Clear()
	p.Closure.Clear()
}

// ArrayDetail describes a fixed-length array type.
type ArrayDetail struct {
	Elem *Descriptor
	Len  uint64
	Base uint32
}

// Clear releases the element descriptor. Safe to call more than once.
func (a *ArrayDetail) Clear() {
	if a == nil {
		return
	}
	a.Elem.Clear()
}

// FuncParam is a single function parameter.
type FuncParam struct {
	Type *Descriptor
	Name string
}

// FuncDetail describes a function type.
type FuncDetail struct {
	Ret    *Descriptor
	Params []FuncParam
	CC     CallConv
}

// Clear drops the parameter list and releases the return type.
func (f *FuncDetail) Clear() {
	if f == nil {
		return
	}
	for i := range f.Params {
		f.Params[i].Type.Clear()
	}
	f.Params = nil
	f.Ret.Clear()
}

// Member is a struct or union member. Offset is in bits and is only
// significant when the owning UDTDetail has Explicit set; use
// Descriptor.Layout for the effective offsets of natural layouts.
type Member struct {
	Type     *Descriptor
	Name     string
	Offset   uint64
	BitWidth uint64
}

// Field builds a member for natural layout.
func Field(name string, typ *Descriptor) Member {
	return Member{Name: name, Type: typ}
}

// BitField builds a bit-field member for natural layout.
func BitField(name string, typ *Descriptor, width uint64) Member {
	return Member{Name: name, Type: typ, BitWidth: width}
}

// At builds a member at an explicit bit offset.
func At(name string, typ *Descriptor, offsetBits, bitWidth uint64) Member {
	return Member{Name: name, Type: typ, Offset: offsetBits, BitWidth: bitWidth}
}

// UDTDetail describes a user-defined aggregate (struct or union).
type UDTDetail struct {
	Members  []Member
	Size     uint64 // explicit byte size, 0 to derive from members
	Align    uint64 // explicit alignment, 0 for natural
	Union    bool
	Explicit bool // member offsets are taken from Member.Offset
}

// Clear drops the member list.
func (u *UDTDetail) Clear() {
	if u == nil {
		return
	}
	for i := range u.Members {
		u.Members[i].Type.Clear()
	}
	u.Members = nil
}

// HasBitFields reports whether any member is a bit-field.
func (u *UDTDetail) HasBitFields() bool {
	for _, m := range u.Members {
		if m.BitWidth != 0 {
			return true
		}
	}
	return false
}

// EnumCase is a named enumeration constant.
type EnumCase struct {
	Name  string
	Value int64
}

// EnumDetail describes an enumeration.
type EnumDetail struct {
	Cases []EnumCase
	Width uint64
}

// Clear drops the case list.
func (e *EnumDetail) Clear() {
	if e == nil {
		return
	}
	e.Cases = nil
}
