package tinfo

// Kind discriminates the node of a type descriptor.
type Kind uint8

const (
	KindNone Kind = iota
	KindUnknown
	KindVoid
	KindBool
	KindChar
	KindS8
	KindU8
	KindS16
	KindU16
	KindS32
	KindU32
	KindS64
	KindU64
	KindF32
	KindF64
	KindPtr
	KindArray
	KindFunc
	KindStruct
	KindUnion
	KindEnum
	KindNamed

	kindCount
)

var kindNames = [...]string{
	KindNone:    "none",
	KindUnknown: "unknown",
	KindVoid:    "void",
	KindBool:    "bool",
	KindChar:    "char",
	KindS8:      "s8",
	KindU8:      "u8",
	KindS16:     "s16",
	KindU16:     "u16",
	KindS32:     "s32",
	KindU32:     "u32",
	KindS64:     "s64",
	KindU64:     "u64",
	KindF32:     "f32",
	KindF64:     "f64",
	KindPtr:     "ptr",
	KindArray:   "array",
	KindFunc:    "func",
	KindStruct:  "struct",
	KindUnion:   "union",
	KindEnum:    "enum",
	KindNamed:   "named",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// Valid reports whether k is a defined kind.
func (k Kind) Valid() bool {
	return k < kindCount
}

// IsScalar is true for kinds that are read and written as a single
// fixed-width value.
func (k Kind) IsScalar() bool {
	return k >= KindBool && k <= KindF64
}

func (k Kind) IsInteger() bool {
	return k >= KindBool && k <= KindU64
}

func (k Kind) IsFloat() bool {
	return k == KindF32 || k == KindF64
}

func (k Kind) IsSigned() bool {
	switch k {
	case KindS8, KindS16, KindS32, KindS64, KindChar:
		return true
	default:
		return false
	}
}

func (k Kind) IsAggregate() bool {
	return k == KindStruct || k == KindUnion
}

// ScalarSize returns the byte width of a scalar kind, or 0.
func (k Kind) ScalarSize() uint64 {
	switch k {
	case KindBool, KindChar, KindS8, KindU8:
		return 1
	case KindS16, KindU16:
		return 2
	case KindS32, KindU32, KindF32:
		return 4
	case KindS64, KindU64, KindF64:
		return 8
	default:
		return 0
	}
}

// Qualifiers are cv-qualifiers attached to any node.
type Qualifiers uint8

const (
	Const Qualifiers = 1 << iota
	Volatile
)

func (q Qualifiers) IsConst() bool    { return q&Const != 0 }
func (q Qualifiers) IsVolatile() bool { return q&Volatile != 0 }

// CallConv is the calling convention of a function type.
type CallConv uint8

const (
	CCUnknown CallConv = iota
	CCCdecl
	CCStdcall
	CCFastcall
	CCThiscall
	CCVariadic

	ccCount
)

var ccNames = [...]string{
	CCUnknown:  "",
	CCCdecl:    "__cdecl",
	CCStdcall:  "__stdcall",
	CCFastcall: "__fastcall",
	CCThiscall: "__thiscall",
	CCVariadic: "__cdecl",
}

func (c CallConv) String() string {
	if int(c) < len(ccNames) {
		return ccNames[c]
	}
	return "__cc?"
}

func (c CallConv) Valid() bool {
	return c < ccCount
}
