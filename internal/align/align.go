// Package align provides alignment and overflow-checked size arithmetic
// shared by the descriptor layout and the transcoder.
package align

import (
	"math"
	"reflect"
)

func SafeMul(a, b uint64) (uint64, bool) {
	if b != 0 && a > math.MaxUint64/b {
		return 0, false
	}
	return a * b, true
}

func SafeAdd(a, b uint64) (uint64, bool) {
	if a > math.MaxUint64-b {
		return 0, false
	}
	return a + b, true
}

// To rounds offset up to a multiple of align, which must be a power of two.
func To(offset, align uint64) uint64 {
	if align == 0 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// TypeName returns "nil" for nil values, avoiding reflect.TypeOf(nil) panic.
func TypeName(value any) string {
	if value == nil {
		return "nil"
	}
	return reflect.TypeOf(value).String()
}

// FitsSigned reports whether v fits a two's complement integer of width bytes.
func FitsSigned(v int64, width uint64) bool {
	if width >= 8 {
		return true
	}
	bits := width * 8
	lo := -(int64(1) << (bits - 1))
	hi := int64(1)<<(bits-1) - 1
	return v >= lo && v <= hi
}

// FitsUnsigned reports whether v fits an unsigned integer of width bytes.
func FitsUnsigned(v uint64, width uint64) bool {
	if width >= 8 {
		return true
	}
	return v < uint64(1)<<(width*8)
}

// SignExtend interprets the low bits of v as a signed integer.
func SignExtend(v uint64, bits uint64) int64 {
	if bits == 0 || bits >= 64 {
		return int64(v)
	}
	shift := 64 - bits
	return int64(v<<shift) >> shift
}
