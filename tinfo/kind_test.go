package tinfo

import "testing"

func TestKindString(t *testing.T) {
	tests := []struct {
		want string
		kind Kind
	}{
		{"none", KindNone},
		{"unknown", KindUnknown},
		{"void", KindVoid},
		{"bool", KindBool},
		{"char", KindChar},
		{"s8", KindS8},
		{"u64", KindU64},
		{"f32", KindF32},
		{"ptr", KindPtr},
		{"array", KindArray},
		{"func", KindFunc},
		{"struct", KindStruct},
		{"union", KindUnion},
		{"enum", KindEnum},
		{"named", KindNamed},
		{"invalid", Kind(200)},
	}

	for _, tc := range tests {
		t.Run(tc.want, func(t *testing.T) {
			if got := tc.kind.String(); got != tc.want {
				t.Errorf("String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestKindClassification(t *testing.T) {
	for k := KindNone; k < kindCount; k++ {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
		if k.IsScalar() != (k.ScalarSize() != 0) {
			t.Errorf("%s: IsScalar and ScalarSize disagree", k)
		}
	}
	if Kind(kindCount).Valid() {
		t.Error("kindCount must not be valid")
	}
	if !KindS16.IsSigned() || KindU16.IsSigned() {
		t.Error("signedness")
	}
	if !KindStruct.IsAggregate() || !KindUnion.IsAggregate() || KindArray.IsAggregate() {
		t.Error("aggregate classification")
	}
	if KindF64.IsInteger() || !KindF64.IsFloat() {
		t.Error("float classification")
	}
}

func TestQualifiers(t *testing.T) {
	q := Const | Volatile
	if !q.IsConst() || !q.IsVolatile() {
		t.Error("both qualifiers expected")
	}
	if Qualifiers(0).IsConst() {
		t.Error("zero qualifiers")
	}
}

func TestCallConvString(t *testing.T) {
	if CCStdcall.String() != "__stdcall" {
		t.Errorf("got %q", CCStdcall.String())
	}
	if CCUnknown.String() != "" {
		t.Errorf("unknown cc should print empty, got %q", CCUnknown.String())
	}
	if CallConv(99).Valid() {
		t.Error("99 should not be valid")
	}
}
