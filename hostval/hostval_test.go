package hostval

import (
	"bytes"
	stderrors "errors"
	"reflect"
	"testing"

	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/value"
)

type point struct {
	X      int32 `typeinf:"x"`
	Y      int32 `typeinf:"y"`
	Hidden int   `typeinf:"-"`
	secret int
}

func TestFromGo(t *testing.T) {
	n := 5
	tests := []struct {
		name string
		in   any
		want value.Value
	}{
		{"nil", nil, value.Nil},
		{"int", 7, value.Int(7)},
		{"negative", int8(-3), value.Int(-3)},
		{"uint", uint64(1) << 63, value.Uint(1 << 63)},
		{"bool", true, value.Int(1)},
		{"float", float32(1.5), value.Float(1.5)},
		{"bytes", []byte{1, 2}, value.Bytes([]byte{1, 2})},
		{"byte array", [3]byte{1, 2, 3}, value.Bytes([]byte{1, 2, 3})},
		{"string", "hi", value.Bytes([]byte("hi"))},
		{"pointer", &n, value.Int(5)},
		{"slice", []any{1, "a"}, value.Positional(value.Int(1), value.Bytes([]byte("a")))},
		{
			"map sorted", map[string]any{"b": 2, "a": 1},
			value.Aggregate(value.Field("a", value.Int(1)), value.Field("b", value.Int(2))),
		},
		{
			"struct", point{X: 1, Y: -2, Hidden: 9},
			value.Aggregate(value.Field("x", value.Int(1)), value.Field("y", value.Int(-2))),
		},
		{"value passthrough", value.Float(2), value.Float(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			if err != nil {
				t.Fatalf("FromGo() error = %v", err)
			}
			if !value.Equal(got, tt.want) {
				t.Errorf("FromGo() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFromGoUnsupported(t *testing.T) {
	_, err := FromGo(map[string]any{"f": func() {}})
	if !stderrors.Is(err, errors.PackError) {
		t.Fatalf("expected PackError, got %v", err)
	}
	var e *errors.Error
	stderrors.As(err, &e)
	if e.PathString() != "f" {
		t.Errorf("path = %q, want f", e.PathString())
	}
}

func TestToGo(t *testing.T) {
	v := value.Aggregate(
		value.Field("n", value.Int(3)),
		value.Field("pts", value.Positional(value.Float(0.5), value.Bytes([]byte{9}))),
	)
	want := map[string]any{"n": int64(3), "pts": []any{0.5, []byte{9}}}
	if got := ToGo(v); !reflect.DeepEqual(got, want) {
		t.Errorf("ToGo() = %#v, want %#v", got, want)
	}
	if ToGo(value.Nil) != nil {
		t.Error("ToGo(Nil) should be nil")
	}
}

func TestCBORRoundTrip(t *testing.T) {
	in := value.Aggregate(
		value.Field("a", value.Int(-1)),
		value.Field("b", value.Positional(value.Int(1), value.Float(2.5))),
		value.Field("c", value.Bytes([]byte("xyz"))),
	)
	data, err := MarshalCBOR(in)
	if err != nil {
		t.Fatal(err)
	}
	again, err := MarshalCBOR(in)
	if err != nil || !bytes.Equal(data, again) {
		t.Fatal("canonical encoding is not deterministic")
	}
	out, err := UnmarshalCBOR(data)
	if err != nil {
		t.Fatal(err)
	}
	if !value.Equal(in, out) {
		t.Errorf("round trip = %s, want %s", out, in)
	}
}

func TestUnmarshalCBORErrors(t *testing.T) {
	_, err := UnmarshalCBOR([]byte{0x9f})
	if !stderrors.Is(err, errors.UnpackError) {
		t.Fatalf("expected UnpackError, got %v", err)
	}
}
