package binary

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
)

func TestReaderReadByte(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	r := NewReader(data)

	for i, want := range data {
		if r.Position() != i {
			t.Errorf("position before read %d: got %d, want %d", i, r.Position(), i)
		}
		b, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte %d: %v", i, err)
		}
		if b != want {
			t.Errorf("ReadByte %d: got 0x%02x, want 0x%02x", i, b, want)
		}
	}

	_, err := r.ReadByte()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
	var pe *ParseError
	if !errors.As(err, &pe) || pe.Position != 3 {
		t.Errorf("expected ParseError at 3, got %v", err)
	}
}

func TestReaderReadBytes(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05})

	got, err := r.ReadBytes(3)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if !bytes.Equal(got, []byte{0x01, 0x02, 0x03}) {
		t.Errorf("ReadBytes: got %v, want [1 2 3]", got)
	}
	if r.Len() != 2 {
		t.Errorf("Len: got %d, want 2", r.Len())
	}

	_, err = r.ReadBytes(10)
	if !errors.Is(err, ErrLength) {
		t.Errorf("expected ErrLength, got %v", err)
	}
	if r.Position() != 3 {
		t.Errorf("failed read must not advance, position %d", r.Position())
	}
}

func TestReaderReadU32(t *testing.T) {
	tests := []struct {
		encoded []byte
		want    uint32
	}{
		{[]byte{0x00}, 0},
		{[]byte{0x01}, 1},
		{[]byte{0x7f}, 127},
		{[]byte{0x80, 0x01}, 128},
		{[]byte{0xe5, 0x8e, 0x26}, 624485},
		{[]byte{0xff, 0xff, 0xff, 0xff, 0x0f}, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		r := NewReader(tt.encoded)
		got, err := r.ReadU32()
		if err != nil {
			t.Errorf("ReadU32(%v): %v", tt.encoded, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ReadU32(%v): got %d, want %d", tt.encoded, got, tt.want)
		}
	}
}

func TestReaderReadU32Overflow(t *testing.T) {
	tests := [][]byte{
		{0x80, 0x80, 0x80, 0x80, 0x80, 0x01},
		{0xff, 0xff, 0xff, 0xff, 0x1f},
	}
	for _, data := range tests {
		_, err := NewReader(data).ReadU32()
		if !errors.Is(err, ErrOverflow) {
			t.Errorf("ReadU32(%v): expected ErrOverflow, got %v", data, err)
		}
	}
}

func TestReaderTruncatedLEB(t *testing.T) {
	_, err := NewReader([]byte{0x80, 0x80}).ReadU64()
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected ErrUnexpectedEOF, got %v", err)
	}
}

func TestRoundTripIntegers(t *testing.T) {
	unsigned := []uint64{0, 1, 127, 128, 300, 1 << 32, math.MaxUint64}
	signed := []int64{0, 1, -1, 63, -64, 64, -65, math.MaxInt64, math.MinInt64}

	w := NewWriter()
	for _, v := range unsigned {
		w.WriteU64(v)
	}
	for _, v := range signed {
		w.WriteS64(v)
	}

	r := NewReader(w.Bytes())
	for _, want := range unsigned {
		got, err := r.ReadU64()
		if err != nil || got != want {
			t.Errorf("ReadU64: got %d, %v; want %d", got, err, want)
		}
	}
	for _, want := range signed {
		got, err := r.ReadS64()
		if err != nil || got != want {
			t.Errorf("ReadS64: got %d, %v; want %d", got, err, want)
		}
	}
	if r.Len() != 0 {
		t.Errorf("%d bytes left over", r.Len())
	}
}

func TestReadName(t *testing.T) {
	w := NewWriter()
	w.WriteName("héllo")
	w.WriteName("")

	r := NewReader(w.Bytes())
	for _, want := range []string{"héllo", ""} {
		got, err := r.ReadName()
		if err != nil || got != want {
			t.Errorf("ReadName: got %q, %v; want %q", got, err, want)
		}
	}
}

func TestReadNameErrors(t *testing.T) {
	tests := []struct {
		want error
		name string
		data []byte
	}{
		{name: "length past end", data: []byte{0x05, 'a', 'b'}, want: ErrLength},
		{name: "missing length", data: nil, want: io.ErrUnexpectedEOF},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader(tc.data).ReadName()
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}

	_, err := NewReader([]byte{0x02, 0xff, 0xfe}).ReadName()
	if err == nil {
		t.Error("expected invalid UTF-8 error")
	}
}

func TestParseErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	pe := &ParseError{Position: 10, Err: inner}
	if !errors.Is(pe, inner) {
		t.Error("ParseError should unwrap to inner")
	}
	if pe.Error() != "typeinf: at position 10: inner" {
		t.Errorf("Error() = %q", pe.Error())
	}
}
