package transcoder

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"testing"

	"github.com/wippyai/typeinf/errors"
	"github.com/wippyai/typeinf/tinfo"
	"github.com/wippyai/typeinf/value"
)

func packedList(t *testing.T) *RelocatableBuffer {
	t.Helper()
	item := tinfo.Struct(tinfo.Field("v", scalar(tinfo.KindU32)), tinfo.Field("label", tinfo.Ptr(scalar(tinfo.KindChar))))
	d := tinfo.Struct(tinfo.Field("n", scalar(tinfo.KindU32)), tinfo.Field("first", tinfo.Ptr(item)))
	in := value.Aggregate(
		value.Field("n", value.Int(1)),
		value.Field("first", value.Aggregate(
			value.Field("v", value.Int(10)),
			value.Field("label", value.Bytes([]byte("x\x00"))),
		)),
	)
	buf, err := NewPacker().Pack(in, d, 0)
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if len(buf.Relocs) != 2 {
		t.Fatalf("Relocs = %v, want 2 entries", buf.Relocs)
	}
	return buf
}

func TestRelocateIdempotentAcrossBases(t *testing.T) {
	buf := packedList(t)
	orig := append([]byte(nil), buf.Bytes...)

	first, err := buf.Relocate(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := buf.Relocate(0x9000); err != nil {
		t.Fatal(err)
	}
	again, err := buf.Relocate(0x1000)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, again) {
		t.Error("relocating the original twice with the same base differs")
	}
	if !bytes.Equal(buf.Bytes, orig) {
		t.Error("Relocate modified the receiver")
	}
	for _, off := range buf.Relocs {
		got := binary.LittleEndian.Uint64(first[off:])
		want := binary.LittleEndian.Uint64(orig[off:]) + 0x1000
		if got != want {
			t.Errorf("slot %d = %#x, want %#x", off, got, want)
		}
	}
}

func TestRelocateInPlace(t *testing.T) {
	buf := packedList(t)
	want, err := buf.Relocate(0x4000)
	if err != nil {
		t.Fatal(err)
	}
	if err := buf.RelocateInPlace(0x4000); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes, want) {
		t.Error("in-place relocation differs from copy")
	}
	if buf.Relocs != nil {
		t.Error("in-place relocation should clear Relocs")
	}
}

func TestRelocateRejectsWithoutPartialWrite(t *testing.T) {
	tests := []struct {
		buf  *RelocatableBuffer
		name string
		kind errors.Kind
		base uint64
	}{
		{
			name: "slot past end",
			buf:  &RelocatableBuffer{Bytes: make([]byte, 16), Relocs: []uint64{0, 12}, AddrSize: 8},
			kind: errors.KindOutOfBounds,
		},
		{
			name: "32-bit overflow",
			buf:  &RelocatableBuffer{Bytes: []byte{1, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}, Relocs: []uint64{0, 4}, AddrSize: 4},
			kind: errors.KindOverflow,
			base: 1,
		},
		{
			name: "bad width",
			buf:  &RelocatableBuffer{Bytes: make([]byte, 8), Relocs: []uint64{0}, AddrSize: 2},
			kind: errors.KindInvalidInput,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := append([]byte(nil), tc.buf.Bytes...)
			err := tc.buf.RelocateInPlace(tc.base)
			if !stderrors.Is(err, errors.RelocationError) {
				t.Fatalf("expected RelocationError, got %v", err)
			}
			if e := asError(t, err); e.Kind != tc.kind {
				t.Errorf("kind = %s, want %s", e.Kind, tc.kind)
			}
			if !bytes.Equal(tc.buf.Bytes, before) {
				t.Error("failed relocation modified the buffer")
			}
			if _, err := tc.buf.Relocate(tc.base); err == nil {
				t.Error("Relocate should fail the same way")
			}
		})
	}
}

type sliceSink struct {
	data []byte
	base uint64
}

func (s *sliceSink) Write(addr uint64, data []byte) error {
	copy(s.data[addr-s.base:], data)
	return nil
}

func TestPackToMemory(t *testing.T) {
	d := tinfo.Struct(tinfo.Field("p", tinfo.Ptr(scalar(tinfo.KindU16))))
	sink := &sliceSink{data: make([]byte, 64), base: 0x100}

	n, err := NewPacker().PackToMemory(value.Aggregate(value.Field("p", value.Int(0x1234))), d, sink, 0x100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 8 || binary.LittleEndian.Uint64(sink.data) != 0x1234 {
		t.Errorf("wrote %d bytes: % x", n, sink.data[:8])
	}

	n, err = NewPacker().PackToMemory(value.Aggregate(value.Field("p", value.Positional(value.Int(7)))),
		tinfo.Struct(tinfo.Field("p", tinfo.Ptr(tinfo.Array(scalar(tinfo.KindU16), 1)))), sink, 0x100, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 || binary.LittleEndian.Uint64(sink.data) != 0x108 || sink.data[8] != 7 {
		t.Errorf("wrote %d bytes: % x", n, sink.data[:10])
	}
}
