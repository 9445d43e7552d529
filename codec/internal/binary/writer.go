package binary

import "encoding/binary"

// Writer appends type-bytes primitives to a growing buffer.
type Writer struct {
	buf []byte
}

func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 32)}
}

// Bytes returns the written bytes. The slice aliases the writer.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteU32 writes an unsigned LEB128 uint32.
func (w *Writer) WriteU32(v uint32) {
	w.WriteU64(uint64(v))
}

// WriteU64 writes an unsigned LEB128 uint64. Uvarint and unsigned LEB128
// share one encoding.
func (w *Writer) WriteU64(v uint64) {
	w.buf = binary.AppendUvarint(w.buf, v)
}

// WriteS64 writes a signed LEB128 int64.
func (w *Writer) WriteS64(v int64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			w.buf = append(w.buf, b)
			return
		}
		w.buf = append(w.buf, b|0x80)
	}
}

// WriteName writes a length-prefixed UTF-8 name.
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}
