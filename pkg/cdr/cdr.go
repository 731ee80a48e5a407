// Package cdr implements Common Data Representation encoding, the wire
// format RTPS carries in DATA submessage payloads: fixed-size primitives
// aligned to their own size, classic (FINAL and EXTENSIBLE) structs laid
// out field by field, and MUTABLE structs carrying per-field parameter-id
// headers so receivers can skip fields they don't know.
package cdr

import (
	"encoding/binary"
	"math"
)

// Endian selects the byte order a stream is encoded/decoded with, per the
// RTPS representation-identifier (PL_CDR_LE / PL_CDR_BE and friends).
type Endian int

const (
	LittleEndian Endian = iota
	BigEndian
)

func (e Endian) order() binary.ByteOrder {
	if e == BigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// endianOf maps a byte order back to its Endian tag, letting nested
// encoders (Mutable parameter values) inherit their parent stream's order.
func endianOf(o binary.ByteOrder) Endian {
	if o == binary.BigEndian {
		return BigEndian
	}
	return LittleEndian
}

// Extensibility controls how a struct's fields are laid out on the wire,
// per RTPS §8.2's @Extensibility annotation.
type Extensibility int

const (
	Final      Extensibility = iota // classic CDR: fields back to back, no headers.
	Extensible                      // like Final, but unknown trailing fields may be appended (same layout).
	Mutable                         // PL_CDR: each field prefixed by a short parameter header (id, length).
)

// Writer serializes primitives with CDR alignment, tracking position from
// the start of the *encapsulated payload* (the 4-byte representation
// header is not counted, matching RTPS_CDR's own offset origin).
type Writer struct {
	order binary.ByteOrder
	buf   []byte
}

func NewWriter(e Endian) *Writer {
	return &Writer{order: e.order()}
}

// Bytes returns the serialized buffer built so far.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) align(n int) {
	pad := (n - len(w.buf)%n) % n
	for i := 0; i < pad; i++ {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) Bool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) Octet(v byte) { w.buf = append(w.buf, v) }

func (w *Writer) Bytes_(v []byte) { w.buf = append(w.buf, v...) }

func (w *Writer) Short(v int16) { w.UShort(uint16(v)) }

func (w *Writer) UShort(v uint16) {
	w.align(2)
	var b [2]byte
	w.order.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) Long(v int32) { w.ULong(uint32(v)) }

func (w *Writer) ULong(v uint32) {
	w.align(4)
	var b [4]byte
	w.order.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) LongLong(v int64) { w.ULongLong(uint64(v)) }

func (w *Writer) ULongLong(v uint64) {
	w.align(8)
	var b [8]byte
	w.order.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) Float(v float32) { w.ULong(math.Float32bits(v)) }

func (w *Writer) Double(v float64) { w.ULongLong(math.Float64bits(v)) }

func (w *Writer) Char(v byte) { w.buf = append(w.buf, v) }

// String writes a CDR string: a ULong length (including the trailing NUL)
// followed by the bytes and a NUL terminator.
func (w *Writer) String(v string) {
	w.ULong(uint32(len(v) + 1))
	w.buf = append(w.buf, v...)
	w.buf = append(w.buf, 0)
}

// Seq writes a sequence length header; the caller then writes n elements.
func (w *Writer) SeqLen(n int) { w.ULong(uint32(n)) }

// Reader deserializes a CDR buffer with the same alignment rules Writer
// applies when producing it.
type Reader struct {
	order binary.ByteOrder
	buf   []byte
	pos   int
}

func NewReader(e Endian, buf []byte) *Reader {
	return &Reader{order: e.order(), buf: buf}
}

func (r *Reader) Pos() int { return r.pos }

func (r *Reader) align(n int) {
	r.pos += (n - r.pos%n) % n
}

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.buf) {
		return ErrBufferTooShort()
	}
	return nil
}

func (r *Reader) Bool() (bool, error) {
	if err := r.need(1); err != nil {
		return false, err
	}
	v := r.buf[r.pos] != 0
	r.pos++
	return v, nil
}

func (r *Reader) Octet() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// Bytes_ reads n raw unaligned bytes, used for fixed-size fields (GuidPrefix,
// Locator addresses) that carry no CDR alignment of their own.
func (r *Reader) Bytes_(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

func (r *Reader) UShort() (uint16, error) {
	r.align(2)
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := r.order.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) Short() (int16, error) { v, err := r.UShort(); return int16(v), err }

func (r *Reader) ULong() (uint32, error) {
	r.align(4)
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.order.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) Long() (int32, error) { v, err := r.ULong(); return int32(v), err }

func (r *Reader) ULongLong() (uint64, error) {
	r.align(8)
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.order.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) LongLong() (int64, error) { v, err := r.ULongLong(); return int64(v), err }

func (r *Reader) Float() (float32, error) {
	v, err := r.ULong()
	return math.Float32frombits(v), err
}

func (r *Reader) Double() (float64, error) {
	v, err := r.ULongLong()
	return math.Float64frombits(v), err
}

func (r *Reader) String() (string, error) {
	n, err := r.ULong()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	s := string(r.buf[r.pos : r.pos+int(n)-1])
	r.pos += int(n)
	return s, nil
}

func (r *Reader) SeqLen() (int, error) {
	n, err := r.ULong()
	return int(n), err
}

// Skip advances past n raw bytes, used to discard an unknown Mutable
// field's payload once its parameter header has been read.
func (r *Reader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}
