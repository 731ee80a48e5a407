package cdr

// ParamID identifies one field in a Mutable-extensibility struct's wire
// encoding, the same parameter-id scheme SPDP/SEDP use to carry
// ParticipantBuiltinTopicData/DiscoveredWriterData fields (RTPS §8.5).
type ParamID uint16

// PIDSentinel terminates a parameter list.
const PIDSentinel ParamID = 0x0001

// Param is one (id, value) entry inside a Mutable-extensibility payload.
type Param struct {
	ID    ParamID
	Value []byte
}

// WriteParamList serializes params as a PL_CDR-style parameter list: each
// entry is a ULong header packing (id<<16 | len, 4-byte aligned) — written
// here as the simpler ParamID(2) + length(2) + padded value(n) triple RTPS
// actually emits — followed by the value padded to a 4-byte boundary, and
// terminated by PIDSentinel with a zero-length value.
func (w *Writer) WriteParamList(params []Param) {
	for _, p := range params {
		w.UShort(uint16(p.ID))
		w.UShort(uint16(alignUp(len(p.Value), 4)))
		w.Bytes_(p.Value)
		for i := len(p.Value); i < alignUp(len(p.Value), 4); i++ {
			w.Octet(0)
		}
	}
	w.UShort(uint16(PIDSentinel))
	w.UShort(0)
}

func alignUp(n, a int) int { return (n + a - 1) / a * a }

// ReadParamList parses a PL_CDR parameter list up to and including its
// sentinel, returning every entry encountered. Unknown parameter ids are
// still returned (with their raw bytes) so the caller decides whether to
// ignore them — this is what lets a Mutable-extensibility reader accept
// samples from a writer built against a newer type version (RTPS §8.2).
func (r *Reader) ReadParamList() ([]Param, error) {
	var out []Param
	for {
		id, err := r.UShort()
		if err != nil {
			return out, err
		}
		length, err := r.UShort()
		if err != nil {
			return out, err
		}
		if ParamID(id) == PIDSentinel {
			return out, nil
		}
		if err := r.need(int(length)); err != nil {
			return out, err
		}
		val := make([]byte, length)
		copy(val, r.buf[r.pos:r.pos+int(length)])
		r.pos += int(length)
		out = append(out, Param{ID: ParamID(id), Value: val})
	}
}

// Find returns the first parameter with the given id, if present.
func Find(params []Param, id ParamID) (Param, bool) {
	for _, p := range params {
		if p.ID == id {
			return p, true
		}
	}
	return Param{}, false
}
