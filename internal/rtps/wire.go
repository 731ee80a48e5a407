// Package rtps implements the wire protocol and reliability state machines
// of RTPS §8.3: message/submessage encode-decode, fragment reassembly, and
// the reliable writer/reader proxies that drive retransmission.
package rtps

import (
	"github.com/tdds/tdds-core/pkg/cdr"
	"github.com/tdds/tdds-core/pkg/guid"
)

// Magic is the four-byte tag every RTPS message starts with.
var Magic = [4]byte{'R', 'T', 'P', 'S'}

// Header is the fixed 20-byte RTPS message header: magic, protocol version,
// vendor id and the sending participant's GuidPrefix.
type Header struct {
	Version guid.ProtocolVersion
	Vendor  guid.VendorId
	Prefix  guid.GuidPrefix
}

func (h Header) Encode(w *cdr.Writer) {
	w.Bytes_(Magic[:])
	w.Octet(h.Version.Major)
	w.Octet(h.Version.Minor)
	w.Octet(h.Vendor[0])
	w.Octet(h.Vendor[1])
	w.Bytes_(h.Prefix[:])
}

func DecodeHeader(r *cdr.Reader) (Header, error) {
	var h Header
	magic, err := r.Bytes_(4)
	if err != nil {
		return h, err
	}
	for i := range Magic {
		if magic[i] != Magic[i] {
			return h, ErrBadMagic()
		}
	}
	maj, err := r.Octet()
	if err != nil {
		return h, err
	}
	min, err := r.Octet()
	if err != nil {
		return h, err
	}
	v0, err := r.Octet()
	if err != nil {
		return h, err
	}
	v1, err := r.Octet()
	if err != nil {
		return h, err
	}
	prefix, err := r.Bytes_(guid.PrefixLen)
	if err != nil {
		return h, err
	}
	h.Version = guid.ProtocolVersion{Major: maj, Minor: min}
	h.Vendor = guid.VendorId{v0, v1}
	copy(h.Prefix[:], prefix)
	return h, nil
}

// SubmessageKind is the one-byte submessage id, RTPS 2.x §9.4.5.1.
type SubmessageKind byte

const (
	KindPad           SubmessageKind = 0x01
	KindAckNack       SubmessageKind = 0x06
	KindHeartbeat     SubmessageKind = 0x07
	KindGap           SubmessageKind = 0x08
	KindInfoTS        SubmessageKind = 0x09
	KindInfoSrc       SubmessageKind = 0x0c
	KindInfoReply     SubmessageKind = 0x0f
	KindNackFrag      SubmessageKind = 0x12
	KindHeartbeatFrag SubmessageKind = 0x13
	KindData          SubmessageKind = 0x15
	KindDataFrag      SubmessageKind = 0x16
	KindInfoDst       SubmessageKind = 0x0e
)

// Submessage flag bits common across kinds; each submessage type reuses bit
// 0 for endianness and repurposes the rest.
const (
	FlagEndian byte = 0x01
)

// SubmessageHeader precedes every submessage: kind, flags, and the octet
// length of the submessage body that follows (not including this header).
type SubmessageHeader struct {
	Kind   SubmessageKind
	Flags  byte
	Length uint16
}

func (h SubmessageHeader) Encode(w *cdr.Writer) {
	w.Octet(byte(h.Kind))
	w.Octet(h.Flags)
	w.UShort(h.Length)
}

func DecodeSubmessageHeader(r *cdr.Reader) (SubmessageHeader, error) {
	var h SubmessageHeader
	k, err := r.Octet()
	if err != nil {
		return h, err
	}
	f, err := r.Octet()
	if err != nil {
		return h, err
	}
	l, err := r.UShort()
	if err != nil {
		return h, err
	}
	h.Kind = SubmessageKind(k)
	h.Flags = f
	h.Length = l
	return h, nil
}

// Locator is an RTPS transport address: a kind tag, UDP/TCP port, and a
// 16-byte address (an IPv4 address fills the last four bytes, the first
// twelve are zero).
type Locator struct {
	Kind LocatorKind
	Port uint32
	Addr [16]byte
}

type LocatorKind int32

const (
	LocatorInvalid LocatorKind = -1
	LocatorUDPv4   LocatorKind = 1
	LocatorUDPv6   LocatorKind = 2
	LocatorTCPv4   LocatorKind = 4
	LocatorTCPv6   LocatorKind = 8
)

func (l Locator) Encode(w *cdr.Writer) {
	w.Long(int32(l.Kind))
	w.ULong(l.Port)
	w.Bytes_(l.Addr[:])
}

func DecodeLocator(r *cdr.Reader) (Locator, error) {
	var l Locator
	k, err := r.Long()
	if err != nil {
		return l, err
	}
	p, err := r.ULong()
	if err != nil {
		return l, err
	}
	a, err := r.Bytes_(16)
	if err != nil {
		return l, err
	}
	l.Kind = LocatorKind(k)
	l.Port = p
	copy(l.Addr[:], a)
	return l, nil
}

// SequenceNumberSet encodes the bitmap-based gap descriptions used by
// ACKNACK/NACKFRAG (NACKFRAG carries fragment numbers in the same type),
// grounded on RTPS 2.x §9.4.2.6-7.
type SequenceNumberSet struct {
	Base   uint64
	Bitmap []bool // bitmap[i] set means Base+i is missing.
}

func (s SequenceNumberSet) Encode(w *cdr.Writer) {
	w.LongLong(int64(s.Base >> 32))
	w.ULong(uint32(s.Base))
	numBits := uint32(len(s.Bitmap))
	w.ULong(numBits)
	words := (numBits + 31) / 32
	for i := uint32(0); i < words; i++ {
		var word uint32
		for b := 0; b < 32; b++ {
			idx := i*32 + uint32(b)
			if idx < numBits && s.Bitmap[idx] {
				word |= 1 << (31 - uint(b))
			}
		}
		w.ULong(word)
	}
}

func DecodeSequenceNumberSet(r *cdr.Reader) (SequenceNumberSet, error) {
	var s SequenceNumberSet
	hi, err := r.LongLong()
	if err != nil {
		return s, err
	}
	lo, err := r.ULong()
	if err != nil {
		return s, err
	}
	s.Base = uint64(hi)<<32 | uint64(lo)
	numBits, err := r.ULong()
	if err != nil {
		return s, err
	}
	words := (numBits + 31) / 32
	s.Bitmap = make([]bool, numBits)
	for i := uint32(0); i < words; i++ {
		word, err := r.ULong()
		if err != nil {
			return s, err
		}
		for b := 0; b < 32; b++ {
			idx := i*32 + uint32(b)
			if idx < numBits && word&(1<<(31-uint(b))) != 0 {
				s.Bitmap[idx] = true
			}
		}
	}
	return s, nil
}
