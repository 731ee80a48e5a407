package rtps

import (
	"time"

	"github.com/tdds/tdds-core/pkg/cdr"
	"github.com/tdds/tdds-core/pkg/guid"
)

// Data carries one serialized sample, RTPS §8.3's DATA submessage.
type Data struct {
	ReaderId      guid.EntityId
	WriterId      guid.EntityId
	WriterSN      uint64
	InlineQoS     []cdr.Param
	SerializedKey []byte // set instead of Payload when Kind is a dispose/unregister with key-only payload.
	Payload       []byte
	Dispose       bool
	Unregister    bool
}

const (
	dataFlagInlineQoS byte = 0x02
	dataFlagData      byte = 0x04
	dataFlagKey       byte = 0x08
)

func (d Data) Encode(w *cdr.Writer) {
	w.UShort(0) // extraFlags, reserved.
	octetsToInline := uint16(4 + 4 + 8) // readerId + writerId + writerSN, octetsToInlineQos is measured from just after this field.
	w.UShort(octetsToInline)
	w.Bytes_(d.ReaderId[:])
	w.Bytes_(d.WriterId[:])
	w.LongLong(int64(d.WriterSN))
	if len(d.InlineQoS) > 0 {
		w.WriteParamList(d.InlineQoS)
	}
	if len(d.SerializedKey) > 0 {
		w.Bytes_(d.SerializedKey)
	} else if len(d.Payload) > 0 {
		w.Bytes_(d.Payload)
	}
}

func (d Data) flags() byte {
	f := FlagEndian
	if len(d.InlineQoS) > 0 {
		f |= dataFlagInlineQoS
	}
	if len(d.SerializedKey) > 0 {
		f |= dataFlagKey | dataFlagData
	} else if len(d.Payload) > 0 {
		f |= dataFlagData
	}
	return f
}

func DecodeData(flags byte, r *cdr.Reader, bodyLen int) (Data, error) {
	var d Data
	end := r.Pos() + bodyLen
	if _, err := r.UShort(); err != nil {
		return d, err
	}
	if _, err := r.UShort(); err != nil {
		return d, err
	}
	rid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return d, err
	}
	wid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return d, err
	}
	sn, err := r.LongLong()
	if err != nil {
		return d, err
	}
	copy(d.ReaderId[:], rid)
	copy(d.WriterId[:], wid)
	d.WriterSN = uint64(sn)

	if flags&dataFlagInlineQoS != 0 {
		params, err := r.ReadParamList()
		if err != nil {
			return d, err
		}
		d.InlineQoS = params
	}
	if flags&dataFlagData != 0 {
		rest := end - r.Pos()
		if rest < 0 {
			return d, ErrShortSubmsg()
		}
		buf, err := r.Bytes_(rest)
		if err != nil {
			return d, err
		}
		if flags&dataFlagKey != 0 {
			d.SerializedKey = buf
		} else {
			d.Payload = buf
		}
	}
	return d, nil
}

// DataFrag carries one fragment of an oversized sample (msg_size exceeded),
// RTPS §8.3's fragmentation path.
type DataFrag struct {
	ReaderId       guid.EntityId
	WriterId       guid.EntityId
	WriterSN       uint64
	FragmentStart  uint32 // 1-based index of the first fragment in this submessage.
	FragmentsInSub uint16
	FragmentSize   uint16
	SampleSize     uint32
	InlineQoS      []cdr.Param
	Payload        []byte
}

func (d DataFrag) Encode(w *cdr.Writer) {
	w.UShort(0)
	w.UShort(8)
	w.Bytes_(d.ReaderId[:])
	w.Bytes_(d.WriterId[:])
	w.LongLong(int64(d.WriterSN))
	w.ULong(d.FragmentStart)
	w.UShort(d.FragmentsInSub)
	w.UShort(d.FragmentSize)
	w.ULong(d.SampleSize)
	if len(d.InlineQoS) > 0 {
		w.WriteParamList(d.InlineQoS)
	}
	w.Bytes_(d.Payload)
}

func DecodeDataFrag(flags byte, r *cdr.Reader, bodyLen int) (DataFrag, error) {
	var d DataFrag
	end := r.Pos() + bodyLen
	if _, err := r.UShort(); err != nil {
		return d, err
	}
	if _, err := r.UShort(); err != nil {
		return d, err
	}
	rid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return d, err
	}
	wid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return d, err
	}
	sn, err := r.LongLong()
	if err != nil {
		return d, err
	}
	start, err := r.ULong()
	if err != nil {
		return d, err
	}
	inSub, err := r.UShort()
	if err != nil {
		return d, err
	}
	fragSize, err := r.UShort()
	if err != nil {
		return d, err
	}
	sampleSize, err := r.ULong()
	if err != nil {
		return d, err
	}
	copy(d.ReaderId[:], rid)
	copy(d.WriterId[:], wid)
	d.WriterSN = uint64(sn)
	d.FragmentStart = start
	d.FragmentsInSub = inSub
	d.FragmentSize = fragSize
	d.SampleSize = sampleSize

	if flags&dataFlagInlineQoS != 0 {
		params, err := r.ReadParamList()
		if err != nil {
			return d, err
		}
		d.InlineQoS = params
	}
	rest := end - r.Pos()
	if rest < 0 {
		return d, ErrShortSubmsg()
	}
	buf, err := r.Bytes_(rest)
	if err != nil {
		return d, err
	}
	d.Payload = buf
	return d, nil
}

// Heartbeat tells a reader proxy the writer's currently held seqnum range,
// RTPS §8.3's reliable-writer liveness/gap-detection beacon.
type Heartbeat struct {
	ReaderId guid.EntityId
	WriterId guid.EntityId
	First    uint64
	Last     uint64
	Count    int32
	Final    bool
	Liveliness bool
}

const (
	hbFlagFinal      byte = 0x02
	hbFlagLiveliness byte = 0x04
)

func (h Heartbeat) Encode(w *cdr.Writer) {
	w.Bytes_(h.ReaderId[:])
	w.Bytes_(h.WriterId[:])
	w.LongLong(int64(h.First))
	w.LongLong(int64(h.Last))
	w.Long(h.Count)
}

func (h Heartbeat) flags() byte {
	f := FlagEndian
	if h.Final {
		f |= hbFlagFinal
	}
	if h.Liveliness {
		f |= hbFlagLiveliness
	}
	return f
}

func DecodeHeartbeat(flags byte, r *cdr.Reader) (Heartbeat, error) {
	var h Heartbeat
	rid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return h, err
	}
	wid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return h, err
	}
	first, err := r.LongLong()
	if err != nil {
		return h, err
	}
	last, err := r.LongLong()
	if err != nil {
		return h, err
	}
	count, err := r.Long()
	if err != nil {
		return h, err
	}
	copy(h.ReaderId[:], rid)
	copy(h.WriterId[:], wid)
	h.First = uint64(first)
	h.Last = uint64(last)
	h.Count = count
	h.Final = flags&hbFlagFinal != 0
	h.Liveliness = flags&hbFlagLiveliness != 0
	return h, nil
}

// AckNack is the reader's report of received/missing sequence numbers,
// RTPS §8.3's reliable-reader response to HEARTBEAT.
type AckNack struct {
	ReaderId guid.EntityId
	WriterId guid.EntityId
	Reader   SequenceNumberSet
	Count    int32
	Final    bool
}

const ackFlagFinal byte = 0x02

func (a AckNack) Encode(w *cdr.Writer) {
	w.Bytes_(a.ReaderId[:])
	w.Bytes_(a.WriterId[:])
	a.Reader.Encode(w)
	w.Long(a.Count)
}

func (a AckNack) flags() byte {
	f := FlagEndian
	if a.Final {
		f |= ackFlagFinal
	}
	return f
}

func DecodeAckNack(flags byte, r *cdr.Reader) (AckNack, error) {
	var a AckNack
	rid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return a, err
	}
	wid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return a, err
	}
	set, err := DecodeSequenceNumberSet(r)
	if err != nil {
		return a, err
	}
	count, err := r.Long()
	if err != nil {
		return a, err
	}
	copy(a.ReaderId[:], rid)
	copy(a.WriterId[:], wid)
	a.Reader = set
	a.Count = count
	a.Final = flags&ackFlagFinal != 0
	return a, nil
}

// NackFrag requests retransmission of specific fragments of one sample.
type NackFrag struct {
	ReaderId  guid.EntityId
	WriterId  guid.EntityId
	WriterSN  uint64
	Fragments SequenceNumberSet
	Count     int32
}

func (n NackFrag) Encode(w *cdr.Writer) {
	w.Bytes_(n.ReaderId[:])
	w.Bytes_(n.WriterId[:])
	w.LongLong(int64(n.WriterSN))
	n.Fragments.Encode(w)
	w.Long(n.Count)
}

func DecodeNackFrag(r *cdr.Reader) (NackFrag, error) {
	var n NackFrag
	rid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return n, err
	}
	wid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return n, err
	}
	sn, err := r.LongLong()
	if err != nil {
		return n, err
	}
	set, err := DecodeSequenceNumberSet(r)
	if err != nil {
		return n, err
	}
	count, err := r.Long()
	if err != nil {
		return n, err
	}
	copy(n.ReaderId[:], rid)
	copy(n.WriterId[:], wid)
	n.WriterSN = uint64(sn)
	n.Fragments = set
	n.Count = count
	return n, nil
}

// HeartbeatFrag tells a reader the highest fragment number available for a
// partially-sent fragmented sample.
type HeartbeatFrag struct {
	ReaderId    guid.EntityId
	WriterId    guid.EntityId
	WriterSN    uint64
	LastFragNum uint32
	Count       int32
}

func (h HeartbeatFrag) Encode(w *cdr.Writer) {
	w.Bytes_(h.ReaderId[:])
	w.Bytes_(h.WriterId[:])
	w.LongLong(int64(h.WriterSN))
	w.ULong(h.LastFragNum)
	w.Long(h.Count)
}

func DecodeHeartbeatFrag(r *cdr.Reader) (HeartbeatFrag, error) {
	var h HeartbeatFrag
	rid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return h, err
	}
	wid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return h, err
	}
	sn, err := r.LongLong()
	if err != nil {
		return h, err
	}
	frag, err := r.ULong()
	if err != nil {
		return h, err
	}
	count, err := r.Long()
	if err != nil {
		return h, err
	}
	copy(h.ReaderId[:], rid)
	copy(h.WriterId[:], wid)
	h.WriterSN = uint64(sn)
	h.LastFragNum = frag
	h.Count = count
	return h, nil
}

// Gap tells a reader that a range of sequence numbers will never be sent
// (irrelevant samples filtered out, or overwritten under KEEP_LAST).
type Gap struct {
	ReaderId  guid.EntityId
	WriterId  guid.EntityId
	GapStart  uint64
	GapList   SequenceNumberSet
}

func (g Gap) Encode(w *cdr.Writer) {
	w.Bytes_(g.ReaderId[:])
	w.Bytes_(g.WriterId[:])
	w.LongLong(int64(g.GapStart))
	g.GapList.Encode(w)
}

func DecodeGap(r *cdr.Reader) (Gap, error) {
	var g Gap
	rid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return g, err
	}
	wid, err := r.Bytes_(guid.EntityIdLen)
	if err != nil {
		return g, err
	}
	start, err := r.LongLong()
	if err != nil {
		return g, err
	}
	set, err := DecodeSequenceNumberSet(r)
	if err != nil {
		return g, err
	}
	copy(g.ReaderId[:], rid)
	copy(g.WriterId[:], wid)
	g.GapStart = uint64(start)
	g.GapList = set
	return g, nil
}

// InfoTS carries the source timestamp applied to the DATA submessages that
// follow it in the same message, until overridden or the message ends.
type InfoTS struct {
	Invalidate bool
	Time       time.Time
}

const infoTSFlagInvalidate byte = 0x02

func (t InfoTS) Encode(w *cdr.Writer) {
	if t.Invalidate {
		return
	}
	sec, nsec := rtpsEpoch(t.Time)
	w.Long(sec)
	w.ULong(nsec)
}

func (t InfoTS) flags() byte {
	f := FlagEndian
	if t.Invalidate {
		f |= infoTSFlagInvalidate
	}
	return f
}

func DecodeInfoTS(flags byte, r *cdr.Reader) (InfoTS, error) {
	var t InfoTS
	if flags&infoTSFlagInvalidate != 0 {
		t.Invalidate = true
		return t, nil
	}
	sec, err := r.Long()
	if err != nil {
		return t, err
	}
	frac, err := r.ULong()
	if err != nil {
		return t, err
	}
	t.Time = rtpsTime(sec, frac)
	return t, nil
}

// rtpsEpoch converts a time.Time into RTPS's (seconds since 1970, 1/2^32
// fraction-of-a-second) representation.
func rtpsEpoch(t time.Time) (int32, uint32) {
	sec := t.Unix()
	frac := uint32((uint64(t.Nanosecond()) << 32) / 1e9)
	return int32(sec), frac
}

func rtpsTime(sec int32, frac uint32) time.Time {
	nsec := (uint64(frac) * 1e9) >> 32
	return time.Unix(int64(sec), int64(nsec)).UTC()
}

// InfoDst carries the destination GuidPrefix the following submessages are
// addressed to, letting one physical datagram multiplex several participants.
type InfoDst struct {
	Prefix guid.GuidPrefix
}

func (d InfoDst) Encode(w *cdr.Writer) { w.Bytes_(d.Prefix[:]) }

func DecodeInfoDst(r *cdr.Reader) (InfoDst, error) {
	var d InfoDst
	p, err := r.Bytes_(guid.PrefixLen)
	if err != nil {
		return d, err
	}
	copy(d.Prefix[:], p)
	return d, nil
}

// InfoSrc overrides the originating participant's GuidPrefix/vendor/version
// for submessages relayed by a gateway (rare; carried for completeness).
type InfoSrc struct {
	Version guid.ProtocolVersion
	Vendor  guid.VendorId
	Prefix  guid.GuidPrefix
}

func (s InfoSrc) Encode(w *cdr.Writer) {
	w.ULong(0) // unused.
	w.Octet(s.Version.Major)
	w.Octet(s.Version.Minor)
	w.Octet(s.Vendor[0])
	w.Octet(s.Vendor[1])
	w.Bytes_(s.Prefix[:])
}

func DecodeInfoSrc(r *cdr.Reader) (InfoSrc, error) {
	var s InfoSrc
	if _, err := r.ULong(); err != nil {
		return s, err
	}
	maj, err := r.Octet()
	if err != nil {
		return s, err
	}
	min, err := r.Octet()
	if err != nil {
		return s, err
	}
	v0, err := r.Octet()
	if err != nil {
		return s, err
	}
	v1, err := r.Octet()
	if err != nil {
		return s, err
	}
	p, err := r.Bytes_(guid.PrefixLen)
	if err != nil {
		return s, err
	}
	s.Version = guid.ProtocolVersion{Major: maj, Minor: min}
	s.Vendor = guid.VendorId{v0, v1}
	copy(s.Prefix[:], p)
	return s, nil
}

// InfoReply carries alternate unicast/multicast locators a reader should use
// to reach the writer, overriding the default locators from SPDP.
type InfoReply struct {
	Unicast   []Locator
	Multicast []Locator
}

const infoReplyFlagMulticast byte = 0x02

func (r InfoReply) Encode(w *cdr.Writer) {
	w.SeqLen(len(r.Unicast))
	for _, l := range r.Unicast {
		l.Encode(w)
	}
	if len(r.Multicast) > 0 {
		w.SeqLen(len(r.Multicast))
		for _, l := range r.Multicast {
			l.Encode(w)
		}
	}
}

func (r InfoReply) flags() byte {
	f := FlagEndian
	if len(r.Multicast) > 0 {
		f |= infoReplyFlagMulticast
	}
	return f
}

func DecodeInfoReply(flags byte, r *cdr.Reader) (InfoReply, error) {
	var out InfoReply
	n, err := r.SeqLen()
	if err != nil {
		return out, err
	}
	out.Unicast = make([]Locator, n)
	for i := range out.Unicast {
		l, err := DecodeLocator(r)
		if err != nil {
			return out, err
		}
		out.Unicast[i] = l
	}
	if flags&infoReplyFlagMulticast != 0 {
		n, err := r.SeqLen()
		if err != nil {
			return out, err
		}
		out.Multicast = make([]Locator, n)
		for i := range out.Multicast {
			l, err := DecodeLocator(r)
			if err != nil {
				return out, err
			}
			out.Multicast[i] = l
		}
	}
	return out, nil
}
