package rtps

import (
	"time"

	"github.com/tdds/tdds-core/pkg/cdr"
	"github.com/tdds/tdds-core/pkg/guid"
)

// Submessage is the decoded union of one parsed submessage body. Exactly one
// of the typed fields is non-nil/non-zero, selected by Kind.
type Submessage struct {
	Kind SubmessageKind

	Data          *Data
	DataFrag      *DataFrag
	Heartbeat     *Heartbeat
	AckNack       *AckNack
	NackFrag      *NackFrag
	HeartbeatFrag *HeartbeatFrag
	Gap           *Gap
	InfoTS        *InfoTS
	InfoDst       *InfoDst
	InfoSrc       *InfoSrc
	InfoReply     *InfoReply
}

// Message is one parsed RTPS datagram: a header plus its ordered submessages.
type Message struct {
	Header      Header
	Submessages []Submessage
}

// Builder accumulates submessages for one outbound datagram; it never
// splits into multiple messages — RTPS imposes no submessage-count limit,
// only the transport's MTU via msg_size.
type Builder struct {
	header Header
	w      *cdr.Writer
}

func NewBuilder(header Header) *Builder {
	w := cdr.NewWriter(cdr.LittleEndian)
	header.Encode(w)
	return &Builder{header: header, w: w}
}

func (b *Builder) writeSub(kind SubmessageKind, flags byte, body *cdr.Writer) {
	hdr := SubmessageHeader{Kind: kind, Flags: flags, Length: uint16(len(body.Bytes()))}
	hdr.Encode(b.w)
	b.w.Bytes_(body.Bytes())
}

func (b *Builder) InfoDst(prefix guid.GuidPrefix) {
	body := cdr.NewWriter(cdr.LittleEndian)
	InfoDst{Prefix: prefix}.Encode(body)
	b.writeSub(KindInfoDst, FlagEndian, body)
}

func (b *Builder) InfoTS(t time.Time) {
	body := cdr.NewWriter(cdr.LittleEndian)
	ts := InfoTS{Time: t}
	ts.Encode(body)
	b.writeSub(KindInfoTS, ts.flags(), body)
}

func (b *Builder) Data(d Data) {
	body := cdr.NewWriter(cdr.LittleEndian)
	d.Encode(body)
	b.writeSub(KindData, d.flags(), body)
}

func (b *Builder) DataFrag(d DataFrag, flags byte) {
	body := cdr.NewWriter(cdr.LittleEndian)
	d.Encode(body)
	b.writeSub(KindDataFrag, flags|FlagEndian, body)
}

func (b *Builder) Heartbeat(h Heartbeat) {
	body := cdr.NewWriter(cdr.LittleEndian)
	h.Encode(body)
	b.writeSub(KindHeartbeat, h.flags(), body)
}

func (b *Builder) AckNack(a AckNack) {
	body := cdr.NewWriter(cdr.LittleEndian)
	a.Encode(body)
	b.writeSub(KindAckNack, a.flags(), body)
}

func (b *Builder) NackFrag(n NackFrag) {
	body := cdr.NewWriter(cdr.LittleEndian)
	n.Encode(body)
	b.writeSub(KindNackFrag, FlagEndian, body)
}

func (b *Builder) HeartbeatFrag(h HeartbeatFrag) {
	body := cdr.NewWriter(cdr.LittleEndian)
	h.Encode(body)
	b.writeSub(KindHeartbeatFrag, FlagEndian, body)
}

func (b *Builder) Gap(g Gap) {
	body := cdr.NewWriter(cdr.LittleEndian)
	g.Encode(body)
	b.writeSub(KindGap, FlagEndian, body)
}

func (b *Builder) Bytes() []byte { return b.w.Bytes() }

// Parse decodes one datagram into a Message, dispatching each submessage by
// kind and skipping any it doesn't recognize (forward compatibility, spec
// §4.3's wire model).
func Parse(buf []byte) (Message, error) {
	var msg Message
	r := cdr.NewReader(cdr.LittleEndian, buf)
	h, err := DecodeHeader(r)
	if err != nil {
		return msg, err
	}
	msg.Header = h

	for r.Pos() < len(buf) {
		sh, err := DecodeSubmessageHeader(r)
		if err != nil {
			return msg, err
		}
		bodyStart := r.Pos()
		bodyLen := int(sh.Length)

		sm := Submessage{Kind: sh.Kind}
		switch sh.Kind {
		case KindData:
			d, err := DecodeData(sh.Flags, r, bodyLen)
			if err != nil {
				return msg, err
			}
			sm.Data = &d
		case KindDataFrag:
			d, err := DecodeDataFrag(sh.Flags, r, bodyLen)
			if err != nil {
				return msg, err
			}
			sm.DataFrag = &d
		case KindHeartbeat:
			hb, err := DecodeHeartbeat(sh.Flags, r)
			if err != nil {
				return msg, err
			}
			sm.Heartbeat = &hb
		case KindAckNack:
			an, err := DecodeAckNack(sh.Flags, r)
			if err != nil {
				return msg, err
			}
			sm.AckNack = &an
		case KindNackFrag:
			nf, err := DecodeNackFrag(r)
			if err != nil {
				return msg, err
			}
			sm.NackFrag = &nf
		case KindHeartbeatFrag:
			hf, err := DecodeHeartbeatFrag(r)
			if err != nil {
				return msg, err
			}
			sm.HeartbeatFrag = &hf
		case KindGap:
			g, err := DecodeGap(r)
			if err != nil {
				return msg, err
			}
			sm.Gap = &g
		case KindInfoTS:
			ts, err := DecodeInfoTS(sh.Flags, r)
			if err != nil {
				return msg, err
			}
			sm.InfoTS = &ts
		case KindInfoDst:
			id, err := DecodeInfoDst(r)
			if err != nil {
				return msg, err
			}
			sm.InfoDst = &id
		case KindInfoSrc:
			is, err := DecodeInfoSrc(r)
			if err != nil {
				return msg, err
			}
			sm.InfoSrc = &is
		case KindInfoReply:
			ir, err := DecodeInfoReply(sh.Flags, r)
			if err != nil {
				return msg, err
			}
			sm.InfoReply = &ir
		case KindPad:
			if err := r.Skip(bodyLen); err != nil {
				return msg, err
			}
		default:
			if err := r.Skip(bodyLen); err != nil {
				return msg, err
			}
		}

		// Submessages that decode with implicit lengths (fixed-width bodies)
		// may not have consumed exactly bodyLen; resync to the declared
		// boundary so an unknown trailing field never desyncs the stream.
		if consumed := r.Pos() - bodyStart; consumed != bodyLen && bodyLen > 0 {
			if consumed < bodyLen {
				_ = r.Skip(bodyLen - consumed)
			}
		}
		msg.Submessages = append(msg.Submessages, sm)
	}
	return msg, nil
}
