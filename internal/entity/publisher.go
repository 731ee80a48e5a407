package entity

import (
	"time"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// Publisher groups a set of DataWriters sharing publication-wide QoS
// (partition, presentation, group_data) under one DomainParticipant.
type Publisher struct {
	Base
	participant *DomainParticipant
	writers     *Arena[*DataWriter]
}

// CreateDataWriter builds a DataWriter bound to topic, starting disabled
// per DDS §2.2's lifecycle rule. The writer's effective QoS (its own
// policies overlaid with the publisher's shared ones) must validate and be
// internally consistent or creation fails with BAD_PARAMETER/
// INCONSISTENT_POLICY.
func (p *Publisher) CreateDataWriter(topic *Topic, policies qos.Policies, hbPeriod, nackResp, nackSupp time.Duration) (*DataWriter, error) {
	merged := mergePublisherQoS(policies, p.QoS.Policies())
	if err := merged.Validate(); err != nil {
		return nil, ErrInvalidQoS(err)
	}
	if !merged.Consistent() {
		return nil, ErrInconsistentQoS()
	}

	dw := &DataWriter{
		Topic:      topic,
		publisher:  p,
		StatusCond: &StatusCondition{},
	}
	dw.QoS = p.participant.QoSTable.Intern(merged)
	dw.Guid = guid.New(p.participant.Guid.Prefix, newUserEntityId(true, len(topic.Type.KeyFields()) > 0))
	dw.cache = cache.New(merged, guid.Default)
	if merged.Reliability.Kind == qos.Reliable {
		dw.rtpsWriter = rtps.NewReliableWriter(dw.cache, dw.Guid, hbPeriod, nackResp, nackSupp)
	}
	topic.Retain()
	dw.Handle = p.writers.Alloc(dw)
	return dw, nil
}

func (p *Publisher) DeleteDataWriter(dw *DataWriter) {
	p.writers.Free(dw.Handle)
	dw.Topic.Release()
}

// mergePublisherQoS overlays the publisher's shared policies (partition,
// presentation, group_data) onto the writer's own, the DDS "publisher QoS
// propagates to its writers" rule.
func mergePublisherQoS(writerQoS, pubQoS qos.Policies) qos.Policies {
	merged := writerQoS
	merged.Partition = pubQoS.Partition
	merged.Presentation = pubQoS.Presentation
	merged.GroupData = pubQoS.GroupData
	return merged
}

func newUserEntityId(writer, withKey bool) guid.EntityId {
	var kind byte
	switch {
	case writer && withKey:
		kind = guid.KindUserWriterWithKey
	case writer && !withKey:
		kind = guid.KindUserWriterNoKey
	case !writer && withKey:
		kind = guid.KindUserReaderWithKey
	default:
		kind = guid.KindUserReaderNoKey
	}
	w := guid.NewPrefix(guid.Default) // borrow the random source for a unique low 3 bytes.
	return guid.EntityId{w[2], w[3], w[4], kind}
}
