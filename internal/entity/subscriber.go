package entity

import (
	"time"

	"github.com/tdds/tdds-core/internal/cache"
	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

// Subscriber groups a set of DataReaders sharing subscription-wide QoS
// under one DomainParticipant.
type Subscriber struct {
	Base
	participant *DomainParticipant
	readers     *Arena[*DataReader]
}

// CreateDataReader builds a DataReader bound to topic; the reader's
// effective QoS (its own policies overlaid with the subscriber's shared
// ones) must validate and be internally consistent or creation fails with
// BAD_PARAMETER/INCONSISTENT_POLICY.
func (s *Subscriber) CreateDataReader(topic *Topic, policies qos.Policies, hbResp, hbSupp time.Duration) (*DataReader, error) {
	merged := mergeSubscriberQoS(policies, s.QoS.Policies())
	if err := merged.Validate(); err != nil {
		return nil, ErrInvalidQoS(err)
	}
	if !merged.Consistent() {
		return nil, ErrInconsistentQoS()
	}

	dr := &DataReader{
		Topic:      topic,
		subscriber: s,
		StatusCond: &StatusCondition{},
		owners:     make(map[string]instanceOwner),
	}
	dr.QoS = s.participant.QoSTable.Intern(merged)
	dr.Guid = guid.New(s.participant.Guid.Prefix, newUserEntityId(false, len(topic.Type.KeyFields()) > 0))
	dr.cache = cache.New(merged, guid.Default)
	if merged.Reliability.Kind == qos.Reliable {
		dr.rtpsReader = rtps.NewReliableReader(dr.cache, dr.Guid, hbResp, hbSupp)
	}
	topic.Retain()
	dr.Handle = s.readers.Alloc(dr)
	return dr, nil
}

func (s *Subscriber) DeleteDataReader(dr *DataReader) {
	s.readers.Free(dr.Handle)
	dr.Topic.Release()
}

func mergeSubscriberQoS(readerQoS, subQoS qos.Policies) qos.Policies {
	merged := readerQoS
	merged.Partition = subQoS.Partition
	merged.Presentation = subQoS.Presentation
	merged.GroupData = subQoS.GroupData
	return merged
}
