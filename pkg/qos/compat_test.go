package qos_test

import (
	"time"

	"github.com/tdds/tdds-core/pkg/qos"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Compatible", func() {
	It("matches two default QoS records", func() {
		Expect(qos.Compatible(qos.Default(), qos.Default())).To(Equal(qos.CompatOK))
	})

	It("rejects BEST_EFFORT offered against RELIABLE requested", func() {
		w := qos.Default()
		r := qos.Default()
		r.Reliability.Kind = qos.Reliable
		Expect(qos.Compatible(w, r)).To(Equal(qos.IncompatReliability))
	})

	It("accepts RELIABLE offered against BEST_EFFORT requested", func() {
		w := qos.Default()
		w.Reliability.Kind = qos.Reliable
		r := qos.Default()
		Expect(qos.Compatible(w, r)).To(Equal(qos.CompatOK))
	})

	It("ranks durability VOLATILE < TRANSIENT_LOCAL < TRANSIENT < PERSISTENT", func() {
		w := qos.Default()
		w.Durability = qos.Volatile
		r := qos.Default()
		r.Durability = qos.TransientLocal
		Expect(qos.Compatible(w, r)).To(Equal(qos.IncompatDurability))

		w.Durability = qos.Persistent
		Expect(qos.Compatible(w, r)).To(Equal(qos.CompatOK))
	})

	It("requires the writer deadline period to be <= the reader's", func() {
		w := qos.Default()
		w.Deadline = qos.Finite(2 * time.Second)
		r := qos.Default()
		r.Deadline = qos.Finite(1 * time.Second)
		Expect(qos.Compatible(w, r)).To(Equal(qos.IncompatDeadline))

		r.Deadline = qos.Finite(3 * time.Second)
		Expect(qos.Compatible(w, r)).To(Equal(qos.CompatOK))
	})

	It("requires identical ownership kind", func() {
		w := qos.Default()
		w.Ownership.Kind = qos.Exclusive
		r := qos.Default()
		r.Ownership.Kind = qos.Shared
		Expect(qos.Compatible(w, r)).To(Equal(qos.IncompatOwnership))
	})

	It("matches empty partitions to each other and to a wildcard", func() {
		Expect(qos.PartitionsMatch(nil, nil)).To(BeTrue())
		Expect(qos.PartitionsMatch(nil, []string{"*"})).To(BeTrue())
		Expect(qos.PartitionsMatch([]string{"A"}, []string{"B"})).To(BeFalse())
		Expect(qos.PartitionsMatch([]string{"A*"}, []string{"ABC"})).To(BeTrue())
	})
})

var _ = Describe("Consistent", func() {
	It("rejects KEEP_LAST depth 0", func() {
		p := qos.Default()
		p.History.Depth = 0
		Expect(p.Consistent()).To(BeFalse())
	})

	It("rejects a depth greater than max_samples_per_instance", func() {
		p := qos.Default()
		p.History.Depth = 5
		p.ResourceLimits.MaxSamplesPerInstance = 2
		Expect(p.Consistent()).To(BeFalse())
	})
})

var _ = Describe("Table interning", func() {
	It("shares one Ref for identical policies and releases it at zero", func() {
		t := qos.NewTable()
		a := t.Intern(qos.Default())
		b := t.Intern(qos.Default())
		Expect(a).To(BeIdenticalTo(b))
		Expect(t.Len()).To(Equal(1))

		t.Release(a)
		Expect(t.Len()).To(Equal(1))
		t.Release(b)
		Expect(t.Len()).To(Equal(0))
	})

	It("interns distinct policies separately", func() {
		t := qos.NewTable()
		a := t.Intern(qos.Default())
		other := qos.Default()
		other.Reliability.Kind = qos.Reliable
		b := t.Intern(other)
		Expect(a).ToNot(BeIdenticalTo(b))
		Expect(t.Len()).To(Equal(2))
	})
})
