package guid_test

import (
	"testing"

	"github.com/tdds/tdds-core/pkg/guid"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestGuid(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Guid Package Suite")
}

type seqSource struct{ n uint32 }

func (s *seqSource) Uint32() uint32 { s.n++; return s.n }

var _ = Describe("GuidPrefix", func() {
	It("compares lexicographically for the ownership tie-break", func() {
		a := guid.GuidPrefix{0, 0, 1}
		b := guid.GuidPrefix{0, 0, 2}
		Expect(a.Compare(b)).To(Equal(-1))
		Expect(b.Compare(a)).To(Equal(1))
		Expect(a.Compare(a)).To(Equal(0))
	})

	It("NewPrefix is deterministic given a deterministic source", func() {
		src := &seqSource{}
		p1 := guid.NewPrefix(src)
		src2 := &seqSource{}
		p2 := guid.NewPrefix(src2)
		Expect(p1).To(Equal(p2))
		Expect(p1.IsZero()).To(BeFalse())
	})
})

var _ = Describe("EntityId", func() {
	It("classifies built-in endpoints", func() {
		Expect(guid.EntityIdSPDPWriter.IsBuiltin()).To(BeTrue())
		Expect(guid.EntityIdSPDPWriter.IsWriter()).To(BeTrue())
		Expect(guid.EntityIdSPDPReader.IsWriter()).To(BeFalse())
	})
})

var _ = Describe("ProtocolVersion", func() {
	It("orders by major then minor", func() {
		Expect(guid.ProtocolVersion{Major: 2, Minor: 3}.AtLeast(guid.ProtocolVersion{Major: 2, Minor: 1})).To(BeTrue())
		Expect(guid.ProtocolVersion{Major: 1, Minor: 9}.AtLeast(guid.ProtocolVersion{Major: 2, Minor: 0})).To(BeFalse())
	})
})
