package discovery

import (
	"testing"
	"time"

	"github.com/tdds/tdds-core/internal/rtps"
	"github.com/tdds/tdds-core/pkg/guid"
)

func samplePrefix(b byte) guid.GuidPrefix {
	var p guid.GuidPrefix
	for i := range p {
		p[i] = b
	}
	return p
}

func TestParticipantDataRoundTrip(t *testing.T) {
	d := ParticipantData{
		Prefix:           samplePrefix(0x11),
		ProtocolVersion:  guid.ProtocolVersion2_3,
		VendorId:         guid.VendorIdThis,
		LeaseDuration:    90 * time.Second,
		AvailableBuiltinEndpoints: DefaultBuiltinEndpoints,
		MetatrafficUnicastLocators: []rtps.Locator{
			{Kind: rtps.LocatorUDPv4, Port: 7411, Addr: [16]byte{12: 127, 13: 0, 14: 0, 15: 1}},
		},
	}

	payload := EncodeParticipantData(d)
	got, err := DecodeParticipantData(payload)
	if err != nil {
		t.Fatalf("DecodeParticipantData: %v", err)
	}
	if got.Prefix != d.Prefix {
		t.Fatalf("prefix mismatch: got %s want %s", got.Prefix, d.Prefix)
	}
	if got.LeaseDuration != d.LeaseDuration {
		t.Fatalf("lease mismatch: got %v want %v", got.LeaseDuration, d.LeaseDuration)
	}
	if got.AvailableBuiltinEndpoints != d.AvailableBuiltinEndpoints {
		t.Fatalf("builtin endpoint set mismatch: got %x want %x", got.AvailableBuiltinEndpoints, d.AvailableBuiltinEndpoints)
	}
	if len(got.MetatrafficUnicastLocators) != 1 || got.MetatrafficUnicastLocators[0].Port != 7411 {
		t.Fatalf("metatraffic locator not round-tripped: %+v", got.MetatrafficUnicastLocators)
	}
}

type fakeSender struct {
	sent [][]byte
}

func (f *fakeSender) Send(dst rtps.Locator, payload []byte) error {
	f.sent = append(f.sent, payload)
	return nil
}

func TestSPDPAgentHandleReceivedCreatesNewPeer(t *testing.T) {
	peers := NewPeerTable()
	local := ParticipantData{Prefix: samplePrefix(0x01)}
	agent := NewSPDPAgent(local, &fakeSender{}, nil, time.Second, peers, nil)

	var sawNew guid.GuidPrefix
	agent.OnNewPeer(func(p guid.GuidPrefix, _ ParticipantData) { sawNew = p })

	remote := ParticipantData{Prefix: samplePrefix(0x02), LeaseDuration: time.Minute}
	agent.HandleReceived(EncodeParticipantData(remote), time.Now())

	if peers.Len() != 1 {
		t.Fatalf("expected 1 peer, got %d", peers.Len())
	}
	if sawNew != remote.Prefix {
		t.Fatalf("OnNewPeer not invoked with remote prefix")
	}

	// A second announcement from the same peer must not be treated as new.
	sawNew = guid.GuidPrefix{}
	agent.HandleReceived(EncodeParticipantData(remote), time.Now())
	if sawNew != (guid.GuidPrefix{}) {
		t.Fatalf("OnNewPeer fired again for an already-known peer")
	}
}

func TestSPDPAgentIgnoresOwnLoopback(t *testing.T) {
	peers := NewPeerTable()
	local := ParticipantData{Prefix: samplePrefix(0x01)}
	agent := NewSPDPAgent(local, &fakeSender{}, nil, time.Second, peers, nil)
	agent.HandleReceived(EncodeParticipantData(local), time.Now())
	if peers.Len() != 0 {
		t.Fatalf("expected own announcement to be ignored, got %d peers", peers.Len())
	}
}

func TestPeerTableSweepExpiresStalePeers(t *testing.T) {
	peers := NewPeerTable()
	now := time.Now()
	peers.Upsert(ParticipantData{Prefix: samplePrefix(0x03), LeaseDuration: time.Second}, now)

	if lost := peers.Sweep(now.Add(500 * time.Millisecond)); len(lost) != 0 {
		t.Fatalf("expected no expiry before lease elapses, got %v", lost)
	}
	lost := peers.Sweep(now.Add(2 * time.Second))
	if len(lost) != 1 || lost[0] != samplePrefix(0x03) {
		t.Fatalf("expected peer 0x03 to expire, got %v", lost)
	}
	if peers.Len() != 0 {
		t.Fatalf("expected peer removed from table after sweep")
	}
}
