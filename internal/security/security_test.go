package security

import (
	"testing"

	"github.com/tdds/tdds-core/pkg/guid"
	"github.com/tdds/tdds-core/pkg/qos"
)

func TestPermissiveAllowsEverything(t *testing.T) {
	var d Decider = Permissive{}
	if !d.CheckCreateParticipant(0, nil).Allow {
		t.Fatal("expected Permissive to allow CheckCreateParticipant")
	}
	if !d.CheckRemoteParticipant(0, guid.GuidPrefix{}, nil).Allow {
		t.Fatal("expected Permissive to allow CheckRemoteParticipant")
	}
	if !d.CheckLocalEndpoint("T", true, qos.Default()).Allow {
		t.Fatal("expected Permissive to allow CheckLocalEndpoint")
	}
	if !d.CheckRemoteEndpoint("T", guid.GuidPrefix{}, false, qos.Default()).Allow {
		t.Fatal("expected Permissive to allow CheckRemoteEndpoint")
	}
}

func TestDenyAllRefusesEverything(t *testing.T) {
	var d Decider = DenyAll{Reason: "test policy"}
	if d.CheckCreateParticipant(0, nil).Allow {
		t.Fatal("expected DenyAll to refuse CheckCreateParticipant")
	}
	dec := d.CheckLocalEndpoint("T", true, qos.Default())
	if dec.Allow || dec.Reason != "test policy" {
		t.Fatalf("expected deny with custom reason, got %+v", dec)
	}
}
