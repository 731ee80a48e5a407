package diag

import "testing"

func TestRegistryGathersMetricsAfterUpdates(t *testing.T) {
	r := New()
	r.PoolAlloc("handle")
	r.CacheHit()
	r.CacheMiss()
	r.SetDiscoveredParticipants(3)

	mfs, err := r.Gatherer().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(mfs) == 0 {
		t.Fatal("expected registered metric families")
	}
}
