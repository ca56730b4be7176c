package ecs

import "testing"

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore()
	id := s.Spawn("Player")
	s.SetClientID(id, 2)
	s.Field("Transform2D", "X").Set(id.Index(), 123)
	s.Field("Transform2D", "Y").Set(id.Index(), -45)
	s.Field("Health", "HP").Set(id.Index(), 7)
	s.SetFrame(10)
	wantHash := s.GetStateHash()

	snap := s.GetSparseSnapshot(10, true)

	fresh := newTestStore()
	if err := fresh.LoadSparseSnapshot(snap); err != nil {
		t.Fatalf("LoadSparseSnapshot() error: %v", err)
	}
	if got := fresh.GetStateHash(); got != wantHash {
		t.Fatalf("state hash after reload = %d, want %d", got, wantHash)
	}
	if !fresh.IsAlive(id) {
		t.Fatalf("reloaded entity not alive")
	}
	if got := fresh.ClientID(id); got != 2 {
		t.Fatalf("ClientID after reload = %d, want 2", got)
	}
}

func TestSnapshotExcludesSyncNone(t *testing.T) {
	s := newTestStore()
	s.Spawn("Particle")
	snap := s.GetSparseSnapshot(0, false)
	if len(snap.Entities) != 0 {
		t.Fatalf("snapshot included a SyncNone entity")
	}
}

func TestLoadSparseSnapshotUnknownTypeIsProgrammerError(t *testing.T) {
	s := newTestStore()
	snap := Snapshot{
		Frame: 1,
		Entities: []SnapshotEntity{
			{ID: makeID(0, 1), TypeName: "Ghost", ClientID: -1},
		},
	}
	if err := s.LoadSparseSnapshot(snap); err == nil {
		t.Fatalf("expected error loading unknown entity type")
	}
}
