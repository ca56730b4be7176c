package rng

import "testing"

func TestDeterministicStream(t *testing.T) {
	a := New(12345)
	b := New(12345)
	for i := 0; i < 1000; i++ {
		av, bv := a.Next(), b.Next()
		if av != bv {
			t.Fatalf("streams diverged at step %d: %d != %d", i, av, bv)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := New(1)
	b := New(2)
	same := true
	for i := 0; i < 16; i++ {
		if a.Next() != b.Next() {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different seeds produced identical streams")
	}
}

func TestZeroSeedIsRemapped(t *testing.T) {
	s := New(0)
	if s.S0 == 0 && s.S1 == 0 {
		t.Fatalf("zero seed produced all-zero state")
	}
	// Must still advance.
	if s.Next() == 0 && s.Next() == 0 {
		t.Fatalf("zero-seeded generator appears stuck")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := New(999)
	for i := 0; i < 50; i++ {
		s.Next()
	}
	saved := s.SaveState()

	// Advance the original further.
	want := make([]uint32, 10)
	for i := range want {
		want[i] = s.Next()
	}

	// Restore into a fresh generator and replay.
	var restored State
	restored.LoadState(saved)
	for i := 0; i < 10; i++ {
		if got := restored.Next(); got != want[i] {
			t.Fatalf("after restore, step %d = %d, want %d", i, got, want[i])
		}
	}
}

func TestFloatRangeIsUnitInterval(t *testing.T) {
	s := New(42)
	for i := 0; i < 10000; i++ {
		f := s.Float()
		if f < 0 || f >= 65536 {
			t.Fatalf("Float() out of [0,1) range: raw=%d", f)
		}
	}
}

func TestIntRangeBounds(t *testing.T) {
	s := New(7)
	for i := 0; i < 1000; i++ {
		v := s.IntRange(-5, 5)
		if v < -5 || v >= 5 {
			t.Fatalf("IntRange(-5,5) = %d out of bounds", v)
		}
	}
}
