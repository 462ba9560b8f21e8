package bitfield

import "testing"

func TestNewSizeRounding(t *testing.T) {
	cases := []struct {
		nBits     int
		wantBytes int
	}{
		{0, 0},
		{1, 1},
		{7, 1},
		{8, 1},
		{9, 2},
		{16, 2},
		{17, 3},
	}

	for _, tc := range cases {
		bf := New(tc.nBits)
		if len(bf) != tc.wantBytes {
			t.Errorf("New(%d) len = %d, want %d", tc.nBits, len(bf), tc.wantBytes)
		}
	}
}

func TestSetAndHas(t *testing.T) {
	bf := New(17)

	if bf.Has(5) {
		t.Fatalf("Has(5) = true before Set")
	}

	if changed := bf.Set(5); !changed {
		t.Errorf("Set(5) changed = false, want true")
	}
	if !bf.Has(5) {
		t.Errorf("Has(5) = false after Set")
	}

	if changed := bf.Set(5); changed {
		t.Errorf("Set(5) second call changed = true, want false (idempotent)")
	}
}

func TestSetOutOfRangeIsNoop(t *testing.T) {
	bf := New(8)

	if changed := bf.Set(100); changed {
		t.Errorf("Set(100) on 8-bit field changed = true, want false")
	}
	if bf.Has(-1) {
		t.Errorf("Has(-1) = true, want false")
	}
}

func TestCount(t *testing.T) {
	bf := New(17)
	for _, n := range []int{0, 3, 8, 16} {
		bf.Set(n)
	}

	if got := bf.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	bf := New(8)
	bf.Set(1)

	clone := bf.Clone()
	clone.Set(2)

	if bf.Has(2) {
		t.Errorf("original mutated through clone")
	}
	if !bf.Equals(bf.Clone()) {
		t.Errorf("Equals() on identical content = false")
	}
	if bf.Equals(clone) {
		t.Errorf("Equals() on diverged bitfields = true")
	}
}
