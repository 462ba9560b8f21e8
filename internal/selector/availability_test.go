package selector

import "testing"

func TestAvailabilityBucketMoveAndQuery(t *testing.T) {
	b := newAvailabilityBucket(4, 8)

	for i := 0; i < 4; i++ {
		if got := b.availabilityOf(uint32(i)); got != 0 {
			t.Fatalf("availabilityOf(%d) = %d, want 0 (initial)", i, got)
		}
	}

	b.move(0, 5)
	b.move(1, 1)

	if got := b.availabilityOf(0); got != 5 {
		t.Errorf("availabilityOf(0) = %d, want 5", got)
	}
	if got := b.availabilityOf(1); got != 1 {
		t.Errorf("availabilityOf(1) = %d, want 1", got)
	}

	level, ok := b.firstNonEmpty()
	if !ok || level != 0 {
		t.Fatalf("firstNonEmpty() = (%d, %v), want (0, true)", level, ok)
	}

	// Move the remaining pieces at level 0 away; level 0 should then empty.
	b.move(2, 1)
	b.move(3, 1)

	level, ok = b.firstNonEmpty()
	if !ok || level != 1 {
		t.Fatalf("firstNonEmpty() after draining level 0 = (%d, %v), want (1, true)", level, ok)
	}
}

func TestAvailabilityBucketMoveClampsToBounds(t *testing.T) {
	b := newAvailabilityBucket(1, 2)

	b.move(0, -5)
	if got := b.availabilityOf(0); got != 0 {
		t.Errorf("availabilityOf(0) after negative delta = %d, want 0 (clamped)", got)
	}

	b.move(0, 100)
	if got := b.availabilityOf(0); got != 2 {
		t.Errorf("availabilityOf(0) after large delta = %d, want 2 (clamped to maxAvail)", got)
	}
}

func TestAvailabilityBucketOutOfRangeIsSafe(t *testing.T) {
	b := newAvailabilityBucket(2, 4)

	b.move(-1, 1)
	b.move(99, 1)

	if got := b.availabilityOf(99); got != 0 {
		t.Errorf("availabilityOf(99) = %d, want 0 (out of range)", got)
	}
}
