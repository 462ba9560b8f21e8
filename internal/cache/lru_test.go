package cache

import "testing"

func TestEvictionOrder(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	k, w, ok := c.PopLRU()
	if !ok || k != "a" || w != 1 {
		t.Fatalf("PopLRU() = (%v, %v, %v), want (a, 1, true)", k, w, ok)
	}

	k, w, ok = c.PopLRU()
	if !ok || k != "b" || w != 2 {
		t.Fatalf("PopLRU() = (%v, %v, %v), want (b, 2, true)", k, w, ok)
	}

	if c.IsEmpty() {
		t.Fatalf("IsEmpty() = true, want false before draining c")
	}

	k, w, ok = c.PopLRU()
	if !ok || k != "c" || w != 3 {
		t.Fatalf("PopLRU() = (%v, %v, %v), want (c, 3, true)", k, w, ok)
	}

	if !c.IsEmpty() {
		t.Fatalf("IsEmpty() = false, want true after draining c")
	}
}

func TestPromoteByGet(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Put("b", 2)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = (%v, %v), want (1, true)", v, ok)
	}

	c.Put("c", 3)

	if c.Contains("b") {
		t.Errorf("Contains(b) = true, want false (b should have been evicted)")
	}
	if !c.Contains("a") {
		t.Errorf("Contains(a) = false, want true (a was promoted by Get)")
	}
	if !c.Contains("c") {
		t.Errorf("Contains(c) = false, want true")
	}
}

func TestPeekDoesNotReorder(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Put("b", 2)

	if _, ok := c.Peek("a"); !ok {
		t.Fatalf("Peek(a) missing")
	}

	k, _, _ := c.PopLRU()
	if k != "a" {
		t.Errorf("PopLRU() after Peek = %v, want a (peek must not reorder)", k)
	}
}

func TestGetReorders(t *testing.T) {
	c := New(2)
	c.Put("a", 1)
	c.Put("b", 2)

	if _, ok := c.Get("a"); !ok {
		t.Fatalf("Get(a) missing")
	}

	k, _, _ := c.PopLRU()
	if k != "b" {
		t.Errorf("PopLRU() after Get(a) = %v, want b", k)
	}
}

func TestReplaceKeepsLength(t *testing.T) {
	c := New(2)
	c.Put("k", 1)
	c.Put("k", 2)

	v, ok := c.Get("k")
	if !ok || v != 2 {
		t.Fatalf("Get(k) = (%v, %v), want (2, true)", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCapacityNeverExceeded(t *testing.T) {
	c := New(3)
	keys := []string{"a", "b", "c", "d", "e", "f", "g"}

	for i, k := range keys {
		c.Put(k, uint64(i))
		if c.Len() > 3 {
			t.Fatalf("Len() = %d after %d puts, want <= 3", c.Len(), i+1)
		}
	}
}

func TestZeroWeightPutIsLegal(t *testing.T) {
	c := New(1)
	c.Put("z", 0)

	v, ok := c.Get("z")
	if !ok || v != 0 {
		t.Fatalf("Get(z) = (%v, %v), want (0, true)", v, ok)
	}
}

func TestPutReplaceDoesNotEvictBeyondCapacity(t *testing.T) {
	c := New(1)
	c.Put("a", 1)
	c.Put("a", 2) // replace, should not trigger an eviction beyond capacity

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	if !c.Contains("a") {
		t.Errorf("Contains(a) = false, want true")
	}
}

func TestPopLRUOnEmpty(t *testing.T) {
	c := New(1)

	if _, _, ok := c.PopLRU(); ok {
		t.Errorf("PopLRU() on empty cache returned ok=true")
	}
}
