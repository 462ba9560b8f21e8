package queue

import (
	"reflect"
	"sort"
	"testing"
)

func TestPriorityQueueMinHeapOrder(t *testing.T) {
	pq := New[int](func(a, b int) bool { return a < b })

	input := []int{3, 1, 4, 1, 5, 9, 2, 6, 5}
	for _, v := range input {
		pq.Enqueue(v)
	}

	var got []int
	for {
		v, ok := pq.Dequeue()
		if !ok {
			break
		}
		got = append(got, v)
	}

	want := make([]int, len(input))
	copy(want, input)
	sort.Ints(want)

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("min-heap order mismatch:\n got: %v\nwant: %v", got, want)
	}
}

func TestPriorityQueuePeekDoesNotRemove(t *testing.T) {
	pq := New[int](func(a, b int) bool { return a < b })
	for _, v := range []int{7, 3, 5, 1} {
		pq.Enqueue(v)
	}

	top, ok := pq.Peek()
	if !ok || top != 1 {
		t.Fatalf("Peek() = (%v, %v), want (1, true)", top, ok)
	}

	first, ok := pq.Dequeue()
	if !ok || first != top {
		t.Fatalf("Dequeue() after Peek() = (%v, %v), want (%v, true)", first, ok, top)
	}
}

func TestPriorityQueueEmptyBehavior(t *testing.T) {
	pq := New[int](func(a, b int) bool { return a < b })

	if _, ok := pq.Peek(); ok {
		t.Fatalf("Peek() on empty queue ok = true")
	}
	if _, ok := pq.Dequeue(); ok {
		t.Fatalf("Dequeue() on empty queue ok = true")
	}
}
