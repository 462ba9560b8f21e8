// Package selector implements the single-producer/single-consumer
// rendezvous that buffers piece-availability notices from the piece
// collector and lets the downloader pop them under a pluggable choice
// policy.
//
// The permit bookkeeping mirrors a counting semaphore: each buffered piece
// holds exactly one permit, and close() releases one extra permit to
// guarantee a blocked consumer wakes. golang.org/x/sync/semaphore.Weighted
// stands in for that primitive, the same way the teacher's peer manager
// uses a channel as a dial semaphore.
package selector

import (
	"context"
	"math"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"

	"github.com/samber/lo"
	"golang.org/x/sync/semaphore"

	"github.com/prxssh/dfdaemon/internal/piece"
	"github.com/prxssh/dfdaemon/internal/queue"
)

// CollectedPiece is the selector's buffered element: a piece number, its
// length, and the set of peers ("parents") known to have announced it. The
// parents set grows by union when the same piece number is re-announced.
type CollectedPiece struct {
	Number  uint32
	Length  uint64
	Parents map[string]struct{}

	seq uint64 // insertion order, used by SelectFIFO's snapshot ordering
}

// ParentList returns Parents as a slice in unspecified order; callers that
// only need membership can range over Parents directly.
func (c CollectedPiece) ParentList() []string {
	return lo.Keys(c.Parents)
}

// Choose inspects a snapshot of currently buffered pieces and returns the
// index of the one to select, or ok=false if nothing is selectable right
// now. Snapshots passed to Choose preserve insertion order.
type Choose func(snapshot []CollectedPiece) (index int, ok bool)

// Selector is the rendezvous described by the package doc. The zero value
// is not usable; construct with New.
type Selector struct {
	mu       sync.Mutex
	buffered map[uint32]*CollectedPiece
	selected map[uint32]struct{}
	closed   bool
	nextSeq  uint64

	available *semaphore.Weighted

	availability *availabilityBucket // lazily built for SelectRarest
}

// New returns an empty selector.
func New() *Selector {
	return &Selector{
		buffered:  make(map[uint32]*CollectedPiece),
		selected:  make(map[uint32]struct{}),
		available: semaphore.NewWeighted(math.MaxInt64),
	}
}

// Insert records that p is available, merging into an existing buffered
// entry when p.Number was already announced. A piece that was already
// handed out by Select* is dropped silently: re-announcing a selected
// piece must never leak a permit.
func (s *Selector) Insert(p piece.Piece, parent string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, done := s.selected[p.Number]; done {
		return
	}

	if existing, ok := s.buffered[p.Number]; ok {
		existing.Parents[parent] = struct{}{}
		return
	}

	s.buffered[p.Number] = &CollectedPiece{
		Number:  p.Number,
		Length:  p.Length,
		Parents: map[string]struct{}{parent: {}},
		seq:     s.nextSeq,
	}
	s.nextSeq++

	s.available.Release(1)
}

// Close latches the selector terminal and guarantees any blocked consumer
// wakes by releasing one extra permit.
func (s *Selector) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.available.Release(1)
}

// snapshot returns buffered pieces ordered by insertion sequence. Caller
// must hold s.mu.
func (s *Selector) snapshot() []CollectedPiece {
	out := lo.Map(lo.Values(s.buffered), func(cp *CollectedPiece, _ int) CollectedPiece { return *cp })

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })

	return out
}

// SelectWith acquires a permit, snapshots the buffered pieces, and asks
// choose which one (if any) to hand out. It blocks until a piece is
// selected or the selector is closed with nothing left to give. ok is
// false only on terminal close.
func (s *Selector) SelectWith(ctx context.Context, choose Choose) (CollectedPiece, bool, error) {
	for {
		if err := s.available.Acquire(ctx, 1); err != nil {
			return CollectedPiece{}, false, err
		}

		s.mu.Lock()
		snap := s.snapshot()
		idx, ok := 0, false
		if len(snap) > 0 {
			idx, ok = choose(snap)
		}

		if ok && idx >= 0 && idx < len(snap) {
			number := snap[idx].Number
			cp, present := s.buffered[number]
			if !present {
				// Concurrently removed; shouldn't happen under the SPSC
				// contract, but re-check under the same critical section
				// per the design note and fall through to re-arm.
				s.mu.Unlock()
				s.available.Release(1)
				runtime.Gosched()
				continue
			}

			delete(s.buffered, number)
			s.selected[number] = struct{}{}
			result := *cp
			s.mu.Unlock()

			return result, true, nil
		}

		// choose found nothing selectable this round. If closed, that's
		// terminal regardless of what remains buffered: a choose that
		// keeps declining non-empty input on a closed selector has
		// nothing left to offer. Otherwise re-arm the permit and retry.
		closed := s.closed
		s.mu.Unlock()

		if closed {
			return CollectedPiece{}, false, nil
		}

		s.available.Release(1)
		runtime.Gosched()
	}
}

// SelectRandom picks a uniform index over the current snapshot.
func (s *Selector) SelectRandom(ctx context.Context) (CollectedPiece, bool, error) {
	return s.SelectWith(ctx, func(snapshot []CollectedPiece) (int, bool) {
		if len(snapshot) == 0 {
			return 0, false
		}

		return rand.IntN(len(snapshot)), true
	})
}

// SelectFIFO picks index 0 of the insertion-ordered snapshot.
func (s *Selector) SelectFIFO(ctx context.Context) (CollectedPiece, bool, error) {
	return s.SelectWith(ctx, func(snapshot []CollectedPiece) (int, bool) {
		if len(snapshot) == 0 {
			return 0, false
		}

		return 0, true
	})
}

// SelectRarest picks the piece with the lowest recorded availability, per
// counts previously reported through UpdateAvailability. Tracked pieces
// with no reported availability are treated as availability 0 (rarest);
// piece numbers at or beyond the count given to EnsureAvailabilityTracking
// are chosen only when no tracked piece is buffered.
func (s *Selector) SelectRarest(ctx context.Context) (CollectedPiece, bool, error) {
	return s.SelectWith(ctx, func(snapshot []CollectedPiece) (int, bool) {
		if len(snapshot) == 0 {
			return 0, false
		}

		// SelectWith calls choose with s.mu already held.
		ab := s.availability

		if ab == nil {
			return 0, true
		}

		indexOf := make(map[uint32]int, len(snapshot))
		for i, cp := range snapshot {
			indexOf[cp.Number] = i
		}

		if idx, ok := ab.firstBuffered(indexOf); ok {
			return idx, true
		}

		// No buffered piece is tracked by the bucket (every buffered
		// number is outside the tracked range), so insertion order
		// decides.
		return 0, true
	})
}

// SelectByPriority picks the snapshot index whose piece minimizes
// priority, breaking ties by insertion order. It builds a fresh priority
// queue per round since the snapshot itself is already a point-in-time
// copy.
func (s *Selector) SelectByPriority(ctx context.Context, priority func(CollectedPiece) int) (CollectedPiece, bool, error) {
	type ranked struct {
		index int
		score int
	}

	return s.SelectWith(ctx, func(snapshot []CollectedPiece) (int, bool) {
		if len(snapshot) == 0 {
			return 0, false
		}

		pq := queue.New[ranked](func(a, b ranked) bool { return a.score < b.score })
		for i, cp := range snapshot {
			pq.Enqueue(ranked{index: i, score: priority(cp)})
		}

		top, ok := pq.Dequeue()
		if !ok {
			return 0, false
		}

		return top.index, true
	})
}

// EnsureAvailabilityTracking prepares the rarest-first bucket for a task
// with the given total piece count and the maximum availability worth
// distinguishing (typically the expected peer fan-out). Calling it more
// than once is a no-op.
func (s *Selector) EnsureAvailabilityTracking(pieceCount, maxAvail int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.availability != nil {
		return
	}

	s.availability = newAvailabilityBucket(pieceCount, maxAvail)
}

// UpdateAvailability adjusts piece number's recorded availability by delta
// (+1 when a peer announces it, -1 when a peer goes away). It is a no-op
// until EnsureAvailabilityTracking has been called.
func (s *Selector) UpdateAvailability(number uint32, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.availability == nil {
		return
	}

	s.availability.move(int(number), delta)
}

// Len reports how many pieces are currently buffered and unselected.
func (s *Selector) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.buffered)
}
