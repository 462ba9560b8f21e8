package selector

import "math/bits"

// availabilityBucket tracks which pieces belong to each availability level
// (how many known peers currently have that piece), so SelectRarest can
// find the least-available piece without scanning every piece on each
// call.
//
// Pieces live in a dense per-level slice ("bucket"); moving a piece between
// levels is a swap-remove from the old bucket and an append to the new
// one, and pos[] records each piece's slot for O(1) removal. A bitmap of
// non-empty buckets lets firstNonEmpty and SelectRarest skip empty levels
// in O(1)-O(64).
type availabilityBucket struct {
	buckets  [][]int
	avail    []int
	pos      []int
	maxAvail int
	nonEmpty []uint64
}

func newAvailabilityBucket(pieceCount, maxAvail int) *availabilityBucket {
	if maxAvail < 0 {
		maxAvail = 0
	}

	b := &availabilityBucket{
		maxAvail: maxAvail,
		buckets:  make([][]int, maxAvail+1),
		avail:    make([]int, pieceCount),
		pos:      make([]int, pieceCount),
		nonEmpty: make([]uint64, (maxAvail+64)/64),
	}

	b.buckets[0] = make([]int, pieceCount)
	for i := 0; i < pieceCount; i++ {
		b.buckets[0][i] = i
		b.pos[i] = i
	}
	if pieceCount > 0 {
		b.setBit(0)
	}

	return b
}

// move adjusts piece i's availability by delta, clamped to [0, maxAvail],
// and relocates it between buckets accordingly.
func (b *availabilityBucket) move(i, delta int) {
	if i < 0 || i >= len(b.avail) {
		return
	}

	oldAvail := b.avail[i]
	newAvail := oldAvail + delta
	if newAvail < 0 {
		newAvail = 0
	} else if newAvail > b.maxAvail {
		newAvail = b.maxAvail
	}
	if newAvail == oldAvail {
		return
	}

	ob := b.buckets[oldAvail]
	p := b.pos[i]
	last := len(ob) - 1
	ob[p] = ob[last]
	b.pos[ob[p]] = p
	ob = ob[:last]
	b.buckets[oldAvail] = ob
	if len(ob) == 0 {
		b.clearBit(oldAvail)
	}

	nb := append(b.buckets[newAvail], i)
	b.pos[i] = len(nb) - 1
	b.buckets[newAvail] = nb
	b.setBit(newAvail)

	b.avail[i] = newAvail
}

// availabilityOf returns piece i's recorded availability, or 0 if i is out
// of range (a piece never reported is treated as unseen, i.e. rarest).
func (b *availabilityBucket) availabilityOf(i uint32) int {
	idx := int(i)
	if idx < 0 || idx >= len(b.avail) {
		return 0
	}

	return b.avail[idx]
}

// firstNonEmpty returns the smallest availability level with at least one
// piece still in it.
func (b *availabilityBucket) firstNonEmpty() (int, bool) {
	return b.firstNonEmptyFrom(0)
}

// firstNonEmptyFrom returns the smallest non-empty availability level >=
// start, letting callers resume a scan past a level already inspected.
func (b *availabilityBucket) firstNonEmptyFrom(start int) (int, bool) {
	if start < 0 {
		start = 0
	}

	w := start >> 6
	if w >= len(b.nonEmpty) {
		return 0, false
	}

	if masked := b.nonEmpty[w] &^ (1<<uint(start&63) - 1); masked != 0 {
		return w<<6 + bits.TrailingZeros64(masked), true
	}

	for w++; w < len(b.nonEmpty); w++ {
		if x := b.nonEmpty[w]; x != 0 {
			return w<<6 + bits.TrailingZeros64(x), true
		}
	}

	return 0, false
}

// firstBuffered walks availability levels from rarest to most common,
// returning the snapshot index of the first piece in indexOf it finds.
// This is the production use of the non-empty bitmap: it lets SelectRarest
// skip whole levels with no buffered pieces instead of scanning the
// snapshot against every piece's recorded availability.
func (b *availabilityBucket) firstBuffered(indexOf map[uint32]int) (int, bool) {
	level, ok := b.firstNonEmpty()
	for ok {
		for _, number := range b.buckets[level] {
			if idx, present := indexOf[uint32(number)]; present {
				return idx, true
			}
		}

		level, ok = b.firstNonEmptyFrom(level + 1)
	}

	return 0, false
}

func (b *availabilityBucket) setBit(a int) {
	w, bit := a>>6, uint(a&63)
	b.nonEmpty[w] |= 1 << bit
}

func (b *availabilityBucket) clearBit(a int) {
	w, bit := a>>6, uint(a&63)
	if len(b.buckets[a]) == 0 {
		b.nonEmpty[w] &^= 1 << bit
	}
}
