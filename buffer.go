package reorder

import (
	"iter"
	"math"
)

type slot[T any] struct {
	seq  uint64
	item T
	used bool
}

// ReorderBuffer releases items tagged with a monotonically increasing sequence number strictly in sequence order,
// holding at most Cap() out-of-order items at a time. Slots are addressed by seq % Cap().
//
// A ReorderBuffer is not safe for concurrent use.
type ReorderBuffer[T any] struct {
	slots []slot[T]

	next uint64 // lowest sequence number not yet delivered
	read int    // index of the slot holding next

	size int
}

// NewReorderBuffer returns an empty buffer able to hold cap items. It panics if cap is not positive.
func NewReorderBuffer[T any](cap int) *ReorderBuffer[T] {
	if cap <= 0 {
		panic("reorder: reorder buffer capacity must be positive")
	}

	return &ReorderBuffer[T]{slots: make([]slot[T], cap)}
}

// Insert stores item under seq so that it may later be drained. Anything other than Inserted leaves the buffer
// untouched, and item is not retained.
func (b *ReorderBuffer[T]) Insert(seq uint64, item T) InsertResult {
	s := &b.slots[seq%uint64(len(b.slots))]

	// The slot is still held by an undelivered item. Either we received that exact item again, or an item that
	// wrapped all the way around the ring onto it.

	if s.used {
		switch {
		case seq < s.seq:
			return Expired
		case seq == s.seq:
			return Duplicate
		default:
			return FullBuffer
		}
	}

	if seq < b.next {
		return Duplicate
	}

	if !inWindow(seq, b.next, len(b.slots)) {
		return FullBuffer
	}

	s.seq, s.item, s.used = seq, item, true
	b.size++

	return Inserted
}

// Pop removes and returns the item with sequence number Next(), if it has arrived.
func (b *ReorderBuffer[T]) Pop() (item T, ok bool) {
	s := &b.slots[b.read]
	if !s.used {
		return item, false
	}

	item, b.next = s.item, s.seq+1
	*s = slot[T]{}

	b.read = (b.read + 1) % len(b.slots)
	b.size--

	return item, true
}

// Drain yields the longest contiguous run of items starting at Next(), removing each one from the buffer as it is
// yielded. Breaking out early is safe: a later call to Drain picks up where the last one stopped.
func (b *ReorderBuffer[T]) Drain() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			item, ok := b.Pop()
			if !ok || !yield(item) {
				return
			}
		}
	}
}

// Reset empties the buffer and rewinds it to sequence number 0.
func (b *ReorderBuffer[T]) Reset() {
	clear(b.slots)

	b.next = 0
	b.read = 0
	b.size = 0
}

// Next returns the lowest sequence number that has not yet been delivered.
func (b *ReorderBuffer[T]) Next() uint64 {
	return b.next
}

// Cap returns the number of slots in the buffer.
func (b *ReorderBuffer[T]) Cap() int {
	return len(b.slots)
}

// Len returns the number of items waiting in the buffer.
func (b *ReorderBuffer[T]) Len() int {
	return b.size
}

// Window returns the half-open range [lo, hi) of sequence numbers the buffer currently accepts. hi saturates at
// math.MaxUint64.
func (b *ReorderBuffer[T]) Window() (lo, hi uint64) {
	lo, hi = b.next, b.next+uint64(len(b.slots))
	if hi < lo {
		hi = math.MaxUint64
	}
	return lo, hi
}
