package reorder

import "strconv"

// InsertResult describes what ReorderBuffer.Insert did with an item.
type InsertResult uint8

const (
	// Inserted means the item was stored and will be yielded by a future drain.
	Inserted InsertResult = iota

	// Duplicate means an item with the same sequence number is already buffered, or has already been delivered.
	Duplicate

	// Expired means the slot is held by an undelivered item with a larger sequence number, so the offered item was
	// delivered in an earlier drain. Like Duplicate, the item can be dropped.
	Expired

	// FullBuffer means the sequence number is too far ahead of Next() to be stored without evicting an
	// undelivered item. The item that should fill the gap before it is most likely lost.
	FullBuffer
)

func (r InsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case Duplicate:
		return "duplicate"
	case Expired:
		return "expired"
	case FullBuffer:
		return "full_buffer"
	default:
		return "InsertResult(" + strconv.Itoa(int(r)) + ")"
	}
}

// Err returns the sentinel error matching r, or nil if r is Inserted.
func (r InsertResult) Err() error {
	switch r {
	case Inserted:
		return nil
	case Duplicate:
		return ErrDuplicate
	case Expired:
		return ErrExpired
	case FullBuffer:
		return ErrFullBuffer
	default:
		return ErrUnknownResult
	}
}
