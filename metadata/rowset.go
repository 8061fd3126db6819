package metadata

import (
	"iter"

	"github.com/RoaringBitmap/roaring/v2"
)

// RowSet is a set of index row positions.
// It wraps a 32-bit Roaring Bitmap; iteration yields rows in ascending order,
// which keeps selections aligned with metadata order.
type RowSet struct {
	rb *roaring.Bitmap
}

// NewRowSet creates a new empty row set.
func NewRowSet() *RowSet {
	return &RowSet{rb: roaring.New()}
}

// Add adds a row position to the set.
func (s *RowSet) Add(row uint32) {
	s.rb.Add(row)
}

// Contains checks if a row position is in the set.
func (s *RowSet) Contains(row uint32) bool {
	return s.rb.Contains(row)
}

// IsEmpty returns true if the set is empty.
func (s *RowSet) IsEmpty() bool {
	return s.rb.IsEmpty()
}

// Cardinality returns the number of rows in the set.
func (s *RowSet) Cardinality() uint64 {
	return s.rb.GetCardinality()
}

// Complement returns the rows in [0, n) that are not in the set.
func (s *RowSet) Complement(n uint64) *RowSet {
	return &RowSet{rb: roaring.Flip(s.rb, 0, n)}
}

// Iterator returns an iterator over the set in ascending row order.
func (s *RowSet) Iterator() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		it := s.rb.Iterator()
		for it.HasNext() {
			if !yield(it.Next()) {
				return
			}
		}
	}
}
