package cellstore

import (
	"bytes"
	"iter"
	"sync"

	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/tidwall/btree"
)

// Snapshot is an immutable copy of the store taken at a point in time.
type Snapshot struct {
	tree *btree.BTreeG[entry]
}

// Rows iterates the visible rows in [start, stop). A nil bound is unbounded.
func (s *Snapshot) Rows(start, stop []byte, view *View) *RowIterator {
	it := s.tree.Iter()
	var valid bool
	if start != nil {
		valid = it.Seek(rowPivot(start))
	} else {
		valid = it.First()
	}
	return &RowIterator{
		it:    it,
		valid: valid,
		view:  view,
		stop:  bytes.Clone(stop),
	}
}

// Mutations yields the raw contents, puts and tombstones, in store order. Applying them to an
// empty store reproduces this snapshot.
func (s *Snapshot) Mutations() iter.Seq[litetable.Mutation] {
	return func(yield func(litetable.Mutation) bool) {
		s.tree.Scan(func(e entry) bool {
			return yield(e.mutation())
		})
	}
}

// Len returns the number of entries in the snapshot.
func (s *Snapshot) Len() int {
	return s.tree.Len()
}

// RowIterator produces one row at a time from a snapshot. It is safe to Close it from another
// goroutine than the one calling Next.
type RowIterator struct {
	mu     sync.Mutex
	it     btree.IterG[entry]
	valid  bool // it is positioned on an unconsumed entry
	closed bool

	view *View
	stop []byte
}

// Next returns the next row with at least one visible cell, or false once the range is
// exhausted or the iterator is closed.
func (r *RowIterator) Next() (*litetable.Row, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for !r.closed && r.valid {
		key := r.it.Item().row
		if r.stop != nil && bytes.Compare(key, r.stop) >= 0 {
			break
		}

		b := newRowBuilder(r.view, key)
		for r.valid && bytes.Equal(r.it.Item().row, key) {
			b.add(r.it.Item())
			r.valid = r.it.Next()
		}
		if row := b.build(); !row.IsEmpty() {
			return row, true
		}
	}

	r.release()
	return nil, false
}

// Close releases the iterator. It is safe to call more than once.
func (r *RowIterator) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.release()
}

func (r *RowIterator) release() {
	if r.closed {
		return
	}
	r.closed = true
	r.valid = false
	r.it.Release()
}
