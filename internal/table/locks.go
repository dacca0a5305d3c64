package table

import (
	"hash/fnv"
	"sync"
)

// rowLocks hashes row keys onto a fixed set of mutexes. Two rows may share a stripe, which only
// costs some parallelism.
type rowLocks struct {
	stripes []sync.Mutex
}

func newRowLocks(n int) *rowLocks {
	return &rowLocks{stripes: make([]sync.Mutex, n)}
}

// index uses FNV-1a for distributing keys
func (l *rowLocks) index(row []byte) int {
	h := fnv.New32a()
	_, _ = h.Write(row)
	return int(h.Sum32() % uint32(len(l.stripes)))
}

// lock takes the stripe of row and returns its unlock function.
func (l *rowLocks) lock(row []byte) func() {
	mu := &l.stripes[l.index(row)]
	mu.Lock()
	return mu.Unlock
}
