package table

import (
	"sync"

	"github.com/google/uuid"
	"github.com/litetable/litetable-embedded/internal/cellstore"
	"github.com/litetable/litetable-embedded/internal/litetable"
)

// ScanOptions bound a scan to [Start, Stop). A nil bound is open.
type ScanOptions struct {
	Start  []byte
	Stop   []byte
	Filter *litetable.Filter
}

// Scanner walks the rows of a snapshot taken when the scan was opened. Writes made after that
// point are never observed.
type Scanner struct {
	id       uuid.UUID
	mu       sync.Mutex
	it       *cellstore.RowIterator
	closed   bool
	registry *registry
}

// Scan opens a scanner. Scanners left open are closed by Close.
func (t *Table) Scan(opts *ScanOptions) (*Scanner, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.lifecycle.RUnlock()

	if opts == nil {
		opts = &ScanOptions{}
	}

	families := t.familySnapshot()
	if err := t.checkFilter(families, opts.Filter); err != nil {
		return nil, err
	}

	s := &Scanner{
		id:       uuid.New(),
		it:       t.store.Snapshot().Rows(opts.Start, opts.Stop, cellstore.NewView(opts.Filter, families)),
		registry: t.scanners,
	}
	t.scanners.add(s)
	return s, nil
}

func (s *Scanner) ID() uuid.UUID {
	return s.id
}

// Next returns the next row with at least one visible cell. It returns litetable.ErrDone once
// the range is exhausted and a closed error after Close.
func (s *Scanner) Next() (*litetable.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, litetable.ClosedError("scanner %s", s.id)
	}
	row, ok := s.it.Next()
	if !ok {
		return nil, litetable.ErrDone
	}
	return row, nil
}

// Close releases the snapshot. It is safe to call more than once.
func (s *Scanner) Close() {
	if s.close() {
		s.registry.remove(s.id)
	}
}

func (s *Scanner) close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	s.it.Close()
	return true
}

// registry tracks the open scanners of a table.
type registry struct {
	mu       sync.Mutex
	scanners map[uuid.UUID]*Scanner
}

func newRegistry() *registry {
	return &registry{scanners: make(map[uuid.UUID]*Scanner)}
}

func (r *registry) add(s *Scanner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanners[s.id] = s
}

func (r *registry) remove(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scanners, id)
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.scanners)
}

// closeAll closes every registered scanner and returns how many there were.
func (r *registry) closeAll() int {
	r.mu.Lock()
	open := make([]*Scanner, 0, len(r.scanners))
	for id, s := range r.scanners {
		open = append(open, s)
		delete(r.scanners, id)
	}
	r.mu.Unlock()

	for _, s := range open {
		s.close()
	}
	return len(open)
}
