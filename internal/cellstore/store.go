// Package cellstore holds the versioned cells of a table in a single ordered B-tree.
//
// Puts and tombstones live side by side, ordered so that a row's tombstones are met before
// the cells they hide. Reads resolve visibility on the fly; Prune drops what reads would
// never return.
package cellstore

import (
	"bytes"
	"errors"
	"sync"

	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/btree"
)

type Store struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[entry]
}

func New() *Store {
	return &Store{
		tree: btree.NewBTreeG[entry](less),
	}
}

// Apply inserts a batch of mutations. Readers see either none or all of the batch. A batch
// with an invalid mutation is rejected as a whole.
func (s *Store) Apply(mutations []litetable.Mutation) error {
	entries := make([]entry, 0, len(mutations))
	var errs []error
	for _, m := range mutations {
		e, err := fromMutation(m)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, e)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.tree.Set(e)
	}
	return nil
}

// Get returns the visible cells of row. An absent row yields an empty row.
func (s *Store) Get(row []byte, view *View) *litetable.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b := newRowBuilder(view, row)
	s.tree.Ascend(rowPivot(row), func(e entry) bool {
		if !bytes.Equal(e.row, row) {
			return false
		}
		b.add(e)
		return true
	})
	return b.build()
}

// Snapshot returns a copy-on-write view of the current contents. Later writes to the store
// are not visible through it.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Snapshot{tree: s.tree.Copy()}
}

// Prune removes puts that no read can return any more: those hidden by row, family or column
// tombstones, expired by their family TTL at now, or outside the family's version limit.
// Versions hidden by a version tombstone stay while they hold a retention slot. Tombstones
// stay too, since a replayed older put must still be hidden. It returns the number of cells
// removed.
func (s *Store) Prune(families map[string]litetable.FamilyOptions, now int64) int {
	view := &View{Families: families, Now: now}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		doomed []entry
		b      *rowBuilder
	)
	s.tree.Scan(func(e entry) bool {
		if b == nil || !bytes.Equal(b.key, e.row) {
			b = newRowBuilder(view, e.row)
			b.retain, b.collect = true, false
		}
		b.add(e)
		if e.kind == kindPut && !b.retained {
			doomed = append(doomed, e)
		}
		return true
	})

	for _, e := range doomed {
		s.tree.Delete(e)
	}

	if len(doomed) > 0 {
		log.Debug().Int("removed", len(doomed)).Int("remaining", s.tree.Len()).
			Msg("pruned cell store")
	}
	return len(doomed)
}

// Len returns the number of stored entries, tombstones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}
