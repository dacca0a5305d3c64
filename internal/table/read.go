package table

import (
	"github.com/litetable/litetable-embedded/internal/cellstore"
	"github.com/litetable/litetable-embedded/internal/litetable"
)

// Get returns the latest committed cells of row that match filter. A row without visible
// cells comes back empty rather than as an error.
func (t *Table) Get(row []byte, filter *litetable.Filter) (*litetable.Row, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.lifecycle.RUnlock()

	if len(row) == 0 {
		return nil, litetable.ValidationError("row key cannot be empty")
	}

	families := t.familySnapshot()
	if err := t.checkFilter(families, filter); err != nil {
		return nil, err
	}

	return t.store.Get(row, cellstore.NewView(filter, families)), nil
}
