package table

import (
	"bytes"
	"errors"

	"github.com/litetable/litetable-embedded/internal/changefeed"
	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/litetable/litetable-embedded/internal/wal"
)

// Put writes a batch of cells to one row.
//
// Records naming an unknown family or carrying a negative timestamp are rejected one by one
// and reported in the result; the rest of the batch is logged as a single entry and applied.
// A failure to log aborts the whole batch and leaves the table unchanged. Cells without a
// timestamp share one timestamp assigned by the table.
func (t *Table) Put(row []byte, puts ...litetable.Put) (*litetable.WriteResult, error) {
	if err := t.acquire(); err != nil {
		return nil, err
	}
	defer t.lifecycle.RUnlock()

	if len(row) == 0 {
		return nil, litetable.ValidationError("row key cannot be empty")
	}

	result := &litetable.WriteResult{Row: bytes.Clone(row)}
	families := t.familySnapshot()

	accepted := make([]litetable.Put, 0, len(puts))
	for i, p := range puts {
		if err := t.checkPut(families, p); err != nil {
			result.Rejected = append(result.Rejected, litetable.Rejection{
				Index:     i,
				Family:    p.Family,
				Qualifier: p.Qualifier,
				Err:       err,
			})
			continue
		}
		accepted = append(accepted, p)
	}
	if len(accepted) == 0 {
		return result, nil
	}

	unlock := t.rows.lock(row)
	defer unlock()

	var now int64
	mutations := make([]litetable.Mutation, 0, len(accepted))
	for _, p := range accepted {
		ts := p.Timestamp
		if ts == 0 {
			if now == 0 {
				now = t.clock.Now()
			}
			ts = now
		} else {
			t.clock.Observe(ts)
		}
		mutations = append(mutations, litetable.Mutation{
			Kind:      litetable.MutationPut,
			Row:       result.Row,
			Family:    p.Family,
			Qualifier: qualifierOf(p.Qualifier),
			Timestamp: ts,
			Value:     bytes.Clone(p.Value),
		})
	}

	lsn, err := t.commit(result.Row, mutations)
	if err != nil {
		return nil, err
	}

	result.LSN = lsn
	result.Applied = make([]litetable.Cell, 0, len(mutations))
	for _, m := range mutations {
		result.Applied = append(result.Applied, litetable.Cell{
			Family:    m.Family,
			Qualifier: m.Qualifier,
			Timestamp: m.Timestamp,
			Value:     m.Value,
		})
	}
	return result, nil
}

func (t *Table) checkPut(families map[string]litetable.FamilyOptions, p litetable.Put) error {
	if err := t.checkFamily(families, p.Family); err != nil {
		return err
	}
	if p.Timestamp < 0 {
		return litetable.ValidationError("timestamp must be positive, got %d", p.Timestamp)
	}
	return nil
}

// commit logs a batch for row and then applies it. The caller holds the row lock, so per row
// the log order is the apply order.
func (t *Table) commit(row []byte, mutations []litetable.Mutation) (uint64, error) {
	entry := &wal.Entry{Mutations: mutations}
	if err := t.log.Append(entry); err != nil {
		if errors.Is(err, litetable.ErrIO) {
			return 0, err
		}
		return 0, litetable.IOError(err, "failed to append to the mutation log of %s", t.name)
	}

	if err := t.store.Apply(mutations); err != nil {
		return 0, err
	}

	if t.feed != nil {
		t.feed.Publish(&changefeed.Event{
			Table:     t.name,
			LSN:       entry.LSN,
			Row:       row,
			Mutations: mutations,
		})
	}
	return entry.LSN, nil
}

// qualifierOf keeps an omitted qualifier and the empty qualifier the same cell.
func qualifierOf(q []byte) []byte {
	if q == nil {
		return []byte{}
	}
	return bytes.Clone(q)
}
