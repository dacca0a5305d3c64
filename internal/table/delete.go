package table

import (
	"bytes"

	"github.com/litetable/litetable-embedded/internal/litetable"
)

// Delete writes one tombstone to row. A zero scope timestamp means "now", except for version
// deletes, which must name the version they remove.
func (t *Table) Delete(row []byte, scope litetable.Scope) error {
	if err := t.acquire(); err != nil {
		return err
	}
	defer t.lifecycle.RUnlock()

	if len(row) == 0 {
		return litetable.ValidationError("row key cannot be empty")
	}
	if err := t.checkScope(scope); err != nil {
		return err
	}

	unlock := t.rows.lock(row)
	defer unlock()

	ts := scope.Timestamp
	if ts == 0 {
		ts = t.clock.Now()
	} else {
		t.clock.Observe(ts)
	}

	m := litetable.Mutation{
		Kind:      litetable.MutationDelete,
		Scope:     scope.Kind,
		Row:       bytes.Clone(row),
		Timestamp: ts,
	}
	if scope.Kind != litetable.ScopeRow {
		m.Family = scope.Family
	}
	if scope.Kind == litetable.ScopeColumn || scope.Kind == litetable.ScopeVersion {
		m.Qualifier = qualifierOf(scope.Qualifier)
	}

	_, err := t.commit(m.Row, []litetable.Mutation{m})
	return err
}

func (t *Table) checkScope(scope litetable.Scope) error {
	if scope.Timestamp < 0 {
		return litetable.ValidationError("timestamp must be positive, got %d", scope.Timestamp)
	}

	switch scope.Kind {
	case litetable.ScopeRow:
		return nil
	case litetable.ScopeFamily, litetable.ScopeColumn:
		return t.checkFamily(t.familySnapshot(), scope.Family)
	case litetable.ScopeVersion:
		if scope.Timestamp == 0 {
			return litetable.ValidationError("a version delete needs the version timestamp")
		}
		return t.checkFamily(t.familySnapshot(), scope.Family)
	default:
		return litetable.ValidationError("unknown delete scope %s", scope.Kind)
	}
}
