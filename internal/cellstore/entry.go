package cellstore

import (
	"bytes"
	"math"

	"github.com/litetable/litetable-embedded/internal/litetable"
)

type kind uint8

const (
	kindDeleteRow kind = iota
	kindDeleteFamily
	kindDeleteColumn
	kindDeleteVersion
	kindPut
)

// entry is one item of the tree: a put or a tombstone. Row tombstones use the empty family,
// which sorts ahead of every declared family.
type entry struct {
	row       []byte
	family    string
	qualifier []byte
	ts        int64
	kind      kind
	value     []byte
}

// scopeRank puts row and family tombstones ahead of the columns they cover.
func (e entry) scopeRank() int {
	if e.kind <= kindDeleteFamily {
		return 0
	}
	return 1
}

// kindRank orders entries sharing a timestamp: column delete, version delete, then the put.
func (e entry) kindRank() int {
	switch e.kind {
	case kindDeleteColumn:
		return 0
	case kindDeleteVersion:
		return 1
	case kindPut:
		return 2
	default:
		return 0
	}
}

// less orders by row, family, scope, qualifier, newest timestamp first, then kind. Two
// entries that compare equal address the same cell version and replace each other.
func less(a, b entry) bool {
	if c := bytes.Compare(a.row, b.row); c != 0 {
		return c < 0
	}
	if a.family != b.family {
		return a.family < b.family
	}
	if ra, rb := a.scopeRank(), b.scopeRank(); ra != rb {
		return ra < rb
	}
	if c := bytes.Compare(a.qualifier, b.qualifier); c != 0 {
		return c < 0
	}
	if a.ts != b.ts {
		return a.ts > b.ts
	}
	return a.kindRank() < b.kindRank()
}

// rowPivot sorts before every entry of row.
func rowPivot(row []byte) entry {
	return entry{row: row, kind: kindDeleteRow, ts: math.MaxInt64}
}

func fromMutation(m litetable.Mutation) (entry, error) {
	if len(m.Row) == 0 {
		return entry{}, litetable.ValidationError("row key cannot be empty")
	}
	if m.Timestamp <= 0 {
		return entry{}, litetable.ValidationError("timestamp must be positive, got %d", m.Timestamp)
	}

	e := entry{
		row: bytes.Clone(m.Row),
		ts:  m.Timestamp,
	}

	switch m.Kind {
	case litetable.MutationPut:
		if m.Family == "" {
			return entry{}, litetable.ValidationError("put on row %q has no family", m.Row)
		}
		e.kind = kindPut
		e.family = m.Family
		e.qualifier = cloneQualifier(m.Qualifier)
		e.value = bytes.Clone(m.Value)
	case litetable.MutationDelete:
		switch m.Scope {
		case litetable.ScopeRow:
			e.kind = kindDeleteRow
		case litetable.ScopeFamily:
			e.kind = kindDeleteFamily
			e.family = m.Family
		case litetable.ScopeColumn:
			e.kind = kindDeleteColumn
			e.family = m.Family
			e.qualifier = cloneQualifier(m.Qualifier)
		case litetable.ScopeVersion:
			e.kind = kindDeleteVersion
			e.family = m.Family
			e.qualifier = cloneQualifier(m.Qualifier)
		default:
			return entry{}, litetable.ValidationError("unknown delete scope %s", m.Scope)
		}
		if e.kind != kindDeleteRow && e.family == "" {
			return entry{}, litetable.ValidationError("%s delete on row %q has no family",
				m.Scope, m.Row)
		}
	default:
		return entry{}, litetable.ValidationError("unknown mutation kind %s", m.Kind)
	}

	return e, nil
}

func (e entry) mutation() litetable.Mutation {
	m := litetable.Mutation{
		Row:       e.row,
		Family:    e.family,
		Qualifier: e.qualifier,
		Timestamp: e.ts,
	}
	switch e.kind {
	case kindPut:
		m.Kind = litetable.MutationPut
		m.Value = e.value
	case kindDeleteRow:
		m.Kind, m.Scope = litetable.MutationDelete, litetable.ScopeRow
	case kindDeleteFamily:
		m.Kind, m.Scope = litetable.MutationDelete, litetable.ScopeFamily
	case kindDeleteColumn:
		m.Kind, m.Scope = litetable.MutationDelete, litetable.ScopeColumn
	case kindDeleteVersion:
		m.Kind, m.Scope = litetable.MutationDelete, litetable.ScopeVersion
	}
	return m
}

// cloneQualifier keeps the empty qualifier distinct from "no qualifier" after copying.
func cloneQualifier(q []byte) []byte {
	if q == nil {
		return []byte{}
	}
	return bytes.Clone(q)
}
