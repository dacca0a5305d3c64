package litetable

import (
	"fmt"
)

// MutationKind is the operation recorded for a mutation.
type MutationKind uint8

const (
	MutationUnknown MutationKind = iota
	MutationPut
	MutationDelete
)

func (k MutationKind) String() string {
	switch k {
	case MutationPut:
		return "put"
	case MutationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// MarshalText keeps the log format readable and independent of the constant values.
func (k MutationKind) MarshalText() ([]byte, error) {
	if k != MutationPut && k != MutationDelete {
		return nil, fmt.Errorf("cannot encode mutation kind %d", k)
	}
	return []byte(k.String()), nil
}

func (k *MutationKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "put":
		*k = MutationPut
	case "delete":
		*k = MutationDelete
	default:
		return fmt.Errorf("unknown mutation kind: %q", b)
	}
	return nil
}

// ScopeKind is the granularity of a delete.
type ScopeKind uint8

const (
	// ScopeRow hides every cell of the row at or before the timestamp.
	ScopeRow ScopeKind = iota
	// ScopeFamily hides every cell of the row's family at or before the timestamp.
	ScopeFamily
	// ScopeColumn hides every version of a qualifier at or before the timestamp.
	ScopeColumn
	// ScopeVersion hides the single version written exactly at the timestamp.
	ScopeVersion
)

func (s ScopeKind) String() string {
	switch s {
	case ScopeRow:
		return "row"
	case ScopeFamily:
		return "family"
	case ScopeColumn:
		return "column"
	case ScopeVersion:
		return "version"
	default:
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
}

func (s ScopeKind) MarshalText() ([]byte, error) {
	if s > ScopeVersion {
		return nil, fmt.Errorf("cannot encode scope %d", s)
	}
	return []byte(s.String()), nil
}

func (s *ScopeKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "row":
		*s = ScopeRow
	case "family":
		*s = ScopeFamily
	case "column":
		*s = ScopeColumn
	case "version":
		*s = ScopeVersion
	default:
		return fmt.Errorf("unknown delete scope: %q", b)
	}
	return nil
}

// Scope describes what a delete covers. A zero Timestamp means "now".
type Scope struct {
	Kind      ScopeKind
	Family    string
	Qualifier []byte
	Timestamp int64
}

func DeleteRow() Scope {
	return Scope{Kind: ScopeRow}
}

func DeleteFamily(family string) Scope {
	return Scope{Kind: ScopeFamily, Family: family}
}

func DeleteColumn(family string, qualifier []byte) Scope {
	return Scope{Kind: ScopeColumn, Family: family, Qualifier: qualifier}
}

// DeleteVersion needs an explicit timestamp since it only matches that exact version.
func DeleteVersion(family string, qualifier []byte, timestamp int64) Scope {
	return Scope{Kind: ScopeVersion, Family: family, Qualifier: qualifier, Timestamp: timestamp}
}

// At returns a copy of the scope effective at ts.
func (s Scope) At(ts int64) Scope {
	s.Timestamp = ts
	return s
}

// Mutation is a resolved put or delete as recorded in the mutation log and applied to the
// cell store. Timestamps are always assigned by the time a Mutation exists.
type Mutation struct {
	Kind      MutationKind `json:"kind"`
	Scope     ScopeKind    `json:"scope,omitempty"`
	Row       []byte       `json:"row"`
	Family    string       `json:"family,omitempty"`
	Qualifier []byte       `json:"qualifier,omitempty"`
	Timestamp int64        `json:"ts"`
	Value     []byte       `json:"value,omitempty"`
}

func (m Mutation) String() string {
	if m.Kind == MutationDelete {
		return fmt.Sprintf("delete %s row=%q family=%q qualifier=%q ts=%d",
			m.Scope, m.Row, m.Family, m.Qualifier, m.Timestamp)
	}
	return fmt.Sprintf("%s row=%q family=%q qualifier=%q ts=%d", m.Kind, m.Row, m.Family,
		m.Qualifier, m.Timestamp)
}
