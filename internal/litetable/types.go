package litetable

import (
	"bytes"
	"errors"
	"time"
)

// DefaultMaxVersions is the number of versions a family retains when none is configured.
const DefaultMaxVersions = 3

// Cell is a single versioned value read back from a table.
type Cell struct {
	Family    string `json:"family"`
	Qualifier []byte `json:"qualifier"`
	Timestamp int64  `json:"timestamp"`
	Value     []byte `json:"value"`
}

// Row defines a row of data in LiteTable as a flat list of cells:
//
// Example:
//
//	Row{
//	  Key: []byte("row1"),
//	  Cells: []Cell{
//	    {Family: "family1", Qualifier: []byte("q1"), Timestamp: 20, Value: []byte("v2")},
//	    {Family: "family1", Qualifier: []byte("q1"), Timestamp: 10, Value: []byte("v1")},
//	    {Family: "family2", Qualifier: []byte("q1"), Timestamp: 10, Value: []byte("v3")},
//	  },
//	}
//
// Cells are ordered by family, then qualifier, then newest timestamp first.
type Row struct {
	Key   []byte `json:"key"`
	Cells []Cell `json:"cells"`
}

// IsEmpty reports whether the row has no visible cells.
func (r *Row) IsEmpty() bool {
	return r == nil || len(r.Cells) == 0
}

// Latest returns the newest value stored at family:qualifier.
func (r *Row) Latest(family string, qualifier []byte) ([]byte, bool) {
	if r == nil {
		return nil, false
	}
	// cells are sorted newest first within a column, so the first hit wins
	for _, c := range r.Cells {
		if c.Family == family && bytes.Equal(c.Qualifier, qualifier) {
			return c.Value, true
		}
	}
	return nil, false
}

// Families returns the distinct families present in the row, in row order.
func (r *Row) Families() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, c := range r.Cells {
		if len(out) == 0 || out[len(out)-1] != c.Family {
			out = append(out, c.Family)
		}
	}
	return out
}

// FamilyOptions is the retention policy of a column family.
type FamilyOptions struct {
	// MaxVersions is the number of versions kept per column. Zero means DefaultMaxVersions.
	MaxVersions int `json:"maxVersions"`
	// TTL hides cells whose timestamp is older than now-TTL. Zero keeps cells forever.
	TTL time.Duration `json:"ttl"`
}

// Versions returns the effective version limit.
func (o FamilyOptions) Versions() int {
	if o.MaxVersions <= 0 {
		return DefaultMaxVersions
	}
	return o.MaxVersions
}

// Put is a single cell write inside a row batch. A zero Timestamp asks the table to assign one.
type Put struct {
	Family    string
	Qualifier []byte
	Value     []byte
	Timestamp int64
}

// Column names a family, or a single qualifier in it when Qualifier is non-nil.
type Column struct {
	Family    string
	Qualifier []byte
}

// Filter restricts what a read returns.
type Filter struct {
	// Columns limits the result to the listed families/qualifiers. Empty means everything.
	Columns []Column
	// MaxVersions is the number of versions returned per column. Zero means 1.
	MaxVersions int
}

// Versions returns the effective version count of the filter.
func (f *Filter) Versions() int {
	if f == nil || f.MaxVersions <= 0 {
		return 1
	}
	return f.MaxVersions
}

// Rejection describes a record of a batch that was not applied.
type Rejection struct {
	Index     int
	Family    string
	Qualifier []byte
	Err       error
}

// WriteResult reports the outcome of a row batch.
type WriteResult struct {
	Row      []byte
	LSN      uint64
	Applied  []Cell
	Rejected []Rejection
}

// Err joins the errors of every rejected record, or returns nil.
func (w *WriteResult) Err() error {
	if w == nil {
		return nil
	}
	errs := make([]error, 0, len(w.Rejected))
	for _, r := range w.Rejected {
		errs = append(errs, r.Err)
	}
	return errors.Join(errs...)
}
