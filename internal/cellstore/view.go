package cellstore

import (
	"bytes"
	"time"

	"github.com/litetable/litetable-embedded/internal/litetable"
)

// View decides which cells a read returns.
type View struct {
	Filter *litetable.Filter
	// Families holds the retention options of each family. Families missing from the map
	// use the defaults.
	Families map[string]litetable.FamilyOptions
	// Now is the read time in unix nanoseconds, used to expire cells by TTL.
	Now int64
}

// NewView builds a view reading at the current time.
func NewView(filter *litetable.Filter, families map[string]litetable.FamilyOptions) *View {
	return &View{Filter: filter, Families: families, Now: time.Now().UnixNano()}
}

func (v *View) options(family string) litetable.FamilyOptions {
	if v == nil || v.Families == nil {
		return litetable.FamilyOptions{}
	}
	return v.Families[family]
}

func (v *View) matches(family string, qualifier []byte) bool {
	if v == nil || v.Filter == nil || len(v.Filter.Columns) == 0 {
		return true
	}
	for _, c := range v.Filter.Columns {
		if c.Family != family {
			continue
		}
		if c.Qualifier == nil || bytes.Equal(c.Qualifier, qualifier) {
			return true
		}
	}
	return false
}

func (v *View) expired(opts litetable.FamilyOptions, ts int64) bool {
	if opts.TTL <= 0 || v == nil {
		return false
	}
	return ts <= v.Now-int64(opts.TTL)
}

// rowBuilder walks the entries of one row in tree order and decides which puts are visible.
//
// Tombstones always precede the puts they can hide, so a single pass is enough: row
// tombstones come first, family tombstones lead their family, and within a column the walk
// runs newest to oldest.
type rowBuilder struct {
	view *View
	key  []byte

	// retain counts versions against the family limit only and ignores the filter.
	retain  bool
	collect bool
	cells   []litetable.Cell

	rowDel int64

	inFamily bool
	family   string
	opts     litetable.FamilyOptions
	famDel   int64

	inColumn  bool
	qualifier []byte
	match     bool
	// slots counts the versions held against the family limit. A version hidden by a version
	// tombstone keeps its slot, so deleting the newest version never brings back one that
	// compaction may already have dropped.
	slots      int
	keep       int
	limit      int
	count      int
	colDel     int64
	versionDel int64

	// retained is set by add when the last put still holds a retention slot.
	retained bool
}

func newRowBuilder(view *View, key []byte) *rowBuilder {
	return &rowBuilder{view: view, key: key, collect: true}
}

// add consumes the next entry of the row and reports whether it is a visible put.
func (b *rowBuilder) add(e entry) bool {
	if e.kind == kindDeleteRow {
		b.rowDel = max(b.rowDel, e.ts)
		return false
	}

	if !b.inFamily || e.family != b.family {
		b.inFamily = true
		b.family = e.family
		b.opts = b.view.options(e.family)
		b.famDel = b.rowDel
		b.inColumn = false
	}
	if e.kind == kindDeleteFamily {
		b.famDel = max(b.famDel, e.ts)
		return false
	}

	if !b.inColumn || !bytes.Equal(e.qualifier, b.qualifier) {
		b.inColumn = true
		b.qualifier = e.qualifier
		b.colDel = b.famDel
		b.versionDel = 0
		b.slots = 0
		b.count = 0
		b.keep = b.opts.Versions()
		if b.retain {
			b.match = true
			b.limit = b.keep
		} else {
			b.match = b.view.matches(e.family, e.qualifier)
			b.limit = b.view.filter().Versions()
		}
	}

	b.retained = false
	switch e.kind {
	case kindDeleteColumn:
		b.colDel = max(b.colDel, e.ts)
		return false
	case kindDeleteVersion:
		b.versionDel = e.ts
		return false
	}

	if e.ts <= b.colDel || b.view.expired(b.opts, e.ts) {
		return false
	}
	if b.slots >= b.keep {
		return false
	}
	b.slots++
	b.retained = true

	if e.ts == b.versionDel {
		return false
	}
	if !b.match || b.count >= b.limit {
		return false
	}

	b.count++
	if b.collect {
		b.cells = append(b.cells, litetable.Cell{
			Family:    e.family,
			Qualifier: bytes.Clone(e.qualifier),
			Timestamp: e.ts,
			Value:     bytes.Clone(e.value),
		})
	}
	return true
}

func (b *rowBuilder) build() *litetable.Row {
	return &litetable.Row{Key: bytes.Clone(b.key), Cells: b.cells}
}

func (v *View) filter() *litetable.Filter {
	if v == nil {
		return nil
	}
	return v.Filter
}
