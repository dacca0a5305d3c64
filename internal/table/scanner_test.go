package table

import (
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/stretchr/testify/require"
)

// scanKeys drains a scanner and returns the row keys it produced.
func scanKeys(t *testing.T, sc *Scanner) []string {
	t.Helper()
	var keys []string
	for {
		row, err := sc.Next()
		if errors.Is(err, litetable.ErrDone) {
			return keys
		}
		require.NoError(t, err)
		require.False(t, row.IsEmpty())
		keys = append(keys, string(row.Key))
	}
}

// dumpTable renders every visible version of every row.
func dumpTable(t *testing.T, tbl *Table) []string {
	t.Helper()
	sc, err := tbl.Scan(&ScanOptions{Filter: &litetable.Filter{MaxVersions: 100}})
	require.NoError(t, err)
	defer sc.Close()

	var out []string
	for {
		row, err := sc.Next()
		if errors.Is(err, litetable.ErrDone) {
			return out
		}
		require.NoError(t, err)
		for _, c := range row.Cells {
			out = append(out, fmt.Sprintf("%s/%s:%s@%d=%s", row.Key, c.Family, c.Qualifier,
				c.Timestamp, c.Value))
		}
	}
}

func loadEmployees(t *testing.T, tbl *Table, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		id := strconv.Itoa(i)
		putEmployee(t, tbl, id, "emp"+id, strconv.Itoa(10*(1+i%3)), strconv.Itoa(1000*i))
	}
}

func TestTable_Scan(t *testing.T) {
	t.Parallel()
	tbl, _ := newEmpTable(t)
	t.Cleanup(func() { _ = tbl.Close() })
	loadEmployees(t, tbl, 10)
	require.NoError(t, tbl.Delete([]byte("8"), litetable.DeleteRow()))

	tests := map[string]struct {
		opts *ScanOptions
		want []string
	}{
		"full range skips the deleted row": {
			want: []string{"1", "10", "2", "3", "4", "5", "6", "7", "9"},
		},
		"start inclusive stop exclusive": {
			opts: &ScanOptions{Start: []byte("3"), Stop: []byte("6")},
			want: []string{"3", "4", "5"},
		},
		"open start": {
			opts: &ScanOptions{Stop: []byte("2")},
			want: []string{"1", "10"},
		},
		"open stop": {
			opts: &ScanOptions{Start: []byte("7")},
			want: []string{"7", "9"},
		},
		"family filter": {
			opts: &ScanOptions{Start: []byte("9"), Filter: &litetable.Filter{
				Columns: []litetable.Column{{Family: personal}},
			}},
			want: []string{"9"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			sc, err := tbl.Scan(tc.opts)
			require.NoError(t, err)
			defer sc.Close()
			require.Equal(t, tc.want, scanKeys(t, sc))

			// exhausted scanners stay exhausted
			_, err = sc.Next()
			require.ErrorIs(t, err, litetable.ErrDone)
		})
	}
}

func TestTable_ScanFilterCells(t *testing.T) {
	t.Parallel()
	tbl, _ := newEmpTable(t)
	defer tbl.Close()
	loadEmployees(t, tbl, 2)

	sc, err := tbl.Scan(&ScanOptions{Filter: &litetable.Filter{
		Columns: []litetable.Column{{Family: empDetails, Qualifier: salary}},
	}})
	require.NoError(t, err)
	defer sc.Close()

	row, err := sc.Next()
	require.NoError(t, err)
	require.Equal(t, []string{"EMP_DETAILS:SALARY=1000"}, cellStrings(row))

	_, err = tbl.Scan(&ScanOptions{Filter: &litetable.Filter{
		Columns: []litetable.Column{{Family: "UNKNOWN"}},
	}})
	require.ErrorIs(t, err, litetable.ErrSchema)
}

func TestTable_ScanSnapshotIsolation(t *testing.T) {
	t.Parallel()
	tbl, _ := newEmpTable(t)
	defer tbl.Close()
	loadEmployees(t, tbl, 3)

	sc, err := tbl.Scan(nil)
	require.NoError(t, err)
	defer sc.Close()

	first, err := sc.Next()
	require.NoError(t, err)
	require.Equal(t, "1", string(first.Key))

	// writes after open are invisible to the scanner, but not to Get
	putEmployee(t, tbl, "15", "late", "10", "1")
	_, err = tbl.Put([]byte("2"), litetable.Put{Family: empDetails, Qualifier: salary,
		Value: []byte("999999")})
	require.NoError(t, err)
	require.NoError(t, tbl.Delete([]byte("3"), litetable.DeleteRow()))

	var rest []*litetable.Row
	for {
		row, err := sc.Next()
		if errors.Is(err, litetable.ErrDone) {
			break
		}
		require.NoError(t, err)
		rest = append(rest, row)
	}
	require.Len(t, rest, 2)
	require.Equal(t, "2", string(rest[0].Key))
	pay, ok := rest[0].Latest(empDetails, salary)
	require.True(t, ok)
	require.Equal(t, "2000", string(pay))
	require.Equal(t, "3", string(rest[1].Key))

	row, err := tbl.Get([]byte("2"), nil)
	require.NoError(t, err)
	pay, _ = row.Latest(empDetails, salary)
	require.Equal(t, "999999", string(pay))

	// a new scan sees the current state
	sc2, err := tbl.Scan(nil)
	require.NoError(t, err)
	defer sc2.Close()
	require.Equal(t, []string{"1", "15", "2"}, scanKeys(t, sc2))
}

func TestScanner_Close(t *testing.T) {
	t.Parallel()
	tbl, _ := newEmpTable(t)
	defer tbl.Close()
	loadEmployees(t, tbl, 2)

	sc, err := tbl.Scan(nil)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.scanners.len())

	sc.Close()
	sc.Close()
	require.Zero(t, tbl.scanners.len())

	_, err = sc.Next()
	require.ErrorIs(t, err, litetable.ErrClosed)
}
