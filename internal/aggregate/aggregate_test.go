package aggregate

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/stretchr/testify/require"
)

const family = "EMP_DETAILS"

var (
	deptNo = []byte("DEPT_NO")
	salary = []byte("SALARY")
)

type sliceSource struct {
	rows []*litetable.Row
	err  error
}

func (s *sliceSource) Next() (*litetable.Row, error) {
	if len(s.rows) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, litetable.ErrDone
	}
	row := s.rows[0]
	s.rows = s.rows[1:]
	return row, nil
}

func employee(key, dept, pay string) *litetable.Row {
	row := &litetable.Row{Key: []byte(key)}
	if dept != "" {
		row.Cells = append(row.Cells, litetable.Cell{Family: family, Qualifier: deptNo,
			Timestamp: 1, Value: []byte(dept)})
	}
	if pay != "" {
		row.Cells = append(row.Cells, litetable.Cell{Family: family, Qualifier: salary,
			Timestamp: 1, Value: []byte(pay)})
	}
	return row
}

func TestSumByGroup(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		rows         []*litetable.Row
		wantGroups   map[string]string
		wantOrder    []string
		wantSkipped  int
		wantWarnings int
	}{
		"sums per department": {
			rows: []*litetable.Row{
				employee("1", "10", "100"),
				employee("2", "10", "200"),
				employee("3", "20", "300"),
			},
			wantGroups: map[string]string{"10": "300", "20": "300"},
			wantOrder:  []string{"10", "20"},
		},
		"first encounter order": {
			rows: []*litetable.Row{
				employee("1", "30", "1"),
				employee("2", "10", "2"),
				employee("3", "30", "3"),
			},
			wantGroups: map[string]string{"30": "4", "10": "2"},
			wantOrder:  []string{"30", "10"},
		},
		"rows missing a cell are skipped": {
			rows: []*litetable.Row{
				employee("1", "10", "100"),
				employee("2", "", "200"),
				employee("3", "10", ""),
			},
			wantGroups:  map[string]string{"10": "100"},
			wantOrder:   []string{"10"},
			wantSkipped: 2,
		},
		"non-numeric values are warned about": {
			rows: []*litetable.Row{
				employee("1", "10", "100"),
				employee("2", "10", "lots"),
				employee("3", "20", "n/a"),
			},
			wantGroups:   map[string]string{"10": "100", "20": "0"},
			wantOrder:    []string{"10", "20"},
			wantWarnings: 2,
		},
		"decimal values stay exact": {
			rows: []*litetable.Row{
				employee("1", "10", "0.1"),
				employee("2", "10", " 0.2 "),
			},
			wantGroups: map[string]string{"10": "0.3"},
			wantOrder:  []string{"10"},
		},
		"empty source": {
			wantGroups: map[string]string{},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			got, err := SumByGroup(&sliceSource{rows: tc.rows}, family, deptNo, family, salary)
			require.NoError(t, err)
			require.Equal(t, len(tc.rows), got.Rows)
			require.Equal(t, tc.wantSkipped, got.Skipped)
			require.Equal(t, tc.wantWarnings, got.Warnings)
			require.Len(t, got.Groups, len(tc.wantGroups))

			var order []string
			for _, g := range got.Groups {
				order = append(order, g.Key)
				require.Equal(t, tc.wantGroups[g.Key], g.Total.String(), "group %s", g.Key)
			}
			require.Equal(t, tc.wantOrder, order)
		})
	}
}

func TestSumByGroup_SourceError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	src := &sliceSource{rows: []*litetable.Row{employee("1", "10", "1")}, err: boom}

	got, err := SumByGroup(src, family, deptNo, family, salary)
	require.ErrorIs(t, err, boom)
	require.Nil(t, got)
}

func TestWriteReport(t *testing.T) {
	t.Parallel()
	res, err := SumByGroup(&sliceSource{rows: []*litetable.Row{
		employee("1", "10", "100"),
		employee("2", "10", "200"),
		employee("3", "20", "300"),
	}}, family, deptNo, family, salary)
	require.NoError(t, err)

	total, ok := res.Total("10")
	require.True(t, ok)
	require.Equal(t, "300", total.String())
	_, ok = res.Total("99")
	require.False(t, ok)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, res))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	require.True(t, strings.HasPrefix(lines[0], "DEPARTMENT NUMBER"))
	require.True(t, strings.HasSuffix(lines[0], "TOTAL SALARY"))
	require.Equal(t, []string{"10", "300"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"20", "300"}, strings.Fields(lines[2]))

	buf.Reset()
	require.NoError(t, Report{GroupHeader: "DEPT", TotalHeader: "SUM"}.Write(&buf, res))
	require.Equal(t, []string{"DEPT", "SUM"}, strings.Fields(strings.Split(buf.String(), "\n")[0]))
}
