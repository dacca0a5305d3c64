package cellstore

import (
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/stretchr/testify/require"
)

const (
	empDetails  = "EMP_DETAILS"
	personal    = "PERSONAL_DETAILS"
	salary      = "SALARY"
	deptNo      = "DEPT_NO"
	firstName   = "FIRST_NAME"
	defaultTime = int64(time.Hour)
)

func put(row, family, qualifier, value string, ts int64) litetable.Mutation {
	return litetable.Mutation{
		Kind:      litetable.MutationPut,
		Row:       []byte(row),
		Family:    family,
		Qualifier: []byte(qualifier),
		Timestamp: ts,
		Value:     []byte(value),
	}
}

func del(row string, scope litetable.Scope) litetable.Mutation {
	return litetable.Mutation{
		Kind:      litetable.MutationDelete,
		Scope:     scope.Kind,
		Row:       []byte(row),
		Family:    scope.Family,
		Qualifier: scope.Qualifier,
		Timestamp: scope.Timestamp,
	}
}

func values(row *litetable.Row) []string {
	out := make([]string, 0, len(row.Cells))
	for _, c := range row.Cells {
		out = append(out, fmt.Sprintf("%s:%s@%d=%s", c.Family, c.Qualifier, c.Timestamp, c.Value))
	}
	return out
}

func allVersions() *View {
	return &View{Filter: &litetable.Filter{MaxVersions: 10},
		Families: map[string]litetable.FamilyOptions{
			empDetails: {MaxVersions: 10},
			personal:   {MaxVersions: 10},
		}}
}

func TestStore_Apply(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		mutations []litetable.Mutation
		wantErr   bool
	}{
		"valid batch": {
			mutations: []litetable.Mutation{put("1", empDetails, salary, "90000", 1)},
		},
		"empty row": {
			mutations: []litetable.Mutation{put("", empDetails, salary, "90000", 1)},
			wantErr:   true,
		},
		"zero timestamp": {
			mutations: []litetable.Mutation{put("1", empDetails, salary, "90000", 0)},
			wantErr:   true,
		},
		"put without family": {
			mutations: []litetable.Mutation{put("1", "", salary, "90000", 1)},
			wantErr:   true,
		},
		"family delete without family": {
			mutations: []litetable.Mutation{del("1", litetable.DeleteFamily("").At(3))},
			wantErr:   true,
		},
		"one bad mutation rejects the batch": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "90000", 1),
				put("1", empDetails, deptNo, "10", -1),
			},
			wantErr: true,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := New()
			err := s.Apply(tc.mutations)
			if tc.wantErr {
				require.ErrorIs(t, err, litetable.ErrValidation)
				require.Zero(t, s.Len())
				return
			}
			require.NoError(t, err)
			require.Equal(t, len(tc.mutations), s.Len())
		})
	}
}

func TestStore_Get(t *testing.T) {
	t.Parallel()
	tests := map[string]struct {
		mutations []litetable.Mutation
		view      *View
		want      []string
	}{
		"absent row": {
			want: []string{},
		},
		"latest version only by default": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "90000", 1),
				put("1", empDetails, salary, "95000", 2),
			},
			view: &View{},
			want: []string{"EMP_DETAILS:SALARY@2=95000"},
		},
		"same timestamp overwrites": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "90000", 5),
				put("1", empDetails, salary, "91000", 5),
			},
			view: allVersions(),
			want: []string{"EMP_DETAILS:SALARY@5=91000"},
		},
		"cells ordered by family then qualifier then newest": {
			mutations: []litetable.Mutation{
				put("1", personal, firstName, "Ann", 1),
				put("1", empDetails, salary, "1", 1),
				put("1", empDetails, salary, "2", 3),
				put("1", empDetails, deptNo, "10", 2),
			},
			view: allVersions(),
			want: []string{
				"EMP_DETAILS:DEPT_NO@2=10",
				"EMP_DETAILS:SALARY@3=2",
				"EMP_DETAILS:SALARY@1=1",
				"PERSONAL_DETAILS:FIRST_NAME@1=Ann",
			},
		},
		"family version limit caps the filter": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "1", 1),
				put("1", empDetails, salary, "2", 2),
				put("1", empDetails, salary, "3", 3),
				put("1", empDetails, salary, "4", 4),
			},
			view: &View{Filter: &litetable.Filter{MaxVersions: 10}},
			want: []string{
				"EMP_DETAILS:SALARY@4=4",
				"EMP_DETAILS:SALARY@3=3",
				"EMP_DETAILS:SALARY@2=2",
			},
		},
		"column filter": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "90000", 1),
				put("1", empDetails, deptNo, "10", 1),
				put("1", personal, firstName, "Ann", 1),
			},
			view: &View{Filter: &litetable.Filter{Columns: []litetable.Column{
				{Family: empDetails, Qualifier: []byte(salary)},
				{Family: personal},
			}}},
			want: []string{
				"EMP_DETAILS:SALARY@1=90000",
				"PERSONAL_DETAILS:FIRST_NAME@1=Ann",
			},
		},
		"row tombstone hides older cells only": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "90000", 1),
				put("1", personal, firstName, "Ann", 2),
				del("1", litetable.DeleteRow().At(2)),
				put("1", empDetails, deptNo, "10", 3),
			},
			view: &View{},
			want: []string{"EMP_DETAILS:DEPT_NO@3=10"},
		},
		"family tombstone": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "90000", 1),
				put("1", personal, firstName, "Ann", 1),
				del("1", litetable.DeleteFamily(empDetails).At(1)),
			},
			view: &View{},
			want: []string{"PERSONAL_DETAILS:FIRST_NAME@1=Ann"},
		},
		"column tombstone keeps newer versions": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "1", 1),
				put("1", empDetails, salary, "2", 2),
				put("1", empDetails, salary, "3", 3),
				del("1", litetable.DeleteColumn(empDetails, []byte(salary)).At(2)),
			},
			view: allVersions(),
			want: []string{"EMP_DETAILS:SALARY@3=3"},
		},
		"version tombstone hides one version": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "1", 1),
				put("1", empDetails, salary, "2", 2),
				put("1", empDetails, salary, "3", 3),
				del("1", litetable.DeleteVersion(empDetails, []byte(salary), 2)),
			},
			view: allVersions(),
			want: []string{"EMP_DETAILS:SALARY@3=3", "EMP_DETAILS:SALARY@1=1"},
		},
		"hidden versions do not count against the limit": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "1", 1),
				put("1", empDetails, salary, "2", 2),
				del("1", litetable.DeleteVersion(empDetails, []byte(salary), 2)),
			},
			view: &View{},
			want: []string{"EMP_DETAILS:SALARY@1=1"},
		},
		"version tombstone keeps its retention slot": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "1", 1),
				put("1", empDetails, salary, "2", 2),
				put("1", empDetails, salary, "3", 3),
				del("1", litetable.DeleteVersion(empDetails, []byte(salary), 3)),
			},
			view: &View{
				Filter:   &litetable.Filter{MaxVersions: 10},
				Families: map[string]litetable.FamilyOptions{empDetails: {MaxVersions: 2}},
			},
			want: []string{"EMP_DETAILS:SALARY@2=2"},
		},
		"empty qualifier": {
			mutations: []litetable.Mutation{put("1", empDetails, "", "x", 1)},
			view:      &View{},
			want:      []string{"EMP_DETAILS:@1=x"},
		},
		"ttl expires old cells": {
			mutations: []litetable.Mutation{
				put("1", empDetails, salary, "old", defaultTime-int64(time.Minute)),
				put("1", empDetails, deptNo, "new", defaultTime),
			},
			view: &View{
				Families: map[string]litetable.FamilyOptions{empDetails: {TTL: time.Second}},
				Now:      defaultTime,
			},
			want: []string{fmt.Sprintf("EMP_DETAILS:DEPT_NO@%d=new", defaultTime)},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			s := New()
			if len(tc.mutations) > 0 {
				require.NoError(t, s.Apply(tc.mutations))
			}
			got := s.Get([]byte("1"), tc.view)
			require.Equal(t, []byte("1"), got.Key)
			require.Equal(t, tc.want, values(got))
		})
	}
}

func TestStore_GetReturnsCopies(t *testing.T) {
	t.Parallel()
	s := New()
	m := put("1", empDetails, salary, "90000", 1)
	require.NoError(t, s.Apply([]litetable.Mutation{m}))

	// neither the caller's input nor a returned row alias stored bytes
	m.Value[0] = 'X'
	got := s.Get([]byte("1"), nil)
	require.Equal(t, "90000", string(got.Cells[0].Value))
	got.Cells[0].Value[0] = 'Y'
	require.Equal(t, "90000", string(s.Get([]byte("1"), nil).Cells[0].Value))
}

func TestStore_OtherRowsUnaffected(t *testing.T) {
	t.Parallel()
	s := New()
	require.NoError(t, s.Apply([]litetable.Mutation{
		put("1", empDetails, salary, "1", 1),
		put("10", empDetails, salary, "10", 1),
		put("2", empDetails, salary, "2", 1),
		del("1", litetable.DeleteRow().At(5)),
	}))

	require.True(t, s.Get([]byte("1"), nil).IsEmpty())
	require.Equal(t, []string{"EMP_DETAILS:SALARY@1=10"}, values(s.Get([]byte("10"), nil)))
	require.Equal(t, []string{"EMP_DETAILS:SALARY@1=2"}, values(s.Get([]byte("2"), nil)))
}

func TestSnapshot_Rows(t *testing.T) {
	t.Parallel()
	s := New()
	var batch []litetable.Mutation
	for _, row := range []string{"1", "10", "2", "3", "4"} {
		batch = append(batch, put(row, empDetails, salary, row, 1))
	}
	batch = append(batch, del("3", litetable.DeleteRow().At(1)))
	require.NoError(t, s.Apply(batch))

	tests := map[string]struct {
		start, stop []byte
		want        []string
	}{
		"full range skips empty rows": {want: []string{"1", "10", "2", "4"}},
		"start inclusive":             {start: []byte("10"), want: []string{"10", "2", "4"}},
		"stop exclusive":              {stop: []byte("2"), want: []string{"1", "10"}},
		"bounded":                     {start: []byte("2"), stop: []byte("4"), want: []string{"2"}},
		"empty range":                 {start: []byte("5"), want: nil},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			it := s.Snapshot().Rows(tc.start, tc.stop, nil)
			var got []string
			for {
				row, ok := it.Next()
				if !ok {
					break
				}
				got = append(got, string(row.Key))
			}
			require.Equal(t, tc.want, got)

			_, ok := it.Next()
			require.False(t, ok)
			it.Close()
		})
	}
}

func TestSnapshot_Isolation(t *testing.T) {
	t.Parallel()
	s := New()
	require.NoError(t, s.Apply([]litetable.Mutation{
		put("1", empDetails, salary, "90000", 1),
		put("2", empDetails, salary, "80000", 1),
	}))

	snap := s.Snapshot()
	require.NoError(t, s.Apply([]litetable.Mutation{
		put("1", empDetails, salary, "95000", 2),
		del("2", litetable.DeleteRow().At(2)),
		put("3", empDetails, salary, "70000", 2),
	}))

	it := snap.Rows(nil, nil, nil)
	defer it.Close()
	var got []string
	for row, ok := it.Next(); ok; row, ok = it.Next() {
		got = append(got, values(row)...)
	}
	require.Equal(t, []string{"EMP_DETAILS:SALARY@1=90000", "EMP_DETAILS:SALARY@1=80000"}, got)
	require.Equal(t, []string{"EMP_DETAILS:SALARY@2=95000"}, values(s.Get([]byte("1"), nil)))
}

func TestRowIterator_CloseEarly(t *testing.T) {
	t.Parallel()
	s := New()
	require.NoError(t, s.Apply([]litetable.Mutation{
		put("1", empDetails, salary, "1", 1),
		put("2", empDetails, salary, "2", 1),
	}))

	it := s.Snapshot().Rows(nil, nil, nil)
	_, ok := it.Next()
	require.True(t, ok)
	it.Close()
	it.Close()
	_, ok = it.Next()
	require.False(t, ok)
}

func TestSnapshot_MutationsRebuildState(t *testing.T) {
	t.Parallel()
	s := New()
	require.NoError(t, s.Apply([]litetable.Mutation{
		put("1", empDetails, salary, "1", 1),
		put("1", empDetails, salary, "2", 2),
		put("1", empDetails, "", "empty", 2),
		del("1", litetable.DeleteVersion(empDetails, []byte(salary), 2)),
		del("2", litetable.DeleteRow().At(9)),
		put("2", personal, firstName, "Bob", 10),
		del("2", litetable.DeleteFamily(empDetails).At(4)),
		del("2", litetable.DeleteColumn(personal, []byte(firstName)).At(3)),
	}))

	rebuilt := New()
	require.NoError(t, rebuilt.Apply(slices.Collect(s.Snapshot().Mutations())))
	require.Equal(t, s.Len(), rebuilt.Len())
	require.Equal(t, slices.Collect(s.Snapshot().Mutations()),
		slices.Collect(rebuilt.Snapshot().Mutations()))

	for _, row := range []string{"1", "2"} {
		require.Equal(t, values(s.Get([]byte(row), allVersions())),
			values(rebuilt.Get([]byte(row), allVersions())))
	}
}

func TestStore_Prune(t *testing.T) {
	t.Parallel()
	families := map[string]litetable.FamilyOptions{
		empDetails: {MaxVersions: 2},
		personal:   {TTL: time.Second},
	}
	now := 10 * int64(time.Second)

	s := New()
	require.NoError(t, s.Apply([]litetable.Mutation{
		put("1", empDetails, salary, "1", 1),
		put("1", empDetails, salary, "2", 2),
		put("1", empDetails, salary, "3", 3),
		put("1", empDetails, salary, "4", 4),
		del("1", litetable.DeleteVersion(empDetails, []byte(salary), 4)),
		put("1", personal, firstName, "old", 1),
		put("1", personal, firstName, "new", now),
		put("2", empDetails, deptNo, "10", 1),
		del("2", litetable.DeleteRow().At(1)),
	}))

	view := func() *View {
		return &View{Filter: &litetable.Filter{MaxVersions: 10}, Families: families, Now: now}
	}
	before := map[string][]string{
		"1": values(s.Get([]byte("1"), view())),
		"2": values(s.Get([]byte("2"), view())),
	}

	// version 4 is hidden but keeps its slot, so versions 2 and 1 are beyond the limit.
	// "old" has expired and row 2 is deleted.
	require.Equal(t, 4, s.Prune(families, now))
	require.Equal(t, 5, s.Len())
	require.Zero(t, s.Prune(families, now))

	require.Equal(t, before["1"], values(s.Get([]byte("1"), view())))
	require.Equal(t, before["2"], values(s.Get([]byte("2"), view())))
	require.Equal(t, []string{
		"EMP_DETAILS:SALARY@3=3",
		fmt.Sprintf("PERSONAL_DETAILS:FIRST_NAME@%d=new", now),
	}, before["1"])
}

func TestStore_ConcurrentApplyAndRead(t *testing.T) {
	t.Parallel()
	s := New()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 1; i <= 100; i++ {
				row := fmt.Sprintf("row-%d", w)
				// both cells of a batch must become visible together
				require.NoError(t, s.Apply([]litetable.Mutation{
					put(row, empDetails, salary, fmt.Sprint(i), int64(i)),
					put(row, empDetails, deptNo, fmt.Sprint(i), int64(i)),
				}))
			}
		}(w)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			it := s.Snapshot().Rows(nil, nil, nil)
			for row, ok := it.Next(); ok; row, ok = it.Next() {
				dept, _ := row.Latest(empDetails, []byte(deptNo))
				sal, _ := row.Latest(empDetails, []byte(salary))
				require.Equal(t, string(dept), string(sal))
			}
			it.Close()
		}
	}()
	wg.Wait()

	for w := 0; w < 4; w++ {
		got := s.Get([]byte(fmt.Sprintf("row-%d", w)), nil)
		v, ok := got.Latest(empDetails, []byte(salary))
		require.True(t, ok)
		require.Equal(t, "100", string(v))
	}
}
