package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/litetable/litetable-embedded/internal/aggregate"
	"github.com/litetable/litetable-embedded/internal/changefeed"
	"github.com/litetable/litetable-embedded/internal/ingest"
	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/litetable/litetable-embedded/internal/table"
	"github.com/rs/zerolog/log"
)

var (
	salaryColumn = []byte("SALARY")
	deptNoColumn = []byte("DEPT_NO")
)

// demo walks the employee table through load, update, delete, display and aggregation, then
// asks the app to shut down.
type demo struct {
	table    *table.Table
	loader   *ingest.Loader
	feed     *changefeed.Manager
	dataPath string
	out      io.Writer
	done     context.CancelFunc
}

func (d *demo) Name() string {
	return "Employee Demo"
}

func (d *demo) Start() error {
	sub := d.feed.Subscribe()
	go func() {
		for e := range sub.Events() {
			log.Debug().Uint64("lsn", e.LSN).Str("row", string(e.Row)).
				Int("mutations", len(e.Mutations)).Msg("change event")
		}
	}()

	steps := []struct {
		title string
		run   func() error
	}{
		{"Adding employees to table " + d.table.Name() + ":", d.addEmployees},
		{"Updating salary of employee with rowKey:1 to 95000", func() error {
			return d.updateSalary("1", "95000")
		}},
		{"Deleting employee with rowKey:8", func() error { return d.deleteEmployee("8") }},
		{"Display all employees using GET function:", d.displayUsingGet},
		{"Display all employees using SCAN function:", d.displayUsingScan},
		{"Get sum of salaries in all departments:", d.sumSalaryByDept},
	}
	for _, step := range steps {
		fmt.Fprintln(d.out, step.title)
		if err := step.run(); err != nil {
			return err
		}
		fmt.Fprintln(d.out)
	}

	log.Info().Uint64("published", d.feed.Published()).Uint64("dropped", d.feed.Dropped()).
		Msg("change feed events")
	d.done()
	return nil
}

// Stop closes the loader and the table. The subscription drains once the feed stops.
func (d *demo) Stop() error {
	d.loader.Close()
	if err := d.table.Close(); err != nil && !errors.Is(err, litetable.ErrClosed) {
		return err
	}
	return nil
}

func (d *demo) addEmployees() error {
	file, err := os.Open(d.dataPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	report, err := d.loader.Load(context.Background(), file)
	if err != nil {
		return err
	}
	for _, inv := range report.Invalid {
		fmt.Fprintf(d.out, "Invalid input: %s\n", inv.Text)
	}
	for _, rej := range report.Rejected {
		fmt.Fprintf(d.out, "Rejected line %d: %v\n", rej.Line, rej.Err)
	}
	fmt.Fprintf(d.out, "%d cells in %d rows have been added to the table %s\n", report.Cells,
		report.Rows, d.table.Name())
	return nil
}

func (d *demo) updateSalary(rowKey, salary string) error {
	res, err := d.table.Put([]byte(rowKey), litetable.Put{
		Family:    empDetails,
		Qualifier: salaryColumn,
		Value:     []byte(salary),
	})
	if err != nil {
		return err
	}
	if err = res.Err(); err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Salary updated for rowKey = %s to new value: %s\n", rowKey, salary)
	return nil
}

func (d *demo) deleteEmployee(rowKey string) error {
	if err := d.table.Delete([]byte(rowKey), litetable.DeleteRow()); err != nil {
		return err
	}
	fmt.Fprintf(d.out, "Employee identified by rowKey = %s has been deleted.\n", rowKey)
	return nil
}

// displayUsingGet reads rows 1, 2, 3... and stops at the first empty one.
func (d *demo) displayUsingGet() error {
	for rowKey := 1; ; rowKey++ {
		row, err := d.table.Get([]byte(strconv.Itoa(rowKey)), nil)
		if err != nil {
			return err
		}
		if row.IsEmpty() {
			return nil
		}
		fmt.Fprintln(d.out, formatEmployee(row))
	}
}

func (d *demo) displayUsingScan() error {
	scanner, err := d.table.Scan(&table.ScanOptions{})
	if err != nil {
		return err
	}
	defer scanner.Close()

	for {
		row, err := scanner.Next()
		if errors.Is(err, litetable.ErrDone) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(d.out, formatRow(row))
	}
}

func (d *demo) sumSalaryByDept() error {
	scanner, err := d.table.Scan(&table.ScanOptions{
		Filter: &litetable.Filter{Columns: []litetable.Column{
			{Family: empDetails, Qualifier: deptNoColumn},
			{Family: empDetails, Qualifier: salaryColumn},
		}},
	})
	if err != nil {
		return err
	}
	defer scanner.Close()

	result, err := aggregate.SumByGroup(scanner, empDetails, deptNoColumn, empDetails, salaryColumn)
	if err != nil {
		return err
	}
	return aggregate.WriteReport(d.out, result)
}

// formatEmployee renders a row family by family:
//
//	Employee: 1
//		EMP_DETAILS(DEPT_NO= 10 Timestamp: 1700000000000000000)(SALARY= 95000 Timestamp: ...)
func formatEmployee(row *litetable.Row) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Employee: %s\n", row.Key)
	family := ""
	for _, c := range row.Cells {
		if c.Family != family {
			if family != "" {
				b.WriteString("\n")
			}
			family = c.Family
			b.WriteString("\t" + family)
		}
		fmt.Fprintf(&b, "(%s= %s Timestamp: %d)", c.Qualifier, c.Value, c.Timestamp)
	}
	b.WriteString("\n")
	return b.String()
}

func formatRow(row *litetable.Row) string {
	cells := make([]string, 0, len(row.Cells))
	for _, c := range row.Cells {
		cells = append(cells, fmt.Sprintf("%s/%s:%s/%d/%s", row.Key, c.Family, c.Qualifier,
			c.Timestamp, c.Value))
	}
	return fmt.Sprintf("keyvalues={%s}", strings.Join(cells, ", "))
}
