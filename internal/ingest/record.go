// Package ingest loads flat files of `rowKey,family,qualifier,value` lines into a table.
package ingest

import (
	"bufio"
	"io"
	"strings"

	"github.com/litetable/litetable-embedded/internal/litetable"
)

const minFields = 4

// Record is one cell read from an input line.
type Record struct {
	Line      int
	Row       []byte
	Family    string
	Qualifier []byte
	Value     []byte
}

// InvalidRecord is an input line that could not be turned into a Record.
type InvalidRecord struct {
	Line int
	Text string
	Err  error
}

// ParseLine splits line on commas. Empty fields are dropped, so "1,,EMP_DETAILS" has two
// fields. Fields after the fourth are ignored.
func ParseLine(n int, line string) (*Record, error) {
	fields := strings.FieldsFunc(strings.TrimSpace(line), func(r rune) bool {
		return r == ','
	})
	if len(fields) < minFields {
		return nil, litetable.ValidationError("line %d: expected %d comma separated fields, got %d",
			n, minFields, len(fields))
	}

	return &Record{
		Line:      n,
		Row:       []byte(fields[0]),
		Family:    fields[1],
		Qualifier: []byte(fields[2]),
		Value:     []byte(fields[3]),
	}, nil
}

// Parse reads every line of r. Blank lines are ignored; malformed lines are returned as
// InvalidRecords. The error is only set when r itself fails.
func Parse(r io.Reader) ([]Record, []InvalidRecord, error) {
	var (
		records []Record
		invalid []InvalidRecord
	)

	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := ParseLine(n, line)
		if err != nil {
			invalid = append(invalid, InvalidRecord{Line: n, Text: line, Err: err})
			continue
		}
		records = append(records, *rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, litetable.IOError(err, "failed to read input")
	}

	return records, invalid, nil
}
