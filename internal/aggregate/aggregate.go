// Package aggregate reduces scanned rows into per-group sums.
package aggregate

import (
	"errors"
	"strings"

	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type rowSource interface {
	Next() (*litetable.Row, error)
}

// Group is the running total of one group key.
type Group struct {
	Key   string
	Total decimal.Decimal
	// Count is the number of values added to Total.
	Count int
}

type Result struct {
	// Groups are in order of first encounter.
	Groups []Group
	// Rows is the number of rows read from the source.
	Rows int
	// Skipped counts rows missing the group or the value cell.
	Skipped int
	// Warnings counts values that were not numeric.
	Warnings int
}

// Total returns the sum of key, and false if the group was never seen.
func (r *Result) Total(key string) (decimal.Decimal, bool) {
	for _, g := range r.Groups {
		if g.Key == key {
			return g.Total, true
		}
	}
	return decimal.Zero, false
}

// SumByGroup reads src until it is exhausted and sums the latest value cell of each row by the
// latest group cell. Rows without both cells are skipped. Values that do not parse as decimal
// numbers are logged and left out of the sum; their group is still reported.
func SumByGroup(src rowSource, groupFamily string, groupQualifier []byte, valueFamily string,
	valueQualifier []byte) (*Result, error) {
	result := &Result{}
	index := make(map[string]int)

	for {
		row, err := src.Next()
		if errors.Is(err, litetable.ErrDone) {
			break
		}
		if err != nil {
			return nil, err
		}
		result.Rows++

		key, ok := row.Latest(groupFamily, groupQualifier)
		if !ok {
			result.Skipped++
			continue
		}
		raw, ok := row.Latest(valueFamily, valueQualifier)
		if !ok {
			result.Skipped++
			continue
		}

		i, seen := index[string(key)]
		if !seen {
			i = len(result.Groups)
			index[string(key)] = i
			result.Groups = append(result.Groups, Group{Key: string(key), Total: decimal.Zero})
		}

		value, err := decimal.NewFromString(strings.TrimSpace(string(raw)))
		if err != nil {
			result.Warnings++
			log.Warn().Str("row", string(row.Key)).Str("group", string(key)).
				Str("value", string(raw)).Msg("skipping non-numeric value")
			continue
		}

		result.Groups[i].Total = result.Groups[i].Total.Add(value)
		result.Groups[i].Count++
	}

	return result, nil
}
