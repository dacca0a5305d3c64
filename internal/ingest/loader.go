package ingest

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/panjf2000/ants/v2"
	"github.com/rs/zerolog/log"
)

const defaultWorkers = 4

type rowWriter interface {
	Put(row []byte, puts ...litetable.Put) (*litetable.WriteResult, error)
}

type Config struct {
	Table rowWriter
	// Workers is the number of rows written concurrently.
	Workers int
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Table == nil {
		errGrp = append(errGrp, errors.New("table is required"))
	}
	if c.Workers < 0 {
		errGrp = append(errGrp, errors.New("workers cannot be negative"))
	}
	return errors.Join(errGrp...)
}

// Loader writes parsed records through a worker pool, one batch per row.
type Loader struct {
	table rowWriter
	pool  *ants.Pool
}

func New(cfg *Config) (*Loader, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = defaultWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}

	return &Loader{table: cfg.Table, pool: pool}, nil
}

// RejectedRecord is a parsed record the table refused.
type RejectedRecord struct {
	Line int
	Row  string
	Err  error
}

// Report summarizes a load.
type Report struct {
	Lines    int
	Rows     int
	Cells    int
	Invalid  []InvalidRecord
	Rejected []RejectedRecord
}

type rowBatch struct {
	row   []byte
	lines []int
	puts  []litetable.Put
}

// Load parses r and writes its records. Records of the same row keep their file order inside
// one batch. Invalid lines and rejected records are reported, not fatal. The first write
// error stops further submissions and is returned along with what was loaded so far.
func (l *Loader) Load(ctx context.Context, r io.Reader) (*Report, error) {
	records, invalid, err := Parse(r)
	if err != nil {
		return nil, err
	}

	report := &Report{Lines: len(records) + len(invalid), Invalid: invalid}
	for _, inv := range invalid {
		log.Warn().Int("line", inv.Line).Str("text", inv.Text).Msg("invalid input line")
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failed   atomic.Bool
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
		failed.Store(true)
	}

	for _, b := range groupByRow(records) {
		if err := ctx.Err(); err != nil {
			fail(err)
			break
		}
		if failed.Load() {
			break
		}

		wg.Add(1)
		submitErr := l.pool.Submit(func() {
			defer wg.Done()
			if failed.Load() {
				return
			}

			res, err := l.table.Put(b.row, b.puts...)
			if err != nil {
				fail(err)
				return
			}

			mu.Lock()
			defer mu.Unlock()
			report.Rows++
			report.Cells += len(res.Applied)
			for _, rej := range res.Rejected {
				report.Rejected = append(report.Rejected, RejectedRecord{
					Line: b.lines[rej.Index],
					Row:  string(b.row),
					Err:  rej.Err,
				})
			}
		})
		if submitErr != nil {
			wg.Done()
			fail(submitErr)
			break
		}
	}
	wg.Wait()

	slices.SortFunc(report.Rejected, func(a, b RejectedRecord) int {
		return a.Line - b.Line
	})
	for _, rej := range report.Rejected {
		log.Warn().Int("line", rej.Line).Str("row", rej.Row).Err(rej.Err).Msg("record rejected")
	}

	return report, firstErr
}

// Close releases the worker pool.
func (l *Loader) Close() {
	l.pool.Release()
}

func groupByRow(records []Record) []*rowBatch {
	var batches []*rowBatch
	index := make(map[string]*rowBatch)
	for _, rec := range records {
		b, ok := index[string(rec.Row)]
		if !ok {
			b = &rowBatch{row: rec.Row}
			index[string(rec.Row)] = b
			batches = append(batches, b)
		}
		b.lines = append(b.lines, rec.Line)
		b.puts = append(b.puts, litetable.Put{
			Family:    rec.Family,
			Qualifier: rec.Qualifier,
			Value:     rec.Value,
		})
	}
	return batches
}
