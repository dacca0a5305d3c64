// Package table is the public surface of a single wide-column table: schema, row mutations,
// point reads, snapshot scans and the lifecycle that ties the mutation log to the cell store.
//
// A batch becomes visible only after it has been appended to the mutation log. Opening a table
// loads its newest checkpoint and replays the log entries written after it.
package table

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/litetable/litetable-embedded/internal/cellstore"
	"github.com/litetable/litetable-embedded/internal/changefeed"
	"github.com/litetable/litetable-embedded/internal/compression"
	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/litetable/litetable-embedded/internal/wal"
	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=table_mock.go -package=table -source=table.go

const (
	defaultRowLockStripes  = 64
	defaultCheckpointLimit = 2
	checkpointDirName      = "checkpoints"
)

type mutationLog interface {
	Append(e *wal.Entry) error
	Replay(after uint64) iter.Seq2[*wal.Entry, error]
	Rotate() (uint64, error)
	RemoveThrough(lsn uint64) error
	LastLSN() uint64
	Close() error
}

type changeFeed interface {
	Publish(e *changefeed.Event)
}

type Config struct {
	Name string
	// Dir holds the schema file and the checkpoints of the table.
	Dir string
	// Log is an open mutation log. The table owns it from here on and closes it on Close.
	Log mutationLog
	// Feed receives every applied batch. Optional.
	Feed changeFeed
	// Compression is used for checkpoint files.
	Compression compression.Type
	// RowLockStripes is the number of mutexes row keys are hashed onto.
	RowLockStripes int
	// CheckpointLimit is the number of checkpoint files kept on disk.
	CheckpointLimit int
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Name == "" {
		errGrp = append(errGrp, errors.New("table name is required"))
	}
	if c.Dir == "" {
		errGrp = append(errGrp, errors.New("table directory is required"))
	}
	if c.Log == nil {
		errGrp = append(errGrp, errors.New("mutation log is required"))
	}
	if c.RowLockStripes < 0 {
		errGrp = append(errGrp, fmt.Errorf("row lock stripes must be positive: %d",
			c.RowLockStripes))
	}
	if c.CheckpointLimit < 0 || c.CheckpointLimit > 50 {
		errGrp = append(errGrp, fmt.Errorf("checkpoint limit must be between 1 and 50"))
	}
	return errors.Join(errGrp...)
}

type Table struct {
	name          string
	dir           string
	checkpointDir string
	familiesFile  string

	// lifecycle is held shared by every operation and exclusively by Close and the
	// snapshot step of Checkpoint.
	lifecycle sync.RWMutex
	closed    bool

	// checkpointMu serializes checkpoints with each other and with Close.
	checkpointMu    sync.Mutex
	checkpointLSN   uint64
	checkpointLimit int
	compression     compression.Type

	familyMu    sync.RWMutex
	families    map[string]litetable.FamilyOptions // replaced, never mutated
	familyOrder []string

	store    *cellstore.Store
	log      mutationLog
	feed     changeFeed
	rows     *rowLocks
	clock    *clock
	scanners *registry
}

// New opens the table stored under cfg.Dir and recovers its state from the newest checkpoint
// and the mutation log.
func New(cfg *Config) (*Table, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	stripes := cfg.RowLockStripes
	if stripes == 0 {
		stripes = defaultRowLockStripes
	}
	limit := cfg.CheckpointLimit
	if limit == 0 {
		limit = defaultCheckpointLimit
	}

	checkpointDir := filepath.Join(cfg.Dir, checkpointDirName)
	if err := os.MkdirAll(checkpointDir, 0750); err != nil {
		return nil, litetable.IOError(err, "failed to create table directory")
	}

	t := &Table{
		name:            cfg.Name,
		dir:             cfg.Dir,
		checkpointDir:   checkpointDir,
		familiesFile:    filepath.Join(cfg.Dir, familiesFileName),
		checkpointLimit: limit,
		compression:     cfg.Compression,
		families:        make(map[string]litetable.FamilyOptions),
		store:           cellstore.New(),
		log:             cfg.Log,
		feed:            cfg.Feed,
		rows:            newRowLocks(stripes),
		clock:           newClock(),
		scanners:        newRegistry(),
	}

	if err := t.loadFamilies(); err != nil {
		return nil, err
	}
	if err := t.recover(); err != nil {
		return nil, err
	}

	return t, nil
}

// recover rebuilds the cell store: newest readable checkpoint first, then every log entry
// after it. Entries at or below the applied LSN are skipped, so replaying twice is harmless.
func (t *Table) recover() error {
	start := time.Now()

	applied, err := t.loadLatestCheckpoint()
	if err != nil {
		return err
	}
	t.checkpointLSN = applied

	replayed := 0
	for entry, err := range t.log.Replay(applied) {
		if err != nil {
			return err
		}
		if entry.LSN <= applied {
			continue
		}
		if entry.LSN != applied+1 {
			return litetable.IOError(nil, "mutation log jumps from LSN %d to %d", applied,
				entry.LSN)
		}
		if err = t.store.Apply(entry.Mutations); err != nil {
			return litetable.IOError(err, "failed to replay log entry %d", entry.LSN)
		}
		for _, m := range entry.Mutations {
			t.clock.Observe(m.Timestamp)
		}
		applied = entry.LSN
		replayed++
	}

	if last := t.log.LastLSN(); last < t.checkpointLSN {
		return litetable.IOError(nil, "mutation log ends at LSN %d before checkpoint LSN %d",
			last, t.checkpointLSN)
	}

	log.Info().Str("table", t.name).Uint64("checkpoint", t.checkpointLSN).
		Int("replayed", replayed).Int("entries", t.store.Len()).
		Str("duration", time.Since(start).String()).Msg("table opened")
	return nil
}

// acquire enters an operation. Callers must release with t.lifecycle.RUnlock.
func (t *Table) acquire() error {
	t.lifecycle.RLock()
	if t.closed {
		t.lifecycle.RUnlock()
		return litetable.ClosedError("table %s", t.name)
	}
	return nil
}

func (t *Table) Name() string {
	return t.name
}

// Close closes every open scanner and then the mutation log. All later calls, including
// another Close, fail with a closed error.
func (t *Table) Close() error {
	t.checkpointMu.Lock()
	defer t.checkpointMu.Unlock()
	t.lifecycle.Lock()
	defer t.lifecycle.Unlock()

	if t.closed {
		return litetable.ClosedError("table %s", t.name)
	}
	t.closed = true

	n := t.scanners.closeAll()
	if err := t.log.Close(); err != nil {
		if errors.Is(err, litetable.ErrIO) {
			return err
		}
		return litetable.IOError(err, "failed to close the mutation log of %s", t.name)
	}

	log.Info().Str("table", t.name).Int("scanners", n).Msg("table closed")
	return nil
}
