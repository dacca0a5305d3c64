package table

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/litetable/litetable-embedded/internal/cellstore"
	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/litetable/litetable-embedded/internal/wal"
	"github.com/rs/zerolog/log"
)

const checkpointFileGlob = "checkpoint-*.db"

// Compact drops cells that no read can return any more and returns how many were removed.
func (t *Table) Compact() (int, error) {
	if err := t.acquire(); err != nil {
		return 0, err
	}
	defer t.lifecycle.RUnlock()

	removed := t.store.Prune(t.familySnapshot(), time.Now().UnixNano())
	return removed, nil
}

// Checkpoint writes the current contents of the table to a checkpoint file and drops the log
// segments it covers. Writers are paused only while the snapshot is taken and the log rotated.
// Nothing is written when no entry was logged since the previous checkpoint.
func (t *Table) Checkpoint() error {
	t.checkpointMu.Lock()
	defer t.checkpointMu.Unlock()

	t.lifecycle.Lock()
	if t.closed {
		t.lifecycle.Unlock()
		return litetable.ClosedError("table %s", t.name)
	}
	lsn := t.log.LastLSN()
	if lsn == t.checkpointLSN {
		t.lifecycle.Unlock()
		return nil
	}
	snap := t.store.Snapshot()
	_, err := t.log.Rotate()
	t.lifecycle.Unlock()
	if err != nil {
		return err
	}

	start := time.Now()
	path := filepath.Join(t.checkpointDir, checkpointFileName(lsn))
	if err = wal.WriteCheckpoint(path, lsn, t.compression, snap.Mutations()); err != nil {
		return err
	}
	t.checkpointLSN = lsn

	if err = t.log.RemoveThrough(lsn); err != nil {
		return err
	}
	if err = t.pruneCheckpoints(); err != nil {
		return err
	}

	log.Info().Str("table", t.name).Uint64("lsn", lsn).Int("entries", snap.Len()).
		Str("duration", time.Since(start).String()).Msg("checkpoint written")
	return nil
}

func checkpointFileName(lsn uint64) string {
	return fmt.Sprintf("checkpoint-%020d.db", lsn)
}

// checkpointFiles returns the checkpoint files, newest first.
func (t *Table) checkpointFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(t.checkpointDir, checkpointFileGlob))
	if err != nil {
		return nil, litetable.IOError(err, "failed to list checkpoints")
	}
	// zero padded LSNs sort lexically
	slices.Sort(files)
	slices.Reverse(files)
	return files, nil
}

func (t *Table) pruneCheckpoints() error {
	files, err := t.checkpointFiles()
	if err != nil {
		return err
	}
	if len(files) <= t.checkpointLimit {
		return nil
	}

	for _, file := range files[t.checkpointLimit:] {
		if err = os.Remove(file); err != nil && !os.IsNotExist(err) {
			return litetable.IOError(err, "failed to remove checkpoint %s", filepath.Base(file))
		}
		log.Debug().Str("file", file).Msg("removed old checkpoint")
	}
	return nil
}

// loadLatestCheckpoint applies the newest readable checkpoint to the empty store and returns
// its LSN. An unreadable checkpoint is skipped in favour of the one before it; the replay gap
// check catches the case where the log no longer reaches back that far.
func (t *Table) loadLatestCheckpoint() (uint64, error) {
	files, err := t.checkpointFiles()
	if err != nil {
		return 0, err
	}

	for _, file := range files {
		lsn, err := wal.ReadCheckpoint(file, func(mutations []litetable.Mutation) error {
			if err := t.store.Apply(mutations); err != nil {
				return litetable.IOError(err, "invalid checkpoint contents")
			}
			for _, m := range mutations {
				t.clock.Observe(m.Timestamp)
			}
			return nil
		})
		if err == nil {
			return lsn, nil
		}

		log.Warn().Err(err).Str("file", file).Msg("skipping unreadable checkpoint")
		t.store = cellstore.New()
	}
	return 0, nil
}
