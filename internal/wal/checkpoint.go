package wal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/litetable/litetable-embedded/internal/compression"
	"github.com/litetable/litetable-embedded/internal/litetable"
)

// checkpointChunk is the number of mutations stored per checkpoint record.
const checkpointChunk = 512

// WriteCheckpoint persists muts as a checkpoint covering every log entry up to lsn. The file is
// written under a temporary name and renamed into place once it is synced, so a crash leaves
// either the old state or a complete checkpoint.
//
// Each record is an Entry carrying the checkpoint LSN. The first record has no mutations and
// only marks the checkpoint, which keeps an empty table's checkpoint readable.
func WriteCheckpoint(path string, lsn uint64, t compression.Type,
	muts iter.Seq[litetable.Mutation]) error {
	tmp := path + ".tmp"
	file, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return litetable.IOError(err, "failed to create checkpoint")
	}

	if err = writeCheckpoint(file, lsn, t, muts); err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmp, path)
	}
	if err != nil {
		_ = os.Remove(tmp)
		return litetable.IOError(err, "failed to write checkpoint %s", filepath.Base(path))
	}

	return syncDir(filepath.Dir(path))
}

func writeCheckpoint(w io.Writer, lsn uint64, t compression.Type,
	muts iter.Seq[litetable.Mutation]) error {
	bw := bufio.NewWriter(w)
	rw := NewRecordWriter(bw)
	batch := uuid.New()

	write := func(chunk []litetable.Mutation) error {
		payload, err := encodeEntry(&Entry{
			LSN:       lsn,
			Batch:     batch,
			Timestamp: time.Now(),
			Mutations: chunk,
		}, t)
		if err != nil {
			return err
		}
		_, err = rw.WriteRecord(payload)
		return err
	}

	if err := write(nil); err != nil {
		return err
	}

	chunk := make([]litetable.Mutation, 0, checkpointChunk)
	for m := range muts {
		chunk = append(chunk, m)
		if len(chunk) == checkpointChunk {
			if err := write(chunk); err != nil {
				return err
			}
			chunk = chunk[:0]
		}
	}
	if len(chunk) > 0 {
		if err := write(chunk); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadCheckpoint loads a checkpoint, handing its mutations to apply one chunk at a time, and
// returns the LSN the checkpoint covers.
func ReadCheckpoint(path string, apply func([]litetable.Mutation) error) (uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, litetable.IOError(err, "failed to open checkpoint")
	}
	defer file.Close()

	rr := NewRecordReader(bufio.NewReader(file))
	var (
		lsn    uint64
		marked bool
	)
	for {
		payload, err := rr.ReadRecord()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, litetable.IOError(err, "failed to read checkpoint %s", filepath.Base(path))
		}

		entry, err := decodeEntry(payload)
		if err != nil {
			return 0, litetable.IOError(err, "failed to decode checkpoint %s", filepath.Base(path))
		}
		if !marked {
			lsn, marked = entry.LSN, true
		} else if entry.LSN != lsn {
			return 0, litetable.IOError(
				fmt.Errorf("record LSN %d does not match checkpoint LSN %d", entry.LSN, lsn),
				"inconsistent checkpoint %s", filepath.Base(path))
		}
		if len(entry.Mutations) == 0 {
			continue
		}
		if err = apply(entry.Mutations); err != nil {
			return 0, err
		}
	}

	if !marked {
		return 0, litetable.IOError(nil, "checkpoint %s is empty", filepath.Base(path))
	}
	return lsn, nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return litetable.IOError(err, "failed to open checkpoint directory")
	}
	defer d.Close()
	if err = d.Sync(); err != nil {
		return litetable.IOError(err, "failed to sync checkpoint directory")
	}
	return nil
}
