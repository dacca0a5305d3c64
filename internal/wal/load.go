package wal

import (
	"bufio"
	"errors"
	"io"
	"iter"
	"os"
	"slices"

	"github.com/litetable/litetable-embedded/internal/litetable"
)

// Replay yields every entry with an LSN greater than after, in LSN order. Iteration stops at
// the first error, which is yielded with a nil entry.
//
// The active segment is read only up to the end of its last acknowledged record, so a replay
// never observes an append that is still in progress.
func (m *Manager) Replay(after uint64) iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		m.mu.Lock()
		segs := slices.Clone(m.segments)
		activeEnd := m.offset
		m.mu.Unlock()

		for i, seg := range segs {
			// every entry in this segment is below the next segment's first LSN
			if i+1 < len(segs) && segs[i+1].firstLSN <= after+1 {
				continue
			}
			limit := int64(-1)
			if i == len(segs)-1 {
				limit = activeEnd
			}
			if !replaySegment(seg, after, limit, yield) {
				return
			}
		}
	}
}

func replaySegment(seg segment, after uint64, limit int64,
	yield func(*Entry, error) bool) bool {
	file, err := os.Open(seg.path)
	if err != nil {
		if os.IsNotExist(err) {
			// removed by a concurrent checkpoint
			return true
		}
		yield(nil, litetable.IOError(err, "failed to open WAL segment %s", seg.path))
		return false
	}
	defer file.Close()

	var r io.Reader = file
	if limit >= 0 {
		r = io.LimitReader(file, limit)
	}
	rr := NewRecordReader(bufio.NewReader(r))

	for {
		payload, err := rr.ReadRecord()
		if errors.Is(err, io.EOF) {
			return true
		}
		if err != nil {
			yield(nil, litetable.IOError(err, "failed to read WAL segment %s", seg.path))
			return false
		}

		entry, err := decodeEntry(payload)
		if err != nil {
			yield(nil, litetable.IOError(err, "failed to decode WAL entry in %s", seg.path))
			return false
		}
		if entry.LSN <= after {
			continue
		}
		if !yield(entry, nil) {
			return false
		}
	}
}

// scanSegment walks a segment and returns the end offset of its last valid record along with
// that record's LSN. A non-nil error means the bytes after end are torn or corrupt.
func scanSegment(path string) (int64, uint64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()

	rr := NewRecordReader(bufio.NewReader(file))
	var last uint64
	for {
		payload, err := rr.ReadRecord()
		if errors.Is(err, io.EOF) {
			return rr.Offset(), last, nil
		}
		if err != nil {
			return rr.Offset(), last, err
		}

		entry, err := decodeEntry(payload)
		if err != nil {
			return rr.Offset() - int64(headerSize+len(payload)), last, err
		}
		last = entry.LSN
	}
}
