// Package wal is the mutation log of a table: an append-only, segmented, checksummed record
// of every mutation batch, written before the batch becomes visible in the cell store.
//
// Segments are named after the first LSN they hold (wal-<lsn>.log). Checkpoints let the
// table drop segments whose entries are all covered by a snapshot.
package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/litetable/litetable-embedded/internal/compression"
	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/rs/zerolog/log"
)

const (
	defaultWalDirectory = "wal"
	segmentPrefix       = "wal-"
	segmentSuffix       = ".log"
)

// Entry represents a Write-Ahead Log entry: one atomic batch of mutations.
type Entry struct {
	LSN       uint64               `json:"lsn"`
	Batch     uuid.UUID            `json:"batch"`
	Timestamp time.Time            `json:"timestamp"`
	Mutations []litetable.Mutation `json:"mutations"`
}

type segment struct {
	firstLSN uint64
	path     string
}

type Manager struct {
	mu  sync.Mutex
	dir string

	file     *os.File
	writer   *RecordWriter
	offset   int64     // end of the last complete record in the active segment
	segments []segment // sorted by firstLSN, the active segment is last
	lastLSN  uint64

	syncWrites  bool
	compression compression.Type

	failed error
	closed bool
}

type Config struct {
	// Path where the WAL directory will be saved
	Path string
	// SyncWrites fsyncs every append before it is acknowledged.
	SyncWrites  bool
	Compression compression.Type
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Path == "" {
		errGrp = append(errGrp, errors.New("WAL path cannot be empty"))
	}
	if _, err := compression.Parse(c.Compression.String()); err != nil {
		errGrp = append(errGrp, err)
	}
	return errors.Join(errGrp...)
}

// New opens the log under cfg.Path, recovering the last LSN from existing segments. A torn or
// corrupted tail in the newest segment is truncated; damage in an older segment is an error.
func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	dir := filepath.Join(cfg.Path, defaultWalDirectory)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, litetable.IOError(err, "failed to create WAL directory")
	}

	segs, err := listSegments(dir)
	if err != nil {
		return nil, litetable.IOError(err, "failed to list WAL segments")
	}

	m := &Manager{
		dir:         dir,
		syncWrites:  cfg.SyncWrites,
		compression: cfg.Compression,
	}
	if err = m.recover(segs); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manager) recover(segs []segment) error {
	if len(segs) == 0 {
		first := segment{firstLSN: 1, path: segmentPath(m.dir, 1)}
		m.segments = []segment{first}
		return m.openSegment(first, 0)
	}

	var end int64
	for i, seg := range segs {
		var last uint64
		var err error
		end, last, err = scanSegment(seg.path)
		if last > 0 {
			m.lastLSN = last
		}
		if err == nil {
			continue
		}
		if i < len(segs)-1 {
			return litetable.IOError(err, "WAL segment %s is damaged", seg.path)
		}

		log.Warn().Err(err).Str("segment", seg.path).Int64("offset", end).
			Msg("truncating damaged WAL tail")
		if err = os.Truncate(seg.path, end); err != nil {
			return litetable.IOError(err, "failed to truncate WAL segment %s", seg.path)
		}
	}

	// an empty newest segment still tells us where numbering continues
	active := segs[len(segs)-1]
	if active.firstLSN > 0 && active.firstLSN-1 > m.lastLSN {
		m.lastLSN = active.firstLSN - 1
	}

	m.segments = segs
	return m.openSegment(active, end)
}

func (m *Manager) openSegment(seg segment, offset int64) error {
	// Open WAL file with appropriate permissions
	file, err := os.OpenFile(seg.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0640)
	if err != nil {
		return litetable.IOError(err, "failed to open WAL file")
	}
	m.file = file
	m.writer = NewRecordWriter(file)
	m.offset = offset
	return nil
}

// Append assigns the next LSN to e and writes it to the active segment. When the write (or the
// fsync) fails the segment is cut back to its previous end and e.LSN is reset to zero, so the
// caller can treat the batch as never logged.
func (m *Manager) Append(e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return litetable.ClosedError("mutation log")
	}
	if m.failed != nil {
		return litetable.IOError(m.failed, "mutation log is unusable after a failed rollback")
	}

	e.LSN = m.lastLSN + 1
	if e.Batch == uuid.Nil {
		e.Batch = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	payload, err := encodeEntry(e, m.compression)
	if err != nil {
		e.LSN = 0
		return litetable.IOError(err, "failed to encode WAL entry")
	}

	n, err := m.writer.WriteRecord(payload)
	if err == nil && m.syncWrites {
		err = m.file.Sync()
	}
	if err != nil {
		e.LSN = 0
		m.rollback()
		return litetable.IOError(err, "failed to write to WAL")
	}

	m.offset += int64(n)
	m.lastLSN = e.LSN
	return nil
}

// rollback removes a partially written record. If that fails the log refuses further appends,
// since anything written after garbage would be unreachable on replay.
func (m *Manager) rollback() {
	if err := m.file.Truncate(m.offset); err != nil {
		m.failed = err
		log.Error().Err(err).Str("segment", m.file.Name()).Msg("failed to roll back WAL write")
	}
}

// LastLSN returns the LSN of the newest durable entry.
func (m *Manager) LastLSN() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLSN
}

// Sync flushes the active segment to stable storage.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return litetable.ClosedError("mutation log")
	}
	if err := m.file.Sync(); err != nil {
		return litetable.IOError(err, "failed to sync WAL")
	}
	return nil
}

// Rotate seals the active segment and starts a new one. It returns the last LSN contained in
// the sealed segments. Rotating an empty segment is a no-op.
func (m *Manager) Rotate() (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, litetable.ClosedError("mutation log")
	}
	if m.offset == 0 {
		return m.lastLSN, nil
	}

	if err := m.file.Sync(); err != nil {
		return 0, litetable.IOError(err, "failed to sync WAL segment")
	}
	if err := m.file.Close(); err != nil {
		return 0, litetable.IOError(err, "failed to close WAL segment")
	}

	next := segment{firstLSN: m.lastLSN + 1, path: segmentPath(m.dir, m.lastLSN+1)}
	if err := m.openSegment(next, 0); err != nil {
		m.failed = err
		return 0, err
	}
	m.segments = append(m.segments, next)

	log.Debug().Str("segment", next.path).Msg("rotated WAL segment")
	return m.lastLSN, nil
}

// RemoveThrough deletes sealed segments whose entries all have an LSN <= lsn.
func (m *Manager) RemoveThrough(lsn uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	keep := make([]segment, 0, len(m.segments))
	for i, seg := range m.segments {
		covered := i+1 < len(m.segments) && m.segments[i+1].firstLSN <= lsn+1
		if !covered {
			keep = append(keep, seg)
			continue
		}
		if err := os.Remove(seg.path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			keep = append(keep, seg)
			continue
		}
		log.Debug().Str("segment", seg.path).Msg("removed WAL segment")
	}
	m.segments = keep

	if len(errs) > 0 {
		return litetable.IOError(errors.Join(errs...), "failed to remove WAL segments")
	}
	return nil
}

// Close syncs and closes the active segment.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return litetable.ClosedError("mutation log")
	}
	m.closed = true

	var errs []error
	if err := m.file.Sync(); err != nil {
		errs = append(errs, err)
	}
	if err := m.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return litetable.IOError(errors.Join(errs...), "failed to close WAL")
	}
	return nil
}

func encodeEntry(e *Entry, t compression.Type) ([]byte, error) {
	// Convert the entry to JSON for storage
	jsonData, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal entry: %w", err)
	}
	return compression.Encode(t, jsonData)
}

func decodeEntry(payload []byte) (*Entry, error) {
	data, err := compression.Decode(payload)
	if err != nil {
		return nil, err
	}
	var e Entry
	if err = json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &e, nil
}

func segmentPath(dir string, firstLSN uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%s%020d%s", segmentPrefix, firstLSN, segmentSuffix))
}

func listSegments(dir string) ([]segment, error) {
	files, err := filepath.Glob(filepath.Join(dir, segmentPrefix+"*"+segmentSuffix))
	if err != nil {
		return nil, err
	}

	segs := make([]segment, 0, len(files))
	for _, file := range files {
		name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(file), segmentPrefix),
			segmentSuffix)
		first, err := strconv.ParseUint(name, 10, 64)
		if err != nil {
			log.Warn().Str("file", file).Msg("ignoring file with a malformed WAL segment name")
			continue
		}
		segs = append(segs, segment{firstLSN: first, path: file})
	}

	sort.Slice(segs, func(i, j int) bool {
		return segs[i].firstLSN < segs[j].firstLSN
	})
	return segs, nil
}
