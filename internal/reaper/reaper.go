// Package reaper runs table maintenance in the background: it compacts versions that fell out
// of retention and checkpoints the table so the mutation log can be truncated.
package reaper

import (
	"errors"
	"fmt"
	"sync"
	"time"

	movingaverage "github.com/RobinUS2/golang-moving-average"
	"github.com/RussellLuo/timingwheel"
	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=reaper_mock.go -package=reaper -source=reaper.go

const (
	defaultWindow = 16
	wheelSize     = 64
	minTick       = time.Millisecond
)

type maintainer interface {
	Name() string
	// Compact drops versions no longer retained and returns how many were removed.
	Compact() (int, error)
	Checkpoint() error
}

type Config struct {
	Table    maintainer
	Interval time.Duration
	// Window is the number of cycles the average cycle time covers.
	Window int
}

func (c *Config) validate() error {
	var errGrp []error
	if c.Table == nil {
		errGrp = append(errGrp, errors.New("table cannot be nil"))
	}
	if c.Interval <= 0 {
		errGrp = append(errGrp, errors.New("interval must be greater than 0"))
	}
	if c.Window < 0 {
		errGrp = append(errGrp, errors.New("window cannot be negative"))
	}
	return errors.Join(errGrp...)
}

// Stats describes the cycles run so far.
type Stats struct {
	Cycles      int
	Removed     int
	Failures    int
	LastError   error
	AverageTime time.Duration
}

// Reaper schedules maintenance cycles on a timing wheel. Each cycle re-arms the next one, so
// a slow cycle delays the schedule instead of piling up.
type Reaper struct {
	table    maintainer
	interval time.Duration
	wheel    *timingwheel.TimingWheel

	mu      sync.Mutex
	timer   *timingwheel.Timer
	started bool
	stopped bool // no further cycles are scheduled
	// wheelStopped is set once Stop has shut the wheel down
	wheelStopped bool
	running sync.WaitGroup

	avg   *movingaverage.MovingAverage
	stats Stats
}

func New(cfg *Config) (*Reaper, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	window := cfg.Window
	if window == 0 {
		window = defaultWindow
	}
	tick := cfg.Interval / wheelSize
	if tick < minTick {
		tick = minTick
	}

	return &Reaper{
		table:    cfg.Table,
		interval: cfg.Interval,
		wheel:    timingwheel.NewTimingWheel(tick, wheelSize),
		avg:      movingaverage.New(window),
	}, nil
}

func (r *Reaper) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("reaper for %s already started", r.table.Name())
	}
	if r.stopped {
		return nil
	}
	r.started = true

	r.wheel.Start()
	r.schedule()
	log.Info().Str("table", r.table.Name()).Dur("interval", r.interval).Msg("reaper started")
	return nil
}

// Stop cancels the pending cycle and waits for a running one to finish.
func (r *Reaper) Stop() error {
	r.mu.Lock()
	r.stopped = true
	if !r.started || r.wheelStopped {
		r.mu.Unlock()
		return nil
	}
	r.wheelStopped = true
	if r.timer != nil {
		r.timer.Stop()
	}
	r.mu.Unlock()

	r.running.Wait()
	r.wheel.Stop()
	return nil
}

func (r *Reaper) Name() string {
	return "Reaper"
}

// schedule arms the next cycle. Callers hold r.mu.
func (r *Reaper) schedule() {
	if r.stopped {
		return
	}
	r.timer = r.wheel.AfterFunc(r.interval, r.tick)
}

func (r *Reaper) tick() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.running.Add(1)
	r.mu.Unlock()
	defer r.running.Done()

	_, err := r.RunOnce()

	r.mu.Lock()
	defer r.mu.Unlock()
	if errors.Is(err, litetable.ErrClosed) {
		log.Debug().Str("table", r.table.Name()).Msg("table closed, reaper stopping")
		r.stopped = true
		return
	}
	r.schedule()
}

// RunOnce compacts and checkpoints the table right away.
func (r *Reaper) RunOnce() (int, error) {
	start := time.Now()

	removed, err := r.table.Compact()
	if err == nil {
		err = r.table.Checkpoint()
	}
	took := time.Since(start)

	r.mu.Lock()
	r.avg.Add(float64(took.Nanoseconds()))
	r.stats.Cycles++
	r.stats.Removed += removed
	r.stats.AverageTime = time.Duration(r.avg.Avg())
	if err != nil && !errors.Is(err, litetable.ErrClosed) {
		r.stats.Failures++
		r.stats.LastError = err
	}
	avg := r.stats.AverageTime
	r.mu.Unlock()

	if err != nil {
		if !errors.Is(err, litetable.ErrClosed) {
			log.Error().Err(err).Str("table", r.table.Name()).Msg("maintenance cycle failed")
		}
		return removed, err
	}

	log.Debug().Str("table", r.table.Name()).Int("removed", removed).Dur("took", took).
		Dur("avg", avg).Msg("maintenance cycle finished")
	return removed, nil
}

func (r *Reaper) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}
