// Package config reads the litetable.conf file: one `key = value` pair per line, # comments.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/litetable/litetable-embedded/internal/compression"
	"github.com/litetable/litetable-embedded/internal/litetable"
)

const (
	configFileName = "litetable.conf"

	defaultTableName       = "EMP"
	defaultRowLockStripes  = 64
	defaultLoaderWorkers   = 4
	defaultReaperInterval  = time.Minute
	defaultCheckpointLimit = 2
)

type Config struct {
	DataDir   string
	TableName string

	// SyncWrites fsyncs every log append before the write returns. It defaults to true;
	// `sync_writes = false` trades durability of the last writes for throughput.
	SyncWrites  bool
	Compression compression.Type
	MaxVersions int

	RowLockStripes  int
	LoaderWorkers   int
	ReaperInterval  time.Duration
	CheckpointLimit int
	Debug           bool
}

// Default returns the configuration used when no file is present. Data lives under the
// LiteTable directory in the user's home.
func Default() (*Config, error) {
	liteTableDir, err := litetable.GetLitetableDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get LiteTable directory: %w", err)
	}
	return &Config{
		DataDir:         filepath.Join(liteTableDir, "data"),
		TableName:       defaultTableName,
		SyncWrites:      true,
		Compression:     compression.Snappy,
		MaxVersions:     litetable.DefaultMaxVersions,
		RowLockStripes:  defaultRowLockStripes,
		LoaderWorkers:   defaultLoaderWorkers,
		ReaperInterval:  defaultReaperInterval,
		CheckpointLimit: defaultCheckpointLimit,
	}, nil
}

// NewConfig loads the file at path, or litetable.conf in the LiteTable directory when path is
// empty. A missing file yields the defaults.
func NewConfig(path string) (*Config, error) {
	config, err := Default()
	if err != nil {
		return nil, err
	}

	if path == "" {
		liteTableDir, err := litetable.GetLitetableDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get LiteTable directory: %w", err)
		}
		path = filepath.Join(liteTableDir, configFileName)
	}

	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	if err = config.Parse(file); err != nil {
		return nil, err
	}
	return config, nil
}

// Parse applies every recognized key in r on top of the current values. Unknown keys are
// ignored.
func (c *Config) Parse(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())

		// Skip comments and empty lines
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if err := c.set(key, value); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}
	return c.validate()
}

func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "data_dir":
		c.DataDir = value
	case "table_name":
		c.TableName = value
	case "sync_writes":
		c.SyncWrites = value == "true"
	case "compression":
		c.Compression, err = compression.Parse(value)
	case "max_versions":
		c.MaxVersions, err = positiveInt("max versions", value)
	case "row_lock_stripes":
		c.RowLockStripes, err = positiveInt("row lock stripes", value)
	case "loader_workers":
		c.LoaderWorkers, err = positiveInt("loader workers", value)
	case "checkpoint_limit":
		c.CheckpointLimit, err = positiveInt("checkpoint limit", value)
	case "reaper_interval":
		c.ReaperInterval, err = parseInterval(value)
	case "debug":
		c.Debug = value == "true"
	}
	return err
}

func (c *Config) validate() error {
	var errGrp []error
	if c.DataDir == "" {
		errGrp = append(errGrp, errors.New("data_dir cannot be empty"))
	}
	if c.TableName == "" {
		errGrp = append(errGrp, errors.New("table_name cannot be empty"))
	}
	if c.CheckpointLimit > 50 {
		errGrp = append(errGrp, fmt.Errorf("checkpoint_limit cannot exceed 50, got %d",
			c.CheckpointLimit))
	}
	return errors.Join(errGrp...)
}

func positiveInt(name, value string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0, got %d", name, v)
	}
	return v, nil
}

// parseInterval accepts a Go duration ("90s") or a bare number of seconds.
func parseInterval(value string) (time.Duration, error) {
	if secs, err := strconv.Atoi(value); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("reaper interval must be greater than 0, got %d", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid reaper interval value: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("reaper interval must be greater than 0, got %s", d)
	}
	return d, nil
}
