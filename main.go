package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/litetable/litetable-embedded/internal/app"
	"github.com/litetable/litetable-embedded/internal/changefeed"
	"github.com/litetable/litetable-embedded/internal/config"
	"github.com/litetable/litetable-embedded/internal/ingest"
	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/litetable/litetable-embedded/internal/reaper"
	"github.com/litetable/litetable-embedded/internal/table"
	"github.com/litetable/litetable-embedded/internal/wal"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	empDetails      = "EMP_DETAILS"
	personalDetails = "PERSONAL_DETAILS"
)

func main() {
	configPath := flag.String("config", "", "path to litetable.conf (default ~/.litetable/litetable.conf)")
	dataPath := flag.String("data", "data.txt", "employee records to load")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := initialize(*configPath, *dataPath, os.Stdout, cancel)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize")
	}

	if err = application.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("demo failed")
	}
}

func initialize(configPath, dataPath string, out io.Writer, done context.CancelFunc) (*app.App, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	return assemble(cfg, dataPath, out, done)
}

// closers releases what assemble opened when a later step fails, last opened first.
type closers []func() error

func (c closers) close() error {
	var errs []error
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func assemble(cfg *config.Config, dataPath string, out io.Writer,
	done context.CancelFunc) (_ *app.App, err error) {
	var (
		deps    []app.Dependency
		cleanup closers
	)
	defer func() {
		if err == nil {
			return
		}
		if closeErr := cleanup.close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("failed to release resources after a setup error")
		}
	}()
	tableDir := filepath.Join(cfg.DataDir, cfg.TableName)

	// the change feed goes first so it is the last thing stopped
	feed, err := changefeed.New(&changefeed.Config{})
	if err != nil {
		return nil, err
	}
	deps = append(deps, feed)

	walManager, err := wal.New(&wal.Config{
		Path:        tableDir,
		SyncWrites:  cfg.SyncWrites,
		Compression: cfg.Compression,
	})
	if err != nil {
		return nil, err
	}

	tbl, err := table.New(&table.Config{
		Name:            cfg.TableName,
		Dir:             tableDir,
		Log:             walManager,
		Feed:            feed,
		Compression:     cfg.Compression,
		RowLockStripes:  cfg.RowLockStripes,
		CheckpointLimit: cfg.CheckpointLimit,
	})
	if err != nil {
		_ = walManager.Close()
		return nil, err
	}
	cleanup = append(cleanup, tbl.Close)

	opts := litetable.FamilyOptions{MaxVersions: cfg.MaxVersions}
	for _, family := range []string{empDetails, personalDetails} {
		if err = tbl.CreateFamily(family, opts); err != nil && !errors.Is(err, litetable.ErrSchema) {
			return nil, err
		}
	}

	loader, err := ingest.New(&ingest.Config{Table: tbl, Workers: cfg.LoaderWorkers})
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, func() error {
		loader.Close()
		return nil
	})

	d := &demo{
		table:    tbl,
		loader:   loader,
		feed:     feed,
		dataPath: dataPath,
		out:      out,
		done:     done,
	}
	deps = append(deps, d)

	reaperGC, err := reaper.New(&reaper.Config{
		Table:    tbl,
		Interval: cfg.ReaperInterval,
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, reaperGC)

	return app.CreateApp(&app.Config{
		ServiceName: "litetable",
		StopTimeout: 10 * time.Second,
	}, deps...)
}
