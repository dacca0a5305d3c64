// Package app runs a set of long lived dependencies until the context is cancelled, the OS
// asks the process to stop, or one of them fails.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

//go:generate mockgen -destination=./app_mock.go -package=app -source=app.go

// Dependency is the interface that wraps the basic methods of a dependency required for the application.
type Dependency interface {
	// Start is anything a dependency needs to do before it's ready to be used
	Start() error
	// Stop is anything a dependency needs to do before it's ready to be stopped
	Stop() error
	// Name is the name of the dependency. It is used for logging and identification purposes, only.
	Name() string
}

type App struct {
	serviceName string
	// Deps is a list of dependencies that the application will start.
	deps []Dependency
	// depFailChan receives at most one error per dependency, so it never blocks.
	depFailChan chan error
	// osSignalChan is a channel that will be used to signal when the OS has sent a signal to the application.
	osSignalChan chan os.Signal
	// stopCalled is an atomic bool. It allows stop to be called once
	stopCalled *atomic.Bool
	// runCalled allows Run to be called once
	runCalled *atomic.Bool
	// stopTimeout is the amount of time the application will wait for dependencies to stop before exiting.
	stopTimeout time.Duration
}

type Config struct {
	ServiceName string
	StopTimeout time.Duration
}

func (c *Config) validate() error {
	var errs []error
	if c.ServiceName == "" {
		errs = append(errs, errors.New("service name is required"))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, errors.New("stop timeout is required"))
	}
	return errors.Join(errs...)
}

// CreateApp creates a new application with the provided dependencies.
func CreateApp(cfg *Config, deps ...Dependency) (*App, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &App{
		serviceName:  cfg.ServiceName,
		deps:         deps,
		stopTimeout:  cfg.StopTimeout,
		stopCalled:   &atomic.Bool{},
		runCalled:    &atomic.Bool{},
		depFailChan:  make(chan error, len(deps)),
		osSignalChan: make(chan os.Signal, 1), // first signal we get shuts down the app
	}, nil
}

// Run starts all dependencies and blocks until shutdown. Dependencies are stopped in reverse
// start order. A dependency that failed to start is reported in the returned error together
// with any stop failures.
func (a *App) Run(ctx context.Context) error {
	if !a.runCalled.CompareAndSwap(false, true) {
		return errors.New("run has already been called")
	}

	ctxCancel, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, dep := range a.deps {
		// Each dependency runs in its own goroutine since Start may block until shutdown.
		go func(dep Dependency) {
			defer func() {
				if err := recover(); err != nil {
					a.depFailChan <- fmt.Errorf("panic in Start() for dependency %s: %v", dep.Name(), err)
				}
			}()

			log.Info().Str("service", a.serviceName).Msg("Starting dependency: " + dep.Name())
			if err := dep.Start(); err != nil {
				a.depFailChan <- fmt.Errorf("failure in Start() for dependency %s: %w", dep.Name(),
					err)
			}
		}(dep)
	}

	signal.Notify(a.osSignalChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(a.osSignalChan)

	var runErr error
	select {
	case <-ctxCancel.Done():
		log.Info().Msg("App Context cancelled: shutting down")
	case runErr = <-a.depFailChan:
		log.Error().Err(runErr).Msg("Dependency failed to start")
	case sig := <-a.osSignalChan:
		log.Info().Msg("OS Signal received: " + sig.String() + " shutdown beginning...")
	}

	if err := a.stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping application")
		return errors.Join(runErr, err)
	}
	return runErr
}

// stop attempts a graceful shutdown of each dependency, last started first.
func (a *App) stop() error {
	if !a.stopCalled.CompareAndSwap(false, true) {
		return errors.New("stop has already been called")
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := len(a.deps) - 1; i >= 0; i-- {
			dep := a.deps[i]
			log.Info().Msg("Stopping dependency: " + dep.Name())
			if err := dep.Stop(); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("failure in Stop() for dependency %s: %w",
					dep.Name(), err))
				mu.Unlock()
			}
		}
	}()

	timer := time.NewTimer(a.stopTimeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		mu.Lock()
		errs = append(errs, fmt.Errorf("dependencies did not stop within %s: %w", a.stopTimeout,
			context.DeadlineExceeded))
		mu.Unlock()
	}

	mu.Lock()
	defer mu.Unlock()
	return errors.Join(errs...)
}
