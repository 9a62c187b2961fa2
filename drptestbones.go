// Package drptestbones runs OSIRIS DRP integration suites: each case stages
// a queue of DRFs, lets the IDL backbone consume it and compares the
// reduced products with their references.
package drptestbones

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/exitcodes"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/metrics"
	httpservice "github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/service"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/suite"
)

// SuiteRunner runs the cases of a suite.
type SuiteRunner interface {
	Run(ctx context.Context, s *suite.Suite) (*SuiteResult, error)
}

// service implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &service{}

// service runs a suite once and then asks the application to shut down.
type service struct {
	config    *Config
	version   string
	suite     *suite.Suite
	runner    SuiteRunner
	formatter ResultFormatter
	http      *httpservice.Service
	result    *SuiteResult

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New loads the suite named by config and prepares the runner. Errors are
// configuration problems and map to exit code 2.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*service, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating suite service with config",
		"root", config.Root,
		"testDir", config.TestDir,
		"suite", config.SuiteFile,
		"cases", config.Cases,
		"logDir", config.LogDir)

	s, err := suite.Load(config.SuiteFile)
	if err != nil {
		return nil, err
	}
	s, err = s.Select(config.Cases...)
	if err != nil {
		return nil, err
	}

	runner, err := NewRunner(config, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create suite runner: %w", err)
	}
	config.Log.Info("drptestbones.New: loaded suite", "cases", len(s.Cases))

	return &service{
		config:           config,
		version:          version,
		suite:            s,
		runner:           runner,
		formatter:        NewConsoleResultFormatter(config.Log, config.Stdout),
		http:             httpservice.New(config.Log, config.HealthzAddr, config.MetricsAddr),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the suite once.
// Start implements the cliapp.Lifecycle interface.
func (s *service) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			s.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	s.running.Store(true)
	s.config.Log.Info("Starting drptestbones", "version", s.version)
	if s.http != nil {
		if err := s.http.Start(); err != nil {
			return NewRuntimeError(err)
		}
	}

	result, err := s.runner.Run(ctx, s.suite)
	s.result = result
	if result != nil {
		if ferr := s.formatter.FormatResults(result); ferr != nil {
			s.config.Log.Warn("Failed to print results", "error", ferr)
		}
	}
	if werr := metrics.WriteTextfile(s.config.MetricsFile); werr != nil {
		s.config.Log.Warn("Failed to write metrics file", "path", s.config.MetricsFile, "error", werr)
	}
	if err != nil {
		s.config.Log.Error("Runtime error running suite", "error", err)
		return NewRuntimeError(err)
	}

	s.config.Log.Info("Suite completed", "run_id", result.RunID, "status", result.Status())
	switch result.Status() {
	case CaseStatusError:
		return NewRuntimeError(errors.New(result.String()))
	case CaseStatusFail:
		s.config.Log.Warn("Suite completed with failures, returning exit code 1")
		return NewTestFailureError(result.String())
	}

	go func() {
		s.shutdownCallback(nil)
	}()
	return nil
}

// Stop implements the cliapp.Lifecycle interface.
func (s *service) Stop(ctx context.Context) error {
	if !s.running.Load() {
		s.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	s.running.Store(false)
	if s.http != nil {
		s.http.Shutdown(ctx)
	}
	s.config.Log.Info("drptestbones stopped")
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (s *service) Stopped() bool {
	return !s.running.Load()
}

// Result returns the result of the last run, or nil before Start.
func (s *service) Result() *SuiteResult {
	return s.result
}
