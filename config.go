package drptestbones

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/backbone"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/flags"
)

// Config holds the application configuration
type Config struct {
	Root        string        // OSIRIS root, optional when TestDir is set
	TestDir     string        // Directory holding the IDL startup file
	Binary      string        // IDL binary
	StartupFile string        // Startup file name inside TestDir
	Timeout     time.Duration // Per backbone run, zero means no limit
	SuiteFile   string        // Suite definition, YAML or TOML
	Cases       []string      // Case names to run, empty runs every case
	LogDir      string        // Directory for transcripts, empty disables them
	MetricsFile string        // Prometheus textfile written after the run
	HealthzAddr string        // Empty disables the healthz server
	MetricsAddr string        // Empty disables the metrics server
	Stdout      io.Writer     // Backbone output and the results table
	CmdBuilder  backbone.CmdBuilder
	Log         log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckSuiteRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	cfg, err := NewBackboneOnlyConfig(ctx, log)
	if err != nil {
		return nil, err
	}

	cfg.SuiteFile, err = filepath.Abs(ctx.String(flags.SuiteFile.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for suite file '%s': %w", ctx.String(flags.SuiteFile.Name), err)
	}
	cfg.Cases = flags.SplitCases(ctx.String(flags.Cases.Name))
	cfg.HealthzAddr = ctx.String(flags.HealthzAddr.Name)
	cfg.MetricsAddr = ctx.String(flags.MetricsAddr.Name)

	if logDir := ctx.String(flags.LogDir.Name); logDir != "" {
		cfg.LogDir, err = filepath.Abs(logDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
		}
	}
	return cfg, nil
}

// NewBackboneOnlyConfig reads the flags shared by every command that runs
// the backbone, leaving the suite fields empty.
func NewBackboneOnlyConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if log == nil {
		return nil, errors.New("logger is required")
	}
	cfg := &Config{
		Binary:      ctx.String(flags.Binary.Name),
		StartupFile: ctx.String(flags.StartupFile.Name),
		Timeout:     ctx.Duration(flags.Timeout.Name),
		MetricsFile: ctx.String(flags.MetricsFile.Name),
		Stdout:      ctx.App.Writer,
		Log:         log,
	}

	var err error
	if root := ctx.String(flags.OsirisRoot.Name); root != "" {
		if cfg.Root, err = filepath.Abs(root); err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for OSIRIS root '%s': %w", root, err)
		}
	}
	if testDir := ctx.String(flags.TestDir.Name); testDir != "" {
		if cfg.TestDir, err = filepath.Abs(testDir); err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for test directory '%s': %w", testDir, err)
		}
	}
	if cfg.Root == "" && cfg.TestDir == "" {
		return nil, &backbone.ConfigError{Var: backbone.RootEnvVar}
	}
	return cfg, nil
}

// BackboneConfig returns the backbone settings. transcript may be nil.
func (c *Config) BackboneConfig(transcript io.Writer) backbone.Config {
	return backbone.Config{
		Root:        c.Root,
		TestDir:     c.TestDir,
		Binary:      c.Binary,
		StartupFile: c.StartupFile,
		Timeout:     c.Timeout,
		Stdout:      c.Stdout,
		Transcript:  transcript,
		CmdBuilder:  c.CmdBuilder,
		Log:         c.Log,
	}
}
