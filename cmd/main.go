package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	drp "github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/flags"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	oplog.SetupDefaults()

	app := newApp()
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), drp.ExitCode(err)))
		}
	}

	ctx := ctxinterrupt.WithSignalWaiterMain(context.Background())
	err := app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "drptestbones"
	app.Usage = "OSIRIS DRP integration test harness"
	app.Description = "drptestbones stages DRF queues, runs the IDL backbone on them and compares the reduced FITS products with their references"
	app.Commands = []*cli.Command{
		{
			Name:      "prepare",
			Usage:     "stage the DRFs of a queue directory as waiting entries",
			ArgsUsage: "<queue-dir>",
			Action:    prepareAction,
			Flags:     cliapp.ProtectFlags(flags.Flags),
		},
		{
			Name:      "consume",
			Usage:     "run the backbone on the waiting entries of a queue directory",
			ArgsUsage: "<queue-dir>",
			Action:    consumeAction(false),
			Flags:     cliapp.ProtectFlags(slices.Concat(flags.Flags, flags.ConsumeFlags)),
		},
		{
			Name:      "run",
			Usage:     "prepare a queue directory and run the backbone on it",
			ArgsUsage: "<queue-dir>",
			Action:    consumeAction(true),
			Flags:     cliapp.ProtectFlags(slices.Concat(flags.Flags, flags.ConsumeFlags)),
		},
		{
			Name:      "list",
			Usage:     "list the entries of a queue directory",
			ArgsUsage: "<queue-dir>",
			Action:    listAction,
			Flags:     cliapp.ProtectFlags(flags.Flags),
		},
		{
			Name:      "diff",
			Usage:     "compare two FITS files with the OSIRIS tolerances",
			ArgsUsage: "<expected.fits> <actual.fits>",
			Action:    diffAction,
			Flags:     cliapp.ProtectFlags(flags.Flags),
		},
		{
			Name:   "suite",
			Usage:  "run every case of a suite file",
			Action: cliapp.LifecycleCmd(runSuite),
			Flags:  cliapp.ProtectFlags(slices.Concat(flags.Flags, flags.SuiteFlags)),
		},
	}
	return app
}

func setupLogger(ctx *cli.Context) log.Logger {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	return logger
}

func runSuite(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logger := setupLogger(ctx)

	cfg, err := drp.NewConfig(ctx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, drp.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)

	svc, err := drp.New(ctx.Context, cfg, Version, closeApp)
	if err != nil {
		return nil, drp.NewRuntimeError(fmt.Errorf("failed to create suite service: %w", err))
	}
	return svc, nil
}
