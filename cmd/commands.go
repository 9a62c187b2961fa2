package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	drp "github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/backbone"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/fitsdiff"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/flags"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/metrics"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/queue"
)

func queueDirArg(ctx *cli.Context) (string, error) {
	if ctx.NArg() != 1 {
		return "", drp.NewRuntimeError(fmt.Errorf("expected exactly one queue directory, got %d arguments", ctx.NArg()))
	}
	return ctx.Args().First(), nil
}

func prepareAction(ctx *cli.Context) error {
	logger := setupLogger(ctx)
	dir, err := queueDirArg(ctx)
	if err != nil {
		return err
	}
	entries, err := queue.Prepare(logger, dir)
	if err != nil {
		metrics.RecordErrorDetails("prepare", err)
		return drp.Classify(err)
	}
	drp.PrintEntries(ctx.App.Writer, dir, entries)
	return writeMetrics(ctx)
}

func listAction(ctx *cli.Context) error {
	setupLogger(ctx)
	dir, err := queueDirArg(ctx)
	if err != nil {
		return err
	}
	entries, err := queue.Scan(dir)
	if err != nil {
		return drp.Classify(err)
	}
	drp.PrintEntries(ctx.App.Writer, dir, entries)
	return nil
}

// consumeAction runs the backbone on a queue directory, staging the DRFs
// first when prepare is set.
func consumeAction(prepare bool) cli.ActionFunc {
	return func(ctx *cli.Context) (err error) {
		logger := setupLogger(ctx)
		dir, err := queueDirArg(ctx)
		if err != nil {
			return err
		}
		cfg, err := drp.NewBackboneOnlyConfig(ctx, logger)
		if err != nil {
			return drp.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
		}

		var transcript io.Writer
		if path := ctx.String(flags.Transcript.Name); path != "" {
			f, createErr := os.Create(path)
			if createErr != nil {
				return drp.NewRuntimeError(fmt.Errorf("failed to create transcript %s: %w", path, createErr))
			}
			defer func() {
				if cerr := f.Close(); cerr != nil && err == nil {
					err = drp.NewRuntimeError(fmt.Errorf("failed to close transcript %s: %w", path, cerr))
				}
			}()
			transcript = f
		}

		bb, err := backbone.New(cfg.BackboneConfig(transcript))
		if err != nil {
			return drp.Classify(err)
		}
		var code int
		if prepare {
			code, err = bb.PrepareAndConsume(ctx.Context, dir)
		} else {
			code, err = bb.Consume(ctx.Context, dir)
		}
		if mErr := writeMetrics(ctx); mErr != nil {
			logger.Warn("Failed to write metrics file", "error", mErr)
		}
		if err != nil {
			metrics.RecordErrorDetails("consume", err)
			return drp.Classify(err)
		}
		if code != 0 {
			logger.Warn("Backbone exited with a non-zero code but finished every entry", "code", code)
		}
		logger.Info("Queue consumed", "dir", dir, "code", code)
		return nil
	}
}

func diffAction(ctx *cli.Context) error {
	logger := setupLogger(ctx)
	if ctx.NArg() != 2 {
		return drp.NewRuntimeError(fmt.Errorf("expected two FITS files, got %d arguments", ctx.NArg()))
	}
	comparer := fitsdiff.NewComparer()
	comparer.Log = logger

	err := comparer.AllClose(ctx.Args().Get(0), ctx.Args().Get(1))
	if mErr := writeMetrics(ctx); mErr != nil {
		logger.Warn("Failed to write metrics file", "error", mErr)
	}
	if err == nil {
		_, err = fmt.Fprintln(ctx.App.Writer, "No differences found.")
		return err
	}
	if !fitsdiff.IsMismatchError(err) {
		return drp.NewRuntimeError(err)
	}
	if _, werr := fmt.Fprintln(ctx.App.Writer, err.Error()); werr != nil {
		return werr
	}
	return drp.NewTestFailureError("files differ")
}

func writeMetrics(ctx *cli.Context) error {
	return metrics.WriteTextfile(ctx.String(flags.MetricsFile.Name))
}
