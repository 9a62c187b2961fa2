package drptestbones

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/backbone"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/fitsdiff"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/metrics"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/suite"
)

// Runner runs the cases of a suite one after the other.
type Runner struct {
	config   *Config
	comparer *fitsdiff.Comparer
	log      log.Logger
}

// NewRunner creates a Runner. A nil comparer reads from disk with the
// OSIRIS comparison options.
func NewRunner(config *Config, comparer *fitsdiff.Comparer) (*Runner, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if config.Log == nil {
		config.Log = log.Root()
	}
	if comparer == nil {
		comparer = fitsdiff.NewComparer()
	}
	if comparer.Log == nil {
		comparer.Log = config.Log
	}
	// Fail on a bad root before the first case rather than in every case.
	if _, err := backbone.New(config.BackboneConfig(nil)); err != nil {
		return nil, err
	}
	return &Runner{config: config, comparer: comparer, log: config.Log}, nil
}

// Run executes every case of s. A case failure does not stop the run; only
// cancellation of ctx does, in which case the partial result is returned
// together with the context error.
func (r *Runner) Run(ctx context.Context, s *suite.Suite) (*SuiteResult, error) {
	result := &SuiteResult{RunID: uuid.New().String(), Suite: s.Dir}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	r.log.Info("Running suite", "run_id", result.RunID, "cases", len(s.Cases))
	for _, c := range s.Cases {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		cr := r.runCase(ctx, result.RunID, c)
		result.Cases = append(result.Cases, cr)
		metrics.RecordSuiteCase(string(cr.Status))
		r.log.Info("Case completed", "case", cr.Name, "status", cr.Status, "duration", cr.Duration)
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(cr.Err, ctxErr) {
			return result, ctxErr
		}
	}
	return result, nil
}

func (r *Runner) runCase(ctx context.Context, runID string, c suite.Case) *CaseResult {
	cr := &CaseResult{Name: c.Name, Queue: c.Queue}
	start := time.Now()
	defer func() { cr.Duration = time.Since(start) }()

	transcript, path, err := r.openTranscript(runID, c.Name)
	if err != nil {
		cr.Status = CaseStatusError
		cr.Err = err
		return cr
	}
	cr.Transcript = path
	if transcript != nil {
		defer func() {
			if cerr := transcript.Close(); cerr != nil {
				r.log.Warn("Failed to close transcript", "path", path, "error", cerr)
			}
		}()
	}

	var sink io.Writer
	if transcript != nil {
		sink = transcript
	}
	bb, err := backbone.New(r.config.BackboneConfig(sink))
	if err != nil {
		cr.Status = CaseStatusError
		cr.Err = err
		return cr
	}

	r.log.Info("Consuming queue", "case", c.Name, "queue", c.Queue)
	cr.ExitCode, err = bb.PrepareAndConsume(ctx, c.Queue)
	if err != nil {
		cr.Err = err
		if backbone.IsBackboneError(err) {
			cr.Status = CaseStatusFail
		} else {
			cr.Status = CaseStatusError
		}
		return cr
	}
	if cr.ExitCode != 0 {
		r.log.Warn("Backbone exited with a non-zero code but finished every entry", "case", c.Name, "code", cr.ExitCode)
	}

	cr.Comparisons = r.compare(c.Compare)
	cr.Status = CaseStatusPass
	for _, cmp := range cr.Comparisons {
		switch cmp.Status() {
		case CaseStatusFail:
			if cr.Status == CaseStatusPass {
				cr.Status = CaseStatusFail
			}
		case CaseStatusError:
			cr.Status = CaseStatusError
		}
	}
	return cr
}

// compare checks the products of one case concurrently; the comparisons
// only read files. Results keep the order of comparisons.
func (r *Runner) compare(comparisons []suite.Comparison) []ComparisonResult {
	type indexed struct {
		i   int
		res ComparisonResult
	}
	p := pool.NewWithResults[indexed]().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for i, cmp := range comparisons {
		p.Go(func() indexed {
			err := r.comparer.AllClose(cmp.Expected, cmp.Actual)
			if err != nil {
				r.log.Debug("Products differ", "expected", cmp.Expected, "actual", cmp.Actual, "error", firstLine(err.Error()))
			}
			return indexed{i: i, res: ComparisonResult{Expected: cmp.Expected, Actual: cmp.Actual, Err: err}}
		})
	}

	results := make([]ComparisonResult, len(comparisons))
	for _, ir := range p.Wait() {
		results[ir.i] = ir.res
	}
	return results
}

// openTranscript creates <LogDir>/<runID>/<case>.log. It returns a nil
// file when transcripts are disabled.
func (r *Runner) openTranscript(runID, name string) (*os.File, string, error) {
	if r.config.LogDir == "" {
		return nil, "", nil
	}
	dir := filepath.Join(r.config.LogDir, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+".log")
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create transcript %s: %w", path, err)
	}
	return f, path, nil
}
