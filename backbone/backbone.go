package backbone

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/metrics"
	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/queue"
)

// CmdBuilder creates the backbone command. The returned function is called
// once the command has finished.
type CmdBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())

// Config holds the settings for running the backbone.
type Config struct {
	Root        string        // OSIRIS root, used to locate tests and to report entry paths
	TestDir     string        // directory holding the startup file; defaults to Root/tests
	Binary      string        // defaults to DefaultBinary
	StartupFile string        // defaults to DefaultStartupFile
	Timeout     time.Duration // zero means no limit
	Stdout      io.Writer     // receives the backbone output; defaults to os.Stdout
	Transcript  io.Writer     // optional copy of the output with ANSI escapes removed
	CmdBuilder  CmdBuilder    // defaults to exec.CommandContext
	Log         log.Logger
}

// Backbone consumes queue directories with the pipeline backbone.
type Backbone struct {
	cfg Config
	log log.Logger
}

// DefaultCmdBuilder builds the command with exec.CommandContext.
func DefaultCmdBuilder(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
	return exec.CommandContext(ctx, name, arg...), func() {}
}

// New validates cfg, fills in defaults and returns a Backbone.
func New(cfg Config) (*Backbone, error) {
	if cfg.TestDir == "" {
		if cfg.Root == "" {
			return nil, &ConfigError{Var: RootEnvVar}
		}
		cfg.TestDir = filepath.Join(cfg.Root, TestsSubdir)
	}
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if cfg.StartupFile == "" {
		cfg.StartupFile = DefaultStartupFile
	}
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = DefaultCmdBuilder
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	return &Backbone{cfg: cfg, log: cfg.Log}, nil
}

// StartupPath returns the IDL startup file passed to the backbone.
func (b *Backbone) StartupPath() string {
	return filepath.Join(b.cfg.TestDir, b.cfg.StartupFile)
}

// Args returns the backbone arguments for consuming queueDir.
func (b *Backbone) Args(queueDir string) []string {
	return []string{
		StartupFlag, b.StartupPath(),
		ExecuteFlag, fmt.Sprintf("%s, '%s'", TestSingleCommand, withTrailingSeparator(queueDir)),
	}
}

// PrepareAndConsume stages the descriptors in queueDir and consumes them.
func (b *Backbone) PrepareAndConsume(ctx context.Context, queueDir string) (int, error) {
	if _, err := queue.Prepare(b.log, queueDir); err != nil {
		return 0, err
	}
	return b.Consume(ctx, queueDir)
}

// Consume runs the backbone until it has consumed queueDir and returns its
// exit code. Output is echoed line by line while the backbone runs. Every
// entry waiting before the run must end up done; the first one that failed
// or never finished is returned as a *BackboneError.
func (b *Backbone) Consume(ctx context.Context, queueDir string) (int, error) {
	queueDir = withTrailingSeparator(queueDir)
	info, err := os.Stat(queueDir)
	if err != nil {
		return 0, &QueueDirError{Dir: queueDir, Err: err}
	}
	if !info.IsDir() {
		return 0, &QueueDirError{Dir: queueDir}
	}

	entries, err := queue.Scan(queueDir)
	if err != nil {
		return 0, err
	}
	waiting := queue.Waiting(entries)

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	args := b.Args(queueDir)
	b.log.Info("Consuming queue directory", "dir", queueDir, "waiting", len(waiting), "binary", b.cfg.Binary)
	b.log.Debug("Backbone command", "binary", b.cfg.Binary, "args", args)

	cmd, cleanup := b.cfg.CmdBuilder(ctx, b.cfg.Binary, args...)
	defer cleanup()

	start := time.Now()
	proc, err := Start(ctx, cmd)
	if err != nil {
		metrics.RecordBackboneRun("error", 0)
		return 0, err
	}

	tail := newTailBuffer(defaultTailBytes)
	for line := range proc.Lines() {
		if _, err := fmt.Fprintln(b.cfg.Stdout, line); err != nil {
			b.log.Warn("Failed to echo backbone output", "err", err)
		}
		_, _ = fmt.Fprintln(tail, line)
		if b.cfg.Transcript != nil {
			_, _ = fmt.Fprintln(b.cfg.Transcript, stripansi.Strip(line))
		}
	}
	if err := proc.Err(); err != nil {
		b.log.Warn("Backbone output ended early", "err", err)
	}

	code, err := proc.Wait()
	duration := time.Since(start)
	if err != nil {
		metrics.RecordBackboneRun("error", duration)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return code, fmt.Errorf("backbone interrupted: %w", ctxErr)
		}
		return code, err
	}
	b.log.Info("Backbone exited", "code", code, "duration", duration, "output_bytes", tail.TotalBytes())

	if err := b.verify(waiting, tail); err != nil {
		metrics.RecordBackboneRun("fail", duration)
		return code, err
	}
	metrics.RecordBackboneRun("pass", duration)
	return code, nil
}

func (b *Backbone) verify(waiting []queue.Entry, tail *tailBuffer) error {
	for _, entry := range waiting {
		failed, err := entry.WithStatus(queue.StatusFailed).Exists()
		if err != nil {
			return fmt.Errorf("failed to check status of %s: %w", entry.Key(), err)
		}
		if failed {
			metrics.RecordBackboneEntry(string(queue.StatusFailed))
			return b.entryError(entry, ReasonFailed, tail)
		}

		done, err := entry.WithStatus(queue.StatusDone).Exists()
		if err != nil {
			return fmt.Errorf("failed to check status of %s: %w", entry.Key(), err)
		}
		if !done {
			metrics.RecordBackboneEntry(string(ReasonUnfinished))
			return b.entryError(entry, ReasonUnfinished, tail)
		}
		metrics.RecordBackboneEntry(string(queue.StatusDone))
		b.log.Debug("Queue entry done", "entry", entry.Key())
	}
	return nil
}

func (b *Backbone) entryError(entry queue.Entry, reason Reason, tail *tailBuffer) error {
	bErr := &BackboneError{
		Entry:  entry,
		Path:   b.displayPath(entry),
		Reason: reason,
		Output: tail.String(),
	}
	b.log.Error("Backbone did not complete queue entry", "entry", bErr.Path, "reason", reason, "output_truncated", tail.Truncated())
	return bErr
}

// displayPath reports the entry's path relative to the OSIRIS root, or its
// absolute path when no root is configured or the path lies elsewhere.
func (b *Backbone) displayPath(entry queue.Entry) string {
	path, err := filepath.Abs(entry.Path())
	if err != nil {
		return entry.Path()
	}
	if b.cfg.Root == "" {
		return path
	}
	root := b.cfg.Root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	if realDir, err := filepath.EvalSymlinks(filepath.Dir(path)); err == nil {
		path = filepath.Join(realDir, filepath.Base(path))
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

func withTrailingSeparator(dir string) string {
	if strings.HasSuffix(dir, string(filepath.Separator)) {
		return dir
	}
	return dir + string(filepath.Separator)
}
