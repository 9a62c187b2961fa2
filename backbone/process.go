package backbone

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"os/exec"
)

// Process is a running backbone whose stdout and stderr share one pipe.
type Process struct {
	cmd      *exec.Cmd
	out      *os.File
	stop     func() bool
	consumed bool
	scanErr  error
}

// Start launches cmd with stdin detached and stderr merged into stdout.
// Cancelling ctx closes the read side of the output pipe so Lines returns
// even if a child of the process keeps the write side open.
func Start(ctx context.Context, cmd *exec.Cmd) (*Process, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create output pipe: %w", err)
	}

	cmd.Stdin = nil
	cmd.Stdout = w
	cmd.Stderr = w
	if err := cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return nil, fmt.Errorf("failed to start %s: %w", cmd.Path, err)
	}
	// The child holds its own copy of the write end.
	_ = w.Close()

	return &Process{
		cmd:  cmd,
		out:  r,
		stop: context.AfterFunc(ctx, func() { _ = r.Close() }),
	}, nil
}

// Lines yields the process output one line at a time as it is produced,
// without the trailing newline. A line longer than maxLineBytes is yielded
// in pieces. The sequence ends when the process closes its output and can
// only be ranged over once.
func (p *Process) Lines() iter.Seq[string] {
	return func(yield func(string) bool) {
		if p.consumed {
			return
		}
		p.consumed = true

		r := bufio.NewReaderSize(p.out, 64*1024)
		var (
			line  []byte
			split bool // line so far continues a piece already yielded
		)
		for {
			chunk, isPrefix, err := r.ReadLine()
			if err != nil {
				if len(line) > 0 && !yield(string(line)) {
					return
				}
				if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
					p.scanErr = err
				}
				return
			}
			line = append(line, chunk...)
			if isPrefix && len(line) < maxLineBytes {
				continue
			}
			if split && !isPrefix && len(line) == 0 {
				split = false
				continue
			}
			if !yield(string(line)) {
				return
			}
			line = line[:0]
			split = isPrefix
		}
	}
}

// Err returns the error that ended the line sequence early, if any.
func (p *Process) Err() error {
	return p.scanErr
}

// Wait discards any output not read through Lines, waits for the process
// to exit and returns its exit code. A non-zero exit is not an error; err
// is set only when the process could not be waited on or was killed.
func (p *Process) Wait() (int, error) {
	_, _ = io.Copy(io.Discard, p.out)
	p.stop()
	_ = p.out.Close()

	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() >= 0 {
			return exitErr.ExitCode(), nil
		}
		return exitErr.ExitCode(), fmt.Errorf("backbone terminated: %w", err)
	}
	return -1, fmt.Errorf("failed to wait for backbone: %w", err)
}
