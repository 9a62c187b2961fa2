package backbone

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/queue"
)

// ConfigError reports configuration that could not be resolved.
type ConfigError struct {
	Var string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set and no test directory was given", e.Var)
}

// QueueDirError reports a queue directory that is missing or is not a directory.
type QueueDirError struct {
	Dir string
	Err error
}

func (e *QueueDirError) Error() string {
	return fmt.Sprintf("the queue directory '%s' does not exist", e.Dir)
}

// Unwrap reports fs.ErrNotExist along with the underlying stat error, if any.
func (e *QueueDirError) Unwrap() []error {
	if e.Err == nil {
		return []error{fs.ErrNotExist}
	}
	return []error{fs.ErrNotExist, e.Err}
}

// Reason describes why the backbone did not complete a queue entry.
type Reason string

const (
	ReasonFailed     Reason = "failed"
	ReasonUnfinished Reason = "unfinished"
)

// BackboneError reports a queue entry the backbone failed on or never finished.
type BackboneError struct {
	Entry  queue.Entry
	Path   string // entry path relative to the OSIRIS root when known
	Reason Reason
	Output string // tail of the backbone output
}

func (e *BackboneError) Error() string {
	if e.Reason == ReasonFailed {
		return fmt.Sprintf("the backbone seems to have failed on DRF %s", e.Path)
	}
	return fmt.Sprintf("the backbone doesn't appear to have finished DRF %s", e.Path)
}

// IsBackboneError checks if the error is or wraps a BackboneError
func IsBackboneError(err error) bool {
	var bErr *BackboneError
	return err != nil && errors.As(err, &bErr)
}

// IsConfigError checks if the error is or wraps a ConfigError
func IsConfigError(err error) bool {
	var cErr *ConfigError
	return err != nil && errors.As(err, &cErr)
}

// IsQueueDirError checks if the error is or wraps a QueueDirError
func IsQueueDirError(err error) bool {
	var qErr *QueueDirError
	return err != nil && errors.As(err, &qErr)
}
