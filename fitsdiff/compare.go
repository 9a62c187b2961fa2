package fitsdiff

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/metrics"
)

// MismatchError is returned when two files are not close. Its message is
// the full text report.
type MismatchError struct {
	Report *Report
}

func (e *MismatchError) Error() string {
	return e.Report.String()
}

// IsMismatchError checks if the error is or wraps a MismatchError
func IsMismatchError(err error) bool {
	var mErr *MismatchError
	return err != nil && errors.As(err, &mErr)
}

// Comparer compares FITS files opened through Open.
type Comparer struct {
	Open    Opener
	Options Options
	Log     log.Logger
}

// NewComparer returns a Comparer reading from disk with OSIRISOptions.
func NewComparer() *Comparer {
	return &Comparer{Open: OSOpener, Options: OSIRISOptions()}
}

// Diff compares the files at a and b. Both handles are closed before Diff
// returns, whatever the outcome.
func (c *Comparer) Diff(a, b string) (report *Report, err error) {
	open := c.Open
	if open == nil {
		open = OSOpener
	}
	logger := c.Log
	if logger == nil {
		logger = log.Root()
	}

	fa, err := openFITS(open, a)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := fa.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", a, cerr)
		}
	}()

	fb, err := openFITS(open, b)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := fb.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", b, cerr)
		}
	}()

	sa, err := fa.snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", a, err)
	}
	sb, err := fb.snapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", b, err)
	}

	report = &Report{
		A:       a,
		B:       b,
		Options: c.Options,
		HDUsA:   len(sa),
		HDUsB:   len(sb),
		HDUs:    diffFiles(sa, sb, c.Options),
	}
	logger.Debug("Compared FITS files", "a", a, "b", b, "hdus", len(sa), "identical", report.Identical())
	return report, nil
}

// AllClose returns a *MismatchError carrying the report when the files at
// a and b are not close.
func (c *Comparer) AllClose(a, b string) error {
	report, err := c.Diff(a, b)
	if err != nil {
		metrics.RecordComparison("error")
		return err
	}
	if !report.Identical() {
		metrics.RecordComparison("different")
		return &MismatchError{Report: report}
	}
	metrics.RecordComparison("identical")
	return nil
}

// AllClose compares two OSIRIS FITS products from disk with OSIRISOptions.
func AllClose(a, b string) error {
	return NewComparer().AllClose(a, b)
}

// AssertAllClose fails t with the diff report when a and b are not close.
func AssertAllClose(t assert.TestingT, a, b string, msgAndArgs ...any) bool {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	if err := AllClose(a, b); err != nil {
		return assert.Fail(t, err.Error(), msgAndArgs...)
	}
	return true
}

// RequireAllClose is AssertAllClose followed by t.FailNow on failure.
func RequireAllClose(t require.TestingT, a, b string, msgAndArgs ...any) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
	if AssertAllClose(t, a, b, msgAndArgs...) {
		return
	}
	t.FailNow()
}
