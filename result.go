package drptestbones

import (
	"fmt"
	"strings"
	"time"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/fitsdiff"
)

// CaseStatus is the outcome of one suite case.
type CaseStatus string

const (
	CaseStatusPass  CaseStatus = "pass"
	CaseStatusFail  CaseStatus = "fail"  // backbone failure or product mismatch
	CaseStatusError CaseStatus = "error" // the case could not be run
)

// ComparisonResult is the outcome of comparing one product with its reference.
type ComparisonResult struct {
	Expected string
	Actual   string
	Err      error // nil when the files are close
}

// Status is fail when the products differ and error when they could not
// be compared.
func (c ComparisonResult) Status() CaseStatus {
	switch {
	case c.Err == nil:
		return CaseStatusPass
	case fitsdiff.IsMismatchError(c.Err):
		return CaseStatusFail
	default:
		return CaseStatusError
	}
}

// CaseResult is the outcome of one suite case.
type CaseResult struct {
	Name        string
	Queue       string
	Status      CaseStatus
	ExitCode    int
	Duration    time.Duration
	Transcript  string
	Err         error
	Comparisons []ComparisonResult
}

// ResultStats counts cases by status.
type ResultStats struct {
	Total  int
	Passed int
	Failed int
	Errors int
}

// SuiteResult is the outcome of one suite run.
type SuiteResult struct {
	RunID    string
	Suite    string
	Cases    []*CaseResult
	Duration time.Duration
}

// Stats counts the cases by status.
func (r *SuiteResult) Stats() ResultStats {
	stats := ResultStats{Total: len(r.Cases)}
	for _, c := range r.Cases {
		switch c.Status {
		case CaseStatusPass:
			stats.Passed++
		case CaseStatusFail:
			stats.Failed++
		case CaseStatusError:
			stats.Errors++
		}
	}
	return stats
}

// Status is pass only when every case passed. Errors outrank failures.
func (r *SuiteResult) Status() CaseStatus {
	stats := r.Stats()
	switch {
	case stats.Errors > 0:
		return CaseStatusError
	case stats.Failed > 0:
		return CaseStatusFail
	default:
		return CaseStatusPass
	}
}

func (r *SuiteResult) String() string {
	stats := r.Stats()
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s: %d cases, %d passed, %d failed, %d errors (%s)",
		r.RunID, stats.Total, stats.Passed, stats.Failed, stats.Errors, formatDuration(r.Duration))
	for _, c := range r.Cases {
		if c.Status == CaseStatusPass {
			continue
		}
		fmt.Fprintf(&b, "\n  %s: %s", c.Name, c.Summary())
	}
	return b.String()
}

// Summary is a one-line description of why the case did not pass.
func (c *CaseResult) Summary() string {
	if c.Err != nil {
		return firstLine(c.Err.Error())
	}
	var failed int
	for _, cmp := range c.Comparisons {
		if cmp.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Sprintf("%d of %d products differ", failed, len(c.Comparisons))
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// formatDuration renders d in seconds with one decimal place.
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
