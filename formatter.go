package drptestbones

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Keck-DataReductionPipelines/OsirisDRP/drptestbones/queue"
)

// ResultFormatter is responsible for formatting and displaying suite results.
type ResultFormatter interface {
	FormatResults(result *SuiteResult) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger log.Logger
	out    io.Writer
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter. A nil
// writer prints to stdout.
func NewConsoleResultFormatter(logger log.Logger, out io.Writer) *ConsoleResultFormatter {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleResultFormatter{logger: logger, out: out}
}

// FormatResults prints one row per case and per comparison, followed by
// the diff report of every product that differs.
func (f *ConsoleResultFormatter) FormatResults(result *SuiteResult) error {
	f.logger.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(f.out)
	t.SetTitle(fmt.Sprintf("DRP Integration Test Results (%s)", formatDuration(result.Duration)))

	t.AppendHeader(table.Row{"Type", "ID", "Duration", "Exit", "Status", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Type", AutoMerge: true},
		{Name: "ID", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Exit", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, c := range result.Cases {
		t.AppendRow(table.Row{
			"Case",
			c.Name,
			formatDuration(c.Duration),
			c.ExitCode,
			getResultString(c.Status),
			c.Summary(),
		})
		for i, cmp := range c.Comparisons {
			prefix := "├──"
			if i == len(c.Comparisons)-1 {
				prefix = "└──"
			}
			errMsg := ""
			if cmp.Err != nil {
				errMsg = firstLine(cmp.Err.Error())
			}
			t.AppendRow(table.Row{
				"Product",
				fmt.Sprintf("%s %s", prefix, filepath.Base(cmp.Actual)),
				"",
				"",
				getResultString(cmp.Status()),
				errMsg,
			})
		}
		t.AppendSeparator()
	}

	switch result.Status() {
	case CaseStatusPass:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	case CaseStatusError:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	stats := result.Stats()
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d passed / %d failed / %d errors", stats.Passed, stats.Failed, stats.Errors),
		formatDuration(result.Duration),
		"",
		getResultString(result.Status()),
		"",
	})
	t.Render()

	for _, c := range result.Cases {
		for _, cmp := range c.Comparisons {
			if cmp.Err == nil {
				continue
			}
			if _, err := fmt.Fprintf(f.out, "\n%s: %s\n", c.Name, cmp.Err); err != nil {
				return err
			}
		}
		if c.Transcript != "" && c.Status != CaseStatusPass {
			if _, err := fmt.Fprintf(f.out, "%s: backbone transcript at %s\n", c.Name, c.Transcript); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrintEntries prints the queue entries of dir as a table.
func PrintEntries(out io.Writer, dir string, entries []queue.Entry) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(dir)
	t.AppendHeader(table.Row{"Index", "Name", "Status", "File"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Index", Align: text.AlignRight},
	})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Index, e.Name, e.Status, e.FileName()})
	}
	t.AppendFooter(table.Row{"", "", "TOTAL", len(entries)})
	t.Render()
}

func getResultString(status CaseStatus) string {
	switch status {
	case CaseStatusPass:
		return "✓ pass"
	case CaseStatusFail:
		return "✗ fail"
	case CaseStatusError:
		return "! error"
	default:
		return string(status)
	}
}
