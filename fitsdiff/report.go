package fitsdiff

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Report is the outcome of comparing two FITS files.
type Report struct {
	A, B    string
	Options Options
	HDUsA   int
	HDUsB   int
	HDUs    []HDUDiff
}

// Identical reports whether the files match under the report's options.
func (r *Report) Identical() bool {
	if r.HDUsA != r.HDUsB {
		return false
	}
	for i := range r.HDUs {
		if !r.HDUs[i].Identical() {
			return false
		}
	}
	return true
}

// String renders the report as text.
func (r *Report) String() string {
	var sb strings.Builder
	_ = r.Write(&sb)
	return sb.String()
}

// Write renders the report as text to w.
func (r *Report) Write(w io.Writer) error {
	p := &printer{w: w}

	p.printf(" fitsdiff: drptestbones\n")
	p.printf(" a: %s\n", r.A)
	p.printf(" b: %s\n", r.B)
	if len(r.Options.IgnoreKeywords) > 0 {
		p.printf(" Keyword(s) not to be compared:\n  %s\n", strings.Join(r.Options.IgnoreKeywords, " "))
	}
	if len(r.Options.IgnoreComments) > 0 {
		p.printf(" Keyword(s) whose comments are not to be compared:\n  %s\n", strings.Join(r.Options.IgnoreComments, " "))
	}
	if r.Options.MaxDiffs > 0 {
		p.printf(" Maximum number of different data values to be reported: %d\n", r.Options.MaxDiffs)
	}
	p.printf(" Absolute tolerance: %s\n\n", strconv.FormatFloat(r.Options.Tolerance, 'g', -1, 64))

	if r.HDUsA != r.HDUsB {
		p.printf("Files contain different numbers of HDUs:\n a: %d\n b: %d\n\n", r.HDUsA, r.HDUsB)
	}

	for i := range r.HDUs {
		hdu := &r.HDUs[i]
		if hdu.Identical() {
			continue
		}
		switch {
		case hdu.Index == 0:
			p.printf("Primary HDU:\n\n")
		case hdu.ExtName != "":
			p.printf("Extension HDU %d (%s):\n\n", hdu.Index, hdu.ExtName)
		default:
			p.printf("Extension HDU %d:\n\n", hdu.Index)
		}
		writeHDU(p, hdu)
	}

	if r.Identical() {
		p.printf("No differences found.\n")
	}
	return p.err
}

func writeHDU(p *printer, hdu *HDUDiff) {
	var headers []Difference
	for _, d := range hdu.Differences {
		switch d.Kind {
		case DiffKeywordOnlyA, DiffKeywordOnlyB, DiffKeywordCount, DiffKeywordValue, DiffKeywordComment:
			headers = append(headers, d)
		default:
			p.printf("   %s differs:\n    a> %s\n    b> %s\n", capitalize(string(d.Kind)), d.A, d.B)
		}
	}

	if len(headers) > 0 {
		p.printf("   Headers contain differences:\n")
		for _, d := range headers {
			switch d.Kind {
			case DiffKeywordOnlyA:
				p.printf("     Extra keyword %-8s in a: %s\n", d.Keyword, d.A)
			case DiffKeywordOnlyB:
				p.printf("     Extra keyword %-8s in b: %s\n", d.Keyword, d.B)
			case DiffKeywordCount:
				p.printf("     Inconsistent duplicates of keyword %-8s:\n      Occurs %s time(s) in a, %s times in b\n", d.Keyword, d.A, d.B)
			case DiffKeywordValue:
				p.printf("     Keyword %-8s has different values:\n        a> %s\n        b> %s\n", d.Keyword, d.A, d.B)
			case DiffKeywordComment:
				p.printf("     Keyword %-8s has different comments:\n        a> %s\n        b> %s\n", d.Keyword, d.A, d.B)
			}
		}
	}

	if hdu.Data.Count > 0 {
		p.printf("   Data contains differences:\n")
		for _, s := range hdu.Data.Samples {
			p.printf("     Data differs at %s:\n        a> %s\n        b> %s\n",
				formatCoord(s.Coord), formatFloat(s.A), formatFloat(s.B))
		}
		if hidden := hdu.Data.Count - len(hdu.Data.Samples); hidden > 0 {
			p.printf("     ...\n     %d additional difference(s) found.\n", hidden)
		}
		pct := 0.0
		if hdu.Data.Compared > 0 {
			pct = 100 * float64(hdu.Data.Count) / float64(hdu.Data.Compared)
		}
		p.printf("     %d different pixels found (%.2f%% different).\n", hdu.Data.Count, pct)
	}
	p.printf("\n")
}

func formatCoord(coord []int) string {
	parts := make([]string, len(coord))
	for i, c := range coord {
		parts[i] = strconv.Itoa(c)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// printer remembers the first write error so callers can check it once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}
