package fitsdiff

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/astrogo/fitsio"
)

// DiffKind classifies a reported difference.
type DiffKind string

const (
	DiffExtType        DiffKind = "extension type"
	DiffExtName        DiffKind = "extension name"
	DiffBitpix         DiffKind = "BITPIX"
	DiffAxes           DiffKind = "dimensions"
	DiffTableShape     DiffKind = "table shape"
	DiffKeywordOnlyA   DiffKind = "keyword only in a"
	DiffKeywordOnlyB   DiffKind = "keyword only in b"
	DiffKeywordCount   DiffKind = "keyword count"
	DiffKeywordValue   DiffKind = "keyword value"
	DiffKeywordComment DiffKind = "keyword comment"
)

// Difference is one discrepancy between the headers or layout of two HDUs.
// A and B hold the rendered values from each side.
type Difference struct {
	Kind    DiffKind
	Keyword string
	A, B    string
}

// PixelDiff is one data value outside the tolerance.
type PixelDiff struct {
	Coord []int // 1-based, NAXIS1 first
	A, B  float64
}

// DataDiff summarises the comparison of two data arrays.
type DataDiff struct {
	Compared int
	Count    int
	Samples  []PixelDiff
}

// HDUDiff holds the differences found in one pair of HDUs.
type HDUDiff struct {
	Index       int
	ExtName     string
	Differences []Difference
	Data        DataDiff
}

// Identical reports whether nothing differs in this HDU pair.
func (d *HDUDiff) Identical() bool {
	return len(d.Differences) == 0 && d.Data.Count == 0
}

func diffFiles(a, b []hduSnapshot, opts Options) []HDUDiff {
	n := min(len(a), len(b))
	diffs := make([]HDUDiff, 0, n)
	for i := 0; i < n; i++ {
		diffs = append(diffs, diffHDU(i, a[i], b[i], opts))
	}
	return diffs
}

func diffHDU(index int, a, b hduSnapshot, opts Options) HDUDiff {
	d := HDUDiff{Index: index, ExtName: a.extName}

	if a.kind != b.kind {
		d.Differences = append(d.Differences, Difference{Kind: DiffExtType, A: a.kind.String(), B: b.kind.String()})
		return d
	}
	if index > 0 && a.extName != b.extName {
		d.Differences = append(d.Differences, Difference{Kind: DiffExtName, A: a.extName, B: b.extName})
	}
	if a.bitpix != b.bitpix {
		d.Differences = append(d.Differences, Difference{Kind: DiffBitpix, A: strconv.Itoa(a.bitpix), B: strconv.Itoa(b.bitpix)})
	}
	sameAxes := slices.Equal(a.axes, b.axes)
	if !sameAxes {
		d.Differences = append(d.Differences, Difference{Kind: DiffAxes, A: formatAxes(a.axes), B: formatAxes(b.axes)})
	}

	d.Differences = append(d.Differences, diffHeaders(a.cards, b.cards, opts)...)

	switch a.kind {
	case kindImage:
		if sameAxes {
			d.Data = diffData(a.data, b.data, a.axes, opts)
		}
	default:
		if a.rows != b.rows || a.cols != b.cols {
			d.Differences = append(d.Differences, Difference{
				Kind: DiffTableShape,
				A:    fmt.Sprintf("%d rows x %d columns", a.rows, a.cols),
				B:    fmt.Sprintf("%d rows x %d columns", b.rows, b.cols),
			})
		}
	}
	return d
}

// cardGroups indexes the compared cards by keyword, keeping the order in
// which keywords first appear.
type cardGroups struct {
	order []string
	cards map[string][]fitsio.Card
}

func groupCards(cards []fitsio.Card, opts Options) cardGroups {
	g := cardGroups{cards: make(map[string][]fitsio.Card)}
	for _, card := range cards {
		name := strings.ToUpper(strings.TrimSpace(card.Name))
		if opts.ignoresKeyword(name) {
			continue
		}
		if opts.IgnoreBlankCards && isBlankCard(card) {
			continue
		}
		if _, ok := g.cards[name]; !ok {
			g.order = append(g.order, name)
		}
		g.cards[name] = append(g.cards[name], card)
	}
	return g
}

func isBlankCard(card fitsio.Card) bool {
	return strings.TrimSpace(card.Name) == "" && card.Value == nil && strings.TrimSpace(card.Comment) == ""
}

func diffHeaders(a, b []fitsio.Card, opts Options) []Difference {
	ga, gb := groupCards(a, opts), groupCards(b, opts)

	var diffs []Difference
	for _, name := range ga.order {
		if _, ok := gb.cards[name]; !ok {
			diffs = append(diffs, Difference{Kind: DiffKeywordOnlyA, Keyword: name, A: formatValue(ga.cards[name][0].Value)})
		}
	}
	for _, name := range gb.order {
		if _, ok := ga.cards[name]; !ok {
			diffs = append(diffs, Difference{Kind: DiffKeywordOnlyB, Keyword: name, B: formatValue(gb.cards[name][0].Value)})
		}
	}

	for _, name := range ga.order {
		ca, cb := ga.cards[name], gb.cards[name]
		if cb == nil {
			continue
		}
		if len(ca) != len(cb) {
			diffs = append(diffs, Difference{Kind: DiffKeywordCount, Keyword: name, A: strconv.Itoa(len(ca)), B: strconv.Itoa(len(cb))})
		}
		for i := 0; i < min(len(ca), len(cb)); i++ {
			if !valuesEqual(ca[i].Value, cb[i].Value, opts) {
				diffs = append(diffs, Difference{Kind: DiffKeywordValue, Keyword: name, A: formatValue(ca[i].Value), B: formatValue(cb[i].Value)})
			}
			if !opts.ignoresComment(name) && !commentsEqual(ca[i].Comment, cb[i].Comment, opts) {
				diffs = append(diffs, Difference{Kind: DiffKeywordComment, Keyword: name, A: ca[i].Comment, B: cb[i].Comment})
			}
		}
	}
	return diffs
}

func valuesEqual(a, b any, opts Options) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return closeEnough(fa, fb, opts.Tolerance)
	}
	sa, sb := formatValue(a), formatValue(b)
	if opts.IgnoreBlanks {
		sa, sb = strings.TrimRight(sa, " "), strings.TrimRight(sb, " ")
	}
	return sa == sb
}

func commentsEqual(a, b string, opts Options) bool {
	if opts.IgnoreBlanks {
		a, b = strings.TrimRight(a, " "), strings.TrimRight(b, " ")
	}
	return a == b
}

func closeEnough(a, b, tolerance float64) bool {
	if a == b {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= tolerance
}

func diffData(a, b []float64, axes []int, opts Options) DataDiff {
	d := DataDiff{Compared: min(len(a), len(b))}
	for i := 0; i < d.Compared; i++ {
		if closeEnough(a[i], b[i], opts.Tolerance) {
			continue
		}
		d.Count++
		if opts.MaxDiffs <= 0 || len(d.Samples) < opts.MaxDiffs {
			d.Samples = append(d.Samples, PixelDiff{Coord: coordinate(i, axes), A: a[i], B: b[i]})
		}
	}
	return d
}

// coordinate converts a flat index into 1-based FITS axis coordinates.
func coordinate(index int, axes []int) []int {
	coord := make([]int, len(axes))
	for k, n := range axes {
		if n <= 0 {
			continue
		}
		coord[k] = index%n + 1
		index /= n
	}
	return coord
}

func formatAxes(axes []int) string {
	parts := make([]string, len(axes))
	for i, n := range axes {
		parts[i] = strconv.Itoa(n)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
