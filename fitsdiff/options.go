package fitsdiff

import "strings"

// Options controls which differences are reported.
type Options struct {
	// IgnoreKeywords are header keywords excluded from comparison.
	IgnoreKeywords []string
	// IgnoreComments are keywords whose comments are not compared. "*"
	// disables comment comparison entirely.
	IgnoreComments []string
	// IgnoreBlanks drops trailing blanks from string values before comparing.
	IgnoreBlanks bool
	// IgnoreBlankCards skips cards with neither keyword, value nor comment.
	IgnoreBlankCards bool
	// Tolerance is the absolute difference allowed between numeric values.
	Tolerance float64
	// MaxDiffs caps the data differences listed in the report. The total
	// count is always reported.
	MaxDiffs int
}

// OSIRISOptions is the comparison used for OSIRIS pipeline products.
func OSIRISOptions() Options {
	return Options{
		IgnoreKeywords:   []string{"COMMENT"},
		IgnoreComments:   []string{"SIMPLE"},
		IgnoreBlanks:     true,
		IgnoreBlankCards: true,
		Tolerance:        1e-5,
		MaxDiffs:         10,
	}
}

func (o Options) ignoresKeyword(name string) bool {
	return containsFold(o.IgnoreKeywords, name)
}

func (o Options) ignoresComment(name string) bool {
	return containsFold(o.IgnoreComments, "*") || containsFold(o.IgnoreComments, name)
}

func containsFold(list []string, name string) bool {
	for _, s := range list {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}
