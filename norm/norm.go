// Package norm holds the string canonicalisation rules used everywhere a
// title, artist, or filename is compared against another.
package norm

import (
	"regexp"
	"strings"

	"github.com/rainycape/unidecode"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var dmp = diffmatchpatch.New()

var symbolReplacer = strings.NewReplacer(
	"_", " ",
	"(", " ",
	")", " ",
	"[", " ",
	"]", " ",
	"{", " ",
	"}", " ",
	"-", " ",
)

// Normalize lowercases, folds non ASCII letters, maps grouping symbols to
// spaces, and collapses whitespace runs. Normalize is idempotent.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = unidecode.Unidecode(text)
	text = strings.ToLower(text)
	text = symbolReplacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

var (
	trackNumExpr = regexp.MustCompile(`^\d+[.\-\s]+`)
	junkExpr     = regexp.MustCompile(`(?i)\(copy\)|\bunknown\b`)
)

// CleanFilename strips the extension, a leading track number prefix, and
// filesystem noise like "(copy)", then normalises what remains.
func CleanFilename(filename string) string {
	name := filename
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	name = trackNumExpr.ReplaceAllString(name, "")
	name = junkExpr.ReplaceAllString(name, " ")
	return Normalize(name)
}

// Similarity returns an edit distance based similarity in [0, 1] between the
// normalised forms of a and b. Two empty strings are considered identical.
func Similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1
	}
	if na == "" || nb == "" {
		return 0
	}
	diffs := dmp.DiffMain(na, nb, false)
	dist := dmp.DiffLevenshtein(diffs)
	maxLen := max(len([]rune(na)), len([]rune(nb)))
	return 1 - float64(dist)/float64(maxLen)
}
