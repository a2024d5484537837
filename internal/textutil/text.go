package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// Ellipsis is appended when text is truncated to a maximum length.
const Ellipsis = "…"

var (
	whitespacePattern   = regexp.MustCompile(`\s+`)
	sentenceEndPattern  = regexp.MustCompile(`(?:[.!?])\s+`)
	slugStripPattern    = regexp.MustCompile(`[^\w\s-]`)
	slugHyphenPattern   = regexp.MustCompile(`\s+`)
	caseFolder          = cases.Fold()
	fontNameNormalizer  = strings.NewReplacer(" ", "", "-", "")
)

// Collapse trims the string and collapses internal whitespace runs to a
// single space.
func Collapse(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

// Truncate collapses whitespace and shortens the text to at most max runes,
// replacing the tail with an ellipsis marker when it was cut.
func Truncate(s string, max int) string {
	value := Collapse(s)
	runes := []rune(value)
	if max <= 0 || len(runes) <= max {
		return value
	}
	cut := max - 1
	if cut < 1 {
		cut = 1
	}
	return strings.TrimRight(string(runes[:cut]), " ") + Ellipsis
}

// FirstSentence returns the first sentence of the collapsed text. Text with
// no sentence terminator is returned whole.
func FirstSentence(s string) string {
	value := Collapse(s)
	if value == "" {
		return ""
	}
	if loc := sentenceEndPattern.FindStringIndex(value); loc != nil {
		return Collapse(value[:loc[0]+1])
	}
	return value
}

// EstimateLines estimates how many lines text wraps to at the given
// characters-per-line budget. This is a heuristic: it assumes uniform glyph
// width and ignores word-break placement, so it over- or under-counts by
// roughly one line on mixed-width text.
func EstimateLines(text string, charsPerLine int) int {
	length := len([]rune(Collapse(text)))
	if length == 0 {
		return 0
	}
	if charsPerLine <= 0 {
		return 1
	}
	return (length-1)/charsPerLine + 1
}

// Slugify converts a heading into an anchor slug: case-folded, non-word
// characters (except hyphen and underscore) stripped, whitespace runs
// collapsed to single hyphens.
func Slugify(heading string) string {
	value := caseFolder.String(strings.TrimSpace(heading))
	value = slugStripPattern.ReplaceAllString(value, "")
	value = slugHyphenPattern.ReplaceAllString(strings.TrimSpace(value), "-")
	return strings.Trim(value, "-")
}

// Fold returns the Unicode case-folded form used for caseless comparisons.
func Fold(s string) string {
	return caseFolder.String(s)
}

// FoldContains reports whether text contains word under Unicode case folding.
func FoldContains(text, word string) bool {
	if strings.TrimSpace(word) == "" {
		return false
	}
	return strings.Contains(caseFolder.String(text), caseFolder.String(word))
}

// NormalizeFontName strips spaces and hyphens and case-folds a font family
// name so "Noto Sans KR" and "NotoSansKR-Regular" variants compare loosely.
func NormalizeFontName(name string) string {
	return caseFolder.String(fontNameNormalizer.Replace(strings.TrimSpace(name)))
}
