package dedup

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var (
	urlRegex        = regexp.MustCompile(`https?://\S+`)
	nonWordRegex    = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	bareNumberRegex = regexp.MustCompile(`\b\d+\b`)
	entityRunRegex  = regexp.MustCompile(`\b\p{Lu}[\p{Ll}]+(?:\s+\p{Lu}[\p{Ll}]+){0,3}\b`)
)

// fold returns a case-folded copy. A cases.Caser is stateful, so a fresh one
// is taken per call instead of sharing a package-level instance.
func fold(s string) string {
	return cases.Fold().String(s)
}

// Spanish and English high-frequency words stripped before comparison.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "are": {}, "was": {}, "has": {},
	"una": {}, "para": {}, "con": {}, "por": {}, "los": {}, "las": {},
	"del": {}, "que": {}, "como": {}, "sus": {},
}

// Action keywords that mark a business event; shared keywords count toward
// entity overlap across differently phrased headlines.
var actionKeywords = []string{
	"adquisición", "fusión", "inversión", "expansión", "lanzamiento",
	"acquisition", "merger", "investment", "expansion", "launch",
	"venture", "partnership", "transformación", "digital",
}

// Normalize case-folds the text, strips URLs, punctuation, standalone
// numbers, very short words, and stop words, and collapses whitespace.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = fold(text)
	text = urlRegex.ReplaceAllString(text, "")
	text = nonWordRegex.ReplaceAllString(text, " ")
	text = bareNumberRegex.ReplaceAllString(text, "")

	words := strings.Fields(text)
	kept := words[:0]

	for _, w := range words {
		if len([]rune(w)) <= 2 {
			continue
		}

		if _, stop := stopWords[w]; stop {
			continue
		}

		kept = append(kept, w)
	}

	return strings.Join(kept, " ")
}

// ExtractEntities pulls key entities from raw text: runs of capitalized words
// (company names) plus any action keywords present.
func ExtractEntities(text string) map[string]struct{} {
	entities := make(map[string]struct{})

	for _, run := range entityRunRegex.FindAllString(text, -1) {
		if len([]rune(run)) > 4 {
			entities[fold(run)] = struct{}{}
		}
	}

	lower := fold(text)
	for _, kw := range actionKeywords {
		if strings.Contains(lower, kw) {
			entities[kw] = struct{}{}
		}
	}

	return entities
}

// TokenSimilarity computes the Sørensen–Dice coefficient over the token sets
// of two normalized strings, in [0,1].
func TokenSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	setA := tokenSet(a)
	setB := tokenSet(b)

	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0

	for tok := range setA {
		if _, ok := setB[tok]; ok {
			shared++
		}
	}

	return 2 * float64(shared) / float64(len(setA)+len(setB))
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(s) {
		set[tok] = struct{}{}
	}

	return set
}
