package merge

import "strings"

// wordPunct is trimmed from both ends of a word before comparison.
const wordPunct = `.,!?:;"`

// DefaultVariants maps canonical words to shorthand spellings that speech
// recognizers emit interchangeably at chunk boundaries.
func DefaultVariants() map[string][]string {
	return map[string][]string{
		"and": {"&", "n"},
		"to":  {"2", "too"},
		"for": {"4", "fore"},
		"you": {"u"},
		"are": {"r"},
		"see": {"c"},
		"be":  {"b"},
	}
}

// Matcher judges word and sequence similarity for overlap detection. The
// variant table is data rather than hard-coded branches so deployments can
// extend it.
type Matcher struct {
	variants map[string][]string

	// minSequenceSimilarity is the fraction of position-wise similar words
	// required for a candidate overlap to match.
	minSequenceSimilarity float64

	// charOverlapThreshold is the character-overlap ratio above which two
	// longer words are judged similar.
	charOverlapThreshold float64
}

// NewMatcher builds a Matcher with the given variant table. A nil table
// falls back to DefaultVariants.
func NewMatcher(variants map[string][]string) *Matcher {
	if variants == nil {
		variants = DefaultVariants()
	}
	return &Matcher{
		variants:              variants,
		minSequenceSimilarity: 0.7,
		charOverlapThreshold:  0.8,
	}
}

// BestOverlap searches candidate overlap lengths from
// min(len(accumulated), len(next), maxLen) down to 1, comparing the tail of
// the accumulated words against the head of the new words, and returns the
// first (largest) length whose position-wise similarity reaches the
// sequence threshold. Zero means no overlap is assumed.
func (m *Matcher) BestOverlap(accumulated, next []string, maxLen int) int {
	max := len(accumulated)
	if len(next) < max {
		max = len(next)
	}
	if maxLen < max {
		max = maxLen
	}

	for length := max; length >= 1; length-- {
		tail := accumulated[len(accumulated)-length:]
		head := next[:length]
		if m.sequencesMatch(tail, head) {
			return length
		}
	}
	return 0
}

func (m *Matcher) sequencesMatch(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	matches := 0
	for i := range a {
		if m.WordsSimilar(a[i], b[i]) {
			matches++
		}
	}
	return float64(matches)/float64(len(a)) >= m.minSequenceSimilarity
}

// WordsSimilar reports whether two words are judged to be the same spoken
// word. Words are case-folded and stripped of surrounding punctuation, then
// compared exactly, against the variant table, and finally (for words longer
// than 3 characters) by character-overlap ratio. Short words that are not
// exact or variant matches are never fuzzy-matched.
func (m *Matcher) WordsSimilar(word1, word2 string) bool {
	w1 := strings.Trim(strings.ToLower(word1), wordPunct)
	w2 := strings.Trim(strings.ToLower(word2), wordPunct)

	if w1 == w2 {
		return true
	}

	for standard, variants := range m.variants {
		if (w1 == standard && contains(variants, w2)) || (w2 == standard && contains(variants, w1)) {
			return true
		}
	}

	if len(w1) <= 3 || len(w2) <= 3 {
		return false
	}

	return charOverlapRatio(w1, w2) > m.charOverlapThreshold
}

// charOverlapRatio counts characters of s1 that appear anywhere in s2,
// divided by the longer word's length. Order and multiplicity are
// ignored; overlap detection is tuned against this exact definition.
func charOverlapRatio(s1, s2 string) float64 {
	if s1 == "" || s2 == "" {
		return 0
	}
	r1 := []rune(s1)
	r2 := []rune(s2)

	common := 0
	for _, c := range r1 {
		if strings.ContainsRune(s2, c) {
			common++
		}
	}

	longer := len(r1)
	if len(r2) > longer {
		longer = len(r2)
	}
	return float64(common) / float64(longer)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
