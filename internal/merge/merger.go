// Package merge reconciles per-window transcriptions into one continuous
// transcript, removing the words duplicated at each overlap boundary
// exactly once.
package merge

import (
	"regexp"
	"strings"
)

// maxOverlapWords bounds the overlap search; windows overlap by a few
// seconds, so duplicated runs longer than this do not occur in practice.
const maxOverlapWords = 20

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	bracketRe     = regexp.MustCompile(`\[.*?\]`)
	parenthesisRe = regexp.MustCompile(`\(.*?\)`)
)

// ChunkInfo identifies the window a piece of text was transcribed from.
type ChunkInfo struct {
	Index     int
	StartTime float64
	EndTime   float64
}

// Record is the permanent audit entry for one merged chunk. Records are
// append-only; later merges never rewrite earlier entries.
type Record struct {
	Chunk             ChunkInfo
	OriginalText      string
	UniqueText        string
	AccumulatedLength int
}

// Stats summarizes a merger's state for downstream consumers.
type Stats struct {
	ChunkCount     int
	FinalLength    int
	FinalWordCount int
	Records        []Record
}

// Merger incrementally builds one transcript from overlapping chunk texts.
// Correctness depends on Merge being called in ascending chunk order: the
// overlap search assumes each new text immediately follows the accumulated
// tail. The caller owns that ordering; out-of-order merging silently
// produces a wrong transcript. A Merger is single-writer and must not be
// shared across goroutines.
type Merger struct {
	accumulated string
	records     []Record
	matcher     *Matcher
}

// NewMerger returns an empty merger using the default shorthand table.
func NewMerger() *Merger {
	return &Merger{matcher: NewMatcher(nil)}
}

// NewMergerWithMatcher returns an empty merger using a custom matcher.
func NewMergerWithMatcher(m *Matcher) *Merger {
	if m == nil {
		m = NewMatcher(nil)
	}
	return &Merger{matcher: m}
}

// Merge folds one chunk's text into the transcript and returns the unique
// contribution that was appended. Whitespace-only input is a no-op: it
// returns an empty string, leaves state unchanged, and appends no record.
// Input that becomes empty after annotation stripping is still recorded,
// matching the audit trail's one-record-per-transcribed-chunk shape.
func (g *Merger) Merge(newText string, info ChunkInfo) string {
	if strings.TrimSpace(newText) == "" {
		return ""
	}

	newText = CleanText(newText)

	var unique string
	if g.accumulated == "" {
		g.accumulated = newText
		unique = newText
	} else {
		unique = g.removeOverlap(newText)
		if unique != "" {
			g.accumulated += " " + unique
		}
	}

	g.records = append(g.records, Record{
		Chunk:             info,
		OriginalText:      newText,
		UniqueText:        unique,
		AccumulatedLength: len(g.accumulated),
	})

	return unique
}

// FinalTranscript returns the accumulated transcript.
func (g *Merger) FinalTranscript() string {
	return g.accumulated
}

// Stats returns counts and the per-chunk audit records. The record slice is
// copied so callers cannot disturb the history.
func (g *Merger) Stats() Stats {
	records := make([]Record, len(g.records))
	copy(records, g.records)
	return Stats{
		ChunkCount:     len(g.records),
		FinalLength:    len(g.accumulated),
		FinalWordCount: len(strings.Fields(g.accumulated)),
		Records:        records,
	}
}

// CleanText collapses repeated whitespace and strips bracketed or
// parenthesized annotations such as "[music]" that recognizers emit for
// non-speech audio. Applied once per chunk, never re-applied to
// accumulated text.
func CleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	text = bracketRe.ReplaceAllString(text, "")
	text = parenthesisRe.ReplaceAllString(text, "")
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// removeOverlap drops the leading words of newText that duplicate the tail
// of the accumulated transcript.
func (g *Merger) removeOverlap(newText string) string {
	accumulated := strings.Fields(g.accumulated)
	next := strings.Fields(newText)
	if len(accumulated) == 0 || len(next) == 0 {
		return newText
	}

	overlap := g.matcher.BestOverlap(accumulated, next, maxOverlapWords)
	if overlap > 0 {
		return strings.Join(next[overlap:], " ")
	}
	return newText
}
