// Package repetition removes recognition-induced duplication from
// transcript text.
//
// Suppression runs in two passes:
//
//  1. Word pass: a word equal (case-insensitively) to the previous
//     retained word is dropped, collapsing stutter such as "how how".
//  2. Phrase pass: a segment is discarded when it is a character-level
//     near copy of the segment retained just before it, or when its word
//     overlap with any retained segment exceeds the threshold.
//
// Both passes work on sentence segments, so a word carrying a delimiter
// never collapses into the next sentence. The retained segments are joined
// with the delimiter of their detected language. Language is detected
// after suppression; together this makes Suppress a no-op on its own
// output.
package repetition

import (
	"regexp"
	"strings"

	"voice-order-service/internal/service/language"
	"voice-order-service/internal/service/similarity"
)

const (
	// DefaultThreshold is the word-overlap score above which a segment is
	// treated as a restatement of an earlier one. Tuned empirically.
	DefaultThreshold = 0.7
	// DefaultStutterThreshold is the character similarity above which a
	// segment is treated as a stuttered copy of the one just before it.
	DefaultStutterThreshold = 0.85
)

var sentenceDelimiters = regexp.MustCompile(`[।.!?]+`)

// Option configures a Suppressor.
type Option func(*Suppressor)

// WithThreshold sets the word-overlap threshold for cross-segment
// deduplication. Default: 0.7.
func WithThreshold(threshold float64) Option {
	return func(s *Suppressor) {
		s.threshold = threshold
	}
}

// WithStutterThreshold sets the character-similarity threshold used against
// the immediately preceding retained segment. Default: 0.85.
func WithStutterThreshold(threshold float64) Option {
	return func(s *Suppressor) {
		s.stutterThreshold = threshold
	}
}

// Suppressor is safe for concurrent use; it is read-only after
// construction.
type Suppressor struct {
	threshold        float64
	stutterThreshold float64
}

// Result is the outcome of SuppressDetailed.
type Result struct {
	Text            string
	Language        language.Tag
	WordsDropped    int
	SegmentsKept    int
	SegmentsDropped int
}

// New returns a Suppressor with default thresholds overridden by opts.
func New(opts ...Option) *Suppressor {
	s := &Suppressor{
		threshold:        DefaultThreshold,
		stutterThreshold: DefaultStutterThreshold,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Threshold returns the word-overlap threshold.
func (s *Suppressor) Threshold() float64 {
	return s.threshold
}

// Suppress returns text with stutter and near-duplicate segments removed.
func (s *Suppressor) Suppress(text string) string {
	return s.SuppressDetailed(text).Text
}

// SuppressDetailed is Suppress with counters for observability.
func (s *Suppressor) SuppressDetailed(text string) Result {
	var res Result
	var kept []string
	for _, seg := range sentenceDelimiters.Split(text, -1) {
		segWords, n := collapse(strings.Fields(seg))
		res.WordsDropped += n
		if len(segWords) == 0 {
			continue
		}
		candidate := strings.Join(segWords, " ")
		if s.isRepeat(candidate, kept) {
			res.SegmentsDropped++
			continue
		}
		kept = append(kept, candidate)
	}
	res.SegmentsKept = len(kept)

	if len(kept) == 0 {
		res.Language = language.Detect("")
		return res
	}

	res.Language = language.Detect(strings.Join(kept, " "))
	delim := res.Language.Delimiter()
	res.Text = strings.Join(kept, delim+" ") + delim
	return res
}

func (s *Suppressor) isRepeat(candidate string, kept []string) bool {
	if len(kept) == 0 {
		return false
	}
	if similarity.Character(candidate, kept[len(kept)-1]) > s.stutterThreshold {
		return true
	}
	for _, k := range kept {
		if similarity.WordOverlap(candidate, k) > s.threshold {
			return true
		}
	}
	return false
}

// CollapseWords applies only the word pass: consecutive case-insensitive
// duplicates are reduced to their first occurrence and the result is
// single-space joined.
func CollapseWords(text string) string {
	words, _ := collapse(strings.Fields(text))
	return strings.Join(words, " ")
}

func collapse(words []string) ([]string, int) {
	out := make([]string, 0, len(words))
	prev := ""
	dropped := 0
	for _, w := range words {
		folded := similarity.Fold(w)
		if len(out) > 0 && folded == prev {
			dropped++
			continue
		}
		out = append(out, w)
		prev = folded
	}
	return out, dropped
}
