package order

import (
	"regexp"
	"strings"
)

// tokenPattern alternatives, tried left to right at every position:
// dimension, number, word, colon, any other single non-space rune.
var tokenPattern = regexp.MustCompile(
	`(\d+)\s*[xX]\s*(\d+)` +
		`|(\d+(?:\.\d+)?)` +
		`|([\p{L}\p{M}][\p{L}\p{M}\p{N}]*)` +
		`|(:)` +
		`|([^\s\p{L}\p{M}\p{N}:])`)

var whitespace = regexp.MustCompile(`\s+`)

const orderInputPrefix = "order input"

type tokenKind int

const (
	tokDimension tokenKind = iota
	tokNumber
	tokWord
	tokColon
	tokOther
)

type token struct {
	kind       tokenKind
	text       string
	start, end int
}

type chunkKind int

const (
	chunkLabel chunkKind = iota
	chunkItem
	chunkDimension
	chunkNumber
	chunkColon
	chunkLoose
	chunkBreak
)

type chunk struct {
	kind chunkKind
	text string
	item Item
}

func (c chunk) isDimension() bool {
	return c.kind == chunkItem || c.kind == chunkDimension
}

var unitWords = map[string]string{
	"kg":        "kg",
	"kgs":       "kg",
	"kilo":      "kg",
	"kilos":     "kg",
	"kilogram":  "kg",
	"kilograms": "kg",
	"কেজি":      "kg",
	"pc":        "pcs",
	"pcs":       "pcs",
	"piece":     "pcs",
	"pieces":    "pcs",
	"পিস":       "pcs",
}

// normalize maps Bengali digits and the multiplication sign to ASCII,
// collapses whitespace and drops a leading "order input" phrase.
func normalize(text string) string {
	s := strings.Map(func(r rune) rune {
		switch {
		case r >= '০' && r <= '৯':
			return '0' + (r - '০')
		case r == '×':
			return 'x'
		}
		return r
	}, text)
	s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))

	if len(s) >= len(orderInputPrefix) && strings.EqualFold(s[:len(orderInputPrefix)], orderInputPrefix) {
		s = strings.TrimSpace(s[len(orderInputPrefix):])
	}
	return s
}

func tokenize(s string) []token {
	matches := tokenPattern.FindAllStringSubmatchIndex(s, -1)
	tokens := make([]token, 0, len(matches))
	for _, m := range matches {
		t := token{start: m[0], end: m[1]}
		switch {
		case m[2] >= 0:
			t.kind = tokDimension
			t.text = s[m[2]:m[3]] + "x" + s[m[4]:m[5]]
		case m[6] >= 0:
			t.kind = tokNumber
			t.text = s[m[6]:m[7]]
		case m[8] >= 0:
			t.kind = tokWord
			t.text = s[m[8]:m[9]]
		case m[10] >= 0:
			t.kind = tokColon
			t.text = ":"
		default:
			t.kind = tokOther
			t.text = s[m[0]:m[1]]
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// lex turns normalized text into chunks. A dimension followed by a number
// becomes an item; a dimension that is not is kept as a bare dimension so
// it still anchors labels but never yields an item. Consecutive plain words
// merge into a single label.
func (e *Extractor) lex(text string) []chunk {
	toks := tokenize(normalize(text))
	chunks := make([]chunk, 0, len(toks))

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.kind {
		case tokDimension:
			j := i + 1
			if j < len(toks) && (toks[j].kind == tokColon || isJoiner(toks[j])) {
				j++
			}
			if j < len(toks) && toks[j].kind == tokNumber {
				qty, next := e.quantity(toks, j)
				chunks = append(chunks, chunk{kind: chunkItem, item: Item{Dimension: t.text, Quantity: qty}})
				i = next - 1
				continue
			}
			chunks = append(chunks, chunk{kind: chunkDimension, text: t.text})

		case tokNumber:
			qty, next := e.quantity(toks, i)
			chunks = append(chunks, chunk{kind: chunkNumber, text: qty})
			i = next - 1

		case tokWord:
			lw := strings.ToLower(t.text)
			switch {
			case e.connectors[lw]:
				chunks = append(chunks, chunk{kind: chunkBreak})
			case e.looseKeywords[lw]:
				chunks = append(chunks, chunk{kind: chunkLoose, text: t.text})
			case lw == "x" || unitWords[lw] != "":
				chunks = append(chunks, chunk{kind: chunkBreak})
			case i > 0 && toks[i-1].end == t.start && (toks[i-1].kind == tokNumber || toks[i-1].kind == tokDimension):
				// "10bags": a suffix glued to a number is not a label.
				chunks = append(chunks, chunk{kind: chunkBreak})
			case len(chunks) > 0 && chunks[len(chunks)-1].kind == chunkLabel:
				chunks[len(chunks)-1].text += " " + t.text
			default:
				chunks = append(chunks, chunk{kind: chunkLabel, text: t.text})
			}

		case tokColon:
			chunks = append(chunks, chunk{kind: chunkColon})

		default:
			chunks = append(chunks, chunk{kind: chunkBreak})
		}
	}
	return chunks
}

// quantity reads the number at toks[i] and an optional unit word after it.
// It returns the normalized quantity and the index of the next unread token.
func (e *Extractor) quantity(toks []token, i int) (string, int) {
	n := toks[i].text
	unit := e.defaultUnit
	next := i + 1
	if next < len(toks) && toks[next].kind == tokWord {
		if u, ok := unitWords[strings.ToLower(toks[next].text)]; ok {
			unit = u
			next++
		}
	}
	return n + " " + unit, next
}

func isJoiner(t token) bool {
	return t.kind == tokOther && (t.text == "-" || t.text == "=")
}
