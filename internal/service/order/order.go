// Package order extracts structured business orders (categories of
// dimension/quantity items) from cleaned transcript text.
package order

import (
	"strings"
	"time"
)

const (
	// DefaultUnit is attached to quantities spoken without a unit.
	DefaultUnit = "kg"
	// DefaultCategory holds items that precede any label.
	DefaultCategory = "Items"
)

var (
	defaultConnectors    = []string{"and", "then", "also", "plus", "আর", "এবং", "তারপর"}
	defaultLooseKeywords = []string{"loose", "লুজ"}
)

// Item is one line of an order. Dimension is "{w}x{h}"; Quantity is
// "{n} {unit}".
type Item struct {
	Dimension string `json:"dimension"`
	Quantity  string `json:"quantity"`
}

// Category is a named group of items. Extract never emits an empty one.
type Category struct {
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// StructuredOrder is the result of one extraction. Zero categories means
// nothing could be extracted.
type StructuredOrder struct {
	Categories  []Category `json:"categories"`
	GeneratedAt time.Time  `json:"generatedAt"`
	Strategy    string     `json:"strategy,omitempty"`
}

// Empty reports whether no items were extracted.
func (o StructuredOrder) Empty() bool {
	return len(o.Categories) == 0
}

// ItemCount returns the number of items across all categories.
func (o StructuredOrder) ItemCount() int {
	n := 0
	for _, c := range o.Categories {
		n += len(c.Items)
	}
	return n
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithDefaultUnit sets the unit given to quantities spoken without one.
func WithDefaultUnit(unit string) Option {
	return func(e *Extractor) {
		if unit = strings.TrimSpace(unit); unit != "" {
			e.defaultUnit = unit
		}
	}
}

// WithDefaultCategory names the category for items not under any label.
func WithDefaultCategory(name string) Option {
	return func(e *Extractor) {
		if name = strings.TrimSpace(name); name != "" {
			e.defaultCategory = name
		}
	}
}

// WithClock overrides the source of GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// WithStrategies replaces the ordered strategy list.
func WithStrategies(strategies ...Strategy) Option {
	return func(e *Extractor) {
		e.strategies = strategies
	}
}

// WithLooseKeywords replaces the words that mark a loose quantity.
func WithLooseKeywords(words ...string) Option {
	return func(e *Extractor) {
		e.looseKeywords = wordSet(words)
	}
}

// WithConnectors replaces the filler words skipped between labels.
func WithConnectors(words ...string) Option {
	return func(e *Extractor) {
		e.connectors = wordSet(words)
	}
}

// Extractor is safe for concurrent use.
type Extractor struct {
	defaultUnit     string
	defaultCategory string
	now             func() time.Time
	strategies      []Strategy
	looseKeywords   map[string]bool
	connectors      map[string]bool
}

// New returns an Extractor with the default strategies, overridden by opts.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		defaultUnit:     DefaultUnit,
		defaultCategory: DefaultCategory,
		now:             time.Now,
		strategies:      DefaultStrategies(),
		looseKeywords:   wordSet(defaultLooseKeywords),
		connectors:      wordSet(defaultConnectors),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract parses text into a new StructuredOrder. Strategies are tried in
// order and the first one producing at least one item wins. It never fails;
// text without any dimension/quantity pair yields zero categories.
func (e *Extractor) Extract(text string) StructuredOrder {
	chunks := e.lex(text)
	o := StructuredOrder{
		Categories:  []Category{},
		GeneratedAt: e.now(),
	}
	for _, s := range e.strategies {
		cats := s.apply(e, chunks)
		if len(cats) > 0 {
			o.Categories = cats
			o.Strategy = s.Name
			break
		}
	}
	return o
}

func wordSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = true
	}
	return set
}

// categoryBuilder collects items per category in first-seen order and
// merges categories whose names differ only in case.
type categoryBuilder struct {
	index map[string]int
	cats  []Category
}

func newCategoryBuilder() *categoryBuilder {
	return &categoryBuilder{index: make(map[string]int)}
}

func (b *categoryBuilder) add(name string, item Item) {
	key := strings.ToLower(name)
	i, ok := b.index[key]
	if !ok {
		i = len(b.cats)
		b.index[key] = i
		b.cats = append(b.cats, Category{Name: name})
	}
	b.cats[i].Items = append(b.cats[i].Items, item)
}

func (b *categoryBuilder) result() []Category {
	return b.cats
}
