package order

import (
	"reflect"
	"regexp"
	"strings"
	"testing"
	"time"
)

var fixedTime = time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

func newTestExtractor(opts ...Option) *Extractor {
	return New(append([]Option{WithClock(func() time.Time { return fixedTime })}, opts...)...)
}

func TestExtract_Categories(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     []Category
		strategy string
	}{
		{
			name:  "single labeled run",
			input: "S1 8x10 10kg 16x20 5kg",
			want: []Category{
				{Name: "S1", Items: []Item{{"8x10", "10 kg"}, {"16x20", "5 kg"}}},
			},
			strategy: "labeled-runs",
		},
		{
			name:  "bengali digits and units",
			input: "চাল ৮x১০ ৫ কেজি আটা ১০×১২ ৩ কেজি",
			want: []Category{
				{Name: "চাল", Items: []Item{{"8x10", "5 kg"}}},
				{Name: "আটা", Items: []Item{{"10x12", "3 kg"}}},
			},
			strategy: "labeled-runs",
		},
		{
			name:  "spaced dimension and unit",
			input: "S1 8 x 10 10 kg",
			want: []Category{
				{Name: "S1", Items: []Item{{"8x10", "10 kg"}}},
			},
			strategy: "labeled-runs",
		},
		{
			name:  "colon after label",
			input: "Premium: 8x10 5kg, 10x12 3kg",
			want: []Category{
				{Name: "Premium", Items: []Item{{"8x10", "5 kg"}, {"10x12", "3 kg"}}},
			},
			strategy: "labeled-runs",
		},
		{
			name:  "bare dimension dropped",
			input: "S1 8x10 10x12 5kg",
			want: []Category{
				{Name: "S1", Items: []Item{{"10x12", "5 kg"}}},
			},
			strategy: "labeled-runs",
		},
		{
			name:  "leading items go to default category",
			input: "8x10 5kg S1 10x12 3kg",
			want: []Category{
				{Name: "Items", Items: []Item{{"8x10", "5 kg"}}},
				{Name: "S1", Items: []Item{{"10x12", "3 kg"}}},
			},
			strategy: "labeled-runs",
		},
		{
			name:  "same name merged case insensitively",
			input: "S1 8x10 5kg S2 10x12 3kg s1 16x20 2kg",
			want: []Category{
				{Name: "S1", Items: []Item{{"8x10", "5 kg"}, {"16x20", "2 kg"}}},
				{Name: "S2", Items: []Item{{"10x12", "3 kg"}}},
			},
			strategy: "labeled-runs",
		},
		{
			name:  "connectors skipped",
			input: "S1 8x10 5kg and 10x12 3kg then S2 16x20 1kg",
			want: []Category{
				{Name: "S1", Items: []Item{{"8x10", "5 kg"}, {"10x12", "3 kg"}}},
				{Name: "S2", Items: []Item{{"16x20", "1 kg"}}},
			},
			strategy: "labeled-runs",
		},
		{
			name:  "order input prefix stripped",
			input: "Order Input S1 8x10 5kg",
			want: []Category{
				{Name: "S1", Items: []Item{{"8x10", "5 kg"}}},
			},
			strategy: "labeled-runs",
		},
		{
			name:  "dimension joined by dash",
			input: "S1 8x10 - 5kg",
			want: []Category{
				{Name: "S1", Items: []Item{{"8x10", "5 kg"}}},
			},
			strategy: "labeled-runs",
		},
		{
			name:  "loose keyword switches to anchors",
			input: "big 8x10 5kg extra loose 3kg 10x12 2kg small 16x20 4kg",
			want: []Category{
				{Name: "big", Items: []Item{{"8x10", "5 kg"}, {"10x12", "2 kg"}}},
				{Name: "small", Items: []Item{{"16x20", "4 kg"}}},
			},
			strategy: "dense-anchor",
		},
		{
			name:  "labels listed up front",
			input: "big, small. big 8x10 5kg small 10x12 3kg",
			want: []Category{
				{Name: "big", Items: []Item{{"8x10", "5 kg"}}},
				{Name: "small", Items: []Item{{"10x12", "3 kg"}}},
			},
			strategy: "dense-anchor",
		},
		{
			name:  "unlabeled items",
			input: "8x10 5bags 10x12 3",
			want: []Category{
				{Name: "Items", Items: []Item{{"8x10", "5 kg"}, {"10x12", "3 kg"}}},
			},
			strategy: "flat",
		},
	}

	e := newTestExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.input)
			if !reflect.DeepEqual(got.Categories, tt.want) {
				t.Errorf("Extract(%q) categories = %+v, want %+v", tt.input, got.Categories, tt.want)
			}
			if got.Strategy != tt.strategy {
				t.Errorf("Extract(%q) strategy = %q, want %q", tt.input, got.Strategy, tt.strategy)
			}
		})
	}
}

func TestExtract_NothingExtractable(t *testing.T) {
	e := newTestExtractor()
	for _, input := range []string{"", "hello there", "loose 5kg", "S1: 10kg", "8x10"} {
		got := e.Extract(input)
		if !got.Empty() {
			t.Errorf("Extract(%q): expected zero categories, got %+v", input, got.Categories)
		}
		if got.Categories == nil {
			t.Errorf("Extract(%q): expected non-nil empty categories", input)
		}
		if got.Strategy != "" {
			t.Errorf("Extract(%q): expected no strategy, got %q", input, got.Strategy)
		}
	}
}

func TestExtract_DefaultUnit(t *testing.T) {
	input := "S1 8x10 10 16x20 5 pcs"

	got := newTestExtractor().Extract(input)
	want := []Item{{"8x10", "10 kg"}, {"16x20", "5 pcs"}}
	if !reflect.DeepEqual(got.Categories[0].Items, want) {
		t.Errorf("expected %+v, got %+v", want, got.Categories[0].Items)
	}

	got = newTestExtractor(WithDefaultUnit("pcs")).Extract(input)
	if q := got.Categories[0].Items[0].Quantity; q != "10 pcs" {
		t.Errorf("expected '10 pcs' with pcs default, got %q", q)
	}
}

func TestExtract_WithStrategies(t *testing.T) {
	e := newTestExtractor(WithStrategies(LabeledRuns, Flat))
	got := e.Extract("big 8x10 5kg extra loose 3kg 10x12 2kg small 16x20 4kg")

	want := []Category{
		{Name: "big", Items: []Item{{"8x10", "5 kg"}}},
		{Name: "extra", Items: []Item{{"10x12", "2 kg"}}},
		{Name: "small", Items: []Item{{"16x20", "4 kg"}}},
	}
	if !reflect.DeepEqual(got.Categories, want) {
		t.Errorf("expected %+v, got %+v", want, got.Categories)
	}

	flatOnly := newTestExtractor(WithStrategies(Flat), WithDefaultCategory("Order"))
	got = flatOnly.Extract("S1 8x10 5kg S2 10x12 3kg")
	if len(got.Categories) != 1 || got.Categories[0].Name != "Order" || len(got.Categories[0].Items) != 2 {
		t.Errorf("expected both items under 'Order', got %+v", got.Categories)
	}
}

func TestExtract_ItemInvariants(t *testing.T) {
	dimension := regexp.MustCompile(`^\d+x\d+$`)
	quantity := regexp.MustCompile(`^\d+(\.\d+)? \S+$`)

	inputs := []string{
		"S1 8x10 10kg 16x20 5kg",
		"S1 8 X 10 2.5 kilo 9×12 3 pieces",
		"big 8x10 5kg extra loose 3kg 10x12 2kg small 16x20 4kg",
		"৮x১০ ৫ কেজি",
		"order input Premium: 8x10 5kg, 10x12 3kg, 4x4",
	}

	e := newTestExtractor()
	for _, in := range inputs {
		o := e.Extract(in)
		if o.ItemCount() == 0 {
			t.Errorf("Extract(%q): expected items", in)
		}
		for _, c := range o.Categories {
			if len(c.Items) == 0 {
				t.Errorf("Extract(%q): empty category %q emitted", in, c.Name)
			}
			for _, it := range c.Items {
				if !dimension.MatchString(it.Dimension) {
					t.Errorf("Extract(%q): bad dimension %q", in, it.Dimension)
				}
				if !quantity.MatchString(it.Quantity) {
					t.Errorf("Extract(%q): quantity without unit %q", in, it.Quantity)
				}
			}
		}
	}
}

func TestExtract_FreshResult(t *testing.T) {
	e := newTestExtractor()

	first := e.Extract("S1 8x10 10kg")
	first.Categories[0].Items[0].Quantity = "mutated"

	second := e.Extract("S1 8x10 10kg")
	if second.Categories[0].Items[0].Quantity != "10 kg" {
		t.Errorf("expected independent result, got %q", second.Categories[0].Items[0].Quantity)
	}
	if !second.GeneratedAt.Equal(fixedTime) {
		t.Errorf("expected GeneratedAt from clock, got %v", second.GeneratedAt)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  order input   S1\t8×10  ", "S1 8x10"},
		{"০১২৩৪৫৬৭৮৯", "0123456789"},
		{"ORDER INPUT", ""},
		{"ordering input", "ordering input"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLex_LabelsMergeAcrossWords(t *testing.T) {
	chunks := newTestExtractor().lex("big red bag: 8x10 5kg")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].kind != chunkLabel || chunks[0].text != "big red bag" {
		t.Errorf("expected label 'big red bag', got %+v", chunks[0])
	}
	if chunks[1].kind != chunkColon {
		t.Errorf("expected colon, got %+v", chunks[1])
	}
	if chunks[2].kind != chunkItem || !strings.HasSuffix(chunks[2].item.Quantity, "kg") {
		t.Errorf("expected item with kg, got %+v", chunks[2])
	}
}
