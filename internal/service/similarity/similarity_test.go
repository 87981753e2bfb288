package similarity

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"flaw", "lawn", 2},
		{"আমি", "আমি", 0},
		// one Bengali code point substituted, not three UTF-8 bytes
		{"আমি", "তমি", 1},
	}

	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestWordOverlap_Identity(t *testing.T) {
	inputs := []string{"hello", "how are you", "আমি তোমাকে ভালোবাসি", "", "  "}
	for _, s := range inputs {
		if got := WordOverlap(s, s); got != 1 {
			t.Errorf("WordOverlap(%q, %q) = %f, want 1", s, s, got)
		}
	}
}

func TestWordOverlap_EmptyAgainstText(t *testing.T) {
	if got := WordOverlap("", "x"); got != 0 {
		t.Errorf("WordOverlap(\"\", \"x\") = %f, want 0", got)
	}
	if got := WordOverlap("x", ""); got != 0 {
		t.Errorf("WordOverlap(\"x\", \"\") = %f, want 0", got)
	}
}

func TestWordOverlap_Scores(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"reordered", "are you how", "how are you", 1},
		{"case insensitive", "Hello World", "hello world", 1},
		{"half", "one two", "one three", 0.5},
		{"longer b dominates", "one", "one two three four", 0.25},
		{"filler word", "send eight by ten", "please send eight by ten", 0.8},
		{"disjoint", "alpha beta", "gamma delta", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordOverlap(tt.a, tt.b); !almostEqual(got, tt.want) {
				t.Errorf("WordOverlap(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCharacter(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"kitten", "kitten", 1},
		{"kitten", "sitting", 1 - 3.0/7.0},
		{"", "x", 0},
		{"x", "", 0},
		{"", "", 1},
		{"abcd", "abce", 0.75},
	}

	for _, tt := range tests {
		if got := Character(tt.a, tt.b); !almostEqual(got, tt.want) {
			t.Errorf("Character(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCharacter_Range(t *testing.T) {
	pairs := [][2]string{
		{"a", "bbbbbbbb"},
		{"আমি", "hello"},
		{"8x10 10kg", "8x10 10 kg"},
	}
	for _, p := range pairs {
		got := Character(p[0], p[1])
		if got < 0 || got > 1 {
			t.Errorf("Character(%q, %q) = %f, outside [0,1]", p[0], p[1], got)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens("  Hello   WORLD\tআমি ")
	want := []string{"hello", "world", "আমি"}
	if len(got) != len(want) {
		t.Fatalf("Tokens() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tokens()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
