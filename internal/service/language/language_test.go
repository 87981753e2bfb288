package language

import (
	"errors"
	"testing"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Tag
	}{
		{"empty", "", English},
		{"english", "hello there", English},
		{"bengali", "আমি তোমাকে ভালোবাসি", Bengali},
		{"mixed english first", "hello আমি", Bengali},
		{"single bengali digit", "order ৫", Bengali},
		{"devanagari danda only", "hello।", English},
		{"digits and dimensions", "8x10 10kg", English},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestDetect_Deterministic(t *testing.T) {
	inputs := []string{"", "abc", "আমি", "x আ y", "\u09FF", "\u0980", "\u097F"}
	for _, in := range inputs {
		first := Detect(in)
		if !first.Valid() {
			t.Fatalf("Detect(%q) returned invalid tag %v", in, first)
		}
		for i := 0; i < 10; i++ {
			if got := Detect(in); got != first {
				t.Fatalf("Detect(%q) not deterministic: %v then %v", in, first, got)
			}
		}
	}
}

func TestDetect_BlockBoundaries(t *testing.T) {
	if Detect("\u0980") != Bengali {
		t.Error("U+0980 should classify as Bengali")
	}
	if Detect("\u09FF") != Bengali {
		t.Error("U+09FF should classify as Bengali")
	}
	if Detect("\u097F") != English {
		t.Error("U+097F should not classify as Bengali")
	}
	if Detect("\u0A00") != English {
		t.Error("U+0A00 should not classify as Bengali")
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		input string
		want  Tag
	}{
		{"bn", Bengali},
		{"bn-IN", Bengali},
		{"Bengali", Bengali},
		{"en", English},
		{"en-US", English},
		{" ENGLISH ", English},
	}

	for _, tt := range tests {
		got, err := ParseTag(tt.input)
		if err != nil {
			t.Errorf("ParseTag(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTag(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseTag_Unsupported(t *testing.T) {
	for _, input := range []string{"hi", "fr-FR", "", "klingon"} {
		_, err := ParseTag(input)
		if !errors.Is(err, ErrUnsupportedLanguage) {
			t.Errorf("ParseTag(%q): expected ErrUnsupportedLanguage, got %v", input, err)
		}
	}
}

func TestTag_Delimiter(t *testing.T) {
	if got := Bengali.Delimiter(); got != "।" {
		t.Errorf("Bengali delimiter = %q, want %q", got, "।")
	}
	if got := English.Delimiter(); got != "." {
		t.Errorf("English delimiter = %q, want %q", got, ".")
	}
}

func TestTag_TextRoundTrip(t *testing.T) {
	for _, tag := range []Tag{Bengali, English} {
		b, err := tag.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", tag, err)
		}
		var got Tag
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", b, err)
		}
		if got != tag {
			t.Errorf("round trip %v -> %s -> %v", tag, b, got)
		}
	}

	if _, err := Tag(42).MarshalText(); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage for invalid tag, got %v", err)
	}
}

func TestTag_String(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{Bengali, "BENGALI"},
		{English, "ENGLISH"},
		{Tag(9), "UNKNOWN(9)"},
	}
	for _, tt := range tests {
		if got := tt.tag.String(); got != tt.want {
			t.Errorf("Tag(%d).String() = %q, want %q", int(tt.tag), got, tt.want)
		}
	}
}
