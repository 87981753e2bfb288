// Package language classifies transcript text by script.
package language

import (
	"errors"
	"fmt"
	"strings"
)

// Tag identifies a supported language.
type Tag int

const (
	// English is also the classification of empty or script-less text.
	English Tag = iota
	// Bengali is detected by any code point in the Bengali block.
	Bengali
)

const (
	bengaliFirst = '\u0980'
	bengaliLast  = '\u09FF'
)

// ErrUnsupportedLanguage matches any *UnsupportedLanguageError.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// UnsupportedLanguageError is returned when a caller names a language
// outside the supported tags.
type UnsupportedLanguageError struct {
	Value string
}

func (e *UnsupportedLanguageError) Error() string {
	return fmt.Sprintf("unsupported language %q", e.Value)
}

// Is reports whether target is ErrUnsupportedLanguage.
func (e *UnsupportedLanguageError) Is(target error) bool {
	return target == ErrUnsupportedLanguage
}

// Detect returns Bengali if text contains at least one Bengali code point
// and English otherwise.
func Detect(text string) Tag {
	for _, r := range text {
		if r >= bengaliFirst && r <= bengaliLast {
			return Bengali
		}
	}
	return English
}

// ParseTag accepts a language code, a BCP 47 tag with region, or the
// English name of a supported language.
func ParseTag(s string) (Tag, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if base, _, ok := strings.Cut(v, "-"); ok {
		v = base
	}
	switch v {
	case "bn", "bengali", "bangla":
		return Bengali, nil
	case "en", "english":
		return English, nil
	}
	return English, &UnsupportedLanguageError{Value: s}
}

// Code returns the ISO 639-1 code.
func (t Tag) Code() string {
	switch t {
	case Bengali:
		return "bn"
	case English:
		return "en"
	default:
		return ""
	}
}

// Delimiter returns the sentence delimiter used when reassembling text.
func (t Tag) Delimiter() string {
	if t == Bengali {
		return "।"
	}
	return "."
}

// Valid reports whether t is a supported tag.
func (t Tag) Valid() bool {
	return t == Bengali || t == English
}

// String returns the upper-case name of the tag.
func (t Tag) String() string {
	switch t {
	case Bengali:
		return "BENGALI"
	case English:
		return "ENGLISH"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(t))
	}
}

// MarshalText encodes the tag as its language code.
func (t Tag) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, &UnsupportedLanguageError{Value: t.String()}
	}
	return []byte(t.Code()), nil
}

// UnmarshalText decodes anything ParseTag accepts.
func (t *Tag) UnmarshalText(b []byte) error {
	parsed, err := ParseTag(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
