package transcript

import (
	"errors"
	"testing"
)

func TestAccumulator_FinalFragmentsAreSpaceJoined(t *testing.T) {
	acc := NewAccumulator()

	fragments := []Fragment{
		{Text: "  hello ", IsFinal: true, SequenceIndex: 0},
		{Text: "world", IsFinal: true, SequenceIndex: 1},
	}
	for _, f := range fragments {
		if err := acc.OnFragment(f); err != nil {
			t.Fatalf("OnFragment(%d): unexpected error: %v", f.SequenceIndex, err)
		}
	}

	if got := acc.Raw(); got != "hello world" {
		t.Errorf("expected raw 'hello world', got %q", got)
	}
}

func TestAccumulator_InterimIsReplacedNotAppended(t *testing.T) {
	acc := NewAccumulator()

	acc.OnFragment(Fragment{Text: "hel", SequenceIndex: 0})
	acc.OnFragment(Fragment{Text: "hello wor", SequenceIndex: 1})

	if got := acc.Interim(); got != "hello wor" {
		t.Errorf("expected interim 'hello wor', got %q", got)
	}
	if got := acc.Raw(); got != "" {
		t.Errorf("raw must not contain interim text, got %q", got)
	}

	acc.OnFragment(Fragment{Text: "hello world", IsFinal: true, SequenceIndex: 2})

	if got := acc.Raw(); got != "hello world" {
		t.Errorf("expected raw 'hello world', got %q", got)
	}
	if got := acc.Interim(); got != "" {
		t.Errorf("expected interim cleared by final, got %q", got)
	}
}

func TestAccumulator_RejectsDuplicateIndex(t *testing.T) {
	acc := NewAccumulator()

	indices := []int{0, 1, 1, 2}
	texts := []string{"a", "b", "b", "c"}
	var staleCount int

	for i, idx := range indices {
		err := acc.OnFragment(Fragment{Text: texts[i], IsFinal: true, SequenceIndex: idx})
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrStaleFragment) {
			t.Fatalf("expected ErrStaleFragment, got %v", err)
		}
		var stale *StaleFragmentError
		if !errors.As(err, &stale) {
			t.Fatalf("expected *StaleFragmentError, got %T", err)
		}
		if stale.Index != 1 || stale.LastIndex != 1 {
			t.Errorf("unexpected stale error fields: %+v", stale)
		}
		staleCount++
	}

	if staleCount != 1 {
		t.Errorf("expected exactly 1 stale fragment, got %d", staleCount)
	}
	if got := acc.Raw(); got != "a b c" {
		t.Errorf("expected raw 'a b c', got %q", got)
	}
}

func TestAccumulator_RejectsOutOfOrder(t *testing.T) {
	acc := NewAccumulator()

	if err := acc.OnFragment(Fragment{Text: "five", IsFinal: true, SequenceIndex: 5}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := acc.OnFragment(Fragment{Text: "three", IsFinal: true, SequenceIndex: 3}); !errors.Is(err, ErrStaleFragment) {
		t.Errorf("expected ErrStaleFragment for lower index, got %v", err)
	}
	if err := acc.OnFragment(Fragment{Text: "interim", SequenceIndex: 4}); !errors.Is(err, ErrStaleFragment) {
		t.Errorf("expected ErrStaleFragment for stale interim, got %v", err)
	}
	if got := acc.Interim(); got != "" {
		t.Errorf("stale interim must not be applied, got %q", got)
	}
	if got := acc.Raw(); got != "five" {
		t.Errorf("expected raw 'five', got %q", got)
	}
}

func TestAccumulator_GapsAllowed(t *testing.T) {
	acc := NewAccumulator()

	for _, idx := range []int{0, 3, 10} {
		if err := acc.OnFragment(Fragment{Text: "x", IsFinal: true, SequenceIndex: idx}); err != nil {
			t.Fatalf("index %d: unexpected error: %v", idx, err)
		}
	}

	last, ok := acc.LastIndex()
	if !ok || last != 10 {
		t.Errorf("expected last index 10, got %d (applied=%v)", last, ok)
	}
}

func TestAccumulator_EmptyFinalAppendsNothing(t *testing.T) {
	acc := NewAccumulator()

	acc.OnFragment(Fragment{Text: "one", IsFinal: true, SequenceIndex: 0})
	acc.OnFragment(Fragment{Text: "   ", IsFinal: true, SequenceIndex: 1})
	acc.OnFragment(Fragment{Text: "two", IsFinal: true, SequenceIndex: 2})

	if got := acc.Raw(); got != "one two" {
		t.Errorf("expected raw 'one two', got %q", got)
	}
}

func TestAccumulator_Reset(t *testing.T) {
	acc := NewAccumulator()

	acc.OnFragment(Fragment{Text: "one", IsFinal: true, SequenceIndex: 7})
	acc.OnFragment(Fragment{Text: "tw", SequenceIndex: 8})
	acc.Reset()

	if buf := acc.Buffer(); buf.Raw != "" || buf.Interim != "" {
		t.Errorf("expected empty buffer after reset, got %+v", buf)
	}
	if _, ok := acc.LastIndex(); ok {
		t.Error("expected no applied index after reset")
	}

	// A new recording starts numbering from zero again.
	if err := acc.OnFragment(Fragment{Text: "fresh", IsFinal: true, SequenceIndex: 0}); err != nil {
		t.Fatalf("unexpected error after reset: %v", err)
	}
	if got := acc.Raw(); got != "fresh" {
		t.Errorf("expected raw 'fresh', got %q", got)
	}
}
