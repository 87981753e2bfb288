// Package transcript merges streaming recognition results into a stable
// raw-text buffer.
package transcript

import (
	"errors"
	"fmt"
	"strings"
)

// Fragment is one incremental recognition result, final or interim.
type Fragment struct {
	Text          string `json:"text"`
	IsFinal       bool   `json:"isFinal"`
	SequenceIndex int    `json:"sequenceIndex"`
}

// Buffer is a point-in-time copy of the accumulated text.
type Buffer struct {
	Raw     string `json:"raw"`
	Interim string `json:"interim"`
}

// ErrStaleFragment matches any *StaleFragmentError.
var ErrStaleFragment = errors.New("stale fragment")

// StaleFragmentError reports a fragment whose sequence index is not
// greater than the last applied one. Recognisers redeliver their last
// final result after an automatic restart; this is how the duplicate is
// caught.
type StaleFragmentError struct {
	Index     int
	LastIndex int
}

func (e *StaleFragmentError) Error() string {
	return fmt.Sprintf("stale fragment: index %d not after last applied %d", e.Index, e.LastIndex)
}

// Is reports whether target is ErrStaleFragment.
func (e *StaleFragmentError) Is(target error) bool {
	return target == ErrStaleFragment
}

// Accumulator owns the raw and interim text for one recording session.
// It is not safe for concurrent use; the owning session serialises calls.
type Accumulator struct {
	raw       strings.Builder
	interim   string
	lastIndex int
	applied   bool
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// OnFragment applies f. Final text is trimmed and appended to the raw
// buffer with a single separating space and clears the interim text;
// interim text replaces the previous interim text. Fragments must arrive
// with strictly increasing sequence indices, gaps allowed.
func (a *Accumulator) OnFragment(f Fragment) error {
	if a.applied && f.SequenceIndex <= a.lastIndex {
		return &StaleFragmentError{Index: f.SequenceIndex, LastIndex: a.lastIndex}
	}
	a.applied = true
	a.lastIndex = f.SequenceIndex

	if !f.IsFinal {
		a.interim = f.Text
		return nil
	}

	a.interim = ""
	text := strings.TrimSpace(f.Text)
	if text == "" {
		return nil
	}
	if a.raw.Len() > 0 {
		a.raw.WriteByte(' ')
	}
	a.raw.WriteString(text)
	return nil
}

// Raw returns the concatenation of all final fragments.
func (a *Accumulator) Raw() string {
	return a.raw.String()
}

// Interim returns the latest non-final text.
func (a *Accumulator) Interim() string {
	return a.interim
}

// Buffer returns both fields.
func (a *Accumulator) Buffer() Buffer {
	return Buffer{Raw: a.raw.String(), Interim: a.interim}
}

// LastIndex returns the last applied sequence index and whether any
// fragment has been applied since the last reset.
func (a *Accumulator) LastIndex() (int, bool) {
	return a.lastIndex, a.applied
}

// Reset clears the buffer and the sequence tracking. Call it at the start of
// every recording session.
func (a *Accumulator) Reset() {
	a.raw.Reset()
	a.interim = ""
	a.lastIndex = 0
	a.applied = false
}
