package segment

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
)

const recordingSep = "-rec-"

// Generator issues recording ids of the form "{sessionId}-rec-{n}". The
// counter is shared by all sessions so ids stay unique process-wide.
type Generator struct {
	counter atomic.Uint64
}

// New returns a Generator starting at 1.
func New() *Generator {
	return &Generator{}
}

// Next returns the next recording id for sessionID.
func (g *Generator) Next(sessionID string) string {
	return sessionID + recordingSep + strconv.FormatUint(g.counter.Add(1), 10)
}

// Parse splits a recording id into its session id and counter.
func Parse(recordingID string) (sessionID string, n uint64, err error) {
	i := strings.LastIndex(recordingID, recordingSep)
	if i <= 0 {
		return "", 0, fmt.Errorf("recording id %q: missing %q", recordingID, recordingSep)
	}
	n, err = strconv.ParseUint(recordingID[i+len(recordingSep):], 10, 64)
	if err != nil || n == 0 {
		return "", 0, fmt.Errorf("recording id %q: bad counter", recordingID)
	}
	return recordingID[:i], n, nil
}
