package retrieval

import (
	"fmt"
	"io"
	"time"
)

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to track intermediate steps and results.
type Monitor interface {
	Start(query string)
	AfterEmbedding(vector []float32)
	AfterLookup(corpus string, matches []Match)
	Finish(result *Result)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                  {}
func (n *noopMonitor) AfterEmbedding(_ []float32)      {}
func (n *noopMonitor) AfterLookup(_ string, _ []Match) {}
func (n *noopMonitor) Finish(_ *Result)                {}

// TraceMonitor prints each retrieval stage and every hit to a writer.
type TraceMonitor struct {
	w     io.Writer
	start time.Time
}

var _ Monitor = (*TraceMonitor)(nil)

// NewTraceMonitor returns a monitor writing to w.
func NewTraceMonitor(w io.Writer) *TraceMonitor {
	return &TraceMonitor{w: w}
}

func (m *TraceMonitor) Start(query string) {
	m.start = time.Now()
	fmt.Fprintf(m.w, "query: %q\n", query)
}

func (m *TraceMonitor) AfterEmbedding(vector []float32) {
	fmt.Fprintf(m.w, "embedded query (%d dims) in %s\n", len(vector), time.Since(m.start).Round(time.Microsecond))
}

func (m *TraceMonitor) AfterLookup(corpus string, matches []Match) {
	fmt.Fprintf(m.w, "%s: %d hits\n", corpus, len(matches))
	for i, hit := range matches {
		fmt.Fprintf(m.w, "%d: '%s' (%d)[%0.3f]\n", i, hit.Chunk.Source, hit.Position, hit.Distance)
	}
}

func (m *TraceMonitor) Finish(result *Result) {
	fmt.Fprintf(m.w, "retrieved %d chunks in %s\n",
		len(result.Course)+len(result.Discourse), time.Since(m.start).Round(time.Microsecond))
}
