package retrieval

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/poiesic/answerit/ai/mock"
	"github.com/poiesic/answerit/core"
	"github.com/poiesic/answerit/index"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDim = 16

func makeCorpus(t *testing.T, name string, n int) *Corpus {
	t.Helper()
	chunks := make([]core.Chunk, n)
	vectors := make([][]float32, n)
	for i := range chunks {
		chunks[i] = core.Chunk{
			Text:   fmt.Sprintf("%s passage number %d", name, i),
			URL:    fmt.Sprintf("https://example.com/%s/%d", name, i),
			Source: fmt.Sprintf("%s-%d", name, i),
		}
		vectors[i] = mock.GenerateDeterministicVector(chunks[i].Text, testDim)
	}
	flat, err := index.Build(vectors, index.MetricCosine)
	require.NoError(t, err)

	corpus, err := NewCorpus(name, chunks, flat)
	require.NoError(t, err)
	return corpus
}

func newTestRetriever(t *testing.T, courseSize, discourseSize int, opts ...Option) (*Retriever, *mock.MockEmbedder) {
	t.Helper()
	embedder := &mock.MockEmbedder{Dimension: testDim}
	r, err := NewRetriever(embedder,
		makeCorpus(t, core.CorpusCourse, courseSize),
		makeCorpus(t, core.CorpusDiscourse, discourseSize),
		opts...)
	require.NoError(t, err)
	return r, embedder
}

// fixedSearcher returns canned hits regardless of the query.
type fixedSearcher struct {
	size int
	hits []index.Hit
}

func (f *fixedSearcher) Search(_ context.Context, _ []float32, k int) ([]index.Hit, error) {
	return f.hits[:min(k, len(f.hits))], nil
}
func (f *fixedSearcher) Len() int             { return f.size }
func (f *fixedSearcher) Dimension() int       { return testDim }
func (f *fixedSearcher) Metric() index.Metric { return index.MetricL2 }

func TestNewCorpus(t *testing.T) {
	chunks := []core.Chunk{{Text: "a"}, {Text: "b"}}

	t.Run("size mismatch is a configuration error", func(t *testing.T) {
		flat, err := index.Build([][]float32{{1}, {2}, {3}}, index.MetricL2)
		require.NoError(t, err)

		_, err = NewCorpus(core.CorpusCourse, chunks, flat)
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrConfiguration)
		assert.ErrorIs(t, err, ErrSizeMismatch)

		var cfgErr *core.ConfigurationError
		assert.ErrorAs(t, err, &cfgErr)
	})

	t.Run("missing parts", func(t *testing.T) {
		_, err := NewCorpus("", chunks, &fixedSearcher{size: 2})
		assert.Equal(t, ErrCorpusNameRequired, err)

		_, err = NewCorpus(core.CorpusCourse, chunks, nil)
		assert.Equal(t, ErrSearcherRequired, err)
	})
}

func TestNewRetriever(t *testing.T) {
	course := makeCorpus(t, core.CorpusCourse, 3)
	discourse := makeCorpus(t, core.CorpusDiscourse, 3)
	embedder := mock.NewMockEmbedder()

	t.Run("defaults", func(t *testing.T) {
		r, err := NewRetriever(embedder, course, discourse)
		require.NoError(t, err)
		assert.Equal(t, DefaultTopK, r.TopK())
	})

	t.Run("with options", func(t *testing.T) {
		r, err := NewRetriever(embedder, course, discourse, WithTopK(2), WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.Equal(t, 2, r.TopK())
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		_, err := NewRetriever(embedder, course, discourse, WithLogger(nil))
		assert.NoError(t, err)
	})

	t.Run("invalid top k", func(t *testing.T) {
		_, err := NewRetriever(embedder, course, discourse, WithTopK(0))
		assert.ErrorIs(t, err, index.ErrInvalidK)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewRetriever(nil, course, discourse)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("nil corpus", func(t *testing.T) {
		_, err := NewRetriever(embedder, nil, discourse)
		assert.Equal(t, ErrCorpusRequired, err)
	})
}

func TestRetrieve_CountsPerCorpus(t *testing.T) {
	tests := []struct {
		name          string
		courseSize    int
		discourseSize int
		wantCourse    int
		wantDiscourse int
	}{
		{"both larger than top k", 400, 400, 5, 5},
		{"small discourse store", 400, 50, 5, 5},
		{"store smaller than top k", 400, 3, 5, 3},
		{"both empty", 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, embedder := newTestRetriever(t, tt.courseSize, tt.discourseSize)

			result, err := r.Retrieve(context.Background(), "how are projects graded?")
			require.NoError(t, err)
			assert.Len(t, result.Course, tt.wantCourse)
			assert.Len(t, result.Discourse, tt.wantDiscourse)
			assert.Equal(t, 1, embedder.CallCount(), "query must be embedded exactly once")
		})
	}
}

func TestRetrieve_MonotoneDistances(t *testing.T) {
	r, _ := newTestRetriever(t, 100, 100, WithTopK(10))

	result, err := r.Retrieve(context.Background(), "docker networking")
	require.NoError(t, err)

	for _, matches := range [][]Match{result.Course, result.Discourse} {
		require.Len(t, matches, 10)
		for i := 1; i < len(matches); i++ {
			assert.LessOrEqual(t, matches[i-1].Distance, matches[i].Distance)
		}
	}
}

func TestRetrieve_FindsExactChunk(t *testing.T) {
	r, _ := newTestRetriever(t, 50, 50)

	result, err := r.Retrieve(context.Background(), "course passage number 17")
	require.NoError(t, err)
	require.NotEmpty(t, result.Course)
	assert.Equal(t, 17, result.Course[0].Position)
	assert.Equal(t, "course passage number 17", result.CourseChunks()[0].Text)
	assert.InDelta(t, 0, result.Course[0].Distance, 1e-5)
}

func TestRetrieve_Idempotent(t *testing.T) {
	r, _ := newTestRetriever(t, 60, 40)
	ctx := context.Background()

	first, err := r.Retrieve(ctx, "pandas groupby")
	require.NoError(t, err)
	second, err := r.Retrieve(ctx, "pandas groupby")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	r, embedder := newTestRetriever(t, 5, 5)

	_, err := r.Retrieve(context.Background(), "  \n ")
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
	assert.Equal(t, 0, embedder.CallCount())
}

func TestRetrieve_EmbedderError(t *testing.T) {
	r, embedder := newTestRetriever(t, 5, 5)
	boom := errors.New("model unavailable")
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	}

	_, err := r.Retrieve(context.Background(), "anything")
	assert.ErrorIs(t, err, boom)
}

func TestRetrieve_IndexOutOfRange(t *testing.T) {
	chunks := []core.Chunk{{Text: "only"}}
	bad, err := NewCorpus(core.CorpusDiscourse, chunks, &fixedSearcher{
		size: 1,
		hits: []index.Hit{{Position: 0}, {Distance: 1, Position: 7}},
	})
	require.NoError(t, err)

	r, err := NewRetriever(&mock.MockEmbedder{Dimension: testDim}, makeCorpus(t, core.CorpusCourse, 3), bad)
	require.NoError(t, err)

	_, err = r.Retrieve(context.Background(), "question")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrIndexOutOfRange)

	var rangeErr *core.IndexOutOfRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 7, rangeErr.Position)
	assert.Equal(t, 1, rangeErr.Size)
}

func TestTopChunks(t *testing.T) {
	r, embedder := newTestRetriever(t, 20, 4)
	ctx := context.Background()

	chunks, err := r.TopChunks(ctx, "discourse passage number 2", r.Discourse(), 10)
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	assert.Equal(t, "discourse passage number 2", chunks[0].Text)
	assert.Equal(t, 1, embedder.CallCount())

	_, err = r.TopChunks(ctx, "x", r.Course(), 0)
	assert.ErrorIs(t, err, index.ErrInvalidK)

	_, err = r.TopChunks(ctx, "x", nil, 5)
	assert.Equal(t, ErrCorpusRequired, err)
}

type recordingMonitor struct {
	mu     sync.Mutex
	events []string
}

func (m *recordingMonitor) record(e string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *recordingMonitor) Start(query string)         { m.record("start:" + query) }
func (m *recordingMonitor) AfterEmbedding(_ []float32) { m.record("embed") }
func (m *recordingMonitor) Finish(_ *Result)           { m.record("finish") }
func (m *recordingMonitor) AfterLookup(corpus string, matches []Match) {
	m.record(fmt.Sprintf("lookup:%s:%d", corpus, len(matches)))
}

func TestRetrieveWithMonitor(t *testing.T) {
	r, _ := newTestRetriever(t, 8, 2)
	monitor := &recordingMonitor{}

	_, err := r.RetrieveWithMonitor(context.Background(), "q", monitor)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"start:q",
		"embed",
		"lookup:course:5",
		"lookup:discourse:2",
		"finish",
	}, monitor.events)
}

func TestTraceMonitor(t *testing.T) {
	r, _ := newTestRetriever(t, 8, 2)
	var buf bytes.Buffer

	_, err := r.RetrieveWithMonitor(context.Background(), "course passage number 3", NewTraceMonitor(&buf))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `query: "course passage number 3"`)
	assert.Contains(t, out, "embedded query")
	assert.Contains(t, out, "course: 5 hits")
	assert.Contains(t, out, "discourse: 2 hits")
	assert.Contains(t, out, "retrieved 7 chunks")
	assert.Regexp(t, `(?m)^0: 'course-3' \(3\)\[-?0\.000\]$`, out)
}
