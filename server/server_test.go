package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/answerit"
	"github.com/poiesic/answerit/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAsker records the questions it receives.
type fakeAsker struct {
	mu        sync.Mutex
	questions []answerit.Question
	err       error
}

func (f *fakeAsker) Ask(_ context.Context, q answerit.Question) (*core.Answer, error) {
	f.mu.Lock()
	f.questions = append(f.questions, q)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(q.Text) == "" && len(q.Image) == 0 {
		return nil, core.ErrEmptyQuery
	}
	return &core.Answer{
		Answer: "📘 **Course Content:**\n1. " + q.Text + "...",
		Links:  []core.Link{{URL: "https://example.com/a", Text: "A"}},
	}, nil
}

func (f *fakeAsker) Stats() answerit.Stats {
	return answerit.Stats{CourseChunks: 3, DiscourseChunks: 2, TopK: 5}
}

func (f *fakeAsker) last() answerit.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.questions[len(f.questions)-1]
}

func newTestServer(t *testing.T, asker Asker) http.Handler {
	t.Helper()
	s, err := New(asker, WithWorkers(4))
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s.Handler()
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Equal(t, ErrAskerRequired, err)

	_, err = New(&fakeAsker{}, WithWorkers(0))
	assert.Equal(t, ErrInvalidWorkers, err)
}

func TestAsk_JSON(t *testing.T) {
	asker := &fakeAsker{}
	h := newTestServer(t, asker)

	req := httptest.NewRequest(http.MethodPost, "/api/", strings.NewReader(`{"question": "What is GA4?"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := do(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body core.Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Answer, "What is GA4?")
	assert.Equal(t, []core.Link{{URL: "https://example.com/a", Text: "A"}}, body.Links)
	assert.Nil(t, asker.last().Image)
}

func TestAsk_JSONWithImage(t *testing.T) {
	image := []byte("\x89PNG fake image")

	tests := []struct {
		name    string
		encoded string
		want    []byte
	}{
		{"base64", base64.StdEncoding.EncodeToString(image), image},
		{"data url", "data:image/png;base64," + base64.StdEncoding.EncodeToString(image), image},
		{"unpadded", base64.RawStdEncoding.EncodeToString(image), image},
		{"invalid is ignored", "%%% not base64 %%%", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := &fakeAsker{}
			h := newTestServer(t, asker)

			payload, err := json.Marshal(map[string]string{"question": "q", "image": tt.encoded})
			require.NoError(t, err)
			rec := do(h, httptest.NewRequest(http.MethodPost, "/api/", bytes.NewReader(payload)))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, asker.last().Image)
		})
	}
}

func TestAsk_Multipart(t *testing.T) {
	asker := &fakeAsker{}
	h := newTestServer(t, asker)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("question", "Which model should I use?"))
	part, err := mw.CreateFormFile("image", "screenshot.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("image-bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	q := asker.last()
	assert.Equal(t, "Which model should I use?", q.Text)
	assert.Equal(t, []byte("image-bytes"), q.Image)
}

func TestAsk_MultipartWithoutImage(t *testing.T) {
	asker := &fakeAsker{}
	h := newTestServer(t, asker)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("question", "text only"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := do(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, asker.last().Image)
}

func TestAsk_URLEncodedForm(t *testing.T) {
	asker := &fakeAsker{}
	h := newTestServer(t, asker)

	req := httptest.NewRequest(http.MethodPost, "/api/", strings.NewReader("question=what+is+uv"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	q := asker.last()
	assert.Equal(t, "what is uv", q.Text)
	assert.Empty(t, q.Image)

	req = httptest.NewRequest(http.MethodPost, "/api/", strings.NewReader("image=abc"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	rec = do(h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_Errors(t *testing.T) {
	t.Run("empty question", func(t *testing.T) {
		h := newTestServer(t, &fakeAsker{})
		rec := do(h, httptest.NewRequest(http.MethodPost, "/api/", strings.NewReader(`{"question": "  "}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed json", func(t *testing.T) {
		h := newTestServer(t, &fakeAsker{})
		rec := do(h, httptest.NewRequest(http.MethodPost, "/api/", strings.NewReader(`{"question":`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		h := newTestServer(t, &fakeAsker{})
		rec := do(h, httptest.NewRequest(http.MethodGet, "/api/", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("internal error", func(t *testing.T) {
		err := &core.IndexOutOfRangeError{Corpus: "course", Position: 9, Size: 3}
		h := newTestServer(t, &fakeAsker{err: err})
		rec := do(h, httptest.NewRequest(http.MethodPost, "/api/", strings.NewReader(`{"question": "q"}`)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "position")
	})

	t.Run("unexpected error", func(t *testing.T) {
		h := newTestServer(t, &fakeAsker{err: errors.New("embedder down")})
		rec := do(h, httptest.NewRequest(http.MethodPost, "/api/", strings.NewReader(`{"question": "q"}`)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(t, &fakeAsker{})
	rec := do(h, httptest.NewRequest(http.MethodOptions, "/api/", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	h := newTestServer(t, &fakeAsker{})
	rec := do(h, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string         `json:"status"`
		Stats  answerit.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 3, body.Stats.CourseChunks)
}

func TestAsk_ConcurrentRequests(t *testing.T) {
	asker := &fakeAsker{}
	h := newTestServer(t, asker)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := do(h, httptest.NewRequest(http.MethodPost, "/api/", strings.NewReader(`{"question": "q"}`)))
			assert.Equal(t, http.StatusOK, rec.Code)
		}()
	}
	wg.Wait()
	assert.Len(t, asker.questions, 20)
}
