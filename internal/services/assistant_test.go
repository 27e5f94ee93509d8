package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-journal/inkwell-backend/internal/models"
)

func newStubAssistant(t *testing.T, handler http.HandlerFunc) (*Assistant, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	a := NewAssistant("test-key", "gemini-1.5-flash")
	a.baseURL = srv.URL
	return a, &calls
}

func geminiText(text string) []byte {
	body, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
		},
	})
	return body
}

func TestParseInsightKind(t *testing.T) {
	for _, s := range []string{"prompts", "summary", "mood", "tags", " Summary "} {
		k, err := ParseInsightKind(s)
		require.NoError(t, err, s)
		assert.NotEmpty(t, k)
	}

	_, err := ParseInsightKind("horoscope")
	assert.Error(t, err)
	_, err = ParseInsightKind("")
	assert.Error(t, err)
}

func TestGenerateNotConfigured(t *testing.T) {
	a := NewAssistant("", "")
	_, err := a.Generate(context.Background(), InsightRequest{Kind: InsightSummary, Content: "hello"})
	assert.ErrorIs(t, err, ErrAssistantNotConfigured)
}

func TestGenerateEmptyContentNeverCallsService(t *testing.T) {
	a, calls := newStubAssistant(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(geminiText("should not happen"))
	})

	for _, kind := range []InsightKind{InsightSummary, InsightMood, InsightTags} {
		_, err := a.Generate(context.Background(), InsightRequest{Kind: kind, Content: "   "})
		assert.ErrorIs(t, err, ErrNoContent, string(kind))
	}
	assert.Equal(t, int64(0), calls.Load(), "validation must happen before any network call")
}

func TestGenerateSuccess(t *testing.T) {
	a, calls := newStubAssistant(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "gemini-1.5-flash:generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		assert.Contains(t, req.Contents[0].Parts[0].Text, "reading by the lake")

		w.Write(geminiText("A calm day, well spent."))
	})

	res, err := a.Generate(context.Background(), InsightRequest{
		Kind:    InsightSummary,
		Content: "Spent the evening reading by the lake.",
	})
	require.NoError(t, err)
	assert.Equal(t, InsightSummary, res.Kind)
	assert.Equal(t, "A calm day, well spent.", res.Text)
	assert.Equal(t, "gemini-1.5-flash", res.Model)
	assert.Positive(t, res.PromptChars)
	assert.Equal(t, int64(1), calls.Load())
}

func TestGeneratePromptsAllowsEmptyContext(t *testing.T) {
	a, _ := newStubAssistant(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Contains(t, req.Contents[0].Parts[0].Text, "Generate 3 thoughtful")
		w.Write(geminiText("1. ...\n2. ...\n3. ..."))
	})

	res, err := a.Generate(context.Background(), InsightRequest{Kind: InsightPrompts})
	require.NoError(t, err)
	assert.Equal(t, InsightPrompts, res.Kind)
}

func TestGenerateServerErrorNotRetried(t *testing.T) {
	a, calls := newStubAssistant(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})

	_, err := a.Generate(context.Background(), InsightRequest{Kind: InsightMood, Content: "text"})
	assert.ErrorIs(t, err, ErrInsightUnavailable)
	assert.Equal(t, int64(1), calls.Load(), "HTTP-level failures must not be retried")
}

func TestGenerateTransportErrorRetriedOnce(t *testing.T) {
	a, calls := newStubAssistant(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(geminiText("ok"))
	})

	// Point at a closed listener so every attempt fails at the dial.
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()
	a.baseURL = deadURL

	_, err := a.Generate(context.Background(), InsightRequest{Kind: InsightTags, Content: "text"})
	assert.ErrorIs(t, err, ErrInsightUnavailable)
	assert.Equal(t, int64(0), calls.Load())
}

func TestGenerateUnparseableResponse(t *testing.T) {
	a, _ := newStubAssistant(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})

	_, err := a.Generate(context.Background(), InsightRequest{Kind: InsightSummary, Content: "text"})
	assert.ErrorIs(t, err, ErrInsightUnavailable)
}

func TestGenerateEmptyCandidates(t *testing.T) {
	a, _ := newStubAssistant(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := a.Generate(context.Background(), InsightRequest{Kind: InsightSummary, Content: "text"})
	assert.ErrorIs(t, err, ErrInsightUnavailable)
}

func TestBuildEntryContextBounded(t *testing.T) {
	long := strings.Repeat("x", maxEntryChars+500)
	entries := make([]models.Entry, 0, maxContextEntries+3)
	for i := 0; i < maxContextEntries+3; i++ {
		entries = append(entries, models.Entry{Title: "Day", Body: long})
	}

	ctx := BuildEntryContext(entries)
	assert.Equal(t, maxContextEntries, strings.Count(ctx, "Day: "))
	assert.LessOrEqual(t, len(ctx), maxContextEntries*(maxEntryChars+len("Day: ")+2))
}

func TestBuildEntryContextOmitsEmptyTitle(t *testing.T) {
	ctx := BuildEntryContext([]models.Entry{{Body: "just words"}})
	assert.Equal(t, "just words", ctx)
}

func TestBuildPromptCount(t *testing.T) {
	p, err := buildPrompt(InsightRequest{Kind: InsightPrompts, Count: 5})
	require.NoError(t, err)
	assert.Contains(t, p, "Generate 5")

	p, err = buildPrompt(InsightRequest{Kind: InsightPrompts, Count: 99})
	require.NoError(t, err)
	assert.Contains(t, p, "Generate 3", "out-of-range count falls back to the default")
}
