package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/inkwell-journal/inkwell-backend/internal/models"
)

// InsightKind discriminates the assistant request types. The set is closed;
// Generate switches over it exhaustively.
type InsightKind string

const (
	// InsightPrompts asks for writing prompts seeded by recent entries.
	InsightPrompts InsightKind = "prompts"
	// InsightSummary summarizes one entry's content.
	InsightSummary InsightKind = "summary"
	// InsightMood reads the emotional tone of one entry.
	InsightMood InsightKind = "mood"
	// InsightTags suggests tags for one entry.
	InsightTags InsightKind = "tags"
)

// ParseInsightKind validates a user-supplied kind string.
func ParseInsightKind(s string) (InsightKind, error) {
	switch k := InsightKind(strings.ToLower(strings.TrimSpace(s))); k {
	case InsightPrompts, InsightSummary, InsightMood, InsightTags:
		return k, nil
	default:
		return "", fmt.Errorf("unknown insight kind %q", s)
	}
}

var (
	// ErrAssistantNotConfigured means no API key is set; the endpoint
	// degrades without affecting journaling or analytics.
	ErrAssistantNotConfigured = errors.New("assistant not configured")
	// ErrNoContent is a validation failure raised before any network call.
	ErrNoContent = errors.New("entry content is required")
	// ErrInsightUnavailable covers timeouts, non-2xx responses and
	// unparseable payloads from the generative-language service.
	ErrInsightUnavailable = errors.New("insight unavailable")
)

const (
	assistantTimeout   = 8 * time.Second
	maxContextEntries  = 5
	maxEntryChars      = 2000
	maxContentChars    = 8000
	defaultPromptCount = 3
	geminiBaseURL      = "https://generativelanguage.googleapis.com"
)

// Assistant submits bounded text payloads to the Gemini generateContent API
// and relays the text response. It holds no per-user state.
type Assistant struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewAssistant builds an assistant for the given API key and model. An
// empty key yields an assistant whose Generate always reports
// ErrAssistantNotConfigured.
func NewAssistant(apiKey, model string) *Assistant {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &Assistant{
		apiKey:  apiKey,
		model:   model,
		baseURL: geminiBaseURL,
		client:  &http.Client{Timeout: assistantTimeout},
	}
}

// InsightRequest is one assistant invocation. Content carries the entry
// text for summary/mood/tags; for prompts it carries the recent-entry
// context built by BuildEntryContext and may be empty.
type InsightRequest struct {
	Kind    InsightKind
	Content string
	Count   int
}

// InsightResult is the relayed model response.
type InsightResult struct {
	Kind        InsightKind `json:"kind"`
	Text        string      `json:"text"`
	Model       string      `json:"model"`
	PromptChars int         `json:"-"`
}

// Model returns the configured model name.
func (a *Assistant) Model() string { return a.model }

// Configured reports whether an API key is present.
func (a *Assistant) Configured() bool { return a.apiKey != "" }

// Generate validates the request, builds the kind-specific prompt and calls
// the external service with at most one retry on transport errors. Content
// validation happens before any network I/O.
func (a *Assistant) Generate(ctx context.Context, req InsightRequest) (*InsightResult, error) {
	if a.apiKey == "" {
		return nil, ErrAssistantNotConfigured
	}

	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, err
	}

	text, err := a.generateContent(ctx, prompt)
	if err != nil {
		// One retry, transport failures only. HTTP-level errors are not
		// retried; a misbehaving service should fail fast.
		var tErr *transportError
		if !errors.As(err, &tErr) {
			return nil, err
		}
		text, err = a.generateContent(ctx, prompt)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInsightUnavailable, err)
		}
	}

	return &InsightResult{Kind: req.Kind, Text: text, Model: a.model, PromptChars: len(prompt)}, nil
}

// buildPrompt maps each insight kind to its instruction text. Empty content
// is rejected for every kind that analyzes a specific entry.
func buildPrompt(req InsightRequest) (string, error) {
	content := strings.TrimSpace(req.Content)
	if len(content) > maxContentChars {
		content = truncateRunes(content, maxContentChars)
	}

	switch req.Kind {
	case InsightPrompts:
		count := req.Count
		if count <= 0 || count > 10 {
			count = defaultPromptCount
		}
		prompt := fmt.Sprintf("Generate %d thoughtful, personal and introspective journal writing prompts.", count)
		if content != "" {
			prompt += " Base them on the themes in these recent diary entries:\n\n" + content
		}
		return prompt, nil
	case InsightSummary:
		if content == "" {
			return "", ErrNoContent
		}
		return "Summarize this diary entry in a short paragraph, then list up to three key takeaways:\n\n" + content, nil
	case InsightMood:
		if content == "" {
			return "", ErrNoContent
		}
		return "Read the emotional tone of this diary entry. Name the dominant mood, the key emotions present, and end with one gentle reflection question:\n\n" + content, nil
	case InsightTags:
		if content == "" {
			return "", ErrNoContent
		}
		return "Suggest up to 5 short lowercase tags for this diary entry, as a comma-separated list:\n\n" + content, nil
	default:
		return "", fmt.Errorf("unknown insight kind %q", req.Kind)
	}
}

// BuildEntryContext joins the most recent entries into a bounded text
// payload: at most maxContextEntries entries, each body truncated to
// maxEntryChars.
func BuildEntryContext(entries []models.Entry) string {
	if len(entries) > maxContextEntries {
		entries = entries[:maxContextEntries]
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if e.Title != "" {
			b.WriteString(e.Title)
			b.WriteString(": ")
		}
		b.WriteString(truncateRunes(e.Body, maxEntryChars))
	}
	return b.String()
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// transportError marks failures where the request never produced an HTTP
// response, the only class Generate retries.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// generateContent performs one generateContent call and extracts the text
// of the first candidate.
func (a *Assistant) generateContent(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrInsightUnavailable, err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", a.baseURL, a.model, a.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrInsightUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &transportError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: service returned %d", ErrInsightUnavailable, resp.StatusCode)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrInsightUnavailable, err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrInsightUnavailable)
	}

	var texts []string
	for _, p := range out.Candidates[0].Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrInsightUnavailable)
	}
	return strings.Join(texts, "\n"), nil
}
