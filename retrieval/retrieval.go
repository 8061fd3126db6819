// Package retrieval answers queries against a workspace: embed the query,
// search the index, and optionally generate a grounded answer from the
// retrieved chunks.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aggroso/knowspace/embedding"
	"github.com/aggroso/knowspace/store"
)

// Generator produces a completion from a system and a user prompt.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 3

// Result is one retrieved chunk.
type Result struct {
	Document string  `json:"document"`
	Text     string  `json:"text"`
	DocID    string  `json:"doc_id"`
	Distance float32 `json:"score"`
}

// Answer is a generated response with its supporting retrievals.
type Answer struct {
	Text       string   `json:"answer"`
	Sources    []Result `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// NoContextAnswer is returned when retrieval finds nothing to ground an
// answer on. The generator is never called in that case.
const NoContextAnswer = "No documents uploaded or no relevant information found."

const systemPrompt = `You are a professional knowledge workspace assistant.

Behavior:
- Answer conversationally like a helpful AI assistant.
- Use ONLY the provided document context.
- If answer exists, explain clearly and naturally.
- Summarize key ideas when helpful.
- Do NOT hallucinate information.
- If answer is not present, politely say it is not found in uploaded documents.

Formatting:
Use clean markdown with headings and bullet points.`

// Options contains configuration options for the engine.
type Options struct {
	// TopK is the number of chunks retrieved per query.
	TopK int

	// Generator produces answers from retrieved context. Without one,
	// Ask returns retrievals with an empty answer text.
	Generator Generator

	// Logger receives operational events.
	Logger *slog.Logger
}

// DefaultOptions contains the default configuration options.
var DefaultOptions = Options{
	TopK: DefaultTopK,
}

// Engine retrieves and answers over workspaces.
type Engine struct {
	manager  *store.Manager
	embedder *embedding.Gateway
	opts     Options
	logger   *slog.Logger
}

// NewEngine creates a retrieval engine.
func NewEngine(manager *store.Manager, embedder *embedding.Gateway, optFns ...func(o *Options)) (*Engine, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.TopK <= 0 {
		return nil, fmt.Errorf("retrieval: top-k must be positive, got %d", opts.TopK)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		manager:  manager,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
	}, nil
}

// Retrieve returns the chunks nearest to query in the workspace identified
// by key, closest first. An empty workspace yields an empty result.
func (e *Engine) Retrieve(ctx context.Context, key, query string) ([]Result, error) {
	if err := ValidateQuery(query); err != nil {
		return nil, err
	}

	vector, err := e.embedder.EmbedOne(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := e.manager.Workspace(key).Search(ctx, vector, e.opts.TopK)
	if err != nil {
		return nil, fmt.Errorf("search workspace: %w", err)
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{
			Document: h.Entry.Document,
			Text:     h.Entry.Text,
			DocID:    h.Entry.DocID,
			Distance: h.Distance,
		}
	}
	return results, nil
}

// Ask retrieves context for query and generates a grounded answer.
// When nothing is retrieved, Ask short-circuits with NoContextAnswer and
// confidence 0 without calling the generator.
func (e *Engine) Ask(ctx context.Context, key, query string) (*Answer, error) {
	results, err := e.Retrieve(ctx, key, query)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &Answer{
			Text:       NoContextAnswer,
			Sources:    []Result{},
			Confidence: 0,
		}, nil
	}

	answer := ""
	if e.opts.Generator != nil {
		answer, err = e.opts.Generator.Generate(ctx, systemPrompt, userPrompt(query, results))
		if err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
	}

	return &Answer{
		Text:       answer,
		Sources:    results,
		Confidence: Confidence(results),
	}, nil
}

func userPrompt(query string, results []Result) string {
	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Text
	}

	var sb strings.Builder
	sb.WriteString("DOCUMENT CONTEXT:\n")
	sb.WriteString(strings.Join(contexts, "\n\n"))
	sb.WriteString("\n\nUSER QUESTION:\n")
	sb.WriteString(query)
	return sb.String()
}

// Confidence maps the average retrieval distance onto (0, 1]: identical
// vectors score 1 and the score decays as 1/(1+d). Empty input scores 0.
func Confidence(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}

	var sum float64
	for _, r := range results {
		sum += float64(r.Distance)
	}
	avg := sum / float64(len(results))

	c := 1 / (1 + avg)
	switch {
	case c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

// Query validation bounds, applied before any model call.
const MaxQueryLength = 1200

var blockedPatterns = []string{
	"ignore previous instructions",
	"act as system",
	"reveal system prompt",
	"show hidden prompt",
	"developer message",
}

var (
	// ErrEmptyQuery is returned for blank queries.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrQueryTooLong is returned for queries over MaxQueryLength.
	ErrQueryTooLong = fmt.Errorf("query exceeds %d characters", MaxQueryLength)

	// ErrUnsafeQuery is returned for queries matching an injection pattern.
	ErrUnsafeQuery = errors.New("query contains an unsafe instruction")
)

// ValidateQuery rejects blank, oversized, and prompt-injection queries.
func ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return ErrEmptyQuery
	}
	if len(trimmed) > MaxQueryLength {
		return ErrQueryTooLong
	}

	lower := strings.ToLower(trimmed)
	for _, pattern := range blockedPatterns {
		if strings.Contains(lower, pattern) {
			return ErrUnsafeQuery
		}
	}
	return nil
}
