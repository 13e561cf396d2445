package review

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/joescharf/crev/internal/llm"
	"github.com/joescharf/crev/internal/models"
	"github.com/joescharf/crev/internal/svcerr"
)

const (
	// RatingUnavailable is reported when the model gave no usable rating.
	RatingUnavailable = "N/A"
	// MalformedComment is the only comment of a result whose reply was not JSON.
	MalformedComment = "Error: AI response was not in the expected format"
	// MissingConclusion stands in for a conclusion the model left out.
	MissingConclusion = "Analysis failed to provide a conclusion"
)

// AnalyzerConfig holds the generation settings for one analysis.
type AnalyzerConfig struct {
	Temperature     float64
	MaxTokens       int
	MaxContentChars int
}

// DefaultAnalyzerConfig returns the reference generation settings.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		Temperature:     0.7,
		MaxTokens:       2000,
		MaxContentChars: 1000,
	}
}

// Analyzer turns fetched files into a review using a text-generation model.
type Analyzer struct {
	llm llm.Completer
	cfg AnalyzerConfig
}

// NewAnalyzer creates an Analyzer backed by c.
func NewAnalyzer(c llm.Completer, cfg AnalyzerConfig) *Analyzer {
	return &Analyzer{llm: c, cfg: cfg}
}

// Analyze asks the model once for a review of files. Only a failed call is
// an error; an unreadable reply still yields a result.
func (a *Analyzer) Analyze(ctx context.Context, files []models.FileRecord, criteria models.ReviewCriteria) (models.ReviewResult, error) {
	system, user := BuildPrompt(files, criteria, a.cfg.MaxContentChars)

	raw, err := a.llm.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, llm.ErrMalformedResponse) {
			return models.ReviewResult{}, svcerr.Wrap(err, "Unexpected API response format").With("provider", a.llm.Name())
		}
		return models.ReviewResult{}, svcerr.Wrap(err, "Unable to connect to %s API", a.llm.Name())
	}

	return parseReview(raw, models.Paths(files)), nil
}

// replyFields is the JSON object the prompt asks for. Fields stay raw so
// that loosely typed replies can be normalized.
type replyFields struct {
	Comments   json.RawMessage `json:"comments"`
	Rating     json.RawMessage `json:"rating"`
	Conclusion json.RawMessage `json:"conclusion"`
}

// parseReview interprets a model reply. found_files always comes from the
// input, never from the reply.
func parseReview(raw string, paths []string) models.ReviewResult {
	text := stripFences(raw)

	var fields replyFields
	if !strings.HasPrefix(text, "{") || json.Unmarshal([]byte(text), &fields) != nil {
		return models.ReviewResult{
			FoundFiles: paths,
			Comments:   []string{MalformedComment},
			Rating:     RatingUnavailable,
			Conclusion: text,
		}
	}

	result := models.ReviewResult{
		FoundFiles: paths,
		Comments:   normalizeComments(fields.Comments),
		Rating:     RatingUnavailable,
		Conclusion: MissingConclusion,
	}
	if !absent(fields.Rating) {
		result.Rating = scalarText(fields.Rating)
	}
	if !absent(fields.Conclusion) {
		result.Conclusion = scalarText(fields.Conclusion)
	}
	return result
}

// absent reports whether a reply field was left out or set to null.
// Present values, empty strings included, are kept as sent.
func absent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// stripFences removes surrounding whitespace and a ```json ... ``` wrapper.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// scalarText renders a JSON string, number or bool as text. Anything else
// is returned as compact JSON; null and absent values give "".
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if f, err := strconv.ParseFloat(n.String(), 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return n.String()
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// normalizeComments accepts a list of strings, a list of arbitrary values,
// or an object of lists keyed by category. Null entries are dropped; empty
// strings are kept.
func normalizeComments(raw json.RawMessage) []string {
	if absent(raw) {
		return []string{}
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if absent(item) {
				continue
			}
			out = append(out, scalarText(item))
		}
		return out
	}

	var grouped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &grouped); err == nil {
		keys := make([]string, 0, len(grouped))
		for k := range grouped {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := []string{}
		for _, k := range keys {
			for _, item := range normalizeComments(grouped[k]) {
				out = append(out, fmt.Sprintf("%s: %s", k, item))
			}
		}
		return out
	}

	return []string{scalarText(raw)}
}
