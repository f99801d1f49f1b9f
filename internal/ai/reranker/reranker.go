// Package reranker scores retrieved candidates against a query document
// with a single structured generation call.
package reranker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared/constant"
)

const rankingModel = "gpt-4o"

// CandidateInput is one retrieved candidate handed to the model, with the
// similarity score from the vector index for context.
type CandidateInput struct {
	SourceID   string
	Title      string
	Content    string
	Similarity float64
}

// RankedMatch is the model's verdict for one candidate. MatchScore is an
// independent 0-100 signal; it is not required to follow similarity order.
type RankedMatch struct {
	SourceID    string   `json:"source_id"`
	MatchScore  int      `json:"match_score"`
	Explanation string   `json:"explanation"`
	Strengths   []string `json:"strengths"`
	Risks       []string `json:"risks"`
}

type Reranker struct {
	client *openai.Client
}

func NewReranker(apiKey string) *Reranker {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Reranker{
		client: &client,
	}
}

const systemPrompt = `You are an expert recruitment analyst. You compare one query document (a resume or a job description) against a set of candidate documents and score how well each candidate matches the query. Ground every explanation in concrete details from both texts. Scores are integers from 0 to 100. For each candidate provide 3-5 key strengths and 2-3 potential gaps. Return every candidate you are given, identified by its source_id, and nothing else.`

// Rank sends the query text and all candidates in one structured call and
// returns one RankedMatch per candidate. Any transport failure or
// schema-invalid payload is returned as an error; there is no partial
// result.
func (r *Reranker) Rank(ctx context.Context, queryText string, candidates []CandidateInput) ([]RankedMatch, error) {
	if len(candidates) == 0 {
		return nil, errors.New("no candidates to rank")
	}

	userPrompt := buildUserPrompt(queryText, candidates)

	completion, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Model: rankingModel,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				Type: constant.JSONSchema("json_schema"),
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   "ranked_matches",
					Strict: openai.Bool(true),
					Schema: rankingSchema(),
				},
			},
		},
		Temperature: openai.Float(0.2),
	})
	if err != nil {
		return nil, fmt.Errorf("ranking call failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, errors.New("no response from ranking model")
	}

	var payload rankingPayload
	content := completion.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("parse ranking payload: %w", err)
	}

	return validateRanking(payload.Matches, candidates)
}

type rankingPayload struct {
	Matches []RankedMatch `json:"matches"`
}

// validateRanking enforces the output contract: exactly one verdict per
// candidate, known source ids, scores in range, non-empty explanation and
// bullet lists.
func validateRanking(matches []RankedMatch, candidates []CandidateInput) ([]RankedMatch, error) {
	known := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		known[c.SourceID] = true
	}

	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if !known[m.SourceID] {
			return nil, fmt.Errorf("ranking returned unknown source id %q", m.SourceID)
		}
		if seen[m.SourceID] {
			return nil, fmt.Errorf("ranking returned duplicate verdict for %q", m.SourceID)
		}
		seen[m.SourceID] = true

		if m.MatchScore < 0 || m.MatchScore > 100 {
			return nil, fmt.Errorf("match score %d for %q out of range", m.MatchScore, m.SourceID)
		}
		if strings.TrimSpace(m.Explanation) == "" {
			return nil, fmt.Errorf("empty explanation for %q", m.SourceID)
		}
		if len(m.Strengths) == 0 || len(m.Risks) == 0 {
			return nil, fmt.Errorf("missing strengths or risks for %q", m.SourceID)
		}
	}

	if len(seen) != len(candidates) {
		return nil, fmt.Errorf("ranking covered %d of %d candidates", len(seen), len(candidates))
	}

	return matches, nil
}

func buildUserPrompt(queryText string, candidates []CandidateInput) string {
	var b strings.Builder

	b.WriteString("Query document:\n")
	b.WriteString(queryText)
	b.WriteString("\n\nCandidates:\n")

	for i, c := range candidates {
		fmt.Fprintf(&b, "\n--- Candidate %d ---\n", i+1)
		fmt.Fprintf(&b, "source_id: %s\n", c.SourceID)
		if c.Title != "" {
			fmt.Fprintf(&b, "title: %s\n", c.Title)
		}
		fmt.Fprintf(&b, "retrieval similarity: %.4f\n", c.Similarity)
		b.WriteString(c.Content)
		b.WriteString("\n")
	}

	return b.String()
}

func rankingSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"matches": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"source_id": map[string]any{
							"type":        "string",
							"description": "The source_id of the candidate this verdict is for",
						},
						"match_score": map[string]any{
							"type":        "integer",
							"description": "Overall match quality from 0 (no fit) to 100 (perfect fit)",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Why this score, grounded in details from both texts",
						},
						"strengths": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "3-5 key strengths of this match",
						},
						"risks": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "2-3 potential gaps or risks",
						},
					},
					"required":             []string{"source_id", "match_score", "explanation", "strengths", "risks"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"matches"},
		"additionalProperties": false,
	}
}
