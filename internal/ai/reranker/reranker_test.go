package reranker

import (
	"strings"
	"testing"
)

func twoCandidates() []CandidateInput {
	return []CandidateInput{
		{SourceID: "job-1", Title: "Backend Engineer", Content: "Go, Postgres", Similarity: 0.91},
		{SourceID: "job-2", Title: "Data Engineer", Content: "Spark, Python", Similarity: 0.84},
	}
}

func goodMatch(id string, score int) RankedMatch {
	return RankedMatch{
		SourceID:    id,
		MatchScore:  score,
		Explanation: "solid overlap in core skills",
		Strengths:   []string{"Go experience", "database depth", "domain fit"},
		Risks:       []string{"no Kubernetes", "short tenure"},
	}
}

func TestValidateRanking(t *testing.T) {
	tests := []struct {
		name    string
		matches []RankedMatch
		wantErr string
	}{
		{
			name:    "complete ranking passes",
			matches: []RankedMatch{goodMatch("job-1", 88), goodMatch("job-2", 61)},
		},
		{
			name:    "unknown source id",
			matches: []RankedMatch{goodMatch("job-1", 88), goodMatch("job-9", 61)},
			wantErr: "unknown source id",
		},
		{
			name:    "duplicate verdict",
			matches: []RankedMatch{goodMatch("job-1", 88), goodMatch("job-1", 61)},
			wantErr: "duplicate verdict",
		},
		{
			name:    "score above range",
			matches: []RankedMatch{goodMatch("job-1", 101), goodMatch("job-2", 61)},
			wantErr: "out of range",
		},
		{
			name:    "score below range",
			matches: []RankedMatch{goodMatch("job-1", -1), goodMatch("job-2", 61)},
			wantErr: "out of range",
		},
		{
			name: "blank explanation",
			matches: []RankedMatch{
				{SourceID: "job-1", MatchScore: 50, Explanation: "   ", Strengths: []string{"a"}, Risks: []string{"b"}},
				goodMatch("job-2", 61),
			},
			wantErr: "empty explanation",
		},
		{
			name: "missing risks",
			matches: []RankedMatch{
				{SourceID: "job-1", MatchScore: 50, Explanation: "fine", Strengths: []string{"a"}},
				goodMatch("job-2", 61),
			},
			wantErr: "missing strengths or risks",
		},
		{
			name:    "candidate not covered",
			matches: []RankedMatch{goodMatch("job-1", 88)},
			wantErr: "covered 1 of 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateRanking(tt.matches, twoCandidates())
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validateRanking() error = %v", err)
				}
				if len(got) != 2 {
					t.Fatalf("validateRanking() returned %d matches, want 2", len(got))
				}
				return
			}
			if err == nil {
				t.Fatal("validateRanking() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("validateRanking() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildUserPromptIncludesAllCandidates(t *testing.T) {
	prompt := buildUserPrompt("query text", twoCandidates())

	for _, want := range []string{"query text", "source_id: job-1", "source_id: job-2", "Backend Engineer", "0.9100"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
