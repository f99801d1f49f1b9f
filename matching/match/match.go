package match

import (
	"github.com/resumatch/resumatch/matching/record"
)

// TopK bounds for similarity queries.
const (
	MinTopK     = 1
	MaxTopK     = 50
	DefaultTopK = 10
)

// ClampTopK normalizes a requested result count into the allowed range.
// Zero means "use the default".
func ClampTopK(k int) int {
	if k == 0 {
		return DefaultTopK
	}
	if k < MinTopK {
		return MinTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}

// Candidate is one hydrated match before re-ranking. Content and metadata
// come from the relational record, not the index payload.
type Candidate struct {
	SourceID   string          `json:"source_id"`
	OwnerID    string          `json:"owner_id"`
	Content    string          `json:"content"`
	Similarity float64         `json:"similarity"`
	Metadata   record.Metadata `json:"metadata"`
}

// RankedCandidate is the user-facing result: the AI match score ranks it,
// similarity is kept only as retrieval context.
type RankedCandidate struct {
	Candidate
	MatchScore  int      `json:"match_score"`
	Explanation string   `json:"explanation"`
	Strengths   []string `json:"strengths"`
	Risks       []string `json:"risks"`
}
