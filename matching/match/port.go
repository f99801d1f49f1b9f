package match

import (
	"context"

	"github.com/resumatch/resumatch/internal/ai/reranker"
)

// Reranker scores assembled candidates against the query document. A
// failed or schema-invalid ranking fails the whole match request; there is
// no similarity-only fallback.
type Reranker interface {
	Rank(ctx context.Context, queryText string, candidates []reranker.CandidateInput) ([]reranker.RankedMatch, error)
}
