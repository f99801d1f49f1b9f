package embeddings

import (
	"testing"

	"github.com/openai/openai-go/v3"
)

func TestConvertResponsePlacesVectorsByIndex(t *testing.T) {
	resp := &openai.CreateEmbeddingResponse{
		Data: []openai.Embedding{
			{Index: 2, Embedding: []float64{0.3}},
			{Index: 0, Embedding: []float64{0.1}},
			{Index: 1, Embedding: []float64{0.2}},
		},
	}

	vectors, err := convertResponse(resp, 3)
	if err != nil {
		t.Fatalf("convertResponse() error = %v", err)
	}
	for i, want := range []float32{0.1, 0.2, 0.3} {
		if vectors[i][0] != want {
			t.Errorf("vectors[%d][0] = %v, want %v", i, vectors[i][0], want)
		}
	}
}

func TestConvertResponseRejectsMalformedData(t *testing.T) {
	tests := []struct {
		name     string
		resp     *openai.CreateEmbeddingResponse
		expected int
	}{
		{
			name: "count mismatch",
			resp: &openai.CreateEmbeddingResponse{
				Data: []openai.Embedding{{Index: 0, Embedding: []float64{0.1}}},
			},
			expected: 2,
		},
		{
			name: "index out of range",
			resp: &openai.CreateEmbeddingResponse{
				Data: []openai.Embedding{{Index: 5, Embedding: []float64{0.1}}},
			},
			expected: 1,
		},
		{
			name: "duplicate index",
			resp: &openai.CreateEmbeddingResponse{
				Data: []openai.Embedding{
					{Index: 0, Embedding: []float64{0.1}},
					{Index: 0, Embedding: []float64{0.2}},
				},
			},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := convertResponse(tt.resp, tt.expected); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
