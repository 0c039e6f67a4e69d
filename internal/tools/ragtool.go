package tools

import (
	"context"

	"github.com/safarlabs/safar/internal/domain"
	"github.com/safarlabs/safar/internal/rag"
)

// RAGTool answers policy and FAQ lookups from the retrieval index.
type RAGTool struct {
	Index *rag.Index
	TopK  int
}

func (t *RAGTool) Name() string { return "rag_query" }

func (t *RAGTool) Description() string {
	return "Look up company policies and FAQ documents. Params: query, top_k (optional)."
}

func (t *RAGTool) Run(_ context.Context, params map[string]any) domain.ToolResult {
	query := stringParam(params, "query", "q")
	topK := intParam(params, "top_k", t.TopK)

	snippets, err := t.Index.Query(query, topK)
	if err != nil {
		return domain.ToolResult{Status: 500, Error: "retrieval failed: " + err.Error()}
	}

	results := make([]any, len(snippets))
	for i, s := range snippets {
		results[i] = map[string]any{
			"id":          s.ID,
			"document":    s.Document,
			"source":      s.Source,
			"chunk_index": s.Index,
			"distance":    s.Distance,
		}
	}
	return domain.ToolResult{Success: true, Status: 200, Results: results}
}
