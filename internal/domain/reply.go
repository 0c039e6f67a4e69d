package domain

// Source is a document or search snippet backing a reply.
type Source struct {
	Title    string  `json:"title,omitempty"`
	Snippet  string  `json:"snippet,omitempty"`
	URL      string  `json:"url,omitempty"`
	Document string  `json:"document,omitempty"`
	Origin   string  `json:"origin,omitempty"` // file name for RAG hits
	Distance float64 `json:"distance,omitempty"`
}

// Reply is the orchestrator's structured response to one user message.
// The user always gets Text, even on degraded paths.
type Reply struct {
	Text               string   `json:"text"`
	Lang               Language `json:"lang"`
	Intent             Intent   `json:"intent"`
	ToolsUsed          []string `json:"toolsUsed,omitempty"`
	Sources            []Source `json:"sources,omitempty"`
	ClarifyingQuestion string   `json:"clarifyingQuestion,omitempty"`
	Ambiguous          bool     `json:"ambiguous,omitempty"`
}

// ToolResult is the uniform outcome of a tool invocation. Exactly one of
// Data or Error is meaningful; Status carries an HTTP-like code.
type ToolResult struct {
	Success bool           `json:"success"`
	Status  int            `json:"status"`
	Data    map[string]any `json:"data,omitempty"`
	Results []any          `json:"results,omitempty"`
	Error   string         `json:"error,omitempty"`
	Source  string         `json:"source,omitempty"` // web_search: "cache" | "tavily" | "mock"
}
