package config

// Config is the root configuration for the Safar assistant service.
type Config struct {
	Server       ServerConfig       `yaml:"server,omitempty"`
	Model        ModelConfig        `yaml:"model,omitempty"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator,omitempty"`
	Search       SearchConfig       `yaml:"search,omitempty"`
	RAG          RAGConfig          `yaml:"rag,omitempty"`
	Tickets      TicketsConfig      `yaml:"tickets,omitempty"`
	Feedback     FeedbackConfig     `yaml:"feedback,omitempty"`
	Logging      LoggingConfig      `yaml:"logging,omitempty"`
}

// ServerConfig controls the HTTP/WebSocket gateway.
type ServerConfig struct {
	Port int        `yaml:"port,omitempty"`
	Bind string     `yaml:"bind,omitempty"` // "loopback" | "lan"
	Auth ServerAuth `yaml:"auth,omitempty"`
}

// ServerAuth configures gateway authentication.
type ServerAuth struct {
	Mode  string `yaml:"mode,omitempty"` // "token" | "none"
	Token string `yaml:"token,omitempty"`
}

// ModelConfig selects and configures the LLM provider.
type ModelConfig struct {
	Provider       string   `yaml:"provider,omitempty"` // "groq" | "mock"
	APIKey         string   `yaml:"apiKey,omitempty"`
	Model          string   `yaml:"model,omitempty"`
	BaseURL        string   `yaml:"baseUrl,omitempty"`
	MaxTokens      int      `yaml:"maxTokens,omitempty"`
	Temperature    *float64 `yaml:"temperature,omitempty"`
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"`
}

// OrchestratorConfig tunes the dialogue state machine.
type OrchestratorConfig struct {
	MaxToolRounds int `yaml:"maxToolRounds,omitempty"`
	HistoryTurns  int `yaml:"historyTurns,omitempty"` // turns folded into each prompt
}

// SearchConfig configures the web search tool.
type SearchConfig struct {
	TavilyAPIKey   string `yaml:"tavilyApiKey,omitempty"`
	CacheTTL       int    `yaml:"cacheTtlSeconds,omitempty"`
	MinIntervalMS  int    `yaml:"minIntervalMs,omitempty"`
	MaxResults     int    `yaml:"maxResults,omitempty"`
	TimeoutSeconds int    `yaml:"timeoutSeconds,omitempty"`
}

// RAGConfig configures the retrieval index.
type RAGConfig struct {
	DBPath       string `yaml:"dbPath,omitempty"`
	DocsDir      string `yaml:"docsDir,omitempty"`
	ChunkSize    int    `yaml:"chunkSize,omitempty"`
	ChunkOverlap int    `yaml:"chunkOverlap,omitempty"`
	TopK         int    `yaml:"topK,omitempty"`
}

// TicketsConfig configures the ticket simulator store.
type TicketsConfig struct {
	Path string `yaml:"path,omitempty"` // JSONL ticket log
}

// FeedbackConfig configures the feedback CSV log.
type FeedbackConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}
