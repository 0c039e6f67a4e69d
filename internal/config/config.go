// Package config loads and validates the Safar service configuration.
package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8417,
			Bind: "loopback",
			Auth: ServerAuth{
				Mode: "token",
			},
		},
		Model: ModelConfig{
			Provider:       "groq",
			Model:          "meta-llama/llama-4-maverick-17b-128e-instruct",
			BaseURL:        "https://api.groq.com/openai/v1",
			MaxTokens:      1024,
			TimeoutSeconds: 60,
		},
		Orchestrator: OrchestratorConfig{
			MaxToolRounds: 3,
			HistoryTurns:  20,
		},
		Search: SearchConfig{
			CacheTTL:       300,
			MinIntervalMS:  1000,
			MaxResults:     5,
			TimeoutSeconds: 8,
		},
		RAG: RAGConfig{
			ChunkSize:    800,
			ChunkOverlap: 100,
			TopK:         3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
