package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Server.Port < 0 || cfg.Server.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "server.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Server.Port),
		})
	}

	validBinds := []string{"loopback", "lan"}
	if cfg.Server.Bind != "" && !slices.Contains(validBinds, cfg.Server.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "server.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Server.Bind),
		})
	}

	validAuthModes := []string{"token", "none"}
	if cfg.Server.Auth.Mode != "" && !slices.Contains(validAuthModes, cfg.Server.Auth.Mode) {
		issues = append(issues, ValidationIssue{
			Path:    "server.auth.mode",
			Message: fmt.Sprintf("must be one of %v, got %q", validAuthModes, cfg.Server.Auth.Mode),
		})
	}

	validProviders := []string{"groq", "mock"}
	if cfg.Model.Provider != "" && !slices.Contains(validProviders, cfg.Model.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "model.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.Model.Provider),
		})
	}

	if cfg.Model.Provider == "groq" && cfg.Model.APIKey == "" {
		issues = append(issues, ValidationIssue{
			Path:    "model.apiKey",
			Message: "required for provider \"groq\" (set GROQ_API_KEY or model.apiKey)",
		})
	}

	if cfg.Orchestrator.MaxToolRounds < 1 {
		issues = append(issues, ValidationIssue{
			Path:    "orchestrator.maxToolRounds",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Orchestrator.MaxToolRounds),
		})
	}

	if cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		issues = append(issues, ValidationIssue{
			Path:    "rag.chunkOverlap",
			Message: fmt.Sprintf("must be smaller than chunkSize (%d), got %d", cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
