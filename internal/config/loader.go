package config

import (
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so API keys and tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Server.Auth.Token = expandEnvVars(cfg.Server.Auth.Token)
	cfg.Model.APIKey = expandEnvVars(cfg.Model.APIKey)
	cfg.Search.TavilyAPIKey = expandEnvVars(cfg.Search.TavilyAPIKey)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. A missing file produces defaults only. A .env file in
// the working directory is loaded first, if present.
func Load(path string) (Config, error) {
	_ = godotenv.Load() // no .env is fine

	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			expandSensitiveFields(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = def.Server.Bind
	}
	if cfg.Server.Auth.Mode == "" {
		cfg.Server.Auth.Mode = def.Server.Auth.Mode
	}
	if cfg.Model.Provider == "" {
		cfg.Model.Provider = def.Model.Provider
	}
	if cfg.Model.Model == "" {
		cfg.Model.Model = def.Model.Model
	}
	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = def.Model.BaseURL
	}
	if cfg.Model.MaxTokens == 0 {
		cfg.Model.MaxTokens = def.Model.MaxTokens
	}
	if cfg.Model.TimeoutSeconds == 0 {
		cfg.Model.TimeoutSeconds = def.Model.TimeoutSeconds
	}
	if cfg.Orchestrator.MaxToolRounds == 0 {
		cfg.Orchestrator.MaxToolRounds = def.Orchestrator.MaxToolRounds
	}
	if cfg.Orchestrator.HistoryTurns == 0 {
		cfg.Orchestrator.HistoryTurns = def.Orchestrator.HistoryTurns
	}
	if cfg.Search.CacheTTL == 0 {
		cfg.Search.CacheTTL = def.Search.CacheTTL
	}
	if cfg.Search.MinIntervalMS == 0 {
		cfg.Search.MinIntervalMS = def.Search.MinIntervalMS
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = def.Search.MaxResults
	}
	if cfg.Search.TimeoutSeconds == 0 {
		cfg.Search.TimeoutSeconds = def.Search.TimeoutSeconds
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = def.RAG.ChunkSize
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = def.RAG.ChunkOverlap
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = def.RAG.TopK
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}

// applyEnvOverrides reads SAFAR_* environment variables and overrides config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SAFAR_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SAFAR_SERVER_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("SAFAR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("SAFAR_MODEL_PROVIDER"); v != "" {
		cfg.Model.Provider = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" && cfg.Model.APIKey == "" {
		cfg.Model.APIKey = v
	}
	if v := os.Getenv("TAVILY_API_KEY"); v != "" && cfg.Search.TavilyAPIKey == "" {
		cfg.Search.TavilyAPIKey = v
	}
}
