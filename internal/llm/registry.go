package llm

import (
	"fmt"
	"sync"

	"github.com/safarlabs/safar/internal/config"
	"github.com/safarlabs/safar/internal/logging"
)

// ProviderError is returned when an LLM provider fails. Auth, rate-limit,
// timeout and network failures are all folded into this one kind; callers
// branch on the error type, not the cause.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP-like status code (401, 429, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Registry manages LLM provider clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client
	fallback string
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients: make(map[string]Client),
		log:     log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered LLM provider")
}

// SetFallback sets the default provider used when no name matches.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given provider name, falling back to
// the registry default when the name is unknown.
func (r *Registry) Resolve(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.clients[name]; ok {
		return c, nil
	}
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}
	return nil, fmt.Errorf("no LLM provider %q", name)
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	return names
}

// NewRegistryFromConfig builds a Registry from the model configuration.
func NewRegistryFromConfig(cfg config.ModelConfig, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	switch cfg.Provider {
	case "mock":
		reg.Register("mock", &MockClient{ProviderName: "mock"})
		reg.SetFallback("mock")
	default:
		client := NewGroqClient(GroqConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			BaseURL: cfg.BaseURL,
			Timeout: cfg.TimeoutSeconds,
		})
		reg.Register("groq", client)
		reg.SetFallback("groq")
	}
	return reg
}
