package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// GroqConfig configures the Groq provider.
type GroqConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout int // seconds; 0 means 60
}

// GroqClient talks to Groq's OpenAI-compatible chat completions endpoint.
type GroqClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// NewGroqClient creates a Groq API client with a per-call timeout.
func NewGroqClient(cfg GroqConfig) *GroqClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &GroqClient{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the provider name.
func (c *GroqClient) Name() string { return "groq" }

type groqChatRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends a chat completion request.
func (c *GroqClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.model
	}

	msgs := make([]groqMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, groqMessage{Role: RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, groqMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(groqChatRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, &ProviderError{Provider: "groq", Message: "request timed out", Code: 0}
		}
		return nil, &ProviderError{Provider: "groq", Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "groq", Message: "reading response: " + err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{
			Provider: "groq",
			Message:  truncate(string(respBody), 512),
			Code:     resp.StatusCode,
		}
	}

	var result groqChatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ProviderError{Provider: "groq", Message: "parsing response: " + err.Error()}
	}
	if result.Error != nil {
		return nil, &ProviderError{Provider: "groq", Message: result.Error.Message}
	}
	if len(result.Choices) == 0 {
		return nil, &ProviderError{Provider: "groq", Message: "empty choices in response"}
	}

	return &CompletionResponse{
		Content: result.Choices[0].Message.Content,
		Model:   result.Model,
		Usage: Usage{
			InputTokens:  result.Usage.PromptTokens,
			OutputTokens: result.Usage.CompletionTokens,
		},
		Duration: time.Since(start),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
