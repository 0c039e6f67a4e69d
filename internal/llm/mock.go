package llm

import "context"

// MockClient is a test double for Client. Responses can be scripted per
// call via CompleteFunc or queued via Responses.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Responses are returned in order when CompleteFunc is nil; the last
	// entry repeats once the queue is exhausted.
	Responses []string
	calls     int

	// Requests records every request seen, for assertions.
	Requests []CompletionRequest
}

func (m *MockClient) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	if len(m.Responses) > 0 {
		i := m.calls
		if i >= len(m.Responses) {
			i = len(m.Responses) - 1
		}
		m.calls++
		return &CompletionResponse{Content: m.Responses[i]}, nil
	}
	return &CompletionResponse{Content: "mock response"}, nil
}
