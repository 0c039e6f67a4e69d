package chat

import (
	"context"
	"time"

	"github.com/safarlabs/safar/internal/domain"
	"github.com/safarlabs/safar/internal/llm"
	"github.com/safarlabs/safar/internal/logging"
)

// ManagerConfig configures prompt assembly.
type ManagerConfig struct {
	System       string // system prompt prepended to every request
	HistoryTurns int    // turns folded into each prompt; 0 means all
	MaxTokens    int
	Temperature  *float64
}

// Manager assembles prompts from conversation history and calls the model.
// It owns no orchestration policy; handlers decide what to ask and when to
// record turns.
type Manager struct {
	cfg    ManagerConfig
	client llm.Client
	store  Store
	log    *logging.Logger
}

// NewManager creates a chat manager.
func NewManager(cfg ManagerConfig, client llm.Client, store Store, log *logging.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		client: client,
		store:  store,
		log:    log.Sub("chat"),
	}
}

// Store exposes the underlying conversation store.
func (m *Manager) Store() Store { return m.store }

// Ask sends prompt on behalf of userID with the bounded conversation
// history folded in as prior messages. It does not record a turn; callers
// record once per user-visible exchange via Record.
func (m *Manager) Ask(ctx context.Context, userID, prompt string) (string, error) {
	history := m.store.Recent(userID, m.cfg.HistoryTurns)

	msgs := make([]llm.Message, 0, len(history)*2+1)
	for _, t := range history {
		msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: t.User})
		msgs = append(msgs, llm.Message{Role: llm.RoleAssistant, Content: t.Assistant})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: prompt})

	resp, err := m.client.Complete(ctx, llm.CompletionRequest{
		System:      m.systemWithDate(),
		Messages:    msgs,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: m.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}

	m.log.Debug().
		Str("user", userID).
		Int("historyTurns", len(history)).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Msg("model call completed")

	return resp.Content, nil
}

// Record appends one completed user/assistant exchange to history.
func (m *Manager) Record(userID, user, assistant string) {
	m.store.Append(userID, domain.Turn{
		User:      user,
		Assistant: assistant,
		Timestamp: time.Now(),
	})
}

// systemWithDate appends the current date to the system prompt so the
// model can resolve relative date phrases.
func (m *Manager) systemWithDate() string {
	return m.cfg.System + "\n\nToday's date (Gregorian): " + time.Now().Format("2006-01-02")
}
