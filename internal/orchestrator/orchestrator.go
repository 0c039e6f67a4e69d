// Package orchestrator implements the dialogue state machine: one pass
// per user message through language detection, intent classification,
// an intent-specific handler with bounded tool rounds, and a final reply.
package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/safarlabs/safar/internal/chat"
	"github.com/safarlabs/safar/internal/domain"
	"github.com/safarlabs/safar/internal/logging"
	"github.com/safarlabs/safar/internal/tools"
)

// Config tunes the state machine.
type Config struct {
	// MaxToolRounds caps sequential tool invocations per message.
	MaxToolRounds int
	// TopK is the retrieval depth for RAG lookups.
	TopK int
}

// Orchestrator coordinates the model, tools and conversation history.
// State is instance-owned and injected; there are no package globals.
type Orchestrator struct {
	cfg   Config
	chat  *chat.Manager
	tools *tools.Registry
	log   *logging.Logger

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// New creates an orchestrator.
func New(cfg Config, chatMgr *chat.Manager, registry *tools.Registry, log *logging.Logger) *Orchestrator {
	if cfg.MaxToolRounds < 1 {
		cfg.MaxToolRounds = 3
	}
	if cfg.TopK < 1 {
		cfg.TopK = 3
	}
	return &Orchestrator{
		cfg:       cfg,
		chat:      chatMgr,
		tools:     registry,
		log:       log.Sub("orchestrator"),
		userLocks: make(map[string]*sync.Mutex),
	}
}

// turnState accumulates per-message bookkeeping across tool rounds.
type turnState struct {
	userID    string
	lang      domain.Language
	toolsUsed []string
	rounds    int
	sources   []domain.Source
}

// Run processes one user message and always produces a reply; degraded
// answers are preferred over failures. Concurrent messages from the same
// user are serialized on a per-user lock since they share mutable
// history.
func (o *Orchestrator) Run(ctx context.Context, userID, message string) *domain.Reply {
	lock := o.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	lang := o.detectLanguage(ctx, userID, message)
	intent := o.detectIntent(ctx, userID, message)

	o.log.Info().
		Str("user", userID).
		Str("lang", string(lang)).
		Str("intent", string(intent)).
		Msg("message classified")

	ts := &turnState{userID: userID, lang: lang}

	var reply *domain.Reply
	switch intent {
	case domain.IntentBookTicket:
		reply = o.handleBooking(ctx, ts, message)
	case domain.IntentCancelTicket:
		reply = o.handleCancel(ctx, ts, message)
	case domain.IntentGetTicketInfo:
		reply = o.handleTicketInfo(ctx, ts, message)
	case domain.IntentSuggestion:
		reply = o.handleSuggestion(ctx, ts, message)
	case domain.IntentRAGQuestion:
		reply = o.handleRAG(ctx, ts, message)
	default:
		reply = o.handleGeneral(ctx, ts, message)
	}

	reply.Lang = lang
	reply.Intent = intent
	reply.ToolsUsed = ts.toolsUsed
	if len(reply.Sources) == 0 {
		reply.Sources = ts.sources
	}

	o.chat.Record(userID, message, reply.Text)
	return reply
}

// userLock returns the serialization lock for a user, creating it lazily.
func (o *Orchestrator) userLock(userID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	l, ok := o.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		o.userLocks[userID] = l
	}
	return l
}

// detectLanguage classifies the message language. Anything outside
// {fa, en}, including a provider failure, falls back to Persian; the
// fallback is logged so silent misclassification stays observable.
func (o *Orchestrator) detectLanguage(ctx context.Context, userID, message string) domain.Language {
	prompt := languageDetectionPrompt + "\n\nUser message:\n" + message

	raw, err := o.chat.Ask(ctx, userID, prompt)
	if err != nil {
		o.log.Warn().Err(err).Str("fallback", "fa").Msg("language detection failed")
		return domain.LanguagePersian
	}

	switch lang := strings.ToLower(strings.TrimSpace(raw)); lang {
	case "fa", "en":
		return domain.Language(lang)
	default:
		o.log.Warn().Str("got", lang).Str("fallback", "fa").Msg("language detection returned unexpected token")
		return domain.LanguagePersian
	}
}

// detectIntent classifies the message intent. An unrecognized response is
// retried as a JSON object with an "intent" field; failing that, the
// handler falls back to travel_suggestion, which degrades to web search
// rather than a hard failure. Fallbacks are logged.
func (o *Orchestrator) detectIntent(ctx context.Context, userID, message string) domain.Intent {
	prompt := intentClassificationPrompt + "\n\nUser message:\n" + message

	raw, err := o.chat.Ask(ctx, userID, prompt)
	if err != nil {
		o.log.Warn().Err(err).Str("fallback", "travel_suggestion").Msg("intent classification failed")
		return domain.IntentSuggestion
	}

	token := strings.TrimSpace(raw)
	if domain.IsValidIntent(token) {
		return domain.Intent(token)
	}

	// Some models wrap the answer in JSON despite the instruction.
	var obj struct {
		Intent string `json:"intent"`
	}
	candidate := token
	if m := codeFenceRe.FindStringSubmatch(candidate); m != nil {
		candidate = strings.TrimSpace(m[1])
	}
	if err := json.Unmarshal([]byte(candidate), &obj); err == nil && domain.IsValidIntent(obj.Intent) {
		return domain.Intent(obj.Intent)
	}

	o.log.Warn().Str("got", token).Str("fallback", "travel_suggestion").Msg("intent classification returned unexpected token")
	return domain.IntentSuggestion
}

// invokeTool runs one tool round, applying date normalization when a
// date param is present and enforcing the per-message round ceiling.
func (o *Orchestrator) invokeTool(ctx context.Context, ts *turnState, name string, params map[string]any) domain.ToolResult {
	if ts.rounds >= o.cfg.MaxToolRounds {
		o.log.Warn().Str("tool", name).Int("rounds", ts.rounds).Msg("tool round limit reached")
		return domain.ToolResult{Status: 429, Error: "tool round limit reached"}
	}
	ts.rounds++

	o.normalizeDateParam(ctx, ts.userID, params)

	result := o.tools.Run(ctx, name, params)
	ts.toolsUsed = append(ts.toolsUsed, name)
	return result
}

// Reply text for degraded paths, by language.

func parseErrorText(lang domain.Language) string {
	if lang == domain.LanguageEnglish {
		return "Sorry, I could not process that. Could you rephrase your request?"
	}
	return "متأسفم، نتوانستم درخواست شما را پردازش کنم. لطفاً دوباره بیان کنید."
}

func providerErrorText(lang domain.Language) string {
	if lang == domain.LanguageEnglish {
		return "Sorry, I'm having trouble reaching the assistant service right now. Please try again."
	}
	return "متأسفم، در حال حاضر امکان پاسخگویی نیست. لطفاً کمی بعد دوباره تلاش کنید."
}

func marshalResult(result domain.ToolResult) string {
	data, err := json.Marshal(result)
	if err != nil {
		return `{"error":"result serialization failed"}`
	}
	return string(data)
}
