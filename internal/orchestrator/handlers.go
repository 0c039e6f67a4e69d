package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/safarlabs/safar/internal/domain"
)

// handleCancel resolves a ticket ID from the conversation and runs the
// cancellation tool. A missing ID becomes a clarifying question.
func (o *Orchestrator) handleCancel(ctx context.Context, ts *turnState, message string) *domain.Reply {
	return o.handleTicketOp(ctx, ts, message, cancelToolPrompt, "cancel_ticket")
}

// handleTicketInfo looks up ticket status and details by ID.
func (o *Orchestrator) handleTicketInfo(ctx context.Context, ts *turnState, message string) *domain.Reply {
	return o.handleTicketOp(ctx, ts, message, infoToolPrompt, "get_ticket_info")
}

// handleTicketOp is the shared flow for ID-keyed ticket operations: the
// model either emits the tool call or asks for the missing ID.
func (o *Orchestrator) handleTicketOp(ctx context.Context, ts *turnState, message, prompt, toolName string) *domain.Reply {
	raw, err := o.chat.Ask(ctx, ts.userID, prompt+"\n\nLatest user message:\n"+message)
	if err != nil {
		o.log.Error().Err(err).Str("user", ts.userID).Str("tool", toolName).Msg("ticket op call failed")
		return &domain.Reply{Text: providerErrorText(ts.lang)}
	}

	resp := ParseModelResponse(raw)
	switch resp.Kind {
	case KindToolCall:
		if resp.Tool != toolName {
			o.log.Warn().Str("want", toolName).Str("got", resp.Tool).Msg("model emitted unexpected tool")
			return &domain.Reply{Text: parseErrorText(ts.lang)}
		}
		if id, ok := resp.Params["ticket_id"].(string); ok {
			resp.Params["ticket_id"] = NormalizePersianDigits(strings.TrimSpace(id))
		}
		result := o.invokeTool(ctx, ts, toolName, resp.Params)
		return o.phraseResult(ctx, ts, toolName, result)
	case KindClarifying:
		return &domain.Reply{Text: resp.Text, ClarifyingQuestion: resp.Text}
	default:
		// Plain text here is the model asking for the ticket ID.
		return &domain.Reply{Text: resp.Text, ClarifyingQuestion: resp.Text}
	}
}

// handleSuggestion answers destination questions from web search results.
// The search tool degrades internally (cache, then live, then mock), so
// this handler always has material to phrase.
func (o *Orchestrator) handleSuggestion(ctx context.Context, ts *turnState, message string) *domain.Reply {
	result := o.invokeTool(ctx, ts, "web_search", map[string]any{"query": message})
	if !result.Success {
		o.log.Warn().Str("error", result.Error).Msg("web search tool failed")
		return &domain.Reply{Text: providerErrorText(ts.lang)}
	}

	ts.sources = append(ts.sources, searchSources(result)...)

	// Search results are returned as-is; the presentation layer decides
	// how to render them.
	return &domain.Reply{Text: marshalResult(result)}
}

// handleRAG retrieves policy chunks and answers strictly from them.
func (o *Orchestrator) handleRAG(ctx context.Context, ts *turnState, message string) *domain.Reply {
	result := o.invokeTool(ctx, ts, "rag_query", map[string]any{"query": message, "top_k": o.cfg.TopK})
	if !result.Success {
		o.log.Warn().Str("error", result.Error).Msg("rag tool failed")
		return o.handleGeneral(ctx, ts, message)
	}

	if len(result.Results) == 0 {
		return &domain.Reply{Text: noDocumentsText(ts.lang)}
	}

	var docs strings.Builder
	for _, item := range result.Results {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		doc, _ := m["document"].(string)
		src, _ := m["source"].(string)
		dist, _ := m["distance"].(float64)
		fmt.Fprintf(&docs, "[%s]\n%s\n\n", src, doc)
		ts.sources = append(ts.sources, domain.Source{Document: doc, Origin: src, Distance: dist})
	}

	prompt := ragAnswerPrompt + "\n\nDocuments:\n" + docs.String() + "Question:\n" + message
	text, err := o.chat.Ask(ctx, ts.userID, prompt)
	if err != nil {
		o.log.Error().Err(err).Msg("rag answer call failed")
		return &domain.Reply{Text: providerErrorText(ts.lang)}
	}
	return &domain.Reply{Text: strings.TrimSpace(text), Sources: ts.sources}
}

// handleGeneral answers directly from the model with conversation
// history, no tools. It is also the terminal fallback for the unclear
// intent, where the model asks its own clarifying question.
func (o *Orchestrator) handleGeneral(ctx context.Context, ts *turnState, message string) *domain.Reply {
	text, err := o.chat.Ask(ctx, ts.userID, message)
	if err != nil {
		o.log.Error().Err(err).Str("user", ts.userID).Msg("general answer call failed")
		return &domain.Reply{Text: providerErrorText(ts.lang)}
	}
	return &domain.Reply{Text: strings.TrimSpace(text)}
}

// phraseResult turns a tool outcome into user-facing text. When the
// model is unreachable a fixed-format summary is returned instead so the
// operation's outcome is never lost.
func (o *Orchestrator) phraseResult(ctx context.Context, ts *turnState, toolName string, result domain.ToolResult) *domain.Reply {
	prompt := fmt.Sprintf(
		"The %s operation finished with this result. Report the outcome to the user in their language, briefly. Do not invent fields.\n\nResult:\n%s",
		toolName, marshalResult(result),
	)

	text, err := o.chat.Ask(ctx, ts.userID, prompt)
	if err != nil {
		o.log.Warn().Err(err).Str("tool", toolName).Msg("result phrasing call failed")
		return &domain.Reply{Text: rawResultText(ts.lang, result)}
	}
	return &domain.Reply{Text: strings.TrimSpace(text)}
}

// searchSources converts web search result items into reply sources.
func searchSources(result domain.ToolResult) []domain.Source {
	sources := make([]domain.Source, 0, len(result.Results))
	for _, item := range result.Results {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		title, _ := m["title"].(string)
		snippet, _ := m["snippet"].(string)
		u, _ := m["url"].(string)
		sources = append(sources, domain.Source{Title: title, Snippet: snippet, URL: u})
	}
	return sources
}

func rawResultText(lang domain.Language, result domain.ToolResult) string {
	if result.Success {
		if lang == domain.LanguageEnglish {
			return "Done. Details: " + marshalResult(result)
		}
		return "انجام شد. جزئیات: " + marshalResult(result)
	}
	if lang == domain.LanguageEnglish {
		return "The operation failed: " + result.Error
	}
	return "عملیات انجام نشد: " + result.Error
}

func noDocumentsText(lang domain.Language) string {
	if lang == domain.LanguageEnglish {
		return "I could not find anything about that in our policy documents."
	}
	return "در اسناد و قوانین شرکت پاسخی برای این سؤال پیدا نکردم."
}
