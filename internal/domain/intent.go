package domain

// Intent is the orchestrator's classification of what a user message requests.
type Intent string

const (
	IntentBookTicket    Intent = "book_ticket"
	IntentCancelTicket  Intent = "cancel_ticket"
	IntentGetTicketInfo Intent = "get_ticket_info"
	IntentSuggestion    Intent = "travel_suggestion"
	IntentRAGQuestion   Intent = "rag_question"
	IntentGeneral       Intent = "general_question"
	IntentUnclear       Intent = "unclear"
)

// ValidIntents is the closed set the intent classifier may return.
var ValidIntents = []Intent{
	IntentBookTicket,
	IntentCancelTicket,
	IntentGetTicketInfo,
	IntentSuggestion,
	IntentRAGQuestion,
	IntentGeneral,
	IntentUnclear,
}

// IsValidIntent reports whether s is a member of the closed intent set.
func IsValidIntent(s string) bool {
	for _, in := range ValidIntents {
		if string(in) == s {
			return true
		}
	}
	return false
}

// Language is a detected user language.
type Language string

const (
	LanguagePersian Language = "fa"
	LanguageEnglish Language = "en"
)
