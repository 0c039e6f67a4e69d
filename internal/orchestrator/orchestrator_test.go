package orchestrator

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safarlabs/safar/internal/chat"
	"github.com/safarlabs/safar/internal/domain"
	"github.com/safarlabs/safar/internal/llm"
	"github.com/safarlabs/safar/internal/logging"
	"github.com/safarlabs/safar/internal/rag"
	"github.com/safarlabs/safar/internal/tools"
)

// testHarness wires a scripted model, a real ticket store on a temp
// file, an in-memory retrieval index, and the web search tool in
// mock-fallback mode (no API key).
type testHarness struct {
	orch        *Orchestrator
	client      *llm.MockClient
	ticketsPath string
	store       *tools.TicketStore
	index       *rag.Index
	ragDB       *rag.DB
}

func newHarness(t *testing.T, responses ...string) *testHarness {
	t.Helper()

	log := logging.New(os.Stderr, "silent")
	client := &llm.MockClient{Responses: responses}
	mgr := chat.NewManager(chat.ManagerConfig{System: SystemPrompt, HistoryTurns: 20}, client, chat.NewMemoryStore(), log)

	ticketsPath := filepath.Join(t.TempDir(), "tickets.jsonl")
	store, err := tools.NewTicketStore(ticketsPath, log)
	require.NoError(t, err)

	ragDB, err := rag.Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { ragDB.Close() })
	index := rag.NewIndex(ragDB, rag.IndexConfig{ChunkSize: 200, ChunkOverlap: 40})

	registry := tools.NewRegistry(log)
	registry.Register(&tools.BookTicketTool{Store: store})
	registry.Register(&tools.CancelTicketTool{Store: store})
	registry.Register(&tools.TicketInfoTool{Store: store})
	registry.Register(tools.NewWebSearch(tools.WebSearchConfig{}, log))
	registry.Register(&tools.RAGTool{Index: index, TopK: 3})

	orch := New(Config{MaxToolRounds: 3, TopK: 3}, mgr, registry, log)
	return &testHarness{
		orch:        orch,
		client:      client,
		ticketsPath: ticketsPath,
		store:       store,
		index:       index,
		ragDB:       ragDB,
	}
}

func (h *testHarness) ticketsOnDisk(t *testing.T) []domain.Ticket {
	t.Helper()
	f, err := os.Open(h.ticketsPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer f.Close()

	var out []domain.Ticket
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var tk domain.Ticket
		require.NoError(t, json.Unmarshal(sc.Bytes(), &tk))
		out = append(out, tk)
	}
	return out
}

func TestRunGeneralQuestion(t *testing.T) {
	h := newHarness(t,
		"en",
		"general_question",
		"Hello! How can I help you plan your trip?",
	)

	reply := h.orch.Run(context.Background(), "u1", "hi there")

	assert.Equal(t, domain.LanguageEnglish, reply.Lang)
	assert.Equal(t, domain.IntentGeneral, reply.Intent)
	assert.Equal(t, "Hello! How can I help you plan your trip?", reply.Text)
	assert.Empty(t, reply.ToolsUsed)
}

func TestRunRecordsTurnInHistory(t *testing.T) {
	h := newHarness(t, "fa", "general_question", "سلام!")

	h.orch.Run(context.Background(), "u1", "سلام")

	turns := h.orch.chat.Store().Recent("u1", 20)
	require.Len(t, turns, 1)
	assert.Equal(t, "سلام", turns[0].User)
	assert.Equal(t, "سلام!", turns[0].Assistant)
}

func TestLanguageFallsBackToPersian(t *testing.T) {
	h := newHarness(t, "de", "general_question", "پاسخ")

	reply := h.orch.Run(context.Background(), "u1", "hallo")

	assert.Equal(t, domain.LanguagePersian, reply.Lang)
}

func TestUnknownIntentFallsBackToSuggestion(t *testing.T) {
	h := newHarness(t, "fa", "something_the_model_made_up")

	reply := h.orch.Run(context.Background(), "u1", "یه جای خوب برای سفر")

	assert.Equal(t, domain.IntentSuggestion, reply.Intent)
	assert.Contains(t, reply.ToolsUsed, "web_search")
	// No search key configured, so the mock tier served the results.
	assert.NotEmpty(t, reply.Sources)
	// Suggestion replies carry the serialized search results untouched.
	assert.Contains(t, reply.Text, "results")
}

func TestRAGQuestionAnswersFromDocuments(t *testing.T) {
	h := newHarness(t,
		"en",
		"rag_question",
		"Cancelled tickets are refunded at seventy percent of the fare.",
	)
	_, err := h.index.IngestDocument("refund-policy.md",
		"Cancelled tickets are refunded at seventy percent of the paid fare within five business days.")
	require.NoError(t, err)

	reply := h.orch.Run(context.Background(), "u1", "How much of the fare is refunded on cancellation?")

	assert.Equal(t, domain.IntentRAGQuestion, reply.Intent)
	assert.Contains(t, reply.ToolsUsed, "rag_query")
	assert.Equal(t, "Cancelled tickets are refunded at seventy percent of the fare.", reply.Text)
	require.NotEmpty(t, reply.Sources)
	assert.Equal(t, "refund-policy.md", reply.Sources[0].Origin)
	assert.Contains(t, reply.Sources[0].Document, "seventy percent")

	// The answering prompt carries the retrieved text.
	last := h.client.Requests[len(h.client.Requests)-1]
	prompt := last.Messages[len(last.Messages)-1].Content
	assert.Contains(t, prompt, "[refund-policy.md]")
	assert.Contains(t, prompt, "seventy percent")
}

func TestRAGQuestionWithEmptyIndex(t *testing.T) {
	h := newHarness(t, "en", "rag_question")

	reply := h.orch.Run(context.Background(), "u1", "What is the baggage allowance?")

	assert.Equal(t, domain.IntentRAGQuestion, reply.Intent)
	assert.Contains(t, reply.ToolsUsed, "rag_query")
	assert.Equal(t, noDocumentsText(domain.LanguageEnglish), reply.Text)
	assert.Empty(t, reply.Sources)
}

func TestRAGFailureFallsBackToGeneral(t *testing.T) {
	h := newHarness(t,
		"en",
		"rag_question",
		"I can answer that from general knowledge.",
	)
	require.NoError(t, h.ragDB.Close())

	reply := h.orch.Run(context.Background(), "u1", "What is the baggage allowance?")

	assert.Equal(t, domain.IntentRAGQuestion, reply.Intent)
	assert.Equal(t, "I can answer that from general knowledge.", reply.Text)
}

func TestIntentAcceptedFromJSONWrapper(t *testing.T) {
	h := newHarness(t,
		"en",
		"```json\n{\"intent\": \"general_question\"}\n```",
		"Sure.",
	)

	reply := h.orch.Run(context.Background(), "u1", "quick question")

	assert.Equal(t, domain.IntentGeneral, reply.Intent)
}

func TestProviderFailureStillReplies(t *testing.T) {
	h := newHarness(t)
	h.client.CompleteFunc = func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, &llm.ProviderError{Provider: "groq", Message: "unreachable"}
	}

	reply := h.orch.Run(context.Background(), "u1", "سلام")

	// Language and intent both fall back, and the general handler's
	// provider-error text is returned instead of an error.
	assert.Equal(t, domain.LanguagePersian, reply.Lang)
	assert.NotEmpty(t, reply.Text)
}

func TestCancelNonexistentTicket(t *testing.T) {
	h := newHarness(t,
		"fa",
		"cancel_ticket",
		`{"tool": "cancel_ticket", "params": {"ticket_id": "98421375"}}`,
		"بلیطی با شماره 98421375 پیدا نشد.",
	)

	reply := h.orch.Run(context.Background(), "u1", "بلیط 98421375 رو کنسل کن")

	assert.Equal(t, domain.IntentCancelTicket, reply.Intent)
	assert.Equal(t, []string{"cancel_ticket"}, reply.ToolsUsed)
	assert.Equal(t, "بلیطی با شماره 98421375 پیدا نشد.", reply.Text)
	assert.Empty(t, h.ticketsOnDisk(t))
}

func TestCancelAsksForMissingID(t *testing.T) {
	h := newHarness(t,
		"fa",
		"cancel_ticket",
		"لطفاً شماره بلیط را بفرمایید.",
	)

	reply := h.orch.Run(context.Background(), "u1", "می‌خوام بلیطم رو کنسل کنم")

	assert.Empty(t, reply.ToolsUsed)
	assert.Equal(t, "لطفاً شماره بلیط را بفرمایید.", reply.ClarifyingQuestion)
}

func TestCancelNormalizesPersianTicketID(t *testing.T) {
	h := newHarness(t)
	booked := h.store.Book("Tehran", "Shiraz", "2026-09-10", domain.Passenger{
		FullName: "Sara Karimi", NationalID: "1234567890", Phone: "09121234567",
	})
	require.True(t, booked.Success)
	id := booked.Data["ticket_id"].(string)

	persianID := ""
	for _, r := range id {
		if r >= '0' && r <= '9' {
			persianID += string([]rune("۰۱۲۳۴۵۶۷۸۹")[r-'0'])
		} else {
			persianID += string(r)
		}
	}

	h.client.Responses = []string{
		"fa",
		"cancel_ticket",
		`{"tool": "cancel_ticket", "params": {"ticket_id": "` + persianID + `"}}`,
		"بلیط لغو شد.",
	}

	reply := h.orch.Run(context.Background(), "u1", "کنسلش کن")

	assert.Equal(t, []string{"cancel_ticket"}, reply.ToolsUsed)
	cancelled := h.ticketsOnDisk(t)
	require.Len(t, cancelled, 1)
	assert.Equal(t, domain.TicketStatusCancelled, cancelled[0].Status)
}

func TestBookingClarifyingQuestionRunsNoTool(t *testing.T) {
	h := newHarness(t,
		"fa",
		"book_ticket",
		`{"origin": "تهران", "destination": "", "date": "", "passengers": 0, "passenger_info": [], "question": "مقصد سفر شما کجاست؟"}`,
	)

	reply := h.orch.Run(context.Background(), "u1", "می‌خوام از تهران بلیط بگیرم")

	assert.Equal(t, "مقصد سفر شما کجاست؟", reply.ClarifyingQuestion)
	assert.Empty(t, reply.ToolsUsed)
	assert.Empty(t, h.ticketsOnDisk(t))
}

func TestBookingInvalidNationalIDAsksCorrection(t *testing.T) {
	h := newHarness(t,
		"fa",
		"book_ticket",
		`{"origin": "تهران", "destination": "شیراز", "date": "1403-01-15", "passengers": 1,
		  "passenger_info": [{"full_name": "علی رضایی", "national_id": "123", "phone": "09123456789"}],
		  "question": ""}`,
		"کد ملی باید دقیقاً ۱۰ رقم باشد. لطفاً کد ملی صحیح را وارد کنید.",
	)

	reply := h.orch.Run(context.Background(), "u1", "کد ملی 123")

	assert.NotEmpty(t, reply.ClarifyingQuestion)
	assert.Empty(t, reply.ToolsUsed)
}

func TestBookingParamsForwardLeadPassenger(t *testing.T) {
	params := bookingParams(domain.BookingSlots{
		Origin:      "Tehran",
		Destination: "Shiraz",
		Date:        "2024-04-01",
		Passengers:  2,
		Info: []domain.Passenger{
			{FullName: "Sara Ahmadi", NationalID: "۱۲۳۴۵۶۷۸۹۰", Phone: "09121234567"},
			{FullName: "Ali Ahmadi", NationalID: "0987654321", Phone: "09127654321"},
		},
	})

	passenger, ok := params["passenger"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Sara Ahmadi", passenger["full_name"])
	assert.Equal(t, "1234567890", passenger["national_id"])
}

func TestBookingWaitsForConfirmation(t *testing.T) {
	h := newHarness(t,
		"fa",
		"book_ticket",
		`{"origin": "تهران", "destination": "شیراز", "date": "1403-01-15", "passengers": 1,
		  "passenger_info": [{"full_name": "علی رضایی", "national_id": "0012345678", "phone": "09123456789"}],
		  "question": ""}`,
		"رزرو: تهران به شیراز، ۱۵ فروردین، علی رضایی. تأیید می‌کنید؟",
	)

	reply := h.orch.Run(context.Background(), "u1", "همه اطلاعات رو دادم")

	assert.Empty(t, reply.ToolsUsed)
	assert.NotEmpty(t, reply.ClarifyingQuestion)
	assert.Empty(t, h.ticketsOnDisk(t))
}

func TestBookingConfirmedFlow(t *testing.T) {
	h := newHarness(t,
		"fa",
		"book_ticket",
		`{"origin": "تهران", "destination": "شیراز", "date": "۲۵ اسفند ۱۴۰۲", "passengers": 1,
		  "passenger_info": [{"full_name": "علی رضایی", "national_id": "0012345678", "phone": "09123456789"}],
		  "question": ""}`,
		"CONFIRMED",
		`{"tool": "book_ticket", "params": {"origin": "تهران", "destination": "شیراز", "date": "۲۵ اسفند ۱۴۰۲",
		  "passenger": {"full_name": "علی رضایی", "national_id": "0012345678", "phone": "09123456789"}}}`,
		`{"jalali_date": "۲۵ اسفند ۱۴۰۲", "gregorian_date": "2024-03-15", "status": "ok"}`,
		"بلیط شما با موفقیت رزرو شد.",
	)

	reply := h.orch.Run(context.Background(), "u1", "بله، تایید می‌کنم")

	assert.Equal(t, []string{"book_ticket"}, reply.ToolsUsed)
	assert.Equal(t, "بلیط شما با موفقیت رزرو شد.", reply.Text)

	tickets := h.ticketsOnDisk(t)
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.TicketStatusConfirmed, tickets[0].Status)
	assert.Equal(t, "2024-03-15", tickets[0].TravelDate)
	assert.Equal(t, "علی رضایی", tickets[0].Passenger.FullName)
	assert.NotEmpty(t, tickets[0].TicketID)
}

func TestBookThenCancelRoundTrip(t *testing.T) {
	h := newHarness(t,
		"fa",
		"book_ticket",
		`{"origin": "Tehran", "destination": "Mashhad", "date": "2026-09-10", "passengers": 1,
		  "passenger_info": [{"full_name": "Sara Karimi", "national_id": "1234567890", "phone": "09121234567"}],
		  "question": ""}`,
		"CONFIRMED",
		`{"tool": "book_ticket", "params": {"origin": "Tehran", "destination": "Mashhad", "date": "2026-09-10",
		  "passenger": {"full_name": "Sara Karimi", "national_id": "1234567890", "phone": "09121234567"}}}`,
		`{"jalali_date": "", "gregorian_date": "2026-09-10", "status": "ok"}`,
		"Booked.",
	)

	h.orch.Run(context.Background(), "u1", "confirm the booking")

	tickets := h.ticketsOnDisk(t)
	require.Len(t, tickets, 1)
	id := tickets[0].TicketID

	// Cancel the booked ticket in a second message.
	h.client.Responses = append(h.client.Responses,
		"en",
		"cancel_ticket",
		`{"tool": "cancel_ticket", "params": {"ticket_id": "`+id+`"}}`,
		"Your ticket was cancelled. Refund issued.",
	)

	reply := h.orch.Run(context.Background(), "u1", "cancel ticket "+id)

	assert.Equal(t, []string{"cancel_ticket"}, reply.ToolsUsed)
	tickets = h.ticketsOnDisk(t)
	require.Len(t, tickets, 1)
	assert.Equal(t, domain.TicketStatusCancelled, tickets[0].Status)
	assert.Greater(t, tickets[0].RefundAmount, 0)
}

func TestToolRoundLimit(t *testing.T) {
	h := newHarness(t)
	ts := &turnState{userID: "u1", lang: domain.LanguagePersian, rounds: 3}

	result := h.orch.invokeTool(context.Background(), ts, "web_search", map[string]any{"query": "x"})

	assert.False(t, result.Success)
	assert.Equal(t, 429, result.Status)
}

func TestInvokeToolRejectsUnknownTool(t *testing.T) {
	h := newHarness(t)
	ts := &turnState{userID: "u1", lang: domain.LanguagePersian}

	result := h.orch.invokeTool(context.Background(), ts, "warp_drive", nil)

	assert.False(t, result.Success)
	assert.Equal(t, 400, result.Status)
}
