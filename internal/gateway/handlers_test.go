package gateway

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safarlabs/safar/internal/chat"
	"github.com/safarlabs/safar/internal/config"
	"github.com/safarlabs/safar/internal/llm"
	"github.com/safarlabs/safar/internal/logging"
	"github.com/safarlabs/safar/internal/orchestrator"
	"github.com/safarlabs/safar/internal/tools"
)

// newTestServer wires a gateway over a scripted model and an empty tool
// registry, enough for the HTTP surface.
func newTestServer(t *testing.T, responses ...string) *Server {
	t.Helper()

	log := logging.New(os.Stderr, "silent")
	client := &llm.MockClient{Responses: responses}
	mgr := chat.NewManager(chat.ManagerConfig{HistoryTurns: 20}, client, chat.NewMemoryStore(), log)
	orch := orchestrator.New(orchestrator.Config{}, mgr, tools.NewRegistry(log), log)

	cfg := config.Defaults()
	cfg.Server.Auth = config.ServerAuth{Mode: "none"}
	feedback := NewFeedbackLog(filepath.Join(t.TempDir(), "feedback.csv"))
	return New(cfg, orch, feedback, log)
}

func serveMux(s *Server) http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return withMiddleware(mux, s.log)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	serveMux(s).ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHandleChat(t *testing.T) {
	s := newTestServer(t, "en", "general_question", "Happy to help!")

	body := strings.NewReader(`{"user_id": "u1", "message": "hello"}`)
	rec := httptest.NewRecorder()
	serveMux(s).ServeHTTP(rec, httptest.NewRequest("POST", "/api/chat", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Happy to help!")
	assert.Contains(t, rec.Body.String(), `"lang":"en"`)
}

func TestHandleChatValidation(t *testing.T) {
	s := newTestServer(t)
	mux := serveMux(s)

	cases := []string{
		`{"user_id": "", "message": "hi"}`,
		`{"user_id": "u1", "message": ""}`,
		`not even json`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/chat", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestHandleChatRequiresToken(t *testing.T) {
	s := newTestServer(t, "en", "general_question", "hi")
	s.auth = ResolvedAuth{Mode: "token", Token: "secret"}
	mux := serveMux(s)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"user_id":"u1","message":"hi"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"user_id":"u1","message":"hi"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleFeedback(t *testing.T) {
	s := newTestServer(t)
	mux := serveMux(s)

	rec := httptest.NewRecorder()
	payload := `{"user_id": "u1", "question": "قیمت بلیط؟", "answer": "۵۲۰ هزار تومان", "rating": 5, "like": true, "comment": "عالی بود"}`
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/feedback", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code)

	f, err := os.Open(s.feedback.path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"timestamp", "user_id", "question", "answer", "rating", "like", "comment"}, rows[0])
	assert.Equal(t, "u1", rows[1][1])
	assert.Equal(t, "قیمت بلیط؟", rows[1][2])
	assert.Equal(t, "5", rows[1][4])
	assert.Equal(t, "true", rows[1][5])
	assert.Equal(t, "عالی بود", rows[1][6])
}

func TestHandleFeedbackRejectsBadRating(t *testing.T) {
	s := newTestServer(t)
	mux := serveMux(s)

	for _, body := range []string{
		`{"user_id": "u1", "rating": 0}`,
		`{"user_id": "u1", "rating": 6}`,
		`{"user_id": "", "rating": 3}`,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/feedback", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body: %s", body)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	serveMux(s).ServeHTTP(rec, httptest.NewRequest("GET", "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	serveMux(s).ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
