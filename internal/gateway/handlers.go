package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/safarlabs/safar/internal/version"
)

const maxChatBody = 64 * 1024

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// HealthResponse is the GET /healthz body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: version.Version,
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply := s.orch.Run(r.Context(), req.UserID, req.Message)
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var entry FeedbackEntry
	if err := decodeBody(r, &entry); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(entry.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if entry.Rating < 1 || entry.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}

	if err := s.feedback.Append(entry); err != nil {
		s.log.Error().Err(err).Msg("recording feedback failed")
		writeError(w, http.StatusInternalServerError, "could not record feedback")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxChatBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// wsMessage is one inbound WebSocket chat frame.
type wsMessage struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// wsError is an error frame sent back over the socket.
type wsError struct {
	Error string `json:"error"`
}

// handleWebSocket upgrades the connection and serves a chat loop: one
// reply frame per inbound message frame, in order.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !Authorize(s.auth, bearerToken(r)) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxChatBody)

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("new websocket connection")

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			s.log.Debug().Err(err).Msg("websocket closed")
			return
		}
		if msg.UserID == "" || strings.TrimSpace(msg.Message) == "" {
			if err := conn.WriteJSON(wsError{Error: "user_id and message are required"}); err != nil {
				return
			}
			continue
		}

		reply := s.orch.Run(r.Context(), msg.UserID, msg.Message)
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}
