package orchestrator

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/safarlabs/safar/internal/domain"
)

// ResponseKind classifies a parsed model response.
type ResponseKind int

const (
	// KindPlainText is free text addressed to the user.
	KindPlainText ResponseKind = iota
	// KindToolCall is a request to invoke a named tool.
	KindToolCall
	// KindClarifying is a question the user must answer before the flow
	// can continue.
	KindClarifying
)

// ModelResponse is the typed contract parsed out of free-text model
// output. The model "protocol" is JSON embedded in natural language, so
// parsing is centralized here with one documented fallback: anything that
// is not a recognizable tool call or clarifying question is plain text.
type ModelResponse struct {
	Kind   ResponseKind
	Text   string
	Tool   string
	Params map[string]any
}

// embeddedToolCallRe finds a JSON object containing a "tool" key inside
// surrounding prose.
var embeddedToolCallRe = regexp.MustCompile(`(?s)(\{[^{}]*"tool"[^{}]*(?:\{[^{}]*\}[^{}]*)*\})`)

// codeFenceRe strips markdown code fences the model may wrap JSON in.
var codeFenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// ParseModelResponse parses raw model output into the typed response
// contract. Resolution order: whole-output JSON tool call → whole-output
// JSON clarifying question → embedded JSON tool call → plain text.
func ParseModelResponse(raw string) ModelResponse {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ModelResponse{Kind: KindPlainText, Text: ""}
	}

	candidate := text
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		candidate = strings.TrimSpace(m[1])
	}

	if resp, ok := parseJSONObject(candidate); ok {
		return resp
	}

	if m := embeddedToolCallRe.FindStringSubmatch(candidate); m != nil {
		if resp, ok := parseJSONObject(m[1]); ok && resp.Kind == KindToolCall {
			return resp
		}
	}

	return ModelResponse{Kind: KindPlainText, Text: text}
}

func parseJSONObject(candidate string) (ModelResponse, bool) {
	if !strings.HasPrefix(candidate, "{") {
		return ModelResponse{}, false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return ModelResponse{}, false
	}

	if tool, ok := obj["tool"].(string); ok && tool != "" {
		params, _ := obj["params"].(map[string]any)
		if params == nil {
			params = map[string]any{}
		}
		return ModelResponse{Kind: KindToolCall, Tool: tool, Params: params}, true
	}

	if q, ok := obj["question"].(string); ok && strings.TrimSpace(q) != "" {
		return ModelResponse{Kind: KindClarifying, Text: strings.TrimSpace(q)}, true
	}

	return ModelResponse{}, false
}

// slotExtraction is the model's structured answer to the booking
// extraction prompt.
type slotExtraction struct {
	Origin      string             `json:"origin"`
	Destination string             `json:"destination"`
	Date        string             `json:"date"`
	Passengers  int                `json:"passengers"`
	Info        []domain.Passenger `json:"passenger_info"`
	Question    string             `json:"question"`
}

// parseSlotExtraction parses the booking extraction response. A response
// that is not valid JSON is a parse error, terminal for the turn.
func parseSlotExtraction(raw string) (slotExtraction, error) {
	text := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var out slotExtraction
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return slotExtraction{}, err
	}
	out.Question = strings.TrimSpace(out.Question)
	return out, nil
}

func (s slotExtraction) slots() domain.BookingSlots {
	return domain.BookingSlots{
		Origin:      s.Origin,
		Destination: s.Destination,
		Date:        s.Date,
		Passengers:  s.Passengers,
		Info:        s.Info,
	}
}
