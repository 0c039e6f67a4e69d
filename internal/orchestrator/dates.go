package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
)

// dateInfo is the model's normalized reading of a date expression.
type dateInfo struct {
	Jalali    string `json:"jalali_date"`
	Gregorian string `json:"gregorian_date"`
	Status    string `json:"status"`
	ErrorKind string `json:"error"`
	Message   string `json:"message"`
}

// interpretDate asks the model to normalize a date expression to
// Gregorian form. A provider failure or unparsable response yields an
// error-flagged result rather than failing the flow.
func (o *Orchestrator) interpretDate(ctx context.Context, userID, dateText string) dateInfo {
	prompt := dateInterpretationPrompt + "\n\nUser message:\n" + NormalizePersianDigits(dateText)

	raw, err := o.chat.Ask(ctx, userID, prompt)
	if err != nil {
		o.log.Warn().Err(err).Msg("date interpretation call failed")
		return dateInfo{ErrorKind: "llm_parse_failed"}
	}

	text := strings.TrimSpace(raw)
	if m := codeFenceRe.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var info dateInfo
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		return dateInfo{ErrorKind: "llm_parse_failed"}
	}
	return info
}

// normalizeDateParam rewrites a "date" param to its Gregorian form when
// present. Interpretation failures annotate the params instead of
// blocking the tool call.
func (o *Orchestrator) normalizeDateParam(ctx context.Context, userID string, params map[string]any) {
	raw, ok := params["date"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return
	}

	info := o.interpretDate(ctx, userID, raw)
	if info.Gregorian != "" {
		params["date"] = info.Gregorian
	}
	if info.Jalali != "" {
		params["_jalali_date"] = info.Jalali
	}
	if info.ErrorKind != "" {
		params["_date_parse_error"] = info.ErrorKind
	}
}
