package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/safarlabs/safar/internal/domain"
)

// confirmedToken is the exact reply the model emits once the user has
// explicitly confirmed a fully collected booking.
const confirmedToken = "CONFIRMED"

// handleBooking runs the slot-filling flow for a booking request. Each
// user message advances at most one stage: extraction, correction,
// confirmation, or the booking tool call. Missing or invalid fields
// produce a clarifying question and end the turn without touching the
// ticket store.
func (o *Orchestrator) handleBooking(ctx context.Context, ts *turnState, message string) *domain.Reply {
	raw, err := o.chat.Ask(ctx, ts.userID, bookingExtractionPrompt+"\n\nLatest user message:\n"+message)
	if err != nil {
		o.log.Error().Err(err).Str("user", ts.userID).Msg("booking extraction call failed")
		return &domain.Reply{Text: providerErrorText(ts.lang)}
	}

	ext, err := parseSlotExtraction(raw)
	if err != nil {
		o.log.Warn().Err(err).Str("user", ts.userID).Msg("booking extraction was not valid JSON")
		return &domain.Reply{Text: parseErrorText(ts.lang)}
	}

	if ext.Question != "" {
		return &domain.Reply{Text: ext.Question, ClarifyingQuestion: ext.Question}
	}

	slots := ext.slots()
	if !slotsComplete(slots) {
		q := missingFieldsQuestion(ts.lang)
		return &domain.Reply{Text: q, ClarifyingQuestion: q}
	}

	if issues := validateSlots(slots); len(issues) > 0 {
		return o.askCorrection(ctx, ts, issues)
	}

	confirm, err := o.chat.Ask(ctx, ts.userID, bookingConfirmationPrompt)
	if err != nil {
		o.log.Error().Err(err).Str("user", ts.userID).Msg("booking confirmation call failed")
		return &domain.Reply{Text: providerErrorText(ts.lang)}
	}
	if strings.TrimSpace(confirm) != confirmedToken {
		text := strings.TrimSpace(confirm)
		return &domain.Reply{Text: text, ClarifyingQuestion: text}
	}

	return o.bookConfirmed(ctx, ts, slots)
}

// validateSlots applies the passenger field checks to every passenger.
func validateSlots(s domain.BookingSlots) []string {
	var issues []string
	for i, p := range s.Info {
		for _, issue := range validatePassenger(p) {
			issues = append(issues, fmt.Sprintf("passenger %d: %s", i+1, issue))
		}
	}
	return issues
}

// askCorrection has the model phrase the validation problems as one
// clarifying question. When the model is unreachable the issues are
// returned verbatim so the user still learns what to fix.
func (o *Orchestrator) askCorrection(ctx context.Context, ts *turnState, issues []string) *domain.Reply {
	prompt := bookingCorrectionPrompt + "\n- " + strings.Join(issues, "\n- ")
	text, err := o.chat.Ask(ctx, ts.userID, prompt)
	if err != nil {
		o.log.Warn().Err(err).Msg("correction phrasing call failed")
		text = strings.Join(issues, "; ")
	}
	text = strings.TrimSpace(text)
	return &domain.Reply{Text: text, ClarifyingQuestion: text}
}

// bookConfirmed emits and executes the booking tool call. The model is
// asked to produce the call; if it answers anything unparsable the
// params are built from the collected slots directly so a confirmed
// booking never stalls on phrasing.
func (o *Orchestrator) bookConfirmed(ctx context.Context, ts *turnState, slots domain.BookingSlots) *domain.Reply {
	raw, err := o.chat.Ask(ctx, ts.userID, bookingToolPrompt)

	var params map[string]any
	if err == nil {
		if resp := ParseModelResponse(raw); resp.Kind == KindToolCall && resp.Tool == "book_ticket" {
			params = resp.Params
		}
	}
	if params == nil {
		params = bookingParams(slots)
	}

	result := o.invokeTool(ctx, ts, "book_ticket", params)
	return o.phraseResult(ctx, ts, "book_ticket", result)
}

// bookingParams builds book_ticket params from collected slots. The
// tool books exactly one passenger per call, so only the lead passenger
// is forwarded even when the slots carry more.
func bookingParams(s domain.BookingSlots) map[string]any {
	p := map[string]any{
		"origin":      s.Origin,
		"destination": s.Destination,
		"date":        s.Date,
	}
	if len(s.Info) > 0 {
		p["passenger"] = map[string]any{
			"full_name":   s.Info[0].FullName,
			"national_id": NormalizePersianDigits(s.Info[0].NationalID),
			"phone":       NormalizePersianDigits(s.Info[0].Phone),
		}
	}
	return p
}

func missingFieldsQuestion(lang domain.Language) string {
	if lang == domain.LanguageEnglish {
		return "I still need some details to book the flight. Could you share the origin, destination, travel date, and passenger information (full name, national ID, phone)?"
	}
	return "برای رزرو بلیط به اطلاعات بیشتری نیاز دارم. لطفاً مبدأ، مقصد، تاریخ سفر و مشخصات مسافر (نام کامل، کد ملی و شماره تماس) را بفرمایید."
}
