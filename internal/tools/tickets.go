package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/safarlabs/safar/internal/domain"
	"github.com/safarlabs/safar/internal/logging"
)

// ValidCities is the fixed set of bookable domestic destinations.
var ValidCities = []string{
	"Tehran", "Mashhad", "Isfahan", "Shiraz", "Tabriz",
	"Kerman", "Rasht", "Ahvaz", "Yazd", "Kish",
}

// cityAliases maps Persian city names to their canonical form.
var cityAliases = map[string]string{
	"تهران":  "Tehran",
	"مشهد":   "Mashhad",
	"اصفهان": "Isfahan",
	"شیراز":  "Shiraz",
	"تبریز":  "Tabriz",
	"کرمان":  "Kerman",
	"رشت":    "Rasht",
	"اهواز":  "Ahvaz",
	"یزد":    "Yazd",
	"کیش":    "Kish",
}

const (
	baseFare       = 500_000
	distanceFactor = 20_000
	refundFraction = 0.7
)

// NormalizeCity resolves Persian aliases and case/whitespace variants to
// canonical city names. Unknown names pass through unchanged.
func NormalizeCity(name string) string {
	name = strings.TrimSpace(name)
	if canonical, ok := cityAliases[name]; ok {
		return canonical
	}
	for _, c := range ValidCities {
		if strings.EqualFold(c, name) {
			return c
		}
	}
	return name
}

func isValidCity(name string) bool {
	for _, c := range ValidCities {
		if c == name {
			return true
		}
	}
	return false
}

// TicketStore is the simulated ticket API backed by a JSONL file: one
// ticket per line, appended on booking, fully rewritten on cancellation
// (the target record already exists and must change state).
type TicketStore struct {
	mu      sync.Mutex
	path    string
	tickets map[string]*domain.Ticket
	log     *logging.Logger
}

// NewTicketStore opens (or creates) the ticket log at path and loads
// existing records. Malformed lines are skipped with a warning.
func NewTicketStore(path string, log *logging.Logger) (*TicketStore, error) {
	s := &TicketStore{
		path:    path,
		tickets: make(map[string]*domain.Ticket),
		log:     log.Sub("tickets"),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating ticket directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening ticket log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var t domain.Ticket
		if err := json.Unmarshal(raw, &t); err != nil {
			s.log.Warn().Int("line", line).Err(err).Msg("skipping malformed ticket record")
			continue
		}
		s.tickets[t.TicketID] = &t
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ticket log: %w", err)
	}

	s.log.Info().Int("tickets", len(s.tickets)).Str("path", path).Msg("ticket store loaded")
	return s, nil
}

// Count returns the number of known tickets.
func (s *TicketStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

// Book validates the booking request and persists a new confirmed ticket.
func (s *TicketStore) Book(origin, destination, date string, passenger domain.Passenger) domain.ToolResult {
	origin = NormalizeCity(origin)
	destination = NormalizeCity(destination)

	if !isValidCity(origin) || !isValidCity(destination) {
		return domain.ToolResult{Status: 400, Error: "Invalid city name"}
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return domain.ToolResult{Status: 400, Error: "Invalid date format (YYYY-MM-DD)"}
	}
	if passenger.FullName == "" || passenger.NationalID == "" || passenger.Phone == "" {
		return domain.ToolResult{Status: 400, Error: "Missing passenger information"}
	}

	// Placeholder pricing: base fare plus a function of the name-length
	// difference between the two cities.
	diff := len(origin) - len(destination)
	if diff < 0 {
		diff = -diff
	}
	price := baseFare + diff*distanceFactor

	ticket := &domain.Ticket{
		TicketID:    uuid.New().String(),
		Origin:      origin,
		Destination: destination,
		TravelDate:  date,
		Passenger:   passenger,
		Price:       price,
		Status:      domain.TicketStatusConfirmed,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickets[ticket.TicketID] = ticket
	if err := s.appendLocked(ticket); err != nil {
		delete(s.tickets, ticket.TicketID)
		return domain.ToolResult{Status: 500, Error: "persisting ticket: " + err.Error()}
	}

	return domain.ToolResult{
		Success: true,
		Status:  200,
		Data:    ticketData(ticket, "Ticket booked successfully"),
	}
}

// Cancel transitions a confirmed ticket to cancelled and computes the
// refund. Cancelling an unknown ticket is a not-found error; cancelling a
// ticket twice is rejected rather than re-applying the refund.
func (s *TicketStore) Cancel(ticketID string) domain.ToolResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return domain.ToolResult{Status: 404, Error: "Ticket not found"}
	}
	if ticket.Status == domain.TicketStatusCancelled {
		return domain.ToolResult{Status: 409, Error: "Ticket already cancelled"}
	}

	ticket.Status = domain.TicketStatusCancelled
	ticket.RefundAmount = int(float64(ticket.Price) * refundFraction)

	if err := s.rewriteLocked(); err != nil {
		return domain.ToolResult{Status: 500, Error: "persisting cancellation: " + err.Error()}
	}

	return domain.ToolResult{
		Success: true,
		Status:  200,
		Data: map[string]any{
			"message":       "Ticket cancelled",
			"ticket_id":     ticketID,
			"refund_amount": ticket.RefundAmount,
		},
	}
}

// Get returns the ticket with the given ID.
func (s *TicketStore) Get(ticketID string) domain.ToolResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket, ok := s.tickets[ticketID]
	if !ok {
		return domain.ToolResult{Status: 404, Error: "Ticket not found"}
	}
	return domain.ToolResult{Success: true, Status: 200, Data: ticketData(ticket, "")}
}

// appendLocked writes one ticket as a JSON line. Caller holds s.mu.
func (s *TicketStore) appendLocked(t *domain.Ticket) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	_, err = f.Write(append(data, '\n'))
	return err
}

// rewriteLocked re-serializes every record. Caller holds s.mu.
func (s *TicketStore) rewriteLocked() error {
	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(f)
	for _, t := range s.tickets {
		data, err := json.Marshal(t)
		if err != nil {
			f.Close()
			return err
		}
		w.Write(data)
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func ticketData(t *domain.Ticket, message string) map[string]any {
	data := map[string]any{
		"ticket_id":   t.TicketID,
		"origin":      t.Origin,
		"destination": t.Destination,
		"travel_date": t.TravelDate,
		"passenger": map[string]any{
			"full_name":   t.Passenger.FullName,
			"national_id": t.Passenger.NationalID,
			"phone":       t.Passenger.Phone,
		},
		"price":  t.Price,
		"status": string(t.Status),
	}
	if message != "" {
		data["message"] = message
	}
	return data
}

// Tool wrappers exposing the store through the registry.

// BookTicketTool books a ticket from extracted slot params.
type BookTicketTool struct{ Store *TicketStore }

func (t *BookTicketTool) Name() string { return "book_ticket" }

func (t *BookTicketTool) Description() string {
	return "Book a domestic flight ticket. Params: origin, destination, date (YYYY-MM-DD), passenger {full_name, national_id, phone}."
}

func (t *BookTicketTool) Run(_ context.Context, params map[string]any) domain.ToolResult {
	passenger := domain.Passenger{}
	if p, ok := params["passenger"].(map[string]any); ok {
		passenger.FullName = stringParam(p, "full_name", "name")
		passenger.NationalID = stringParam(p, "national_id")
		passenger.Phone = stringParam(p, "phone")
	}
	return t.Store.Book(
		stringParam(params, "origin"),
		stringParam(params, "destination"),
		stringParam(params, "date", "travel_date"),
		passenger,
	)
}

// CancelTicketTool cancels a ticket by ID.
type CancelTicketTool struct{ Store *TicketStore }

func (t *CancelTicketTool) Name() string { return "cancel_ticket" }

func (t *CancelTicketTool) Description() string {
	return "Cancel a booked ticket. Params: ticket_id."
}

func (t *CancelTicketTool) Run(_ context.Context, params map[string]any) domain.ToolResult {
	return t.Store.Cancel(stringParam(params, "ticket_id"))
}

// TicketInfoTool looks up a ticket by ID.
type TicketInfoTool struct{ Store *TicketStore }

func (t *TicketInfoTool) Name() string { return "get_ticket_info" }

func (t *TicketInfoTool) Description() string {
	return "Look up a booked ticket. Params: ticket_id."
}

func (t *TicketInfoTool) Run(_ context.Context, params map[string]any) domain.ToolResult {
	return t.Store.Get(stringParam(params, "ticket_id"))
}
