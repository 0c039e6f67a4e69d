package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safarlabs/safar/internal/domain"
	"github.com/safarlabs/safar/internal/logging"
)

var testPassenger = domain.Passenger{
	FullName:   "Ali Rezaei",
	NationalID: "0012345678",
	Phone:      "09123456789",
}

func newTestTicketStore(t *testing.T) (*TicketStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tickets.jsonl")
	store, err := NewTicketStore(path, logging.New(os.Stderr, "silent"))
	require.NoError(t, err)
	return store, path
}

func TestBookTicket(t *testing.T) {
	store, _ := newTestTicketStore(t)

	result := store.Book("Tehran", "Mashhad", "2026-09-10", testPassenger)

	require.True(t, result.Success)
	assert.Equal(t, 200, result.Status)
	assert.NotEmpty(t, result.Data["ticket_id"])
	assert.Equal(t, "confirmed", result.Data["status"])
	// base fare plus city-name-length difference: |6-7| * 20000.
	assert.Equal(t, 520000, result.Data["price"])
}

func TestBookNormalizesPersianCityNames(t *testing.T) {
	store, _ := newTestTicketStore(t)

	result := store.Book("تهران", "شیراز", "2026-09-10", testPassenger)

	require.True(t, result.Success)
	assert.Equal(t, "Tehran", result.Data["origin"])
	assert.Equal(t, "Shiraz", result.Data["destination"])
}

func TestBookRejectsUnknownCity(t *testing.T) {
	store, _ := newTestTicketStore(t)

	result := store.Book("Atlantis", "Tehran", "2026-09-10", testPassenger)

	assert.False(t, result.Success)
	assert.Equal(t, 400, result.Status)
	assert.Equal(t, "Invalid city name", result.Error)
}

func TestBookRejectsBadDate(t *testing.T) {
	store, _ := newTestTicketStore(t)

	result := store.Book("Tehran", "Shiraz", "10/09/2026", testPassenger)

	assert.Equal(t, 400, result.Status)
}

func TestBookRejectsMissingPassenger(t *testing.T) {
	store, _ := newTestTicketStore(t)

	result := store.Book("Tehran", "Shiraz", "2026-09-10", domain.Passenger{FullName: "Ali"})

	assert.Equal(t, 400, result.Status)
}

func TestTicketIDsAreUnique(t *testing.T) {
	store, _ := newTestTicketStore(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		result := store.Book("Tehran", "Shiraz", "2026-09-10", testPassenger)
		require.True(t, result.Success)
		id := result.Data["ticket_id"].(string)
		assert.False(t, seen[id], "duplicate ticket id %s", id)
		seen[id] = true
	}
}

func TestCancelComputesRefund(t *testing.T) {
	store, _ := newTestTicketStore(t)
	booked := store.Book("Tehran", "Mashhad", "2026-09-10", testPassenger)
	id := booked.Data["ticket_id"].(string)

	result := store.Cancel(id)

	require.True(t, result.Success)
	// 70% of 520000, floored.
	assert.Equal(t, 364000, result.Data["refund_amount"])
}

func TestCancelUnknownTicket(t *testing.T) {
	store, _ := newTestTicketStore(t)

	result := store.Cancel("no-such-id")

	assert.False(t, result.Success)
	assert.Equal(t, 404, result.Status)
}

func TestCancelTwiceIsRejected(t *testing.T) {
	store, _ := newTestTicketStore(t)
	booked := store.Book("Tehran", "Shiraz", "2026-09-10", testPassenger)
	id := booked.Data["ticket_id"].(string)

	require.True(t, store.Cancel(id).Success)
	second := store.Cancel(id)

	assert.False(t, second.Success)
	assert.Equal(t, 409, second.Status)
}

func TestGetTicket(t *testing.T) {
	store, _ := newTestTicketStore(t)
	booked := store.Book("Tehran", "Shiraz", "2026-09-10", testPassenger)
	id := booked.Data["ticket_id"].(string)

	result := store.Get(id)

	require.True(t, result.Success)
	assert.Equal(t, id, result.Data["ticket_id"])
	assert.Equal(t, "Tehran", result.Data["origin"])

	missing := store.Get("nope")
	assert.Equal(t, 404, missing.Status)
}

func TestStoreSurvivesReopen(t *testing.T) {
	store, path := newTestTicketStore(t)
	booked := store.Book("Tehran", "Shiraz", "2026-09-10", testPassenger)
	id := booked.Data["ticket_id"].(string)
	require.True(t, store.Cancel(id).Success)

	reopened, err := NewTicketStore(path, logging.New(os.Stderr, "silent"))
	require.NoError(t, err)

	assert.Equal(t, 1, reopened.Count())
	got := reopened.Get(id)
	require.True(t, got.Success)
	assert.Equal(t, "cancelled", got.Data["status"])
}

func TestStoreSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.jsonl")
	content := `{"ticket_id":"t1","origin":"Tehran","destination":"Shiraz","travel_date":"2026-09-10","passenger":{"full_name":"Ali Rezaei","national_id":"0012345678","phone":"09123456789"},"price":520000,"status":"confirmed"}
this line is not json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	store, err := NewTicketStore(path, logging.New(os.Stderr, "silent"))
	require.NoError(t, err)

	assert.Equal(t, 1, store.Count())
	assert.True(t, store.Get("t1").Success)
}

func TestNormalizeCity(t *testing.T) {
	assert.Equal(t, "Tehran", NormalizeCity("  tehran "))
	assert.Equal(t, "Mashhad", NormalizeCity("مشهد"))
	assert.Equal(t, "Kish", NormalizeCity("KISH"))
	assert.Equal(t, "Atlantis", NormalizeCity("Atlantis"))
}
