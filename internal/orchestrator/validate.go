package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/safarlabs/safar/internal/domain"
)

// persianDigits maps Eastern Arabic-Indic digits to ASCII.
var persianDigits = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
)

// NormalizePersianDigits replaces Persian digits with ASCII digits.
func NormalizePersianDigits(s string) string {
	return persianDigits.Replace(s)
}

var (
	// nameRe allows Latin and Persian letters with separating spaces.
	nameRe = regexp.MustCompile(`^[\p{L}\x{200C}]+(?: [\p{L}\x{200C}]+)*$`)

	// nationalIDRe requires exactly 10 digits.
	nationalIDRe = regexp.MustCompile(`^[0-9]{10}$`)

	// phoneRe matches Iranian mobile formats: 09xxxxxxxxx, +989xxxxxxxxx,
	// 00989xxxxxxxxx.
	phoneRe = regexp.MustCompile(`^(?:\+98|0098|0)9[0-9]{9}$`)
)

// validatePassenger checks the format of each passenger field and returns
// a list of human-readable issues, empty when valid. Digits are
// normalized before checking so Persian input passes.
func validatePassenger(p domain.Passenger) []string {
	var issues []string

	if !nameRe.MatchString(strings.TrimSpace(p.FullName)) {
		issues = append(issues, fmt.Sprintf("full_name %q must be alphabetic", p.FullName))
	}
	if !nationalIDRe.MatchString(NormalizePersianDigits(strings.TrimSpace(p.NationalID))) {
		issues = append(issues, fmt.Sprintf("national_id %q must be exactly 10 digits", p.NationalID))
	}
	phone := strings.ReplaceAll(NormalizePersianDigits(strings.TrimSpace(p.Phone)), " ", "")
	if !phoneRe.MatchString(phone) {
		issues = append(issues, fmt.Sprintf("phone %q must be a valid Iranian mobile number", p.Phone))
	}

	return issues
}

// slotsComplete reports whether every required booking field is present.
func slotsComplete(s domain.BookingSlots) bool {
	if s.Origin == "" || s.Destination == "" || s.Date == "" {
		return false
	}
	if s.Passengers < 1 || len(s.Info) < s.Passengers {
		return false
	}
	for _, p := range s.Info {
		if p.FullName == "" || p.NationalID == "" || p.Phone == "" {
			return false
		}
	}
	return true
}
