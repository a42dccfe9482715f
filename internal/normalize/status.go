package normalize

import (
	"strings"

	"github.com/evcraddock/house-calendar/internal/calendar"
)

type statusRule struct {
	keywords []string
	status   calendar.Status
}

// statusRules are evaluated in order; the first rule with a keyword
// contained in the text wins. Negated forms come before the words they
// contain ("ไม่ว่าง" contains "ว่าง").
var statusRules = []statusRule{
	{[]string{"ไม่ว่าง", "unavailable", "not available"}, calendar.StatusBooked},
	{[]string{"ว่าง", "available", "free", "vacant"}, calendar.StatusAvailable},
	{[]string{"ปิด", "closed", "close", "block", "maintenance"}, calendar.StatusClosed},
	{[]string{"ติดจอง", "จอง", "รอโอน", "booked", "reserved", "pending"}, calendar.StatusBooked},
}

// defaultStatus applies when no rule matches, including blank text.
const defaultStatus = calendar.StatusBooked

// Status maps free-text status to an enumerated value.
func Status(text string) calendar.Status {
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return defaultStatus
	}
	for _, r := range statusRules {
		for _, kw := range r.keywords {
			if strings.Contains(t, kw) {
				return r.status
			}
		}
	}
	return defaultStatus
}
