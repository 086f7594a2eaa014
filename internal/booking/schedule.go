package booking

import (
	"strings"
	"time"
)

// IsReminderDue reports whether the single reminder should go out now.
// Missing or malformed data always yields false.
func IsReminderDue(rec Record, now time.Time, threshold time.Duration) bool {
	if !rec.IsAccepted() || !rec.WasEmailed() || rec.WasReminded() {
		return false
	}
	if rec.Issue.IsTerminal() {
		return false
	}

	sentAt, ok := ParseTimestamp(rec.EmailSentAt)
	if !ok {
		return false
	}
	return !sentAt.After(now.Add(-threshold))
}

// ParseTimestamp parses a stored timestamp in local time
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
