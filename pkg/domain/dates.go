package domain

import (
	"strings"
	"time"

	dErrors "smartgn/pkg/domain-errors"
)

// DateLayout is the calendar-date form accepted alongside RFC 3339.
const DateLayout = "2006-01-02"

// ParseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date.
// Plain dates are midnight UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "invalid date "+`"`+s+`"`+", expected RFC 3339 or YYYY-MM-DD")
}

// ParseOptionalDate is ParseDate for optional fields: blank input yields nil.
func ParseOptionalDate(s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// DayBounds returns [start, end) of the UTC calendar day containing t.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
