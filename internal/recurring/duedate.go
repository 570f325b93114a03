// Package recurring computes due dates of scheduled transactions and keeps
// the stored schedule current.
package recurring

import (
	"fmt"
	"time"

	"fjacquet/fintrack/internal/models"
)

// NextDueDate returns the next occurrence of a schedule starting at start.
// Whole days elapsed since start are divided by 1, 7, 30 or 365 to count the
// periods already passed; months and years are then added as calendar
// fields. Monthly schedules can therefore drift across short months and
// occasionally land a day or two before today.
func NextDueDate(start time.Time, freq models.Frequency, today time.Time) (time.Time, error) {
	start = dateOnly(start)
	today = dateOnly(today)
	if start.After(today) {
		return start, nil
	}

	elapsed := int(today.Sub(start).Hours() / 24)
	switch freq {
	case models.FrequencyDaily:
		return start.AddDate(0, 0, elapsed+1), nil
	case models.FrequencyWeekly:
		return start.AddDate(0, 0, (elapsed/7+1)*7), nil
	case models.FrequencyMonthly:
		return start.AddDate(0, elapsed/30+1, 0), nil
	case models.FrequencyYearly:
		return start.AddDate(elapsed/365+1, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("unknown frequency %q", freq)
	}
}

// NextDueDateISO is NextDueDate over YYYY-MM-DD strings.
func NextDueDateISO(start string, freq models.Frequency, today time.Time) (string, error) {
	s, err := time.Parse(models.DateLayout, start)
	if err != nil {
		return "", fmt.Errorf("invalid start date %q: %w", start, err)
	}
	next, err := NextDueDate(s, freq, today)
	if err != nil {
		return "", err
	}
	return next.Format(models.DateLayout), nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
