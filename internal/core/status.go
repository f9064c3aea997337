package core

import (
	"fmt"
	"strconv"
	"strings"
)

// ComputeStatus derives a period's status from its due date, the amount paid
// so far, the amount expected and the current day.
//
// Partially paid overdue periods are Incomplete, unpaid overdue periods are
// Pending. A period due today or later is Future until fully paid.
func ComputeStatus(due Date, paid, expected Money, today Date) PeriodStatus {
	switch {
	case paid.Cents >= expected.Cents:
		return StatusPaid
	case !due.Before(today):
		return StatusFuture
	case paid.Cents > 0:
		return StatusIncomplete
	default:
		return StatusPending
	}
}

// PeriodOrdinal returns the position of a due date within its year: the 16th
// of January is 1, the last day of January is 2, and so on up to 24.
func PeriodOrdinal(due Date) int {
	o := (due.Month() - 1) * 2
	if due.Day() <= 16 {
		return o + 1
	}
	return o + 2
}

// PeriodKey formats the stable identifier of the period due on the given date.
func PeriodKey(due Date) string {
	return fmt.Sprintf("%d-Q%02d", due.Year(), PeriodOrdinal(due))
}

// DueDateForKey is the inverse of PeriodKey.
func DueDateForKey(key string) (Date, error) {
	year, ord, ok := strings.Cut(key, "-Q")
	if !ok {
		return Date{}, Invalid("period", fmt.Sprintf("malformed period key %q", key))
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return Date{}, Invalid("period", fmt.Sprintf("malformed period key %q", key))
	}
	n, err := strconv.Atoi(ord)
	if err != nil || n < 1 || n > 24 {
		return Date{}, Invalid("period", fmt.Sprintf("malformed period key %q", key))
	}
	month := (n + 1) / 2
	if n%2 == 1 {
		return NewDate(y, month, 16), nil
	}
	return NewDate(y, month, 1).EndOfMonth(), nil
}
