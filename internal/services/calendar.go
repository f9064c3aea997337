package services

import "cuotas/internal/core"

// FirstDueDate returns the first bi-weekly due date of a member enrolled on
// the given day: the 16th of that month when enrolled on or before the 16th,
// otherwise the last day of the month.
func FirstDueDate(enrollment core.Date) core.Date {
	if enrollment.Day() <= 16 {
		return core.NewDate(enrollment.Year(), enrollment.Month(), 16)
	}
	return enrollment.EndOfMonth()
}

// NextDueDate alternates between the 16th and the last day of the month.
func NextDueDate(due core.Date) core.Date {
	if due.Day() <= 16 {
		return due.EndOfMonth()
	}
	return core.NewDate(due.Year(), due.Month()+1, 16)
}

// DueDates lists every due date from enrollment up to and including horizon.
func DueDates(enrollment, horizon core.Date) []core.Date {
	var out []core.Date
	for d := FirstDueDate(enrollment); !d.After(horizon); d = NextDueDate(d) {
		out = append(out, d)
	}
	return out
}

// GeneratePeriods builds the member's calendar from enrollment to horizon
// with statuses as of today.
func GeneratePeriods(memberID string, enrollment, horizon, today core.Date, expected core.Money) []core.Period {
	dates := DueDates(enrollment, horizon)
	out := make([]core.Period, 0, len(dates))
	for _, d := range dates {
		out = append(out, newPeriod(memberID, d, today, expected))
	}
	return out
}

// ExtendPeriods builds the n periods that follow last.
func ExtendPeriods(memberID string, last, today core.Date, expected core.Money, n int) []core.Period {
	out := make([]core.Period, 0, n)
	d := last
	for i := 0; i < n; i++ {
		d = NextDueDate(d)
		out = append(out, newPeriod(memberID, d, today, expected))
	}
	return out
}

// MissingPeriods returns the periods of calendar whose key is not in existing.
func MissingPeriods(calendar, existing []core.Period) []core.Period {
	have := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		have[p.Key] = struct{}{}
	}
	var out []core.Period
	for _, p := range calendar {
		if _, ok := have[p.Key]; ok {
			continue
		}
		have[p.Key] = struct{}{}
		out = append(out, p)
	}
	return out
}

func newPeriod(memberID string, due, today core.Date, expected core.Money) core.Period {
	return core.Period{
		MemberID: memberID,
		Key:      core.PeriodKey(due),
		DueDate:  due,
		Expected: expected,
		Status:   core.ComputeStatus(due, core.Money{}, expected, today),
	}
}
