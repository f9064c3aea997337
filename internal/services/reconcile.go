package services

import (
	"sort"
	"time"

	"cuotas/internal/core"
)

// Allocate applies amount to the periods oldest-first. Each period receives
// min(remaining, left) and has its status recomputed as of today. The input
// slice is not modified.
//
// Applied + Leftover always equals amount.
func Allocate(periods []core.Period, amount core.Money, at time.Time, today core.Date) core.Allocation {
	sorted := append([]core.Period(nil), periods...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DueDate.Before(sorted[j].DueDate)
	})

	var a core.Allocation
	left := amount
	for _, p := range sorted {
		if left.Cents <= 0 {
			break
		}
		remaining := p.Remaining()
		if remaining.Cents == 0 {
			continue
		}
		apply := core.Min(remaining, left)
		if a.PriorPaid == nil {
			a.PriorPaid = make(map[string]core.Money)
		}
		a.PriorPaid[p.Key] = p.Paid
		p.Paid = p.Paid.Add(apply)
		p.Refresh(today)
		left = left.Sub(apply)

		if a.MemberID == "" {
			a.MemberID = p.MemberID
		}
		a.Updates = append(a.Updates, p)
		a.Contributions = append(a.Contributions, core.Contribution{
			MemberID:  p.MemberID,
			PeriodKey: p.Key,
			Amount:    apply,
			At:        at,
			Kind:      ClassifyContribution(p.DueDate, at),
		})
		a.Applied = a.Applied.Add(apply)
	}
	a.Leftover = left
	return a
}

// ClassifyContribution marks a payment early when it lands before the
// period's due date.
func ClassifyContribution(due core.Date, at time.Time) core.ContributionKind {
	if due.After(core.DateOf(at)) {
		return core.KindEarly
	}
	return core.KindOnTime
}

// Outstanding sums what is still owed across periods.
func Outstanding(periods []core.Period) core.Money {
	var total core.Money
	for _, p := range periods {
		total = total.Add(p.Remaining())
	}
	return total
}
