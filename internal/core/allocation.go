package core

// Allocation is the result of applying one payment to a member's periods.
// It is persisted as a unit.
type Allocation struct {
	MemberID string
	BatchID  string
	// NewPeriods are prepaid periods beyond the horizon that must be created
	// before Updates are applied.
	NewPeriods    []Period
	Updates       []Period
	// PriorPaid holds the paid amount of each updated period as it was read
	// before allocating, keyed by period key. Stores apply an update only if
	// the period still holds that amount. A missing key means zero.
	PriorPaid     map[string]Money
	Contributions []Contribution
	Applied       Money
	Leftover      Money
}

// StalePeriod reports that a period changed between reading it and
// applying an allocation to it.
func StalePeriod(key string) error {
	return Invalid("period", "period "+key+" changed while the payment was recorded, try again")
}
