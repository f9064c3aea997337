package core

// StatusCounts tallies periods by status.
type StatusCounts struct {
	Paid       int
	Incomplete int
	Pending    int
	Future     int
}

// Add counts one period with status s.
func (c *StatusCounts) Add(s PeriodStatus) {
	switch s {
	case StatusPaid:
		c.Paid++
	case StatusIncomplete:
		c.Incomplete++
	case StatusPending:
		c.Pending++
	case StatusFuture:
		c.Future++
	}
}

func (c StatusCounts) Total() int {
	return c.Paid + c.Incomplete + c.Pending + c.Future
}

// Statement is the account statement of one member.
type Statement struct {
	Member      Member
	AsOf        Date
	Periods     []Period
	Counts      StatusCounts
	TotalPaid   Money
	Outstanding Money // remaining on overdue periods
}

// PeriodRow is a period together with the name of its member.
type PeriodRow struct {
	Period
	MemberName string
}

// Birthday is the next occurrence of a member's birthday.
type Birthday struct {
	MemberID  string
	Name      string
	Date      Date
	Age       int // age reached on Date
	DaysUntil int
}

// Dashboard aggregates the group's totals.
type Dashboard struct {
	AsOf          Date
	Members       int
	ActiveMembers int
	Income        Money
	Expenses      Money
	Balance       Money
	Counts        StatusCounts
	Birthdays     []Birthday
}
