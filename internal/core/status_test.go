package core

import "testing"

func TestComputeStatus(t *testing.T) {
	today := NewDate(2024, 3, 1)
	past := NewDate(2024, 2, 16)
	future := NewDate(2024, 3, 16)
	thirty := Money{Cents: 3000}

	tests := []struct {
		name string
		due  Date
		paid Money
		want PeriodStatus
	}{
		{"paid in full", past, thirty, StatusPaid},
		{"overpaid", past, Money{Cents: 4000}, StatusPaid},
		{"future paid", future, thirty, StatusPaid},
		{"overdue partial", past, Money{Cents: 1500}, StatusIncomplete},
		{"overdue unpaid", past, Money{}, StatusPending},
		{"due today unpaid", today, Money{}, StatusFuture},
		{"future partial", future, Money{Cents: 1500}, StatusFuture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStatus(tt.due, tt.paid, thirty, today); got != tt.want {
				t.Errorf("ComputeStatus() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeStatusMonotonicInPaid(t *testing.T) {
	rank := map[PeriodStatus]int{StatusPending: 0, StatusIncomplete: 1, StatusPaid: 2}
	due := NewDate(2024, 1, 16)
	today := NewDate(2024, 2, 1)
	expected := Money{Cents: 3000}
	prev := -1
	for paid := int64(0); paid <= 3500; paid += 250 {
		r := rank[ComputeStatus(due, Money{Cents: paid}, expected, today)]
		if r < prev {
			t.Fatalf("status regressed at paid=%d", paid)
		}
		prev = r
	}
}

func TestComputeStatusAdvancesWithToday(t *testing.T) {
	due := NewDate(2024, 1, 31)
	expected := Money{Cents: 3000}
	if got := ComputeStatus(due, Money{}, expected, NewDate(2024, 1, 31)); got != StatusFuture {
		t.Fatalf("on due date got %v, want Futuro", got)
	}
	if got := ComputeStatus(due, Money{}, expected, NewDate(2024, 2, 1)); got != StatusPending {
		t.Fatalf("after due date got %v, want Pendiente", got)
	}
}

func TestPeriodRefresh(t *testing.T) {
	p := Period{DueDate: NewDate(2024, 1, 16), Expected: Money{Cents: 3000}, Paid: Money{Cents: 1000}, Status: StatusFuture}
	if !p.Refresh(NewDate(2024, 2, 1)) || p.Status != StatusIncomplete {
		t.Fatalf("Refresh() status = %v, want Incompleto", p.Status)
	}
	if p.Refresh(NewDate(2024, 2, 2)) {
		t.Fatalf("Refresh() reported change for unchanged status")
	}
	if got := p.Remaining(); got.Cents != 2000 {
		t.Fatalf("Remaining() = %v, want 20.00", got)
	}
}

func TestPeriodKey(t *testing.T) {
	tests := []struct {
		due  Date
		want string
	}{
		{NewDate(2024, 1, 16), "2024-Q01"},
		{NewDate(2024, 1, 31), "2024-Q02"},
		{NewDate(2024, 2, 29), "2024-Q04"},
		{NewDate(2024, 12, 31), "2024-Q24"},
	}
	for _, tt := range tests {
		got := PeriodKey(tt.due)
		if got != tt.want {
			t.Errorf("PeriodKey(%v) = %q, want %q", tt.due, got, tt.want)
		}
		back, err := DueDateForKey(got)
		if err != nil || !back.Equal(tt.due) {
			t.Errorf("DueDateForKey(%q) = %v, %v, want %v", got, back, err, tt.due)
		}
	}
	for _, bad := range []string{"2024", "2024-Q25", "x-Q01", "2024-Q00"} {
		if _, err := DueDateForKey(bad); err == nil {
			t.Errorf("DueDateForKey(%q) expected error", bad)
		}
	}
}
