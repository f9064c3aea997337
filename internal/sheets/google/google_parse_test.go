package google

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"cuotas/internal/core"
	ports "cuotas/internal/sheets"
)

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Abonos", 2024, "2024 Abonos"},
		{" Egresos ", 2025, "2025 Egresos"},
		{"2023 Abonos", 2024, "2023 Abonos"},
		{"", 2024, ""},
		{"Q1 Abonos", 2024, "2024 Q1 Abonos"},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestContributionRowRoundTrip(t *testing.T) {
	row := ports.ContributionRow{
		Contribution: core.Contribution{
			ID:        "c1",
			MemberID:  "m1",
			PeriodKey: "2024-Q03",
			BatchID:   "b1",
			Amount:    core.Money{Cents: 1550},
			At:        time.Date(2024, 2, 10, 17, 0, 0, 0, time.UTC),
			Kind:      core.KindEarly,
		},
		MemberName: "Ana",
	}

	cols := toStrings(contributionValues(row))
	if cols[5] != "15.5" {
		t.Errorf("amount cell = %q, want 15.5", cols[5])
	}
	got, ok := parseContributionRow(cols)
	if !ok {
		t.Fatalf("parseContributionRow(%v) ok = false", cols)
	}
	if got.ID != "c1" || got.MemberName != "Ana" || got.PeriodKey != "2024-Q03" ||
		got.Amount.Cents != 1550 || got.Kind != core.KindEarly || got.BatchID != "b1" {
		t.Errorf("parseContributionRow() = %+v", got)
	}
	if !core.DateOf(got.At).Equal(core.NewDate(2024, 2, 10)) {
		t.Errorf("At = %v, want 2024-02-10", got.At)
	}
}

func TestParseRowsSkipsHeaderAndJunk(t *testing.T) {
	tests := []struct {
		name string
		cols []string
	}{
		{"header", toStrings(expenseHeader)},
		{"blank id", []string{"", "2024-01-01", "Luz", "8"}},
		{"bad date", []string{"e1", "01/01/2024", "Luz", "8"}},
		{"bad amount", []string{"e1", "2024-01-01", "Luz", "ocho"}},
		{"short", []string{"e1", "2024-01-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := parseExpenseRow(tt.cols); ok {
				t.Errorf("parseExpenseRow(%v) ok = true", tt.cols)
			}
		})
	}

	e, ok := parseExpenseRow([]string{"e1", "2024-01-01", "Luz", "$8,50"})
	if !ok || e.Amount.Cents != 850 || e.Note != "" {
		t.Errorf("parseExpenseRow() = %+v, %v", e, ok)
	}
}

func TestRowOf(t *testing.T) {
	ids := []string{"ID", "a", "", "b"}
	if got := rowOf(ids, "b"); got != 4 {
		t.Errorf("rowOf(b) = %d, want 4", got)
	}
	if got := rowOf(ids, "zz"); got != 0 {
		t.Errorf("rowOf(zz) = %d, want 0", got)
	}
	if got := rowOf(ids, ""); got != 0 {
		t.Errorf("rowOf(\"\") = %d, want 0", got)
	}
	if got := rowRef("2024 Egresos", 4, expenseLastCol); got != "2024 Egresos!A4:E4" {
		t.Errorf("rowRef() = %q", got)
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("New() error = %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("New() error = %v", err)
	}

	_, err = New(context.Background(), Config{SpreadsheetID: "sheet", ServiceAccountFile: os.DevNull + ".missing"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("New() with missing file error = %v", err)
	}
}

func TestClientWithoutService(t *testing.T) {
	c := newClient(nil, "sheet", Config{})
	if c.contributionsSheet(2024) != "2024 Abonos" || c.expensesSheet(2024) != "2024 Egresos" {
		t.Fatalf("default sheets = %q, %q", c.contributionsSheet(2024), c.expensesSheet(2024))
	}
	e := core.Expense{ID: "e1", Date: core.NewDate(2024, 1, 1), Concept: "Luz", Amount: core.Money{Cents: 800}}
	if _, err := c.UpsertExpense(context.Background(), e); err == nil {
		t.Error("UpsertExpense() without service should fail")
	}
	e.Concept = ""
	if _, err := c.UpsertExpense(context.Background(), e); err == nil || !strings.Contains(err.Error(), "validation failed") {
		t.Errorf("UpsertExpense() invalid = %v", err)
	}
}
