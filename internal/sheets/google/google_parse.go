package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cuotas/internal/core"
	ports "cuotas/internal/sheets"
)

const (
	contributionLastCol = "H"
	expenseLastCol      = "E"
)

var (
	contributionHeader = []any{"ID", "Fecha", "Socio", "ID socio", "Quincena", "Monto", "Tipo", "Lote"}
	expenseHeader      = []any{"ID", "Fecha", "Concepto", "Monto", "Nota"}
)

func contributionValues(r ports.ContributionRow) []any {
	return []any{
		r.ID,
		core.DateOf(r.At).String(),
		r.MemberName,
		r.MemberID,
		r.PeriodKey,
		r.Amount.Pesos(),
		string(r.Kind),
		r.BatchID,
	}
}

func expenseValues(e core.Expense) []any {
	return []any{e.ID, e.Date.String(), e.Concept, e.Amount.Pesos(), e.Note}
}

// parseContributionRow reads one sheet row; the header and blank or
// malformed rows report ok=false.
func parseContributionRow(cols []string) (ports.ContributionRow, bool) {
	if len(cols) < 6 || cols[0] == "" || strings.EqualFold(cols[0], "ID") {
		return ports.ContributionRow{}, false
	}
	d, err := core.ParseDate(cols[1])
	if err != nil {
		return ports.ContributionRow{}, false
	}
	cents, ok := parsePesosToCents(cols[5])
	if !ok {
		return ports.ContributionRow{}, false
	}
	return ports.ContributionRow{
		Contribution: core.Contribution{
			ID:        cols[0],
			MemberID:  cols[3],
			PeriodKey: cols[4],
			Amount:    core.Money{Cents: cents},
			At:        d.Time,
			Kind:      core.ContributionKind(safeGet(cols, 6)),
			BatchID:   safeGet(cols, 7),
		},
		MemberName: cols[2],
	}, true
}

func parseExpenseRow(cols []string) (core.Expense, bool) {
	if len(cols) < 4 || cols[0] == "" || strings.EqualFold(cols[0], "ID") {
		return core.Expense{}, false
	}
	d, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Expense{}, false
	}
	cents, ok := parsePesosToCents(cols[3])
	if !ok {
		return core.Expense{}, false
	}
	return core.Expense{
		ID:      cols[0],
		Date:    d,
		Concept: cols[2],
		Amount:  core.Money{Cents: cents},
		Note:    safeGet(cols, 4),
	}, true
}

// rowOf returns the 1-based row whose ID column equals id, or 0.
func rowOf(ids []string, id string) int {
	if id == "" {
		return 0
	}
	for i, v := range ids {
		if v == id {
			return i + 1
		}
	}
	return 0
}

func rowRef(sheet string, row int, lastCol string) string {
	return fmt.Sprintf("%s!A%d:%s%d", sheet, row, lastCol, row)
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	if year == 0 {
		year = time.Now().Year()
	}
	return fmt.Sprintf("%d %s", year, base)
}

func parsePesosToCents(s string) (int64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return 0, false
	}
	return cents, true
}
