package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cuotas/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "cuotas.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testMember() core.Member {
	return core.Member{
		Name:           "Ana",
		Email:          "ana@example.com",
		Role:           core.RoleAdmin,
		Active:         true,
		BirthDate:      core.NewDate(1990, 4, 2),
		EnrollmentDate: core.NewDate(2024, 1, 10),
	}
}

func testPeriods(memberID string) []core.Period {
	return []core.Period{
		{MemberID: memberID, Key: "2024-Q01", DueDate: core.NewDate(2024, 1, 16), Expected: core.Money{Cents: 3000}, Status: core.StatusPending},
		{MemberID: memberID, Key: "2024-Q02", DueDate: core.NewDate(2024, 1, 31), Expected: core.Money{Cents: 3000}, Status: core.StatusPending},
	}
}

func TestMigrationsAreRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cuotas.db")
	for i := 0; i < 2; i++ {
		repo, err := NewSQLiteRepository(path)
		if err != nil {
			t.Fatalf("open %d: %v", i, err)
		}
		if err := repo.Ping(context.Background()); err != nil {
			t.Fatalf("Ping() = %v", err)
		}
		repo.Close()
	}
}

func TestMemberRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	m, err := repo.CreateMember(ctx, testMember())
	if err != nil {
		t.Fatalf("CreateMember() = %v", err)
	}
	got, err := repo.GetMember(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetMember() = %v", err)
	}
	if got.Name != m.Name || got.Email != m.Email || got.Role != m.Role || !got.Active ||
		!got.BirthDate.Equal(m.BirthDate) || !got.EnrollmentDate.Equal(m.EnrollmentDate) {
		t.Errorf("GetMember() = %+v, want %+v", got, m)
	}

	m.Active = false
	m.Name = "Ana María"
	if err := repo.UpdateMember(ctx, m); err != nil {
		t.Fatalf("UpdateMember() = %v", err)
	}
	list, _ := repo.ListMembers(ctx)
	if len(list) != 1 || list[0].Active || list[0].Name != "Ana María" {
		t.Errorf("ListMembers() = %+v", list)
	}

	if err := repo.UpdateMember(ctx, core.Member{ID: "missing"}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("UpdateMember() missing = %v, want not found", err)
	}
	if _, err := repo.GetMember(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetMember() missing = %v, want not found", err)
	}
}

func TestInsertPeriodsIgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	m, _ := repo.CreateMember(ctx, testMember())

	n, err := repo.InsertPeriods(ctx, testPeriods(m.ID))
	if err != nil || n != 2 {
		t.Fatalf("InsertPeriods() = %d, %v, want 2", n, err)
	}
	n, err = repo.InsertPeriods(ctx, testPeriods(m.ID))
	if err != nil || n != 0 {
		t.Fatalf("second InsertPeriods() = %d, %v, want 0", n, err)
	}
	ps, _ := repo.ListPeriods(ctx, m.ID)
	if len(ps) != 2 || ps[0].Key != "2024-Q01" || !ps[1].DueDate.Equal(core.NewDate(2024, 1, 31)) {
		t.Fatalf("ListPeriods() = %+v", ps)
	}

	ps[0].Status = core.StatusIncomplete
	if err := repo.UpdatePeriodStatuses(ctx, ps[:1]); err != nil {
		t.Fatalf("UpdatePeriodStatuses() = %v", err)
	}
	all, _ := repo.ListAllPeriods(ctx)
	if all[0].Status != core.StatusIncomplete || all[0].Paid.Cents != 0 {
		t.Fatalf("status update touched more than status: %+v", all[0])
	}
}

func TestApplyAllocationRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	m, _ := repo.CreateMember(ctx, testMember())
	_, _ = repo.InsertPeriods(ctx, testPeriods(m.ID))

	paid := testPeriods(m.ID)[0]
	paid.Paid = core.Money{Cents: 3000}
	paid.Status = core.StatusPaid
	ghost := core.Period{MemberID: m.ID, Key: "2031-Q01", Paid: core.Money{Cents: 1}}

	err := repo.ApplyAllocation(ctx, core.Allocation{
		MemberID: m.ID,
		BatchID:  "b1",
		Updates:  []core.Period{paid, ghost},
		Contributions: []core.Contribution{
			{MemberID: m.ID, PeriodKey: "2024-Q01", BatchID: "b1", Amount: core.Money{Cents: 3000}, At: time.Now(), Kind: core.KindOnTime},
		},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("ApplyAllocation() = %v, want not found", err)
	}
	ps, _ := repo.ListPeriods(ctx, m.ID)
	if ps[0].Paid.Cents != 0 {
		t.Fatalf("rolled back allocation left paid=%d", ps[0].Paid.Cents)
	}
	if cs, _ := repo.ListContributions(ctx, m.ID); len(cs) != 0 {
		t.Fatalf("rolled back allocation left %d contributions", len(cs))
	}
}

func TestApplyAllocationRejectsStalePeriod(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	m, _ := repo.CreateMember(ctx, testMember())
	_, _ = repo.InsertPeriods(ctx, testPeriods(m.ID))

	paid := testPeriods(m.ID)[0]
	paid.Paid = core.Money{Cents: 3000}
	paid.Status = core.StatusPaid
	alloc := func(batch string) core.Allocation {
		return core.Allocation{
			MemberID:  m.ID,
			BatchID:   batch,
			Updates:   []core.Period{paid},
			PriorPaid: map[string]core.Money{"2024-Q01": {}},
			Contributions: []core.Contribution{
				{MemberID: m.ID, PeriodKey: "2024-Q01", BatchID: batch, Amount: core.Money{Cents: 3000}, At: time.Now(), Kind: core.KindOnTime},
			},
		}
	}
	if err := repo.ApplyAllocation(ctx, alloc("b1")); err != nil {
		t.Fatalf("ApplyAllocation() = %v", err)
	}
	err := repo.ApplyAllocation(ctx, alloc("b2"))
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("replayed ApplyAllocation() = %v, want validation error", err)
	}
	cs, _ := repo.ListContributions(ctx, m.ID)
	if len(cs) != 1 || cs[0].BatchID != "b1" {
		t.Fatalf("ListContributions() = %+v, want only batch b1", cs)
	}
}

func TestApplyAllocationWithPrepaidPeriod(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	m, _ := repo.CreateMember(ctx, testMember())

	at := time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC)
	p := core.Period{MemberID: m.ID, Key: "2024-Q01", DueDate: core.NewDate(2024, 1, 16), Expected: core.Money{Cents: 3000}, Status: core.StatusFuture}
	updated := p
	updated.Paid = core.Money{Cents: 3000}
	updated.Status = core.StatusPaid

	err := repo.ApplyAllocation(ctx, core.Allocation{
		MemberID:   m.ID,
		BatchID:    "b1",
		NewPeriods: []core.Period{p},
		Updates:    []core.Period{updated},
		Contributions: []core.Contribution{
			{ID: "c1", MemberID: m.ID, PeriodKey: "2024-Q01", BatchID: "b1", Amount: core.Money{Cents: 3000}, At: at, Kind: core.KindEarly},
		},
	})
	if err != nil {
		t.Fatalf("ApplyAllocation() = %v", err)
	}
	cs, _ := repo.ListContributions(ctx, m.ID)
	if len(cs) != 1 || cs[0].ID != "c1" || !cs[0].At.Equal(at) || cs[0].Kind != core.KindEarly {
		t.Fatalf("ListContributions() = %+v", cs)
	}
	ps, _ := repo.ListPeriods(ctx, m.ID)
	if len(ps) != 1 || ps[0].Status != core.StatusPaid {
		t.Fatalf("ListPeriods() = %+v", ps)
	}

	if err := repo.DeletePeriod(ctx, m.ID, "2024-Q01"); err != nil {
		t.Fatalf("DeletePeriod() = %v", err)
	}
	if cs, _ := repo.ListContributions(ctx, m.ID); len(cs) != 0 {
		t.Fatalf("DeletePeriod() left contributions: %+v", cs)
	}
	if err := repo.DeletePeriod(ctx, m.ID, "2024-Q01"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("DeletePeriod() twice = %v, want not found", err)
	}
}

func TestDeleteMemberCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	m, _ := repo.CreateMember(ctx, testMember())
	_, _ = repo.InsertPeriods(ctx, testPeriods(m.ID))

	if err := repo.DeleteMember(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMember() = %v", err)
	}
	if ps, _ := repo.ListAllPeriods(ctx); len(ps) != 0 {
		t.Fatalf("periods left: %+v", ps)
	}
	if err := repo.DeleteMember(ctx, m.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("DeleteMember() twice = %v, want not found", err)
	}
}

func TestExpenseCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	older, _ := repo.CreateExpense(ctx, core.Expense{Date: core.NewDate(2024, 1, 3), Concept: "Luz", Amount: core.Money{Cents: 800}})
	newer, err := repo.CreateExpense(ctx, core.Expense{Date: core.NewDate(2024, 2, 3), Concept: "Renta", Amount: core.Money{Cents: 5000}, Note: "febrero"})
	if err != nil {
		t.Fatalf("CreateExpense() = %v", err)
	}
	list, _ := repo.ListExpenses(ctx)
	if len(list) != 2 || list[0].ID != newer.ID || list[0].Note != "febrero" {
		t.Fatalf("ListExpenses() = %+v", list)
	}

	older.Amount = core.Money{Cents: 900}
	if err := repo.UpdateExpense(ctx, older); err != nil {
		t.Fatalf("UpdateExpense() = %v", err)
	}
	got, _ := repo.GetExpense(ctx, older.ID)
	if got.Amount.Cents != 900 || !got.Date.Equal(core.NewDate(2024, 1, 3)) {
		t.Fatalf("GetExpense() = %+v", got)
	}
	if err := repo.DeleteExpense(ctx, older.ID); err != nil {
		t.Fatalf("DeleteExpense() = %v", err)
	}
	if _, err := repo.GetExpense(ctx, older.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetExpense() after delete = %v, want not found", err)
	}
}

func TestUpsertUser(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	u1, err := repo.UpsertUser(ctx, core.User{Email: " Admin@Example.com", PasswordHash: "h1", Role: core.RoleAdmin})
	if err != nil {
		t.Fatalf("UpsertUser() = %v", err)
	}
	u2, err := repo.UpsertUser(ctx, core.User{Email: "admin@example.com", PasswordHash: "h2", Role: core.RoleViewer})
	if err != nil {
		t.Fatalf("second UpsertUser() = %v", err)
	}
	if u1.ID != u2.ID || u2.PasswordHash != "h2" || u2.Role != core.RoleViewer {
		t.Fatalf("UpsertUser() = %+v then %+v", u1, u2)
	}
	if got, err := repo.GetUser(ctx, u1.ID); err != nil || got.Email != "admin@example.com" {
		t.Fatalf("GetUser() = %+v, %v", got, err)
	}
	if _, err := repo.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetUserByEmail() = %v, want not found", err)
	}
}
