package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuotas/internal/core"
)

func period(member, key string, due core.Date) core.Period {
	return core.Period{MemberID: member, Key: key, DueDate: due, Expected: core.Money{Cents: 3000}, Status: core.StatusFuture}
}

func TestInsertPeriodsSkipsExisting(t *testing.T) {
	ctx := context.Background()
	s := New()
	ps := []core.Period{
		period("m1", "2024-Q01", core.NewDate(2024, 1, 16)),
		period("m1", "2024-Q02", core.NewDate(2024, 1, 31)),
	}
	if n, err := s.InsertPeriods(ctx, ps); err != nil || n != 2 {
		t.Fatalf("InsertPeriods() = %d, %v, want 2", n, err)
	}
	if n, err := s.InsertPeriods(ctx, ps); err != nil || n != 0 {
		t.Fatalf("second InsertPeriods() = %d, %v, want 0", n, err)
	}
	got, _ := s.ListPeriods(ctx, "m1")
	if len(got) != 2 || got[0].Key != "2024-Q01" || got[0].ID == "" {
		t.Fatalf("ListPeriods() = %+v", got)
	}
}

func TestApplyAllocationIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.InsertPeriods(ctx, []core.Period{period("m1", "2024-Q01", core.NewDate(2024, 1, 16))})

	p := period("m1", "2024-Q01", core.NewDate(2024, 1, 16))
	p.Paid = core.Money{Cents: 3000}
	ghost := period("m1", "2024-Q09", core.NewDate(2024, 5, 16))
	err := s.ApplyAllocation(ctx, core.Allocation{
		MemberID: "m1",
		Updates:  []core.Period{p, ghost},
		Contributions: []core.Contribution{
			{MemberID: "m1", PeriodKey: "2024-Q01", Amount: core.Money{Cents: 3000}},
		},
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("ApplyAllocation() = %v, want not found", err)
	}
	got, _ := s.ListPeriods(ctx, "m1")
	if got[0].Paid.Cents != 0 {
		t.Fatalf("period was modified by a rejected allocation: %+v", got[0])
	}
	if cs, _ := s.ListContributions(ctx, "m1"); len(cs) != 0 {
		t.Fatalf("contributions written by a rejected allocation: %+v", cs)
	}
}

func TestApplyAllocationCreatesPrepaidPeriods(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := period("m1", "2024-Q05", core.NewDate(2024, 3, 16))
	p.Paid = core.Money{Cents: 3000}
	p.Status = core.StatusPaid
	err := s.ApplyAllocation(ctx, core.Allocation{
		MemberID:      "m1",
		NewPeriods:    []core.Period{period("m1", "2024-Q05", core.NewDate(2024, 3, 16))},
		Updates:       []core.Period{p},
		Contributions: []core.Contribution{{MemberID: "m1", PeriodKey: "2024-Q05", Amount: core.Money{Cents: 3000}}},
	})
	if err != nil {
		t.Fatalf("ApplyAllocation() = %v", err)
	}
	got, _ := s.ListPeriods(ctx, "m1")
	if len(got) != 1 || got[0].Status != core.StatusPaid || got[0].Paid.Cents != 3000 {
		t.Fatalf("ListPeriods() = %+v", got)
	}
}

func TestApplyAllocationRejectsStalePeriod(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, _ = s.InsertPeriods(ctx, []core.Period{period("m1", "2024-Q01", core.NewDate(2024, 1, 16))})

	paid := period("m1", "2024-Q01", core.NewDate(2024, 1, 16))
	paid.Paid = core.Money{Cents: 3000}
	paid.Status = core.StatusPaid
	alloc := func() core.Allocation {
		return core.Allocation{
			MemberID:      "m1",
			Updates:       []core.Period{paid},
			PriorPaid:     map[string]core.Money{"2024-Q01": {}},
			Contributions: []core.Contribution{{MemberID: "m1", PeriodKey: "2024-Q01", Amount: core.Money{Cents: 3000}}},
		}
	}
	if err := s.ApplyAllocation(ctx, alloc()); err != nil {
		t.Fatalf("ApplyAllocation() = %v", err)
	}
	if err := s.ApplyAllocation(ctx, alloc()); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("replayed ApplyAllocation() = %v, want validation error", err)
	}
	if cs, _ := s.ListContributions(ctx, "m1"); len(cs) != 1 {
		t.Fatalf("ListContributions() = %d rows, want 1", len(cs))
	}
}

func TestDeleteMemberCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	m, _ := s.CreateMember(ctx, core.Member{Name: "Ana"})
	_, _ = s.InsertPeriods(ctx, []core.Period{period(m.ID, "2024-Q01", core.NewDate(2024, 1, 16))})
	_ = s.ApplyAllocation(ctx, core.Allocation{
		Updates:       []core.Period{period(m.ID, "2024-Q01", core.NewDate(2024, 1, 16))},
		Contributions: []core.Contribution{{MemberID: m.ID, PeriodKey: "2024-Q01", Amount: core.Money{Cents: 100}}},
	})

	if err := s.DeleteMember(ctx, m.ID); err != nil {
		t.Fatalf("DeleteMember() = %v", err)
	}
	if ps, _ := s.ListAllPeriods(ctx); len(ps) != 0 {
		t.Fatalf("periods left after delete: %+v", ps)
	}
	if cs, _ := s.ListContributions(ctx, m.ID); len(cs) != 0 {
		t.Fatalf("contributions left after delete: %+v", cs)
	}
	if _, err := s.GetMember(ctx, m.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("GetMember() = %v, want not found", err)
	}
}

func TestUpsertUserKeepsID(t *testing.T) {
	ctx := context.Background()
	s := New()
	u1, _ := s.UpsertUser(ctx, core.User{Email: "Admin@Example.com", PasswordHash: "a", Role: core.RoleAdmin})
	u2, _ := s.UpsertUser(ctx, core.User{Email: "admin@example.com", PasswordHash: "b", Role: core.RoleAdmin})
	if u1.ID != u2.ID {
		t.Fatalf("UpsertUser() changed id: %s != %s", u1.ID, u2.ID)
	}
	got, err := s.GetUserByEmail(ctx, " ADMIN@example.com")
	if err != nil || got.PasswordHash != "b" {
		t.Fatalf("GetUserByEmail() = %+v, %v", got, err)
	}
}

func TestNewFromFileSeedsMembers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "members.txt")
	content := "# name;email;birth;enrollment\n" +
		"Ana;ana@example.com;1990-04-02;2024-01-10\n" +
		"bad line\n" +
		"Luis;luis@example.com;1985-13-01;2024-01-10\n\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	s := NewFromFile(path)
	ms, _ := s.ListMembers(context.Background())
	if len(ms) != 1 || ms[0].Name != "Ana" || !ms[0].Active {
		t.Fatalf("seeded members = %+v", ms)
	}

	if ms, _ := NewFromFile(filepath.Join(dir, "missing.txt")).ListMembers(context.Background()); len(ms) != 0 {
		t.Fatalf("expected empty store for missing file")
	}
}
