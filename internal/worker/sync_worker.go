package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cuotas/internal/amqp"
	"cuotas/internal/core"
	"cuotas/internal/sheets"
)

// LedgerSource is the read side of the store the worker reconciles against.
type LedgerSource interface {
	ListMembers(ctx context.Context) ([]core.Member, error)
	ListContributions(ctx context.Context, memberID string) ([]core.Contribution, error)
	ListExpenses(ctx context.Context) ([]core.Expense, error)
}

// SyncWorker mirrors ledger events into the spreadsheet.
type SyncWorker struct {
	source  LedgerSource
	writer  sheets.LedgerWriter
	reader  sheets.LedgerReader
	members map[string]string
}

// NewSyncWorker builds a worker. source and reader are optional; without
// them events are mirrored but startup reconciliation is skipped and rows
// carry the member ID in place of the name.
func NewSyncWorker(source LedgerSource, writer sheets.LedgerWriter, reader sheets.LedgerReader) *SyncWorker {
	return &SyncWorker{
		source:  source,
		writer:  writer,
		reader:  reader,
		members: map[string]string{},
	}
}

// HandleEvent processes a single ledger event from AMQP.
func (w *SyncWorker) HandleEvent(ctx context.Context, msg *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		"kind", msg.Kind,
		"action", msg.Action,
		"id", msg.ID)

	switch msg.Kind {
	case amqp.KindContribution:
		c, err := msg.Contribution()
		if err != nil {
			return fmt.Errorf("decode contribution: %w", err)
		}
		if msg.Action == core.ActionDeleted {
			if err := w.writer.DeleteContribution(ctx, c); err != nil {
				return fmt.Errorf("delete contribution from sheets: %w", err)
			}
			slog.InfoContext(ctx, "Deleted contribution from sheets", "id", c.ID)
			return nil
		}
		return w.syncContribution(ctx, c)
	case amqp.KindExpense:
		e, err := msg.Expense()
		if err != nil {
			return fmt.Errorf("decode expense: %w", err)
		}
		if msg.Action == core.ActionDeleted {
			if err := w.writer.DeleteExpense(ctx, e); err != nil {
				return fmt.Errorf("delete expense from sheets: %w", err)
			}
			slog.InfoContext(ctx, "Deleted expense from sheets", "id", e.ID)
			return nil
		}
		return w.syncExpense(ctx, e)
	default:
		return fmt.Errorf("unknown event kind %q", msg.Kind)
	}
}

// StartupSyncCheck appends every stored record of the given year that the
// sheet is missing. It recovers from events lost while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context, year int) error {
	if w.source == nil || w.reader == nil {
		slog.InfoContext(ctx, "No ledger source configured, skipping startup sync")
		return nil
	}

	mirroredContributions, err := w.reader.ListContributions(ctx, year)
	if err != nil {
		return fmt.Errorf("list mirrored contributions: %w", err)
	}
	mirroredExpenses, err := w.reader.ListExpenses(ctx, year)
	if err != nil {
		return fmt.Errorf("list mirrored expenses: %w", err)
	}
	seen := make(map[string]bool, len(mirroredContributions)+len(mirroredExpenses))
	for _, r := range mirroredContributions {
		seen[r.ID] = true
	}
	for _, e := range mirroredExpenses {
		seen[e.ID] = true
	}

	members, err := w.source.ListMembers(ctx)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	var (
		synced int
		errs   []error
	)
	for _, m := range members {
		w.members[m.ID] = m.Name
		contributions, err := w.source.ListContributions(ctx, m.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("list contributions of %s: %w", m.ID, err))
			continue
		}
		for _, c := range contributions {
			if c.At.Year() != year || seen[c.ID] {
				continue
			}
			if err := w.syncContribution(ctx, c); err != nil {
				errs = append(errs, err)
				continue
			}
			synced++
		}
	}

	expenses, err := w.source.ListExpenses(ctx)
	if err != nil {
		errs = append(errs, fmt.Errorf("list expenses: %w", err))
	}
	for _, e := range expenses {
		if e.Date.Year() != year || seen[e.ID] {
			continue
		}
		if err := w.syncExpense(ctx, e); err != nil {
			errs = append(errs, err)
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"year", year,
		"synced", synced,
		"errors", len(errs))

	return errors.Join(errs...)
}

func (w *SyncWorker) memberName(ctx context.Context, id string) string {
	if name, ok := w.members[id]; ok {
		return name
	}
	if w.source == nil {
		return id
	}
	members, err := w.source.ListMembers(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Failed to resolve member name", "member_id", id, "error", err)
		return id
	}
	for _, m := range members {
		w.members[m.ID] = m.Name
	}
	if name, ok := w.members[id]; ok {
		return name
	}
	return id
}

func (w *SyncWorker) syncContribution(ctx context.Context, c core.Contribution) error {
	ref, err := w.writer.AppendContribution(ctx, sheets.ContributionRow{
		Contribution: c,
		MemberName:   w.memberName(ctx, c.MemberID),
	})
	if err != nil {
		return fmt.Errorf("append contribution %s to sheets: %w", c.ID, err)
	}
	slog.InfoContext(ctx, "Successfully synced contribution",
		"id", c.ID,
		"member_id", c.MemberID,
		"period", c.PeriodKey,
		"sheets_ref", ref,
		"amount_cents", c.Amount.Cents)
	return nil
}

func (w *SyncWorker) syncExpense(ctx context.Context, e core.Expense) error {
	ref, err := w.writer.UpsertExpense(ctx, e)
	if err != nil {
		return fmt.Errorf("upsert expense %s to sheets: %w", e.ID, err)
	}
	slog.InfoContext(ctx, "Successfully synced expense",
		"id", e.ID,
		"sheets_ref", ref,
		"concept", e.Concept,
		"amount_cents", e.Amount.Cents)
	return nil
}
