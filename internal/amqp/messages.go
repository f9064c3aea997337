package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"cuotas/internal/core"
)

const (
	KindContribution = "contribution"
	KindExpense      = "expense"
)

// LedgerEvent announces one change to the ledger. It carries a full snapshot
// of the record so consumers never read back from the store.
type LedgerEvent struct {
	Kind        string    `json:"kind"`
	Action      string    `json:"action"`
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id,omitempty"`
	PeriodKey   string    `json:"period_key,omitempty"`
	BatchID     string    `json:"batch_id,omitempty"`
	PaymentKind string    `json:"payment_kind,omitempty"`
	Date        string    `json:"date"`
	Concept     string    `json:"concept,omitempty"`
	Note        string    `json:"note,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewContributionEvent snapshots a contribution after action was applied to it.
func NewContributionEvent(action string, c core.Contribution) *LedgerEvent {
	return &LedgerEvent{
		Kind:        KindContribution,
		Action:      action,
		ID:          c.ID,
		MemberID:    c.MemberID,
		PeriodKey:   c.PeriodKey,
		BatchID:     c.BatchID,
		PaymentKind: string(c.Kind),
		Date:        core.DateOf(c.At).String(),
		AmountCents: c.Amount.Cents,
		Timestamp:   time.Now(),
	}
}

// NewExpenseEvent snapshots an expense after action was applied to it.
func NewExpenseEvent(action string, e core.Expense) *LedgerEvent {
	return &LedgerEvent{
		Kind:        KindExpense,
		Action:      action,
		ID:          e.ID,
		Date:        e.Date.String(),
		Concept:     e.Concept,
		Note:        e.Note,
		AmountCents: e.Amount.Cents,
		Timestamp:   time.Now(),
	}
}

func (m *LedgerEvent) Validate() error {
	switch m.Kind {
	case KindContribution, KindExpense:
	default:
		return fmt.Errorf("unknown event kind %q", m.Kind)
	}
	switch m.Action {
	case core.ActionCreated, core.ActionUpdated, core.ActionDeleted:
	default:
		return fmt.Errorf("unknown event action %q", m.Action)
	}
	if m.ID == "" {
		return fmt.Errorf("event without id")
	}
	return nil
}

// Contribution rebuilds the contribution carried by the event.
func (m *LedgerEvent) Contribution() (core.Contribution, error) {
	d, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Contribution{}, err
	}
	return core.Contribution{
		ID:        m.ID,
		MemberID:  m.MemberID,
		PeriodKey: m.PeriodKey,
		BatchID:   m.BatchID,
		Amount:    core.Money{Cents: m.AmountCents},
		At:        d.Time,
		Kind:      core.ContributionKind(m.PaymentKind),
	}, nil
}

// Expense rebuilds the expense carried by the event.
func (m *LedgerEvent) Expense() (core.Expense, error) {
	d, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:      m.ID,
		Date:    d,
		Concept: m.Concept,
		Note:    m.Note,
		Amount:  core.Money{Cents: m.AmountCents},
	}, nil
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and validates an event.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
