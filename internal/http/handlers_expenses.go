package http

import (
	"net/http"

	"cuotas/internal/auth"
	"cuotas/internal/core"
)

type expenseRequest struct {
	Date    string      `json:"date"`
	Concept string      `json:"concept"`
	Amount  amountField `json:"amount"`
	Note    string      `json:"note"`
}

func (req expenseRequest) expense(id string) (core.Expense, error) {
	d, err := parseDateField("date", req.Date)
	if err != nil {
		return core.Expense{}, err
	}
	if d.IsZero() {
		return core.Expense{}, core.Invalid("date", "date is required")
	}
	amount, err := req.Amount.Money()
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		ID:      id,
		Date:    d,
		Concept: sanitizeInput(req.Concept),
		Amount:  amount,
		Note:    sanitizeInput(req.Note),
	}, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := s.ledger.ListExpenses(r.Context(), auth.SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]expenseView, 0, len(items))
	for _, e := range items {
		out = append(out, newExpenseView(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := req.expense("")
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.ledger.RecordExpense(r.Context(), auth.SessionFrom(r.Context()), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/expenses/"+created.ID).
		Body(newExpenseView(created)).
		Write(w)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := req.expense(r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.ledger.UpdateExpense(r.Context(), auth.SessionFrom(r.Context()), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteExpense(r.Context(), auth.SessionFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
