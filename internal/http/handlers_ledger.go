package http

import (
	"net/http"

	"cuotas/internal/auth"
	"cuotas/internal/core"
	applog "cuotas/internal/log"
)

type paymentRequest struct {
	Amount amountField `json:"amount"`
}

func (req paymentRequest) money() (core.Money, error) {
	if req.Amount == "" {
		return core.Money{}, core.Invalid("amount", "amount is required")
	}
	return req.Amount.Money()
}

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := s.ledger.ListPeriods(r.Context(), auth.SessionFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPeriodViews(periods))
}

func (s *Server) handleListAllPeriods(w http.ResponseWriter, r *http.Request) {
	rows, err := s.ledger.ListAllPeriods(r.Context(), auth.SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := core.PeriodStatus(r.URL.Query().Get("status"))
	out := make([]periodView, 0, len(rows))
	for _, row := range rows {
		if status != "" && row.Status != status {
			continue
		}
		v := newPeriodView(row.Period)
		v.MemberName = row.MemberName
		out = append(out, v)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDeletePeriod resets one period: it and its contributions are removed
// and the next generation pass recreates it unpaid.
func (s *Server) handleDeletePeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, key := r.PathValue("id"), r.PathValue("key")
	if err := s.ledger.DeletePeriod(ctx, auth.SessionFrom(ctx), memberID, key); err != nil {
		writeError(w, r, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Period reset",
		applog.FieldMemberID, memberID,
		applog.FieldPeriodKey, key)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordContribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.money()
	if err != nil {
		writeError(w, r, err)
		return
	}
	alloc, err := s.ledger.RecordContribution(ctx, auth.SessionFrom(ctx), r.PathValue("id"), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newAllocationView(alloc))
}

func (s *Server) handlePayPeriod(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := req.money()
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := s.ledger.PayPeriod(ctx, auth.SessionFrom(ctx), r.PathValue("id"), r.PathValue("key"), amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newContributionView(c))
}

func (s *Server) handleListContributions(w http.ResponseWriter, r *http.Request) {
	cs, err := s.ledger.ListContributions(r.Context(), auth.SessionFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newContributionViews(cs))
}
