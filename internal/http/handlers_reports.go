package http

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"

	"cuotas/internal/auth"
	"cuotas/internal/core"
	applog "cuotas/internal/log"
	"cuotas/internal/services"
)

func (s *Server) statement(w http.ResponseWriter, r *http.Request) (core.Statement, bool) {
	st, err := s.ledger.Statement(r.Context(), auth.SessionFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return core.Statement{}, false
	}
	return st, true
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	st, ok := s.statement(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newStatementView(st))
}

// handleStatementHTML renders a printable statement as a download.
func (s *Server) handleStatementHTML(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.templates == nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Templates not loaded", applog.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusInternalServerError, "templates not loaded").Write(w)
		return
	}
	st, ok := s.statement(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "statement.html", st); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Statement template execution failed",
			applog.FieldError, err,
			applog.FieldMemberID, st.Member.ID)
		ErrorResponse(http.StatusInternalServerError, "failed to render statement").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(st, "html"))
	_, _ = w.Write(buf.Bytes())
	applog.FromContext(ctx).InfoContext(ctx, "Statement exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldMemberID, st.Member.ID,
		"format", "html")
}

func (s *Server) handleStatementCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, ok := s.statement(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	_ = cw.Write([]string{"quincena", "vence", "esperado", "abonado", "restante", "estatus"})
	for _, p := range st.Periods {
		_ = cw.Write([]string{
			p.Key,
			p.DueDate.String(),
			p.Expected.String(),
			p.Paid.String(),
			p.Remaining().String(),
			string(p.Status),
		})
	}
	_ = cw.Write([]string{"total", "", "", st.TotalPaid.String(), st.Outstanding.String(), ""})
	cw.Flush()
	if err := cw.Error(); err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(st, "csv"))
	_, _ = w.Write(buf.Bytes())
	applog.FromContext(ctx).InfoContext(ctx, "Statement exported",
		applog.FieldOperation, applog.OpExport,
		applog.FieldMemberID, st.Member.ID,
		"format", "csv")
}

func attachment(st core.Statement, ext string) string {
	name := "estado-de-cuenta-" + st.Member.ID + "-" + st.AsOf.String() + "." + ext
	return `attachment; filename="` + name + `"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.ledger.Dashboard(r.Context(), auth.SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDashboardView(d))
}

func (s *Server) handleBirthdays(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "n", services.DefaultBirthdays)
	bs, err := s.ledger.UpcomingBirthdays(r.Context(), auth.SessionFrom(r.Context()), n)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(len(bs)))
	writeJSON(w, http.StatusOK, newBirthdayViews(bs))
}
