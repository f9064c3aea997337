package http

import (
	"net/http"
	"strings"

	"cuotas/internal/auth"
	"cuotas/internal/core"
)

// memberRequest is the body of member create and update calls. Omitted
// fields keep their current value on update.
type memberRequest struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	Role           string `json:"role"`
	Active         *bool  `json:"active"`
	BirthDate      string `json:"birth_date"`
	EnrollmentDate string `json:"enrollment_date"`
}

func (req memberRequest) apply(m core.Member) (core.Member, error) {
	if v := sanitizeInput(req.Name); v != "" {
		m.Name = v
	}
	if v := sanitizeInput(req.Email); v != "" {
		m.Email = v
	}
	if v := strings.TrimSpace(req.Role); v != "" {
		m.Role = core.Role(strings.ToLower(v))
	}
	if req.Active != nil {
		m.Active = *req.Active
	}
	birth, err := parseDateField("birth_date", req.BirthDate)
	if err != nil {
		return m, err
	}
	if !birth.IsZero() {
		m.BirthDate = birth
	}
	enrolled, err := parseDateField("enrollment_date", req.EnrollmentDate)
	if err != nil {
		return m, err
	}
	if !enrolled.IsZero() {
		m.EnrollmentDate = enrolled
	}
	return m, nil
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.ledger.ListMembers(r.Context(), auth.SessionFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]memberView, 0, len(members))
	for _, m := range members {
		out = append(out, newMemberView(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.ledger.GetMember(r.Context(), auth.SessionFrom(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMemberView(m))
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	m, err := req.apply(core.Member{Role: core.RoleViewer, Active: true})
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.ledger.CreateMember(r.Context(), auth.SessionFrom(r.Context()), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/members/"+created.ID).
		Body(newMemberView(created)).
		Write(w)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess := auth.SessionFrom(ctx)

	var req memberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	current, err := s.ledger.GetMember(ctx, sess, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := req.apply(current)
	if err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.ledger.UpdateMember(ctx, sess, m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMemberView(updated))
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteMember(r.Context(), auth.SessionFrom(r.Context()), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
