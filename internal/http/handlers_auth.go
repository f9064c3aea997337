package http

import (
	"net/http"

	"cuotas/internal/auth"
	"cuotas/internal/core"
	applog "cuotas/internal/log"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleLogin signs the caller in and brings every member's calendar up to
// date, so the first screen shows current statuses.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if s.auth == nil {
		writeError(w, r, core.ErrUnauthenticated)
		return
	}

	sess, err := s.auth.Authenticate(ctx, sanitizeInput(req.Email), req.Password)
	if err != nil {
		logger.WarnContext(ctx, "Sign-in rejected",
			applog.FieldOperation, applog.OpSignIn,
			applog.FieldError, err)
		writeError(w, r, err)
		return
	}

	token := s.sessions.Create(sess)
	auth.SetCookie(w, r, token, s.sessionTTL)

	if n, err := s.ledger.EnsureAllPeriods(ctx, sess); err != nil {
		logger.ErrorContext(ctx, "Failed to refresh periods after sign-in",
			applog.FieldUserID, sess.UserID,
			applog.FieldError, err)
	} else if n > 0 {
		logger.InfoContext(ctx, "Periods generated on sign-in", "created", n)
	}

	logger.InfoContext(ctx, "User signed in",
		applog.FieldUserID, sess.UserID,
		applog.FieldRole, string(sess.Role))
	writeJSON(w, http.StatusOK, sessionView{
		Token:  token,
		UserID: sess.UserID,
		Email:  sess.Email,
		Role:   string(sess.Role),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		s.sessions.Revoke(token)
	}
	auth.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
