package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cuotas/internal/auth"
	"cuotas/internal/core"
	"cuotas/internal/services"
	"cuotas/internal/storage/memory"
)

type fakeAuth struct {
	users map[string]core.Session
}

func (f fakeAuth) Authenticate(_ context.Context, email, password string) (core.Session, error) {
	sess, ok := f.users[email]
	if !ok || password != "correct horse" {
		return core.Session{}, core.ErrUnauthenticated
	}
	return sess, nil
}

var (
	adminSession  = core.Session{UserID: "u-admin", Email: "admin@example.com", Role: core.RoleAdmin}
	viewerSession = core.Session{UserID: "u-viewer", Email: "viewer@example.com", Role: core.RoleViewer}
)

type testEnv struct {
	srv         *Server
	adminToken  string
	viewerToken string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := services.NewService(memory.New(), nil, services.Options{
		Now: func() time.Time { return now },
	})
	sessions := auth.NewSessionManager(100, time.Hour)
	srv := NewServer(Config{
		Addr:   ":0",
		Ledger: svc,
		Auth: fakeAuth{users: map[string]core.Session{
			adminSession.Email:  adminSession,
			viewerSession.Email: viewerSession,
		}},
		Sessions:           sessions,
		RateLimitPerMinute: 10000,
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testEnv{
		srv:         srv,
		adminToken:  sessions.Create(adminSession),
		viewerToken: sessions.Create(viewerSession),
	}
}

func (e *testEnv) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.RemoteAddr = "203.0.113.10:4000"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func (e *testEnv) createMember(t *testing.T) memberView {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/members", e.adminToken,
		`{"name":"Ana","email":"ana@example.com","birth_date":"1990-03-15","enrollment_date":"2024-01-10"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /members = %d %s", rec.Code, rec.Body)
	}
	return decode[memberView](t, rec)
}

func TestHealthzCarriesHeaders(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d", rec.Code)
	}
	for _, h := range []string{"X-Request-ID", "Content-Security-Policy", "X-Content-Type-Options"} {
		if rec.Header().Get(h) == "" {
			t.Errorf("header %s missing", h)
		}
	}
}

func TestRoleGates(t *testing.T) {
	env := newTestEnv(t)
	body := `{"name":"Ana","email":"ana@example.com","birth_date":"1990-03-15","enrollment_date":"2024-01-10"}`

	tests := []struct {
		name   string
		method string
		target string
		token  string
		body   string
		want   int
	}{
		{"anonymous read", http.MethodGet, "/members", "", "", http.StatusUnauthorized},
		{"anonymous write", http.MethodPost, "/members", "", body, http.StatusUnauthorized},
		{"viewer read", http.MethodGet, "/members", env.viewerToken, "", http.StatusOK},
		{"viewer write", http.MethodPost, "/members", env.viewerToken, body, http.StatusForbidden},
		{"viewer expense", http.MethodPost, "/expenses", env.viewerToken, `{"date":"2024-02-01","concept":"Luz","amount":"10"}`, http.StatusForbidden},
		{"admin write", http.MethodPost, "/members", env.adminToken, body, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := env.do(t, tt.method, tt.target, tt.token, tt.body); rec.Code != tt.want {
				t.Errorf("%s %s = %d, want %d (%s)", tt.method, tt.target, rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestLoginLogout(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/login", "", `{"email":"admin@example.com","password":"wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad login = %d, want 401", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/login", "", `{"email":"admin@example.com","password":"correct horse"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d %s", rec.Code, rec.Body)
	}
	got := decode[sessionView](t, rec)
	if got.Token == "" || got.Role != string(core.RoleAdmin) {
		t.Fatalf("login body = %+v", got)
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), auth.CookieName+"=") {
		t.Errorf("Set-Cookie = %q", rec.Header().Get("Set-Cookie"))
	}

	if rec := env.do(t, http.MethodGet, "/dashboard", got.Token, ""); rec.Code != http.StatusOK {
		t.Fatalf("dashboard with new token = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/logout", got.Token, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("logout = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/dashboard", got.Token, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("dashboard after logout = %d, want 401", rec.Code)
	}
}

func TestMemberLifecycle(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMember(t)
	if m.Role != string(core.RoleViewer) || !m.Active {
		t.Fatalf("created member = %+v", m)
	}

	rec := env.do(t, http.MethodPut, "/members/"+m.ID, env.adminToken, `{"name":"Ana María","active":false}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT member = %d %s", rec.Code, rec.Body)
	}
	updated := decode[memberView](t, rec)
	if updated.Name != "Ana María" || updated.Active || updated.Email != "ana@example.com" {
		t.Errorf("updated member = %+v", updated)
	}

	rec = env.do(t, http.MethodPut, "/members/"+m.ID, env.adminToken, `{"birth_date":"15/03/1990"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad date = %d, want 422", rec.Code)
	}
	if body := decode[errorBody](t, rec); body.Field != "birth_date" {
		t.Errorf("error field = %q, want birth_date", body.Field)
	}

	if rec := env.do(t, http.MethodDelete, "/members/"+m.ID, env.adminToken, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE member = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/members/"+m.ID, env.viewerToken, ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET deleted member = %d, want 404", rec.Code)
	}
}

func TestContributionsAndPayments(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMember(t)

	rec := env.do(t, http.MethodGet, "/members/"+m.ID+"/periods", env.viewerToken, "")
	periods := decode[[]periodView](t, rec)
	if len(periods) < 4 || periods[0].Key != "2024-Q01" || periods[3].DueDate != "2024-02-29" {
		t.Fatalf("periods = %+v", periods)
	}

	rec = env.do(t, http.MethodPost, "/members/"+m.ID+"/contributions", env.adminToken, `{"amount":45}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST contribution = %d %s", rec.Code, rec.Body)
	}
	alloc := decode[allocationView](t, rec)
	if len(alloc.Contributions) != 2 || alloc.Periods[0].Status != string(core.StatusPaid) ||
		alloc.Periods[1].PaidCents != 1500 {
		t.Fatalf("allocation = %+v", alloc)
	}

	rec = env.do(t, http.MethodPost, "/members/"+m.ID+"/periods/2024-Q01/payments", env.adminToken, `{"amount":"30"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("duplicate payment = %d, want 422", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/members/"+m.ID+"/periods/2024-Q02/payments", env.adminToken, `{"amount":"15,00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("period payment = %d %s", rec.Code, rec.Body)
	}
	if c := decode[contributionView](t, rec); c.PeriodKey != "2024-Q02" || c.AmountCents != 1500 {
		t.Errorf("payment = %+v", c)
	}

	rec = env.do(t, http.MethodPost, "/members/"+m.ID+"/contributions", env.adminToken, `{"amount":"abc"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad amount = %d, want 422", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/members/"+m.ID+"/contributions", env.viewerToken, "")
	if cs := decode[[]contributionView](t, rec); len(cs) != 3 {
		t.Errorf("contributions = %d, want 3", len(cs))
	}

	rec = env.do(t, http.MethodGet, "/periods?status=Pagado", env.viewerToken, "")
	rows := decode[[]periodView](t, rec)
	if len(rows) != 2 || rows[0].MemberName != "Ana" {
		t.Errorf("paid periods = %+v", rows)
	}

	if rec := env.do(t, http.MethodDelete, "/members/"+m.ID+"/periods/2024-Q01", env.adminToken, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE period = %d %s", rec.Code, rec.Body)
	}
	rec = env.do(t, http.MethodGet, "/members/"+m.ID+"/contributions", env.viewerToken, "")
	if cs := decode[[]contributionView](t, rec); len(cs) != 2 {
		t.Errorf("contributions after reset = %d, want 2", len(cs))
	}
}

func TestExpensesAndDashboard(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMember(t)
	env.do(t, http.MethodPost, "/members/"+m.ID+"/contributions", env.adminToken, `{"amount":"60"}`)

	rec := env.do(t, http.MethodPost, "/expenses", env.adminToken, `{"date":"2024-02-10","concept":"Renta","amount":"25.50","note":"febrero"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST expense = %d %s", rec.Code, rec.Body)
	}
	e := decode[expenseView](t, rec)
	if rec.Header().Get("Location") != "/expenses/"+e.ID {
		t.Errorf("Location = %q", rec.Header().Get("Location"))
	}

	rec = env.do(t, http.MethodPut, "/expenses/"+e.ID, env.adminToken, `{"date":"2024-02-10","concept":"Renta","amount":"20"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT expense = %d %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodPost, "/expenses", env.adminToken, `{"concept":"Luz","amount":"5"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expense without date = %d, want 422", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/dashboard", env.viewerToken, "")
	d := decode[dashboardView](t, rec)
	if d.IncomeCents != 6000 || d.ExpensesCents != 2000 || d.BalanceCents != 4000 || d.Members != 1 {
		t.Errorf("dashboard = %+v", d)
	}
	if len(d.Birthdays) != 1 || d.Birthdays[0].Date != "2024-03-15" {
		t.Errorf("birthdays = %+v", d.Birthdays)
	}

	if rec := env.do(t, http.MethodDelete, "/expenses/"+e.ID, env.adminToken, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE expense = %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/expenses", env.viewerToken, "")
	if items := decode[[]expenseView](t, rec); len(items) != 0 {
		t.Errorf("expenses after delete = %+v", items)
	}
}

func TestStatementExports(t *testing.T) {
	env := newTestEnv(t)
	m := env.createMember(t)
	env.do(t, http.MethodPost, "/members/"+m.ID+"/contributions", env.adminToken, `{"amount":"30"}`)

	rec := env.do(t, http.MethodGet, "/members/"+m.ID+"/statement", env.viewerToken, "")
	st := decode[statementView](t, rec)
	if st.TotalPaidCents != 3000 || st.Counts.Paid != 1 || st.AsOf != "2024-03-01" {
		t.Errorf("statement = %+v", st)
	}

	rec = env.do(t, http.MethodGet, "/members/"+m.ID+"/statement.csv", env.viewerToken, "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("CSV = %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if lines[0] != "quincena,vence,esperado,abonado,restante,estatus" ||
		!strings.HasPrefix(lines[1], "2024-Q01,2024-01-16,30.00,30.00,0.00,Pagado") {
		t.Errorf("CSV = %q", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/members/"+m.ID+"/statement.html", env.viewerToken, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Ana") ||
		!strings.Contains(rec.Header().Get("Content-Disposition"), ".html") {
		t.Errorf("HTML = %d %s", rec.Code, rec.Header().Get("Content-Disposition"))
	}

	if rec := env.do(t, http.MethodGet, "/members/missing/statement", env.viewerToken, ""); rec.Code != http.StatusNotFound {
		t.Errorf("missing statement = %d, want 404", rec.Code)
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", core.Invalid("amount", "bad"), http.StatusUnprocessableEntity},
		{"wrapped validation", fmt.Errorf("create: %w", core.ErrInvalidAmount), http.StatusUnprocessableEntity},
		{"not found", core.NotFound("member", "x"), http.StatusNotFound},
		{"unauthenticated", core.ErrUnauthenticated, http.StatusUnauthorized},
		{"forbidden", core.ErrForbidden, http.StatusForbidden},
		{"remote", core.Remote("list members", errors.New("disk I/O error")), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tt.err)
			if rec.Code != tt.want {
				t.Errorf("writeError(%v) = %d, want %d", tt.err, rec.Code, tt.want)
			}
			if body := decode[errorBody](t, rec); body.Error == "" {
				t.Error("error body is empty")
			}
			if tt.want == http.StatusBadGateway && strings.Contains(rec.Body.String(), "disk") {
				t.Errorf("store detail leaked: %s", rec.Body)
			}
		})
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/expenses", env.adminToken, `{"date":"2024-02-10","concept":"x","amount":"1","extra":true}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("unknown field = %d, want 422", rec.Code)
	}
}
