package http

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cuotas/internal/auth"
	"cuotas/internal/core"
	applog "cuotas/internal/log"
	"cuotas/internal/middleware/ratelimit"
	"cuotas/internal/middleware/security"
	"cuotas/internal/middleware/trace"
	appweb "cuotas/web"
)

// Ledger is the set of service operations exposed over HTTP.
type Ledger interface {
	ListMembers(ctx context.Context, sess core.Session) ([]core.Member, error)
	GetMember(ctx context.Context, sess core.Session, id string) (core.Member, error)
	CreateMember(ctx context.Context, sess core.Session, m core.Member) (core.Member, error)
	UpdateMember(ctx context.Context, sess core.Session, m core.Member) (core.Member, error)
	DeleteMember(ctx context.Context, sess core.Session, id string) error

	EnsureAllPeriods(ctx context.Context, sess core.Session) (int, error)
	ListPeriods(ctx context.Context, sess core.Session, memberID string) ([]core.Period, error)
	ListAllPeriods(ctx context.Context, sess core.Session) ([]core.PeriodRow, error)
	DeletePeriod(ctx context.Context, sess core.Session, memberID, key string) error

	RecordContribution(ctx context.Context, sess core.Session, memberID string, amount core.Money) (core.Allocation, error)
	PayPeriod(ctx context.Context, sess core.Session, memberID, key string, amount core.Money) (core.Contribution, error)
	ListContributions(ctx context.Context, sess core.Session, memberID string) ([]core.Contribution, error)

	ListExpenses(ctx context.Context, sess core.Session) ([]core.Expense, error)
	RecordExpense(ctx context.Context, sess core.Session, e core.Expense) (core.Expense, error)
	UpdateExpense(ctx context.Context, sess core.Session, e core.Expense) (core.Expense, error)
	DeleteExpense(ctx context.Context, sess core.Session, id string) error

	Statement(ctx context.Context, sess core.Session, memberID string) (core.Statement, error)
	Dashboard(ctx context.Context, sess core.Session) (core.Dashboard, error)
	UpcomingBirthdays(ctx context.Context, sess core.Session, n int) ([]core.Birthday, error)
}

// Authenticator verifies credentials and returns the caller's session.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (core.Session, error)
}

type Config struct {
	Addr               string
	Ledger             Ledger
	Auth               Authenticator
	Sessions           *auth.SessionManager
	SessionTTL         time.Duration
	Logger             *applog.Logger
	RateLimitPerMinute int
}

type Server struct {
	http.Server
	ledger     Ledger
	auth       Authenticator
	sessions   *auth.SessionManager
	sessionTTL time.Duration
	templates  *template.Template
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = auth.NewSessionManager(auth.DefaultSessionSize, auth.DefaultSessionTTL)
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = auth.DefaultSessionTTL
	}
	rlCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		rlCfg.RequestsPerMinute = cfg.RateLimitPerMinute
	}

	detector := security.NewDetector()
	s := &Server{
		ledger:     cfg.Ledger,
		auth:       cfg.Auth,
		sessions:   sessions,
		sessionTTL: ttl,
		limiter:    ratelimit.NewLimiter(rlCfg),
		tracer:     trace.NewMiddleware(detector.ExtractClientIP),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	var h http.Handler = mux
	h = sessions.Middleware(h)
	h = s.limiter.Middleware(detector.ExtractClientIP)(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.Middleware(logger.WithComponent(applog.ComponentHTTP), trace.GetRequestID)(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.Handler { return auth.RequireAdmin(h) }

	mux.HandleFunc("GET /healthz", handleHealth)

	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.HandleFunc("GET /members", s.handleListMembers)
	mux.Handle("POST /members", admin(s.handleCreateMember))
	mux.HandleFunc("GET /members/{id}", s.handleGetMember)
	mux.Handle("PUT /members/{id}", admin(s.handleUpdateMember))
	mux.Handle("DELETE /members/{id}", admin(s.handleDeleteMember))

	mux.HandleFunc("GET /members/{id}/periods", s.handleListPeriods)
	mux.Handle("DELETE /members/{id}/periods/{key}", admin(s.handleDeletePeriod))
	mux.Handle("POST /members/{id}/periods/{key}/payments", admin(s.handlePayPeriod))

	mux.HandleFunc("GET /members/{id}/contributions", s.handleListContributions)
	mux.Handle("POST /members/{id}/contributions", admin(s.handleRecordContribution))

	mux.HandleFunc("GET /members/{id}/statement", s.handleStatement)
	mux.HandleFunc("GET /members/{id}/statement.html", s.handleStatementHTML)
	mux.HandleFunc("GET /members/{id}/statement.csv", s.handleStatementCSV)

	mux.HandleFunc("GET /periods", s.handleListAllPeriods)

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.Handle("POST /expenses", admin(s.handleCreateExpense))
	mux.Handle("PUT /expenses/{id}", admin(s.handleUpdateExpense))
	mux.Handle("DELETE /expenses/{id}", admin(s.handleDeleteExpense))

	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /birthdays", s.handleBirthdays)
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics reports request counters for the shutdown log.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics) {
	return s.tracer.GetMetrics(), s.limiter.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
