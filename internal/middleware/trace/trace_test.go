package trace

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMiddleware_RequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		reuse    bool
	}{
		{"generated", "", false},
		{"propagated", "abc-123", true},
		{"rejected junk", "has spaces and <tags>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMiddleware(nil)
			var seen string
			h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if seen == "" || rec.Header().Get(HeaderRequestID) != seen {
				t.Fatalf("request id = %q, header = %q", seen, rec.Header().Get(HeaderRequestID))
			}
			if tt.reuse && seen != tt.incoming {
				t.Errorf("GetRequestID() = %q, want %q", seen, tt.incoming)
			}
			if !tt.reuse && !strings.HasPrefix(seen, "req_") {
				t.Errorf("GetRequestID() = %q, want generated id", seen)
			}
		})
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	m := NewMiddleware(func(*http.Request) string { return "198.51.100.4" })
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/boom" {
			w.WriteHeader(http.StatusInternalServerError)
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, p := range []string{"/a", "/boom", "/b"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, nil))
	}

	got := m.GetMetrics()
	if got.TotalRequests != 3 || got.ServerErrors != 1 {
		t.Errorf("GetMetrics() = %+v, want 3 total and 1 server error", got)
	}
}

func TestGetRequestID_Empty(t *testing.T) {
	if id := GetRequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()); id != "" {
		t.Errorf("GetRequestID() = %q, want empty", id)
	}
}
