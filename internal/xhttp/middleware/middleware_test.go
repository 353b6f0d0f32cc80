package middleware

import (
	"bufio"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/garrettladley/chirp/internal/xcontext"
	"github.com/garrettladley/chirp/internal/xhttp"
)

type hijackableRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackableRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	server, client := net.Pipe()
	_ = client.Close()
	return server, bufio.NewReadWriter(bufio.NewReader(server), bufio.NewWriter(server)), nil
}

func TestLoggingHijack(t *testing.T) {
	t.Parallel()

	rec := &hijackableRecorder{ResponseRecorder: httptest.NewRecorder()}
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("expected logging writer to implement http.Hijacker")
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Fatalf("Hijack() error = %v", err)
		}
		_ = conn.Close()
	}))

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/ws", nil)
	handler.ServeHTTP(rec, req)

	if !rec.hijacked {
		t.Error("expected underlying writer to be hijacked")
	}
}

func TestLoggingHijackUnsupported(t *testing.T) {
	t.Parallel()

	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, _, err := w.(http.Hijacker).Hijack(); err == nil {
			t.Error("expected error from recorder without hijack support")
		}
	}))

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/ws", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     []RequestIDOption
		incoming string
		want     string
	}{
		{
			name: "generated",
			opts: []RequestIDOption{WithIDFunc(func(*http.Request) string { return "gen-1" })},
			want: "gen-1",
		},
		{
			name:     "incoming ignored by default",
			opts:     []RequestIDOption{WithIDFunc(func(*http.Request) string { return "gen-2" })},
			incoming: "from-client",
			want:     "gen-2",
		},
		{
			name: "incoming trusted",
			opts: []RequestIDOption{
				WithIDFunc(func(*http.Request) string { return "gen-3" }),
				TrustIncoming(),
			},
			incoming: "from-client",
			want:     "from-client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got string
			handler := RequestID(tt.opts...)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				got, _ = xcontext.RequestID(r.Context())
			}))

			req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/api/stats", nil)
			if tt.incoming != "" {
				req.Header.Set(xhttp.XRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if got != tt.want {
				t.Errorf("context request id = %q, want %q", got, tt.want)
			}
			if h := rec.Header().Get(xhttp.XRequestID); h != tt.want {
				t.Errorf("X-Request-ID = %q, want %q", h, tt.want)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	handler := Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mark := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	final := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	})
	stack := []func(http.Handler) http.Handler{mark("a"), mark("b")}

	// building twice from the same slice must yield the same order
	for range 2 {
		order = nil
		h := Chain(final, stack...)

		req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/", nil)
		h.ServeHTTP(httptest.NewRecorder(), req)

		want := []string{"a", "b", "handler"}
		if len(order) != len(want) {
			t.Fatalf("order = %v, want %v", order, want)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("order = %v, want %v", order, want)
			}
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	h := SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	rec.Header().Set(xhttp.CacheControl, "max-age=60")
	h.ServeHTTP(rec, httptest.NewRequestWithContext(t.Context(), http.MethodGet, "/", nil))

	tests := map[string]string{
		xhttp.XContentTypeOpts: "nosniff",
		xhttp.XFrameOpts:       "DENY",
		xhttp.ReferrerPolicy:   "no-referrer",
		xhttp.CacheControl:     "max-age=60",
	}
	for key, want := range tests {
		if got := rec.Header().Get(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
}
