package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/nowplay/internal/shared"
	"golang.org/x/time/rate"
)

func okHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("routes by method and pattern", func(t *testing.T) {
		router := NewBasicRouter()
		router.Handle("GET /widgets/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(r.PathValue("id")))
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widgets/42", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != "42" {
			t.Errorf("path value not threaded through, got %q", rec.Body.String())
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/widgets/42", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405 for wrong method, got %d", rec.Code)
		}
	})

	t.Run("middleware applies in registration order", func(t *testing.T) {
		var order []string
		tag := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(tag("outer"), tag("inner"))
		router.Handle("GET /", okHandler("ok"))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
			t.Errorf("unexpected middleware order: %v", order)
		}
	})
}

func TestRecovery(t *testing.T) {
	router := NewBasicRouter()
	router.Use(Recovery(shared.NewLogger(io.Discard)))
	router.Handle("GET /boom", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %d", rec.Code)
	}
}

func TestRateLimiter(t *testing.T) {
	t.Run("burst exhaustion yields 429", func(t *testing.T) {
		limiter := NewRateLimiter(rate.Limit(0.01), 2)

		router := NewBasicRouter()
		router.Use(limiter.Middleware())
		router.Handle("GET /", okHandler("ok"))

		request := func() int {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "10.0.0.1:9999"
			router.ServeHTTP(rec, req)
			return rec.Code
		}

		if got := request(); got != http.StatusOK {
			t.Fatalf("first request should pass, got %d", got)
		}
		if got := request(); got != http.StatusOK {
			t.Fatalf("second request should pass, got %d", got)
		}
		if got := request(); got != http.StatusTooManyRequests {
			t.Errorf("third request should be limited, got %d", got)
		}
	})

	t.Run("clients are limited independently", func(t *testing.T) {
		limiter := NewRateLimiter(rate.Limit(0.01), 1)

		router := NewBasicRouter()
		router.Use(limiter.Middleware())
		router.Handle("GET /", okHandler("ok"))

		request := func(addr string) int {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = addr
			router.ServeHTTP(rec, req)
			return rec.Code
		}

		if got := request("10.0.0.1:1000"); got != http.StatusOK {
			t.Fatalf("first client should pass, got %d", got)
		}
		if got := request("10.0.0.1:2000"); got != http.StatusTooManyRequests {
			t.Errorf("same IP on a new port shares the bucket, got %d", got)
		}
		if got := request("10.0.0.2:1000"); got != http.StatusOK {
			t.Errorf("a different IP gets its own bucket, got %d", got)
		}
	})
}
