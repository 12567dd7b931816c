package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/config"
	"github.com/CamiloRosadaC/primera-entrega-IOT/internal/csvstore"
)

type brokenStore struct{}

func (brokenStore) Stat() (csvstore.Stats, error) { return csvstore.Stats{}, errors.New("no such file") }

func TestHealthz(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		store, err := csvstore.Open(filepath.Join(t.TempDir(), "data.csv"))
		if err != nil {
			t.Fatal(err)
		}
		mux := NewMux(store)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status=%d want=%d", rec.Code, http.StatusOK)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode json: %v", err)
		}
		if body["status"] != "ok" {
			t.Fatalf("body.status=%q want=%q", body["status"], "ok")
		}
	})

	t.Run("store unavailable", func(t *testing.T) {
		mux := NewMux(brokenStore{})
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d want=%d", rec.Code, http.StatusInternalServerError)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	mux := NewMux(brokenStore{})
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=%d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Errorf("metrics output missing default collectors")
	}
}

func TestRequestLogger(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := requestLogger(inner)

	t.Run("records status and generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		if rec.Code != http.StatusTeapot {
			t.Errorf("status=%d want=%d", rec.Code, http.StatusTeapot)
		}
		if _, err := uuid.Parse(rec.Header().Get(requestIDHeader)); err != nil {
			t.Errorf("X-Request-ID = %q is not a uuid: %v", rec.Header().Get(requestIDHeader), err)
		}
	})

	t.Run("reuses caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
			t.Errorf("X-Request-ID = %q; want abc-123", got)
		}
	})
}

func TestNewServer(t *testing.T) {
	srv := NewServer(config.Config{HTTPAddr: ":5000"}, http.NewServeMux())
	if srv.Addr != ":5000" {
		t.Errorf("Addr = %q; want :5000", srv.Addr)
	}
	if srv.ReadHeaderTimeout == 0 || srv.WriteTimeout == 0 {
		t.Error("server timeouts not set")
	}
}
