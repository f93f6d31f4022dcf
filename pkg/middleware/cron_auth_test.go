package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
)

func TestCronAuth(t *testing.T) {
	called := false
	next := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		called = true
		w.WriteHeader(http.StatusOK)
	}

	t.Run("matching secret passes", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/cron/sweep", nil)
		req.Header.Set(CronSecretHeader, "s3cret")
		rec := httptest.NewRecorder()

		CronAuth("s3cret", next)(rec, req, nil)

		if !called || rec.Code != http.StatusOK {
			t.Fatalf("called=%v code=%d, want handler to run", called, rec.Code)
		}
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/cron/sweep", nil)
		req.Header.Set(CronSecretHeader, "wrong")
		rec := httptest.NewRecorder()

		CronAuth("s3cret", next)(rec, req, nil)

		if called {
			t.Fatal("handler must not run with a wrong secret")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("code = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("missing secret rejected", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/cron/sweep", nil)
		rec := httptest.NewRecorder()

		CronAuth("s3cret", next)(rec, req, nil)

		if called || rec.Code != http.StatusUnauthorized {
			t.Fatalf("called=%v code=%d, want rejection", called, rec.Code)
		}
	})

	t.Run("empty secret disables the check", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodPost, "/cron/sweep", nil)
		rec := httptest.NewRecorder()

		CronAuth("", next)(rec, req, nil)

		if !called {
			t.Fatal("empty secret must let the request through")
		}
	})
}
