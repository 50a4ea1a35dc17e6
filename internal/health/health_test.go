package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	Healthz(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok\n" {
		t.Errorf("Healthz = %d %q", w.Code, w.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	c := New()

	w := httptest.NewRecorder()
	c.Readyz(w, httptest.NewRequest("GET", "/readyz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ready\n" {
		t.Fatalf("no checks: %d %q", w.Code, w.Body.String())
	}

	c.Add("catalog", func() error { return nil })
	c.Add("tle", func() error { return errors.New("no dataset loaded") })

	w = httptest.NewRecorder()
	c.Readyz(w, httptest.NewRequest("GET", "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if !strings.Contains(w.Body.String(), "tle: no dataset loaded") {
		t.Errorf("body = %q", w.Body.String())
	}
	if strings.Contains(w.Body.String(), "catalog") {
		t.Errorf("passing check reported: %q", w.Body.String())
	}

	c.Add("tle", func() error { return nil })
	if f := c.Failures(); len(f) != 0 {
		t.Errorf("Failures() after replacement = %v", f)
	}
}
