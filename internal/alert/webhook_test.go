package alert

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tmater/propcheck/internal/report"
)

func TestFire(t *testing.T) {
	var received RunAlert
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("failed to decode body: %s", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rep := report.New("Smoke", "https://app.example.com", nil)
	rep.Record("A", true, "ok", nil)
	rep.Record("B", false, "HTTP 500", nil)
	rep.Record("C", true, "ok", nil)

	if err := Fire(srv.URL, NewRunAlert("smoke", rep, true)); err != nil {
		t.Fatalf("Fire returned error: %s", err)
	}

	if received.Suite != "smoke" {
		t.Errorf("suite: got %q, want \"smoke\"", received.Suite)
	}
	if received.Status != "failing" {
		t.Errorf("status: got %q, want \"failing\"", received.Status)
	}
	if received.Failed != 1 || received.Total != 3 {
		t.Errorf("counts: got failed=%d total=%d, want 1/3", received.Failed, received.Total)
	}
	if received.SuccessRate != 66.7 {
		t.Errorf("success_rate: got %v, want 66.7", received.SuccessRate)
	}
	if len(received.FailedTests) != 1 || received.FailedTests[0].Test != "B" {
		t.Errorf("failed_tests: got %+v", received.FailedTests)
	}
}

func TestNewRunAlert_Passing(t *testing.T) {
	rep := report.New("Smoke", "https://app.example.com", nil)
	rep.Record("A", true, "ok", nil)

	a := NewRunAlert("smoke", rep, false)
	if a.Status != "passing" {
		t.Errorf("status: got %q, want \"passing\"", a.Status)
	}
	if a.FailedTests != nil {
		t.Errorf("failed_tests: got %+v, want none", a.FailedTests)
	}
	if a.Target != "https://app.example.com" {
		t.Errorf("target: got %q", a.Target)
	}
}

func TestFire_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := Fire(srv.URL, RunAlert{Suite: "x", Target: "y", Status: "failing"})
	if err == nil {
		t.Fatal("expected error for non-2xx response, got nil")
	}
}
