package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tmater/propcheck/internal/report"
)

// RunAlert is the JSON body sent to a webhook URL when a run is failing.
type RunAlert struct {
	RunID       string    `json:"run_id,omitempty"`
	Suite       string    `json:"suite"`
	Target      string    `json:"target"`
	Status      string    `json:"status"` // "failing" or "passing"
	Total       int       `json:"total"`
	Passed      int       `json:"passed"`
	Failed      int       `json:"failed"`
	SuccessRate float64   `json:"success_rate"`
	FailedTests []Failure `json:"failed_tests,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

type Failure struct {
	Test    string `json:"test"`
	Message string `json:"message"`
}

// NewRunAlert builds the payload for a finished report.
func NewRunAlert(suite string, r *report.Report, failing bool) RunAlert {
	s := r.Summarize()
	a := RunAlert{
		Suite:       suite,
		Target:      r.Target,
		Status:      "passing",
		Total:       s.Total,
		Passed:      s.Passed,
		Failed:      s.Failed,
		SuccessRate: report.RoundRate(s.SuccessRate),
		FinishedAt:  time.Now().UTC(),
	}
	if failing {
		a.Status = "failing"
	}
	for _, o := range r.Outcomes() {
		if !o.Success {
			a.FailedTests = append(a.FailedTests, Failure{Test: o.Name, Message: o.Message})
		}
	}
	return a
}

var client = &http.Client{Timeout: 10 * time.Second}

// Fire POSTs payload as JSON to url. Returns an error if the request fails or
// the server responds with a non-2xx status.
func Fire(url string, payload RunAlert) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d from %s", resp.StatusCode, url)
	}
	return nil
}
