// Package report collects check outcomes for one verification run and
// renders them as a text report.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Outcome is the recorded result of one check.
type Outcome struct {
	Name      string         `json:"test"`
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details"`
	Timestamp time.Time      `json:"timestamp"`
}

// Summary holds the derived counts of a report.
type Summary struct {
	Total       int     `json:"total"`
	Passed      int     `json:"passed"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"` // percent, 0 when Total is 0
}

// Report is an append-only, insertion-ordered list of outcomes. Recording
// stays open after Render so interim summaries can be printed mid-run.
type Report struct {
	Title      string
	Target     string
	Categories []string // breakdown order used by Render

	mu       sync.Mutex
	outcomes []Outcome
	live     io.Writer
	now      func() time.Time
}

// New returns an empty report.
func New(title, target string, categories []string) *Report {
	return &Report{Title: title, Target: target, Categories: categories, now: time.Now}
}

// Stream makes Record echo each outcome to w as it is appended.
func (r *Report) Stream(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = w
}

// Record appends an outcome. It never fails.
func (r *Report) Record(name string, success bool, message string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	o := Outcome{
		Name:      name,
		Success:   success,
		Message:   message,
		Details:   details,
		Timestamp: r.now(),
	}
	r.outcomes = append(r.outcomes, o)

	if r.live != nil {
		fmt.Fprintf(r.live, "%s: %s - %s\n", marker(success), name, message)
		if !success && len(details) > 0 {
			fmt.Fprintf(r.live, "   Details: %s\n", formatDetails(details))
		}
	}
}

// Outcomes returns a copy of the recorded outcomes in insertion order.
func (r *Report) Outcomes() []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Outcome, len(r.outcomes))
	copy(out, r.outcomes)
	return out
}

// Summarize computes the counts at this point in the run.
func (r *Report) Summarize() Summary {
	return Summarize(r.Outcomes())
}

// Summarize computes counts over outcomes.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Success {
			s.Passed++
		}
	}
	s.Failed = s.Total - s.Passed
	s.SuccessRate = Rate(s.Passed, s.Total)
	return s
}

// Rate returns passed/total as a percentage, or 0 when total is 0.
func Rate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(passed) / float64(total)
}

// RoundRate rounds a percentage to one decimal place.
func RoundRate(rate float64) float64 {
	return math.Round(rate*10) / 10
}

func marker(success bool) string {
	if success {
		return "✅ PASS"
	}
	return "❌ FAIL"
}

func formatDetails(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return strings.Join(parts, " ")
}
