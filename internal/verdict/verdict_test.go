package verdict

import (
	"testing"

	"github.com/tmater/propcheck/internal/report"
)

func summary(failed, total int) report.Summary {
	return report.Summary{Total: total, Passed: total - failed, Failed: failed, SuccessRate: report.Rate(total-failed, total)}
}

func TestFailing(t *testing.T) {
	tests := []struct {
		name   string
		failed int
		total  int
		budget int
		want   bool
	}{
		{"empty run", 0, 0, 0, false},
		{"all passed", 0, 5, 0, false},
		{"one failed, no budget", 1, 5, 0, true},
		{"one failed, budget one", 1, 5, 1, false},
		{"two failed, budget one", 2, 5, 1, true},
		{"negative budget never fails", 5, 5, -1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Failing(summary(tt.failed, tt.total), tt.budget)
			if got != tt.want {
				t.Errorf("Failing(failed=%d, budget=%d) = %v, want %v", tt.failed, tt.budget, got, tt.want)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		failed   int
		budget   int
		exitZero bool
		want     int
	}{
		{"clean run", 0, 0, false, 0},
		{"failures over budget", 2, 0, false, 1},
		{"failures within budget", 2, 2, false, 0},
		{"exit-zero overrides failures", 2, 0, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExitCode(summary(tt.failed, 10), tt.budget, tt.exitZero)
			if got != tt.want {
				t.Errorf("ExitCode(failed=%d, budget=%d, exitZero=%v) = %d, want %d", tt.failed, tt.budget, tt.exitZero, got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	m := Merge(summary(1, 4), summary(0, 6), report.Summary{})
	if m.Total != 10 || m.Passed != 9 || m.Failed != 1 {
		t.Fatalf("Merge: got %+v", m)
	}
	if m.SuccessRate != 90 {
		t.Errorf("SuccessRate: got %v, want 90", m.SuccessRate)
	}
}
