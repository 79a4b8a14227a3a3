package verdict

import "github.com/tmater/propcheck/internal/report"

// Failing returns true if more than maxFailures checks failed. A negative
// budget never fails.
func Failing(s report.Summary, maxFailures int) bool {
	if maxFailures < 0 {
		return false
	}
	return s.Failed > maxFailures
}

// ExitCode maps a run summary onto a process exit code. With exitZero set the
// run always exits 0 so it can report without gating.
func ExitCode(s report.Summary, maxFailures int, exitZero bool) int {
	if exitZero || !Failing(s, maxFailures) {
		return 0
	}
	return 1
}

// Merge adds up the summaries of several suites run in one invocation.
func Merge(summaries ...report.Summary) report.Summary {
	var m report.Summary
	for _, s := range summaries {
		m.Total += s.Total
		m.Passed += s.Passed
		m.Failed += s.Failed
	}
	m.SuccessRate = report.Rate(m.Passed, m.Total)
	return m
}
