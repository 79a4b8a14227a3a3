package report

import (
	"fmt"
	"strings"
)

const rule = "================================================================================"

// Render returns the text report: header, chronological outcomes, summary,
// per-category breakdown and, when anything failed, the failed checks.
// Categories without matching outcomes are left out of the breakdown.
func (r *Report) Render() string {
	outcomes := r.Outcomes()
	summary := Summarize(outcomes)

	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, strings.ToUpper(r.Title))
	if r.Target != "" {
		fmt.Fprintf(&b, "Target: %s\n", r.Target)
	}
	fmt.Fprintln(&b, rule)

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "CHECKS:")
	for _, o := range outcomes {
		fmt.Fprintf(&b, "  %s: %s - %s\n", marker(o.Success), o.Name, o.Message)
	}

	fmt.Fprintln(&b)
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "SUMMARY")
	fmt.Fprintln(&b, rule)
	fmt.Fprintf(&b, "Total Tests: %d\n", summary.Total)
	fmt.Fprintf(&b, "✅ Passed: %d\n", summary.Passed)
	fmt.Fprintf(&b, "❌ Failed: %d\n", summary.Failed)
	fmt.Fprintf(&b, "Success Rate: %.1f%%\n", summary.SuccessRate)

	stats := GroupBy(outcomes, r.Categories)
	wroteHeader := false
	for _, st := range stats {
		if st.Total == 0 {
			continue
		}
		if !wroteHeader {
			fmt.Fprintln(&b)
			fmt.Fprintln(&b, "CATEGORY RESULTS:")
			wroteHeader = true
		}
		fmt.Fprintf(&b, "  %s %s: %.1f%% (%d/%d)\n", categoryGlyph(st.Rate), st.Category, st.Rate, st.Passed, st.Total)
	}

	if summary.Failed > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "FAILED TESTS:")
		for _, o := range outcomes {
			if !o.Success {
				fmt.Fprintf(&b, "  • %s: %s\n", o.Name, o.Message)
			}
		}
	}

	return b.String()
}

func categoryGlyph(rate float64) string {
	switch {
	case rate >= 80:
		return "✅"
	case rate >= 60:
		return "⚠️"
	default:
		return "❌"
	}
}
