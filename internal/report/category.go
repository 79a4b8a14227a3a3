package report

import "strings"

// CategoryStat counts the outcomes that fall under one category.
type CategoryStat struct {
	Category string  `json:"category"`
	Passed   int     `json:"passed"`
	Total    int     `json:"total"`
	Rate     float64 `json:"rate"`
}

// MatchesCategory reports whether an outcome named name belongs to category.
// Matching is a case-insensitive substring test, so a name may belong to
// several categories or to none.
func MatchesCategory(name, category string) bool {
	return strings.Contains(strings.ToLower(name), strings.ToLower(category))
}

// GroupBy counts outcomes per category, in the order categories are given.
// Categories that match nothing are returned with zero counts.
func (r *Report) GroupBy(categories []string) []CategoryStat {
	return GroupBy(r.Outcomes(), categories)
}

// GroupBy counts outcomes per category.
func GroupBy(outcomes []Outcome, categories []string) []CategoryStat {
	stats := make([]CategoryStat, 0, len(categories))
	for _, c := range categories {
		st := CategoryStat{Category: c}
		for _, o := range outcomes {
			if !MatchesCategory(o.Name, c) {
				continue
			}
			st.Total++
			if o.Success {
				st.Passed++
			}
		}
		st.Rate = Rate(st.Passed, st.Total)
		stats = append(stats, st)
	}
	return stats
}
