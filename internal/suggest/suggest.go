// Package suggest derives a short list of top suggestions from an already
// ranked result set.
package suggest

import (
	"strings"

	"github.com/phrazzld/taskrank/internal/domain"
)

// DefaultCount is the shortlist length used when none is configured.
const DefaultCount = 3

// Extract takes the first n results in the order given and annotates each
// with its explanation. Results are never re-sorted. A non-positive n yields
// an empty list.
func Extract(results []domain.AnalysisResult, n int) []domain.Suggestion {
	if n <= 0 {
		return []domain.Suggestion{}
	}
	if n > len(results) {
		n = len(results)
	}

	out := make([]domain.Suggestion, 0, n)
	for _, r := range results[:n] {
		out = append(out, domain.Suggestion{
			Task:        r.Task,
			Score:       r.Score,
			Explanation: Explanation(r),
		})
	}
	return out
}

// Explanation resolves the rationale for a result: the breakdown method if
// present, then a provided explanation, then the why list joined with ", ".
// It is empty when none of those is set.
func Explanation(r domain.AnalysisResult) string {
	if r.Breakdown.Method != "" {
		return r.Breakdown.Method
	}
	if r.Explanation != "" {
		return r.Explanation
	}
	if len(r.Why) > 0 {
		return strings.Join(r.Why, ", ")
	}
	if len(r.Breakdown.Why) > 0 {
		return strings.Join(r.Breakdown.Why, ", ")
	}
	return ""
}
