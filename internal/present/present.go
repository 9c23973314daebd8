// Package present renders analysis results and suggestions as text cards.
// Rendering depends only on the result data, never on whether the tasks came
// from the local buffer or a bulk batch.
package present

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/phrazzld/taskrank/internal/domain"
)

// Presenter writes result and suggestion sections to an output stream. Each
// call writes a complete section that supersedes the previous one.
type Presenter struct {
	w       io.Writer
	verbose bool
}

// Option customizes a Presenter.
type Option func(*Presenter)

// WithVerbose adds breakdown details below each result card.
func WithVerbose(v bool) Option {
	return func(p *Presenter) {
		p.verbose = v
	}
}

// New returns a presenter writing to w.
func New(w io.Writer, opts ...Option) *Presenter {
	p := &Presenter{w: w}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RenderResults writes one card per result in the order given, preceded by
// a warning line per dependency cycle.
func (p *Presenter) RenderResults(results []domain.AnalysisResult, cycles [][]string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "== Results (%d) ==\n", len(results))
	for _, c := range cycles {
		if len(c) > 0 {
			fmt.Fprintf(&b, "Dependency cycle: %s\n", strings.Join(c, " -> "))
		}
	}
	if len(results) == 0 {
		b.WriteString("(no results)\n")
	}
	for _, r := range results {
		b.WriteString(ResultCard(r, p.verbose))
	}
	_, err := io.WriteString(p.w, b.String())
	return err
}

// RenderSuggestions writes the suggestion shortlist.
func (p *Presenter) RenderSuggestions(suggestions []domain.Suggestion) error {
	var b strings.Builder
	fmt.Fprintf(&b, "== Top suggestions (%d) ==\n", len(suggestions))
	if len(suggestions) == 0 {
		b.WriteString("(none)\n")
	}
	for _, s := range suggestions {
		b.WriteString(SuggestionCard(s))
	}
	_, err := io.WriteString(p.w, b.String())
	return err
}

// Badge renders a score with its tier, e.g. "[high 82.5]".
func Badge(score float64) string {
	return fmt.Sprintf("[%s %s]", domain.TierFor(score), domain.FormatScore(score))
}

// ResultCard renders one result:
//
//	Write report (3h · imp 7)  [high 82.5]
//	  Due: 2025-01-10 · deps:design,review
//
// The second line is omitted when the task has neither a due date nor
// dependencies.
func ResultCard(r domain.AnalysisResult, verbose bool) string {
	t := r.Task

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%sh · imp %d)  %s\n",
		t.Title, strconv.FormatFloat(t.EstimatedHours, 'f', -1, 64), t.Importance, Badge(r.Score))

	var meta []string
	if t.HasDueDate() {
		meta = append(meta, "Due: "+*t.DueDate)
	}
	if len(t.Dependencies) > 0 {
		meta = append(meta, "deps:"+strings.Join(t.Dependencies, ","))
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, "  %s\n", strings.Join(meta, " · "))
	}

	if verbose {
		if r.Breakdown.Method != "" {
			fmt.Fprintf(&b, "  method: %s\n", r.Breakdown.Method)
		}
		if len(r.Breakdown.Components) > 0 {
			fmt.Fprintf(&b, "  breakdown: %s\n", components(r.Breakdown.Components))
		}
	}
	return b.String()
}

// SuggestionCard renders one suggestion with its explanation on a second
// line when it has one.
func SuggestionCard(s domain.Suggestion) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", s.Task.Title, Badge(s.Score))
	if s.Explanation != "" {
		fmt.Fprintf(&b, "  %s\n", s.Explanation)
	}
	return b.String()
}

func components(c map[string]float64) string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strconv.FormatFloat(c[k], 'f', -1, 64))
	}
	return strings.Join(parts, " ")
}
