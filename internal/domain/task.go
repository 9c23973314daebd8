package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Defaults applied when a task field is missing or not numeric.
const (
	DefaultEstimatedHours = 1.0
	DefaultImportance     = 5
)

// TaskRecord is a single unit of work submitted for scoring.
//
// Dependencies name other tasks by id or title. They are never checked for
// existence or cycles here; the analysis service is the authority on that.
type TaskRecord struct {
	ID             string   `json:"id,omitempty"`
	Title          string   `json:"title"`
	DueDate        *string  `json:"due_date"`
	EstimatedHours float64  `json:"estimated_hours"`
	Importance     int      `json:"importance"`
	Dependencies   []string `json:"dependencies"`
}

// NewTaskRecord builds a task from loosely typed field values, applying the
// same coercion rules as the form-entry path and the wire decoder.
func NewTaskRecord(title, dueDate string, hours, importance any, deps []string) TaskRecord {
	t := TaskRecord{
		Title:          strings.TrimSpace(title),
		EstimatedHours: CoerceHours(hours),
		Importance:     CoerceImportance(importance),
		Dependencies:   deps,
	}
	if d := strings.TrimSpace(dueDate); d != "" {
		t.DueDate = &d
	}
	return t.Normalize()
}

// Normalize returns a copy of t with defaults applied to out-of-range fields.
func (t TaskRecord) Normalize() TaskRecord {
	if !(t.EstimatedHours > 0) || math.IsInf(t.EstimatedHours, 0) {
		t.EstimatedHours = DefaultEstimatedHours
	}
	if t.Importance == 0 {
		t.Importance = DefaultImportance
	}
	if t.DueDate != nil && strings.TrimSpace(*t.DueDate) == "" {
		t.DueDate = nil
	}
	deps := make([]string, 0, len(t.Dependencies))
	for _, d := range t.Dependencies {
		if d = strings.TrimSpace(d); d != "" {
			deps = append(deps, d)
		}
	}
	t.Dependencies = deps
	return t
}

// HasDueDate reports whether the task carries a deadline.
func (t TaskRecord) HasDueDate() bool {
	return t.DueDate != nil && *t.DueDate != ""
}

// MarshalJSON always emits dependencies as an array, never null.
func (t TaskRecord) MarshalJSON() ([]byte, error) {
	type plain TaskRecord
	p := plain(t)
	if p.Dependencies == nil {
		p.Dependencies = []string{}
	}
	return json.Marshal(p)
}

// UnmarshalJSON decodes a task leniently. Numeric fields that are missing or
// not numeric fall back to their defaults rather than failing the decode.
func (t *TaskRecord) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID             any `json:"id"`
		Title          any `json:"title"`
		DueDate        any `json:"due_date"`
		EstimatedHours any `json:"estimated_hours"`
		Importance     any `json:"importance"`
		Dependencies   any `json:"dependencies"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode task record: %w", err)
	}

	var deps []string
	if list, ok := raw.Dependencies.([]any); ok {
		for _, d := range list {
			if s := scalarText(d); s != "" {
				deps = append(deps, s)
			}
		}
	}

	*t = NewTaskRecord(scalarText(raw.Title), scalarText(raw.DueDate), raw.EstimatedHours, raw.Importance, deps)
	t.ID = scalarText(raw.ID)
	return nil
}

// CoerceHours converts v to a positive hour estimate. Strings are parsed,
// anything unparsable, non-finite, zero or negative yields the default.
func CoerceHours(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return DefaultEstimatedHours
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return DefaultEstimatedHours
		}
		f = parsed
	default:
		return DefaultEstimatedHours
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return DefaultEstimatedHours
	}
	return f
}

// CoerceImportance converts v to an integer importance. Decimals are
// truncated toward zero; unparsable values, zero and values outside the int
// range yield the default. No other bound is enforced.
func CoerceImportance(v any) int {
	var n int
	switch x := v.(type) {
	case int:
		n = x
	case int64:
		n = int(x)
	case float64:
		// int conversion of a float outside the int range is undefined.
		if math.IsNaN(x) || x >= math.MaxInt || x < math.MinInt {
			return DefaultImportance
		}
		n = int(x)
	case json.Number:
		return CoerceImportance(x.String())
	case string:
		s := strings.TrimSpace(x)
		if i, err := strconv.Atoi(s); err == nil {
			n = i
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			return CoerceImportance(f)
		} else {
			return DefaultImportance
		}
	default:
		return DefaultImportance
	}
	if n == 0 {
		return DefaultImportance
	}
	return n
}

// scalarText renders a decoded JSON scalar as text; null and composite
// values become the empty string.
func scalarText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}
