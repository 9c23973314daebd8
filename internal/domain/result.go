package domain

import (
	"encoding/json"
	"fmt"
)

// Breakdown describes how a score was derived. Method and Why are the only
// members the client interprets; other numeric members (per-factor weights
// reported by some strategies) are kept in Components.
type Breakdown struct {
	Method     string
	Why        []string
	Components map[string]float64
}

// UnmarshalJSON keeps method, why, and every numeric member. Members of any
// other type are ignored.
func (b *Breakdown) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("decode breakdown: %w", err)
	}

	*b = Breakdown{}
	for key, raw := range members {
		switch key {
		case "method":
			var method string
			if json.Unmarshal(raw, &method) == nil {
				b.Method = method
			}
		case "why":
			var why []string
			if json.Unmarshal(raw, &why) == nil {
				b.Why = why
			}
		default:
			var f float64
			if json.Unmarshal(raw, &f) == nil {
				if b.Components == nil {
					b.Components = make(map[string]float64)
				}
				b.Components[key] = f
			}
		}
	}
	return nil
}

// MarshalJSON writes the breakdown back as a flat object.
func (b Breakdown) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(b.Components)+2)
	for k, v := range b.Components {
		out[k] = v
	}
	if b.Method != "" {
		out["method"] = b.Method
	}
	if len(b.Why) > 0 {
		out["why"] = b.Why
	}
	return json.Marshal(out)
}

// AnalysisResult is one scored task as returned by the analysis service.
// Explanation and Why are only filled by the suggestion endpoint.
type AnalysisResult struct {
	Task        TaskRecord `json:"task"`
	Score       float64    `json:"score"`
	Breakdown   Breakdown  `json:"breakdown"`
	Explanation string     `json:"explanation,omitempty"`
	Why         []string   `json:"why,omitempty"`
}

// AnalysisResponse is the success body of an analyze request. Results are in
// the service's ranking order and must not be re-sorted.
type AnalysisResponse struct {
	Strategy string           `json:"strategy,omitempty"`
	Cycles   [][]string       `json:"cycles,omitempty"`
	Results  []AnalysisResult `json:"results"`
}

// SuggestionResponse is the success body of a suggest request.
type SuggestionResponse struct {
	Strategy    string           `json:"strategy,omitempty"`
	Cycles      [][]string       `json:"cycles,omitempty"`
	Suggestions []AnalysisResult `json:"suggestions"`
}

// Suggestion is a top-ranked result annotated with a short rationale. It is
// derived locally and never transmitted.
type Suggestion struct {
	Task        TaskRecord
	Score       float64
	Explanation string
}
