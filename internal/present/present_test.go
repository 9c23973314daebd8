package present

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/phrazzld/taskrank/internal/buffer"
	"github.com/phrazzld/taskrank/internal/bulk"
	"github.com/phrazzld/taskrank/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBadge(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "[high 70]", Badge(70))
	assert.Equal(t, "[med 69.9]", Badge(69.9))
	assert.Equal(t, "[med 40]", Badge(40))
	assert.Equal(t, "[low 39.9]", Badge(39.9))
}

func TestResultCard(t *testing.T) {
	t.Parallel()

	t.Run("full card", func(t *testing.T) {
		r := domain.AnalysisResult{
			Task: domain.TaskRecord{
				Title:          "Write report",
				DueDate:        strPtr("2025-01-10"),
				EstimatedHours: 3,
				Importance:     7,
				Dependencies:   []string{"design", "review"},
			},
			Score: 82.5,
		}
		assert.Equal(t,
			"Write report (3h · imp 7)  [high 82.5]\n  Due: 2025-01-10 · deps:design,review\n",
			ResultCard(r, false))
	})

	t.Run("no due date and no dependencies omits meta line", func(t *testing.T) {
		r := domain.AnalysisResult{
			Task:  domain.TaskRecord{Title: "Tidy", EstimatedHours: 0.5, Importance: 2, Dependencies: []string{}},
			Score: 12,
		}
		assert.Equal(t, "Tidy (0.5h · imp 2)  [low 12]\n", ResultCard(r, false))
	})

	t.Run("dependencies only", func(t *testing.T) {
		r := domain.AnalysisResult{
			Task:  domain.TaskRecord{Title: "Ship", EstimatedHours: 1, Importance: 5, Dependencies: []string{"build"}},
			Score: 55,
		}
		assert.Equal(t, "Ship (1h · imp 5)  [med 55]\n  deps:build\n", ResultCard(r, false))
	})

	t.Run("verbose shows breakdown", func(t *testing.T) {
		r := domain.AnalysisResult{
			Task:  domain.TaskRecord{Title: "A", EstimatedHours: 1, Importance: 5},
			Score: 71,
			Breakdown: domain.Breakdown{
				Method:     "smart",
				Components: map[string]float64{"urgency": 0.3, "effort": 0.9},
			},
		}
		card := ResultCard(r, true)
		assert.Contains(t, card, "  method: smart\n")
		assert.Contains(t, card, "  breakdown: effort=0.9 urgency=0.3\n")
	})
}

func TestRenderResults(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := New(&out)

	results := []domain.AnalysisResult{
		{Task: domain.TaskRecord{Title: "b", EstimatedHours: 1, Importance: 5}, Score: 30},
		{Task: domain.TaskRecord{Title: "a", EstimatedHours: 1, Importance: 5}, Score: 90},
	}
	require.NoError(t, p.RenderResults(results, [][]string{{"a", "b", "a"}}))

	assert.Equal(t,
		"== Results (2) ==\n"+
			"Dependency cycle: a -> b -> a\n"+
			"b (1h · imp 5)  [low 30]\n"+
			"a (1h · imp 5)  [high 90]\n",
		out.String(), "cards keep the given order")

	out.Reset()
	require.NoError(t, p.RenderResults(nil, nil))
	assert.Equal(t, "== Results (0) ==\n(no results)\n", out.String())
}

func TestRenderSuggestions(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	p := New(&out)

	require.NoError(t, p.RenderSuggestions([]domain.Suggestion{
		{Task: domain.TaskRecord{Title: "a"}, Score: 91, Explanation: "urgency-weighted"},
		{Task: domain.TaskRecord{Title: "b"}, Score: 45},
	}))

	assert.Equal(t,
		"== Top suggestions (2) ==\n"+
			"a  [high 91]\n  urgency-weighted\n"+
			"b  [med 45]\n",
		out.String())
}

// A task rendered after a round trip through the service looks the same
// whether it was typed into the form or pasted as bulk input.
func TestRenderingIgnoresProvenance(t *testing.T) {
	t.Parallel()

	buf := buffer.New()
	form := buffer.NewForm()
	form.Set(buffer.FieldTitle, "Write report")
	form.Set(buffer.FieldDueDate, "2025-01-10")
	form.Set(buffer.FieldEstimatedHours, "3")
	form.Set(buffer.FieldImportance, "7")
	form.Set(buffer.FieldDependencies, "design,review")
	_, err := form.Submit(buf)
	require.NoError(t, err)

	fromBuffer, err := json.Marshal(buf.Snapshot()[0])
	require.NoError(t, err)

	batch, _, err := bulk.Parse(`[{"title":"Write report","due_date":"2025-01-10","estimated_hours":3,"importance":7,"dependencies":["design","review"]}]`)
	require.NoError(t, err)

	echo := func(raw json.RawMessage) string {
		body := `{"results":[{"task":` + string(raw) + `,"score":64,"breakdown":{"method":"smart"}}]}`
		var resp domain.AnalysisResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		return ResultCard(resp.Results[0], true)
	}

	assert.Equal(t, echo(fromBuffer), echo(batch[0]))
}
