package session_test

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/phrazzld/taskrank/internal/analysis"
	"github.com/phrazzld/taskrank/internal/buffer"
	"github.com/phrazzld/taskrank/internal/bulk"
	"github.com/phrazzld/taskrank/internal/domain"
	"github.com/phrazzld/taskrank/internal/platform/logger"
	"github.com/phrazzld/taskrank/internal/present"
	"github.com/phrazzld/taskrank/internal/session"
	"github.com/phrazzld/taskrank/internal/testutils/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects notices.
type recorder struct {
	mu      sync.Mutex
	notices []session.Notice
}

func (r *recorder) Notify(n session.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) last() session.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return session.Notice{}
	}
	return r.notices[len(r.notices)-1]
}

type fixture struct {
	sess    *session.Session
	srv     *backend.Server
	out     *bytes.Buffer
	notices *recorder
}

func newFixture(t *testing.T, opts backend.Options, sessOpts ...session.Option) *fixture {
	t.Helper()

	srv := backend.New(t, opts)
	log, _ := logger.GetTestLogger(t)

	client, err := analysis.NewClient(srv.BaseURL, analysis.WithLogger(log))
	require.NoError(t, err)

	out := &bytes.Buffer{}
	notices := &recorder{}
	sessOpts = append([]session.Option{session.WithLogger(log)}, sessOpts...)
	sess, err := session.New(client, present.New(out), notices, sessOpts...)
	require.NoError(t, err)

	return &fixture{sess: sess, srv: srv, out: out, notices: notices}
}

func (f *fixture) addTask(t *testing.T, title string) {
	t.Helper()
	f.sess.Form().Set(buffer.FieldTitle, title)
	_, err := f.sess.SubmitForm()
	require.NoError(t, err)
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	client, err := analysis.NewClient("http://localhost:8000/api/tasks")
	require.NoError(t, err)
	p := present.New(&bytes.Buffer{})
	n := session.NotifierFunc(func(session.Notice) {})

	_, err = session.New(nil, p, n)
	assert.Error(t, err)
	_, err = session.New(client, nil, n)
	assert.Error(t, err)
	_, err = session.New(client, p, nil)
	assert.Error(t, err)
	_, err = session.New(client, p, n, session.WithStrategy("  "))
	assert.ErrorIs(t, err, domain.ErrEmptyStrategy)
}

func TestSubmitForm(t *testing.T) {
	t.Parallel()

	f := newFixture(t, backend.Options{})

	form := f.sess.Form()
	form.Set(buffer.FieldTitle, "Write report")
	form.Set(buffer.FieldEstimatedHours, "abc")
	form.Set(buffer.FieldImportance, "")

	task, err := f.sess.SubmitForm()
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultEstimatedHours, task.EstimatedHours)
	assert.Equal(t, domain.DefaultImportance, task.Importance)
	assert.Equal(t, 1, f.sess.Buffer().Len())
	assert.Equal(t, "", form.Get(buffer.FieldTitle), "form resets after submit")
	assert.Equal(t, session.TextTaskAdded, f.notices.last().Text)

	form.Set(buffer.FieldImportance, "9")
	_, err = f.sess.SubmitForm()
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)
	assert.Equal(t, "9", form.Get(buffer.FieldImportance), "form keeps values on refusal")
	assert.Equal(t, 1, f.sess.Buffer().Len())
	assert.Equal(t, session.LevelError, f.notices.last().Level)
}

func TestAnalyzeFromBuffer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, backend.Options{Scores: []float64{20, 85, 55, 40}, SortByScore: true})
	for _, title := range []string{"a", "b", "c", "d"} {
		f.addTask(t, title)
	}

	out, err := f.sess.Analyze(context.Background(), session.Request{})
	require.NoError(t, err)

	assert.Equal(t, session.SourceBuffer, out.Source)
	assert.Equal(t, "smart", out.Strategy)

	reqs := f.srv.Requests()
	require.Len(t, reqs, 1)
	assert.Len(t, reqs[0].Tasks, 4)
	assert.Equal(t, "smart", reqs[0].Strategy)

	require.Len(t, out.Suggestions, 3)
	assert.Equal(t, "b", out.Suggestions[0].Task.Title)
	assert.Equal(t, "c", out.Suggestions[1].Task.Title)
	assert.Equal(t, "d", out.Suggestions[2].Task.Title)
	assert.Equal(t, "smart", out.Suggestions[0].Explanation)

	rendered := f.out.String()
	assert.Contains(t, rendered, "== Results (4) ==")
	assert.Contains(t, rendered, "b (1h · imp 5)  [high 85]")
	assert.Contains(t, rendered, "== Top suggestions (3) ==")
	assert.Less(t, bytes.Index(f.out.Bytes(), []byte("b (1h")), bytes.Index(f.out.Bytes(), []byte("a (1h")),
		"cards follow service order")

	assert.Equal(t, 4, f.sess.Buffer().Len(), "analysis never mutates the buffer")
	assert.Equal(t, analysis.StateResolved, f.sess.State())
}

func TestAnalyzeRequestStrategy(t *testing.T) {
	t.Parallel()

	f := newFixture(t, backend.Options{}, session.WithStrategy("impact"))
	f.addTask(t, "a")

	_, err := f.sess.Analyze(context.Background(), session.Request{})
	require.NoError(t, err)
	_, err = f.sess.Analyze(context.Background(), session.Request{Strategy: "deadline"})
	require.NoError(t, err)
	require.NoError(t, f.sess.SetStrategy("fastest"))
	_, err = f.sess.Analyze(context.Background(), session.Request{})
	require.NoError(t, err)

	reqs := f.srv.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "impact", reqs[0].Strategy)
	assert.Equal(t, "deadline", reqs[1].Strategy)
	assert.Equal(t, "fastest", reqs[2].Strategy)

	assert.ErrorIs(t, f.sess.SetStrategy(""), domain.ErrEmptyStrategy)
	assert.Equal(t, "fastest", f.sess.Strategy())
}

func TestBulkReplacesBuffer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, backend.Options{})
	f.addTask(t, "buffered")

	out, err := f.sess.Analyze(context.Background(), session.Request{
		Bulk: `[{"title":"x"},{"title":"y","importance":"high"}]`,
	})
	require.NoError(t, err)
	assert.Equal(t, session.SourceBulk, out.Source)

	reqs := f.srv.Requests()
	require.Len(t, reqs, 1)
	require.Len(t, reqs[0].Tasks, 2)
	assert.JSONEq(t, `{"title":"x"}`, string(reqs[0].Tasks[0]), "bulk elements are sent verbatim")
	assert.NotContains(t, string(reqs[0].Tasks[1]), "buffered")

	assert.Equal(t, 1, f.sess.Buffer().Len())
	assert.Equal(t, "buffered", f.sess.Buffer().Snapshot()[0].Title)
}

func TestBulkYAML(t *testing.T) {
	t.Parallel()

	f := newFixture(t, backend.Options{})

	out, err := f.sess.Analyze(context.Background(), session.Request{
		Bulk:   "- title: x\n  estimated_hours: 2\n- title: y\n",
		Format: bulk.FormatYAML,
	})
	require.NoError(t, err)
	require.Len(t, out.Response.Results, 2)
	assert.Equal(t, 2.0, out.Response.Results[0].Task.EstimatedHours)
}

func TestAnalyzeRefusals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		buffered bool
		bulk     string
		wantErr  error
		wantText string
	}{
		{
			name:     "nothing to analyze",
			wantErr:  domain.ErrEmptyTaskSet,
			wantText: session.TextEmptyTaskSet,
		},
		{
			name:     "empty bulk array and empty buffer",
			bulk:     "[]",
			wantErr:  domain.ErrEmptyTaskSet,
			wantText: session.TextEmptyTaskSet,
		},
		{
			name:     "empty bulk array replaces a filled buffer",
			buffered: true,
			bulk:     " [ ] ",
			wantErr:  domain.ErrEmptyTaskSet,
			wantText: session.TextEmptyTaskSet,
		},
		{
			name:     "malformed bulk",
			buffered: true,
			bulk:     "not json",
			wantErr:  domain.ErrInvalidBulkInput,
			wantText: session.TextInvalidBulkInput,
		},
		{
			name:     "bulk object instead of array",
			bulk:     `{"title":"x"}`,
			wantErr:  domain.ErrInvalidBulkInput,
			wantText: session.TextInvalidBulkInput,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, backend.Options{})
			if tt.buffered {
				f.addTask(t, "kept")
			}
			before := f.sess.Buffer().Snapshot()

			out, err := f.sess.Analyze(context.Background(), session.Request{Bulk: tt.bulk})
			assert.Nil(t, out)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.wantText, f.notices.last().Text)

			assert.Empty(t, f.srv.Requests(), "no request is sent")
			assert.Empty(t, f.out.String(), "display is untouched")
			assert.Equal(t, before, f.sess.Buffer().Snapshot())
			assert.Equal(t, analysis.StateIdle, f.sess.State())
		})
	}
}

func TestAnalyzeServerError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, backend.Options{
		Status:    http.StatusBadRequest,
		ErrorBody: map[string]any{"error": "Validation failed"},
	})
	f.addTask(t, "a")

	_, err := f.sess.Analyze(context.Background(), session.Request{})

	var serverErr *domain.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, `Server error: {"error":"Validation failed"}`, f.notices.last().Text)
	assert.Empty(t, f.out.String())
	assert.Equal(t, 1, f.sess.Buffer().Len())
	assert.Equal(t, analysis.StateResolved, f.sess.State())

	// The guard is released after a failure.
	_, err = f.sess.Analyze(context.Background(), session.Request{})
	assert.NotErrorIs(t, err, domain.ErrAnalysisInFlight)
}

func TestAnalyzeNetworkError(t *testing.T) {
	t.Parallel()

	f := newFixture(t, backend.Options{})
	f.srv.Close()
	f.addTask(t, "a")

	_, err := f.sess.Analyze(context.Background(), session.Request{})

	var netErr *domain.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t,
		"Network error. Ensure backend is running and accessible at "+f.srv.BaseURL,
		f.notices.last().Text)
	assert.Equal(t, 1, f.sess.Buffer().Len())
}

func TestAnalyzeRejectsSecondTriggerWhileInFlight(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	arrived := make(chan struct{}, 1)
	f := newFixture(t, backend.Options{Gate: gate, Arrived: arrived})
	t.Cleanup(func() {
		select {
		case <-gate:
		default:
			close(gate)
		}
	})
	f.addTask(t, "a")

	firstErr := make(chan error, 1)
	go func() {
		_, err := f.sess.Analyze(context.Background(), session.Request{})
		firstErr <- err
	}()

	select {
	case <-arrived:
	case <-time.After(5 * time.Second):
		t.Fatal("first request never reached the service")
	}
	assert.Equal(t, analysis.StateInFlight, f.sess.State())

	_, err := f.sess.Analyze(context.Background(), session.Request{})
	assert.ErrorIs(t, err, domain.ErrAnalysisInFlight)
	assert.Equal(t, session.TextAnalysisInFlight, f.notices.last().Text)

	close(gate)
	select {
	case err := <-firstErr:
		require.NoError(t, err, "the pending request is not cancelled")
	case <-time.After(5 * time.Second):
		t.Fatal("first request never completed")
	}

	assert.Len(t, f.srv.Requests(), 1, "the rejected trigger is not queued")
	assert.Equal(t, analysis.StateResolved, f.sess.State())
}

func TestServerSuggestions(t *testing.T) {
	t.Parallel()

	f := newFixture(t,
		backend.Options{Why: []string{"overdue", "high-importance"}},
		session.WithServerSuggestions(true),
		session.WithSuggestionCount(2),
	)
	for _, title := range []string{"a", "b", "c", "d"} {
		f.addTask(t, title)
	}

	out, err := f.sess.Analyze(context.Background(), session.Request{})
	require.NoError(t, err)

	reqs := f.srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/api/tasks/analyze/", reqs[0].Path)
	assert.Equal(t, "/api/tasks/suggest/", reqs[1].Path)

	require.Len(t, out.Suggestions, 2)
	assert.Equal(t, "overdue, high-importance", out.Suggestions[0].Explanation)
	assert.Contains(t, f.out.String(), "  overdue, high-importance\n")
}

func TestCyclesAreRendered(t *testing.T) {
	t.Parallel()

	f := newFixture(t, backend.Options{Cycles: [][]string{{"a", "b", "a"}}})
	f.addTask(t, "a")

	out, err := f.sess.Analyze(context.Background(), session.Request{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b", "a"}}, out.Response.Cycles)
	assert.Contains(t, f.out.String(), "Dependency cycle: a -> b -> a\n")
}
