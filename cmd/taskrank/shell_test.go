package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phrazzld/taskrank/internal/session"
	"github.com/phrazzld/taskrank/internal/testutils/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line    string
		want    []string
		wantErr bool
	}{
		{line: "", want: nil},
		{line: "a b  c", want: []string{"a", "b", "c"}},
		{line: `title="Write report" importance=8`, want: []string{"title=Write report", "importance=8"}},
		{line: `title='it''s'`, want: []string{"title=its"}},
		{line: `title=a\ b`, want: []string{"title=a b"}},
		{line: `title=""`, want: []string{"title="}},
		{line: `title="open`, wantErr: true},
		{line: `title=a\`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := splitArgs(tt.line)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func script(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestShellBuildsAndAnalyzesLocalList(t *testing.T) {
	srv := backend.New(t, backend.Options{Scores: []float64{90, 20}})

	r := run(t, script(
		"set title Write report",
		"set hours 3",
		"set imp 7",
		"set deps design, review",
		"submit",
		`add title="Tidy desk" estimated_hours=abc`,
		"list",
		"strategy deadline",
		"strategy",
		"analyze",
		"quit",
	), "shell", "--base-url", srv.BaseURL, "--log-level", "error")
	require.Equal(t, 0, r.code, r.stderr)

	assert.Equal(t, 2, strings.Count(r.stdout, session.TextTaskAdded))
	assert.Contains(t, r.stdout, "1. Write report (3h · imp 7) deps:design,review\n")
	assert.Contains(t, r.stdout, "2. Tidy desk (1h · imp 5)\n")
	assert.Contains(t, r.stdout, "strategy: deadline\n")
	assert.Contains(t, r.stdout, "Write report (3h · imp 7)  [high 90]\n")
	assert.Contains(t, r.stdout, "== Top suggestions (2) ==")

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "deadline", reqs[0].Strategy)
	assert.Len(t, reqs[0].Tasks, 2)
}

func TestShellBulkReplacesLocalList(t *testing.T) {
	srv := backend.New(t, backend.Options{})
	path := filepath.Join(t.TempDir(), "batch.yml")
	require.NoError(t, os.WriteFile(path, []byte("- title: y1\n- title: y2\n- title: y3\n"), 0o600))

	r := run(t, script(
		"add title=local",
		"bulk not json",
		"analyze",
		"list",
		`bulk [{"title":"bulk-only"}]`,
		"analyze",
		"bulk-file "+path,
		"analyze",
		"unbulk",
		"analyze",
		"quit",
	), "shell", "--base-url", srv.BaseURL, "--log-level", "error")
	require.Equal(t, 0, r.code, r.stderr)

	assert.Contains(t, r.stdout, "error: "+session.TextInvalidBulkInput+"\n")
	assert.Contains(t, r.stdout, "1. local (1h · imp 5)\n", "failed bulk leaves the list intact")

	reqs := srv.Requests()
	require.Len(t, reqs, 3)
	assert.JSONEq(t, `{"title":"bulk-only"}`, string(reqs[0].Tasks[0]))
	assert.Len(t, reqs[0].Tasks, 1)
	assert.Len(t, reqs[1].Tasks, 3)
	require.Len(t, reqs[2].Tasks, 1)
	assert.Contains(t, string(reqs[2].Tasks[0]), `"title":"local"`)
}

func TestShellErrors(t *testing.T) {
	srv := backend.New(t, backend.Options{})

	r := run(t, script(
		"analyze",
		"submit",
		"set colour red",
		"add title",
		"frobnicate",
		"clear",
		"list",
	), "shell", "--base-url", srv.BaseURL, "--log-level", "error")
	require.Equal(t, 0, r.code, r.stderr)

	assert.Contains(t, r.stdout, "error: "+session.TextEmptyTaskSet+"\n")
	assert.Contains(t, r.stdout, "error: "+session.TextEmptyTitle+"\n")
	assert.Contains(t, r.stdout, `error: expected field=value, got "title"`)
	assert.Contains(t, r.stdout, `error: unknown command "frobnicate", try help`)
	assert.Contains(t, r.stdout, "(local list is empty)\n")
	assert.Empty(t, srv.Requests())
}
