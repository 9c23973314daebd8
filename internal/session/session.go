package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/taskrank/internal/analysis"
	"github.com/phrazzld/taskrank/internal/buffer"
	"github.com/phrazzld/taskrank/internal/bulk"
	"github.com/phrazzld/taskrank/internal/domain"
	"github.com/phrazzld/taskrank/internal/present"
	"github.com/phrazzld/taskrank/internal/suggest"
)

// Source names where the tasks of an analysis came from.
type Source string

// Task sources.
const (
	SourceBuffer Source = "buffer"
	SourceBulk   Source = "bulk"
)

// Request describes one analysis trigger.
type Request struct {
	// Bulk is the raw bulk text. When it is non-blank it is the only task
	// source for this request and the buffer is ignored.
	Bulk string
	// Format selects the bulk decoder.
	Format bulk.Format
	// Strategy overrides the session's strategy for this request.
	Strategy string
}

// Outcome is the result of a successful analysis.
type Outcome struct {
	Source      Source
	Strategy    string
	Response    *domain.AnalysisResponse
	Suggestions []domain.Suggestion
}

// Session is a single-user analysis workflow. The zero value is not usable;
// create one with New.
type Session struct {
	buf       *buffer.Buffer
	form      *buffer.Form
	client    analysis.Analyzer
	presenter *present.Presenter
	notifier  Notifier
	guard     *analysis.Guard
	logger    *slog.Logger

	strategy          string
	suggestionCount   int
	serverSuggestions bool
}

// Option customizes a Session.
type Option func(*Session)

// WithStrategy sets the strategy used when a request does not name one.
func WithStrategy(s string) Option {
	return func(sess *Session) {
		sess.strategy = strings.TrimSpace(s)
	}
}

// WithSuggestionCount sets how many top results become suggestions.
func WithSuggestionCount(n int) Option {
	return func(sess *Session) {
		sess.suggestionCount = n
	}
}

// WithServerSuggestions makes the session ask the service for suggestions
// instead of deriving them from the ranked results.
func WithServerSuggestions(on bool) Option {
	return func(sess *Session) {
		sess.serverSuggestions = on
	}
}

// WithBuffer makes the session operate on an existing buffer.
func WithBuffer(b *buffer.Buffer) Option {
	return func(sess *Session) {
		sess.buf = b
	}
}

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(sess *Session) {
		sess.logger = l
	}
}

// New creates a session. client, presenter and notifier are required.
func New(
	client analysis.Analyzer,
	presenter *present.Presenter,
	notifier Notifier,
	opts ...Option,
) (*Session, error) {
	if client == nil {
		return nil, errors.New("analysis client cannot be nil")
	}
	if presenter == nil {
		return nil, errors.New("presenter cannot be nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}

	s := &Session{
		client:          client,
		presenter:       presenter,
		notifier:        notifier,
		guard:           analysis.NewGuard(),
		logger:          slog.Default(),
		strategy:        "smart",
		suggestionCount: suggest.DefaultCount,
		form:            buffer.NewForm(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.buf == nil {
		s.buf = buffer.New()
	}
	if s.strategy == "" {
		return nil, domain.ErrEmptyStrategy
	}
	s.logger = s.logger.With("component", "session")
	return s, nil
}

// Buffer returns the session's local task buffer.
func (s *Session) Buffer() *buffer.Buffer {
	return s.buf
}

// Form returns the session's entry form.
func (s *Session) Form() *buffer.Form {
	return s.form
}

// Strategy returns the strategy used when a request names none.
func (s *Session) Strategy() string {
	return s.strategy
}

// SetStrategy changes the session strategy.
func (s *Session) SetStrategy(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ErrEmptyStrategy
	}
	s.strategy = name
	return nil
}

// State reports whether an analysis is pending.
func (s *Session) State() analysis.State {
	return s.guard.State()
}

// SubmitForm appends the form's task to the buffer and resets the form.
// The form keeps its values when the title is blank.
func (s *Session) SubmitForm() (domain.TaskRecord, error) {
	task, err := s.form.Submit(s.buf)
	if err != nil {
		s.notifier.Notify(NoticeFor(err, s.client.BaseURL()))
		return domain.TaskRecord{}, err
	}
	s.logger.Debug("task added to buffer", "title", task.Title, "buffer_size", s.buf.Len())
	s.notifier.Notify(Notice{Level: LevelInfo, Text: TextTaskAdded})
	return task, nil
}

// Analyze runs one analysis. Every failure is reported through the notifier
// and returned; neither the buffer nor the previous display is altered on
// failure.
func (s *Session) Analyze(ctx context.Context, req Request) (*Outcome, error) {
	out, err := s.analyze(ctx, req)
	if err != nil {
		s.notifier.Notify(NoticeFor(err, s.client.BaseURL()))
		return nil, err
	}
	return out, nil
}

func (s *Session) analyze(ctx context.Context, req Request) (*Outcome, error) {
	// Pick the task source first; refusals here never reach the guard, so
	// they cannot block a later trigger
	tasks, source, err := s.resolveTasks(req)
	if err != nil {
		return nil, err
	}

	// A per-request strategy wins over the session's current one
	strategy := strings.TrimSpace(req.Strategy)
	if strategy == "" {
		strategy = s.strategy
	}

	// Only one analysis may be pending; a second trigger is turned away
	// rather than queued or allowed to cancel the first
	if err := s.guard.Begin(); err != nil {
		s.logger.Warn("analysis trigger rejected", "reason", "request in flight")
		return nil, err
	}

	log := s.logger.With("source", source, "strategy", strategy, "task_count", len(tasks))
	log.Info("starting analysis")

	// Resolve whatever happened so the next trigger is accepted
	out, err := s.run(ctx, tasks, strategy)
	s.guard.Resolve(err)
	if err != nil {
		log.Error("analysis failed", "error", err)
		return nil, err
	}
	out.Source = source

	log.Info("analysis rendered",
		"results", len(out.Response.Results),
		"suggestions", len(out.Suggestions),
		"cycles", len(out.Response.Cycles))
	return out, nil
}

// run performs the requests and renders the outcome. The guard stays
// InFlight until rendering is done so two outcomes never interleave.
func (s *Session) run(ctx context.Context, tasks []json.RawMessage, strategy string) (*Outcome, error) {
	out, err := s.request(ctx, tasks, strategy)
	if err != nil {
		return nil, err
	}
	if err := s.presenter.RenderResults(out.Response.Results, out.Response.Cycles); err != nil {
		return nil, fmt.Errorf("render results: %w", err)
	}
	if err := s.presenter.RenderSuggestions(out.Suggestions); err != nil {
		return nil, fmt.Errorf("render suggestions: %w", err)
	}
	return out, nil
}

// resolveTasks picks the task source. Non-blank bulk text wins even when it
// decodes to an empty list.
func (s *Session) resolveTasks(req Request) ([]json.RawMessage, Source, error) {
	tasks, given, err := bulk.ParseFormat(req.Bulk, req.Format)
	if err != nil {
		s.logger.Warn("bulk input rejected", "error", err)
		return nil, SourceBulk, err
	}
	if given {
		if len(tasks) == 0 {
			return nil, SourceBulk, domain.ErrEmptyTaskSet
		}
		return tasks, SourceBulk, nil
	}

	// No bulk text: fall back to a snapshot of the buffer, which is only
	// read here and never modified
	snapshot := s.buf.Snapshot()
	if len(snapshot) == 0 {
		return nil, SourceBuffer, domain.ErrEmptyTaskSet
	}

	raw := make([]json.RawMessage, 0, len(snapshot))
	for _, t := range snapshot {
		b, err := json.Marshal(t)
		if err != nil {
			return nil, SourceBuffer, fmt.Errorf("encode buffered task %q: %w", t.Title, err)
		}
		raw = append(raw, b)
	}
	return raw, SourceBuffer, nil
}

// request calls the analysis service and derives the suggestion list.
func (s *Session) request(ctx context.Context, tasks []json.RawMessage, strategy string) (*Outcome, error) {
	resp, err := s.client.Analyze(ctx, tasks, strategy)
	if err != nil {
		return nil, err
	}

	// Suggestions come from the ranked results unless the service was asked
	// for its own; either way the ranking order is kept
	out := &Outcome{Strategy: strategy, Response: resp}
	if !s.serverSuggestions {
		out.Suggestions = suggest.Extract(resp.Results, s.suggestionCount)
		return out, nil
	}

	sr, err := s.client.Suggest(ctx, tasks, strategy)
	if err != nil {
		return nil, err
	}
	out.Suggestions = suggest.Extract(sr.Suggestions, s.suggestionCount)
	return out, nil
}
