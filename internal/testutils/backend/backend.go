package backend

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// APIPrefix is the path the fake mounts its routes under.
const APIPrefix = "/api/tasks"

// DefaultScore is used for tasks without a configured score.
const DefaultScore = 50.0

// Request is one recorded call to the fake.
type Request struct {
	Path      string
	Strategy  string
	RequestID string
	Tasks     []json.RawMessage
}

// Options configures the fake's responses.
type Options struct {
	// Scores assigns a score per submitted index.
	Scores []float64
	// SortByScore ranks results by descending score, as the real service
	// does. When false results keep submission order.
	SortByScore bool
	// Breakdown builds the breakdown for the task at index i. The default is
	// {"method": strategy}.
	Breakdown func(i int, strategy string) map[string]any
	// Why is attached to every suggestion from the suggest endpoint.
	Why []string
	// Cycles is echoed in every success body.
	Cycles [][]string
	// Status, when non-zero, makes every request fail with that status and
	// ErrorBody as the JSON payload.
	Status    int
	ErrorBody any
	// Arrived receives a value, without blocking, whenever a request reaches
	// a handler.
	Arrived chan<- struct{}
	// Gate, when set, holds every request until it is closed.
	Gate <-chan struct{}
}

// Server is a running fake analysis service.
type Server struct {
	*httptest.Server

	// BaseURL is the value to configure as the client's base URL.
	BaseURL string

	opts     Options
	mu       sync.Mutex
	requests []Request
}

// New starts a fake service and registers its shutdown with t.Cleanup.
func New(t testing.TB, opts Options) *Server {
	t.Helper()

	s := &Server{opts: opts}
	s.Server = httptest.NewServer(s.Router())
	s.BaseURL = s.URL + APIPrefix
	t.Cleanup(s.Close)
	return s
}

// Router returns the chi router serving the fake's routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Route(APIPrefix, func(r chi.Router) {
		r.Post("/analyze/", s.handleAnalyze)
		r.Post("/suggest/", s.handleSuggest)
	})
	return r
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

type scored struct {
	index int
	task  map[string]any
	score float64
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	strategy, items, ok := s.receive(w, r)
	if !ok {
		return
	}

	results := make([]map[string]any, 0, len(items))
	for _, it := range items {
		results = append(results, map[string]any{
			"task":      it.task,
			"score":     it.score,
			"breakdown": s.breakdown(it.index, strategy),
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"strategy": strategy,
		"cycles":   s.cycles(),
		"results":  results,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	strategy, items, ok := s.receive(w, r)
	if !ok {
		return
	}
	if len(items) > 3 {
		items = items[:3]
	}

	why := s.opts.Why
	if len(why) == 0 {
		why = []string{"Balanced priority (no single dominating factor)"}
	}

	suggestions := make([]map[string]any, 0, len(items))
	for _, it := range items {
		suggestions = append(suggestions, map[string]any{
			"task":  it.task,
			"score": it.score,
			"why":   why,
		})
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"strategy":    strategy,
		"cycles":      s.cycles(),
		"suggestions": suggestions,
	})
}

// receive records the request, applies the configured gate and failure, and
// decodes the task batch the way the real service's serializer does.
func (s *Server) receive(w http.ResponseWriter, r *http.Request) (string, []scored, bool) {
	strategy := r.URL.Query().Get("strategy")
	if strategy == "" {
		strategy = "smart"
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "unreadable body", nil)
		return "", nil, false
	}

	var raw []json.RawMessage
	decodeErr := json.Unmarshal(body, &raw)

	s.mu.Lock()
	s.requests = append(s.requests, Request{
		Path:      r.URL.Path,
		Strategy:  r.URL.Query().Get("strategy"),
		RequestID: chimiddleware.GetReqID(r.Context()),
		Tasks:     raw,
	})
	s.mu.Unlock()

	if s.opts.Arrived != nil {
		select {
		case s.opts.Arrived <- struct{}{}:
		default:
		}
	}

	if s.opts.Gate != nil {
		select {
		case <-s.opts.Gate:
		case <-r.Context().Done():
			return "", nil, false
		}
	}

	if s.opts.Status != 0 {
		respondWithJSON(w, s.opts.Status, s.opts.ErrorBody)
		return "", nil, false
	}

	if decodeErr != nil {
		respondWithError(w, http.StatusBadRequest, "Expecting a JSON array of tasks or {tasks: [...]}.", nil)
		return "", nil, false
	}

	items := make([]scored, 0, len(raw))
	details := make([]map[string]any, 0)
	for i, elem := range raw {
		var task map[string]any
		if err := json.Unmarshal(elem, &task); err != nil || task["title"] == nil || task["title"] == "" {
			details = append(details, map[string]any{"index": i, "title": []string{"This field is required."}})
			continue
		}
		applyDefaults(task)

		score := DefaultScore
		if i < len(s.opts.Scores) {
			score = s.opts.Scores[i]
		}
		items = append(items, scored{index: i, task: task, score: score})
	}
	if len(details) > 0 {
		respondWithError(w, http.StatusBadRequest, "Validation failed", details)
		return "", nil, false
	}

	if s.opts.SortByScore {
		sort.SliceStable(items, func(a, b int) bool { return items[a].score > items[b].score })
	}
	return strategy, items, true
}

func (s *Server) breakdown(i int, strategy string) map[string]any {
	if s.opts.Breakdown != nil {
		return s.opts.Breakdown(i, strategy)
	}
	return map[string]any{"method": strategy}
}

func (s *Server) cycles() [][]string {
	if s.opts.Cycles == nil {
		return [][]string{}
	}
	return s.opts.Cycles
}

func applyDefaults(task map[string]any) {
	if _, ok := task["estimated_hours"]; !ok {
		task["estimated_hours"] = 1.0
	}
	if _, ok := task["importance"]; !ok {
		task["importance"] = 5
	}
	if _, ok := task["dependencies"]; !ok {
		task["dependencies"] = []string{}
	}
}

func respondWithJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, status int, message string, details any) {
	body := map[string]any{"error": message}
	if details != nil {
		body["details"] = details
	}
	respondWithJSON(w, status, body)
}
