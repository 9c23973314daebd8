package session

import (
	"errors"
	"fmt"

	"github.com/phrazzld/taskrank/internal/domain"
)

// Level classifies a notice.
type Level string

// Notice levels.
const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is a short message shown to the user outside the result display.
type Notice struct {
	Level Level
	Text  string
}

// Notifier receives user-visible notices.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

// Notice texts.
const (
	TextTaskAdded        = "Task added to local list. Run analyze to evaluate."
	TextInvalidBulkInput = "Invalid JSON in bulk input. Please fix."
	TextEmptyTaskSet     = "No tasks to analyze. Add tasks or paste JSON."
	TextAnalysisInFlight = "Analysis already in progress. Wait for it to finish."
	TextEmptyTitle       = "Task title cannot be empty."
)

// NoticeFor maps an error to the notice the user should see. baseURL is
// quoted in network failures so the user can check where the client points.
func NoticeFor(err error, baseURL string) Notice {
	var (
		serverErr  *domain.ServerError
		networkErr *domain.NetworkError
	)

	switch {
	case err == nil:
		return Notice{Level: LevelInfo}
	case errors.Is(err, domain.ErrInvalidBulkInput):
		return Notice{Level: LevelError, Text: TextInvalidBulkInput}
	case errors.Is(err, domain.ErrEmptyTaskSet):
		return Notice{Level: LevelError, Text: TextEmptyTaskSet}
	case errors.Is(err, domain.ErrAnalysisInFlight):
		return Notice{Level: LevelError, Text: TextAnalysisInFlight}
	case errors.Is(err, domain.ErrEmptyTitle):
		return Notice{Level: LevelError, Text: TextEmptyTitle}
	case errors.As(err, &serverErr):
		return Notice{Level: LevelError, Text: "Server error: " + serverErr.PayloadText()}
	case errors.As(err, &networkErr):
		if networkErr.BaseURL != "" {
			baseURL = networkErr.BaseURL
		}
		return Notice{
			Level: LevelError,
			Text:  "Network error. Ensure backend is running and accessible at " + baseURL,
		}
	default:
		return Notice{Level: LevelError, Text: fmt.Sprintf("Error: %v", err)}
	}
}
