// Package bulk decodes a user-supplied batch of task records. A batch is
// passed through to the analysis service without per-field validation; only
// its overall shape is checked here.
package bulk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phrazzld/taskrank/internal/domain"
	"gopkg.in/yaml.v3"
)

// Format selects the decoder for bulk text.
type Format int

// Supported bulk formats.
const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	if f == FormatYAML {
		return "yaml"
	}
	return "json"
}

// FormatForPath picks the format from a file extension; anything other than
// .yaml or .yml is treated as JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ErrorKind distinguishes the two ways bulk text can be rejected. Both are
// reported to the user as invalid bulk input.
type ErrorKind string

// Parse failure kinds.
const (
	KindInvalidSyntax ErrorKind = "invalid_syntax"
	KindNotAnArray    ErrorKind = "not_an_array"
)

// ParseError reports rejected bulk text. It matches domain.ErrInvalidBulkInput
// under errors.Is.
type ParseError struct {
	Kind   ErrorKind
	Format Format
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s %s: %v", domain.ErrInvalidBulkInput, e.Format, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s %s", domain.ErrInvalidBulkInput, e.Format, e.Kind)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is reports whether target is domain.ErrInvalidBulkInput.
func (e *ParseError) Is(target error) bool {
	return target == domain.ErrInvalidBulkInput
}

// Parse decodes raw as a JSON array of task records. Whitespace-only input is
// reported as absent (present=false, no error) so the caller can fall back to
// the local buffer. Each element is returned verbatim.
func Parse(raw string) (tasks []json.RawMessage, present bool, err error) {
	return ParseFormat(raw, FormatJSON)
}

// ParseFormat is Parse with an explicit input format. YAML sequences are
// re-encoded as JSON elements.
func ParseFormat(raw string, format Format) ([]json.RawMessage, bool, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false, nil
	}

	var (
		tasks []json.RawMessage
		err   error
	)
	switch format {
	case FormatYAML:
		tasks, err = decodeYAML(trimmed)
	default:
		tasks, err = decodeJSON(trimmed)
	}
	if err != nil {
		return nil, true, err
	}
	return tasks, true, nil
}

// ParseFile reads path and parses it in the format implied by its extension.
func ParseFile(path string) ([]json.RawMessage, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("read bulk file %s: %w", path, err)
	}
	return ParseFormat(string(data), FormatForPath(path))
}

func decodeJSON(text string) ([]json.RawMessage, error) {
	if !json.Valid([]byte(text)) {
		var probe any
		err := json.Unmarshal([]byte(text), &probe)
		return nil, &ParseError{Kind: KindInvalidSyntax, Format: FormatJSON, Err: err}
	}
	// null decodes into a nil slice without error, so check the shape first.
	if text[0] != '[' {
		return nil, &ParseError{Kind: KindNotAnArray, Format: FormatJSON}
	}

	var tasks []json.RawMessage
	if err := json.Unmarshal([]byte(text), &tasks); err != nil {
		return nil, &ParseError{Kind: KindInvalidSyntax, Format: FormatJSON, Err: err}
	}
	if tasks == nil {
		tasks = []json.RawMessage{}
	}
	return tasks, nil
}

func decodeYAML(text string) ([]json.RawMessage, error) {
	var doc any
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, &ParseError{Kind: KindInvalidSyntax, Format: FormatYAML, Err: err}
	}

	items, ok := doc.([]any)
	if !ok {
		return nil, &ParseError{Kind: KindNotAnArray, Format: FormatYAML}
	}

	tasks := make([]json.RawMessage, 0, len(items))
	for i, item := range items {
		data, err := json.Marshal(jsonCompatible(item))
		if err != nil {
			return nil, &ParseError{
				Kind:   KindInvalidSyntax,
				Format: FormatYAML,
				Err:    fmt.Errorf("element %d: %w", i, err),
			}
		}
		tasks = append(tasks, data)
	}
	return tasks, nil
}

// jsonCompatible rewrites YAML-only value shapes (non-string map keys,
// timestamps) into forms encoding/json accepts.
func jsonCompatible(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = jsonCompatible(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = jsonCompatible(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = jsonCompatible(val)
		}
		return out
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	default:
		return v
	}
}
