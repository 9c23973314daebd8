package buffer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/phrazzld/taskrank/internal/domain"
)

// Field names a form input.
type Field string

// Form inputs, in display order.
const (
	FieldTitle          Field = "title"
	FieldDueDate        Field = "due_date"
	FieldEstimatedHours Field = "estimated_hours"
	FieldImportance     Field = "importance"
	FieldDependencies   Field = "dependencies"
)

// Fields lists every form input in display order.
var Fields = []Field{FieldTitle, FieldDueDate, FieldEstimatedHours, FieldImportance, FieldDependencies}

var fieldAliases = map[string]Field{
	"title":           FieldTitle,
	"due":             FieldDueDate,
	"due_date":        FieldDueDate,
	"hours":           FieldEstimatedHours,
	"estimated_hours": FieldEstimatedHours,
	"importance":      FieldImportance,
	"imp":             FieldImportance,
	"deps":            FieldDependencies,
	"dependencies":    FieldDependencies,
}

// ParseField resolves a field name or one of its short aliases.
func ParseField(name string) (Field, error) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		known := make([]string, 0, len(fieldAliases))
		for alias := range fieldAliases {
			known = append(known, alias)
		}
		sort.Strings(known)
		return "", fmt.Errorf("unknown field %q (known: %s)", name, strings.Join(known, ", "))
	}
	return f, nil
}

// Form holds raw text inputs for one task until it is submitted.
type Form struct {
	values map[Field]string
}

// NewForm returns a form with every input empty.
func NewForm() *Form {
	return &Form{values: make(map[Field]string)}
}

// Set stores the raw text of one input.
func (f *Form) Set(field Field, value string) {
	f.values[field] = value
}

// Get returns the raw text of one input.
func (f *Form) Get(field Field) string {
	return f.values[field]
}

// Reset empties every input.
func (f *Form) Reset() {
	f.values = make(map[Field]string)
}

// Record coerces the current inputs into a task record without touching the
// form.
func (f *Form) Record() domain.TaskRecord {
	var deps []string
	if raw := f.values[FieldDependencies]; raw != "" {
		deps = strings.Split(raw, ",")
	}
	return domain.NewTaskRecord(
		f.values[FieldTitle],
		f.values[FieldDueDate],
		f.values[FieldEstimatedHours],
		f.values[FieldImportance],
		deps,
	)
}

// Submit appends the coerced record to buf and resets every input. A blank
// title is refused and leaves both the form and the buffer untouched.
func (f *Form) Submit(buf *Buffer) (domain.TaskRecord, error) {
	task := f.Record()
	if task.Title == "" {
		return domain.TaskRecord{}, domain.ErrEmptyTitle
	}
	buf.Append(task)
	f.Reset()
	return task, nil
}
