package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/phrazzld/taskrank/internal/buffer"
	"github.com/phrazzld/taskrank/internal/bulk"
	"github.com/phrazzld/taskrank/internal/session"
	"github.com/spf13/cobra"
)

const shellHelp = `Commands:
  set <field> <value>      set a form field (title, due_date, estimated_hours, importance, dependencies)
  form                     show the form
  submit                   add the form's task to the local list
  add field=value ...      fill the form and submit in one step
  list                     show the local list
  clear                    empty the local list
  bulk <json>              use a JSON array instead of the local list
  bulk-file <path>         use a JSON or YAML file instead of the local list
  unbulk                   go back to the local list
  strategy [name]          show or change the scoring strategy
  analyze                  analyze the current task source
  help                     show this help
  quit                     leave the shell
`

const shellPrompt = "taskrank> "

func shellCmd(global *globalOptions, s streams) *cobra.Command {
	var (
		verbose           bool
		serverSuggestions bool
	)

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Build a task list interactively and analyze it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApplication(global, s)
			if err != nil {
				return err
			}
			defer app.close()

			sess, err := app.newSession(s.out, verbose, serverSuggestions)
			if err != nil {
				return err
			}
			return newShell(sess, s.out).run(cmd.Context(), s.in)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show score breakdowns")
	cmd.Flags().BoolVar(&serverSuggestions, "server-suggestions", false, "Ask the service for suggestions")
	return cmd
}

// shell is a line-oriented front end over a session. Pending bulk text
// stays in place across analyses until unbulk is run.
type shell struct {
	sess       *session.Session
	out        io.Writer
	bulkText   string
	bulkFormat bulk.Format
}

var errQuit = errors.New("quit")

func newShell(sess *session.Session, out io.Writer) *shell {
	return &shell{sess: sess, out: out}
}

func (sh *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	sh.printf("%s", shellPrompt)
	for scanner.Scan() {
		err := sh.exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			sh.printf("error: %v\n", err)
		}
		sh.printf("%s", shellPrompt)
	}
	sh.printf("\n")
	return scanner.Err()
}

// exec runs one command line. Session failures are reported by the
// session's notifier and are not returned.
func (sh *shell) exec(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(name) {
	case "set":
		fieldName, value, _ := strings.Cut(rest, " ")
		field, err := buffer.ParseField(fieldName)
		if err != nil {
			return err
		}
		sh.sess.Form().Set(field, unquote(strings.TrimSpace(value)))

	case "form":
		for _, field := range buffer.Fields {
			sh.printf("  %-16s %s\n", field+":", sh.sess.Form().Get(field))
		}

	case "submit":
		_, _ = sh.sess.SubmitForm()

	case "add":
		args, err := splitArgs(rest)
		if err != nil {
			return err
		}
		values := make(map[buffer.Field]string, len(args))
		for _, arg := range args {
			key, value, ok := strings.Cut(arg, "=")
			if !ok {
				return fmt.Errorf("expected field=value, got %q", arg)
			}
			field, err := buffer.ParseField(key)
			if err != nil {
				return err
			}
			values[field] = value
		}
		form := sh.sess.Form()
		form.Reset()
		for field, value := range values {
			form.Set(field, value)
		}
		_, _ = sh.sess.SubmitForm()

	case "list":
		tasks := sh.sess.Buffer().Snapshot()
		if len(tasks) == 0 {
			sh.printf("(local list is empty)\n")
		}
		for i, t := range tasks {
			sh.printf("%d. %s (%sh · imp %d)", i+1, t.Title,
				strconv.FormatFloat(t.EstimatedHours, 'f', -1, 64), t.Importance)
			if t.HasDueDate() {
				sh.printf(" due %s", *t.DueDate)
			}
			if len(t.Dependencies) > 0 {
				sh.printf(" deps:%s", strings.Join(t.Dependencies, ","))
			}
			sh.printf("\n")
		}

	case "clear":
		sh.sess.Buffer().Clear()
		sh.printf("Local list cleared.\n")

	case "bulk":
		if rest == "" {
			return errors.New("usage: bulk <json>")
		}
		sh.bulkText, sh.bulkFormat = rest, bulk.FormatJSON
		sh.printf("Bulk input set; it replaces the local list until unbulk.\n")

	case "bulk-file":
		path := unquote(rest)
		if path == "" {
			return errors.New("usage: bulk-file <path>")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read bulk file: %w", err)
		}
		sh.bulkText, sh.bulkFormat = string(data), bulk.FormatForPath(path)
		sh.printf("Bulk input loaded from %s; it replaces the local list until unbulk.\n", path)

	case "unbulk":
		sh.bulkText, sh.bulkFormat = "", bulk.FormatJSON
		sh.printf("Bulk input cleared; using the local list.\n")

	case "strategy":
		if rest == "" {
			sh.printf("strategy: %s\n", sh.sess.Strategy())
			return nil
		}
		return sh.sess.SetStrategy(rest)

	case "analyze":
		_, _ = sh.sess.Analyze(ctx, session.Request{Bulk: sh.bulkText, Format: sh.bulkFormat})

	case "help", "?":
		sh.printf("%s", shellHelp)

	case "quit", "exit":
		return errQuit

	default:
		return fmt.Errorf("unknown command %q, try help", name)
	}
	return nil
}

func (sh *shell) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(sh.out, format, args...)
}

// splitArgs splits a command line on unquoted whitespace. Single and
// double quotes group words; a backslash escapes the next character
// outside single quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}
	if escaped {
		return nil, errors.New("trailing backslash")
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}

// unquote strips one pair of matching surrounding quotes.
func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
