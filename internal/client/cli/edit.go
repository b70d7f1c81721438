package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophboard/internal/activity"
	"github.com/iudanet/gophboard/internal/client/docview"
	"github.com/iudanet/gophboard/internal/client/iocli"
	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/versions"
)

// flushTimeout сколько ждать доставки правок перед выходом
const flushTimeout = 5 * time.Second

const editorHelp = `Commands:
  a <text>               append text
  i <pos> <text>         insert text before position
  d <pos> <n>            delete n characters
  f <mark> <pos> <n>     format range (bold, italic, strike, code)
  uf <mark> <pos> <n>    remove formatting
  show                   print document text
  html                   print document as HTML
  status                 connection status and peers
  save [title]           save a version
  versions               list versions
  restore <version-id>   restore a version
  activity               project activity feed
  help                   this help
  quit                   leave the document`

func newEditCommand(r *Root) *cobra.Command {
	var (
		appendText string
		saveTitle  string
	)

	cmd := &cobra.Command{
		Use:   "edit <project-id> <document-id>",
		Short: "Open a document and edit it together with other users",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			doc, role, err := app.document(args[0], args[1])
			if err != nil {
				return err
			}

			batch := cmd.Flags().Changed("append") || cmd.Flags().Changed("save")
			view, err := app.openView(ctx, doc, role, viewOptions{disableAutoSave: batch})
			if err != nil {
				return err
			}
			defer func() { _ = view.Close() }()

			if batch {
				return runBatch(ctx, app, view, appendText, saveTitle)
			}

			unsubscribe, err := app.bridge.Attach(ctx, app.bus, doc.ProjectID)
			if err != nil {
				app.logger.Warn("Activity feed unavailable", "error", err)
			} else {
				defer unsubscribe()
			}

			ed := &editor{app: app, view: view, io: app.io}
			return ed.run(ctx)
		},
	}

	cmd.Flags().StringVar(&appendText, "append", "", "append text and exit")
	cmd.Flags().StringVar(&saveTitle, "save", "", "save a version with this title and exit")
	return cmd
}

func runBatch(ctx context.Context, app *App, view *docview.View, appendText, saveTitle string) error {
	if appendText != "" {
		if err := appendTo(view, appendText); err != nil {
			return err
		}
		if err := waitFlushed(ctx, view.Session(), flushTimeout); err != nil {
			app.logger.Warn("Edit kept locally only", "error", err)
		}
	}
	if saveTitle != "" {
		v, err := view.SaveVersion(ctx, saveTitle)
		if err != nil {
			return err
		}
		app.io.Printf("Saved version %s\n", v.ID)
	}

	text, err := view.Text()
	if err != nil {
		return err
	}
	app.io.Println(text)
	return nil
}

func appendTo(view *docview.View, text string) error {
	current, err := view.Text()
	if err != nil {
		return err
	}
	return view.Edit(document.Insert(utf8.RuneCountInString(current), text))
}

// editor интерактивный цикл редактирования одного документа
type editor struct {
	app  *App
	view *docview.View
	io   iocli.IO
}

func (e *editor) run(ctx context.Context) error {
	doc := e.view.Document()
	e.io.Printf("Editing %q (%s). Type 'help' for commands.\n", doc.Title, e.view.Status())
	if !e.view.Editable() {
		e.io.Println("Read-only: your role does not allow editing.")
	}
	// текущее состояние уже показано в заголовке
	e.app.conn.take()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if status, ok := e.app.conn.take(); ok {
			e.io.Printf("[%s]\n", status)
		}
		line, err := e.io.ReadInput("> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		quit, err := e.exec(ctx, line)
		if err != nil {
			e.io.Printf("Error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (e *editor) exec(ctx context.Context, line string) (bool, error) {
	name, rest, _ := strings.Cut(strings.TrimLeft(line, " "), " ")
	switch name {
	case "":
		return false, nil
	case "quit", "q", "exit":
		return true, nil
	case "help":
		e.io.Println(editorHelp)
	case "a":
		return false, appendTo(e.view, rest)
	case "i":
		posArg, text, ok := strings.Cut(rest, " ")
		if !ok {
			return false, errors.New("usage: i <pos> <text>")
		}
		pos, err := strconv.Atoi(posArg)
		if err != nil {
			return false, fmt.Errorf("invalid position %q", posArg)
		}
		return false, e.view.Edit(document.Insert(pos, text))
	case "d":
		nums, err := ints(rest, 2)
		if err != nil {
			return false, fmt.Errorf("usage: d <pos> <n>: %w", err)
		}
		return false, e.view.Edit(document.Delete(nums[0], nums[1]))
	case "f", "uf":
		return false, e.format(name == "f", rest)
	case "show":
		text, err := e.view.Text()
		if err != nil {
			return false, err
		}
		e.io.Println(text)
	case "html":
		out, err := e.view.HTML()
		if err != nil {
			return false, err
		}
		e.io.Println(out)
	case "status":
		e.status()
	case "save":
		v, err := e.view.SaveVersion(ctx, strings.TrimSpace(rest))
		if err != nil {
			return false, err
		}
		e.io.Printf("Saved version %s\n", v.ID)
	case "versions":
		list, err := e.view.Versions(ctx)
		if err != nil {
			return false, err
		}
		printVersions(e.io, list, time.Now())
	case "restore":
		id := strings.TrimSpace(rest)
		if id == "" {
			return false, errors.New("usage: restore <version-id>")
		}
		if err := e.view.Restore(ctx, id); err != nil {
			return false, err
		}
		e.io.Println("Version restored")
	case "activity":
		printActivity(e.io, e.app.activity.ByProject(e.view.Document().ProjectID), time.Now())
	default:
		return false, fmt.Errorf("unknown command %q, type 'help'", name)
	}
	return false, nil
}

func (e *editor) format(apply bool, args string) error {
	markArg, rest, _ := strings.Cut(strings.TrimSpace(args), " ")
	mark, err := parseMark(markArg)
	if err != nil {
		return err
	}
	nums, err := ints(rest, 2)
	if err != nil {
		return fmt.Errorf("usage: f|uf <mark> <pos> <n>: %w", err)
	}
	if apply {
		return e.view.Edit(document.Format(nums[0], nums[1], mark))
	}
	return e.view.Edit(document.Unformat(nums[0], nums[1], mark))
}

func (e *editor) status() {
	e.io.Println(e.view.Status())
	for _, p := range e.view.Session().Peers() {
		name := p.UserID
		if u, ok := e.app.directory.User(p.UserID); ok {
			name = u.Name
		}
		active := "idle"
		if !p.LastActive.IsZero() {
			active = "edited " + versions.RelativeTime(p.LastActive.UnixMilli(), time.Now())
		}
		e.io.Printf("  %s (%s) %s\n", name, p.NodeID, active)
	}
}

func parseMark(s string) (models.MarkType, error) {
	switch m := models.MarkType(s); m {
	case models.MarkBold, models.MarkItalic, models.MarkStrike, models.MarkCode:
		return m, nil
	default:
		return "", fmt.Errorf("unknown mark %q", s)
	}
}

func ints(s string, n int) ([]int, error) {
	fields := strings.Fields(s)
	if len(fields) != n {
		return nil, fmt.Errorf("expected %d numbers, got %d", n, len(fields))
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", f)
		}
		out[i] = v
	}
	return out, nil
}

func printActivity(out iocli.IO, events []models.ActivityEvent, now time.Time) {
	if len(events) == 0 {
		out.Println("No activity yet")
		return
	}
	for _, ev := range events {
		out.Printf("%-10s %s\n", versions.RelativeTime(ev.Timestamp, now), activity.Describe(ev))
	}
}
