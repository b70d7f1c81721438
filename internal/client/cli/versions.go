package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophboard/internal/client/iocli"
	"github.com/iudanet/gophboard/internal/diff"
	"github.com/iudanet/gophboard/internal/document"
	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/permissions"
	"github.com/iudanet/gophboard/internal/versions"
)

var errReadOnly = errors.New("your role does not allow changing version history")

func newVersionsCommand(r *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "versions",
		Aliases: []string{"v"},
		Short:   "Manage document version history",
	}
	cmd.AddCommand(
		newVersionsListCommand(r),
		newVersionsSaveCommand(r),
		newVersionsShowCommand(r),
		newVersionsDiffCommand(r),
		newVersionsRestoreCommand(r),
		newVersionsDeleteCommand(r),
		newVersionsClearCommand(r),
	)
	return cmd
}

func newVersionsListCommand(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id> <document-id>",
		Short: "List versions, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			doc, _, err := app.document(args[0], args[1])
			if err != nil {
				return err
			}
			list, err := app.versions.GetVersions(cmd.Context(), doc.ID)
			if err != nil {
				return err
			}
			printVersions(app.io, list, time.Now())
			return nil
		},
	}
}

func newVersionsSaveCommand(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "save <project-id> <document-id> [title]",
		Short: "Save the current document state as a version",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			doc, role, err := app.document(args[0], args[1])
			if err != nil {
				return err
			}
			title := ""
			if len(args) == 3 {
				title = args[2]
			}

			view, err := app.openView(cmd.Context(), doc, role, viewOptions{disableAutoSave: true})
			if err != nil {
				return err
			}
			defer func() { _ = view.Close() }()

			v, err := view.SaveVersion(cmd.Context(), title)
			if err != nil {
				return err
			}
			app.io.Printf("Saved version %s\n", v.ID)
			return nil
		},
	}
}

func newVersionsShowCommand(r *Root) *cobra.Command {
	var asHTML bool
	var outPath string

	cmd := &cobra.Command{
		Use:   "show <version-id>",
		Short: "Print version content as text or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			v, err := app.accessibleVersion(cmd, args[0])
			if err != nil {
				return err
			}

			var content string
			if asHTML {
				content, err = stateHTML(app.logger, v.Content)
			} else {
				content, err = document.PlainTextFromState(v.Content)
			}
			if err != nil {
				return fmt.Errorf("failed to decode version %s: %w", v.ID, err)
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
					return fmt.Errorf("failed to export version: %w", err)
				}
				app.io.Printf("Version %s exported to %s\n", v.ID, outPath)
				return nil
			}
			app.io.Println(content)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "render formatted HTML")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newVersionsDiffCommand(r *Root) *cobra.Command {
	var algo string

	cmd := &cobra.Command{
		Use:   "diff <version-id> <version-id>",
		Short: "Compare two versions of a document word by word",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			first, err := app.accessibleVersion(cmd, args[0])
			if err != nil {
				return err
			}
			second, err := app.accessibleVersion(cmd, args[1])
			if err != nil {
				return err
			}
			if first.DocumentID != second.DocumentID {
				return errors.New("versions belong to different documents")
			}

			differ := app.differ
			if cmd.Flags().Changed("algo") {
				a, err := diff.ParseAlgorithm(algo)
				if err != nil {
					return err
				}
				differ = diff.NewDiffer(app.logger, diff.WithAlgorithm(a))
			}

			cmp := differ.Compare(first, second)
			now := time.Now()
			app.io.Printf("--- %s (%s)\n", versionLabel(cmp.Older), versions.RelativeTime(cmp.Older.Timestamp, now))
			app.io.Printf("+++ %s (%s)\n", versionLabel(cmp.Newer), versions.RelativeTime(cmp.Newer.Timestamp, now))
			app.io.Println(formatSegments(cmp.Segments))
			return nil
		},
	}
	cmd.Flags().StringVar(&algo, "algo", "", "diff algorithm: heuristic or myers")
	return cmd
}

func newVersionsRestoreCommand(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <project-id> <document-id> <version-id>",
		Short: "Replace the document content with a version for everyone in the room",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			doc, role, err := app.document(args[0], args[1])
			if err != nil {
				return err
			}

			view, err := app.openView(cmd.Context(), doc, role, viewOptions{disableAutoSave: true})
			if err != nil {
				return err
			}
			defer func() { _ = view.Close() }()

			if err := view.Restore(cmd.Context(), args[2]); err != nil {
				return err
			}
			if err := waitFlushed(cmd.Context(), view.Session(), flushTimeout); err != nil {
				app.logger.Warn("Restore kept locally only", "error", err)
			}
			app.io.Printf("Version %s restored\n", args[2])
			return nil
		},
	}
}

func newVersionsDeleteCommand(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <version-id>",
		Short: "Delete a version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			v, err := app.accessibleVersion(cmd, args[0])
			if err != nil {
				return err
			}
			if !permissions.CanEdit(app.directory.Role(v.ProjectID, app.user.ID)) {
				return errReadOnly
			}
			if err := app.versions.DeleteVersion(cmd.Context(), v.ID); err != nil {
				return err
			}
			app.io.Printf("Version %s deleted\n", v.ID)
			return nil
		},
	}
}

func newVersionsClearCommand(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <project-id> <document-id>",
		Short: "Delete the whole version history of a document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			doc, role, err := app.document(args[0], args[1])
			if err != nil {
				return err
			}
			if !permissions.CanEdit(role) {
				return errReadOnly
			}
			if err := app.versions.ClearVersions(cmd.Context(), doc.ID); err != nil {
				return err
			}
			app.io.Printf("Version history of %q cleared\n", doc.Title)
			return nil
		},
	}
}

// accessibleVersion загружает версию и проверяет доступ к ее проекту
func (a *App) accessibleVersion(cmd *cobra.Command, id string) (*models.Version, error) {
	v, err := a.versions.GetVersion(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if a.directory.Role(v.ProjectID, a.user.ID) == models.RoleNone {
		return nil, fmt.Errorf("%w %s", ErrNoAccess, v.ProjectID)
	}
	return v, nil
}

func versionLabel(v *models.Version) string {
	if v.Title != "" {
		return v.Title
	}
	return v.ID
}

func printVersions(out iocli.IO, list []*models.Version, now time.Time) {
	if len(list) == 0 {
		out.Println("No versions saved")
		return
	}
	for _, v := range list {
		kind := "manual"
		if v.IsAutoSaved {
			kind = "auto"
		}
		out.Printf("%s  %-10s %-6s %-8s %s\n", v.ID, versions.RelativeTime(v.Timestamp, now), kind, v.CreatedBy, v.Title)
	}
}

// formatSegments размечает результат в стиле git --word-diff
func formatSegments(segments []diff.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		switch s.Type {
		case diff.Added:
			b.WriteString("{+" + s.Text + "+}")
		case diff.Removed:
			b.WriteString("[-" + s.Text + "-]")
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

func stateHTML(logger *slog.Logger, state []byte) (string, error) {
	engine := document.NewEngine(logger)
	defer engine.Destroy()

	if err := engine.ApplyRemoteUpdate(state); err != nil {
		return "", err
	}
	tree, err := engine.Tree()
	if err != nil {
		return "", err
	}
	return document.RenderHTML(tree)
}
