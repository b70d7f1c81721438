package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iudanet/gophboard/internal/eventbus"
	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/permissions"
)

const publishTimeout = 2 * time.Second

func newProjectsCommand(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects and documents visible to the user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			projects := app.directory.VisibleProjects(app.user.ID)
			if len(projects) == 0 {
				app.io.Println("No projects")
				return nil
			}
			for _, p := range projects {
				app.io.Printf("%s  %s (%s)\n", p.ID, p.Name, app.directory.Role(p.ID, app.user.ID))
				for _, doc := range app.directory.Documents(p.ID) {
					app.io.Printf("    %s  %s\n", doc.ID, doc.Title)
				}
			}
			return nil
		},
	}
}

func newBoardCommand(r *Root) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Kanban boards of a project",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <project-id>",
		Short: "Show boards and their tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			if app.directory.Role(args[0], app.user.ID) == models.RoleNone {
				return fmt.Errorf("%w %s", ErrNoAccess, args[0])
			}
			for _, b := range app.directory.Boards(args[0]) {
				app.io.Printf("%s  %s\n", b.ID, b.Title)
				for _, t := range app.directory.Tasks(b.ID) {
					app.io.Printf("    %s  %s\n", t.ID, t.Title)
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "move <task-id> <board-id>",
		Short: "Move a task to another board and announce it to the project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			task, err := app.moveTask(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			app.io.Printf("Moved %q to %s\n", task.Title, args[1])
			return nil
		},
	})
	return cmd
}

func (a *App) moveTask(ctx context.Context, taskID, boardID string) (models.Task, error) {
	task, ok := a.directory.Task(taskID)
	if !ok {
		return models.Task{}, fmt.Errorf("task %s not found", taskID)
	}
	if !permissions.CanEdit(a.directory.Role(task.ProjectID, a.user.ID)) {
		return models.Task{}, errors.New("your role does not allow moving tasks")
	}
	from, to, err := a.directory.MoveTask(taskID, boardID)
	if err != nil {
		return models.Task{}, err
	}

	a.publish(ctx, eventbus.NewEvent(task.ProjectID, eventbus.CardMove, map[string]any{
		"taskId":      task.ID,
		"taskTitle":   task.Title,
		"fromBoardId": from.ID,
		"toBoardId":   to.ID,
	}, a.user.ID))
	return task, nil
}

func newShareCommand(r *Root) *cobra.Command {
	return &cobra.Command{
		Use:   "share <project-id> <user> <role>",
		Short: "Share a project with a user (admin, editor or viewer)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			project, ok := app.directory.Project(args[0])
			if !ok {
				return fmt.Errorf("project %s not found", args[0])
			}
			if !permissions.CanShareProject(app.directory.Role(project.ID, app.user.ID)) {
				return errors.New("only the owner or an admin can share the project")
			}
			target, ok := app.directory.UserByName(args[1])
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownUser, args[1])
			}
			role := models.Role(args[2])
			if err := app.directory.AddShare(project.ID, target.ID, role); err != nil {
				return err
			}

			app.publish(cmd.Context(), eventbus.NewEvent(project.ID, eventbus.ActivityLog, map[string]any{
				"activityType": string(models.ActivityProjectShare),
				"targetUserId": target.ID,
				"role":         string(role),
			}, app.user.ID))
			app.io.Printf("%s shared with %s as %s\n", project.Name, target.Name, role)
			return nil
		},
	}
}

func (a *App) publish(ctx context.Context, event eventbus.Event) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := a.bus.Publish(ctx, event); err != nil {
		a.logger.Warn("Failed to publish project event", "type", event.Type, "error", err)
	}
}

func newActivityCommand(r *Root) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "activity <project-id>",
		Short: "Follow the project activity feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := r.App(cmd)
			if err != nil {
				return err
			}
			projectID := args[0]
			if app.directory.Role(projectID, app.user.ID) == models.RoleNone {
				return fmt.Errorf("%w %s", ErrNoAccess, projectID)
			}
			if app.cfg.RedisAddr == "" {
				app.io.Println("Event bus is local to this process; use --redis to follow other clients.")
			}

			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return app.watchActivity(ctx, projectID)
		},
	}
	cmd.Flags().DurationVar(&duration, "for", 0, "stop after this long (default: until interrupted)")
	return cmd
}

// watchActivity печатает новые записи ленты, пока не отменен ctx
func (a *App) watchActivity(ctx context.Context, projectID string) error {
	unsubscribe, err := a.bus.Subscribe(ctx, projectID, func(e eventbus.Event) {
		if !a.bridge.OnEvent(e) {
			return
		}
		if latest := a.activity.ByProject(projectID); len(latest) > 0 {
			printActivity(a.io, latest[:1], time.Now())
		}
	})
	if err != nil {
		return fmt.Errorf("failed to follow project %s: %w", projectID, err)
	}
	defer unsubscribe()

	<-ctx.Done()
	return nil
}
