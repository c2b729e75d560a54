package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/bulk"
	"github.com/lherron/clara/internal/cli/appctx"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/id"
	"github.com/lherron/clara/internal/store"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks and their ordering",
	}
	cmd.AddCommand(
		newTaskAddCmd(),
		newTaskLsCmd(),
		newTaskShowCmd(),
		newTaskSetCmd(),
		newTaskDoneCmd(),
		newTaskMvCmd(),
		newTaskReorderCmd(),
		newTaskArchiveCmd(),
	)
	return cmd
}

func newTaskAddCmd() *cobra.Command {
	var workspace, project, parent, status, due string
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a task",
		Long: `Create a task at the end of its sibling group: the subtasks of --parent,
or the parentless tasks of the workspace.

Examples:
  clara task add "Sort boxes" --workspace W-00001 --project P-00002
  clara task add "Label" --workspace W-00001 --parent T-00003 --due 2026-11-01`,
		Args: cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			params := store.CreateTaskParams{Title: args[0], Status: domain.TaskStatus(status)}
			var err error
			if params.WorkspaceID, err = parseRef("workspace_id", workspace, id.TypeWorkspace); err != nil {
				return err
			}
			if project != "" {
				n, err := parseRef("project_id", project, id.TypeProject)
				if err != nil {
					return err
				}
				params.ProjectID = &n
			}
			if parent != "" {
				n, err := parseRef("parent_task_id", parent, id.TypeTask)
				if err != nil {
					return err
				}
				params.ParentTaskID = &n
			}
			if due != "" {
				t, err := parseTime("due_date", due)
				if err != nil {
					return err
				}
				params.DueDate = &t
			}

			task, err := app.Store().Tasks.Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, task, taskTable(task))
		}),
	}
	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "Workspace the task belongs to (required)")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project the task belongs to")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent task")
	cmd.Flags().StringVar(&status, "status", "", "Initial status (todo, in-progress, done, archived)")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD or RFC3339)")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func newTaskLsCmd() *cobra.Command {
	var workspace, project, parent string
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List live tasks of a workspace, a project or a parent task",
		Args:  cobra.NoArgs,
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			tasks := app.Store().Tasks
			var items []*domain.Task
			var err error
			switch {
			case parent != "":
				var n int64
				if n, err = parseRef("parent", parent, id.TypeTask); err != nil {
					return err
				}
				items, err = tasks.Subtasks(cmd.Context(), n)
			case project != "":
				var n int64
				if n, err = parseRef("project", project, id.TypeProject); err != nil {
					return err
				}
				items, err = tasks.ListByProject(cmd.Context(), n)
			case workspace != "":
				var n int64
				if n, err = parseRef("workspace", workspace, id.TypeWorkspace); err != nil {
					return err
				}
				items, err = tasks.ListByWorkspace(cmd.Context(), n)
			default:
				return &domain.ValidationError{Field: "scope", Reason: "one of --workspace, --project or --parent is required"}
			}
			if err != nil {
				return err
			}
			return renderOne(app, cmd, nonNil(items), taskTable(items...))
		}),
	}
	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "List tasks of a workspace")
	cmd.Flags().StringVarP(&project, "project", "p", "", "List tasks of a project")
	cmd.Flags().StringVar(&parent, "parent", "", "List subtasks of a task")
	cmd.MarkFlagsMutuallyExclusive("workspace", "project", "parent")
	return cmd
}

func newTaskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show TASK",
		Short: "Show a task, archived or not",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			taskID, err := parseRef("task", args[0], id.TypeTask)
			if err != nil {
				return err
			}
			task, err := app.Store().Tasks.Get(cmd.Context(), taskID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, task, taskTable(task))
		}),
	}
}

func newTaskSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set TASK",
		Short: "Update task fields",
		Long: `Update only the fields named by flags. --no-project, --no-parent and
--no-due clear the field. A new parent is rejected when it would make the task
its own ancestor.`,
		Args: cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			taskID, err := parseRef("task", args[0], id.TypeTask)
			if err != nil {
				return err
			}
			patch, err := taskPatch(cmd)
			if err != nil {
				return err
			}
			return updateTask(app, cmd, taskID, patch)
		}),
	}
	cmd.Flags().String("title", "", "New title")
	cmd.Flags().String("status", "", "New status (todo, in-progress, done, archived)")
	cmd.Flags().String("due", "", "Due date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().Bool("no-due", false, "Clear the due date")
	placementFlags(cmd)
	return cmd
}

func newTaskMvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mv TASK",
		Short: "Move a task under another parent or project",
		Long: `Move a task. The task keeps its subtasks and its order index.

Examples:
  clara task mv T-00004 --parent T-00002
  clara task mv T-00004 --no-parent --project P-00001`,
		Args: cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			taskID, err := parseRef("task", args[0], id.TypeTask)
			if err != nil {
				return err
			}
			patch, err := taskPatch(cmd)
			if err != nil {
				return err
			}
			if patch.IsEmpty() {
				return &domain.ValidationError{Field: "destination", Reason: "one of --parent, --no-parent, --project or --no-project is required"}
			}
			return updateTask(app, cmd, taskID, patch)
		}),
	}
	placementFlags(cmd)
	return cmd
}

func placementFlags(cmd *cobra.Command) {
	cmd.Flags().String("parent", "", "New parent task")
	cmd.Flags().Bool("no-parent", false, "Make the task a tree root")
	cmd.Flags().String("project", "", "New project")
	cmd.Flags().Bool("no-project", false, "Detach the task from its project")
}

// taskPatch builds a patch from whichever task flags cmd defines and the
// user set
func taskPatch(cmd *cobra.Command) (domain.TaskPatch, error) {
	var patch domain.TaskPatch
	var err error
	if cmd.Flags().Lookup("title") != nil {
		patch.Title = changedString(cmd, "title")
	}
	if cmd.Flags().Lookup("status") != nil && cmd.Flags().Changed("status") {
		s, _ := cmd.Flags().GetString("status")
		patch.Status = domain.Some(domain.TaskStatus(s))
	}
	if patch.ParentTaskID, err = optionalRef(cmd, "parent", id.TypeTask); err != nil {
		return patch, err
	}
	if patch.ProjectID, err = optionalRef(cmd, "project", id.TypeProject); err != nil {
		return patch, err
	}
	if cmd.Flags().Lookup("due") != nil {
		unset, _ := cmd.Flags().GetBool("no-due")
		due, err := changedTime(cmd, "due")
		if err != nil {
			return patch, err
		}
		switch {
		case unset && due.Set:
			return patch, &domain.ValidationError{Field: "due", Reason: "--due and --no-due are mutually exclusive"}
		case unset:
			patch.DueDate = domain.Null[time.Time]()
		case due.Set:
			patch.DueDate = domain.Some(&due.Value)
		}
	}
	return patch, nil
}

func updateTask(app *appctx.App, cmd *cobra.Command, taskID int64, patch domain.TaskPatch) error {
	task, err := app.Store().Tasks.Update(cmd.Context(), taskID, patch)
	if err != nil {
		return err
	}
	return renderOne(app, cmd, task, taskTable(task))
}

func newTaskDoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done TASK...",
		Short: "Mark tasks as done",
		Args:  cobra.MinimumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			return bulkTasks(app, cmd, args, app.Store().Tasks.Complete)
		}),
	}
	bulkFlags(cmd)
	return cmd
}

func bulkFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("jobs", "j", 1, "Number of parallel workers (0 = one per CPU)")
	cmd.Flags().Bool("continue-on-error", false, "Keep going after a task fails")
}

// bulkTasks applies fn to every TASK argument and renders the tasks that
// succeeded, in argument order
func bulkTasks(app *appctx.App, cmd *cobra.Command, args []string, fn func(context.Context, int64) (*domain.Task, error)) error {
	ids, err := parseRefs("task", args, id.TypeTask)
	if err != nil {
		return err
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	keepGoing, _ := cmd.Flags().GetBool("continue-on-error")

	results := make([]*domain.Task, len(ids))
	op := &bulk.Operation{Jobs: jobs, ContinueOnError: keepGoing}
	if len(ids) > 1 {
		op.Progress = cmd.ErrOrStderr()
	}
	res := op.Execute(cmd.Context(), args, func(ctx context.Context, i int, _ string) error {
		task, err := fn(ctx, ids[i])
		results[i] = task
		return err
	})

	done := make([]*domain.Task, 0, len(results))
	for _, task := range results {
		if task != nil {
			done = append(done, task)
		}
	}
	if len(ids) > 1 {
		res.PrintSummary(cmd.ErrOrStderr())
	}
	if len(done) > 0 {
		if err := renderOne(app, cmd, done, taskTable(done...)); err != nil {
			return err
		}
	}
	return res.Err()
}

func newTaskReorderCmd() *cobra.Command {
	var parent, workspace string
	cmd := &cobra.Command{
		Use:   "reorder TASK...",
		Short: "Set the order of sibling tasks",
		Long: `Rewrite the order index of exactly the listed tasks to 0, 1, 2, ... in the
order given. With --parent or --workspace every task must belong to that
sibling group. Either all tasks are reordered or none is.

Examples:
  clara task reorder T-00003 T-00001 T-00002 --parent T-00007`,
		Args: cobra.MinimumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			ids, err := parseRefs("task_ids", args, id.TypeTask)
			if err != nil {
				return err
			}
			params := store.ReorderParams{TaskIDs: ids}
			switch {
			case parent != "":
				n, err := parseRef("parent", parent, id.TypeTask)
				if err != nil {
					return err
				}
				scope := store.ParentScope(n)
				params.Scope = &scope
			case workspace != "":
				n, err := parseRef("workspace", workspace, id.TypeWorkspace)
				if err != nil {
					return err
				}
				scope := store.WorkspaceRootScope(n)
				params.Scope = &scope
			}
			if err := app.Store().Tasks.Reorder(cmd.Context(), params); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Reordered %d task(s)\n", len(ids))
			return nil
		}),
	}
	cmd.Flags().StringVar(&parent, "parent", "", "Require every task to be a subtask of this task")
	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "Require every task to be a parentless task of this workspace")
	cmd.MarkFlagsMutuallyExclusive("parent", "workspace")
	return cmd
}

func newTaskArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive TASK...",
		Short: "Archive tasks (subtasks are kept)",
		Args:  cobra.MinimumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			return bulkTasks(app, cmd, args, app.Store().Tasks.Archive)
		}),
	}
	bulkFlags(cmd)
	return cmd
}
