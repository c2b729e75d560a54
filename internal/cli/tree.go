package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/attach"
	"github.com/lherron/clara/internal/cli/appctx"
	"github.com/lherron/clara/internal/id"
	"github.com/lherron/clara/internal/render"
	"github.com/lherron/clara/internal/snapshot"
)

func newTreeCmd() *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "tree [WORKSPACE]",
		Short: "Display workspaces, projects and tasks as a tree",
		Long: `Display live workspaces with their projects and task trees. Attachment
counts are shown after each item. With -o json or -o yaml the underlying
snapshot documents are printed instead.

Examples:
  clara tree                 # every live workspace
  clara tree W-00001 -L 2    # one workspace, two levels of tasks`,
		Args: cobra.MaximumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			var workspaces []snapshot.WorkspaceSnapshot
			if len(args) == 1 {
				wsID, err := parseRef("workspace", args[0], id.TypeWorkspace)
				if err != nil {
					return err
				}
				snap, err := app.Engine.Workspace(cmd.Context(), wsID)
				if err != nil {
					return err
				}
				workspaces = []snapshot.WorkspaceSnapshot{*snap}
			} else {
				all, err := app.Engine.AllWorkspaces(cmd.Context())
				if err != nil {
					return err
				}
				workspaces = all
			}

			r, err := newRenderer(app, cmd)
			if err != nil {
				return err
			}
			switch r.Format() {
			case render.FormatTable, render.FormatTSV:
				return r.RenderTree(workspaceTree(workspaces, depth))
			}
			return r.Render(workspaces, nil)
		}),
	}
	cmd.Flags().IntVarP(&depth, "level", "L", 0, "Maximum task depth to display (0 = unlimited)")
	return cmd
}

func workspaceTree(workspaces []snapshot.WorkspaceSnapshot, depth int) []render.TreeNode {
	nodes := make([]render.TreeNode, 0, len(workspaces))
	for _, w := range workspaces {
		node := render.TreeNode{Label: label(id.FormatWorkspace(w.ID), w.Title, w.Attachments)}
		for _, p := range w.Projects {
			pn := render.TreeNode{Label: label(id.FormatProject(p.ID), p.Title, p.Attachments)}
			pn.Children = taskTree(p.Tasks, depth, 1)
			node.Children = append(node.Children, pn)
		}
		node.Children = append(node.Children, taskTree(w.Tasks, depth, 1)...)
		nodes = append(nodes, node)
	}
	return nodes
}

func taskTree(tasks []snapshot.TaskSnapshot, depth, level int) []render.TreeNode {
	if depth > 0 && level > depth {
		return nil
	}
	nodes := make([]render.TreeNode, 0, len(tasks))
	for _, t := range tasks {
		title := fmt.Sprintf("[%s] %s", t.Status, t.Title)
		n := render.TreeNode{Label: label(id.FormatTask(t.ID), title, t.Attachments)}
		n.Children = taskTree(t.Subtasks, depth, level+1)
		nodes = append(nodes, n)
	}
	return nodes
}

func label(ref, title string, a attach.Attachments) string {
	var counts []string
	if n := len(a.Notes); n > 0 {
		counts = append(counts, plural(n, "note"))
	}
	if n := len(a.CalendarEvents); n > 0 {
		counts = append(counts, plural(n, "event"))
	}
	if n := len(a.Reminders); n > 0 {
		counts = append(counts, plural(n, "reminder"))
	}
	if len(counts) == 0 {
		return ref + " " + title
	}
	return fmt.Sprintf("%s %s (%s)", ref, title, strings.Join(counts, ", "))
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
