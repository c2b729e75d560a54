package cli

import (
	"strconv"

	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/id"
)

func workspaceTable(items ...*domain.Workspace) func() ([]string, [][]string) {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(items))
		for _, w := range items {
			rows = append(rows, []string{id.FormatWorkspace(w.ID), w.Title, archivedMark(w.ArchivedAt != nil), stamp(w.UpdatedAt)})
		}
		return []string{"ID", "TITLE", "STATE", "UPDATED"}, rows
	}
}

func projectTable(items ...*domain.Project) func() ([]string, [][]string) {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(items))
		for _, p := range items {
			rows = append(rows, []string{id.FormatProject(p.ID), id.FormatWorkspace(p.WorkspaceID), p.Title, archivedMark(p.ArchivedAt != nil), stamp(p.UpdatedAt)})
		}
		return []string{"ID", "WORKSPACE", "TITLE", "STATE", "UPDATED"}, rows
	}
}

func taskTable(items ...*domain.Task) func() ([]string, [][]string) {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(items))
		for _, t := range items {
			project, parent, due := "-", "-", "-"
			if t.ProjectID != nil {
				project = id.FormatProject(*t.ProjectID)
			}
			if t.ParentTaskID != nil {
				parent = id.FormatTask(*t.ParentTaskID)
			}
			if t.DueDate != nil {
				due = stamp(*t.DueDate)
			}
			status := string(t.Status)
			if t.IsArchived() {
				status += " (archived)"
			}
			rows = append(rows, []string{
				id.FormatTask(t.ID), status, t.Title, project, parent,
				strconv.Itoa(t.OrderIndex), due,
			})
		}
		return []string{"ID", "STATUS", "TITLE", "PROJECT", "PARENT", "ORDER", "DUE"}, rows
	}
}

func noteTable(items ...domain.Note) func() ([]string, [][]string) {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(items))
		for _, n := range items {
			rows = append(rows, []string{id.FormatNote(n.ID), id.FormatOwner(n.Owner()), truncate(n.Content, 60), archivedMark(n.ArchivedAt != nil)})
		}
		return []string{"ID", "OWNER", "CONTENT", "STATE"}, rows
	}
}

func eventTable(items ...domain.CalendarEvent) func() ([]string, [][]string) {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(items))
		for _, e := range items {
			rows = append(rows, []string{id.FormatEvent(e.ID), id.FormatOwner(e.Owner()), e.Title, stamp(e.StartTime), stamp(e.EndTime), archivedMark(e.ArchivedAt != nil)})
		}
		return []string{"ID", "OWNER", "TITLE", "START", "END", "STATE"}, rows
	}
}

func reminderTable(items ...domain.Reminder) func() ([]string, [][]string) {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(items))
		for _, r := range items {
			rows = append(rows, []string{id.FormatReminder(r.ID), id.FormatOwner(r.Owner()), stamp(r.TriggerTime), truncate(deref(r.Message, "-"), 60), archivedMark(r.ArchivedAt != nil)})
		}
		return []string{"ID", "OWNER", "TRIGGER", "MESSAGE", "STATE"}, rows
	}
}

func tagTable(items ...*domain.Tag) func() ([]string, [][]string) {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(items))
		for _, t := range items {
			rows = append(rows, []string{strconv.FormatInt(t.ID, 10), t.Label, deref(t.Color, "-")})
		}
		return []string{"ID", "LABEL", "COLOR"}, rows
	}
}

func activityTable(items ...domain.Activity) func() ([]string, [][]string) {
	return func() ([]string, [][]string) {
		rows := make([][]string, 0, len(items))
		for _, a := range items {
			rows = append(rows, []string{
				strconv.FormatInt(a.ID, 10), stamp(a.CreatedAt), a.OpID[:min(8, len(a.OpID))],
				a.ActionType, a.EntityType, strconv.FormatInt(a.EntityID, 10), truncate(a.Data, 60),
			})
		}
		return []string{"ID", "TIME", "OP", "ACTION", "ENTITY", "ENTITY_ID", "DATA"}, rows
	}
}

func archivedMark(archived bool) string {
	if archived {
		return "archived"
	}
	return "live"
}
