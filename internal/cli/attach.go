package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/cli/appctx"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/id"
	"github.com/lherron/clara/internal/store"
)

const ownerHelp = `OWNER is a workspace, project or task: W-00001, P-00002, T-00003, or the
kind:id form (task:3).`

func newNoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Manage notes attached to workspaces, projects and tasks",
		Long:  ownerHelp,
	}

	addCmd := &cobra.Command{
		Use:   "add OWNER CONTENT",
		Short: "Attach a note",
		Args:  cobra.ExactArgs(2),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(args[0])
			if err != nil {
				return err
			}
			n, err := app.Store().Notes.Create(cmd.Context(), store.CreateNoteParams{Content: args[1], Owner: owner})
			if err != nil {
				return err
			}
			return renderOne(app, cmd, n, noteTable(*n))
		}),
	}

	lsCmd := &cobra.Command{
		Use:   "ls OWNER",
		Short: "List live notes of an owner",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(args[0])
			if err != nil {
				return err
			}
			items, err := app.Store().Notes.ListForOwner(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, nonNil(items), noteTable(items...))
		}),
	}

	showCmd := &cobra.Command{
		Use:   "show NOTE",
		Short: "Show a note",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			noteID, err := parseRef("note", args[0], id.TypeNote)
			if err != nil {
				return err
			}
			n, err := app.Store().Notes.Get(cmd.Context(), noteID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, n, noteTable(*n))
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set NOTE",
		Short: "Update a note",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			noteID, err := parseRef("note", args[0], id.TypeNote)
			if err != nil {
				return err
			}
			n, err := app.Store().Notes.Update(cmd.Context(), noteID, domain.NotePatch{Content: changedString(cmd, "content")})
			if err != nil {
				return err
			}
			return renderOne(app, cmd, n, noteTable(*n))
		}),
	}
	setCmd.Flags().String("content", "", "New content")

	archiveCmd := &cobra.Command{
		Use:   "archive NOTE",
		Short: "Archive a note",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			noteID, err := parseRef("note", args[0], id.TypeNote)
			if err != nil {
				return err
			}
			n, err := app.Store().Notes.Archive(cmd.Context(), noteID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, n, noteTable(*n))
		}),
	}

	cmd.AddCommand(addCmd, lsCmd, showCmd, setCmd, archiveCmd)
	return cmd
}

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Manage calendar events linked to workspaces, projects and tasks",
		Long:  ownerHelp,
	}

	var start, end string
	addCmd := &cobra.Command{
		Use:   "add OWNER TITLE --start TIME --end TIME",
		Short: "Link a calendar event",
		Args:  cobra.ExactArgs(2),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(args[0])
			if err != nil {
				return err
			}
			params := store.CreateCalendarEventParams{Title: args[1], Owner: owner}
			if params.StartTime, err = parseTime("start_time", start); err != nil {
				return err
			}
			if params.EndTime, err = parseTime("end_time", end); err != nil {
				return err
			}
			e, err := app.Store().CalendarEvents.Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, e, eventTable(*e))
		}),
	}
	addCmd.Flags().StringVar(&start, "start", "", "Start time (YYYY-MM-DD HH:MM or RFC3339)")
	addCmd.Flags().StringVar(&end, "end", "", "End time, not before the start")
	_ = addCmd.MarkFlagRequired("start")
	_ = addCmd.MarkFlagRequired("end")

	lsCmd := &cobra.Command{
		Use:   "ls OWNER",
		Short: "List live calendar events of an owner",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(args[0])
			if err != nil {
				return err
			}
			items, err := app.Store().CalendarEvents.ListForOwner(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, nonNil(items), eventTable(items...))
		}),
	}

	showCmd := &cobra.Command{
		Use:   "show EVENT",
		Short: "Show a calendar event",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			eventID, err := parseRef("event", args[0], id.TypeEvent)
			if err != nil {
				return err
			}
			e, err := app.Store().CalendarEvents.Get(cmd.Context(), eventID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, e, eventTable(*e))
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set EVENT",
		Short: "Update a calendar event",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			eventID, err := parseRef("event", args[0], id.TypeEvent)
			if err != nil {
				return err
			}
			patch := domain.CalendarEventPatch{Title: changedString(cmd, "title")}
			if patch.StartTime, err = changedTime(cmd, "start"); err != nil {
				return err
			}
			if patch.EndTime, err = changedTime(cmd, "end"); err != nil {
				return err
			}
			e, err := app.Store().CalendarEvents.Update(cmd.Context(), eventID, patch)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, e, eventTable(*e))
		}),
	}
	setCmd.Flags().String("title", "", "New title")
	setCmd.Flags().String("start", "", "New start time")
	setCmd.Flags().String("end", "", "New end time")

	archiveCmd := &cobra.Command{
		Use:   "archive EVENT",
		Short: "Archive a calendar event",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			eventID, err := parseRef("event", args[0], id.TypeEvent)
			if err != nil {
				return err
			}
			e, err := app.Store().CalendarEvents.Archive(cmd.Context(), eventID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, e, eventTable(*e))
		}),
	}

	cmd.AddCommand(addCmd, lsCmd, showCmd, setCmd, archiveCmd)
	return cmd
}

func newReminderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminder",
		Short: "Manage reminders linked to workspaces, projects and tasks",
		Long:  ownerHelp,
	}

	var at, message string
	addCmd := &cobra.Command{
		Use:   "add OWNER --at TIME [--message TEXT]",
		Short: "Link a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(args[0])
			if err != nil {
				return err
			}
			params := store.CreateReminderParams{Owner: owner}
			if params.TriggerTime, err = parseTime("trigger_time", at); err != nil {
				return err
			}
			if cmd.Flags().Changed("message") {
				params.Message = &message
			}
			r, err := app.Store().Reminders.Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, r, reminderTable(*r))
		}),
	}
	addCmd.Flags().StringVar(&at, "at", "", "Trigger time (YYYY-MM-DD HH:MM or RFC3339)")
	addCmd.Flags().StringVarP(&message, "message", "m", "", "Reminder message")
	_ = addCmd.MarkFlagRequired("at")

	lsCmd := &cobra.Command{
		Use:   "ls OWNER",
		Short: "List live reminders of an owner",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(args[0])
			if err != nil {
				return err
			}
			items, err := app.Store().Reminders.ListForOwner(cmd.Context(), owner)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, nonNil(items), reminderTable(items...))
		}),
	}

	showCmd := &cobra.Command{
		Use:   "show REMINDER",
		Short: "Show a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			reminderID, err := parseRef("reminder", args[0], id.TypeReminder)
			if err != nil {
				return err
			}
			r, err := app.Store().Reminders.Get(cmd.Context(), reminderID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, r, reminderTable(*r))
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set REMINDER",
		Short: "Update a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			reminderID, err := parseRef("reminder", args[0], id.TypeReminder)
			if err != nil {
				return err
			}
			var patch domain.ReminderPatch
			if patch.TriggerTime, err = changedTime(cmd, "at"); err != nil {
				return err
			}
			if patch.Message, err = optionalText(cmd, "message"); err != nil {
				return err
			}
			r, err := app.Store().Reminders.Update(cmd.Context(), reminderID, patch)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, r, reminderTable(*r))
		}),
	}
	setCmd.Flags().String("at", "", "New trigger time")
	setCmd.Flags().StringP("message", "m", "", "New message")
	setCmd.Flags().Bool("no-message", false, "Clear the message")

	archiveCmd := &cobra.Command{
		Use:   "archive REMINDER",
		Short: "Archive a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			reminderID, err := parseRef("reminder", args[0], id.TypeReminder)
			if err != nil {
				return err
			}
			r, err := app.Store().Reminders.Archive(cmd.Context(), reminderID)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, r, reminderTable(*r))
		}),
	}

	cmd.AddCommand(addCmd, lsCmd, showCmd, setCmd, archiveCmd)
	return cmd
}
