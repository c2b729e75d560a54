package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/cli/appctx"
	"github.com/lherron/clara/internal/cursor"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/events"
	"github.com/lherron/clara/internal/id"
)

// entityTypes maps friendly id types to the entity_type column of the
// activity log
var entityTypes = map[id.Type]string{
	id.TypeWorkspace: "workspace",
	id.TypeProject:   "project",
	id.TypeTask:      "task",
	id.TypeNote:      "note",
	id.TypeEvent:     "calendar_event",
	id.TypeReminder:  "reminder",
}

func newLogCmd() *cobra.Command {
	var (
		entity string
		opID   string
		since  string
		after  string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "log [ID]",
		Short: "Show the activity log",
		Long: `Show activity entries, newest first. ID narrows the log to one entity
(W-00001, T-00004, N-00002, ...). Entries written by one mutation share an op id.

Examples:
  clara log                        # latest activity
  clara log T-00001                # history of a task
  clara log --entity tag           # every tag change
  clara log --op 3f1c...           # everything one mutation wrote
  clara log --since 2026-10-01 -o json

When more entries remain, a --cursor token for the next page is printed to
stderr. Pass it with the same filters to continue.`,
		Args: cobra.MaximumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			filter := events.Filter{EntityType: entity, Limit: limit}
			if len(args) == 1 {
				typ, n, err := id.Parse(args[0])
				if err != nil {
					return &domain.ValidationError{Field: "id", Reason: err.Error()}
				}
				if entity != "" && entity != entityTypes[typ] {
					return &domain.ValidationError{Field: "entity", Reason: fmt.Sprintf("%s does not match %s", entity, args[0])}
				}
				filter.EntityType = entityTypes[typ]
				filter.EntityID = n
			}
			if opID != "" {
				if !id.IsUUID(opID) {
					return &domain.ValidationError{Field: "op", Reason: fmt.Sprintf("%q is not an op id", opID)}
				}
				filter.OpID = opID
			}
			if since != "" {
				t, err := parseTime("since", since)
				if err != nil {
					return err
				}
				filter.Since = &t
			}

			scope := []string{filter.EntityType, strconv.FormatInt(filter.EntityID, 10), filter.OpID, since}
			if after != "" {
				c, err := cursor.Decode(after)
				if err == nil {
					err = c.Match(scope...)
				}
				if err != nil {
					return &domain.ValidationError{Field: "cursor", Reason: err.Error()}
				}
				filter.BeforeID = c.LastID
			}

			entries, err := events.List(cmd.Context(), app.DB, filter)
			if err != nil {
				return err
			}
			if err := renderOne(app, cmd, nonNil(entries), activityTable(entries...)); err != nil {
				return err
			}
			if limit > 0 && len(entries) == limit {
				next, err := cursor.New(entries[len(entries)-1].ID, scope...)
				if err != nil {
					return err
				}
				token, err := next.Encode()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Next page: --cursor %s\n", token)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&entity, "entity", "", "Only entries for this entity type (workspace, project, task, note, calendar_event, reminder, tag)")
	cmd.Flags().StringVar(&opID, "op", "", "Only entries written by this operation")
	cmd.Flags().StringVar(&since, "since", "", "Only entries at or after this time (YYYY-MM-DD or RFC3339)")
	cmd.Flags().StringVar(&after, "cursor", "", "Continue a listing from a token printed by a previous page")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of entries (0 = unlimited)")
	return cmd
}
