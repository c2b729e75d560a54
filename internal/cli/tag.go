package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/cli/appctx"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/id"
	"github.com/lherron/clara/internal/store"
)

func newTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags and tag links",
		Long: `Tags are global labels that can be linked to workspaces, projects and
tasks. TAG is a tag id or its label.

` + ownerHelp,
	}

	var color string
	addCmd := &cobra.Command{
		Use:   "add LABEL",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			params := store.CreateTagParams{Label: args[0]}
			if cmd.Flags().Changed("color") {
				params.Color = &color
			}
			tag, err := app.Store().Tags.Create(cmd.Context(), params)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, tag, tagTable(tag))
		}),
	}
	addCmd.Flags().StringVarP(&color, "color", "c", "", "Tag color")

	lsCmd := &cobra.Command{
		Use:   "ls [OWNER]",
		Short: "List all tags, or the tags linked to an owner",
		Args:  cobra.MaximumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			var items []*domain.Tag
			var err error
			if len(args) == 1 {
				owner, perr := parseOwner(args[0])
				if perr != nil {
					return perr
				}
				items, err = app.Store().Tags.ForOwner(cmd.Context(), owner)
			} else {
				items, err = app.Store().Tags.List(cmd.Context())
			}
			if err != nil {
				return err
			}
			return renderOne(app, cmd, nonNil(items), tagTable(items...))
		}),
	}

	setCmd := &cobra.Command{
		Use:   "set TAG",
		Short: "Rename or recolor a tag",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			tagID, err := resolveTag(cmd.Context(), app.Store(), args[0])
			if err != nil {
				return err
			}
			patch := domain.TagPatch{Label: changedString(cmd, "label")}
			if patch.Color, err = optionalText(cmd, "color"); err != nil {
				return err
			}
			tag, err := app.Store().Tags.Update(cmd.Context(), tagID, patch)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, tag, tagTable(tag))
		}),
	}
	setCmd.Flags().String("label", "", "New label")
	setCmd.Flags().StringP("color", "c", "", "New color")
	setCmd.Flags().Bool("no-color", false, "Clear the color")

	rmCmd := &cobra.Command{
		Use:   "rm TAG",
		Short: "Delete a tag and every link to it",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			tagID, err := resolveTag(cmd.Context(), app.Store(), args[0])
			if err != nil {
				return err
			}
			if err := app.Store().Tags.Delete(cmd.Context(), tagID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Deleted tag %d\n", tagID)
			return nil
		}),
	}

	linkCmd := &cobra.Command{
		Use:   "link TAG OWNER",
		Short: "Link a tag to an owner (no-op if already linked)",
		Args:  cobra.ExactArgs(2),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			tagID, err := resolveTag(cmd.Context(), app.Store(), args[0])
			if err != nil {
				return err
			}
			owner, err := parseOwner(args[1])
			if err != nil {
				return err
			}
			item, err := app.Store().Tags.Tag(cmd.Context(), tagID, owner)
			if err != nil {
				return err
			}
			return renderOne(app, cmd, item, func() ([]string, [][]string) {
				return []string{"TAG", "OWNER", "LINKED"}, [][]string{{
					strconv.FormatInt(item.TagID, 10),
					id.FormatOwner(domain.OwnerRef{Kind: item.TargetType, ID: item.TargetID}),
					stamp(item.CreatedAt),
				}}
			})
		}),
	}

	unlinkCmd := &cobra.Command{
		Use:   "unlink TAG OWNER",
		Short: "Remove a tag link (no-op if not linked)",
		Args:  cobra.ExactArgs(2),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			tagID, err := resolveTag(cmd.Context(), app.Store(), args[0])
			if err != nil {
				return err
			}
			owner, err := parseOwner(args[1])
			if err != nil {
				return err
			}
			return app.Store().Tags.Untag(cmd.Context(), tagID, owner)
		}),
	}

	cmd.AddCommand(addCmd, lsCmd, setCmd, rmCmd, linkCmd, unlinkCmd)
	return cmd
}

// resolveTag accepts a numeric tag id or a tag label
func resolveTag(ctx context.Context, s *store.Store, ref string) (int64, error) {
	if n, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return n, nil
	}
	tags, err := s.Tags.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, t := range tags {
		if t.Label == ref {
			return t.ID, nil
		}
	}
	return 0, &domain.ValidationError{Field: "tag", Reason: fmt.Sprintf("no tag labelled %q", ref)}
}
