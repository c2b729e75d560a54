package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lherron/clara/internal/cli/appctx"
	"github.com/lherron/clara/internal/domain"
	"github.com/lherron/clara/internal/id"
	"github.com/lherron/clara/internal/render"
)

// Exit codes returned by ExitCode
const (
	ExitOK         = 0
	ExitError      = 1
	ExitValidation = 2
	ExitNotFound   = 3
	ExitConflict   = 4
)

// ExitCode maps an error returned by a command to a process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrValidation):
		return ExitValidation
	case errors.Is(err, domain.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, domain.ErrConflict):
		return ExitConflict
	}
	return ExitError
}

// newRenderer builds a renderer for cmd's output. --output wins over the
// configured default.
func newRenderer(app *appctx.App, cmd *cobra.Command) (*render.Renderer, error) {
	format := app.Config.Output
	if f := cmd.Flag("output"); f != nil && f.Changed {
		format = f.Value.String()
	}
	parsed, err := render.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	porcelain, _ := cmd.Flags().GetBool("porcelain")
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: parsed, Porcelain: porcelain}), nil
}

// parseTime accepts RFC3339, "YYYY-MM-DD HH:MM" and "YYYY-MM-DD" (UTC)
func parseTime(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &domain.ValidationError{Field: field, Reason: fmt.Sprintf("invalid time %q (use YYYY-MM-DD or RFC3339)", value)}
}

func parseRef(field, value string, typ id.Type) (int64, error) {
	n, err := id.ParseAs(value, typ)
	if err != nil {
		return 0, &domain.ValidationError{Field: field, Reason: err.Error()}
	}
	return n, nil
}

func parseRefs(field string, values []string, typ id.Type) ([]int64, error) {
	out := make([]int64, 0, len(values))
	for _, v := range values {
		n, err := parseRef(field, v, typ)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseOwner(value string) (domain.OwnerRef, error) {
	owner, err := id.ParseOwner(value)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			return domain.OwnerRef{}, err
		}
		return domain.OwnerRef{}, &domain.ValidationError{Field: "owner", Reason: err.Error()}
	}
	return owner, nil
}

// optionalRef reads a reference flag paired with a --no-<name> flag that
// clears it. The result is unset when neither flag was given.
func optionalRef(cmd *cobra.Command, name string, typ id.Type) (domain.Optional[*int64], error) {
	unset, _ := cmd.Flags().GetBool("no-" + name)
	set := cmd.Flags().Changed(name)
	switch {
	case unset && set:
		return domain.Optional[*int64]{}, &domain.ValidationError{Field: name, Reason: fmt.Sprintf("--%s and --no-%s are mutually exclusive", name, name)}
	case unset:
		return domain.Null[int64](), nil
	case set:
		raw, _ := cmd.Flags().GetString(name)
		n, err := parseRef(name, raw, typ)
		if err != nil {
			return domain.Optional[*int64]{}, err
		}
		return domain.Some(&n), nil
	}
	return domain.Optional[*int64]{}, nil
}

// optionalText reads a string flag paired with a --no-<name> flag
func optionalText(cmd *cobra.Command, name string) (domain.Optional[*string], error) {
	unset, _ := cmd.Flags().GetBool("no-" + name)
	set := cmd.Flags().Changed(name)
	switch {
	case unset && set:
		return domain.Optional[*string]{}, &domain.ValidationError{Field: name, Reason: fmt.Sprintf("--%s and --no-%s are mutually exclusive", name, name)}
	case unset:
		return domain.Null[string](), nil
	case set:
		v, _ := cmd.Flags().GetString(name)
		return domain.Some(&v), nil
	}
	return domain.Optional[*string]{}, nil
}

func changedString(cmd *cobra.Command, name string) domain.Optional[string] {
	if !cmd.Flags().Changed(name) {
		return domain.Optional[string]{}
	}
	v, _ := cmd.Flags().GetString(name)
	return domain.Some(v)
}

func changedTime(cmd *cobra.Command, name string) (domain.Optional[time.Time], error) {
	if !cmd.Flags().Changed(name) {
		return domain.Optional[time.Time]{}, nil
	}
	raw, _ := cmd.Flags().GetString(name)
	t, err := parseTime(name, raw)
	if err != nil {
		return domain.Optional[time.Time]{}, err
	}
	return domain.Some(t), nil
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func deref[T any](p *T, fallback string) string {
	if p == nil {
		return fallback
	}
	return fmt.Sprint(*p)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
