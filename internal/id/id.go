// Package id formats and parses the friendly references used on the command
// line: W-00001, P-00002, T-00003 and so on, bare numbers, and kind:id owners.
package id

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lherron/clara/internal/domain"
)

var friendlyPattern = regexp.MustCompile(`^([A-Z])-(\d{1,18})$`)

// Type represents the type of entity a reference points at
type Type string

const (
	TypeWorkspace Type = "workspace"
	TypeProject   Type = "project"
	TypeTask      Type = "task"
	TypeNote      Type = "note"
	TypeEvent     Type = "event"
	TypeReminder  Type = "reminder"
)

var prefixes = map[string]Type{
	"W": TypeWorkspace,
	"P": TypeProject,
	"T": TypeTask,
	"N": TypeNote,
	"E": TypeEvent,
	"R": TypeReminder,
}

func format(prefix string, id int64) string {
	return fmt.Sprintf("%s-%05d", prefix, id)
}

// FormatWorkspace formats a workspace friendly ID
func FormatWorkspace(id int64) string { return format("W", id) }

// FormatProject formats a project friendly ID
func FormatProject(id int64) string { return format("P", id) }

// FormatTask formats a task friendly ID
func FormatTask(id int64) string { return format("T", id) }

// FormatNote formats a note friendly ID
func FormatNote(id int64) string { return format("N", id) }

// FormatEvent formats a calendar event friendly ID
func FormatEvent(id int64) string { return format("E", id) }

// FormatReminder formats a reminder friendly ID
func FormatReminder(id int64) string { return format("R", id) }

// FormatOwner formats an owner reference as its friendly ID
func FormatOwner(owner domain.OwnerRef) string {
	switch owner.Kind {
	case domain.OwnerWorkspace:
		return FormatWorkspace(owner.ID)
	case domain.OwnerProject:
		return FormatProject(owner.ID)
	case domain.OwnerTask:
		return FormatTask(owner.ID)
	}
	return owner.String()
}

// Parse parses a friendly ID and returns its type and numeric id
func Parse(s string) (Type, int64, error) {
	s = strings.TrimSpace(s)
	m := friendlyPattern.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		return "", 0, fmt.Errorf("invalid friendly ID format: %s", s)
	}
	typ, ok := prefixes[m[1]]
	if !ok {
		return "", 0, fmt.Errorf("unknown friendly ID prefix: %s", s)
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("invalid friendly ID number: %s", s)
	}
	return typ, n, nil
}

// ParseAs resolves s to an id of the wanted type. Bare positive numbers are
// accepted as-is; friendly IDs must carry the matching prefix.
func ParseAs(s string, want Type) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("%s id must be positive: %s", want, s)
		}
		return n, nil
	}
	typ, n, err := Parse(s)
	if err != nil {
		return 0, err
	}
	if typ != want {
		return 0, fmt.Errorf("expected a %s reference, got %s reference %s", want, typ, s)
	}
	return n, nil
}

// ParseOwner parses W-/P-/T- friendly IDs or the kind:id form into an owner
// reference.
func ParseOwner(s string) (domain.OwnerRef, error) {
	s = strings.TrimSpace(s)
	if kind, num, ok := strings.Cut(s, ":"); ok {
		n, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return domain.OwnerRef{}, fmt.Errorf("invalid owner id in %q", s)
		}
		owner := domain.OwnerRef{Kind: domain.OwnerKind(strings.ToLower(kind)), ID: n}
		if err := owner.Validate(); err != nil {
			return domain.OwnerRef{}, err
		}
		return owner, nil
	}

	typ, n, err := Parse(s)
	if err != nil {
		return domain.OwnerRef{}, err
	}
	switch typ {
	case TypeWorkspace:
		return domain.WorkspaceOwner(n), nil
	case TypeProject:
		return domain.ProjectOwner(n), nil
	case TypeTask:
		return domain.TaskOwner(n), nil
	}
	return domain.OwnerRef{}, fmt.Errorf("%s cannot own attachments or tags: %s", typ, s)
}

// IsUUID checks if a string is a hyphenated UUID, the format of activity op ids
func IsUUID(s string) bool {
	return len(s) == 36 && uuid.Validate(s) == nil
}

// IsFriendlyID checks if a string is a valid friendly ID
func IsFriendlyID(s string) bool {
	_, _, err := Parse(s)
	return err == nil
}
