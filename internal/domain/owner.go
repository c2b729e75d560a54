package domain

import (
	"fmt"
)

// OwnerKind discriminates the entity an attachment or tag points at
type OwnerKind string

const (
	OwnerWorkspace OwnerKind = "workspace"
	OwnerProject   OwnerKind = "project"
	OwnerTask      OwnerKind = "task"
)

// OwnerRef is a polymorphic (kind, id) reference used as a composite lookup
// key for notes, calendar events, reminders and tagged items.
type OwnerRef struct {
	Kind OwnerKind `json:"type"`
	ID   int64     `json:"id"`
}

// WorkspaceOwner refers to a workspace
func WorkspaceOwner(id int64) OwnerRef { return OwnerRef{Kind: OwnerWorkspace, ID: id} }

// ProjectOwner refers to a project
func ProjectOwner(id int64) OwnerRef { return OwnerRef{Kind: OwnerProject, ID: id} }

// TaskOwner refers to a task
func TaskOwner(id int64) OwnerRef { return OwnerRef{Kind: OwnerTask, ID: id} }

func (o OwnerRef) String() string {
	return fmt.Sprintf("%s:%d", o.Kind, o.ID)
}

// Validate checks the kind is one of the three owner kinds and the id is positive
func (o OwnerRef) Validate() error {
	if err := ValidateOwnerKind(string(o.Kind)); err != nil {
		return err
	}
	if o.ID <= 0 {
		return &ValidationError{Field: "owner_id", Reason: "must be a positive id"}
	}
	return nil
}
