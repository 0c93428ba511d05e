package domain

import "fmt"

// ConflictError is returned when creating or promoting to an entity whose
// normalized name collides with an existing entity. No mutation occurs.
type ConflictError struct {
	EntityID   string
	EntityName string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("entity name conflicts with existing entity %q (id %s)", e.EntityName, e.EntityID)
}

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Key)
}

// InvalidTransitionError is returned when a lifecycle action is attempted
// from a terminal or incompatible state. The item is left unchanged.
type InvalidTransitionError struct {
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s an intake item in state %q", e.Action, e.From)
}
