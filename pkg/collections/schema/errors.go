package schema

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("a component with this name already exists in the form")
)

// TreeError reports an edit that would break the shape of the component tree: nesting depth,
// cycles, or add-another placement.
type TreeError struct {
	ComponentID primitive.ObjectID
	Message     string
}

func (e *TreeError) Error() string {
	return fmt.Sprintf("component %s: %s", e.ComponentID.Hex(), e.Message)
}

// DependencyError reports an edit that would leave other components referencing something that
// no longer exists or no longer comes before them.
type DependencyError struct {
	ComponentID           primitive.ObjectID
	DependentComponentIDs []primitive.ObjectID
}

func (e *DependencyError) Error() string {
	ids := make([]string, len(e.DependentComponentIDs))
	for i, id := range e.DependentComponentIDs {
		ids[i] = id.Hex()
	}
	return fmt.Sprintf("component %s is depended on by: %s", e.ComponentID.Hex(), strings.Join(ids, ", "))
}

// InvalidExpressionReferenceError reports an expression or interpolation that references a
// question it is not allowed to use.
type InvalidExpressionReferenceError struct {
	ComponentID primitive.ObjectID
	Reference   string
	Reason      string
}

func (e *InvalidExpressionReferenceError) Error() string {
	return fmt.Sprintf("component %s cannot reference %s: %s", e.ComponentID.Hex(), e.Reference, e.Reason)
}

type DuplicateManagedExpressionError struct {
	ComponentID primitive.ObjectID
	ManagedName string
}

func (e *DuplicateManagedExpressionError) Error() string {
	return fmt.Sprintf("component %s already has a %q expression for this question", e.ComponentID.Hex(), e.ManagedName)
}
