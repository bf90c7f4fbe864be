package runner

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrIndexRequired     = errors.New("an add another index is required for this question")
	ErrIndexOutOfRange   = errors.New("add another index out of range")
	ErrDataTypeMismatch  = errors.New("answer does not match the question's data type")
	ErrNotAddAnother     = errors.New("component is not an add another container")
	ErrQuestionNotInForm = errors.New("question is not visible in its form")
)

// InvalidStateError is returned for transitions the submission does not allow in its current
// state. IDs names the submission, forms or questions that block the transition.
type InvalidStateError struct {
	Message string
	IDs     []primitive.ObjectID
}

func (e *InvalidStateError) Error() string {
	if len(e.IDs) == 0 {
		return e.Message
	}
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.Hex()
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(ids, ", "))
}

// ValidationFailedError is returned when an answer fails one of the question's validations.
type ValidationFailedError struct {
	QuestionID   primitive.ObjectID
	ExpressionID primitive.ObjectID
	Message      string
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("question %s: %s", e.QuestionID.Hex(), e.Message)
}
