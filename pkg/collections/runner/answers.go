package runner

import (
	"fmt"
	"log/slog"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/answers"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/expressionengine"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultValidationMessage = "The answer is not valid"

func (h *SubmissionHelper) checkNotSubmitted() error {
	if h.IsSubmitted() {
		return &InvalidStateError{Message: "submission has already been submitted", IDs: []primitive.ObjectID{h.submission.ID}}
	}
	return nil
}

// SubmitAnswerForQuestion validates and stores the answer. For questions inside an add-another
// container index selects the instance; an index equal to the number of instances adds one.
func (h *SubmissionHelper) SubmitAnswerForQuestion(questionID primitive.ObjectID, answer answers.Answer, index *int) error {
	if err := h.checkNotSubmitted(); err != nil {
		return err
	}
	question, err := h.GetQuestion(questionID)
	if err != nil {
		return err
	}
	if answer == nil || answer.DataType() != question.DataType {
		return fmt.Errorf("question %s: %w", questionID.Hex(), ErrDataTypeMismatch)
	}

	container := question.AddAnotherContainer()
	var entries []map[string]interface{}
	if container != nil {
		if index == nil {
			return ErrIndexRequired
		}
		entries = h.entries(container)
		if *index < 0 || *index > len(entries) {
			return fmt.Errorf("%w: %d", ErrIndexOutOfRange, *index)
		}
	}

	if err := h.validateAnswer(question, answer, container, index); err != nil {
		return err
	}

	if container == nil {
		h.submission.Data[question.ID.Hex()] = answer.SubmissionValue()
	} else {
		if *index == len(entries) {
			entries = append(entries, map[string]interface{}{})
		}
		entries[*index][question.ID.Hex()] = answer.SubmissionValue()
		h.submission.Data[container.ID.Hex()] = entries
	}
	h.Invalidate()
	return nil
}

// validateAnswer evaluates the question's validations with the new answer in place.
func (h *SubmissionHelper) validateAnswer(question *types.Component, answer answers.Answer, container *types.Component, index *int) error {
	validations := question.Validations()
	if len(validations) == 0 {
		return nil
	}

	base := h.evaluationContext()
	if container != nil {
		base = h.instanceContext(container, *index)
	}
	ctx := base.Child()
	ctx.SetAnswer(question.SafeQuestionID(), answer)

	for _, def := range validations {
		exp, err := h.compile(def)
		if err != nil {
			return fmt.Errorf("validation %s: %w", def.ID.Hex(), err)
		}
		ok, err := expressionengine.EvaluateCondition(exp, ctx)
		if err != nil {
			slog.Debug("validation could not be evaluated",
				slog.String("questionID", question.ID.Hex()),
				slog.String("expressionID", def.ID.Hex()),
				slog.String("error", err.Error()),
			)
		}
		if err != nil || !ok {
			return &ValidationFailedError{
				QuestionID:   question.ID,
				ExpressionID: def.ID,
				Message:      h.validationMessage(def, index),
			}
		}
	}
	return nil
}

func (h *SubmissionHelper) validationMessage(def types.ExpressionDef, index *int) string {
	if !def.IsManaged() || def.Context == nil {
		return defaultValidationMessage
	}
	managed, err := expressionengine.BuildManagedExpression(def.ManagedName, *def.Context)
	if err != nil {
		return defaultValidationMessage
	}
	return h.Interpolate(managed.Message(), index)
}

// RemoveAddAnotherAnswerAtIndex deletes one instance of an add-another container.
func (h *SubmissionHelper) RemoveAddAnotherAnswerAtIndex(containerID primitive.ObjectID, index int) error {
	if err := h.checkNotSubmitted(); err != nil {
		return err
	}
	container, err := h.GetComponent(containerID)
	if err != nil {
		return err
	}
	if !container.AddAnother {
		return fmt.Errorf("component %s: %w", containerID.Hex(), ErrNotAddAnother)
	}
	entries := h.entries(container)
	if index < 0 || index >= len(entries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	h.submission.Data[container.ID.Hex()] = append(entries[:index], entries[index+1:]...)
	h.Invalidate()
	return nil
}
