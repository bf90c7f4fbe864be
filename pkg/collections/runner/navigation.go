package runner

import (
	"fmt"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *SubmissionHelper) GetFirstQuestionForForm(form *types.Form) *types.Component {
	questions := h.VisibleQuestions(form)
	if len(questions) == 0 {
		return nil
	}
	return questions[0]
}

func (h *SubmissionHelper) GetLastQuestionForForm(form *types.Form) *types.Component {
	questions := h.VisibleQuestions(form)
	if len(questions) == 0 {
		return nil
	}
	return questions[len(questions)-1]
}

// GetNextQuestion returns the visible question after the current one, or nil after the last.
func (h *SubmissionHelper) GetNextQuestion(currentQuestionID primitive.ObjectID) (*types.Component, error) {
	return h.neighbour(currentQuestionID, 1)
}

// GetPreviousQuestion returns the visible question before the current one, or nil before the
// first.
func (h *SubmissionHelper) GetPreviousQuestion(currentQuestionID primitive.ObjectID) (*types.Component, error) {
	return h.neighbour(currentQuestionID, -1)
}

func (h *SubmissionHelper) neighbour(currentQuestionID primitive.ObjectID, step int) (*types.Component, error) {
	question, err := h.GetQuestion(currentQuestionID)
	if err != nil {
		return nil, err
	}
	questions := h.VisibleQuestions(question.Form)
	for i, q := range questions {
		if q.ID != currentQuestionID {
			continue
		}
		if j := i + step; j >= 0 && j < len(questions) {
			return questions[j], nil
		}
		return nil, nil
	}
	return nil, fmt.Errorf("question %s: %w", currentQuestionID.Hex(), ErrQuestionNotInForm)
}
