package collections

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/answers"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/exporter"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/runner"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FormOverview struct {
	ID             primitive.ObjectID     `json:"id"`
	Title          string                 `json:"title"`
	Status         types.SubmissionStatus `json:"status"`
	TasklistStatus types.SubmissionStatus `json:"tasklistStatus"`
}

type SubmissionOverview struct {
	ID          primitive.ObjectID     `json:"id"`
	Reference   string                 `json:"reference"`
	Mode        types.SubmissionMode   `json:"mode"`
	Status      types.SubmissionStatus `json:"status"`
	SubmittedAt *time.Time             `json:"submittedAt,omitempty"`
	Forms       []FormOverview         `json:"forms"`
}

func runError(err error) error {
	var stateErr *runner.InvalidStateError
	var validationErr *runner.ValidationFailedError
	switch {
	case errors.As(err, &stateErr), errors.As(err, &validationErr):
		return err
	case errors.Is(err, runner.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	default:
		return invalidInput(err)
	}
}

func overviewOf(h *runner.SubmissionHelper) *SubmissionOverview {
	s := h.Submission()
	overview := &SubmissionOverview{
		ID:          s.ID,
		Reference:   h.Reference(),
		Mode:        s.Mode,
		Status:      h.Status(),
		SubmittedAt: h.SubmittedAt(),
		Forms:       []FormOverview{},
	}
	for _, form := range h.Collection().Forms() {
		overview.Forms = append(overview.Forms, FormOverview{
			ID:             form.ID,
			Title:          form.Title,
			Status:         h.GetStatusForForm(form),
			TasklistStatus: h.GetTasklistStatusForForm(form),
		})
	}
	return overview
}

// StartSubmission creates an empty submission of the collection for the actor.
func StartSubmission(ctx context.Context, instanceID string, collectionID string, mode types.SubmissionMode, actor string) (*types.Submission, error) {
	if mode != types.SUBMISSION_MODE_TEST && mode != types.SUBMISSION_MODE_LIVE {
		return nil, invalidInput(fmt.Errorf("unknown submission mode: %s", mode))
	}
	collection, err := loadCollection(ctx, instanceID, collectionID)
	if err != nil {
		return nil, err
	}
	submission := &types.Submission{
		ID:           primitive.NewObjectID(),
		CollectionID: collection.ID,
		Mode:         mode,
		CreatedBy:    actor,
		CreatedAt:    time.Now().UTC(),
		Data:         map[string]interface{}{},
	}
	if _, err := collectionsDBService.CreateSubmission(ctx, instanceID, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

func GetSubmissionOverview(ctx context.Context, instanceID string, collectionID string, submissionID string) (*SubmissionOverview, error) {
	h, err := loadSubmissionHelper(ctx, instanceID, collectionID, submissionID)
	if err != nil {
		return nil, err
	}
	return overviewOf(h), nil
}

// IsComponentVisible tells whether the component is shown for the submission. index selects the
// add-another instance and may be nil.
func IsComponentVisible(ctx context.Context, instanceID string, collectionID string, submissionID string, componentID string, index *int) (bool, error) {
	_componentID, err := parseID(componentID)
	if err != nil {
		return false, err
	}
	h, err := loadSubmissionHelper(ctx, instanceID, collectionID, submissionID)
	if err != nil {
		return false, err
	}
	component, err := h.GetComponent(_componentID)
	if err != nil {
		return false, runError(err)
	}
	return h.IsComponentVisible(component, index), nil
}

// QuestionPage is what a form runner needs to render one question.
type QuestionPage struct {
	Question           *types.Component    `json:"question"`
	Text               string              `json:"text"`
	Hint               string              `json:"hint,omitempty"`
	Visible            bool                `json:"visible"`
	Answer             interface{}         `json:"answer,omitempty"`
	NextQuestionID     *primitive.ObjectID `json:"nextQuestionId,omitempty"`
	PreviousQuestionID *primitive.ObjectID `json:"previousQuestionId,omitempty"`
}

// GetQuestionPage resolves text interpolation, the stored answer and the neighbouring visible
// questions for one question.
func GetQuestionPage(ctx context.Context, instanceID string, collectionID string, submissionID string, questionID string, index *int) (*QuestionPage, error) {
	_questionID, err := parseID(questionID)
	if err != nil {
		return nil, err
	}
	h, err := loadSubmissionHelper(ctx, instanceID, collectionID, submissionID)
	if err != nil {
		return nil, err
	}
	question, err := h.GetQuestion(_questionID)
	if err != nil {
		return nil, runError(err)
	}

	page := &QuestionPage{
		Question: question,
		Text:     h.Interpolate(question.Text, index),
		Hint:     h.Interpolate(question.Hint, index),
		Visible:  h.IsComponentVisible(question, index),
	}
	if answer := h.GetAnswer(question, index); answer != nil {
		page.Answer = answer.SubmissionValue()
	}
	if !page.Visible {
		return page, nil
	}

	next, err := h.GetNextQuestion(_questionID)
	if err != nil {
		return nil, runError(err)
	}
	if next != nil {
		page.NextQuestionID = &next.ID
	}
	previous, err := h.GetPreviousQuestion(_questionID)
	if err != nil {
		return nil, runError(err)
	}
	if previous != nil {
		page.PreviousQuestionID = &previous.ID
	}
	return page, nil
}

// SubmitAnswer converts the submitted value to the question's answer type, validates it and
// stores it.
func SubmitAnswer(ctx context.Context, instanceID string, collectionID string, submissionID string, questionID string, value interface{}, index *int) (*SubmissionOverview, error) {
	_questionID, err := parseID(questionID)
	if err != nil {
		return nil, err
	}
	h, err := updateSubmission(ctx, instanceID, collectionID, submissionID, func(h *runner.SubmissionHelper) error {
		question, err := h.GetQuestion(_questionID)
		if err != nil {
			return runError(err)
		}
		answer, err := answers.FromFormValue(question, value)
		if err != nil {
			return invalidInput(err)
		}
		if err := h.SubmitAnswerForQuestion(_questionID, answer, index); err != nil {
			return runError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return overviewOf(h), nil
}

func RemoveAddAnotherAnswer(ctx context.Context, instanceID string, collectionID string, submissionID string, containerID string, index int) (*SubmissionOverview, error) {
	_containerID, err := parseID(containerID)
	if err != nil {
		return nil, err
	}
	h, err := updateSubmission(ctx, instanceID, collectionID, submissionID, func(h *runner.SubmissionHelper) error {
		if err := h.RemoveAddAnotherAnswerAtIndex(_containerID, index); err != nil {
			return runError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return overviewOf(h), nil
}

func ToggleFormCompleted(ctx context.Context, instanceID string, collectionID string, submissionID string, formID string, completed bool, actor string) (*SubmissionOverview, error) {
	_formID, err := parseID(formID)
	if err != nil {
		return nil, err
	}
	h, err := updateSubmission(ctx, instanceID, collectionID, submissionID, func(h *runner.SubmissionHelper) error {
		form, err := h.GetForm(_formID)
		if err != nil {
			return runError(err)
		}
		if err := h.ToggleFormCompleted(form, completed, actor); err != nil {
			return runError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return overviewOf(h), nil
}

func Submit(ctx context.Context, instanceID string, collectionID string, submissionID string, actor string) (*SubmissionOverview, error) {
	h, err := updateSubmission(ctx, instanceID, collectionID, submissionID, func(h *runner.SubmissionHelper) error {
		if err := h.Submit(actor); err != nil {
			return runError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return overviewOf(h), nil
}

// DeleteTestSubmissions removes the test submissions the actor made for the collection.
func DeleteTestSubmissions(ctx context.Context, instanceID string, collectionID string, actor string) (int64, error) {
	collection, err := loadCollection(ctx, instanceID, collectionID)
	if err != nil {
		return 0, err
	}
	return collectionsDBService.DeleteTestSubmissionsByUser(ctx, instanceID, collection.ID, actor)
}

// ExportSubmissions writes all submissions of the collection in the given mode to w and returns
// how many were written.
func ExportSubmissions(ctx context.Context, instanceID string, collectionID string, mode types.SubmissionMode, format string, w io.Writer) (int, error) {
	if format != exporter.FORMAT_CSV && format != exporter.FORMAT_JSON {
		return 0, invalidInput(fmt.Errorf("unsupported format: %s", format))
	}
	collection, err := loadCollection(ctx, instanceID, collectionID)
	if err != nil {
		return 0, err
	}
	parser, err := exporter.NewSubmissionParser(collection)
	if err != nil {
		return 0, err
	}
	submissions, err := collectionsDBService.GetSubmissionsForCollection(ctx, instanceID, collection.ID, mode)
	if err != nil {
		return 0, err
	}

	se, err := exporter.NewSubmissionExporter(parser, w, format)
	if err != nil {
		return 0, err
	}
	for _, s := range submissions {
		if err := se.WriteSubmission(s); err != nil {
			return se.Count(), fmt.Errorf("submission %s: %w", s.ID.Hex(), err)
		}
	}
	if err := se.Finish(); err != nil {
		return se.Count(), err
	}
	return se.Count(), nil
}
