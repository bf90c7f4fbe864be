package runner

import (
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// formProgress summarises the visible questions of a form.
type formProgress struct {
	visible    int
	answered   int
	anyAnswer  bool
	unanswered []primitive.ObjectID
}

func (p formProgress) allAnswered() bool {
	return p.visible == p.answered
}

// progress counts visible and answered questions. An add-another question is answered when the
// container has at least one instance and every instance it is visible in has an answer.
func (h *SubmissionHelper) progress(form *types.Form) formProgress {
	p := formProgress{unanswered: []primitive.ObjectID{}}
	for _, q := range h.VisibleQuestions(form) {
		p.visible++
		answered := false
		if q.AddAnotherContainer() == nil {
			answered = h.GetAnswer(q, nil) != nil
			p.anyAnswer = p.anyAnswer || answered
		} else {
			all := h.GetAnswers(q)
			answered = len(all) > 0
			for i, a := range all {
				index := i
				if a != nil {
					p.anyAnswer = true
				} else if h.IsComponentVisible(q, &index) {
					answered = false
				}
			}
		}
		if answered {
			p.answered++
		} else {
			p.unanswered = append(p.unanswered, q.ID)
		}
	}
	return p
}

// isMarkedComplete is decided by the latest completed/marked incomplete event of the form.
func (h *SubmissionHelper) isMarkedComplete(form *types.Form) bool {
	marked := false
	for _, e := range h.submission.Events {
		if e.FormID == nil || *e.FormID != form.ID {
			continue
		}
		switch e.Key {
		case types.SUBMISSION_EVENT_FORM_COMPLETED:
			marked = true
		case types.SUBMISSION_EVENT_FORM_MARKED_INCOMPLETE:
			marked = false
		}
	}
	return marked
}

func (h *SubmissionHelper) GetStatusForForm(form *types.Form) types.SubmissionStatus {
	if len(h.Questions(form)) == 0 {
		return types.SUBMISSION_STATUS_NOT_STARTED
	}
	p := h.progress(form)
	switch {
	case p.allAnswered() && h.isMarkedComplete(form):
		return types.SUBMISSION_STATUS_COMPLETED
	case p.anyAnswer:
		return types.SUBMISSION_STATUS_IN_PROGRESS
	default:
		return types.SUBMISSION_STATUS_NOT_STARTED
	}
}

// GetTasklistStatusForForm is the form status as shown on the task list, where forms without
// questions are called out.
func (h *SubmissionHelper) GetTasklistStatusForForm(form *types.Form) types.SubmissionStatus {
	if len(h.Questions(form)) == 0 {
		return types.SUBMISSION_STATUS_NO_QUESTIONS
	}
	return h.GetStatusForForm(form)
}

func (h *SubmissionHelper) IsSubmitted() bool {
	return len(h.submission.EventsWithKey(types.SUBMISSION_EVENT_SUBMITTED)) > 0
}

func (h *SubmissionHelper) allFormsCompleted() (bool, []primitive.ObjectID) {
	incomplete := []primitive.ObjectID{}
	for _, form := range h.collection.Forms() {
		if h.GetStatusForForm(form) != types.SUBMISSION_STATUS_COMPLETED {
			incomplete = append(incomplete, form.ID)
		}
	}
	return len(incomplete) == 0, incomplete
}

// Status of the whole submission, derived from the form statuses and the submitted event.
func (h *SubmissionHelper) Status() types.SubmissionStatus {
	forms := h.collection.Forms()
	if len(forms) == 0 {
		return types.SUBMISSION_STATUS_NOT_STARTED
	}
	allCompleted, allNotStarted := true, true
	for _, form := range forms {
		status := h.GetStatusForForm(form)
		allCompleted = allCompleted && status == types.SUBMISSION_STATUS_COMPLETED
		allNotStarted = allNotStarted && status == types.SUBMISSION_STATUS_NOT_STARTED
	}
	switch {
	case allCompleted && h.IsSubmitted():
		return types.SUBMISSION_STATUS_COMPLETED
	case allNotStarted:
		return types.SUBMISSION_STATUS_NOT_STARTED
	default:
		return types.SUBMISSION_STATUS_IN_PROGRESS
	}
}

func (h *SubmissionHelper) IsCompleted() bool {
	return h.Status() == types.SUBMISSION_STATUS_COMPLETED
}

// SubmittedAt is the time of the latest submitted event of a completed submission.
func (h *SubmissionHelper) SubmittedAt() *time.Time {
	if !h.IsCompleted() {
		return nil
	}
	events := h.submission.EventsWithKey(types.SUBMISSION_EVENT_SUBMITTED)
	at := events[len(events)-1].CreatedAt
	return &at
}

// ToggleFormCompleted marks the form complete or incomplete for the actor. Toggling to the
// state the form is already in records nothing.
func (h *SubmissionHelper) ToggleFormCompleted(form *types.Form, completed bool, actor string) error {
	if h.IsSubmitted() {
		return &InvalidStateError{Message: "submission has already been submitted", IDs: []primitive.ObjectID{h.submission.ID}}
	}

	formID := form.ID
	if !completed {
		if !h.isMarkedComplete(form) {
			return nil
		}
		h.submission.AppendEvent(types.SUBMISSION_EVENT_FORM_MARKED_INCOMPLETE, &formID, actor, h.now().UTC())
		h.Invalidate()
		return nil
	}

	if h.GetStatusForForm(form) == types.SUBMISSION_STATUS_COMPLETED {
		return nil
	}
	if len(h.Questions(form)) == 0 {
		return &InvalidStateError{Message: "form has no questions", IDs: []primitive.ObjectID{form.ID}}
	}
	if p := h.progress(form); !p.allAnswered() {
		return &InvalidStateError{Message: "form cannot be completed, questions are unanswered", IDs: p.unanswered}
	}
	h.submission.AppendEvent(types.SUBMISSION_EVENT_FORM_COMPLETED, &formID, actor, h.now().UTC())
	h.Invalidate()
	return nil
}

// Submit records the submission as submitted once every form is completed. Submitting again is
// a no-op.
func (h *SubmissionHelper) Submit(actor string) error {
	if h.IsSubmitted() {
		return nil
	}
	if len(h.collection.Forms()) == 0 {
		return &InvalidStateError{Message: "collection has no forms", IDs: []primitive.ObjectID{h.collection.ID}}
	}
	if ok, incomplete := h.allFormsCompleted(); !ok {
		return &InvalidStateError{Message: "submission cannot be submitted, forms are not completed", IDs: incomplete}
	}
	h.submission.AppendEvent(types.SUBMISSION_EVENT_SUBMITTED, nil, actor, h.now().UTC())
	h.Invalidate()
	return nil
}
