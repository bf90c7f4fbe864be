package types

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SubmissionMode string

const (
	SUBMISSION_MODE_TEST SubmissionMode = "TEST"
	SUBMISSION_MODE_LIVE SubmissionMode = "LIVE"
)

type SubmissionStatus string

const (
	SUBMISSION_STATUS_NOT_STARTED  SubmissionStatus = "Not started"
	SUBMISSION_STATUS_IN_PROGRESS  SubmissionStatus = "In progress"
	SUBMISSION_STATUS_COMPLETED    SubmissionStatus = "Completed"
	SUBMISSION_STATUS_NO_QUESTIONS SubmissionStatus = "No questions"
)

type SubmissionEventKey string

const (
	SUBMISSION_EVENT_FORM_COMPLETED         SubmissionEventKey = "FORM_RUNNER_FORM_COMPLETED"
	SUBMISSION_EVENT_FORM_MARKED_INCOMPLETE SubmissionEventKey = "FORM_RUNNER_FORM_MARKED_INCOMPLETE"
	SUBMISSION_EVENT_SUBMITTED              SubmissionEventKey = "SUBMISSION_SUBMITTED"
)

type SubmissionEvent struct {
	Key       SubmissionEventKey  `bson:"key" json:"key"`
	FormID    *primitive.ObjectID `bson:"formId,omitempty" json:"formId,omitempty"`
	CreatedBy string              `bson:"createdBy" json:"createdBy"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}

// Submission is one applicant's answers for one collection. Data is keyed by question id hex;
// questions inside an add-another group are stored under the group's id hex as a list of
// {questionIdHex: value} entries.
type Submission struct {
	ID           primitive.ObjectID     `bson:"_id,omitempty" json:"id,omitempty"`
	CollectionID primitive.ObjectID     `bson:"collectionId" json:"collectionId"`
	Mode         SubmissionMode         `bson:"mode" json:"mode"`
	CreatedBy    string                 `bson:"createdBy" json:"createdBy"`
	CreatedAt    time.Time              `bson:"createdAt" json:"createdAt"`
	Data         map[string]interface{} `bson:"data" json:"data"`
	Events       []SubmissionEvent      `bson:"events,omitempty" json:"events,omitempty"`
}

// Reference is the short human readable identifier shown to applicants and in exports.
func (s *Submission) Reference() string {
	h := s.ID.Hex()
	return strings.ToUpper(h[len(h)-8:])
}

func (s *Submission) EventsWithKey(key SubmissionEventKey) []SubmissionEvent {
	res := []SubmissionEvent{}
	for _, e := range s.Events {
		if e.Key == key {
			res = append(res, e)
		}
	}
	return res
}

func (s *Submission) AppendEvent(key SubmissionEventKey, formID *primitive.ObjectID, actor string, at time.Time) {
	s.Events = append(s.Events, SubmissionEvent{
		Key:       key,
		FormID:    formID,
		CreatedBy: actor,
		CreatedAt: at,
	})
}
