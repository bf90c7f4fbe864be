package exporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/runner"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

const (
	NOT_ASKED = "NOT_ASKED"

	DATETIME_FORMAT = time.RFC3339

	COLUMN_REFERENCE    = "Submission reference"
	COLUMN_CREATED_BY   = "Created by"
	COLUMN_CREATED_AT   = "Created at"
	COLUMN_STATUS       = "Status"
	COLUMN_SUBMITTED_AT = "Submitted at"

	addAnotherSep = "\n"
)

var metadataColumns = []string{COLUMN_REFERENCE, COLUMN_CREATED_BY, COLUMN_CREATED_AT, COLUMN_STATUS, COLUMN_SUBMITTED_AT}

// SubmissionParser turns submissions of one collection into export rows and records.
type SubmissionParser struct {
	collection *types.Collection
	questions  []*types.Component
	columns    []string
}

func NewSubmissionParser(collection *types.Collection) (*SubmissionParser, error) {
	collection.Link()
	p := &SubmissionParser{
		collection: collection,
		questions:  collection.AllQuestions(),
	}
	columns := append([]string{}, metadataColumns...)
	for _, q := range p.questions {
		if _, err := handlerFor(q); err != nil {
			return nil, err
		}
		columns = append(columns, QuestionColumnName(q))
	}
	p.columns = columns
	return p, nil
}

// QuestionColumnName is the header of a question column: "[form title] question name".
func QuestionColumnName(question *types.Component) string {
	return fmt.Sprintf("[%s] %s", question.Form.Title, question.Name)
}

func (p *SubmissionParser) Columns() []string {
	return p.columns
}

func (p *SubmissionParser) helperFor(submission *types.Submission) (*runner.SubmissionHelper, error) {
	if submission.CollectionID != p.collection.ID {
		return nil, fmt.Errorf("submission %s does not belong to collection %s", submission.ID.Hex(), p.collection.ID.Hex())
	}
	return runner.NewSubmissionHelper(p.collection, submission), nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(DATETIME_FORMAT)
}

// ToRow renders the CSV cells of a submission, in column order.
func (p *SubmissionParser) ToRow(submission *types.Submission) ([]string, error) {
	h, err := p.helperFor(submission)
	if err != nil {
		return nil, err
	}

	createdAt := submission.CreatedAt
	row := []string{
		submission.Reference(),
		submission.CreatedBy,
		formatTime(&createdAt),
		string(h.Status()),
		formatTime(h.SubmittedAt()),
	}

	visible := h.AllVisibleQuestions()
	for _, q := range p.questions {
		if _, ok := visible[q.ID.Hex()]; !ok {
			row = append(row, NOT_ASKED)
			continue
		}
		cell, err := p.cellText(h, q)
		if err != nil {
			return nil, err
		}
		row = append(row, cell)
	}
	return row, nil
}

// cellText renders a visible question. Add-another questions list one line per instance.
func (p *SubmissionParser) cellText(h *runner.SubmissionHelper, q *types.Component) (string, error) {
	handler, err := handlerFor(q)
	if err != nil {
		return "", err
	}
	if q.AddAnotherContainer() == nil {
		answer := h.GetAnswer(q, nil)
		if answer == nil {
			return "", nil
		}
		return handler.ExportText(q, answer)
	}

	lines := []string{}
	for i, answer := range h.GetAnswers(q) {
		index := i
		switch {
		case !h.IsComponentVisible(q, &index):
			lines = append(lines, NOT_ASKED)
		case answer == nil:
			lines = append(lines, "")
		default:
			text, err := handler.ExportText(q, answer)
			if err != nil {
				return "", err
			}
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, addAnotherSep), nil
}

type SubmissionRecord struct {
	Reference      string       `json:"reference"`
	CreatedBy      string       `json:"created_by"`
	CreatedAtUTC   string       `json:"created_at_utc"`
	Status         string       `json:"status"`
	SubmittedAtUTC *string      `json:"submitted_at_utc"`
	Tasks          []TaskRecord `json:"tasks"`
}

type TaskRecord struct {
	Name    string                 `json:"name"`
	Answers map[string]interface{} `json:"answers"`
}

// ToRecord renders the JSON record of a submission. Questions that are not asked are left out.
func (p *SubmissionParser) ToRecord(submission *types.Submission) (*SubmissionRecord, error) {
	h, err := p.helperFor(submission)
	if err != nil {
		return nil, err
	}

	createdAt := submission.CreatedAt
	record := &SubmissionRecord{
		Reference:    submission.Reference(),
		CreatedBy:    submission.CreatedBy,
		CreatedAtUTC: formatTime(&createdAt),
		Status:       string(h.Status()),
		Tasks:        []TaskRecord{},
	}
	if at := h.SubmittedAt(); at != nil {
		s := formatTime(at)
		record.SubmittedAtUTC = &s
	}

	for _, form := range p.collection.Forms() {
		task := TaskRecord{Name: form.Title, Answers: map[string]interface{}{}}
		for _, q := range h.VisibleQuestions(form) {
			value, err := p.jsonValue(h, q)
			if err != nil {
				return nil, err
			}
			task.Answers[q.Name] = value
		}
		record.Tasks = append(record.Tasks, task)
	}
	return record, nil
}

func (p *SubmissionParser) jsonValue(h *runner.SubmissionHelper, q *types.Component) (interface{}, error) {
	handler, err := handlerFor(q)
	if err != nil {
		return nil, err
	}
	if q.AddAnotherContainer() == nil {
		answer := h.GetAnswer(q, nil)
		if answer == nil {
			return nil, nil
		}
		return handler.JSONValue(q, answer)
	}

	values := []interface{}{}
	for i, answer := range h.GetAnswers(q) {
		index := i
		if answer == nil || !h.IsComponentVisible(q, &index) {
			values = append(values, nil)
			continue
		}
		v, err := handler.JSONValue(q, answer)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}
