package exporter

import (
	"fmt"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/answers"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

// QuestionTypeHandler renders the answers of one question data type for export.
type QuestionTypeHandler interface {
	ExportText(question *types.Component, answer answers.Answer) (string, error)
	JSONValue(question *types.Component, answer answers.Answer) (interface{}, error)
}

var questionTypeHandlers = map[types.DataType]QuestionTypeHandler{
	types.DATA_TYPE_TEXT_SINGLE_LINE: &TextHandler{},
	types.DATA_TYPE_TEXT_MULTI_LINE:  &TextHandler{},
	types.DATA_TYPE_EMAIL:            &TextHandler{},
	types.DATA_TYPE_URL:              &TextHandler{},
	types.DATA_TYPE_INTEGER:          &IntegerHandler{},
	types.DATA_TYPE_YES_NO:           &YesNoHandler{},
	types.DATA_TYPE_RADIOS:           &SingleChoiceHandler{},
	types.DATA_TYPE_CHECKBOXES:       &MultipleChoiceHandler{},
	types.DATA_TYPE_DATE:             &DateHandler{},
}

func handlerFor(question *types.Component) (QuestionTypeHandler, error) {
	handler, ok := questionTypeHandlers[question.DataType]
	if !ok {
		return nil, fmt.Errorf("no export handler for data type %s (question %s)", question.DataType, question.ID.Hex())
	}
	return handler, nil
}

func mismatch(question *types.Component, answer answers.Answer) error {
	return fmt.Errorf("question %s (%s) cannot export answer of type %T", question.ID.Hex(), question.DataType, answer)
}

// TextHandler covers the free text data types.
type TextHandler struct{}

func (h *TextHandler) check(question *types.Component, answer answers.Answer) error {
	switch answer.(type) {
	case answers.TextSingleLineAnswer, answers.TextMultiLineAnswer, answers.EmailAnswer, answers.URLAnswer:
		if answer.DataType() == question.DataType {
			return nil
		}
	}
	return mismatch(question, answer)
}

func (h *TextHandler) ExportText(question *types.Component, answer answers.Answer) (string, error) {
	if err := h.check(question, answer); err != nil {
		return "", err
	}
	return answer.ExportText(), nil
}

func (h *TextHandler) JSONValue(question *types.Component, answer answers.Answer) (interface{}, error) {
	if err := h.check(question, answer); err != nil {
		return nil, err
	}
	return answer.JSONExportValue(), nil
}

type IntegerHandler struct{}

func (h *IntegerHandler) ExportText(question *types.Component, answer answers.Answer) (string, error) {
	a, ok := answer.(answers.IntegerAnswer)
	if !ok {
		return "", mismatch(question, answer)
	}
	return a.ExportText(), nil
}

func (h *IntegerHandler) JSONValue(question *types.Component, answer answers.Answer) (interface{}, error) {
	a, ok := answer.(answers.IntegerAnswer)
	if !ok {
		return nil, mismatch(question, answer)
	}
	return a.JSONExportValue(), nil
}

type YesNoHandler struct{}

func (h *YesNoHandler) ExportText(question *types.Component, answer answers.Answer) (string, error) {
	a, ok := answer.(answers.YesNoAnswer)
	if !ok {
		return "", mismatch(question, answer)
	}
	return a.ExportText(), nil
}

func (h *YesNoHandler) JSONValue(question *types.Component, answer answers.Answer) (interface{}, error) {
	a, ok := answer.(answers.YesNoAnswer)
	if !ok {
		return nil, mismatch(question, answer)
	}
	return a.JSONExportValue(), nil
}

type SingleChoiceHandler struct{}

func (h *SingleChoiceHandler) ExportText(question *types.Component, answer answers.Answer) (string, error) {
	a, ok := answer.(answers.SingleChoiceAnswer)
	if !ok {
		return "", mismatch(question, answer)
	}
	return a.ExportText(), nil
}

func (h *SingleChoiceHandler) JSONValue(question *types.Component, answer answers.Answer) (interface{}, error) {
	a, ok := answer.(answers.SingleChoiceAnswer)
	if !ok {
		return nil, mismatch(question, answer)
	}
	return a.JSONExportValue(), nil
}

type MultipleChoiceHandler struct{}

func (h *MultipleChoiceHandler) ExportText(question *types.Component, answer answers.Answer) (string, error) {
	a, ok := answer.(answers.MultipleChoiceAnswer)
	if !ok {
		return "", mismatch(question, answer)
	}
	return a.ExportText(), nil
}

func (h *MultipleChoiceHandler) JSONValue(question *types.Component, answer answers.Answer) (interface{}, error) {
	a, ok := answer.(answers.MultipleChoiceAnswer)
	if !ok {
		return nil, mismatch(question, answer)
	}
	return a.JSONExportValue(), nil
}

type DateHandler struct{}

func (h *DateHandler) ExportText(question *types.Component, answer answers.Answer) (string, error) {
	a, ok := answer.(answers.DateAnswer)
	if !ok {
		return "", mismatch(question, answer)
	}
	return a.ExportText(), nil
}

func (h *DateHandler) JSONValue(question *types.Component, answer answers.Answer) (interface{}, error) {
	a, ok := answer.(answers.DateAnswer)
	if !ok {
		return nil, mismatch(question, answer)
	}
	return a.JSONExportValue(), nil
}
