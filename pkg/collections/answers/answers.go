package answers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

const (
	dateLayout            = "2006-01-02"
	approximateDateLayout = "2006-01"
	approximateDateExport = "January 2006"
)

// Answer is the typed form of a stored submission value.
type Answer interface {
	DataType() types.DataType
	// SubmissionValue is the shape stored in Submission.Data
	SubmissionValue() interface{}
	ExportText() string
	JSONExportValue() interface{}
}

type TextSingleLineAnswer string

func (a TextSingleLineAnswer) DataType() types.DataType     { return types.DATA_TYPE_TEXT_SINGLE_LINE }
func (a TextSingleLineAnswer) SubmissionValue() interface{} { return string(a) }
func (a TextSingleLineAnswer) ExportText() string           { return string(a) }
func (a TextSingleLineAnswer) JSONExportValue() interface{} { return string(a) }

type TextMultiLineAnswer string

func (a TextMultiLineAnswer) DataType() types.DataType     { return types.DATA_TYPE_TEXT_MULTI_LINE }
func (a TextMultiLineAnswer) SubmissionValue() interface{} { return string(a) }
func (a TextMultiLineAnswer) ExportText() string           { return string(a) }
func (a TextMultiLineAnswer) JSONExportValue() interface{} { return string(a) }

type EmailAnswer string

func (a EmailAnswer) DataType() types.DataType     { return types.DATA_TYPE_EMAIL }
func (a EmailAnswer) SubmissionValue() interface{} { return string(a) }
func (a EmailAnswer) ExportText() string           { return string(a) }
func (a EmailAnswer) JSONExportValue() interface{} { return string(a) }

type URLAnswer string

func (a URLAnswer) DataType() types.DataType     { return types.DATA_TYPE_URL }
func (a URLAnswer) SubmissionValue() interface{} { return string(a) }
func (a URLAnswer) ExportText() string           { return string(a) }
func (a URLAnswer) JSONExportValue() interface{} { return string(a) }

type IntegerAnswer struct {
	Value  int64
	Prefix string
	Suffix string
}

func (a IntegerAnswer) DataType() types.DataType { return types.DATA_TYPE_INTEGER }

func (a IntegerAnswer) SubmissionValue() interface{} {
	v := map[string]interface{}{"value": a.Value}
	if a.Prefix != "" {
		v["prefix"] = a.Prefix
	}
	if a.Suffix != "" {
		v["suffix"] = a.Suffix
	}
	return v
}

func (a IntegerAnswer) ExportText() string {
	return a.Prefix + strconv.FormatInt(a.Value, 10) + a.Suffix
}

func (a IntegerAnswer) JSONExportValue() interface{} {
	return a.SubmissionValue()
}

type YesNoAnswer bool

func (a YesNoAnswer) DataType() types.DataType     { return types.DATA_TYPE_YES_NO }
func (a YesNoAnswer) SubmissionValue() interface{} { return bool(a) }
func (a YesNoAnswer) JSONExportValue() interface{} { return bool(a) }

func (a YesNoAnswer) ExportText() string {
	if a {
		return "Yes"
	}
	return "No"
}

type Choice struct {
	Key   string
	Label string
}

func (c Choice) toMap() map[string]interface{} {
	return map[string]interface{}{"key": c.Key, "label": c.Label}
}

type SingleChoiceAnswer Choice

func (a SingleChoiceAnswer) DataType() types.DataType     { return types.DATA_TYPE_RADIOS }
func (a SingleChoiceAnswer) SubmissionValue() interface{} { return Choice(a).toMap() }
func (a SingleChoiceAnswer) ExportText() string           { return a.Label }
func (a SingleChoiceAnswer) JSONExportValue() interface{} { return Choice(a).toMap() }

type MultipleChoiceAnswer struct {
	Choices []Choice
}

func (a MultipleChoiceAnswer) DataType() types.DataType { return types.DATA_TYPE_CHECKBOXES }

func (a MultipleChoiceAnswer) SubmissionValue() interface{} {
	v := make([]interface{}, len(a.Choices))
	for i, c := range a.Choices {
		v[i] = c.toMap()
	}
	return v
}

func (a MultipleChoiceAnswer) ExportText() string {
	labels := make([]string, len(a.Choices))
	for i, c := range a.Choices {
		labels[i] = c.Label
	}
	return strings.Join(labels, "\n")
}

func (a MultipleChoiceAnswer) JSONExportValue() interface{} {
	return a.SubmissionValue()
}

func (a MultipleChoiceAnswer) Keys() []string {
	keys := make([]string, len(a.Choices))
	for i, c := range a.Choices {
		keys[i] = c.Key
	}
	return keys
}

type DateAnswer struct {
	Date        time.Time
	Approximate bool
}

func (a DateAnswer) DataType() types.DataType { return types.DATA_TYPE_DATE }

func (a DateAnswer) SubmissionValue() interface{} {
	return map[string]interface{}{
		"answer":          a.Date.Format(dateLayout),
		"approximateDate": a.Approximate,
	}
}

func (a DateAnswer) ExportText() string {
	if a.Approximate {
		return a.Date.Format(approximateDateExport)
	}
	return a.Date.Format(dateLayout)
}

func (a DateAnswer) JSONExportValue() interface{} {
	if a.Approximate {
		return a.Date.Format(approximateDateLayout)
	}
	return a.Date.Format(dateLayout)
}

// IsoDate is the value used when comparing dates in expressions.
func (a DateAnswer) IsoDate() string {
	return a.Date.Format(dateLayout)
}

// FromSubmissionValue decodes a stored value. A nil value is an unanswered question and returns
// (nil, nil).
func FromSubmissionValue(dataType types.DataType, raw interface{}) (Answer, error) {
	if raw == nil {
		return nil, nil
	}
	switch dataType {
	case types.DATA_TYPE_TEXT_SINGLE_LINE:
		s, err := asString(raw)
		if err != nil {
			return nil, err
		}
		return TextSingleLineAnswer(s), nil
	case types.DATA_TYPE_TEXT_MULTI_LINE:
		s, err := asString(raw)
		if err != nil {
			return nil, err
		}
		return TextMultiLineAnswer(s), nil
	case types.DATA_TYPE_EMAIL:
		s, err := asString(raw)
		if err != nil {
			return nil, err
		}
		return EmailAnswer(s), nil
	case types.DATA_TYPE_URL:
		s, err := asString(raw)
		if err != nil {
			return nil, err
		}
		return URLAnswer(s), nil
	case types.DATA_TYPE_INTEGER:
		return integerFromSubmissionValue(raw)
	case types.DATA_TYPE_YES_NO:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return YesNoAnswer(b), nil
	case types.DATA_TYPE_RADIOS:
		c, err := choiceFromValue(raw)
		if err != nil {
			return nil, err
		}
		return SingleChoiceAnswer(c), nil
	case types.DATA_TYPE_CHECKBOXES:
		items, err := asSlice(raw)
		if err != nil {
			return nil, err
		}
		a := MultipleChoiceAnswer{Choices: make([]Choice, 0, len(items))}
		for _, item := range items {
			c, err := choiceFromValue(item)
			if err != nil {
				return nil, err
			}
			a.Choices = append(a.Choices, c)
		}
		return a, nil
	case types.DATA_TYPE_DATE:
		return dateFromSubmissionValue(raw)
	default:
		return nil, fmt.Errorf("unknown data type: %s", dataType)
	}
}

func integerFromSubmissionValue(raw interface{}) (Answer, error) {
	m, err := asMap(raw)
	if err != nil {
		return nil, err
	}
	v, err := asInt64(m["value"])
	if err != nil {
		return nil, err
	}
	a := IntegerAnswer{Value: v}
	if p, ok := m["prefix"].(string); ok {
		a.Prefix = p
	}
	if s, ok := m["suffix"].(string); ok {
		a.Suffix = s
	}
	return a, nil
}

func choiceFromValue(raw interface{}) (Choice, error) {
	m, err := asMap(raw)
	if err != nil {
		return Choice{}, err
	}
	key, err := asString(m["key"])
	if err != nil {
		return Choice{}, fmt.Errorf("choice key: %w", err)
	}
	label, err := asString(m["label"])
	if err != nil {
		return Choice{}, fmt.Errorf("choice label: %w", err)
	}
	return Choice{Key: key, Label: label}, nil
}

func dateFromSubmissionValue(raw interface{}) (Answer, error) {
	m, err := asMap(raw)
	if err != nil {
		return nil, err
	}
	s, err := asString(m["answer"])
	if err != nil {
		return nil, err
	}
	approximate, _ := m["approximateDate"].(bool)
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return DateAnswer{Date: d, Approximate: approximate}, nil
}
