package answers

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

var (
	ErrEmptyAnswer   = errors.New("answer is empty")
	ErrUnknownChoice = errors.New("choice is not part of the question's data source")
)

// FromFormValue builds the answer for a question from submitted input (JSON decoded).
func FromFormValue(question *types.Component, input interface{}) (Answer, error) {
	if question == nil || !question.IsQuestion() {
		return nil, errors.New("component is not a question")
	}
	if input == nil {
		return nil, ErrEmptyAnswer
	}

	switch question.DataType {
	case types.DATA_TYPE_TEXT_SINGLE_LINE:
		s, err := nonEmptyString(input)
		if err != nil {
			return nil, err
		}
		return TextSingleLineAnswer(strings.TrimSpace(s)), nil
	case types.DATA_TYPE_TEXT_MULTI_LINE:
		s, err := nonEmptyString(input)
		if err != nil {
			return nil, err
		}
		return TextMultiLineAnswer(s), nil
	case types.DATA_TYPE_EMAIL:
		s, err := nonEmptyString(input)
		if err != nil {
			return nil, err
		}
		s = strings.TrimSpace(s)
		addr, err := mail.ParseAddress(s)
		if err != nil || addr.Address != s {
			return nil, fmt.Errorf("invalid email address: %s", s)
		}
		return EmailAnswer(s), nil
	case types.DATA_TYPE_URL:
		s, err := nonEmptyString(input)
		if err != nil {
			return nil, err
		}
		return urlFromFormValue(strings.TrimSpace(s))
	case types.DATA_TYPE_INTEGER:
		return integerFromFormValue(question, input)
	case types.DATA_TYPE_YES_NO:
		return yesNoFromFormValue(input)
	case types.DATA_TYPE_RADIOS:
		key, err := nonEmptyString(input)
		if err != nil {
			return nil, err
		}
		item, ok := question.FindDataSourceItem(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownChoice, key)
		}
		return SingleChoiceAnswer{Key: item.Key, Label: item.Label}, nil
	case types.DATA_TYPE_CHECKBOXES:
		return multipleChoiceFromFormValue(question, input)
	case types.DATA_TYPE_DATE:
		return dateFromFormValue(question, input)
	default:
		return nil, fmt.Errorf("unknown data type: %s", question.DataType)
	}
}

func nonEmptyString(input interface{}) (string, error) {
	s, err := asString(input)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", ErrEmptyAnswer
	}
	return s, nil
}

func urlFromFormValue(s string) (Answer, error) {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || !strings.Contains(u.Host, ".") {
		return nil, fmt.Errorf("invalid url: %s", s)
	}
	return URLAnswer(s), nil
}

func integerFromFormValue(question *types.Component, input interface{}) (Answer, error) {
	var value int64
	switch v := input.(type) {
	case string:
		parsed, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not a whole number: %s", v)
		}
		value = parsed
	default:
		parsed, err := asInt64(input)
		if err != nil {
			return nil, err
		}
		value = parsed
	}

	a := IntegerAnswer{Value: value}
	if question.PresentationOptions != nil {
		a.Prefix = question.PresentationOptions.Prefix
		a.Suffix = question.PresentationOptions.Suffix
	}
	return a, nil
}

func yesNoFromFormValue(input interface{}) (Answer, error) {
	switch v := input.(type) {
	case bool:
		return YesNoAnswer(v), nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "true":
			return YesNoAnswer(true), nil
		case "no", "false":
			return YesNoAnswer(false), nil
		}
	}
	return nil, fmt.Errorf("expected yes or no, got %v", input)
}

func multipleChoiceFromFormValue(question *types.Component, input interface{}) (Answer, error) {
	keys := []string{}
	switch v := input.(type) {
	case []string:
		keys = v
	default:
		items, err := asSlice(input)
		if err != nil {
			return nil, err
		}
		for _, item := range items {
			k, err := asString(item)
			if err != nil {
				return nil, err
			}
			keys = append(keys, k)
		}
	}

	selected := map[string]bool{}
	for _, k := range keys {
		if _, ok := question.FindDataSourceItem(k); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownChoice, k)
		}
		selected[k] = true
	}

	// keep data source order
	a := MultipleChoiceAnswer{Choices: []Choice{}}
	for _, item := range question.DataSource {
		if selected[item.Key] {
			a.Choices = append(a.Choices, Choice{Key: item.Key, Label: item.Label})
		}
	}
	return a, nil
}

func dateFromFormValue(question *types.Component, input interface{}) (Answer, error) {
	s, err := nonEmptyString(input)
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	approximate := question.PresentationOptions != nil && question.PresentationOptions.ApproximateDate
	if approximate {
		if d, err := time.Parse(approximateDateLayout, s); err == nil {
			return DateAnswer{Date: d, Approximate: true}, nil
		}
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date: %s", s)
	}
	if approximate {
		d = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return DateAnswer{Date: d, Approximate: approximate}, nil
}
