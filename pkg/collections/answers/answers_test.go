package answers

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func sampleAnswer(dt types.DataType) Answer {
	switch dt {
	case types.DATA_TYPE_TEXT_SINGLE_LINE:
		return TextSingleLineAnswer("Blue")
	case types.DATA_TYPE_TEXT_MULTI_LINE:
		return TextMultiLineAnswer("Line 1\r\nline2\r\nline 3")
	case types.DATA_TYPE_EMAIL:
		return EmailAnswer("name@example.com")
	case types.DATA_TYPE_URL:
		return URLAnswer("https://www.gov.uk")
	case types.DATA_TYPE_INTEGER:
		return IntegerAnswer{Value: 123}
	case types.DATA_TYPE_YES_NO:
		return YesNoAnswer(true)
	case types.DATA_TYPE_RADIOS:
		return SingleChoiceAnswer{Key: "option-0", Label: "Option 0"}
	case types.DATA_TYPE_CHECKBOXES:
		return MultipleChoiceAnswer{Choices: []Choice{{Key: "cheddar", Label: "Cheddar"}, {Key: "stilton", Label: "Stilton"}}}
	case types.DATA_TYPE_DATE:
		return DateAnswer{Date: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	}
	return nil
}

func jsonRoundTrip(t *testing.T, v interface{}) interface{} {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out
}

func bsonRoundTrip(t *testing.T, v interface{}) interface{} {
	t.Helper()
	b, err := bson.Marshal(bson.M{"answer": v})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var out bson.M
	if err := bson.Unmarshal(b, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return out["answer"]
}

func TestEveryDataTypeDecodes(t *testing.T) {
	encodings := []struct {
		name   string
		encode func(t *testing.T, v interface{}) interface{}
	}{
		{name: "in memory", encode: func(t *testing.T, v interface{}) interface{} { return v }},
		{name: "json", encode: jsonRoundTrip},
		{name: "bson", encode: bsonRoundTrip},
	}

	for _, dt := range types.AllDataTypes {
		a := sampleAnswer(dt)
		if a == nil {
			t.Errorf("no sample answer for data type %s", dt)
			continue
		}
		if a.DataType() != dt {
			t.Errorf("unexpected data type: %s", a.DataType())
		}
		for _, enc := range encodings {
			t.Run(string(dt)+"/"+enc.name, func(t *testing.T) {
				decoded, err := FromSubmissionValue(dt, enc.encode(t, a.SubmissionValue()))
				if err != nil {
					t.Errorf("unexpected error: %s", err.Error())
					return
				}
				if !reflect.DeepEqual(decoded, a) {
					t.Errorf("decoded answer differs: %#v vs %#v", decoded, a)
				}
			})
		}
	}

	t.Run("integer with prefix and suffix", func(t *testing.T) {
		a := IntegerAnswer{Value: -7, Prefix: "£", Suffix: " per year"}
		for _, enc := range encodings {
			decoded, err := FromSubmissionValue(types.DATA_TYPE_INTEGER, enc.encode(t, a.SubmissionValue()))
			if err != nil {
				t.Errorf("%s: unexpected error: %s", enc.name, err.Error())
				continue
			}
			if !reflect.DeepEqual(decoded, a) {
				t.Errorf("%s: decoded answer differs: %#v", enc.name, decoded)
			}
		}
	})

	t.Run("approximate date", func(t *testing.T) {
		a := DateAnswer{Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Approximate: true}
		for _, enc := range encodings {
			decoded, err := FromSubmissionValue(types.DATA_TYPE_DATE, enc.encode(t, a.SubmissionValue()))
			if err != nil {
				t.Errorf("%s: unexpected error: %s", enc.name, err.Error())
				continue
			}
			if !reflect.DeepEqual(decoded, a) {
				t.Errorf("%s: decoded answer differs: %#v", enc.name, decoded)
			}
		}
	})

	t.Run("unknown data type", func(t *testing.T) {
		if _, err := FromSubmissionValue(types.DataType("SIGNATURE"), "x"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestExportText(t *testing.T) {
	tests := []struct {
		name     string
		answer   Answer
		expected string
	}{
		{name: "multi line text keeps line breaks", answer: sampleAnswer(types.DATA_TYPE_TEXT_MULTI_LINE), expected: "Line 1\r\nline2\r\nline 3"},
		{name: "integer", answer: IntegerAnswer{Value: 123}, expected: "123"},
		{name: "integer with prefix", answer: IntegerAnswer{Value: 500, Prefix: "£"}, expected: "£500"},
		{name: "radio uses label", answer: sampleAnswer(types.DATA_TYPE_RADIOS), expected: "Option 0"},
		{name: "yes", answer: YesNoAnswer(true), expected: "Yes"},
		{name: "no", answer: YesNoAnswer(false), expected: "No"},
		{name: "checkboxes one label per line", answer: sampleAnswer(types.DATA_TYPE_CHECKBOXES), expected: "Cheddar\nStilton"},
		{name: "date", answer: sampleAnswer(types.DATA_TYPE_DATE), expected: "2025-01-01"},
		{name: "approximate date", answer: DateAnswer{Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Approximate: true}, expected: "March 2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.answer.ExportText(); got != tt.expected {
				t.Errorf("ExportText() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFalseyValuesAreDistinctFromUnanswered(t *testing.T) {
	t.Run("nil is unanswered", func(t *testing.T) {
		a, err := FromSubmissionValue(types.DATA_TYPE_YES_NO, nil)
		if err != nil || a != nil {
			t.Errorf("expected nil answer without error")
		}
	})

	t.Run("false", func(t *testing.T) {
		a, err := FromSubmissionValue(types.DATA_TYPE_YES_NO, false)
		if err != nil || a == nil {
			t.Errorf("expected answer")
			return
		}
		if a.(YesNoAnswer) {
			t.Errorf("expected false")
		}
	})

	t.Run("zero", func(t *testing.T) {
		a, err := FromSubmissionValue(types.DATA_TYPE_INTEGER, map[string]interface{}{"value": float64(0)})
		if err != nil || a == nil {
			t.Errorf("expected answer")
			return
		}
		if a.(IntegerAnswer).Value != 0 {
			t.Errorf("expected 0")
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		a, err := FromSubmissionValue(types.DATA_TYPE_CHECKBOXES, []interface{}{})
		if err != nil || a == nil {
			t.Errorf("expected answer")
			return
		}
		if len(a.(MultipleChoiceAnswer).Choices) != 0 {
			t.Errorf("expected no choices")
		}
	})
}

func TestFromSubmissionValueWithDatabaseShapes(t *testing.T) {
	t.Run("integer as int32 in bson map", func(t *testing.T) {
		a, err := FromSubmissionValue(types.DATA_TYPE_INTEGER, bson.M{"value": int32(42), "suffix": " kg"})
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if a.ExportText() != "42 kg" {
			t.Errorf("unexpected export: %s", a.ExportText())
		}
	})

	t.Run("checkboxes as bson array of documents", func(t *testing.T) {
		raw := primitive.A{
			primitive.D{{Key: "key", Value: "a"}, {Key: "label", Value: "A"}},
			bson.M{"key": "b", "label": "B"},
		}
		a, err := FromSubmissionValue(types.DATA_TYPE_CHECKBOXES, raw)
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if a.ExportText() != "A\nB" {
			t.Errorf("unexpected export: %s", a.ExportText())
		}
	})

	t.Run("non integral float", func(t *testing.T) {
		if _, err := FromSubmissionValue(types.DATA_TYPE_INTEGER, map[string]interface{}{"value": 1.5}); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("wrong shape", func(t *testing.T) {
		if _, err := FromSubmissionValue(types.DATA_TYPE_RADIOS, "option-0"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestFromFormValue(t *testing.T) {
	radios := &types.Component{
		Type:       types.COMPONENT_TYPE_QUESTION,
		DataType:   types.DATA_TYPE_RADIOS,
		DataSource: []types.DataSourceItem{{Key: "a", Label: "A"}, {Key: "b", Label: "B"}},
	}
	checkboxes := &types.Component{
		Type:       types.COMPONENT_TYPE_QUESTION,
		DataType:   types.DATA_TYPE_CHECKBOXES,
		DataSource: []types.DataSourceItem{{Key: "a", Label: "A"}, {Key: "b", Label: "B"}, {Key: "c", Label: "C"}},
	}

	t.Run("radio resolves label", func(t *testing.T) {
		a, err := FromFormValue(radios, "b")
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if a.(SingleChoiceAnswer).Label != "B" {
			t.Errorf("unexpected label")
		}
	})

	t.Run("radio unknown key", func(t *testing.T) {
		if _, err := FromFormValue(radios, "z"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("checkboxes keep data source order", func(t *testing.T) {
		a, err := FromFormValue(checkboxes, []interface{}{"c", "a"})
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if a.ExportText() != "A\nC" {
			t.Errorf("unexpected export: %s", a.ExportText())
		}
	})

	t.Run("integer from string with prefix option", func(t *testing.T) {
		q := &types.Component{Type: types.COMPONENT_TYPE_QUESTION, DataType: types.DATA_TYPE_INTEGER, PresentationOptions: &types.PresentationOptions{Prefix: "£"}}
		a, err := FromFormValue(q, "1,000")
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if a.ExportText() != "£1000" {
			t.Errorf("unexpected export: %s", a.ExportText())
		}
	})

	t.Run("invalid email", func(t *testing.T) {
		q := &types.Component{Type: types.COMPONENT_TYPE_QUESTION, DataType: types.DATA_TYPE_EMAIL}
		if _, err := FromFormValue(q, "not an email"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("url without scheme", func(t *testing.T) {
		q := &types.Component{Type: types.COMPONENT_TYPE_QUESTION, DataType: types.DATA_TYPE_URL}
		a, err := FromFormValue(q, "www.gov.uk")
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if a.ExportText() != "https://www.gov.uk" {
			t.Errorf("unexpected export: %s", a.ExportText())
		}
	})

	t.Run("empty text", func(t *testing.T) {
		q := &types.Component{Type: types.COMPONENT_TYPE_QUESTION, DataType: types.DATA_TYPE_TEXT_SINGLE_LINE}
		if _, err := FromFormValue(q, "   "); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("yes no from string", func(t *testing.T) {
		q := &types.Component{Type: types.COMPONENT_TYPE_QUESTION, DataType: types.DATA_TYPE_YES_NO}
		a, err := FromFormValue(q, "no")
		if err != nil {
			t.Errorf("unexpected error: %s", err.Error())
			return
		}
		if a.ExportText() != "No" {
			t.Errorf("unexpected export: %s", a.ExportText())
		}
	})
}
