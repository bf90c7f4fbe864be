package collections

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/collectionstest"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/exporter"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/expressionengine"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/runner"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/schema"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	testInstanceID = "test-instance"
	testEditor     = "editor@example.com"
	testApplicant  = "applicant@example.com"
)

type serviceFixture struct {
	db         *collectionstest.MemoryDB
	collection *types.Collection
	form       *types.Form
	hours      *types.Component
	minutes    *types.Component
	people     *types.Component
	name       *types.Component
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	ctx := context.Background()
	f := &serviceFixture{db: collectionstest.NewMemoryDB()}
	Init(f.db, schema.DefaultEditorConfig())

	collection, err := CreateCollection(ctx, testInstanceID, "Community grant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	colID := collection.ID.Hex()

	f.form, err = AddForm(ctx, testInstanceID, colID, collection.Sections[0].ID.Hex(), "Activity")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.hours, err = AddQuestion(ctx, testInstanceID, colID, f.form.ID.Hex(), schema.QuestionSpec{Text: "Hours?", Name: "hours", DataType: types.DATA_TYPE_INTEGER})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.minutes, err = AddQuestion(ctx, testInstanceID, colID, f.form.ID.Hex(), schema.QuestionSpec{Text: "Minutes?", Name: "minutes", DataType: types.DATA_TYPE_INTEGER})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	minimum := int64(30)
	if _, err := AddExpression(ctx, testInstanceID, colID, f.minutes.ID.Hex(), types.EXPRESSION_TYPE_CONDITION, ExpressionInput{
		ManagedName: expressionengine.MANAGED_GREATER_THAN,
		Context:     types.ManagedExpressionContext{QuestionID: f.hours.ID, MinimumValue: &minimum},
	}, testEditor); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.people, err = AddGroup(ctx, testInstanceID, colID, f.form.ID.Hex(), schema.GroupSpec{Text: "People", Name: "people", AddAnother: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.name, err = AddQuestion(ctx, testInstanceID, colID, f.people.ID.Hex(), schema.QuestionSpec{Text: "Name?", Name: "name", DataType: types.DATA_TYPE_TEXT_SINGLE_LINE})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.collection, err = GetCollection(ctx, testInstanceID, colID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}

func (f *serviceFixture) start(t *testing.T, mode types.SubmissionMode) string {
	t.Helper()
	s, err := StartSubmission(context.Background(), testInstanceID, f.collection.ID.Hex(), mode, testApplicant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s.ID.Hex()
}

func (f *serviceFixture) answer(t *testing.T, submissionID string, question *types.Component, value interface{}, index *int) *SubmissionOverview {
	t.Helper()
	overview, err := SubmitAnswer(context.Background(), testInstanceID, f.collection.ID.Hex(), submissionID, question.ID.Hex(), value, index)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return overview
}

func intPtr(v int) *int {
	return &v
}

func TestSchemaEdits(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	colID := f.collection.ID.Hex()

	t.Run("stored tree", func(t *testing.T) {
		if len(f.collection.Forms()) != 1 {
			t.Fatalf("expected one form, got %d", len(f.collection.Forms()))
		}
		if q := f.collection.FindComponent(f.minutes.ID); q == nil || len(q.Conditions()) != 1 {
			t.Errorf("expected the condition to be stored: %+v", q)
		}
	})

	t.Run("expression needs exactly one of managed name or statement", func(t *testing.T) {
		_, err := AddExpression(ctx, testInstanceID, colID, f.minutes.ID.Hex(), types.EXPRESSION_TYPE_CONDITION, ExpressionInput{}, testEditor)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})

	t.Run("free-form expression", func(t *testing.T) {
		def, err := AddExpression(ctx, testInstanceID, colID, f.minutes.ID.Hex(), types.EXPRESSION_TYPE_VALIDATION, ExpressionInput{
			Statement: f.minutes.SafeQuestionID() + " < 60",
		}, testEditor)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := RemoveExpression(ctx, testInstanceID, colID, f.minutes.ID.Hex(), def.ID.Hex()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("deleting a referenced question is rejected", func(t *testing.T) {
		err := DeleteComponent(ctx, testInstanceID, colID, f.hours.ID.Hex())
		var depErr *schema.DependencyError
		if !errors.As(err, &depErr) {
			t.Fatalf("expected a dependency error, got %v", err)
		}
		c, _ := GetCollection(ctx, testInstanceID, colID)
		if c.FindComponent(f.hours.ID) == nil {
			t.Error("question should still be stored")
		}
	})

	t.Run("unknown ids", func(t *testing.T) {
		if _, err := GetCollection(ctx, testInstanceID, primitive.NewObjectID().Hex()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		if err := DeleteComponent(ctx, testInstanceID, colID, "not-an-id"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		if err := DeleteComponent(ctx, testInstanceID, colID, primitive.NewObjectID().Hex()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("move", func(t *testing.T) {
		if err := MoveComponent(ctx, testInstanceID, colID, f.people.ID.Hex(), true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := MoveComponent(ctx, testInstanceID, colID, f.minutes.ID.Hex(), true); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := MoveComponent(ctx, testInstanceID, colID, f.minutes.ID.Hex(), true); err == nil {
			t.Error("moving a question above the question it depends on should fail")
		}
	})
}

func TestSubmissionLifecycle(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	colID := f.collection.ID.Hex()
	submissionID := f.start(t, types.SUBMISSION_MODE_TEST)

	overview, err := GetSubmissionOverview(ctx, testInstanceID, colID, submissionID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overview.Status != types.SUBMISSION_STATUS_NOT_STARTED || len(overview.Forms) != 1 {
		t.Errorf("unexpected overview: %+v", overview)
	}

	overview = f.answer(t, submissionID, f.hours, float64(20), nil)
	if overview.Status != types.SUBMISSION_STATUS_IN_PROGRESS {
		t.Errorf("expected in progress, got %s", overview.Status)
	}

	visible, err := IsComponentVisible(ctx, testInstanceID, colID, submissionID, f.minutes.ID.Hex(), nil)
	if err != nil || visible {
		t.Errorf("minutes should be hidden: %v %v", visible, err)
	}
	f.answer(t, submissionID, f.hours, "40", nil)
	visible, err = IsComponentVisible(ctx, testInstanceID, colID, submissionID, f.minutes.ID.Hex(), nil)
	if err != nil || !visible {
		t.Errorf("minutes should be visible: %v %v", visible, err)
	}

	t.Run("completing with unanswered questions fails and stores nothing", func(t *testing.T) {
		_, err := ToggleFormCompleted(ctx, testInstanceID, colID, submissionID, f.form.ID.Hex(), true, testApplicant)
		var stateErr *runner.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected invalid state, got %v", err)
		}
		s, _ := f.db.GetSubmissionByID(ctx, testInstanceID, submissionID)
		if len(s.Events) != 0 {
			t.Errorf("expected no events, got %v", s.Events)
		}
	})

	f.answer(t, submissionID, f.minutes, float64(10), nil)
	f.answer(t, submissionID, f.name, "Ada", intPtr(0))

	t.Run("submit before completing fails", func(t *testing.T) {
		_, err := Submit(ctx, testInstanceID, colID, submissionID, testApplicant)
		var stateErr *runner.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Errorf("expected invalid state, got %v", err)
		}
	})

	overview, err = ToggleFormCompleted(ctx, testInstanceID, colID, submissionID, f.form.ID.Hex(), true, testApplicant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overview.Forms[0].Status != types.SUBMISSION_STATUS_COMPLETED {
		t.Errorf("expected the form to be completed, got %s", overview.Forms[0].Status)
	}

	overview, err = Submit(ctx, testInstanceID, colID, submissionID, testApplicant)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overview.Status != types.SUBMISSION_STATUS_COMPLETED || overview.SubmittedAt == nil {
		t.Errorf("unexpected overview after submit: %+v", overview)
	}

	t.Run("answering after submit is rejected", func(t *testing.T) {
		_, err := SubmitAnswer(ctx, testInstanceID, colID, submissionID, f.hours.ID.Hex(), float64(50), nil)
		var stateErr *runner.InvalidStateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected invalid state, got %v", err)
		}
		s, _ := f.db.GetSubmissionByID(ctx, testInstanceID, submissionID)
		h := runner.NewSubmissionHelper(f.collection, s)
		if a := h.GetAnswer(f.hours, nil); a == nil || a.ExportText() != "40" {
			t.Errorf("stored answer changed: %v", a)
		}
	})
}

func TestSubmissionErrors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	colID := f.collection.ID.Hex()
	submissionID := f.start(t, types.SUBMISSION_MODE_LIVE)

	t.Run("unknown submission", func(t *testing.T) {
		if _, err := GetSubmissionOverview(ctx, testInstanceID, colID, primitive.NewObjectID().Hex()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
		if _, err := GetSubmissionOverview(ctx, testInstanceID, colID, "xyz"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("submission of another collection", func(t *testing.T) {
		other, err := CreateCollection(ctx, testInstanceID, "Other")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := GetSubmissionOverview(ctx, testInstanceID, other.ID.Hex(), submissionID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("invalid value", func(t *testing.T) {
		if _, err := SubmitAnswer(ctx, testInstanceID, colID, submissionID, f.hours.ID.Hex(), "many", nil); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})

	t.Run("missing add another index", func(t *testing.T) {
		_, err := SubmitAnswer(ctx, testInstanceID, colID, submissionID, f.name.ID.Hex(), "Ada", nil)
		if !errors.Is(err, runner.ErrIndexRequired) {
			t.Errorf("expected index required, got %v", err)
		}
	})

	t.Run("unknown mode", func(t *testing.T) {
		if _, err := StartSubmission(ctx, testInstanceID, colID, "PREVIEW", testApplicant); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})
}

func TestAddAnotherRemoval(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	colID := f.collection.ID.Hex()
	submissionID := f.start(t, types.SUBMISSION_MODE_TEST)

	f.answer(t, submissionID, f.name, "Ada", intPtr(0))
	f.answer(t, submissionID, f.name, "Grace", intPtr(1))

	if _, err := RemoveAddAnotherAnswer(ctx, testInstanceID, colID, submissionID, f.people.ID.Hex(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, _ := f.db.GetSubmissionByID(ctx, testInstanceID, submissionID)
	h := runner.NewSubmissionHelper(f.collection, s)
	if n := h.GetAddAnotherCount(f.people); n != 1 {
		t.Fatalf("expected one entry, got %d", n)
	}
	if a := h.GetAnswer(f.name, intPtr(0)); a == nil || a.ExportText() != "Grace" {
		t.Errorf("unexpected remaining answer: %v", a)
	}

	if _, err := RemoveAddAnotherAnswer(ctx, testInstanceID, colID, submissionID, f.people.ID.Hex(), 5); !errors.Is(err, runner.ErrIndexOutOfRange) {
		t.Errorf("expected index out of range, got %v", err)
	}
	if _, err := RemoveAddAnotherAnswer(ctx, testInstanceID, colID, submissionID, f.hours.ID.Hex(), 0); !errors.Is(err, runner.ErrNotAddAnother) {
		t.Errorf("expected not add another, got %v", err)
	}
}

func TestExportAndCleanup(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	colID := f.collection.ID.Hex()

	testID := f.start(t, types.SUBMISSION_MODE_TEST)
	f.answer(t, testID, f.hours, float64(12), nil)
	f.start(t, types.SUBMISSION_MODE_LIVE)

	t.Run("csv of test submissions", func(t *testing.T) {
		buf := &bytes.Buffer{}
		n, err := ExportSubmissions(ctx, testInstanceID, colID, types.SUBMISSION_MODE_TEST, exporter.FORMAT_CSV, buf)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != 1 {
			t.Errorf("expected one submission, got %d", n)
		}
		records, err := csv.NewReader(buf).ReadAll()
		if err != nil || len(records) != 2 {
			t.Fatalf("unexpected csv: %v %v", records, err)
		}
		if records[1][5] != "12" || records[1][6] != exporter.NOT_ASKED {
			t.Errorf("unexpected answers: %v", records[1][5:])
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		if _, err := ExportSubmissions(ctx, testInstanceID, colID, "", "xml", &bytes.Buffer{}); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})

	t.Run("delete test submissions", func(t *testing.T) {
		n, err := DeleteTestSubmissions(ctx, testInstanceID, colID, testApplicant)
		if err != nil || n != 1 {
			t.Errorf("expected one deleted submission, got %d %v", n, err)
		}
		all, _ := f.db.GetSubmissionsForCollection(ctx, testInstanceID, f.collection.ID, "")
		if len(all) != 1 || all[0].Mode != types.SUBMISSION_MODE_LIVE {
			t.Errorf("live submission should remain: %v", all)
		}
	})
}

func TestStructureEdits(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	colID := f.collection.ID.Hex()

	t.Run("re-parent", func(t *testing.T) {
		if err := MoveComponentToParent(ctx, testInstanceID, colID, f.name.ID.Hex(), f.form.ID.Hex()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c, _ := GetCollection(ctx, testInstanceID, colID)
		name := c.FindComponent(f.name.ID)
		if name.Parent != nil || name.AddAnotherContainer() != nil || len(c.Forms()[0].Children()) != 4 {
			t.Errorf("unexpected tree after move: parent=%v", name.Parent)
		}
		if err := MoveComponentToParent(ctx, testInstanceID, colID, f.people.ID.Hex(), f.people.ID.Hex()); err == nil {
			t.Error("a group cannot become its own parent")
		}
	})

	t.Run("update component", func(t *testing.T) {
		q, err := UpdateComponent(ctx, testInstanceID, colID, f.minutes.ID.Hex(), "Minutes for (("+f.hours.SafeQuestionID()+")) hours?", "", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q.Name != "minutes" {
			t.Errorf("name should be kept, got %s", q.Name)
		}
		if _, err := UpdateComponent(ctx, testInstanceID, colID, f.minutes.ID.Hex(), "Minutes?", "", "hours"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected invalid input for a duplicate name, got %v", err)
		}
	})

	t.Run("question page interpolates answers", func(t *testing.T) {
		submissionID := f.start(t, types.SUBMISSION_MODE_TEST)
		page, err := GetQuestionPage(ctx, testInstanceID, colID, submissionID, f.minutes.ID.Hex(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Text != "Minutes for ((hours)) hours?" || page.Visible || page.NextQuestionID != nil {
			t.Errorf("unexpected page: %+v", page)
		}

		f.answer(t, submissionID, f.hours, "45", nil)
		page, err = GetQuestionPage(ctx, testInstanceID, colID, submissionID, f.minutes.ID.Hex(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if page.Text != "Minutes for 45 hours?" || !page.Visible || page.PreviousQuestionID == nil || *page.PreviousQuestionID != f.hours.ID {
			t.Errorf("unexpected page: %+v", page)
		}
	})

	t.Run("delete form and section", func(t *testing.T) {
		if err := DeleteForm(ctx, testInstanceID, colID, f.form.ID.Hex()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c, _ := GetCollection(ctx, testInstanceID, colID)
		if len(c.Forms()) != 0 || len(c.References) != 0 {
			t.Errorf("expected no forms and no references, got %d forms", len(c.Forms()))
		}

		sectionID := c.Sections[0].ID
		if err := DeleteSection(ctx, testInstanceID, colID, sectionID.Hex()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		c, _ = GetCollection(ctx, testInstanceID, colID)
		if len(c.Sections) != 1 || c.Sections[0].ID == sectionID {
			t.Errorf("expected a new default section, got %+v", c.Sections)
		}
	})
}
