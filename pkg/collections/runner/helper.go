package runner

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/answers"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/expressionengine"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SubmissionHelper answers every question about one submission of a collection (visibility,
// answers, statuses) and applies the runner mutations to it. It works on the in-memory snapshot
// it was created with; persisting the submission is the caller's job.
type SubmissionHelper struct {
	collection *types.Collection
	submission *types.Submission
	memo       *memo
	now        func() time.Time
}

// memo holds everything derived from the collection and the submission data. It lives as long
// as the helper and is reset after every mutation.
type memo struct {
	tree      *types.TreeCache
	compiled  map[primitive.ObjectID]types.Expression
	context   *expressionengine.EvalContext
	instances map[string]*expressionengine.EvalContext
	visible   map[primitive.ObjectID][]*types.Component
}

func newMemo() *memo {
	return &memo{
		tree:      types.NewTreeCache(),
		compiled:  map[primitive.ObjectID]types.Expression{},
		instances: map[string]*expressionengine.EvalContext{},
		visible:   map[primitive.ObjectID][]*types.Component{},
	}
}

func NewSubmissionHelper(collection *types.Collection, submission *types.Submission) *SubmissionHelper {
	collection.Link()
	if submission.Data == nil {
		submission.Data = map[string]interface{}{}
	}
	return &SubmissionHelper{
		collection: collection,
		submission: submission,
		memo:       newMemo(),
		now:        time.Now,
	}
}

// Invalidate drops all memoized state. Call it after changing the collection tree or the
// submission outside of the helper's own mutations.
func (h *SubmissionHelper) Invalidate() {
	h.memo = newMemo()
}

func (h *SubmissionHelper) Collection() *types.Collection {
	return h.collection
}

func (h *SubmissionHelper) Submission() *types.Submission {
	return h.submission
}

func (h *SubmissionHelper) Reference() string {
	return h.submission.Reference()
}

func (h *SubmissionHelper) IsTest() bool {
	return h.submission.Mode == types.SUBMISSION_MODE_TEST
}

func (h *SubmissionHelper) GetForm(formID primitive.ObjectID) (*types.Form, error) {
	form := h.collection.FindForm(formID)
	if form == nil {
		return nil, fmt.Errorf("form %s: %w", formID.Hex(), ErrNotFound)
	}
	return form, nil
}

func (h *SubmissionHelper) GetComponent(componentID primitive.ObjectID) (*types.Component, error) {
	c := h.collection.FindComponent(componentID)
	if c == nil {
		return nil, fmt.Errorf("component %s: %w", componentID.Hex(), ErrNotFound)
	}
	return c, nil
}

func (h *SubmissionHelper) GetQuestion(questionID primitive.ObjectID) (*types.Component, error) {
	c, err := h.GetComponent(questionID)
	if err != nil {
		return nil, err
	}
	if !c.IsQuestion() {
		return nil, fmt.Errorf("question %s: %w", questionID.Hex(), ErrNotFound)
	}
	return c, nil
}

// Questions returns the flattened questions of the form, memoized.
func (h *SubmissionHelper) Questions(form *types.Form) []*types.Component {
	return h.memo.tree.Questions(form)
}

// Answers

func (h *SubmissionHelper) decode(question *types.Component, raw interface{}) answers.Answer {
	if raw == nil {
		return nil
	}
	answer, err := answers.FromSubmissionValue(question.DataType, raw)
	if err != nil {
		slog.Debug("stored answer could not be decoded, treating as unanswered",
			slog.String("submissionID", h.submission.ID.Hex()),
			slog.String("questionID", question.ID.Hex()),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return answer
}

// entries returns the stored instances of an add-another container.
func (h *SubmissionHelper) entries(container *types.Component) []map[string]interface{} {
	entries, err := answers.AsEntryList(h.submission.Data[container.ID.Hex()])
	if err != nil {
		slog.Debug("stored add another entries could not be decoded, treating as empty",
			slog.String("submissionID", h.submission.ID.Hex()),
			slog.String("containerID", container.ID.Hex()),
			slog.String("error", err.Error()),
		)
		return []map[string]interface{}{}
	}
	return entries
}

// GetAddAnotherCount is the number of instances stored for the container.
func (h *SubmissionHelper) GetAddAnotherCount(container *types.Component) int {
	return len(h.entries(container))
}

// GetAnswer returns the answer to the question, or nil if it has not been answered. Questions
// inside an add-another container need the instance index.
func (h *SubmissionHelper) GetAnswer(question *types.Component, index *int) answers.Answer {
	container := question.AddAnotherContainer()
	if container == nil {
		return h.decode(question, h.submission.Data[question.ID.Hex()])
	}
	if index == nil {
		return nil
	}
	entries := h.entries(container)
	if *index < 0 || *index >= len(entries) {
		return nil
	}
	return h.decode(question, entries[*index][question.ID.Hex()])
}

// GetAnswers returns one answer per add-another instance, nil where unanswered. For other
// questions it returns a single element list.
func (h *SubmissionHelper) GetAnswers(question *types.Component) []answers.Answer {
	container := question.AddAnotherContainer()
	if container == nil {
		return []answers.Answer{h.GetAnswer(question, nil)}
	}
	entries := h.entries(container)
	res := make([]answers.Answer, len(entries))
	for i, entry := range entries {
		res[i] = h.decode(question, entry[question.ID.Hex()])
	}
	return res
}

// Evaluation contexts

func (h *SubmissionHelper) evaluationContext() *expressionengine.EvalContext {
	if h.memo.context != nil {
		return h.memo.context
	}
	ctx := expressionengine.NewEvalContext()
	for _, form := range h.collection.Forms() {
		for _, q := range h.memo.tree.Questions(form) {
			ctx.Declare(q.SafeQuestionID(), q.DataType)
			if q.AddAnotherContainer() != nil {
				continue
			}
			if answer := h.GetAnswer(q, nil); answer != nil {
				ctx.SetAnswer(q.SafeQuestionID(), answer)
			}
		}
	}
	h.memo.context = ctx
	return ctx
}

func containerQuestions(tree *types.TreeCache, container *types.Component) []*types.Component {
	if container.IsQuestion() {
		return []*types.Component{container}
	}
	return tree.Questions(container)
}

// instanceContext layers the answers of one add-another instance over the submission context.
// An index past the stored instances gives an instance with nothing answered.
func (h *SubmissionHelper) instanceContext(container *types.Component, index int) *expressionengine.EvalContext {
	key := fmt.Sprintf("%s:%d", container.ID.Hex(), index)
	if ctx, ok := h.memo.instances[key]; ok {
		return ctx
	}
	ctx := h.evaluationContext().Child()
	for _, q := range containerQuestions(h.memo.tree, container) {
		ctx.Declare(q.SafeQuestionID(), q.DataType)
		if answer := h.GetAnswer(q, &index); answer != nil {
			ctx.SetAnswer(q.SafeQuestionID(), answer)
		}
	}
	h.memo.instances[key] = ctx
	return ctx
}

func (h *SubmissionHelper) compile(def types.ExpressionDef) (types.Expression, error) {
	if exp, ok := h.memo.compiled[def.ID]; ok {
		return exp, nil
	}
	exp, err := expressionengine.Compile(def)
	if err != nil {
		return types.Expression{}, err
	}
	h.memo.compiled[def.ID] = exp
	return exp, nil
}

// Interpolate replaces ((q_<id>)) references in text with the export text of the answers.
// Unanswered questions render as ((question name)).
func (h *SubmissionHelper) Interpolate(text string, index *int) string {
	return expressionengine.Interpolate(text, func(ref string) string {
		id, err := types.ParseSafeQuestionID(ref)
		if err != nil {
			return "((" + ref + "))"
		}
		q := h.collection.FindComponent(id)
		if q == nil || !q.IsQuestion() {
			return "((" + ref + "))"
		}
		if answer := h.GetAnswer(q, index); answer != nil {
			return answer.ExportText()
		}
		return "((" + q.Name + "))"
	})
}
