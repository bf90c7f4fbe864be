package runner

import (
	"context"
	"errors"
	"log/slog"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/expressionengine"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

// conditionsOf collects the conditions of the component and its ancestors, outermost first.
func conditionsOf(component *types.Component) []types.ExpressionDef {
	conditions := []types.ExpressionDef{}
	for _, a := range component.Ancestors() {
		conditions = append(conditions, a.Conditions()...)
	}
	return append(conditions, component.Conditions()...)
}

// IsComponentVisible reports whether the component is currently asked. Inside an add-another
// container, index selects the instance whose answers are used; without an index the component
// counts as visible if it is visible in at least one instance, or in a fresh instance when there
// are none yet.
func (h *SubmissionHelper) IsComponentVisible(component *types.Component, index *int) bool {
	conditions := conditionsOf(component)
	if len(conditions) == 0 {
		return true
	}

	container := component.AddAnotherContainer()
	if container == nil {
		return h.evaluateConditions(component, conditions, h.evaluationContext())
	}
	if index != nil {
		return h.evaluateConditions(component, conditions, h.instanceContext(container, *index))
	}

	count := h.GetAddAnotherCount(container)
	if count == 0 {
		return h.evaluateConditions(component, conditions, h.instanceContext(container, 0))
	}
	for i := 0; i < count; i++ {
		if h.evaluateConditions(component, conditions, h.instanceContext(container, i)) {
			return true
		}
	}
	return false
}

func (h *SubmissionHelper) evaluateConditions(component *types.Component, conditions []types.ExpressionDef, ctx *expressionengine.EvalContext) bool {
	for _, def := range conditions {
		exp, err := h.compile(def)
		if err != nil {
			slog.Error("condition could not be compiled, hiding component",
				slog.String("componentID", component.ID.Hex()),
				slog.String("expressionID", def.ID.Hex()),
				slog.String("error", err.Error()),
			)
			return false
		}
		ok, err := expressionengine.EvaluateCondition(exp, ctx)
		if err != nil {
			level := slog.LevelError
			if errors.Is(err, expressionengine.ErrUndefinedVariable) {
				level = slog.LevelDebug
			}
			slog.Log(context.Background(), level, "condition could not be evaluated, hiding component",
				slog.String("componentID", component.ID.Hex()),
				slog.String("expressionID", def.ID.Hex()),
				slog.String("error", err.Error()),
			)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// VisibleQuestions returns the questions of the form that are currently asked, in form order.
func (h *SubmissionHelper) VisibleQuestions(form *types.Form) []*types.Component {
	if res, ok := h.memo.visible[form.ID]; ok {
		return res
	}
	res := []*types.Component{}
	for _, q := range h.memo.tree.Questions(form) {
		if h.IsComponentVisible(q, nil) {
			res = append(res, q)
		}
	}
	h.memo.visible[form.ID] = res
	return res
}

// AllVisibleQuestions returns the visible questions of every form, keyed by id.
func (h *SubmissionHelper) AllVisibleQuestions() map[string]*types.Component {
	res := map[string]*types.Component{}
	for _, form := range h.collection.Forms() {
		for _, q := range h.VisibleQuestions(form) {
			res[q.ID.Hex()] = q
		}
	}
	return res
}
