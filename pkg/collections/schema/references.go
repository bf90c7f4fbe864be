package schema

import (
	"log/slog"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/expressionengine"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// validateReference checks that component may read the answer of target: same form, target
// earlier in the form, and target's add-another group (if any) enclosing the component.
// allowSelf permits a question reading its own answer (validations).
func (e *Editor) validateReference(component *types.Component, target *types.Component, reference string, allowSelf bool) *InvalidExpressionReferenceError {
	invalid := func(reason string) *InvalidExpressionReferenceError {
		return &InvalidExpressionReferenceError{ComponentID: component.ID, Reference: reference, Reason: reason}
	}

	if target == nil {
		return invalid("question not found")
	}
	if !target.IsQuestion() {
		return invalid("only questions can be referenced")
	}
	if target.ID == component.ID {
		if allowSelf {
			return nil
		}
		return invalid("a component cannot depend on itself")
	}
	if target.Form == nil || component.Form == nil || target.Form.ID != component.Form.ID {
		return invalid("question is in another form")
	}
	if e.cache.Position(target.Form, target.ID) >= e.cache.Position(component.Form, component.ID) {
		return invalid("question does not come before the component")
	}
	if container := target.AddAnotherContainer(); container != nil && !component.IsDescendantOf(container) {
		return invalid("question is inside an add another group the component is not part of")
	}
	return nil
}

func (e *Editor) resolveReference(reference string) *types.Component {
	id, err := types.ParseSafeQuestionID(reference)
	if err != nil {
		return nil
	}
	return e.collection.FindComponent(id)
}

func (e *Editor) checkInterpolations(c *types.Component) error {
	for _, text := range []string{c.Text, c.Hint} {
		for _, ref := range expressionengine.InterpolationReferences(text) {
			if err := e.validateReference(c, e.resolveReference(ref), ref, false); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkFormReferences re-validates every recorded reference of components in the form, e.g.
// after a move. The first broken dependency is reported.
func (e *Editor) checkFormReferences(form *types.Form) error {
	inForm := map[primitive.ObjectID]bool{}
	for _, c := range e.cache.AllComponents(form) {
		inForm[c.ID] = true
	}

	for _, r := range e.collection.References {
		if !inForm[r.ComponentID] && !inForm[r.DependsOnComponentID] {
			continue
		}
		component := e.collection.FindComponent(r.ComponentID)
		target := e.collection.FindComponent(r.DependsOnComponentID)
		if component == nil {
			continue
		}
		if err := e.validateReference(component, target, types.SafeQuestionID(r.DependsOnComponentID), false); err != nil {
			return &DependencyError{ComponentID: r.DependsOnComponentID, DependentComponentIDs: []primitive.ObjectID{r.ComponentID}}
		}
	}
	return nil
}

// syncReferences recomputes the references recorded for the component from its expressions and
// interpolated texts.
func (e *Editor) syncReferences(c *types.Component) {
	refs := []types.ComponentReference{}
	for _, r := range e.collection.References {
		if r.ComponentID != c.ID {
			refs = append(refs, r)
		}
	}

	add := func(reference string, expressionID *primitive.ObjectID, itemKey string) {
		id, err := types.ParseSafeQuestionID(reference)
		if err != nil || id == c.ID {
			return
		}
		refs = append(refs, types.ComponentReference{
			ComponentID:                c.ID,
			DependsOnComponentID:       id,
			ExpressionID:               expressionID,
			DependsOnDataSourceItemKey: itemKey,
		})
	}

	for i := range c.Expressions {
		def := c.Expressions[i]
		exp, err := expressionengine.Compile(def)
		if err != nil {
			slog.Error("stored expression could not be compiled", slog.String("componentID", c.ID.Hex()), slog.String("expressionID", def.ID.Hex()), slog.String("error", err.Error()))
			continue
		}
		expressionID := def.ID
		for _, ref := range expressionengine.References(exp) {
			add(ref, &expressionID, "")
		}
		if def.Context != nil {
			subject := types.SafeQuestionID(def.Context.QuestionID)
			for _, item := range def.Context.Items {
				add(subject, &expressionID, item.Key)
			}
			if def.Context.Item != nil {
				add(subject, &expressionID, def.Context.Item.Key)
			}
		}
	}

	for _, text := range []string{c.Text, c.Hint} {
		for _, ref := range expressionengine.InterpolationReferences(text) {
			add(ref, nil, "")
		}
	}

	e.collection.References = refs
}
