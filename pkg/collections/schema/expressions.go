package schema

import (
	"fmt"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/expressionengine"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddManagedExpression attaches a managed condition (to any component) or validation (to a
// question, about its own answer).
func (e *Editor) AddManagedExpression(
	componentID primitive.ObjectID,
	expressionType types.ExpressionType,
	managedName string,
	context types.ManagedExpressionContext,
	actor string,
) (*types.ExpressionDef, error) {
	c, err := e.findComponent(componentID)
	if err != nil {
		return nil, err
	}
	if err := checkExpressionType(c, expressionType); err != nil {
		return nil, err
	}

	managed, err := expressionengine.BuildManagedExpression(managedName, context)
	if err != nil {
		return nil, err
	}

	subjectRef := types.SafeQuestionID(context.QuestionID)
	subject := e.collection.FindComponent(context.QuestionID)
	if expressionType == types.EXPRESSION_TYPE_VALIDATION && context.QuestionID != c.ID {
		return nil, &InvalidExpressionReferenceError{ComponentID: c.ID, Reference: subjectRef, Reason: "validations can only check the question's own answer"}
	}
	if err := e.validateReference(c, subject, subjectRef, expressionType == types.EXPRESSION_TYPE_VALIDATION); err != nil {
		return nil, err
	}
	if !expressionengine.SupportsDataType(managedName, expressionType, subject.DataType) {
		return nil, &InvalidExpressionReferenceError{
			ComponentID: c.ID,
			Reference:   subjectRef,
			Reason:      fmt.Sprintf("%q cannot be used with %s questions", managedName, subject.DataType),
		}
	}

	// bounds taken from other questions
	for _, ref := range managed.ReferencedQuestions()[1:] {
		target := e.resolveReference(ref)
		if err := e.validateReference(c, target, ref, false); err != nil {
			return nil, err
		}
		if target.DataType != subject.DataType {
			return nil, &InvalidExpressionReferenceError{ComponentID: c.ID, Reference: ref, Reason: fmt.Sprintf("expected a %s question", subject.DataType)}
		}
	}

	mctx := managed.Context()
	for _, item := range append(append([]types.DataSourceItem{}, mctx.Items...), itemsOf(mctx.Item)...) {
		if _, ok := subject.FindDataSourceItem(item.Key); !ok {
			return nil, &InvalidExpressionReferenceError{ComponentID: c.ID, Reference: subjectRef, Reason: fmt.Sprintf("item %q is not part of the question", item.Key)}
		}
	}

	for _, existing := range c.Expressions {
		if existing.Type == expressionType && existing.ManagedName == managedName && existing.Context != nil && existing.Context.QuestionID == context.QuestionID {
			return nil, &DuplicateManagedExpressionError{ComponentID: c.ID, ManagedName: managedName}
		}
	}

	def := types.ExpressionDef{
		ID:          primitive.NewObjectID(),
		Type:        expressionType,
		ManagedName: managed.Name(),
		Context:     &mctx,
		Statement:   managed.Statement(),
		CreatedBy:   actor,
		CreatedAt:   e.now().UTC(),
	}
	c.Expressions = append(c.Expressions, def)
	e.syncReferences(c)
	return &def, nil
}

func itemsOf(item *types.DataSourceItem) []types.DataSourceItem {
	if item == nil {
		return nil
	}
	return []types.DataSourceItem{*item}
}

// AddFreeFormExpression attaches a statement written in the expression language.
func (e *Editor) AddFreeFormExpression(
	componentID primitive.ObjectID,
	expressionType types.ExpressionType,
	statement string,
	actor string,
) (*types.ExpressionDef, error) {
	c, err := e.findComponent(componentID)
	if err != nil {
		return nil, err
	}
	if err := checkExpressionType(c, expressionType); err != nil {
		return nil, err
	}

	exp, err := expressionengine.ParseStatement(statement)
	if err != nil {
		return nil, err
	}
	for _, ref := range expressionengine.References(exp) {
		if _, err := types.ParseSafeQuestionID(ref); err != nil {
			return nil, &InvalidExpressionReferenceError{ComponentID: c.ID, Reference: ref, Reason: "not a question identifier"}
		}
		if err := e.validateReference(c, e.resolveReference(ref), ref, expressionType == types.EXPRESSION_TYPE_VALIDATION); err != nil {
			return nil, err
		}
	}

	def := types.ExpressionDef{
		ID:        primitive.NewObjectID(),
		Type:      expressionType,
		Statement: statement,
		CreatedBy: actor,
		CreatedAt: e.now().UTC(),
	}
	c.Expressions = append(c.Expressions, def)
	e.syncReferences(c)
	return &def, nil
}

func checkExpressionType(c *types.Component, expressionType types.ExpressionType) error {
	switch expressionType {
	case types.EXPRESSION_TYPE_CONDITION:
		return nil
	case types.EXPRESSION_TYPE_VALIDATION:
		if !c.IsQuestion() {
			return &TreeError{ComponentID: c.ID, Message: "only questions can have validations"}
		}
		return nil
	default:
		return fmt.Errorf("unknown expression type: %s", expressionType)
	}
}

func (e *Editor) RemoveExpression(componentID primitive.ObjectID, expressionID primitive.ObjectID) error {
	c, err := e.findComponent(componentID)
	if err != nil {
		return err
	}
	kept := []types.ExpressionDef{}
	for _, def := range c.Expressions {
		if def.ID != expressionID {
			kept = append(kept, def)
		}
	}
	if len(kept) == len(c.Expressions) {
		return fmt.Errorf("expression %s: %w", expressionID.Hex(), ErrNotFound)
	}
	c.Expressions = kept
	e.syncReferences(c)
	return nil
}
