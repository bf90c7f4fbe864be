package expressionengine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

const (
	MANAGED_GREATER_THAN = "Greater than"
	MANAGED_LESS_THAN    = "Less than"
	MANAGED_BETWEEN      = "Between"
	MANAGED_ANY_OF       = "Any of"
	MANAGED_SPECIFICALLY = "Specifically"
	MANAGED_IS_YES       = "Yes"
	MANAGED_IS_NO        = "No"
)

var ErrUnknownManagedExpression = errors.New("unknown managed expression")

// ManagedExpression is a named, parameterised expression template. Its parameters are stored as a
// ManagedExpressionContext and it renders to both a statement and a structured expression.
type ManagedExpression interface {
	Name() string
	Context() types.ManagedExpressionContext
	// ReferencedQuestions lists the question identifiers (q_<id>) the expression reads, the
	// subject question first.
	ReferencedQuestions() []string
	Statement() string
	Expression() types.Expression
	// Message is shown when a validation fails; it may contain ((q_<id>)) references.
	Message() string
	Description() string
}

type managedDefinition struct {
	conditionDataTypes  []types.DataType
	validationDataTypes []types.DataType
	build               func(ctx types.ManagedExpressionContext) (ManagedExpression, error)
}

var managedExpressions = map[string]managedDefinition{
	MANAGED_GREATER_THAN: {
		conditionDataTypes:  []types.DataType{types.DATA_TYPE_INTEGER},
		validationDataTypes: []types.DataType{types.DATA_TYPE_INTEGER},
		build:               newGreaterThan,
	},
	MANAGED_LESS_THAN: {
		conditionDataTypes:  []types.DataType{types.DATA_TYPE_INTEGER},
		validationDataTypes: []types.DataType{types.DATA_TYPE_INTEGER},
		build:               newLessThan,
	},
	MANAGED_BETWEEN: {
		conditionDataTypes:  []types.DataType{types.DATA_TYPE_INTEGER},
		validationDataTypes: []types.DataType{types.DATA_TYPE_INTEGER},
		build:               newBetween,
	},
	MANAGED_ANY_OF: {
		conditionDataTypes: []types.DataType{types.DATA_TYPE_RADIOS},
		build:              newAnyOf,
	},
	MANAGED_SPECIFICALLY: {
		conditionDataTypes: []types.DataType{types.DATA_TYPE_CHECKBOXES},
		build:              newSpecifically,
	},
	MANAGED_IS_YES: {
		conditionDataTypes: []types.DataType{types.DATA_TYPE_YES_NO},
		build: func(ctx types.ManagedExpressionContext) (ManagedExpression, error) {
			return yesNo{questionContext: questionContext(ctx), expected: true}, nil
		},
	},
	MANAGED_IS_NO: {
		conditionDataTypes: []types.DataType{types.DATA_TYPE_YES_NO},
		build: func(ctx types.ManagedExpressionContext) (ManagedExpression, error) {
			return yesNo{questionContext: questionContext(ctx), expected: false}, nil
		},
	},
}

// BuildManagedExpression validates the parameters and returns the managed expression.
func BuildManagedExpression(name string, ctx types.ManagedExpressionContext) (ManagedExpression, error) {
	def, ok := managedExpressions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownManagedExpression, name)
	}
	if ctx.QuestionID.IsZero() {
		return nil, errors.New("managed expression needs a question")
	}
	return def.build(ctx)
}

// SupportsDataType reports whether the managed expression can be used on a question with the
// given data type as a condition or a validation.
func SupportsDataType(name string, expressionType types.ExpressionType, dataType types.DataType) bool {
	def, ok := managedExpressions[name]
	if !ok {
		return false
	}
	supported := def.conditionDataTypes
	if expressionType == types.EXPRESSION_TYPE_VALIDATION {
		supported = def.validationDataTypes
	}
	for _, dt := range supported {
		if dt == dataType {
			return true
		}
	}
	return false
}

// ManagedExpressionNames lists the managed expressions usable for the data type.
func ManagedExpressionNames(expressionType types.ExpressionType, dataType types.DataType) []string {
	names := []string{}
	for _, name := range []string{MANAGED_GREATER_THAN, MANAGED_LESS_THAN, MANAGED_BETWEEN, MANAGED_ANY_OF, MANAGED_SPECIFICALLY, MANAGED_IS_YES, MANAGED_IS_NO} {
		if SupportsDataType(name, expressionType, dataType) {
			names = append(names, name)
		}
	}
	return names
}

type questionContext types.ManagedExpressionContext

func (q questionContext) ref() string {
	return types.SafeQuestionID(q.QuestionID)
}

func (q questionContext) subject() types.ExpressionArg {
	return expArg("getAnswer", strArg(q.ref()))
}

// bound is a numeric limit given either as a literal or as another question's answer.
type bound struct {
	value     *int64
	reference string
	inclusive bool
}

func newBound(value *int64, reference string, inclusive bool, label string) (bound, error) {
	if value == nil && reference == "" {
		return bound{}, fmt.Errorf("%s value is required", label)
	}
	if value != nil && reference != "" {
		return bound{}, fmt.Errorf("%s value and %s expression are mutually exclusive", label, label)
	}
	if reference != "" {
		if _, err := types.ParseSafeQuestionID(reference); err != nil {
			return bound{}, fmt.Errorf("%s expression: %w", label, err)
		}
	}
	return bound{value: value, reference: reference, inclusive: inclusive}, nil
}

func (b bound) arg() types.ExpressionArg {
	if b.reference != "" {
		return expArg("getAnswer", strArg(b.reference))
	}
	return numArg(float64(*b.value))
}

func (b bound) statement() string {
	if b.reference != "" {
		return b.reference
	}
	return strconv.FormatInt(*b.value, 10)
}

func (b bound) text() string {
	if b.reference != "" {
		return "((" + b.reference + "))"
	}
	return strconv.FormatInt(*b.value, 10)
}

func (b bound) refs() []string {
	if b.reference != "" {
		return []string{b.reference}
	}
	return nil
}

type greaterThan struct {
	questionContext
	minimum bound
}

func newGreaterThan(ctx types.ManagedExpressionContext) (ManagedExpression, error) {
	minimum, err := newBound(ctx.MinimumValue, ctx.MinimumExpression, ctx.MinimumInclusive, "minimum")
	if err != nil {
		return nil, err
	}
	return greaterThan{questionContext: questionContext(ctx), minimum: minimum}, nil
}

func (e greaterThan) Name() string { return MANAGED_GREATER_THAN }

func (e greaterThan) Context() types.ManagedExpressionContext {
	return types.ManagedExpressionContext{
		QuestionID:        e.QuestionID,
		MinimumValue:      e.minimum.value,
		MinimumExpression: e.minimum.reference,
		MinimumInclusive:  e.minimum.inclusive,
	}
}

func (e greaterThan) ReferencedQuestions() []string {
	return append([]string{e.ref()}, e.minimum.refs()...)
}

func (e greaterThan) operator() (string, string) {
	if e.minimum.inclusive {
		return ">=", "gte"
	}
	return ">", "gt"
}

func (e greaterThan) Statement() string {
	op, _ := e.operator()
	return fmt.Sprintf("%s %s %s", e.ref(), op, e.minimum.statement())
}

func (e greaterThan) Expression() types.Expression {
	_, name := e.operator()
	return types.Expression{Name: name, Data: []types.ExpressionArg{e.subject(), e.minimum.arg()}}
}

func (e greaterThan) Message() string {
	if e.minimum.inclusive {
		return "The answer must be greater than or equal to " + e.minimum.text()
	}
	return "The answer must be greater than " + e.minimum.text()
}

func (e greaterThan) Description() string {
	if e.minimum.inclusive {
		return "is greater than or equal to " + e.minimum.text()
	}
	return "is greater than " + e.minimum.text()
}

type lessThan struct {
	questionContext
	maximum bound
}

func newLessThan(ctx types.ManagedExpressionContext) (ManagedExpression, error) {
	maximum, err := newBound(ctx.MaximumValue, ctx.MaximumExpression, ctx.MaximumInclusive, "maximum")
	if err != nil {
		return nil, err
	}
	return lessThan{questionContext: questionContext(ctx), maximum: maximum}, nil
}

func (e lessThan) Name() string { return MANAGED_LESS_THAN }

func (e lessThan) Context() types.ManagedExpressionContext {
	return types.ManagedExpressionContext{
		QuestionID:        e.QuestionID,
		MaximumValue:      e.maximum.value,
		MaximumExpression: e.maximum.reference,
		MaximumInclusive:  e.maximum.inclusive,
	}
}

func (e lessThan) ReferencedQuestions() []string {
	return append([]string{e.ref()}, e.maximum.refs()...)
}

func (e lessThan) operator() (string, string) {
	if e.maximum.inclusive {
		return "<=", "lte"
	}
	return "<", "lt"
}

func (e lessThan) Statement() string {
	op, _ := e.operator()
	return fmt.Sprintf("%s %s %s", e.ref(), op, e.maximum.statement())
}

func (e lessThan) Expression() types.Expression {
	_, name := e.operator()
	return types.Expression{Name: name, Data: []types.ExpressionArg{e.subject(), e.maximum.arg()}}
}

func (e lessThan) Message() string {
	if e.maximum.inclusive {
		return "The answer must be less than or equal to " + e.maximum.text()
	}
	return "The answer must be less than " + e.maximum.text()
}

func (e lessThan) Description() string {
	if e.maximum.inclusive {
		return "is less than or equal to " + e.maximum.text()
	}
	return "is less than " + e.maximum.text()
}

type between struct {
	questionContext
	minimum bound
	maximum bound
}

func newBetween(ctx types.ManagedExpressionContext) (ManagedExpression, error) {
	minimum, err := newBound(ctx.MinimumValue, ctx.MinimumExpression, ctx.MinimumInclusive, "minimum")
	if err != nil {
		return nil, err
	}
	maximum, err := newBound(ctx.MaximumValue, ctx.MaximumExpression, ctx.MaximumInclusive, "maximum")
	if err != nil {
		return nil, err
	}
	if minimum.value != nil && maximum.value != nil && *minimum.value >= *maximum.value {
		return nil, errors.New("minimum value must be lower than maximum value")
	}
	return between{questionContext: questionContext(ctx), minimum: minimum, maximum: maximum}, nil
}

func (e between) Name() string { return MANAGED_BETWEEN }

func (e between) Context() types.ManagedExpressionContext {
	return types.ManagedExpressionContext{
		QuestionID:        e.QuestionID,
		MinimumValue:      e.minimum.value,
		MinimumExpression: e.minimum.reference,
		MinimumInclusive:  e.minimum.inclusive,
		MaximumValue:      e.maximum.value,
		MaximumExpression: e.maximum.reference,
		MaximumInclusive:  e.maximum.inclusive,
	}
}

func (e between) ReferencedQuestions() []string {
	refs := append([]string{e.ref()}, e.minimum.refs()...)
	return append(refs, e.maximum.refs()...)
}

func (e between) parts() (greaterThan, lessThan) {
	return greaterThan{questionContext: e.questionContext, minimum: e.minimum}, lessThan{questionContext: e.questionContext, maximum: e.maximum}
}

func (e between) Statement() string {
	gt, lt := e.parts()
	return gt.Statement() + " and " + lt.Statement()
}

func (e between) Expression() types.Expression {
	gt, lt := e.parts()
	gtExp := gt.Expression()
	ltExp := lt.Expression()
	return types.Expression{Name: "and", Data: []types.ExpressionArg{
		{DType: "exp", Exp: &gtExp},
		{DType: "exp", Exp: &ltExp},
	}}
}

func (e between) Message() string {
	return fmt.Sprintf("The answer must be between %s%s and %s%s",
		e.minimum.text(), inclusiveSuffix(e.minimum.inclusive),
		e.maximum.text(), inclusiveSuffix(e.maximum.inclusive),
	)
}

func (e between) Description() string {
	return fmt.Sprintf("is between %s%s and %s%s",
		e.minimum.text(), inclusiveSuffix(e.minimum.inclusive),
		e.maximum.text(), inclusiveSuffix(e.maximum.inclusive),
	)
}

func inclusiveSuffix(inclusive bool) string {
	if inclusive {
		return " (inclusive)"
	}
	return " (exclusive)"
}

type anyOf struct {
	questionContext
	items []types.DataSourceItem
}

func newAnyOf(ctx types.ManagedExpressionContext) (ManagedExpression, error) {
	if len(ctx.Items) == 0 {
		return nil, errors.New("at least one item is required")
	}
	return anyOf{questionContext: questionContext(ctx), items: ctx.Items}, nil
}

func (e anyOf) Name() string { return MANAGED_ANY_OF }

func (e anyOf) Context() types.ManagedExpressionContext {
	return types.ManagedExpressionContext{QuestionID: e.QuestionID, Items: e.items}
}

func (e anyOf) ReferencedQuestions() []string { return []string{e.ref()} }

func (e anyOf) Statement() string {
	keys := make([]string, len(e.items))
	for i, item := range e.items {
		keys[i] = strconv.Quote(item.Key)
	}
	return fmt.Sprintf("%s in [%s]", e.ref(), strings.Join(keys, ", "))
}

func (e anyOf) Expression() types.Expression {
	keys := make([]types.ExpressionArg, len(e.items))
	for i, item := range e.items {
		keys[i] = strArg(item.Key)
	}
	return types.Expression{Name: "in", Data: []types.ExpressionArg{e.subject(), expArg("set", keys...)}}
}

func (e anyOf) labels() string {
	labels := make([]string, len(e.items))
	for i, item := range e.items {
		labels[i] = item.Label
	}
	return strings.Join(labels, ", ")
}

func (e anyOf) Message() string {
	return "The answer must be one of " + e.labels()
}

func (e anyOf) Description() string {
	return "is any of " + e.labels()
}

type specifically struct {
	questionContext
	item types.DataSourceItem
}

func newSpecifically(ctx types.ManagedExpressionContext) (ManagedExpression, error) {
	if ctx.Item == nil || ctx.Item.Key == "" {
		return nil, errors.New("an item is required")
	}
	return specifically{questionContext: questionContext(ctx), item: *ctx.Item}, nil
}

func (e specifically) Name() string { return MANAGED_SPECIFICALLY }

func (e specifically) Context() types.ManagedExpressionContext {
	item := e.item
	return types.ManagedExpressionContext{QuestionID: e.QuestionID, Item: &item}
}

func (e specifically) ReferencedQuestions() []string { return []string{e.ref()} }

func (e specifically) Statement() string {
	return fmt.Sprintf("%s in %s", strconv.Quote(e.item.Key), e.ref())
}

func (e specifically) Expression() types.Expression {
	return types.Expression{Name: "in", Data: []types.ExpressionArg{strArg(e.item.Key), e.subject()}}
}

func (e specifically) Message() string {
	return e.item.Label + " must be selected"
}

func (e specifically) Description() string {
	return "has " + e.item.Label + " selected"
}

type yesNo struct {
	questionContext
	expected bool
}

func (e yesNo) Name() string {
	if e.expected {
		return MANAGED_IS_YES
	}
	return MANAGED_IS_NO
}

func (e yesNo) Context() types.ManagedExpressionContext {
	return types.ManagedExpressionContext{QuestionID: e.QuestionID}
}

func (e yesNo) ReferencedQuestions() []string { return []string{e.ref()} }

func (e yesNo) Statement() string {
	return fmt.Sprintf("%s == %t", e.ref(), e.expected)
}

func (e yesNo) Expression() types.Expression {
	return types.Expression{Name: "eq", Data: []types.ExpressionArg{e.subject(), boolArg(e.expected)}}
}

func (e yesNo) Message() string {
	if e.expected {
		return "The answer must be yes"
	}
	return "The answer must be no"
}

func (e yesNo) Description() string {
	if e.expected {
		return "is yes"
	}
	return "is no"
}
