package expressionengine

import (
	"errors"
	"fmt"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/answers"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

var ErrUndefinedVariable = errors.New("undefined variable")

// EvalContext maps question identifiers (q_<id>) to values. A child context overrides some
// identifiers and falls back to its parent for the rest.
type EvalContext struct {
	values   map[string]Value
	answered map[string]bool
	parent   *EvalContext
}

func NewEvalContext() *EvalContext {
	return &EvalContext{
		values:   map[string]Value{},
		answered: map[string]bool{},
	}
}

// Declare registers an identifier with the empty value of its data type.
func (ctx *EvalContext) Declare(name string, dataType types.DataType) {
	ctx.values[name] = EmptyValueFor(dataType)
	ctx.answered[name] = false
}

// SetAnswer registers an identifier as answered.
func (ctx *EvalContext) SetAnswer(name string, answer answers.Answer) {
	if answer == nil {
		ctx.values[name] = NullValue()
		ctx.answered[name] = false
		return
	}
	ctx.values[name] = ValueFromAnswer(answer)
	ctx.answered[name] = true
}

func (ctx *EvalContext) Child() *EvalContext {
	c := NewEvalContext()
	c.parent = ctx
	return c
}

func (ctx *EvalContext) Lookup(name string) (Value, error) {
	for current := ctx; current != nil; current = current.parent {
		if v, ok := current.values[name]; ok {
			return v, nil
		}
	}
	return NullValue(), fmt.Errorf("%w: %s", ErrUndefinedVariable, name)
}

func (ctx *EvalContext) IsAnswered(name string) (bool, error) {
	for current := ctx; current != nil; current = current.parent {
		if a, ok := current.answered[name]; ok {
			return a, nil
		}
	}
	return false, fmt.Errorf("%w: %s", ErrUndefinedVariable, name)
}

func (ctx *EvalContext) Has(name string) bool {
	_, err := ctx.Lookup(name)
	return err == nil
}

// EmptyValueFor is the value an unanswered question of the data type evaluates to.
func EmptyValueFor(dataType types.DataType) Value {
	switch dataType {
	case types.DATA_TYPE_TEXT_SINGLE_LINE, types.DATA_TYPE_TEXT_MULTI_LINE, types.DATA_TYPE_EMAIL, types.DATA_TYPE_URL:
		return StringValue("")
	case types.DATA_TYPE_CHECKBOXES:
		return SetValue()
	default:
		return NullValue()
	}
}

func ValueFromAnswer(answer answers.Answer) Value {
	switch a := answer.(type) {
	case answers.TextSingleLineAnswer:
		return StringValue(string(a))
	case answers.TextMultiLineAnswer:
		return StringValue(string(a))
	case answers.EmailAnswer:
		return StringValue(string(a))
	case answers.URLAnswer:
		return StringValue(string(a))
	case answers.IntegerAnswer:
		return NumberValue(float64(a.Value))
	case answers.YesNoAnswer:
		return BoolValue(bool(a))
	case answers.SingleChoiceAnswer:
		return StringValue(a.Key)
	case answers.MultipleChoiceAnswer:
		return StringSetValue(a.Keys()...)
	case answers.DateAnswer:
		return StringValue(a.IsoDate())
	default:
		return NullValue()
	}
}
