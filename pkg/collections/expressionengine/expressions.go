package expressionengine

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

var (
	ErrInvalidEvaluationResult = errors.New("expression did not evaluate to a boolean")
	errCouldNotCast            = errors.New("could not cast arguments")
)

func ExpressionEval(expression types.Expression, evalCtx *EvalContext) (val Value, err error) {
	switch expression.Name {
	case "value":
		val, err = evalCtx.value(expression)
	case "getAnswer":
		val, err = evalCtx.getAnswer(expression)
	case "isAnswered":
		val, err = evalCtx.isAnswered(expression)
	case "countSelected":
		val, err = evalCtx.countSelected(expression)
	case "set":
		val, err = evalCtx.set(expression)
	// comparisons
	case "eq":
		val, err = evalCtx.eq(expression)
	case "neq":
		val, err = evalCtx.neq(expression)
	case "lt":
		val, err = evalCtx.compare(expression, func(c int) bool { return c < 0 })
	case "lte":
		val, err = evalCtx.compare(expression, func(c int) bool { return c <= 0 })
	case "gt":
		val, err = evalCtx.compare(expression, func(c int) bool { return c > 0 })
	case "gte":
		val, err = evalCtx.compare(expression, func(c int) bool { return c >= 0 })
	case "in":
		val, err = evalCtx.in(expression, false)
	case "contains":
		val, err = evalCtx.in(expression, true)
	// logic
	case "and":
		val, err = evalCtx.and(expression)
	case "or":
		val, err = evalCtx.or(expression)
	case "not":
		val, err = evalCtx.not(expression)
	// arithmetic
	case "sum":
		val, err = evalCtx.sum(expression)
	case "neg":
		val, err = evalCtx.neg(expression)
	default:
		err = fmt.Errorf("expression name not known: %s", expression.Name)
		slog.Debug("unexpected error during expression eval", slog.String("error", err.Error()))
		return
	}
	return
}

func (ctx *EvalContext) ExpressionArgResolver(arg types.ExpressionArg) (Value, error) {
	switch arg.DType {
	case "num":
		return NumberValue(arg.Num), nil
	case "exp":
		if arg.Exp == nil {
			return NullValue(), errors.New("missing argument - expected expression, but was empty")
		}
		return ExpressionEval(*arg.Exp, ctx)
	case "str":
		return StringValue(arg.Str), nil
	case "bool":
		return BoolValue(arg.Bool), nil
	case "null":
		return NullValue(), nil
	default:
		return StringValue(arg.Str), nil
	}
}

// EvaluateCondition runs a compiled expression that has to produce a boolean.
func EvaluateCondition(expression types.Expression, evalCtx *EvalContext) (bool, error) {
	val, err := ExpressionEval(expression, evalCtx)
	if err != nil {
		return false, err
	}
	if val.Kind != BOOL_VALUE {
		return false, fmt.Errorf("%w: got %s", ErrInvalidEvaluationResult, val.Kind)
	}
	return val.Bool, nil
}

func (ctx *EvalContext) value(exp types.Expression) (val Value, err error) {
	if len(exp.Data) != 1 {
		return val, errors.New("should have one argument")
	}
	return ctx.ExpressionArgResolver(exp.Data[0])
}

func (ctx *EvalContext) mustGetStrValue(arg types.ExpressionArg) (string, error) {
	v, err := ctx.ExpressionArgResolver(arg)
	if err != nil {
		return "", err
	}
	if v.Kind != STRING_VALUE {
		return "", errors.New("could not parse argument as string")
	}
	return v.Str, nil
}

func (ctx *EvalContext) getAnswer(exp types.Expression) (val Value, err error) {
	if len(exp.Data) != 1 {
		return val, errors.New("should have one argument")
	}
	name, err := ctx.mustGetStrValue(exp.Data[0])
	if err != nil {
		return val, err
	}
	return ctx.Lookup(name)
}

func (ctx *EvalContext) isAnswered(exp types.Expression) (val Value, err error) {
	if len(exp.Data) != 1 {
		return val, errors.New("should have one argument")
	}
	name, err := ctx.mustGetStrValue(exp.Data[0])
	if err != nil {
		return val, err
	}
	answered, err := ctx.IsAnswered(name)
	if err != nil {
		return val, err
	}
	return BoolValue(answered), nil
}

func (ctx *EvalContext) countSelected(exp types.Expression) (val Value, err error) {
	if len(exp.Data) != 1 {
		return val, errors.New("should have one argument")
	}
	arg, err := ctx.ExpressionArgResolver(exp.Data[0])
	if err != nil {
		return val, err
	}
	switch arg.Kind {
	case NULL_VALUE:
		return NumberValue(0), nil
	case SET_VALUE:
		return NumberValue(float64(len(arg.Set))), nil
	default:
		return val, fmt.Errorf("countSelected expects a set, got %s", arg.Kind)
	}
}

func (ctx *EvalContext) set(exp types.Expression) (val Value, err error) {
	items := make([]Value, 0, len(exp.Data))
	for _, d := range exp.Data {
		item, err := ctx.ExpressionArgResolver(d)
		if err != nil {
			return val, err
		}
		if item.Kind == SET_VALUE {
			return val, errors.New("sets can only hold scalar values")
		}
		items = append(items, item)
	}
	return SetValue(items...), nil
}

func (ctx *EvalContext) resolveTwo(exp types.Expression) (Value, Value, error) {
	if len(exp.Data) != 2 {
		return Value{}, Value{}, errors.New("not expected numbers of arguments")
	}
	arg1, err := ctx.ExpressionArgResolver(exp.Data[0])
	if err != nil {
		return Value{}, Value{}, err
	}
	arg2, err := ctx.ExpressionArgResolver(exp.Data[1])
	if err != nil {
		return Value{}, Value{}, err
	}
	return arg1, arg2, nil
}

func (ctx *EvalContext) eq(exp types.Expression) (val Value, err error) {
	arg1, arg2, err := ctx.resolveTwo(exp)
	if err != nil {
		return val, err
	}
	if arg1.IsNull() || arg2.IsNull() {
		return BoolValue(arg1.IsNull() && arg2.IsNull()), nil
	}
	if arg1.Kind != arg2.Kind {
		return val, errCouldNotCast
	}
	return BoolValue(arg1.Equal(arg2)), nil
}

func (ctx *EvalContext) neq(exp types.Expression) (val Value, err error) {
	v, err := ctx.eq(exp)
	if err != nil {
		return val, err
	}
	return BoolValue(!v.Bool), nil
}

// compare handles lt/lte/gt/gte for numbers and strings. A null operand never satisfies an
// ordering comparison.
func (ctx *EvalContext) compare(exp types.Expression, check func(int) bool) (val Value, err error) {
	arg1, arg2, err := ctx.resolveTwo(exp)
	if err != nil {
		return val, err
	}
	if arg1.IsNull() || arg2.IsNull() {
		return BoolValue(false), nil
	}

	switch arg1.Kind {
	case NUMBER_VALUE:
		if arg2.Kind != NUMBER_VALUE {
			return val, errCouldNotCast
		}
		c := 0
		if arg1.Num < arg2.Num {
			c = -1
		} else if arg1.Num > arg2.Num {
			c = 1
		}
		return BoolValue(check(c)), nil
	case STRING_VALUE:
		if arg2.Kind != STRING_VALUE {
			return val, errCouldNotCast
		}
		c := 0
		if arg1.Str < arg2.Str {
			c = -1
		} else if arg1.Str > arg2.Str {
			c = 1
		}
		return BoolValue(check(c)), nil
	default:
		return val, fmt.Errorf("cannot order values of type %s", arg1.Kind)
	}
}

// in checks membership of a scalar in a set. With reversed the container is the first argument.
func (ctx *EvalContext) in(exp types.Expression, reversed bool) (val Value, err error) {
	item, container, err := ctx.resolveTwo(exp)
	if err != nil {
		return val, err
	}
	if reversed {
		item, container = container, item
	}
	if item.IsNull() || container.IsNull() {
		return BoolValue(false), nil
	}
	if container.Kind != SET_VALUE {
		return val, fmt.Errorf("membership test needs a set, got %s", container.Kind)
	}
	if item.Kind == SET_VALUE {
		return val, errors.New("membership test needs a scalar item")
	}
	return BoolValue(container.Contains(item)), nil
}

func (ctx *EvalContext) and(exp types.Expression) (val Value, err error) {
	if len(exp.Data) < 2 {
		return val, errors.New("should have at least two arguments")
	}

	for _, d := range exp.Data {
		arg, err := ctx.ExpressionArgResolver(d)
		if err != nil {
			return val, err
		}
		if !arg.Truthy() {
			return BoolValue(false), nil
		}
	}
	return BoolValue(true), nil
}

func (ctx *EvalContext) or(exp types.Expression) (val Value, err error) {
	if len(exp.Data) < 2 {
		return val, errors.New("should have at least two arguments")
	}

	var lastErr error
	for _, d := range exp.Data {
		arg, err := ctx.ExpressionArgResolver(d)
		if err != nil {
			slog.Debug("unexpected error during expression eval", slog.String("expression", exp.Name), slog.String("error", err.Error()))
			lastErr = err
			continue
		}
		if arg.Truthy() {
			return BoolValue(true), nil
		}
	}
	if lastErr != nil && errors.Is(lastErr, ErrUndefinedVariable) {
		return val, lastErr
	}
	return BoolValue(false), nil
}

func (ctx *EvalContext) not(exp types.Expression) (val Value, err error) {
	if len(exp.Data) != 1 {
		return val, errors.New("should have one argument")
	}

	arg, err := ctx.ExpressionArgResolver(exp.Data[0])
	if err != nil {
		return val, err
	}
	return BoolValue(!arg.Truthy()), nil
}

func (ctx *EvalContext) sum(exp types.Expression) (val Value, err error) {
	if len(exp.Data) < 1 {
		return val, errors.New("should have at least one argument")
	}
	t := 0.0
	for idx, d := range exp.Data {
		arg, err := ctx.ExpressionArgResolver(d)
		if err != nil {
			return val, err
		}
		switch arg.Kind {
		case NUMBER_VALUE:
			t = t + arg.Num
		case NULL_VALUE:
			return NullValue(), nil
		default:
			return val, fmt.Errorf("argument %s should be a number, got %s", strconv.Itoa(idx), arg.Kind)
		}
	}
	return NumberValue(t), nil
}

func (ctx *EvalContext) neg(exp types.Expression) (val Value, err error) {
	if len(exp.Data) != 1 {
		return val, errors.New("should have one argument")
	}

	arg, err := ctx.ExpressionArgResolver(exp.Data[0])
	if err != nil {
		return val, err
	}
	switch arg.Kind {
	case NULL_VALUE:
		return NullValue(), nil
	case NUMBER_VALUE:
		return NumberValue(-1 * arg.Num), nil
	default:
		return val, errors.New("argument 1 should be resolved as type number")
	}
}

// References lists every question identifier the expression reads.
func References(exp types.Expression) []string {
	refs := []string{}
	seen := map[string]bool{}
	var walk func(e types.Expression)
	walk = func(e types.Expression) {
		if e.Name == "getAnswer" || e.Name == "isAnswered" {
			for _, d := range e.Data {
				if d.IsString() && !seen[d.Str] {
					seen[d.Str] = true
					refs = append(refs, d.Str)
				}
			}
		}
		for _, d := range e.Data {
			if d.IsExpression() && d.Exp != nil {
				walk(*d.Exp)
			}
		}
	}
	walk(exp)
	return refs
}
