package expressionengine

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
)

var ErrDisallowedExpression = errors.New("expression uses a construct that is not allowed")

var binaryOperators = map[string]string{
	"==":  "eq",
	"!=":  "neq",
	"<":   "lt",
	"<=":  "lte",
	">":   "gt",
	">=":  "gte",
	"and": "and",
	"&&":  "and",
	"or":  "or",
	"||":  "or",
	"in":  "in",
	"+":   "sum",
}

// ParseStatement turns a free-form statement such as `q_1a2b... > 10 and "x" in q_3c4d...` into
// the structured expression the interpreter runs. Only literals, question identifiers, list
// literals, comparisons, membership, logic and +/- are accepted.
func ParseStatement(statement string) (types.Expression, error) {
	tree, err := parser.Parse(statement)
	if err != nil {
		return types.Expression{}, fmt.Errorf("invalid statement: %w", err)
	}
	arg, err := translateNode(tree.Node)
	if err != nil {
		return types.Expression{}, err
	}
	if arg.IsExpression() {
		return *arg.Exp, nil
	}
	return types.Expression{Name: "value", Data: []types.ExpressionArg{arg}}, nil
}

func expArg(name string, args ...types.ExpressionArg) types.ExpressionArg {
	return types.ExpressionArg{DType: "exp", Exp: &types.Expression{Name: name, Data: args}}
}

func strArg(s string) types.ExpressionArg {
	return types.ExpressionArg{DType: "str", Str: s}
}

func numArg(n float64) types.ExpressionArg {
	return types.ExpressionArg{DType: "num", Num: n}
}

func boolArg(b bool) types.ExpressionArg {
	return types.ExpressionArg{DType: "bool", Bool: b}
}

func translateNode(node ast.Node) (types.ExpressionArg, error) {
	switch n := node.(type) {
	case *ast.NilNode:
		return types.ExpressionArg{DType: "null"}, nil
	case *ast.BoolNode:
		return boolArg(n.Value), nil
	case *ast.IntegerNode:
		return numArg(float64(n.Value)), nil
	case *ast.FloatNode:
		return numArg(n.Value), nil
	case *ast.StringNode:
		return strArg(n.Value), nil
	case *ast.IdentifierNode:
		return expArg("getAnswer", strArg(n.Value)), nil
	case *ast.ArrayNode:
		items := make([]types.ExpressionArg, 0, len(n.Nodes))
		for _, item := range n.Nodes {
			arg, err := translateNode(item)
			if err != nil {
				return arg, err
			}
			items = append(items, arg)
		}
		return expArg("set", items...), nil
	case *ast.UnaryNode:
		operand, err := translateNode(n.Node)
		if err != nil {
			return operand, err
		}
		switch n.Operator {
		case "not", "!":
			return expArg("not", operand), nil
		case "-":
			return expArg("neg", operand), nil
		case "+":
			return operand, nil
		}
		return types.ExpressionArg{}, fmt.Errorf("%w: unary operator %s", ErrDisallowedExpression, n.Operator)
	case *ast.BinaryNode:
		left, err := translateNode(n.Left)
		if err != nil {
			return left, err
		}
		right, err := translateNode(n.Right)
		if err != nil {
			return right, err
		}
		if n.Operator == "-" {
			return expArg("sum", left, expArg("neg", right)), nil
		}
		name, ok := binaryOperators[n.Operator]
		if !ok {
			return types.ExpressionArg{}, fmt.Errorf("%w: operator %s", ErrDisallowedExpression, n.Operator)
		}
		return expArg(name, left, right), nil
	default:
		return types.ExpressionArg{}, fmt.Errorf("%w: %T", ErrDisallowedExpression, node)
	}
}

// Compile returns the structured expression of an expression definition, managed or free-form.
func Compile(def types.ExpressionDef) (types.Expression, error) {
	if def.IsManaged() {
		if def.Context == nil {
			return types.Expression{}, fmt.Errorf("managed expression %s has no context", def.ManagedName)
		}
		m, err := BuildManagedExpression(def.ManagedName, *def.Context)
		if err != nil {
			return types.Expression{}, err
		}
		return m.Expression(), nil
	}
	return ParseStatement(def.Statement)
}
