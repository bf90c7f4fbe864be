package types

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ExpressionType string

const (
	EXPRESSION_TYPE_CONDITION  ExpressionType = "CONDITION"
	EXPRESSION_TYPE_VALIDATION ExpressionType = "VALIDATION"
)

// ExpressionDef is an expression attached to a component, either free-form (Statement only) or
// managed (ManagedName + Context, with Statement kept as the rendered form).
type ExpressionDef struct {
	ID          primitive.ObjectID        `bson:"_id" json:"id"`
	Type        ExpressionType            `bson:"type" json:"type"`
	ManagedName string                    `bson:"managedName,omitempty" json:"managedName,omitempty"`
	Context     *ManagedExpressionContext `bson:"context,omitempty" json:"context,omitempty"`
	Statement   string                    `bson:"statement" json:"statement"`
	CreatedBy   string                    `bson:"createdBy" json:"createdBy"`
	CreatedAt   time.Time                 `bson:"createdAt" json:"createdAt"`
}

func (e ExpressionDef) IsManaged() bool {
	return e.ManagedName != ""
}

// ManagedExpressionContext holds the parameters of a managed expression. Minimum/maximum bounds
// are either a literal value or a reference to another question (q_<id>).
type ManagedExpressionContext struct {
	QuestionID        primitive.ObjectID `bson:"questionId" json:"questionId"`
	MinimumValue      *int64             `bson:"minimumValue,omitempty" json:"minimumValue,omitempty"`
	MinimumExpression string             `bson:"minimumExpression,omitempty" json:"minimumExpression,omitempty"`
	MinimumInclusive  bool               `bson:"minimumInclusive,omitempty" json:"minimumInclusive,omitempty"`
	MaximumValue      *int64             `bson:"maximumValue,omitempty" json:"maximumValue,omitempty"`
	MaximumExpression string             `bson:"maximumExpression,omitempty" json:"maximumExpression,omitempty"`
	MaximumInclusive  bool               `bson:"maximumInclusive,omitempty" json:"maximumInclusive,omitempty"`
	Items             []DataSourceItem   `bson:"items,omitempty" json:"items,omitempty"`
	Item              *DataSourceItem    `bson:"item,omitempty" json:"item,omitempty"`
}

// Expression is the structured form the interpreter evaluates.
type Expression struct {
	Name       string          `json:"name"` // Name of the operation to be evaluated
	ReturnType string          `json:"returnType,omitempty"`
	Data       []ExpressionArg `json:"data,omitempty"` // Operation arguments
}

type ExpressionArg struct {
	DType string      `json:"dtype"`
	Exp   *Expression `json:"exp,omitempty"`
	Str   string      `json:"str,omitempty"`
	Num   float64     `json:"num,omitempty"`
	Bool  bool        `json:"bool,omitempty"`
}

func (exp ExpressionArg) IsExpression() bool {
	return exp.DType == "exp"
}

func (exp ExpressionArg) IsNumber() bool {
	return exp.DType == "num"
}

func (exp ExpressionArg) IsString() bool {
	return exp.DType == "str"
}

func (exp ExpressionArg) IsBool() bool {
	return exp.DType == "bool"
}

func (exp ExpressionArg) IsNull() bool {
	return exp.DType == "null"
}

// ComponentReference records that a component depends on another one, through an expression,
// an interpolated text, or a data source item.
type ComponentReference struct {
	ComponentID                primitive.ObjectID  `bson:"componentId" json:"componentId"`
	DependsOnComponentID       primitive.ObjectID  `bson:"dependsOnComponentId" json:"dependsOnComponentId"`
	ExpressionID               *primitive.ObjectID `bson:"expressionId,omitempty" json:"expressionId,omitempty"`
	DependsOnDataSourceItemKey string              `bson:"dependsOnDataSourceItemKey,omitempty" json:"dependsOnDataSourceItemKey,omitempty"`
}
