package types

import (
	"encoding/hex"
	"errors"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ComponentType string

const (
	COMPONENT_TYPE_QUESTION ComponentType = "QUESTION"
	COMPONENT_TYPE_GROUP    ComponentType = "GROUP"
)

type DataType string

const (
	DATA_TYPE_TEXT_SINGLE_LINE DataType = "TEXT_SINGLE_LINE"
	DATA_TYPE_TEXT_MULTI_LINE  DataType = "TEXT_MULTI_LINE"
	DATA_TYPE_EMAIL            DataType = "EMAIL"
	DATA_TYPE_URL              DataType = "URL"
	DATA_TYPE_INTEGER          DataType = "INTEGER"
	DATA_TYPE_YES_NO           DataType = "YES_NO"
	DATA_TYPE_RADIOS           DataType = "RADIOS"
	DATA_TYPE_CHECKBOXES       DataType = "CHECKBOXES"
	DATA_TYPE_DATE             DataType = "DATE"
)

// AllDataTypes lists every supported question data type. Code that switches over data types is
// tested against this list.
var AllDataTypes = []DataType{
	DATA_TYPE_TEXT_SINGLE_LINE,
	DATA_TYPE_TEXT_MULTI_LINE,
	DATA_TYPE_EMAIL,
	DATA_TYPE_URL,
	DATA_TYPE_INTEGER,
	DATA_TYPE_YES_NO,
	DATA_TYPE_RADIOS,
	DATA_TYPE_CHECKBOXES,
	DATA_TYPE_DATE,
}

func (dt DataType) IsValid() bool {
	for _, d := range AllDataTypes {
		if d == dt {
			return true
		}
	}
	return false
}

// HasDataSource is true for data types whose answers are picked from a fixed list of items.
func (dt DataType) HasDataSource() bool {
	return dt == DATA_TYPE_RADIOS || dt == DATA_TYPE_CHECKBOXES
}

const safeQuestionIDPrefix = "q_"

type DataSourceItem struct {
	Key   string `bson:"key" json:"key"`
	Label string `bson:"label" json:"label"`
}

type PresentationOptions struct {
	Prefix          string `bson:"prefix,omitempty" json:"prefix,omitempty"`
	Suffix          string `bson:"suffix,omitempty" json:"suffix,omitempty"`
	Rows            int    `bson:"rows,omitempty" json:"rows,omitempty"`
	WordLimit       int    `bson:"wordLimit,omitempty" json:"wordLimit,omitempty"`
	ApproximateDate bool   `bson:"approximateDate,omitempty" json:"approximateDate,omitempty"`
}

type Component struct {
	ID                  primitive.ObjectID   `bson:"_id" json:"id"`
	Type                ComponentType        `bson:"type" json:"type"`
	Text                string               `bson:"text" json:"text"`
	Name                string               `bson:"name" json:"name"`
	Slug                string               `bson:"slug,omitempty" json:"slug,omitempty"`
	Hint                string               `bson:"hint,omitempty" json:"hint,omitempty"`
	Order               int                  `bson:"order" json:"order"`
	DataType            DataType             `bson:"dataType,omitempty" json:"dataType,omitempty"`
	AddAnother          bool                 `bson:"addAnother,omitempty" json:"addAnother,omitempty"`
	PresentationOptions *PresentationOptions `bson:"presentationOptions,omitempty" json:"presentationOptions,omitempty"`
	DataSource          []DataSourceItem     `bson:"dataSource,omitempty" json:"dataSource,omitempty"`
	Expressions         []ExpressionDef      `bson:"expressions,omitempty" json:"expressions,omitempty"`
	Components          []*Component         `bson:"components,omitempty" json:"components,omitempty"`

	// runtime links, rebuilt by Collection.Link
	Parent *Component `bson:"-" json:"-"`
	Form   *Form      `bson:"-" json:"-"`
}

func (c *Component) IsQuestion() bool {
	return c.Type == COMPONENT_TYPE_QUESTION
}

func (c *Component) IsGroup() bool {
	return c.Type == COMPONENT_TYPE_GROUP
}

// SafeQuestionID is the identifier used to reference the component inside expressions.
func (c *Component) SafeQuestionID() string {
	return SafeQuestionID(c.ID)
}

func SafeQuestionID(id primitive.ObjectID) string {
	return safeQuestionIDPrefix + id.Hex()
}

func ParseSafeQuestionID(ref string) (primitive.ObjectID, error) {
	if !strings.HasPrefix(ref, safeQuestionIDPrefix) {
		return primitive.NilObjectID, errors.New("reference is not a question identifier")
	}
	raw := strings.TrimPrefix(ref, safeQuestionIDPrefix)
	if _, err := hex.DecodeString(raw); err != nil {
		return primitive.NilObjectID, err
	}
	return primitive.ObjectIDFromHex(raw)
}

func (c *Component) ContainerID() primitive.ObjectID {
	return c.ID
}

// Children returns the direct children ordered by their order field.
func (c *Component) Children() []*Component {
	return sortedByOrder(c.Components)
}

// AddAnotherContainer is the nearest self-or-ancestor flagged as add-another, or nil.
func (c *Component) AddAnotherContainer() *Component {
	for current := c; current != nil; current = current.Parent {
		if current.AddAnother {
			return current
		}
	}
	return nil
}

// Ancestors returns the parent chain, outermost first.
func (c *Component) Ancestors() []*Component {
	ancestors := []*Component{}
	for p := c.Parent; p != nil; p = p.Parent {
		ancestors = append([]*Component{p}, ancestors...)
	}
	return ancestors
}

// NestingLevel is the number of groups enclosing the component.
func (c *Component) NestingLevel() int {
	return len(c.Ancestors())
}

// IsDescendantOf is true if other is a (transitive) parent of the component.
func (c *Component) IsDescendantOf(other *Component) bool {
	for p := c.Parent; p != nil; p = p.Parent {
		if p.ID == other.ID {
			return true
		}
	}
	return false
}

func (c *Component) Conditions() []ExpressionDef {
	return c.expressionsOfType(EXPRESSION_TYPE_CONDITION)
}

func (c *Component) Validations() []ExpressionDef {
	return c.expressionsOfType(EXPRESSION_TYPE_VALIDATION)
}

func (c *Component) expressionsOfType(t ExpressionType) []ExpressionDef {
	res := []ExpressionDef{}
	for _, e := range c.Expressions {
		if e.Type == t {
			res = append(res, e)
		}
	}
	return res
}

func (c *Component) FindDataSourceItem(key string) (DataSourceItem, bool) {
	for _, item := range c.DataSource {
		if item.Key == key {
			return item, true
		}
	}
	return DataSourceItem{}, false
}

func sortedByOrder(components []*Component) []*Component {
	res := make([]*Component, len(components))
	copy(res, components)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Order < res[j].Order
	})
	return res
}

// Container is anything that holds an ordered list of components: a form or a group.
type Container interface {
	ContainerID() primitive.ObjectID
	Children() []*Component
}

// AllComponents flattens the container depth-first: each node is listed before its children,
// children in order.
func AllComponents(container Container) []*Component {
	return flatten(container.Children())
}

func Questions(container Container) []*Component {
	questions := []*Component{}
	for _, c := range AllComponents(container) {
		if c.IsQuestion() {
			questions = append(questions, c)
		}
	}
	return questions
}

func flatten(components []*Component) []*Component {
	res := []*Component{}
	for _, c := range components {
		res = append(res, c)
		if c.IsGroup() {
			res = append(res, flatten(c.Children())...)
		}
	}
	return res
}
