package collections

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/schema"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ExpressionInput describes a condition or validation to attach. Either ManagedName with its
// Context, or a free-form Statement.
type ExpressionInput struct {
	ManagedName string                         `json:"managedName,omitempty"`
	Context     types.ManagedExpressionContext `json:"context,omitempty"`
	Statement   string                         `json:"statement,omitempty"`
}

func editError(err error) error {
	if errors.Is(err, schema.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return invalidInput(err)
}

func CreateCollection(ctx context.Context, instanceID string, name string) (*types.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalidInput(errors.New("collection name is required"))
	}
	editor := schema.NewEditor(&types.Collection{ID: primitive.NewObjectID(), Name: name, Slug: utils.Slugify(name)}, editorConfig)
	collection := editor.Collection()
	if _, err := collectionsDBService.CreateCollection(ctx, instanceID, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

func GetCollection(ctx context.Context, instanceID string, collectionID string) (*types.Collection, error) {
	return loadCollection(ctx, instanceID, collectionID)
}

// EditCollection applies an arbitrary set of editor operations as one stored change.
func EditCollection(ctx context.Context, instanceID string, collectionID string, fn func(e *schema.Editor) error) (*types.Collection, error) {
	return updateCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		if err := fn(e); err != nil {
			return editError(err)
		}
		return nil
	})
}

func AddSection(ctx context.Context, instanceID string, collectionID string, title string) (*types.Section, error) {
	var section *types.Section
	_, err := EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		section = e.AddSection(title)
		return nil
	})
	return section, err
}

func AddForm(ctx context.Context, instanceID string, collectionID string, sectionID string, title string) (*types.Form, error) {
	_sectionID, err := parseID(sectionID)
	if err != nil {
		return nil, err
	}
	var form *types.Form
	_, err = EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		f, err := e.AddForm(_sectionID, title)
		form = f
		return err
	})
	return form, err
}

func AddQuestion(ctx context.Context, instanceID string, collectionID string, parentID string, spec schema.QuestionSpec) (*types.Component, error) {
	_parentID, err := parseID(parentID)
	if err != nil {
		return nil, err
	}
	var question *types.Component
	_, err = EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		q, err := e.AddQuestion(_parentID, spec)
		question = q
		return err
	})
	return question, err
}

func AddGroup(ctx context.Context, instanceID string, collectionID string, parentID string, spec schema.GroupSpec) (*types.Component, error) {
	_parentID, err := parseID(parentID)
	if err != nil {
		return nil, err
	}
	var group *types.Component
	_, err = EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		g, err := e.AddGroup(_parentID, spec)
		group = g
		return err
	})
	return group, err
}

// AddExpression attaches a condition or validation to a component.
func AddExpression(
	ctx context.Context,
	instanceID string,
	collectionID string,
	componentID string,
	expressionType types.ExpressionType,
	input ExpressionInput,
	actor string,
) (*types.ExpressionDef, error) {
	_componentID, err := parseID(componentID)
	if err != nil {
		return nil, err
	}
	if (input.ManagedName == "") == (strings.TrimSpace(input.Statement) == "") {
		return nil, invalidInput(errors.New("either a managed expression or a statement is required"))
	}

	var def *types.ExpressionDef
	_, err = EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		var err error
		if input.ManagedName != "" {
			def, err = e.AddManagedExpression(_componentID, expressionType, input.ManagedName, input.Context, actor)
		} else {
			def, err = e.AddFreeFormExpression(_componentID, expressionType, input.Statement, actor)
		}
		return err
	})
	return def, err
}

func RemoveExpression(ctx context.Context, instanceID string, collectionID string, componentID string, expressionID string) error {
	_componentID, err := parseID(componentID)
	if err != nil {
		return err
	}
	_expressionID, err := parseID(expressionID)
	if err != nil {
		return err
	}
	_, err = EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		return e.RemoveExpression(_componentID, _expressionID)
	})
	return err
}

func DeleteComponent(ctx context.Context, instanceID string, collectionID string, componentID string) error {
	_componentID, err := parseID(componentID)
	if err != nil {
		return err
	}
	_, err = EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		return e.DeleteComponent(_componentID)
	})
	return err
}

// MoveComponent moves a component one place up or down among its siblings.
func MoveComponent(ctx context.Context, instanceID string, collectionID string, componentID string, up bool) error {
	_componentID, err := parseID(componentID)
	if err != nil {
		return err
	}
	_, err = EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		if up {
			return e.MoveComponentUp(_componentID)
		}
		return e.MoveComponentDown(_componentID)
	})
	return err
}

// UpdateComponent changes text and hint of a component. A non-empty name renames it.
func UpdateComponent(ctx context.Context, instanceID string, collectionID string, componentID string, text string, hint string, name string) (*types.Component, error) {
	_componentID, err := parseID(componentID)
	if err != nil {
		return nil, err
	}
	collection, err := EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		if err := e.UpdateComponentText(_componentID, text, hint); err != nil {
			return err
		}
		if name != "" {
			return e.RenameComponent(_componentID, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return collection.FindComponent(_componentID), nil
}

// MoveComponentToParent re-parents a component under another form or group.
func MoveComponentToParent(ctx context.Context, instanceID string, collectionID string, componentID string, parentID string) error {
	_componentID, err := parseID(componentID)
	if err != nil {
		return err
	}
	_parentID, err := parseID(parentID)
	if err != nil {
		return err
	}
	_, err = EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		return e.MoveComponentToParent(_componentID, _parentID)
	})
	return err
}

func DeleteForm(ctx context.Context, instanceID string, collectionID string, formID string) error {
	_formID, err := parseID(formID)
	if err != nil {
		return err
	}
	_, err = EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		return e.DeleteForm(_formID)
	})
	return err
}

// DeleteSection removes a section with its forms. Removing the last section leaves a new empty one.
func DeleteSection(ctx context.Context, instanceID string, collectionID string, sectionID string) error {
	_sectionID, err := parseID(sectionID)
	if err != nil {
		return err
	}
	_, err = EditCollection(ctx, instanceID, collectionID, func(e *schema.Editor) error {
		return e.DeleteSection(_sectionID)
	})
	return err
}
