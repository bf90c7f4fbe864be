package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type QuestionSpec struct {
	Text                string                     `json:"text"`
	Name                string                     `json:"name"`
	Hint                string                     `json:"hint,omitempty"`
	DataType            types.DataType             `json:"dataType"`
	DataSource          []types.DataSourceItem     `json:"dataSource,omitempty"`
	PresentationOptions *types.PresentationOptions `json:"presentationOptions,omitempty"`
	AddAnother          bool                       `json:"addAnother,omitempty"`
}

type GroupSpec struct {
	Text       string `json:"text"`
	Name       string `json:"name"`
	AddAnother bool   `json:"addAnother"`
}

// findContainer resolves a form or group id to the form and, for groups, the group itself.
func (e *Editor) findContainer(parentID primitive.ObjectID) (*types.Form, *types.Component, error) {
	if form := e.collection.FindForm(parentID); form != nil {
		return form, nil, nil
	}
	c := e.collection.FindComponent(parentID)
	if c == nil {
		return nil, nil, fmt.Errorf("container %s: %w", parentID.Hex(), ErrNotFound)
	}
	if !c.IsGroup() {
		return nil, nil, &TreeError{ComponentID: c.ID, Message: "only groups can contain components"}
	}
	return c.Form, c, nil
}

func (e *Editor) findComponent(id primitive.ObjectID) (*types.Component, error) {
	c := e.collection.FindComponent(id)
	if c == nil {
		return nil, fmt.Errorf("component %s: %w", id.Hex(), ErrNotFound)
	}
	return c, nil
}

func siblingsOf(form *types.Form, group *types.Component) []*types.Component {
	if group != nil {
		return group.Children()
	}
	return form.Children()
}

func setSiblings(form *types.Form, group *types.Component, components []*types.Component) {
	for i, c := range components {
		c.Order = i
	}
	if group != nil {
		group.Components = components
	} else {
		form.Components = components
	}
}

func (e *Editor) insertChild(form *types.Form, group *types.Component, c *types.Component, position int) {
	siblings := siblingsOf(form, group)
	if position < 0 || position > len(siblings) {
		position = len(siblings)
	}
	res := make([]*types.Component, 0, len(siblings)+1)
	res = append(res, siblings[:position]...)
	res = append(res, c)
	res = append(res, siblings[position:]...)
	setSiblings(form, group, res)

	c.Parent = group
	setForm(c, form)
	e.invalidate()
}

func (e *Editor) detachChild(c *types.Component) int {
	siblings := siblingsOf(c.Form, c.Parent)
	position := -1
	res := make([]*types.Component, 0, len(siblings))
	for i, s := range siblings {
		if s.ID == c.ID {
			position = i
			continue
		}
		res = append(res, s)
	}
	setSiblings(c.Form, c.Parent, res)
	e.invalidate()
	return position
}

func setForm(c *types.Component, form *types.Form) {
	c.Form = form
	for _, child := range c.Components {
		setForm(child, form)
	}
}

func (e *Editor) AddQuestion(parentID primitive.ObjectID, spec QuestionSpec) (*types.Component, error) {
	form, group, err := e.findContainer(parentID)
	if err != nil {
		return nil, err
	}
	if err := validateQuestionSpec(spec); err != nil {
		return nil, err
	}
	if e.nameTaken(form, spec.Name, primitive.NilObjectID) {
		return nil, ErrDuplicateName
	}
	if spec.AddAnother && group != nil && group.AddAnotherContainer() != nil {
		return nil, &TreeError{ComponentID: group.ID, Message: "add another questions cannot be placed inside an add another group"}
	}

	q := &types.Component{
		ID:                  primitive.NewObjectID(),
		Type:                types.COMPONENT_TYPE_QUESTION,
		Text:                strings.TrimSpace(spec.Text),
		Name:                strings.TrimSpace(spec.Name),
		Slug:                utils.Slugify(spec.Name),
		Hint:                spec.Hint,
		DataType:            spec.DataType,
		DataSource:          spec.DataSource,
		PresentationOptions: spec.PresentationOptions,
		AddAnother:          spec.AddAnother,
	}
	e.insertChild(form, group, q, -1)

	if err := e.checkInterpolations(q); err != nil {
		e.detachChild(q)
		return nil, err
	}
	e.syncReferences(q)
	return q, nil
}

func validateQuestionSpec(spec QuestionSpec) error {
	if strings.TrimSpace(spec.Text) == "" {
		return errors.New("question text is required")
	}
	if strings.TrimSpace(spec.Name) == "" {
		return errors.New("question name is required")
	}
	if !spec.DataType.IsValid() {
		return fmt.Errorf("unknown data type: %s", spec.DataType)
	}
	if spec.DataType.HasDataSource() {
		return validateDataSource(spec.DataSource)
	}
	if len(spec.DataSource) > 0 {
		return fmt.Errorf("data type %s does not use a data source", spec.DataType)
	}
	return nil
}

func validateDataSource(items []types.DataSourceItem) error {
	if len(items) == 0 {
		return errors.New("at least one item is required")
	}
	keys := map[string]bool{}
	for _, item := range items {
		if item.Key == "" || strings.TrimSpace(item.Label) == "" {
			return errors.New("items need a key and a label")
		}
		if keys[item.Key] {
			return fmt.Errorf("duplicate item key: %s", item.Key)
		}
		keys[item.Key] = true
	}
	return nil
}

// nameTaken reports whether any question or group of the form other than except uses name.
func (e *Editor) nameTaken(form *types.Form, name string, except primitive.ObjectID) bool {
	name = strings.TrimSpace(name)
	for _, c := range types.AllComponents(form) {
		if c.ID != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (e *Editor) AddGroup(parentID primitive.ObjectID, spec GroupSpec) (*types.Component, error) {
	form, parent, err := e.findContainer(parentID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(spec.Name) == "" {
		return nil, errors.New("group name is required")
	}
	if e.nameTaken(form, spec.Name, primitive.NilObjectID) {
		return nil, ErrDuplicateName
	}

	level := 0
	if parent != nil {
		level = parent.NestingLevel() + 1
		if level > e.config.MaxNestedGroupLevels {
			return nil, &TreeError{ComponentID: parent.ID, Message: fmt.Sprintf("groups can only be nested %d level(s) deep", e.config.MaxNestedGroupLevels)}
		}
		if spec.AddAnother && parent.AddAnotherContainer() != nil {
			return nil, &TreeError{ComponentID: parent.ID, Message: "add another groups cannot be placed inside an add another group"}
		}
	}

	g := &types.Component{
		ID:         primitive.NewObjectID(),
		Type:       types.COMPONENT_TYPE_GROUP,
		Text:       strings.TrimSpace(spec.Text),
		Name:       strings.TrimSpace(spec.Name),
		Slug:       utils.Slugify(spec.Name),
		AddAnother: spec.AddAnother,
		Components: []*types.Component{},
	}
	e.insertChild(form, parent, g, -1)
	if err := e.checkInterpolations(g); err != nil {
		e.detachChild(g)
		return nil, err
	}
	e.syncReferences(g)
	return g, nil
}

// UpdateComponentText changes text and hint; interpolated references have to stay valid.
func (e *Editor) UpdateComponentText(id primitive.ObjectID, text string, hint string) error {
	c, err := e.findComponent(id)
	if err != nil {
		return err
	}
	oldText, oldHint := c.Text, c.Hint
	c.Text, c.Hint = strings.TrimSpace(text), hint
	if err := e.checkInterpolations(c); err != nil {
		c.Text, c.Hint = oldText, oldHint
		return err
	}
	e.syncReferences(c)
	return nil
}

func (e *Editor) RenameComponent(id primitive.ObjectID, name string) error {
	c, err := e.findComponent(id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required")
	}
	if e.nameTaken(c.Form, name, c.ID) {
		return ErrDuplicateName
	}
	c.Name = strings.TrimSpace(name)
	c.Slug = utils.Slugify(name)
	return nil
}

// UpdateDataSource replaces the items of a radios/checkboxes question. Items referenced by other
// components' expressions cannot be removed.
func (e *Editor) UpdateDataSource(id primitive.ObjectID, items []types.DataSourceItem) error {
	c, err := e.findComponent(id)
	if err != nil {
		return err
	}
	if !c.IsQuestion() || !c.DataType.HasDataSource() {
		return fmt.Errorf("component %s has no data source", id.Hex())
	}
	if err := validateDataSource(items); err != nil {
		return err
	}

	keep := map[string]bool{}
	for _, item := range items {
		keep[item.Key] = true
	}
	dependents := []primitive.ObjectID{}
	for _, r := range e.collection.References {
		if r.DependsOnComponentID == c.ID && r.DependsOnDataSourceItemKey != "" && !keep[r.DependsOnDataSourceItemKey] {
			dependents = append(dependents, r.ComponentID)
		}
	}
	if len(dependents) > 0 {
		return &DependencyError{ComponentID: c.ID, DependentComponentIDs: dependents}
	}
	c.DataSource = items
	return nil
}

// SetAddAnother turns a group into an add-another group or back.
func (e *Editor) SetAddAnother(groupID primitive.ObjectID, addAnother bool) error {
	g, err := e.findComponent(groupID)
	if err != nil {
		return err
	}
	if !g.IsGroup() {
		return &TreeError{ComponentID: g.ID, Message: "only groups can be add another"}
	}
	if g.AddAnother == addAnother {
		return nil
	}
	if addAnother {
		if g.Parent != nil && g.Parent.AddAnotherContainer() != nil {
			return &TreeError{ComponentID: g.ID, Message: "group is already inside an add another group"}
		}
		for _, c := range types.AllComponents(g) {
			if c.AddAnother {
				return &TreeError{ComponentID: g.ID, Message: "group contains an add another group"}
			}
		}
	}

	g.AddAnother = addAnother
	e.invalidate()
	if err := e.checkFormReferences(g.Form); err != nil {
		g.AddAnother = !addAnother
		e.invalidate()
		return err
	}
	return nil
}

func (e *Editor) MoveComponentUp(id primitive.ObjectID) error {
	return e.moveComponent(id, -1)
}

func (e *Editor) MoveComponentDown(id primitive.ObjectID) error {
	return e.moveComponent(id, 1)
}

func (e *Editor) moveComponent(id primitive.ObjectID, direction int) error {
	c, err := e.findComponent(id)
	if err != nil {
		return err
	}
	siblings := siblingsOf(c.Form, c.Parent)
	idx := -1
	for i, s := range siblings {
		if s.ID == c.ID {
			idx = i
		}
	}
	target := idx + direction
	if target < 0 || target >= len(siblings) {
		return &TreeError{ComponentID: c.ID, Message: "component cannot be moved further"}
	}

	swap := func() {
		siblings[idx].Order, siblings[target].Order = siblings[target].Order, siblings[idx].Order
		e.invalidate()
	}
	swap()
	if err := e.checkFormReferences(c.Form); err != nil {
		swap()
		return err
	}
	return nil
}

// MoveComponentToParent re-parents a component (and its subtree) under another form or group.
func (e *Editor) MoveComponentToParent(id primitive.ObjectID, newParentID primitive.ObjectID) error {
	c, err := e.findComponent(id)
	if err != nil {
		return err
	}
	newForm, newParent, err := e.findContainer(newParentID)
	if err != nil {
		return err
	}

	if newParent != nil && (newParent.ID == c.ID || newParent.IsDescendantOf(c)) {
		return &TreeError{ComponentID: c.ID, Message: "a component cannot be moved inside itself"}
	}

	newLevel := 0
	if newParent != nil {
		newLevel = newParent.NestingLevel() + 1
	}
	subtree := append([]*types.Component{c}, types.AllComponents(c)...)
	if newForm.ID != c.Form.ID {
		for _, s := range subtree {
			if e.nameTaken(newForm, s.Name, s.ID) {
				return fmt.Errorf("%s: %w", s.Name, ErrDuplicateName)
			}
		}
	}
	hasAddAnother := false
	for _, s := range subtree {
		if s.IsGroup() && newLevel+s.NestingLevel()-c.NestingLevel() > e.config.MaxNestedGroupLevels {
			return &TreeError{ComponentID: c.ID, Message: fmt.Sprintf("groups can only be nested %d level(s) deep", e.config.MaxNestedGroupLevels)}
		}
		if s.AddAnother {
			hasAddAnother = true
		}
	}
	if hasAddAnother && newParent != nil && newParent.AddAnotherContainer() != nil {
		return &TreeError{ComponentID: c.ID, Message: "add another groups cannot be placed inside an add another group"}
	}

	oldForm, oldParent := c.Form, c.Parent
	oldPosition := e.detachChild(c)
	e.insertChild(newForm, newParent, c, -1)

	err = e.checkFormReferences(newForm)
	if err == nil && oldForm.ID != newForm.ID {
		err = e.checkFormReferences(oldForm)
	}
	if err != nil {
		e.detachChild(c)
		e.insertChild(oldForm, oldParent, c, oldPosition)
		return err
	}
	return nil
}

// DeleteComponent removes a component and its subtree, unless something outside the subtree
// depends on it.
func (e *Editor) DeleteComponent(id primitive.ObjectID) error {
	c, err := e.findComponent(id)
	if err != nil {
		return err
	}
	subtree := map[primitive.ObjectID]bool{c.ID: true}
	for _, s := range types.AllComponents(c) {
		subtree[s.ID] = true
	}

	dependents := []primitive.ObjectID{}
	seen := map[primitive.ObjectID]bool{}
	for _, r := range e.collection.References {
		if subtree[r.DependsOnComponentID] && !subtree[r.ComponentID] && !seen[r.ComponentID] {
			seen[r.ComponentID] = true
			dependents = append(dependents, r.ComponentID)
		}
	}
	if len(dependents) > 0 {
		return &DependencyError{ComponentID: c.ID, DependentComponentIDs: dependents}
	}

	e.detachChild(c)
	refs := []types.ComponentReference{}
	for _, r := range e.collection.References {
		if !subtree[r.ComponentID] {
			refs = append(refs, r)
		}
	}
	e.collection.References = refs
	return nil
}
