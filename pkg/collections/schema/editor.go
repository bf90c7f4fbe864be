package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DEFAULT_MAX_NESTED_GROUP_LEVELS = 1
	DEFAULT_SECTION_TITLE           = "Tasks"
)

var ErrDuplicateFormTitle = errors.New("a form with this title already exists in the collection")

type EditorConfig struct {
	MaxNestedGroupLevels int `json:"max_nested_group_levels" yaml:"max_nested_group_levels"`
}

func DefaultEditorConfig() EditorConfig {
	return EditorConfig{MaxNestedGroupLevels: DEFAULT_MAX_NESTED_GROUP_LEVELS}
}

// Editor applies schema edits to one collection while keeping the tree invariants: contiguous
// sibling order, bounded nesting, no cycles, add-another placement, and valid references.
type Editor struct {
	collection *types.Collection
	config     EditorConfig
	cache      *types.TreeCache
	now        func() time.Time
}

func NewEditor(collection *types.Collection, config EditorConfig) *Editor {
	collection.Link()
	if len(collection.Sections) == 0 {
		collection.Sections = append(collection.Sections, &types.Section{ID: primitive.NewObjectID(), Title: DEFAULT_SECTION_TITLE})
	}
	return &Editor{
		collection: collection,
		config:     config,
		cache:      types.NewTreeCache(),
		now:        time.Now,
	}
}

func (e *Editor) Collection() *types.Collection {
	return e.collection
}

func (e *Editor) invalidate() {
	e.cache.Invalidate()
}

// Sections

func (e *Editor) AddSection(title string) *types.Section {
	s := &types.Section{
		ID:    primitive.NewObjectID(),
		Title: title,
		Order: len(e.collection.Sections),
	}
	e.collection.Sections = append(e.collection.Sections, s)
	return s
}

// DeleteSection removes a section with all its forms. The collection always keeps at least one
// section.
func (e *Editor) DeleteSection(sectionID primitive.ObjectID) error {
	idx := -1
	for i, s := range e.collection.Sections {
		if s.ID == sectionID {
			idx = i
		}
	}
	if idx < 0 {
		return fmt.Errorf("section %s: %w", sectionID.Hex(), ErrNotFound)
	}

	for _, f := range e.collection.Sections[idx].Forms {
		e.dropReferencesOfForm(f)
	}
	e.collection.Sections = append(e.collection.Sections[:idx], e.collection.Sections[idx+1:]...)
	repackSections(e.collection)
	if len(e.collection.Sections) == 0 {
		e.AddSection(DEFAULT_SECTION_TITLE)
	}
	e.invalidate()
	return nil
}

func repackSections(col *types.Collection) {
	sorted := col.SortedSections()
	for i, s := range sorted {
		s.Order = i
	}
	col.Sections = sorted
}

// Forms

func (e *Editor) AddForm(sectionID primitive.ObjectID, title string) (*types.Form, error) {
	section := e.collection.FindSection(sectionID)
	if section == nil {
		return nil, fmt.Errorf("section %s: %w", sectionID.Hex(), ErrNotFound)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errors.New("form title is required")
	}
	for _, f := range e.collection.Forms() {
		if strings.EqualFold(f.Title, title) {
			return nil, ErrDuplicateFormTitle
		}
	}

	form := &types.Form{
		ID:      primitive.NewObjectID(),
		Title:   title,
		Slug:    utils.Slugify(title),
		Order:   len(section.Forms),
		Section: section,
	}
	section.Forms = append(section.Forms, form)
	e.invalidate()
	return form, nil
}

func (e *Editor) DeleteForm(formID primitive.ObjectID) error {
	form := e.collection.FindForm(formID)
	if form == nil {
		return fmt.Errorf("form %s: %w", formID.Hex(), ErrNotFound)
	}
	section := form.Section
	forms := []*types.Form{}
	for _, f := range section.SortedForms() {
		if f.ID != formID {
			forms = append(forms, f)
		}
	}
	for i, f := range forms {
		f.Order = i
	}
	section.Forms = forms
	e.dropReferencesOfForm(form)
	e.invalidate()
	return nil
}

func (e *Editor) MoveFormUp(formID primitive.ObjectID) error {
	return e.moveForm(formID, -1)
}

func (e *Editor) MoveFormDown(formID primitive.ObjectID) error {
	return e.moveForm(formID, 1)
}

func (e *Editor) moveForm(formID primitive.ObjectID, direction int) error {
	form := e.collection.FindForm(formID)
	if form == nil {
		return fmt.Errorf("form %s: %w", formID.Hex(), ErrNotFound)
	}
	forms := form.Section.SortedForms()
	idx := sort.Search(len(forms), func(i int) bool { return forms[i].Order >= form.Order })
	target := idx + direction
	if target < 0 || target >= len(forms) {
		return fmt.Errorf("form %s cannot be moved further", formID.Hex())
	}
	forms[idx].Order, forms[target].Order = forms[target].Order, forms[idx].Order
	e.invalidate()
	return nil
}

func (e *Editor) dropReferencesOfForm(form *types.Form) {
	ids := map[primitive.ObjectID]bool{}
	for _, c := range types.AllComponents(form) {
		ids[c.ID] = true
	}
	refs := []types.ComponentReference{}
	for _, r := range e.collection.References {
		if !ids[r.ComponentID] {
			refs = append(refs, r)
		}
	}
	e.collection.References = refs
}
