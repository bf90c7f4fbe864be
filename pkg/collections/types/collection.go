package types

import (
	"sort"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Form struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Title      string             `bson:"title" json:"title"`
	Slug       string             `bson:"slug,omitempty" json:"slug,omitempty"`
	Order      int                `bson:"order" json:"order"`
	Components []*Component       `bson:"components,omitempty" json:"components,omitempty"`

	Section *Section `bson:"-" json:"-"`
}

func (f *Form) ContainerID() primitive.ObjectID {
	return f.ID
}

func (f *Form) Children() []*Component {
	return sortedByOrder(f.Components)
}

type Section struct {
	ID    primitive.ObjectID `bson:"_id" json:"id"`
	Title string             `bson:"title" json:"title"`
	Order int                `bson:"order" json:"order"`
	Forms []*Form            `bson:"forms,omitempty" json:"forms,omitempty"`
}

func (s *Section) SortedForms() []*Form {
	res := make([]*Form, len(s.Forms))
	copy(res, s.Forms)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Order < res[j].Order
	})
	return res
}

type Collection struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id,omitempty"`
	Name       string               `bson:"name" json:"name"`
	Slug       string               `bson:"slug,omitempty" json:"slug,omitempty"`
	Sections   []*Section           `bson:"sections,omitempty" json:"sections,omitempty"`
	References []ComponentReference `bson:"references,omitempty" json:"references,omitempty"`
}

// Link rebuilds the runtime parent/form/section pointers after the collection has been decoded.
func (col *Collection) Link() {
	for _, s := range col.Sections {
		for _, f := range s.Forms {
			f.Section = s
			linkComponents(f.Components, nil, f)
		}
	}
}

func linkComponents(components []*Component, parent *Component, form *Form) {
	for _, c := range components {
		c.Parent = parent
		c.Form = form
		linkComponents(c.Components, c, form)
	}
}

func (col *Collection) SortedSections() []*Section {
	res := make([]*Section, len(col.Sections))
	copy(res, col.Sections)
	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Order < res[j].Order
	})
	return res
}

// Forms returns all forms, ordered by section and then by form order.
func (col *Collection) Forms() []*Form {
	forms := []*Form{}
	for _, s := range col.SortedSections() {
		forms = append(forms, s.SortedForms()...)
	}
	return forms
}

func (col *Collection) FindForm(id primitive.ObjectID) *Form {
	for _, f := range col.Forms() {
		if f.ID == id {
			return f
		}
	}
	return nil
}

func (col *Collection) FindSection(id primitive.ObjectID) *Section {
	for _, s := range col.Sections {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (col *Collection) FindComponent(id primitive.ObjectID) *Component {
	for _, f := range col.Forms() {
		for _, c := range AllComponents(f) {
			if c.ID == id {
				return c
			}
		}
	}
	return nil
}

// AllQuestions lists every question of every form in form order.
func (col *Collection) AllQuestions() []*Component {
	questions := []*Component{}
	for _, f := range col.Forms() {
		questions = append(questions, Questions(f)...)
	}
	return questions
}
