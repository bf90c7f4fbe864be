package schema

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/uk-gov-mirror/communitiesuk.funding-service-sub001/pkg/collections/types"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidateTree checks every structural invariant of the collection and reports all violations
// together. It is run on collections loaded from storage before they are edited or answered.
func (e *Editor) ValidateTree() error {
	var result *multierror.Error
	e.invalidate()

	if len(e.collection.Sections) == 0 {
		result = multierror.Append(result, fmt.Errorf("collection %s has no sections", e.collection.ID.Hex()))
	}
	if err := checkContiguous(len(e.collection.Sections), func(i int) int { return e.collection.Sections[i].Order }); err != nil {
		result = multierror.Append(result, fmt.Errorf("sections: %w", err))
	}

	seen := map[primitive.ObjectID]bool{}
	for _, s := range e.collection.Sections {
		if err := checkContiguous(len(s.Forms), func(i int) int { return s.Forms[i].Order }); err != nil {
			result = multierror.Append(result, fmt.Errorf("section %s forms: %w", s.ID.Hex(), err))
		}
		for _, f := range s.Forms {
			if err := checkContiguous(len(f.Components), func(i int) int { return f.Components[i].Order }); err != nil {
				result = multierror.Append(result, fmt.Errorf("form %s: %w", f.ID.Hex(), err))
			}
			for _, c := range f.Components {
				e.validateComponent(c, 0, false, seen, &result)
			}
			names := map[string]bool{}
			for _, c := range types.AllComponents(f) {
				key := strings.ToLower(strings.TrimSpace(c.Name))
				if names[key] {
					result = multierror.Append(result, &TreeError{ComponentID: c.ID, Message: fmt.Sprintf("name %q is used more than once in form %s", c.Name, f.ID.Hex())})
				}
				names[key] = true
			}
		}
	}

	for _, r := range e.collection.References {
		component := e.collection.FindComponent(r.ComponentID)
		if component == nil {
			result = multierror.Append(result, fmt.Errorf("reference from unknown component %s", r.ComponentID.Hex()))
			continue
		}
		if err := e.validateReference(component, e.collection.FindComponent(r.DependsOnComponentID), types.SafeQuestionID(r.DependsOnComponentID), false); err != nil {
			result = multierror.Append(result, err)
		}
	}

	return result.ErrorOrNil()
}

func (e *Editor) validateComponent(c *types.Component, level int, insideAddAnother bool, seen map[primitive.ObjectID]bool, result **multierror.Error) {
	if seen[c.ID] {
		*result = multierror.Append(*result, &TreeError{ComponentID: c.ID, Message: "component appears more than once in the tree"})
		return
	}
	seen[c.ID] = true

	switch c.Type {
	case types.COMPONENT_TYPE_QUESTION:
		if !c.DataType.IsValid() {
			*result = multierror.Append(*result, &TreeError{ComponentID: c.ID, Message: fmt.Sprintf("unknown data type %q", c.DataType)})
		}
		if len(c.Components) > 0 {
			*result = multierror.Append(*result, &TreeError{ComponentID: c.ID, Message: "questions cannot have children"})
		}
		if c.AddAnother && insideAddAnother {
			*result = multierror.Append(*result, &TreeError{ComponentID: c.ID, Message: "nested add another"})
		}
		return
	case types.COMPONENT_TYPE_GROUP:
		if level > e.config.MaxNestedGroupLevels {
			*result = multierror.Append(*result, &TreeError{ComponentID: c.ID, Message: "group nested too deep"})
		}
		if c.AddAnother && insideAddAnother {
			*result = multierror.Append(*result, &TreeError{ComponentID: c.ID, Message: "nested add another"})
		}
		if err := checkContiguous(len(c.Components), func(i int) int { return c.Components[i].Order }); err != nil {
			*result = multierror.Append(*result, fmt.Errorf("group %s: %w", c.ID.Hex(), err))
		}
		for _, child := range c.Components {
			e.validateComponent(child, level+1, insideAddAnother || c.AddAnother, seen, result)
		}
	default:
		*result = multierror.Append(*result, &TreeError{ComponentID: c.ID, Message: fmt.Sprintf("unknown component type %q", c.Type)})
	}
}

// checkContiguous verifies that the n order values are exactly 0..n-1.
func checkContiguous(n int, order func(i int) int) error {
	present := make([]bool, n)
	for i := 0; i < n; i++ {
		o := order(i)
		if o < 0 || o >= n || present[o] {
			return fmt.Errorf("order values are not contiguous")
		}
		present[o] = true
	}
	return nil
}
