package types

import "go.mongodb.org/mongo-driver/bson/primitive"

// TreeCache memoizes flattened component lists for the lifetime of one request. Any edit of the
// tree must be followed by Invalidate.
type TreeCache struct {
	allComponents map[primitive.ObjectID][]*Component
	questions     map[primitive.ObjectID][]*Component
	positions     map[primitive.ObjectID]map[primitive.ObjectID]int
}

func NewTreeCache() *TreeCache {
	c := &TreeCache{}
	c.Invalidate()
	return c
}

func (tc *TreeCache) Invalidate() {
	tc.allComponents = map[primitive.ObjectID][]*Component{}
	tc.questions = map[primitive.ObjectID][]*Component{}
	tc.positions = map[primitive.ObjectID]map[primitive.ObjectID]int{}
}

func (tc *TreeCache) AllComponents(container Container) []*Component {
	if res, ok := tc.allComponents[container.ContainerID()]; ok {
		return res
	}
	res := AllComponents(container)
	tc.allComponents[container.ContainerID()] = res
	return res
}

func (tc *TreeCache) Questions(container Container) []*Component {
	if res, ok := tc.questions[container.ContainerID()]; ok {
		return res
	}
	res := Questions(container)
	tc.questions[container.ContainerID()] = res
	return res
}

// Position returns the depth-first index of the component inside the form, or -1.
func (tc *TreeCache) Position(form *Form, componentID primitive.ObjectID) int {
	positions, ok := tc.positions[form.ID]
	if !ok {
		positions = map[primitive.ObjectID]int{}
		for i, c := range tc.AllComponents(form) {
			positions[c.ID] = i
		}
		tc.positions[form.ID] = positions
	}
	if p, ok := positions[componentID]; ok {
		return p
	}
	return -1
}
