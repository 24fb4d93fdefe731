package worldstate

import (
	"github.com/kamstrup/intmap"

	"github.com/vireo-engine/vireo/types"
)

// compKey is a tuple of a component ComponentID and an entity EntityID. It is used as
// a map key to keep track of component data in-memory.
type compKey struct {
	typeID   types.ComponentID
	entityID types.EntityID
}

// table tracks which entities carry a component of one type. Membership is kept in
// insertion order and survives commits in that order; the component values themselves
// live in the flat compValues storage keyed by compKey.
type table struct {
	comp  types.ComponentMetadata
	ids   []types.EntityID
	index *intmap.Map[types.EntityID, int]
}

func newTable(comp types.ComponentMetadata) *table {
	return &table{
		comp:  comp,
		index: intmap.New[types.EntityID, int](16),
	}
}

func (t *table) Contains(id types.EntityID) bool {
	_, ok := t.index.Get(id)
	return ok
}

// Append registers id as the newest member. The caller is responsible for checking
// that the entity is not already in the table.
func (t *table) Append(id types.EntityID) {
	t.index.Put(id, len(t.ids))
	t.ids = append(t.ids, id)
}

// IDs returns the member entities in insertion order. The slice is owned by the
// table; callers that iterate while mutating must copy it first.
func (t *table) IDs() []types.EntityID {
	return t.ids
}

func (t *table) Len() int {
	return len(t.ids)
}

// RemoveWhere drops every member for which dead returns true, preserving the order
// of the survivors, and returns the removed ids.
func (t *table) RemoveWhere(dead func(types.EntityID) bool) []types.EntityID {
	var removed []types.EntityID
	kept := t.ids[:0]
	for _, id := range t.ids {
		if dead(id) {
			removed = append(removed, id)
			t.index.Del(id)
			continue
		}
		kept = append(kept, id)
	}
	t.ids = kept
	for i, id := range t.ids {
		t.index.Put(id, i)
	}
	return removed
}
