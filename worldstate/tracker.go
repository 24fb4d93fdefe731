package worldstate

import (
	"github.com/vireo-engine/vireo/types"
)

// changeTracker is the cross-type registry of which (component type, entity) pairs
// became new or were marked erased during the current step. Marks are set-valued:
// marking the same pair any number of times within a step records it once.
type changeTracker struct {
	newPairs    map[types.ComponentID]*stepSet
	erasedPairs map[types.ComponentID]*stepSet
}

func newChangeTracker() *changeTracker {
	return &changeTracker{
		newPairs:    make(map[types.ComponentID]*stepSet),
		erasedPairs: make(map[types.ComponentID]*stepSet),
	}
}

func (t *changeTracker) MarkNew(typeID types.ComponentID, id types.EntityID, step uint64) {
	t.setFor(t.newPairs, typeID).Add(id, step)
}

func (t *changeTracker) MarkErased(typeID types.ComponentID, id types.EntityID, step uint64) {
	t.setFor(t.erasedPairs, typeID).Add(id, step)
}

func (t *changeTracker) IsNew(typeID types.ComponentID, id types.EntityID, step uint64) bool {
	set, ok := t.newPairs[typeID]
	return ok && set.Contains(id, step)
}

func (t *changeTracker) IsErased(typeID types.ComponentID, id types.EntityID, step uint64) bool {
	set, ok := t.erasedPairs[typeID]
	return ok && set.Contains(id, step)
}

// NewIDs returns the entities whose component of the given type was created during
// the given step, in mark order.
func (t *changeTracker) NewIDs(typeID types.ComponentID, step uint64) []types.EntityID {
	set, ok := t.newPairs[typeID]
	if !ok {
		return nil
	}
	return set.Members(step)
}

// ErasedIDs returns the entities whose component of the given type was marked erased
// during the given step, in mark order.
func (t *changeTracker) ErasedIDs(typeID types.ComponentID, step uint64) []types.EntityID {
	set, ok := t.erasedPairs[typeID]
	if !ok {
		return nil
	}
	return set.Members(step)
}

// ClearAll empties every per-type set. Run once per step, after commit.
func (t *changeTracker) ClearAll() {
	for _, set := range t.newPairs {
		set.Clear()
	}
	for _, set := range t.erasedPairs {
		set.Clear()
	}
}

func (t *changeTracker) setFor(
	sets map[types.ComponentID]*stepSet, typeID types.ComponentID,
) *stepSet {
	set, ok := sets[typeID]
	if !ok {
		set = newStepSet()
		sets[typeID] = set
	}
	return set
}
