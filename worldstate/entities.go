package worldstate

import (
	"math"

	"github.com/kamstrup/intmap"

	"github.com/vireo-engine/vireo/types"
)

// population tracks every live entity in creation order, plus the per-step sets of
// entities created this step and entities whose erasure is pending.
type population struct {
	nextID       types.EntityID
	active       []types.EntityID
	index        *intmap.Map[types.EntityID, int]
	created      *stepSet
	pendingErase *stepSet
}

func newPopulation() *population {
	return &population{
		nextID:       types.NullEntity + 1,
		index:        intmap.New[types.EntityID, int](16),
		created:      newStepSet(),
		pendingErase: newStepSet(),
	}
}

// allocate hands out the next identifier. Identifiers are never reused, so the id
// space running out is unrecoverable.
func (p *population) allocate(step uint64) (types.EntityID, error) {
	if p.nextID == math.MaxUint64 {
		return types.NullEntity, ErrEntityIDExhausted
	}
	id := p.nextID
	p.nextID++
	p.index.Put(id, len(p.active))
	p.active = append(p.active, id)
	p.created.Add(id, step)
	return id, nil
}

func (p *population) Contains(id types.EntityID) bool {
	_, ok := p.index.Get(id)
	return ok
}

// IDs returns the live entities in creation order. The slice is owned by the
// population; callers that iterate while mutating must copy it first.
func (p *population) IDs() []types.EntityID {
	return p.active
}

func (p *population) Len() int {
	return len(p.active)
}

// RemoveWhere drops every entity for which dead returns true, preserving the order
// of the survivors.
func (p *population) RemoveWhere(dead func(types.EntityID) bool) {
	kept := p.active[:0]
	for _, id := range p.active {
		if dead(id) {
			p.index.Del(id)
			continue
		}
		kept = append(kept, id)
	}
	p.active = kept
	for i, id := range p.active {
		p.index.Put(id, i)
	}
}
