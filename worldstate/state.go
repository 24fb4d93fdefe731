package worldstate

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vireo-engine/vireo/filter"
	worldlog "github.com/vireo-engine/vireo/log"
	"github.com/vireo-engine/vireo/types"
)

var _ Manager = &State{}

// State is the in-memory world state for one simulation instance: the entity
// population, one membership table per registered component type, the flat component
// value storage, and the change tracker that feeds the per-step new/erased views.
//
// Erasures are buffered: RequestEraseEntity and RemoveComponentFromEntity only mark.
// The marked data stays readable for the remainder of the step and is removed by
// FinalizeStep, so every phase of the step observes the same erased set.
type State struct {
	compValues      VolatileStorage[compKey, any]
	typeToComponent VolatileStorage[types.ComponentID, types.ComponentMetadata]

	tables     map[types.ComponentID]*table
	tableOrder []types.ComponentID

	entities *population
	tracker  *changeTracker

	currentStep uint64
	logger      *zerolog.Logger
}

// New creates an empty world state. Component types must be registered before any
// entity can carry them.
func New() *State {
	return &State{
		compValues: NewMapStorage[compKey, any](),
		tables:     make(map[types.ComponentID]*table),
		entities:   newPopulation(),
		tracker:    newChangeTracker(),

		// This field cannot be set until RegisterComponents is called
		typeToComponent: nil,

		logger: &log.Logger,
	}
}

func (m *State) RegisterComponents(comps []types.ComponentMetadata) error {
	m.typeToComponent = NewMapStorage[types.ComponentID, types.ComponentMetadata]()
	for _, comp := range comps {
		err := m.typeToComponent.Set(comp.ID(), comp)
		if err != nil {
			return err
		}
		if _, ok := m.tables[comp.ID()]; ok {
			continue
		}
		m.tables[comp.ID()] = newTable(comp)
		m.tableOrder = append(m.tableOrder, comp.ID())
	}
	return nil
}

// InjectLogger sets the logger used for entity and component events.
func (m *State) InjectLogger(logger *zerolog.Logger) {
	m.logger = logger
}

// CreateEntity creates a single entity with no components attached.
func (m *State) CreateEntity() (types.EntityID, error) {
	ids, err := m.CreateManyEntities(1)
	if err != nil {
		return types.NullEntity, err
	}
	return ids[0], nil
}

// CreateManyEntities creates many entities with no components attached.
func (m *State) CreateManyEntities(num int) ([]types.EntityID, error) {
	ids := make([]types.EntityID, num)
	for i := range ids {
		currID, err := m.entities.allocate(m.currentStep)
		if err != nil {
			return nil, err
		}
		ids[i] = currID
		worldlog.Entity(m.logger, zerolog.DebugLevel, currID, nil)
	}
	return ids, nil
}

// RequestEraseEntity marks the given entity for removal at the end of the current
// step. The entity and its components stay readable until then. Marking the same
// entity again within a step changes nothing.
func (m *State) RequestEraseEntity(id types.EntityID) error {
	if !m.entities.Contains(id) {
		return eris.Wrapf(ErrEntityDoesNotExist, "cannot erase entity %d", id)
	}
	m.entities.pendingErase.Add(id, m.currentStep)
	for _, typeID := range m.tableOrder {
		if m.tables[typeID].Contains(id) {
			m.tracker.MarkErased(typeID, id, m.currentStep)
		}
	}
	return nil
}

// AddComponentToEntity attaches the given component value to the given entity. An
// error is returned if the entity already has this component. Attaching to an entity
// already marked for erasure is legal; the new component is marked erased with it and
// dies at the same commit.
func (m *State) AddComponentToEntity(cType types.ComponentMetadata, id types.EntityID, value any) error {
	tbl, err := m.tableForComponent(cType)
	if err != nil {
		return err
	}
	if !m.entities.Contains(id) {
		return eris.Wrapf(ErrEntityDoesNotExist, "cannot add component %q to entity %d", cType.Name(), id)
	}
	if tbl.Contains(id) {
		return eris.Wrapf(ErrComponentAlreadyOnEntity, "component %q is already on entity %d", cType.Name(), id)
	}

	tbl.Append(id)
	if err := m.compValues.Set(compKey{cType.ID(), id}, value); err != nil {
		return err
	}
	m.tracker.MarkNew(cType.ID(), id, m.currentStep)
	if m.entities.pendingErase.Contains(id, m.currentStep) {
		m.tracker.MarkErased(cType.ID(), id, m.currentStep)
	}
	m.logger.Debug().
		Int("entity_id", int(id)). //nolint:gosec
		Str("component_name", cType.Name()).
		Msg("component attached")
	return nil
}

// SetComponentForEntity sets the given entity's component data to the given value.
func (m *State) SetComponentForEntity(
	cType types.ComponentMetadata,
	id types.EntityID, value any,
) error {
	if err := m.mustHaveComponent(cType, id); err != nil {
		return err
	}
	return m.compValues.Set(compKey{cType.ID(), id}, value)
}

// RemoveComponentFromEntity marks the given component for removal from the given
// entity at the end of the current step. An error is returned if the entity does not
// have the component.
func (m *State) RemoveComponentFromEntity(cType types.ComponentMetadata, id types.EntityID) error {
	if err := m.mustHaveComponent(cType, id); err != nil {
		return err
	}
	m.tracker.MarkErased(cType.ID(), id, m.currentStep)
	return nil
}

// GetComponentForEntity returns the saved component data for the given entity.
func (m *State) GetComponentForEntity(cType types.ComponentMetadata, id types.EntityID) (any, error) {
	if err := m.mustHaveComponent(cType, id); err != nil {
		return nil, err
	}
	return m.compValues.Get(compKey{cType.ID(), id})
}

// GetComponentForEntityInRawJSON returns the saved component data as JSON encoded bytes for the given entity.
func (m *State) GetComponentForEntityInRawJSON(cType types.ComponentMetadata, id types.EntityID) (
	json.RawMessage, error,
) {
	value, err := m.GetComponentForEntity(cType, id)
	if err != nil {
		return nil, err
	}
	return cType.Encode(value)
}

// GetComponentTypesForEntity returns all the component types that are currently on the given entity. Only types
// are returned. To get the actual component data, use GetComponentForEntity.
func (m *State) GetComponentTypesForEntity(id types.EntityID) ([]types.ComponentMetadata, error) {
	if !m.entities.Contains(id) {
		return nil, eris.Wrapf(ErrEntityDoesNotExist, "no components for entity %d", id)
	}
	var comps []types.ComponentMetadata
	for _, typeID := range m.tableOrder {
		tbl := m.tables[typeID]
		if tbl.Contains(id) {
			comps = append(comps, tbl.comp)
		}
	}
	return comps, nil
}

// ContainsEntity reports whether the given entity is live. Entities marked for
// erasure stay live until the end of the step.
func (m *State) ContainsEntity(id types.EntityID) bool {
	return m.entities.Contains(id)
}

// IsErasePending reports whether the given entity has been marked for erasure during
// the current step.
func (m *State) IsErasePending(id types.EntityID) bool {
	return m.entities.pendingErase.Contains(id, m.currentStep)
}

// EntityIDs returns the ids of all live entities in creation order.
func (m *State) EntityIDs() []types.EntityID {
	return snapshot(m.entities.IDs())
}

func (m *State) EntityCount() int {
	return m.entities.Len()
}

// NewEntityIDs returns the ids of entities created during the current step.
func (m *State) NewEntityIDs() []types.EntityID {
	return snapshot(m.entities.created.Members(m.currentStep))
}

// EntityIDsForComponent returns the entities carrying the given component type, in
// insertion order. The result is a snapshot: creations and erasures that happen after
// the call do not alter it.
func (m *State) EntityIDsForComponent(cType types.ComponentMetadata) ([]types.EntityID, error) {
	tbl, err := m.tableForComponent(cType)
	if err != nil {
		return nil, err
	}
	return snapshot(tbl.IDs()), nil
}

// NewEntityIDsForComponent returns the entities whose component of the given type was
// created during the current step.
func (m *State) NewEntityIDsForComponent(cType types.ComponentMetadata) ([]types.EntityID, error) {
	if _, err := m.tableForComponent(cType); err != nil {
		return nil, err
	}
	return snapshot(m.tracker.NewIDs(cType.ID(), m.currentStep)), nil
}

// ErasedEntityIDsForComponent returns the entities whose component of the given type
// was marked erased during the current step, either with the whole entity or on its
// own. The component values are still readable until the step commits.
func (m *State) ErasedEntityIDsForComponent(cType types.ComponentMetadata) ([]types.EntityID, error) {
	if _, err := m.tableForComponent(cType); err != nil {
		return nil, err
	}
	return snapshot(m.tracker.ErasedIDs(cType.ID(), m.currentStep)), nil
}

// Search returns the ids of all live entities whose component set matches the given
// filter, in creation order.
func (m *State) Search(componentFilter filter.ComponentFilter) ([]types.EntityID, error) {
	var result []types.EntityID
	for _, id := range m.entities.IDs() {
		comps, err := m.GetComponentTypesForEntity(id)
		if err != nil {
			return nil, err
		}
		asComponents := make([]types.Component, len(comps))
		for i, comp := range comps {
			asComponents[i] = comp
		}
		if componentFilter.MatchesComponents(asComponents) {
			result = append(result, id)
		}
	}
	return result, nil
}

// DebugState returns a JSON-friendly dump of every live entity and its component
// values, in creation order.
func (m *State) DebugState() (types.EntityStateResponse, error) {
	state := make(types.EntityStateResponse, 0, m.entities.Len())
	for _, id := range m.entities.IDs() {
		comps, err := m.GetComponentTypesForEntity(id)
		if err != nil {
			return nil, err
		}
		values := make(map[string]json.RawMessage, len(comps))
		for _, comp := range comps {
			bz, err := m.GetComponentForEntityInRawJSON(comp, id)
			if err != nil {
				return nil, err
			}
			values[comp.Name()] = bz
		}
		state = append(state, types.EntityStateElement{ID: id, Components: values})
	}
	return state, nil
}

// CurrentStep returns the number of the step currently being accumulated. It only
// advances when FinalizeStep commits.
func (m *State) CurrentStep() uint64 {
	return m.currentStep
}

// tableForComponent looks up the membership table for the given component type.
func (m *State) tableForComponent(cType types.ComponentMetadata) (*table, error) {
	tbl, ok := m.tables[cType.ID()]
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component %q has no table", cType.Name())
	}
	return tbl, nil
}

func (m *State) mustHaveComponent(cType types.ComponentMetadata, id types.EntityID) error {
	tbl, err := m.tableForComponent(cType)
	if err != nil {
		return err
	}
	if !m.entities.Contains(id) {
		return eris.Wrapf(ErrEntityDoesNotExist, "entity %d does not exist", id)
	}
	if !tbl.Contains(id) {
		return eris.Wrapf(ErrComponentNotOnEntity, "component %q is not on entity %d", cType.Name(), id)
	}
	return nil
}

// snapshot copies an id slice so callers can iterate while the underlying data moves.
func snapshot(ids []types.EntityID) []types.EntityID {
	if len(ids) == 0 {
		return nil
	}
	out := make([]types.EntityID, len(ids))
	copy(out, ids)
	return out
}
