package vireo

import (
	"errors"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/vireo-engine/vireo/component"
	"github.com/vireo-engine/vireo/types"
	"github.com/vireo-engine/vireo/worldstate"
)

var (
	ErrReadOnlyContext          = errors.New("cannot modify state with read only context")
	ErrEntityIDExhausted        = worldstate.ErrEntityIDExhausted
	ErrEntityDoesNotExist       = worldstate.ErrEntityDoesNotExist
	ErrComponentAlreadyOnEntity = worldstate.ErrComponentAlreadyOnEntity
	ErrComponentNotOnEntity     = worldstate.ErrComponentNotOnEntity
	ErrComponentNotRegistered   = worldstate.ErrComponentNotRegistered
)

type (
	EntityID  = types.EntityID
	Component = types.Component
)

// RegisterComponent registers the component type T with the world. All component
// types must be registered before the first step runs; using an unregistered type
// fails with ErrComponentNotRegistered.
func RegisterComponent[T types.Component](w *World) error {
	if w.stateIsLoaded() {
		return eris.New("cannot register components after the first step has started")
	}

	compMetadata, err := component.NewComponentMetadata[T]()
	if err != nil {
		return err
	}

	return w.componentManager.RegisterComponent(compMetadata)
}

func MustRegisterComponent[T types.Component](w *World) {
	err := RegisterComponent[T](w)
	if err != nil {
		panic(err)
	}
}

// RegisterSystems registers the given systems with the world. Systems run in
// registration order within every phase, for the lifetime of the world.
func RegisterSystems(w *World, systems ...any) error {
	if w.stateIsLoaded() {
		return eris.New("cannot register systems after the first step has started")
	}
	return w.systemManager.RegisterSystems(systems...)
}

// CreateEntity creates a single entity in the world, and returns the id of the newly
// created entity. The given component values, if any, are attached to it.
func CreateEntity(wCtx Context, components ...types.Component) (types.EntityID, error) {
	entityIDs, err := CreateManyEntities(wCtx, 1, components...)
	if err != nil {
		return types.NullEntity, err
	}
	return entityIDs[0], nil
}

// CreateManyEntities creates multiple entities in the world, and returns the slice of
// ids for the newly created entities. Every entity gets its own copy of the given
// component values.
func CreateManyEntities(wCtx Context, num int, components ...types.Component) ([]types.EntityID, error) {
	// Error if the context is read only
	if wCtx.IsReadOnly() {
		return nil, ErrReadOnlyContext
	}

	// Get all component metadata for the given components
	acc := make([]types.ComponentMetadata, 0, len(components))
	for _, comp := range components {
		c, err := wCtx.GetComponentByName(comp.Name())
		if err != nil {
			return nil, eris.Wrapf(ErrComponentNotRegistered, "cannot create entity with component %q", comp.Name())
		}
		acc = append(acc, c)
	}

	// Create the entities
	entityIDs, err := wCtx.StoreManager().CreateManyEntities(num)
	if err != nil {
		return nil, err
	}

	// Attach the components to the entities
	for _, id := range entityIDs {
		for i, comp := range components {
			if err := wCtx.StoreManager().AddComponentToEntity(acc[i], id, comp); err != nil {
				return nil, err
			}
		}
	}

	return entityIDs, nil
}

// RequestEraseEntity marks the given entity for removal at the end of the current
// step. The entity and its components stay readable until the step commits. Marking
// the same entity again within a step changes nothing.
func RequestEraseEntity(wCtx Context, id types.EntityID) error {
	// Error if the context is read only
	if wCtx.IsReadOnly() {
		return ErrReadOnlyContext
	}

	return wCtx.StoreManager().RequestEraseEntity(id)
}

// CreateComponent attaches the given component value to the given entity. It fails
// with ErrComponentAlreadyOnEntity if the entity already carries a component of this
// type, even one that is marked erased and not yet committed.
func CreateComponent[T types.Component](wCtx Context, id types.EntityID, value T) error {
	// Error if the context is read only
	if wCtx.IsReadOnly() {
		return ErrReadOnlyContext
	}

	// Get the component metadata
	c, err := wCtx.GetComponentByName(value.Name())
	if err != nil {
		return eris.Wrapf(ErrComponentNotRegistered, "cannot create component %q", value.Name())
	}

	// Attach the component to the entity
	return wCtx.StoreManager().AddComponentToEntity(c, id, value)
}

// GetComponent returns a copy of the entity's component data. Writes to the copy do
// not change the stored value; use SetComponent or UpdateComponent for that.
func GetComponent[T types.Component](wCtx Context, id types.EntityID) (*T, error) {
	// Get the component metadata
	var t T
	c, err := wCtx.GetComponentByName(t.Name())
	if err != nil {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "cannot get component %q", t.Name())
	}

	// Get current component value
	value, err := wCtx.StoreReader().GetComponentForEntity(c, id)
	if err != nil {
		return nil, err
	}

	// Type assert the component value to the component type
	t, ok := value.(T)
	if !ok {
		ptr, pok := value.(*T)
		if !pok {
			return nil, eris.Errorf("type assertion for component failed: %v to %v", value, c)
		}
		t = *ptr
	}

	return &t, nil
}

// SetComponent sets the entity's component data to the given value.
func SetComponent[T types.Component](wCtx Context, id types.EntityID, value T) error {
	// Error if the context is read only
	if wCtx.IsReadOnly() {
		return ErrReadOnlyContext
	}

	// Get the component metadata
	c, err := wCtx.GetComponentByName(value.Name())
	if err != nil {
		return eris.Wrapf(ErrComponentNotRegistered, "cannot set component %q", value.Name())
	}

	// Store the component
	if err := wCtx.StoreManager().SetComponentForEntity(c, id, value); err != nil {
		return err
	}

	// Log
	wCtx.Logger().Debug().
		Str("entity_id", strconv.FormatUint(uint64(id), 10)).
		Str("component_name", c.Name()).
		Int("component_id", int(c.ID())).
		Msg("entity updated")

	return nil
}

// UpdateComponent reads the entity's component data, hands a copy to fn, and stores
// the value fn returns.
func UpdateComponent[T types.Component](wCtx Context, id types.EntityID, fn func(*T) *T) error {
	// Error if the context is read only
	if wCtx.IsReadOnly() {
		return ErrReadOnlyContext
	}

	// Get current component value
	val, err := GetComponent[T](wCtx, id)
	if err != nil {
		return err
	}

	// Get the new component value
	updatedVal := fn(val)
	if updatedVal == nil {
		return eris.New("update function returned a nil component")
	}

	// Store the new component value
	return SetComponent(wCtx, id, *updatedVal)
}

// RemoveComponent marks the entity's component of type T for removal at the end of
// the current step. The value stays readable until the step commits; commit removes
// only this (entity, type) pair.
func RemoveComponent[T types.Component](wCtx Context, id types.EntityID) error {
	// Error if the context is read only
	if wCtx.IsReadOnly() {
		return ErrReadOnlyContext
	}

	// Get the component metadata
	var t T
	c, err := wCtx.GetComponentByName(t.Name())
	if err != nil {
		return eris.Wrapf(ErrComponentNotRegistered, "cannot remove component %q", t.Name())
	}

	// Mark the component for removal
	return wCtx.StoreManager().RemoveComponentFromEntity(c, id)
}

// Each visits every entity carrying component T, in the order the components were
// attached. The callback receives a copy of the stored value; returning false stops
// the traversal. Membership is decided when the call starts: creations and erasures
// made inside the callback affect later calls, not this one. Entities marked erased
// this step are still visited.
func Each[T types.Component](wCtx Context, fn func(id types.EntityID, val T) bool) error {
	var t T
	c, err := wCtx.GetComponentByName(t.Name())
	if err != nil {
		return eris.Wrapf(ErrComponentNotRegistered, "cannot iterate component %q", t.Name())
	}

	ids, err := wCtx.StoreReader().EntityIDsForComponent(c)
	if err != nil {
		return err
	}
	return visit(wCtx, c, ids, fn)
}

// EachNew is Each restricted to the pairs whose component of type T was attached
// during the current step.
func EachNew[T types.Component](wCtx Context, fn func(id types.EntityID, val T) bool) error {
	var t T
	c, err := wCtx.GetComponentByName(t.Name())
	if err != nil {
		return eris.Wrapf(ErrComponentNotRegistered, "cannot iterate component %q", t.Name())
	}

	ids, err := wCtx.StoreReader().NewEntityIDsForComponent(c)
	if err != nil {
		return err
	}
	return visit(wCtx, c, ids, fn)
}

// EachErased is Each restricted to the pairs marked erased during the current step,
// either with their whole entity or through RemoveComponent. The callback receives
// the last valid value of each pair.
func EachErased[T types.Component](wCtx Context, fn func(id types.EntityID, val T) bool) error {
	var t T
	c, err := wCtx.GetComponentByName(t.Name())
	if err != nil {
		return eris.Wrapf(ErrComponentNotRegistered, "cannot iterate component %q", t.Name())
	}

	ids, err := wCtx.StoreReader().ErasedEntityIDsForComponent(c)
	if err != nil {
		return err
	}
	return visit(wCtx, c, ids, fn)
}

func visit[T types.Component](
	wCtx Context,
	c types.ComponentMetadata,
	ids []types.EntityID,
	fn func(id types.EntityID, val T) bool,
) error {
	for _, id := range ids {
		value, err := wCtx.StoreReader().GetComponentForEntity(c, id)
		if err != nil {
			return err
		}
		val, ok := value.(T)
		if !ok {
			ptr, pok := value.(*T)
			if !pok {
				return eris.Errorf("type assertion for component failed: %v to %v", value, c)
			}
			val = *ptr
		}
		if !fn(id, val) {
			return nil
		}
	}
	return nil
}
