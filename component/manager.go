package component

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/vireo-engine/vireo/types"
)

var ErrComponentNotRegistered = eris.New("component not registered")

type Manager struct {
	registeredComponents map[string]types.ComponentMetadata
	componentsByID       map[types.ComponentID]types.ComponentMetadata
	registrationOrder    []types.ComponentMetadata
	nextComponentID      types.ComponentID
}

// NewManager creates a new component manager.
func NewManager() *Manager {
	return &Manager{
		registeredComponents: make(map[string]types.ComponentMetadata),
		componentsByID:       make(map[types.ComponentID]types.ComponentMetadata),
		nextComponentID:      1,
	}
}

// RegisterComponent registers component with the component manager.
// There can only be one component with a given name, which is declared by the user by implementing the Name() method.
// Registering the same component type twice is a no-op; a different component that reuses
// a taken name is an error.
func (m *Manager) RegisterComponent(compMetadata types.ComponentMetadata) error {
	if existing, ok := m.registeredComponents[compMetadata.Name()]; ok {
		// Tests commonly register the same component in several worlds, so a true
		// re-registration must stay legal. Schemas are compared to tell that apart
		// from an unrelated component squatting on the name.
		matches, err := types.IsSchemaValid(existing.GetSchema(), compMetadata.GetSchema())
		if err != nil {
			return eris.Wrap(err, "error when comparing schema of a previously registered component")
		}
		if !matches {
			return eris.Errorf("component %q is already registered with a different schema", compMetadata.Name())
		}
		return compMetadata.SetID(existing.ID())
	}

	if err := compMetadata.SetID(m.nextComponentID); err != nil {
		return err
	}
	m.registeredComponents[compMetadata.Name()] = compMetadata
	m.componentsByID[compMetadata.ID()] = compMetadata
	m.registrationOrder = append(m.registrationOrder, compMetadata)
	m.nextComponentID++

	return nil
}

// GetComponents returns all registered components in registration order.
func (m *Manager) GetComponents() []types.ComponentMetadata {
	registeredComponents := make([]types.ComponentMetadata, len(m.registrationOrder))
	copy(registeredComponents, m.registrationOrder)
	return registeredComponents
}

// GetComponentByName returns the component metadata for the given component name.
func (m *Manager) GetComponentByName(name string) (types.ComponentMetadata, error) {
	c, ok := m.registeredComponents[name]
	if !ok {
		return nil, eris.Wrap(ErrComponentNotRegistered, fmt.Sprintf("component %q is not registered", name))
	}
	return c, nil
}

// GetComponentByID returns the component metadata for the given component id.
func (m *Manager) GetComponentByID(id types.ComponentID) (types.ComponentMetadata, error) {
	c, ok := m.componentsByID[id]
	if !ok {
		return nil, eris.Wrap(ErrComponentNotRegistered, fmt.Sprintf("component id %d is not registered", id))
	}
	return c, nil
}
