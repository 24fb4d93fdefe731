package component_test

import (
	"testing"

	"github.com/vireo-engine/vireo/assert"
	"github.com/vireo-engine/vireo/component"
	"github.com/vireo-engine/vireo/types"
)

func mustMetadata[T types.Component](t *testing.T) types.ComponentMetadata {
	t.Helper()
	c, err := component.NewComponentMetadata[T]()
	assert.NilError(t, err)
	return c
}

func TestManagerAssignsSequentialIDs(t *testing.T) {
	m := component.NewManager()

	mana := mustMetadata[Mana](t)
	outer := mustMetadata[Outer](t)
	assert.NilError(t, m.RegisterComponent(mana))
	assert.NilError(t, m.RegisterComponent(outer))

	assert.Equal(t, types.ComponentID(1), mana.ID())
	assert.Equal(t, types.ComponentID(2), outer.ID())

	registered := m.GetComponents()
	assert.Len(t, registered, 2)
	assert.Equal(t, "mana", registered[0].Name())
	assert.Equal(t, "outer", registered[1].Name())

	got, err := m.GetComponentByName("mana")
	assert.NilError(t, err)
	assert.Same(t, mana, got)

	got, err = m.GetComponentByID(2)
	assert.NilError(t, err)
	assert.Same(t, outer, got)
}

func TestLookupOfUnregisteredComponentFails(t *testing.T) {
	m := component.NewManager()

	_, err := m.GetComponentByName("mana")
	assert.ErrorIs(t, err, component.ErrComponentNotRegistered)
	_, err = m.GetComponentByID(1)
	assert.ErrorIs(t, err, component.ErrComponentNotRegistered)
}

func TestReregisteringTheSameComponentIsANoOp(t *testing.T) {
	m := component.NewManager()

	first := mustMetadata[Mana](t)
	assert.NilError(t, m.RegisterComponent(first))
	assert.NilError(t, m.RegisterComponent(first))

	// A separate metadata instance for the same component type keeps the original ID.
	second := mustMetadata[Mana](t)
	assert.NilError(t, m.RegisterComponent(second))
	assert.Equal(t, first.ID(), second.ID())
	assert.Len(t, m.GetComponents(), 1)
}

func TestNameCollisionWithDifferentSchemaIsRejected(t *testing.T) {
	m := component.NewManager()

	assert.NilError(t, m.RegisterComponent(mustMetadata[Mana](t)))
	err := m.RegisterComponent(mustMetadata[manaImpostor](t))
	assert.ErrorContains(t, err, "already registered with a different schema")
	assert.Len(t, m.GetComponents(), 1)
}
