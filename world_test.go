package vireo_test

import (
	"context"
	"testing"

	"github.com/vireo-engine/vireo"
	"github.com/vireo-engine/vireo/assert"
	"github.com/vireo-engine/vireo/filter"
	"github.com/vireo-engine/vireo/testutils"
	"github.com/vireo-engine/vireo/types"
)

type Presence struct {
	Tag int
}

func (Presence) Name() string { return "presence" }

// phaseCounts is one phase's view of the presence population.
type phaseCounts struct {
	live  int
	fresh int
	dying int
}

func presenceCounts(wCtx vireo.Context) (phaseCounts, error) {
	var c phaseCounts
	if err := vireo.Each[Presence](wCtx, func(types.EntityID, Presence) bool {
		c.live++
		return true
	}); err != nil {
		return c, err
	}
	if err := vireo.EachNew[Presence](wCtx, func(types.EntityID, Presence) bool {
		c.fresh++
		return true
	}); err != nil {
		return c, err
	}
	if err := vireo.EachErased[Presence](wCtx, func(types.EntityID, Presence) bool {
		c.dying++
		return true
	}); err != nil {
		return c, err
	}
	return c, nil
}

// spawnSystem creates pending entities on its next turn, then goes quiet.
type spawnSystem struct {
	pending int
	created []types.EntityID
}

func (s *spawnSystem) Update(wCtx vireo.Context) error {
	if s.pending == 0 {
		return nil
	}
	ids, err := vireo.CreateManyEntities(wCtx, s.pending, Presence{})
	if err != nil {
		return err
	}
	s.created = append(s.created, ids...)
	s.pending = 0
	return nil
}

// cullSystem marks its target for erasure, then goes quiet.
type cullSystem struct {
	target types.EntityID
}

func (s *cullSystem) Update(wCtx vireo.Context) error {
	if s.target == types.NullEntity {
		return nil
	}
	err := vireo.RequestEraseEntity(wCtx, s.target)
	s.target = types.NullEntity
	return err
}

// auditSystem snapshots the presence population in every phase.
type auditSystem struct {
	pre  phaseCounts
	up   phaseCounts
	post phaseCounts
}

func (s *auditSystem) PreUpdate(wCtx vireo.Context) error {
	var err error
	s.pre, err = presenceCounts(wCtx)
	return err
}

func (s *auditSystem) Update(wCtx vireo.Context) error {
	var err error
	s.up, err = presenceCounts(wCtx)
	return err
}

func (s *auditSystem) PostUpdate(wCtx vireo.Context) error {
	var err error
	s.post, err = presenceCounts(wCtx)
	return err
}

func TestBufferedErasureLifecycle(t *testing.T) {
	world := testutils.NewTestWorld(t)
	assert.NilError(t, vireo.RegisterComponent[Presence](world))
	spawn := &spawnSystem{pending: 2}
	cull := &cullSystem{}
	audit := &auditSystem{}
	assert.NilError(t, vireo.RegisterSystems(world, spawn, cull, audit))
	assert.NilError(t, world.LoadState())
	ctx := context.Background()

	// Step 0: two entities appear during the update phase. PreUpdate ran before
	// they existed; Update and PostUpdate see them as new and live.
	assert.NilError(t, world.Step(ctx))
	assert.Equal(t, phaseCounts{}, audit.pre)
	assert.Equal(t, phaseCounts{live: 2, fresh: 2}, audit.up)
	assert.Equal(t, phaseCounts{live: 2, fresh: 2}, audit.post)
	assert.Len(t, spawn.created, 2)

	// Step 1: the commit cleared the change views; the entities stay live.
	assert.NilError(t, world.Step(ctx))
	assert.Equal(t, phaseCounts{live: 2}, audit.pre)
	assert.Equal(t, phaseCounts{live: 2}, audit.up)
	assert.Equal(t, phaseCounts{live: 2}, audit.post)

	// Step 2: one entity is marked for erasure. It stays readable for the whole
	// step and every later phase agrees it is dying.
	victim, survivor := spawn.created[0], spawn.created[1]
	cull.target = victim
	assert.NilError(t, world.Step(ctx))
	assert.Equal(t, phaseCounts{live: 2}, audit.pre)
	assert.Equal(t, phaseCounts{live: 2, dying: 1}, audit.up)
	assert.Equal(t, phaseCounts{live: 2, dying: 1}, audit.post)

	// Step 3: the commit removed the marked entity.
	assert.NilError(t, world.Step(ctx))
	assert.Equal(t, phaseCounts{live: 1}, audit.pre)
	assert.Equal(t, phaseCounts{live: 1}, audit.post)

	assert.Assert(t, !world.StoreReader().ContainsEntity(victim))
	assert.Assert(t, world.StoreReader().ContainsEntity(survivor))
	readCtx := vireo.NewReadOnlyWorldContext(world)
	_, err := vireo.GetComponent[Presence](readCtx, victim)
	assert.ErrorIs(t, err, vireo.ErrEntityDoesNotExist)
}

func TestEntityIDsAreNeverReused(t *testing.T) {
	world := testutils.NewTestWorld(t)
	assert.NilError(t, vireo.RegisterComponent[Presence](world))
	assert.NilError(t, world.LoadState())

	wCtx := vireo.NewWorldContext(world)
	ids, err := vireo.CreateManyEntities(wCtx, 2, Presence{})
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.EntityID{1, 2}, ids)

	assert.NilError(t, vireo.RequestEraseEntity(wCtx, ids[0]))
	assert.NilError(t, vireo.RequestEraseEntity(wCtx, ids[1]))
	assert.NilError(t, world.Step(context.Background()))
	assert.Equal(t, 0, world.StoreReader().EntityCount())

	// Erased ids are gone for good; new entities get fresh ids.
	id, err := vireo.CreateEntity(wCtx, Presence{})
	assert.NilError(t, err)
	assert.Equal(t, types.EntityID(3), id)
	assert.Equal(t, 1, world.StoreReader().EntityCount())
}

func TestEraseRequests(t *testing.T) {
	world := testutils.NewTestWorld(t)
	assert.NilError(t, vireo.RegisterComponent[Presence](world))
	assert.NilError(t, world.LoadState())

	wCtx := vireo.NewWorldContext(world)
	id, err := vireo.CreateEntity(wCtx, Presence{})
	assert.NilError(t, err)

	// Marking twice changes nothing.
	assert.NilError(t, vireo.RequestEraseEntity(wCtx, id))
	assert.NilError(t, vireo.RequestEraseEntity(wCtx, id))
	assert.Assert(t, world.StoreReader().IsErasePending(id))

	// Unknown ids are rejected.
	err = vireo.RequestEraseEntity(wCtx, types.EntityID(999))
	assert.ErrorIs(t, err, vireo.ErrEntityDoesNotExist)

	assert.NilError(t, world.Step(context.Background()))
	assert.Equal(t, 0, world.StoreReader().EntityCount())
}

func TestInsertionOrderSurvivesErasure(t *testing.T) {
	world := testutils.NewTestWorld(t)
	assert.NilError(t, vireo.RegisterComponent[Presence](world))
	assert.NilError(t, world.LoadState())
	ctx := context.Background()

	wCtx := vireo.NewWorldContext(world)
	collectOrder := func() []types.EntityID {
		var order []types.EntityID
		assert.NilError(t, vireo.Each[Presence](wCtx, func(id types.EntityID, _ Presence) bool {
			order = append(order, id)
			return true
		}))
		return order
	}

	a, err := vireo.CreateEntity(wCtx, Presence{Tag: 1})
	assert.NilError(t, err)
	b, err := vireo.CreateEntity(wCtx, Presence{Tag: 2})
	assert.NilError(t, err)
	c, err := vireo.CreateEntity(wCtx, Presence{Tag: 3})
	assert.NilError(t, err)

	assert.NilError(t, vireo.RequestEraseEntity(wCtx, b))
	assert.NilError(t, world.Step(ctx))

	// The survivors keep their relative order, and later additions go to the end.
	assert.DeepEqual(t, []types.EntityID{a, c}, collectOrder())
	d, err := vireo.CreateEntity(wCtx, Presence{Tag: 4})
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.EntityID{a, c, d}, collectOrder())
}

func TestRemoveComponentKeepsEntityAlive(t *testing.T) {
	world := testutils.NewTestWorld(t)
	assert.NilError(t, vireo.RegisterComponent[Presence](world))
	assert.NilError(t, vireo.RegisterComponent[Health](world))
	assert.NilError(t, world.LoadState())
	ctx := context.Background()

	wCtx := vireo.NewWorldContext(world)
	id, err := vireo.CreateEntity(wCtx, Presence{}, Health{Value: 7})
	assert.NilError(t, err)

	// The entity already has a health component, so attaching another is refused.
	err = vireo.CreateComponent(wCtx, id, Health{Value: 9})
	assert.ErrorIs(t, err, vireo.ErrComponentAlreadyOnEntity)

	assert.NilError(t, vireo.RemoveComponent[Health](wCtx, id))
	// Marking again changes nothing.
	assert.NilError(t, vireo.RemoveComponent[Health](wCtx, id))

	// The marked value stays readable until the commit, and the pair still
	// counts as attached.
	h, err := vireo.GetComponent[Health](wCtx, id)
	assert.NilError(t, err)
	assert.Equal(t, 7, h.Value)
	err = vireo.CreateComponent(wCtx, id, Health{Value: 9})
	assert.ErrorIs(t, err, vireo.ErrComponentAlreadyOnEntity)

	dying := 0
	assert.NilError(t, vireo.EachErased[Health](wCtx, func(types.EntityID, Health) bool {
		dying++
		return true
	}))
	assert.Equal(t, 1, dying)

	assert.NilError(t, world.Step(ctx))

	// The commit removed only the marked pair; the entity lives on.
	_, err = vireo.GetComponent[Health](wCtx, id)
	assert.ErrorIs(t, err, vireo.ErrComponentNotOnEntity)
	assert.Assert(t, world.StoreReader().ContainsEntity(id))
	p, err := vireo.GetComponent[Presence](wCtx, id)
	assert.NilError(t, err)
	assert.Equal(t, 0, p.Tag)

	// The component can come back later with a fresh value.
	assert.NilError(t, vireo.CreateComponent(wCtx, id, Health{Value: 100}))
	h, err = vireo.GetComponent[Health](wCtx, id)
	assert.NilError(t, err)
	assert.Equal(t, 100, h.Value)
}

func TestComponentAddedToDyingEntityDiesWithIt(t *testing.T) {
	world := testutils.NewTestWorld(t)
	assert.NilError(t, vireo.RegisterComponent[Presence](world))
	assert.NilError(t, vireo.RegisterComponent[Health](world))
	assert.NilError(t, world.LoadState())

	wCtx := vireo.NewWorldContext(world)
	id, err := vireo.CreateEntity(wCtx, Presence{})
	assert.NilError(t, err)
	assert.NilError(t, vireo.RequestEraseEntity(wCtx, id))
	assert.Assert(t, world.StoreReader().IsErasePending(id))

	// Attaching to a dying entity is allowed; the new component is marked
	// erased with it and dies at the same commit.
	assert.NilError(t, vireo.CreateComponent(wCtx, id, Health{Value: 1}))
	dying := 0
	assert.NilError(t, vireo.EachErased[Health](wCtx, func(types.EntityID, Health) bool {
		dying++
		return true
	}))
	assert.Equal(t, 1, dying)

	assert.NilError(t, world.Step(context.Background()))
	assert.Assert(t, !world.StoreReader().ContainsEntity(id))
}

type StrayComponent struct {
	X int
}

func (StrayComponent) Name() string { return "stray" }

func TestUnregisteredComponentIsRejected(t *testing.T) {
	world := testutils.NewTestWorld(t)
	assert.NilError(t, vireo.RegisterComponent[Presence](world))
	assert.NilError(t, world.LoadState())

	wCtx := vireo.NewWorldContext(world)
	_, err := vireo.CreateEntity(wCtx, StrayComponent{})
	assert.ErrorIs(t, err, vireo.ErrComponentNotRegistered)

	id, err := vireo.CreateEntity(wCtx, Presence{})
	assert.NilError(t, err)
	assert.ErrorIs(t, vireo.CreateComponent(wCtx, id, StrayComponent{}), vireo.ErrComponentNotRegistered)
	_, err = vireo.GetComponent[StrayComponent](wCtx, id)
	assert.ErrorIs(t, err, vireo.ErrComponentNotRegistered)
}

func TestWorldSearch(t *testing.T) {
	world := testutils.NewTestWorld(t)
	assert.NilError(t, vireo.RegisterComponent[Presence](world))
	assert.NilError(t, vireo.RegisterComponent[Health](world))
	assert.NilError(t, world.LoadState())

	wCtx := vireo.NewWorldContext(world)
	a, err := vireo.CreateEntity(wCtx, Presence{})
	assert.NilError(t, err)
	b, err := vireo.CreateEntity(wCtx, Presence{}, Health{})
	assert.NilError(t, err)

	ids, err := world.Search(filter.Contains(Presence{})).Collect()
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.EntityID{a, b}, ids)

	ids, err = world.Search(filter.Exact(Presence{})).Collect()
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.EntityID{a}, ids)

	count, err := world.Search(filter.Contains(Health{})).Count()
	assert.NilError(t, err)
	assert.Equal(t, 1, count)
}

func TestDebugStateListsEntitiesInCreationOrder(t *testing.T) {
	world := testutils.NewTestWorld(t)
	assert.NilError(t, vireo.RegisterComponent[Presence](world))
	assert.NilError(t, vireo.RegisterComponent[Health](world))
	assert.NilError(t, world.LoadState())

	wCtx := vireo.NewWorldContext(world)
	a, err := vireo.CreateEntity(wCtx, Presence{Tag: 1})
	assert.NilError(t, err)
	b, err := vireo.CreateEntity(wCtx, Presence{Tag: 2}, Health{Value: 3})
	assert.NilError(t, err)

	state, err := world.DebugState()
	assert.NilError(t, err)
	assert.Len(t, state, 2)
	assert.Equal(t, a, state[0].ID)
	assert.JSONEq(t, `{"Tag":1}`, string(state[0].Components["presence"]))
	assert.Equal(t, b, state[1].ID)
	assert.JSONEq(t, `{"Tag":2}`, string(state[1].Components["presence"]))
	assert.JSONEq(t, `{"Value":3}`, string(state[1].Components["health"]))
}
