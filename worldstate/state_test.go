package worldstate_test

import (
	"context"
	"testing"

	"github.com/vireo-engine/vireo/assert"
	"github.com/vireo-engine/vireo/component"
	"github.com/vireo-engine/vireo/filter"
	"github.com/vireo-engine/vireo/types"
	"github.com/vireo-engine/vireo/worldstate"
)

type Foo struct {
	Value int
}

func (Foo) Name() string {
	return "foo"
}

type Bar struct {
	Value int
}

func (Bar) Name() string {
	return "bar"
}

var (
	fooComp, errForFooCompGlobal = component.NewComponentMetadata[Foo]()
	barComp, errForBarCompGlobal = component.NewComponentMetadata[Bar]()
	allComponents                = []types.ComponentMetadata{fooComp, barComp}
)

func TestGlobals(t *testing.T) {
	assert.NilError(t, errForFooCompGlobal)
	assert.NilError(t, errForBarCompGlobal)
}

//nolint:gochecknoinits // its for testing.
func init() {
	_ = fooComp.SetID(1) //nolint:errcheck
	_ = barComp.SetID(2) //nolint:errcheck
}

func newStateForTest(t *testing.T) worldstate.Manager {
	state := worldstate.New()
	assert.NilError(t, state.RegisterComponents(allComponents))
	return state
}

func TestCanCreateEntityAndSetComponent(t *testing.T) {
	state := newStateForTest(t)
	ctx := context.Background()
	wantValue := Foo{99}

	id, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, state.AddComponentToEntity(fooComp, id, Foo{}))
	assert.NilError(t, state.SetComponentForEntity(fooComp, id, wantValue))
	gotValue, err := state.GetComponentForEntity(fooComp, id)
	assert.NilError(t, err)
	assert.Equal(t, wantValue, gotValue)

	// Commit the step
	assert.NilError(t, state.FinalizeStep(ctx))

	// Data should not change after a commit
	gotValue, err = state.GetComponentForEntity(fooComp, id)
	assert.NilError(t, err)
	assert.Equal(t, wantValue, gotValue)
}

func TestEntityIDsStartAtOneAndAreSequential(t *testing.T) {
	state := newStateForTest(t)
	ids, err := state.CreateManyEntities(5)
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.EntityID{1, 2, 3, 4, 5}, ids)

	id, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.Equal(t, types.EntityID(6), id)
}

func TestErasedEntityIDsAreNotReassigned(t *testing.T) {
	state := newStateForTest(t)
	ctx := context.Background()

	ids, err := state.CreateManyEntities(3)
	assert.NilError(t, err)
	for _, id := range ids {
		assert.NilError(t, state.RequestEraseEntity(id))
	}
	assert.NilError(t, state.FinalizeStep(ctx))
	assert.Equal(t, 0, state.EntityCount())

	// The id sequence continues past the erased ids.
	id, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.Equal(t, ids[len(ids)-1]+1, id)
}

func TestErasureIsBufferedUntilCommit(t *testing.T) {
	state := newStateForTest(t)
	ctx := context.Background()

	id, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, state.AddComponentToEntity(fooComp, id, Foo{7}))
	assert.NilError(t, state.FinalizeStep(ctx))

	assert.NilError(t, state.RequestEraseEntity(id))

	// The mark is visible, but the data stays readable until the commit.
	assert.Assert(t, state.IsErasePending(id))
	assert.Assert(t, state.ContainsEntity(id))
	gotValue, err := state.GetComponentForEntity(fooComp, id)
	assert.NilError(t, err)
	assert.Equal(t, Foo{7}, gotValue)
	erased, err := state.ErasedEntityIDsForComponent(fooComp)
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.EntityID{id}, erased)

	assert.NilError(t, state.FinalizeStep(ctx))

	assert.Assert(t, !state.ContainsEntity(id))
	_, err = state.GetComponentForEntity(fooComp, id)
	assert.ErrorIs(t, err, worldstate.ErrEntityDoesNotExist)
	erased, err = state.ErasedEntityIDsForComponent(fooComp)
	assert.NilError(t, err)
	assert.Len(t, erased, 0)
}

func TestChangeViewsResetEachStep(t *testing.T) {
	state := newStateForTest(t)
	ctx := context.Background()

	id, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, state.AddComponentToEntity(fooComp, id, Foo{}))

	newIDs, err := state.NewEntityIDsForComponent(fooComp)
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.EntityID{id}, newIDs)
	assert.DeepEqual(t, []types.EntityID{id}, state.NewEntityIDs())

	assert.NilError(t, state.FinalizeStep(ctx))

	newIDs, err = state.NewEntityIDsForComponent(fooComp)
	assert.NilError(t, err)
	assert.Len(t, newIDs, 0)
	assert.Len(t, state.NewEntityIDs(), 0)
}

func TestInsertionOrderIsPreservedByCommits(t *testing.T) {
	state := newStateForTest(t)
	ctx := context.Background()

	ids, err := state.CreateManyEntities(5)
	assert.NilError(t, err)
	for _, id := range ids {
		assert.NilError(t, state.AddComponentToEntity(fooComp, id, Foo{Value: int(id)}))
	}
	assert.NilError(t, state.RequestEraseEntity(ids[0]))
	assert.NilError(t, state.RequestEraseEntity(ids[2]))
	assert.NilError(t, state.FinalizeStep(ctx))

	want := []types.EntityID{ids[1], ids[3], ids[4]}
	got, err := state.EntityIDsForComponent(fooComp)
	assert.NilError(t, err)
	assert.DeepEqual(t, want, got)
	assert.DeepEqual(t, want, state.EntityIDs())

	// Later additions go after the survivors.
	id6, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, state.AddComponentToEntity(fooComp, id6, Foo{}))
	got, err = state.EntityIDsForComponent(fooComp)
	assert.NilError(t, err)
	assert.DeepEqual(t, append(want, id6), got)
}

func TestRemoveComponentOnlyRemovesThatPair(t *testing.T) {
	state := newStateForTest(t)
	ctx := context.Background()

	id, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, state.AddComponentToEntity(fooComp, id, Foo{1}))
	assert.NilError(t, state.AddComponentToEntity(barComp, id, Bar{2}))
	assert.NilError(t, state.FinalizeStep(ctx))

	assert.NilError(t, state.RemoveComponentFromEntity(fooComp, id))

	// The marked pair stays readable until the commit.
	gotValue, err := state.GetComponentForEntity(fooComp, id)
	assert.NilError(t, err)
	assert.Equal(t, Foo{1}, gotValue)

	assert.NilError(t, state.FinalizeStep(ctx))

	_, err = state.GetComponentForEntity(fooComp, id)
	assert.ErrorIs(t, err, worldstate.ErrComponentNotOnEntity)
	comps, err := state.GetComponentTypesForEntity(id)
	assert.NilError(t, err)
	assert.Len(t, comps, 1)
	assert.Equal(t, barComp.ID(), comps[0].ID())
	assert.Assert(t, state.ContainsEntity(id))
}

func TestComponentAddedToDyingEntityDiesAtTheSameCommit(t *testing.T) {
	state := newStateForTest(t)
	ctx := context.Background()

	id, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, state.RequestEraseEntity(id))
	assert.NilError(t, state.AddComponentToEntity(fooComp, id, Foo{}))

	erased, err := state.ErasedEntityIDsForComponent(fooComp)
	assert.NilError(t, err)
	assert.DeepEqual(t, []types.EntityID{id}, erased)

	assert.NilError(t, state.FinalizeStep(ctx))
	assert.Assert(t, !state.ContainsEntity(id))
}

func TestCannotGetComponentOnEntityThatIsMissingTheComponent(t *testing.T) {
	state := newStateForTest(t)
	id, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, state.AddComponentToEntity(fooComp, id, Foo{}))
	// barComp has not been attached to this entity
	_, err = state.GetComponentForEntity(barComp, id)
	assert.ErrorIs(t, err, worldstate.ErrComponentNotOnEntity)
}

func TestCannotSetComponentOnEntityThatIsMissingTheComponent(t *testing.T) {
	state := newStateForTest(t)
	id, err := state.CreateEntity()
	assert.NilError(t, err)
	err = state.SetComponentForEntity(barComp, id, Bar{100})
	assert.ErrorIs(t, err, worldstate.ErrComponentNotOnEntity)
}

func TestCannotRemoveAComponentFromAnEntityThatDoesNotHaveIt(t *testing.T) {
	state := newStateForTest(t)
	id, err := state.CreateEntity()
	assert.NilError(t, err)
	err = state.RemoveComponentFromEntity(barComp, id)
	assert.ErrorIs(t, err, worldstate.ErrComponentNotOnEntity)
}

func TestCannotAddComponentToEntityThatAlreadyHasTheComponent(t *testing.T) {
	state := newStateForTest(t)
	id, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.NilError(t, state.AddComponentToEntity(fooComp, id, Foo{}))
	err = state.AddComponentToEntity(fooComp, id, Foo{})
	assert.ErrorIs(t, err, worldstate.ErrComponentAlreadyOnEntity)
}

func TestGettingInvalidEntityResultsInAnError(t *testing.T) {
	state := newStateForTest(t)
	_, err := state.GetComponentTypesForEntity(types.EntityID(1034134))
	assert.Check(t, err != nil)
}

type Qux struct {
	Value int
}

func (Qux) Name() string {
	return "qux"
}

func TestUnregisteredComponentTypeIsRejected(t *testing.T) {
	state := newStateForTest(t)
	quxComp, err := component.NewComponentMetadata[Qux]()
	assert.NilError(t, err)
	assert.NilError(t, quxComp.SetID(3))

	id, err := state.CreateEntity()
	assert.NilError(t, err)
	err = state.AddComponentToEntity(quxComp, id, Qux{})
	assert.ErrorIs(t, err, worldstate.ErrComponentNotRegistered)
	_, err = state.EntityIDsForComponent(quxComp)
	assert.ErrorIs(t, err, worldstate.ErrComponentNotRegistered)
}

func TestCurrentStepAdvancesOnlyOnCommit(t *testing.T) {
	state := newStateForTest(t)
	ctx := context.Background()
	assert.Equal(t, uint64(0), state.CurrentStep())

	_, err := state.CreateEntity()
	assert.NilError(t, err)
	assert.Equal(t, uint64(0), state.CurrentStep())

	assert.NilError(t, state.FinalizeStep(ctx))
	assert.Equal(t, uint64(1), state.CurrentStep())
}

func TestSearchMatchesComponentSets(t *testing.T) {
	state := newStateForTest(t)

	justFoo, err := state.CreateManyEntities(2)
	assert.NilError(t, err)
	for _, id := range justFoo {
		assert.NilError(t, state.AddComponentToEntity(fooComp, id, Foo{}))
	}
	justBar, err := state.CreateManyEntities(3)
	assert.NilError(t, err)
	for _, id := range justBar {
		assert.NilError(t, state.AddComponentToEntity(barComp, id, Bar{}))
	}
	both, err := state.CreateManyEntities(4)
	assert.NilError(t, err)
	for _, id := range both {
		assert.NilError(t, state.AddComponentToEntity(fooComp, id, Foo{}))
		assert.NilError(t, state.AddComponentToEntity(barComp, id, Bar{}))
	}

	testCases := []struct {
		name    string
		filter  filter.ComponentFilter
		wantIDs []types.EntityID
	}{
		{
			name:    "contains foo",
			filter:  filter.Contains(Foo{}),
			wantIDs: append(append([]types.EntityID{}, justFoo...), both...),
		},
		{
			name:    "contains bar",
			filter:  filter.Contains(Bar{}),
			wantIDs: append(append([]types.EntityID{}, justBar...), both...),
		},
		{
			name:    "exact foo",
			filter:  filter.Exact(Foo{}),
			wantIDs: justFoo,
		},
		{
			name:    "exact foo and bar",
			filter:  filter.Exact(Foo{}, Bar{}),
			wantIDs: both,
		},
		{
			name:    "not foo",
			filter:  filter.Not(filter.Contains(Foo{})),
			wantIDs: justBar,
		},
		{
			name:    "foo and bar",
			filter:  filter.And(filter.Contains(Foo{}), filter.Contains(Bar{})),
			wantIDs: both,
		},
		{
			name:    "exact foo or exact bar",
			filter:  filter.Or(filter.Exact(Foo{}), filter.Exact(Bar{})),
			wantIDs: append(append([]types.EntityID{}, justFoo...), justBar...),
		},
		{
			name:    "all",
			filter:  filter.All(),
			wantIDs: append(append(append([]types.EntityID{}, justFoo...), justBar...), both...),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := state.Search(tc.filter)
			assert.NilError(t, err)
			assert.DeepEqual(t, tc.wantIDs, got)
		})
	}
}
