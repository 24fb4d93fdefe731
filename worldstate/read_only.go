package worldstate

import (
	"encoding/json"

	"github.com/vireo-engine/vireo/filter"
	"github.com/vireo-engine/vireo/types"
)

var _ Reader = readOnlyState{}

// readOnlyState is the view of a State handed to callers that must not mutate, such
// as PostUpdate phase callbacks. It only exposes the Reader surface, and unlike the
// *State it wraps it cannot be converted back into something writable.
type readOnlyState struct {
	state *State
}

func (m *State) ToReadOnly() Reader {
	return readOnlyState{state: m}
}

func (r readOnlyState) GetComponentForEntity(
	cType types.ComponentMetadata, id types.EntityID,
) (any, error) {
	return r.state.GetComponentForEntity(cType, id)
}

func (r readOnlyState) GetComponentForEntityInRawJSON(
	cType types.ComponentMetadata, id types.EntityID,
) (json.RawMessage, error) {
	return r.state.GetComponentForEntityInRawJSON(cType, id)
}

func (r readOnlyState) GetComponentTypesForEntity(id types.EntityID) ([]types.ComponentMetadata, error) {
	return r.state.GetComponentTypesForEntity(id)
}

func (r readOnlyState) ContainsEntity(id types.EntityID) bool {
	return r.state.ContainsEntity(id)
}

func (r readOnlyState) IsErasePending(id types.EntityID) bool {
	return r.state.IsErasePending(id)
}

func (r readOnlyState) EntityIDs() []types.EntityID {
	return r.state.EntityIDs()
}

func (r readOnlyState) EntityCount() int {
	return r.state.EntityCount()
}

func (r readOnlyState) NewEntityIDs() []types.EntityID {
	return r.state.NewEntityIDs()
}

func (r readOnlyState) EntityIDsForComponent(cType types.ComponentMetadata) ([]types.EntityID, error) {
	return r.state.EntityIDsForComponent(cType)
}

func (r readOnlyState) NewEntityIDsForComponent(cType types.ComponentMetadata) ([]types.EntityID, error) {
	return r.state.NewEntityIDsForComponent(cType)
}

func (r readOnlyState) ErasedEntityIDsForComponent(cType types.ComponentMetadata) ([]types.EntityID, error) {
	return r.state.ErasedEntityIDsForComponent(cType)
}

func (r readOnlyState) Search(componentFilter filter.ComponentFilter) ([]types.EntityID, error) {
	return r.state.Search(componentFilter)
}

func (r readOnlyState) DebugState() (types.EntityStateResponse, error) {
	return r.state.DebugState()
}

func (r readOnlyState) CurrentStep() uint64 {
	return r.state.CurrentStep()
}
