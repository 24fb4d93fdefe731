package worldstate

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/vireo-engine/vireo/filter"
	"github.com/vireo-engine/vireo/types"
)

type Reader interface {
	// One Component One Entity
	GetComponentForEntity(cType types.ComponentMetadata, id types.EntityID) (any, error)
	GetComponentForEntityInRawJSON(cType types.ComponentMetadata, id types.EntityID) (json.RawMessage, error)

	// Many Components One Entity
	GetComponentTypesForEntity(id types.EntityID) ([]types.ComponentMetadata, error)

	// Entity population
	ContainsEntity(id types.EntityID) bool
	IsErasePending(id types.EntityID) bool
	EntityIDs() []types.EntityID
	EntityCount() int
	NewEntityIDs() []types.EntityID

	// Per-type membership and change views
	EntityIDsForComponent(cType types.ComponentMetadata) ([]types.EntityID, error)
	NewEntityIDsForComponent(cType types.ComponentMetadata) ([]types.EntityID, error)
	ErasedEntityIDsForComponent(cType types.ComponentMetadata) ([]types.EntityID, error)

	// Misc
	Search(componentFilter filter.ComponentFilter) ([]types.EntityID, error)
	DebugState() (types.EntityStateResponse, error)
	CurrentStep() uint64
}

type Writer interface {
	// One Entity
	CreateEntity() (types.EntityID, error)
	CreateManyEntities(num int) ([]types.EntityID, error)
	RequestEraseEntity(id types.EntityID) error

	// One Component One Entity
	AddComponentToEntity(cType types.ComponentMetadata, id types.EntityID, value any) error
	SetComponentForEntity(cType types.ComponentMetadata, id types.EntityID, value any) error
	RemoveComponentFromEntity(cType types.ComponentMetadata, id types.EntityID) error

	// Misc
	InjectLogger(logger *zerolog.Logger)
	RegisterComponents([]types.ComponentMetadata) error
}

type StepStorage interface {
	FinalizeStep(ctx context.Context) error
}

// Manager represents all the methods required to track Component, Entity, and
// change-set information which powers the world state.
type Manager interface {
	StepStorage
	Reader
	Writer
	ToReadOnly() Reader
}
