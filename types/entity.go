package types

import "encoding/json"

type EntityID uint64

// NullEntity is never allocated. Operations that cannot produce an entity
// return it alongside an error.
const NullEntity EntityID = 0

type EntityStateResponse []EntityStateElement

type EntityStateElement struct {
	ID         EntityID                   `json:"id"`
	Components map[string]json.RawMessage `json:"components"`
}
