package sys

import (
	"github.com/vireo-engine/vireo"
	"github.com/vireo-engine/vireo/example/comp"
	"github.com/vireo-engine/vireo/types"
)

// Census reports population changes at the end of each step.
type Census struct{}

func (*Census) PostUpdate(wCtx vireo.Context) error {
	born, died := 0, 0
	if err := vireo.EachNew[comp.Lifetime](wCtx, func(types.EntityID, comp.Lifetime) bool {
		born++
		return true
	}); err != nil {
		return err
	}
	if err := vireo.EachErased[comp.Lifetime](wCtx, func(types.EntityID, comp.Lifetime) bool {
		died++
		return true
	}); err != nil {
		return err
	}
	wCtx.Logger().Info().
		Int("born", born).
		Int("died", died).
		Int("population", wCtx.StoreReader().EntityCount()).
		Msg("census")
	return nil
}
