package sys

import (
	"errors"

	"github.com/vireo-engine/vireo"
	"github.com/vireo-engine/vireo/example/comp"
	"github.com/vireo-engine/vireo/types"
)

// Reaper burns down each drone's lifetime and erases the ones that have run out.
type Reaper struct{}

func (*Reaper) Update(wCtx vireo.Context) error {
	var errs []error
	err := vireo.Each[comp.Lifetime](wCtx, func(id types.EntityID, lt comp.Lifetime) bool {
		lt.StepsLeft--
		if err := vireo.SetComponent(wCtx, id, lt); err != nil {
			errs = append(errs, err)
			return true
		}
		if lt.StepsLeft <= 0 {
			if err := vireo.RequestEraseEntity(wCtx, id); err != nil {
				errs = append(errs, err)
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	return errors.Join(errs...)
}
