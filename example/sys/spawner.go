package sys

import (
	"github.com/vireo-engine/vireo"
	"github.com/vireo-engine/vireo/example/comp"
)

// Spawner adds PerStep drones every step, each with a dozen steps to live.
type Spawner struct {
	PerStep int
}

func (s *Spawner) Update(wCtx vireo.Context) error {
	step := int(wCtx.CurrentStep())
	for i := 0; i < s.PerStep; i++ {
		_, err := vireo.CreateEntity(wCtx,
			comp.Position{X: step % 64, Y: (step + i) % 64},
			comp.Lifetime{StepsLeft: 12},
		)
		if err != nil {
			return err
		}
	}
	return nil
}
