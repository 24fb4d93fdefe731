package vireo

import (
	"testing"
	"time"

	"github.com/vireo-engine/vireo/assert"
)

func TestWorldOptionsAreApplied(t *testing.T) {
	stepStart := make(chan time.Time)
	stepDone := make(chan uint64)
	world, err := NewWorld(
		WithStepChannel(stepStart),
		WithStepDoneChannel(stepDone),
		WithUpdatePeriod(5*time.Millisecond),
	)
	assert.NilError(t, err)
	assert.Equal(t, (<-chan time.Time)(stepStart), world.stepChannel)
	assert.Equal(t, (chan<- uint64)(stepDone), world.stepDoneChannel)
	assert.Equal(t, int64(5*time.Millisecond), world.updatePeriod.Load())
}

func TestNegativeUpdatePeriodMeansNoDelay(t *testing.T) {
	world, err := NewWorld(WithUpdatePeriod(-time.Second))
	assert.NilError(t, err)
	assert.Equal(t, int64(0), world.updatePeriod.Load())

	world.SetUpdatePeriod(-time.Minute)
	assert.Equal(t, int64(0), world.updatePeriod.Load())
}
