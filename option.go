package vireo

import (
	"time"
)

// WorldOption represents an option that can be used to augment how the World
// will be run.
type WorldOption func(*World)

// WithStepChannel sets the channel that will be used to decide when world.Step is
// executed. If unset, an internal pacer fires once per update period. Tests can
// pass in a channel controlled by the test for fine-grained control over when
// steps are executed.
func WithStepChannel(ch <-chan time.Time) WorldOption {
	return func(world *World) {
		world.stepChannel = ch
	}
}

// WithStepDoneChannel sets a channel that will be notified each time a step
// completes. The number of the completed step will be pushed to the channel.
// This option is useful in tests when assertions need to be performed at the end
// of a step. The caller must keep receiving from the channel or the run loop
// blocks.
func WithStepDoneChannel(ch chan<- uint64) WorldOption {
	return func(world *World) {
		world.stepDoneChannel = ch
	}
}

// WithUpdatePeriod sets the initial wall-clock delay between step starts. The
// default is the step size, so a world runs in real time out of the box. It can
// be changed while running with SetUpdatePeriod.
func WithUpdatePeriod(period time.Duration) WorldOption {
	return func(world *World) {
		if period < 0 {
			period = 0
		}
		world.updatePeriod.Store(int64(period))
	}
}
