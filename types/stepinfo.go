package types

import "time"

// StepInfo is the timing snapshot handed to every system callback for one step.
type StepInfo struct {
	// Step is the number of the step being executed. The first step is 0.
	Step uint64
	// SimTime is the total simulated time accumulated before this step.
	SimTime time.Duration
	// RealTime is the wall-clock time elapsed since the run loop started.
	RealTime time.Duration
	// Delta is the simulated time this step advances.
	Delta time.Duration
	// Paused reports whether the world was paused when the step was started.
	Paused bool
}
