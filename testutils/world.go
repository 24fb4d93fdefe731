package testutils

import (
	"sync"
	"testing"
	"time"

	"github.com/vireo-engine/vireo"
)

// NewTestWorld creates a World object suitable for unit tests. The debug log
// level is forced so tests can assert on log output.
func NewTestWorld(t testing.TB, opts ...vireo.WorldOption) *vireo.World {
	t.Setenv("VIREO_LOG_LEVEL", "debug")

	world, err := vireo.NewWorld(opts...)
	if err != nil {
		t.Fatalf("Unable to initialize test world: %v", err)
	}
	return world
}

// MakeWorldAndStepper sets up a World as well as a function that can execute one
// world step. The run loop will be automatically started when doStep is called
// for the first time. The World will be shut down at the end of the test. If
// doStep takes longer than 5 seconds to run, t.Fatal will be called.
func MakeWorldAndStepper(t *testing.T, opts ...vireo.WorldOption) (world *vireo.World, doStep func()) {
	startStepCh, doneStepCh := make(chan time.Time), make(chan uint64)
	opts = append(opts, vireo.WithStepChannel(startStepCh), vireo.WithStepDoneChannel(doneStepCh))
	world = NewTestWorld(t, opts...)

	// Shutdown any world resources. This will be called whether the run loop has
	// been started or not.
	t.Cleanup(func() {
		if err := world.Shutdown(); err != nil {
			t.Errorf("unable to shut down world: %v", err)
		}
	})

	startRunOnce := sync.Once{}
	// Create a function that will do a single world step, making sure to start the
	// run loop the first time it is called.
	doStep = func() {
		timeout := time.After(5 * time.Second) //nolint:gomnd // fine for now.
		startRunOnce.Do(func() {
			runError := make(chan error)
			go func() {
				// A blocking Run only returns once the loop has stopped, so any
				// value received here before the first step is cause for concern.
				// Also, calling t.Fatal from a non-main thread only reports a
				// failure once the test on the main thread has completed. By
				// sending this error out on a channel we can fail the test right
				// away (assuming doStep has been called from the main thread).
				runError <- world.Run(true, 0, false)
			}()
			for !world.Running() {
				select {
				case err := <-runError:
					t.Fatalf("run error: %v", err)
				case <-timeout:
					t.Fatal("timeout while waiting for run loop to start")
				default:
					time.Sleep(10 * time.Millisecond) //nolint:gomnd // its for testing its ok.
				}
			}
		})

		select {
		case startStepCh <- time.Now():
		case <-timeout:
			t.Fatal("timeout while waiting for step start")
		}
		select {
		case <-doneStepCh:
		case <-timeout:
			t.Fatal("timeout while waiting for step end")
		}
	}

	return world, doStep
}
