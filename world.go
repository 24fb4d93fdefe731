package vireo

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/vireo-engine/vireo/component"
	"github.com/vireo-engine/vireo/filter"
	vireolog "github.com/vireo-engine/vireo/log"
	"github.com/vireo-engine/vireo/statsd"
	"github.com/vireo-engine/vireo/stepstage"
	"github.com/vireo-engine/vireo/types"
	"github.com/vireo-engine/vireo/worldstate"
)

var _ vireolog.Loggable = &World{}

type World struct {
	namespace  types.Namespace
	instanceID string

	// Storage
	entityStore worldstate.Manager

	// Core modules
	stepStage        *stepstage.Manager
	systemManager    *SystemManager
	componentManager *component.Manager

	// Step bookkeeping. step holds the number of the next step to run; it only
	// advances when a step commits. simTime accumulates stepSize nanoseconds per
	// committed step.
	step     *atomic.Uint64
	stepSize time.Duration
	simTime  *atomic.Int64
	loaded   *atomic.Bool
	logger   *zerolog.Logger

	// Run loop
	running      *atomic.Bool
	paused       *atomic.Bool
	updatePeriod *atomic.Int64
	startNano    *atomic.Int64
	pauseChanged chan bool

	shutdownChannel chan struct{}
	shutdownOnce    *sync.Once
	signalOnce      *sync.Once
	runError        chan error

	mu       sync.Mutex // guards loopDone
	loopDone chan struct{}

	stepChannel     <-chan time.Time
	stepDoneChannel chan<- uint64
	// addChannelWaitingForNextStep accepts a channel which will be closed after a
	// step has been completed.
	addChannelWaitingForNextStep chan chan struct{}
}

// NewWorld creates a new World object using the given options.
func NewWorld(opts ...WorldOption) (*World, error) {
	// Load config. Fallback value is used if it's not set.
	cfg, err := loadWorldConfig()
	if err != nil {
		return nil, eris.Wrap(err, "Failed to load config to start world")
	}
	cfg.setupLogger()

	log.Info().Msgf("Creating a new world in namespace %q", cfg.Namespace)

	stepSize := time.Second / time.Duration(cfg.StepRate)

	world := &World{
		namespace:  types.Namespace(cfg.Namespace),
		instanceID: uuid.New().String(),

		// Storage
		entityStore: worldstate.New(),

		// Core modules
		stepStage:        stepstage.NewManager(),
		systemManager:    NewSystemManager(),
		componentManager: component.NewManager(),

		// Step bookkeeping
		step:     new(atomic.Uint64),
		stepSize: stepSize,
		simTime:  new(atomic.Int64),
		loaded:   new(atomic.Bool),
		logger:   &log.Logger,

		// Run loop
		running:      new(atomic.Bool),
		paused:       new(atomic.Bool),
		updatePeriod: new(atomic.Int64),
		startNano:    new(atomic.Int64),
		pauseChanged: make(chan bool, 1),

		shutdownChannel: make(chan struct{}),
		shutdownOnce:    new(sync.Once),
		signalOnce:      new(sync.Once),
		runError:        make(chan error, 1),

		loopDone: closedChannel(),

		stepChannel:                  nil, // Will be injected via options
		stepDoneChannel:              nil, // Will be injected via options
		addChannelWaitingForNextStep: make(chan chan struct{}),
	}
	world.updatePeriod.Store(int64(stepSize))
	world.startNano.Store(time.Now().UnixNano())

	// Apply options
	for _, opt := range opts {
		opt(world)
	}

	metricTags := []string{
		"namespace:" + cfg.Namespace,
		"instance:" + world.instanceID,
	}
	if cfg.StatsdAddress != "" {
		if err := statsd.Init(cfg.StatsdAddress, metricTags); err != nil {
			return nil, eris.Wrap(err, "unable to init statsd")
		}
	} else {
		log.Logger.Warn().Msg("statsd is disabled")
	}
	if cfg.TraceAddress != "" {
		tracer.Start(
			tracer.WithAgentAddr(cfg.TraceAddress),
			tracer.WithService("vireo"),
			tracer.WithGlobalTag("namespace", cfg.Namespace),
		)
	}

	return world, nil
}

// CurrentStep returns the number of the next step to run. The first step is 0.
func (w *World) CurrentStep() uint64 {
	return w.step.Load()
}

// LoadState hands the registered component set to the state and closes further
// registration. It is called automatically by the first step; drivers that create
// entities before stepping call it explicitly after registering their components
// and systems.
func (w *World) LoadState() error {
	if w.loaded.Load() {
		return nil
	}

	// Warn when no components or systems are registered
	if len(w.componentManager.GetComponents()) == 0 {
		log.Warn().Msg("No components registered")
	}
	if len(w.systemManager.GetRegisteredSystemNames()) == 0 {
		log.Warn().Msg("No systems registered")
	}

	if err := w.entityStore.RegisterComponents(w.componentManager.GetComponents()); err != nil {
		return err
	}

	// Log world info
	vireolog.World(w.logger, w, zerolog.InfoLevel)

	w.loaded.Store(true)
	return nil
}

// doStep performs one full world step. This consists of running the PreUpdate,
// Update, and PostUpdate callbacks of every registered system in registration
// order, then committing: buffered erasure requests are applied and the step
// counter advances. A step can only start while the world is idle.
func (w *World) doStep(ctx context.Context) (err error) {
	// Record step start time for statsd.
	startTime := time.Now()

	if err := w.LoadState(); err != nil {
		return err
	}

	if ok := w.stepStage.CompareAndSwap(stepstage.Idle, stepstage.RunningPreUpdate); !ok {
		return eris.Errorf("invalid world stage to step: %s", w.stepStage.Current())
	}

	// This defer is here to catch any panics that occur during the step. It will
	// log the current step and the current system that is running.
	defer w.handleStepPanic()

	// A failed step parks the stage back at Idle with the step counter unchanged,
	// so a later step retries this same step number. Mutations already applied by
	// earlier callbacks are kept; there is no rollback.
	defer func() {
		if err != nil {
			w.stepStage.Store(stepstage.Idle)
		}
	}()

	var span tracer.Span
	span, ctx = tracer.StartSpanFromContext(ctx, "vireo.span.step")
	defer func() {
		span.Finish()
	}()
	for key, value := range statsd.TraceTags() {
		span.SetTag(key, value)
	}

	w.logger.Info().Int("step", int(w.CurrentStep())).Msg("Step started")

	// Create the context to inject into systems
	info := w.stepInfo()
	wCtx := newWorldContextForStep(w, info)

	if err = w.systemManager.RunPreUpdate(wCtx); err != nil {
		return err
	}

	if ok := w.stepStage.CompareAndSwap(stepstage.RunningPreUpdate, stepstage.RunningUpdate); !ok {
		return eris.Errorf("invalid world stage to enter update: %s", w.stepStage.Current())
	}
	if err = w.systemManager.RunUpdate(wCtx); err != nil {
		return err
	}

	if ok := w.stepStage.CompareAndSwap(stepstage.RunningUpdate, stepstage.RunningPostUpdate); !ok {
		return eris.Errorf("invalid world stage to enter post update: %s", w.stepStage.Current())
	}
	// PostUpdate observes the step's final state but cannot change it.
	if err = w.systemManager.RunPostUpdate(newReadOnlyWorldContextForStep(w, info)); err != nil {
		return err
	}

	if ok := w.stepStage.CompareAndSwap(stepstage.RunningPostUpdate, stepstage.Committing); !ok {
		return eris.Errorf("invalid world stage to commit: %s", w.stepStage.Current())
	}
	if err = w.entityStore.FinalizeStep(ctx); err != nil {
		return err
	}

	w.step.Add(1)
	w.simTime.Add(int64(w.stepSize))
	statsd.EmitEntityCount(w.entityStore.EntityCount())

	if ok := w.stepStage.CompareAndSwap(stepstage.Committing, stepstage.Idle); !ok {
		return eris.Errorf("invalid world stage to finish step: %s", w.stepStage.Current())
	}

	statsd.EmitStepStat(startTime, "full_step")

	return nil
}

// Step runs one full world step by hand. Drivers and tests use it to advance the
// world without a run loop; the run loop calls it once per iteration. A step is
// refused while another step is in flight or after the world has been shut down.
func (w *World) Step(ctx context.Context) error {
	return w.doStep(ctx)
}

// Run starts the world step loop. When blocking is true, Run does not return
// until the loop stops; otherwise the loop runs on its own goroutine and Run
// returns immediately. iterations bounds the number of steps to run, with 0
// meaning run until Shutdown. startPaused parks the loop before its first step.
//
// Pacing between step starts follows the update period (or the injected step
// channel); the simulated time each step advances is fixed at the step size
// regardless of pacing.
func (w *World) Run(blocking bool, iterations uint64, startPaused bool) error {
	if ok := w.running.CompareAndSwap(false, true); !ok {
		return eris.New("world is already running")
	}
	select {
	case <-w.shutdownChannel:
		w.running.Store(false)
		return eris.New("world has been shut down")
	default:
	}

	w.paused.Store(startPaused)
	w.startNano.Store(time.Now().UnixNano())

	done := make(chan struct{})
	w.mu.Lock()
	w.loopDone = done
	w.mu.Unlock()

	// handle shutdown via a signal
	w.signalOnce.Do(w.handleShutdown)

	if blocking {
		defer close(done)
		defer w.running.Store(false)
		return w.runLoop(iterations)
	}

	go func() {
		defer close(done)
		defer w.running.Store(false)
		if err := w.runLoop(iterations); err != nil {
			w.logger.Err(err).Msgf("the step loop has failed: %s", eris.ToString(err, true))
			select {
			case w.runError <- err:
			default:
			}
		}
	}()
	return nil
}

// runLoop steps the world once per message on the step start channel until the
// iteration budget is spent or the world shuts down. While paused, it parks
// without consuming step starts.
func (w *World) runLoop(iterations uint64) error {
	w.logger.Info().Str("instance_id", w.instanceID).Msg("Step loop started")

	stop := make(chan struct{})
	defer close(stop)
	stepStart := w.stepStartChannel(stop)

	var waitingChs []chan struct{}
	defer func() {
		closeAllChannels(waitingChs)
	}()

	var completed uint64
	for iterations == 0 || completed < iterations {
		for w.Paused() {
			select {
			case <-w.pauseChanged:
			case <-w.shutdownChannel:
				w.logger.Info().Msg("Step loop stopped")
				return nil
			case ch := <-w.addChannelWaitingForNextStep:
				waitingChs = append(waitingChs, ch)
			}
		}

		select {
		case _, ok := <-stepStart:
			if !ok {
				return eris.New("step channel has been closed")
			}
			currStep := w.CurrentStep()
			if err := w.Step(context.Background()); err != nil {
				return err
			}
			completed++
			if w.stepDoneChannel != nil {
				w.stepDoneChannel <- currStep
			}
			closeAllChannels(waitingChs)
			waitingChs = waitingChs[:0]
		case <-w.shutdownChannel:
			w.logger.Info().Msg("Step loop stopped")
			return nil
		case ch := <-w.addChannelWaitingForNextStep:
			waitingChs = append(waitingChs, ch)
		}
	}

	w.logger.Info().Uint64("steps", completed).Msg("Step loop completed")
	return nil
}

// stepStartChannel returns the channel that paces step starts: the injected step
// channel when one was provided, otherwise an internal pacer that emits according
// to the update period. A zero update period emits as fast as the loop consumes.
func (w *World) stepStartChannel(stop <-chan struct{}) <-chan time.Time {
	if w.stepChannel != nil {
		return w.stepChannel
	}

	ch := make(chan time.Time)
	go func() {
		for {
			// Re-read the period every round so SetUpdatePeriod takes effect on
			// the next step.
			if period := time.Duration(w.updatePeriod.Load()); period > 0 {
				select {
				case <-time.After(period):
				case <-stop:
					return
				}
			}
			select {
			case ch <- time.Now():
			case <-stop:
				return
			}
		}
	}()
	return ch
}

// Running reports whether a run loop currently owns the world. It stays true
// while the loop is parked on pause and turns false once the loop exits.
func (w *World) Running() bool {
	return w.running.Load()
}

// SetPaused pauses or resumes the step loop. Pausing keeps new steps from
// starting; a step already in flight always completes. Paused time advances
// neither the step counter nor sim time.
func (w *World) SetPaused(paused bool) {
	w.paused.Store(paused)
	select {
	case w.pauseChanged <- paused:
	default:
	}
}

func (w *World) Paused() bool {
	return w.paused.Load()
}

// SetUpdatePeriod sets the wall-clock delay between step starts. It takes effect
// before the next step; zero removes the delay entirely. Ignored when the world
// is driven by an injected step channel.
func (w *World) SetUpdatePeriod(period time.Duration) {
	if period < 0 {
		period = 0
	}
	w.updatePeriod.Store(int64(period))
}

// Shutdown stops the step loop and blocks until it has exited; a step already in
// flight always completes first. It is safe to call more than once. The error
// that stopped a previous non-blocking run, if any, is returned.
func (w *World) Shutdown() error {
	w.shutdownOnce.Do(func() {
		w.logger.Info().Msg("Shutting down step loop.")
		w.stepStage.CompareAndSwap(stepstage.Idle, stepstage.ShuttingDown)
		close(w.shutdownChannel)
	})

	// Block until the world has stopped stepping
	w.mu.Lock()
	done := w.loopDone
	w.mu.Unlock()
	<-done

	w.stepStage.Store(stepstage.ShutDown)
	tracer.Stop()
	w.logger.Info().Msg("Successfully shut down step loop.")

	select {
	case err := <-w.runError:
		return err
	default:
		return nil
	}
}

func (w *World) handleShutdown() {
	signalChannel := make(chan os.Signal, 1)
	go func() {
		signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
		for sig := range signalChannel {
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				if err := w.Shutdown(); err != nil {
					log.Err(err).Msgf("There was an error during shutdown.")
				}
				return
			}
		}
	}()
}

func (w *World) handleStepPanic() {
	if r := recover(); r != nil {
		w.logger.Error().Msgf(
			"Step: %d, Current running system: %s",
			w.CurrentStep(),
			w.systemManager.GetCurrentSystem(),
		)
		panic(r)
	}
}

// WaitForNextStep blocks until at least one step has completed. It returns true
// if it successfully waited for a step. False may be returned if the world was
// shut down while waiting for the next step to complete.
func (w *World) WaitForNextStep() (success bool) {
	startStep := w.CurrentStep()
	ch := make(chan struct{})
	select {
	case w.addChannelWaitingForNextStep <- ch:
	case <-w.shutdownChannel:
		return false
	}
	<-ch
	return w.CurrentStep() > startStep
}

// AddSystem registers a system with the world. The system must implement at
// least one of the PreUpdater, Updater, and PostUpdater interfaces. Systems
// cannot be added after the first step has started.
func (w *World) AddSystem(sys any) error {
	return RegisterSystems(w, sys)
}

func (w *World) Namespace() string {
	return string(w.namespace)
}

func (w *World) Logger() *zerolog.Logger {
	return w.logger
}

// InjectLogger sets the logger the world and its state write events to.
func (w *World) InjectLogger(logger *zerolog.Logger) {
	w.logger = logger
	w.entityStore.InjectLogger(logger)
}

func (w *World) Search(filter filter.ComponentFilter) *Search {
	return NewSearch(NewReadOnlyWorldContext(w), filter)
}

func (w *World) StoreReader() worldstate.Reader {
	return w.entityStore.ToReadOnly()
}

func (w *World) StoreManager() worldstate.Manager {
	return w.entityStore
}

// DebugState returns a snapshot of every live entity with the raw JSON of each
// of its components.
func (w *World) DebugState() (types.EntityStateResponse, error) {
	return w.entityStore.DebugState()
}

func (w *World) GetRegisteredComponents() []types.ComponentMetadata {
	return w.componentManager.GetComponents()
}

func (w *World) GetRegisteredSystems() []string {
	return w.systemManager.GetRegisteredSystemNames()
}

func (w *World) GetComponentByName(name string) (types.ComponentMetadata, error) {
	return w.componentManager.GetComponentByName(name)
}

func (w *World) stateIsLoaded() bool {
	return w.loaded.Load()
}

// stepInfo captures the timing view systems observe for the step about to run.
func (w *World) stepInfo() types.StepInfo {
	return types.StepInfo{
		Step:     w.CurrentStep(),
		SimTime:  time.Duration(w.simTime.Load()),
		RealTime: time.Since(time.Unix(0, w.startNano.Load())),
		Delta:    w.stepSize,
		Paused:   w.Paused(),
	}
}

func closeAllChannels(chs []chan struct{}) {
	for _, ch := range chs {
		close(ch)
	}
}

func closedChannel() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
