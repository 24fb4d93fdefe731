package vireo

import (
	"github.com/rs/zerolog"

	"github.com/vireo-engine/vireo/types"
	"github.com/vireo-engine/vireo/worldstate"
)

// Context is the view of the world handed to every system callback. PreUpdate and
// Update callbacks receive a writable context; PostUpdate callbacks receive a
// read-only one, and mutations through a read-only context fail with
// ErrReadOnlyContext.
type Context interface {
	// CurrentStep returns the number of the step currently executing.
	CurrentStep() uint64
	// Info returns the timing metadata of the step currently executing.
	Info() types.StepInfo
	// Logger returns the logger that can be used to log messages from within a system.
	Logger() *zerolog.Logger
	// Namespace returns the namespace of the world.
	Namespace() string

	// For internal use.

	// SetLogger is used to inject a new logger configuration to a context that is already created.
	SetLogger(logger zerolog.Logger)
	GetComponentByName(name string) (types.ComponentMetadata, error)
	StoreReader() worldstate.Reader
	StoreManager() worldstate.Manager
	IsReadOnly() bool
}

type worldContext struct {
	world    *World
	info     types.StepInfo
	logger   *zerolog.Logger
	readOnly bool
}

func newWorldContextForStep(world *World, info types.StepInfo) Context {
	return &worldContext{
		world:    world,
		info:     info,
		logger:   world.Logger(),
		readOnly: false,
	}
}

func newReadOnlyWorldContextForStep(world *World, info types.StepInfo) Context {
	return &worldContext{
		world:    world,
		info:     info,
		logger:   world.Logger(),
		readOnly: true,
	}
}

// NewWorldContext creates a writable context for use outside of system callbacks,
// for example to seed entities from a driver before the first step.
func NewWorldContext(world *World) Context {
	return &worldContext{
		world:    world,
		info:     world.stepInfo(),
		logger:   world.Logger(),
		readOnly: false,
	}
}

// NewReadOnlyWorldContext creates a read-only context for use outside of system
// callbacks. Mutations through it fail with ErrReadOnlyContext.
func NewReadOnlyWorldContext(world *World) Context {
	return &worldContext{
		world:    world,
		info:     world.stepInfo(),
		logger:   world.Logger(),
		readOnly: true,
	}
}

func (wCtx *worldContext) CurrentStep() uint64 {
	return wCtx.world.CurrentStep()
}

func (wCtx *worldContext) Info() types.StepInfo {
	return wCtx.info
}

func (wCtx *worldContext) Logger() *zerolog.Logger {
	return wCtx.logger
}

func (wCtx *worldContext) Namespace() string {
	return wCtx.world.Namespace()
}

func (wCtx *worldContext) SetLogger(logger zerolog.Logger) {
	wCtx.logger = &logger
}

func (wCtx *worldContext) GetComponentByName(name string) (types.ComponentMetadata, error) {
	return wCtx.world.GetComponentByName(name)
}

func (wCtx *worldContext) StoreManager() worldstate.Manager {
	return wCtx.world.StoreManager()
}

func (wCtx *worldContext) StoreReader() worldstate.Reader {
	sm := wCtx.StoreManager()
	if wCtx.IsReadOnly() {
		return sm.ToReadOnly()
	}
	return sm
}

func (wCtx *worldContext) IsReadOnly() bool {
	return wCtx.readOnly
}
