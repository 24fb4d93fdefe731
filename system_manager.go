package vireo

import (
	"reflect"
	"time"

	"github.com/rotisserie/eris"

	"github.com/vireo-engine/vireo/statsd"
)

// A system implements any non-empty subset of these callbacks. The scheduler calls
// every registered PreUpdate, then every Update, then every PostUpdate, always in
// registration order.
type (
	PreUpdater interface {
		PreUpdate(wCtx Context) error
	}
	Updater interface {
		Update(wCtx Context) error
	}
	PostUpdater interface {
		PostUpdate(wCtx Context) error
	}
)

// Phase names used for sub-logger tags and timing stats.
const (
	phasePreUpdate  = "pre_update"
	phaseUpdate     = "update"
	phasePostUpdate = "post_update"
)

type systemFn func(wCtx Context) error

type systemEntry struct {
	name string
	pre  PreUpdater
	up   Updater
	post PostUpdater
}

type SystemManager struct {
	// registeredSystems is a list of all the registered systems in the order that they
	// were registered. This is represented as a list as maps in Go are unordered.
	registeredSystems []systemEntry

	// currentSystem is the name of the system that is currently running.
	currentSystem *string
}

// NewSystemManager creates a new system manager.
func NewSystemManager() *SystemManager {
	return &SystemManager{
		registeredSystems: make([]systemEntry, 0),
		currentSystem:     nil,
	}
}

// RegisterSystems registers multiple systems with the system manager. Each system
// must implement at least one of PreUpdater, Updater, or PostUpdater; if any of them
// implements none, an error is returned and none of the systems are registered.
func (m *SystemManager) RegisterSystems(systems ...any) error {
	// Resolve the callbacks of all the systems before registering any of them, to
	// ensure that all are registered or none of them are.
	entries := make([]systemEntry, 0, len(systems))
	for _, sys := range systems {
		if sys == nil {
			return eris.New("cannot register a nil system")
		}
		entry := systemEntry{name: systemName(sys)}
		if s, ok := sys.(PreUpdater); ok {
			entry.pre = s
		}
		if s, ok := sys.(Updater); ok {
			entry.up = s
		}
		if s, ok := sys.(PostUpdater); ok {
			entry.post = s
		}
		if entry.pre == nil && entry.up == nil && entry.post == nil {
			return eris.Errorf("system %s implements none of PreUpdate, Update, and PostUpdate", entry.name)
		}
		entries = append(entries, entry)
	}
	m.registeredSystems = append(m.registeredSystems, entries...)
	return nil
}

// RunPreUpdate runs the PreUpdate callback of every registered system that has one.
func (m *SystemManager) RunPreUpdate(wCtx Context) error {
	return m.runPhase(wCtx, phasePreUpdate, func(entry systemEntry) systemFn {
		if entry.pre == nil {
			return nil
		}
		return entry.pre.PreUpdate
	})
}

// RunUpdate runs the Update callback of every registered system that has one.
func (m *SystemManager) RunUpdate(wCtx Context) error {
	return m.runPhase(wCtx, phaseUpdate, func(entry systemEntry) systemFn {
		if entry.up == nil {
			return nil
		}
		return entry.up.Update
	})
}

// RunPostUpdate runs the PostUpdate callback of every registered system that has one.
func (m *SystemManager) RunPostUpdate(wCtx Context) error {
	return m.runPhase(wCtx, phasePostUpdate, func(entry systemEntry) systemFn {
		if entry.post == nil {
			return nil
		}
		return entry.post.PostUpdate
	})
}

// runPhase runs one phase callback of every registered system, in the order that the
// systems were registered. Callbacks run strictly one after another; a callback error
// stops the phase and is returned wrapped with the system name.
func (m *SystemManager) runPhase(wCtx Context, phaseName string, callbackFor func(systemEntry) systemFn) error {
	phaseStartTime := time.Now()
	baseLogger := *wCtx.Logger()
	defer wCtx.SetLogger(baseLogger)

	for _, entry := range m.registeredSystems {
		callback := callbackFor(entry)
		if callback == nil {
			continue
		}
		sysName := entry.name
		m.currentSystem = &sysName

		// Inject the system and phase names into the logger
		wCtx.SetLogger(baseLogger.With().Str("system", sysName).Str("phase", phaseName).Logger())

		systemStartTime := time.Now()
		if err := callback(wCtx); err != nil {
			m.currentSystem = nil
			return eris.Wrapf(err, "system %s generated an error", sysName)
		}

		// Emit the total time it took to run `sysName` in this phase
		statsd.EmitStepStat(systemStartTime, sysName)
	}

	// Set the current system to nil to indicate that no system is currently running
	m.currentSystem = nil

	// Emit the total time it took to run the whole phase
	statsd.EmitStepStat(phaseStartTime, phaseName)

	return nil
}

func (m *SystemManager) GetRegisteredSystemNames() []string {
	names := make([]string, 0, len(m.registeredSystems))
	for _, entry := range m.registeredSystems {
		names = append(names, entry.name)
	}
	return names
}

func (m *SystemManager) GetCurrentSystem() string {
	if m.currentSystem == nil {
		return "no_system"
	}
	return *m.currentSystem
}

// systemName derives a system's name from its type.
func systemName(sys any) string {
	t := reflect.TypeOf(sys)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.String()
}
