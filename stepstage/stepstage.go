package stepstage

import (
	"sync/atomic"
)

type Stage string

const (
	Idle              Stage = "Idle"              // No step in flight; the world is ready to start one
	RunningPreUpdate  Stage = "RunningPreUpdate"  // PreUpdate callbacks are running
	RunningUpdate     Stage = "RunningUpdate"     // Update callbacks are running
	RunningPostUpdate Stage = "RunningPostUpdate" // PostUpdate callbacks are running
	Committing        Stage = "Committing"        // Buffered erasures are being applied and the step counter advanced
	ShuttingDown      Stage = "ShuttingDown"      // The world received a shutdown signal
	ShutDown          Stage = "ShutDown"          // The world has successfully shut down
)

type Manager struct {
	current *atomic.Value
}

func NewManager() *Manager {
	m := &Manager{
		current: &atomic.Value{},
	}
	m.Store(Idle)
	return m
}

func (m *Manager) CompareAndSwap(oldStage, newStage Stage) (swapped bool) {
	return m.current.CompareAndSwap(oldStage, newStage)
}

func (m *Manager) Current() Stage {
	return m.current.Load().(Stage)
}

func (m *Manager) Store(val Stage) {
	m.current.Store(val)
}

func (m *Manager) Swap(newStage Stage) (oldStage Stage) {
	return m.current.Swap(newStage).(Stage)
}
