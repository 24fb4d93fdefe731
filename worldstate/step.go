package worldstate

import (
	"context"
	"time"

	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/vireo-engine/vireo/statsd"
	"github.com/vireo-engine/vireo/types"
)

// The step counter must advance in the same commit that removes the marked data.
// This means the manager here must also implement the StepStorage interface.
var _ StepStorage = &State{}

// FinalizeStep commits all erasures buffered during the current step, clears the
// new/erased transient sets, and advances the step counter. Readers never observe a
// partially committed erasure: an entity disappears from every table and from the
// population in the same call.
func (m *State) FinalizeStep(ctx context.Context) error {
	var span tracer.Span
	span, _ = tracer.StartSpanFromContext(ctx, "step.span.finalize")
	defer func() {
		span.Finish()
	}()
	commitStartTime := time.Now()

	step := m.currentStep
	for _, typeID := range m.tableOrder {
		tbl := m.tables[typeID]
		removed := tbl.RemoveWhere(func(id types.EntityID) bool {
			return m.entities.pendingErase.Contains(id, step) || m.tracker.IsErased(typeID, id, step)
		})
		for _, id := range removed {
			if err := m.compValues.Delete(compKey{typeID, id}); err != nil {
				return err
			}
		}
	}
	m.entities.RemoveWhere(func(id types.EntityID) bool {
		return m.entities.pendingErase.Contains(id, step)
	})

	m.tracker.ClearAll()
	m.entities.created.Clear()
	m.entities.pendingErase.Clear()
	m.currentStep++
	statsd.EmitStepStat(commitStartTime, "step_commit")
	return nil
}
