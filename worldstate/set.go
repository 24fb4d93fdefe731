package worldstate

import (
	"github.com/kamstrup/intmap"

	"github.com/vireo-engine/vireo/types"
)

// stepSet is an insertion-ordered set of entity ids that only holds members for a
// single step. Entries are stamped with the step at which they were added, so a
// membership test against any other step comes up empty without the set ever
// needing an explicit clear to stay correct.
type stepSet struct {
	step   uint64
	ids    []types.EntityID
	stamps *intmap.Map[types.EntityID, uint64]
}

func newStepSet() *stepSet {
	return &stepSet{
		stamps: intmap.New[types.EntityID, uint64](16),
	}
}

// Add inserts id for the given step. Re-adding a member of the same step is a no-op,
// so callers get set semantics for free.
func (s *stepSet) Add(id types.EntityID, step uint64) {
	if s.step != step {
		s.ids = s.ids[:0]
		s.step = step
	}
	if stamp, ok := s.stamps.Get(id); ok && stamp == step {
		return
	}
	s.stamps.Put(id, step)
	s.ids = append(s.ids, id)
}

func (s *stepSet) Contains(id types.EntityID, step uint64) bool {
	if s.step != step {
		return false
	}
	stamp, ok := s.stamps.Get(id)
	return ok && stamp == step
}

// Members returns the ids added during the given step, in insertion order. The
// returned slice is owned by the set; callers that hold onto it must copy.
func (s *stepSet) Members(step uint64) []types.EntityID {
	if s.step != step {
		return nil
	}
	return s.ids
}

// Clear drops all entries. The stamp discipline already keeps stale entries
// invisible; clearing just returns the memory.
func (s *stepSet) Clear() {
	s.ids = s.ids[:0]
	s.stamps.Clear()
}
