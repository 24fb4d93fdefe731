package vireo

import (
	"github.com/rotisserie/eris"

	"github.com/vireo-engine/vireo/filter"
	"github.com/vireo-engine/vireo/types"
	"github.com/vireo-engine/vireo/worldstate"
)

type CallbackFn func(types.EntityID) bool

// Search represents a search for entities whose component set matches a filter.
// Matches are reported in entity creation order.
type Search struct {
	filter filter.ComponentFilter
	reader worldstate.Reader
}

// NewSearch creates a new search over the given context's view of the world.
func NewSearch(wCtx Context, componentFilter filter.ComponentFilter) *Search {
	return &Search{
		filter: componentFilter,
		reader: wCtx.StoreReader(),
	}
}

// Each iterates over all entities that match the search.
// If you would like to stop the iteration, return false to the callback. To continue iterating, return true.
func (s *Search) Each(callback CallbackFn) error {
	ids, err := s.reader.Search(s.filter)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if cont := callback(id); !cont {
			return nil
		}
	}
	return nil
}

// Count returns the number of entities that match the search.
func (s *Search) Count() (int, error) {
	ids, err := s.reader.Search(s.filter)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// First returns the first entity that matches the search.
func (s *Search) First() (types.EntityID, error) {
	ids, err := s.reader.Search(s.filter)
	if err != nil {
		return types.NullEntity, err
	}
	if len(ids) == 0 {
		return types.NullEntity, eris.New("no entity matches the search")
	}
	return ids[0], nil
}

func (s *Search) MustFirst() types.EntityID {
	id, err := s.First()
	if err != nil {
		panic("no entity matches the search")
	}
	return id
}

// Collect returns the ids of all entities that match the search.
func (s *Search) Collect() ([]types.EntityID, error) {
	return s.reader.Search(s.filter)
}
