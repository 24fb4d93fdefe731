package filter

import (
	"github.com/vireo-engine/vireo/types"
)

type contains struct {
	components []types.Component
}

// Contains matches entities that have all the components specified.
func Contains(components ...types.Component) ComponentFilter {
	return &contains{components: components}
}

func (f *contains) MatchesComponents(components []types.Component) bool {
	for _, componentType := range f.components {
		if !MatchComponent(components, componentType) {
			return false
		}
	}
	return true
}
