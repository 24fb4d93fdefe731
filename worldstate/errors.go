package worldstate

import (
	"github.com/rotisserie/eris"
)

var (
	ErrEntityDoesNotExist       = eris.New("entity does not exist")
	ErrEntityIDExhausted        = eris.New("entity id space exhausted")
	ErrComponentAlreadyOnEntity = eris.New("component already on entity")
	ErrComponentNotOnEntity     = eris.New("component not on entity")
	ErrComponentNotRegistered   = eris.New("must register component")
)
