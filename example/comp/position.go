package comp

type Position struct {
	X, Y int
}

func (Position) Name() string { return "position" }
