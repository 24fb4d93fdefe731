package comp

type Lifetime struct {
	StepsLeft int
}

func (Lifetime) Name() string { return "lifetime" }
