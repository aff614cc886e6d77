package rng

// Fixed is a scripted stream for tests. Float64 pops values from Floats
// (falling back to 0), IntBetween and Choose pop from Ints (falling back
// to lo / 0). It never shuffles so pile order is predictable.
type Fixed struct {
	Floats []float64
	Ints   []int
}

func (f *Fixed) Float64() float64 {
	if len(f.Floats) == 0 {
		return 0
	}
	v := f.Floats[0]
	f.Floats = f.Floats[1:]
	return v
}

func (f *Fixed) IntBetween(lo, hi int) int {
	v := lo + f.nextInt()
	if v > hi {
		return hi
	}
	return v
}

func (f *Fixed) Choose(n int) int {
	v := f.nextInt()
	if v >= n {
		return n - 1
	}
	return v
}

func (f *Fixed) WeightedChoose(weights []float64) int {
	v := f.nextInt()
	if v >= len(weights) {
		return len(weights) - 1
	}
	return v
}

func (f *Fixed) Shuffle(n int, swap func(i, j int)) {}

func (f *Fixed) Capture() SeedState { return SeedState{} }

func (f *Fixed) Restore(state SeedState) error { return nil }

func (f *Fixed) nextInt() int {
	if len(f.Ints) == 0 {
		return 0
	}
	v := f.Ints[0]
	f.Ints = f.Ints[1:]
	return v
}
