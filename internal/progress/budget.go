package progress

import "math"

// Budget apportions the span [start, end) of the progress range evenly across
// a fixed number of steps. Pass it by pointer so each step advances the same
// accumulator.
type Budget struct {
	start float64
	end   float64
	steps int
	done  int
}

// NewBudget returns a Budget covering start..end split into steps parts.
// A step count below one is treated as one.
func NewBudget(start, end float64, steps int) Budget {
	if steps < 1 {
		steps = 1
	}
	if end < start {
		end = start
	}
	return Budget{start: start, end: end, steps: steps}
}

// Current returns the percentage reached so far, rounded down.
func (b *Budget) Current() int {
	return int(math.Floor(b.position(b.done)))
}

// Advance marks one step complete and returns the new percentage. Advancing
// past the last step is a no-op.
func (b *Budget) Advance() int {
	if b.done < b.steps {
		b.done++
	}
	return b.Current()
}

// Done reports whether every step has been advanced.
func (b *Budget) Done() bool {
	return b.done >= b.steps
}

// End returns the upper bound of the span.
func (b *Budget) End() int {
	return int(math.Floor(b.end))
}

// Part returns a Budget for step i of this one, divided into steps sub-steps.
func (b *Budget) Part(i, steps int) Budget {
	i = min(max(i, 0), b.steps-1)
	return NewBudget(b.position(i), b.position(i+1), steps)
}

func (b *Budget) position(done int) float64 {
	return b.start + (b.end-b.start)*float64(done)/float64(b.steps)
}
