// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package refine composes extraction tiers. Each tier either produces a
// result or declines; a Chain asks tiers in order and returns the first
// answer, so an LLM tier can sit in front of a heuristic floor that always
// answers.
package refine

import "context"

// Refiner attempts to turn an input into a structured result. It returns
// false when it has no usable answer.
type Refiner[In, Out any] interface {
	Attempt(ctx context.Context, in In) (Out, bool)
}

// Func adapts a function to the Refiner interface.
type Func[In, Out any] func(ctx context.Context, in In) (Out, bool)

func (f Func[In, Out]) Attempt(ctx context.Context, in In) (Out, bool) {
	return f(ctx, in)
}

// Always adapts an infallible function into a Refiner that never declines.
func Always[In, Out any](f func(in In) Out) Refiner[In, Out] {
	return Func[In, Out](func(_ context.Context, in In) (Out, bool) {
		return f(in), true
	})
}

// Chain tries each tier in order.
type Chain[In, Out any] []Refiner[In, Out]

// Attempt returns the first tier's answer. A nil tier is skipped, which
// lets callers leave the LLM slot empty when no model is configured.
func (c Chain[In, Out]) Attempt(ctx context.Context, in In) (Out, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if out, ok := r.Attempt(ctx, in); ok {
			return out, true
		}
	}
	var zero Out
	return zero, false
}

// Run is Attempt for chains that end in a floor: the zero value is
// returned if every tier declined.
func (c Chain[In, Out]) Run(ctx context.Context, in In) Out {
	out, _ := c.Attempt(ctx, in)
	return out
}
