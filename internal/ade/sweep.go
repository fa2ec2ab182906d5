package ade

import (
	"context"
	"sync"
)

// BoundaryFunc returns the low and high boundary values for the given layer
// (1-based), given the previous layer's solution.
type BoundaryFunc func(layer int, prev []float64) (lo, hi float64)

// LayerObserver sees each finished layer. The slices are reused; copy what you keep.
type LayerObserver func(layer int, forward, backward, averaged []float64)

// HoldBoundaries keeps both ends at their previous values.
func HoldBoundaries(_ int, prev []float64) (float64, float64) {
	return prev[0], prev[len(prev)-1]
}

// Engine marches a Workspace through time layers.
type Engine struct {
	Formulation Formulation

	// Parallel runs the two sweeps of a layer on separate goroutines. Only valid
	// when the sweeps are independent (BackwardReadsBackward).
	Parallel bool
}

func NewEngine(f Formulation, parallel bool) (*Engine, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if parallel && f.Coupling != BackwardReadsBackward {
		return nil, configErrorf("parallel sweeps need %s coupling, %q uses %s", BackwardReadsBackward, f.Name, f.Coupling)
	}
	return &Engine{Formulation: f, Parallel: parallel}, nil
}

// March advances ws.U by the given number of layers in place. It always completes
// every layer unless ctx is cancelled, in which case ws.U is left partially advanced
// and the context error is returned.
func (e *Engine) March(ctx context.Context, ws *Workspace, a float64, layers int, bc BoundaryFunc, obs LayerObserver) error {
	n := len(ws.U) - 1
	if n < 2 || len(ws.Forward) != n+1 || len(ws.Backward) != n+1 {
		return configErrorf("workspace arrays must share a length >= 3")
	}
	if bc == nil {
		bc = HoldBoundaries
	}
	w, d := e.Formulation.Weighting.coefficients(a)
	u, f, b := ws.U, ws.Forward, ws.Backward

	neighbour := b
	if e.Formulation.Coupling == BackwardReadsForward {
		neighbour = f
	}

	var wg sync.WaitGroup
	for layer := 1; layer <= layers; layer++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lo, hi := bc(layer, u)
		f[0], f[n] = lo, hi
		b[0], b[n] = lo, hi

		if e.Parallel {
			wg.Add(1)
			go func() {
				defer wg.Done()
				forwardSweep(f, u, a, w, d)
			}()
			backwardSweep(b, u, neighbour, a, w, d)
			wg.Wait()
		} else {
			forwardSweep(f, u, a, w, d)
			backwardSweep(b, u, neighbour, a, w, d)
		}

		for j := range u {
			u[j] = 0.5 * (f[j] + b[j])
		}
		if obs != nil {
			obs(layer, f, b, u)
		}
	}
	return nil
}

// forwardSweep: f[j] depends on f[j-1] (this layer) and u[j+1] (previous layer).
func forwardSweep(f, u []float64, a, w, d float64) {
	n := len(u) - 1
	for j := 1; j < n; j++ {
		f[j] = (w*u[j] + a*(u[j+1]+f[j-1])) / d
	}
}

// backwardSweep: b[j] depends on u[j-1] (previous layer) and next[j+1], where next
// is either b itself or the finished forward sweep.
func backwardSweep(b, u, next []float64, a, w, d float64) {
	n := len(u) - 1
	for j := n - 1; j > 0; j-- {
		b[j] = (w*u[j] + a*(u[j-1]+next[j+1])) / d
	}
}
