package tour

import (
	"log"
	"time"

	"gonum.org/v1/gonum/mat"

	"cluster-tour-router/internal/milp"
)

// Outcome is a solved tour model. X is the realised 0/1 edge matrix and U
// the realised ranks.
type Outcome struct {
	Status    milp.Status
	Objective float64
	X         *mat.Dense
	U         []float64
	Nodes     int
}

// Solve submits the model to the MILP engine with the given budget. Subtour
// cuts and tour rounding are supplied unless opts already carries its own.
// Only an OPTIMAL solve returns an Outcome; every other status is an
// *ErrTourFailed. There are no retries: a caller may re-invoke with a larger
// MaxNodes or TimeLimit.
func Solve(m *Model, opts milp.Options) (*Outcome, error) {
	if opts.Separator == nil {
		opts.Separator = m.SeparateSubtours
	}
	if opts.Rounder == nil {
		opts.Rounder = m.RoundTour
	}

	started := time.Now()
	sol := milp.Solve(m.Problem, opts)
	log.Printf("[SOLVE] Solver finished: status=%s nodes=%d cuts=%d duration=%s",
		sol.Status, sol.Nodes, sol.Cuts, time.Since(started).Round(time.Millisecond))

	switch sol.Status {
	case milp.StatusOptimal:
	case milp.StatusInfeasible:
		return nil, &ErrTourFailed{Kind: KindModelInfeasible, Reason: "no tour satisfies the constraints"}
	case milp.StatusUnbounded:
		return nil, &ErrTourFailed{Kind: KindModelUnbounded, Reason: "objective is unbounded"}
	default:
		return nil, &ErrTourFailed{Kind: KindModelError, Reason: "solver did not prove optimality", Err: sol.Err}
	}

	x := mat.NewDense(m.N, m.N, nil)
	u := make([]float64, m.N)
	for i := 0; i < m.N; i++ {
		for j := 0; j < m.N; j++ {
			x.Set(i, j, sol.Values[m.X[i][j]])
		}
		u[i] = sol.Values[m.U[i]]
	}

	return &Outcome{
		Status:    sol.Status,
		Objective: sol.Objective,
		X:         x,
		U:         u,
		Nodes:     sol.Nodes,
	}, nil
}
