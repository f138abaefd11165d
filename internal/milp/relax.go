package milp

import (
	"fmt"
	"math"
	"time"
)

const (
	// feasTol decides when a bound range is a single point and when a
	// presolved row is trivially satisfied.
	feasTol = 1e-9
	// pivotTol is the smallest tableau entry accepted as a pivot.
	pivotTol = 1e-9
)

// relaxation is the outcome of one LP relaxation
type relaxation struct {
	status Status
	obj    float64
	x      []float64
	err    error
}

// stdRow is a presolved row over the free columns
type stdRow struct {
	coef  []float64
	sense Sense
	rhs   float64
}

// relax solves the LP relaxation of p with the variable bounds lo/hi.
//
// Fixed variables are substituted out and the remaining ones are shifted to
// y = x - lo in [0, hi-lo], which the bounded simplex handles without extra
// rows. The deadline bounds the simplex work.
func (p *Problem) relax(lo, hi []float64, tol float64, deadline time.Time) relaxation {
	n := len(p.vars)

	col := make([]int, n)
	var free []int
	for k := 0; k < n; k++ {
		if hi[k] < lo[k]-feasTol {
			return relaxation{status: StatusInfeasible}
		}
		col[k] = -1
		if hi[k]-lo[k] > feasTol {
			col[k] = len(free)
			free = append(free, k)
		}
	}
	nf := len(free)

	rows := make([]stdRow, 0, len(p.cons))
	for _, c := range p.cons {
		coef := make([]float64, nf)
		rhs := c.RHS
		for _, t := range c.Terms {
			rhs -= t.Coef * lo[t.Var]
			if j := col[t.Var]; j >= 0 {
				coef[j] += t.Coef
			}
		}
		if isZero(coef) {
			if !satisfied(0, c.Sense, rhs, feasTol) {
				return relaxation{status: StatusInfeasible}
			}
			continue
		}
		rows = append(rows, stdRow{coef: coef, sense: c.Sense, rhs: rhs})
	}

	x := make([]float64, n)
	copy(x, lo)

	ub := make([]float64, nf)
	cost := make([]float64, nf)
	for j, k := range free {
		ub[j] = hi[k] - lo[k]
		cost[j] = p.vars[k].Cost
	}

	if len(rows) == 0 {
		for j, k := range free {
			if cost[j] >= 0 {
				continue
			}
			if math.IsInf(ub[j], 1) {
				return relaxation{status: StatusUnbounded}
			}
			x[k] = hi[k]
		}
		return relaxation{status: StatusOptimal, obj: p.Objective(x), x: x}
	}

	s := newBoundedSimplex(rows, ub, tol, deadline)
	status, err := s.solve(cost)
	switch status {
	case StatusOptimal:
	case StatusError:
		return relaxation{status: StatusError, err: fmt.Errorf("milp: lp relaxation stopped after %d pivots: %w", s.pivots, err)}
	default:
		return relaxation{status: status}
	}

	for j, y := range s.values(nf) {
		x[free[j]] += y
	}
	return relaxation{status: StatusOptimal, obj: p.Objective(x), x: x}
}

func isZero(v []float64) bool {
	for _, a := range v {
		if a != 0 {
			return false
		}
	}
	return true
}
