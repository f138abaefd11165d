package milp

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

const (
	// blandAfter is the number of consecutive degenerate pivots after which
	// the entering column is chosen by Bland's rule instead of Dantzig's.
	blandAfter = 50
	// deadlineEvery is how many pivots run between deadline checks.
	deadlineEvery = 32
)

// boundedSimplex is a dense two-phase primal simplex over columns with
// bounds [0, ub]. Every row is an equality; rows that came from
// inequalities carry a slack column. The tableau holds B⁻¹A and starts as
// the identity over the initial slack and artificial basis.
type boundedSimplex struct {
	m, n  int
	tab   *mat.Dense
	beta  []float64
	basis []int
	basic []bool
	upper []bool
	ub    []float64
	cost  []float64
	d     []float64

	artificial []bool
	rhsScale   float64

	tol       float64
	pivots    int
	maxPivots int
	deadline  time.Time
}

// newBoundedSimplex builds the phase 1 tableau for rows over nf structural
// columns with upper bounds ub (lower bounds are 0).
func newBoundedSimplex(rows []stdRow, ub []float64, tol float64, deadline time.Time) *boundedSimplex {
	m, nf := len(rows), len(ub)

	n := nf
	slackCol := make([]int, m)
	for i, r := range rows {
		slackCol[i] = -1
		if r.sense != Equal {
			slackCol[i] = n
			n++
		}
	}
	artCol := make([]int, m)
	for i, r := range rows {
		artCol[i] = -1
		if (r.sense == LessEq && r.rhs >= 0) || (r.sense == GreaterEq && r.rhs <= 0) {
			continue
		}
		artCol[i] = n
		n++
	}

	s := &boundedSimplex{
		m:          m,
		n:          n,
		tab:        mat.NewDense(m, n, nil),
		beta:       make([]float64, m),
		basis:      make([]int, m),
		basic:      make([]bool, n),
		upper:      make([]bool, n),
		ub:         make([]float64, n),
		cost:       make([]float64, n),
		d:          make([]float64, n),
		artificial: make([]bool, n),
		rhsScale:   1,
		tol:        tol,
		maxPivots:  max(10000, 20*(m+n)),
		deadline:   deadline,
	}
	copy(s.ub, ub)
	for j := nf; j < n; j++ {
		s.ub[j] = math.Inf(1)
	}

	for i, r := range rows {
		row := s.tab.RawRowView(i)
		slackSign := 1.0
		if r.sense == GreaterEq {
			slackSign = -1
		}

		// Scale the row so its basic column has coefficient +1.
		scale := slackSign
		if artCol[i] >= 0 {
			scale = 1
			if r.rhs < 0 {
				scale = -1
			}
		}
		for j, a := range r.coef {
			row[j] = scale * a
		}
		if slackCol[i] >= 0 {
			row[slackCol[i]] = scale * slackSign
		}

		b := slackCol[i]
		if artCol[i] >= 0 {
			b = artCol[i]
			row[b] = 1
			s.artificial[b] = true
			s.cost[b] = 1
		}
		s.basis[i] = b
		s.basic[b] = true
		s.beta[i] = scale * r.rhs
		s.rhsScale = math.Max(s.rhsScale, math.Abs(r.rhs))
	}

	s.resetReducedCosts()
	return s
}

// solve runs both phases. On StatusOptimal the structural values are
// available from values.
func (s *boundedSimplex) solve(cost []float64) (Status, error) {
	status, err := s.iterate()
	if status != StatusOptimal {
		return status, err
	}

	var infeasibility float64
	for i, b := range s.basis {
		if s.artificial[b] {
			infeasibility += s.beta[i]
		}
	}
	if infeasibility > 1e-7*s.rhsScale {
		return StatusInfeasible, nil
	}

	for j := range s.cost {
		s.cost[j] = 0
		if s.artificial[j] {
			s.ub[j] = 0
		}
	}
	copy(s.cost, cost)
	s.resetReducedCosts()

	return s.iterate()
}

// values returns the first nf columns of the current basic solution
func (s *boundedSimplex) values(nf int) []float64 {
	y := make([]float64, nf)
	for j := range y {
		if s.upper[j] {
			y[j] = s.ub[j]
		}
	}
	for i, b := range s.basis {
		if b < nf {
			y[b] = math.Min(math.Max(s.beta[i], 0), s.ub[b])
		}
	}
	return y
}

func (s *boundedSimplex) resetReducedCosts() {
	copy(s.d, s.cost)
	for i, b := range s.basis {
		if cb := s.cost[b]; cb != 0 {
			floats.AddScaled(s.d, -cb, s.tab.RawRowView(i))
		}
	}
}

func (s *boundedSimplex) iterate() (Status, error) {
	dTol := s.tol * (1 + floats.Norm(s.cost, math.Inf(1)))
	degenerate := 0

	for {
		if s.pivots >= s.maxPivots {
			return StatusError, ErrIterationLimit
		}
		if s.pivots%deadlineEvery == 0 && !s.deadline.IsZero() && time.Now().After(s.deadline) {
			return StatusError, ErrTimeLimit
		}

		bland := degenerate > blandAfter
		q := s.entering(dTol, bland)
		if q < 0 {
			return StatusOptimal, nil
		}
		dir := 1.0
		if s.upper[q] {
			dir = -1
		}

		step, leave, leaveUpper := s.ratioTest(q, dir, bland)
		if leave < 0 && math.IsInf(step, 1) {
			return StatusUnbounded, nil
		}

		s.pivots++
		if step <= feasTol {
			degenerate++
		} else {
			degenerate = 0
		}

		for i := range s.beta {
			s.beta[i] -= step * dir * s.tab.At(i, q)
		}

		if leave < 0 {
			s.upper[q] = !s.upper[q]
			continue
		}

		entered := dir * step
		if s.upper[q] {
			entered += s.ub[q]
		}
		out := s.basis[leave]
		s.basic[out] = false
		s.upper[out] = leaveUpper
		s.basic[q] = true
		s.upper[q] = false
		s.basis[leave] = q
		s.beta[leave] = entered
		s.pivot(leave, q)
	}
}

// entering picks an improving nonbasic column: the largest reduced cost
// gain, or the lowest index under Bland's rule. It returns -1 at optimality.
func (s *boundedSimplex) entering(dTol float64, bland bool) int {
	q, best := -1, dTol
	for j := 0; j < s.n; j++ {
		if s.basic[j] || s.ub[j] <= feasTol {
			continue
		}
		gain := -s.d[j]
		if s.upper[j] {
			gain = s.d[j]
		}
		if gain <= best {
			continue
		}
		if bland {
			return j
		}
		q, best = j, gain
	}
	return q
}

// ratioTest returns how far column q can move in direction dir and which
// row blocks it. leave is -1 when the column reaches its own opposite
// bound first, or when nothing blocks it (step is then +Inf).
func (s *boundedSimplex) ratioTest(q int, dir float64, bland bool) (step float64, leave int, leaveUpper bool) {
	step, leave = s.ub[q], -1
	var bestAlpha float64

	for i := 0; i < s.m; i++ {
		alpha := dir * s.tab.At(i, q)
		b := s.basis[i]

		var ratio float64
		var toUpper bool
		switch {
		case alpha > pivotTol:
			ratio = s.beta[i] / alpha
		case alpha < -pivotTol && !math.IsInf(s.ub[b], 1):
			ratio = (s.ub[b] - s.beta[i]) / -alpha
			toUpper = true
		default:
			continue
		}
		ratio = math.Max(ratio, 0)

		take := ratio < step-feasTol
		if !take && leave >= 0 && ratio <= step+feasTol {
			if bland {
				take = b < s.basis[leave]
			} else {
				take = math.Abs(alpha) > bestAlpha
			}
		}
		if take {
			step, leave, leaveUpper, bestAlpha = ratio, i, toUpper, math.Abs(alpha)
		}
	}
	return step, leave, leaveUpper
}

// pivot makes column q basic in row r
func (s *boundedSimplex) pivot(r, q int) {
	pr := s.tab.RawRowView(r)
	floats.Scale(1/pr[q], pr)
	pr[q] = 1

	for i := 0; i < s.m; i++ {
		if i == r {
			continue
		}
		row := s.tab.RawRowView(i)
		if f := row[q]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[q] = 0
		}
	}
	if f := s.d[q]; f != 0 {
		floats.AddScaled(s.d, -f, pr)
		s.d[q] = 0
	}
}
