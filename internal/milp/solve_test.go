package milp

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveContinuousLP(t *testing.T) {
	p := NewProblem("lp")
	x := p.AddVar("x", Continuous, 0, math.Inf(1), -1)
	y := p.AddVar("y", Continuous, 0, math.Inf(1), -2)
	p.AddConstraint("c1", LessEq, 4, Term{x, -1}, Term{y, 2})
	p.AddConstraint("c2", LessEq, 9, Term{x, 3}, Term{y, 1})

	sol := Solve(p, Options{})

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -8, sol.Objective, 1e-9)
	assert.InDelta(t, 2, sol.Values[x], 1e-9)
	assert.InDelta(t, 3, sol.Values[y], 1e-9)
	assert.Equal(t, 1, sol.Nodes)
}

func TestSolveIntegerNeedsBranching(t *testing.T) {
	// max x + y s.t. 2x + 2y <= 3 has LP optimum 1.5 and integer optimum 1.
	p := NewProblem("branch")
	x := p.AddVar("x", Integer, 0, math.Inf(1), -1)
	y := p.AddVar("y", Integer, 0, math.Inf(1), -1)
	p.AddConstraint("cap", LessEq, 3, Term{x, 2}, Term{y, 2})

	sol := Solve(p, Options{})

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -1, sol.Objective, 1e-9)
	assert.Greater(t, sol.Nodes, 1)
	assert.NoError(t, p.Check(sol.Values, 1e-9))
}

func TestSolveBinaryKnapsack(t *testing.T) {
	p := NewProblem("knapsack")
	a := p.AddVar("a", Binary, 0, 1, -10)
	b := p.AddVar("b", Binary, 0, 1, -13)
	c := p.AddVar("c", Binary, 0, 1, -7)
	p.AddConstraint("weight", LessEq, 6, Term{a, 3}, Term{b, 4}, Term{c, 2})

	sol := Solve(p, Options{})

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -20, sol.Objective, 1e-9)
	assert.Equal(t, []float64{0, 1, 1}, sol.Values)
}

func TestSolveInfeasibleBound(t *testing.T) {
	p := NewProblem("infeasible")
	x := p.AddVar("x", Binary, 0, 1, 1)
	p.AddConstraint("too_big", GreaterEq, 2, Term{x, 1})

	sol := Solve(p, Options{})

	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.Nil(t, sol.Values)
}

func TestSolveInconsistentEqualities(t *testing.T) {
	p := NewProblem("inconsistent")
	x := p.AddVar("x", Continuous, 0, 10, 1)
	y := p.AddVar("y", Continuous, 0, 10, 1)
	p.AddConstraint("one", Equal, 1, Term{x, 1}, Term{y, 1})
	p.AddConstraint("two", Equal, 2, Term{x, 1}, Term{y, 1})

	sol := Solve(p, Options{})

	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestSolveDependentEqualities(t *testing.T) {
	p := NewProblem("dependent")
	x := p.AddVar("x", Continuous, 0, 10, 1)
	y := p.AddVar("y", Continuous, 0, 10, 1)
	p.AddConstraint("sum", Equal, 1, Term{x, 1}, Term{y, 1})
	p.AddConstraint("sum_again", Equal, 1, Term{x, 1}, Term{y, 1})
	p.AddConstraint("doubled", Equal, 2, Term{x, 2}, Term{y, 2})
	p.AddConstraint("balance", Equal, 0, Term{x, 1}, Term{y, -1})

	sol := Solve(p, Options{})

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 0.5, sol.Values[x], 1e-9)
	assert.InDelta(t, 0.5, sol.Values[y], 1e-9)
}

func TestSolveUnbounded(t *testing.T) {
	p := NewProblem("unbounded")
	x := p.AddVar("x", Continuous, 0, math.Inf(1), -1)
	p.AddConstraint("floor", GreaterEq, 1, Term{x, 1})

	sol := Solve(p, Options{})

	assert.Equal(t, StatusUnbounded, sol.Status)
}

func TestSolveNodeLimit(t *testing.T) {
	p := NewProblem("limited")
	x := p.AddVar("x", Integer, 0, math.Inf(1), -1)
	y := p.AddVar("y", Integer, 0, math.Inf(1), -1)
	p.AddConstraint("cap", LessEq, 3, Term{x, 2}, Term{y, 2})

	sol := Solve(p, Options{MaxNodes: 1})

	assert.Equal(t, StatusError, sol.Status)
	assert.ErrorIs(t, sol.Err, ErrNodeLimit)
	assert.Equal(t, 1, sol.Nodes)
}

func TestSolveFixedVariableIsSubstituted(t *testing.T) {
	p := NewProblem("fixed")
	fixed := p.AddVar("fixed", Binary, 0, 0, -100)
	x := p.AddVar("x", Binary, 0, 1, 1)
	p.AddConstraint("pick", Equal, 1, Term{fixed, 1}, Term{x, 1})

	sol := Solve(p, Options{})

	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, 0.0, sol.Values[fixed])
	assert.Equal(t, 1.0, sol.Values[x])
	assert.InDelta(t, 1, sol.Objective, 1e-9)
}

func TestSolveShiftedLowerBounds(t *testing.T) {
	p := NewProblem("shifted")
	u := p.AddVar("u", Integer, 1, 3, 1)
	v := p.AddVar("v", Integer, 1, 3, 1)
	p.AddConstraint("order", LessEq, -1, Term{u, 1}, Term{v, -1})

	sol := Solve(p, Options{})

	require.Equal(t, StatusOptimal, sol.Status)
	assert.Equal(t, 1.0, sol.Values[u])
	assert.Equal(t, 2.0, sol.Values[v])
}

func TestCheckReportsViolations(t *testing.T) {
	p := NewProblem("check")
	x := p.AddVar("x", Integer, 0, 5, 0)
	p.AddConstraint("cap", LessEq, 3, Term{x, 1})

	assert.NoError(t, p.Check([]float64{3}, 1e-9))
	assert.ErrorContains(t, p.Check([]float64{4}, 1e-9), "cap")
	assert.ErrorContains(t, p.Check([]float64{2.5}, 1e-9), "not integral")
	assert.ErrorContains(t, p.Check([]float64{6}, 1e-9), "outside")
	assert.Error(t, p.Check([]float64{1, 2}, 1e-9))
}

func TestAddVarPanicsOnInfiniteLowerBound(t *testing.T) {
	p := NewProblem("bad")
	assert.Panics(t, func() {
		p.AddVar("x", Continuous, math.Inf(-1), 0, 0)
	})
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "OPTIMAL", StatusOptimal.String())
	assert.Equal(t, "INFEASIBLE", StatusInfeasible.String())
	assert.Equal(t, "UNBOUNDED", StatusUnbounded.String())
	assert.Equal(t, "ERROR", StatusError.String())
}

func knapsack() *Problem {
	p := NewProblem("knapsack")
	a := p.AddVar("a", Binary, 0, 1, -10)
	b := p.AddVar("b", Binary, 0, 1, -13)
	c := p.AddVar("c", Binary, 0, 1, -7)
	p.AddConstraint("weight", LessEq, 6, Term{a, 3}, Term{b, 4}, Term{c, 2})
	return p
}

func TestSolveIncumbentSeedsSearch(t *testing.T) {
	cold := Solve(knapsack(), Options{})
	warm := Solve(knapsack(), Options{Incumbent: []float64{0, 1, 1}})

	require.Equal(t, StatusOptimal, warm.Status)
	assert.InDelta(t, -20, warm.Objective, 1e-9)
	assert.Equal(t, []float64{0, 1, 1}, warm.Values)
	assert.LessOrEqual(t, warm.Nodes, cold.Nodes)
}

func TestSolveSuboptimalIncumbentIsImproved(t *testing.T) {
	sol := Solve(knapsack(), Options{Incumbent: []float64{1, 0, 1}})

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -20, sol.Objective, 1e-9)
}

func TestSolveInfeasibleIncumbentIsIgnored(t *testing.T) {
	for _, incumbent := range [][]float64{{1, 1, 1}, {0.5, 0, 0}, {1}} {
		sol := Solve(knapsack(), Options{Incumbent: incumbent})

		require.Equal(t, StatusOptimal, sol.Status)
		assert.InDelta(t, -20, sol.Objective, 1e-9)
		assert.Equal(t, []float64{0, 1, 1}, sol.Values)
	}
}

func TestSolveBoundedColumns(t *testing.T) {
	// max 3x + 2y over x, y in [0, 4] with x + y <= 6
	p := NewProblem("boxed")
	x := p.AddVar("x", Continuous, 0, 4, -3)
	y := p.AddVar("y", Continuous, 0, 4, -2)
	p.AddConstraint("sum", LessEq, 6, Term{x, 1}, Term{y, 1})

	sol := Solve(p, Options{})

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 4, sol.Values[x], 1e-9)
	assert.InDelta(t, 2, sol.Values[y], 1e-9)
	assert.InDelta(t, -16, sol.Objective, 1e-9)
}

func TestSolveTimeLimit(t *testing.T) {
	sol := Solve(knapsack(), Options{TimeLimit: time.Nanosecond})

	assert.Equal(t, StatusError, sol.Status)
	assert.ErrorIs(t, sol.Err, ErrTimeLimit)
	assert.Nil(t, sol.Values)
}

func TestSolveSeparatorCutsAreAdded(t *testing.T) {
	p := NewProblem("separated")
	x := p.AddVar("x", Binary, 0, 1, -2)
	y := p.AddVar("y", Binary, 0, 1, -1)

	calls := 0
	separator := func(v []float64) []Constraint {
		calls++
		if v[x]+v[y] <= 1+1e-9 {
			return nil
		}
		return []Constraint{{Name: "pair", Sense: LessEq, RHS: 1, Terms: []Term{{x, 1}, {y, 1}}}}
	}

	sol := Solve(p, Options{Separator: separator})

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -2, sol.Objective, 1e-9)
	assert.Equal(t, []float64{1, 0}, sol.Values)
	assert.Equal(t, 1, sol.Cuts)
	assert.Equal(t, 1, p.NumConstraints())
	assert.Equal(t, "pair", p.Constraint(0).Name)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestSolveRounderProposals(t *testing.T) {
	tests := []struct {
		name     string
		proposal []float64
	}{
		{"feasible", []float64{0, 1, 1}},
		{"violates weight", []float64{1, 1, 1}},
		{"wrong length", []float64{1}},
		{"none", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rounded := 0
			rounder := func(x []float64) []float64 {
				rounded++
				return tt.proposal
			}

			sol := Solve(knapsack(), Options{Rounder: rounder})

			require.Equal(t, StatusOptimal, sol.Status)
			assert.InDelta(t, -20, sol.Objective, 1e-9)
			assert.Equal(t, []float64{0, 1, 1}, sol.Values)
			assert.Positive(t, rounded)
		})
	}
}

func TestBranchVariablePrefersBinaries(t *testing.T) {
	p := NewProblem("kinds")
	p.AddVar("rank", Integer, 0, 10, 0)
	flag := p.AddVar("flag", Binary, 0, 1, 0)
	p.AddVar("rate", Continuous, 0, 1, 0)

	assert.Equal(t, flag, p.branchVariable([]float64{2.5, 0.9, 0.5}, 1e-6))
	assert.Equal(t, 0, p.branchVariable([]float64{2.5, 1, 0.5}, 1e-6))
	assert.Equal(t, -1, p.branchVariable([]float64{2, 1, 0.5}, 1e-6))
}

func TestSolveLargerAssignment(t *testing.T) {
	// 4x4 assignment with a unique optimum on the anti-diagonal
	cost := [4][4]float64{
		{9, 8, 7, 1},
		{9, 8, 1, 7},
		{9, 1, 8, 7},
		{1, 9, 8, 7},
	}
	p := NewProblem("assignment")
	var v [4][4]int
	for i := range cost {
		for j := range cost[i] {
			v[i][j] = p.AddVar("x", Binary, 0, 1, cost[i][j])
		}
	}
	for i := 0; i < 4; i++ {
		var row, col []Term
		for j := 0; j < 4; j++ {
			row = append(row, Term{v[i][j], 1})
			col = append(col, Term{v[j][i], 1})
		}
		p.AddConstraint("row", Equal, 1, row...)
		p.AddConstraint("col", Equal, 1, col...)
	}

	sol := Solve(p, Options{})

	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 4, sol.Objective, 1e-9)
	for i := 0; i < 4; i++ {
		assert.Equal(t, 1.0, sol.Values[v[i][3-i]])
	}
	assert.NoError(t, p.Check(sol.Values, 1e-9))
}
