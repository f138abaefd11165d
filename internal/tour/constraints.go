package tour

import (
	"fmt"

	"cluster-tour-router/internal/milp"
)

// AddDegreeConstraints requires exactly one outgoing and one incoming edge per node
func (m *Model) AddDegreeConstraints() {
	for i := 0; i < m.N; i++ {
		out := make([]milp.Term, 0, m.N-1)
		in := make([]milp.Term, 0, m.N-1)
		for j := 0; j < m.N; j++ {
			if i == j {
				continue
			}
			out = append(out, milp.Term{Var: m.X[i][j], Coef: 1})
			in = append(in, milp.Term{Var: m.X[j][i], Coef: 1})
		}
		m.Problem.AddConstraint(fmt.Sprintf("out_%d", i), milp.Equal, 1, out...)
		m.Problem.AddConstraint(fmt.Sprintf("in_%d", i), milp.Equal, 1, in...)
	}
}

// AddSubtourElimination adds the Miller-Tucker-Zemlin rank constraints
//
//	U[i] - U[j] + N*X[i][j] <= N-1
//
// for every ordered pair of distinct non-start nodes. A selected edge i->j
// then forces U[j] >= U[i]+1, so every cycle must pass through the start node.
func (m *Model) AddSubtourElimination() {
	n := float64(m.N)
	for i := 0; i < m.N; i++ {
		if i == m.Start {
			continue
		}
		for j := 0; j < m.N; j++ {
			if j == m.Start || j == i {
				continue
			}
			m.Problem.AddConstraint(fmt.Sprintf("mtz_%d_%d", i, j), milp.LessEq, n-1,
				milp.Term{Var: m.U[i], Coef: 1},
				milp.Term{Var: m.U[j], Coef: -1},
				milp.Term{Var: m.X[i][j], Coef: n},
			)
		}
	}
}

// ForceEdge pins X[i][j] to 1. Edges that conflict with the degree
// constraints are accepted here and surface as an infeasible solve.
func (m *Model) ForceEdge(i, j int) error {
	if i < 0 || i >= m.N || j < 0 || j >= m.N {
		return fmt.Errorf("forced edge %d->%d out of range [0, %d)", i, j, m.N)
	}
	if i == j {
		return fmt.Errorf("forced edge %d->%d is a self-loop", i, j)
	}
	m.Problem.AddConstraint(fmt.Sprintf("force_%d_%d", i, j), milp.Equal, 1, milp.Term{Var: m.X[i][j], Coef: 1})
	m.forced = append(m.forced, [2]int{i, j})
	return nil
}
