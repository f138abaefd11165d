package tour

import (
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"cluster-tour-router/internal/milp"
)

// Model is the MILP tour formulation over N nodes. X[i][j] is the index of
// the binary edge variable i->j and U[i] the index of the integer rank of i.
type Model struct {
	Problem *milp.Problem
	N       int
	Start   int
	X       [][]int
	U       []int
	// Weights is C + Penalty, the matrix the objective minimises.
	Weights *mat.Dense

	forced [][2]int
}

// BuildModel declares the edge and rank variables and the linear objective
// sum((cost+penalty) * X). Self-loops are declared with an upper bound of 0.
// The start node's rank is pinned to 0 and every other rank lies in [1, N-1].
func BuildModel(cost, penalty mat.Matrix, start int) (*Model, error) {
	n, c := cost.Dims()
	if n != c {
		return nil, fmt.Errorf("cost matrix must be square, got %dx%d", n, c)
	}
	if pr, pc := penalty.Dims(); pr != n || pc != n {
		return nil, fmt.Errorf("penalty matrix is %dx%d, cost matrix is %dx%d", pr, pc, n, n)
	}
	if start < 0 || start >= n {
		return nil, fmt.Errorf("start node %d out of range [0, %d)", start, n)
	}

	weights := mat.NewDense(n, n, nil)
	weights.Add(cost, penalty)

	m := &Model{
		Problem: milp.NewProblem(fmt.Sprintf("tour_%d", n)),
		N:       n,
		Start:   start,
		X:       make([][]int, n),
		U:       make([]int, n),
		Weights: weights,
	}

	for i := 0; i < n; i++ {
		m.X[i] = make([]int, n)
		for j := 0; j < n; j++ {
			hi := 1.0
			if i == j {
				hi = 0
			}
			m.X[i][j] = m.Problem.AddVar(fmt.Sprintf("x_%d_%d", i, j), milp.Binary, 0, hi, weights.At(i, j))
		}
	}
	for i := 0; i < n; i++ {
		lo, hi := 1.0, float64(n-1)
		if i == start {
			lo, hi = 0, 0
		}
		m.U[i] = m.Problem.AddVar(fmt.Sprintf("u_%d", i), milp.Integer, lo, hi, 0)
	}

	log.Printf("[SOLVE] Model declared: nodes=%d vars=%d", n, m.Problem.NumVars())
	return m, nil
}

// Forced returns the edges pinned with ForceEdge, in the order they were added
func (m *Model) Forced() [][2]int {
	return append([][2]int(nil), m.forced...)
}
