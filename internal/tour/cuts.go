package tour

import (
	"math"
	"strconv"
	"strings"

	"cluster-tour-router/internal/milp"
	"cluster-tour-router/internal/models"
)

// cutTol is how far below 1 the flow out of a node set must fall before the
// set is cut off
const cutTol = 1e-6

// AddClusterCuts requires at least one selected edge leaving every cluster
// that does not hold all nodes. Degree constraints make this equivalent to
// one edge entering it.
func (m *Model) AddClusterCuts(net *models.Network) {
	for _, label := range net.Clusters() {
		in := make([]bool, m.N)
		size := 0
		for i, loc := range net.Locations {
			if loc.Cluster == label {
				in[i] = true
				size++
			}
		}
		if size == m.N {
			continue
		}
		m.Problem.AddConstraint("leave_"+label, milp.GreaterEq, 1, m.cutSet(in)...)
	}
}

// SeparateSubtours returns a cut-set inequality
//
//	sum(X[i][j] for i in S, j not in S) >= 1
//
// for every node set S around the start that the relaxation values x leave
// with less than one unit of flow. Each S is the source side of a minimum
// start->t cut over the capacities X, so integral subtours are always found.
func (m *Model) SeparateSubtours(x []float64) []milp.Constraint {
	capacity := make([][]float64, m.N)
	for i := range capacity {
		capacity[i] = make([]float64, m.N)
		for j := range capacity[i] {
			if i != j {
				capacity[i][j] = math.Max(x[m.X[i][j]], 0)
			}
		}
	}

	var cuts []milp.Constraint
	seen := make(map[string]bool)
	for t := 0; t < m.N; t++ {
		if t == m.Start {
			continue
		}
		flow, source := maxFlow(capacity, m.Start, t)
		if flow >= 1-cutTol || crossing(capacity, source) >= 1-cutTol {
			continue
		}
		name := subtourName(source)
		if seen[name] {
			continue
		}
		seen[name] = true
		cuts = append(cuts, milp.Constraint{Name: name, Terms: m.cutSet(source), Sense: milp.GreaterEq, RHS: 1})
	}
	return cuts
}

// RoundTour turns relaxation values into a tour assignment. The walk from the
// start follows the heaviest edge to an unvisited node, then 2-opt improves
// the result. It returns nil when neither tour satisfies the model.
func (m *Model) RoundTour(x []float64) []float64 {
	route := make([]int, 0, m.N+1)
	route = append(route, m.Start)
	visited := make([]bool, m.N)
	visited[m.Start] = true

	current := m.Start
	for len(route) < m.N {
		next := -1
		for j := 0; j < m.N; j++ {
			if visited[j] {
				continue
			}
			if next < 0 || x[m.X[current][j]] > x[m.X[current][next]] {
				next = j
			}
		}
		visited[next] = true
		route = append(route, next)
		current = next
	}
	route = append(route, m.Start)

	improved, _ := twoOpt(route, m.Weights)
	for _, candidate := range [][]int{improved, route} {
		if values := m.Assignment(candidate); m.Problem.Check(values, 1e-9) == nil {
			return values
		}
	}
	return nil
}

// cutSet returns the X terms of edges leaving the marked nodes
func (m *Model) cutSet(in []bool) []milp.Term {
	var terms []milp.Term
	for i := 0; i < m.N; i++ {
		if !in[i] {
			continue
		}
		for j := 0; j < m.N; j++ {
			if !in[j] {
				terms = append(terms, milp.Term{Var: m.X[i][j], Coef: 1})
			}
		}
	}
	return terms
}

// crossing sums the capacity of edges leaving the marked nodes
func crossing(capacity [][]float64, in []bool) float64 {
	var total float64
	for i := range capacity {
		for j := range capacity[i] {
			if in[i] && !in[j] {
				total += capacity[i][j]
			}
		}
	}
	return total
}

func subtourName(in []bool) string {
	var b strings.Builder
	b.WriteString("subtour")
	for i, ok := range in {
		if ok {
			b.WriteByte('_')
			b.WriteString(strconv.Itoa(i))
		}
	}
	return b.String()
}

// maxFlow runs Edmonds-Karp from s to t. It stops once one unit has been
// routed; otherwise it also returns the nodes reachable from s in the final
// residual graph, the source side of a minimum cut.
func maxFlow(capacity [][]float64, s, t int) (float64, []bool) {
	n := len(capacity)
	residual := make([][]float64, n)
	for i := range residual {
		residual[i] = append([]float64(nil), capacity[i]...)
	}

	var flow float64
	parent := make([]int, n)
	for {
		for i := range parent {
			parent[i] = -1
		}
		parent[s] = s
		queue := []int{s}
		for len(queue) > 0 && parent[t] < 0 {
			u := queue[0]
			queue = queue[1:]
			for v := 0; v < n; v++ {
				if parent[v] < 0 && residual[u][v] > cutTol {
					parent[v] = u
					queue = append(queue, v)
				}
			}
		}

		if parent[t] < 0 {
			reached := make([]bool, n)
			for v := range parent {
				reached[v] = parent[v] >= 0
			}
			return flow, reached
		}

		bottleneck := math.Inf(1)
		for v := t; v != s; v = parent[v] {
			bottleneck = math.Min(bottleneck, residual[parent[v]][v])
		}
		for v := t; v != s; v = parent[v] {
			u := parent[v]
			residual[u][v] -= bottleneck
			residual[v][u] += bottleneck
		}
		flow += bottleneck
		if flow >= 1-cutTol {
			return flow, nil
		}
	}
}
