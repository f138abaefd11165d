package tour

import (
	"log"

	"gonum.org/v1/gonum/mat"
)

// NearestNeighbourTour builds a closed route from start by always moving to
// the cheapest unvisited node. Ties go to the lowest index.
func NearestNeighbourTour(weights mat.Matrix, start int) []int {
	n, _ := weights.Dims()
	route := make([]int, 0, n+1)
	route = append(route, start)
	visited := make([]bool, n)
	visited[start] = true

	current := start
	for len(route) < n {
		next := -1
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if next < 0 || weights.At(current, j) < weights.At(current, next) {
				next = j
			}
		}
		visited[next] = true
		route = append(route, next)
		current = next
	}
	return append(route, start)
}

// ImproveTwoOpt reverses interior segments of a closed route for as long as
// a reversal lowers the directed tour cost. The endpoints stay fixed.
func ImproveTwoOpt(route []int, weights mat.Matrix) []int {
	out, passes := twoOpt(route, weights)
	log.Printf("[SOLVE] Heuristic tour: cost=%.1f passes=%d route=%v", TourCost(out, weights), passes, out)
	return out
}

func twoOpt(route []int, weights mat.Matrix) ([]int, int) {
	out := append([]int(nil), route...)
	if len(out) < 4 {
		return out, 0
	}

	cost := TourCost(out, weights)
	passes := 0
	improved := true
	for improved {
		improved = false
		passes++
		for i := 1; i < len(out)-2; i++ {
			for j := i + 1; j < len(out)-1; j++ {
				reverse(out, i, j)
				if next := TourCost(out, weights); next < cost-1e-9 {
					cost = next
					improved = true
					continue
				}
				reverse(out, i, j)
			}
		}
	}
	return out, passes
}

func reverse(route []int, i, j int) {
	for i < j {
		route[i], route[j] = route[j], route[i]
		i++
		j--
	}
}

// Assignment converts a closed route into a full variable assignment for the
// model: X[i][j] is 1 for each route edge and U of the k-th node is k.
func (m *Model) Assignment(route []int) []float64 {
	values := make([]float64, m.Problem.NumVars())
	for k := 0; k+1 < len(route); k++ {
		values[m.X[route[k]][route[k+1]]] = 1
	}
	for k := 0; k < len(route)-1 && k < m.N; k++ {
		values[m.U[route[k]]] = float64(k)
	}
	return values
}
