package tour

import (
	"errors"
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"
)

// Edge selection threshold on the realised X values
const selectThreshold = 0.5

// Reconstruction faults
var (
	ErrBrokenPath     = errors.New("broken path")
	ErrPrematureCycle = errors.New("premature cycle")
)

// ReconstructionError reports where the walk over X failed
type ReconstructionError struct {
	Fault   error
	Node    int
	Visited []int
}

func (e *ReconstructionError) Error() string {
	return fmt.Sprintf("%v at node %d after %v", e.Fault, e.Node, e.Visited)
}

func (e *ReconstructionError) Unwrap() error {
	return e.Fault
}

// Reconstruct walks the selected edges of x from start and returns the tour
// as N+1 node indices beginning and ending at start. When several edges
// leave a node above the threshold the lowest-index target is taken.
func Reconstruct(x mat.Matrix, start int) ([]int, error) {
	n, _ := x.Dims()
	route := make([]int, 0, n+1)
	route = append(route, start)
	visited := make([]bool, n)
	visited[start] = true

	current := start
	for len(route) < n {
		next := nextNode(x, current)
		if next < 0 {
			return nil, faultAt(ErrBrokenPath, current, route)
		}
		if visited[next] {
			return nil, faultAt(ErrPrematureCycle, next, route)
		}
		visited[next] = true
		route = append(route, next)
		current = next
	}

	if x.At(current, start) <= selectThreshold {
		if nextNode(x, current) < 0 {
			return nil, faultAt(ErrBrokenPath, current, route)
		}
		return nil, faultAt(ErrPrematureCycle, current, route)
	}

	route = append(route, start)
	log.Printf("[ROUTE] Tour reconstructed: nodes=%d route=%v", n, route)
	return route, nil
}

func nextNode(x mat.Matrix, from int) int {
	_, n := x.Dims()
	for k := 0; k < n; k++ {
		if x.At(from, k) > selectThreshold {
			return k
		}
	}
	return -1
}

func faultAt(fault error, node int, route []int) *ReconstructionError {
	log.Printf("[ERROR] Tour reconstruction failed: fault=%q node=%d route=%v", fault, node, route)
	return &ReconstructionError{Fault: fault, Node: node, Visited: append([]int(nil), route...)}
}
