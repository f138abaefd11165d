package tour

import (
	"log"

	"gonum.org/v1/gonum/mat"

	"cluster-tour-router/internal/models"
)

// BuildPenaltyMatrix returns the soft-discouragement matrix added to C in the
// objective. PenaltyWeight sits on every inter-cluster pair whose endpoints
// are both non-hub nodes. Pairs touching the start node carry no penalty.
// It depends only on the network topology.
func BuildPenaltyMatrix(net *models.Network, policy Policy) *mat.Dense {
	n := net.Size()
	penalty := mat.NewDense(n, n, nil)

	count := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || net.SameCluster(i, j) {
				continue
			}
			if i == net.Start || j == net.Start {
				continue
			}
			if net.Locations[i].Hub || net.Locations[j].Hub {
				continue
			}
			penalty.Set(i, j, policy.PenaltyWeight)
			count++
		}
	}

	log.Printf("[PENALTY] Penalty matrix built: nodes=%d penalised_edges=%d weight=%.0f", n, count, policy.PenaltyWeight)
	return penalty
}
