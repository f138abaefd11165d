package tour

import (
	"context"
	"log"

	"gonum.org/v1/gonum/mat"

	"cluster-tour-router/internal/models"
)

// BuildCostMatrix returns the N×N travel-cost matrix C.
//
// Same-cluster pairs carry the provider's estimate, or SentinelHigh when the
// lookup fails. The linking hub pair carries the linking cost in each
// direction and every other inter-cluster pair carries PenaltyInterCluster.
// The diagonal is always SentinelHigh. Lookups run sequentially, one per
// ordered same-cluster pair.
func BuildCostMatrix(ctx context.Context, net *models.Network, link Link, provider TravelTimeProvider, policy Policy) *mat.Dense {
	n := net.Size()
	cost := mat.NewDense(n, n, nil)

	failures := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			switch {
			case i == j:
				cost.Set(i, j, policy.SentinelHigh)
			case net.SameCluster(i, j):
				minutes, err := provider.EstimateMinutes(ctx, net.Locations[i], net.Locations[j], policy.TravelMode)
				if err != nil || minutes < 0 {
					failures++
					log.Printf("[COST] Travel time unavailable: kind=%s from=%q to=%q err=%v", KindProviderFailure, net.Locations[i].Name, net.Locations[j].Name, err)
					minutes = policy.SentinelHigh
				}
				cost.Set(i, j, minutes)
			case i == link.From && j == link.To:
				cost.Set(i, j, policy.LinkingCost)
			case i == link.To && j == link.From:
				cost.Set(i, j, policy.ReturnLinkingCost)
			default:
				cost.Set(i, j, policy.PenaltyInterCluster)
			}
		}
	}

	log.Printf("[COST] Cost matrix built: nodes=%d provider_failures=%d link=%d->%d", n, failures, link.From, link.To)
	policy.checkSizing(net, cost)
	return cost
}

// TourCost sums weights along consecutive route entries
func TourCost(route []int, weights mat.Matrix) float64 {
	var total float64
	for k := 0; k+1 < len(route); k++ {
		total += weights.At(route[k], route[k+1])
	}
	return total
}
