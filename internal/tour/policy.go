package tour

import (
	"errors"
	"fmt"
	"log"

	"gonum.org/v1/gonum/mat"

	"cluster-tour-router/internal/models"
)

// Policy holds the cost constants of the cluster model. All values are minutes.
type Policy struct {
	// SentinelHigh prices self-loops and failed provider lookups.
	SentinelHigh float64
	// PenaltyInterCluster prices every inter-cluster pair except the linking edge.
	PenaltyInterCluster float64
	// PenaltyWeight is added on inter-cluster pairs between two non-hub nodes.
	PenaltyWeight float64
	// LinkingCost prices the hub-to-hub edge leaving the start cluster.
	LinkingCost float64
	// ReturnLinkingCost prices the hub-to-hub edge back into the start cluster.
	ReturnLinkingCost float64
	// FallbackLocalMinutes is used for a local segment without directions.
	FallbackLocalMinutes float64
	// TravelMode is passed to the travel-time and directions providers.
	TravelMode string
}

// DefaultPolicy returns the constants of the San Francisco/Berlin network
func DefaultPolicy() Policy {
	return Policy{
		SentinelHigh:         1e6,
		PenaltyInterCluster:  10000,
		PenaltyWeight:        10000,
		LinkingCost:          660,
		ReturnLinkingCost:    660,
		FallbackLocalMinutes: 30,
		TravelMode:           "driving",
	}
}

// Validate checks that every constant is usable
func (p Policy) Validate() error {
	switch {
	case p.SentinelHigh <= 0:
		return errors.New("sentinel cost must be positive")
	case p.PenaltyInterCluster <= 0:
		return errors.New("inter-cluster penalty cost must be positive")
	case p.PenaltyWeight < 0:
		return errors.New("penalty weight must not be negative")
	case p.LinkingCost < 0 || p.ReturnLinkingCost < 0:
		return errors.New("linking cost must not be negative")
	case p.FallbackLocalMinutes < 0:
		return errors.New("fallback local minutes must not be negative")
	case p.TravelMode == "":
		return errors.New("travel mode is required")
	}
	return nil
}

// checkSizing warns when the inter-cluster penalty is not at least an order
// of magnitude above the largest real intra-cluster travel time.
func (p Policy) checkSizing(net *models.Network, cost *mat.Dense) {
	n := net.Size()
	var longest float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || !net.SameCluster(i, j) {
				continue
			}
			if v := cost.At(i, j); v < p.SentinelHigh && v > longest {
				longest = v
			}
		}
	}
	if longest*10 > p.PenaltyInterCluster {
		log.Printf("[WARN] Inter-cluster penalty may not dominate local travel: penalty=%.0f longest_local=%.1f", p.PenaltyInterCluster, longest)
	}
}

// Link is the designated hub pair. From is the hub of the start cluster.
type Link struct {
	From int
	To   int
}

// IsLinking reports whether i->j is the linking edge in either direction
func (l Link) IsLinking(i, j int) bool {
	return (i == l.From && j == l.To) || (i == l.To && j == l.From)
}

// ValidateNetwork checks the node configuration and returns its linking hub pair.
//
// The tour is anchored at node 0: the subtour elimination constraints exclude
// the start node from the rank ordering, so a network with another start
// index is rejected rather than silently re-anchored.
func ValidateNetwork(net *models.Network) (Link, error) {
	invalid := func(format string, args ...interface{}) (Link, error) {
		return Link{}, &ErrTourFailed{Kind: KindInvalidNetwork, Reason: fmt.Sprintf(format, args...)}
	}

	if net == nil || net.Size() < 2 {
		return invalid("network needs at least two locations")
	}
	if net.Start != 0 {
		return invalid("start node must be index 0, got %d", net.Start)
	}
	for i, loc := range net.Locations {
		if loc.Name == "" {
			return invalid("location %d has no name", i)
		}
		if loc.Cluster == "" {
			return invalid("location %q has no cluster", loc.Name)
		}
	}

	clusters := net.Clusters()
	if len(clusters) != 2 {
		return invalid("network must span exactly two clusters, got %d", len(clusters))
	}

	hubOf := make(map[string]int)
	for _, h := range net.Hubs() {
		c := net.Locations[h].Cluster
		if prev, ok := hubOf[c]; ok {
			return invalid("cluster %q has more than one hub (%d and %d)", c, prev, h)
		}
		hubOf[c] = h
	}

	startCluster := net.Locations[net.Start].Cluster
	var link Link
	for _, c := range clusters {
		h, ok := hubOf[c]
		if !ok {
			return invalid("cluster %q has no hub", c)
		}
		if c == startCluster {
			link.From = h
		} else {
			link.To = h
		}
	}
	return link, nil
}
