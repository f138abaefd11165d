package tour

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"cluster-tour-router/internal/models"
)

// fourNodes is the smallest two-cluster network: a start node and a hub in
// cluster "a", a hub and one stop in cluster "b".
func fourNodes() *models.Network {
	return &models.Network{
		Name:  "four",
		Start: 0,
		Locations: []models.Location{
			{Name: "Home", Cluster: "a"},
			{Name: "Hub A", Cluster: "a", Hub: true},
			{Name: "Hub B", Cluster: "b", Hub: true},
			{Name: "Museum", Cluster: "b"},
		},
	}
}

// fiveNodes adds a non-hub stop to cluster "a" so that one inter-cluster
// pair is between two plain stops.
func fiveNodes() *models.Network {
	return &models.Network{
		Name:  "five",
		Start: 0,
		Locations: []models.Location{
			{Name: "Home", Cluster: "a"},
			{Name: "Hub A", Cluster: "a", Hub: true},
			{Name: "Cafe", Cluster: "a"},
			{Name: "Hub B", Cluster: "b", Hub: true},
			{Name: "Museum", Cluster: "b"},
		},
	}
}

func unitPolicy(linking, returnLinking float64) Policy {
	p := DefaultPolicy()
	p.LinkingCost = linking
	p.ReturnLinkingCost = returnLinking
	return p
}

// tourMatrix returns the 0/1 edge matrix of a closed route
func tourMatrix(n int, route ...int) *mat.Dense {
	x := mat.NewDense(n, n, nil)
	for k := 0; k+1 < len(route); k++ {
		x.Set(route[k], route[k+1], 1)
	}
	return x
}

func edges(n int, pairs ...[2]int) *mat.Dense {
	x := mat.NewDense(n, n, nil)
	for _, p := range pairs {
		x.Set(p[0], p[1], 1)
	}
	return x
}

func requireTourFailed(t *testing.T, err error, kind FailureKind) *ErrTourFailed {
	t.Helper()
	tf, ok := err.(*ErrTourFailed)
	if !ok {
		t.Fatalf("expected *ErrTourFailed(%s), got %T: %v", kind, err, err)
	}
	if tf.Kind != kind {
		t.Fatalf("expected failure kind %s, got %s: %v", kind, tf.Kind, err)
	}
	return tf
}
