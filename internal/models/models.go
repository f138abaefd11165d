package models

import "math"

// Coordinates represents a geographic point
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// RoundCoordinate rounds a coordinate to 5 decimal places (~1m precision)
func RoundCoordinate(v float64) float64 {
	return math.Round(v*100000) / 100000
}

// SamePoint reports whether two coordinates are equal after rounding
func (c Coordinates) SamePoint(other Coordinates) bool {
	return RoundCoordinate(c.Lat) == RoundCoordinate(other.Lat) &&
		RoundCoordinate(c.Lng) == RoundCoordinate(other.Lng)
}

// Location is a single node of a tour network
type Location struct {
	Name    string       `json:"name" validate:"required"`
	Cluster string       `json:"cluster" validate:"required"`
	Hub     bool         `json:"hub"`
	Coords  *Coordinates `json:"coords,omitempty"`
}

// Network is the fixed node configuration for one solve request.
// Start is the index of the node the tour begins and ends at.
type Network struct {
	Name      string     `json:"name"`
	Locations []Location `json:"locations" validate:"required,min=1,dive"`
	Start     int        `json:"start" validate:"gte=0"`
}

// Size returns the number of nodes in the network
func (n *Network) Size() int {
	return len(n.Locations)
}

// Clusters returns the distinct cluster labels in order of first appearance
func (n *Network) Clusters() []string {
	var clusters []string
	seen := make(map[string]bool)
	for _, loc := range n.Locations {
		if !seen[loc.Cluster] {
			seen[loc.Cluster] = true
			clusters = append(clusters, loc.Cluster)
		}
	}
	return clusters
}

// Hubs returns the indices of all hub nodes in index order
func (n *Network) Hubs() []int {
	var hubs []int
	for i, loc := range n.Locations {
		if loc.Hub {
			hubs = append(hubs, i)
		}
	}
	return hubs
}

// SameCluster reports whether nodes i and j share a cluster label
func (n *Network) SameCluster(i, j int) bool {
	return n.Locations[i].Cluster == n.Locations[j].Cluster
}

// Names returns the display names of the given node indices
func (n *Network) Names(indices []int) []string {
	names := make([]string, len(indices))
	for k, idx := range indices {
		names[k] = n.Locations[idx].Name
	}
	return names
}

// Segment types
const (
	SegmentLinking = "linking"
	SegmentLocal   = "local"
)

// Step is one turn-by-turn instruction of a local segment
type Step struct {
	Instruction     string  `json:"instruction"`
	Distance        string  `json:"distance,omitempty"`
	Duration        string  `json:"duration,omitempty"`
	DurationMinutes float64 `json:"duration_minutes"`
}

// Segment is one edge of a reconstructed tour
type Segment struct {
	Type            string  `json:"type"`
	FromIndex       int     `json:"from_index"`
	ToIndex         int     `json:"to_index"`
	From            string  `json:"from_location"`
	To              string  `json:"to_location"`
	DurationMinutes float64 `json:"duration_minutes"`
	Steps           []Step  `json:"steps,omitempty"`
	Estimated       bool    `json:"estimated,omitempty"`
}

// TourResult is the full result of a tour solve. Locations holds one entry
// per route entry; an entry is nil when the location could not be resolved.
type TourResult struct {
	RunID                string         `json:"run_id"`
	RouteNames           []string       `json:"route_names"`
	RouteIndices         []int          `json:"route_indices"`
	TotalTravelMinutes   float64        `json:"total_travel_time_minutes"`
	LocalTravelMinutes   float64        `json:"local_travel_time_minutes"`
	LinkingTravelMinutes float64        `json:"linking_time_total_minutes"`
	ObjectiveMinutes     float64        `json:"objective_minutes"`
	Locations            []*Coordinates `json:"locations"`
	LinkingHubs          [2]int         `json:"linking_hubs"`
	Segments             []Segment      `json:"directions"`
	SolverNodes          int            `json:"solver_nodes"`
}

// TravelTimeCacheEntry represents a cached travel-time lookup
type TravelTimeCacheEntry struct {
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Mode        string  `json:"mode"`
	Minutes     float64 `json:"minutes"`
}

// GeocodeCacheEntry represents a cached geocoding lookup
type GeocodeCacheEntry struct {
	Name   string      `json:"name"`
	Coords Coordinates `json:"coords"`
}
