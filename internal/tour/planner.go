package tour

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"cluster-tour-router/internal/milp"
	"cluster-tour-router/internal/models"
)

// Forced linking directions
const (
	ForceOutbound = "outbound"
	ForceReturn   = "return"
)

// PlanOptions tunes one solve request
type PlanOptions struct {
	// ForceLink pins the linking edge in one direction: ForceOutbound pins the
	// start cluster's hub to the other hub, ForceReturn the reverse.
	ForceLink string
	// MaxIterations overrides the solver's branch-and-bound budget when positive.
	MaxIterations int
}

// Planner runs the full pipeline for one network: coordinates, cost and
// penalty matrices, model, solve, reconstruction and segment aggregation.
// Plan calls are serialised; no state other than provider caches outlives a call.
type Planner struct {
	Provider    TravelTimeProvider
	Directions  DirectionsProvider
	Coordinates CoordinateResolver
	Policy      Policy
	Solver      milp.Options

	mu sync.Mutex
}

// NewPlanner creates a planner with the default solver options
func NewPlanner(provider TravelTimeProvider, directions DirectionsProvider, coords CoordinateResolver, policy Policy) *Planner {
	return &Planner{
		Provider:    provider,
		Directions:  directions,
		Coordinates: coords,
		Policy:      policy,
		Solver:      milp.DefaultOptions(),
	}
}

// Plan solves the tour for net. On failure it returns an *ErrTourFailed and
// no partial result.
func (p *Planner) Plan(ctx context.Context, net *models.Network, opts PlanOptions) (*models.TourResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	started := time.Now()

	if err := p.Policy.Validate(); err != nil {
		return nil, &ErrTourFailed{Kind: KindInvalidNetwork, Reason: "invalid cost policy", Err: err}
	}
	link, err := ValidateNetwork(net)
	if err != nil {
		return nil, err
	}
	if p.Provider == nil {
		return nil, &ErrTourFailed{Kind: KindConfiguration, Reason: "planner has no travel time provider"}
	}

	log.Printf("[PLAN] Solving tour: network=%q nodes=%d link=%d->%d force=%q", net.Name, net.Size(), link.From, link.To, opts.ForceLink)

	resolved := p.resolveCoordinates(ctx, net)

	if pw, ok := p.Provider.(Prewarmer); ok {
		if err := pw.Prewarm(ctx, resolved.Locations, p.Policy.TravelMode); err != nil {
			log.Printf("[WARN] Provider prewarm failed, falling back to per-pair lookups: %v", err)
		}
	}

	cost := BuildCostMatrix(ctx, resolved, link, p.Provider, p.Policy)
	penalty := BuildPenaltyMatrix(resolved, p.Policy)

	model, err := BuildModel(cost, penalty, resolved.Start)
	if err != nil {
		return nil, &ErrTourFailed{Kind: KindModelError, Reason: "could not declare model", Err: err}
	}
	model.AddDegreeConstraints()
	model.AddSubtourElimination()
	model.AddClusterCuts(resolved)

	switch opts.ForceLink {
	case "":
	case ForceOutbound:
		err = model.ForceEdge(link.From, link.To)
	case ForceReturn:
		err = model.ForceEdge(link.To, link.From)
	default:
		err = fmt.Errorf("unknown force direction %q", opts.ForceLink)
	}
	if err != nil {
		return nil, &ErrTourFailed{Kind: KindInvalidNetwork, Reason: "invalid forced edge", Err: err}
	}

	solverOpts := p.Solver
	if opts.MaxIterations > 0 {
		solverOpts.MaxNodes = opts.MaxIterations
	}
	if solverOpts.Incumbent == nil {
		solverOpts.Incumbent = model.Assignment(ImproveTwoOpt(NearestNeighbourTour(model.Weights, resolved.Start), model.Weights))
	}

	outcome, err := Solve(model, solverOpts)
	if err != nil {
		return nil, err
	}

	route, err := Reconstruct(outcome.X, resolved.Start)
	if err != nil {
		return nil, &ErrTourFailed{Kind: KindReconstructionFault, Reason: "solution does not form a single tour", Err: err}
	}

	if recomputed := TourCost(route, model.Weights); math.Abs(recomputed-outcome.Objective) > 1e-6*math.Max(1, math.Abs(recomputed)) {
		log.Printf("[WARN] Objective does not match tour cost: objective=%.4f tour=%.4f", outcome.Objective, recomputed)
	}

	segments, totals := ClassifySegments(ctx, resolved, route, link, cost, p.Directions, p.Policy)

	locations := make([]*models.Coordinates, len(route))
	for k, idx := range route {
		locations[k] = resolved.Locations[idx].Coords
	}

	result := &models.TourResult{
		RunID:                uuid.New().String(),
		RouteNames:           resolved.Names(route),
		RouteIndices:         route,
		TotalTravelMinutes:   totals.Total,
		LocalTravelMinutes:   totals.Local,
		LinkingTravelMinutes: totals.Linking,
		ObjectiveMinutes:     outcome.Objective,
		Locations:            locations,
		LinkingHubs:          [2]int{link.From, link.To},
		Segments:             segments,
		SolverNodes:          outcome.Nodes,
	}

	log.Printf("[PLAN] Tour solved: run_id=%s objective=%.1f total=%.1f nodes=%d duration=%s",
		result.RunID, result.ObjectiveMinutes, result.TotalTravelMinutes, outcome.Nodes, time.Since(started).Round(time.Millisecond))
	return result, nil
}

// resolveCoordinates returns a copy of net with coordinates filled in from
// the resolver. The resolver is cleared first so each run starts cold.
func (p *Planner) resolveCoordinates(ctx context.Context, net *models.Network) *models.Network {
	resolved := &models.Network{
		Name:      net.Name,
		Start:     net.Start,
		Locations: make([]models.Location, len(net.Locations)),
	}
	copy(resolved.Locations, net.Locations)

	if p.Coordinates == nil {
		return resolved
	}
	p.Coordinates.Clear()

	for i := range resolved.Locations {
		loc := &resolved.Locations[i]
		coords, err := p.Coordinates.Resolve(ctx, *loc)
		if err != nil {
			log.Printf("[WARN] Could not resolve coordinates: location=%q err=%v", loc.Name, err)
			continue
		}
		loc.Coords = &coords
	}
	return resolved
}
