package tour

import (
	"context"
	"log"

	"gonum.org/v1/gonum/mat"

	"cluster-tour-router/internal/models"
)

// Totals are the aggregated travel minutes of a classified tour
type Totals struct {
	Total   float64
	Local   float64
	Linking float64
}

// ClassifySegments labels every edge of route as linking or local and sums
// the durations. Linking edges are priced from the cost matrix; local edges
// take the sum of their direction steps, or the fallback estimate when the
// directions provider has nothing.
func ClassifySegments(ctx context.Context, net *models.Network, route []int, link Link, cost mat.Matrix, directions DirectionsProvider, policy Policy) ([]models.Segment, Totals) {
	segments := make([]models.Segment, 0, len(route))
	var totals Totals

	for k := 0; k+1 < len(route); k++ {
		from, to := route[k], route[k+1]
		seg := models.Segment{
			FromIndex: from,
			ToIndex:   to,
			From:      net.Locations[from].Name,
			To:        net.Locations[to].Name,
		}

		if link.IsLinking(from, to) {
			seg.Type = models.SegmentLinking
			seg.DurationMinutes = cost.At(from, to)
			totals.Linking += seg.DurationMinutes
		} else {
			seg.Type = models.SegmentLocal
			seg.Steps, seg.DurationMinutes, seg.Estimated = localSegment(ctx, net.Locations[from], net.Locations[to], directions, policy)
			totals.Local += seg.DurationMinutes
		}

		totals.Total += seg.DurationMinutes
		segments = append(segments, seg)
	}

	log.Printf("[SEGMENT] Segments classified: count=%d total=%.1f local=%.1f linking=%.1f", len(segments), totals.Total, totals.Local, totals.Linking)
	return segments, totals
}

func localSegment(ctx context.Context, from, to models.Location, directions DirectionsProvider, policy Policy) ([]models.Step, float64, bool) {
	var steps []models.Step
	if directions != nil {
		var err error
		steps, err = directions.Steps(ctx, from, to, policy.TravelMode)
		if err != nil {
			log.Printf("[SEGMENT] Directions unavailable: from=%q to=%q err=%v", from.Name, to.Name, err)
			steps = nil
		}
	}

	if len(steps) == 0 {
		fallback := []models.Step{{
			Instruction:     "Navigate to destination",
			DurationMinutes: policy.FallbackLocalMinutes,
		}}
		return fallback, policy.FallbackLocalMinutes, true
	}

	var minutes float64
	for _, s := range steps {
		minutes += s.DurationMinutes
	}
	return steps, minutes, false
}
