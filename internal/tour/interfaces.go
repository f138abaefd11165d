package tour

import (
	"context"
	"fmt"

	"cluster-tour-router/internal/models"
)

// TravelTimeProvider supplies point-to-point travel time estimates in minutes
type TravelTimeProvider interface {
	EstimateMinutes(ctx context.Context, origin, dest models.Location, mode string) (float64, error)
}

// DirectionsProvider supplies turn-by-turn steps between two locations.
// A nil slice with a nil error means no directions are available.
type DirectionsProvider interface {
	Steps(ctx context.Context, origin, dest models.Location, mode string) ([]models.Step, error)
}

// Prewarmer is implemented by providers that can resolve many pairs in one
// request ahead of the sequential cost-matrix walk
type Prewarmer interface {
	Prewarm(ctx context.Context, locations []models.Location, mode string) error
}

// CoordinateResolver resolves and memoises location coordinates for one run
type CoordinateResolver interface {
	Resolve(ctx context.Context, loc models.Location) (models.Coordinates, error)
	Clear()
}

// FailureKind classifies a failed solve
type FailureKind string

const (
	KindInvalidNetwork      FailureKind = "INVALID_NETWORK"
	KindProviderFailure     FailureKind = "PROVIDER_FAILURE"
	KindModelInfeasible     FailureKind = "MODEL_INFEASIBLE"
	KindModelUnbounded      FailureKind = "MODEL_UNBOUNDED"
	KindModelError          FailureKind = "MODEL_ERROR"
	KindReconstructionFault FailureKind = "RECONSTRUCTION_FAULT"
	KindConfiguration       FailureKind = "CONFIGURATION_ERROR"
)

// ErrTourFailed is returned when a solve terminates without a tour.
// PROVIDER_FAILURE is absorbed by the cost matrix builder and never returned.
type ErrTourFailed struct {
	Kind   FailureKind
	Reason string
	Err    error
}

func (e *ErrTourFailed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tour failed (%s): %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("tour failed (%s): %s", e.Kind, e.Reason)
}

func (e *ErrTourFailed) Unwrap() error {
	return e.Err
}
